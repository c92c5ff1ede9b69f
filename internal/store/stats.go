package store

import (
	"context"
	"time"

	"timerhub/internal/timer"
)

// GetProductivityStats derives session statistics from the activity log:
// every pause event closes one work session whose length is the event's
// SessionDuration, and every complete event is one finished pomodoro work
// phase. Timers themselves carry no aggregate state.
func (l *Local) GetProductivityStats(ctx context.Context, userID string, start, end int64, timerID string) (ProductivityStats, error) {
	entries, err := l.GetActivityLog(ctx, userID, ActivityFilter{
		TimerID: timerID,
		Since:   start,
		Until:   end,
	})
	if err != nil {
		return ProductivityStats{}, err
	}

	stats := ProductivityStats{
		PerTimer: map[string]int64{},
		PerDay:   map[string]int64{},
	}

	for _, e := range entries {
		switch e.EventType {
		case timer.EventPause:
			if e.SessionDuration == nil {
				continue
			}
			d := *e.SessionDuration
			stats.TotalSessions++
			stats.TotalTime += d
			if d > stats.LongestSession {
				stats.LongestSession = d
			}
			stats.PerTimer[e.TimerID] += d
			day := time.UnixMilli(e.Timestamp).UTC().Format("2006-01-02")
			stats.PerDay[day] += d
		case timer.EventComplete:
			stats.PomodorosCompleted++
		}
	}

	if stats.TotalSessions > 0 {
		stats.AverageSession = stats.TotalTime / int64(stats.TotalSessions)
	}
	return stats, nil
}
