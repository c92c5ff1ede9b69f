package timer

import (
	"time"

	"github.com/google/uuid"
)

// Lifecycle transitions are pure: each takes a snapshot and an instant and
// returns the updated snapshot plus the audit entry the mutation emits.
// Callers persist both through the storage adapter.

// Start begins a run segment. Starting an already-running timer is a no-op
// and emits no entry.
func Start(t Timer, now time.Time) (Timer, *ActivityLogEntry) {
	if t.IsRunning {
		return t, nil
	}
	ms := now.UnixMilli()
	t.IsRunning = true
	t.StartTime = ms
	if t.FirstStartTime == 0 {
		t.FirstStartTime = ms
	}
	if t.TimerType == TypePomodoro && t.PomodoroPhase == "" {
		t.PomodoroPhase = PhaseWork
	}
	t.UpdatedAt = ms
	return t, newEntry(t, EventStart, ms, nil)
}

// Pause ends the current run segment, folding it into ElapsedTime. The
// emitted entry carries the segment length as SessionDuration.
func Pause(t Timer, now time.Time) (Timer, *ActivityLogEntry) {
	if !t.IsRunning {
		return t, nil
	}
	ms := now.UnixMilli()
	segment := ms - t.StartTime
	if segment < 0 {
		segment = 0
	}
	t.ElapsedTime += segment
	t.IsRunning = false
	t.StartTime = 0
	t.UpdatedAt = ms
	entry := newEntry(t, EventPause, ms, nil)
	entry.SessionDuration = &segment
	return t, entry
}

// Reset clears elapsed time and laps. FirstStartTime survives resets so
// "total since first start" keeps its meaning. The entry records the value
// that was discarded.
func Reset(t Timer, now time.Time) (Timer, *ActivityLogEntry) {
	ms := now.UnixMilli()
	previous := Elapsed(t, now)
	t.IsRunning = false
	t.StartTime = 0
	t.ElapsedTime = 0
	t.Laps = nil
	if t.TimerType == TypePomodoro {
		t.PomodoroPhase = PhaseWork
	}
	t.UpdatedAt = ms
	entry := newEntry(t, EventReset, ms, nil)
	entry.PreviousValue = &previous
	return t, entry
}

// RecordLap appends a checkpoint at the current cumulative elapsed value.
// SplitTime is strictly increasing; LapTime is the delta from the previous
// split (or the split itself for the first lap).
func RecordLap(t Timer, now time.Time) (Timer, *ActivityLogEntry) {
	ms := now.UnixMilli()
	split := Elapsed(t, now)
	lapTime := split
	if n := len(t.Laps); n > 0 {
		lapTime = split - t.Laps[n-1].SplitTime
	}
	laps := make([]Lap, len(t.Laps), len(t.Laps)+1)
	copy(laps, t.Laps)
	t.Laps = append(laps, Lap{
		Number:    len(laps) + 1,
		LapTime:   lapTime,
		SplitTime: split,
		Timestamp: ms,
	})
	t.UpdatedAt = ms
	entry := newEntry(t, EventLap, ms, map[string]any{"lap_number": len(t.Laps)})
	return t, entry
}

// EditTime overwrites the accumulated elapsed value. The entry records both
// the previous and new values. Editing a running timer restarts the current
// segment at now so the in-progress portion is not double counted.
func EditTime(t Timer, newElapsed int64, now time.Time) (Timer, *ActivityLogEntry) {
	ms := now.UnixMilli()
	previous := Elapsed(t, now)
	if newElapsed < 0 {
		newElapsed = 0
	}
	t.ElapsedTime = newElapsed
	if t.IsRunning {
		t.StartTime = ms
	}
	t.UpdatedAt = ms
	entry := newEntry(t, EventTimeEdit, ms, nil)
	entry.PreviousValue = &previous
	entry.NewValue = &newElapsed
	return t, entry
}

func newEntry(t Timer, event EventType, ms int64, metadata map[string]any) *ActivityLogEntry {
	return &ActivityLogEntry{
		ID:             uuid.NewString(),
		TimerID:        t.ID,
		TimerName:      t.Name,
		UserID:         t.UserID,
		EventType:      event,
		Timestamp:      ms,
		ElapsedAtEvent: t.ElapsedTime,
		Metadata:       metadata,
	}
}
