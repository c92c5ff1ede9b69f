package timer

import "time"

// Display computes the live value for a timer snapshot at the given instant.
// It is pure: the same snapshot and instant always produce the same value.
// Stopwatch and pomodoro count up from ElapsedTime; countdown counts down
// from Duration and clamps at zero. Deriving the value from StartTime rather
// than accumulating ticks keeps backgrounded or throttled callers accurate.
func Display(t Timer, now time.Time) (int64, bool) {
	live := t.ElapsedTime
	if t.IsRunning && t.StartTime > 0 {
		live += now.UnixMilli() - t.StartTime
	}

	if t.TimerType == TypeCountdown {
		remaining := t.Duration - live
		if remaining < 0 {
			remaining = 0
		}
		return remaining, t.IsRunning
	}
	return live, t.IsRunning
}

// Elapsed is the cumulative elapsed value at now, including the in-progress
// segment. Unlike Display it never inverts into remaining time.
func Elapsed(t Timer, now time.Time) int64 {
	live := t.ElapsedTime
	if t.IsRunning && t.StartTime > 0 {
		live += now.UnixMilli() - t.StartTime
	}
	return live
}

// TotalSinceFirstStart is wall-clock time since the timer was first ever
// started, independent of pauses and resets. Zero if never started.
func TotalSinceFirstStart(t Timer, now time.Time) int64 {
	if t.FirstStartTime == 0 {
		return 0
	}
	return now.UnixMilli() - t.FirstStartTime
}
