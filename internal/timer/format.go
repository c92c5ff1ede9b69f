package timer

import "fmt"

// FormatClock renders milliseconds as HH:MM:SS.cc.
func FormatClock(ms int64) string {
	if ms < 0 {
		ms = 0
	}
	centis := (ms % 1000) / 10
	totalSecs := ms / 1000
	secs := totalSecs % 60
	mins := (totalSecs / 60) % 60
	hours := totalSecs / 3600
	return fmt.Sprintf("%02d:%02d:%02d.%02d", hours, mins, secs, centis)
}

// FormatLap renders a lap increment compactly: MM:SS.cc, with an hour
// prefix only when needed.
func FormatLap(ms int64) string {
	if ms < 0 {
		ms = 0
	}
	centis := (ms % 1000) / 10
	totalSecs := ms / 1000
	secs := totalSecs % 60
	mins := (totalSecs / 60) % 60
	hours := totalSecs / 3600
	if hours > 0 {
		return fmt.Sprintf("%d:%02d:%02d.%02d", hours, mins, secs, centis)
	}
	return fmt.Sprintf("%02d:%02d.%02d", mins, secs, centis)
}

// FormatDuration renders milliseconds human-readably, e.g. "5h 33m 11s".
// Zero-valued leading units are omitted; sub-second values render as "0s".
func FormatDuration(ms int64) string {
	if ms < 0 {
		ms = 0
	}
	totalSecs := ms / 1000
	secs := totalSecs % 60
	mins := (totalSecs / 60) % 60
	hours := totalSecs / 3600

	switch {
	case hours > 0:
		return fmt.Sprintf("%dh %dm %ds", hours, mins, secs)
	case mins > 0:
		return fmt.Sprintf("%dm %ds", mins, secs)
	default:
		return fmt.Sprintf("%ds", secs)
	}
}
