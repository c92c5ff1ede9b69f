package timer

import "time"

// DefaultPomodoroSettings is the classic 25/5/15 cycle with a long break
// every fourth session.
func DefaultPomodoroSettings() *PomodoroSettings {
	return &PomodoroSettings{
		WorkDuration:       25 * 60 * 1000,
		ShortBreakDuration: 5 * 60 * 1000,
		LongBreakDuration:  15 * 60 * 1000,
		SessionsUntilLong:  4,
	}
}

// PhaseDuration is the target length of the timer's current pomodoro phase.
func PhaseDuration(t Timer) int64 {
	settings := t.PomodoroSettings
	if settings == nil {
		settings = DefaultPomodoroSettings()
	}
	switch t.PomodoroPhase {
	case PhaseShortBreak:
		return settings.ShortBreakDuration
	case PhaseLongBreak:
		return settings.LongBreakDuration
	default:
		return settings.WorkDuration
	}
}

// AdvancePhase moves a pomodoro timer to its next phase, resetting elapsed
// time for the new phase. Completing a work phase bumps the session count
// and emits a complete entry; every SessionsUntilLong-th work phase leads
// into the long break. Break completions emit no entry. A timer that was
// running keeps running into the new phase.
func AdvancePhase(t Timer, now time.Time) (Timer, *ActivityLogEntry) {
	if t.TimerType != TypePomodoro {
		return t, nil
	}
	settings := t.PomodoroSettings
	if settings == nil {
		settings = DefaultPomodoroSettings()
	}
	ms := now.UnixMilli()

	var entry *ActivityLogEntry
	switch t.PomodoroPhase {
	case PhaseShortBreak, PhaseLongBreak:
		t.PomodoroPhase = PhaseWork
	default:
		t.PomodoroSessionCount++
		if settings.SessionsUntilLong > 0 && t.PomodoroSessionCount%settings.SessionsUntilLong == 0 {
			t.PomodoroPhase = PhaseLongBreak
		} else {
			t.PomodoroPhase = PhaseShortBreak
		}
		entry = newEntry(t, EventComplete, ms, map[string]any{
			"phase":         string(PhaseWork),
			"session_count": t.PomodoroSessionCount,
		})
	}

	t.ElapsedTime = 0
	if t.IsRunning {
		t.StartTime = ms
	}
	t.Duration = PhaseDuration(t)
	t.UpdatedAt = ms
	return t, entry
}
