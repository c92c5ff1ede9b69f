package timer

type Type string

const (
	TypeStopwatch Type = "stopwatch"
	TypeCountdown Type = "countdown"
	TypePomodoro  Type = "pomodoro"
)

type PomodoroPhase string

const (
	PhaseWork       PomodoroPhase = "work"
	PhaseShortBreak PomodoroPhase = "shortBreak"
	PhaseLongBreak  PomodoroPhase = "longBreak"
)

// Timer is one user-owned counting device. All instants and durations are
// unix milliseconds; a zero StartTime means the timer is not mid-segment.
type Timer struct {
	ID                   string            `json:"id"`
	Name                 string            `json:"name"`
	TimerType            Type              `json:"timer_type"`
	IsRunning            bool              `json:"is_running"`
	ElapsedTime          int64             `json:"elapsed_time"`
	Duration             int64             `json:"duration,omitempty"`
	Laps                 []Lap             `json:"laps,omitempty"`
	UserID               string            `json:"user_id"`
	ShowTotal            bool              `json:"show_total"`
	FirstStartTime       int64             `json:"first_start_time,omitempty"`
	StartTime            int64             `json:"start_time,omitempty"`
	PomodoroSettings     *PomodoroSettings `json:"pomodoro_settings,omitempty"`
	PomodoroPhase        PomodoroPhase     `json:"pomodoro_phase,omitempty"`
	PomodoroSessionCount int               `json:"pomodoro_session_count"`
	CreatedAt            int64             `json:"created_at"`
	UpdatedAt            int64             `json:"updated_at"`
}

// Lap is a recorded checkpoint: SplitTime is cumulative elapsed at capture,
// LapTime the increment since the previous lap.
type Lap struct {
	Number    int   `json:"number"`
	LapTime   int64 `json:"lap_time"`
	SplitTime int64 `json:"split_time"`
	Timestamp int64 `json:"timestamp"`
}

type PomodoroSettings struct {
	WorkDuration       int64 `json:"work_duration"`
	ShortBreakDuration int64 `json:"short_break_duration"`
	LongBreakDuration  int64 `json:"long_break_duration"`
	SessionsUntilLong  int   `json:"sessions_until_long_break"`
}

type EventType string

const (
	EventStart    EventType = "start"
	EventPause    EventType = "pause"
	EventReset    EventType = "reset"
	EventLap      EventType = "lap"
	EventTimeEdit EventType = "time_edit"
	EventComplete EventType = "complete"
)

// ActivityLogEntry is an immutable audit record of one lifecycle event.
// Entries are only ever inserted or bulk-deleted, never updated.
type ActivityLogEntry struct {
	ID              string         `json:"id"`
	TimerID         string         `json:"timer_id"`
	TimerName       string         `json:"timer_name"`
	UserID          string         `json:"user_id"`
	EventType       EventType      `json:"event_type"`
	Timestamp       int64          `json:"timestamp"`
	ElapsedAtEvent  int64          `json:"elapsed_at_event"`
	SessionDuration *int64         `json:"session_duration,omitempty"`
	PreviousValue   *int64         `json:"previous_value,omitempty"`
	NewValue        *int64         `json:"new_value,omitempty"`
	Metadata        map[string]any `json:"metadata,omitempty"`
}
