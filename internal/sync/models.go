package sync

import json "github.com/goccy/go-json"

type Op string

const (
	OpPut    Op = "PUT"
	OpPatch  Op = "PATCH"
	OpDelete Op = "DELETE"
)

type Table string

const (
	TableTimers       Table = "timers"
	TableActivityLogs Table = "activity_logs"
)

// Operation is one entry of a CRUD batch. ID is the target row id; Data is
// decoded into the table's typed payload at the boundary rather than cast
// field-by-field.
type Operation struct {
	ID    string          `json:"id"`
	Op    Op              `json:"op"`
	Table Table           `json:"table"`
	Data  json.RawMessage `json:"data,omitempty"`
}

type UploadRequest struct {
	Operations []Operation `json:"operations"`
}

type UploadResponse struct {
	Success bool `json:"success"`
}

// TimerPayload carries a timer row on the wire. Every field is a pointer (or
// raw JSON) so a PATCH can distinguish "absent" from "zero": only fields
// present in the payload are written.
type TimerPayload struct {
	ID                   *string         `json:"id,omitempty"`
	Name                 *string         `json:"name,omitempty"`
	TimerType            *string         `json:"timer_type,omitempty"`
	IsRunning            *bool           `json:"is_running,omitempty"`
	ElapsedTime          *int64          `json:"elapsed_time,omitempty"`
	Duration             *int64          `json:"duration,omitempty"`
	Laps                 json.RawMessage `json:"laps,omitempty"`
	UserID               *string         `json:"user_id,omitempty"`
	ShowTotal            *bool           `json:"show_total,omitempty"`
	FirstStartTime       *int64          `json:"first_start_time,omitempty"`
	StartTime            *int64          `json:"start_time,omitempty"`
	PomodoroSettings     json.RawMessage `json:"pomodoro_settings,omitempty"`
	PomodoroPhase        *string         `json:"pomodoro_phase,omitempty"`
	PomodoroSessionCount *int64          `json:"pomodoro_session_count,omitempty"`
	CreatedAt            *int64          `json:"created_at,omitempty"`
	UpdatedAt            *int64          `json:"updated_at,omitempty"`
}

type column struct {
	name  string
	value any
}

// columns lists the present fields in stable declaration order, excluding id.
func (p *TimerPayload) columns() []column {
	var cols []column
	if p.Name != nil {
		cols = append(cols, column{"name", *p.Name})
	}
	if p.TimerType != nil {
		cols = append(cols, column{"timer_type", *p.TimerType})
	}
	if p.IsRunning != nil {
		cols = append(cols, column{"is_running", *p.IsRunning})
	}
	if p.ElapsedTime != nil {
		cols = append(cols, column{"elapsed_time", *p.ElapsedTime})
	}
	if p.Duration != nil {
		cols = append(cols, column{"duration", *p.Duration})
	}
	if p.Laps != nil {
		cols = append(cols, column{"laps", string(p.Laps)})
	}
	if p.UserID != nil {
		cols = append(cols, column{"user_id", *p.UserID})
	}
	if p.ShowTotal != nil {
		cols = append(cols, column{"show_total", *p.ShowTotal})
	}
	if p.FirstStartTime != nil {
		cols = append(cols, column{"first_start_time", *p.FirstStartTime})
	}
	if p.StartTime != nil {
		cols = append(cols, column{"start_time", *p.StartTime})
	}
	if p.PomodoroSettings != nil {
		cols = append(cols, column{"pomodoro_settings", string(p.PomodoroSettings)})
	}
	if p.PomodoroPhase != nil {
		cols = append(cols, column{"pomodoro_phase", *p.PomodoroPhase})
	}
	if p.PomodoroSessionCount != nil {
		cols = append(cols, column{"pomodoro_session_count", *p.PomodoroSessionCount})
	}
	if p.CreatedAt != nil {
		cols = append(cols, column{"created_at", *p.CreatedAt})
	}
	return cols
}

// ActivityPayload carries an activity log row on the wire. Logs are
// immutable, so this payload only ever travels in PUT operations.
type ActivityPayload struct {
	ID              *string         `json:"id,omitempty"`
	TimerID         *string         `json:"timer_id,omitempty"`
	TimerName       *string         `json:"timer_name,omitempty"`
	UserID          *string         `json:"user_id,omitempty"`
	EventType       *string         `json:"event_type,omitempty"`
	Timestamp       *int64          `json:"timestamp,omitempty"`
	ElapsedAtEvent  *int64          `json:"elapsed_at_event,omitempty"`
	SessionDuration *int64          `json:"session_duration,omitempty"`
	PreviousValue   *int64          `json:"previous_value,omitempty"`
	NewValue        *int64          `json:"new_value,omitempty"`
	Metadata        json.RawMessage `json:"metadata,omitempty"`
}

func (p *ActivityPayload) columns() []column {
	var cols []column
	if p.TimerID != nil {
		cols = append(cols, column{"timer_id", *p.TimerID})
	}
	if p.TimerName != nil {
		cols = append(cols, column{"timer_name", *p.TimerName})
	}
	if p.UserID != nil {
		cols = append(cols, column{"user_id", *p.UserID})
	}
	if p.EventType != nil {
		cols = append(cols, column{"event_type", *p.EventType})
	}
	if p.Timestamp != nil {
		cols = append(cols, column{"timestamp", *p.Timestamp})
	}
	if p.ElapsedAtEvent != nil {
		cols = append(cols, column{"elapsed_at_event", *p.ElapsedAtEvent})
	}
	if p.SessionDuration != nil {
		cols = append(cols, column{"session_duration", *p.SessionDuration})
	}
	if p.PreviousValue != nil {
		cols = append(cols, column{"previous_value", *p.PreviousValue})
	}
	if p.NewValue != nil {
		cols = append(cols, column{"new_value", *p.NewValue})
	}
	if p.Metadata != nil {
		cols = append(cols, column{"metadata", string(p.Metadata)})
	}
	return cols
}
