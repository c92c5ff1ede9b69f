// Package store holds the storage adapter contract and its local-first
// implementation. The rest of the system depends only on the Store
// interface; backends differ in where rows live and how peers hear about
// changes.
package store

import (
	"context"
	"errors"

	"timerhub/internal/sync"
	"timerhub/internal/timer"
)

// ErrNotFound reports an operation on a missing timer id. It indicates a
// caller bug or stale reference and is surfaced, unlike sync failures.
var ErrNotFound = errors.New("timer not found")

// TimerInput is the caller-supplied part of a new timer.
type TimerInput struct {
	Name             string
	TimerType        timer.Type
	Duration         int64
	ShowTotal        bool
	PomodoroSettings *timer.PomodoroSettings
}

// TimerPatch is a partial update: only non-nil fields are applied.
type TimerPatch struct {
	Name                 *string
	TimerType            *timer.Type
	IsRunning            *bool
	ElapsedTime          *int64
	Duration             *int64
	Laps                 *[]timer.Lap
	ShowTotal            *bool
	FirstStartTime       *int64
	StartTime            *int64
	PomodoroSettings     *timer.PomodoroSettings
	PomodoroPhase        *timer.PomodoroPhase
	PomodoroSessionCount *int
}

// ActivityFilter narrows activity log reads. Zero values mean "no filter".
type ActivityFilter struct {
	TimerID   string
	EventType timer.EventType
	Since     int64
	Until     int64
	Limit     int
}

// ProductivityStats aggregates pause-event session durations and pomodoro
// completions over a time window.
type ProductivityStats struct {
	TotalSessions      int              `json:"total_sessions"`
	TotalTime          int64            `json:"total_time"`
	AverageSession     int64            `json:"average_session"`
	LongestSession     int64            `json:"longest_session"`
	PomodorosCompleted int              `json:"pomodoros_completed"`
	PerTimer           map[string]int64 `json:"per_timer"`
	PerDay             map[string]int64 `json:"per_day"`
}

// Syncer is the server transport a local store uses to converge with remote
// peers. client.Client satisfies it; tests substitute fakes.
type Syncer interface {
	Upload(ctx context.Context, ops []sync.Operation) error
	FetchTimers(ctx context.Context) ([]timer.Timer, error)
	FetchActivity(ctx context.Context) ([]timer.ActivityLogEntry, error)
	Subscribe(userID string, onSync func()) (func(), error)
}

// Store is the capability set every storage backend implements.
type Store interface {
	GetTimers(ctx context.Context, userID string) ([]timer.Timer, error)
	GetTimer(ctx context.Context, id string) (timer.Timer, error)
	CreateTimer(ctx context.Context, input TimerInput, userID string) (timer.Timer, error)
	UpdateTimer(ctx context.Context, id string, patch TimerPatch) (timer.Timer, error)
	DeleteTimer(ctx context.Context, id string) error

	LogActivity(ctx context.Context, entry timer.ActivityLogEntry) error
	GetActivityLog(ctx context.Context, userID string, filter ActivityFilter) ([]timer.ActivityLogEntry, error)
	ClearActivityLog(ctx context.Context, userID string) error
	GetProductivityStats(ctx context.Context, userID string, start, end int64, timerID string) (ProductivityStats, error)

	WatchTimers(userID string, fn func([]timer.Timer)) (func(), error)
	WatchActivityLog(userID string, fn func([]timer.ActivityLogEntry)) (func(), error)

	SetUserID(ctx context.Context, userID string) error
	ClearSync()
	SyncToServer(ctx context.Context) error
	SyncFromServer(ctx context.Context, userID string) error
}
