package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"timerhub/internal/sync"
	"timerhub/internal/timer"

	json "github.com/goccy/go-json"
)

// SetUserID binds the adapter to a user and opens the server push
// subscription; every sync signal triggers a pull-based refresh. A failed
// subscription degrades to locally-correct operation rather than failing
// the bind.
func (l *Local) SetUserID(ctx context.Context, userID string) error {
	l.mu.Lock()
	l.userID = userID
	prevStop := l.stopPush
	l.stopPush = nil
	l.mu.Unlock()

	if prevStop != nil {
		prevStop()
	}
	if l.syncer == nil || userID == "" {
		return nil
	}

	stop, err := l.syncer.Subscribe(userID, func() {
		if err := l.SyncFromServer(context.Background(), userID); err != nil {
			l.log.Warn().Err(err).Str("user_id", userID).Msg("sync refresh failed")
		}
	})
	if err != nil {
		l.log.Warn().Err(err).Str("user_id", userID).Msg("push subscription failed")
		return nil
	}

	l.mu.Lock()
	l.stopPush = stop
	l.mu.Unlock()
	return nil
}

// ClearSync tears down the push subscription and unbinds the user. In-flight
// uploads are not cancelled; their results are ignored.
func (l *Local) ClearSync() {
	l.mu.Lock()
	stop := l.stopPush
	l.stopPush = nil
	l.userID = ""
	l.mu.Unlock()

	if stop != nil {
		stop()
	}
}

// SyncToServer drains pending operations and ships them as one batch.
// Failed batches are dropped, not retried; local state stays the source of
// truth until the next successful sync.
func (l *Local) SyncToServer(ctx context.Context) error {
	if l.syncer == nil {
		return nil
	}

	// flushMu is held across the whole drain-and-upload so concurrent
	// flushes cannot reorder batches on the wire: a later mutation's
	// DELETE must not reach the server before an earlier PUT.
	l.flushMu.Lock()
	defer l.flushMu.Unlock()

	l.mu.Lock()
	ops := l.outbox
	l.outbox = nil
	l.mu.Unlock()

	if len(ops) == 0 {
		return nil
	}
	if err := l.syncer.Upload(ctx, ops); err != nil {
		return fmt.Errorf("upload %d operations: %w", len(ops), err)
	}
	return nil
}

// SyncFromServer pulls the user's full state and inserts rows not already
// present locally. Existing rows are left untouched: this merges only new
// rows, it does not reconcile.
func (l *Local) SyncFromServer(ctx context.Context, userID string) error {
	if l.syncer == nil {
		return nil
	}

	timers, err := l.syncer.FetchTimers(ctx)
	if err != nil {
		return fmt.Errorf("fetch timers: %w", err)
	}
	entries, err := l.syncer.FetchActivity(ctx)
	if err != nil {
		return fmt.Errorf("fetch activity: %w", err)
	}

	timersAdded := false
	for _, t := range timers {
		exists, err := l.rowExists(ctx, "timers", t.ID)
		if err != nil {
			return err
		}
		if exists {
			continue
		}
		if err := l.insertTimer(ctx, t); err != nil {
			return fmt.Errorf("merge timer %s: %w", t.ID, err)
		}
		timersAdded = true
	}

	activityAdded := false
	for _, e := range entries {
		exists, err := l.rowExists(ctx, "activity_logs", e.ID)
		if err != nil {
			return err
		}
		if exists {
			continue
		}
		if err := l.insertActivity(ctx, e); err != nil {
			return fmt.Errorf("merge activity %s: %w", e.ID, err)
		}
		activityAdded = true
	}

	if timersAdded {
		l.notifyTimerWatchers(ctx, userID)
	}
	if activityAdded {
		l.notifyActivityWatchers(ctx, userID)
	}
	return nil
}

func (l *Local) rowExists(ctx context.Context, table, id string) (bool, error) {
	var one int
	err := l.db.QueryRowContext(ctx, `SELECT 1 FROM `+table+` WHERE id=?`, id).Scan(&one)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	return false, err
}

func (l *Local) enqueue(op sync.Operation) {
	l.mu.Lock()
	l.outbox = append(l.outbox, op)
	l.mu.Unlock()
}

// flushAsync ships pending operations without blocking the mutation that
// queued them. The mutation's result does not depend on the upload.
func (l *Local) flushAsync() {
	if l.syncer == nil {
		return
	}
	go func() {
		if err := l.SyncToServer(context.Background()); err != nil {
			l.log.Warn().Err(err).Msg("background sync failed")
		}
	}()
}

// PendingOperations reports the outbox size, for tests and diagnostics.
func (l *Local) PendingOperations() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.outbox)
}

func marshalRaw(v any) json.RawMessage {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	return raw
}

func fullTimerPayload(t timer.Timer) sync.TimerPayload {
	typ := string(t.TimerType)
	phase := string(t.PomodoroPhase)
	count := int64(t.PomodoroSessionCount)
	p := sync.TimerPayload{
		ID:                   &t.ID,
		Name:                 &t.Name,
		TimerType:            &typ,
		IsRunning:            &t.IsRunning,
		ElapsedTime:          &t.ElapsedTime,
		Duration:             &t.Duration,
		UserID:               &t.UserID,
		ShowTotal:            &t.ShowTotal,
		FirstStartTime:       &t.FirstStartTime,
		StartTime:            &t.StartTime,
		PomodoroPhase:        &phase,
		PomodoroSessionCount: &count,
		CreatedAt:            &t.CreatedAt,
		UpdatedAt:            &t.UpdatedAt,
	}
	if t.Laps != nil {
		p.Laps = marshalRaw(t.Laps)
	}
	if t.PomodoroSettings != nil {
		p.PomodoroSettings = marshalRaw(t.PomodoroSettings)
	}
	return p
}

// patchPayload carries only the fields the patch set, so the server-side
// PATCH leaves everything else untouched.
func patchPayload(patch TimerPatch) sync.TimerPayload {
	var p sync.TimerPayload
	if patch.Name != nil {
		p.Name = patch.Name
	}
	if patch.TimerType != nil {
		typ := string(*patch.TimerType)
		p.TimerType = &typ
	}
	if patch.IsRunning != nil {
		p.IsRunning = patch.IsRunning
	}
	if patch.ElapsedTime != nil {
		p.ElapsedTime = patch.ElapsedTime
	}
	if patch.Duration != nil {
		p.Duration = patch.Duration
	}
	if patch.Laps != nil {
		p.Laps = marshalRaw(*patch.Laps)
	}
	if patch.ShowTotal != nil {
		p.ShowTotal = patch.ShowTotal
	}
	if patch.FirstStartTime != nil {
		p.FirstStartTime = patch.FirstStartTime
	}
	if patch.StartTime != nil {
		p.StartTime = patch.StartTime
	}
	if patch.PomodoroSettings != nil {
		p.PomodoroSettings = marshalRaw(patch.PomodoroSettings)
	}
	if patch.PomodoroPhase != nil {
		phase := string(*patch.PomodoroPhase)
		p.PomodoroPhase = &phase
	}
	if patch.PomodoroSessionCount != nil {
		count := int64(*patch.PomodoroSessionCount)
		p.PomodoroSessionCount = &count
	}
	return p
}

func activityPayload(e timer.ActivityLogEntry) sync.ActivityPayload {
	event := string(e.EventType)
	p := sync.ActivityPayload{
		ID:              &e.ID,
		TimerID:         &e.TimerID,
		TimerName:       &e.TimerName,
		UserID:          &e.UserID,
		EventType:       &event,
		Timestamp:       &e.Timestamp,
		ElapsedAtEvent:  &e.ElapsedAtEvent,
		SessionDuration: e.SessionDuration,
		PreviousValue:   e.PreviousValue,
		NewValue:        e.NewValue,
	}
	if e.Metadata != nil {
		p.Metadata = marshalRaw(e.Metadata)
	}
	return p
}
