package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	gosync "sync"
	"time"

	"timerhub/internal/broadcast"
	"timerhub/internal/sync"
	"timerhub/internal/timer"

	json "github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Local is the on-device adapter: every mutation lands in SQLite first, then
// fans out to watchers, sibling tabs, and (fire-and-forget) the sync server.
// One Local instance exclusively owns its database handle.
type Local struct {
	db       *sql.DB
	hub      *broadcast.Hub
	syncer   Syncer
	log      zerolog.Logger
	sourceID string
	now      func() time.Time

	// flushMu serializes upload cycles; see SyncToServer.
	flushMu gosync.Mutex

	mu               gosync.Mutex
	outbox           []sync.Operation
	userID           string
	stopPush         func()
	timerWatchers    map[int]timerWatcher
	activityWatchers map[int]activityWatcher
	nextWatcher      int
}

var _ Store = (*Local)(nil)

type timerWatcher struct {
	userID string
	fn     func([]timer.Timer)
}

type activityWatcher struct {
	userID string
	fn     func([]timer.ActivityLogEntry)
}

// NewLocal builds an adapter over an open SQLite mirror. hub and syncer may
// be nil: a hub-less adapter skips cross-tab messages, a syncer-less adapter
// runs purely local.
func NewLocal(db *sql.DB, hub *broadcast.Hub, syncer Syncer, log zerolog.Logger) *Local {
	return &Local{
		db:               db,
		hub:              hub,
		syncer:           syncer,
		log:              log,
		sourceID:         uuid.NewString(),
		now:              time.Now,
		timerWatchers:    map[int]timerWatcher{},
		activityWatchers: map[int]activityWatcher{},
	}
}

// SourceID identifies this adapter instance on the broadcast channel.
func (l *Local) SourceID() string { return l.sourceID }

const timerColumns = `id, name, timer_type, is_running, elapsed_time, duration, laps,
	user_id, show_total, first_start_time, start_time,
	pomodoro_settings, pomodoro_phase, pomodoro_session_count, created_at, updated_at`

func (l *Local) GetTimers(ctx context.Context, userID string) ([]timer.Timer, error) {
	rows, err := l.db.QueryContext(ctx,
		`SELECT `+timerColumns+` FROM timers WHERE user_id=? ORDER BY created_at`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var timers []timer.Timer
	for rows.Next() {
		t, err := scanTimer(rows)
		if err != nil {
			return nil, err
		}
		timers = append(timers, t)
	}
	return timers, rows.Err()
}

func (l *Local) GetTimer(ctx context.Context, id string) (timer.Timer, error) {
	row := l.db.QueryRowContext(ctx,
		`SELECT `+timerColumns+` FROM timers WHERE id=?`, id)
	t, err := scanTimer(row)
	if errors.Is(err, sql.ErrNoRows) {
		return timer.Timer{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return t, err
}

func (l *Local) CreateTimer(ctx context.Context, input TimerInput, userID string) (timer.Timer, error) {
	ms := l.now().UnixMilli()
	t := timer.Timer{
		ID:               uuid.NewString(),
		Name:             input.Name,
		TimerType:        input.TimerType,
		Duration:         input.Duration,
		UserID:           userID,
		ShowTotal:        input.ShowTotal,
		PomodoroSettings: input.PomodoroSettings,
		CreatedAt:        ms,
		UpdatedAt:        ms,
	}
	if t.TimerType == "" {
		t.TimerType = timer.TypeStopwatch
	}
	if t.TimerType == timer.TypePomodoro {
		if t.PomodoroSettings == nil {
			t.PomodoroSettings = timer.DefaultPomodoroSettings()
		}
		t.PomodoroPhase = timer.PhaseWork
		if t.Duration == 0 {
			t.Duration = t.PomodoroSettings.WorkDuration
		}
	}

	if err := l.insertTimer(ctx, t); err != nil {
		return timer.Timer{}, err
	}

	l.enqueue(sync.Operation{ID: t.ID, Op: sync.OpPut, Table: sync.TableTimers, Data: marshalRaw(fullTimerPayload(t))})
	l.afterTimerMutation(ctx, t.UserID, broadcast.TimerCreated, t.ID)
	return t, nil
}

func (l *Local) UpdateTimer(ctx context.Context, id string, patch TimerPatch) (timer.Timer, error) {
	t, err := l.GetTimer(ctx, id)
	if err != nil {
		return timer.Timer{}, err
	}

	applyPatch(&t, patch)
	t.UpdatedAt = l.now().UnixMilli()

	laps, settings := encodeTimerJSON(t)
	_, err = l.db.ExecContext(ctx, `
		UPDATE timers SET name=?, timer_type=?, is_running=?, elapsed_time=?, duration=?,
			laps=?, show_total=?, first_start_time=?, start_time=?,
			pomodoro_settings=?, pomodoro_phase=?, pomodoro_session_count=?, updated_at=?
		WHERE id=?
	`, t.Name, t.TimerType, t.IsRunning, t.ElapsedTime, t.Duration,
		laps, t.ShowTotal, t.FirstStartTime, t.StartTime,
		settings, t.PomodoroPhase, t.PomodoroSessionCount, t.UpdatedAt, t.ID)
	if err != nil {
		return timer.Timer{}, err
	}

	payload := patchPayload(patch)
	payload.UpdatedAt = &t.UpdatedAt
	l.enqueue(sync.Operation{ID: t.ID, Op: sync.OpPatch, Table: sync.TableTimers, Data: marshalRaw(payload)})
	l.afterTimerMutation(ctx, t.UserID, broadcast.TimerUpdated, t.ID)
	return t, nil
}

func (l *Local) DeleteTimer(ctx context.Context, id string) error {
	t, err := l.GetTimer(ctx, id)
	if errors.Is(err, ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}

	if _, err := l.db.ExecContext(ctx, `DELETE FROM timers WHERE id=?`, id); err != nil {
		return err
	}

	l.enqueue(sync.Operation{ID: id, Op: sync.OpDelete, Table: sync.TableTimers})
	l.afterTimerMutation(ctx, t.UserID, broadcast.TimerDeleted, id)
	return nil
}

func (l *Local) LogActivity(ctx context.Context, entry timer.ActivityLogEntry) error {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.Timestamp == 0 {
		entry.Timestamp = l.now().UnixMilli()
	}

	if err := l.insertActivity(ctx, entry); err != nil {
		return err
	}

	l.enqueue(sync.Operation{ID: entry.ID, Op: sync.OpPut, Table: sync.TableActivityLogs, Data: marshalRaw(activityPayload(entry))})
	l.afterActivityMutation(ctx, entry.UserID)
	return nil
}

func (l *Local) GetActivityLog(ctx context.Context, userID string, filter ActivityFilter) ([]timer.ActivityLogEntry, error) {
	query := `SELECT id, timer_id, timer_name, user_id, event_type, timestamp,
		elapsed_at_event, session_duration, previous_value, new_value, metadata
		FROM activity_logs WHERE user_id=?`
	args := []any{userID}

	if filter.TimerID != "" {
		query += ` AND timer_id=?`
		args = append(args, filter.TimerID)
	}
	if filter.EventType != "" {
		query += ` AND event_type=?`
		args = append(args, filter.EventType)
	}
	if filter.Since > 0 {
		query += ` AND timestamp>=?`
		args = append(args, filter.Since)
	}
	if filter.Until > 0 {
		query += ` AND timestamp<=?`
		args = append(args, filter.Until)
	}
	query += ` ORDER BY timestamp DESC`
	if filter.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, filter.Limit)
	}

	rows, err := l.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []timer.ActivityLogEntry
	for rows.Next() {
		e, err := scanActivity(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func (l *Local) ClearActivityLog(ctx context.Context, userID string) error {
	rows, err := l.db.QueryContext(ctx, `SELECT id FROM activity_logs WHERE user_id=?`, userID)
	if err != nil {
		return err
	}
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return err
		}
		ids = append(ids, id)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}

	if _, err := l.db.ExecContext(ctx, `DELETE FROM activity_logs WHERE user_id=?`, userID); err != nil {
		return err
	}

	for _, id := range ids {
		l.enqueue(sync.Operation{ID: id, Op: sync.OpDelete, Table: sync.TableActivityLogs})
	}
	l.afterActivityMutation(ctx, userID)
	return nil
}

// WatchTimers registers fn for the user's full timer set. It fires once with
// the current snapshot, then on every relevant mutation. The returned func
// cancels the subscription; no callback runs after it returns.
func (l *Local) WatchTimers(userID string, fn func([]timer.Timer)) (func(), error) {
	timers, err := l.GetTimers(context.Background(), userID)
	if err != nil {
		return nil, err
	}

	l.mu.Lock()
	id := l.nextWatcher
	l.nextWatcher++
	l.timerWatchers[id] = timerWatcher{userID: userID, fn: fn}
	l.mu.Unlock()

	fn(timers)
	return func() {
		l.mu.Lock()
		delete(l.timerWatchers, id)
		l.mu.Unlock()
	}, nil
}

func (l *Local) WatchActivityLog(userID string, fn func([]timer.ActivityLogEntry)) (func(), error) {
	entries, err := l.GetActivityLog(context.Background(), userID, ActivityFilter{})
	if err != nil {
		return nil, err
	}

	l.mu.Lock()
	id := l.nextWatcher
	l.nextWatcher++
	l.activityWatchers[id] = activityWatcher{userID: userID, fn: fn}
	l.mu.Unlock()

	fn(entries)
	return func() {
		l.mu.Lock()
		delete(l.activityWatchers, id)
		l.mu.Unlock()
	}, nil
}

// afterTimerMutation re-evaluates watchers, tells sibling tabs, and kicks an
// asynchronous upload. The caller's mutation has already committed locally;
// nothing here can fail it.
func (l *Local) afterTimerMutation(ctx context.Context, userID string, msg broadcast.MessageType, timerID string) {
	l.notifyTimerWatchers(ctx, userID)
	if l.hub != nil {
		l.hub.Publish(broadcast.Message{Type: msg, SourceID: l.sourceID, TimerID: timerID, UserID: userID})
	}
	l.flushAsync()
}

func (l *Local) afterActivityMutation(ctx context.Context, userID string) {
	l.notifyActivityWatchers(ctx, userID)
	if l.hub != nil {
		l.hub.Publish(broadcast.Message{Type: broadcast.ActivityLogged, SourceID: l.sourceID, UserID: userID})
	}
	l.flushAsync()
}

func (l *Local) notifyTimerWatchers(ctx context.Context, userID string) {
	l.mu.Lock()
	var fns []func([]timer.Timer)
	for _, w := range l.timerWatchers {
		if w.userID == userID {
			fns = append(fns, w.fn)
		}
	}
	l.mu.Unlock()
	if len(fns) == 0 {
		return
	}

	timers, err := l.GetTimers(ctx, userID)
	if err != nil {
		l.log.Warn().Err(err).Str("user_id", userID).Msg("watcher refresh failed")
		return
	}
	for _, fn := range fns {
		fn(timers)
	}
}

func (l *Local) notifyActivityWatchers(ctx context.Context, userID string) {
	l.mu.Lock()
	var fns []func([]timer.ActivityLogEntry)
	for _, w := range l.activityWatchers {
		if w.userID == userID {
			fns = append(fns, w.fn)
		}
	}
	l.mu.Unlock()
	if len(fns) == 0 {
		return
	}

	entries, err := l.GetActivityLog(ctx, userID, ActivityFilter{})
	if err != nil {
		l.log.Warn().Err(err).Str("user_id", userID).Msg("watcher refresh failed")
		return
	}
	for _, fn := range fns {
		fn(entries)
	}
}

func (l *Local) insertTimer(ctx context.Context, t timer.Timer) error {
	laps, settings := encodeTimerJSON(t)
	_, err := l.db.ExecContext(ctx, `
		INSERT INTO timers (`+timerColumns+`)
		VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)
	`, t.ID, t.Name, t.TimerType, t.IsRunning, t.ElapsedTime, t.Duration, laps,
		t.UserID, t.ShowTotal, t.FirstStartTime, t.StartTime,
		settings, t.PomodoroPhase, t.PomodoroSessionCount, t.CreatedAt, t.UpdatedAt)
	return err
}

func (l *Local) insertActivity(ctx context.Context, e timer.ActivityLogEntry) error {
	var metadata any
	if e.Metadata != nil {
		encoded, err := json.Marshal(e.Metadata)
		if err != nil {
			return fmt.Errorf("encode metadata: %w", err)
		}
		metadata = string(encoded)
	}
	_, err := l.db.ExecContext(ctx, `
		INSERT INTO activity_logs (id, timer_id, timer_name, user_id, event_type, timestamp,
			elapsed_at_event, session_duration, previous_value, new_value, metadata)
		VALUES (?,?,?,?,?,?,?,?,?,?,?)
	`, e.ID, e.TimerID, e.TimerName, e.UserID, e.EventType, e.Timestamp,
		e.ElapsedAtEvent, e.SessionDuration, e.PreviousValue, e.NewValue, metadata)
	return err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTimer(row rowScanner) (timer.Timer, error) {
	var t timer.Timer
	var laps string
	var settings sql.NullString
	if err := row.Scan(&t.ID, &t.Name, &t.TimerType, &t.IsRunning, &t.ElapsedTime,
		&t.Duration, &laps, &t.UserID, &t.ShowTotal, &t.FirstStartTime, &t.StartTime,
		&settings, &t.PomodoroPhase, &t.PomodoroSessionCount, &t.CreatedAt, &t.UpdatedAt); err != nil {
		return timer.Timer{}, err
	}
	if laps != "" && laps != "[]" {
		if err := json.Unmarshal([]byte(laps), &t.Laps); err != nil {
			return timer.Timer{}, fmt.Errorf("decode laps for %s: %w", t.ID, err)
		}
	}
	if settings.Valid && settings.String != "" {
		if err := json.Unmarshal([]byte(settings.String), &t.PomodoroSettings); err != nil {
			return timer.Timer{}, fmt.Errorf("decode pomodoro settings for %s: %w", t.ID, err)
		}
	}
	return t, nil
}

func scanActivity(row rowScanner) (timer.ActivityLogEntry, error) {
	var e timer.ActivityLogEntry
	var metadata sql.NullString
	if err := row.Scan(&e.ID, &e.TimerID, &e.TimerName, &e.UserID, &e.EventType,
		&e.Timestamp, &e.ElapsedAtEvent, &e.SessionDuration, &e.PreviousValue,
		&e.NewValue, &metadata); err != nil {
		return timer.ActivityLogEntry{}, err
	}
	if metadata.Valid && metadata.String != "" {
		if err := json.Unmarshal([]byte(metadata.String), &e.Metadata); err != nil {
			return timer.ActivityLogEntry{}, fmt.Errorf("decode metadata for %s: %w", e.ID, err)
		}
	}
	return e, nil
}

func encodeTimerJSON(t timer.Timer) (laps string, settings any) {
	encoded, err := json.Marshal(t.Laps)
	if err != nil || t.Laps == nil {
		encoded = []byte("[]")
	}
	laps = string(encoded)

	if t.PomodoroSettings != nil {
		if raw, err := json.Marshal(t.PomodoroSettings); err == nil {
			settings = string(raw)
		}
	}
	return laps, settings
}

func applyPatch(t *timer.Timer, patch TimerPatch) {
	if patch.Name != nil {
		t.Name = *patch.Name
	}
	if patch.TimerType != nil {
		t.TimerType = *patch.TimerType
	}
	if patch.IsRunning != nil {
		t.IsRunning = *patch.IsRunning
	}
	if patch.ElapsedTime != nil {
		t.ElapsedTime = *patch.ElapsedTime
	}
	if patch.Duration != nil {
		t.Duration = *patch.Duration
	}
	if patch.Laps != nil {
		t.Laps = *patch.Laps
	}
	if patch.ShowTotal != nil {
		t.ShowTotal = *patch.ShowTotal
	}
	if patch.FirstStartTime != nil {
		t.FirstStartTime = *patch.FirstStartTime
	}
	if patch.StartTime != nil {
		t.StartTime = *patch.StartTime
	}
	if patch.PomodoroSettings != nil {
		t.PomodoroSettings = patch.PomodoroSettings
	}
	if patch.PomodoroPhase != nil {
		t.PomodoroPhase = *patch.PomodoroPhase
	}
	if patch.PomodoroSessionCount != nil {
		t.PomodoroSessionCount = *patch.PomodoroSessionCount
	}
}
