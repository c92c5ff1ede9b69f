package sync

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"timerhub/internal/db"
	"timerhub/internal/stream"
	"timerhub/internal/timer"

	json "github.com/goccy/go-json"
	"github.com/rs/zerolog"
)

var (
	errMissingID   = errors.New("operation missing id")
	errMissingData = errors.New("operation missing data")
	errImmutable   = errors.New("activity logs are immutable")
)

type Service struct {
	db  db.Querier
	hub *stream.Hub
	log zerolog.Logger
}

func NewService(db db.Querier, hub *stream.Hub, log zerolog.Logger) *Service {
	return &Service{db: db, hub: hub, log: log}
}

// ApplyBatch applies each operation independently: a malformed or failing
// operation is logged and skipped, never batch-fatal. After the batch it
// publishes one sync signal per distinct owning user and returns those users.
func (s *Service) ApplyBatch(ctx context.Context, ops []Operation) []string {
	affected := map[string]struct{}{}

	for _, op := range ops {
		userID, err := s.apply(ctx, op)
		if err != nil {
			s.log.Warn().Err(err).
				Str("op", string(op.Op)).
				Str("table", string(op.Table)).
				Str("id", op.ID).
				Msg("sync operation skipped")
			continue
		}
		if userID != "" {
			affected[userID] = struct{}{}
		}
	}

	users := make([]string, 0, len(affected))
	for userID := range affected {
		users = append(users, userID)
	}
	sort.Strings(users)

	if s.hub != nil {
		for _, userID := range users {
			s.hub.PublishSync(userID)
		}
	}
	return users
}

func (s *Service) apply(ctx context.Context, op Operation) (string, error) {
	if op.ID == "" {
		return "", errMissingID
	}
	if op.Op != OpDelete && len(op.Data) == 0 {
		return "", errMissingData
	}

	switch op.Table {
	case TableTimers:
		return s.applyTimer(ctx, op)
	case TableActivityLogs:
		return s.applyActivity(ctx, op)
	default:
		return "", fmt.Errorf("unknown table %q", op.Table)
	}
}

func (s *Service) applyTimer(ctx context.Context, op Operation) (string, error) {
	switch op.Op {
	case OpPut:
		var payload TimerPayload
		if err := json.Unmarshal(op.Data, &payload); err != nil {
			return "", fmt.Errorf("decode timer payload: %w", err)
		}
		if err := s.upsert(ctx, "timers", op.ID, payload.columns(), payload.UpdatedAt); err != nil {
			return "", err
		}
		if payload.UserID != nil {
			return *payload.UserID, nil
		}
		return s.timerOwner(ctx, op.ID)
	case OpPatch:
		var payload TimerPayload
		if err := json.Unmarshal(op.Data, &payload); err != nil {
			return "", fmt.Errorf("decode timer payload: %w", err)
		}
		owner, err := s.timerOwner(ctx, op.ID)
		if err != nil {
			return "", err
		}
		if err := s.patch(ctx, "timers", op.ID, payload.columns(), payload.UpdatedAt); err != nil {
			return "", err
		}
		return owner, nil
	case OpDelete:
		owner, _ := s.timerOwner(ctx, op.ID)
		if _, err := s.db.Exec(ctx, `DELETE FROM timers WHERE id=$1`, op.ID); err != nil {
			return "", err
		}
		// Deleting an already-absent row is a no-op and touches no user.
		return owner, nil
	default:
		return "", fmt.Errorf("unknown op %q", op.Op)
	}
}

func (s *Service) applyActivity(ctx context.Context, op Operation) (string, error) {
	switch op.Op {
	case OpPut:
		var payload ActivityPayload
		if err := json.Unmarshal(op.Data, &payload); err != nil {
			return "", fmt.Errorf("decode activity payload: %w", err)
		}
		if err := s.upsert(ctx, "activity_logs", op.ID, payload.columns(), nil); err != nil {
			return "", err
		}
		if payload.UserID != nil {
			return *payload.UserID, nil
		}
		return s.activityOwner(ctx, op.ID)
	case OpPatch:
		return "", errImmutable
	case OpDelete:
		owner, _ := s.activityOwner(ctx, op.ID)
		if _, err := s.db.Exec(ctx, `DELETE FROM activity_logs WHERE id=$1`, op.ID); err != nil {
			return "", err
		}
		return owner, nil
	default:
		return "", fmt.Errorf("unknown op %q", op.Op)
	}
}

// upsert inserts the row or, on conflict, replaces exactly the fields named
// in the payload. Replaying the same PUT twice yields the same end state.
func (s *Service) upsert(ctx context.Context, table, id string, cols []column, updatedAt *int64) error {
	if table == "timers" {
		ts := time.Now().UnixMilli()
		if updatedAt != nil {
			ts = *updatedAt
		}
		cols = append(cols, column{"updated_at", ts})
	}

	names := []string{"id"}
	args := []any{id}
	placeholders := []string{"$1"}
	var updates []string
	for i, col := range cols {
		names = append(names, col.name)
		args = append(args, col.value)
		placeholders = append(placeholders, fmt.Sprintf("$%d", i+2))
		updates = append(updates, fmt.Sprintf("%s=EXCLUDED.%s", col.name, col.name))
	}

	query := fmt.Sprintf(
		"INSERT INTO %s (%s) VALUES (%s) ON CONFLICT (id) DO UPDATE SET %s",
		table,
		strings.Join(names, ", "),
		strings.Join(placeholders, ", "),
		strings.Join(updates, ", "),
	)
	if len(updates) == 0 {
		query = fmt.Sprintf("INSERT INTO %s (id) VALUES ($1) ON CONFLICT (id) DO NOTHING", table)
	}

	_, err := s.db.Exec(ctx, query, args...)
	return err
}

// patch modifies only the listed fields and always refreshes updated_at.
func (s *Service) patch(ctx context.Context, table, id string, cols []column, updatedAt *int64) error {
	ts := time.Now().UnixMilli()
	if updatedAt != nil {
		ts = *updatedAt
	}
	cols = append(cols, column{"updated_at", ts})

	args := []any{id}
	var sets []string
	for i, col := range cols {
		args = append(args, col.value)
		sets = append(sets, fmt.Sprintf("%s=$%d", col.name, i+2))
	}

	query := fmt.Sprintf("UPDATE %s SET %s WHERE id=$1", table, strings.Join(sets, ", "))
	tag, err := s.db.Exec(ctx, query, args...)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("patch %s %s: row not found", table, id)
	}
	return nil
}

func (s *Service) timerOwner(ctx context.Context, id string) (string, error) {
	var userID string
	err := s.db.QueryRow(ctx, `SELECT user_id FROM timers WHERE id=$1`, id).Scan(&userID)
	if err != nil {
		return "", fmt.Errorf("resolve timer owner: %w", err)
	}
	return userID, nil
}

func (s *Service) activityOwner(ctx context.Context, id string) (string, error) {
	var userID string
	err := s.db.QueryRow(ctx, `SELECT user_id FROM activity_logs WHERE id=$1`, id).Scan(&userID)
	if err != nil {
		return "", fmt.Errorf("resolve activity owner: %w", err)
	}
	return userID, nil
}

// ListTimers returns every timer owned by the user, the pull half of a sync
// signal round trip.
func (s *Service) ListTimers(ctx context.Context, userID string) ([]timer.Timer, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, name, timer_type, is_running, elapsed_time, duration, laps,
		       user_id, show_total, first_start_time, start_time,
		       pomodoro_settings, pomodoro_phase, pomodoro_session_count,
		       created_at, updated_at
		FROM timers WHERE user_id=$1
		ORDER BY created_at
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var timers []timer.Timer
	for rows.Next() {
		var t timer.Timer
		var laps, settings []byte
		if err := rows.Scan(&t.ID, &t.Name, &t.TimerType, &t.IsRunning, &t.ElapsedTime,
			&t.Duration, &laps, &t.UserID, &t.ShowTotal, &t.FirstStartTime, &t.StartTime,
			&settings, &t.PomodoroPhase, &t.PomodoroSessionCount, &t.CreatedAt, &t.UpdatedAt); err != nil {
			return nil, err
		}
		if len(laps) > 0 {
			if err := json.Unmarshal(laps, &t.Laps); err != nil {
				return nil, fmt.Errorf("decode laps for %s: %w", t.ID, err)
			}
		}
		if len(settings) > 0 {
			if err := json.Unmarshal(settings, &t.PomodoroSettings); err != nil {
				return nil, fmt.Errorf("decode pomodoro settings for %s: %w", t.ID, err)
			}
		}
		timers = append(timers, t)
	}
	return timers, rows.Err()
}

// ListActivity returns every activity log entry owned by the user.
func (s *Service) ListActivity(ctx context.Context, userID string) ([]timer.ActivityLogEntry, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, timer_id, timer_name, user_id, event_type, timestamp,
		       elapsed_at_event, session_duration, previous_value, new_value, metadata
		FROM activity_logs WHERE user_id=$1
		ORDER BY timestamp DESC
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []timer.ActivityLogEntry
	for rows.Next() {
		var e timer.ActivityLogEntry
		var metadata []byte
		if err := rows.Scan(&e.ID, &e.TimerID, &e.TimerName, &e.UserID, &e.EventType,
			&e.Timestamp, &e.ElapsedAtEvent, &e.SessionDuration, &e.PreviousValue,
			&e.NewValue, &metadata); err != nil {
			return nil, err
		}
		if len(metadata) > 0 {
			if err := json.Unmarshal(metadata, &e.Metadata); err != nil {
				return nil, fmt.Errorf("decode metadata for %s: %w", e.ID, err)
			}
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
