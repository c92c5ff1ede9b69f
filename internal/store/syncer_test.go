package store

import (
	"context"
	"testing"
	"time"

	"timerhub/internal/timer"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSyncFromServerMergesOnlyNewRows(t *testing.T) {
	fake := &fakeSyncer{}
	local := newTestLocal(t, nil, fake)
	ctx := context.Background()

	existing, err := local.CreateTimer(ctx, TimerInput{Name: "Local name"}, "user-1")
	require.NoError(t, err)

	remote := existing
	remote.Name = "Remote name"
	fake.timers = []timer.Timer{
		remote,
		{ID: "remote-1", Name: "New remote", TimerType: timer.TypeStopwatch, UserID: "user-1", CreatedAt: 1, UpdatedAt: 1},
	}
	fake.activity = []timer.ActivityLogEntry{
		{ID: "log-1", TimerID: "remote-1", UserID: "user-1", EventType: timer.EventStart, Timestamp: 2},
	}

	require.NoError(t, local.SyncFromServer(ctx, "user-1"))

	// The existing row keeps its local value; only absent rows are inserted.
	got, err := local.GetTimer(ctx, existing.ID)
	require.NoError(t, err)
	assert.Equal(t, "Local name", got.Name)

	merged, err := local.GetTimer(ctx, "remote-1")
	require.NoError(t, err)
	assert.Equal(t, "New remote", merged.Name)

	entries, err := local.GetActivityLog(ctx, "user-1", ActivityFilter{})
	require.NoError(t, err)
	hasRemote := false
	for _, e := range entries {
		if e.ID == "log-1" {
			hasRemote = true
		}
	}
	assert.True(t, hasRemote, "remote activity entry merged")
}

func TestSyncFromServerIdempotent(t *testing.T) {
	fake := &fakeSyncer{
		timers: []timer.Timer{{ID: "r1", Name: "R", UserID: "user-1", TimerType: timer.TypeStopwatch}},
	}
	local := newTestLocal(t, nil, fake)
	ctx := context.Background()

	require.NoError(t, local.SyncFromServer(ctx, "user-1"))
	require.NoError(t, local.SyncFromServer(ctx, "user-1"))

	timers, err := local.GetTimers(ctx, "user-1")
	require.NoError(t, err)
	assert.Len(t, timers, 1)
}

func TestSyncFromServerNotifiesWatchers(t *testing.T) {
	fake := &fakeSyncer{
		timers: []timer.Timer{{ID: "r1", Name: "R", UserID: "user-1", TimerType: timer.TypeStopwatch}},
	}
	local := newTestLocal(t, nil, fake)

	var sets [][]timer.Timer
	unsub, err := local.WatchTimers("user-1", func(ts []timer.Timer) { sets = append(sets, ts) })
	require.NoError(t, err)
	defer unsub()

	require.NoError(t, local.SyncFromServer(context.Background(), "user-1"))
	require.Len(t, sets, 2)
	assert.Len(t, sets[1], 1)
}

func TestSetUserIDOpensPushSubscription(t *testing.T) {
	fake := &fakeSyncer{
		timers: []timer.Timer{{ID: "r1", Name: "R", UserID: "user-1", TimerType: timer.TypeStopwatch}},
	}
	local := newTestLocal(t, nil, fake)
	ctx := context.Background()

	require.NoError(t, local.SetUserID(ctx, "user-1"))
	require.NotNil(t, fake.onSync)

	// A sync signal triggers the pull-based refresh.
	fake.onSync()
	require.Eventually(t, func() bool {
		timers, err := local.GetTimers(ctx, "user-1")
		return err == nil && len(timers) == 1
	}, time.Second, 5*time.Millisecond)

	local.ClearSync()
	fake.mu.Lock()
	stopped := fake.stopped
	fake.mu.Unlock()
	assert.True(t, stopped, "clearing sync releases the subscription")
}

func TestSetUserIDSubscribeFailureDegrades(t *testing.T) {
	fake := &fakeSyncer{subErr: assert.AnError}
	local := newTestLocal(t, nil, fake)

	// A failed subscription must not fail the bind; the adapter stays
	// locally correct.
	require.NoError(t, local.SetUserID(context.Background(), "user-1"))

	_, err := local.CreateTimer(context.Background(), TimerInput{Name: "A"}, "user-1")
	assert.NoError(t, err)
}

func TestSyncFromServerWithoutSyncer(t *testing.T) {
	local := newTestLocal(t, nil, nil)
	assert.NoError(t, local.SyncFromServer(context.Background(), "user-1"))
	assert.NoError(t, local.SyncToServer(context.Background()))
}

func TestSyncFromServerFetchError(t *testing.T) {
	fake := &fakeSyncer{fetchErr: assert.AnError}
	local := newTestLocal(t, nil, fake)
	assert.Error(t, local.SyncFromServer(context.Background(), "user-1"))
}
