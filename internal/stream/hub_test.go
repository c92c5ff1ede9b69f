package stream

import (
	"context"
	"testing"
	"time"

	"timerhub/internal/logging"

	"github.com/alicebob/miniredis/v2"
	json "github.com/goccy/go-json"
	"github.com/redis/go-redis/v9"
)

func TestPublishSyncDeliversLocally(t *testing.T) {
	hub := NewHub(nil, logging.New(nil, "error"))
	client := hub.Register("user-1")
	defer hub.Unregister(client)

	hub.PublishSync("user-1")

	select {
	case msg := <-client.Send:
		var event SyncEvent
		if err := json.Unmarshal(msg, &event); err != nil {
			t.Fatalf("unmarshal event: %v", err)
		}
		if event.Type != "sync" {
			t.Fatalf("unexpected event type %q", event.Type)
		}
		if event.Timestamp == 0 {
			t.Fatalf("expected timestamp")
		}
	case <-time.After(100 * time.Millisecond):
		t.Fatalf("timeout waiting for sync event")
	}
}

func TestPublishSyncOtherUserNotSignalled(t *testing.T) {
	hub := NewHub(nil, logging.New(nil, "error"))
	other := hub.Register("user-2")
	defer hub.Unregister(other)

	hub.PublishSync("user-1")

	select {
	case <-other.Send:
		t.Fatalf("unexpected delivery to other user")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestChannelHelpers(t *testing.T) {
	if Channel("abc") != "timer:abc" {
		t.Fatalf("unexpected channel name")
	}
	if userIDFromChannel("timer:abc") != "abc" {
		t.Fatalf("unexpected user id")
	}
}

func TestUnregisterCloses(t *testing.T) {
	hub := NewHub(nil, logging.New(nil, "error"))
	client := hub.Register("user-3")
	hub.Unregister(client)
	_, ok := <-client.Send
	if ok {
		t.Fatalf("expected channel closed")
	}
}

func TestHubRedisBridge(t *testing.T) {
	s := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: s.Addr()})
	defer rdb.Close()

	hub := NewHub(rdb, logging.New(nil, "error"))
	client := hub.Register("user-redis")
	defer hub.Unregister(client)

	// Give the pattern subscription a moment to attach, then publish as if
	// from another server instance.
	time.Sleep(20 * time.Millisecond)
	if err := rdb.Publish(context.Background(), Channel("user-redis"), `{"type":"sync","timestamp":1}`).Err(); err != nil {
		t.Fatalf("publish error: %v", err)
	}

	select {
	case msg := <-client.Send:
		var event SyncEvent
		if err := json.Unmarshal(msg, &event); err != nil {
			t.Fatalf("unmarshal: %v", err)
		}
		if event.Type != "sync" {
			t.Fatalf("unexpected event %q", event.Type)
		}
	case <-time.After(200 * time.Millisecond):
		t.Fatalf("timeout waiting for bridged event")
	}
}

func TestPublishSyncWithRedisDeliversOnce(t *testing.T) {
	s := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: s.Addr()})
	defer rdb.Close()

	hub := NewHub(rdb, logging.New(nil, "error"))
	client := hub.Register("user-once")
	defer hub.Unregister(client)

	// With Redis active the event must arrive exactly once, through the
	// pattern subscription, not once locally and once bridged.
	time.Sleep(20 * time.Millisecond)
	hub.PublishSync("user-once")

	select {
	case <-client.Send:
	case <-time.After(200 * time.Millisecond):
		t.Fatalf("timeout waiting for sync event")
	}

	select {
	case <-client.Send:
		t.Fatalf("sync event delivered twice")
	case <-time.After(100 * time.Millisecond):
	}
}

func TestPublishSyncRedisError(t *testing.T) {
	server := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: server.Addr()})
	server.Close()
	defer rdb.Close()

	hub := NewHub(rdb, logging.New(nil, "error"))
	client := hub.Register("user-bad")
	defer hub.Unregister(client)

	// Publish failure is logged and swallowed; local delivery still happens.
	hub.PublishSync("user-bad")

	select {
	case <-client.Send:
	case <-time.After(100 * time.Millisecond):
		t.Fatalf("expected local delivery despite redis error")
	}
}
