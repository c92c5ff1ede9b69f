package client

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"timerhub/internal/logging"
	"timerhub/internal/sync"

	json "github.com/goccy/go-json"
	"github.com/gorilla/websocket"
)

func TestUploadPostsBatch(t *testing.T) {
	var received sync.UploadRequest
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/sync/upload" || r.Method != http.MethodPost {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		gotAuth = r.Header.Get("Authorization")
		_ = json.NewDecoder(r.Body).Decode(&received)
		_ = json.NewEncoder(w).Encode(sync.UploadResponse{Success: true})
	}))
	defer srv.Close()

	c := New(srv.URL, "tok", logging.New(nil, "error"))
	ops := []sync.Operation{{ID: "t1", Op: sync.OpPut, Table: sync.TableTimers, Data: []byte(`{"name":"x"}`)}}
	if err := c.Upload(context.Background(), ops); err != nil {
		t.Fatalf("upload: %v", err)
	}
	if len(received.Operations) != 1 || received.Operations[0].ID != "t1" {
		t.Fatalf("unexpected batch: %+v", received)
	}
	if gotAuth != "Bearer tok" {
		t.Fatalf("expected bearer token, got %q", gotAuth)
	}
}

func TestUploadEmptyBatchSkipsRequest(t *testing.T) {
	c := New("http://127.0.0.1:1", "", logging.New(nil, "error"))
	if err := c.Upload(context.Background(), nil); err != nil {
		t.Fatalf("empty batch must be a no-op, got %v", err)
	}
}

func TestUploadServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := New(srv.URL, "", logging.New(nil, "error"))
	err := c.Upload(context.Background(), []sync.Operation{{ID: "t1", Op: sync.OpDelete, Table: sync.TableTimers}})
	if err == nil {
		t.Fatalf("expected error")
	}
}

func TestFetchTimersAndActivity(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/sync/timers":
			_, _ = w.Write([]byte(`[{"id":"t1","name":"Focus","user_id":"u1","timer_type":"stopwatch"}]`))
		case "/sync/activity":
			_, _ = w.Write([]byte(`[{"id":"a1","timer_id":"t1","user_id":"u1","event_type":"start"}]`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	c := New(srv.URL, "", logging.New(nil, "error"))

	timers, err := c.FetchTimers(context.Background())
	if err != nil || len(timers) != 1 || timers[0].ID != "t1" {
		t.Fatalf("fetch timers: %v %+v", err, timers)
	}

	entries, err := c.FetchActivity(context.Background())
	if err != nil || len(entries) != 1 || entries[0].EventType != "start" {
		t.Fatalf("fetch activity: %v %+v", err, entries)
	}
}

func TestSubscribeInvokesOnSync(t *testing.T) {
	upgrader := websocket.Upgrader{}
	authCh := make(chan string, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasPrefix(r.URL.Path, "/stream/ws/") {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		authCh <- r.Header.Get("Authorization")
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"other"}`))
		_ = conn.WriteMessage(websocket.TextMessage, []byte(`not-json`))
		_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"sync","timestamp":123}`))
		time.Sleep(200 * time.Millisecond)
	}))
	defer srv.Close()

	c := New(srv.URL, "tok", logging.New(nil, "error"))

	synced := make(chan struct{}, 1)
	stop, err := c.Subscribe("u1", func() {
		select {
		case synced <- struct{}{}:
		default:
		}
	})
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	defer stop()

	select {
	case <-synced:
	case <-time.After(time.Second):
		t.Fatalf("timeout waiting for sync callback")
	}

	if auth := <-authCh; auth != "Bearer tok" {
		t.Fatalf("expected bearer token on subscribe, got %q", auth)
	}
}

func TestSubscribeStopClosesConnection(t *testing.T) {
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
	defer srv.Close()

	c := New(srv.URL, "", logging.New(nil, "error"))
	stop, err := c.Subscribe("u1", func() {})
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	stop() // must return promptly once the read loop exits
}

func TestSubscribeDialError(t *testing.T) {
	c := New("http://127.0.0.1:1", "", logging.New(nil, "error"))
	if _, err := c.Subscribe("u1", func() {}); err == nil {
		t.Fatalf("expected dial error")
	}
}

func TestHTTPToWS(t *testing.T) {
	if httpToWS("http://a") != "ws://a" {
		t.Fatalf("http conversion")
	}
	if httpToWS("https://a") != "wss://a" {
		t.Fatalf("https conversion")
	}
	if httpToWS("ws://a") != "ws://a" {
		t.Fatalf("passthrough")
	}
}
