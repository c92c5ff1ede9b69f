// Package client is the device side of the sync protocol: it ships CRUD
// batches to the server, pulls authoritative state, and holds the push
// subscription that triggers re-fetches.
package client

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"timerhub/internal/stream"
	"timerhub/internal/sync"
	"timerhub/internal/timer"

	json "github.com/goccy/go-json"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

type Client struct {
	baseURL string
	token   string
	http    *http.Client
	dialer  *websocket.Dialer
	log     zerolog.Logger
}

func New(baseURL, token string, log zerolog.Logger) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		http:    &http.Client{Timeout: 15 * time.Second},
		dialer:  websocket.DefaultDialer,
		log:     log,
	}
}

// Upload ships one CRUD batch. The server applies operations best-effort and
// acknowledges receipt; per-operation failures are not reported back.
func (c *Client) Upload(ctx context.Context, ops []sync.Operation) error {
	if len(ops) == 0 {
		return nil
	}
	body, err := json.Marshal(sync.UploadRequest{Operations: ops})
	if err != nil {
		return fmt.Errorf("encode batch: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/sync/upload", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	c.authorize(req)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("upload batch: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("upload batch: status %d", resp.StatusCode)
	}
	var ack sync.UploadResponse
	if err := json.NewDecoder(resp.Body).Decode(&ack); err != nil {
		return fmt.Errorf("decode upload response: %w", err)
	}
	if !ack.Success {
		return fmt.Errorf("upload batch: server rejected")
	}
	return nil
}

// FetchTimers pulls the user's full timer set from the authoritative store.
func (c *Client) FetchTimers(ctx context.Context) ([]timer.Timer, error) {
	var timers []timer.Timer
	if err := c.get(ctx, "/sync/timers", &timers); err != nil {
		return nil, err
	}
	return timers, nil
}

// FetchActivity pulls the user's full activity log.
func (c *Client) FetchActivity(ctx context.Context) ([]timer.ActivityLogEntry, error) {
	var entries []timer.ActivityLogEntry
	if err := c.get(ctx, "/sync/activity", &entries); err != nil {
		return nil, err
	}
	return entries, nil
}

func (c *Client) get(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return err
	}
	c.authorize(req)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("fetch %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("fetch %s: status %d", path, resp.StatusCode)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	return json.Unmarshal(body, out)
}

func (c *Client) authorize(req *http.Request) {
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
}

// Subscribe opens the push channel for one user and invokes onSync for every
// sync event until the returned stop func is called. Messages that are not
// sync events are ignored.
func (c *Client) Subscribe(userID string, onSync func()) (func(), error) {
	wsURL := httpToWS(c.baseURL) + "/stream/ws/" + userID
	header := http.Header{}
	if c.token != "" {
		header.Set("Authorization", "Bearer "+c.token)
	}
	conn, _, err := c.dialer.Dial(wsURL, header)
	if err != nil {
		return nil, fmt.Errorf("dial push channel: %w", err)
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			_, msg, err := conn.ReadMessage()
			if err != nil {
				return
			}
			var event stream.SyncEvent
			if err := json.Unmarshal(msg, &event); err != nil {
				c.log.Warn().Err(err).Msg("malformed push event")
				continue
			}
			if event.Type == "sync" {
				onSync()
			}
		}
	}()

	return func() {
		_ = conn.Close()
		<-done
	}, nil
}

func httpToWS(base string) string {
	switch {
	case strings.HasPrefix(base, "https://"):
		return "wss://" + strings.TrimPrefix(base, "https://")
	case strings.HasPrefix(base, "http://"):
		return "ws://" + strings.TrimPrefix(base, "http://")
	default:
		return base
	}
}
