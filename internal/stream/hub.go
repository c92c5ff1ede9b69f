package stream

import (
	"context"
	"strings"
	"sync"
	"time"

	json "github.com/goccy/go-json"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// SyncEvent is the content-free push sent on a user's topic: it tells every
// connected device "something changed, go re-fetch". The changed rows are
// never embedded; receivers pull fresh state instead.
type SyncEvent struct {
	Type      string `json:"type"`
	Timestamp int64  `json:"timestamp"`
}

// Hub fans a user's sync events out to that user's connected devices. With a
// Redis client it also bridges events across server instances over the
// timer:{userId} pub/sub channels.
type Hub struct {
	redis   *redis.Client
	log     zerolog.Logger
	clients map[string]map[*Client]struct{}
	mu      sync.RWMutex
}

type Client struct {
	UserID string
	Send   chan []byte
}

func NewHub(redisClient *redis.Client, log zerolog.Logger) *Hub {
	h := &Hub{
		redis:   redisClient,
		log:     log,
		clients: map[string]map[*Client]struct{}{},
	}

	if redisClient != nil {
		go h.subscribeRedis()
	}
	return h
}

func (h *Hub) Register(userID string) *Client {
	client := &Client{
		UserID: userID,
		Send:   make(chan []byte, 64),
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.clients[userID] == nil {
		h.clients[userID] = map[*Client]struct{}{}
	}
	h.clients[userID][client] = struct{}{}
	return client
}

func (h *Hub) Unregister(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if userClients, ok := h.clients[client.UserID]; ok {
		delete(userClients, client)
		if len(userClients) == 0 {
			delete(h.clients, client.UserID)
		}
	}
	close(client.Send)
}

// PublishSync signals every device of one user. With Redis configured the
// event travels once through pub/sub, which also feeds this instance's own
// clients via the pattern subscription; direct delivery happens only when
// there is no Redis or the publish fails, so no client sees the signal twice.
func (h *Hub) PublishSync(userID string) {
	payload, _ := json.Marshal(SyncEvent{Type: "sync", Timestamp: time.Now().UnixMilli()})

	if h.redis != nil {
		err := h.redis.Publish(context.Background(), Channel(userID), payload).Err()
		if err == nil {
			return
		}
		h.log.Warn().Err(err).Str("user_id", userID).Msg("redis publish failed")
	}
	h.deliver(userID, payload)
}

func (h *Hub) deliver(userID string, payload []byte) {
	h.mu.RLock()
	clients := h.clients[userID]
	h.mu.RUnlock()

	for client := range clients {
		select {
		case client.Send <- payload:
		default:
		}
	}
}

func (h *Hub) subscribeRedis() {
	ctx := context.Background()
	pubsub := h.redis.PSubscribe(ctx, "timer:*")
	defer pubsub.Close()

	for msg := range pubsub.Channel() {
		h.deliver(userIDFromChannel(msg.Channel), []byte(msg.Payload))
	}
}

// Channel is the Redis pub/sub channel for one user's topic.
func Channel(userID string) string {
	return "timer:" + userID
}

func userIDFromChannel(ch string) string {
	return strings.TrimPrefix(ch, "timer:")
}
