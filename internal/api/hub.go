package api

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/wonny/sas/internal/contracts"
	"github.com/wonny/sas/internal/notify"
	"github.com/wonny/sas/internal/progress"
	"github.com/wonny/sas/pkg/logger"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

const writeWait = 5 * time.Second

// Event types pushed over /ws/runs
const (
	EventRunCompleted = "run_completed"
	EventProgress     = "progress"
)

// Event is one websocket message
type Event struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

type client struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (c *client) write(ev Event) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return c.conn.WriteJSON(ev)
}

// Hub pushes run completions and progress to websocket clients
// ⭐ SSOT: 웹소켓 브로드캐스트는 여기서만
type Hub struct {
	mu      sync.RWMutex
	clients map[*client]struct{}
	logger  *logger.Logger
}

// NewHub creates an empty hub
func NewHub(log *logger.Logger) *Hub {
	return &Hub{
		clients: make(map[*client]struct{}),
		logger:  log.WithComponent("ws"),
	}
}

// ServeWS upgrades the connection and registers the client
// GET /ws/runs
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.WithError(err).Warn("WebSocket upgrade failed")
		return
	}

	c := &client{conn: conn}
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()

	h.logger.WithField("clients", h.Len()).Debug("WebSocket client connected")

	// 클라이언트 메시지는 읽고 버린다 (close 감지용)
	go func() {
		defer h.remove(c)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}

// Len returns the number of connected clients
func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Broadcast sends ev to every client, dropping clients that fail
func (h *Hub) Broadcast(ev Event) {
	h.mu.RLock()
	clients := make([]*client, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.RUnlock()

	for _, c := range clients {
		if err := c.write(ev); err != nil {
			h.logger.WithError(err).Debug("WebSocket write failed, dropping client")
			h.remove(c)
		}
	}
}

// RunCompleted implements contracts.Observer
func (h *Hub) RunCompleted(c contracts.Completion) {
	h.Broadcast(Event{Type: EventRunCompleted, Data: notify.NewPayload(c, time.Now())})
}

// StreamProgress broadcasts the tracker snapshot every interval while busy
// reports true, until ctx is done
func (h *Hub) StreamProgress(ctx context.Context, tracker *progress.Tracker, busy func() bool, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if !busy() || h.Len() == 0 {
				continue
			}
			h.Broadcast(Event{Type: EventProgress, Data: tracker.Snapshot()})
		}
	}
}

func (h *Hub) remove(c *client) {
	h.mu.Lock()
	_, ok := h.clients[c]
	delete(h.clients, c)
	h.mu.Unlock()

	if ok {
		_ = c.conn.Close()
	}
}

// Close disconnects every client
func (h *Hub) Close() {
	h.mu.Lock()
	clients := h.clients
	h.clients = make(map[*client]struct{})
	h.mu.Unlock()

	for c := range clients {
		_ = c.conn.Close()
	}
}
