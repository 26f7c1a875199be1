package notify

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	intakeerrors "thoreinstein.com/intake/pkg/errors"
)

const (
	hubWriteWait  = 10 * time.Second
	hubPongWait   = 60 * time.Second
	hubPingEvery  = (hubPongWait * 9) / 10
	hubSendBuffer = 32
)

// Hub broadcasts notifications to display clients connected over websocket.
// A client may subscribe to one session with ?session=<id>; without it the
// client receives every notification.
type Hub struct {
	mu       sync.Mutex
	clients  map[*hubClient]struct{}
	closed   bool
	upgrader websocket.Upgrader
	logger   *slog.Logger
}

type hubClient struct {
	session string
	send    chan Notification
	done    chan struct{}
	once    sync.Once
}

func (c *hubClient) close() {
	c.once.Do(func() { close(c.done) })
}

// NewHub creates a Hub with no clients.
func NewHub(logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		clients: make(map[*hubClient]struct{}),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(_ *http.Request) bool {
				return true
			},
		},
		logger: logger,
	}
}

// Clients returns the number of connected display clients.
func (h *Hub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Notify queues n for every subscribed client. A client whose queue is full
// misses the notification; the others still receive it.
func (h *Hub) Notify(_ context.Context, n Notification) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	dropped := 0
	for c := range h.clients {
		if c.session != "" && c.session != n.SessionID {
			continue
		}
		select {
		case c.send <- n:
		default:
			dropped++
		}
	}

	if dropped > 0 {
		return intakeerrors.NewNotifyError("websocket", "display client too slow, notification dropped", nil)
	}
	return nil
}

// ServeHTTP upgrades the request to a websocket and streams notifications
// until the client disconnects or the hub is closed.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Debug("websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	client := &hubClient{
		session: strings.TrimSpace(r.URL.Query().Get("session")),
		send:    make(chan Notification, hubSendBuffer),
		done:    make(chan struct{}),
	}
	if !h.register(client) {
		_ = conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"))
		return
	}
	defer h.unregister(client)

	h.logger.Debug("display client connected", "remote", r.RemoteAddr, "session", client.session)

	if err := conn.SetReadDeadline(time.Now().Add(hubPongWait)); err != nil {
		return
	}
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(hubPongWait))
	})

	// Reads only detect disconnects; display clients send nothing.
	go func() {
		defer client.close()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(hubPingEvery)
	defer ticker.Stop()

	for {
		select {
		case <-client.done:
			return
		case n := <-client.send:
			if err := conn.SetWriteDeadline(time.Now().Add(hubWriteWait)); err != nil {
				return
			}
			if err := conn.WriteJSON(n); err != nil {
				h.logger.Debug("display client write failed", "error", err)
				return
			}
		case <-ticker.C:
			if err := conn.SetWriteDeadline(time.Now().Add(hubWriteWait)); err != nil {
				return
			}
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// Close disconnects every client. Later connections are refused.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.closed = true
	for c := range h.clients {
		c.close()
		delete(h.clients, c)
	}
}

func (h *Hub) register(c *hubClient) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return false
	}
	h.clients[c] = struct{}{}
	return true
}

func (h *Hub) unregister(c *hubClient) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.clients, c)
	c.close()
}
