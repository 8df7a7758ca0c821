// Package realtime keeps the directory of connected users and streams events
// to them over server-sent events. The directory lives in process memory and
// is rebuilt from scratch on restart.
package realtime

import (
	"io"
	"log/slog"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"estate-marketplace-backend/internal/auth"
)

// Presence events.
const (
	EventOnlineUsers = "onlineUsers"
	EventUserOnline  = "userOnline"
	EventUserOffline = "userOffline"
	EventHeartbeat   = "heartbeat"
)

const clientBuffer = 16

type message struct {
	name string
	data any
}

// Client is one live connection.
type Client struct {
	userID uuid.UUID
	events chan message
	done   chan struct{}
	once   sync.Once
}

func (c *Client) close() {
	c.once.Do(func() { close(c.done) })
}

// Hub maps each online user to their latest connection.
type Hub struct {
	mu        sync.RWMutex
	clients   map[uuid.UUID]*Client
	heartbeat time.Duration
}

// NewHub creates an empty hub.
func NewHub(heartbeat time.Duration) *Hub {
	if heartbeat <= 0 {
		heartbeat = 30 * time.Second
	}
	return &Hub{clients: make(map[uuid.UUID]*Client), heartbeat: heartbeat}
}

// Register makes c the connection of userID. An earlier connection of the
// same user is closed.
func (h *Hub) Register(userID uuid.UUID) *Client {
	c := &Client{userID: userID, events: make(chan message, clientBuffer), done: make(chan struct{})}

	h.mu.Lock()
	prev, existed := h.clients[userID]
	h.clients[userID] = c
	h.mu.Unlock()

	if existed {
		prev.close()
	} else {
		h.broadcast(userID, EventUserOnline, userID)
	}
	return c
}

// Unregister removes c if it is still the user's current connection.
func (h *Hub) Unregister(c *Client) {
	c.close()

	h.mu.Lock()
	current, ok := h.clients[c.userID]
	removed := ok && current == c
	if removed {
		delete(h.clients, c.userID)
	}
	h.mu.Unlock()

	if removed {
		h.broadcast(c.userID, EventUserOffline, c.userID)
	}
}

// Send queues an event for userID and reports whether the user is online.
// A slow client loses the event rather than blocking the sender.
func (h *Hub) Send(userID uuid.UUID, name string, data any) bool {
	h.mu.RLock()
	c, ok := h.clients[userID]
	h.mu.RUnlock()
	if !ok {
		return false
	}
	select {
	case c.events <- message{name: name, data: data}:
	default:
		slog.Warn("realtime client buffer full; dropping event", "user", userID, "event", name)
	}
	return true
}

// IsOnline reports whether userID has a live connection.
func (h *Hub) IsOnline(userID uuid.UUID) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	_, ok := h.clients[userID]
	return ok
}

// Online lists the connected user ids in a stable order.
func (h *Hub) Online() []uuid.UUID {
	h.mu.RLock()
	ids := make([]uuid.UUID, 0, len(h.clients))
	for id := range h.clients {
		ids = append(ids, id)
	}
	h.mu.RUnlock()
	sort.Slice(ids, func(i, j int) bool { return ids[i].String() < ids[j].String() })
	return ids
}

// Close ends every open stream. The directory empties as streams return.
func (h *Hub) Close() {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, c := range h.clients {
		c.close()
	}
}

func (h *Hub) broadcast(except uuid.UUID, name string, data any) {
	h.mu.RLock()
	targets := make([]*Client, 0, len(h.clients))
	for id, c := range h.clients {
		if id != except {
			targets = append(targets, c)
		}
	}
	h.mu.RUnlock()

	for _, c := range targets {
		select {
		case c.events <- message{name: name, data: data}:
		default:
		}
	}
}

// Stream serves the caller's event stream until the client disconnects or
// a newer connection of the same user replaces it.
func (h *Hub) Stream(c *gin.Context) {
	userID := auth.UserID(c)
	if userID == uuid.Nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "not authenticated"})
		return
	}

	client := h.Register(userID)
	defer h.Unregister(client)

	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")
	c.SSEvent(EventOnlineUsers, h.Online())
	c.Writer.Flush()

	ticker := time.NewTicker(h.heartbeat)
	defer ticker.Stop()

	ctx := c.Request.Context()
	c.Stream(func(io.Writer) bool {
		select {
		case <-ctx.Done():
			return false
		case <-client.done:
			return false
		case m := <-client.events:
			c.SSEvent(m.name, m.data)
			return true
		case t := <-ticker.C:
			c.SSEvent(EventHeartbeat, t.Unix())
			return true
		}
	})
}

// OnlineUsers lists connected user ids.
func (h *Hub) OnlineUsers(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"online": h.Online()})
}
