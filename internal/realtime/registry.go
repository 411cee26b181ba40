// Package realtime pushes activities to connected websocket clients.
//
// The Registry owns every live connection. Connections are added on
// handshake with Register and removed on disconnect with Deregister; only the
// notification path reads it.
package realtime

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/mmynk/splitledger/internal/models"
)

// sendBuffer is how many messages a slow client may lag behind before
// messages to it are dropped.
const sendBuffer = 32

// ActivityPayload is the wire form of an activity.
type ActivityPayload struct {
	ID          string    `json:"id"`
	UserID      string    `json:"user_id"`
	Action      string    `json:"action"`
	Description string    `json:"description"`
	Read        bool      `json:"read"`
	CreatedAt   time.Time `json:"created_at"`
}

// NewActivityPayload converts a stored activity.
func NewActivityPayload(a *models.Activity) *ActivityPayload {
	return &ActivityPayload{
		ID:          a.ID,
		UserID:      a.UserID,
		Action:      a.Action,
		Description: a.Description,
		Read:        a.Read,
		CreatedAt:   a.CreatedAt,
	}
}

// Message is sent from the server to a client.
type Message struct {
	Type     string           `json:"type"`
	Activity *ActivityPayload `json:"activity,omitempty"`
}

// Conn is one registered client connection.
type Conn struct {
	ID     string
	UserID string
	send   chan Message
}

// Messages returns the connection's outbound queue. It is closed on Deregister.
func (c *Conn) Messages() <-chan Message {
	return c.send
}

// Registry tracks live connections by user.
type Registry struct {
	logger *slog.Logger

	mu    sync.RWMutex
	conns map[string]map[string]*Conn // user id -> connection id -> conn
}

// NewRegistry creates an empty Registry.
func NewRegistry(logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		logger: logger,
		conns:  make(map[string]map[string]*Conn),
	}
}

// Register adds a connection for userID. A user may hold several.
func (r *Registry) Register(userID string) *Conn {
	c := &Conn{
		ID:     uuid.New().String(),
		UserID: userID,
		send:   make(chan Message, sendBuffer),
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.conns[userID] == nil {
		r.conns[userID] = make(map[string]*Conn)
	}
	r.conns[userID][c.ID] = c
	r.logger.Debug("Connection registered", "user_id", userID, "conn_id", c.ID)
	return c
}

// Deregister removes c and closes its queue. Calling it twice is harmless.
func (r *Registry) Deregister(c *Conn) {
	r.mu.Lock()
	defer r.mu.Unlock()
	userConns, ok := r.conns[c.UserID]
	if !ok {
		return
	}
	if _, ok := userConns[c.ID]; !ok {
		return
	}
	delete(userConns, c.ID)
	if len(userConns) == 0 {
		delete(r.conns, c.UserID)
	}
	close(c.send)
	r.logger.Debug("Connection deregistered", "user_id", c.UserID, "conn_id", c.ID)
}

// Send queues msg on every connection of userID and returns how many
// accepted it. Full queues are skipped.
func (r *Registry) Send(userID string, msg Message) int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	delivered := 0
	for _, c := range r.conns[userID] {
		select {
		case c.send <- msg:
			delivered++
		default:
			r.logger.Warn("Dropping message for slow connection", "user_id", userID, "conn_id", c.ID)
		}
	}
	return delivered
}

// Connected reports how many connections userID has.
func (r *Registry) Connected(userID string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.conns[userID])
}

// Publish delivers an activity to the local connections of its user.
func (r *Registry) Publish(_ context.Context, a *models.Activity) error {
	r.Deliver(NewActivityPayload(a))
	return nil
}

// Deliver sends an activity payload to its user's local connections.
func (r *Registry) Deliver(p *ActivityPayload) {
	r.Send(p.UserID, Message{Type: MessageActivity, Activity: p})
}
