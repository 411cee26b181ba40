package realtime

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/mmynk/splitledger/internal/auth"
	"github.com/mmynk/splitledger/internal/models"
)

// Message types.
const (
	MessageActivity = "activity"
	MessageMarkRead = "mark_read"
	MessageError    = "error"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = pongWait * 9 / 10
	maxMessage = 4096
)

// ClientMessage is sent from a client to the server.
type ClientMessage struct {
	Type       string `json:"type"`
	ActivityID string `json:"activity_id,omitempty"`
}

// Feed is the activity store the handler replays from.
type Feed interface {
	List(ctx context.Context, userID string, unreadOnly bool) ([]*models.Activity, error)
	MarkRead(ctx context.Context, userID string, ids []string) error
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

// Handler serves the activity websocket.
//
// The client authenticates with "?token=<jwt>" (browsers cannot set headers
// on the handshake) or an Authorization header. After the upgrade every
// unread activity is sent and marked read, then live activities follow.
type Handler struct {
	registry *Registry
	feed     Feed
	tokens   auth.Validator
	logger   *slog.Logger
}

// NewHandler creates the websocket handler.
func NewHandler(registry *Registry, feed Feed, tokens auth.Validator, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{registry: registry, feed: feed, tokens: tokens, logger: logger}
}

func (h *Handler) authenticate(r *http.Request) (string, error) {
	token := r.URL.Query().Get("token")
	if token == "" {
		var err error
		if token, err = auth.BearerToken(r.Header.Get("Authorization")); err != nil {
			return "", err
		}
	}
	claims, err := h.tokens.Validate(token)
	if err != nil {
		return "", err
	}
	return claims.UserID, nil
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	userID, err := h.authenticate(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusUnauthorized)
		return
	}

	ws, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error("failed to upgrade the websocket", "error", err)
		return
	}
	defer ws.Close()

	conn := h.registry.Register(userID)
	defer h.registry.Deregister(conn)
	h.logger.Info("Websocket client connected", "user_id", userID, "conn_id", conn.ID)

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	if err := h.replayUnread(ctx, ws, userID); err != nil {
		h.logger.Warn("Failed to replay unread activities", "user_id", userID, "error", err)
		return
	}

	go h.writeLoop(ctx, ws, conn)
	h.readLoop(ctx, ws, userID)
	h.logger.Info("Websocket client disconnected", "user_id", userID, "conn_id", conn.ID)
}

func (h *Handler) replayUnread(ctx context.Context, ws *websocket.Conn, userID string) error {
	unread, err := h.feed.List(ctx, userID, true)
	if err != nil {
		return err
	}
	if len(unread) == 0 {
		return nil
	}

	ids := make([]string, 0, len(unread))
	for _, a := range unread {
		ws.SetWriteDeadline(time.Now().Add(writeWait))
		if err := ws.WriteJSON(Message{Type: MessageActivity, Activity: NewActivityPayload(a)}); err != nil {
			return err
		}
		ids = append(ids, a.ID)
	}
	return h.feed.MarkRead(ctx, userID, ids)
}

// writeLoop is the only writer after replay. It exits when the connection's
// queue is closed or ctx ends.
func (h *Handler) writeLoop(ctx context.Context, ws *websocket.Conn, conn *Conn) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case msg, ok := <-conn.Messages():
			if !ok {
				return
			}
			ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := ws.WriteJSON(msg); err != nil {
				h.logger.Warn("Failed to write WebSocket JSON", "user_id", conn.UserID, "error", err)
				ws.Close()
				return
			}
		case <-ticker.C:
			ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				ws.Close()
				return
			}
		case <-ctx.Done():
			return
		}
	}
}

func (h *Handler) readLoop(ctx context.Context, ws *websocket.Conn, userID string) {
	ws.SetReadLimit(maxMessage)
	ws.SetReadDeadline(time.Now().Add(pongWait))
	ws.SetPongHandler(func(string) error {
		return ws.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		var msg ClientMessage
		if err := ws.ReadJSON(&msg); err != nil {
			return
		}

		switch msg.Type {
		case MessageMarkRead:
			if msg.ActivityID == "" {
				continue
			}
			if err := h.feed.MarkRead(ctx, userID, []string{msg.ActivityID}); err != nil {
				h.logger.Warn("Failed to mark activity read", "user_id", userID, "activity_id", msg.ActivityID, "error", err)
			}
		default:
			h.logger.Debug("Ignoring websocket message", "user_id", userID, "type", msg.Type)
		}
	}
}
