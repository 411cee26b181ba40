package realtime

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmynk/splitledger/internal/auth"
	"github.com/mmynk/splitledger/internal/models"
)

func TestRegistrySendReachesEveryConnection(t *testing.T) {
	r := NewRegistry(nil)
	c1 := r.Register("alice")
	c2 := r.Register("alice")
	other := r.Register("bob")
	assert.NotEqual(t, c1.ID, c2.ID)
	assert.Equal(t, 2, r.Connected("alice"))

	n := r.Send("alice", Message{Type: MessageActivity})
	assert.Equal(t, 2, n)
	assert.Len(t, c1.Messages(), 1)
	assert.Len(t, c2.Messages(), 1)
	assert.Len(t, other.Messages(), 0)
}

func TestRegistryDeregister(t *testing.T) {
	r := NewRegistry(nil)
	c := r.Register("alice")
	r.Deregister(c)
	r.Deregister(c)

	assert.Equal(t, 0, r.Connected("alice"))
	_, ok := <-c.Messages()
	assert.False(t, ok, "queue should be closed")
	assert.Equal(t, 0, r.Send("alice", Message{Type: MessageActivity}))
}

func TestRegistryDropsForSlowConnection(t *testing.T) {
	r := NewRegistry(nil)
	c := r.Register("alice")
	for i := 0; i < sendBuffer; i++ {
		require.Equal(t, 1, r.Send("alice", Message{Type: MessageActivity}))
	}
	assert.Equal(t, 0, r.Send("alice", Message{Type: MessageActivity}))
	assert.Len(t, c.Messages(), sendBuffer)
}

func TestRegistryPublish(t *testing.T) {
	r := NewRegistry(nil)
	c := r.Register("bob")

	err := r.Publish(context.Background(), &models.Activity{ID: "act_1", UserID: "bob", Action: models.ActionExpenseOwed})
	require.NoError(t, err)

	msg := <-c.Messages()
	assert.Equal(t, MessageActivity, msg.Type)
	assert.Equal(t, "act_1", msg.Activity.ID)
}

type fakeFeed struct {
	mu     sync.Mutex
	unread []*models.Activity
	marked []string
}

func (f *fakeFeed) List(_ context.Context, _ string, _ bool) ([]*models.Activity, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.unread, nil
}

func (f *fakeFeed) MarkRead(_ context.Context, _ string, ids []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.marked = append(f.marked, ids...)
	return nil
}

func (f *fakeFeed) markedIDs() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.marked...)
}

func dial(t *testing.T, srv *httptest.Server, token string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "?token=" + token
	ws, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	resp.Body.Close()
	t.Cleanup(func() { ws.Close() })
	return ws
}

func TestHandlerReplaysUnreadThenStreams(t *testing.T) {
	jwtMgr := auth.NewJWTManager("test-secret", time.Hour)
	feed := &fakeFeed{unread: []*models.Activity{
		{ID: "act_1", UserID: "bob", Action: models.ActionExpenseOwed, Description: "You owe alice 5.00"},
	}}
	registry := NewRegistry(nil)
	srv := httptest.NewServer(NewHandler(registry, feed, jwtMgr, nil))
	defer srv.Close()

	token, err := jwtMgr.Generate("bob", "bob@example.com")
	require.NoError(t, err)
	ws := dial(t, srv, token)

	var msg Message
	require.NoError(t, ws.ReadJSON(&msg))
	assert.Equal(t, "act_1", msg.Activity.ID)
	require.Eventually(t, func() bool { return len(feed.markedIDs()) == 1 }, time.Second, 5*time.Millisecond)

	require.Eventually(t, func() bool { return registry.Connected("bob") == 1 }, time.Second, 5*time.Millisecond)
	require.NoError(t, registry.Publish(context.Background(), &models.Activity{ID: "act_2", UserID: "bob"}))
	require.NoError(t, ws.ReadJSON(&msg))
	assert.Equal(t, "act_2", msg.Activity.ID)

	require.NoError(t, ws.WriteJSON(ClientMessage{Type: MessageMarkRead, ActivityID: "act_2"}))
	require.Eventually(t, func() bool { return len(feed.markedIDs()) == 2 }, time.Second, 5*time.Millisecond)

	ws.Close()
	require.Eventually(t, func() bool { return registry.Connected("bob") == 0 }, time.Second, 5*time.Millisecond)
}

func TestHandlerRejectsBadToken(t *testing.T) {
	jwtMgr := auth.NewJWTManager("test-secret", time.Hour)
	srv := httptest.NewServer(NewHandler(NewRegistry(nil), &fakeFeed{}, jwtMgr, nil))
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "?token=garbage"
	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestRedisBusForwardsAcrossNodes(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	bus := NewRedisBus(rdb, "test-activity", nil)
	registry := NewRegistry(nil)
	c := registry.Register("carol")
	require.NoError(t, bus.StartForwarder(ctx, registry.Deliver))

	require.NoError(t, bus.Publish(ctx, &models.Activity{ID: "act_9", UserID: "carol", Action: models.ActionSettlementReceived}))

	select {
	case msg := <-c.Messages():
		assert.Equal(t, "act_9", msg.Activity.ID)
		assert.Equal(t, models.ActionSettlementReceived, msg.Activity.Action)
	case <-time.After(2 * time.Second):
		t.Fatal("activity was not forwarded")
	}
}

func TestRedisBusRequiresCallback(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()

	assert.Error(t, NewRedisBus(rdb, "", nil).StartForwarder(context.Background(), nil))
}
