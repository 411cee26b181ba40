package service

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"connectrpc.com/connect"

	"github.com/mmynk/splitledger/internal/activity"
	"github.com/mmynk/splitledger/internal/auth"
	"github.com/mmynk/splitledger/internal/ledger"
	"github.com/mmynk/splitledger/internal/lock"
	"github.com/mmynk/splitledger/internal/middleware"
	"github.com/mmynk/splitledger/internal/notify"
	"github.com/mmynk/splitledger/internal/storage/sqlite"
	"github.com/mmynk/splitledger/pkg/api/apiconnect"
	"github.com/mmynk/splitledger/pkg/logging"
)

type testEnv struct {
	ledger   apiconnect.LedgerServiceClient
	groups   apiconnect.GroupServiceClient
	activity apiconnect.ActivityServiceClient
	jwt      *auth.JWTManager
	tokens   map[string]string
}

// setupTestServer serves all three services over httptest with a temp-file
// SQLite store and the production interceptor chain.
func setupTestServer(t *testing.T) *testEnv {
	t.Helper()

	store, err := sqlite.New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}

	logger := logging.Discard()
	feed := activity.NewService(store, nil, logger)
	dispatcher := notify.NewDispatcher(feed, 1, 256, logger)
	dispatcher.Start()

	engine := ledger.NewEngine(store, lock.NewKeyedMutex(time.Second),
		ledger.WithLogger(logger),
		ledger.WithNotifier(dispatcher),
	)

	jwtManager := auth.NewJWTManager("test-secret", time.Hour)
	interceptors := connect.WithInterceptors(
		middleware.RequireAuth(jwtManager),
		middleware.LoggingInterceptor(logger),
	)

	mux := http.NewServeMux()
	mux.Handle(apiconnect.NewLedgerServiceHandler(NewLedgerService(engine, logger), interceptors))
	mux.Handle(apiconnect.NewGroupServiceHandler(NewGroupService(store, dispatcher, logger), interceptors))
	mux.Handle(apiconnect.NewActivityServiceHandler(NewActivityService(feed, logger), interceptors))

	server := httptest.NewServer(mux)
	t.Cleanup(func() {
		server.Close()
		dispatcher.Close(context.Background())
		store.Close()
	})

	return &testEnv{
		ledger:   apiconnect.NewLedgerServiceClient(http.DefaultClient, server.URL),
		groups:   apiconnect.NewGroupServiceClient(http.DefaultClient, server.URL),
		activity: apiconnect.NewActivityServiceClient(http.DefaultClient, server.URL),
		jwt:      jwtManager,
		tokens:   make(map[string]string),
	}
}

func (e *testEnv) token(t *testing.T, userID string) string {
	t.Helper()
	if tok, ok := e.tokens[userID]; ok {
		return tok
	}
	tok, err := e.jwt.Generate(userID, userID+"@example.com")
	if err != nil {
		t.Fatalf("failed to generate token: %v", err)
	}
	e.tokens[userID] = tok
	return tok
}

// as builds a request authenticated as userID.
func as[T any](t *testing.T, env *testEnv, userID string, msg *T) *connect.Request[T] {
	t.Helper()
	req := connect.NewRequest(msg)
	req.Header().Set("Authorization", "Bearer "+env.token(t, userID))
	return req
}

// expectError asserts err is a Connect error with the given code and reason.
func expectError(t *testing.T, err error, code connect.Code, reason string) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected %s error, got nil", code)
	}
	var connectErr *connect.Error
	if !errors.As(err, &connectErr) {
		t.Fatalf("expected *connect.Error, got %T: %v", err, err)
	}
	if connectErr.Code() != code {
		t.Errorf("code: expected %s, got %s (%v)", code, connectErr.Code(), err)
	}
	if reason != "" {
		if got := connectErr.Meta().Get(middleware.ReasonHeader); got != reason {
			t.Errorf("reason: expected %q, got %q", reason, got)
		}
	}
}

// waitFor polls cond until it holds or a second passes.
func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}
