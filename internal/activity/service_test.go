package activity

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmynk/splitledger/internal/models"
	"github.com/mmynk/splitledger/internal/notify"
	"github.com/mmynk/splitledger/internal/storage/memory"
)

type stubPublisher struct {
	published []*models.Activity
	err       error
}

func (p *stubPublisher) Publish(_ context.Context, a *models.Activity) error {
	p.published = append(p.published, a)
	return p.err
}

func TestDeliverPersistsThenPublishes(t *testing.T) {
	store := memory.New()
	pub := &stubPublisher{}
	svc := NewService(store, pub, nil)
	ctx := context.Background()

	err := svc.Deliver(ctx, notify.Event{UserID: "bob", Action: models.ActionExpenseOwed, Description: "You owe alice 5.00"})
	require.NoError(t, err)

	require.Len(t, pub.published, 1)
	assert.NotEmpty(t, pub.published[0].ID)
	assert.Equal(t, "bob", pub.published[0].UserID)

	feed, err := svc.List(ctx, "bob", true)
	require.NoError(t, err)
	require.Len(t, feed, 1)
	assert.Equal(t, "You owe alice 5.00", feed[0].Description)
}

func TestDeliverIgnoresPublishFailure(t *testing.T) {
	store := memory.New()
	svc := NewService(store, &stubPublisher{err: errors.New("no subscribers")}, nil)
	ctx := context.Background()

	require.NoError(t, svc.Deliver(ctx, notify.Event{UserID: "bob", Action: "x"}))

	feed, err := svc.List(ctx, "bob", true)
	require.NoError(t, err)
	assert.Len(t, feed, 1)
}

func TestMarkRead(t *testing.T) {
	store := memory.New()
	svc := NewService(store, nil, nil)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		require.NoError(t, svc.Deliver(ctx, notify.Event{UserID: "bob", Action: "x"}))
	}
	feed, err := svc.List(ctx, "bob", true)
	require.NoError(t, err)
	require.Len(t, feed, 3)

	require.NoError(t, svc.MarkRead(ctx, "bob", []string{feed[1].ID}))
	feed, err = svc.List(ctx, "bob", true)
	require.NoError(t, err)
	assert.Len(t, feed, 2)

	require.NoError(t, svc.MarkRead(ctx, "bob", nil))
	feed, err = svc.List(ctx, "bob", false)
	require.NoError(t, err)
	for _, a := range feed {
		assert.True(t, a.Read)
	}
}
