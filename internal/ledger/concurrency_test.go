package ledger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/mmynk/splitledger/internal/storage"
	"github.com/mmynk/splitledger/pkg/money"
)

func TestConcurrentExpensesKeepSingleEdge(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	var g errgroup.Group
	for i := 0; i < 100; i++ {
		g.Go(func() error {
			in := ExpenseInput{TotalAmount: dec("1.00"), Payer: "bob", Participants: []string{"alice"}}
			if i%2 == 1 {
				in = ExpenseInput{TotalAmount: dec("0.50"), Payer: "alice", Participants: []string{"bob"}}
			}
			_, err := f.engine.RecordExpense(ctx, in)
			return err
		})
	}
	require.NoError(t, g.Wait())

	// 50 x 1.00 owed by alice, 50 x 0.50 owed by bob.
	edge, err := f.engine.Balance(ctx, "alice", "bob")
	require.NoError(t, err)
	assert.Equal(t, "alice", edge.Debtor)
	assert.Equal(t, "25.00", money.Format(edge.Amount))

	require.NoError(t, f.store.WithTx(ctx, func(tx storage.Tx) error {
		edges, err := tx.ListEdges(ctx, "alice")
		assert.Len(t, edges, 1)
		return err
	}))
}

func TestConcurrentSettlementsNeverOverpay(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.owe(t, "bob", "alice", "10")

	// Twenty payments of 1.00 race for a 10.00 debt; exactly ten can succeed.
	var g errgroup.Group
	results := make(chan error, 20)
	for i := 0; i < 20; i++ {
		g.Go(func() error {
			_, err := f.engine.RecordSettlement(ctx, SettlementInput{
				Payer: "bob", Counterparty: "alice", Amount: dec("1"),
			})
			results <- err
			return nil
		})
	}
	require.NoError(t, g.Wait())
	close(results)

	succeeded := 0
	for err := range results {
		if err == nil {
			succeeded++
			continue
		}
		assert.True(t, Reason(err) == ReasonNoOutstandingBalance || Reason(err) == ReasonOverpayment, "unexpected error %v", err)
	}
	assert.Equal(t, 10, succeeded)

	_, err := f.engine.Balance(ctx, "alice", "bob")
	assert.ErrorIs(t, err, ErrNoOutstandingBalance)
}

func TestConcurrentGroupSettlementsAndDeletes(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	groupID := f.group(t, "alice", "bob")
	exps := groupDebts(t, f, groupID, "5", "5", "5", "5")

	var g errgroup.Group
	g.Go(func() error {
		return f.engine.DeleteExpense(ctx, exps[3].ID, "alice")
	})
	for i := 0; i < 3; i++ {
		g.Go(func() error {
			_, err := f.engine.RecordSettlement(ctx, SettlementInput{Payer: "bob", GroupID: groupID, Amount: dec("5")})
			return err
		})
	}
	require.NoError(t, g.Wait())

	assert.Empty(t, openObligations(t, f, groupID, "bob"))
}
