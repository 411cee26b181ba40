package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmynk/splitledger/internal/models"
	"github.com/mmynk/splitledger/internal/storage"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestWithTxRollsBackEveryWrite(t *testing.T) {
	s := New()
	ctx := context.Background()

	exp := &models.Expense{
		ID: "exp_1", Payer: "alice", TotalAmount: dec("20"), PayerShare: dec("10"),
		CreatedAt: time.Now(),
		Obligations: []models.Obligation{
			{ID: "obl_1", ExpenseID: "exp_1", OwedBy: "bob", Creditor: "alice", Amount: dec("10")},
		},
	}
	require.NoError(t, s.WithTx(ctx, func(tx storage.Tx) error {
		if err := tx.CreateExpense(ctx, exp); err != nil {
			return err
		}
		return tx.PutEdge(ctx, models.BalanceEdge{Debtor: "bob", Creditor: "alice", Amount: dec("10")})
	}))

	boom := errors.New("boom")
	err := s.WithTx(ctx, func(tx storage.Tx) error {
		require.NoError(t, tx.UpdateObligationAmount(ctx, "obl_1", dec("4")))
		require.NoError(t, tx.DeleteEdge(ctx, "bob", "alice"))
		require.NoError(t, tx.PutEdge(ctx, models.BalanceEdge{Debtor: "carol", Creditor: "alice", Amount: dec("3")}))
		require.NoError(t, tx.UpdateExpenseDetails(ctx, "exp_1", "changed", "misc"))
		require.NoError(t, tx.DeleteExpense(ctx, "exp_1"))
		return boom
	})
	require.ErrorIs(t, err, boom)

	require.NoError(t, s.WithTx(ctx, func(tx storage.Tx) error {
		got, err := tx.GetExpense(ctx, "exp_1")
		require.NoError(t, err)
		assert.Empty(t, got.Description)
		require.Len(t, got.Obligations, 1)
		assert.True(t, got.Obligations[0].Amount.Equal(dec("10")))

		edge, err := tx.FindEdge(ctx, "alice", "bob")
		require.NoError(t, err)
		require.NotNil(t, edge)
		assert.True(t, edge.Amount.Equal(dec("10")))

		edge, err = tx.FindEdge(ctx, "alice", "carol")
		require.NoError(t, err)
		assert.Nil(t, edge)
		return nil
	}))
}

func TestFindEdgeDetectsBrokenInvariant(t *testing.T) {
	s := New()
	ctx := context.Background()
	s.edges[edgeKey{"a", "b"}] = dec("1")
	s.edges[edgeKey{"b", "a"}] = dec("2")

	err := s.WithTx(ctx, func(tx storage.Tx) error {
		_, err := tx.FindEdge(ctx, "a", "b")
		return err
	})
	assert.ErrorIs(t, err, storage.ErrDuplicateEdge)
}

func TestListOpenObligationsOrder(t *testing.T) {
	s := New()
	ctx := context.Background()
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	mk := func(id string, at time.Time) *models.Expense {
		return &models.Expense{
			ID: id, Payer: "alice", GroupID: "grp_1", CreatedAt: at,
			Obligations: []models.Obligation{{
				ID: "obl_" + id, ExpenseID: id, OwedBy: "bob", Creditor: "alice",
				Amount: dec("5"), ExpenseCreatedAt: at,
			}},
		}
	}

	require.NoError(t, s.WithTx(ctx, func(tx storage.Tx) error {
		for _, e := range []*models.Expense{mk("exp_c", base.Add(time.Minute)), mk("exp_b", base), mk("exp_a", base)} {
			if err := tx.CreateExpense(ctx, e); err != nil {
				return err
			}
		}
		return nil
	}))

	require.NoError(t, s.WithTx(ctx, func(tx storage.Tx) error {
		obligations, err := tx.ListOpenObligations(ctx, "grp_1", "bob")
		require.NoError(t, err)
		require.Len(t, obligations, 3)
		assert.Equal(t, "exp_a", obligations[0].ExpenseID)
		assert.Equal(t, "exp_b", obligations[1].ExpenseID)
		assert.Equal(t, "exp_c", obligations[2].ExpenseID)
		return nil
	}))
}

func TestListExpensesByPayer(t *testing.T) {
	s := New()
	ctx := context.Background()
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	require.NoError(t, s.WithTx(ctx, func(tx storage.Tx) error {
		for _, e := range []*models.Expense{
			{ID: "exp_late", Payer: "alice", CreatedAt: base.Add(time.Hour)},
			{ID: "exp_group", Payer: "alice", GroupID: "grp_1", CreatedAt: base},
			{ID: "exp_bob", Payer: "bob", CreatedAt: base},
		} {
			if err := tx.CreateExpense(ctx, e); err != nil {
				return err
			}
		}
		return nil
	}))

	require.NoError(t, s.WithTx(ctx, func(tx storage.Tx) error {
		expenses, err := tx.ListExpensesByPayer(ctx, "alice")
		require.NoError(t, err)
		require.Len(t, expenses, 2)
		assert.Equal(t, "exp_group", expenses[0].ID)
		assert.Equal(t, "exp_late", expenses[1].ID)
		return nil
	}))
}

func TestActivityFeed(t *testing.T) {
	s := New()
	ctx := context.Background()

	require.NoError(t, s.CreateActivity(ctx, &models.Activity{UserID: "bob", Action: models.ActionExpenseOwed, Description: "one"}))
	require.NoError(t, s.CreateActivity(ctx, &models.Activity{UserID: "bob", Action: models.ActionExpenseOwed, Description: "two"}))
	require.NoError(t, s.CreateActivity(ctx, &models.Activity{UserID: "alice", Action: models.ActionExpensePaid, Description: "three"}))

	feed, err := s.ListActivities(ctx, "bob", true)
	require.NoError(t, err)
	require.Len(t, feed, 2)

	require.NoError(t, s.MarkActivitiesRead(ctx, "bob", []string{feed[0].ID}))
	feed, err = s.ListActivities(ctx, "bob", true)
	require.NoError(t, err)
	require.Len(t, feed, 1)
	assert.Equal(t, "two", feed[0].Description)

	feed, err = s.ListActivities(ctx, "alice", true)
	require.NoError(t, err)
	assert.Len(t, feed, 1)
}
