package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmynk/splitledger/internal/models"
	"github.com/mmynk/splitledger/internal/storage"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "data", "test.db")
	store, err := New(dbPath)
	require.NoError(t, err, "Failed to create store")
	t.Cleanup(func() { store.Close() })
	return store
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func groupExpense(groupID, payer string, at time.Time, owed map[string]string) *models.Expense {
	exp := &models.Expense{
		ID:          models.NewID(models.PrefixExpense),
		Description: "Groceries",
		TotalAmount: dec("90"),
		Payer:       payer,
		GroupID:     groupID,
		Strategy:    models.SplitEqual,
		PayerShare:  dec("30"),
		CreatedAt:   at,
	}
	for user, amt := range owed {
		exp.Obligations = append(exp.Obligations, models.Obligation{
			ID:               models.NewID(models.PrefixObligation),
			ExpenseID:        exp.ID,
			OwedBy:           user,
			Creditor:         payer,
			Amount:           dec(amt),
			ExpenseCreatedAt: at,
		})
	}
	return exp
}

func TestSQLiteStore(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	t.Run("edges are found in either direction", func(t *testing.T) {
		err := store.WithTx(ctx, func(tx storage.Tx) error {
			return tx.PutEdge(ctx, models.BalanceEdge{Debtor: "alice", Creditor: "bob", Amount: dec("12.50")})
		})
		require.NoError(t, err)

		err = store.WithTx(ctx, func(tx storage.Tx) error {
			edge, err := tx.FindEdge(ctx, "bob", "alice")
			require.NoError(t, err)
			require.NotNil(t, edge)
			assert.Equal(t, "alice", edge.Debtor)
			assert.True(t, edge.Amount.Equal(dec("12.5")))

			none, err := tx.FindEdge(ctx, "alice", "carol")
			require.NoError(t, err)
			assert.Nil(t, none)
			return nil
		})
		require.NoError(t, err)
	})

	t.Run("PutEdge replaces the amount", func(t *testing.T) {
		err := store.WithTx(ctx, func(tx storage.Tx) error {
			if err := tx.PutEdge(ctx, models.BalanceEdge{Debtor: "dan", Creditor: "erin", Amount: dec("5")}); err != nil {
				return err
			}
			return tx.PutEdge(ctx, models.BalanceEdge{Debtor: "dan", Creditor: "erin", Amount: dec("7.25")})
		})
		require.NoError(t, err)

		_ = store.WithTx(ctx, func(tx storage.Tx) error {
			edges, err := tx.ListEdges(ctx, "erin")
			require.NoError(t, err)
			require.Len(t, edges, 1)
			assert.Equal(t, "7.25", edges[0].Amount.StringFixed(2))
			return nil
		})
	})

	t.Run("failed transaction rolls back", func(t *testing.T) {
		boom := errors.New("boom")
		err := store.WithTx(ctx, func(tx storage.Tx) error {
			if err := tx.PutEdge(ctx, models.BalanceEdge{Debtor: "frank", Creditor: "gina", Amount: dec("1")}); err != nil {
				return err
			}
			return boom
		})
		assert.ErrorIs(t, err, boom)

		_ = store.WithTx(ctx, func(tx storage.Tx) error {
			edge, err := tx.FindEdge(ctx, "frank", "gina")
			require.NoError(t, err)
			assert.Nil(t, edge)
			return nil
		})
	})

	t.Run("obligations are listed FIFO", func(t *testing.T) {
		base := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
		newer := groupExpense("grp_fifo", "alice", base.Add(time.Hour), map[string]string{"bob": "20"})
		older := groupExpense("grp_fifo", "carol", base, map[string]string{"bob": "10"})
		other := groupExpense("grp_other", "alice", base, map[string]string{"bob": "99"})

		err := store.WithTx(ctx, func(tx storage.Tx) error {
			for _, e := range []*models.Expense{newer, older, other} {
				if err := tx.CreateExpense(ctx, e); err != nil {
					return err
				}
			}
			return nil
		})
		require.NoError(t, err)

		_ = store.WithTx(ctx, func(tx storage.Tx) error {
			obligations, err := tx.ListOpenObligations(ctx, "grp_fifo", "bob")
			require.NoError(t, err)
			require.Len(t, obligations, 2)
			assert.Equal(t, older.ID, obligations[0].ExpenseID)
			assert.Equal(t, "carol", obligations[0].Creditor)
			assert.True(t, obligations[0].ExpenseCreatedAt.Equal(base))
			assert.Equal(t, newer.ID, obligations[1].ExpenseID)

			expenses, err := tx.ListExpensesByGroup(ctx, "grp_fifo")
			require.NoError(t, err)
			require.Len(t, expenses, 2)
			assert.Equal(t, older.ID, expenses[0].ID)
			require.Len(t, expenses[0].Obligations, 1)
			return nil
		})
	})

	t.Run("expense round trip and delete", func(t *testing.T) {
		at := time.Date(2024, 2, 3, 4, 5, 6, 789, time.UTC)
		exp := groupExpense("", "alice", at, map[string]string{"bob": "30", "carol": "30"})

		require.NoError(t, store.WithTx(ctx, func(tx storage.Tx) error {
			return tx.CreateExpense(ctx, exp)
		}))

		require.NoError(t, store.WithTx(ctx, func(tx storage.Tx) error {
			got, err := tx.GetExpense(ctx, exp.ID)
			require.NoError(t, err)
			assert.True(t, got.IsPersonal())
			assert.True(t, got.CreatedAt.Equal(at))
			assert.Equal(t, "30.00", got.PayerShare.StringFixed(2))
			assert.Len(t, got.Obligations, 2)

			require.NoError(t, tx.UpdateObligationAmount(ctx, got.Obligations[0].ID, dec("10")))
			require.NoError(t, tx.DeleteObligation(ctx, got.Obligations[1].ID))
			require.NoError(t, tx.UpdateExpenseDetails(ctx, exp.ID, "Dinner", "food"))
			return nil
		}))

		require.NoError(t, store.WithTx(ctx, func(tx storage.Tx) error {
			got, err := tx.GetExpense(ctx, exp.ID)
			require.NoError(t, err)
			assert.Equal(t, "Dinner", got.Description)
			assert.Equal(t, "food", got.Category)
			require.Len(t, got.Obligations, 1)
			assert.Equal(t, "10.00", got.OutstandingAmount().StringFixed(2))

			require.NoError(t, tx.DeleteExpense(ctx, exp.ID))
			_, err = tx.GetExpense(ctx, exp.ID)
			assert.ErrorIs(t, err, storage.ErrNotFound)
			return nil
		}))
	})

	t.Run("settlement verification", func(t *testing.T) {
		st := &models.Settlement{
			ID:           models.NewID(models.PrefixSettlement),
			Kind:         models.SettlementPairwise,
			Payer:        "bob",
			Counterparty: "alice",
			Amount:       dec("15"),
			CreatedAt:    time.Now().UTC(),
		}
		verifiedAt := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)

		require.NoError(t, store.WithTx(ctx, func(tx storage.Tx) error {
			if err := tx.CreateSettlement(ctx, st); err != nil {
				return err
			}
			return tx.MarkSettlementVerified(ctx, st.ID, "alice", verifiedAt)
		}))

		require.NoError(t, store.WithTx(ctx, func(tx storage.Tx) error {
			got, err := tx.GetSettlement(ctx, st.ID)
			require.NoError(t, err)
			assert.True(t, got.Verified)
			assert.Equal(t, "alice", got.VerifiedBy)
			assert.True(t, got.VerifiedAt.Equal(verifiedAt))
			assert.Empty(t, got.GroupID)
			assert.Empty(t, got.Note)

			_, err = tx.GetSettlement(ctx, "stl_missing")
			assert.ErrorIs(t, err, storage.ErrNotFound)
			return nil
		}))
	})

	t.Run("group directory", func(t *testing.T) {
		group := &models.Group{Name: "Roommates", Members: []string{"alice", "bob"}}
		require.NoError(t, store.CreateGroup(ctx, group))
		assert.NotEmpty(t, group.ID)

		require.NoError(t, store.AddGroupMembers(ctx, group.ID, []string{"bob", "carol"}))

		got, err := store.GetGroup(ctx, group.ID)
		require.NoError(t, err)
		assert.Equal(t, []string{"alice", "bob", "carol"}, got.Members)

		ok, err := store.IsGroupMember(ctx, group.ID, "carol")
		require.NoError(t, err)
		assert.True(t, ok)

		ok, err = store.IsGroupMember(ctx, group.ID, "mallory")
		require.NoError(t, err)
		assert.False(t, ok)

		_, err = store.IsGroupMember(ctx, "grp_missing", "alice")
		assert.ErrorIs(t, err, storage.ErrNotFound)
	})

	t.Run("activity feed", func(t *testing.T) {
		for _, desc := range []string{"first", "second", "third"} {
			require.NoError(t, store.CreateActivity(ctx, &models.Activity{
				UserID: "zoe", Action: models.ActionExpenseOwed, Description: desc,
			}))
		}

		all, err := store.ListActivities(ctx, "zoe", false)
		require.NoError(t, err)
		require.Len(t, all, 3)
		assert.Equal(t, "first", all[0].Description)

		require.NoError(t, store.MarkActivitiesRead(ctx, "zoe", []string{all[0].ID}))
		unread, err := store.ListActivities(ctx, "zoe", true)
		require.NoError(t, err)
		assert.Len(t, unread, 2)

		require.NoError(t, store.MarkActivitiesRead(ctx, "zoe", nil))
		unread, err = store.ListActivities(ctx, "zoe", true)
		require.NoError(t, err)
		assert.Empty(t, unread)
	})
}

func TestListExpensesByPayer(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	personal := groupExpense("", "alice", base.Add(time.Hour), map[string]string{"bob": "30"})
	grouped := groupExpense("grp_trip", "alice", base, map[string]string{"bob": "30", "carol": "30"})
	notMine := groupExpense("", "bob", base, map[string]string{"alice": "30"})

	require.NoError(t, store.WithTx(ctx, func(tx storage.Tx) error {
		for _, e := range []*models.Expense{personal, grouped, notMine} {
			if err := tx.CreateExpense(ctx, e); err != nil {
				return err
			}
		}
		return nil
	}))

	require.NoError(t, store.WithTx(ctx, func(tx storage.Tx) error {
		expenses, err := tx.ListExpensesByPayer(ctx, "alice")
		require.NoError(t, err)
		require.Len(t, expenses, 2)
		assert.Equal(t, grouped.ID, expenses[0].ID)
		assert.Len(t, expenses[0].Obligations, 2)
		assert.Equal(t, personal.ID, expenses[1].ID)
		assert.True(t, expenses[1].IsPersonal())
		assert.Len(t, expenses[1].Obligations, 1)

		none, err := tx.ListExpensesByPayer(ctx, "carol")
		require.NoError(t, err)
		assert.Empty(t, none)
		return nil
	}))
}
