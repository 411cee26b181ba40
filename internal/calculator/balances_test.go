package calculator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmynk/splitledger/internal/models"
	"github.com/mmynk/splitledger/pkg/money"
)

func TestSummarizeBalances(t *testing.T) {
	edges := []models.BalanceEdge{
		{Debtor: "alice", Creditor: "bob", Amount: dec("20")},
		{Debtor: "carol", Creditor: "alice", Amount: dec("7.50")},
		{Debtor: "dave", Creditor: "alice", Amount: dec("2.50")},
		{Debtor: "bob", Creditor: "carol", Amount: dec("99")}, // not involving alice
	}

	summary := SummarizeBalances("alice", edges)

	assert.Equal(t, "20.00", money.Format(summary.TotalOwes))
	assert.Equal(t, "10.00", money.Format(summary.TotalOwedTo))
	require.Len(t, summary.Friends, 3)
	assert.Equal(t, "bob", summary.Friends[0].FriendID)
	assert.Equal(t, "-20.00", money.Format(summary.Friends[0].Amount))
	assert.Equal(t, "carol", summary.Friends[1].FriendID)
	assert.Equal(t, "7.50", money.Format(summary.Friends[1].Amount))
	assert.Equal(t, "dave", summary.Friends[2].FriendID)
}

func TestSummarizeBalancesEmpty(t *testing.T) {
	summary := SummarizeBalances("alice", nil)
	assert.True(t, summary.TotalOwes.IsZero())
	assert.True(t, summary.TotalOwedTo.IsZero())
	assert.Empty(t, summary.Friends)
}

func TestCalculateGroupBalances(t *testing.T) {
	// Alice paid 90 for three; Bob paid 30 for Alice and himself.
	expenses := []*models.Expense{
		{
			Payer: "alice",
			Obligations: []models.Obligation{
				{OwedBy: "bob", Creditor: "alice", Amount: dec("30")},
				{OwedBy: "carol", Creditor: "alice", Amount: dec("30")},
			},
		},
		{
			Payer: "bob",
			Obligations: []models.Obligation{
				{OwedBy: "alice", Creditor: "bob", Amount: dec("15")},
			},
		},
	}

	balances, transfers := CalculateGroupBalances(expenses)

	require.Len(t, balances, 3)
	byMember := make(map[string]MemberBalance)
	for _, b := range balances {
		byMember[b.MemberID] = b
	}
	assert.Equal(t, "45.00", money.Format(byMember["alice"].NetBalance))
	assert.Equal(t, "-15.00", money.Format(byMember["bob"].NetBalance))
	assert.Equal(t, "-30.00", money.Format(byMember["carol"].NetBalance))

	require.Len(t, transfers, 2)
	assert.Equal(t, Transfer{From: "carol", To: "alice", Amount: transfers[0].Amount}, transfers[0])
	assert.Equal(t, "30.00", money.Format(transfers[0].Amount))
	assert.Equal(t, "bob", transfers[1].From)
	assert.Equal(t, "15.00", money.Format(transfers[1].Amount))
}

func TestCalculateGroupBalancesSettledGroup(t *testing.T) {
	balances, transfers := CalculateGroupBalances([]*models.Expense{{Payer: "alice"}})
	require.Len(t, balances, 1)
	assert.True(t, balances[0].NetBalance.IsZero())
	assert.Empty(t, transfers)
}
