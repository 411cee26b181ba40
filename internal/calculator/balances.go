package calculator

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/mmynk/splitledger/internal/models"
)

// FriendBalance is the signed balance between a user and one other user.
type FriendBalance struct {
	FriendID string
	Amount   decimal.Decimal // Positive = friend owes the user, negative = user owes the friend
}

// BalanceSummary aggregates every edge a user is part of.
type BalanceSummary struct {
	UserID      string
	TotalOwes   decimal.Decimal // Sum of edges where the user is the debtor
	TotalOwedTo decimal.Decimal // Sum of edges where the user is the creditor
	Friends     []FriendBalance
}

// SummarizeBalances folds a user's edges into totals and per-friend balances.
// Edges not involving userID are ignored. Friends are sorted by ID.
func SummarizeBalances(userID string, edges []models.BalanceEdge) BalanceSummary {
	summary := BalanceSummary{
		UserID:      userID,
		TotalOwes:   decimal.Zero,
		TotalOwedTo: decimal.Zero,
	}

	perFriend := make(map[string]decimal.Decimal)
	for _, e := range edges {
		switch userID {
		case e.Debtor:
			summary.TotalOwes = summary.TotalOwes.Add(e.Amount)
			perFriend[e.Creditor] = perFriend[e.Creditor].Sub(e.Amount)
		case e.Creditor:
			summary.TotalOwedTo = summary.TotalOwedTo.Add(e.Amount)
			perFriend[e.Debtor] = perFriend[e.Debtor].Add(e.Amount)
		}
	}

	for friend, amt := range perFriend {
		summary.Friends = append(summary.Friends, FriendBalance{FriendID: friend, Amount: amt})
	}
	sort.Slice(summary.Friends, func(i, j int) bool {
		return summary.Friends[i].FriendID < summary.Friends[j].FriendID
	})
	return summary
}

// MemberBalance represents the balance information for one group member.
type MemberBalance struct {
	MemberID   string
	NetBalance decimal.Decimal // Positive = owed money, Negative = owes money
	TotalPaid  decimal.Decimal // Open amount others still owe this member
	TotalOwed  decimal.Decimal // Open amount this member still owes others
}

// Transfer is a suggested payment that clears group debt.
type Transfer struct {
	From   string // Person who owes
	To     string // Person who is owed
	Amount decimal.Decimal
}

// CalculateGroupBalances computes member balances from the open obligations of
// a group's expenses and suggests a small set of transfers that clears them.
//
// Algorithm:
// - For each open obligation: the debtor owes, the expense payer is owed
// - Aggregate: net_balance = total_paid - total_owed
// - Transfers: greedy matching of the largest debtor with the largest creditor
//
// Transfers are a view only; settlement still runs obligation by obligation.
func CalculateGroupBalances(expenses []*models.Expense) ([]MemberBalance, []Transfer) {
	balances := make(map[string]*MemberBalance)
	member := func(id string) *MemberBalance {
		if b, ok := balances[id]; ok {
			return b
		}
		b := &MemberBalance{MemberID: id, NetBalance: decimal.Zero, TotalPaid: decimal.Zero, TotalOwed: decimal.Zero}
		balances[id] = b
		return b
	}

	for _, exp := range expenses {
		payer := member(exp.Payer)
		for _, o := range exp.Obligations {
			payer.TotalPaid = payer.TotalPaid.Add(o.Amount)
			debtor := member(o.OwedBy)
			debtor.TotalOwed = debtor.TotalOwed.Add(o.Amount)
		}
	}

	memberBalances := make([]MemberBalance, 0, len(balances))
	for _, b := range balances {
		b.NetBalance = b.TotalPaid.Sub(b.TotalOwed)
		memberBalances = append(memberBalances, *b)
	}
	sort.Slice(memberBalances, func(i, j int) bool {
		return memberBalances[i].MemberID < memberBalances[j].MemberID
	})

	// Create lists of creditors (owed money) and debtors (owe money)
	var creditors, debtors []MemberBalance
	for _, b := range memberBalances {
		if b.NetBalance.IsPositive() {
			creditors = append(creditors, b)
		} else if b.NetBalance.IsNegative() {
			debtors = append(debtors, b)
		}
	}
	sort.SliceStable(creditors, func(i, j int) bool {
		return creditors[i].NetBalance.GreaterThan(creditors[j].NetBalance)
	})
	sort.SliceStable(debtors, func(i, j int) bool {
		return debtors[i].NetBalance.LessThan(debtors[j].NetBalance)
	})

	debtorLeft := make([]decimal.Decimal, len(debtors))
	for i, d := range debtors {
		debtorLeft[i] = d.NetBalance.Neg()
	}
	creditorLeft := make([]decimal.Decimal, len(creditors))
	for i, c := range creditors {
		creditorLeft[i] = c.NetBalance
	}

	var transfers []Transfer
	i, j := 0, 0
	for i < len(debtors) && j < len(creditors) {
		amount := decimal.Min(debtorLeft[i], creditorLeft[j])
		if amount.IsPositive() {
			transfers = append(transfers, Transfer{
				From:   debtors[i].MemberID,
				To:     creditors[j].MemberID,
				Amount: amount,
			})
		}

		debtorLeft[i] = debtorLeft[i].Sub(amount)
		creditorLeft[j] = creditorLeft[j].Sub(amount)

		// Move to next debtor/creditor once fully matched
		if debtorLeft[i].IsZero() {
			i++
		}
		if creditorLeft[j].IsZero() {
			j++
		}
	}

	return memberBalances, transfers
}
