package models

import "github.com/shopspring/decimal"

// BalanceEdge represents "Debtor owes Creditor Amount".
//
// For any unordered pair of users at most one edge exists, and Amount is
// always strictly positive. A settled pair has no edge at all.
type BalanceEdge struct {
	Debtor   string
	Creditor string
	Amount   decimal.Decimal
}

// Involves reports whether user is one side of the edge.
func (e BalanceEdge) Involves(user string) bool {
	return e.Debtor == user || e.Creditor == user
}

// Other returns the side of the edge that is not user.
func (e BalanceEdge) Other(user string) string {
	if e.Debtor == user {
		return e.Creditor
	}
	return e.Debtor
}
