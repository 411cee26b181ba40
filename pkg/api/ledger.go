// Package api holds the request and response messages of the splitledger.v1
// services. Messages travel as JSON; every amount is a decimal string with at
// most two fractional digits.
package api

import "time"

// Expense is a recorded expense with its open obligations.
type Expense struct {
	ID          string        `json:"id"`
	Description string        `json:"description"`
	Category    string        `json:"category,omitempty"`
	TotalAmount string        `json:"total_amount"`
	Payer       string        `json:"payer"`
	GroupID     string        `json:"group_id,omitempty"`
	Strategy    string        `json:"strategy"`
	PayerShare  string        `json:"payer_share"`
	Obligations []*Obligation `json:"obligations"`
	CreatedAt   time.Time     `json:"created_at"`
}

// Obligation is one participant's open share of an expense.
type Obligation struct {
	ID        string `json:"id"`
	ExpenseID string `json:"expense_id"`
	OwedBy    string `json:"owed_by"`
	Creditor  string `json:"creditor"`
	Amount    string `json:"amount"`
}

// BalanceEdge reads "Debtor owes Creditor Amount".
type BalanceEdge struct {
	Debtor   string `json:"debtor"`
	Creditor string `json:"creditor"`
	Amount   string `json:"amount"`
}

// Settlement is a recorded payment.
type Settlement struct {
	ID           string     `json:"id"`
	Kind         string     `json:"kind"`
	Payer        string     `json:"payer"`
	Counterparty string     `json:"counterparty,omitempty"`
	GroupID      string     `json:"group_id,omitempty"`
	Amount       string     `json:"amount"`
	Note         string     `json:"note,omitempty"`
	Verified     bool       `json:"verified"`
	VerifiedBy   string     `json:"verified_by,omitempty"`
	VerifiedAt   *time.Time `json:"verified_at,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
}

// ObligationChange describes how a group settlement touched one obligation.
type ObligationChange struct {
	ObligationID string `json:"obligation_id"`
	ExpenseID    string `json:"expense_id"`
	Creditor     string `json:"creditor"`
	Before       string `json:"before"`
	After        string `json:"after"`
	Paid         string `json:"paid"`
	Removed      bool   `json:"removed"`
}

// RecordExpenseRequest records an expense paid by the caller.
// Only the map matching Strategy is read.
type RecordExpenseRequest struct {
	Description  string            `json:"description"`
	Category     string            `json:"category,omitempty"`
	TotalAmount  string            `json:"total_amount"`
	GroupID      string            `json:"group_id,omitempty"`
	Participants []string          `json:"participants"`
	Strategy     string            `json:"strategy"`
	Amounts      map[string]string `json:"amounts,omitempty"`
	Percentages  map[string]string `json:"percentages,omitempty"`
	Adjustments  map[string]string `json:"adjustments,omitempty"`
}

type RecordExpenseResponse struct {
	Expense *Expense `json:"expense"`
}

type DeleteExpenseRequest struct {
	ExpenseID string `json:"expense_id"`
}

type DeleteExpenseResponse struct{}

// UpdateExpenseRequest edits the labels of an expense. Amounts never change.
type UpdateExpenseRequest struct {
	ExpenseID   string `json:"expense_id"`
	Description string `json:"description"`
	Category    string `json:"category,omitempty"`
}

type UpdateExpenseResponse struct {
	Expense *Expense `json:"expense"`
}

// RecordSettlementRequest records a payment by the caller, either to
// Counterparty or into GroupID.
type RecordSettlementRequest struct {
	Counterparty string `json:"counterparty,omitempty"`
	GroupID      string `json:"group_id,omitempty"`
	Amount       string `json:"amount"`
	Note         string `json:"note,omitempty"`
}

type RecordSettlementResponse struct {
	Settlement *Settlement         `json:"settlement"`
	Edge       *BalanceEdge        `json:"edge,omitempty"`
	Changes    []*ObligationChange `json:"changes,omitempty"`
}

type VerifySettlementRequest struct {
	SettlementID string `json:"settlement_id"`
}

type VerifySettlementResponse struct {
	Settlement *Settlement `json:"settlement"`
}

type GetBalanceRequest struct {
	OtherUserID string `json:"other_user_id"`
}

type GetBalanceResponse struct {
	Edge *BalanceEdge `json:"edge"`
}

type GetBalanceSummaryRequest struct{}

// FriendBalance is positive when the friend owes the caller.
type FriendBalance struct {
	FriendID string `json:"friend_id"`
	Amount   string `json:"amount"`
}

type GetBalanceSummaryResponse struct {
	TotalOwes   string           `json:"total_owes"`
	TotalOwedTo string           `json:"total_owed_to"`
	Friends     []*FriendBalance `json:"friends"`
}

type SettleAllRequest struct{}

type SettleAllResponse struct {
	Settlements []*Settlement `json:"settlements"`
}

type ListGroupExpensesRequest struct {
	GroupID string `json:"group_id"`
}

type ListGroupExpensesResponse struct {
	Expenses []*Expense `json:"expenses"`
}

// ListUserExpensesRequest lists the expenses the caller paid for.
type ListUserExpensesRequest struct{}

type ListUserExpensesResponse struct {
	Expenses []*Expense `json:"expenses"`
}

type GetGroupBalancesRequest struct {
	GroupID string `json:"group_id"`
}

type MemberBalance struct {
	MemberID   string `json:"member_id"`
	NetBalance string `json:"net_balance"`
	TotalPaid  string `json:"total_paid"`
	TotalOwed  string `json:"total_owed"`
}

// Transfer is a suggested payment. It does not settle anything by itself.
type Transfer struct {
	From   string `json:"from"`
	To     string `json:"to"`
	Amount string `json:"amount"`
}

type GetGroupBalancesResponse struct {
	MemberBalances []*MemberBalance `json:"member_balances"`
	Transfers      []*Transfer      `json:"transfers"`
}
