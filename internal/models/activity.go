package models

import "time"

// Activity is a notification persisted for a user's feed.
type Activity struct {
	ID          string
	UserID      string
	Action      string
	Description string
	Read        bool
	CreatedAt   time.Time
}

// Activity actions emitted by the ledger.
const (
	ActionExpensePaid        = "expense_paid"
	ActionExpenseOwed        = "expense_owed"
	ActionExpenseDeleted     = "expense_deleted"
	ActionSettlementPaid     = "settle_expense"
	ActionSettlementReceived = "settlement_received"
	ActionGroupSettlement    = "settle_group_expense"
	ActionSettlementVerified = "settlement_verified"
	ActionSettleAll          = "settle_all_expenses"
	ActionGroupCreated       = "created_group"
	ActionAddedToGroup       = "added_to_group"
)
