package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// SplitStrategy names how an expense total is divided among participants.
type SplitStrategy string

const (
	SplitEqual      SplitStrategy = "equal"
	SplitExact      SplitStrategy = "exact"
	SplitPercentage SplitStrategy = "percentage"
	SplitAdjustment SplitStrategy = "adjustment"
)

// Expense represents a payment made by Payer and shared by participants.
type Expense struct {
	// ID is the unique identifier (prefix "exp").
	ID string

	// Description and Category are free-form labels. They are the only fields
	// that can change after creation.
	Description string
	Category    string

	// TotalAmount is the full amount the payer paid.
	TotalAmount decimal.Decimal

	// Payer is the user who paid.
	Payer string

	// GroupID is empty for personal expenses.
	GroupID string

	// Strategy records how the total was split.
	Strategy SplitStrategy

	// PayerShare is the payer's own portion of the total. It never becomes an
	// obligation.
	PayerShare decimal.Decimal

	// Obligations are the other participants' shares that are still open.
	// Settled obligations are removed, partially settled ones are reduced.
	Obligations []Obligation

	// CreatedAt orders expenses for FIFO settlement.
	CreatedAt time.Time
}

// IsPersonal reports whether the expense lives outside any group.
func (e *Expense) IsPersonal() bool {
	return e.GroupID == ""
}

// OutstandingAmount sums the open obligations.
func (e *Expense) OutstandingAmount() decimal.Decimal {
	total := decimal.Zero
	for _, o := range e.Obligations {
		total = total.Add(o.Amount)
	}
	return total
}

// Obligation is one participant's open share of an expense.
type Obligation struct {
	// ID is the unique identifier (prefix "obl").
	ID string

	// ExpenseID is the owning expense.
	ExpenseID string

	// OwedBy is the participant who owes Amount.
	OwedBy string

	// Creditor is the expense payer. Denormalized so settlement never needs a join.
	Creditor string

	// Amount is strictly positive.
	Amount decimal.Decimal

	// ExpenseCreatedAt is the owning expense's creation time, used for FIFO order.
	ExpenseCreatedAt time.Time
}
