package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// SettlementKind distinguishes a payment to one user from a payment into a group.
type SettlementKind string

const (
	SettlementPairwise SettlementKind = "pairwise"
	SettlementGroup    SettlementKind = "group"
)

// Settlement represents a payment that reduced outstanding debt.
// Apart from the one-time verification it is immutable; corrections are new
// settlements.
type Settlement struct {
	// ID is the unique identifier (prefix "stl").
	ID string

	Kind SettlementKind

	// Payer is the user who paid (debtor settling up).
	Payer string

	// Counterparty is the user who received payment. Empty for group settlements.
	Counterparty string

	// GroupID is set for group settlements.
	GroupID string

	// Amount is the payment amount.
	Amount decimal.Decimal

	// Note is an optional description for the settlement.
	Note string

	// Verified flips to true once the counterparty acknowledges the payment.
	Verified   bool
	VerifiedBy string
	VerifiedAt time.Time

	// CreatedAt is when the settlement was recorded.
	CreatedAt time.Time
}
