package ledger

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/mmynk/splitledger/internal/models"
	"github.com/mmynk/splitledger/internal/storage"
	"github.com/mmynk/splitledger/pkg/money"
)

// ObligationChange describes what a group settlement did to one obligation.
type ObligationChange struct {
	ObligationID string
	ExpenseID    string
	Creditor     string
	Before       decimal.Decimal
	After        decimal.Decimal
	Removed      bool
}

// Paid returns how much of the settlement went to this obligation.
func (c ObligationChange) Paid() decimal.Decimal {
	return c.Before.Sub(c.After)
}

// SettlementAllocator applies payments against outstanding debt.
type SettlementAllocator struct{}

// SettlePairwise pays amount from payer to counterparty on their shared edge.
// It returns the remaining edge, or nil once the pair is settled.
func (SettlementAllocator) SettlePairwise(ctx context.Context, tx storage.Tx, payer, counterparty string, amount decimal.Decimal) (*models.BalanceEdge, error) {
	edge, err := tx.FindEdge(ctx, payer, counterparty)
	if err != nil {
		return nil, fmt.Errorf("failed to read balance edge: %w", err)
	}
	if edge == nil || edge.Amount.IsZero() {
		return nil, fmt.Errorf("%w between %s and %s", ErrNoOutstandingBalance, payer, counterparty)
	}
	if edge.Debtor != payer {
		return nil, fmt.Errorf("%w: %s owes %s %s", ErrWrongDirection, counterparty, payer, money.Format(edge.Amount))
	}
	if amount.GreaterThan(edge.Amount) {
		return nil, fmt.Errorf("%w: paying %s against %s owed", ErrOverpayment, money.Format(amount), money.Format(edge.Amount))
	}

	remaining := edge.Amount.Sub(amount)
	if remaining.IsZero() {
		if err := tx.DeleteEdge(ctx, edge.Debtor, edge.Creditor); err != nil {
			return nil, fmt.Errorf("failed to delete balance edge: %w", err)
		}
		return nil, nil
	}
	if remaining.IsNegative() {
		return nil, fmt.Errorf("%w: settlement left %s", ErrLedgerInvariant, remaining)
	}

	next := models.BalanceEdge{Debtor: edge.Debtor, Creditor: edge.Creditor, Amount: remaining}
	if err := tx.PutEdge(ctx, next); err != nil {
		return nil, fmt.Errorf("failed to write balance edge: %w", err)
	}
	return &next, nil
}

// SettleGroup pays amount against payer's open obligations in a group,
// oldest expense first. Obligations are consumed whole while the remaining
// payment covers them; the first one it does not cover is reduced and the
// walk stops. Nothing is changed if amount exceeds the total owed.
func (SettlementAllocator) SettleGroup(ctx context.Context, tx storage.Tx, payer, groupID string, amount decimal.Decimal) ([]ObligationChange, error) {
	obligations, err := tx.ListOpenObligations(ctx, groupID, payer)
	if err != nil {
		return nil, fmt.Errorf("failed to list obligations: %w", err)
	}

	outstanding := decimal.Zero
	for _, o := range obligations {
		outstanding = outstanding.Add(o.Amount)
	}
	if outstanding.IsZero() {
		return nil, fmt.Errorf("%w for %s in group %s", ErrNoOutstandingBalance, payer, groupID)
	}
	if amount.GreaterThan(outstanding) {
		return nil, fmt.Errorf("%w: paying %s against %s owed", ErrOverpayment, money.Format(amount), money.Format(outstanding))
	}

	var changes []ObligationChange
	remaining := amount
	for _, o := range obligations {
		if !remaining.IsPositive() {
			break
		}
		change := ObligationChange{
			ObligationID: o.ID,
			ExpenseID:    o.ExpenseID,
			Creditor:     o.Creditor,
			Before:       o.Amount,
		}

		if remaining.GreaterThanOrEqual(o.Amount) {
			if err := tx.DeleteObligation(ctx, o.ID); err != nil {
				return nil, fmt.Errorf("failed to delete obligation: %w", err)
			}
			remaining = remaining.Sub(o.Amount)
			change.After = decimal.Zero
			change.Removed = true
		} else {
			after := o.Amount.Sub(remaining)
			if err := tx.UpdateObligationAmount(ctx, o.ID, after); err != nil {
				return nil, fmt.Errorf("failed to update obligation: %w", err)
			}
			remaining = decimal.Zero
			change.After = after
		}
		changes = append(changes, change)
	}

	return changes, nil
}
