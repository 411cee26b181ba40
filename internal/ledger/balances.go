package ledger

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/mmynk/splitledger/internal/models"
	"github.com/mmynk/splitledger/internal/storage"
	"github.com/mmynk/splitledger/pkg/money"
)

// BalanceLedger maintains the netted pairwise debt graph. It holds no state;
// every call works against the transaction it is given and expects the
// caller to hold the pair's lock key.
type BalanceLedger struct{}

// ApplyObligation records "debtor owes creditor amount" and nets it against
// any existing edge between the two. It returns the resulting edge, or nil if
// the pair is now settled.
//
//	reverse edge r (creditor owes debtor):
//	  r > amount   reduce reverse edge to r - amount
//	  r < amount   delete reverse, create forward edge amount - r
//	  r == amount  delete reverse, no edge remains
//	forward edge f:  f + amount
//	no edge:         new edge amount
func (BalanceLedger) ApplyObligation(ctx context.Context, tx storage.Tx, debtor, creditor string, amount decimal.Decimal) (*models.BalanceEdge, error) {
	if debtor == "" || creditor == "" || debtor == creditor {
		return nil, fmt.Errorf("%w: obligation between %q and %q", ErrLedgerInvariant, debtor, creditor)
	}
	if !amount.IsPositive() || !money.IsExact(amount) {
		return nil, fmt.Errorf("%w: obligation amount %s", ErrLedgerInvariant, amount)
	}

	edge, err := tx.FindEdge(ctx, debtor, creditor)
	if err != nil {
		return nil, fmt.Errorf("failed to read balance edge: %w", err)
	}
	if edge != nil && !edge.Amount.IsPositive() {
		return nil, fmt.Errorf("%w: stored edge %s->%s has amount %s", ErrLedgerInvariant, edge.Debtor, edge.Creditor, edge.Amount)
	}

	var next *models.BalanceEdge
	switch {
	case edge == nil:
		next = &models.BalanceEdge{Debtor: debtor, Creditor: creditor, Amount: amount}

	case edge.Debtor == creditor:
		r := edge.Amount
		switch r.Cmp(amount) {
		case 1:
			next = &models.BalanceEdge{Debtor: creditor, Creditor: debtor, Amount: r.Sub(amount)}
		case -1:
			if err := tx.DeleteEdge(ctx, creditor, debtor); err != nil {
				return nil, fmt.Errorf("failed to delete reverse edge: %w", err)
			}
			next = &models.BalanceEdge{Debtor: debtor, Creditor: creditor, Amount: amount.Sub(r)}
		default:
			if err := tx.DeleteEdge(ctx, creditor, debtor); err != nil {
				return nil, fmt.Errorf("failed to delete reverse edge: %w", err)
			}
			return nil, nil
		}

	default:
		next = &models.BalanceEdge{Debtor: debtor, Creditor: creditor, Amount: edge.Amount.Add(amount)}
	}

	if !next.Amount.IsPositive() {
		return nil, fmt.Errorf("%w: computed edge %s->%s of %s", ErrLedgerInvariant, next.Debtor, next.Creditor, next.Amount)
	}
	if err := tx.PutEdge(ctx, *next); err != nil {
		return nil, fmt.Errorf("failed to write balance edge: %w", err)
	}
	return next, nil
}

// RemoveObligation retracts "debtor owes creditor amount". It is the inverse
// of ApplyObligation, so retracting an obligation that was already paid off
// leaves the creditor owing the debtor.
func (l BalanceLedger) RemoveObligation(ctx context.Context, tx storage.Tx, debtor, creditor string, amount decimal.Decimal) (*models.BalanceEdge, error) {
	return l.ApplyObligation(ctx, tx, creditor, debtor, amount)
}
