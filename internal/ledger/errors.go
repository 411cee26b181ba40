package ledger

import (
	"context"
	"errors"

	"github.com/mmynk/splitledger/internal/calculator"
	"github.com/mmynk/splitledger/internal/lock"
	"github.com/mmynk/splitledger/internal/storage"
)

var (
	// ErrSplitMismatch is returned when split shares do not add up to the total.
	ErrSplitMismatch = calculator.ErrSplitMismatch
	// ErrLedgerInvariant means an edge would become zero-valued, negative or
	// duplicated. Reaching it indicates a bug upstream.
	ErrLedgerInvariant = errors.New("ledger invariant violated")
	// ErrNoOutstandingBalance is returned when there is nothing to settle.
	ErrNoOutstandingBalance = errors.New("no outstanding balance")
	// ErrWrongDirection is returned when the payer is owed money on the edge.
	ErrWrongDirection = errors.New("payer is the creditor of this balance")
	// ErrOverpayment is returned when a settlement exceeds what is owed.
	ErrOverpayment = errors.New("settlement exceeds outstanding balance")
	// ErrUnauthorizedVerification is returned when someone other than the
	// counterparty tries to verify a settlement.
	ErrUnauthorizedVerification = errors.New("only the counterparty can verify this settlement")
	// ErrLockTimeout is returned when the lock keys could not be taken in time.
	// Callers may retry.
	ErrLockTimeout = lock.ErrTimeout
	// ErrNotFound is returned for unknown expenses, settlements and groups.
	ErrNotFound = storage.ErrNotFound
	// ErrForbidden is returned when the acting user may not touch a record.
	ErrForbidden = errors.New("forbidden")
	// ErrInvalidInput is returned for malformed requests.
	ErrInvalidInput = errors.New("invalid input")
)

// Reason strings are stable identifiers for rejected transactions.
const (
	ReasonSplitMismatch            = "split_mismatch"
	ReasonLedgerInvariant          = "ledger_invariant"
	ReasonNoOutstandingBalance     = "no_outstanding_balance"
	ReasonWrongDirection           = "wrong_direction"
	ReasonOverpayment              = "overpayment"
	ReasonUnauthorizedVerification = "unauthorized_verification"
	ReasonLockTimeout              = "lock_timeout"
	ReasonNotFound                 = "not_found"
	ReasonForbidden                = "forbidden"
	ReasonInvalidInput             = "invalid_input"
	ReasonCanceled                 = "canceled"
	ReasonInternal                 = "internal"
)

// Reason maps err to the reason string of its taxonomy kind.
func Reason(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrLockTimeout):
		return ReasonLockTimeout
	case errors.Is(err, ErrSplitMismatch):
		return ReasonSplitMismatch
	case errors.Is(err, ErrLedgerInvariant), errors.Is(err, storage.ErrDuplicateEdge):
		return ReasonLedgerInvariant
	case errors.Is(err, ErrNoOutstandingBalance):
		return ReasonNoOutstandingBalance
	case errors.Is(err, ErrWrongDirection):
		return ReasonWrongDirection
	case errors.Is(err, ErrOverpayment):
		return ReasonOverpayment
	case errors.Is(err, ErrUnauthorizedVerification):
		return ReasonUnauthorizedVerification
	case errors.Is(err, ErrForbidden):
		return ReasonForbidden
	case errors.Is(err, ErrNotFound):
		return ReasonNotFound
	case errors.Is(err, ErrInvalidInput):
		return ReasonInvalidInput
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return ReasonCanceled
	default:
		return ReasonInternal
	}
}
