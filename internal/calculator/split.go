package calculator

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/mmynk/splitledger/internal/models"
	"github.com/mmynk/splitledger/pkg/money"
)

// ErrSplitMismatch is matched by every split validation failure.
var ErrSplitMismatch = errors.New("split mismatch")

// ErrInvalidSplit marks malformed split input (missing or negative shares,
// duplicate participants). It wraps ErrSplitMismatch.
var ErrInvalidSplit = fmt.Errorf("%w: invalid split parameters", ErrSplitMismatch)

// SplitMismatchError reports that computed shares do not add up to the total.
type SplitMismatchError struct {
	Total decimal.Decimal
	Sum   decimal.Decimal
}

// Discrepancy is Sum - Total.
func (e *SplitMismatchError) Discrepancy() decimal.Decimal {
	return e.Sum.Sub(e.Total)
}

func (e *SplitMismatchError) Error() string {
	return fmt.Sprintf("split mismatch: shares sum to %s but total is %s (off by %s)",
		money.Format(e.Sum), money.Format(e.Total), money.Format(e.Discrepancy()))
}

func (e *SplitMismatchError) Is(target error) bool {
	return target == ErrSplitMismatch
}

// Share is one participant's computed portion of a total.
type Share struct {
	UserID string
	Amount decimal.Decimal
}

// Params carries the per-participant inputs of the non-equal strategies.
// Only the map that matches the strategy is read.
type Params struct {
	// Amounts are exact shares (SplitExact).
	Amounts map[string]decimal.Decimal
	// Percentages are shares of 100 (SplitPercentage).
	Percentages map[string]decimal.Decimal
	// Adjustments are added to an equal share (SplitAdjustment). Missing entries are zero.
	Adjustments map[string]decimal.Decimal
}

// Compute splits total among participants with the given strategy.
// Shares come back in participant order. The result always sums to total
// exactly, otherwise a *SplitMismatchError is returned.
func Compute(total decimal.Decimal, participants []string, strategy models.SplitStrategy, params Params) ([]Share, error) {
	if !total.IsPositive() {
		return nil, fmt.Errorf("%w: total must be positive, got %s", ErrInvalidSplit, total)
	}
	if !money.IsExact(total) {
		return nil, fmt.Errorf("%w: total %s has more than 2 decimal places", ErrInvalidSplit, total)
	}
	if len(participants) == 0 {
		return nil, fmt.Errorf("%w: must have at least one participant", ErrInvalidSplit)
	}
	seen := make(map[string]bool, len(participants))
	for _, p := range participants {
		if p == "" {
			return nil, fmt.Errorf("%w: empty participant id", ErrInvalidSplit)
		}
		if seen[p] {
			return nil, fmt.Errorf("%w: duplicate participant %q", ErrInvalidSplit, p)
		}
		seen[p] = true
	}

	var (
		shares []Share
		err    error
	)
	switch strategy {
	case models.SplitEqual:
		shares = equalShares(total, participants)
	case models.SplitExact:
		shares, err = exactShares(participants, params.Amounts)
	case models.SplitPercentage:
		shares, err = percentageShares(total, participants, params.Percentages)
	case models.SplitAdjustment:
		shares, err = adjustedShares(total, participants, params.Adjustments)
	default:
		return nil, fmt.Errorf("%w: unknown strategy %q", ErrInvalidSplit, strategy)
	}
	if err != nil {
		return nil, err
	}

	for _, s := range shares {
		if s.Amount.IsNegative() {
			return nil, fmt.Errorf("%w: share for %q is negative (%s)", ErrInvalidSplit, s.UserID, money.Format(s.Amount))
		}
	}

	sum := decimal.Zero
	for _, s := range shares {
		sum = sum.Add(s.Amount)
	}
	if !sum.Equal(total) {
		return nil, &SplitMismatchError{Total: total, Sum: sum}
	}
	return shares, nil
}

// equalShares gives everyone total/n rounded down to cents. The leftover,
// between zero and n-1 cents, goes to the first participant.
func equalShares(total decimal.Decimal, participants []string) []Share {
	n := decimal.NewFromInt(int64(len(participants)))
	each := total.Div(n).RoundDown(money.Places)

	shares := make([]Share, len(participants))
	for i, p := range participants {
		shares[i] = Share{UserID: p, Amount: each}
	}
	remainder := total.Sub(each.Mul(n))
	shares[0].Amount = shares[0].Amount.Add(remainder)
	return shares
}

func exactShares(participants []string, amounts map[string]decimal.Decimal) ([]Share, error) {
	shares := make([]Share, len(participants))
	for i, p := range participants {
		amt, ok := amounts[p]
		if !ok {
			return nil, fmt.Errorf("%w: missing exact amount for %q", ErrInvalidSplit, p)
		}
		if !money.IsExact(amt) {
			return nil, fmt.Errorf("%w: amount for %q has more than 2 decimal places", ErrInvalidSplit, p)
		}
		shares[i] = Share{UserID: p, Amount: amt}
	}
	if err := rejectUnknown(participants, amounts); err != nil {
		return nil, err
	}
	return shares, nil
}

func percentageShares(total decimal.Decimal, participants []string, pcts map[string]decimal.Decimal) ([]Share, error) {
	shares := make([]Share, len(participants))
	for i, p := range participants {
		pct, ok := pcts[p]
		if !ok {
			return nil, fmt.Errorf("%w: missing percentage for %q", ErrInvalidSplit, p)
		}
		if pct.IsNegative() {
			return nil, fmt.Errorf("%w: negative percentage for %q", ErrInvalidSplit, p)
		}
		shares[i] = Share{UserID: p, Amount: money.Percent(total, pct)}
	}
	if err := rejectUnknown(participants, pcts); err != nil {
		return nil, err
	}
	return shares, nil
}

func adjustedShares(total decimal.Decimal, participants []string, adjustments map[string]decimal.Decimal) ([]Share, error) {
	if err := rejectUnknown(participants, adjustments); err != nil {
		return nil, err
	}
	shares := equalShares(total, participants)
	for i := range shares {
		adj := adjustments[shares[i].UserID]
		if !money.IsExact(adj) {
			return nil, fmt.Errorf("%w: adjustment for %q has more than 2 decimal places", ErrInvalidSplit, shares[i].UserID)
		}
		shares[i].Amount = money.Round(shares[i].Amount.Add(adj))
	}
	return shares, nil
}

// rejectUnknown fails when params mention a user who is not a participant.
func rejectUnknown(participants []string, values map[string]decimal.Decimal) error {
	known := make(map[string]bool, len(participants))
	for _, p := range participants {
		known[p] = true
	}
	for user := range values {
		if !known[user] {
			return fmt.Errorf("%w: %q is not a participant", ErrInvalidSplit, user)
		}
	}
	return nil
}
