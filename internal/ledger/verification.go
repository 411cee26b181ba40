package ledger

import (
	"context"
	"fmt"

	"github.com/mmynk/splitledger/internal/models"
)

// Settlements move from pending to verified exactly once.
//
// A pairwise settlement is verified by the user who received the money.
// A group settlement has no single recipient, so any group member other
// than the payer may verify it.
func (e *Engine) authorizeVerification(ctx context.Context, st *models.Settlement, actor string) error {
	if actor == "" || actor == st.Payer {
		return fmt.Errorf("%w: %q cannot verify settlement %s", ErrUnauthorizedVerification, actor, st.ID)
	}

	switch st.Kind {
	case models.SettlementPairwise:
		if actor != st.Counterparty {
			return fmt.Errorf("%w: %q cannot verify settlement %s", ErrUnauthorizedVerification, actor, st.ID)
		}
		return nil

	case models.SettlementGroup:
		ok, err := e.groups.IsGroupMember(ctx, st.GroupID, actor)
		if err != nil {
			return fmt.Errorf("failed to check group membership: %w", err)
		}
		if !ok {
			return fmt.Errorf("%w: %q is not in group %s", ErrUnauthorizedVerification, actor, st.GroupID)
		}
		return nil

	default:
		return fmt.Errorf("%w: settlement %s has unknown kind %q", ErrLedgerInvariant, st.ID, st.Kind)
	}
}
