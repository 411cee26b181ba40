package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/mmynk/splitledger/internal/models"
	"github.com/mmynk/splitledger/internal/storage"
)

// CreateSettlement persists a new settlement to the database.
func (t *txStore) CreateSettlement(ctx context.Context, settlement *models.Settlement) error {
	_, err := t.tx.ExecContext(ctx,
		`INSERT INTO settlements (id, kind, payer, counterparty, group_id, amount, note, verified, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, 0, ?)`,
		settlement.ID, string(settlement.Kind), settlement.Payer, nullable(settlement.Counterparty),
		nullable(settlement.GroupID), settlement.Amount.String(), nullable(settlement.Note),
		toNanos(settlement.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to insert settlement: %w", err)
	}

	return nil
}

// GetSettlement retrieves a settlement by ID.
func (t *txStore) GetSettlement(ctx context.Context, settlementID string) (*models.Settlement, error) {
	settlement := &models.Settlement{}
	var kind string
	var counterparty, groupID, note, verifiedBy sql.NullString
	var verifiedAt sql.NullInt64
	var createdAt int64

	err := t.tx.QueryRowContext(ctx,
		`SELECT id, kind, payer, counterparty, group_id, amount, note, verified, verified_by, verified_at, created_at
		 FROM settlements WHERE id = ?`,
		settlementID,
	).Scan(&settlement.ID, &kind, &settlement.Payer, &counterparty, &groupID, &settlement.Amount,
		&note, &settlement.Verified, &verifiedBy, &verifiedAt, &createdAt)
	if err != nil {
		return nil, notFound(err, "settlement", settlementID)
	}

	settlement.Kind = models.SettlementKind(kind)
	settlement.Counterparty = counterparty.String
	settlement.GroupID = groupID.String
	settlement.Note = note.String
	settlement.VerifiedBy = verifiedBy.String
	if verifiedAt.Valid {
		settlement.VerifiedAt = fromNanos(verifiedAt.Int64)
	}
	settlement.CreatedAt = fromNanos(createdAt)

	return settlement, nil
}

// MarkSettlementVerified flags a settlement as acknowledged.
func (t *txStore) MarkSettlementVerified(ctx context.Context, settlementID, verifiedBy string, at time.Time) error {
	res, err := t.tx.ExecContext(ctx,
		"UPDATE settlements SET verified = 1, verified_by = ?, verified_at = ? WHERE id = ?",
		verifiedBy, toNanos(at), settlementID)
	if err != nil {
		return fmt.Errorf("failed to verify settlement: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("settlement %s: %w", settlementID, storage.ErrNotFound)
	}
	return nil
}
