package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/mmynk/splitledger/internal/models"
	"github.com/mmynk/splitledger/internal/storage"
)

// FindEdge returns the edge between a and b in either direction.
func (t *txStore) FindEdge(ctx context.Context, a, b string) (*models.BalanceEdge, error) {
	rows, err := t.tx.QueryContext(ctx,
		`SELECT debtor, creditor, amount FROM balance_edges
		 WHERE (debtor = ? AND creditor = ?) OR (debtor = ? AND creditor = ?)`,
		a, b, b, a,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query balance edge: %w", err)
	}
	defer rows.Close()

	var edges []models.BalanceEdge
	for rows.Next() {
		var e models.BalanceEdge
		if err := rows.Scan(&e.Debtor, &e.Creditor, &e.Amount); err != nil {
			return nil, fmt.Errorf("failed to scan balance edge: %w", err)
		}
		edges = append(edges, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate balance edges: %w", err)
	}

	switch len(edges) {
	case 0:
		return nil, nil
	case 1:
		return &edges[0], nil
	default:
		return nil, fmt.Errorf("pair %s/%s: %w", a, b, storage.ErrDuplicateEdge)
	}
}

// PutEdge upserts the edge debtor -> creditor.
func (t *txStore) PutEdge(ctx context.Context, edge models.BalanceEdge) error {
	_, err := t.tx.ExecContext(ctx,
		`INSERT INTO balance_edges (debtor, creditor, amount, updated_at)
		 VALUES (?, ?, ?, ?)
		 ON CONFLICT (debtor, creditor) DO UPDATE SET amount = excluded.amount, updated_at = excluded.updated_at`,
		edge.Debtor, edge.Creditor, edge.Amount.String(), toNanos(time.Now()),
	)
	if err != nil {
		return fmt.Errorf("failed to upsert balance edge: %w", err)
	}
	return nil
}

// DeleteEdge removes the edge debtor -> creditor if present.
func (t *txStore) DeleteEdge(ctx context.Context, debtor, creditor string) error {
	_, err := t.tx.ExecContext(ctx,
		"DELETE FROM balance_edges WHERE debtor = ? AND creditor = ?", debtor, creditor)
	if err != nil {
		return fmt.Errorf("failed to delete balance edge: %w", err)
	}
	return nil
}

// ListEdges returns every edge involving user, ordered by counterparty.
func (t *txStore) ListEdges(ctx context.Context, user string) ([]models.BalanceEdge, error) {
	rows, err := t.tx.QueryContext(ctx,
		`SELECT debtor, creditor, amount FROM balance_edges
		 WHERE debtor = ? OR creditor = ?
		 ORDER BY debtor, creditor`,
		user, user,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list balance edges: %w", err)
	}
	defer rows.Close()

	var edges []models.BalanceEdge
	for rows.Next() {
		var e models.BalanceEdge
		if err := rows.Scan(&e.Debtor, &e.Creditor, &e.Amount); err != nil {
			return nil, fmt.Errorf("failed to scan balance edge: %w", err)
		}
		edges = append(edges, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate balance edges: %w", err)
	}
	return edges, nil
}

// scanner is satisfied by *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func notFound(err error, kind, id string) error {
	if err == sql.ErrNoRows {
		return fmt.Errorf("%s %s: %w", kind, id, storage.ErrNotFound)
	}
	return fmt.Errorf("failed to get %s: %w", kind, err)
}
