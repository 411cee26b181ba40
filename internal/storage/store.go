// Package storage provides abstractions for persistent data storage.
package storage

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mmynk/splitledger/internal/models"
)

var (
	// ErrNotFound is returned when a requested record does not exist.
	ErrNotFound = errors.New("not found")
	// ErrDuplicateEdge is returned when both directions of a pairwise edge are stored.
	// It can only happen if the single-edge invariant was broken.
	ErrDuplicateEdge = errors.New("both directions of balance edge present")
)

// Store defines the record store used by the ledger engine and its collaborators.
// This abstraction allows swapping storage backends (SQLite, in-memory, ...)
// without changing the service layer.
type Store interface {
	// WithTx runs fn inside one atomic transaction. If fn returns an error every
	// write made through tx is rolled back.
	WithTx(ctx context.Context, fn func(tx Tx) error) error

	GroupStore
	ActivityStore

	// Close releases any resources held by the store.
	Close() error
}

// Tx is the read-modify-write surface the ledger works against.
// Callers serialize conflicting transactions with lock keys; the store only
// guarantees atomicity.
type Tx interface {
	// FindEdge returns the edge between a and b in either direction, or nil if
	// the pair is settled.
	FindEdge(ctx context.Context, a, b string) (*models.BalanceEdge, error)
	// PutEdge creates or replaces the edge edge.Debtor -> edge.Creditor.
	PutEdge(ctx context.Context, edge models.BalanceEdge) error
	// DeleteEdge removes the edge debtor -> creditor. Missing edges are not an error.
	DeleteEdge(ctx context.Context, debtor, creditor string) error
	// ListEdges returns every edge user is part of.
	ListEdges(ctx context.Context, user string) ([]models.BalanceEdge, error)

	// CreateExpense persists an expense with its obligations.
	CreateExpense(ctx context.Context, expense *models.Expense) error
	// GetExpense returns an expense with its open obligations, or ErrNotFound.
	GetExpense(ctx context.Context, expenseID string) (*models.Expense, error)
	// UpdateExpenseDetails changes description and category only.
	UpdateExpenseDetails(ctx context.Context, expenseID, description, category string) error
	// DeleteExpense removes an expense and its remaining obligations.
	DeleteExpense(ctx context.Context, expenseID string) error
	// ListExpensesByGroup returns a group's expenses, oldest first.
	ListExpensesByGroup(ctx context.Context, groupID string) ([]*models.Expense, error)
	// ListExpensesByPayer returns every expense paid by payer, oldest first.
	ListExpensesByPayer(ctx context.Context, payer string) ([]*models.Expense, error)

	// ListOpenObligations returns the obligations owed by user across a group's
	// expenses, ordered by expense creation time ascending.
	ListOpenObligations(ctx context.Context, groupID, user string) ([]models.Obligation, error)
	// UpdateObligationAmount sets a new, strictly positive amount.
	UpdateObligationAmount(ctx context.Context, obligationID string, amount decimal.Decimal) error
	// DeleteObligation removes a fully settled obligation.
	DeleteObligation(ctx context.Context, obligationID string) error

	// CreateSettlement persists a new settlement.
	CreateSettlement(ctx context.Context, settlement *models.Settlement) error
	// GetSettlement returns a settlement or ErrNotFound.
	GetSettlement(ctx context.Context, settlementID string) (*models.Settlement, error)
	// MarkSettlementVerified records the verification of a pending settlement.
	MarkSettlementVerified(ctx context.Context, settlementID, verifiedBy string, at time.Time) error
}

// GroupStore is the group directory the ledger consults. Group management
// itself lives outside the ledger.
type GroupStore interface {
	CreateGroup(ctx context.Context, group *models.Group) error
	GetGroup(ctx context.Context, groupID string) (*models.Group, error)
	AddGroupMembers(ctx context.Context, groupID string, members []string) error
	IsGroupMember(ctx context.Context, groupID, user string) (bool, error)
}

// ActivityStore persists the notification feed.
type ActivityStore interface {
	CreateActivity(ctx context.Context, activity *models.Activity) error
	ListActivities(ctx context.Context, user string, unreadOnly bool) ([]*models.Activity, error)
	// MarkActivitiesRead marks the given activities of user as read. An empty
	// ids slice marks all of them.
	MarkActivitiesRead(ctx context.Context, user string, ids []string) error
}
