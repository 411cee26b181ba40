// Package memory provides an in-process implementation of storage.Store.
// It is used by tests and by single-node deployments that do not need durability.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mmynk/splitledger/internal/models"
	"github.com/mmynk/splitledger/internal/storage"
)

var _ storage.Store = (*Store)(nil)

type edgeKey struct {
	debtor   string
	creditor string
}

// Store keeps ledger state in maps guarded by mutexes.
type Store struct {
	// txMu serializes ledger transactions.
	txMu sync.Mutex

	edges       map[edgeKey]decimal.Decimal
	expenses    map[string]*models.Expense
	obligations map[string]*models.Obligation
	settlements map[string]*models.Settlement

	// dirMu guards the group directory and the activity feed.
	dirMu      sync.RWMutex
	groups     map[string]*models.Group
	activities []*models.Activity
}

// New returns an empty Store.
func New() *Store {
	return &Store{
		edges:       make(map[edgeKey]decimal.Decimal),
		expenses:    make(map[string]*models.Expense),
		obligations: make(map[string]*models.Obligation),
		settlements: make(map[string]*models.Settlement),
		groups:      make(map[string]*models.Group),
	}
}

func (s *Store) Close() error { return nil }

// WithTx runs fn while holding the store lock. Every mutation registers an
// undo step that is replayed in reverse if fn fails.
func (s *Store) WithTx(ctx context.Context, fn func(tx storage.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.txMu.Lock()
	defer s.txMu.Unlock()

	t := &tx{s: s}
	if err := fn(t); err != nil {
		for i := len(t.undo) - 1; i >= 0; i-- {
			t.undo[i]()
		}
		return err
	}
	return nil
}

type tx struct {
	s    *Store
	undo []func()
}

func (t *tx) FindEdge(_ context.Context, a, b string) (*models.BalanceEdge, error) {
	fwd, hasFwd := t.s.edges[edgeKey{a, b}]
	rev, hasRev := t.s.edges[edgeKey{b, a}]
	switch {
	case hasFwd && hasRev:
		return nil, fmt.Errorf("%w: %s <-> %s", storage.ErrDuplicateEdge, a, b)
	case hasFwd:
		return &models.BalanceEdge{Debtor: a, Creditor: b, Amount: fwd}, nil
	case hasRev:
		return &models.BalanceEdge{Debtor: b, Creditor: a, Amount: rev}, nil
	}
	return nil, nil
}

func (t *tx) PutEdge(_ context.Context, edge models.BalanceEdge) error {
	key := edgeKey{edge.Debtor, edge.Creditor}
	prev, existed := t.s.edges[key]
	t.s.edges[key] = edge.Amount
	t.undo = append(t.undo, func() {
		if existed {
			t.s.edges[key] = prev
		} else {
			delete(t.s.edges, key)
		}
	})
	return nil
}

func (t *tx) DeleteEdge(_ context.Context, debtor, creditor string) error {
	key := edgeKey{debtor, creditor}
	prev, existed := t.s.edges[key]
	if !existed {
		return nil
	}
	delete(t.s.edges, key)
	t.undo = append(t.undo, func() { t.s.edges[key] = prev })
	return nil
}

func (t *tx) ListEdges(_ context.Context, user string) ([]models.BalanceEdge, error) {
	var edges []models.BalanceEdge
	for k, amt := range t.s.edges {
		if k.debtor == user || k.creditor == user {
			edges = append(edges, models.BalanceEdge{Debtor: k.debtor, Creditor: k.creditor, Amount: amt})
		}
	}
	sort.Slice(edges, func(i, j int) bool {
		if edges[i].Debtor != edges[j].Debtor {
			return edges[i].Debtor < edges[j].Debtor
		}
		return edges[i].Creditor < edges[j].Creditor
	})
	return edges, nil
}

func (t *tx) CreateExpense(_ context.Context, expense *models.Expense) error {
	if _, exists := t.s.expenses[expense.ID]; exists {
		return fmt.Errorf("expense already exists: %s", expense.ID)
	}
	stored := *expense
	stored.Obligations = nil
	t.s.expenses[expense.ID] = &stored

	ids := make([]string, 0, len(expense.Obligations))
	for _, o := range expense.Obligations {
		o := o
		t.s.obligations[o.ID] = &o
		ids = append(ids, o.ID)
	}
	t.undo = append(t.undo, func() {
		delete(t.s.expenses, expense.ID)
		for _, id := range ids {
			delete(t.s.obligations, id)
		}
	})
	return nil
}

func (t *tx) GetExpense(_ context.Context, expenseID string) (*models.Expense, error) {
	exp, ok := t.s.expenses[expenseID]
	if !ok {
		return nil, fmt.Errorf("expense %s: %w", expenseID, storage.ErrNotFound)
	}
	return t.withObligations(exp), nil
}

func (t *tx) withObligations(exp *models.Expense) *models.Expense {
	out := *exp
	out.Obligations = nil
	for _, o := range t.s.obligations {
		if o.ExpenseID == exp.ID {
			out.Obligations = append(out.Obligations, *o)
		}
	}
	sort.Slice(out.Obligations, func(i, j int) bool {
		return out.Obligations[i].ID < out.Obligations[j].ID
	})
	return &out
}

func (t *tx) UpdateExpenseDetails(_ context.Context, expenseID, description, category string) error {
	exp, ok := t.s.expenses[expenseID]
	if !ok {
		return fmt.Errorf("expense %s: %w", expenseID, storage.ErrNotFound)
	}
	prevDesc, prevCat := exp.Description, exp.Category
	exp.Description, exp.Category = description, category
	t.undo = append(t.undo, func() { exp.Description, exp.Category = prevDesc, prevCat })
	return nil
}

func (t *tx) DeleteExpense(_ context.Context, expenseID string) error {
	exp, ok := t.s.expenses[expenseID]
	if !ok {
		return fmt.Errorf("expense %s: %w", expenseID, storage.ErrNotFound)
	}
	removed := make(map[string]*models.Obligation)
	for id, o := range t.s.obligations {
		if o.ExpenseID == expenseID {
			removed[id] = o
			delete(t.s.obligations, id)
		}
	}
	delete(t.s.expenses, expenseID)
	t.undo = append(t.undo, func() {
		t.s.expenses[expenseID] = exp
		for id, o := range removed {
			t.s.obligations[id] = o
		}
	})
	return nil
}

func (t *tx) ListExpensesByGroup(_ context.Context, groupID string) ([]*models.Expense, error) {
	return t.listExpenses(func(exp *models.Expense) bool { return exp.GroupID == groupID }), nil
}

func (t *tx) ListExpensesByPayer(_ context.Context, payer string) ([]*models.Expense, error) {
	return t.listExpenses(func(exp *models.Expense) bool { return exp.Payer == payer }), nil
}

func (t *tx) listExpenses(match func(*models.Expense) bool) []*models.Expense {
	var out []*models.Expense
	for _, exp := range t.s.expenses {
		if match(exp) {
			out = append(out, t.withObligations(exp))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func (t *tx) ListOpenObligations(_ context.Context, groupID, user string) ([]models.Obligation, error) {
	var out []models.Obligation
	for _, o := range t.s.obligations {
		if o.OwedBy != user {
			continue
		}
		exp, ok := t.s.expenses[o.ExpenseID]
		if !ok || exp.GroupID != groupID {
			continue
		}
		out = append(out, *o)
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if !a.ExpenseCreatedAt.Equal(b.ExpenseCreatedAt) {
			return a.ExpenseCreatedAt.Before(b.ExpenseCreatedAt)
		}
		if a.ExpenseID != b.ExpenseID {
			return a.ExpenseID < b.ExpenseID
		}
		return a.ID < b.ID
	})
	return out, nil
}

func (t *tx) UpdateObligationAmount(_ context.Context, obligationID string, amount decimal.Decimal) error {
	o, ok := t.s.obligations[obligationID]
	if !ok {
		return fmt.Errorf("obligation %s: %w", obligationID, storage.ErrNotFound)
	}
	prev := o.Amount
	o.Amount = amount
	t.undo = append(t.undo, func() { o.Amount = prev })
	return nil
}

func (t *tx) DeleteObligation(_ context.Context, obligationID string) error {
	o, ok := t.s.obligations[obligationID]
	if !ok {
		return fmt.Errorf("obligation %s: %w", obligationID, storage.ErrNotFound)
	}
	delete(t.s.obligations, obligationID)
	t.undo = append(t.undo, func() { t.s.obligations[obligationID] = o })
	return nil
}

func (t *tx) CreateSettlement(_ context.Context, settlement *models.Settlement) error {
	if _, exists := t.s.settlements[settlement.ID]; exists {
		return fmt.Errorf("settlement already exists: %s", settlement.ID)
	}
	stored := *settlement
	t.s.settlements[settlement.ID] = &stored
	t.undo = append(t.undo, func() { delete(t.s.settlements, settlement.ID) })
	return nil
}

func (t *tx) GetSettlement(_ context.Context, settlementID string) (*models.Settlement, error) {
	st, ok := t.s.settlements[settlementID]
	if !ok {
		return nil, fmt.Errorf("settlement %s: %w", settlementID, storage.ErrNotFound)
	}
	out := *st
	return &out, nil
}

func (t *tx) MarkSettlementVerified(_ context.Context, settlementID, verifiedBy string, at time.Time) error {
	st, ok := t.s.settlements[settlementID]
	if !ok {
		return fmt.Errorf("settlement %s: %w", settlementID, storage.ErrNotFound)
	}
	prev := *st
	st.Verified, st.VerifiedBy, st.VerifiedAt = true, verifiedBy, at
	t.undo = append(t.undo, func() { *st = prev })
	return nil
}

// Group directory

func (s *Store) CreateGroup(_ context.Context, group *models.Group) error {
	if group.ID == "" {
		group.ID = models.NewID(models.PrefixGroup)
	}
	if group.CreatedAt.IsZero() {
		group.CreatedAt = time.Now()
	}
	s.dirMu.Lock()
	defer s.dirMu.Unlock()
	if _, exists := s.groups[group.ID]; exists {
		return fmt.Errorf("group already exists: %s", group.ID)
	}
	stored := *group
	stored.Members = append([]string(nil), group.Members...)
	s.groups[group.ID] = &stored
	return nil
}

func (s *Store) GetGroup(_ context.Context, groupID string) (*models.Group, error) {
	s.dirMu.RLock()
	defer s.dirMu.RUnlock()
	g, ok := s.groups[groupID]
	if !ok {
		return nil, fmt.Errorf("group %s: %w", groupID, storage.ErrNotFound)
	}
	out := *g
	out.Members = append([]string(nil), g.Members...)
	return &out, nil
}

func (s *Store) AddGroupMembers(_ context.Context, groupID string, members []string) error {
	s.dirMu.Lock()
	defer s.dirMu.Unlock()
	g, ok := s.groups[groupID]
	if !ok {
		return fmt.Errorf("group %s: %w", groupID, storage.ErrNotFound)
	}
	for _, m := range members {
		if !g.HasMember(m) {
			g.Members = append(g.Members, m)
		}
	}
	return nil
}

func (s *Store) IsGroupMember(_ context.Context, groupID, user string) (bool, error) {
	s.dirMu.RLock()
	defer s.dirMu.RUnlock()
	g, ok := s.groups[groupID]
	if !ok {
		return false, fmt.Errorf("group %s: %w", groupID, storage.ErrNotFound)
	}
	return g.HasMember(user), nil
}

// Activity feed

func (s *Store) CreateActivity(_ context.Context, activity *models.Activity) error {
	if activity.ID == "" {
		activity.ID = models.NewID(models.PrefixActivity)
	}
	if activity.CreatedAt.IsZero() {
		activity.CreatedAt = time.Now()
	}
	s.dirMu.Lock()
	defer s.dirMu.Unlock()
	stored := *activity
	s.activities = append(s.activities, &stored)
	return nil
}

func (s *Store) ListActivities(_ context.Context, user string, unreadOnly bool) ([]*models.Activity, error) {
	s.dirMu.RLock()
	defer s.dirMu.RUnlock()
	var out []*models.Activity
	for _, a := range s.activities {
		if a.UserID != user || (unreadOnly && a.Read) {
			continue
		}
		cp := *a
		out = append(out, &cp)
	}
	return out, nil
}

func (s *Store) MarkActivitiesRead(_ context.Context, user string, ids []string) error {
	want := make(map[string]bool, len(ids))
	for _, id := range ids {
		want[id] = true
	}
	s.dirMu.Lock()
	defer s.dirMu.Unlock()
	for _, a := range s.activities {
		if a.UserID == user && (len(ids) == 0 || want[a.ID]) {
			a.Read = true
		}
	}
	return nil
}
