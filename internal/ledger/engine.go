package ledger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mmynk/splitledger/internal/calculator"
	"github.com/mmynk/splitledger/internal/lock"
	"github.com/mmynk/splitledger/internal/models"
	"github.com/mmynk/splitledger/internal/storage"
	"github.com/mmynk/splitledger/pkg/money"
)

// Notifier delivers activity events. Implementations must not block; the
// engine only logs their errors.
type Notifier interface {
	Notify(ctx context.Context, userID, action, description string) error
}

// GroupDirectory answers membership questions. Group management itself is
// not the engine's concern.
type GroupDirectory interface {
	IsGroupMember(ctx context.Context, groupID, user string) (bool, error)
}

type nopNotifier struct{}

func (nopNotifier) Notify(context.Context, string, string, string) error { return nil }

// Engine orchestrates expense recording, settlement and verification.
type Engine struct {
	store     storage.Store
	locker    lock.Locker
	groups    GroupDirectory
	notifier  Notifier
	logger    *slog.Logger
	now       func() time.Time
	balances  BalanceLedger
	allocator SettlementAllocator
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the engine's logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) { e.logger = logger }
}

// WithNotifier sets where activity events are sent.
func WithNotifier(n Notifier) Option {
	return func(e *Engine) { e.notifier = n }
}

// WithGroups overrides the group directory. By default the store is used.
func WithGroups(g GroupDirectory) Option {
	return func(e *Engine) { e.groups = g }
}

// WithClock overrides time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// NewEngine creates an Engine on top of store, serializing conflicting work
// through locker.
func NewEngine(store storage.Store, locker lock.Locker, opts ...Option) *Engine {
	e := &Engine{
		store:    store,
		locker:   locker,
		groups:   store,
		notifier: nopNotifier{},
		logger:   slog.Default(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// ExpenseInput is a request to record an expense.
type ExpenseInput struct {
	Description  string
	Category     string
	TotalAmount  decimal.Decimal
	Payer        string
	GroupID      string // empty for a personal expense
	Participants []string
	Strategy     models.SplitStrategy
	Params       calculator.Params
}

// SettlementInput is a request to record a payment. Exactly one of
// Counterparty and GroupID is set.
type SettlementInput struct {
	Payer        string
	Counterparty string
	GroupID      string
	Amount       decimal.Decimal
	Note         string
}

// SettlementResult is a committed settlement and what it changed.
type SettlementResult struct {
	Settlement *models.Settlement
	// Edge is the remaining pairwise edge, nil once the pair is settled.
	// Always nil for group settlements.
	Edge *models.BalanceEdge
	// Changes lists the obligations a group settlement touched, oldest first.
	Changes []ObligationChange
}

// RecordExpense splits an expense, stores it and, for personal expenses,
// nets every obligation into the balance graph.
func (e *Engine) RecordExpense(ctx context.Context, in ExpenseInput) (*models.Expense, error) {
	const op = "record_expense"

	exp, err := e.buildExpense(ctx, in)
	if err != nil {
		return nil, e.fail(op, err)
	}

	err = e.withKeys(ctx, expenseKeys(exp), func() error {
		return e.store.WithTx(ctx, func(tx storage.Tx) error {
			if err := tx.CreateExpense(ctx, exp); err != nil {
				return fmt.Errorf("failed to create expense: %w", err)
			}
			if !exp.IsPersonal() {
				return nil
			}
			for _, o := range exp.Obligations {
				if _, err := e.balances.ApplyObligation(ctx, tx, o.OwedBy, o.Creditor, o.Amount); err != nil {
					return err
				}
			}
			return nil
		})
	})
	if err != nil {
		return nil, e.fail(op, err)
	}

	expensesRecorded.WithLabelValues(expenseKind(exp.IsPersonal())).Inc()
	e.logger.Info("Expense recorded",
		"expense_id", exp.ID,
		"payer", exp.Payer,
		"group_id", exp.GroupID,
		"total", money.Format(exp.TotalAmount),
		"obligations", len(exp.Obligations),
	)

	label := expenseLabel(exp)
	e.notify(ctx, exp.Payer, models.ActionExpensePaid,
		fmt.Sprintf("You paid %s for %s.", money.Format(exp.TotalAmount), label))
	for _, o := range exp.Obligations {
		e.notify(ctx, o.OwedBy, models.ActionExpenseOwed,
			fmt.Sprintf("You owe %s %s for %s.", exp.Payer, money.Format(o.Amount), label))
	}

	return exp, nil
}

func (e *Engine) buildExpense(ctx context.Context, in ExpenseInput) (*models.Expense, error) {
	if in.Payer == "" {
		return nil, fmt.Errorf("%w: payer is required", ErrInvalidInput)
	}
	strategy := in.Strategy
	if strategy == "" {
		strategy = models.SplitEqual
	}

	shares, err := calculator.Compute(in.TotalAmount, in.Participants, strategy, in.Params)
	if err != nil {
		return nil, err
	}

	if in.GroupID != "" {
		if err := e.requireMember(ctx, in.GroupID, in.Payer); err != nil {
			return nil, err
		}
		for _, p := range in.Participants {
			ok, err := e.groups.IsGroupMember(ctx, in.GroupID, p)
			if err != nil {
				return nil, fmt.Errorf("failed to check group membership: %w", err)
			}
			if !ok {
				return nil, fmt.Errorf("%w: participant %s is not in group %s", ErrInvalidInput, p, in.GroupID)
			}
		}
	}

	exp := &models.Expense{
		ID:          models.NewID(models.PrefixExpense),
		Description: in.Description,
		Category:    in.Category,
		TotalAmount: in.TotalAmount,
		Payer:       in.Payer,
		GroupID:     in.GroupID,
		Strategy:    strategy,
		PayerShare:  decimal.Zero,
		CreatedAt:   e.now().UTC(),
	}
	for _, s := range shares {
		if s.UserID == in.Payer {
			exp.PayerShare = s.Amount
			continue
		}
		// A zero share owes nothing and creates no obligation.
		if !s.Amount.IsPositive() {
			continue
		}
		exp.Obligations = append(exp.Obligations, models.Obligation{
			ID:               models.NewID(models.PrefixObligation),
			ExpenseID:        exp.ID,
			OwedBy:           s.UserID,
			Creditor:         in.Payer,
			Amount:           s.Amount,
			ExpenseCreatedAt: exp.CreatedAt,
		})
	}

	if !exp.OutstandingAmount().Add(exp.PayerShare).Equal(exp.TotalAmount) {
		return nil, fmt.Errorf("%w: obligations do not conserve the total", ErrLedgerInvariant)
	}
	return exp, nil
}

// DeleteExpense removes an expense. Only the payer may delete it.
//
// A personal expense has each of its obligations retracted from the balance
// graph, so money already settled against it turns into a debt the payer owes
// back. A group expense simply loses its open obligations.
func (e *Engine) DeleteExpense(ctx context.Context, expenseID, actor string) error {
	const op = "delete_expense"

	exp, err := e.loadExpense(ctx, expenseID)
	if err != nil {
		return e.fail(op, err)
	}
	if exp.Payer != actor {
		return e.fail(op, fmt.Errorf("%w: only the payer can delete expense %s", ErrForbidden, expenseID))
	}

	err = e.withKeys(ctx, expenseKeys(exp), func() error {
		return e.store.WithTx(ctx, func(tx storage.Tx) error {
			current, err := tx.GetExpense(ctx, expenseID)
			if err != nil {
				return err
			}
			if current.IsPersonal() {
				for _, o := range current.Obligations {
					if _, err := e.balances.RemoveObligation(ctx, tx, o.OwedBy, o.Creditor, o.Amount); err != nil {
						return err
					}
				}
			}
			if err := tx.DeleteExpense(ctx, expenseID); err != nil {
				return fmt.Errorf("failed to delete expense: %w", err)
			}
			return nil
		})
	})
	if err != nil {
		return e.fail(op, err)
	}

	expensesDeleted.WithLabelValues(expenseKind(exp.IsPersonal())).Inc()
	e.logger.Info("Expense deleted", "expense_id", expenseID, "payer", exp.Payer)

	label := expenseLabel(exp)
	for _, o := range exp.Obligations {
		e.notify(ctx, o.OwedBy, models.ActionExpenseDeleted,
			fmt.Sprintf("%s deleted %s.", exp.Payer, label))
	}
	return nil
}

// UpdateExpenseDetails changes an expense's description and category.
// Amounts and participants are immutable.
func (e *Engine) UpdateExpenseDetails(ctx context.Context, expenseID, actor, description, category string) (*models.Expense, error) {
	const op = "update_expense"

	var updated *models.Expense
	err := e.store.WithTx(ctx, func(tx storage.Tx) error {
		exp, err := tx.GetExpense(ctx, expenseID)
		if err != nil {
			return err
		}
		if exp.Payer != actor {
			return fmt.Errorf("%w: only the payer can edit expense %s", ErrForbidden, expenseID)
		}
		if err := tx.UpdateExpenseDetails(ctx, expenseID, description, category); err != nil {
			return fmt.Errorf("failed to update expense: %w", err)
		}
		exp.Description, exp.Category = description, category
		updated = exp
		return nil
	})
	if err != nil {
		return nil, e.fail(op, err)
	}
	return updated, nil
}

// RecordSettlement applies a payment to a pairwise edge or to a group's
// obligations and stores the pending settlement.
func (e *Engine) RecordSettlement(ctx context.Context, in SettlementInput) (*SettlementResult, error) {
	const op = "record_settlement"

	if err := validateSettlement(in); err != nil {
		return nil, e.fail(op, err)
	}

	var (
		result *SettlementResult
		err    error
	)
	if in.GroupID != "" {
		result, err = e.settleGroup(ctx, in)
	} else {
		result, err = e.settlePairwise(ctx, in, false)
	}
	if err != nil {
		return nil, e.fail(op, err)
	}
	return result, nil
}

func validateSettlement(in SettlementInput) error {
	switch {
	case in.Payer == "":
		return fmt.Errorf("%w: payer is required", ErrInvalidInput)
	case (in.Counterparty == "") == (in.GroupID == ""):
		return fmt.Errorf("%w: exactly one of counterparty and group is required", ErrInvalidInput)
	case in.Counterparty == in.Payer:
		return fmt.Errorf("%w: cannot settle with yourself", ErrInvalidInput)
	case !in.Amount.IsPositive() || !money.IsExact(in.Amount):
		return fmt.Errorf("%w: amount must be positive with at most two decimal places", ErrInvalidInput)
	}
	return nil
}

// settlePairwise runs a pairwise settlement. With full set, Amount is
// ignored and whatever payer owes on the edge at lock time is paid.
func (e *Engine) settlePairwise(ctx context.Context, in SettlementInput, full bool) (*SettlementResult, error) {
	result := &SettlementResult{}
	err := e.withKeys(ctx, []string{lock.PairKey(in.Payer, in.Counterparty)}, func() error {
		return e.store.WithTx(ctx, func(tx storage.Tx) error {
			amount := in.Amount
			if full {
				edge, err := tx.FindEdge(ctx, in.Payer, in.Counterparty)
				if err != nil {
					return fmt.Errorf("failed to read balance edge: %w", err)
				}
				if edge == nil {
					return fmt.Errorf("%w between %s and %s", ErrNoOutstandingBalance, in.Payer, in.Counterparty)
				}
				amount = edge.Amount
			}

			edge, err := e.allocator.SettlePairwise(ctx, tx, in.Payer, in.Counterparty, amount)
			if err != nil {
				return err
			}

			st := &models.Settlement{
				ID:           models.NewID(models.PrefixSettlement),
				Kind:         models.SettlementPairwise,
				Payer:        in.Payer,
				Counterparty: in.Counterparty,
				Amount:       amount,
				Note:         in.Note,
				CreatedAt:    e.now().UTC(),
			}
			if err := tx.CreateSettlement(ctx, st); err != nil {
				return fmt.Errorf("failed to create settlement: %w", err)
			}
			result.Settlement = st
			result.Edge = edge
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	st := result.Settlement
	settlementsRecorded.WithLabelValues(string(st.Kind)).Inc()
	e.logger.Info("Settlement recorded",
		"settlement_id", st.ID,
		"payer", st.Payer,
		"counterparty", st.Counterparty,
		"amount", money.Format(st.Amount),
		"settled", result.Edge == nil,
	)

	e.notify(ctx, st.Payer, models.ActionSettlementPaid,
		fmt.Sprintf("You settled %s with %s.", money.Format(st.Amount), st.Counterparty))
	e.notify(ctx, st.Counterparty, models.ActionSettlementReceived,
		fmt.Sprintf("%s settled %s with you.", st.Payer, money.Format(st.Amount)))

	return result, nil
}

func (e *Engine) settleGroup(ctx context.Context, in SettlementInput) (*SettlementResult, error) {
	if err := e.requireMember(ctx, in.GroupID, in.Payer); err != nil {
		return nil, err
	}

	result := &SettlementResult{}
	err := e.withKeys(ctx, []string{lock.GroupKey(in.GroupID)}, func() error {
		return e.store.WithTx(ctx, func(tx storage.Tx) error {
			changes, err := e.allocator.SettleGroup(ctx, tx, in.Payer, in.GroupID, in.Amount)
			if err != nil {
				return err
			}

			st := &models.Settlement{
				ID:        models.NewID(models.PrefixSettlement),
				Kind:      models.SettlementGroup,
				Payer:     in.Payer,
				GroupID:   in.GroupID,
				Amount:    in.Amount,
				Note:      in.Note,
				CreatedAt: e.now().UTC(),
			}
			if err := tx.CreateSettlement(ctx, st); err != nil {
				return fmt.Errorf("failed to create settlement: %w", err)
			}
			result.Settlement = st
			result.Changes = changes
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	st := result.Settlement
	settlementsRecorded.WithLabelValues(string(st.Kind)).Inc()
	e.logger.Info("Group settlement recorded",
		"settlement_id", st.ID,
		"payer", st.Payer,
		"group_id", st.GroupID,
		"amount", money.Format(st.Amount),
		"obligations_touched", len(result.Changes),
	)

	e.notify(ctx, st.Payer, models.ActionGroupSettlement,
		fmt.Sprintf("You settled %s in group %s.", money.Format(st.Amount), st.GroupID))

	paid := make(map[string]decimal.Decimal)
	var creditors []string
	for _, c := range result.Changes {
		if _, seen := paid[c.Creditor]; !seen {
			creditors = append(creditors, c.Creditor)
		}
		paid[c.Creditor] = paid[c.Creditor].Add(c.Paid())
	}
	for _, creditor := range creditors {
		e.notify(ctx, creditor, models.ActionSettlementReceived,
			fmt.Sprintf("%s settled %s with you in group %s.", st.Payer, money.Format(paid[creditor]), st.GroupID))
	}

	return result, nil
}

// VerifySettlement marks a settlement as acknowledged by its counterparty.
// Verifying an already verified settlement returns it unchanged.
func (e *Engine) VerifySettlement(ctx context.Context, settlementID, actor string) (*models.Settlement, error) {
	const op = "verify_settlement"

	st, err := e.loadSettlement(ctx, settlementID)
	if err != nil {
		return nil, e.fail(op, err)
	}
	if err := e.authorizeVerification(ctx, st, actor); err != nil {
		return nil, e.fail(op, err)
	}

	changed := false
	err = e.store.WithTx(ctx, func(tx storage.Tx) error {
		current, err := tx.GetSettlement(ctx, settlementID)
		if err != nil {
			return err
		}
		if current.Verified {
			st = current
			return nil
		}
		at := e.now().UTC()
		if err := tx.MarkSettlementVerified(ctx, settlementID, actor, at); err != nil {
			return fmt.Errorf("failed to verify settlement: %w", err)
		}
		current.Verified, current.VerifiedBy, current.VerifiedAt = true, actor, at
		st = current
		changed = true
		return nil
	})
	if err != nil {
		return nil, e.fail(op, err)
	}

	if changed {
		settlementsVerified.Inc()
		e.logger.Info("Settlement verified", "settlement_id", st.ID, "verified_by", actor)
		e.notify(ctx, st.Payer, models.ActionSettlementVerified,
			fmt.Sprintf("%s verified your payment of %s.", actor, money.Format(st.Amount)))
	}
	return st, nil
}

// Balance returns the single edge between a and b.
// A settled pair reports ErrNoOutstandingBalance.
func (e *Engine) Balance(ctx context.Context, a, b string) (*models.BalanceEdge, error) {
	if a == "" || b == "" || a == b {
		return nil, fmt.Errorf("%w: balance needs two distinct users", ErrInvalidInput)
	}

	var edge *models.BalanceEdge
	err := e.store.WithTx(ctx, func(tx storage.Tx) error {
		var err error
		edge, err = tx.FindEdge(ctx, a, b)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to read balance: %w", err)
	}
	if edge == nil {
		return nil, fmt.Errorf("%w between %s and %s", ErrNoOutstandingBalance, a, b)
	}
	return edge, nil
}

// Summary folds every edge of user into totals and per-friend balances.
func (e *Engine) Summary(ctx context.Context, user string) (calculator.BalanceSummary, error) {
	var edges []models.BalanceEdge
	err := e.store.WithTx(ctx, func(tx storage.Tx) error {
		var err error
		edges, err = tx.ListEdges(ctx, user)
		return err
	})
	if err != nil {
		return calculator.BalanceSummary{}, fmt.Errorf("failed to list balances: %w", err)
	}
	return calculator.SummarizeBalances(user, edges), nil
}

// SettleAll pays off, in full, every edge on which user is the debtor. Each
// edge is its own transaction; edges that changed direction or disappeared in
// the meantime are skipped.
func (e *Engine) SettleAll(ctx context.Context, user string) ([]*SettlementResult, error) {
	const op = "settle_all"

	summary, err := e.Summary(ctx, user)
	if err != nil {
		return nil, e.fail(op, err)
	}

	var results []*SettlementResult
	for _, friend := range summary.Friends {
		if !friend.Amount.IsNegative() {
			continue
		}
		res, err := e.settlePairwise(ctx, SettlementInput{
			Payer:        user,
			Counterparty: friend.FriendID,
			Note:         "Settle all",
		}, true)
		if errors.Is(err, ErrNoOutstandingBalance) || errors.Is(err, ErrWrongDirection) {
			continue
		}
		if err != nil {
			return results, e.fail(op, err)
		}
		results = append(results, res)
	}

	if len(results) > 0 {
		e.notify(ctx, user, models.ActionSettleAll, "You settled all outstanding debts.")
	}
	return results, nil
}

// GroupExpenses lists a group's expenses with their open obligations.
func (e *Engine) GroupExpenses(ctx context.Context, groupID, actor string) ([]*models.Expense, error) {
	if err := e.requireMember(ctx, groupID, actor); err != nil {
		return nil, err
	}

	var expenses []*models.Expense
	err := e.store.WithTx(ctx, func(tx storage.Tx) error {
		var err error
		expenses, err = tx.ListExpensesByGroup(ctx, groupID)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list group expenses: %w", err)
	}
	return expenses, nil
}

// UserExpenses lists every expense user paid for, personal and group,
// oldest first.
func (e *Engine) UserExpenses(ctx context.Context, user string) ([]*models.Expense, error) {
	if user == "" {
		return nil, fmt.Errorf("%w: user is required", ErrInvalidInput)
	}

	var expenses []*models.Expense
	err := e.store.WithTx(ctx, func(tx storage.Tx) error {
		var err error
		expenses, err = tx.ListExpensesByPayer(ctx, user)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list user expenses: %w", err)
	}
	return expenses, nil
}

// GroupBalances reports what each member is owed or owes within a group and
// a set of transfers that would clear it.
func (e *Engine) GroupBalances(ctx context.Context, groupID, actor string) ([]calculator.MemberBalance, []calculator.Transfer, error) {
	expenses, err := e.GroupExpenses(ctx, groupID, actor)
	if err != nil {
		return nil, nil, err
	}
	balances, transfers := calculator.CalculateGroupBalances(expenses)
	return balances, transfers, nil
}

func (e *Engine) requireMember(ctx context.Context, groupID, user string) error {
	ok, err := e.groups.IsGroupMember(ctx, groupID, user)
	if err != nil {
		return fmt.Errorf("failed to check group membership: %w", err)
	}
	if !ok {
		return fmt.Errorf("%w: %s is not a member of group %s", ErrForbidden, user, groupID)
	}
	return nil
}

func (e *Engine) loadExpense(ctx context.Context, expenseID string) (*models.Expense, error) {
	var exp *models.Expense
	err := e.store.WithTx(ctx, func(tx storage.Tx) error {
		var err error
		exp, err = tx.GetExpense(ctx, expenseID)
		return err
	})
	return exp, err
}

func (e *Engine) loadSettlement(ctx context.Context, settlementID string) (*models.Settlement, error) {
	var st *models.Settlement
	err := e.store.WithTx(ctx, func(tx storage.Tx) error {
		var err error
		st, err = tx.GetSettlement(ctx, settlementID)
		return err
	})
	return st, err
}

// withKeys runs fn while holding keys.
func (e *Engine) withKeys(ctx context.Context, keys []string, fn func() error) error {
	start := time.Now()
	release, err := e.locker.Acquire(ctx, keys...)
	lockWait.Observe(time.Since(start).Seconds())
	if err != nil {
		return err
	}
	defer release()
	return fn()
}

// expenseKeys returns the lock keys an expense's obligations touch.
func expenseKeys(exp *models.Expense) []string {
	if !exp.IsPersonal() {
		return []string{lock.GroupKey(exp.GroupID)}
	}
	keys := make([]string, 0, len(exp.Obligations))
	for _, o := range exp.Obligations {
		keys = append(keys, lock.PairKey(o.OwedBy, o.Creditor))
	}
	return keys
}

func expenseLabel(exp *models.Expense) string {
	label := "an expense"
	if exp.Description != "" {
		label = fmt.Sprintf("%q", exp.Description)
	}
	if !exp.IsPersonal() {
		label += " in group " + exp.GroupID
	}
	return label
}

func (e *Engine) notify(ctx context.Context, userID, action, description string) {
	if err := e.notifier.Notify(ctx, userID, action, description); err != nil {
		e.logger.Warn("Failed to send notification", "user_id", userID, "action", action, "error", err)
	}
}

// fail records a rejected operation and returns err unchanged.
func (e *Engine) fail(op string, err error) error {
	reason := Reason(err)
	operationErrors.WithLabelValues(op, reason).Inc()
	if reason == ReasonInternal || reason == ReasonLedgerInvariant {
		e.logger.Error("Ledger operation failed", "operation", op, "reason", reason, "error", err)
	} else {
		e.logger.Warn("Ledger operation rejected", "operation", op, "reason", reason, "error", err)
	}
	return err
}
