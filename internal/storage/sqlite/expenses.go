package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/mmynk/splitledger/internal/models"
	"github.com/mmynk/splitledger/internal/storage"
)

const expenseColumns = `id, description, category, total_amount, payer, group_id, strategy, payer_share, created_at`

// CreateExpense persists an expense and its obligations.
func (t *txStore) CreateExpense(ctx context.Context, expense *models.Expense) error {
	_, err := t.tx.ExecContext(ctx,
		`INSERT INTO expenses (`+expenseColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		expense.ID, expense.Description, expense.Category, expense.TotalAmount.String(),
		expense.Payer, nullable(expense.GroupID), string(expense.Strategy),
		expense.PayerShare.String(), toNanos(expense.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to insert expense: %w", err)
	}

	stmt, err := t.tx.PrepareContext(ctx,
		`INSERT INTO obligations (id, expense_id, owed_by, creditor, amount) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare obligation insert: %w", err)
	}
	defer stmt.Close()

	for _, o := range expense.Obligations {
		if _, err := stmt.ExecContext(ctx, o.ID, expense.ID, o.OwedBy, o.Creditor, o.Amount.String()); err != nil {
			return fmt.Errorf("failed to insert obligation: %w", err)
		}
	}
	return nil
}

func scanExpense(row scanner) (*models.Expense, error) {
	exp := &models.Expense{}
	var groupID sql.NullString
	var strategy string
	var createdAt int64
	if err := row.Scan(&exp.ID, &exp.Description, &exp.Category, &exp.TotalAmount, &exp.Payer,
		&groupID, &strategy, &exp.PayerShare, &createdAt); err != nil {
		return nil, err
	}
	exp.GroupID = groupID.String
	exp.Strategy = models.SplitStrategy(strategy)
	exp.CreatedAt = fromNanos(createdAt)
	return exp, nil
}

// GetExpense retrieves an expense with its open obligations.
func (t *txStore) GetExpense(ctx context.Context, expenseID string) (*models.Expense, error) {
	exp, err := scanExpense(t.tx.QueryRowContext(ctx,
		`SELECT `+expenseColumns+` FROM expenses WHERE id = ?`, expenseID))
	if err != nil {
		return nil, notFound(err, "expense", expenseID)
	}

	obligations, err := t.queryObligations(ctx,
		`SELECT o.id, o.expense_id, o.owed_by, o.creditor, o.amount, e.created_at
		 FROM obligations o JOIN expenses e ON e.id = o.expense_id
		 WHERE o.expense_id = ? ORDER BY o.id`, expenseID)
	if err != nil {
		return nil, err
	}
	exp.Obligations = obligations
	return exp, nil
}

// UpdateExpenseDetails changes the description and category of an expense.
func (t *txStore) UpdateExpenseDetails(ctx context.Context, expenseID, description, category string) error {
	res, err := t.tx.ExecContext(ctx,
		"UPDATE expenses SET description = ?, category = ? WHERE id = ?",
		description, category, expenseID)
	if err != nil {
		return fmt.Errorf("failed to update expense: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("expense %s: %w", expenseID, storage.ErrNotFound)
	}
	return nil
}

// DeleteExpense removes an expense. Obligations are deleted via CASCADE.
func (t *txStore) DeleteExpense(ctx context.Context, expenseID string) error {
	res, err := t.tx.ExecContext(ctx, "DELETE FROM expenses WHERE id = ?", expenseID)
	if err != nil {
		return fmt.Errorf("failed to delete expense: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("expense %s: %w", expenseID, storage.ErrNotFound)
	}
	return nil
}

// ListExpensesByGroup returns a group's expenses with their open obligations, oldest first.
func (t *txStore) ListExpensesByGroup(ctx context.Context, groupID string) ([]*models.Expense, error) {
	return t.listExpenses(ctx, "group_id", groupID)
}

// ListExpensesByPayer returns every expense payer paid for, personal and
// group alike, with open obligations, oldest first.
func (t *txStore) ListExpensesByPayer(ctx context.Context, payer string) ([]*models.Expense, error) {
	return t.listExpenses(ctx, "payer", payer)
}

// listExpenses loads the expenses whose column equals value, then attaches
// their obligations in a second query. column is never user input.
func (t *txStore) listExpenses(ctx context.Context, column, value string) ([]*models.Expense, error) {
	rows, err := t.tx.QueryContext(ctx,
		`SELECT `+expenseColumns+` FROM expenses WHERE `+column+` = ? ORDER BY created_at, id`, value)
	if err != nil {
		return nil, fmt.Errorf("failed to list expenses by %s: %w", column, err)
	}

	var expenses []*models.Expense
	byID := make(map[string]*models.Expense)
	for rows.Next() {
		exp, err := scanExpense(rows)
		if err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan expense: %w", err)
		}
		expenses = append(expenses, exp)
		byID[exp.ID] = exp
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, fmt.Errorf("failed to iterate expenses: %w", err)
	}
	rows.Close()

	obligations, err := t.queryObligations(ctx,
		`SELECT o.id, o.expense_id, o.owed_by, o.creditor, o.amount, e.created_at
		 FROM obligations o JOIN expenses e ON e.id = o.expense_id
		 WHERE e.`+column+` = ? ORDER BY o.id`, value)
	if err != nil {
		return nil, err
	}
	for _, o := range obligations {
		if exp, ok := byID[o.ExpenseID]; ok {
			exp.Obligations = append(exp.Obligations, o)
		}
	}
	return expenses, nil
}

// ListOpenObligations returns what user owes within a group, oldest expense first.
func (t *txStore) ListOpenObligations(ctx context.Context, groupID, user string) ([]models.Obligation, error) {
	return t.queryObligations(ctx,
		`SELECT o.id, o.expense_id, o.owed_by, o.creditor, o.amount, e.created_at
		 FROM obligations o JOIN expenses e ON e.id = o.expense_id
		 WHERE e.group_id = ? AND o.owed_by = ?
		 ORDER BY e.created_at, e.id, o.id`, groupID, user)
}

func (t *txStore) queryObligations(ctx context.Context, query string, args ...any) ([]models.Obligation, error) {
	rows, err := t.tx.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query obligations: %w", err)
	}
	defer rows.Close()

	var obligations []models.Obligation
	for rows.Next() {
		var o models.Obligation
		var createdAt int64
		if err := rows.Scan(&o.ID, &o.ExpenseID, &o.OwedBy, &o.Creditor, &o.Amount, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan obligation: %w", err)
		}
		o.ExpenseCreatedAt = fromNanos(createdAt)
		obligations = append(obligations, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate obligations: %w", err)
	}
	return obligations, nil
}

// UpdateObligationAmount sets the remaining amount of an obligation.
func (t *txStore) UpdateObligationAmount(ctx context.Context, obligationID string, amount decimal.Decimal) error {
	res, err := t.tx.ExecContext(ctx,
		"UPDATE obligations SET amount = ? WHERE id = ?", amount.String(), obligationID)
	if err != nil {
		return fmt.Errorf("failed to update obligation: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("obligation %s: %w", obligationID, storage.ErrNotFound)
	}
	return nil
}

// DeleteObligation removes a fully settled obligation.
func (t *txStore) DeleteObligation(ctx context.Context, obligationID string) error {
	res, err := t.tx.ExecContext(ctx, "DELETE FROM obligations WHERE id = ?", obligationID)
	if err != nil {
		return fmt.Errorf("failed to delete obligation: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("obligation %s: %w", obligationID, storage.ErrNotFound)
	}
	return nil
}
