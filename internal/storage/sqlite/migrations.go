package sqlite

import "database/sql"

// schema contains the SQL statements to set up the database schema.
// These run on startup to ensure tables exist.
// Amounts are stored as decimal TEXT, never REAL. Timestamps are unix nanoseconds
// so FIFO ordering survives expenses recorded within the same second.
const schema = `
CREATE TABLE IF NOT EXISTS groups (
    id TEXT PRIMARY KEY,
    name TEXT NOT NULL,
    created_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS group_members (
    group_id TEXT NOT NULL,
    user_id TEXT NOT NULL,
    PRIMARY KEY (group_id, user_id),
    FOREIGN KEY (group_id) REFERENCES groups(id) ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS expenses (
    id TEXT PRIMARY KEY,
    description TEXT NOT NULL DEFAULT '',
    category TEXT NOT NULL DEFAULT '',
    total_amount TEXT NOT NULL,
    payer TEXT NOT NULL,
    group_id TEXT,
    strategy TEXT NOT NULL,
    payer_share TEXT NOT NULL,
    created_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS obligations (
    id TEXT PRIMARY KEY,
    expense_id TEXT NOT NULL,
    owed_by TEXT NOT NULL,
    creditor TEXT NOT NULL,
    amount TEXT NOT NULL,
    FOREIGN KEY (expense_id) REFERENCES expenses(id) ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS balance_edges (
    debtor TEXT NOT NULL,
    creditor TEXT NOT NULL,
    amount TEXT NOT NULL,
    updated_at INTEGER NOT NULL,
    PRIMARY KEY (debtor, creditor),
    CHECK (debtor <> creditor)
);

CREATE TABLE IF NOT EXISTS settlements (
    id TEXT PRIMARY KEY,
    kind TEXT NOT NULL,
    payer TEXT NOT NULL,
    counterparty TEXT,
    group_id TEXT,
    amount TEXT NOT NULL,
    note TEXT,
    verified INTEGER NOT NULL DEFAULT 0,
    verified_by TEXT,
    verified_at INTEGER,
    created_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS activities (
    id TEXT PRIMARY KEY,
    user_id TEXT NOT NULL,
    action TEXT NOT NULL,
    description TEXT NOT NULL,
    is_read INTEGER NOT NULL DEFAULT 0,
    created_at INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_group_members_group_id ON group_members(group_id);
CREATE INDEX IF NOT EXISTS idx_expenses_group_id ON expenses(group_id, created_at);
CREATE INDEX IF NOT EXISTS idx_expenses_payer ON expenses(payer, created_at);
CREATE INDEX IF NOT EXISTS idx_obligations_expense_id ON obligations(expense_id);
CREATE INDEX IF NOT EXISTS idx_obligations_owed_by ON obligations(owed_by);
CREATE INDEX IF NOT EXISTS idx_balance_edges_creditor ON balance_edges(creditor);
CREATE INDEX IF NOT EXISTS idx_activities_user_id ON activities(user_id, is_read);
`

// runMigrations executes the schema setup.
func runMigrations(db *sql.DB) error {
	_, err := db.Exec(schema)
	return err
}
