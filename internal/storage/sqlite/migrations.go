package sqlite

import "database/sql"

// schema contains the SQL statements to set up the database schema.
// These run on startup to ensure tables exist.
// Parent tables are created before the tables that reference them.
//
// Money columns are TEXT holding decimal strings; timestamps are Unix seconds.
const schema = `
CREATE TABLE IF NOT EXISTS users (
    id TEXT PRIMARY KEY,
    email TEXT NOT NULL UNIQUE,
    display_name TEXT NOT NULL,
    password_hash TEXT NOT NULL,
    created_at INTEGER NOT NULL,
    updated_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS services (
    id TEXT PRIMARY KEY,
    owner_id TEXT NOT NULL,
    name TEXT NOT NULL,
    monthly_cost TEXT NOT NULL,
    billing_day INTEGER NOT NULL CHECK (billing_day BETWEEN 1 AND 31),
    split_type TEXT NOT NULL CHECK (split_type IN ('equal', 'custom')),
    status TEXT NOT NULL CHECK (status IN ('active', 'paused')),
    created_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS members (
    id TEXT PRIMARY KEY,
    owner_id TEXT NOT NULL,
    name TEXT NOT NULL,
    email TEXT,
    phone TEXT,
    user_id TEXT,
    created_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS service_memberships (
    service_id TEXT NOT NULL,
    member_id TEXT NOT NULL,
    custom_amount TEXT,
    active INTEGER NOT NULL DEFAULT 1,
    created_at INTEGER NOT NULL,
    PRIMARY KEY (service_id, member_id),
    FOREIGN KEY (service_id) REFERENCES services(id),
    FOREIGN KEY (member_id) REFERENCES members(id)
);

CREATE TABLE IF NOT EXISTS billing_cycles (
    id TEXT PRIMARY KEY,
    service_id TEXT NOT NULL,
    period_start INTEGER NOT NULL,
    period_end INTEGER NOT NULL,
    total_amount TEXT NOT NULL,
    created_at INTEGER NOT NULL,
    UNIQUE (service_id, period_start),
    FOREIGN KEY (service_id) REFERENCES services(id)
);

CREATE TABLE IF NOT EXISTS payments (
    id TEXT PRIMARY KEY,
    cycle_id TEXT NOT NULL,
    service_id TEXT NOT NULL,
    member_id TEXT NOT NULL,
    amount_due TEXT NOT NULL,
    amount_paid TEXT NOT NULL,
    accumulated_debt TEXT NOT NULL,
    status TEXT NOT NULL,
    due_date INTEGER NOT NULL,
    paid_at INTEGER,
    confirmed_at INTEGER,
    requires_confirmation INTEGER NOT NULL DEFAULT 0,
    shortfall_carried TEXT NOT NULL DEFAULT '0',
    debt_carried INTEGER NOT NULL DEFAULT 0,
    cancel_reason TEXT,
    claim_prior_status TEXT,
    claim_prior_amount TEXT,
    claim_prior_paid_at INTEGER,
    version INTEGER NOT NULL DEFAULT 1,
    created_at INTEGER NOT NULL,
    updated_at INTEGER NOT NULL,
    FOREIGN KEY (cycle_id) REFERENCES billing_cycles(id),
    FOREIGN KEY (service_id) REFERENCES services(id),
    FOREIGN KEY (member_id) REFERENCES members(id)
);

CREATE TABLE IF NOT EXISTS credits (
    id TEXT PRIMARY KEY,
    member_id TEXT NOT NULL,
    service_id TEXT NOT NULL,
    payment_id TEXT NOT NULL,
    amount TEXT NOT NULL,
    remaining TEXT NOT NULL,
    status TEXT NOT NULL CHECK (status IN ('available', 'consumed')),
    created_at INTEGER NOT NULL,
    FOREIGN KEY (payment_id) REFERENCES payments(id)
);

CREATE TABLE IF NOT EXISTS payment_notes (
    id TEXT PRIMARY KEY,
    payment_id TEXT NOT NULL,
    author_kind TEXT NOT NULL,
    author_id TEXT NOT NULL,
    body TEXT NOT NULL,
    created_at INTEGER NOT NULL,
    FOREIGN KEY (payment_id) REFERENCES payments(id) ON DELETE CASCADE
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_payments_live_unique
    ON payments(service_id, member_id, cycle_id) WHERE status != 'cancelled';
CREATE INDEX IF NOT EXISTS idx_services_owner_id ON services(owner_id);
CREATE INDEX IF NOT EXISTS idx_members_owner_id ON members(owner_id);
CREATE INDEX IF NOT EXISTS idx_members_user_id ON members(user_id);
CREATE INDEX IF NOT EXISTS idx_memberships_member_id ON service_memberships(member_id);
CREATE INDEX IF NOT EXISTS idx_payments_cycle_id ON payments(cycle_id);
CREATE INDEX IF NOT EXISTS idx_payments_member_service ON payments(member_id, service_id);
CREATE INDEX IF NOT EXISTS idx_credits_member_service ON credits(member_id, service_id, status);
CREATE INDEX IF NOT EXISTS idx_payment_notes_payment_id ON payment_notes(payment_id);
`

// runMigrations executes the schema setup.
func runMigrations(db *sql.DB) error {
	_, err := db.Exec(schema)
	return err
}
