package postgres

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/jackc/pgx/v5"
)

// ══════════════════════════════════════════════════════════════════════════════
// MIGRATION SUPPORT
// ══════════════════════════════════════════════════════════════════════════════

// Migration represents a database migration.
type Migration struct {
	Version   int
	Name      string
	UpSQL     string
	DownSQL   string
	AppliedAt time.Time
	IsApplied bool
}

// Migrator applies the embedded migrations.
type Migrator struct {
	conn       *Connection
	migrations []Migration
	tableName  string
}

// NewMigrator creates a new migrator with embedded migrations.
func NewMigrator(conn *Connection) *Migrator {
	return &Migrator{
		conn:       conn,
		migrations: GetMigrations(),
		tableName:  "schema_migrations",
	}
}

// EnsureMigrationTable creates the migration tracking table if it doesn't exist.
func (m *Migrator) EnsureMigrationTable(ctx context.Context) error {
	query := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			version INTEGER PRIMARY KEY,
			name TEXT NOT NULL,
			applied_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
		)
	`, m.tableName)

	if _, err := m.conn.Exec(ctx, query); err != nil {
		return fmt.Errorf("failed to create migrations table: %w", err)
	}
	return nil
}

// GetAppliedMigrations returns all applied migrations.
func (m *Migrator) GetAppliedMigrations(ctx context.Context) (map[int]time.Time, error) {
	query := fmt.Sprintf("SELECT version, applied_at FROM %s ORDER BY version", m.tableName)

	rows, err := m.conn.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query applied migrations: %w", err)
	}
	defer rows.Close()

	applied := make(map[int]time.Time)
	for rows.Next() {
		var version int
		var appliedAt time.Time
		if err := rows.Scan(&version, &appliedAt); err != nil {
			return nil, fmt.Errorf("failed to scan migration row: %w", err)
		}
		applied[version] = appliedAt
	}

	return applied, rows.Err()
}

// Migrate applies all pending migrations, each in its own transaction.
func (m *Migrator) Migrate(ctx context.Context) error {
	if err := m.EnsureMigrationTable(ctx); err != nil {
		return err
	}

	applied, err := m.GetAppliedMigrations(ctx)
	if err != nil {
		return err
	}

	for _, mig := range m.migrations {
		if _, ok := applied[mig.Version]; ok {
			continue
		}
		if mig.UpSQL == "" {
			return fmt.Errorf("%w: missing up SQL for migration %d", ErrMigrationFailed, mig.Version)
		}

		err := m.conn.WithTx(ctx, DefaultTxOptions(), func(tx pgx.Tx) error {
			if _, err := tx.Exec(ctx, mig.UpSQL); err != nil {
				return fmt.Errorf("failed to execute migration %d: %w", mig.Version, err)
			}
			insert := fmt.Sprintf("INSERT INTO %s (version, name) VALUES ($1, $2)", m.tableName)
			_, err := tx.Exec(ctx, insert, mig.Version, mig.Name)
			return err
		})
		if err != nil {
			return fmt.Errorf("%w: version %d: %w", ErrMigrationFailed, mig.Version, err)
		}
	}

	return nil
}

// Rollback rolls back the last applied migration.
func (m *Migrator) Rollback(ctx context.Context) error {
	if err := m.EnsureMigrationTable(ctx); err != nil {
		return err
	}

	applied, err := m.GetAppliedMigrations(ctx)
	if err != nil {
		return err
	}

	var lastVersion int
	for v := range applied {
		if v > lastVersion {
			lastVersion = v
		}
	}
	if lastVersion == 0 {
		return nil
	}

	var migration *Migration
	for i := range m.migrations {
		if m.migrations[i].Version == lastVersion {
			migration = &m.migrations[i]
			break
		}
	}
	if migration == nil || migration.DownSQL == "" {
		return fmt.Errorf("%w: missing down SQL for migration %d", ErrMigrationFailed, lastVersion)
	}

	return m.conn.WithTx(ctx, DefaultTxOptions(), func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, migration.DownSQL); err != nil {
			return fmt.Errorf("failed to rollback migration %d: %w", lastVersion, err)
		}
		_, err := tx.Exec(ctx, fmt.Sprintf("DELETE FROM %s WHERE version = $1", m.tableName), lastVersion)
		return err
	})
}

// Status returns every embedded migration with its applied state.
func (m *Migrator) Status(ctx context.Context) ([]Migration, error) {
	if err := m.EnsureMigrationTable(ctx); err != nil {
		return nil, err
	}

	applied, err := m.GetAppliedMigrations(ctx)
	if err != nil {
		return nil, err
	}

	result := make([]Migration, len(m.migrations))
	copy(result, m.migrations)
	for i := range result {
		if appliedAt, ok := applied[result[i].Version]; ok {
			result[i].IsApplied = true
			result[i].AppliedAt = appliedAt
		}
	}
	return result, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// EMBEDDED MIGRATIONS
// ══════════════════════════════════════════════════════════════════════════════

// GetMigrations returns all embedded migrations ordered by version.
func GetMigrations() []Migration {
	migrations := []Migration{
		{Version: 1, Name: "create_catalog", UpSQL: migration001Up, DownSQL: migration001Down},
		{Version: 2, Name: "create_members_and_assignments", UpSQL: migration002Up, DownSQL: migration002Down},
		{Version: 3, Name: "create_accounts_and_notifications", UpSQL: migration003Up, DownSQL: migration003Down},
	}
	sort.Slice(migrations, func(i, j int) bool { return migrations[i].Version < migrations[j].Version })
	return migrations
}

// ─────────────────────────────────────────────────────────────────────────────
// 001: periods, stages, books
// ─────────────────────────────────────────────────────────────────────────────

const migration001Up = `
CREATE TABLE IF NOT EXISTS reading_periods (
    id TEXT PRIMARY KEY,
    name VARCHAR(200) NOT NULL,
    description TEXT NOT NULL DEFAULT '',
    is_active BOOLEAN NOT NULL DEFAULT FALSE,
    start_date TIMESTAMP WITH TIME ZONE NOT NULL,
    end_date TIMESTAMP WITH TIME ZONE NOT NULL,
    created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),

    CONSTRAINT valid_period_span CHECK (start_date < end_date)
);

-- At most one active period.
CREATE UNIQUE INDEX IF NOT EXISTS idx_reading_periods_single_active
    ON reading_periods(is_active) WHERE is_active;

CREATE TABLE IF NOT EXISTS stages (
    id TEXT PRIMARY KEY,
    period_id TEXT NOT NULL REFERENCES reading_periods(id) ON DELETE CASCADE,
    stage_number INTEGER NOT NULL,
    name VARCHAR(200) NOT NULL,
    description TEXT NOT NULL DEFAULT '',
    sort_order INTEGER NOT NULL DEFAULT 0,
    created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),

    CONSTRAINT uq_stage_number UNIQUE (period_id, stage_number)
);

CREATE INDEX IF NOT EXISTS idx_stages_period_order ON stages(period_id, sort_order, stage_number);

CREATE TABLE IF NOT EXISTS books (
    id TEXT PRIMARY KEY,
    stage_id TEXT NOT NULL REFERENCES stages(id) ON DELETE CASCADE,
    title VARCHAR(300) NOT NULL,
    author VARCHAR(200) NOT NULL DEFAULT '',
    description TEXT NOT NULL DEFAULT '',
    reading_score INTEGER NOT NULL DEFAULT 0,
    quiz_score INTEGER NOT NULL DEFAULT 0,
    reading_days INTEGER NOT NULL DEFAULT 3,
    page_count INTEGER NOT NULL DEFAULT 0,
    stock_count INTEGER NOT NULL DEFAULT 1,
    created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),

    CONSTRAINT valid_book_scores CHECK (reading_score >= 0 AND quiz_score >= 0),
    CONSTRAINT valid_stock CHECK (stock_count >= 0)
);

CREATE INDEX IF NOT EXISTS idx_books_stage_title ON books(stage_id, title);
`

const migration001Down = `
DROP TABLE IF EXISTS books;
DROP TABLE IF EXISTS stages;
DROP TABLE IF EXISTS reading_periods;
`

// ─────────────────────────────────────────────────────────────────────────────
// 002: members, assignments, weekly scores
// ─────────────────────────────────────────────────────────────────────────────

const migration002Up = `
CREATE TABLE IF NOT EXISTS users (
    id TEXT PRIMARY KEY,
    username VARCHAR(32) NOT NULL UNIQUE,
    password_hash TEXT NOT NULL,
    created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS members (
    id TEXT PRIMARY KEY,
    first_name VARCHAR(100) NOT NULL,
    last_name VARCHAR(100) NOT NULL DEFAULT '',
    group_name VARCHAR(100) NOT NULL DEFAULT '',
    user_id TEXT UNIQUE REFERENCES users(id) ON DELETE SET NULL,
    current_stage_id TEXT REFERENCES stages(id) ON DELETE SET NULL,
    total_score INTEGER NOT NULL DEFAULT 0,
    is_active BOOLEAN NOT NULL DEFAULT TRUE,
    created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),

    CONSTRAINT valid_total_score CHECK (total_score >= 0)
);

CREATE INDEX IF NOT EXISTS idx_members_active_score ON members(total_score DESC) WHERE is_active;
CREATE INDEX IF NOT EXISTS idx_members_group ON members(group_name);
CREATE INDEX IF NOT EXISTS idx_members_stage ON members(current_stage_id);

-- returned_date and is_completed are written together by the service;
-- bulk imports may leave them disagreeing until normalized.
CREATE TABLE IF NOT EXISTS assignments (
    id TEXT PRIMARY KEY,
    member_id TEXT NOT NULL REFERENCES members(id) ON DELETE CASCADE,
    book_id TEXT NOT NULL REFERENCES books(id) ON DELETE CASCADE,
    assigned_date TIMESTAMP WITH TIME ZONE NOT NULL,
    due_date TIMESTAMP WITH TIME ZONE,
    returned_date TIMESTAMP WITH TIME ZONE,
    is_completed BOOLEAN NOT NULL DEFAULT FALSE,
    late_days INTEGER NOT NULL DEFAULT 0,
    reading_score_base INTEGER NOT NULL DEFAULT 0,
    quiz_score_base INTEGER NOT NULL DEFAULT 0,
    reading_score_earned INTEGER NOT NULL DEFAULT 0,
    quiz_score_earned INTEGER NOT NULL DEFAULT 0,
    pages_read INTEGER NOT NULL DEFAULT 0,
    notes TEXT NOT NULL DEFAULT '',
    created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_assignments_member ON assignments(member_id, assigned_date DESC);
CREATE INDEX IF NOT EXISTS idx_assignments_book ON assignments(book_id);
CREATE INDEX IF NOT EXISTS idx_assignments_pending_due ON assignments(due_date)
    WHERE NOT is_completed AND returned_date IS NULL;
CREATE INDEX IF NOT EXISTS idx_assignments_unsettled ON assignments(id)
    WHERE is_completed <> (returned_date IS NOT NULL);

CREATE TABLE IF NOT EXISTS weekly_scores (
    id TEXT PRIMARY KEY,
    member_id TEXT NOT NULL REFERENCES members(id) ON DELETE CASCADE,
    week_start_date DATE NOT NULL,
    week_end_date DATE NOT NULL,
    weekly_score INTEGER NOT NULL DEFAULT 0,
    updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),

    CONSTRAINT uq_weekly_member_week UNIQUE (member_id, week_start_date),
    CONSTRAINT valid_weekly_score CHECK (weekly_score >= 0)
);

CREATE INDEX IF NOT EXISTS idx_weekly_scores_week ON weekly_scores(week_start_date, weekly_score DESC);
`

const migration002Down = `
DROP TABLE IF EXISTS weekly_scores;
DROP TABLE IF EXISTS assignments;
DROP TABLE IF EXISTS members;
DROP TABLE IF EXISTS users;
`

// ─────────────────────────────────────────────────────────────────────────────
// 003: notifications, sessions, daily usage
// ─────────────────────────────────────────────────────────────────────────────

const migration003Up = `
CREATE TABLE IF NOT EXISTS notifications (
    id TEXT PRIMARY KEY,
    kind VARCHAR(20) NOT NULL,
    recipient_id TEXT REFERENCES members(id) ON DELETE CASCADE,
    assignment_id TEXT REFERENCES assignments(id) ON DELETE CASCADE,
    title VARCHAR(300) NOT NULL DEFAULT '',
    message TEXT NOT NULL DEFAULT '',
    is_read BOOLEAN NOT NULL DEFAULT FALSE,
    created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),

    CONSTRAINT valid_kind CHECK (kind IN ('general', 'private', 'due_reminder')),
    CONSTRAINT addressed_has_recipient CHECK (kind = 'general' OR recipient_id IS NOT NULL)
);

CREATE INDEX IF NOT EXISTS idx_notifications_recipient ON notifications(recipient_id, is_read, created_at DESC);
CREATE INDEX IF NOT EXISTS idx_notifications_general ON notifications(created_at DESC) WHERE kind = 'general';
CREATE UNIQUE INDEX IF NOT EXISTS idx_notifications_one_reminder
    ON notifications(recipient_id, assignment_id) WHERE kind = 'due_reminder';

CREATE TABLE IF NOT EXISTS login_sessions (
    id TEXT PRIMARY KEY,
    user_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
    login_at TIMESTAMP WITH TIME ZONE NOT NULL,
    logout_at TIMESTAMP WITH TIME ZONE,
    duration_seconds INTEGER NOT NULL DEFAULT 0
);

CREATE INDEX IF NOT EXISTS idx_login_sessions_user ON login_sessions(user_id, login_at DESC);

CREATE TABLE IF NOT EXISTS daily_usage (
    user_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
    usage_date DATE NOT NULL,
    seconds INTEGER NOT NULL DEFAULT 0,

    PRIMARY KEY (user_id, usage_date)
);
`

const migration003Down = `
DROP TABLE IF EXISTS daily_usage;
DROP TABLE IF EXISTS login_sessions;
DROP TABLE IF EXISTS notifications;
`
