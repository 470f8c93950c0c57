package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/mahdygh/bookclub/internal/domain/account"
	"github.com/mahdygh/bookclub/internal/domain/activity"
	"github.com/mahdygh/bookclub/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// SESSION REPOSITORY
// ══════════════════════════════════════════════════════════════════════════════

// SessionRepository implements activity.SessionRepository for PostgreSQL.
type SessionRepository struct {
	q Querier
}

const sessionColumns = `id, user_id, login_at, logout_at, duration_seconds`

func scanSession(row pgx.Row) (*activity.Session, error) {
	var s activity.Session
	if err := row.Scan(&s.ID, &s.UserID, &s.LoginAt, &s.LogoutAt, &s.DurationSeconds); err != nil {
		return nil, err
	}
	return &s, nil
}

// Create stores an open session.
func (r *SessionRepository) Create(ctx context.Context, s *activity.Session) error {
	_, err := r.q.Exec(ctx, `
		INSERT INTO login_sessions (`+sessionColumns+`) VALUES ($1, $2, $3, $4, $5)
	`, s.ID, s.UserID, s.LoginAt, s.LogoutAt, s.DurationSeconds)
	if err != nil {
		if IsForeignKeyViolation(err) {
			return shared.ErrUserNotFound
		}
		return fmt.Errorf("failed to create session: %w", err)
	}
	return nil
}

// LatestOpen returns the most recent open session of the user.
func (r *SessionRepository) LatestOpen(ctx context.Context, userID string) (*activity.Session, error) {
	s, err := scanSession(r.q.QueryRow(ctx, `
		SELECT `+sessionColumns+` FROM login_sessions
		WHERE user_id = $1 AND logout_at IS NULL
		ORDER BY login_at DESC
		LIMIT 1
	`, userID))
	if err != nil {
		if IsNoRows(err) {
			return nil, shared.ErrNoOpenSession
		}
		return nil, fmt.Errorf("failed to get open session: %w", err)
	}
	return s, nil
}

// Close saves logout_at and duration_seconds.
func (r *SessionRepository) Close(ctx context.Context, s *activity.Session) error {
	tag, err := r.q.Exec(ctx, `
		UPDATE login_sessions SET logout_at = $2, duration_seconds = $3
		WHERE id = $1 AND logout_at IS NULL
	`, s.ID, s.LogoutAt, s.DurationSeconds)
	if err != nil {
		return fmt.Errorf("failed to close session: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNoOpenSession
	}
	return nil
}

// ListByUser returns the user's sessions, newest first.
func (r *SessionRepository) ListByUser(ctx context.Context, userID string) ([]*activity.Session, error) {
	rows, err := r.q.Query(ctx, `
		SELECT `+sessionColumns+` FROM login_sessions
		WHERE user_id = $1
		ORDER BY login_at DESC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	defer rows.Close()

	var out []*activity.Session
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan session: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// AddDailyUsage increments the usage row of (user, date).
func (r *SessionRepository) AddDailyUsage(ctx context.Context, userID string, date time.Time, seconds int) error {
	_, err := r.q.Exec(ctx, `
		INSERT INTO daily_usage (user_id, usage_date, seconds) VALUES ($1, $2, $3)
		ON CONFLICT (user_id, usage_date) DO UPDATE
		SET seconds = daily_usage.seconds + EXCLUDED.seconds
	`, userID, date, seconds)
	if err != nil {
		return fmt.Errorf("failed to add daily usage: %w", err)
	}
	return nil
}

// ListDailyUsage returns the user's usage rows, newest date first.
func (r *SessionRepository) ListDailyUsage(ctx context.Context, userID string) ([]*activity.DailyUsage, error) {
	rows, err := r.q.Query(ctx, `
		SELECT user_id, usage_date, seconds FROM daily_usage
		WHERE user_id = $1
		ORDER BY usage_date DESC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list daily usage: %w", err)
	}
	defer rows.Close()

	var out []*activity.DailyUsage
	for rows.Next() {
		var u activity.DailyUsage
		if err := rows.Scan(&u.UserID, &u.Date, &u.Seconds); err != nil {
			return nil, fmt.Errorf("failed to scan daily usage: %w", err)
		}
		out = append(out, &u)
	}
	return out, rows.Err()
}

// ══════════════════════════════════════════════════════════════════════════════
// ACCOUNT REPOSITORY
// ══════════════════════════════════════════════════════════════════════════════

// AccountRepository implements account.Repository for PostgreSQL.
type AccountRepository struct {
	q Querier
}

func scanUser(row pgx.Row) (*account.User, error) {
	var u account.User
	if err := row.Scan(&u.ID, &u.Username, &u.PasswordHash, &u.CreatedAt); err != nil {
		return nil, err
	}
	return &u, nil
}

// Create stores an account.
func (r *AccountRepository) Create(ctx context.Context, u *account.User) error {
	_, err := r.q.Exec(ctx, `
		INSERT INTO users (id, username, password_hash, created_at) VALUES ($1, $2, $3, $4)
	`, u.ID, u.Username, u.PasswordHash, u.CreatedAt)
	if err != nil {
		if IsUniqueViolation(err) {
			return shared.ErrUsernameTaken
		}
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

// GetByID returns an account by ID.
func (r *AccountRepository) GetByID(ctx context.Context, id string) (*account.User, error) {
	return r.getOne(ctx, `SELECT id, username, password_hash, created_at FROM users WHERE id = $1`, id)
}

// GetByUsername returns an account by its normalized username.
func (r *AccountRepository) GetByUsername(ctx context.Context, username string) (*account.User, error) {
	return r.getOne(ctx, `SELECT id, username, password_hash, created_at FROM users WHERE username = $1`,
		account.NormalizeUsername(username))
}

func (r *AccountRepository) getOne(ctx context.Context, query, arg string) (*account.User, error) {
	u, err := scanUser(r.q.QueryRow(ctx, query, arg))
	if err != nil {
		if IsNoRows(err) {
			return nil, shared.ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return u, nil
}

var (
	_ activity.SessionRepository = (*SessionRepository)(nil)
	_ account.Repository         = (*AccountRepository)(nil)
)
