package db

import (
	"context"
	"fmt"
	"time"
)

// UserRecord is the account row shape returned to callers. The password
// hash never leaves this package except through VerifyPassword callers.
type UserRecord struct {
	UserID       int64      `json:"user_id"`
	Username     string     `json:"username"`
	PasswordHash string     `json:"-"`
	IsAdmin      bool       `json:"is_admin"`
	CreatedAt    time.Time  `json:"created_at"`
	LastLoginAt  *time.Time `json:"last_login_at,omitempty"`
}

// SessionRecord carries the session plus the owning user's identity, so
// the auth middleware resolves both in one round trip.
type SessionRecord struct {
	SessionID string    `json:"session_id"`
	UserID    int64     `json:"user_id"`
	Username  string    `json:"username"`
	IsAdmin   bool      `json:"is_admin"`
	ExpiresAt time.Time `json:"expires_at"`
}

func (p *Pool) CountUsers(ctx context.Context) (int64, error) {
	const q = `SELECT COUNT(*) FROM shows.users`

	var count int64
	if err := p.QueryRow(ctx, q).Scan(&count); err != nil {
		return 0, fmt.Errorf("count users: %w", err)
	}
	return count, nil
}

func (p *Pool) CreateUser(ctx context.Context, username, passwordHash string, isAdmin bool, now time.Time) (*UserRecord, error) {
	const q = `
INSERT INTO shows.users (username, password_hash, is_admin, created_at)
VALUES ($1, $2, $3, $4)
RETURNING user_id, username, password_hash, is_admin, created_at, last_login_at
`

	row, err := scanUser(p.QueryRow(ctx, q, username, passwordHash, isAdmin, now.UTC()))
	if err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}
	return row, nil
}

func (p *Pool) GetUserByUsername(ctx context.Context, username string) (*UserRecord, error) {
	const q = `
SELECT user_id, username, password_hash, is_admin, created_at, last_login_at
FROM shows.users
WHERE username = $1
LIMIT 1
`

	row, err := scanUser(p.QueryRow(ctx, q, username))
	if err != nil {
		if IsNoRows(err) {
			return nil, ErrNoRows
		}
		return nil, fmt.Errorf("query user by username: %w", err)
	}
	return row, nil
}

func (p *Pool) GetUserByID(ctx context.Context, id int64) (*UserRecord, error) {
	const q = `
SELECT user_id, username, password_hash, is_admin, created_at, last_login_at
FROM shows.users
WHERE user_id = $1
LIMIT 1
`

	row, err := scanUser(p.QueryRow(ctx, q, id))
	if err != nil {
		if IsNoRows(err) {
			return nil, ErrNoRows
		}
		return nil, fmt.Errorf("query user by id: %w", err)
	}
	return row, nil
}

func (p *Pool) SetUserLastLogin(ctx context.Context, id int64, now time.Time) error {
	const q = `
UPDATE shows.users
SET last_login_at = $2
WHERE user_id = $1
`

	if _, err := p.Exec(ctx, q, id, now.UTC()); err != nil {
		return fmt.Errorf("set user last login: %w", err)
	}
	return nil
}

func (p *Pool) CreateSession(ctx context.Context, userID int64, expiresAt, now time.Time) (string, error) {
	const q = `
INSERT INTO shows.sessions (user_id, expires_at, created_at, last_seen_at)
VALUES ($1, $2, $3, $3)
RETURNING session_id::text
`

	var sessionID string
	if err := p.QueryRow(ctx, q, userID, expiresAt.UTC(), now.UTC()).Scan(&sessionID); err != nil {
		return "", fmt.Errorf("create session: %w", err)
	}
	return sessionID, nil
}

// GetSession resolves a live session together with its user. Expired
// sessions are invisible; a sweep removes them lazily.
func (p *Pool) GetSession(ctx context.Context, sessionID string, now time.Time) (*SessionRecord, error) {
	const q = `
SELECT s.session_id::text, s.user_id, u.username, u.is_admin, s.expires_at
FROM shows.sessions s
JOIN shows.users u ON u.user_id = s.user_id
WHERE s.session_id = $1::uuid
  AND s.expires_at > $2
LIMIT 1
`

	var row SessionRecord
	if err := p.QueryRow(ctx, q, sessionID, now.UTC()).Scan(
		&row.SessionID,
		&row.UserID,
		&row.Username,
		&row.IsAdmin,
		&row.ExpiresAt,
	); err != nil {
		if IsNoRows(err) {
			return nil, ErrNoRows
		}
		return nil, fmt.Errorf("query session: %w", err)
	}
	return &row, nil
}

func (p *Pool) TouchSession(ctx context.Context, sessionID string, now time.Time) error {
	const q = `
UPDATE shows.sessions
SET last_seen_at = $2
WHERE session_id = $1::uuid
`

	if _, err := p.Exec(ctx, q, sessionID, now.UTC()); err != nil {
		return fmt.Errorf("touch session: %w", err)
	}
	return nil
}

func (p *Pool) DeleteSession(ctx context.Context, sessionID string) error {
	const q = `
DELETE FROM shows.sessions
WHERE session_id = $1::uuid
`

	if _, err := p.Exec(ctx, q, sessionID); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

// DeleteExpiredSessions clears sessions past their expiry.
func (p *Pool) DeleteExpiredSessions(ctx context.Context, now time.Time) (int64, error) {
	const q = `
DELETE FROM shows.sessions
WHERE expires_at <= $1
`

	tag, err := p.Exec(ctx, q, now.UTC())
	if err != nil {
		return 0, fmt.Errorf("delete expired sessions: %w", err)
	}
	return tag.RowsAffected(), nil
}

func scanUser(scanner rowScanner) (*UserRecord, error) {
	var row UserRecord
	if err := scanner.Scan(
		&row.UserID,
		&row.Username,
		&row.PasswordHash,
		&row.IsAdmin,
		&row.CreatedAt,
		&row.LastLoginAt,
	); err != nil {
		return nil, err
	}
	return &row, nil
}
