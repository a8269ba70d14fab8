package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"snippets/api/internal/snippet"
)

type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) DB() *sql.DB {
	return s.db
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// ---- users / authors ----

const userColumns = `email, display_name, password_hash, is_admin, is_email_verified,
	COALESCE(verification_token, ''), verification_expires_at,
	category, wants_email, wants_to_view, created_at, updated_at`

func scanUser(row interface{ Scan(...any) error }) (User, error) {
	var user User
	err := row.Scan(&user.Email, &user.DisplayName, &user.PasswordHash, &user.IsAdmin,
		&user.IsEmailVerified, &user.VerificationToken, &user.VerificationExpiresAt,
		&user.Category, &user.WantsEmail, &user.WantsToView, &user.CreatedAt, &user.UpdatedAt)
	return user, err
}

func (s *PostgresStore) GetUserByEmail(ctx context.Context, email string) (User, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE email=$1`, strings.ToLower(email))
	return scanUser(row)
}

func (s *PostgresStore) CreateUser(ctx context.Context, user User) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO users (email, display_name, password_hash, is_admin, is_email_verified, verification_token)
		VALUES ($1, $2, $3, $4, $5, NULLIF($6, ''))
	`, strings.ToLower(user.Email), user.DisplayName, user.PasswordHash, user.IsAdmin,
		user.IsEmailVerified, user.VerificationToken)
	if err != nil {
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

// EnsureAuthor creates a bare author record for email if none exists,
// as happens when an admin files a snippet for someone who has never
// signed in. Defaults for category, wants_email and wants_to_view come
// from the table definition.
func (s *PostgresStore) EnsureAuthor(ctx context.Context, email string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO users (email, display_name)
		VALUES ($1, $1)
		ON CONFLICT (email) DO NOTHING
	`, strings.ToLower(email))
	if err != nil {
		return fmt.Errorf("ensure author: %w", err)
	}
	return nil
}

// GetAuthor returns the digest-facing view of a user.
func (s *PostgresStore) GetAuthor(ctx context.Context, email string) (snippet.Author, error) {
	var author snippet.Author
	err := s.db.QueryRowContext(ctx, `
		SELECT email, category, wants_email, wants_to_view
		FROM users WHERE email=$1
	`, strings.ToLower(email)).Scan(&author.Email, &author.Category, &author.WantsEmail, &author.WantsToView)
	if err != nil {
		return snippet.Author{}, err
	}
	return author, nil
}

func (s *PostgresStore) ListAuthors(ctx context.Context) ([]snippet.Author, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT email, category, wants_email, wants_to_view
		FROM users
		ORDER BY email
	`)
	if err != nil {
		return nil, fmt.Errorf("list authors: %w", err)
	}
	defer rows.Close()

	authors := make([]snippet.Author, 0)
	for rows.Next() {
		var author snippet.Author
		if err := rows.Scan(&author.Email, &author.Category, &author.WantsEmail, &author.WantsToView); err != nil {
			return nil, fmt.Errorf("scan author: %w", err)
		}
		authors = append(authors, author)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate authors: %w", err)
	}
	return authors, nil
}

// UpsertAuthorSettings writes the settings page fields, creating the
// author if needed. Idempotent on email.
func (s *PostgresStore) UpsertAuthorSettings(ctx context.Context, author snippet.Author) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO users (email, display_name, category, wants_email, wants_to_view)
		VALUES ($1, $1, $2, $3, $4)
		ON CONFLICT (email) DO UPDATE SET
			category=EXCLUDED.category,
			wants_email=EXCLUDED.wants_email,
			wants_to_view=EXCLUDED.wants_to_view,
			updated_at=NOW()
	`, strings.ToLower(author.Email), author.Category, author.WantsEmail, author.WantsToView)
	if err != nil {
		return fmt.Errorf("upsert author settings: %w", err)
	}
	return nil
}

func (s *PostgresStore) SetAdmin(ctx context.Context, email string, isAdmin bool) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE users SET is_admin=$2, updated_at=NOW() WHERE email=$1`,
		strings.ToLower(email), isAdmin)
	if err != nil {
		return fmt.Errorf("set admin: %w", err)
	}
	return nil
}

// ---- snippets ----

// SnippetsForUser returns all of one author's snippets, oldest first,
// ready for gap filling. No rows is a normal empty result.
func (s *PostgresStore) SnippetsForUser(ctx context.Context, email string) ([]snippet.Snippet, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT email, week, text, private
		FROM snippets
		WHERE email=$1
		ORDER BY week
	`, strings.ToLower(email))
	if err != nil {
		return nil, fmt.Errorf("snippets for user: %w", err)
	}
	defer rows.Close()
	return collectSnippets(rows)
}

// SnippetsForWeek returns every author's snippet for one week anchor.
func (s *PostgresStore) SnippetsForWeek(ctx context.Context, week time.Time) ([]snippet.Snippet, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT email, week, text, private
		FROM snippets
		WHERE week=$1
		ORDER BY email
	`, week)
	if err != nil {
		return nil, fmt.Errorf("snippets for week: %w", err)
	}
	defer rows.Close()
	return collectSnippets(rows)
}

func collectSnippets(rows *sql.Rows) ([]snippet.Snippet, error) {
	items := make([]snippet.Snippet, 0)
	for rows.Next() {
		var item snippet.Snippet
		if err := rows.Scan(&item.Email, &item.Week, &item.Text, &item.Private); err != nil {
			return nil, fmt.Errorf("scan snippet: %w", err)
		}
		item.Week = item.Week.UTC()
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate snippets: %w", err)
	}
	return items, nil
}

// UpsertSnippet writes the snippet for (email, week), overwriting text
// and private in place when the key exists. Idempotent on its key.
func (s *PostgresStore) UpsertSnippet(ctx context.Context, item snippet.Snippet) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO snippets (email, week, text, private)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (email, week) DO UPDATE SET
			text=EXCLUDED.text,
			private=EXCLUDED.private,
			updated_at=NOW()
	`, strings.ToLower(item.Email), item.Week, item.Text, item.Private)
	if err != nil {
		return fmt.Errorf("upsert snippet: %w", err)
	}
	return nil
}

// AllSnippets streams every snippet, used for search reindexing.
func (s *PostgresStore) AllSnippets(ctx context.Context) ([]snippet.Snippet, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT email, week, text, private FROM snippets ORDER BY email, week`)
	if err != nil {
		return nil, fmt.Errorf("all snippets: %w", err)
	}
	defer rows.Close()
	return collectSnippets(rows)
}

// ---- auth support ----

func (s *PostgresStore) UpdateUserVerificationToken(ctx context.Context, email, token string, expiresAt time.Time) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE users SET verification_token=$2, verification_expires_at=$3, updated_at=NOW()
		WHERE email=$1
	`, strings.ToLower(email), token, expiresAt)
	if err != nil {
		return fmt.Errorf("update verification token: %w", err)
	}
	return nil
}

func (s *PostgresStore) VerifyUserEmail(ctx context.Context, token string) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE users
		SET is_email_verified=TRUE, verification_token=NULL, verification_expires_at=NULL, updated_at=NOW()
		WHERE verification_token=$1 AND verification_expires_at > NOW()
	`, token)
	if err != nil {
		return fmt.Errorf("verify email: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("verify email rows: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func (s *PostgresStore) UpdateUserPassword(ctx context.Context, email, passwordHash string) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE users SET password_hash=$2, updated_at=NOW() WHERE email=$1`,
		strings.ToLower(email), passwordHash)
	if err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	return nil
}

func (s *PostgresStore) CreatePasswordReset(ctx context.Context, email, token string, expiresAt time.Time) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO password_resets (token, email, expires_at)
		VALUES ($1, $2, $3)
	`, token, strings.ToLower(email), expiresAt)
	if err != nil {
		return fmt.Errorf("create password reset: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetPasswordReset(ctx context.Context, token string) (string, error) {
	var email string
	err := s.db.QueryRowContext(ctx, `
		SELECT email FROM password_resets
		WHERE token=$1 AND used_at IS NULL AND expires_at > NOW()
	`, token).Scan(&email)
	if err != nil {
		return "", err
	}
	return email, nil
}

func (s *PostgresStore) MarkPasswordResetUsed(ctx context.Context, token string) error {
	_, err := s.db.ExecContext(ctx, `UPDATE password_resets SET used_at=NOW() WHERE token=$1`, token)
	if err != nil {
		return fmt.Errorf("mark password reset used: %w", err)
	}
	return nil
}

// ---- sessions (Postgres fallback when Redis is not configured) ----

func (s *PostgresStore) SaveRefreshSession(ctx context.Context, tokenHash, email string, expiresAt time.Time) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO refresh_sessions (token_hash, email, expires_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (token_hash) DO UPDATE SET email=EXCLUDED.email, expires_at=EXCLUDED.expires_at, revoked_at=NULL
	`, tokenHash, strings.ToLower(email), expiresAt)
	if err != nil {
		return fmt.Errorf("save refresh session: %w", err)
	}
	return nil
}

func (s *PostgresStore) LookupRefreshSession(ctx context.Context, tokenHash string) (User, error) {
	var user User
	err := s.db.QueryRowContext(ctx, `
		SELECT u.email, u.display_name, u.is_admin
		FROM refresh_sessions rs
		JOIN users u ON u.email = rs.email
		WHERE rs.token_hash = $1
			AND rs.revoked_at IS NULL
			AND rs.expires_at > NOW()
	`, tokenHash).Scan(&user.Email, &user.DisplayName, &user.IsAdmin)
	if err != nil {
		return User{}, err
	}
	return user, nil
}

func (s *PostgresStore) RevokeRefreshSession(ctx context.Context, tokenHash string) error {
	_, err := s.db.ExecContext(ctx, `UPDATE refresh_sessions SET revoked_at=NOW() WHERE token_hash=$1`, tokenHash)
	if err != nil {
		return fmt.Errorf("revoke refresh session: %w", err)
	}
	return nil
}

func (s *PostgresStore) RevokeAccessToken(ctx context.Context, jti string, exp time.Time) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO revoked_access_tokens (jti, expires_at)
		VALUES ($1, $2)
		ON CONFLICT (jti) DO NOTHING
	`, jti, exp)
	if err != nil {
		return fmt.Errorf("revoke access token: %w", err)
	}
	return nil
}

func (s *PostgresStore) IsAccessTokenRevoked(ctx context.Context, jti string) (bool, error) {
	var revoked bool
	err := s.db.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM revoked_access_tokens WHERE jti=$1)`, jti).Scan(&revoked)
	if err != nil {
		return false, fmt.Errorf("check revoked token: %w", err)
	}
	return revoked, nil
}

// IsNotFound reports whether err is the no-rows sentinel, which read
// paths treat as an empty result rather than a failure.
func IsNotFound(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}
