package identity

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Store wraps the raw Postgres access every identity operation needs. It
// is deliberately thin (no business rules) so Service can compose
// transactions across multiple statements inside one call.
type Store struct {
	DB *pgxpool.Pool
}

func NewStore(db *pgxpool.Pool) *Store {
	return &Store{DB: db}
}

var ErrNotFound = errors.New("identity: not found")

func (s *Store) CreateUser(ctx context.Context, q queryer, displayName string) (int64, error) {
	var id int64
	err := q.QueryRow(ctx, `
		INSERT INTO users (display_name, status) VALUES ($1, 'active')
		RETURNING user_id
	`, displayName).Scan(&id)
	return id, err
}

func (s *Store) GetUser(ctx context.Context, userID int64) (*User, error) {
	var u User
	err := s.DB.QueryRow(ctx, `
		SELECT user_id, display_name, status, created_at, last_active FROM users WHERE user_id = $1
	`, userID).Scan(&u.UserID, &u.DisplayName, &u.Status, &u.CreatedAt, &u.LastActive)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return &u, err
}

func (s *Store) TouchLastActive(ctx context.Context, userID int64, now time.Time) error {
	_, err := s.DB.Exec(ctx, `UPDATE users SET last_active = $2 WHERE user_id = $1`, userID, now)
	return err
}

// queryer abstracts over *pgxpool.Pool and pgx.Tx so store helpers compose
// inside a transaction when a caller needs atomicity across statements.
type queryer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgx.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

func (s *Store) FindBinding(ctx context.Context, provider Provider, providerID string) (*AuthBinding, error) {
	var b AuthBinding
	err := s.DB.QueryRow(ctx, `
		SELECT id, user_id, provider, provider_id, password_hash, is_verified, is_primary,
		       failed_attempts, locked_until, last_login, created_at
		FROM auth_bindings WHERE provider = $1 AND provider_id = $2 AND is_verified
	`, provider, providerID).Scan(&b.ID, &b.UserID, &b.Provider, &b.ProviderID, &b.PasswordHash,
		&b.IsVerified, &b.IsPrimary, &b.FailedAttempts, &b.LockedUntil, &b.LastLogin, &b.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return &b, err
}

func (s *Store) CreateBinding(ctx context.Context, q queryer, userID int64, provider Provider, providerID string, passwordHash *string) error {
	_, err := q.Exec(ctx, `
		INSERT INTO auth_bindings (user_id, provider, provider_id, password_hash, is_verified, is_primary)
		VALUES ($1, $2, $3, $4, true, true)
	`, userID, provider, providerID, passwordHash)
	return err
}

func (s *Store) RecordLoginSuccess(ctx context.Context, bindingID int64, now time.Time) error {
	_, err := s.DB.Exec(ctx, `
		UPDATE auth_bindings SET failed_attempts = 0, locked_until = NULL, last_login = $2
		WHERE id = $1
	`, bindingID, now)
	return err
}

// RecordLoginFailure increments failed_attempts and locks the binding for
// 15 minutes once it reaches 5.
func (s *Store) RecordLoginFailure(ctx context.Context, bindingID int64, now time.Time) (failedAttempts int, lockedUntil *time.Time, err error) {
	row := s.DB.QueryRow(ctx, `
		UPDATE auth_bindings SET failed_attempts = failed_attempts + 1,
		       locked_until = CASE WHEN failed_attempts + 1 >= 5 THEN $2 ELSE locked_until END
		WHERE id = $1
		RETURNING failed_attempts, locked_until
	`, bindingID, now.Add(15*time.Minute))
	err = row.Scan(&failedAttempts, &lockedUntil)
	return
}

// --- verification codes ---

func (s *Store) InvalidatePriorCodes(ctx context.Context, q queryer, provider Provider, providerID string, purpose CodePurpose, now time.Time) error {
	_, err := q.Exec(ctx, `
		UPDATE verification_codes SET used_at = $4
		WHERE provider = $1 AND provider_id = $2 AND purpose = $3 AND used_at IS NULL
	`, provider, providerID, purpose, now)
	return err
}

func (s *Store) CreateCode(ctx context.Context, q queryer, provider Provider, providerID string, purpose CodePurpose, codeHash string, now, expiresAt time.Time, maxAttempts int) error {
	_, err := q.Exec(ctx, `
		INSERT INTO verification_codes (provider, provider_id, purpose, code_hash, created_at, expires_at, max_attempts)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, provider, providerID, purpose, codeHash, now, expiresAt, maxAttempts)
	return err
}

func (s *Store) FindLiveCode(ctx context.Context, provider Provider, providerID string, purpose CodePurpose) (*VerificationCode, error) {
	var c VerificationCode
	err := s.DB.QueryRow(ctx, `
		SELECT id, provider, provider_id, code_hash, purpose, created_at, expires_at, used_at, attempts, max_attempts
		FROM verification_codes
		WHERE provider = $1 AND provider_id = $2 AND purpose = $3 AND used_at IS NULL
	`, provider, providerID, purpose).Scan(&c.ID, &c.Provider, &c.ProviderID, &c.CodeHash, &c.Purpose,
		&c.CreatedAt, &c.ExpiresAt, &c.UsedAt, &c.Attempts, &c.MaxAttempts)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return &c, err
}

func (s *Store) IncrementCodeAttempts(ctx context.Context, codeID int64) (int, error) {
	var attempts int
	err := s.DB.QueryRow(ctx, `
		UPDATE verification_codes SET attempts = attempts + 1 WHERE id = $1 RETURNING attempts
	`, codeID).Scan(&attempts)
	return attempts, err
}

func (s *Store) MarkCodeUsed(ctx context.Context, codeID int64, now time.Time) error {
	_, err := s.DB.Exec(ctx, `UPDATE verification_codes SET used_at = $2 WHERE id = $1`, codeID, now)
	return err
}

// --- refresh tokens ---

func (s *Store) FindRefreshToken(ctx context.Context, tokenHash string) (*RefreshToken, error) {
	var t RefreshToken
	err := s.DB.QueryRow(ctx, `
		SELECT token_hash, user_id, device_descriptor, created_at, expires_at, last_used, revoked, parent_token
		FROM refresh_tokens WHERE token_hash = $1
	`, tokenHash).Scan(&t.TokenHash, &t.UserID, &t.DeviceDescriptor, &t.CreatedAt, &t.ExpiresAt,
		&t.LastUsed, &t.Revoked, &t.ParentToken)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return &t, err
}

func (s *Store) CreateRefreshToken(ctx context.Context, q queryer, tokenHash string, userID int64, device string, now, expiresAt time.Time, parent *string) error {
	_, err := q.Exec(ctx, `
		INSERT INTO refresh_tokens (token_hash, user_id, device_descriptor, created_at, expires_at, parent_token)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, tokenHash, userID, device, now, expiresAt, parent)
	return err
}

func (s *Store) RevokeRefreshToken(ctx context.Context, q queryer, tokenHash string, now time.Time) error {
	_, err := q.Exec(ctx, `
		UPDATE refresh_tokens SET revoked = true, last_used = $2 WHERE token_hash = $1
	`, tokenHash, now)
	return err
}

// RevokeChain walks parent_token links in both directions from tokenHash,
// revoking every ancestor and every descendant. Replaying an already-used
// token must kill not just that token but whatever was issued in exchange
// for it, or a subsequent refresh on the descendant would still succeed.
func (s *Store) RevokeChain(ctx context.Context, q queryer, tokenHash string, now time.Time) error {
	_, err := q.Exec(ctx, `
		WITH RECURSIVE chain AS (
			SELECT token_hash, parent_token FROM refresh_tokens WHERE token_hash = $1
			UNION
			SELECT rt.token_hash, rt.parent_token
			FROM refresh_tokens rt
			JOIN chain c ON rt.token_hash = c.parent_token OR rt.parent_token = c.token_hash
		)
		UPDATE refresh_tokens SET revoked = true, last_used = $2
		WHERE token_hash IN (SELECT token_hash FROM chain)
	`, tokenHash, now)
	return err
}

func (s *Store) BeginTx(ctx context.Context) (pgx.Tx, error) {
	return s.DB.Begin(ctx)
}

// --- sessions ---

func (s *Store) UpsertSession(ctx context.Context, userID int64, sessionID, device, ip string, now, expiresAt time.Time) error {
	_, err := s.DB.Exec(ctx, `
		INSERT INTO sessions (session_id, user_id, created_at, last_activity, expires_at, device, ip, active)
		VALUES ($1, $2, $3, $3, $4, $5, $6, true)
		ON CONFLICT (session_id) DO UPDATE SET
			last_activity = EXCLUDED.last_activity,
			expires_at    = EXCLUDED.expires_at,
			active        = true
	`, sessionID, userID, now, expiresAt, device, ip)
	return err
}

// SweepExpiredSessions marks sessions inactive once idle past idleWindow or
// older than hardTTL.
func (s *Store) SweepExpiredSessions(ctx context.Context, now time.Time, idleWindow, hardTTL time.Duration) (int64, error) {
	tag, err := s.DB.Exec(ctx, `
		UPDATE sessions SET active = false
		WHERE active AND (last_activity < $1 OR created_at < $2)
	`, now.Add(-idleWindow), now.Add(-hardTTL))
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (s *Store) CountOnline(ctx context.Context, now time.Time, onlineWindow time.Duration) (int64, error) {
	var n int64
	err := s.DB.QueryRow(ctx, `
		SELECT count(DISTINCT user_id) FROM sessions WHERE active AND last_activity >= $1
	`, now.Add(-onlineWindow)).Scan(&n)
	return n, err
}
