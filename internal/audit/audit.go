// Package audit writes the security event log: login success/failure,
// IP block, and refresh-token replay are each written as a durable,
// append-only row. The table shape follows the append-only tables used
// elsewhere in this codebase, and the original source's security.py is
// the source of the event taxonomy.
package audit

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"
)

type Kind string

const (
	LoginSuccess  Kind = "login_success"
	LoginFailure  Kind = "login_failure"
	IPBlocked     Kind = "ip_blocked"
	RefreshReplay Kind = "refresh_token_replay"
	AccountLocked Kind = "account_locked"
)

// Log appends a security event. User ID is optional (e.g. IP blocks happen
// before any user is resolved). Failures to write the audit row are logged
// but never surfaced to the caller: auditing must never block business logic.
type Log struct {
	db *pgxpool.Pool
}

func New(db *pgxpool.Pool) *Log {
	return &Log{db: db}
}

func (l *Log) Record(ctx context.Context, kind Kind, userID *int64, ip, detail string) {
	_, err := l.db.Exec(ctx, `
		INSERT INTO audit_events (kind, user_id, ip, detail)
		VALUES ($1, $2, $3, $4)
	`, string(kind), userID, ip, detail)
	if err != nil {
		log.Error().Err(err).Str("kind", string(kind)).Msg("failed to write audit event")
	}
}
