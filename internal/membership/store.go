package membership

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Store struct {
	DB *pgxpool.Pool
}

var _ ledger = (*Store)(nil)

func NewStore(db *pgxpool.Pool) *Store {
	return &Store{DB: db}
}

func (s *Store) Get(ctx context.Context, userID int64) (*Record, error) {
	var r Record
	err := s.DB.QueryRow(ctx, `
		SELECT user_id, tier, start_date, end_date, active FROM memberships WHERE user_id = $1
	`, userID).Scan(&r.UserID, &r.Tier, &r.StartDate, &r.EndDate, &r.Active)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &r, nil
}

// Extend implements "new end_date = max(now, end_date) + days; tier =>
// paid" atomically in a single upsert.
func (s *Store) Extend(ctx context.Context, userID int64, now time.Time, days int) error {
	_, err := s.DB.Exec(ctx, `
		INSERT INTO memberships (user_id, tier, start_date, end_date, active)
		VALUES ($1, 'paid', $2, $2 + make_interval(days => $3), true)
		ON CONFLICT (user_id) DO UPDATE SET
			tier     = 'paid',
			end_date = GREATEST($2, COALESCE(memberships.end_date, $2)) + make_interval(days => $3),
			active   = true
	`, userID, now, days)
	return err
}

func (s *Store) Downgrade(ctx context.Context, userID int64) error {
	_, err := s.DB.Exec(ctx, `
		INSERT INTO memberships (user_id, tier, start_date, end_date, active)
		VALUES ($1, 'free', now(), NULL, true)
		ON CONFLICT (user_id) DO UPDATE SET tier = 'free', end_date = NULL
	`, userID)
	return err
}

// SweepExpired downgrades every paid membership whose end_date has passed.
func (s *Store) SweepExpired(ctx context.Context, now time.Time) (int64, error) {
	tag, err := s.DB.Exec(ctx, `
		UPDATE memberships SET tier = 'free', end_date = NULL
		WHERE tier = 'paid' AND end_date IS NOT NULL AND end_date <= $1
	`, now)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
