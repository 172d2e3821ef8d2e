package quota

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Store struct {
	DB *pgxpool.Pool
}

func NewStore(db *pgxpool.Pool) *Store {
	return &Store{DB: db}
}

// SumDay sums the count across every hour bucket belonging to dayBucket,
// since UsageCounter is keyed uniquely per hour and day is derived.
func (s *Store) SumDay(ctx context.Context, userID int64, action ActionKind, dayBucket string) (int, error) {
	var total *int
	err := s.DB.QueryRow(ctx, `
		SELECT sum(count) FROM usage_counters
		WHERE user_id = $1 AND action_kind = $2 AND day_bucket = $3
	`, userID, action, dayBucket).Scan(&total)
	if err != nil {
		return 0, err
	}
	if total == nil {
		return 0, nil
	}
	return *total, nil
}

func (s *Store) GetHour(ctx context.Context, userID int64, action ActionKind, hourBucket string) (int, error) {
	var count int
	err := s.DB.QueryRow(ctx, `
		SELECT count FROM usage_counters WHERE user_id = $1 AND action_kind = $2 AND hour_bucket = $3
	`, userID, action, hourBucket).Scan(&count)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, nil
	}
	return count, err
}

// Increment is the atomic unique-key upsert ensuring check and consume
// never disagree under concurrency. The (user_id,
// action_kind, hour_bucket) primary key makes this a single
// read-modify-write row lock instead of a read-then-write race.
func (s *Store) Increment(ctx context.Context, userID int64, action ActionKind, hourBucket, dayBucket string, n int) error {
	_, err := s.DB.Exec(ctx, `
		INSERT INTO usage_counters (user_id, action_kind, hour_bucket, day_bucket, count)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (user_id, action_kind, hour_bucket)
		DO UPDATE SET count = usage_counters.count + EXCLUDED.count
	`, userID, action, hourBucket, dayBucket, n)
	return err
}
