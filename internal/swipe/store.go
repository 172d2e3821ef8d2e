package swipe

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

var _ repo = (*Store)(nil)

func NewStore(db *pgxpool.Pool) *Store {
	return &Store{DB: db}
}

// Insert records a new swipe iff (swiper, target) has no prior row,
// reporting whether it actually inserted. The reject-duplicate default
// reject-duplicate-by-default policy is enforced by ON CONFLICT DO NOTHING rather
// than a pre-check, so it stays correct under concurrent swipes.
func (s *Store) Insert(ctx context.Context, swiper, target int64, direction Direction, now time.Time) (bool, error) {
	tag, err := s.DB.Exec(ctx, `
		INSERT INTO swipes (swiper_id, target_id, direction, created_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (swiper_id, target_id) DO NOTHING
	`, swiper, target, direction, now)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// Upsert overwrites any existing direction; used only by AdminOverwrite.
func (s *Store) Upsert(ctx context.Context, swiper, target int64, direction Direction, now time.Time) error {
	_, err := s.DB.Exec(ctx, `
		INSERT INTO swipes (swiper_id, target_id, direction, created_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (swiper_id, target_id) DO UPDATE SET direction = EXCLUDED.direction
	`, swiper, target, direction, now)
	return err
}

// MutualLikes finds every v such that (user, v, like) and (v, user, like)
// both exist, via the self-join shape this package is grounded on.
func (s *Store) MutualLikes(ctx context.Context, user int64) ([]int64, error) {
	rows, err := s.DB.Query(ctx, `
		SELECT s1.target_id
		FROM swipes s1
		JOIN swipes s2 ON s1.target_id = s2.swiper_id AND s1.swiper_id = s2.target_id
		WHERE s1.swiper_id = $1 AND s1.direction = 'like' AND s2.direction = 'like'
	`, user)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []int64
	for rows.Next() {
		var target int64
		if err := rows.Scan(&target); err != nil {
			return nil, err
		}
		out = append(out, target)
	}
	return out, rows.Err()
}

// DirectionOf returns the direction swiper recorded on target, if any.
func (s *Store) DirectionOf(ctx context.Context, swiper, target int64) (Direction, bool, error) {
	var dir Direction
	err := s.DB.QueryRow(ctx, `
		SELECT direction FROM swipes WHERE swiper_id = $1 AND target_id = $2
	`, swiper, target).Scan(&dir)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return dir, true, nil
}

func (s *Store) ViewedTargets(ctx context.Context, user int64) (map[int64]bool, error) {
	rows, err := s.DB.Query(ctx, `SELECT target_id FROM swipes WHERE swiper_id = $1`, user)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[int64]bool)
	for rows.Next() {
		var target int64
		if err := rows.Scan(&target); err != nil {
			return nil, err
		}
		out[target] = true
	}
	return out, rows.Err()
}
