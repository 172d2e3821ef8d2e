// Package swipe implements directional swipes and mutual-pair detection.
package swipe

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/quesbackend/ques-core/internal/apperr"
	"github.com/quesbackend/ques-core/internal/clock"
)

type Direction string

const (
	Like      Direction = "like"
	Dislike   Direction = "dislike"
	SuperLike Direction = "super_like"
)

// repo is the persistence seam Service needs; *Store satisfies it against
// Postgres, and tests substitute an in-memory fake.
type repo interface {
	Insert(ctx context.Context, swiper, target int64, direction Direction, now time.Time) (bool, error)
	Upsert(ctx context.Context, swiper, target int64, direction Direction, now time.Time) error
	MutualLikes(ctx context.Context, user int64) ([]int64, error)
	ViewedTargets(ctx context.Context, user int64) (map[int64]bool, error)
	DirectionOf(ctx context.Context, swiper, target int64) (Direction, bool, error)
}

type Service struct {
	Store repo
	Clock clock.Clock
}

func NewService(db *pgxpool.Pool, c clock.Clock) *Service {
	return &Service{Store: NewStore(db), Clock: c}
}

// Swipe records swiper's directional swipe on target. Quota admission is
// the caller's responsibility (httpapi calls quota.Consume before this),
// so Swipe only enforces its own invariants: no self-swipe,
// reject-duplicate by default.
func (s *Service) Swipe(ctx context.Context, swiper, target int64, direction Direction) error {
	if swiper == target {
		return apperr.New(apperr.InvalidArgument, "cannot swipe on yourself")
	}

	now := s.Clock.Now()
	created, err := s.Store.Insert(ctx, swiper, target, direction, now)
	if err != nil {
		return err
	}
	if !created {
		return apperr.Duplicate("already swiped on this user")
	}
	return nil
}

// AdminOverwrite replaces an existing swipe's direction regardless of the
// reject-duplicate default; it is an explicit admin tool, never reachable
// from the normal user-facing dispatch path.
func (s *Service) AdminOverwrite(ctx context.Context, swiper, target int64, direction Direction) error {
	if swiper == target {
		return apperr.New(apperr.InvalidArgument, "cannot swipe on yourself")
	}
	return s.Store.Upsert(ctx, swiper, target, direction, s.Clock.Now())
}

// MutualPairs returns every user who has swiped "like" on user and whom
// user has also swiped "like" on.
func (s *Service) MutualPairs(ctx context.Context, user int64) ([]int64, error) {
	return s.Store.MutualLikes(ctx, user)
}

// Viewed returns the set of target ids user has already swiped on, to
// exclude from future recommendations.
func (s *Service) Viewed(ctx context.Context, user int64) (map[int64]bool, error) {
	return s.Store.ViewedTargets(ctx, user)
}

// HasLiked satisfies chat.LikeChecker: send_greeting's precondition that
// sender has swiped target with direction=like.
func (s *Service) HasLiked(ctx context.Context, sender, target int64) (bool, error) {
	dir, ok, err := s.Store.DirectionOf(ctx, sender, target)
	if err != nil {
		return false, err
	}
	return ok && dir == Like, nil
}
