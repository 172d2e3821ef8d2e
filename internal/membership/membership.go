// Package membership implements the membership ledger and day-package
// pricing. Tier is always derived from
// end_date rather than trusted from a cached flag, so check-time reads are
// correct even if the sweeper has not run yet; the sweeper only rewrites
// expired rows to tier free with end_date cleared.
package membership

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/quesbackend/ques-core/internal/clock"
	"github.com/quesbackend/ques-core/internal/quota"
)

type Record struct {
	UserID    int64
	Tier      quota.Tier
	StartDate time.Time
	EndDate   *time.Time
	Active    bool
}

// Pricing mirrors the day-package rates: 29.99 for a 30-day package,
// 305.91 for a 365-day package (a 15% discount over twelve 30-day
// packages), and a linear 29.99/30-per-day rate for any other duration.
const (
	monthlyDays     = 30
	annualDays      = 365
	monthlyPriceUSD = 29.99
	annualPriceUSD  = 305.91
)

// PriceForDays returns the USD price for purchasing the given number of
// membership days.
func PriceForDays(days int) float64 {
	switch days {
	case monthlyDays:
		return monthlyPriceUSD
	case annualDays:
		return annualPriceUSD
	default:
		perDay := monthlyPriceUSD / monthlyDays
		return roundCents(perDay * float64(days))
	}
}

func roundCents(v float64) float64 {
	return float64(int64(v*100+0.5)) / 100
}

// ledger is the persistence seam Service needs; *Store satisfies it
// against Postgres, and tests substitute an in-memory fake.
type ledger interface {
	Get(ctx context.Context, userID int64) (*Record, error)
	Extend(ctx context.Context, userID int64, now time.Time, days int) error
	Downgrade(ctx context.Context, userID int64) error
	SweepExpired(ctx context.Context, now time.Time) (int64, error)
}

type Service struct {
	Store ledger
	Clock clock.Clock
}

func NewService(db *pgxpool.Pool, c clock.Clock) *Service {
	return &Service{Store: NewStore(db), Clock: c}
}

// TierOf satisfies quota.MembershipLookup: free when the membership row is
// missing or end_date has passed, paid otherwise. This is the "tier is
// derived as free when end_date <= now" invariant.
func (s *Service) TierOf(ctx context.Context, userID int64) (quota.Tier, error) {
	rec, err := s.Store.Get(ctx, userID)
	if err != nil {
		return "", err
	}
	if rec == nil {
		return quota.TierFree, nil
	}
	if rec.EndDate != nil && !rec.EndDate.After(s.Clock.Now()) {
		return quota.TierFree, nil
	}
	return rec.Tier, nil
}

// Extend adds days to max(now, end_date) and flips the tier to paid.
func (s *Service) Extend(ctx context.Context, userID int64, days int) error {
	now := s.Clock.Now()
	return s.Store.Extend(ctx, userID, now, days)
}

// Downgrade flips the tier to free and clears end_date immediately.
func (s *Service) Downgrade(ctx context.Context, userID int64) error {
	return s.Store.Downgrade(ctx, userID)
}

// SweepExpired downgrades every membership whose end_date has passed.
// Optimisation only: TierOf already derives the correct tier lazily.
func (s *Service) SweepExpired(ctx context.Context) (int64, error) {
	return s.Store.SweepExpired(ctx, s.Clock.Now())
}
