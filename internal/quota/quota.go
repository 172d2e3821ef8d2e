// Package quota implements UsageCounter-backed tiered usage limits for
// free and paid members. check and consume are
// backed by the same atomic unique-key upsert so they can never disagree
// under concurrency; the actual tier is always re-derived from the
// membership row rather than cached, so a sweeper's lazy downgrade is an
// optimisation and never a correctness requirement.
package quota

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/quesbackend/ques-core/internal/apperr"
	"github.com/quesbackend/ques-core/internal/clock"
)

type ActionKind string

const (
	ActionSwipe       ActionKind = "swipe"
	ActionCardCreate  ActionKind = "project_card_create"
	ActionMessage     ActionKind = "message"
	ActionProjectIdea ActionKind = "project_idea"
)

type Tier string

const (
	TierFree Tier = "free"
	TierPaid Tier = "paid"
)

// unlimited is the sentinel original_source uses for "no cap".
const unlimited = -1

type limits struct {
	perDay  int
	perHour int
}

// policy is the LIMITS table from the membership service this component
// is grounded on: free tiers cap per day; paid tiers raise the card cap
// and lift the other daily caps, with swipes and project ideas
// rate-guarded per hour to deter scripted abuse.
var policy = map[Tier]map[ActionKind]limits{
	TierFree: {
		ActionSwipe:       {perDay: 30},
		ActionCardCreate:  {perDay: 2},
		ActionMessage:     {perDay: 50},
		ActionProjectIdea: {perDay: 1},
	},
	TierPaid: {
		ActionSwipe:       {perDay: unlimited, perHour: 30},
		ActionCardCreate:  {perDay: 10},
		ActionMessage:     {perDay: unlimited},
		ActionProjectIdea: {perDay: unlimited, perHour: 30},
	},
}

// FreeProjectCardsMax is the absolute cap on live project cards for free
// users (separate from the per-day creation cap); paid users have no cap.
const FreeProjectCardsMax = 2

type Decision struct {
	Allowed      bool
	Reason       string
	DailyUsage   int
	HourlyUsage  int
	DailyLimit   int
	HourlyLimit  int
}

type Stats struct {
	Tier          Tier
	DailyUsage    map[ActionKind]int
	CanSwipe      bool
	CanCreateCard bool
}

// MembershipLookup resolves a user's current tier; implemented by
// internal/membership.Service so this package never imports it directly.
type MembershipLookup interface {
	TierOf(ctx context.Context, userID int64) (Tier, error)
}

// counterStore is the persistence seam Service needs; *Store satisfies it
// against Postgres, and tests substitute an in-memory fake.
type counterStore interface {
	SumDay(ctx context.Context, userID int64, action ActionKind, dayBucket string) (int, error)
	GetHour(ctx context.Context, userID int64, action ActionKind, hourBucket string) (int, error)
	Increment(ctx context.Context, userID int64, action ActionKind, hourBucket, dayBucket string, n int) error
}

type Service struct {
	Store      counterStore
	Clock      clock.Clock
	Membership MembershipLookup
}

func NewService(db *pgxpool.Pool, c clock.Clock, membership MembershipLookup) *Service {
	return &Service{Store: NewStore(db), Clock: c, Membership: membership}
}

// Check reads active membership and sums today's (and this hour's, when
// applicable) counters, returning a decision without mutating state.
func (s *Service) Check(ctx context.Context, userID int64, action ActionKind) (Decision, error) {
	tier, err := s.Membership.TierOf(ctx, userID)
	if err != nil {
		return Decision{}, err
	}

	lim, ok := policy[tier][action]
	if !ok {
		return Decision{Allowed: true}, nil
	}

	now := s.Clock.Now()
	daily, err := s.Store.SumDay(ctx, userID, action, clock.DayBucket(now))
	if err != nil {
		return Decision{}, err
	}

	decision := Decision{DailyUsage: daily, DailyLimit: lim.perDay}

	if lim.perDay != unlimited && daily >= lim.perDay {
		decision.Allowed = false
		decision.Reason = "daily limit reached"
		return decision, nil
	}

	if lim.perHour > 0 {
		hourly, err := s.Store.GetHour(ctx, userID, action, clock.HourBucket(now))
		if err != nil {
			return Decision{}, err
		}
		decision.HourlyUsage = hourly
		decision.HourlyLimit = lim.perHour
		if hourly >= lim.perHour {
			decision.Allowed = false
			decision.Reason = "hourly limit reached"
			return decision, nil
		}
	}

	decision.Allowed = true
	return decision, nil
}

// Consume atomically increments the counter and returns the same decision
// Check would have returned; denial is a DeniedQuota error so callers don't
// need to re-derive it from Decision.Reason.
func (s *Service) Consume(ctx context.Context, userID int64, action ActionKind, n int) (Decision, error) {
	decision, err := s.Check(ctx, userID, action)
	if err != nil {
		return Decision{}, err
	}
	if !decision.Allowed {
		return decision, apperr.DeniedQuota(decision.Reason)
	}

	now := s.Clock.Now()
	if err := s.Store.Increment(ctx, userID, action, clock.HourBucket(now), clock.DayBucket(now), n); err != nil {
		return Decision{}, err
	}

	decision.DailyUsage += n
	decision.HourlyUsage += n
	return decision, nil
}

// Stats returns a full usage snapshot with the derived can_swipe and
// can_create_card flags original_source's get_usage_stats exposes.
func (s *Service) Stats(ctx context.Context, userID int64, currentCardCount int) (Stats, error) {
	tier, err := s.Membership.TierOf(ctx, userID)
	if err != nil {
		return Stats{}, err
	}

	now := s.Clock.Now()
	day := clock.DayBucket(now)

	usage := make(map[ActionKind]int)
	for _, action := range []ActionKind{ActionSwipe, ActionCardCreate, ActionMessage, ActionProjectIdea} {
		n, err := s.Store.SumDay(ctx, userID, action, day)
		if err != nil {
			return Stats{}, err
		}
		usage[action] = n
	}

	swipeDecision, err := s.Check(ctx, userID, ActionSwipe)
	if err != nil {
		return Stats{}, err
	}

	canCreateCard := true
	maxCards := FreeProjectCardsMax
	if tier == TierPaid {
		maxCards = unlimited
	}
	if maxCards != unlimited && currentCardCount >= maxCards {
		canCreateCard = false
	} else {
		cardDecision, err := s.Check(ctx, userID, ActionCardCreate)
		if err != nil {
			return Stats{}, err
		}
		canCreateCard = cardDecision.Allowed
	}

	return Stats{
		Tier:          tier,
		DailyUsage:    usage,
		CanSwipe:      swipeDecision.Allowed,
		CanCreateCard: canCreateCard,
	}, nil
}
