package quota

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/quesbackend/ques-core/internal/apperr"
	"github.com/quesbackend/ques-core/internal/clock"
)

type fakeMembership struct{ tier Tier }

func (f fakeMembership) TierOf(ctx context.Context, userID int64) (Tier, error) {
	return f.tier, nil
}

type fakeStore struct {
	mu     sync.Mutex
	daily  map[string]int
	hourly map[string]int
}

func newFakeStore() *fakeStore {
	return &fakeStore{daily: make(map[string]int), hourly: make(map[string]int)}
}

func (f *fakeStore) SumDay(ctx context.Context, userID int64, action ActionKind, dayBucket string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.daily[dayBucket+string(action)], nil
}

func (f *fakeStore) GetHour(ctx context.Context, userID int64, action ActionKind, hourBucket string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.hourly[hourBucket+string(action)], nil
}

func (f *fakeStore) Increment(ctx context.Context, userID int64, action ActionKind, hourBucket, dayBucket string, n int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.daily[dayBucket+string(action)] += n
	f.hourly[hourBucket+string(action)] += n
	return nil
}

func newTestService(tier Tier, now time.Time) (*Service, *fakeStore) {
	store := newFakeStore()
	svc := &Service{
		Store:      store,
		Clock:      clock.NewFrozen(now),
		Membership: fakeMembership{tier: tier},
	}
	return svc, store
}

func TestFreeTier_SwipeAllowedUnderLimit(t *testing.T) {
	now := time.Date(2026, 7, 31, 12, 0, 0, 0, time.UTC)
	svc, _ := newTestService(TierFree, now)

	d, err := svc.Check(context.Background(), 1, ActionSwipe)
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	if !d.Allowed {
		t.Fatal("expected swipe to be allowed with no prior usage")
	}
}

func TestFreeTier_SwipeDeniedAtDailyLimit(t *testing.T) {
	now := time.Date(2026, 7, 31, 12, 0, 0, 0, time.UTC)
	svc, _ := newTestService(TierFree, now)

	for i := 0; i < 30; i++ {
		if _, err := svc.Consume(context.Background(), 1, ActionSwipe, 1); err != nil {
			t.Fatalf("Consume %d: %v", i, err)
		}
	}

	_, err := svc.Consume(context.Background(), 1, ActionSwipe, 1)
	if err == nil {
		t.Fatal("expected the 31st swipe to be denied")
	}
	appErr, ok := apperr.As(err)
	if !ok || appErr.Kind != apperr.QuotaDenied {
		t.Fatalf("expected QuotaDenied, got %v", err)
	}
}

func TestPaidTier_UnlimitedDailySwipesButHourlyGuarded(t *testing.T) {
	now := time.Date(2026, 7, 31, 12, 0, 0, 0, time.UTC)
	svc, _ := newTestService(TierPaid, now)

	for i := 0; i < 30; i++ {
		if _, err := svc.Consume(context.Background(), 1, ActionSwipe, 1); err != nil {
			t.Fatalf("Consume %d: %v", i, err)
		}
	}

	if _, err := svc.Consume(context.Background(), 1, ActionSwipe, 1); err == nil {
		t.Fatal("expected the 31st swipe this hour to be denied for a paid user")
	}
}

func TestPaidTier_SwipesResumeNextHour(t *testing.T) {
	now := time.Date(2026, 7, 31, 12, 0, 0, 0, time.UTC)
	svc, _ := newTestService(TierPaid, now)
	frozen := svc.Clock.(*clock.Frozen)

	for i := 0; i < 30; i++ {
		if _, err := svc.Consume(context.Background(), 1, ActionSwipe, 1); err != nil {
			t.Fatalf("Consume %d: %v", i, err)
		}
	}

	frozen.Advance(time.Hour)

	if _, err := svc.Consume(context.Background(), 1, ActionSwipe, 1); err != nil {
		t.Fatalf("expected swipe to be allowed again in the new hour bucket, got %v", err)
	}
}

func TestFreeTier_ResetsAtDayBoundary(t *testing.T) {
	now := time.Date(2026, 7, 31, 23, 59, 59, 0, time.UTC)
	svc, _ := newTestService(TierFree, now)
	frozen := svc.Clock.(*clock.Frozen)

	for i := 0; i < 30; i++ {
		if _, err := svc.Consume(context.Background(), 1, ActionSwipe, 1); err != nil {
			t.Fatalf("Consume %d: %v", i, err)
		}
	}
	if _, err := svc.Consume(context.Background(), 1, ActionSwipe, 1); err == nil {
		t.Fatal("expected 31st swipe to be denied before midnight")
	}

	frozen.Advance(2 * time.Second)

	if _, err := svc.Consume(context.Background(), 1, ActionSwipe, 1); err != nil {
		t.Fatalf("expected swipe to be allowed again after crossing midnight, got %v", err)
	}
}

func TestConsume_CheckAndConsumeAgree(t *testing.T) {
	now := time.Date(2026, 7, 31, 12, 0, 0, 0, time.UTC)
	svc, _ := newTestService(TierFree, now)

	for i := 0; i < 2; i++ {
		if _, err := svc.Consume(context.Background(), 1, ActionCardCreate, 1); err != nil {
			t.Fatalf("Consume %d: %v", i, err)
		}
	}

	checked, err := svc.Check(context.Background(), 1, ActionCardCreate)
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	if checked.Allowed {
		t.Fatal("expected Check to agree with Consume that the daily card limit is reached")
	}
}

func TestStats_DerivesCanSwipeAndCanCreateCard(t *testing.T) {
	now := time.Date(2026, 7, 31, 12, 0, 0, 0, time.UTC)
	svc, _ := newTestService(TierFree, now)

	stats, err := svc.Stats(context.Background(), 1, 0)
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if !stats.CanSwipe || !stats.CanCreateCard {
		t.Fatalf("expected a fresh free user to be able to swipe and create a card, got %+v", stats)
	}

	stats, err = svc.Stats(context.Background(), 1, FreeProjectCardsMax)
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if stats.CanCreateCard {
		t.Fatal("expected can_create_card to be false once the free card cap is reached")
	}
}
