package membership

import (
	"context"
	"testing"
	"time"

	"github.com/quesbackend/ques-core/internal/clock"
	"github.com/quesbackend/ques-core/internal/quota"
)

type fakeLedger struct {
	records map[int64]*Record
}

func newFakeLedger() *fakeLedger {
	return &fakeLedger{records: make(map[int64]*Record)}
}

func (f *fakeLedger) Get(ctx context.Context, userID int64) (*Record, error) {
	return f.records[userID], nil
}

func (f *fakeLedger) Extend(ctx context.Context, userID int64, now time.Time, days int) error {
	rec, ok := f.records[userID]
	if !ok {
		rec = &Record{UserID: userID, StartDate: now}
		f.records[userID] = rec
	}
	rec.Tier = quota.TierPaid
	base := now
	if rec.EndDate != nil && rec.EndDate.After(base) {
		base = *rec.EndDate
	}
	newEnd := base.Add(time.Duration(days) * 24 * time.Hour)
	rec.EndDate = &newEnd
	rec.Active = true
	return nil
}

func (f *fakeLedger) Downgrade(ctx context.Context, userID int64) error {
	rec, ok := f.records[userID]
	if !ok {
		return nil
	}
	rec.Tier = quota.TierFree
	rec.EndDate = nil
	return nil
}

func (f *fakeLedger) SweepExpired(ctx context.Context, now time.Time) (int64, error) {
	var n int64
	for _, rec := range f.records {
		if rec.Tier == quota.TierPaid && rec.EndDate != nil && !rec.EndDate.After(now) {
			rec.Tier = quota.TierFree
			rec.EndDate = nil
			n++
		}
	}
	return n, nil
}

func TestTierOf_NoRecordIsFree(t *testing.T) {
	svc := &Service{Store: newFakeLedger(), Clock: clock.NewFrozen(time.Now())}
	tier, err := svc.TierOf(context.Background(), 1)
	if err != nil {
		t.Fatalf("TierOf: %v", err)
	}
	if tier != quota.TierFree {
		t.Fatalf("expected free tier for a user with no membership row, got %s", tier)
	}
}

func TestExtend_SetsPaidAndEndDate(t *testing.T) {
	now := time.Date(2026, 7, 31, 0, 0, 0, 0, time.UTC)
	svc := &Service{Store: newFakeLedger(), Clock: clock.NewFrozen(now)}

	if err := svc.Extend(context.Background(), 1, 30); err != nil {
		t.Fatalf("Extend: %v", err)
	}

	tier, err := svc.TierOf(context.Background(), 1)
	if err != nil {
		t.Fatalf("TierOf: %v", err)
	}
	if tier != quota.TierPaid {
		t.Fatalf("expected paid tier after extend, got %s", tier)
	}
}

func TestExtend_StacksOnExistingEndDate(t *testing.T) {
	now := time.Date(2026, 7, 31, 0, 0, 0, 0, time.UTC)
	svc := &Service{Store: newFakeLedger(), Clock: clock.NewFrozen(now)}

	if err := svc.Extend(context.Background(), 1, 30); err != nil {
		t.Fatalf("Extend: %v", err)
	}
	if err := svc.Extend(context.Background(), 1, 30); err != nil {
		t.Fatalf("Extend: %v", err)
	}

	rec, _ := svc.Store.Get(context.Background(), 1)
	expected := now.Add(60 * 24 * time.Hour)
	if !rec.EndDate.Equal(expected) {
		t.Fatalf("expected stacked end date %v, got %v", expected, rec.EndDate)
	}
}

func TestTierOf_DerivesFreeAfterEndDatePasses(t *testing.T) {
	now := time.Date(2026, 7, 31, 0, 0, 0, 0, time.UTC)
	frozen := clock.NewFrozen(now)
	svc := &Service{Store: newFakeLedger(), Clock: frozen}

	if err := svc.Extend(context.Background(), 1, 1); err != nil {
		t.Fatalf("Extend: %v", err)
	}

	frozen.Advance(2 * 24 * time.Hour)

	tier, err := svc.TierOf(context.Background(), 1)
	if err != nil {
		t.Fatalf("TierOf: %v", err)
	}
	if tier != quota.TierFree {
		t.Fatal("expected tier to be derived as free once end_date has passed, without waiting for a sweep")
	}
}

func TestDowngrade_ClearsEndDate(t *testing.T) {
	now := time.Date(2026, 7, 31, 0, 0, 0, 0, time.UTC)
	svc := &Service{Store: newFakeLedger(), Clock: clock.NewFrozen(now)}

	if err := svc.Extend(context.Background(), 1, 30); err != nil {
		t.Fatalf("Extend: %v", err)
	}
	if err := svc.Downgrade(context.Background(), 1); err != nil {
		t.Fatalf("Downgrade: %v", err)
	}

	tier, err := svc.TierOf(context.Background(), 1)
	if err != nil {
		t.Fatalf("TierOf: %v", err)
	}
	if tier != quota.TierFree {
		t.Fatalf("expected free tier after downgrade, got %s", tier)
	}
}

func TestSweepExpired_DowngradesPastEndDate(t *testing.T) {
	now := time.Date(2026, 7, 31, 0, 0, 0, 0, time.UTC)
	svc := &Service{Store: newFakeLedger(), Clock: clock.NewFrozen(now)}

	if err := svc.Extend(context.Background(), 1, 1); err != nil {
		t.Fatalf("Extend: %v", err)
	}

	n, err := svc.Store.SweepExpired(context.Background(), now.Add(2*24*time.Hour))
	if err != nil {
		t.Fatalf("SweepExpired: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected 1 membership swept, got %d", n)
	}
}

func TestPriceForDays_MonthlyAndAnnual(t *testing.T) {
	if got := PriceForDays(30); got != 29.99 {
		t.Fatalf("expected 29.99 for 30 days, got %v", got)
	}
	if got := PriceForDays(365); got != 305.91 {
		t.Fatalf("expected 305.91 for 365 days, got %v", got)
	}
}

func TestPriceForDays_CustomIsLinear(t *testing.T) {
	got := PriceForDays(60)
	expected := roundCents(29.99 / 30 * 60)
	if got != expected {
		t.Fatalf("expected linear rate %v for 60 days, got %v", expected, got)
	}
}
