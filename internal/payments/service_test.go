package payments

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/quesbackend/ques-core/internal/clock"
)

type fakeStore struct {
	orders map[string]*Order
}

func newFakeStore() *fakeStore {
	return &fakeStore{orders: make(map[string]*Order)}
}

func (f *fakeStore) Create(ctx context.Context, o Order) error {
	cp := o
	f.orders[o.OrderID] = &cp
	return nil
}

func (f *fakeStore) Get(ctx context.Context, orderID string) (*Order, error) {
	o, ok := f.orders[orderID]
	if !ok {
		return nil, ErrNotFound
	}
	return o, nil
}

func (f *fakeStore) MarkPaid(ctx context.Context, orderID, providerTxnID string, now time.Time) (bool, error) {
	o, ok := f.orders[orderID]
	if !ok || o.Status != StatusPending || !o.ExpiresAt.After(now) {
		return false, nil
	}
	o.Status = StatusPaid
	o.ProviderTxnID = &providerTxnID
	return true, nil
}

func (f *fakeStore) SweepExpired(ctx context.Context, now time.Time) (int64, error) {
	var n int64
	for _, o := range f.orders {
		if o.Status == StatusPending && !o.ExpiresAt.After(now) {
			o.Status = StatusExpired
			n++
		}
	}
	return n, nil
}

type fakeExtender struct {
	extended map[int64]int
}

func (f *fakeExtender) Extend(ctx context.Context, userID int64, days int) error {
	if f.extended == nil {
		f.extended = make(map[int64]int)
	}
	f.extended[userID] += days
	return nil
}

type fakeVerifier struct {
	orderID string
	txnID   string
	err     error
}

func (f fakeVerifier) VerifyNotification(ctx context.Context, payload []byte, sig string) (string, string, error) {
	if f.err != nil {
		return "", "", f.err
	}
	return f.orderID, f.txnID, nil
}

func TestCreateOrder_PricesAndSetsExpiry(t *testing.T) {
	now := time.Date(2026, 7, 31, 12, 0, 0, 0, time.UTC)
	svc := &Service{Store: newFakeStore(), Clock: clock.NewFrozen(now), Membership: &fakeExtender{}}

	order, err := svc.CreateOrder(context.Background(), 1, 30, ProviderWeChat)
	if err != nil {
		t.Fatalf("CreateOrder: %v", err)
	}
	if order.AmountCents != 2999 {
		t.Fatalf("expected 2999 cents for a 30-day order, got %d", order.AmountCents)
	}
	if !order.ExpiresAt.Equal(now.Add(24 * time.Hour)) {
		t.Fatalf("expected 24h expiry, got %v", order.ExpiresAt)
	}
}

func TestConfirmPayment_SettlesAndExtendsMembership(t *testing.T) {
	now := time.Date(2026, 7, 31, 12, 0, 0, 0, time.UTC)
	ext := &fakeExtender{}
	store := newFakeStore()
	svc := &Service{
		Store:      store,
		Clock:      clock.NewFrozen(now),
		Membership: ext,
		Verifiers:  map[Provider]Verifier{ProviderWeChat: fakeVerifier{orderID: "order_1", txnID: "txn_1"}},
	}

	store.orders["order_1"] = &Order{OrderID: "order_1", UserID: 7, Status: StatusPending, DaysPurchased: 30, ExpiresAt: now.Add(time.Hour)}

	if err := svc.ConfirmPayment(context.Background(), ProviderWeChat, []byte(`{}`), ""); err != nil {
		t.Fatalf("ConfirmPayment: %v", err)
	}

	if store.orders["order_1"].Status != StatusPaid {
		t.Fatal("expected order to be marked paid")
	}
	if ext.extended[7] != 30 {
		t.Fatalf("expected membership extended by 30 days, got %d", ext.extended[7])
	}
}

func TestConfirmPayment_DuplicateIsNoOp(t *testing.T) {
	now := time.Date(2026, 7, 31, 12, 0, 0, 0, time.UTC)
	ext := &fakeExtender{}
	store := newFakeStore()
	svc := &Service{
		Store:      store,
		Clock:      clock.NewFrozen(now),
		Membership: ext,
		Verifiers:  map[Provider]Verifier{ProviderWeChat: fakeVerifier{orderID: "order_1", txnID: "txn_1"}},
	}

	store.orders["order_1"] = &Order{OrderID: "order_1", UserID: 7, Status: StatusPending, DaysPurchased: 30, ExpiresAt: now.Add(time.Hour)}

	if err := svc.ConfirmPayment(context.Background(), ProviderWeChat, []byte(`{}`), ""); err != nil {
		t.Fatalf("first ConfirmPayment: %v", err)
	}
	if err := svc.ConfirmPayment(context.Background(), ProviderWeChat, []byte(`{}`), ""); err != nil {
		t.Fatalf("duplicate ConfirmPayment: %v", err)
	}

	if ext.extended[7] != 30 {
		t.Fatalf("expected membership extended only once (30 days total), got %d", ext.extended[7])
	}
}

func TestConfirmPayment_VerificationFailureSurfacesError(t *testing.T) {
	now := time.Date(2026, 7, 31, 12, 0, 0, 0, time.UTC)
	svc := &Service{
		Store:      newFakeStore(),
		Clock:      clock.NewFrozen(now),
		Membership: &fakeExtender{},
		Verifiers:  map[Provider]Verifier{ProviderWeChat: fakeVerifier{err: errors.New("bad signature")}},
	}

	if err := svc.ConfirmPayment(context.Background(), ProviderWeChat, []byte(`{}`), ""); err == nil {
		t.Fatal("expected verification failure to surface as an error")
	}
}

func TestSweepExpired_ExpiresPastDueOrders(t *testing.T) {
	now := time.Date(2026, 7, 31, 12, 0, 0, 0, time.UTC)
	store := newFakeStore()
	svc := &Service{Store: store, Clock: clock.NewFrozen(now), Membership: &fakeExtender{}}

	store.orders["old"] = &Order{OrderID: "old", Status: StatusPending, ExpiresAt: now.Add(-time.Minute)}

	n, err := svc.SweepExpired(context.Background())
	if err != nil {
		t.Fatalf("SweepExpired: %v", err)
	}
	if n != 1 || store.orders["old"].Status != StatusExpired {
		t.Fatalf("expected the overdue order to be expired, got n=%d status=%s", n, store.orders["old"].Status)
	}
}
