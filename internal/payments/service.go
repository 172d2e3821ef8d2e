package payments

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/quesbackend/ques-core/internal/apperr"
	"github.com/quesbackend/ques-core/internal/clock"
	"github.com/quesbackend/ques-core/internal/membership"
)

// Verifier authenticates a provider's payment notification and reports
// the order and transaction it refers to, per the payment-provider
// collaborator contract. WeChatClient, AlipayClient, and
// StripeClient each implement this.
type Verifier interface {
	VerifyNotification(ctx context.Context, payload []byte, signatureHeader string) (orderID, providerTxnID string, err error)
}

type store interface {
	Create(ctx context.Context, o Order) error
	Get(ctx context.Context, orderID string) (*Order, error)
	MarkPaid(ctx context.Context, orderID, providerTxnID string, now time.Time) (bool, error)
	SweepExpired(ctx context.Context, now time.Time) (int64, error)
}

type extender interface {
	Extend(ctx context.Context, userID int64, days int) error
}

type Service struct {
	Store      store
	Clock      clock.Clock
	Membership extender
	Verifiers  map[Provider]Verifier
}

func NewService(db *pgxpool.Pool, c clock.Clock, m *membership.Service, verifiers map[Provider]Verifier) *Service {
	return &Service{Store: NewStore(db), Clock: c, Membership: m, Verifiers: verifiers}
}

// CreateOrder prices the requested days via membership.PriceForDays and
// opens a pending order with a 24h expiry.
func (s *Service) CreateOrder(ctx context.Context, userID int64, days int, provider Provider) (Order, error) {
	now := s.Clock.Now()
	priceUSD := membership.PriceForDays(days)

	order := Order{
		OrderID:       clock.NewOpaqueID("order"),
		UserID:        userID,
		AmountCents:   int64(priceUSD*100 + 0.5),
		Currency:      "USD",
		Provider:      provider,
		Status:        StatusPending,
		DaysPurchased: days,
		CreatedAt:     now,
		ExpiresAt:     now.Add(orderTTL),
	}

	if err := s.Store.Create(ctx, order); err != nil {
		return Order{}, err
	}
	return order, nil
}

// ConfirmPayment verifies the notification's authenticity through the
// named provider's contract, then idempotently settles the order: a
// repeated notification for an already-paid order is a no-op.
func (s *Service) ConfirmPayment(ctx context.Context, provider Provider, payload []byte, signatureHeader string) error {
	verifier, ok := s.Verifiers[provider]
	if !ok {
		return apperr.New(apperr.InvalidArgument, "unknown payment provider")
	}

	orderID, providerTxnID, err := verifier.VerifyNotification(ctx, payload, signatureHeader)
	if err != nil {
		return apperr.New(apperr.PaymentVerifyFail, err.Error())
	}

	order, err := s.Store.Get(ctx, orderID)
	if err != nil {
		return err
	}

	settled, err := s.Store.MarkPaid(ctx, orderID, providerTxnID, s.Clock.Now())
	if err != nil {
		return err
	}
	if !settled {
		return nil
	}

	return s.Membership.Extend(ctx, order.UserID, order.DaysPurchased)
}

// SweepExpired expires pending orders whose 24h window has elapsed.
func (s *Service) SweepExpired(ctx context.Context) (int64, error) {
	return s.Store.SweepExpired(ctx, s.Clock.Now())
}
