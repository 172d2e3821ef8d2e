package payments

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

func NewStore(db *pgxpool.Pool) *Store {
	return &Store{DB: db}
}

var ErrNotFound = errors.New("payments: not found")

func (s *Store) Create(ctx context.Context, o Order) error {
	_, err := s.DB.Exec(ctx, `
		INSERT INTO payment_orders (order_id, user_id, amount_cents, currency, provider, status, days_purchased, created_at, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, o.OrderID, o.UserID, o.AmountCents, o.Currency, o.Provider, o.Status, o.DaysPurchased, o.CreatedAt, o.ExpiresAt)
	return err
}

func (s *Store) Get(ctx context.Context, orderID string) (*Order, error) {
	var o Order
	err := s.DB.QueryRow(ctx, `
		SELECT order_id, user_id, amount_cents, currency, provider, status, days_purchased, created_at, expires_at, provider_txn_id
		FROM payment_orders WHERE order_id = $1
	`, orderID).Scan(&o.OrderID, &o.UserID, &o.AmountCents, &o.Currency, &o.Provider, &o.Status,
		&o.DaysPurchased, &o.CreatedAt, &o.ExpiresAt, &o.ProviderTxnID)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &o, nil
}

// MarkPaid flips a pending, unexpired order to paid and records the
// provider transaction id, in one conditional statement so a repeated
// notification for an already-paid order is a no-op (RowsAffected()==0).
func (s *Store) MarkPaid(ctx context.Context, orderID, providerTxnID string, now time.Time) (bool, error) {
	tag, err := s.DB.Exec(ctx, `
		UPDATE payment_orders SET status = 'paid', provider_txn_id = $2
		WHERE order_id = $1 AND status = 'pending' AND expires_at > $3
	`, orderID, providerTxnID, now)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// SweepExpired expires pending orders past their expires_at.
func (s *Store) SweepExpired(ctx context.Context, now time.Time) (int64, error) {
	tag, err := s.DB.Exec(ctx, `
		UPDATE payment_orders SET status = 'expired' WHERE status = 'pending' AND expires_at <= $1
	`, now)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
