// Package payments implements the PaymentOrder lifecycle:
// create_order/confirm_payment, WeChat and Alipay HTTP notification
// verification, and Stripe for provider=bank orders.
package payments

import "time"

type Provider string

const (
	ProviderWeChat Provider = "wechat"
	ProviderAlipay Provider = "alipay"
	ProviderBank   Provider = "bank"
)

type Status string

const (
	StatusPending Status = "pending"
	StatusPaid    Status = "paid"
	StatusFailed  Status = "failed"
	StatusExpired Status = "expired"
)

type Order struct {
	OrderID       string
	UserID        int64
	AmountCents   int64
	Currency      string
	Provider      Provider
	Status        Status
	DaysPurchased int
	CreatedAt     time.Time
	ExpiresAt     time.Time
	ProviderTxnID *string
}

// orderTTL is the 24h pending-order lifetime.
const orderTTL = 24 * time.Hour
