package payments

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/webhook"
)

// StripeConfig holds the webhook signing secret Stripe issues per
// endpoint; Stripe itself is only used for provider=bank orders (card
// payments).
type StripeConfig struct {
	WebhookSecret string
}

type StripeClient struct {
	Config StripeConfig
}

func NewStripeClient(cfg StripeConfig) *StripeClient {
	return &StripeClient{Config: cfg}
}

type stripePaymentIntentMetadata struct {
	OrderID string `json:"order_id"`
}

// VerifyNotification uses stripe-go's webhook signature construction to
// authenticate the event, then extracts the order id our CreateOrder call
// attached as PaymentIntent metadata.
func (c *StripeClient) VerifyNotification(ctx context.Context, payload []byte, signatureHeader string) (orderID, providerTxnID string, err error) {
	event, err := webhook.ConstructEvent(payload, signatureHeader, c.Config.WebhookSecret)
	if err != nil {
		return "", "", fmt.Errorf("stripe: signature verification failed: %w", err)
	}

	if event.Type != "payment_intent.succeeded" {
		return "", "", errors.New("stripe: ignoring non-success event type " + string(event.Type))
	}

	var intent stripe.PaymentIntent
	if err := json.Unmarshal(event.Data.Raw, &intent); err != nil {
		return "", "", fmt.Errorf("stripe: decoding payment intent: %w", err)
	}

	var meta stripePaymentIntentMetadata
	if raw, ok := intent.Metadata["order_id"]; ok {
		meta.OrderID = raw
	}
	if meta.OrderID == "" {
		return "", "", errors.New("stripe: payment intent is missing order_id metadata")
	}

	return meta.OrderID, intent.ID, nil
}
