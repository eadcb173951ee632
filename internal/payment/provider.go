// AngelaMos | 2026
// provider.go

package payment

import (
	"context"
	"errors"
)

var (
	ErrInvalidSignature = errors.New("invalid webhook signature")
	ErrMalformedPayload = errors.New("malformed webhook payload")
)

type EventType string

const (
	EventPaymentCompleted EventType = "payment.completed"
	EventIgnored          EventType = "ignored"
)

type CheckoutRequest struct {
	OrderID     string
	UserID      string
	Email       string
	PriceID     string
	Amount      int64
	Currency    string
	Description string
	SuccessURL  string
}

type CheckoutSession struct {
	SessionID string
	URL       string
}

// Event is a verified provider notification reduced to what reconciliation
// needs. ProviderEvent keeps the raw event name for logs and metrics.
type Event struct {
	ID            string
	Type          EventType
	ProviderEvent string
	OrderID       string
	UserID        string
	ProviderRef   string
}

// Provider creates hosted checkouts and authenticates their webhooks.
type Provider interface {
	Name() string
	CreateCheckout(ctx context.Context, req CheckoutRequest) (*CheckoutSession, error)
	ParseWebhook(ctx context.Context, payload []byte, signature string) (*Event, error)
}
