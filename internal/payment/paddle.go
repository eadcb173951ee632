// AngelaMos | 2026
// paddle.go

package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	paddle "github.com/PaddleHQ/paddle-go-sdk/v4"

	"github.com/denemeapp/kpss-backend/internal/config"
	"github.com/denemeapp/kpss-backend/internal/core"
)

const (
	ProviderPaddle        = "paddle"
	PaddleSignatureHeader = "Paddle-Signature"
)

type Paddle struct {
	client   *paddle.SDK
	verifier *paddle.WebhookVerifier
}

func NewPaddle(cfg config.PaddleConfig) (*Paddle, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("paddle api key is required")
	}
	if cfg.WebhookSecret == "" {
		return nil, errors.New("paddle webhook secret is required")
	}

	var (
		client *paddle.SDK
		err    error
	)

	switch strings.ToLower(cfg.Environment) {
	case "sandbox":
		client, err = paddle.NewSandbox(cfg.APIKey)
	case "production", "":
		client, err = paddle.New(cfg.APIKey)
	default:
		return nil, fmt.Errorf("invalid paddle environment: %s", cfg.Environment)
	}
	if err != nil {
		return nil, fmt.Errorf("create paddle client: %w", err)
	}

	return &Paddle{
		client:   client,
		verifier: paddle.NewWebhookVerifier(cfg.WebhookSecret),
	}, nil
}

func (p *Paddle) Name() string {
	return ProviderPaddle
}

// CreateCheckout opens a transaction for the plan's catalog price. The order
// and user ids travel as custom data and come back on the webhook.
func (p *Paddle) CreateCheckout(
	ctx context.Context,
	req CheckoutRequest,
) (*CheckoutSession, error) {
	if req.PriceID == "" {
		return nil, fmt.Errorf("plan has no provider price: %w", core.ErrInvalidInput)
	}

	item := paddle.NewCreateTransactionItemsTransactionItemFromCatalog(
		&paddle.TransactionItemFromCatalog{
			PriceID:  req.PriceID,
			Quantity: 1,
		},
	)

	txnReq := &paddle.CreateTransactionRequest{
		Items: []paddle.CreateTransactionItems{*item},
		CustomData: paddle.CustomData{
			"order_id": req.OrderID,
			"user_id":  req.UserID,
		},
	}
	if req.Email != "" {
		txnReq.CustomData["email"] = req.Email
	}
	if req.SuccessURL != "" {
		txnReq.Checkout = &paddle.TransactionCheckout{
			URL: paddle.PtrTo(req.SuccessURL),
		}
	}

	txn, err := p.client.TransactionsClient.CreateTransaction(ctx, txnReq)
	if err != nil {
		return nil, fmt.Errorf("create paddle transaction: %w: %w", core.ErrProviderError, err)
	}

	if txn.Checkout == nil || txn.Checkout.URL == nil {
		return nil, fmt.Errorf("paddle returned no checkout url: %w", core.ErrProviderError)
	}

	return &CheckoutSession{
		SessionID: txn.ID,
		URL:       *txn.Checkout.URL,
	}, nil
}

type paddleNotification struct {
	EventID   string `json:"event_id"`
	EventType string `json:"event_type"`
	Data      struct {
		ID         string         `json:"id"`
		Status     string         `json:"status"`
		CustomData map[string]any `json:"custom_data"`
	} `json:"data"`
}

func (p *Paddle) ParseWebhook(
	ctx context.Context,
	payload []byte,
	signature string,
) (*Event, error) {
	req, err := http.NewRequestWithContext(
		ctx,
		http.MethodPost,
		"/webhooks/paddle",
		bytes.NewReader(payload),
	)
	if err != nil {
		return nil, fmt.Errorf("build verification request: %w", err)
	}
	req.Header.Set(PaddleSignatureHeader, signature)

	valid, err := p.verifier.Verify(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidSignature, err)
	}
	if !valid {
		return nil, ErrInvalidSignature
	}

	return decodePaddleNotification(payload)
}

func decodePaddleNotification(payload []byte) (*Event, error) {
	var n paddleNotification
	if err := json.Unmarshal(payload, &n); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedPayload, err)
	}

	event := &Event{
		ID:            n.EventID,
		Type:          mapPaddleEvent(n.EventType),
		ProviderEvent: n.EventType,
		ProviderRef:   n.Data.ID,
		OrderID:       stringField(n.Data.CustomData, "order_id"),
		UserID:        stringField(n.Data.CustomData, "user_id"),
	}

	if event.Type == EventPaymentCompleted && event.OrderID == "" {
		return nil, fmt.Errorf("%w: completed transaction without order_id", ErrMalformedPayload)
	}

	return event, nil
}

func mapPaddleEvent(eventType string) EventType {
	switch eventType {
	case "transaction.completed", "transaction.paid":
		return EventPaymentCompleted
	default:
		return EventIgnored
	}
}

func stringField(m map[string]any, key string) string {
	if v, ok := m[key].(string); ok {
		return v
	}
	return ""
}

var _ Provider = (*Paddle)(nil)
