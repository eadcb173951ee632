// AngelaMos | 2026
// fake.go

package payment

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
)

const (
	ProviderFake        = "fake"
	FakeSignatureHeader = "X-Signature"
)

// Fake is a Provider for tests and local runs without Paddle credentials.
// Webhook payloads use the same JSON shape as Paddle and are signed with a
// hex HMAC-SHA256 of the body keyed by Secret.
type Fake struct {
	mu       sync.Mutex
	Secret   string
	Err      error
	Requests []CheckoutRequest
	seq      int
}

func NewFake(secret string) *Fake {
	return &Fake{Secret: secret}
}

func (f *Fake) Name() string {
	return ProviderFake
}

func (f *Fake) CreateCheckout(_ context.Context, req CheckoutRequest) (*CheckoutSession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.Err != nil {
		return nil, f.Err
	}

	f.seq++
	f.Requests = append(f.Requests, req)

	id := fmt.Sprintf("txn_fake_%d", f.seq)
	return &CheckoutSession{
		SessionID: id,
		URL:       "https://checkout.example.test/" + id,
	}, nil
}

func (f *Fake) ParseWebhook(_ context.Context, payload []byte, signature string) (*Event, error) {
	if !f.verify(payload, signature) {
		return nil, ErrInvalidSignature
	}
	return decodePaddleNotification(payload)
}

// Sign returns the signature header value for payload.
func (f *Fake) Sign(payload []byte) string {
	return hex.EncodeToString(f.mac(payload))
}

func (f *Fake) verify(payload []byte, signature string) bool {
	if f.Secret == "" {
		return false
	}
	got, err := hex.DecodeString(strings.ToLower(strings.TrimSpace(signature)))
	if err != nil {
		return false
	}
	return hmac.Equal(f.mac(payload), got)
}

func (f *Fake) mac(payload []byte) []byte {
	m := hmac.New(sha256.New, []byte(f.Secret))
	m.Write(payload)
	return m.Sum(nil)
}

// CompletedPayload builds a transaction.completed notification body.
func CompletedPayload(eventID, txnID, orderID, userID string) []byte {
	body, _ := json.Marshal(map[string]any{ //nolint:errcheck // static shape
		"event_id":   eventID,
		"event_type": "transaction.completed",
		"data": map[string]any{
			"id":     txnID,
			"status": "completed",
			"custom_data": map[string]any{
				"order_id": orderID,
				"user_id":  userID,
			},
		},
	})
	return body
}

var _ Provider = (*Fake)(nil)
