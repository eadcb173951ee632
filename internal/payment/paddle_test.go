// AngelaMos | 2026
// paddle_test.go

package payment

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/denemeapp/kpss-backend/internal/config"
)

func TestDecodePaddleNotification(t *testing.T) {
	tests := []struct {
		name      string
		payload   string
		wantType  EventType
		wantOrder string
		wantRef   string
		wantErr   error
	}{
		{
			name:      "completed transaction",
			payload:   `{"event_id":"evt_1","event_type":"transaction.completed","data":{"id":"txn_1","custom_data":{"order_id":"o1","user_id":"u1"}}}`,
			wantType:  EventPaymentCompleted,
			wantOrder: "o1",
			wantRef:   "txn_1",
		},
		{
			name:      "paid transaction",
			payload:   `{"event_id":"evt_2","event_type":"transaction.paid","data":{"id":"txn_2","custom_data":{"order_id":"o2"}}}`,
			wantType:  EventPaymentCompleted,
			wantOrder: "o2",
			wantRef:   "txn_2",
		},
		{
			name:     "unrelated event",
			payload:  `{"event_id":"evt_3","event_type":"customer.updated","data":{"id":"ctm_1"}}`,
			wantType: EventIgnored,
			wantRef:  "ctm_1",
		},
		{
			name:    "completed without order id",
			payload: `{"event_id":"evt_4","event_type":"transaction.completed","data":{"id":"txn_4","custom_data":{}}}`,
			wantErr: ErrMalformedPayload,
		},
		{
			name:    "not json",
			payload: `nope`,
			wantErr: ErrMalformedPayload,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			event, err := decodePaddleNotification([]byte(tt.payload))
			if tt.wantErr != nil {
				assert.True(t, errors.Is(err, tt.wantErr))
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.wantType, event.Type)
			assert.Equal(t, tt.wantOrder, event.OrderID)
			assert.Equal(t, tt.wantRef, event.ProviderRef)
		})
	}
}

func TestNewPaddleRequiresCredentials(t *testing.T) {
	_, err := NewPaddle(config.PaddleConfig{WebhookSecret: "s"})
	assert.Error(t, err)

	_, err = NewPaddle(config.PaddleConfig{APIKey: "k"})
	assert.Error(t, err)

	_, err = NewPaddle(config.PaddleConfig{APIKey: "k", WebhookSecret: "s", Environment: "staging"})
	assert.Error(t, err)
}

func TestPaddleRejectsUnsignedWebhook(t *testing.T) {
	p, err := NewPaddle(config.PaddleConfig{
		APIKey:        "pdl_test_key",
		WebhookSecret: "pdl_ntfset_secret",
		Environment:   "sandbox",
	})
	require.NoError(t, err)

	_, err = p.ParseWebhook(
		context.Background(),
		[]byte(`{"event_type":"transaction.completed"}`),
		"ts=1;h1=deadbeef",
	)
	assert.True(t, errors.Is(err, ErrInvalidSignature))
}

func TestFakeProvider(t *testing.T) {
	f := NewFake("secret")

	session, err := f.CreateCheckout(context.Background(), CheckoutRequest{OrderID: "o1"})
	require.NoError(t, err)
	assert.Equal(t, "txn_fake_1", session.SessionID)
	require.Len(t, f.Requests, 1)

	payload := CompletedPayload("e", "t", "o1", "u1")
	event, err := f.ParseWebhook(context.Background(), payload, f.Sign(payload))
	require.NoError(t, err)
	assert.Equal(t, "o1", event.OrderID)
	assert.Equal(t, "u1", event.UserID)
}

func TestFakeWebhookSignature(t *testing.T) {
	f := NewFake("secret")
	payload := CompletedPayload("e", "t", "o1", "u1")
	tampered := CompletedPayload("e", "t", "o2", "u1")

	tests := []struct {
		name      string
		payload   []byte
		signature string
	}{
		{"raw secret", payload, "secret"},
		{"not hex", payload, "zz"},
		{"empty", payload, ""},
		{"signed other body", payload, f.Sign(tampered)},
		{"other key", payload, NewFake("other").Sign(payload)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.ParseWebhook(context.Background(), tt.payload, tt.signature)
			assert.True(t, errors.Is(err, ErrInvalidSignature))
		})
	}

	_, err := f.ParseWebhook(context.Background(), payload, strings.ToUpper(f.Sign(payload)))
	assert.NoError(t, err)
}
