// AngelaMos | 2026
// service_test.go

package checkout

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/denemeapp/kpss-backend/internal/auth"
	"github.com/denemeapp/kpss-backend/internal/catalog"
	"github.com/denemeapp/kpss-backend/internal/core"
	"github.com/denemeapp/kpss-backend/internal/entitlement"
	"github.com/denemeapp/kpss-backend/internal/middleware"
	"github.com/denemeapp/kpss-backend/internal/order"
	"github.com/denemeapp/kpss-backend/internal/payment"
)

var testPlans = []catalog.Plan{
	{
		ID:              "full_12m",
		Name:            "Full bundle",
		Price:           49900,
		Currency:        "TRY",
		PeriodMonths:    12,
		Key:             entitlement.PackageFullBundle,
		ProviderPriceID: "pri_full",
		Active:          true,
	},
	{
		ID:           "retired",
		Name:         "Old plan",
		Currency:     "TRY",
		PeriodMonths: 1,
		Key:          entitlement.PackageTarih,
	},
}

type fixture struct {
	svc      *Service
	orders   *order.MemoryRepository
	provider *payment.Fake
}

func newFixture() fixture {
	orders := order.NewMemoryRepository()
	provider := payment.NewFake("secret")
	svc := NewService(
		catalog.NewMemoryRepository(testPlans...),
		orders,
		provider,
		"https://app.example.test/payment/done",
		slog.New(slog.NewTextHandler(io.Discard, nil)),
	)
	return fixture{svc: svc, orders: orders, provider: provider}
}

func TestCreateCheckout(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	session, err := f.svc.CreateCheckout(ctx, Buyer{UserID: "u1", Email: "u1@example.test"}, "full_12m")
	require.NoError(t, err)
	assert.NotEmpty(t, session.OrderID)
	assert.Equal(t, "txn_fake_1", session.SessionID)
	assert.Contains(t, session.CheckoutURL, session.SessionID)

	o, err := f.orders.GetByID(ctx, session.OrderID)
	require.NoError(t, err)
	assert.Equal(t, order.StatusPending, o.Status)
	assert.Equal(t, "u1", o.UserID)
	assert.Equal(t, entitlement.PackageFullBundle, o.PlanKey)
	assert.Equal(t, 12, o.PeriodMonths)
	assert.Equal(t, int64(49900), o.Amount)
	assert.Equal(t, "txn_fake_1", o.ProviderRef)
	assert.Nil(t, o.PaidAt)

	require.Len(t, f.provider.Requests, 1)
	req := f.provider.Requests[0]
	assert.Equal(t, session.OrderID, req.OrderID)
	assert.Equal(t, "u1", req.UserID)
	assert.Equal(t, "pri_full", req.PriceID)
	assert.Equal(t, "https://app.example.test/payment/done", req.SuccessURL)
}

func TestCreateCheckoutRejections(t *testing.T) {
	tests := []struct {
		name    string
		buyer   Buyer
		planID  string
		wantErr error
	}{
		{"unknown plan", Buyer{UserID: "u1"}, "missing", core.ErrNotFound},
		{"inactive plan", Buyer{UserID: "u1"}, "retired", core.ErrInvalidInput},
		{"anonymous buyer", Buyer{}, "full_12m", core.ErrUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture()

			_, err := f.svc.CreateCheckout(context.Background(), tt.buyer, tt.planID)

			assert.True(t, errors.Is(err, tt.wantErr), err)
			assert.Empty(t, f.provider.Requests)
		})
	}
}

func TestCreateCheckoutProviderFailure(t *testing.T) {
	f := newFixture()
	f.provider.Err = core.ErrProviderError

	_, err := f.svc.CreateCheckout(context.Background(), Buyer{UserID: "u1"}, "full_12m")

	assert.True(t, IsProviderFailure(err))
}

type stubDirectory struct{}

func (stubDirectory) GetByID(_ context.Context, id string) (*auth.UserInfo, error) {
	return &auth.UserInfo{ID: id, Email: id + "@example.test", Name: "Ayse"}, nil
}

type stubVerifier struct{}

func (stubVerifier) VerifyAccessToken(
	_ context.Context,
	token string,
) (*middleware.AccessTokenClaims, error) {
	if token != "good" {
		return nil, core.ErrTokenInvalid
	}
	return &middleware.AccessTokenClaims{UserID: "u1"}, nil
}

func TestCheckoutHandler(t *testing.T) {
	f := newFixture()
	r := chi.NewRouter()
	NewHandler(f.svc, stubDirectory{}).RegisterRoutes(r, middleware.Authenticator(stubVerifier{}))

	tests := []struct {
		name  string
		token string
		body  string
		want  int
	}{
		{"unauthenticated", "", `{"plan_id":"full_12m"}`, http.StatusUnauthorized},
		{"missing plan id", "good", `{}`, http.StatusBadRequest},
		{"unknown plan", "good", `{"plan_id":"nope"}`, http.StatusNotFound},
		{"inactive plan", "good", `{"plan_id":"retired"}`, http.StatusBadRequest},
		{"ok", "good", `{"plan_id":"full_12m"}`, http.StatusCreated},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/checkout", strings.NewReader(tt.body))
			if tt.token != "" {
				req.Header.Set("Authorization", "Bearer "+tt.token)
			}
			rec := httptest.NewRecorder()
			r.ServeHTTP(rec, req)
			assert.Equal(t, tt.want, rec.Code, rec.Body.String())
		})
	}

	require.Len(t, f.provider.Requests, 1)
	assert.Equal(t, "u1@example.test", f.provider.Requests[0].Email)
}
