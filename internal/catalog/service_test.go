// AngelaMos | 2026
// service_test.go

package catalog

import (
	"context"
	"encoding/json"
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

	"github.com/denemeapp/kpss-backend/internal/core"
	"github.com/denemeapp/kpss-backend/internal/entitlement"
	"github.com/denemeapp/kpss-backend/internal/middleware"
)

func newTestService(plans ...Plan) *Service {
	return NewService(
		NewMemoryRepository(plans...),
		slog.New(slog.NewTextHandler(io.Discard, nil)),
	)
}

func TestCreatePlan(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	plan, err := svc.CreatePlan(ctx, CreatePlanRequest{
		ID:           "full_12m",
		Name:         "Full bundle, 12 months",
		Price:        49900,
		Currency:     "try",
		PeriodMonths: 12,
		Key:          string(entitlement.PackageFullBundle),
	})
	require.NoError(t, err)
	assert.Equal(t, "TRY", plan.Currency)
	assert.True(t, plan.Active)

	_, err = svc.CreatePlan(ctx, CreatePlanRequest{
		ID:           "full_12m",
		Name:         "dup",
		Currency:     "TRY",
		PeriodMonths: 1,
		Key:          string(entitlement.PackageFullBundle),
	})
	assert.True(t, errors.Is(err, core.ErrDuplicateKey))

	_, err = svc.CreatePlan(ctx, CreatePlanRequest{
		Name:         "bad key",
		Currency:     "TRY",
		PeriodMonths: 1,
		Key:          "kpss_full",
	})
	assert.True(t, errors.Is(err, core.ErrInvalidInput))
}

func TestCreatePlanGeneratesID(t *testing.T) {
	svc := newTestService()

	inactive := false
	plan, err := svc.CreatePlan(context.Background(), CreatePlanRequest{
		Name:         "Tarih",
		Currency:     "TRY",
		PeriodMonths: 3,
		Key:          string(entitlement.PackageTarih),
		Active:       &inactive,
	})

	require.NoError(t, err)
	assert.NotEmpty(t, plan.ID)
	assert.False(t, plan.Active)
}

func TestUpdateAndToggle(t *testing.T) {
	svc := newTestService(Plan{
		ID:           "tarih_3m",
		Name:         "Tarih",
		Price:        9900,
		Currency:     "TRY",
		PeriodMonths: 3,
		Key:          entitlement.PackageTarih,
		Active:       true,
	})
	ctx := context.Background()

	price := int64(12900)
	plan, err := svc.UpdatePlan(ctx, "tarih_3m", UpdatePlanRequest{Price: &price})
	require.NoError(t, err)
	assert.Equal(t, int64(12900), plan.Price)
	assert.Equal(t, "Tarih", plan.Name)

	plan, err = svc.SetActive(ctx, "tarih_3m", false)
	require.NoError(t, err)
	assert.False(t, plan.Active)

	active, err := svc.ListActive(ctx)
	require.NoError(t, err)
	assert.Empty(t, active)

	_, err = svc.SetActive(ctx, "missing", true)
	assert.True(t, errors.Is(err, core.ErrNotFound))
}

type adminVerifier struct{}

func (adminVerifier) VerifyAccessToken(
	_ context.Context,
	token string,
) (*middleware.AccessTokenClaims, error) {
	switch token {
	case "admin":
		return &middleware.AccessTokenClaims{UserID: "a1", Admin: true}, nil
	case "user":
		return &middleware.AccessTokenClaims{UserID: "u1"}, nil
	default:
		return nil, core.ErrTokenInvalid
	}
}

func newTestRouter(svc *Service) http.Handler {
	h := NewHandler(svc)
	r := chi.NewRouter()
	h.RegisterRoutes(r)
	h.RegisterAdminRoutes(r, middleware.Authenticator(adminVerifier{}), middleware.RequireAdmin)
	return r
}

func TestHandlerPublicListOnlyActive(t *testing.T) {
	svc := newTestService(
		Plan{ID: "a", Name: "A", Currency: "TRY", PeriodMonths: 1, Key: entitlement.PackageTurkce, Active: true},
		Plan{ID: "b", Name: "B", Currency: "TRY", PeriodMonths: 1, Key: entitlement.PackageTarih},
	)
	router := newTestRouter(svc)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/plans", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Data []Plan `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Data, 1)
	assert.Equal(t, "a", resp.Data[0].ID)
}

func TestHandlerAdminCreate(t *testing.T) {
	router := newTestRouter(newTestService())
	body := `{"id":"turkce_1m","name":"Turkce","price":4900,"currency":"TRY","period_months":1,"key":"kpss_turkce_subscription"}`

	tests := []struct {
		name  string
		token string
		body  string
		want  int
	}{
		{"anonymous", "", body, http.StatusUnauthorized},
		{"non admin", "user", body, http.StatusForbidden},
		{"admin", "admin", body, http.StatusCreated},
		{"duplicate", "admin", body, http.StatusConflict},
		{"unknown key", "admin", `{"name":"x","currency":"TRY","period_months":1,"key":"nope"}`, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/admin/plans/", strings.NewReader(tt.body))
			if tt.token != "" {
				req.Header.Set("Authorization", "Bearer "+tt.token)
			}
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)
			assert.Equal(t, tt.want, rec.Code)
		})
	}
}
