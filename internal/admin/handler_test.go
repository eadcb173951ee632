// AngelaMos | 2026
// handler_test.go

package admin

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/denemeapp/kpss-backend/internal/core"
	"github.com/denemeapp/kpss-backend/internal/middleware"
)

type stubVerifier struct{}

func (stubVerifier) VerifyAccessToken(_ context.Context, token string) (*middleware.AccessTokenClaims, error) {
	switch token {
	case "admin":
		return &middleware.AccessTokenClaims{UserID: "a1", Admin: true}, nil
	case "user":
		return &middleware.AccessTokenClaims{UserID: "u1"}, nil
	}
	return nil, core.ErrTokenInvalid
}

func newRouter(backends ...Backend) chi.Router {
	r := chi.NewRouter()
	NewHandler(backends...).RegisterRoutes(r, middleware.Authenticator(stubVerifier{}), middleware.RequireAdmin)
	return r
}

func get(t *testing.T, r http.Handler, path, token string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func up(context.Context) error { return nil }

func down(context.Context) error { return errors.New("connection refused") }

func TestStatsRequireAdmin(t *testing.T) {
	r := newRouter()

	assert.Equal(t, http.StatusUnauthorized, get(t, r, "/admin/stats/runtime", "").Code)
	assert.Equal(t, http.StatusForbidden, get(t, r, "/admin/stats/runtime", "user").Code)
	assert.Equal(t, http.StatusOK, get(t, r, "/admin/stats/runtime", "admin").Code)
}

func TestOverviewReportsEachBackend(t *testing.T) {
	r := newRouter(
		Postgres(up, func() sql.DBStats { return sql.DBStats{OpenConnections: 3, InUse: 1} }),
		Redis(down, func() *redis.PoolStats { return &redis.PoolStats{Hits: 7} }),
		Backend{
			Name: "mongo",
			Ping: up,
			Stats: func(context.Context) (any, error) {
				return nil, errors.New("not primary")
			},
		},
	)

	rec := get(t, r, "/admin/stats", "admin")
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Data struct {
			Backends map[string]struct {
				Healthy bool            `json:"healthy"`
				Stats   json.RawMessage `json:"stats"`
			} `json:"backends"`
			Runtime RuntimeStats `json:"runtime"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))

	pg := body.Data.Backends["postgres"]
	assert.True(t, pg.Healthy)
	var pool SQLPoolStats
	require.NoError(t, json.Unmarshal(pg.Stats, &pool))
	assert.Equal(t, 3, pool.Open)

	assert.False(t, body.Data.Backends["redis"].Healthy)
	assert.True(t, body.Data.Backends["mongo"].Healthy)
	assert.Empty(t, body.Data.Backends["mongo"].Stats)
	assert.NotEmpty(t, body.Data.Runtime.GoVersion)
}

func TestBackendStats(t *testing.T) {
	r := newRouter(
		Redis(up, func() *redis.PoolStats { return &redis.PoolStats{Hits: 7, IdleConns: 2} }),
		Backend{Name: "mongo", Ping: up},
	)

	rec := get(t, r, "/admin/stats/redis", "admin")
	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Data RedisPoolStats `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, uint32(7), body.Data.Hits)

	assert.Equal(t, http.StatusNotFound, get(t, r, "/admin/stats/mongo", "admin").Code)
	assert.Equal(t, http.StatusNotFound, get(t, r, "/admin/stats/kafka", "admin").Code)
}
