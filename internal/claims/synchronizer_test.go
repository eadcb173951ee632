// AngelaMos | 2026
// synchronizer_test.go

package claims

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/denemeapp/kpss-backend/internal/core"
	"github.com/denemeapp/kpss-backend/internal/entitlement"
)

var fixedNow = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

func newTestSynchronizer(
	t *testing.T,
) (*Synchronizer, *entitlement.MemoryStore, *MemoryProvider) {
	t.Helper()

	store := entitlement.NewMemoryStore()
	idp := NewMemoryProvider()
	sync := NewSynchronizer(store, idp, slog.New(slog.NewTextHandler(io.Discard, nil)))
	sync.now = func() time.Time { return fixedNow }
	return sync, store, idp
}

func TestSyncPreservesForeignClaims(t *testing.T) {
	sync, store, idp := newTestSynchronizer(t)
	ctx := context.Background()

	idp.AddUser("u1", map[string]any{KeyAdmin: true, "cohort": "2026"})
	expiry := fixedNow.Add(30 * 24 * time.Hour)
	require.NoError(t, store.Grant(ctx, "u1", entitlement.PackageFullBundle, expiry))

	require.NoError(t, sync.Sync(ctx, "u1", Options{}))

	got := idp.Claims("u1")
	assert.Equal(t, true, got[KeyAdmin])
	assert.Equal(t, "2026", got["cohort"])
	assert.Equal(t, true, got[KeyPremium])
	assert.Equal(t, expiry.Unix(), got[KeyPremiumExp])
	assert.Zero(t, idp.Revocations("u1"))
}

func TestSyncAfterRemovalClearsPremium(t *testing.T) {
	sync, store, idp := newTestSynchronizer(t)
	ctx := context.Background()

	idp.AddUser("u1", map[string]any{KeyAdmin: true, KeyPremium: true})
	expiry := fixedNow.Add(time.Hour)
	require.NoError(t, store.Grant(ctx, "u1", entitlement.PackageFullBundle, expiry))
	require.NoError(t, store.Revoke(ctx, "u1", entitlement.PackageFullBundle))

	require.NoError(t, sync.Sync(ctx, "u1", Options{Revoke: true}))

	got := idp.Claims("u1")
	assert.Equal(t, true, got[KeyAdmin])
	assert.Equal(t, false, got[KeyPremium])
	assert.Equal(t, expiry.Unix(), got[KeyPremiumExp])
	assert.Equal(t, 1, idp.Revocations("u1"))
}

func TestSyncWithoutRecordOmitsExpiry(t *testing.T) {
	sync, _, idp := newTestSynchronizer(t)
	ctx := context.Background()

	idp.AddUser("u1", map[string]any{KeyPremiumExp: int64(1)})

	require.NoError(t, sync.Sync(ctx, "u1", Options{}))

	got := idp.Claims("u1")
	assert.Equal(t, false, got[KeyPremium])
	assert.NotContains(t, got, KeyPremiumExp)
}

func TestSyncRetriesOnConflict(t *testing.T) {
	tests := []struct {
		name      string
		conflicts int
		wantErr   bool
	}{
		{"no conflict", 0, false},
		{"two conflicts then success", 2, false},
		{"conflicts exhaust retries", 3, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sync, _, idp := newTestSynchronizer(t)
			idp.AddUser("u1", map[string]any{KeyAdmin: true})
			idp.ConflictsLeft = tt.conflicts

			err := sync.Sync(context.Background(), "u1", Options{Revoke: true})

			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.Is(err, ErrClaimsConflict))
				assert.Zero(t, idp.Revocations("u1"))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, true, idp.Claims("u1")[KeyAdmin])
			assert.Equal(t, 1, idp.Revocations("u1"))
		})
	}
}

func TestSyncUnknownUser(t *testing.T) {
	sync, _, _ := newTestSynchronizer(t)

	err := sync.Sync(context.Background(), "missing", Options{})

	require.Error(t, err)
	assert.True(t, errors.Is(err, core.ErrNotFound))
}

func TestGrantAdmin(t *testing.T) {
	sync, _, idp := newTestSynchronizer(t)
	idp.AddUser("u1", map[string]any{KeyPremium: true, KeyPremiumExp: int64(42)})

	require.NoError(t, sync.GrantAdmin(context.Background(), "u1"))

	got := idp.Claims("u1")
	assert.Equal(t, true, got[KeyAdmin])
	assert.Equal(t, true, got[KeyPremium])
	assert.Equal(t, int64(42), got[KeyPremiumExp])
	assert.Equal(t, 1, idp.Revocations("u1"))
}

func TestPremiumFromRecord(t *testing.T) {
	past := fixedNow.Add(-time.Second)
	future := fixedNow.Add(time.Second)

	tests := []struct {
		name        string
		owned       bool
		expiry      *time.Time
		wantPremium bool
		wantExp     bool
	}{
		{"active bundle", true, &future, true, true},
		{"expired bundle", true, &past, false, true},
		{"removed bundle keeps expiry", false, &future, false, true},
		{"never granted", false, nil, false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			record := entitlement.NewRecord("u1")
			record.OwnedPackages[entitlement.PackageFullBundle] = tt.owned
			record.PackageExpiryDates[entitlement.PackageFullBundle] = tt.expiry

			premium, exp := PremiumFromRecord(record, fixedNow)

			assert.Equal(t, tt.wantPremium, premium)
			assert.Equal(t, tt.wantExp, exp != nil)
		})
	}
}
