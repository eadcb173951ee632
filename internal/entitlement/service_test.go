// AngelaMos | 2026
// service_test.go

package entitlement

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/denemeapp/kpss-backend/internal/core"
	"github.com/denemeapp/kpss-backend/internal/docstore"
)

var testNow = time.Date(2026, 2, 1, 8, 0, 0, 0, time.UTC)

type mockSyncer struct {
	mock.Mock
}

func (m *mockSyncer) SyncClaims(ctx context.Context, userID string, revoke bool) error {
	args := m.Called(ctx, userID, revoke)
	return args.Error(0)
}

func newTestService(
	store Store,
	syncer ClaimsSyncer,
	policy RevokePolicy,
) *Service {
	svc := NewService(
		store,
		docstore.Direct{},
		syncer,
		policy,
		slog.New(slog.NewTextHandler(io.Discard, nil)),
	)
	svc.now = func() time.Time { return testNow }
	return svc
}

func TestAddPackageOverwritesExpiry(t *testing.T) {
	store := NewMemoryStore()
	svc := newTestService(store, nil, DefaultRevokePolicy(false))
	ctx := context.Background()

	res := svc.AddPackage(ctx, "u1", PackageTurkce, 720)
	require.True(t, res.Success, res.Message)
	require.NotNil(t, res.Record)
	assert.Equal(t, testNow.Add(720*time.Hour), *res.Record.PackageExpiryDates[PackageTurkce])

	res = svc.AddPackage(ctx, "u1", PackageTurkce, 24)
	require.True(t, res.Success, res.Message)
	assert.Equal(t, testNow.Add(24*time.Hour), *res.Record.PackageExpiryDates[PackageTurkce],
		"add resets from now even when that shortens an active grant")
	assert.True(t, res.Record.OwnedPackages[PackageTurkce])
	assert.False(t, res.Record.IsPremium)
}

func TestExtendPackageMonotonic(t *testing.T) {
	tests := []struct {
		name    string
		current *time.Time
		want    time.Time
	}{
		{
			name:    "active grant extends from current expiry",
			current: ptr(testNow.Add(5 * time.Hour)),
			want:    testNow.Add(15 * time.Hour),
		},
		{
			name:    "lapsed grant extends from now",
			current: ptr(testNow.Add(-100 * time.Hour)),
			want:    testNow.Add(10 * time.Hour),
		},
		{
			name:    "never granted extends from now",
			current: nil,
			want:    testNow.Add(10 * time.Hour),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := NewMemoryStore()
			if tt.current != nil {
				record := NewRecord("u1")
				record.OwnedPackages[PackageTarih] = true
				record.PackageExpiryDates[PackageTarih] = tt.current
				store.Put(record)
			}
			svc := newTestService(store, nil, DefaultRevokePolicy(false))

			res := svc.ExtendPackage(context.Background(), "u1", PackageTarih, 10)

			require.True(t, res.Success, res.Message)
			got := *res.Record.PackageExpiryDates[PackageTarih]
			assert.Equal(t, tt.want, got)
			assert.False(t, got.Before(testNow.Add(10*time.Hour)))
			assert.True(t, res.Record.OwnedPackages[PackageTarih])
		})
	}
}

func TestRemovePackageRetainsExpiry(t *testing.T) {
	store := NewMemoryStore()
	svc := newTestService(store, nil, DefaultRevokePolicy(false))
	ctx := context.Background()

	require.True(t, svc.AddPackage(ctx, "u1", PackageFullBundle, 48).Success)

	res := svc.RemovePackage(ctx, "u1", PackageFullBundle)

	require.True(t, res.Success, res.Message)
	assert.False(t, res.Record.OwnedPackages[PackageFullBundle])
	assert.Equal(t, testNow.Add(48*time.Hour), *res.Record.PackageExpiryDates[PackageFullBundle])
	assert.False(t, res.Record.IsPremium)
	assert.Equal(t, StateNotOwned, ComputeStatus(res.Record, PackageFullBundle, testNow).State())
}

func TestFullBundleMirrorsPremium(t *testing.T) {
	store := NewMemoryStore()
	svc := newTestService(store, nil, DefaultRevokePolicy(false))

	res := svc.AddPackage(context.Background(), "u1", PackageFullBundle, 24)

	require.True(t, res.Success)
	assert.True(t, res.Record.IsPremium)
	require.NotNil(t, res.Record.PremiumExpiryDate)
	assert.Equal(t, *res.Record.PackageExpiryDates[PackageFullBundle], *res.Record.PremiumExpiryDate)
}

func TestMutationValidation(t *testing.T) {
	store := NewMemoryStore()
	svc := newTestService(store, nil, DefaultRevokePolicy(false))
	ctx := context.Background()

	tests := []struct {
		name string
		run  func() Result
	}{
		{"empty user", func() Result { return svc.AddPackage(ctx, " ", PackageTarih, 1) }},
		{"unknown package", func() Result { return svc.AddPackage(ctx, "u1", "kpss_full", 1) }},
		{"zero duration", func() Result { return svc.AddPackage(ctx, "u1", PackageTarih, 0) }},
		{"negative extension", func() Result { return svc.ExtendPackage(ctx, "u1", PackageTarih, -5) }},
		{"remove unknown package", func() Result { return svc.RemovePackage(ctx, "u1", "x") }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := tt.run()

			assert.False(t, res.Success)
			assert.NotEmpty(t, res.Message)
			assert.True(t, errors.Is(res.Err, core.ErrInvalidInput))
		})
	}

	record, err := store.Get(ctx, "u1")
	require.NoError(t, err)
	assert.Empty(t, record.OwnedPackages, "validation failures must not write")
}

func TestStoreFailureReportedInResult(t *testing.T) {
	store := NewMemoryStore()
	store.Err = errors.New("connection reset")
	svc := newTestService(store, nil, DefaultRevokePolicy(false))

	res := svc.ExtendPackage(context.Background(), "u1", PackageTarih, 5)

	assert.False(t, res.Success)
	assert.Equal(t, "failed to extend package", res.Message)
	assert.Equal(t, 500, core.StatusFromError(res.Err))
}

func TestClaimsSyncRevokePolicy(t *testing.T) {
	tests := []struct {
		name       string
		policy     RevokePolicy
		run        func(svc *Service) Result
		wantRevoke bool
	}{
		{
			name:       "add revokes",
			policy:     DefaultRevokePolicy(false),
			run:        func(svc *Service) Result { return svc.AddPackage(context.Background(), "u1", PackageFullBundle, 1) },
			wantRevoke: true,
		},
		{
			name:       "extend does not revoke by default",
			policy:     DefaultRevokePolicy(false),
			run:        func(svc *Service) Result { return svc.ExtendPackage(context.Background(), "u1", PackageFullBundle, 1) },
			wantRevoke: false,
		},
		{
			name:       "extend revokes when configured",
			policy:     DefaultRevokePolicy(true),
			run:        func(svc *Service) Result { return svc.ExtendPackage(context.Background(), "u1", PackageFullBundle, 1) },
			wantRevoke: true,
		},
		{
			name:       "remove revokes",
			policy:     DefaultRevokePolicy(false),
			run:        func(svc *Service) Result { return svc.RemovePackage(context.Background(), "u1", PackageFullBundle) },
			wantRevoke: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			syncer := new(mockSyncer)
			syncer.On("SyncClaims", mock.Anything, "u1", tt.wantRevoke).Return(nil).Once()
			svc := newTestService(NewMemoryStore(), syncer, tt.policy)

			res := tt.run(svc)

			require.True(t, res.Success, res.Message)
			syncer.AssertExpectations(t)
		})
	}
}

func TestClaimsSyncSkippedForSubjectPackages(t *testing.T) {
	syncer := new(mockSyncer)
	svc := newTestService(NewMemoryStore(), syncer, DefaultRevokePolicy(false))

	res := svc.AddPackage(context.Background(), "u1", PackageCografya, 24)

	require.True(t, res.Success)
	syncer.AssertNotCalled(t, "SyncClaims", mock.Anything, mock.Anything, mock.Anything)
}

func TestClaimsSyncFailureDoesNotFailMutation(t *testing.T) {
	syncer := new(mockSyncer)
	syncer.On("SyncClaims", mock.Anything, "u1", true).Return(errors.New("idp down"))
	svc := newTestService(NewMemoryStore(), syncer, DefaultRevokePolicy(false))

	res := svc.AddPackage(context.Background(), "u1", PackageFullBundle, 24)

	require.True(t, res.Success)
	assert.True(t, res.Record.IsPremium)
	syncer.AssertExpectations(t)
}

func TestHasAccess(t *testing.T) {
	store := NewMemoryStore()
	svc := newTestService(store, nil, DefaultRevokePolicy(false))
	ctx := context.Background()

	ok, err := svc.HasAccess(ctx, "u1", PackageTarih)
	require.NoError(t, err)
	assert.False(t, ok)

	require.True(t, svc.AddPackage(ctx, "u1", PackageFullBundle, 1).Success)

	ok, err = svc.HasAccess(ctx, "u1", PackageTarih)
	require.NoError(t, err)
	assert.True(t, ok, "full bundle covers subject packages")
}

func ptr(t time.Time) *time.Time {
	return &t
}

func TestGrantHoursUpperBound(t *testing.T) {
	store := NewMemoryStore()
	svc := newTestService(store, nil, DefaultRevokePolicy(false))
	ctx := context.Background()

	for _, res := range []Result{
		svc.AddPackage(ctx, "u1", PackageTarih, 3_000_000),
		svc.AddPackage(ctx, "u1", PackageTarih, MaxGrantHours+1),
		svc.ExtendPackage(ctx, "u1", PackageTarih, 3_000_000),
	} {
		assert.False(t, res.Success)
		assert.True(t, errors.Is(res.Err, core.ErrInvalidInput), res.Message)
	}
	assert.Empty(t, store.records, "rejected grants must not write")

	res := svc.AddPackage(ctx, "u1", PackageTarih, MaxGrantHours)
	require.True(t, res.Success, res.Message)
	assert.Equal(t, testNow.Add(MaxGrantHours*time.Hour), *res.Record.PackageExpiryDates[PackageTarih])
}

func TestRequestBoundMatchesService(t *testing.T) {
	v := NewValidator()

	ok := AddPackageRequest{UserID: "u1", PackageType: string(PackageTarih), DurationHours: MaxGrantHours}
	assert.NoError(t, v.Struct(ok))

	over := ExtendPackageRequest{UserID: "u1", PackageType: string(PackageTarih), AdditionalHours: MaxGrantHours + 1}
	assert.Error(t, v.Struct(over))
}

func TestRemoveWithoutRecordCreatesNothing(t *testing.T) {
	store := NewMemoryStore()
	svc := newTestService(store, nil, DefaultRevokePolicy(false))

	res := svc.RemovePackage(context.Background(), "ghost", PackageMatematik)

	require.True(t, res.Success, res.Message)
	assert.NotContains(t, store.records, "ghost")
	assert.False(t, res.Record.OwnedPackages[PackageMatematik])
}

// Extending a removed package restarts from its retained expiry when that
// is still in the future, and makes the package active again.
func TestExtendAfterRemoveUsesRetainedExpiry(t *testing.T) {
	store := NewMemoryStore()
	svc := newTestService(store, nil, DefaultRevokePolicy(false))
	ctx := context.Background()

	require.True(t, svc.AddPackage(ctx, "u1", PackageCografya, 100).Success)
	require.True(t, svc.RemovePackage(ctx, "u1", PackageCografya).Success)

	res := svc.ExtendPackage(ctx, "u1", PackageCografya, 10)

	require.True(t, res.Success, res.Message)
	assert.Equal(t, testNow.Add(110*time.Hour), *res.Record.PackageExpiryDates[PackageCografya])
	assert.Equal(t, StateActive, ComputeStatus(res.Record, PackageCografya, testNow).State())
}
