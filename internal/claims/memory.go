// AngelaMos | 2026
// memory.go

package claims

import (
	"context"
	"fmt"
	"maps"
	"sync"

	"github.com/denemeapp/kpss-backend/internal/core"
)

// MemoryProvider is an in-process IdentityProvider used by tests and the
// local seed tooling. ConflictsLeft makes the next N writes fail with
// ErrClaimsConflict as if another writer had raced ahead.
type MemoryProvider struct {
	mu            sync.Mutex
	claims        map[string]map[string]any
	versions      map[string]int64
	revocations   map[string]int
	ConflictsLeft int
}

func NewMemoryProvider() *MemoryProvider {
	return &MemoryProvider{
		claims:      make(map[string]map[string]any),
		versions:    make(map[string]int64),
		revocations: make(map[string]int),
	}
}

func (p *MemoryProvider) AddUser(userID string, claims map[string]any) {
	p.mu.Lock()
	defer p.mu.Unlock()

	stored := make(map[string]any, len(claims))
	maps.Copy(stored, claims)
	p.claims[userID] = stored
	p.versions[userID] = 0
}

func (p *MemoryProvider) GetCustomClaims(
	_ context.Context,
	userID string,
) (map[string]any, int64, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	stored, ok := p.claims[userID]
	if !ok {
		return nil, 0, fmt.Errorf("get claims: %w", core.ErrNotFound)
	}

	out := make(map[string]any, len(stored))
	maps.Copy(out, stored)
	return out, p.versions[userID], nil
}

func (p *MemoryProvider) SetCustomClaims(
	_ context.Context,
	userID string,
	claims map[string]any,
	expectedVersion int64,
) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if _, ok := p.claims[userID]; !ok {
		return fmt.Errorf("set claims: %w", core.ErrNotFound)
	}

	if p.ConflictsLeft > 0 {
		p.ConflictsLeft--
		p.versions[userID]++
		return fmt.Errorf("set claims: %w", ErrClaimsConflict)
	}

	if p.versions[userID] != expectedVersion {
		return fmt.Errorf("set claims: %w", ErrClaimsConflict)
	}

	stored := make(map[string]any, len(claims))
	maps.Copy(stored, claims)
	p.claims[userID] = stored
	p.versions[userID]++
	return nil
}

func (p *MemoryProvider) RevokeSessions(_ context.Context, userID string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if _, ok := p.claims[userID]; !ok {
		return fmt.Errorf("revoke sessions: %w", core.ErrNotFound)
	}
	p.revocations[userID]++
	return nil
}

func (p *MemoryProvider) Claims(userID string) map[string]any {
	p.mu.Lock()
	defer p.mu.Unlock()

	out := make(map[string]any, len(p.claims[userID]))
	maps.Copy(out, p.claims[userID])
	return out
}

func (p *MemoryProvider) Revocations(userID string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.revocations[userID]
}

var _ IdentityProvider = (*MemoryProvider)(nil)
