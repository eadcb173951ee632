// AngelaMos | 2026
// memory.go

package catalog

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/denemeapp/kpss-backend/internal/core"
)

// MemoryRepository is an in-process Repository for tests.
type MemoryRepository struct {
	mu    sync.Mutex
	plans map[string]Plan
}

func NewMemoryRepository(plans ...Plan) *MemoryRepository {
	m := &MemoryRepository{plans: make(map[string]Plan, len(plans))}
	for _, p := range plans {
		m.plans[p.ID] = p
	}
	return m
}

func (m *MemoryRepository) Create(_ context.Context, plan *Plan) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.plans[plan.ID]; ok {
		return fmt.Errorf("create plan: %w", core.ErrDuplicateKey)
	}
	m.plans[plan.ID] = *plan
	return nil
}

func (m *MemoryRepository) GetByID(_ context.Context, id string) (*Plan, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	plan, ok := m.plans[id]
	if !ok {
		return nil, fmt.Errorf("get plan: %w", core.ErrNotFound)
	}
	return &plan, nil
}

func (m *MemoryRepository) List(_ context.Context, activeOnly bool) ([]Plan, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	plans := make([]Plan, 0, len(m.plans))
	for _, p := range m.plans {
		if activeOnly && !p.Active {
			continue
		}
		plans = append(plans, p)
	}
	sort.Slice(plans, func(i, j int) bool {
		if plans[i].Price != plans[j].Price {
			return plans[i].Price < plans[j].Price
		}
		return plans[i].ID < plans[j].ID
	})
	return plans, nil
}

func (m *MemoryRepository) Update(_ context.Context, plan *Plan) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	existing, ok := m.plans[plan.ID]
	if !ok {
		return fmt.Errorf("update plan: %w", core.ErrNotFound)
	}
	updated := *plan
	updated.Active = existing.Active
	updated.CreatedAt = existing.CreatedAt
	m.plans[plan.ID] = updated
	return nil
}

func (m *MemoryRepository) SetActive(_ context.Context, id string, active bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	plan, ok := m.plans[id]
	if !ok {
		return fmt.Errorf("set plan active: %w", core.ErrNotFound)
	}
	plan.Active = active
	plan.UpdatedAt = time.Now().UTC()
	m.plans[id] = plan
	return nil
}

func (m *MemoryRepository) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.plans[id]; !ok {
		return fmt.Errorf("delete plan: %w", core.ErrNotFound)
	}
	delete(m.plans, id)
	return nil
}

var _ Repository = (*MemoryRepository)(nil)
