// AngelaMos | 2026
// memory.go

package order

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
	mu     sync.Mutex
	orders map[string]Order
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{orders: make(map[string]Order)}
}

func (m *MemoryRepository) Create(_ context.Context, order *Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.orders[order.ID]; ok {
		return fmt.Errorf("create order: %w", core.ErrDuplicateKey)
	}
	m.orders[order.ID] = *order
	return nil
}

func (m *MemoryRepository) GetByID(_ context.Context, id string) (*Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	order, ok := m.orders[id]
	if !ok {
		return nil, fmt.Errorf("get order: %w", core.ErrNotFound)
	}
	return &order, nil
}

func (m *MemoryRepository) ListByUser(_ context.Context, userID string, limit int) ([]Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	orders := make([]Order, 0)
	for _, o := range m.orders {
		if o.UserID == userID {
			orders = append(orders, o)
		}
	}
	sort.Slice(orders, func(i, j int) bool {
		return orders[i].CreatedAt.After(orders[j].CreatedAt)
	})
	if limit > 0 && len(orders) > limit {
		orders = orders[:limit]
	}
	return orders, nil
}

func (m *MemoryRepository) SetProviderRef(_ context.Context, id, providerRef string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	order, ok := m.orders[id]
	if !ok {
		return fmt.Errorf("set provider ref: %w", core.ErrNotFound)
	}
	order.ProviderRef = providerRef
	m.orders[id] = order
	return nil
}

func (m *MemoryRepository) MarkPaid(_ context.Context, id, providerRef string, paidAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	order, ok := m.orders[id]
	if !ok {
		return fmt.Errorf("mark order paid: %w", core.ErrNotFound)
	}
	if order.Status != StatusPending {
		return fmt.Errorf("mark order paid: order not pending: %w", core.ErrInvalidState)
	}

	order.Status = StatusPaid
	order.PaidAt = &paidAt
	if providerRef != "" {
		order.ProviderRef = providerRef
	}
	m.orders[id] = order
	return nil
}

var _ Repository = (*MemoryRepository)(nil)
