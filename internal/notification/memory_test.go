// AngelaMos | 2026
// memory_test.go

package notification

import (
	"context"
	"fmt"
	"time"

	"github.com/denemeapp/kpss-backend/internal/core"
)

// memoryRepository backs handler and service tests.
type memoryRepository struct {
	devices map[string]Device
}

func newMemoryRepository() *memoryRepository {
	return &memoryRepository{devices: make(map[string]Device)}
}

func (m *memoryRepository) Upsert(_ context.Context, device *Device) error {
	d := *device
	if existing, ok := m.devices[d.Token]; ok {
		d.CreatedAt = existing.CreatedAt
	}
	if d.UpdatedAt.IsZero() {
		d.UpdatedAt = time.Now().UTC()
	}
	m.devices[d.Token] = d
	return nil
}

func (m *memoryRepository) Delete(_ context.Context, userID, token string) error {
	d, ok := m.devices[token]
	if !ok || d.UserID != userID {
		return fmt.Errorf("delete device: %w", core.ErrNotFound)
	}
	delete(m.devices, token)
	return nil
}

func (m *memoryRepository) Tokens(_ context.Context, userIDs []string) ([]string, error) {
	wanted := make(map[string]bool, len(userIDs))
	for _, id := range userIDs {
		wanted[id] = true
	}

	tokens := make([]string, 0, len(m.devices))
	for token, d := range m.devices {
		if len(wanted) == 0 || wanted[d.UserID] {
			tokens = append(tokens, token)
		}
	}
	return tokens, nil
}

func (m *memoryRepository) DeleteTokens(_ context.Context, tokens []string) (int, error) {
	n := 0
	for _, t := range tokens {
		if _, ok := m.devices[t]; ok {
			delete(m.devices, t)
			n++
		}
	}
	return n, nil
}
