// AngelaMos | 2026
// memory.go

package entitlement

import (
	"context"
	"sync"
	"time"
)

// MemoryStore is an in-process Store for tests and local tooling.
type MemoryStore struct {
	mu      sync.Mutex
	records map[string]*Record
	Err     error
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[string]*Record)}
}

func (m *MemoryStore) Get(_ context.Context, userID string) (*Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.Err != nil {
		return nil, m.Err
	}

	record, ok := m.records[userID]
	if !ok {
		return NewRecord(userID), nil
	}
	return cloneRecord(record), nil
}

func (m *MemoryStore) Grant(
	_ context.Context,
	userID string,
	p PackageType,
	expiresAt time.Time,
) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.Err != nil {
		return m.Err
	}

	record := m.load(userID)
	exp := expiresAt
	record.OwnedPackages[p] = true
	record.PackageExpiryDates[p] = &exp
	if p.IsFullBundle() {
		premiumExp := expiresAt
		record.IsPremium = true
		record.PremiumExpiryDate = &premiumExp
	}
	record.UpdatedAt = time.Now().UTC()
	return nil
}

func (m *MemoryStore) Revoke(_ context.Context, userID string, p PackageType) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.Err != nil {
		return m.Err
	}

	record, ok := m.records[userID]
	if !ok {
		return nil
	}
	record.ensureMaps()
	record.OwnedPackages[p] = false
	if p.IsFullBundle() {
		record.IsPremium = false
	}
	record.UpdatedAt = time.Now().UTC()
	return nil
}

// Put replaces the stored record for seeding tests.
func (m *MemoryStore) Put(record *Record) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records[record.UserID] = cloneRecord(record)
}

func (m *MemoryStore) load(userID string) *Record {
	record, ok := m.records[userID]
	if !ok {
		record = NewRecord(userID)
		m.records[userID] = record
	}
	record.ensureMaps()
	return record
}

func cloneRecord(r *Record) *Record {
	out := *r
	out.OwnedPackages = make(map[PackageType]bool, len(r.OwnedPackages))
	for k, v := range r.OwnedPackages {
		out.OwnedPackages[k] = v
	}
	out.PackageExpiryDates = make(map[PackageType]*time.Time, len(r.PackageExpiryDates))
	for k, v := range r.PackageExpiryDates {
		if v != nil {
			t := *v
			out.PackageExpiryDates[k] = &t
		} else {
			out.PackageExpiryDates[k] = nil
		}
	}
	if r.PremiumExpiryDate != nil {
		t := *r.PremiumExpiryDate
		out.PremiumExpiryDate = &t
	}
	return &out
}

var _ Store = (*MemoryStore)(nil)
