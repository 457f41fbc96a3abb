package consent

import (
	"context"
	"sync"
	"time"

	id "github.com/SylvainChabaud/rgpd-ia-platform-sub000/pkg/domain"
)

type memKey struct {
	tenant id.TenantID
	user   id.UserID
}

type InMemoryStore struct {
	mu       sync.RWMutex
	consents map[memKey][]Record
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{consents: make(map[memKey][]Record)}
}

func (s *InMemoryStore) Save(_ context.Context, record Record) error {
	if err := requireTenant(record.TenantID); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	key := memKey{tenant: record.TenantID, user: record.UserID}
	s.consents[key] = append(s.consents[key], record)
	return nil
}

func (s *InMemoryStore) ListByUser(_ context.Context, tenantID id.TenantID, userID id.UserID) ([]Record, error) {
	if err := requireTenant(tenantID); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]Record{}, s.consents[memKey{tenant: tenantID, user: userID}]...), nil
}

func (s *InMemoryStore) Revoke(_ context.Context, tenantID id.TenantID, userID id.UserID, treatment id.TreatmentType, revokedAt time.Time) error {
	if err := requireTenant(tenantID); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	key := memKey{tenant: tenantID, user: userID}
	records := s.consents[key]
	for i := range records {
		if records[i].Treatment == treatment && records[i].RevokedAt == nil {
			at := revokedAt
			records[i].RevokedAt = &at
		}
	}
	s.consents[key] = records
	return nil
}

func (s *InMemoryStore) HardDeleteByUser(_ context.Context, tenantID id.TenantID, userID id.UserID) (int64, error) {
	if err := requireTenant(tenantID); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	key := memKey{tenant: tenantID, user: userID}
	n := int64(len(s.consents[key]))
	delete(s.consents, key)
	return n, nil
}
