package opposition

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/SylvainChabaud/rgpd-ia-platform-sub000/internal/rights/models"
	id "github.com/SylvainChabaud/rgpd-ia-platform-sub000/pkg/domain"
	dErrors "github.com/SylvainChabaud/rgpd-ia-platform-sub000/pkg/domain-errors"
	"github.com/SylvainChabaud/rgpd-ia-platform-sub000/pkg/platform/sentinel"
)

// InMemoryStore keeps oppositions in process memory. Unit-test double and
// development backend.
type InMemoryStore struct {
	mu          sync.RWMutex
	oppositions map[id.OppositionID]*models.UserOpposition
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{oppositions: make(map[id.OppositionID]*models.UserOpposition)}
}

func requireTenant(tenantID id.TenantID) error {
	if tenantID.IsNil() {
		return dErrors.New(dErrors.CodeRGPDViolation, "RGPD VIOLATION: tenant ID required at opposition store boundary")
	}
	return nil
}

func (s *InMemoryStore) Create(_ context.Context, o *models.UserOpposition) error {
	if err := requireTenant(o.TenantID); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.oppositions[o.ID]; exists {
		return sentinel.ErrConflict
	}
	cp := *o
	s.oppositions[o.ID] = &cp
	return nil
}

func (s *InMemoryStore) FindByID(_ context.Context, tenantID id.TenantID, oppositionID id.OppositionID) (*models.UserOpposition, error) {
	if err := requireTenant(tenantID); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	o, ok := s.oppositions[oppositionID]
	if !ok || o.TenantID != tenantID || o.DeletedAt != nil {
		return nil, sentinel.ErrNotFound
	}
	cp := *o
	return &cp, nil
}

func (s *InMemoryStore) ListByUser(_ context.Context, tenantID id.TenantID, userID id.UserID) ([]*models.UserOpposition, error) {
	if err := requireTenant(tenantID); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.UserOpposition
	for _, o := range s.oppositions {
		if o.TenantID == tenantID && o.UserID == userID && o.DeletedAt == nil {
			cp := *o
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

// UpdateIfPending persists a reviewed opposition only when the stored row is
// still pending, closing the concurrent-review race. Returns
// sentinel.ErrInvalidState when another review landed first.
func (s *InMemoryStore) UpdateIfPending(_ context.Context, o *models.UserOpposition) error {
	if err := requireTenant(o.TenantID); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	stored, ok := s.oppositions[o.ID]
	if !ok || stored.TenantID != o.TenantID || stored.DeletedAt != nil {
		return sentinel.ErrNotFound
	}
	if stored.Status != models.OppositionStatusPending {
		return sentinel.ErrInvalidState
	}
	cp := *o
	s.oppositions[o.ID] = &cp
	return nil
}

// FindExceedingSLA returns pending oppositions created at or before cutoff.
func (s *InMemoryStore) FindExceedingSLA(_ context.Context, tenantID id.TenantID, cutoff time.Time) ([]*models.UserOpposition, error) {
	if err := requireTenant(tenantID); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.UserOpposition
	for _, o := range s.oppositions {
		if o.TenantID == tenantID && o.Status == models.OppositionStatusPending && o.DeletedAt == nil && !o.CreatedAt.After(cutoff) {
			cp := *o
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *InMemoryStore) SoftDeleteByUser(_ context.Context, tenantID id.TenantID, userID id.UserID, deletedAt time.Time) (int64, error) {
	if err := requireTenant(tenantID); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for _, o := range s.oppositions {
		if o.TenantID == tenantID && o.UserID == userID && o.DeletedAt == nil {
			at := deletedAt
			o.DeletedAt = &at
			n++
		}
	}
	return n, nil
}

func (s *InMemoryStore) HardDeleteByUser(_ context.Context, tenantID id.TenantID, userID id.UserID) (int64, error) {
	if err := requireTenant(tenantID); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for oid, o := range s.oppositions {
		if o.TenantID == tenantID && o.UserID == userID {
			delete(s.oppositions, oid)
			n++
		}
	}
	return n, nil
}
