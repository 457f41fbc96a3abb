package dispute

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

// InMemoryStore keeps disputes in process memory. Unit-test double and
// development backend.
type InMemoryStore struct {
	mu       sync.RWMutex
	disputes map[id.DisputeID]*models.UserDispute
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{disputes: make(map[id.DisputeID]*models.UserDispute)}
}

func requireTenant(tenantID id.TenantID) error {
	if tenantID.IsNil() {
		return dErrors.New(dErrors.CodeRGPDViolation, "RGPD VIOLATION: tenant ID required at dispute store boundary")
	}
	return nil
}

func (s *InMemoryStore) Create(_ context.Context, d *models.UserDispute) error {
	if err := requireTenant(d.TenantID); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.disputes[d.ID]; exists {
		return sentinel.ErrConflict
	}
	cp := *d
	s.disputes[d.ID] = &cp
	return nil
}

func (s *InMemoryStore) FindByID(_ context.Context, tenantID id.TenantID, disputeID id.DisputeID) (*models.UserDispute, error) {
	if err := requireTenant(tenantID); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	d, ok := s.disputes[disputeID]
	if !ok || d.TenantID != tenantID || d.DeletedAt != nil {
		return nil, sentinel.ErrNotFound
	}
	cp := *d
	return &cp, nil
}

func (s *InMemoryStore) ListByUser(_ context.Context, tenantID id.TenantID, userID id.UserID) ([]*models.UserDispute, error) {
	if err := requireTenant(tenantID); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.UserDispute
	for _, d := range s.disputes {
		if d.TenantID == tenantID && d.UserID == userID && d.DeletedAt == nil {
			cp := *d
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

// UpdateIfStatus persists a transitioned dispute only when the stored row
// still has the expected status, closing concurrent admin races. Returns
// sentinel.ErrInvalidState when another transition landed first.
func (s *InMemoryStore) UpdateIfStatus(_ context.Context, d *models.UserDispute, expected models.DisputeStatus) error {
	if err := requireTenant(d.TenantID); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	stored, ok := s.disputes[d.ID]
	if !ok || stored.TenantID != d.TenantID || stored.DeletedAt != nil {
		return sentinel.ErrNotFound
	}
	if stored.Status != expected {
		return sentinel.ErrInvalidState
	}
	cp := *d
	s.disputes[d.ID] = &cp
	return nil
}

// FindExceedingSLA returns pending disputes created at or before cutoff.
func (s *InMemoryStore) FindExceedingSLA(_ context.Context, tenantID id.TenantID, cutoff time.Time) ([]*models.UserDispute, error) {
	if err := requireTenant(tenantID); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.UserDispute
	for _, d := range s.disputes {
		if d.TenantID == tenantID && d.Status == models.DisputeStatusPending && d.DeletedAt == nil && !d.CreatedAt.After(cutoff) {
			cp := *d
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

// FindWithExpiredAttachments returns disputes whose attachment has outlived
// its retention window. Query point for the attachment sweeper.
func (s *InMemoryStore) FindWithExpiredAttachments(_ context.Context, tenantID id.TenantID, now time.Time) ([]*models.UserDispute, error) {
	if err := requireTenant(tenantID); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.UserDispute
	for _, d := range s.disputes {
		if d.TenantID == tenantID && d.DeletedAt == nil && d.HasExpiredAttachment(now) {
			cp := *d
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
	for _, d := range s.disputes {
		if d.TenantID == tenantID && d.UserID == userID && d.DeletedAt == nil {
			at := deletedAt
			d.DeletedAt = &at
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
	for did, d := range s.disputes {
		if d.TenantID == tenantID && d.UserID == userID {
			delete(s.disputes, did)
			n++
		}
	}
	return n, nil
}
