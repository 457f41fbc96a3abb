package dpia

import (
	"context"
	"sort"
	"sync"

	id "github.com/SylvainChabaud/rgpd-ia-platform-sub000/pkg/domain"
	"github.com/SylvainChabaud/rgpd-ia-platform-sub000/pkg/platform/sentinel"
)

// InMemoryStore keeps assessments in process. Unit-test double and
// development backend.
type InMemoryStore struct {
	mu          sync.RWMutex
	assessments map[id.AssessmentID]*Assessment
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{assessments: make(map[id.AssessmentID]*Assessment)}
}

func (s *InMemoryStore) Create(_ context.Context, a *Assessment) error {
	if err := requireTenant(a.TenantID); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.assessments[a.ID]; exists {
		return sentinel.ErrConflict
	}
	cp := *a
	s.assessments[a.ID] = &cp
	return nil
}

func (s *InMemoryStore) FindByID(_ context.Context, tenantID id.TenantID, assessmentID id.AssessmentID) (*Assessment, error) {
	if err := requireTenant(tenantID); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.assessments[assessmentID]
	if !ok || a.TenantID != tenantID {
		return nil, sentinel.ErrNotFound
	}
	cp := *a
	return &cp, nil
}

func (s *InMemoryStore) ListByTenant(_ context.Context, tenantID id.TenantID) ([]*Assessment, error) {
	if err := requireTenant(tenantID); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*Assessment
	for _, a := range s.assessments {
		if a.TenantID == tenantID {
			cp := *a
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *InMemoryStore) UpdateIfStatus(_ context.Context, a *Assessment, expected AssessmentStatus) error {
	if err := requireTenant(a.TenantID); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	stored, ok := s.assessments[a.ID]
	if !ok || stored.TenantID != a.TenantID {
		return sentinel.ErrNotFound
	}
	if stored.Status != expected {
		return sentinel.ErrInvalidState
	}
	cp := *a
	s.assessments[a.ID] = &cp
	return nil
}

func (s *InMemoryStore) FindValidatedByTreatment(_ context.Context, tenantID id.TenantID, treatment id.TreatmentType) (*Assessment, error) {
	if err := requireTenant(tenantID); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	var latest *Assessment
	for _, a := range s.assessments {
		if a.TenantID != tenantID || a.Treatment != treatment || a.Status != StatusValidated {
			continue
		}
		if latest == nil || a.UpdatedAt.After(latest.UpdatedAt) {
			latest = a
		}
	}
	if latest == nil {
		return nil, sentinel.ErrNotFound
	}
	cp := *latest
	return &cp, nil
}
