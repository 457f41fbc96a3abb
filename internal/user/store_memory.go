package user

import (
	"context"
	"sync"
	"time"

	id "github.com/SylvainChabaud/rgpd-ia-platform-sub000/pkg/domain"
	dErrors "github.com/SylvainChabaud/rgpd-ia-platform-sub000/pkg/domain-errors"
	"github.com/SylvainChabaud/rgpd-ia-platform-sub000/pkg/platform/sentinel"
	"github.com/SylvainChabaud/rgpd-ia-platform-sub000/pkg/requestcontext"
)

// InMemoryStore keeps users keyed by (tenant, user). Unit-test double and
// development backend.
type InMemoryStore struct {
	mu    sync.RWMutex
	users map[memKey]*User
}

type memKey struct {
	tenant id.TenantID
	user   id.UserID
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{users: make(map[memKey]*User)}
}

func requireTenant(tenantID id.TenantID) error {
	if tenantID.IsNil() {
		return dErrors.New(dErrors.CodeRGPDViolation, "RGPD VIOLATION: tenant ID required at user store boundary")
	}
	return nil
}

func (s *InMemoryStore) Create(_ context.Context, u *User) error {
	if err := requireTenant(u.TenantID); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	key := memKey{tenant: u.TenantID, user: u.ID}
	if _, exists := s.users[key]; exists {
		return sentinel.ErrConflict
	}
	cp := *u
	s.users[key] = &cp
	return nil
}

func (s *InMemoryStore) FindByID(_ context.Context, tenantID id.TenantID, userID id.UserID) (*User, error) {
	if err := requireTenant(tenantID); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[memKey{tenant: tenantID, user: userID}]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (s *InMemoryStore) UpdateDataSuspension(ctx context.Context, tenantID id.TenantID, userID id.UserID, expectedCurrent bool, next Suspension) error {
	if err := requireTenant(tenantID); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[memKey{tenant: tenantID, user: userID}]
	if !ok {
		return sentinel.ErrNotFound
	}
	if u.DataSuspended != expectedCurrent {
		return sentinel.ErrInvalidState
	}
	u.DataSuspended = next.Suspended
	u.DataSuspendedAt = next.SuspendedAt
	u.DataSuspendedReason = next.Reason
	u.DataUnsuspendedAt = next.UnsuspendedAt
	u.SuspensionRequestedBy = next.RequestedBy
	u.SuspensionNotes = next.Notes
	u.UpdatedAt = requestcontext.Now(ctx)
	return nil
}

func (s *InMemoryStore) SoftEraseByID(ctx context.Context, tenantID id.TenantID, userID id.UserID, erasedAt time.Time) (int64, error) {
	if err := requireTenant(tenantID); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[memKey{tenant: tenantID, user: userID}]
	if !ok {
		return 0, nil
	}
	u.Email = ""
	u.DisplayName = ""
	u.SuspensionNotes = ""
	u.ErasedAt = &erasedAt
	u.UpdatedAt = requestcontext.Now(ctx)
	return 1, nil
}

func (s *InMemoryStore) HardDeleteByID(_ context.Context, tenantID id.TenantID, userID id.UserID) (int64, error) {
	if err := requireTenant(tenantID); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	key := memKey{tenant: tenantID, user: userID}
	if _, ok := s.users[key]; !ok {
		return 0, nil
	}
	delete(s.users, key)
	return 1, nil
}
