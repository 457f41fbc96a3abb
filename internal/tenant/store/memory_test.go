package store

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"github.com/SylvainChabaud/rgpd-ia-platform-sub000/internal/tenant/models"
	id "github.com/SylvainChabaud/rgpd-ia-platform-sub000/pkg/domain"
	dErrors "github.com/SylvainChabaud/rgpd-ia-platform-sub000/pkg/domain-errors"
	"github.com/SylvainChabaud/rgpd-ia-platform-sub000/pkg/platform/sentinel"
)

type TenantStoreSuite struct {
	suite.Suite
	store *InMemory
	ctx   context.Context
}

func (s *TenantStoreSuite) SetupTest() {
	s.store = NewInMemory()
	s.ctx = context.Background()
}

func TestTenantStoreSuite(t *testing.T) {
	suite.Run(t, new(TenantStoreSuite))
}

func (s *TenantStoreSuite) newTenant(name string) *models.Tenant {
	t, err := models.NewTenant(id.TenantID(uuid.New()), name, time.Now())
	s.Require().NoError(err)
	return t
}

func (s *TenantStoreSuite) TestCreationAndLookups() {
	s.Run("creates and finds tenant by ID", func() {
		tenant := s.newTenant("Test Tenant")
		s.Require().NoError(s.store.CreateIfNameAvailable(s.ctx, tenant))

		found, err := s.store.FindByID(s.ctx, tenant.ID)
		s.Require().NoError(err)
		s.Equal(tenant.Name, found.Name)
	})

	s.Run("finds tenant by name case-insensitively", func() {
		tenant := s.newTenant("MixedCase")
		s.Require().NoError(s.store.CreateIfNameAvailable(s.ctx, tenant))

		found, err := s.store.FindByName(s.ctx, "mixedcase")
		s.Require().NoError(err)
		s.Equal(tenant.ID, found.ID)
	})

	s.Run("returns ErrNotFound for unknown ID", func() {
		_, err := s.store.FindByID(s.ctx, id.TenantID(uuid.New()))
		s.Require().ErrorIs(err, sentinel.ErrNotFound)
	})
}

func (s *TenantStoreSuite) TestNameUniqueness() {
	s.Run("rejects duplicate name regardless of case", func() {
		s.Require().NoError(s.store.CreateIfNameAvailable(s.ctx, s.newTenant("Duplicate")))

		err := s.store.CreateIfNameAvailable(s.ctx, s.newTenant("DUPLICATE"))
		s.Require().ErrorIs(err, sentinel.ErrAlreadyUsed)
	})
}

func (s *TenantStoreSuite) TestExecute() {
	s.Run("applies mutation when validation passes", func() {
		tenant := s.newTenant("Exec")
		s.Require().NoError(s.store.CreateIfNameAvailable(s.ctx, tenant))

		now := time.Now()
		updated, err := s.store.Execute(s.ctx, tenant.ID,
			func(t *models.Tenant) error { return t.CanDeactivate() },
			func(t *models.Tenant) { t.ApplyDeactivation(now) },
		)
		s.Require().NoError(err)
		s.Equal(models.TenantStatusInactive, updated.Status)

		found, err := s.store.FindByID(s.ctx, tenant.ID)
		s.Require().NoError(err)
		s.False(found.IsActive())
	})

	s.Run("leaves tenant untouched when validation fails", func() {
		tenant := s.newTenant("ExecFail")
		s.Require().NoError(s.store.CreateIfNameAvailable(s.ctx, tenant))

		_, err := s.store.Execute(s.ctx, tenant.ID,
			func(t *models.Tenant) error { return t.CanReactivate() },
			func(t *models.Tenant) { t.ApplyReactivation(time.Now()) },
		)
		s.True(dErrors.HasCode(err, dErrors.CodeInvariantViolation))

		found, err := s.store.FindByID(s.ctx, tenant.ID)
		s.Require().NoError(err)
		s.True(found.IsActive())
	})

	s.Run("returns ErrNotFound for unknown tenant", func() {
		_, err := s.store.Execute(s.ctx, id.TenantID(uuid.New()),
			func(t *models.Tenant) error { return nil },
			func(t *models.Tenant) {},
		)
		s.Require().ErrorIs(err, sentinel.ErrNotFound)
	})
}
