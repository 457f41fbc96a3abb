package opposition

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"github.com/SylvainChabaud/rgpd-ia-platform-sub000/internal/rights/models"
	id "github.com/SylvainChabaud/rgpd-ia-platform-sub000/pkg/domain"
	dErrors "github.com/SylvainChabaud/rgpd-ia-platform-sub000/pkg/domain-errors"
	"github.com/SylvainChabaud/rgpd-ia-platform-sub000/pkg/platform/sentinel"
)

type OppositionStoreSuite struct {
	suite.Suite
	store  *InMemoryStore
	ctx    context.Context
	now    time.Time
	tenant id.TenantID
	userID id.UserID
}

func (s *OppositionStoreSuite) SetupTest() {
	s.store = NewInMemoryStore()
	s.ctx = context.Background()
	s.now = time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	s.tenant = id.TenantID(uuid.New())
	s.userID = id.UserID(uuid.New())
}

func TestOppositionStoreSuite(t *testing.T) {
	suite.Run(t, new(OppositionStoreSuite))
}

func (s *OppositionStoreSuite) newOpposition() *models.UserOpposition {
	o, err := models.NewUserOpposition(id.OppositionID(uuid.New()), s.tenant, s.userID, id.TreatmentAnalytics, "please stop tracking me", s.now)
	s.Require().NoError(err)
	return o
}

func (s *OppositionStoreSuite) TestTenantScoping() {
	o := s.newOpposition()
	s.Require().NoError(s.store.Create(s.ctx, o))

	s.Run("nil tenant is refused on every read", func() {
		_, err := s.store.FindByID(s.ctx, id.TenantID{}, o.ID)
		s.True(dErrors.HasCode(err, dErrors.CodeRGPDViolation))

		_, err = s.store.ListByUser(s.ctx, id.TenantID{}, s.userID)
		s.True(dErrors.HasCode(err, dErrors.CodeRGPDViolation))

		_, err = s.store.FindExceedingSLA(s.ctx, id.TenantID{}, s.now)
		s.True(dErrors.HasCode(err, dErrors.CodeRGPDViolation))
	})

	s.Run("another tenant cannot see the row", func() {
		_, err := s.store.FindByID(s.ctx, id.TenantID(uuid.New()), o.ID)
		s.ErrorIs(err, sentinel.ErrNotFound)
	})
}

func (s *OppositionStoreSuite) TestConditionalUpdate() {
	o := s.newOpposition()
	s.Require().NoError(s.store.Create(s.ctx, o))

	first := *o
	s.Require().NoError(first.Review(models.OppositionStatusAccepted, "objection granted in full", "admin-1", s.now))
	s.Require().NoError(s.store.UpdateIfPending(s.ctx, &first))

	second := *o
	s.Require().NoError(second.Review(models.OppositionStatusRejected, "objection denied on review", "admin-2", s.now))
	s.ErrorIs(s.store.UpdateIfPending(s.ctx, &second), sentinel.ErrInvalidState)

	stored, err := s.store.FindByID(s.ctx, s.tenant, o.ID)
	s.Require().NoError(err)
	s.Equal(models.OppositionStatusAccepted, stored.Status)
}

func (s *OppositionStoreSuite) TestSlaQuery() {
	o := s.newOpposition()
	s.Require().NoError(s.store.Create(s.ctx, o))

	overdue, err := s.store.FindExceedingSLA(s.ctx, s.tenant, s.now.Add(-time.Hour))
	s.Require().NoError(err)
	s.Empty(overdue)

	overdue, err = s.store.FindExceedingSLA(s.ctx, s.tenant, s.now)
	s.Require().NoError(err)
	s.Len(overdue, 1)
}

func (s *OppositionStoreSuite) TestSoftDelete() {
	o := s.newOpposition()
	s.Require().NoError(s.store.Create(s.ctx, o))

	n, err := s.store.SoftDeleteByUser(s.ctx, s.tenant, s.userID, s.now)
	s.Require().NoError(err)
	s.Equal(int64(1), n)

	_, err = s.store.FindByID(s.ctx, s.tenant, o.ID)
	s.ErrorIs(err, sentinel.ErrNotFound)
}
