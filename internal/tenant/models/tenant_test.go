package models

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	id "github.com/SylvainChabaud/rgpd-ia-platform-sub000/pkg/domain"
	dErrors "github.com/SylvainChabaud/rgpd-ia-platform-sub000/pkg/domain-errors"
)

type TenantModelSuite struct {
	suite.Suite
	now time.Time
}

func (s *TenantModelSuite) SetupTest() {
	s.now = time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
}

func TestTenantModelSuite(t *testing.T) {
	suite.Run(t, new(TenantModelSuite))
}

func (s *TenantModelSuite) TestConstruction() {
	s.Run("creates active tenant", func() {
		t, err := NewTenant(id.TenantID(uuid.New()), "Acme Corp", s.now)
		s.Require().NoError(err)
		s.Equal(TenantStatusActive, t.Status)
		s.True(t.IsActive())
		s.Equal(s.now, t.CreatedAt)
	})

	s.Run("rejects empty name", func() {
		_, err := NewTenant(id.TenantID(uuid.New()), "", s.now)
		s.True(dErrors.HasCode(err, dErrors.CodeInvariantViolation))
	})

	s.Run("rejects name over 128 characters", func() {
		long := make([]byte, 129)
		for i := range long {
			long[i] = 'a'
		}
		_, err := NewTenant(id.TenantID(uuid.New()), string(long), s.now)
		s.True(dErrors.HasCode(err, dErrors.CodeInvariantViolation))
	})
}

func (s *TenantModelSuite) TestTransitions() {
	s.Run("deactivates active tenant", func() {
		t, err := NewTenant(id.TenantID(uuid.New()), "Acme", s.now)
		s.Require().NoError(err)

		later := s.now.Add(time.Hour)
		s.Require().NoError(t.Deactivate(later))
		s.False(t.IsActive())
		s.Equal(later, t.UpdatedAt)
	})

	s.Run("rejects double deactivation", func() {
		t, err := NewTenant(id.TenantID(uuid.New()), "Acme", s.now)
		s.Require().NoError(err)
		s.Require().NoError(t.Deactivate(s.now))

		err = t.Deactivate(s.now)
		s.True(dErrors.HasCode(err, dErrors.CodeInvariantViolation))
	})

	s.Run("reactivation round trip", func() {
		t, err := NewTenant(id.TenantID(uuid.New()), "Acme", s.now)
		s.Require().NoError(err)

		s.True(dErrors.HasCode(t.Reactivate(s.now), dErrors.CodeInvariantViolation))
		s.Require().NoError(t.Deactivate(s.now))
		s.Require().NoError(t.Reactivate(s.now))
		s.True(t.IsActive())
	})
}
