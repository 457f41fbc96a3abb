package models

import (
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	id "github.com/SylvainChabaud/rgpd-ia-platform-sub000/pkg/domain"
	dErrors "github.com/SylvainChabaud/rgpd-ia-platform-sub000/pkg/domain-errors"
)

type OppositionSuite struct {
	suite.Suite
	now time.Time
}

func (s *OppositionSuite) SetupTest() {
	s.now = time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
}

func TestOppositionSuite(t *testing.T) {
	suite.Run(t, new(OppositionSuite))
}

func (s *OppositionSuite) newOpposition(reason string) (*UserOpposition, error) {
	return NewUserOpposition(
		id.OppositionID(uuid.New()),
		id.TenantID(uuid.New()),
		id.UserID(uuid.New()),
		id.TreatmentAnalytics,
		reason,
		s.now,
	)
}

func (s *OppositionSuite) TestReasonBounds() {
	s.Run("accepts reason within bounds", func() {
		o, err := s.newOpposition("No analytics please, thank you")
		s.Require().NoError(err)
		s.Equal(OppositionStatusPending, o.Status)
	})

	s.Run("rejects 9 characters", func() {
		_, err := s.newOpposition("nine char")
		s.Require().Error(err)
		s.Contains(err.Error(), "Reason must be at least 10 characters")
	})

	s.Run("accepts exactly 10 and exactly 2000", func() {
		_, err := s.newOpposition("ten chars!")
		s.Require().NoError(err)

		_, err = s.newOpposition(strings.Repeat("x", 2000))
		s.Require().NoError(err)
	})

	s.Run("rejects 2001 characters", func() {
		_, err := s.newOpposition(strings.Repeat("x", 2001))
		s.Require().Error(err)
		s.Contains(err.Error(), "Reason must be at most 2000 characters")
	})

	s.Run("trims before measuring", func() {
		_, err := s.newOpposition("   nine char   ")
		s.Require().Error(err)
		s.Contains(err.Error(), "Reason must be at least 10 characters")
	})
}

func (s *OppositionSuite) TestReasonBoundsCountCharacters() {
	s.Run("rejects 5 accented characters despite 10 bytes", func() {
		_, err := s.newOpposition("ééééé")
		s.Require().Error(err)
		s.Contains(err.Error(), "Reason must be at least 10 characters")
	})

	s.Run("accepts 2000 accented characters", func() {
		_, err := s.newOpposition(strings.Repeat("é", 2000))
		s.Require().NoError(err)
	})

	s.Run("admin response counts characters too", func() {
		o, err := s.newOpposition("Je refuse ce traitement analytique")
		s.Require().NoError(err)

		err = o.ApplyReview(OppositionStatusRejected, "Déjà vu入力", "dpo-1", s.now)
		s.Require().Error(err)
		s.Contains(err.Error(), "Admin response must be at least 10 characters")

		err = o.ApplyReview(OppositionStatusRejected, "Décision motivée", "dpo-1", s.now)
		s.NoError(err)
	})
}

func (s *OppositionSuite) TestRequiredFields() {
	s.Run("nil tenant is an RGPD violation", func() {
		_, err := NewUserOpposition(id.OppositionID(uuid.New()), id.TenantID{}, id.UserID(uuid.New()), id.TreatmentAnalytics, "a valid reason here", s.now)
		s.True(dErrors.HasCode(err, dErrors.CodeRGPDViolation))
	})

	s.Run("nil user is rejected", func() {
		_, err := NewUserOpposition(id.OppositionID(uuid.New()), id.TenantID(uuid.New()), id.UserID{}, id.TreatmentAnalytics, "a valid reason here", s.now)
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})

	s.Run("unknown treatment is rejected", func() {
		_, err := NewUserOpposition(id.OppositionID(uuid.New()), id.TenantID(uuid.New()), id.UserID(uuid.New()), "biometrics", "a valid reason here", s.now)
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})
}

func (s *OppositionSuite) TestReview() {
	s.Run("accepts a pending opposition", func() {
		o, err := s.newOpposition("No analytics please, thank you")
		s.Require().NoError(err)

		later := s.now.Add(time.Hour)
		s.Require().NoError(o.Review(OppositionStatusAccepted, "  We will stop analytics processing.  ", "admin-1", later))
		s.Equal(OppositionStatusAccepted, o.Status)
		s.Equal("We will stop analytics processing.", o.AdminResponse)
		s.Equal("admin-1", o.ReviewedBy)
		s.Require().NotNil(o.ReviewedAt)
		s.True(o.IsAccepted())
	})

	s.Run("second review is a state conflict", func() {
		o, err := s.newOpposition("No analytics please, thank you")
		s.Require().NoError(err)
		s.Require().NoError(o.Review(OppositionStatusRejected, "Processing is contractually required", "admin-1", s.now))

		err = o.Review(OppositionStatusAccepted, "Changed our minds entirely", "admin-2", s.now)
		s.True(dErrors.HasCode(err, dErrors.CodeConflict))
		s.Contains(err.Error(), "Only pending oppositions can be reviewed")
		s.Equal(OppositionStatusRejected, o.Status)
	})

	s.Run("requires admin response of 10 characters", func() {
		o, err := s.newOpposition("No analytics please, thank you")
		s.Require().NoError(err)

		err = o.Review(OppositionStatusAccepted, "too short", "admin-1", s.now)
		s.Require().Error(err)
		s.Contains(err.Error(), "Admin response must be at least 10 characters")
		s.Equal(OppositionStatusPending, o.Status)
	})

	s.Run("rejects non-terminal review status", func() {
		o, err := s.newOpposition("No analytics please, thank you")
		s.Require().NoError(err)

		err = o.Review(OppositionStatusPending, "a perfectly fine response", "admin-1", s.now)
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})
}

func (s *OppositionSuite) TestSla() {
	s.Run("exceeded only at or after thirty days", func() {
		o, err := s.newOpposition("No analytics please, thank you")
		s.Require().NoError(err)

		s.False(o.IsSlaExceeded(s.now))
		s.False(o.IsSlaExceeded(s.now.Add(ReviewSLA - time.Second)))
		s.True(o.IsSlaExceeded(s.now.Add(ReviewSLA)))
		s.True(o.IsSlaExceeded(s.now.Add(ReviewSLA + time.Hour)))
	})

	s.Run("days remaining is non-increasing and clamps at zero", func() {
		o, err := s.newOpposition("No analytics please, thank you")
		s.Require().NoError(err)

		s.Equal(30, o.DaysUntilSla(s.now))
		s.Equal(29, o.DaysUntilSla(s.now.Add(24*time.Hour)))
		s.Equal(1, o.DaysUntilSla(s.now.Add(ReviewSLA-time.Hour)))
		s.Equal(0, o.DaysUntilSla(s.now.Add(ReviewSLA)))
		s.Equal(0, o.DaysUntilSla(s.now.Add(ReviewSLA+240*time.Hour)))
	})

	s.Run("reviewed oppositions report zero", func() {
		o, err := s.newOpposition("No analytics please, thank you")
		s.Require().NoError(err)
		s.Require().NoError(o.Review(OppositionStatusAccepted, "We will stop this treatment", "admin-1", s.now))

		s.False(o.IsSlaExceeded(s.now.Add(2 * ReviewSLA)))
		s.Equal(0, o.DaysUntilSla(s.now))
	})
}
