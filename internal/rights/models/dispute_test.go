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

type DisputeSuite struct {
	suite.Suite
	now time.Time
}

func (s *DisputeSuite) SetupTest() {
	s.now = time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
}

func TestDisputeSuite(t *testing.T) {
	suite.Run(t, new(DisputeSuite))
}

func (s *DisputeSuite) newDispute(reason, attachmentURL string) (*UserDispute, error) {
	return NewUserDispute(
		id.DisputeID(uuid.New()),
		id.TenantID(uuid.New()),
		id.UserID(uuid.New()),
		"job-42",
		reason,
		attachmentURL,
		s.now,
	)
}

func (s *DisputeSuite) TestReasonBound() {
	s.Run("rejects short reason with bound message", func() {
		_, err := s.newDispute("Too short", "")
		s.Require().Error(err)
		s.Contains(err.Error(), "Reason must be at least")
	})

	s.Run("accepts twenty characters", func() {
		d, err := s.newDispute("exactly twenty chars", "")
		s.Require().NoError(err)
		s.Equal(DisputeStatusPending, d.Status)
		s.Equal("job-42", d.AIJobID)
	})

	s.Run("nil tenant is an RGPD violation", func() {
		_, err := NewUserDispute(id.DisputeID(uuid.New()), id.TenantID{}, id.UserID(uuid.New()), "", "this decision was made about me unfairly", "", s.now)
		s.True(dErrors.HasCode(err, dErrors.CodeRGPDViolation))
	})

	s.Run("counts characters, not bytes", func() {
		_, err := s.newDispute(strings.Repeat("é", 19), "")
		s.Require().Error(err)
		s.Contains(err.Error(), "Reason must be at least")

		_, err = s.newDispute("Décision contestée !", "")
		s.NoError(err)
	})
}

func (s *DisputeSuite) TestLifecycle() {
	s.Run("pending to under_review to resolved", func() {
		d, err := s.newDispute("this automated decision is wrong", "")
		s.Require().NoError(err)

		s.Require().NoError(d.CanStartReview())
		s.Require().NoError(d.ApplyStartReview("admin-1", s.now))
		s.Equal(DisputeStatusUnderReview, d.Status)
		s.Require().NotNil(d.ReviewedAt)

		s.Require().NoError(d.CanResolve())
		s.Require().NoError(d.ApplyResolve(DisputeStatusResolved, "decision overturned after manual review", "admin-1", s.now.Add(time.Hour)))
		s.Equal(DisputeStatusResolved, d.Status)
		s.Require().NotNil(d.ResolvedAt)
	})

	s.Run("pending can resolve directly", func() {
		d, err := s.newDispute("this automated decision is wrong", "")
		s.Require().NoError(err)

		s.Require().NoError(d.CanResolve())
		s.Require().NoError(d.ApplyResolve(DisputeStatusRejected, "decision confirmed correct", "admin-1", s.now))
		s.Require().NotNil(d.ReviewedAt)
	})

	s.Run("resolving twice is a state conflict", func() {
		d, err := s.newDispute("this automated decision is wrong", "")
		s.Require().NoError(err)
		s.Require().NoError(d.ApplyResolve(DisputeStatusResolved, "decision overturned", "admin-1", s.now))

		err = d.CanResolve()
		s.True(dErrors.HasCode(err, dErrors.CodeConflict))
	})

	s.Run("review of non-pending dispute conflicts", func() {
		d, err := s.newDispute("this automated decision is wrong", "")
		s.Require().NoError(err)
		s.Require().NoError(d.ApplyStartReview("admin-1", s.now))

		err = d.CanStartReview()
		s.True(dErrors.HasCode(err, dErrors.CodeConflict))
	})

	s.Run("resolution requires an admin response", func() {
		d, err := s.newDispute("this automated decision is wrong", "")
		s.Require().NoError(err)

		err = d.ApplyResolve(DisputeStatusResolved, "   ", "admin-1", s.now)
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
		s.Equal(DisputeStatusPending, d.Status)
	})
}

func (s *DisputeSuite) TestAttachmentExpiry() {
	s.Run("attachment expires after ninety days", func() {
		d, err := s.newDispute("this automated decision is wrong", "https://evidence.example.com/doc.pdf")
		s.Require().NoError(err)

		s.False(d.HasExpiredAttachment(s.now))
		s.False(d.HasExpiredAttachment(s.now.Add(AttachmentTTL - time.Second)))
		s.True(d.HasExpiredAttachment(s.now.Add(AttachmentTTL)))
	})

	s.Run("no attachment never expires", func() {
		d, err := s.newDispute("this automated decision is wrong", "")
		s.Require().NoError(err)
		s.False(d.HasExpiredAttachment(s.now.Add(10 * AttachmentTTL)))
	})
}

func (s *DisputeSuite) TestSla() {
	s.Run("under_review stops the intake clock", func() {
		d, err := s.newDispute("this automated decision is wrong", "")
		s.Require().NoError(err)

		s.True(d.IsSlaExceeded(s.now.Add(ReviewSLA)))
		s.Require().NoError(d.ApplyStartReview("admin-1", s.now))
		s.False(d.IsSlaExceeded(s.now.Add(ReviewSLA)))
	})
}
