package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"github.com/SylvainChabaud/rgpd-ia-platform-sub000/internal/consent"
	"github.com/SylvainChabaud/rgpd-ia-platform-sub000/internal/rights/models"
	disputestore "github.com/SylvainChabaud/rgpd-ia-platform-sub000/internal/rights/store/dispute"
	oppositionstore "github.com/SylvainChabaud/rgpd-ia-platform-sub000/internal/rights/store/opposition"
	"github.com/SylvainChabaud/rgpd-ia-platform-sub000/internal/user"
	id "github.com/SylvainChabaud/rgpd-ia-platform-sub000/pkg/domain"
	dErrors "github.com/SylvainChabaud/rgpd-ia-platform-sub000/pkg/domain-errors"
	"github.com/SylvainChabaud/rgpd-ia-platform-sub000/pkg/platform/audit"
	auditpublisher "github.com/SylvainChabaud/rgpd-ia-platform-sub000/pkg/platform/audit/publisher"
	auditmemory "github.com/SylvainChabaud/rgpd-ia-platform-sub000/pkg/platform/audit/store/memory"
	"github.com/SylvainChabaud/rgpd-ia-platform-sub000/pkg/requestcontext"
)

type RightsServiceSuite struct {
	suite.Suite
	oppositions *OppositionService
	disputes    *DisputeService
	suspensions *SuspensionService
	users       *user.InMemoryStore
	sink        *auditmemory.Store
	ctx         context.Context
	now         time.Time
	tenant      id.TenantID
	userID      id.UserID
}

func (s *RightsServiceSuite) SetupTest() {
	s.sink = auditmemory.New()
	publisher := auditpublisher.New(s.sink)

	oppStore := oppositionstore.NewInMemoryStore()
	dispStore := disputestore.NewInMemoryStore()
	s.users = user.NewInMemoryStore()
	consents := consent.NewService(consent.NewInMemoryStore())

	s.oppositions = NewOppositionService(oppStore, WithAuditPublisher(publisher))
	s.disputes = NewDisputeService(dispStore, WithAuditPublisher(publisher))
	s.suspensions = NewSuspensionService(s.users, oppStore, dispStore, consents, WithAuditPublisher(publisher))

	s.now = time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	s.ctx = requestcontext.WithTime(context.Background(), s.now)
	s.tenant = id.TenantID(uuid.New())
	s.userID = id.UserID(uuid.New())
}

func TestRightsServiceSuite(t *testing.T) {
	suite.Run(t, new(RightsServiceSuite))
}

func (s *RightsServiceSuite) events(name audit.EventName) []audit.Event {
	var out []audit.Event
	for _, e := range s.sink.Events() {
		if e.Name == name {
			out = append(out, e)
		}
	}
	return out
}

func (s *RightsServiceSuite) seedUser(suspended bool) id.UserID {
	userID := id.UserID(uuid.New())
	u := &user.User{
		ID:          userID,
		TenantID:    s.tenant,
		Email:       "subject@example.com",
		DisplayName: "Subject",
		CreatedAt:   s.now,
		UpdatedAt:   s.now,
	}
	if suspended {
		reason := id.SuspensionUserRequest
		u.DataSuspended = true
		u.DataSuspendedAt = &s.now
		u.DataSuspendedReason = &reason
	}
	s.Require().NoError(s.users.Create(s.ctx, u))
	return userID
}

func (s *RightsServiceSuite) TestSubmitOpposition() {
	s.Run("creates a pending opposition and audits it", func() {
		o, err := s.oppositions.SubmitOpposition(s.ctx, SubmitOppositionInput{
			TenantID:  s.tenant,
			UserID:    s.userID,
			Treatment: id.TreatmentAnalytics,
			Reason:    "No analytics please, thank you",
		})
		s.Require().NoError(err)
		s.Equal(models.OppositionStatusPending, o.Status)
		s.Equal(s.now, o.CreatedAt)

		submitted := s.events(audit.EventOppositionSubmitted)
		s.Require().Len(submitted, 1)
		s.Equal(o.ID.String(), submitted[0].TargetID)
		s.Equal(len("No analytics please, thank you"), submitted[0].ReasonLength)
		s.Empty(submitted[0].Reason, "audit payload must not carry the reason text")
	})

	s.Run("rejects a short reason", func() {
		_, err := s.oppositions.SubmitOpposition(s.ctx, SubmitOppositionInput{
			TenantID:  s.tenant,
			UserID:    s.userID,
			Treatment: id.TreatmentAnalytics,
			Reason:    "too short",
		})
		s.Require().Error(err)
		s.Contains(err.Error(), "Reason must be at least 10 characters")
	})

	s.Run("rejects a missing tenant before any write", func() {
		_, err := s.oppositions.SubmitOpposition(s.ctx, SubmitOppositionInput{
			UserID:    s.userID,
			Treatment: id.TreatmentAnalytics,
			Reason:    "a perfectly valid reason",
		})
		s.True(dErrors.HasCode(err, dErrors.CodeRGPDViolation))
	})
}

func (s *RightsServiceSuite) TestReviewOpposition() {
	submit := func() *models.UserOpposition {
		o, err := s.oppositions.SubmitOpposition(s.ctx, SubmitOppositionInput{
			TenantID:  s.tenant,
			UserID:    s.userID,
			Treatment: id.TreatmentProfiling,
			Reason:    "stop profiling my account",
		})
		s.Require().NoError(err)
		return o
	}

	s.Run("accepts a pending opposition", func() {
		o := submit()
		reviewed, err := s.oppositions.ReviewOpposition(s.ctx, ReviewOppositionInput{
			TenantID:      s.tenant,
			OppositionID:  o.ID,
			Status:        models.OppositionStatusAccepted,
			AdminResponse: "profiling disabled for this account",
			ReviewedBy:    "admin-1",
		})
		s.Require().NoError(err)
		s.Equal(models.OppositionStatusAccepted, reviewed.Status)
		s.Require().NotNil(reviewed.ReviewedAt)
		s.Len(s.events(audit.EventOppositionReviewed), 1)
	})

	s.Run("second review of the same opposition conflicts", func() {
		o := submit()
		_, err := s.oppositions.ReviewOpposition(s.ctx, ReviewOppositionInput{
			TenantID:      s.tenant,
			OppositionID:  o.ID,
			Status:        models.OppositionStatusRejected,
			AdminResponse: "legitimate interest applies here",
			ReviewedBy:    "admin-1",
		})
		s.Require().NoError(err)

		_, err = s.oppositions.ReviewOpposition(s.ctx, ReviewOppositionInput{
			TenantID:      s.tenant,
			OppositionID:  o.ID,
			Status:        models.OppositionStatusAccepted,
			AdminResponse: "changed our mind on this one",
			ReviewedBy:    "admin-2",
		})
		s.True(dErrors.HasCode(err, dErrors.CodeConflict))
		s.Contains(err.Error(), "Only pending oppositions can be reviewed")
	})

	s.Run("unknown opposition is not found", func() {
		_, err := s.oppositions.ReviewOpposition(s.ctx, ReviewOppositionInput{
			TenantID:      s.tenant,
			OppositionID:  id.OppositionID(uuid.New()),
			Status:        models.OppositionStatusAccepted,
			AdminResponse: "nothing here to review",
			ReviewedBy:    "admin-1",
		})
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})

	s.Run("short admin response is rejected", func() {
		o := submit()
		_, err := s.oppositions.ReviewOpposition(s.ctx, ReviewOppositionInput{
			TenantID:      s.tenant,
			OppositionID:  o.ID,
			Status:        models.OppositionStatusAccepted,
			AdminResponse: "ok",
			ReviewedBy:    "admin-1",
		})
		s.Require().Error(err)
		s.Contains(err.Error(), "Admin response must be at least 10 characters")
	})
}

func (s *RightsServiceSuite) TestDisputes() {
	submit := func(reason string) *models.UserDispute {
		d, err := s.disputes.SubmitDispute(s.ctx, SubmitDisputeInput{
			TenantID: s.tenant,
			UserID:   s.userID,
			AIJobID:  "job-42",
			Reason:   reason,
		})
		s.Require().NoError(err)
		return d
	}

	s.Run("submission enforces the stricter reason bound", func() {
		_, err := s.disputes.SubmitDispute(s.ctx, SubmitDisputeInput{
			TenantID: s.tenant,
			UserID:   s.userID,
			Reason:   "Too short",
		})
		s.Require().Error(err)
		s.Contains(err.Error(), "Reason must be at least")

		d := submit("The automated decision misclassified my request entirely")
		s.Equal(models.DisputeStatusPending, d.Status)
		s.Len(s.events(audit.EventDisputeSubmitted), 1)
	})

	s.Run("list computes pending and under-review counts", func() {
		first := submit(strings.Repeat("a", 25))
		submit(strings.Repeat("b", 25))

		_, err := s.disputes.StartDisputeReview(s.ctx, s.tenant, first.ID, "admin-1")
		s.Require().NoError(err)

		list, err := s.disputes.ListDisputes(s.ctx, s.tenant, s.userID)
		s.Require().NoError(err)
		s.Equal(1, list.UnderReviewCount)
		s.GreaterOrEqual(list.PendingCount, 1)
	})

	s.Run("list fails fast without identity", func() {
		_, err := s.disputes.ListDisputes(s.ctx, id.TenantID{}, s.userID)
		s.True(dErrors.HasCode(err, dErrors.CodeRGPDViolation))

		_, err = s.disputes.ListDisputes(s.ctx, s.tenant, id.UserID{})
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})

	s.Run("resolution is terminal", func() {
		d := submit("The credit scoring outcome ignored my submitted evidence")
		resolved, err := s.disputes.ResolveDispute(s.ctx, ResolveDisputeInput{
			TenantID:      s.tenant,
			DisputeID:     d.ID,
			Status:        models.DisputeStatusResolved,
			AdminResponse: "decision overturned after manual review",
			ReviewedBy:    "admin-1",
		})
		s.Require().NoError(err)
		s.Equal(models.DisputeStatusResolved, resolved.Status)
		s.Require().NotNil(resolved.ResolvedAt)

		_, err = s.disputes.ResolveDispute(s.ctx, ResolveDisputeInput{
			TenantID:      s.tenant,
			DisputeID:     d.ID,
			Status:        models.DisputeStatusRejected,
			AdminResponse: "second decision must not land",
			ReviewedBy:    "admin-2",
		})
		s.True(dErrors.HasCode(err, dErrors.CodeConflict))
	})

	s.Run("cross-tenant resolution is refused", func() {
		d := submit("The recommendation engine flagged my account incorrectly")
		_, err := s.disputes.ResolveDispute(s.ctx, ResolveDisputeInput{
			TenantID:      id.TenantID(uuid.New()),
			DisputeID:     d.ID,
			Status:        models.DisputeStatusResolved,
			AdminResponse: "should never reach the store",
			ReviewedBy:    "admin-1",
		})
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})
}

func (s *RightsServiceSuite) TestSuspensionLifecycle() {
	s.Run("suspend then unsuspend round-trips", func() {
		userID := s.seedUser(false)

		snap, err := s.suspensions.SuspendUserData(s.ctx, SuspendInput{
			TenantID:    s.tenant,
			UserID:      userID,
			Reason:      id.SuspensionAccuracyContested,
			RequestedBy: userID.String(),
		})
		s.Require().NoError(err)
		s.True(snap.Suspended)

		snap, err = s.suspensions.UnsuspendUserData(s.ctx, UnsuspendInput{
			TenantID:    s.tenant,
			UserID:      userID,
			RequestedBy: userID.String(),
		})
		s.Require().NoError(err)
		s.False(snap.Suspended)
		s.Require().NotNil(snap.UnsuspendedAt)
	})

	s.Run("unsuspending a non-suspended user is a hard error", func() {
		userID := s.seedUser(false)

		_, err := s.suspensions.UnsuspendUserData(s.ctx, UnsuspendInput{
			TenantID:    s.tenant,
			UserID:      userID,
			RequestedBy: "admin-1",
		})
		s.True(dErrors.HasCode(err, dErrors.CodeConflict))
		s.Contains(err.Error(), "User data is not currently suspended")
	})

	s.Run("unknown user is not found", func() {
		_, err := s.suspensions.UnsuspendUserData(s.ctx, UnsuspendInput{
			TenantID:    s.tenant,
			UserID:      id.UserID(uuid.New()),
			RequestedBy: "admin-1",
		})
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
		s.Contains(err.Error(), "User not found")
	})

	s.Run("audit distinguishes self-service from admin unsuspension", func() {
		selfServed := s.seedUser(true)
		_, err := s.suspensions.UnsuspendUserData(s.ctx, UnsuspendInput{
			TenantID:    s.tenant,
			UserID:      selfServed,
			RequestedBy: selfServed.String(),
		})
		s.Require().NoError(err)

		adminServed := s.seedUser(true)
		_, err = s.suspensions.UnsuspendUserData(s.ctx, UnsuspendInput{
			TenantID:    s.tenant,
			UserID:      adminServed,
			RequestedBy: "admin-1",
		})
		s.Require().NoError(err)

		deactivated := s.events(audit.EventDataSuspensionDeactivated)
		s.Require().Len(deactivated, 2)
		s.True(deactivated[0].RequestedByUser)
		s.False(deactivated[1].RequestedByUser)
	})
}

func (s *RightsServiceSuite) TestEraseUserData() {
	s.Run("anonymizes the user and removes rights records", func() {
		userID := s.seedUser(false)
		_, err := s.oppositions.SubmitOpposition(s.ctx, SubmitOppositionInput{
			TenantID:  s.tenant,
			UserID:    userID,
			Treatment: id.TreatmentAnalytics,
			Reason:    "erase everything about me",
		})
		s.Require().NoError(err)

		s.Require().NoError(s.suspensions.EraseUserData(s.ctx, s.tenant, userID, "admin-1"))

		u, err := s.users.FindByID(s.ctx, s.tenant, userID)
		s.Require().NoError(err)
		s.Empty(u.Email)
		s.Require().NotNil(u.ErasedAt)

		oppositions, err := s.oppositions.ListOppositions(s.ctx, s.tenant, userID)
		s.Require().NoError(err)
		s.Empty(oppositions)

		s.Len(s.events(audit.EventUserDataErased), 1)
	})

	s.Run("erasing an unknown user is not found", func() {
		err := s.suspensions.EraseUserData(s.ctx, s.tenant, id.UserID(uuid.New()), "admin-1")
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})
}
