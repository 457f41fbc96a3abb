package models

import (
	"strings"
	"time"
	"unicode/utf8"

	id "github.com/SylvainChabaud/rgpd-ia-platform-sub000/pkg/domain"
	dErrors "github.com/SylvainChabaud/rgpd-ia-platform-sub000/pkg/domain-errors"
)

// DisputeStatus is the lifecycle state of an automated-decision dispute
// (Art. 22).
type DisputeStatus string

const (
	DisputeStatusPending     DisputeStatus = "pending"
	DisputeStatusUnderReview DisputeStatus = "under_review"
	DisputeStatusResolved    DisputeStatus = "resolved"
	DisputeStatusRejected    DisputeStatus = "rejected"
)

// IsTerminal reports whether the status admits no further transitions.
func (s DisputeStatus) IsTerminal() bool {
	return s == DisputeStatusResolved || s == DisputeStatusRejected
}

const disputeReasonMin = 20

// AttachmentTTL is how long dispute evidence attachments are retained before
// a sweeper may remove them. The model only records the URL; deletion is an
// external job driven by FindWithExpiredAttachments.
const AttachmentTTL = 90 * 24 * time.Hour

// UserDispute is a user's contest of an automated decision (Art. 22).
//
// Invariants:
//   - TenantID and UserID are always present
//   - Reason is trimmed and at least 20 characters (stricter than the
//     opposition bound, reflecting the higher review burden)
//   - Only pending or under_review disputes may still be updated
//   - resolved/rejected always carry a non-empty AdminResponse
type UserDispute struct {
	ID            id.DisputeID
	TenantID      id.TenantID
	UserID        id.UserID
	AIJobID       string
	Reason        string
	AttachmentURL string
	Status        DisputeStatus
	AdminResponse string
	ReviewedBy    string
	CreatedAt     time.Time
	ReviewedAt    *time.Time
	ResolvedAt    *time.Time
	DeletedAt     *time.Time
}

// NewUserDispute validates input and returns a pending dispute.
func NewUserDispute(disputeID id.DisputeID, tenantID id.TenantID, userID id.UserID, aiJobID, reason, attachmentURL string, now time.Time) (*UserDispute, error) {
	if tenantID.IsNil() {
		return nil, dErrors.New(dErrors.CodeRGPDViolation, "RGPD VIOLATION: tenant ID is required")
	}
	if userID.IsNil() {
		return nil, dErrors.New(dErrors.CodeValidation, "user ID is required")
	}
	reason = strings.TrimSpace(reason)
	if utf8.RuneCountInString(reason) < disputeReasonMin {
		return nil, dErrors.New(dErrors.CodeValidation, "Reason must be at least 20 characters")
	}
	return &UserDispute{
		ID:            disputeID,
		TenantID:      tenantID,
		UserID:        userID,
		AIJobID:       strings.TrimSpace(aiJobID),
		Reason:        reason,
		AttachmentURL: strings.TrimSpace(attachmentURL),
		Status:        DisputeStatusPending,
		CreatedAt:     now,
	}, nil
}

// CanStartReview checks that the dispute can move to under_review.
func (d *UserDispute) CanStartReview() error {
	if d.Status != DisputeStatusPending {
		return dErrors.New(dErrors.CodeConflict, "Only pending disputes can enter review")
	}
	return nil
}

// ApplyStartReview transitions the dispute to under_review.
// Call CanStartReview first to validate the transition.
func (d *UserDispute) ApplyStartReview(reviewedBy string, now time.Time) error {
	if reviewedBy == "" {
		return dErrors.New(dErrors.CodeValidation, "reviewer is required")
	}
	d.Status = DisputeStatusUnderReview
	d.ReviewedBy = reviewedBy
	at := now
	d.ReviewedAt = &at
	return nil
}

// CanResolve checks that the dispute still accepts a terminal transition.
// Both pending and under_review disputes may be resolved directly.
func (d *UserDispute) CanResolve() error {
	if d.Status.IsTerminal() {
		return dErrors.New(dErrors.CodeConflict, "Dispute has already been resolved")
	}
	return nil
}

// ApplyResolve transitions the dispute to a terminal status.
// Call CanResolve first to validate the transition.
func (d *UserDispute) ApplyResolve(status DisputeStatus, adminResponse, reviewedBy string, now time.Time) error {
	if !status.IsTerminal() {
		return dErrors.New(dErrors.CodeValidation, "resolution status must be resolved or rejected")
	}
	adminResponse = strings.TrimSpace(adminResponse)
	if adminResponse == "" {
		return dErrors.New(dErrors.CodeValidation, "Admin response is required to resolve a dispute")
	}
	if reviewedBy == "" {
		return dErrors.New(dErrors.CodeValidation, "reviewer is required")
	}
	d.Status = status
	d.AdminResponse = adminResponse
	d.ReviewedBy = reviewedBy
	at := now
	if d.ReviewedAt == nil {
		d.ReviewedAt = &at
	}
	d.ResolvedAt = &at
	return nil
}

// HasExpiredAttachment reports whether the recorded attachment has outlived
// its retention window.
func (d *UserDispute) HasExpiredAttachment(now time.Time) bool {
	if d.AttachmentURL == "" {
		return false
	}
	return !now.Before(d.CreatedAt.Add(AttachmentTTL))
}

// IsSlaExceeded reports whether the 30-day review SLA has run out. A dispute
// under review no longer counts against the intake SLA.
func (d *UserDispute) IsSlaExceeded(now time.Time) bool {
	return isSlaExceeded(d.Status == DisputeStatusPending, d.CreatedAt, now)
}

// DaysUntilSla returns the whole days left before the SLA deadline, rounded
// up and clamped at zero.
func (d *UserDispute) DaysUntilSla(now time.Time) int {
	return daysUntilSla(d.Status == DisputeStatusPending, d.CreatedAt, now)
}
