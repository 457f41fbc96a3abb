package models

import (
	"strings"
	"time"
	"unicode/utf8"

	id "github.com/SylvainChabaud/rgpd-ia-platform-sub000/pkg/domain"
	dErrors "github.com/SylvainChabaud/rgpd-ia-platform-sub000/pkg/domain-errors"
)

// OppositionStatus is the lifecycle state of a user opposition (Art. 21).
type OppositionStatus string

const (
	OppositionStatusPending  OppositionStatus = "pending"
	OppositionStatusAccepted OppositionStatus = "accepted"
	OppositionStatusRejected OppositionStatus = "rejected"
)

// IsTerminal reports whether the status admits no further transitions.
func (s OppositionStatus) IsTerminal() bool {
	return s == OppositionStatusAccepted || s == OppositionStatusRejected
}

const (
	oppositionReasonMin = 10
	oppositionReasonMax = 2000
	adminResponseMin    = 10
)

// UserOpposition is a user's objection to a named treatment (Art. 21).
//
// Invariants:
//   - TenantID, UserID and Treatment are always present; no opposition is
//     ever constructed without a tenant
//   - Reason is trimmed and between 10 and 2000 characters
//   - Status transitions only from pending; accepted/rejected are terminal
//   - A review always carries an AdminResponse of at least 10 characters
type UserOpposition struct {
	ID            id.OppositionID
	TenantID      id.TenantID
	UserID        id.UserID
	Treatment     id.TreatmentType
	Reason        string
	Status        OppositionStatus
	AdminResponse string
	ReviewedBy    string
	CreatedAt     time.Time
	ReviewedAt    *time.Time
	DeletedAt     *time.Time
}

// NewUserOpposition validates input and returns a pending opposition.
// Validation failures cite the specific violated bound.
func NewUserOpposition(oppositionID id.OppositionID, tenantID id.TenantID, userID id.UserID, treatment id.TreatmentType, reason string, now time.Time) (*UserOpposition, error) {
	if tenantID.IsNil() {
		return nil, dErrors.New(dErrors.CodeRGPDViolation, "RGPD VIOLATION: tenant ID is required")
	}
	if userID.IsNil() {
		return nil, dErrors.New(dErrors.CodeValidation, "user ID is required")
	}
	if !treatment.IsValid() {
		return nil, dErrors.New(dErrors.CodeValidation, "invalid treatment type")
	}
	reason = strings.TrimSpace(reason)
	if utf8.RuneCountInString(reason) < oppositionReasonMin {
		return nil, dErrors.New(dErrors.CodeValidation, "Reason must be at least 10 characters")
	}
	if utf8.RuneCountInString(reason) > oppositionReasonMax {
		return nil, dErrors.New(dErrors.CodeValidation, "Reason must be at most 2000 characters")
	}
	return &UserOpposition{
		ID:        oppositionID,
		TenantID:  tenantID,
		UserID:    userID,
		Treatment: treatment,
		Reason:    reason,
		Status:    OppositionStatusPending,
		CreatedAt: now,
	}, nil
}

// CanReview checks that the opposition still accepts a review transition.
// Use with ApplyReview in conditional-update callbacks.
func (o *UserOpposition) CanReview() error {
	if o.Status != OppositionStatusPending {
		return dErrors.New(dErrors.CodeConflict, "Only pending oppositions can be reviewed")
	}
	return nil
}

// ApplyReview transitions the opposition to a terminal status.
// Call CanReview first to validate the transition.
func (o *UserOpposition) ApplyReview(status OppositionStatus, adminResponse, reviewedBy string, now time.Time) error {
	if !status.IsTerminal() {
		return dErrors.New(dErrors.CodeValidation, "review status must be accepted or rejected")
	}
	adminResponse = strings.TrimSpace(adminResponse)
	if utf8.RuneCountInString(adminResponse) < adminResponseMin {
		return dErrors.New(dErrors.CodeValidation, "Admin response must be at least 10 characters")
	}
	if reviewedBy == "" {
		return dErrors.New(dErrors.CodeValidation, "reviewer is required")
	}
	o.Status = status
	o.AdminResponse = adminResponse
	o.ReviewedBy = reviewedBy
	at := now
	o.ReviewedAt = &at
	return nil
}

// Review validates and applies the transition in one call.
// Prefer CanReview + ApplyReview for conditional-update callbacks.
func (o *UserOpposition) Review(status OppositionStatus, adminResponse, reviewedBy string, now time.Time) error {
	if err := o.CanReview(); err != nil {
		return err
	}
	return o.ApplyReview(status, adminResponse, reviewedBy, now)
}

// IsAccepted reports whether the opposition was accepted on review. An
// accepted opposition obliges the tenant to stop the contested treatment.
func (o *UserOpposition) IsAccepted() bool {
	return o.Status == OppositionStatusAccepted
}

// IsSlaExceeded reports whether the 30-day review SLA has run out. Derived,
// never stored; only pending oppositions can exceed the SLA.
func (o *UserOpposition) IsSlaExceeded(now time.Time) bool {
	return isSlaExceeded(o.Status == OppositionStatusPending, o.CreatedAt, now)
}

// DaysUntilSla returns the whole days left before the SLA deadline, rounded
// up and clamped at zero. Non-pending oppositions report zero.
func (o *UserOpposition) DaysUntilSla(now time.Time) int {
	return daysUntilSla(o.Status == OppositionStatusPending, o.CreatedAt, now)
}
