package dpia

import (
	"strings"
	"time"

	id "github.com/SylvainChabaud/rgpd-ia-platform-sub000/pkg/domain"
	dErrors "github.com/SylvainChabaud/rgpd-ia-platform-sub000/pkg/domain-errors"
)

// AssessmentStatus is the DPIA lifecycle state.
type AssessmentStatus string

const (
	StatusDraft     AssessmentStatus = "draft"
	StatusSubmitted AssessmentStatus = "submitted"
	StatusValidated AssessmentStatus = "validated"
	StatusRejected  AssessmentStatus = "rejected"
)

// IsTerminal reports whether the status admits no further transitions.
func (s AssessmentStatus) IsTerminal() bool {
	return s == StatusValidated || s == StatusRejected
}

// RiskLevel classifies the treatment's impact on data subjects.
type RiskLevel string

const (
	RiskLow    RiskLevel = "low"
	RiskMedium RiskLevel = "medium"
	RiskHigh   RiskLevel = "high"
)

var validRiskLevels = map[RiskLevel]bool{
	RiskLow:    true,
	RiskMedium: true,
	RiskHigh:   true,
}

func (r RiskLevel) String() string {
	return string(r)
}

// ParseRiskLevel constructs a RiskLevel from external input.
func ParseRiskLevel(s string) (RiskLevel, error) {
	r := RiskLevel(strings.TrimSpace(s))
	if !validRiskLevels[r] {
		return "", dErrors.New(dErrors.CodeInvalidInput, "invalid risk level")
	}
	return r, nil
}

// Assessment is an Art. 35 Data Protection Impact Assessment for one
// treatment under one tenant. High-risk treatments require a validated
// assessment before the gateway lets any processing run.
type Assessment struct {
	ID        id.AssessmentID
	TenantID  id.TenantID
	Treatment id.TreatmentType
	Title     string
	RiskLevel RiskLevel

	Status      AssessmentStatus
	SubmittedBy string
	ValidatedBy string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewAssessment validates input and returns a draft assessment.
func NewAssessment(assessmentID id.AssessmentID, tenantID id.TenantID, treatment id.TreatmentType, title string, risk RiskLevel, now time.Time) (*Assessment, error) {
	if tenantID.IsNil() {
		return nil, dErrors.New(dErrors.CodeRGPDViolation, "RGPD VIOLATION: tenant ID is required")
	}
	if !treatment.IsValid() {
		return nil, dErrors.New(dErrors.CodeValidation, "invalid treatment: "+treatment.String())
	}
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "title is required")
	}
	if !validRiskLevels[risk] {
		return nil, dErrors.New(dErrors.CodeValidation, "invalid risk level")
	}
	return &Assessment{
		ID:        assessmentID,
		TenantID:  tenantID,
		Treatment: treatment,
		Title:     title,
		RiskLevel: risk,
		Status:    StatusDraft,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// CanSubmit checks that the assessment is still a draft.
func (a *Assessment) CanSubmit() error {
	if a.Status != StatusDraft {
		return dErrors.New(dErrors.CodeConflict, "Only draft assessments can be submitted")
	}
	return nil
}

// ApplySubmit moves a draft to submitted.
func (a *Assessment) ApplySubmit(submittedBy string, now time.Time) error {
	submittedBy = strings.TrimSpace(submittedBy)
	if submittedBy == "" {
		return dErrors.New(dErrors.CodeValidation, "submittedBy is required")
	}
	a.Status = StatusSubmitted
	a.SubmittedBy = submittedBy
	a.UpdatedAt = now
	return nil
}

// CanDecide checks that the assessment awaits a decision.
func (a *Assessment) CanDecide() error {
	if a.Status != StatusSubmitted {
		return dErrors.New(dErrors.CodeConflict, "Only submitted assessments can be decided")
	}
	return nil
}

// ApplyDecision moves a submitted assessment to validated or rejected.
func (a *Assessment) ApplyDecision(status AssessmentStatus, validatedBy string, now time.Time) error {
	if !status.IsTerminal() {
		return dErrors.New(dErrors.CodeValidation, "decision status must be validated or rejected")
	}
	validatedBy = strings.TrimSpace(validatedBy)
	if validatedBy == "" {
		return dErrors.New(dErrors.CodeValidation, "validatedBy is required")
	}
	a.Status = status
	a.ValidatedBy = validatedBy
	a.UpdatedAt = now
	return nil
}
