package handler

import (
	"strings"
	"time"

	"github.com/SylvainChabaud/rgpd-ia-platform-sub000/internal/dpia"
	dErrors "github.com/SylvainChabaud/rgpd-ia-platform-sub000/pkg/domain-errors"
)

type CreateAssessmentRequest struct {
	Treatment string `json:"treatment"`
	Title     string `json:"title"`
	RiskLevel string `json:"risk_level"`
}

func (r *CreateAssessmentRequest) Normalize() {
	if r == nil {
		return
	}
	r.Treatment = strings.TrimSpace(r.Treatment)
	r.Title = strings.TrimSpace(r.Title)
	r.RiskLevel = strings.TrimSpace(r.RiskLevel)
}

func (r *CreateAssessmentRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request is required")
	}
	if r.Title == "" {
		return dErrors.New(dErrors.CodeValidation, "title is required")
	}
	return nil
}

type DecideAssessmentRequest struct {
	Status string `json:"status"`
}

func (r *DecideAssessmentRequest) Normalize() {
	if r == nil {
		return
	}
	r.Status = strings.TrimSpace(r.Status)
}

func (r *DecideAssessmentRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request is required")
	}
	if !dpia.AssessmentStatus(r.Status).IsTerminal() {
		return dErrors.New(dErrors.CodeValidation, "status must be validated or rejected")
	}
	return nil
}

type AssessmentResponse struct {
	ID          string    `json:"id"`
	Treatment   string    `json:"treatment"`
	Title       string    `json:"title"`
	RiskLevel   string    `json:"risk_level"`
	Status      string    `json:"status"`
	SubmittedBy string    `json:"submitted_by,omitempty"`
	ValidatedBy string    `json:"validated_by,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type AssessmentListResponse struct {
	Assessments []AssessmentResponse `json:"assessments"`
}

func toAssessmentResponse(a *dpia.Assessment) AssessmentResponse {
	return AssessmentResponse{
		ID:          a.ID.String(),
		Treatment:   a.Treatment.String(),
		Title:       a.Title,
		RiskLevel:   a.RiskLevel.String(),
		Status:      string(a.Status),
		SubmittedBy: a.SubmittedBy,
		ValidatedBy: a.ValidatedBy,
		CreatedAt:   a.CreatedAt,
		UpdatedAt:   a.UpdatedAt,
	}
}
