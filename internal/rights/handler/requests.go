package handler

import (
	"strings"
	"time"

	"github.com/SylvainChabaud/rgpd-ia-platform-sub000/internal/rights/models"
	"github.com/SylvainChabaud/rgpd-ia-platform-sub000/internal/user"
	dErrors "github.com/SylvainChabaud/rgpd-ia-platform-sub000/pkg/domain-errors"
)

type SubmitOppositionRequest struct {
	Treatment string `json:"treatment"`
	Reason    string `json:"reason"`
}

func (r *SubmitOppositionRequest) Normalize() {
	if r == nil {
		return
	}
	r.Treatment = strings.TrimSpace(r.Treatment)
	r.Reason = strings.TrimSpace(r.Reason)
}

func (r *SubmitOppositionRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request is required")
	}
	if r.Treatment == "" {
		return dErrors.New(dErrors.CodeValidation, "treatment is required")
	}
	return nil
}

type ReviewOppositionRequest struct {
	Status        string `json:"status"`
	AdminResponse string `json:"admin_response"`
}

func (r *ReviewOppositionRequest) Normalize() {
	if r == nil {
		return
	}
	r.Status = strings.TrimSpace(r.Status)
	r.AdminResponse = strings.TrimSpace(r.AdminResponse)
}

func (r *ReviewOppositionRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request is required")
	}
	status := models.OppositionStatus(r.Status)
	if !status.IsTerminal() {
		return dErrors.New(dErrors.CodeValidation, "status must be accepted or rejected")
	}
	return nil
}

type SubmitDisputeRequest struct {
	AIJobID       string `json:"ai_job_id"`
	Reason        string `json:"reason"`
	AttachmentURL string `json:"attachment_url"`
}

func (r *SubmitDisputeRequest) Normalize() {
	if r == nil {
		return
	}
	r.AIJobID = strings.TrimSpace(r.AIJobID)
	r.Reason = strings.TrimSpace(r.Reason)
	r.AttachmentURL = strings.TrimSpace(r.AttachmentURL)
}

type ResolveDisputeRequest struct {
	Status        string `json:"status"`
	AdminResponse string `json:"admin_response"`
}

func (r *ResolveDisputeRequest) Normalize() {
	if r == nil {
		return
	}
	r.Status = strings.TrimSpace(r.Status)
	r.AdminResponse = strings.TrimSpace(r.AdminResponse)
}

func (r *ResolveDisputeRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request is required")
	}
	status := models.DisputeStatus(r.Status)
	if !status.IsTerminal() {
		return dErrors.New(dErrors.CodeValidation, "status must be resolved or rejected")
	}
	return nil
}

type SuspendUserRequest struct {
	Reason string `json:"reason"`
	Notes  string `json:"notes"`
}

func (r *SuspendUserRequest) Normalize() {
	if r == nil {
		return
	}
	r.Reason = strings.TrimSpace(r.Reason)
	r.Notes = strings.TrimSpace(r.Notes)
}

func (r *SuspendUserRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request is required")
	}
	if r.Reason == "" {
		return dErrors.New(dErrors.CodeValidation, "reason is required")
	}
	return nil
}

type UnsuspendUserRequest struct {
	Notes string `json:"notes"`
}

func (r *UnsuspendUserRequest) Normalize() {
	if r == nil {
		return
	}
	r.Notes = strings.TrimSpace(r.Notes)
}

type OppositionResponse struct {
	ID            string     `json:"id"`
	Treatment     string     `json:"treatment"`
	Reason        string     `json:"reason"`
	Status        string     `json:"status"`
	AdminResponse string     `json:"admin_response,omitempty"`
	ReviewedBy    string     `json:"reviewed_by,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	ReviewedAt    *time.Time `json:"reviewed_at,omitempty"`
	SlaExceeded   bool       `json:"sla_exceeded"`
	DaysUntilSla  int        `json:"days_until_sla"`
}

func toOppositionResponse(o *models.UserOpposition, now time.Time) OppositionResponse {
	return OppositionResponse{
		ID:            o.ID.String(),
		Treatment:     o.Treatment.String(),
		Reason:        o.Reason,
		Status:        string(o.Status),
		AdminResponse: o.AdminResponse,
		ReviewedBy:    o.ReviewedBy,
		CreatedAt:     o.CreatedAt,
		ReviewedAt:    o.ReviewedAt,
		SlaExceeded:   o.IsSlaExceeded(now),
		DaysUntilSla:  o.DaysUntilSla(now),
	}
}

type OppositionListResponse struct {
	Oppositions []OppositionResponse `json:"oppositions"`
}

type DisputeResponse struct {
	ID            string     `json:"id"`
	AIJobID       string     `json:"ai_job_id,omitempty"`
	Reason        string     `json:"reason"`
	AttachmentURL string     `json:"attachment_url,omitempty"`
	Status        string     `json:"status"`
	AdminResponse string     `json:"admin_response,omitempty"`
	ReviewedBy    string     `json:"reviewed_by,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	ReviewedAt    *time.Time `json:"reviewed_at,omitempty"`
	ResolvedAt    *time.Time `json:"resolved_at,omitempty"`
	SlaExceeded   bool       `json:"sla_exceeded"`
	DaysUntilSla  int        `json:"days_until_sla"`
}

func toDisputeResponse(d *models.UserDispute, now time.Time) DisputeResponse {
	return DisputeResponse{
		ID:            d.ID.String(),
		AIJobID:       d.AIJobID,
		Reason:        d.Reason,
		AttachmentURL: d.AttachmentURL,
		Status:        string(d.Status),
		AdminResponse: d.AdminResponse,
		ReviewedBy:    d.ReviewedBy,
		CreatedAt:     d.CreatedAt,
		ReviewedAt:    d.ReviewedAt,
		ResolvedAt:    d.ResolvedAt,
		SlaExceeded:   d.IsSlaExceeded(now),
		DaysUntilSla:  d.DaysUntilSla(now),
	}
}

type DisputeListResponse struct {
	Disputes         []DisputeResponse `json:"disputes"`
	PendingCount     int               `json:"pending_count"`
	UnderReviewCount int               `json:"under_review_count"`
}

type SuspensionResponse struct {
	UserID        string     `json:"user_id"`
	Suspended     bool       `json:"suspended"`
	SuspendedAt   *time.Time `json:"suspended_at,omitempty"`
	Reason        string     `json:"reason,omitempty"`
	UnsuspendedAt *time.Time `json:"unsuspended_at,omitempty"`
	RequestedBy   string     `json:"requested_by,omitempty"`
	Notes         string     `json:"notes,omitempty"`
}

func toSuspensionResponse(s *user.Suspension) SuspensionResponse {
	resp := SuspensionResponse{
		UserID:        s.UserID.String(),
		Suspended:     s.Suspended,
		SuspendedAt:   s.SuspendedAt,
		UnsuspendedAt: s.UnsuspendedAt,
		RequestedBy:   s.RequestedBy,
		Notes:         s.Notes,
	}
	if s.Reason != nil {
		resp.Reason = s.Reason.String()
	}
	return resp
}
