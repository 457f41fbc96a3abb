package handler

import (
	"strings"
	"time"

	"github.com/SylvainChabaud/rgpd-ia-platform-sub000/internal/consent"
	id "github.com/SylvainChabaud/rgpd-ia-platform-sub000/pkg/domain"
	dErrors "github.com/SylvainChabaud/rgpd-ia-platform-sub000/pkg/domain-errors"
)

type GrantConsentRequest struct {
	Treatments []string `json:"treatments"`
}

func (r *GrantConsentRequest) Normalize() {
	if r == nil {
		return
	}
	for i := range r.Treatments {
		r.Treatments[i] = strings.TrimSpace(r.Treatments[i])
	}
}

func (r *GrantConsentRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request is required")
	}
	if len(r.Treatments) == 0 {
		return dErrors.New(dErrors.CodeValidation, "treatments array must not be empty")
	}
	return nil
}

// ParsedTreatments converts the request strings into validated treatment types.
func (r *GrantConsentRequest) ParsedTreatments() ([]id.TreatmentType, error) {
	treatments := make([]id.TreatmentType, 0, len(r.Treatments))
	for _, raw := range r.Treatments {
		t, err := id.ParseTreatmentType(raw)
		if err != nil {
			return nil, err
		}
		treatments = append(treatments, t)
	}
	return treatments, nil
}

type RevokeConsentRequest struct {
	Treatment string `json:"treatment"`
}

func (r *RevokeConsentRequest) Normalize() {
	if r == nil {
		return
	}
	r.Treatment = strings.TrimSpace(r.Treatment)
}

func (r *RevokeConsentRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request is required")
	}
	if r.Treatment == "" {
		return dErrors.New(dErrors.CodeValidation, "treatment is required")
	}
	return nil
}

type ConsentResponse struct {
	ID        string     `json:"id"`
	Treatment string     `json:"treatment"`
	GrantedAt time.Time  `json:"granted_at"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
	RevokedAt *time.Time `json:"revoked_at,omitempty"`
}

type ConsentListResponse struct {
	Consents []ConsentResponse `json:"consents"`
}

func toConsentListResponse(records []consent.Record) ConsentListResponse {
	out := ConsentListResponse{Consents: make([]ConsentResponse, 0, len(records))}
	for _, r := range records {
		resp := ConsentResponse{
			ID:        r.ID.String(),
			Treatment: r.Treatment.String(),
			GrantedAt: r.GrantedAt,
			RevokedAt: r.RevokedAt,
		}
		if !r.ExpiresAt.IsZero() {
			at := r.ExpiresAt
			resp.ExpiresAt = &at
		}
		out.Consents = append(out.Consents, resp)
	}
	return out
}
