package handler

import (
	"strings"

	dErrors "github.com/SylvainChabaud/rgpd-ia-platform-sub000/pkg/domain-errors"
)

type InvokeRequest struct {
	Treatment string `json:"treatment"`
	Prompt    string `json:"prompt"`
}

func (r *InvokeRequest) Normalize() {
	if r == nil {
		return
	}
	r.Treatment = strings.TrimSpace(r.Treatment)
}

func (r *InvokeRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request is required")
	}
	if r.Treatment == "" {
		return dErrors.New(dErrors.CodeValidation, "treatment is required")
	}
	if strings.TrimSpace(r.Prompt) == "" {
		return dErrors.New(dErrors.CodeValidation, "prompt is required")
	}
	return nil
}
