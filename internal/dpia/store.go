package dpia

import (
	"context"

	id "github.com/SylvainChabaud/rgpd-ia-platform-sub000/pkg/domain"
	dErrors "github.com/SylvainChabaud/rgpd-ia-platform-sub000/pkg/domain-errors"
)

// Store is the tenant-scoped persistence port for assessments.
type Store interface {
	Create(ctx context.Context, a *Assessment) error
	FindByID(ctx context.Context, tenantID id.TenantID, assessmentID id.AssessmentID) (*Assessment, error)
	ListByTenant(ctx context.Context, tenantID id.TenantID) ([]*Assessment, error)
	// UpdateIfStatus persists a transitioned assessment only when the stored
	// row still has the expected pre-transition status.
	UpdateIfStatus(ctx context.Context, a *Assessment, expected AssessmentStatus) error
	// FindValidatedByTreatment returns the most recently validated assessment
	// covering the treatment, or sentinel.ErrNotFound.
	FindValidatedByTreatment(ctx context.Context, tenantID id.TenantID, treatment id.TreatmentType) (*Assessment, error)
}

func requireTenant(tenantID id.TenantID) error {
	if tenantID.IsNil() {
		return dErrors.New(dErrors.CodeRGPDViolation, "RGPD VIOLATION: tenant ID required at assessment store boundary")
	}
	return nil
}
