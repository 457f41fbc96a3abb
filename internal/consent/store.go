package consent

import (
	"context"
	"time"

	id "github.com/SylvainChabaud/rgpd-ia-platform-sub000/pkg/domain"
	dErrors "github.com/SylvainChabaud/rgpd-ia-platform-sub000/pkg/domain-errors"
)

// Store is the tenant-scoped persistence port for consent records.
// Implementations must reject a nil tenant ID with CodeRGPDViolation.
type Store interface {
	Save(ctx context.Context, record Record) error
	ListByUser(ctx context.Context, tenantID id.TenantID, userID id.UserID) ([]Record, error)
	Revoke(ctx context.Context, tenantID id.TenantID, userID id.UserID, treatment id.TreatmentType, revokedAt time.Time) error

	// HardDeleteByUser removes all consent rows for the user (Art. 17).
	// Returns the number of affected rows.
	HardDeleteByUser(ctx context.Context, tenantID id.TenantID, userID id.UserID) (int64, error)
}

func requireTenant(tenantID id.TenantID) error {
	if tenantID.IsNil() {
		return dErrors.New(dErrors.CodeRGPDViolation, "RGPD VIOLATION: tenant ID required at consent store boundary")
	}
	return nil
}
