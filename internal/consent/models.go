package consent

import (
	"time"

	id "github.com/SylvainChabaud/rgpd-ia-platform-sub000/pkg/domain"
	dErrors "github.com/SylvainChabaud/rgpd-ia-platform-sub000/pkg/domain-errors"
)

// Record captures a user's consent decision for a specific treatment.
// Treatment binding allows selective revocation without affecting other flows.
type Record struct {
	ID        id.ConsentID
	TenantID  id.TenantID
	UserID    id.UserID
	Treatment id.TreatmentType
	GrantedAt time.Time
	ExpiresAt time.Time
	RevokedAt *time.Time
}

// IsActive returns true when the consent is currently valid.
func (c Record) IsActive(now time.Time) bool {
	if c.RevokedAt != nil && !c.RevokedAt.After(now) {
		return false
	}
	return c.ExpiresAt.IsZero() || now.Before(c.ExpiresAt)
}

// EnsureConsent enforces that an active consent exists for the treatment.
func EnsureConsent(consents []Record, treatment id.TreatmentType, now time.Time) error {
	for _, c := range consents {
		if c.Treatment == treatment && c.IsActive(now) {
			return nil
		}
	}
	return dErrors.New(dErrors.CodeMissingConsent, "consent not granted for required treatment")
}
