package user

import (
	"context"
	"time"

	id "github.com/SylvainChabaud/rgpd-ia-platform-sub000/pkg/domain"
)

// Store is the tenant-scoped persistence port for user records.
//
// Every method takes an explicit tenant ID. Implementations must reject a nil
// tenant ID with a CodeRGPDViolation domain error before touching storage;
// there is no such thing as an unscoped user lookup in this system.
type Store interface {
	Create(ctx context.Context, u *User) error
	FindByID(ctx context.Context, tenantID id.TenantID, userID id.UserID) (*User, error)

	// UpdateDataSuspension flips the restriction state only when the stored
	// flag still equals expectedCurrent; returns sentinel.ErrInvalidState when
	// a concurrent toggle won the race.
	UpdateDataSuspension(ctx context.Context, tenantID id.TenantID, userID id.UserID, expectedCurrent bool, next Suspension) error

	// SoftEraseByID anonymizes the record in place (Art. 17 first stage).
	// Returns the number of affected rows.
	SoftEraseByID(ctx context.Context, tenantID id.TenantID, userID id.UserID, erasedAt time.Time) (int64, error)

	// HardDeleteByID removes the record entirely (Art. 17 second stage).
	HardDeleteByID(ctx context.Context, tenantID id.TenantID, userID id.UserID) (int64, error)
}
