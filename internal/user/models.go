package user

import (
	"time"

	id "github.com/SylvainChabaud/rgpd-ia-platform-sub000/pkg/domain"
)

// User is the tenant-owned subject record. The Art. 18 restriction state
// lives directly on the user, not in a separate entity store: the enforcement
// gate reads it on every AI invocation and a single row keeps that check cheap
// and atomic.
type User struct {
	ID          id.UserID
	TenantID    id.TenantID
	Email       string
	DisplayName string

	DataSuspended         bool
	DataSuspendedAt       *time.Time
	DataSuspendedReason   *id.SuspensionReason
	DataUnsuspendedAt     *time.Time
	SuspensionRequestedBy string
	SuspensionNotes       string

	// ErasedAt marks Art. 17 soft erasure; hard deletion removes the row.
	ErasedAt *time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Suspension is the caller-visible snapshot of a user's restriction state.
// Returned by suspend/unsuspend operations and embedded in gate refusals.
type Suspension struct {
	UserID        id.UserID
	TenantID      id.TenantID
	Suspended     bool
	SuspendedAt   *time.Time
	Reason        *id.SuspensionReason
	UnsuspendedAt *time.Time
	RequestedBy   string
	Notes         string
}

// SuspensionOf derives the snapshot from the user record.
func SuspensionOf(u *User) Suspension {
	return Suspension{
		UserID:        u.ID,
		TenantID:      u.TenantID,
		Suspended:     u.DataSuspended,
		SuspendedAt:   u.DataSuspendedAt,
		Reason:        u.DataSuspendedReason,
		UnsuspendedAt: u.DataUnsuspendedAt,
		RequestedBy:   u.SuspensionRequestedBy,
		Notes:         u.SuspensionNotes,
	}
}
