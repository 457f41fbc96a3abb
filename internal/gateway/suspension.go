package gateway

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/SylvainChabaud/rgpd-ia-platform-sub000/internal/user"
	id "github.com/SylvainChabaud/rgpd-ia-platform-sub000/pkg/domain"
	"github.com/SylvainChabaud/rgpd-ia-platform-sub000/pkg/platform/sentinel"
)

// DataSuspensionError is the gate's hard stop: the invocation must be
// blocked and never retried. The message carries the suspension reason and
// timestamp for operator visibility; it never carries user content.
type DataSuspensionError struct {
	TenantID id.TenantID
	UserID   id.UserID
	Message  string
}

func (e *DataSuspensionError) Error() string {
	return e.Message
}

// CheckDataSuspension is the Art. 18 enforcement gate, called unconditionally
// as the last check before any AI invocation. Read-only; it consults user
// restriction metadata and nothing else.
//
// Missing tenant or user identity fails before any store access.
func CheckDataSuspension(ctx context.Context, users user.Store, tenantID id.TenantID, userID id.UserID) error {
	if tenantID.IsNil() {
		return &DataSuspensionError{TenantID: tenantID, UserID: userID, Message: "data suspension check requires a tenant ID"}
	}
	if userID.IsNil() {
		return &DataSuspensionError{TenantID: tenantID, UserID: userID, Message: "data suspension check requires a user ID"}
	}

	u, err := users.FindByID(ctx, tenantID, userID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return &DataSuspensionError{TenantID: tenantID, UserID: userID, Message: "data suspension check failed: user not found"}
		}
		return fmt.Errorf("data suspension lookup: %w", err)
	}
	if !u.DataSuspended {
		return nil
	}

	reason := "unspecified"
	if u.DataSuspendedReason != nil {
		reason = u.DataSuspendedReason.String()
	}
	since := "unknown time"
	if u.DataSuspendedAt != nil {
		since = u.DataSuspendedAt.UTC().Format(time.RFC3339)
	}
	return &DataSuspensionError{
		TenantID: tenantID,
		UserID:   userID,
		Message:  fmt.Sprintf("processing restricted under Art. 18: user data suspended since %s (reason: %s), block processing", since, reason),
	}
}
