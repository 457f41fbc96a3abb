package domain

import dErrors "github.com/SylvainChabaud/rgpd-ia-platform-sub000/pkg/domain-errors"

// SuspensionReason identifies why a user's data processing was restricted
// under Art. 18. Stored on the user record and surfaced in gateway refusals.
type SuspensionReason string

const (
	SuspensionUserRequest       SuspensionReason = "user_request"
	SuspensionDisputePending    SuspensionReason = "dispute_pending"
	SuspensionAccuracyContested SuspensionReason = "accuracy_contested"
	SuspensionAdminAction       SuspensionReason = "admin_action"
)

var validSuspensionReasons = map[SuspensionReason]bool{
	SuspensionUserRequest:       true,
	SuspensionDisputePending:    true,
	SuspensionAccuracyContested: true,
	SuspensionAdminAction:       true,
}

// ParseSuspensionReason constructs a SuspensionReason from external input.
func ParseSuspensionReason(s string) (SuspensionReason, error) {
	if s == "" {
		return "", dErrors.New(dErrors.CodeInvalidInput, "suspension reason cannot be empty")
	}
	r := SuspensionReason(s)
	if !validSuspensionReasons[r] {
		return "", dErrors.New(dErrors.CodeInvalidInput, "invalid suspension reason")
	}
	return r, nil
}

func (r SuspensionReason) IsValid() bool {
	return validSuspensionReasons[r]
}

func (r SuspensionReason) String() string {
	return string(r)
}
