package domain

import dErrors "github.com/SylvainChabaud/rgpd-ia-platform-sub000/pkg/domain-errors"

// TreatmentType is a domain value that identifies a data-processing treatment.
// Invariant: the value must be one of the supported treatment types.
//
// Usage: construct via ParseTreatmentType at trust boundaries to enforce the
// allowlist; direct casting bypasses validation.
type TreatmentType string

// Supported treatment types. Users can object to any of these (Art. 21) and
// consent is granted per treatment.
const (
	TreatmentAnalytics   TreatmentType = "analytics"
	TreatmentMarketing   TreatmentType = "marketing"
	TreatmentProfiling   TreatmentType = "profiling"
	TreatmentAIInference TreatmentType = "ai_inference"
	TreatmentNewsletter  TreatmentType = "newsletter"
)

// validTreatmentTypes is the single source of truth for valid treatments.
var validTreatmentTypes = map[TreatmentType]bool{
	TreatmentAnalytics:   true,
	TreatmentMarketing:   true,
	TreatmentProfiling:   true,
	TreatmentAIInference: true,
	TreatmentNewsletter:  true,
}

// ParseTreatmentType constructs a TreatmentType from external input.
//
// Errors: returns CodeInvalidInput when the value is empty or unsupported; no
// other errors are expected.
func ParseTreatmentType(s string) (TreatmentType, error) {
	if s == "" {
		return "", dErrors.New(dErrors.CodeInvalidInput, "treatment type cannot be empty")
	}
	t := TreatmentType(s)
	if !t.IsValid() {
		return "", dErrors.New(dErrors.CodeInvalidInput, "invalid treatment type")
	}
	return t, nil
}

// IsValid checks if the treatment type is one of the supported enum values.
func (t TreatmentType) IsValid() bool {
	return validTreatmentTypes[t]
}

// RequiresAssessment reports whether the treatment needs a validated impact
// assessment before any processing may run (Art. 35 high-risk treatments).
func (t TreatmentType) RequiresAssessment() bool {
	return t == TreatmentAIInference || t == TreatmentProfiling
}

// String returns the string representation of the treatment type.
func (t TreatmentType) String() string {
	return string(t)
}
