package domain

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "github.com/SylvainChabaud/rgpd-ia-platform-sub000/pkg/domain-errors"
)

// TestParseUUID_Invariants validates the parsing invariant:
// "IDs must be valid UUIDs, rejected with CodeInvalidInput otherwise".
func TestParseUUID_Invariants(t *testing.T) {
	t.Run("rejects empty string", func(t *testing.T) {
		_, err := ParseTenantID("")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("rejects invalid format", func(t *testing.T) {
		_, err := ParseUserID("not-a-uuid")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("accepts valid UUID", func(t *testing.T) {
		valid := uuid.New()
		parsed, err := ParseDisputeID(valid.String())
		require.NoError(t, err)
		assert.Equal(t, valid.String(), parsed.String())
	})

	t.Run("nil UUID parses but reports IsNil", func(t *testing.T) {
		parsed, err := ParseTenantID(uuid.Nil.String())
		require.NoError(t, err)
		assert.True(t, parsed.IsNil())
	})
}

func TestTreatmentType(t *testing.T) {
	t.Run("accepts supported treatments", func(t *testing.T) {
		for _, raw := range []string{"analytics", "marketing", "profiling", "ai_inference", "newsletter"} {
			parsed, err := ParseTreatmentType(raw)
			require.NoError(t, err)
			assert.True(t, parsed.IsValid())
		}
	})

	t.Run("rejects empty and unknown values", func(t *testing.T) {
		_, err := ParseTreatmentType("")
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))

		_, err = ParseTreatmentType("telemetry")
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("flags high-risk treatments for assessment", func(t *testing.T) {
		assert.True(t, TreatmentAIInference.RequiresAssessment())
		assert.True(t, TreatmentProfiling.RequiresAssessment())
		assert.False(t, TreatmentNewsletter.RequiresAssessment())
	})
}

func TestSuspensionReason(t *testing.T) {
	t.Run("accepts supported reasons", func(t *testing.T) {
		parsed, err := ParseSuspensionReason("user_request")
		require.NoError(t, err)
		assert.Equal(t, SuspensionUserRequest, parsed)
	})

	t.Run("rejects unknown reason", func(t *testing.T) {
		_, err := ParseSuspensionReason("because")
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})
}
