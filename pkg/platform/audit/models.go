package audit

import "time"

// EventCategory classifies audit events by their primary purpose.
// This enables different retention policies, storage backends, and routing.
type EventCategory string

const (
	// CategoryCompliance covers events with legal/regulatory significance.
	// These require tamper-proof storage and long retention (e.g., 7 years).
	// Examples: rights requests, consent changes, erasure, suspension toggles.
	CategoryCompliance EventCategory = "compliance"

	// CategorySecurity covers events relevant to security monitoring and forensics.
	// Examples: blocked AI invocations, quota rejections, tenant deactivation.
	CategorySecurity EventCategory = "security"

	// CategoryOperations covers events useful for debugging and operational visibility.
	// These can be sampled or aggregated with shorter retention.
	CategoryOperations EventCategory = "operations"
)

// Event is emitted from domain logic to capture key actions. Keep it
// transport-agnostic so stores and sinks can fan out.
//
// Every field is a primitive (string, bool, int, time.Time). The flat shape is
// load-bearing: audit payloads must never nest objects and must never carry
// free-text content (reasons, admin responses). Record enum values, IDs,
// booleans, and content lengths instead. A reflection test pins this.
type Event struct {
	ID        string
	Name      EventName
	Category  EventCategory
	Timestamp time.Time

	// ActorScope is "user", "admin", or "system".
	ActorScope string
	// ActorID is the acting principal. For admin review operations it
	// differs from UserID.
	ActorID string

	TenantID string
	UserID   string
	// TargetID is the entity acted upon (opposition, dispute, assessment...).
	TargetID string

	// Treatment, Decision and Reason carry enum values only.
	Treatment string
	Decision  string
	Reason    string

	// ReasonLength records the size of free-text content without the content.
	ReasonLength int

	// RequestedByUser distinguishes self-service operations from
	// admin-initiated ones (suspension lifting, erasure).
	RequestedByUser bool

	// RequestID is the correlation ID from the HTTP request context.
	RequestID string
}

// EventName identifies an audit event type.
type EventName string

const (
	// Rights events
	EventOppositionSubmitted EventName = "opposition.submitted"
	EventOppositionReviewed  EventName = "opposition.reviewed"
	EventDisputeSubmitted    EventName = "dispute.submitted"
	EventDisputeReviewStart  EventName = "dispute.review_started"
	EventDisputeResolved     EventName = "dispute.resolved"

	// Suspension events (Art. 18)
	EventDataSuspensionActivated   EventName = "data.suspension.activated"
	EventDataSuspensionDeactivated EventName = "data.suspension.deactivated"

	// Erasure events (Art. 17)
	EventUserDataErased EventName = "user.data_erased"

	// Consent events
	EventConsentGranted EventName = "consent.granted"
	EventConsentRevoked EventName = "consent.revoked"

	// Tenant events
	EventTenantCreated     EventName = "tenant.created"
	EventTenantDeactivated EventName = "tenant.deactivated"
	EventTenantReactivated EventName = "tenant.reactivated"
	EventTenantKeyRotated  EventName = "tenant.api_key_rotated"

	// Impact assessment events (Art. 35)
	EventAssessmentSubmitted EventName = "assessment.submitted"
	EventAssessmentValidated EventName = "assessment.validated"
	EventAssessmentRejected  EventName = "assessment.rejected"

	// AI gateway events
	EventAIInvocationCompleted EventName = "ai.invocation.completed"
	EventAIInvocationBlocked   EventName = "ai.invocation.blocked"
)

// eventCategories maps each audit event to its category.
// Compliance: legal/regulatory significance, long retention required.
// Security: security monitoring, SIEM integration, alerting.
// Operations: debugging, operational visibility, can be sampled.
var eventCategories = map[EventName]EventCategory{
	EventOppositionSubmitted:       CategoryCompliance,
	EventOppositionReviewed:        CategoryCompliance,
	EventDisputeSubmitted:          CategoryCompliance,
	EventDisputeReviewStart:        CategoryCompliance,
	EventDisputeResolved:           CategoryCompliance,
	EventDataSuspensionActivated:   CategoryCompliance,
	EventDataSuspensionDeactivated: CategoryCompliance,
	EventUserDataErased:            CategoryCompliance,
	EventConsentGranted:            CategoryCompliance,
	EventConsentRevoked:            CategoryCompliance,
	EventAssessmentSubmitted:       CategoryCompliance,
	EventAssessmentValidated:       CategoryCompliance,
	EventAssessmentRejected:        CategoryCompliance,

	EventAIInvocationBlocked: CategorySecurity,
	EventTenantDeactivated:   CategorySecurity,
	EventTenantKeyRotated:    CategorySecurity,

	EventTenantCreated:         CategoryOperations,
	EventTenantReactivated:     CategoryOperations,
	EventAIInvocationCompleted: CategoryOperations,
}

// Category returns the EventCategory for this audit event.
// Unknown events default to CategoryOperations.
func (n EventName) Category() EventCategory {
	if cat, ok := eventCategories[n]; ok {
		return cat
	}
	return CategoryOperations
}
