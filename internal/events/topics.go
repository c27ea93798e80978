package events

// Topic constants for domain events emitted by the storefront.
const (
	TopicDeliveryQuoted      = "delivery.quoted"
	TopicCoefficientsUpdated = "pricing.coefficients_updated"
	TopicOrderPlaced         = "order.placed"
	TopicUserRegistered      = "user.registered"
	TopicUserLoggedIn        = "user.logged_in"
	TopicAuditRecorded       = "audit.recorded"
)

// DefaultTopics returns every topic the storefront emits.
func DefaultTopics() []string {
	return []string{
		TopicDeliveryQuoted,
		TopicCoefficientsUpdated,
		TopicOrderPlaced,
		TopicUserRegistered,
		TopicUserLoggedIn,
		TopicAuditRecorded,
	}
}
