package interfaces

// EventPublisher emits ledger and bridge notifications to interested
// consumers. Publishing is best-effort from the ledger's point of view; a
// failed publish never rolls back the state change that triggered it.
type EventPublisher interface {
	Publish(topic string, event any) error
}
