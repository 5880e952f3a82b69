package events

// Topic constants for domain events emitted by the service.
const (
	// TopicTransactionRecorded fires after a checkout is appended to the ledger.
	TopicTransactionRecorded = "transaction.recorded"
)

// DefaultTopics returns the canonical list of topics that support notifications.
func DefaultTopics() []string {
	return []string{TopicTransactionRecorded}
}
