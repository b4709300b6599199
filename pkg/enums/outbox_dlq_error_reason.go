package enums

import "fmt"

// OutboxDLQErrorReason records why the publisher gave up on an outbox row.
type OutboxDLQErrorReason string

const (
	// OutboxDLQReasonMaxAttempts: retryable publish failures exhausted the attempt budget.
	OutboxDLQReasonMaxAttempts  OutboxDLQErrorReason = "max_attempts"
	OutboxDLQReasonNonRetryable OutboxDLQErrorReason = "non_retryable"
	// OutboxDLQReasonUnresolvable: the event type or payload version has no registry entry.
	OutboxDLQReasonUnresolvable OutboxDLQErrorReason = "unresolvable"
	// OutboxDLQReasonUnroutable: no Pub/Sub publisher is configured for the target topic.
	OutboxDLQReasonUnroutable OutboxDLQErrorReason = "unroutable"
)

func (r OutboxDLQErrorReason) IsValid() bool {
	switch r {
	case OutboxDLQReasonMaxAttempts, OutboxDLQReasonNonRetryable, OutboxDLQReasonUnresolvable, OutboxDLQReasonUnroutable:
		return true
	}
	return false
}

// Replayable reports whether an operator can requeue the row once the
// underlying cause is fixed without changing the payload.
func (r OutboxDLQErrorReason) Replayable() bool {
	return r == OutboxDLQReasonMaxAttempts || r == OutboxDLQReasonUnroutable
}

func ParseOutboxDLQErrorReason(value string) (OutboxDLQErrorReason, error) {
	r := OutboxDLQErrorReason(value)
	if !r.IsValid() {
		return "", fmt.Errorf("invalid outbox dlq reason %q", value)
	}
	return r, nil
}
