package enums

import "fmt"

// OutboxAggregateType names the aggregate an outbox event belongs to.
type OutboxAggregateType string

const (
	AggregateOrderSubmission OutboxAggregateType = "order_submission"
	AggregateSettlementRun   OutboxAggregateType = "settlement_run"
)

func (a OutboxAggregateType) IsValid() bool {
	return a == AggregateOrderSubmission || a == AggregateSettlementRun
}

// OutboxEventType names a domain event carried through the outbox.
type OutboxEventType string

const (
	EventOrderSubmitted     OutboxEventType = "order.submitted"
	EventSettlementRecorded OutboxEventType = "settlement.recorded"
)

// eventAggregates pins every event type to the one aggregate that emits it.
var eventAggregates = map[OutboxEventType]OutboxAggregateType{
	EventOrderSubmitted:     AggregateOrderSubmission,
	EventSettlementRecorded: AggregateSettlementRun,
}

func (e OutboxEventType) IsValid() bool {
	_, ok := eventAggregates[e]
	return ok
}

// AggregateType returns the aggregate owning e, or "" for unknown events.
func (e OutboxEventType) AggregateType() OutboxAggregateType {
	return eventAggregates[e]
}

func ParseOutboxEventType(value string) (OutboxEventType, error) {
	e := OutboxEventType(value)
	if !e.IsValid() {
		return "", fmt.Errorf("invalid outbox event type %q", value)
	}
	return e, nil
}
