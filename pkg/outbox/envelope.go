package outbox

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// EnvelopeVersion is bumped when the envelope layout, not the event data, changes.
const EnvelopeVersion = 1

// ActorRef identifies the member whose request produced the event.
type ActorRef struct {
	UserID         uuid.UUID `json:"userId"`
	OrganizationID uuid.UUID `json:"organizationId"`
	Role           string    `json:"role,omitempty"`
}

// PayloadEnvelope is what outbox_events.payload holds and what Pub/Sub
// subscribers receive. EventID equals the outbox row id.
type PayloadEnvelope struct {
	Version    int             `json:"version"`
	EventID    string          `json:"eventId"`
	EventType  string          `json:"eventType,omitempty"`
	OccurredAt time.Time       `json:"occurredAt"`
	Actor      *ActorRef       `json:"actor,omitempty"`
	Data       json.RawMessage `json:"data"`
}

// DecodeData unmarshals the event data into dst.
func (e PayloadEnvelope) DecodeData(dst any) error {
	if len(e.Data) == 0 {
		return fmt.Errorf("event %s has no data", e.EventID)
	}
	return json.Unmarshal(e.Data, dst)
}
