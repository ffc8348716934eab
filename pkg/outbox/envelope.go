package outbox

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// ActorRef identifies who produced the event. Webhook-driven events
// carry a nil actor because the provider, not a user, initiated the
// change.
type ActorRef struct {
	UserID          uuid.UUID  `json:"userId"`
	EstablishmentID *uuid.UUID `json:"establishmentId,omitempty"`
	Role            string     `json:"role,omitempty"`
}

// PayloadEnvelope is the wire shape stored in outbox_events.payload and
// published verbatim to Pub/Sub. Data stays raw JSON so the publisher
// can forward payloads it does not understand; only consumers decode
// them. Version lets consumers absorb payload schema changes without a
// table migration.
type PayloadEnvelope struct {
	Version    int             `json:"version"`
	EventID    string          `json:"eventId"`
	OccurredAt time.Time       `json:"occurredAt"`
	Actor      *ActorRef       `json:"actor,omitempty"`
	Data       json.RawMessage `json:"data"`
}
