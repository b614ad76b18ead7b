// Package queue carries participation events over RabbitMQ: a publisher
// used by the service layer and a consumer that journals every event.
package queue

import "time"

// QueueName is the durable queue every participation event is routed to.
const QueueName = "participation.events"

// Event types.
const (
	EventRegistered     = "participation.registered"
	EventAccepted       = "participation.accepted"
	EventResultRecorded = "participation.result_recorded"
	EventCancelled      = "participation.cancelled"
)

// ParticipationEvent is published after a participation changes state. It
// carries enough for consumers to log or notify without reading storage.
type ParticipationEvent struct {
	Type        string  `json:"type"`
	MarathonID  int64   `json:"marathon_id"`
	UserID      int64   `json:"user_id"`
	ActorID     int64   `json:"actor_id"`
	RaceName    string  `json:"race_name,omitempty"`
	EntryNumber int64   `json:"entry_number"`
	TimeRecord  *string `json:"time_record,omitempty"`
	Standings   *int    `json:"standings,omitempty"`
	OccurredAt  string  `json:"occurred_at"` // RFC 3339, UTC
}

// Stamp sets OccurredAt from t.
func (e *ParticipationEvent) Stamp(t time.Time) {
	e.OccurredAt = t.UTC().Format(time.RFC3339)
}
