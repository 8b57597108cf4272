package outbox

import (
	"encoding/json"

	"github.com/JanselSanchez/bot-suite-sub000/services/booking-service/internal/notify"
)

// Event is the envelope written to the outbox table in the same transaction
// as the booking mutation it describes. Topic is resolved at insert time and
// stored on the row: the outbox table is drained by more than one publisher,
// and they must all route a claimed row identically.
type Event struct {
	AggregateType string
	AggregateID   string
	EventType     string
	Topic         string
	Payload       []byte
}

// FromNotification wraps a notification event for the outbox. aggregateID is
// the booking id, so all events for one booking land on the same partition.
func FromNotification(evt notify.Event, aggregateID string) (Event, error) {
	payload, err := json.Marshal(evt)
	if err != nil {
		return Event{}, err
	}
	return Event{
		AggregateType: "booking",
		AggregateID:   aggregateID,
		EventType:     evt.Event,
		Topic:         notify.Topic(evt.Event),
		Payload:       payload,
	}, nil
}
