package pill

import (
	"time"

	"github.com/google/uuid"
)

// EventType names a pipeline event.
type EventType string

const (
	EventIdentified EventType = "pill.identified"
	EventExplained  EventType = "pill.explained"
	EventCorrected  EventType = "pill.corrected"
)

// Event is emitted after a pipeline operation completes.
type Event struct {
	ID            string    `json:"event_id"`
	Type          EventType `json:"event_type"`
	OccurredAt    time.Time `json:"occurred_at"`
	ImprintNumber string    `json:"imprint_number,omitempty"`
	GenericName   string    `json:"generic_name,omitempty"`
	AlternateName string    `json:"alternate_name,omitempty"`
	CacheHit      bool      `json:"cache_hit"`
	Stages        []Stage   `json:"stages,omitempty"`
}

// NewEvent stamps a fresh event id and time.
func NewEvent(t EventType, imprint, genericName string) Event {
	return Event{
		ID:            uuid.New().String(),
		Type:          t,
		OccurredAt:    time.Now().UTC(),
		ImprintNumber: imprint,
		GenericName:   genericName,
	}
}

// Key is the partition key: events for one pill stay ordered.
func (e Event) Key() string {
	return CacheKey(e.ImprintNumber, e.GenericName)
}

//Personal.AI order the ending
