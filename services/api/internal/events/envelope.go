package events

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/estatehub/marketplace/services/api/internal/app"
)

const (
	EventTypeStatusChanged = "listing.status_changed"
	DefaultSubject         = "listings.status_changed"
)

// Envelope wraps every published payload so consumers can deduplicate on
// EventID.
type Envelope struct {
	EventID    string                 `json:"event_id"`
	EventType  string                 `json:"event_type"`
	OccurredAt time.Time              `json:"occurred_at"`
	Data       app.StatusChangedEvent `json:"data"`
}

func encodeStatusChanged(event app.StatusChangedEvent) ([]byte, error) {
	payload, err := json.Marshal(Envelope{
		EventID:    uuid.NewString(),
		EventType:  EventTypeStatusChanged,
		OccurredAt: event.OccurredAt,
		Data:       event,
	})
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", EventTypeStatusChanged, err)
	}
	return payload, nil
}
