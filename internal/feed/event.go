package feed

import (
	"encoding/json"
	"time"
)

type Kind string

const (
	KindDayComplete Kind = "day_complete"
	KindCityUpdate  Kind = "city_update"
	KindChat        Kind = "chat"
)

func (k Kind) Valid() bool {
	switch k {
	case KindDayComplete, KindCityUpdate, KindChat:
		return true
	}
	return false
}

// Event is one message on a city's stream. Data holds the kind-specific
// payload as JSON so it can cross the websocket unchanged.
type Event struct {
	Kind   Kind            `json:"type"`
	CityID string          `json:"city_id"`
	At     time.Time       `json:"at"`
	Data   json.RawMessage `json:"data"`
}

func NewEvent(kind Kind, cityID string, data any) (Event, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return Event{}, err
	}
	return Event{Kind: kind, CityID: cityID, At: time.Now().UTC(), Data: raw}, nil
}

// Decode unmarshals the payload into v.
func (e Event) Decode(v any) error {
	return json.Unmarshal(e.Data, v)
}
