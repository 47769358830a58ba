package feature

import (
	"fmt"
	"strings"

	"github.com/goccy/go-json"
)

// Event is a holiday or plant shutdown indicator column. It is 1 on the days the event is
// active and 0 otherwise.
type Event struct {
	Name string `json:"name"`
}

// NewEvent names an indicator column, e.g. a holiday from the calendar
func NewEvent(name string) *Event {
	return &Event{name}
}

// String is the column name used as the coefficient key
func (e Event) String() string {
	return fmt.Sprintf("event_%s", e.Name)
}

// Get looks up the name label
func (e Event) Get(label string) (string, bool) {
	switch strings.ToLower(label) {
	case "name":
		return e.Name, true
	}
	return "", false
}

// Type is always FeatureTypeEvent
func (e Event) Type() FeatureType {
	return FeatureTypeEvent
}

// Decode flattens the event into labels for the saved model
func (e Event) Decode() map[string]string {
	res := make(map[string]string)
	res["name"] = e.Name
	return res
}

// UnmarshalJSON restores an event from its saved labels
func (e *Event) UnmarshalJSON(data []byte) error {
	var labelStr struct {
		Name string `json:"name"`
	}
	err := json.Unmarshal(data, &labelStr)
	if err != nil {
		return err
	}
	e.Name = labelStr.Name
	return nil
}
