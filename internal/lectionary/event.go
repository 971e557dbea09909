package lectionary

import (
	"encoding/json"
	"fmt"
)

const (
	kindReadings  = "readings"
	kindHeartbeat = "heartbeat"
)

// event is the JSON envelope published by the readings feed.
type event struct {
	Kind     string `json:"kind"`
	Date     string `json:"date,omitempty"`
	Source   string `json:"source,omitempty"`
	Markdown string `json:"markdown,omitempty"`
}

func parseEvent(data []byte) (*event, error) {
	var ev event
	if err := json.Unmarshal(data, &ev); err != nil {
		return nil, fmt.Errorf("unmarshal event: %w", err)
	}
	if ev.Kind == "" {
		return nil, fmt.Errorf("event without kind")
	}
	if ev.Kind == kindReadings && ev.Markdown == "" {
		return nil, fmt.Errorf("readings event for %q without markdown", ev.Date)
	}
	return &ev, nil
}
