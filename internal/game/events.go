package game

import (
	"encoding/json"
	"fmt"

	"github.com/qninhdt/crew-dialogue/server/internal/dialogue"
	"github.com/qninhdt/crew-dialogue/server/internal/interest"
	"github.com/qninhdt/crew-dialogue/server/internal/urgency"
)

// EventRequest is the wire form of an event offered to a crew member
type EventRequest struct {
	PlayerID     string       `json:"player_id"`
	Type         string       `json:"type"`
	QuantityID   string       `json:"quantity_id,omitempty"`
	QuantityKind urgency.Kind `json:"quantity_kind,omitempty"`
	Severity     float64      `json:"severity,omitempty"`
	World
}

// UnmarshalEvent decodes and validates an event request
func UnmarshalEvent(data []byte) (*EventRequest, error) {
	var req EventRequest
	if err := json.Unmarshal(data, &req); err != nil {
		return nil, err
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}
	return &req, nil
}

// Validate checks the request fields
func (r *EventRequest) Validate() error {
	if r.PlayerID == "" {
		return fmt.Errorf("player_id is required")
	}
	if _, err := interest.ParseEventType(r.Type); err != nil {
		return err
	}
	switch r.QuantityKind {
	case "", urgency.KindResource, urgency.KindTool:
	default:
		return fmt.Errorf("unknown quantity kind: %s", r.QuantityKind)
	}
	if r.QuantityKind != "" && r.QuantityID == "" {
		return fmt.Errorf("quantity_kind requires quantity_id")
	}
	return nil
}

// GameEvent converts the request into the event handed to the orchestrator
func (r *EventRequest) GameEvent() dialogue.GameEvent {
	return dialogue.GameEvent{
		Type:         interest.EventType(r.Type),
		QuantityID:   r.QuantityID,
		QuantityKind: r.QuantityKind,
		Severity:     r.Severity,
	}
}
