package game

import (
	"testing"

	"github.com/qninhdt/crew-dialogue/server/internal/interest"
	"github.com/qninhdt/crew-dialogue/server/internal/urgency"
)

func TestUnmarshalEvent(t *testing.T) {
	data := []byte(`{
		"player_id": "p1",
		"type": "tool_wear",
		"quantity_id": "pick",
		"quantity_kind": "tool",
		"subject_name": "pickaxe",
		"fraction": 0.18,
		"location": "the north shaft"
	}`)

	req, err := UnmarshalEvent(data)
	if err != nil {
		t.Fatalf("UnmarshalEvent failed: %v", err)
	}
	if req.Fraction == nil || *req.Fraction != 0.18 {
		t.Errorf("Expected fraction 0.18, got %v", req.Fraction)
	}
	if req.SubjectName != "pickaxe" || req.Location != "the north shaft" {
		t.Errorf("Unexpected world fields: %+v", req.World)
	}

	ev := req.GameEvent()
	if ev.Type != interest.EventToolWear || ev.QuantityKind != urgency.KindTool || ev.QuantityID != "pick" {
		t.Errorf("Unexpected event: %+v", ev)
	}
}

func TestUnmarshalEventErrors(t *testing.T) {
	cases := map[string]string{
		"malformed":       `{`,
		"missing player":  `{"type": "idle"}`,
		"unknown type":    `{"player_id": "p1", "type": "earthquake"}`,
		"unknown kind":    `{"player_id": "p1", "type": "tool_wear", "quantity_id": "x", "quantity_kind": "potion"}`,
		"kind without id": `{"player_id": "p1", "type": "tool_wear", "quantity_kind": "tool"}`,
	}
	for name, data := range cases {
		if _, err := UnmarshalEvent([]byte(data)); err == nil {
			t.Errorf("%s: expected error", name)
		}
	}
}
