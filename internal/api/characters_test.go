package api

import (
	"net/http"
	"testing"
)

type utteranceData struct {
	CharacterID string `json:"character_id"`
	Category    string `json:"category"`
	Text        string `json:"text"`
	Tick        int64  `json:"tick"`
	Urgency     string `json:"urgency"`
	Stage       string `json:"stage"`
}

func toolWearEvent(fraction float64) map[string]interface{} {
	return map[string]interface{}{
		"player_id":     "p1",
		"type":          "tool_wear",
		"quantity_id":   "pickaxe-1",
		"quantity_kind": "tool",
		"subject_name":  "pickaxe",
		"location":      "north shaft",
		"fraction":      fraction,
	}
}

func TestHandleEventSpeaks(t *testing.T) {
	env := createTestServer(t)
	sessionID, token := env.createSession()
	env.addExcavator(sessionID, token)

	path := "/api/sessions/" + sessionID + "/characters/c1/events"
	status, resp := env.do(http.MethodPost, path, token, toolWearEvent(0.15))
	if status != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", status, resp.Error)
	}
	var data struct {
		Spoke     bool           `json:"spoke"`
		Utterance *utteranceData `json:"utterance"`
	}
	decodeData(t, resp, &data)
	if !data.Spoke || data.Utterance == nil {
		t.Fatal("Expected the excavator to speak about a critical tool")
	}
	if data.Utterance.Category != "warning" {
		t.Errorf("Expected warning, got %s", data.Utterance.Category)
	}
	if data.Utterance.Urgency != "critical" {
		t.Errorf("Expected critical urgency, got %s", data.Utterance.Urgency)
	}

	// Same stage again is not due
	status, resp = env.do(http.MethodPost, path, token, toolWearEvent(0.14))
	if status != http.StatusOK {
		t.Fatalf("Expected 200, got %d", status)
	}
	decodeData(t, resp, &data)
	if data.Spoke {
		t.Error("Expected no repeat report within the same stage")
	}
}

func TestHandleEventErrors(t *testing.T) {
	env := createTestServer(t)
	sessionID, token := env.createSession()
	env.addExcavator(sessionID, token)

	tests := []struct {
		name      string
		character string
		body      map[string]interface{}
		status    int
	}{
		{"unknown character", "c9", toolWearEvent(0.5), http.StatusNotFound},
		{"unknown player", "c1", map[string]interface{}{"player_id": "p9", "type": "danger"}, http.StatusNotFound},
		{"unknown event type", "c1", map[string]interface{}{"player_id": "p1", "type": "earthquake"}, http.StatusBadRequest},
		{"fraction out of range", "c1", toolWearEvent(1.5), http.StatusBadRequest},
		{"missing player", "c1", map[string]interface{}{"type": "danger"}, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := "/api/sessions/" + sessionID + "/characters/" + tt.character + "/events"
			status, _ := env.do(http.MethodPost, path, token, tt.body)
			if status != tt.status {
				t.Errorf("Expected %d, got %d", tt.status, status)
			}
		})
	}
}

func TestAddCharacterErrors(t *testing.T) {
	env := createTestServer(t)
	sessionID, token := env.createSession()
	env.addExcavator(sessionID, token)
	path := "/api/sessions/" + sessionID + "/characters"

	status, _ := env.do(http.MethodPost, path, token, map[string]interface{}{
		"id": "c1", "name": "Again", "specialization": "excavation",
	})
	if status != http.StatusConflict {
		t.Errorf("Expected 409 for duplicate, got %d", status)
	}

	status, _ = env.do(http.MethodPost, path, token, map[string]interface{}{
		"name": "Nova", "specialization": "astrology",
	})
	if status != http.StatusBadRequest {
		t.Errorf("Expected 400 for unknown specialization, got %d", status)
	}

	status, resp := env.do(http.MethodPost, path, token, map[string]interface{}{
		"name": "Nova", "specialization": "exploration",
	})
	if status != http.StatusCreated {
		t.Fatalf("Expected 201, got %d: %s", status, resp.Error)
	}
	var info struct {
		ID string `json:"id"`
	}
	decodeData(t, resp, &info)
	if info.ID == "" {
		t.Error("Expected generated character ID")
	}
}

func TestMilestoneAndRelationship(t *testing.T) {
	env := createTestServer(t)
	sessionID, token := env.createSession()
	env.addExcavator(sessionID, token)
	base := "/api/sessions/" + sessionID + "/characters/c1"

	status, resp := env.do(http.MethodPost, base+"/milestones", token, map[string]interface{}{
		"player_id": "p1", "kind": "foreman_admits_fault",
	})
	if status != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", status, resp.Error)
	}
	var tr struct {
		RapportAfter int    `json:"rapport_after"`
		After        string `json:"stage_after"`
	}
	decodeData(t, resp, &tr)
	if tr.RapportAfter != 25 {
		t.Errorf("Expected rapport 25, got %d", tr.RapportAfter)
	}

	status, resp = env.do(http.MethodPost, base+"/milestones", token, map[string]interface{}{
		"player_id": "p1", "kind": "shared_success", "magnitude": 50,
	})
	if status != http.StatusOK {
		t.Fatalf("Expected 200, got %d", status)
	}
	decodeData(t, resp, &tr)
	if tr.RapportAfter != 30 || tr.After != "acquaintance" {
		t.Errorf("Expected clamped +5 to 30 (acquaintance), got %d (%s)", tr.RapportAfter, tr.After)
	}

	status, resp = env.do(http.MethodGet, base+"/relationships/p1", token, nil)
	if status != http.StatusOK {
		t.Fatalf("Expected 200, got %d", status)
	}
	var rel struct {
		Rapport int    `json:"rapport"`
		Stage   string `json:"stage"`
		Log     []struct {
			Kind string `json:"kind"`
		} `json:"log"`
	}
	decodeData(t, resp, &rel)
	if rel.Rapport != 30 || rel.Stage != "acquaintance" {
		t.Errorf("Expected 30/acquaintance, got %d/%s", rel.Rapport, rel.Stage)
	}
	if len(rel.Log) != 2 {
		t.Errorf("Expected 2 log entries, got %d", len(rel.Log))
	}

	status, _ = env.do(http.MethodPost, base+"/milestones", token, map[string]interface{}{
		"player_id": "p1", "kind": "Bad Kind",
	})
	if status != http.StatusBadRequest {
		t.Errorf("Expected 400 for malformed kind, got %d", status)
	}
}

func TestTickSpeaksTransitionLine(t *testing.T) {
	env := createTestServer(t)
	sessionID, token := env.createSession()
	env.addExcavator(sessionID, token)

	env.do(http.MethodPost, "/api/sessions/"+sessionID+"/characters/c1/milestones", token, map[string]interface{}{
		"player_id": "p1", "kind": "foreman_admits_fault", "magnitude": 20,
	})

	status, resp := env.do(http.MethodPost, "/api/sessions/"+sessionID+"/tick", token, map[string]interface{}{
		"ticks": 3, "player_id": "p1", "location": "camp",
	})
	if status != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", status, resp.Error)
	}
	var data struct {
		Tick       int64           `json:"tick"`
		Utterances []utteranceData `json:"utterances"`
	}
	decodeData(t, resp, &data)
	if data.Tick != 3 {
		t.Errorf("Expected tick 3, got %d", data.Tick)
	}
	if len(data.Utterances) != 1 || data.Utterances[0].Category != "milestone" {
		t.Fatalf("Expected one milestone line, got %+v", data.Utterances)
	}
	if data.Utterances[0].Stage != "acquaintance" {
		t.Errorf("Expected acquaintance stage line, got %s", data.Utterances[0].Stage)
	}

	status, _ = env.do(http.MethodPost, "/api/sessions/"+sessionID+"/tick", token, map[string]interface{}{
		"ticks": 0, "player_id": "p1",
	})
	if status != http.StatusBadRequest {
		t.Errorf("Expected 400 for zero ticks, got %d", status)
	}
}

func TestQuantityEndpoints(t *testing.T) {
	env := createTestServer(t)
	sessionID, token := env.createSession()
	env.addExcavator(sessionID, token)
	base := "/api/sessions/" + sessionID + "/characters/c1"

	env.do(http.MethodPost, base+"/events", token, toolWearEvent(0.15))

	status, resp := env.do(http.MethodPost, base+"/quantities/pickaxe-1/replenish", token, map[string]interface{}{"amount": 0.8})
	if status != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", status, resp.Error)
	}
	var a struct {
		Stage    string  `json:"stage"`
		Fraction float64 `json:"fraction"`
	}
	decodeData(t, resp, &a)
	if a.Stage != "fresh" {
		t.Errorf("Expected fresh after replenish, got %s (%v)", a.Stage, a.Fraction)
	}

	status, _ = env.do(http.MethodPost, base+"/quantities/unknown/replenish", token, map[string]interface{}{"amount": 0.5})
	if status != http.StatusNotFound {
		t.Errorf("Expected 404 for unknown quantity, got %d", status)
	}

	status, _ = env.do(http.MethodDelete, base+"/quantities/pickaxe-1", token, nil)
	if status != http.StatusOK {
		t.Errorf("Expected 200 on forget, got %d", status)
	}
	status, _ = env.do(http.MethodDelete, base+"/quantities/pickaxe-1", token, nil)
	if status != http.StatusNotFound {
		t.Errorf("Expected 404 on second forget, got %d", status)
	}
}

func TestHistoryAndRestore(t *testing.T) {
	env := createTestServer(t)
	sessionID, token := env.createSession()
	env.addExcavator(sessionID, token)
	base := "/api/sessions/" + sessionID + "/characters/c1"

	env.do(http.MethodPost, base+"/events", token, toolWearEvent(0.15))
	env.do(http.MethodPost, base+"/milestones", token, map[string]interface{}{
		"player_id": "p1", "kind": "defended_player",
	})

	status, resp := env.do(http.MethodGet, base+"/history", token, nil)
	if status != http.StatusOK {
		t.Fatalf("Expected 200, got %d", status)
	}
	var history []utteranceData
	decodeData(t, resp, &history)
	if len(history) != 1 || history[0].Category != "warning" {
		t.Fatalf("Expected one logged warning, got %+v", history)
	}

	status, _ = env.do(http.MethodGet, base+"/history?limit=0", token, nil)
	if status != http.StatusBadRequest {
		t.Errorf("Expected 400 for limit 0, got %d", status)
	}

	status, resp = env.do(http.MethodPost, "/api/sessions/"+sessionID+"/save", token, nil)
	if status != http.StatusOK {
		t.Fatalf("Expected 200 on save, got %d: %s", status, resp.Error)
	}

	// A fresh server has no live sessions and restores from the store
	env.server = env.newServer()
	status, resp = env.do(http.MethodGet, base+"/relationships/p1", token, nil)
	if status != http.StatusOK {
		t.Fatalf("Expected 200 after restore, got %d: %s", status, resp.Error)
	}
	var rel struct {
		Rapport int `json:"rapport"`
	}
	decodeData(t, resp, &rel)
	if rel.Rapport != 20 {
		t.Errorf("Expected restored rapport 20, got %d", rel.Rapport)
	}
}

func TestUnsavedSessionNotFoundAfterRestart(t *testing.T) {
	env := createTestServer(t)
	sessionID, token := env.createSession()

	env.server = env.newServer()
	status, _ := env.do(http.MethodGet, "/api/sessions/"+sessionID, token, nil)
	if status != http.StatusNotFound {
		t.Errorf("Expected 404 for unsaved session, got %d", status)
	}
}

func TestDecisionsEndpoint(t *testing.T) {
	env := createTestServer(t)
	sessionID, token := env.createSession()
	env.addExcavator(sessionID, token)
	base := "/api/sessions/" + sessionID + "/characters/c1"

	env.do(http.MethodPost, base+"/events", token, toolWearEvent(0.15))
	env.do(http.MethodPost, base+"/events", token, toolWearEvent(0.14))

	status, resp := env.do(http.MethodGet, base+"/decisions", token, nil)
	if status != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", status, resp.Error)
	}
	var data struct {
		Decisions []struct {
			Spoke  bool   `json:"spoke"`
			Reason string `json:"reason"`
		} `json:"decisions"`
		Stats struct {
			Triggered   int            `json:"triggered"`
			Skipped     int            `json:"skipped"`
			SkipReasons map[string]int `json:"skip_reasons"`
			TriggerRate float64        `json:"trigger_rate"`
		} `json:"stats"`
	}
	decodeData(t, resp, &data)
	if len(data.Decisions) != 2 || !data.Decisions[0].Spoke || data.Decisions[1].Reason != "not_due" {
		t.Errorf("Expected spoke then not_due, got %+v", data.Decisions)
	}
	if data.Stats.Triggered != 1 || data.Stats.SkipReasons["not_due"] != 1 || data.Stats.TriggerRate != 0.5 {
		t.Errorf("Unexpected stats %+v", data.Stats)
	}

	status, _ = env.do(http.MethodGet, "/api/sessions/"+sessionID+"/characters/ghost/decisions", token, nil)
	if status != http.StatusNotFound {
		t.Errorf("Expected 404 for unknown character, got %d", status)
	}
}
