package api

import (
	"net/http"
	"testing"
)

func TestHealth(t *testing.T) {
	env := createTestServer(t)
	status, resp := env.do(http.MethodGet, "/api/health", "", nil)
	if status != http.StatusOK || !resp.Success {
		t.Fatalf("Expected healthy response, got %d", status)
	}
	var data map[string]int
	decodeData(t, resp, &data)
	if data["templates"] == 0 {
		t.Error("Expected templates to be loaded")
	}
}

func TestCreateSessionIssuesToken(t *testing.T) {
	env := createTestServer(t)
	sessionID, token := env.createSession()
	if sessionID == "" || token == "" {
		t.Fatal("Expected session ID and token")
	}

	status, resp := env.do(http.MethodGet, "/api/sessions", token, nil)
	if status != http.StatusOK {
		t.Fatalf("Expected 200, got %d", status)
	}
	var ids []string
	decodeData(t, resp, &ids)
	if len(ids) != 1 || ids[0] != sessionID {
		t.Errorf("Expected [%s], got %v", sessionID, ids)
	}
}

func TestCreateSessionReusesCallerIdentity(t *testing.T) {
	env := createTestServer(t)
	first, token := env.createSession()

	status, _ := env.do(http.MethodPost, "/api/sessions", token, nil)
	if status != http.StatusCreated {
		t.Fatalf("Expected 201, got %d", status)
	}

	_, resp := env.do(http.MethodGet, "/api/sessions", token, nil)
	var ids []string
	decodeData(t, resp, &ids)
	if len(ids) != 2 {
		t.Fatalf("Expected 2 sessions for the same user, got %v", ids)
	}
	found := false
	for _, id := range ids {
		if id == first {
			found = true
		}
	}
	if !found {
		t.Errorf("Expected %s among %v", first, ids)
	}
}

func TestCreateSessionRejectsBadPlayer(t *testing.T) {
	env := createTestServer(t)
	status, _ := env.do(http.MethodPost, "/api/sessions", "", map[string]interface{}{
		"players": []map[string]string{{"id": "p1", "name": "{player}"}},
	})
	if status != http.StatusBadRequest {
		t.Errorf("Expected 400, got %d", status)
	}
}

func TestProtectedEndpointsRequireToken(t *testing.T) {
	env := createTestServer(t)
	sessionID, _ := env.createSession()

	status, resp := env.do(http.MethodGet, "/api/sessions/"+sessionID, "", nil)
	if status != http.StatusUnauthorized {
		t.Errorf("Expected 401, got %d", status)
	}
	if resp.Success {
		t.Error("Expected failure envelope")
	}
}

func TestOwnershipEnforced(t *testing.T) {
	env := createTestServer(t)
	sessionID, _ := env.createSession()
	_, otherToken := env.createSession()

	status, _ := env.do(http.MethodGet, "/api/sessions/"+sessionID, otherToken, nil)
	if status != http.StatusForbidden {
		t.Errorf("Expected 403, got %d", status)
	}
}

func TestInvalidIDs(t *testing.T) {
	env := createTestServer(t)
	sessionID, token := env.createSession()

	status, _ := env.do(http.MethodGet, "/api/sessions/bad.id", token, nil)
	if status != http.StatusBadRequest {
		t.Errorf("Expected 400 for bad session ID, got %d", status)
	}

	status, _ = env.do(http.MethodGet, "/api/sessions/"+sessionID+"/characters/bad.id", token, nil)
	if status != http.StatusBadRequest {
		t.Errorf("Expected 400 for bad character ID, got %d", status)
	}
}

func TestGetSession(t *testing.T) {
	env := createTestServer(t)
	sessionID, token := env.createSession()
	env.addExcavator(sessionID, token)

	status, resp := env.do(http.MethodGet, "/api/sessions/"+sessionID, token, nil)
	if status != http.StatusOK {
		t.Fatalf("Expected 200, got %d", status)
	}
	var data struct {
		Info struct {
			CrewCount int `json:"crew_count"`
			Players   []struct {
				Name string `json:"name"`
			} `json:"players"`
		} `json:"info"`
		Crew []struct {
			ID    string `json:"id"`
			Voice string `json:"voice"`
		} `json:"crew"`
	}
	decodeData(t, resp, &data)
	if data.Info.CrewCount != 1 || len(data.Crew) != 1 || data.Crew[0].ID != "c1" {
		t.Errorf("Expected crew [c1], got %+v", data)
	}
	if data.Crew[0].Voice == "" {
		t.Error("Expected resolved voice")
	}
	if len(data.Info.Players) != 1 || data.Info.Players[0].Name != "Steve" {
		t.Errorf("Expected player Steve, got %+v", data.Info.Players)
	}
}

func TestDeleteSession(t *testing.T) {
	env := createTestServer(t)
	sessionID, token := env.createSession()

	status, _ := env.do(http.MethodDelete, "/api/sessions/"+sessionID, token, nil)
	if status != http.StatusOK {
		t.Fatalf("Expected 200, got %d", status)
	}
	status, _ = env.do(http.MethodGet, "/api/sessions/"+sessionID, token, nil)
	if status != http.StatusForbidden {
		t.Errorf("Expected 403 after delete, got %d", status)
	}
}
