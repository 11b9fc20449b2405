package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/qninhdt/crew-dialogue/server/internal/db"
	mw "github.com/qninhdt/crew-dialogue/server/internal/middleware"
	"github.com/qninhdt/crew-dialogue/server/internal/templates"
)

const testSecret = "api-test-secret-0123456789"

type apiResponse struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
}

type testEnv struct {
	t      *testing.T
	db     *db.DB
	server *Server
}

// createTestServer creates a server over a temp-file database
func createTestServer(t *testing.T) *testEnv {
	t.Helper()
	database, err := db.NewDB(filepath.Join(t.TempDir(), "api.db"))
	if err != nil {
		t.Fatalf("Failed to create database: %v", err)
	}
	t.Cleanup(func() { database.Close() })

	env := &testEnv{t: t, db: database}
	env.server = env.newServer()
	return env
}

// newServer builds a fresh server over the same database, as after a restart
func (e *testEnv) newServer() *Server {
	e.t.Helper()
	lib, err := templates.Default()
	if err != nil {
		e.t.Fatalf("Failed to load corpus: %v", err)
	}
	auth, err := mw.NewAuthenticator(testSecret, time.Hour)
	if err != nil {
		e.t.Fatalf("Failed to create authenticator: %v", err)
	}
	return NewServer(e.db, lib, auth, Config{RequestsPerSecond: 10000, Burst: 10000})
}

func (e *testEnv) do(method, path, token string, body interface{}) (int, apiResponse) {
	e.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			e.t.Fatalf("Failed to encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.server.ServeHTTP(rec, req)

	var resp apiResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		e.t.Fatalf("Failed to decode response %q: %v", rec.Body.String(), err)
	}
	return rec.Code, resp
}

func decodeData(t *testing.T, resp apiResponse, v interface{}) {
	t.Helper()
	if err := json.Unmarshal(resp.Data, v); err != nil {
		t.Fatalf("Failed to decode data %s: %v", resp.Data, err)
	}
}

// createSession creates a session with player p1 "Steve" and returns its ID
// and the owner's token
func (e *testEnv) createSession() (string, string) {
	e.t.Helper()
	status, resp := e.do(http.MethodPost, "/api/sessions", "", map[string]interface{}{
		"players": []map[string]string{{"id": "p1", "name": "Steve"}},
	})
	if status != http.StatusCreated {
		e.t.Fatalf("Expected 201, got %d: %s", status, resp.Error)
	}
	var data struct {
		Session struct {
			ID string `json:"id"`
		} `json:"session"`
		Token string `json:"token"`
	}
	decodeData(e.t, resp, &data)
	return data.Session.ID, data.Token
}

// addExcavator spawns character c1, an excavator with low humor
func (e *testEnv) addExcavator(sessionID, token string) {
	e.t.Helper()
	status, resp := e.do(http.MethodPost, "/api/sessions/"+sessionID+"/characters", token, map[string]interface{}{
		"id":             "c1",
		"name":           "Mace",
		"specialization": "excavation",
		"traits": map[string]float64{
			"openness":            0.5,
			"conscientiousness":   0.5,
			"extraversion":        0.5,
			"agreeableness":       0.5,
			"emotional_stability": 0.5,
		},
		"humor_affinity": 0.2,
	})
	if status != http.StatusCreated {
		e.t.Fatalf("Expected 201, got %d: %s", status, resp.Error)
	}
}
