package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/qninhdt/crew-dialogue/server/internal/game"
	mw "github.com/qninhdt/crew-dialogue/server/internal/middleware"
	"github.com/qninhdt/crew-dialogue/server/internal/observability"
	"github.com/qninhdt/crew-dialogue/server/internal/validation"
)

type playerRequest struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

func (p playerRequest) validate() error {
	if err := validation.ValidatePlayerID(p.ID); err != nil {
		return err
	}
	return validation.ValidateName(p.Name)
}

// createSession creates a new session. Callers without a token become a new
// user and receive one.
func (s *Server) createSession(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Players []playerRequest `json:"players"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	for _, p := range req.Players {
		if err := p.validate(); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
	}

	userID := ""
	if token := mw.TokenFromRequest(r); token != "" {
		if subject, err := s.auth.ParseToken(token); err == nil {
			userID = subject
		}
	}
	if userID == "" {
		userID = uuid.New().String()
	}

	// Server-side session ID
	sessionID := uuid.New().String()
	sess := game.NewSession(sessionID, s.library, s.sessionOptions(sessionID))
	for _, p := range req.Players {
		if err := sess.AddPlayer(game.Player{ID: p.ID, Name: p.Name}); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
	}

	if err := s.db.SaveSessionOwnership(sessionID, userID); err != nil {
		s.log.Error("failed to save ownership", "session", sessionID, "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to create session")
		return
	}

	token, err := s.auth.IssueToken(userID)
	if err != nil {
		s.log.Error("failed to issue token", "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to create session")
		return
	}

	s.sessionsMu.Lock()
	s.sessions[sessionID] = sess
	s.sessionsMu.Unlock()

	s.log.Info("session created", "session", sessionID, "user_id", userID)
	writeJSON(w, http.StatusCreated, Response{
		Success: true,
		Data: map[string]interface{}{
			"session": sess.Info(),
			"token":   token,
			"user_id": userID,
		},
	})
}

// listSessions lists all sessions owned by the user
func (s *Server) listSessions(w http.ResponseWriter, r *http.Request) {
	sessionIDs, err := s.db.GetUserSessions(mw.UserID(r.Context()))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list sessions")
		return
	}

	writeJSON(w, http.StatusOK, Response{
		Success: true,
		Data:    sessionIDs,
	})
}

// getSession returns the session summary and crew
func (s *Server) getSession(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.sessionOrError(w, r)
	if !ok {
		return
	}

	writeJSON(w, http.StatusOK, Response{
		Success: true,
		Data: map[string]interface{}{
			"info": sess.Info(),
			"crew": sess.Characters(),
		},
	})
}

// deleteSession drops a session from memory and the store
func (s *Server) deleteSession(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "id")

	s.sessionsMu.Lock()
	delete(s.sessions, sessionID)
	s.sessionsMu.Unlock()

	if err := s.db.DeleteSession(sessionID); err != nil {
		s.log.Error("failed to delete session", "session", sessionID, "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to delete session")
		return
	}

	writeJSON(w, http.StatusOK, Response{
		Success: true,
		Data:    "Session deleted",
	})
}

// addPlayer registers or renames a player
func (s *Server) addPlayer(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.sessionOrError(w, r)
	if !ok {
		return
	}

	var req playerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := req.validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	player := game.Player{ID: req.ID, Name: req.Name}
	if err := sess.AddPlayer(player); err != nil {
		writeGameError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, Response{
		Success: true,
		Data:    player,
	})
}

// advance moves the session clock and returns every line spoken meanwhile
func (s *Server) advance(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.sessionOrError(w, r)
	if !ok {
		return
	}

	var req struct {
		Ticks    int64  `json:"ticks"`
		PlayerID string `json:"player_id"`
		Location string `json:"location"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := validation.ValidateTicks(req.Ticks); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := validation.ValidatePlayerID(req.PlayerID); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid player ID")
		return
	}

	_, span := s.tracer.Start(r.Context(), "crew.advance", trace.WithAttributes(
		observability.AttrSession.String(sess.ID),
		attribute.Int64("crew.ticks", req.Ticks),
	))
	defer span.End()

	lines, err := sess.Advance(req.Ticks, req.PlayerID, req.Location)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		writeGameError(w, err)
		return
	}
	span.SetAttributes(attribute.Int("crew.lines", len(lines)))

	writeJSON(w, http.StatusOK, Response{
		Success: true,
		Data: map[string]interface{}{
			"tick":       sess.CurrentTick(),
			"utterances": nonNil(lines),
		},
	})
}

// saveSession persists the crew and every relationship
func (s *Server) saveSession(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.sessionOrError(w, r)
	if !ok {
		return
	}

	_, span := s.tracer.Start(r.Context(), "crew.save", trace.WithAttributes(
		observability.AttrSession.String(sess.ID),
	))
	defer span.End()

	rec := sess.Record()
	if err := s.db.SaveSession(rec); err != nil {
		span.SetStatus(codes.Error, err.Error())
		s.log.Error("failed to save session", "session", sess.ID, "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to save session")
		return
	}

	writeJSON(w, http.StatusOK, Response{
		Success: true,
		Data: map[string]interface{}{
			"tick":          rec.Tick,
			"characters":    len(rec.Characters),
			"relationships": len(rec.Relationships),
		},
	})
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
