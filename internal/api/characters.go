package api

import (
	"encoding/json"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/qninhdt/crew-dialogue/server/internal/game"
	"github.com/qninhdt/crew-dialogue/server/internal/observability"
	"github.com/qninhdt/crew-dialogue/server/internal/relationship"
	"github.com/qninhdt/crew-dialogue/server/internal/validation"
)

const maxHistoryLimit = 500

// addCharacter spawns a crew member. A missing ID is generated.
func (s *Server) addCharacter(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.sessionOrError(w, r)
	if !ok {
		return
	}

	var def game.CharacterDef
	if err := json.NewDecoder(r.Body).Decode(&def); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if def.ID == "" {
		def.ID = uuid.New().String()
	}
	if err := validation.ValidateCharacterID(def.ID); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid character ID")
		return
	}
	if err := validation.ValidateName(def.Name); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	info, err := sess.AddCharacter(def)
	if err != nil {
		writeGameError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, Response{
		Success: true,
		Data:    info,
	})
}

// listCharacters returns the crew in spawn order
func (s *Server) listCharacters(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.sessionOrError(w, r)
	if !ok {
		return
	}

	writeJSON(w, http.StatusOK, Response{
		Success: true,
		Data:    sess.Characters(),
	})
}

// getCharacter returns one crew member with its tracked quantities
func (s *Server) getCharacter(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.sessionOrError(w, r)
	if !ok {
		return
	}

	info, err := sess.Character(chi.URLParam(r, "cid"))
	if err != nil {
		writeGameError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, Response{
		Success: true,
		Data:    info,
	})
}

// handleEvent offers a world event to a crew member. The response carries the
// line the character chose to speak, or none.
func (s *Server) handleEvent(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.sessionOrError(w, r)
	if !ok {
		return
	}
	characterID := chi.URLParam(r, "cid")

	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	req, err := game.UnmarshalEvent(body)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := validateEvent(req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	_, span := s.tracer.Start(r.Context(), "crew.handle_event", trace.WithAttributes(
		observability.AttrSession.String(sess.ID),
		observability.AttrCharacter.String(characterID),
		observability.AttrEvent.String(req.Type),
	))
	defer span.End()

	u, err := sess.HandleEvent(characterID, req.PlayerID, req.GameEvent(), req.World)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		writeGameError(w, err)
		return
	}
	span.SetAttributes(observability.AttrEmitted.Bool(u != nil))
	if u != nil {
		span.SetAttributes(observability.AttrTemplate.String(u.TemplateID))
	}

	writeJSON(w, http.StatusOK, Response{
		Success: true,
		Data: map[string]interface{}{
			"spoke":     u != nil,
			"utterance": u,
		},
	})
}

func validateEvent(req *game.EventRequest) error {
	if err := validation.ValidatePlayerID(req.PlayerID); err != nil {
		return err
	}
	if req.QuantityID != "" {
		if err := validation.ValidateQuantityID(req.QuantityID); err != nil {
			return err
		}
	}
	if req.Fraction != nil {
		if err := validation.ValidateFraction(*req.Fraction); err != nil {
			return err
		}
	}
	for _, name := range []string{req.Location, req.SubjectName} {
		if name == "" {
			continue
		}
		if err := validation.ValidateName(name); err != nil {
			return err
		}
	}
	return nil
}

// applyMilestone applies a relationship milestone between a character and
// a player
func (s *Server) applyMilestone(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.sessionOrError(w, r)
	if !ok {
		return
	}

	var req struct {
		PlayerID  string `json:"player_id"`
		Kind      string `json:"kind"`
		Magnitude *int   `json:"magnitude"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := validation.ValidatePlayerID(req.PlayerID); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid player ID")
		return
	}
	if err := validation.ValidateMilestoneKind(req.Kind); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.Magnitude != nil {
		if err := validation.ValidateMagnitude(*req.Magnitude); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
	}

	tr, err := sess.ApplyMilestone(chi.URLParam(r, "cid"), req.PlayerID, relationship.MilestoneKind(req.Kind), req.Magnitude)
	if err != nil {
		writeGameError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, Response{
		Success: true,
		Data:    tr,
	})
}

// getRelationship returns the state of a character/player pair
func (s *Server) getRelationship(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.sessionOrError(w, r)
	if !ok {
		return
	}

	playerID := chi.URLParam(r, "pid")
	if err := validation.ValidatePlayerID(playerID); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid player ID")
		return
	}

	info, err := sess.Relationship(chi.URLParam(r, "cid"), playerID)
	if err != nil {
		writeGameError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, Response{
		Success: true,
		Data:    info,
	})
}

// replenish refills a tracked resource or tool
func (s *Server) replenish(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.sessionOrError(w, r)
	if !ok {
		return
	}

	quantityID := chi.URLParam(r, "qid")
	if err := validation.ValidateQuantityID(quantityID); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid quantity ID")
		return
	}

	var req struct {
		Amount float64 `json:"amount"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := validation.ValidateFraction(req.Amount); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	assessment, err := sess.Replenish(chi.URLParam(r, "cid"), quantityID, req.Amount)
	if err != nil {
		writeGameError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, Response{
		Success: true,
		Data:    assessment,
	})
}

// forgetQuantity stops tracking a resource or tool
func (s *Server) forgetQuantity(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.sessionOrError(w, r)
	if !ok {
		return
	}

	quantityID := chi.URLParam(r, "qid")
	if err := validation.ValidateQuantityID(quantityID); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid quantity ID")
		return
	}

	if err := sess.Forget(chi.URLParam(r, "cid"), quantityID); err != nil {
		writeGameError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, Response{
		Success: true,
		Data:    "Quantity forgotten",
	})
}

// getHistory returns the character's logged lines, oldest first
func (s *Server) getHistory(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.sessionOrError(w, r)
	if !ok {
		return
	}
	characterID := chi.URLParam(r, "cid")
	if _, err := sess.Character(characterID); err != nil {
		writeGameError(w, err)
		return
	}

	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > maxHistoryLimit {
			writeError(w, http.StatusBadRequest, "limit must be between 1 and 500")
			return
		}
		limit = n
	}

	history, err := s.db.GetHistory(sess.ID, characterID, limit)
	if err != nil {
		s.log.Error("failed to load history", "session", sess.ID, "character", characterID, "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to load history")
		return
	}

	writeJSON(w, http.StatusOK, Response{
		Success: true,
		Data:    history,
	})
}

// getDecisions returns the character's recent speak-or-skip decisions with the
// running totals
func (s *Server) getDecisions(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.sessionOrError(w, r)
	if !ok {
		return
	}
	characterID := chi.URLParam(r, "cid")
	decisions, err := sess.Decisions(characterID)
	if err != nil {
		writeGameError(w, err)
		return
	}
	info, err := sess.Character(characterID)
	if err != nil {
		writeGameError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, Response{
		Success: true,
		Data: map[string]interface{}{
			"decisions": decisions,
			"stats":     info.Stats,
		},
	})
}
