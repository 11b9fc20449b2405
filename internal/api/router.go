package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/qninhdt/crew-dialogue/server/internal/db"
	"github.com/qninhdt/crew-dialogue/server/internal/dialogue"
	"github.com/qninhdt/crew-dialogue/server/internal/game"
	"github.com/qninhdt/crew-dialogue/server/internal/logger"
	mw "github.com/qninhdt/crew-dialogue/server/internal/middleware"
	"github.com/qninhdt/crew-dialogue/server/internal/templates"
	"github.com/qninhdt/crew-dialogue/server/internal/validation"
)

// Config tunes the server and every session it creates
type Config struct {
	Dialogue dialogue.Config
	// InitialRapport is nil for the default starting rapport
	InitialRapport    *int
	MaxBodyBytes      int64
	RequestsPerSecond float64
	Burst             int
}

// Server handles HTTP requests
type Server struct {
	router      chi.Router
	db          *db.DB
	library     *templates.Library
	auth        *mw.Authenticator
	cfg         Config
	log         *logger.Logger
	tracer      trace.Tracer
	sessions    map[string]*game.Session
	sessionsMu  sync.RWMutex
	rateLimiter *mw.RateLimiter
}

// Option customises a server
type Option func(*Server)

// WithLogger sets the server logger
func WithLogger(l *logger.Logger) Option {
	return func(s *Server) { s.log = l }
}

// WithTracer sets the tracer used for dialogue spans
func WithTracer(t trace.Tracer) Option {
	return func(s *Server) { s.tracer = t }
}

// NewServer creates a new API server
func NewServer(database *db.DB, library *templates.Library, auth *mw.Authenticator, cfg Config, opts ...Option) *Server {
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = 1024 * 1024
	}
	s := &Server{
		router:      chi.NewRouter(),
		db:          database,
		library:     library,
		auth:        auth,
		cfg:         cfg,
		log:         logger.Nop(),
		tracer:      noop.NewTracerProvider().Tracer("crew-dialogue"),
		sessions:    make(map[string]*game.Session),
		rateLimiter: mw.NewRateLimiter(cfg.RequestsPerSecond, cfg.Burst),
	}
	for _, opt := range opts {
		opt(s)
	}

	s.setupRoutes()
	return s
}

// setupRoutes configures all API routes
func (s *Server) setupRoutes() {
	s.router.Use(middleware.RequestID)
	s.router.Use(mw.RequestLogger(s.log))
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.SetHeader("Content-Type", "application/json"))
	s.router.Use(s.rateLimiter.Middleware)
	s.router.Use(mw.SecurityHeadersMiddleware)
	s.router.Use(mw.MaxBodySizeMiddleware(s.cfg.MaxBodyBytes))

	// Public endpoints (no auth required)
	s.router.Get("/api/health", s.health)
	s.router.Post("/api/sessions", s.createSession)

	// Protected endpoints (auth required)
	s.router.Group(func(r chi.Router) {
		r.Use(s.auth.Middleware)
		r.Get("/api/sessions", s.listSessions)

		r.Route("/api/sessions/{id}", func(r chi.Router) {
			r.Use(s.sessionAccess)
			r.Get("/", s.getSession)
			r.Delete("/", s.deleteSession)
			r.Post("/players", s.addPlayer)
			r.Post("/tick", s.advance)
			r.Post("/save", s.saveSession)

			r.Post("/characters", s.addCharacter)
			r.Get("/characters", s.listCharacters)
			r.Route("/characters/{cid}", func(r chi.Router) {
				r.Use(characterIDCheck)
				r.Get("/", s.getCharacter)
				r.Post("/events", s.handleEvent)
				r.Post("/milestones", s.applyMilestone)
				r.Get("/relationships/{pid}", s.getRelationship)
				r.Post("/quantities/{qid}/replenish", s.replenish)
				r.Delete("/quantities/{qid}", s.forgetQuantity)
				r.Get("/history", s.getHistory)
				r.Get("/decisions", s.getDecisions)
			})
		})
	})
}

// ServeHTTP implements http.Handler
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Response wraps API responses
type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// writeJSON writes a JSON response
func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// writeError writes an error response (sanitized)
func writeError(w http.ResponseWriter, status int, message string) {
	if status >= 500 {
		message = "Internal server error"
	}
	writeJSON(w, status, Response{
		Success: false,
		Error:   message,
	})
}

// writeGameError maps session errors onto status codes
func writeGameError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, game.ErrUnknownCharacter):
		writeError(w, http.StatusNotFound, "Character not found")
	case errors.Is(err, game.ErrUnknownPlayer):
		writeError(w, http.StatusNotFound, "Player not found")
	case errors.Is(err, game.ErrUnknownQuantity):
		writeError(w, http.StatusNotFound, "Quantity not found")
	case errors.Is(err, game.ErrDuplicateCharacter):
		writeError(w, http.StatusConflict, "Character already exists")
	default:
		writeError(w, http.StatusBadRequest, err.Error())
	}
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, Response{
		Success: true,
		Data: map[string]interface{}{
			"corpus_version": s.library.Version(),
			"templates":      s.library.Len(),
		},
	})
}

// sessionAccess validates the session ID and verifies the caller owns it
func (s *Server) sessionAccess(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sessionID := chi.URLParam(r, "id")
		if err := validation.ValidateSessionID(sessionID); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid session ID")
			return
		}
		if !s.checkSessionOwnership(w, r, sessionID) {
			return
		}
		next.ServeHTTP(w, r)
	})
}

func characterIDCheck(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := validation.ValidateCharacterID(chi.URLParam(r, "cid")); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid character ID")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// checkSessionOwnership verifies user owns the session
func (s *Server) checkSessionOwnership(w http.ResponseWriter, r *http.Request, sessionID string) bool {
	userID := mw.UserID(r.Context())
	if userID == "" {
		writeError(w, http.StatusUnauthorized, "Missing user ID")
		return false
	}

	isOwner, err := s.db.IsSessionOwner(sessionID, userID)
	if err != nil && !errors.Is(err, db.ErrNotFound) {
		s.log.Error("ownership check failed", "session", sessionID, "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to check ownership")
		return false
	}
	if !isOwner {
		writeError(w, http.StatusForbidden, "Access denied")
		return false
	}
	return true
}

// session returns a live session, restoring it from the store if it was
// saved before a restart
func (s *Server) session(sessionID string) (*game.Session, error) {
	s.sessionsMu.RLock()
	sess, ok := s.sessions[sessionID]
	s.sessionsMu.RUnlock()
	if ok {
		return sess, nil
	}

	rec, err := s.db.LoadSession(sessionID)
	if err != nil {
		return nil, err
	}
	restored, err := game.RestoreSession(rec, s.library, s.sessionOptions(sessionID))
	if err != nil {
		return nil, err
	}

	s.sessionsMu.Lock()
	defer s.sessionsMu.Unlock()
	if existing, ok := s.sessions[sessionID]; ok {
		return existing, nil
	}
	s.sessions[sessionID] = restored
	s.log.Info("session restored", "session", sessionID, "tick", rec.Tick)
	return restored, nil
}

// sessionOrError resolves the URL session and writes the error response
func (s *Server) sessionOrError(w http.ResponseWriter, r *http.Request) (*game.Session, bool) {
	sessionID := chi.URLParam(r, "id")
	sess, err := s.session(sessionID)
	if errors.Is(err, db.ErrNotFound) {
		writeError(w, http.StatusNotFound, "Session not found")
		return nil, false
	}
	if err != nil {
		s.log.Error("failed to load session", "session", sessionID, "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to load session")
		return nil, false
	}
	return sess, true
}

func (s *Server) sessionOptions(sessionID string) game.Options {
	log := s.log
	return game.Options{
		Dialogue:       s.cfg.Dialogue,
		InitialRapport: s.cfg.InitialRapport,
		Logger:         log,
		Sink: func(u dialogue.Utterance) {
			if err := s.db.AppendUtterance(sessionID, u); err != nil {
				log.Warn("failed to log utterance", "session", sessionID, "character", u.CharacterID, "error", err)
			}
		},
	}
}
