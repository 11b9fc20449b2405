package db

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	_ "github.com/mattn/go-sqlite3"

	"github.com/qninhdt/crew-dialogue/server/internal/dialogue"
	"github.com/qninhdt/crew-dialogue/server/internal/game"
	"github.com/qninhdt/crew-dialogue/server/internal/interest"
	"github.com/qninhdt/crew-dialogue/server/internal/relationship"
	"github.com/qninhdt/crew-dialogue/server/internal/templates"
	"github.com/qninhdt/crew-dialogue/server/internal/urgency"
)

// ErrNotFound is returned when a session has no stored record
var ErrNotFound = errors.New("not found")

// DefaultHistoryLimit bounds GetHistory when no limit is given
const DefaultHistoryLimit = 50

// DB wraps database operations
type DB struct {
	conn *sql.DB
	mu   sync.RWMutex
}

// NewDB creates a new database connection
func NewDB(dbPath string) (*DB, error) {
	conn, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := conn.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	db := &DB{conn: conn}

	// Run migrations
	if err := db.migrate(); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return db, nil
}

// Close closes the database connection
func (db *DB) Close() error {
	return db.conn.Close()
}

// migrate runs database migrations
func (db *DB) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS sessions (
		id TEXT PRIMARY KEY,
		tick INTEGER NOT NULL,
		players_json TEXT NOT NULL,
		characters_json TEXT NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS relationships (
		session_id TEXT NOT NULL,
		character_id TEXT NOT NULL,
		player_id TEXT NOT NULL,
		rapport INTEGER NOT NULL,
		stage TEXT NOT NULL,
		snapshot_json TEXT NOT NULL,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		PRIMARY KEY (session_id, character_id, player_id),
		FOREIGN KEY (session_id) REFERENCES sessions(id) ON DELETE CASCADE
	);

	CREATE TABLE IF NOT EXISTS utterances (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		session_id TEXT NOT NULL,
		character_id TEXT NOT NULL,
		tick INTEGER NOT NULL,
		category TEXT NOT NULL,
		template_id TEXT,
		text TEXT NOT NULL,
		event TEXT,
		stage TEXT NOT NULL,
		urgency TEXT,
		is_fallback INTEGER NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS session_ownership (
		session_id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_relationships_session_id ON relationships(session_id);
	CREATE INDEX IF NOT EXISTS idx_utterances_session_character ON utterances(session_id, character_id);
	CREATE INDEX IF NOT EXISTS idx_session_ownership_user_id ON session_ownership(user_id);
	`

	_, err := db.conn.Exec(schema)
	return err
}

// SaveSessionOwnership saves session ownership
func (db *DB) SaveSessionOwnership(sessionID, userID string) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	_, err := db.conn.Exec(`
		INSERT OR REPLACE INTO session_ownership (session_id, user_id)
		VALUES (?, ?)
	`, sessionID, userID)
	return err
}

// GetSessionOwner returns the owner of a session
func (db *DB) GetSessionOwner(sessionID string) (string, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	var userID string
	err := db.conn.QueryRow(`
		SELECT user_id FROM session_ownership WHERE session_id = ?
	`, sessionID).Scan(&userID)

	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", err
	}
	return userID, nil
}

// IsSessionOwner checks if user owns the session
func (db *DB) IsSessionOwner(sessionID, userID string) (bool, error) {
	owner, err := db.GetSessionOwner(sessionID)
	if err != nil {
		return false, err
	}
	return owner == userID, nil
}

// GetUserSessions returns all sessions owned by a user, newest first
func (db *DB) GetUserSessions(userID string) ([]string, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	rows, err := db.conn.Query(`
		SELECT session_id FROM session_ownership WHERE user_id = ? ORDER BY created_at DESC, rowid DESC
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	sessionIDs := make([]string, 0)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		sessionIDs = append(sessionIDs, id)
	}

	return sessionIDs, rows.Err()
}

// SaveSession upserts a session record and replaces its relationships
func (db *DB) SaveSession(rec game.Record) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	playersJSON, err := json.Marshal(rec.Players)
	if err != nil {
		return fmt.Errorf("failed to marshal players: %w", err)
	}
	charactersJSON, err := json.Marshal(rec.Characters)
	if err != nil {
		return fmt.Errorf("failed to marshal characters: %w", err)
	}

	tx, err := db.conn.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.Exec(`
		INSERT INTO sessions (id, tick, players_json, characters_json, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(id) DO UPDATE SET
			tick = excluded.tick,
			players_json = excluded.players_json,
			characters_json = excluded.characters_json,
			updated_at = CURRENT_TIMESTAMP
	`, rec.ID, rec.Tick, string(playersJSON), string(charactersJSON), rec.CreatedAt.UTC())
	if err != nil {
		return err
	}

	if _, err := tx.Exec(`DELETE FROM relationships WHERE session_id = ?`, rec.ID); err != nil {
		return err
	}

	for _, rel := range rec.Relationships {
		snapshotJSON, err := json.Marshal(rel.Snapshot)
		if err != nil {
			return fmt.Errorf("failed to marshal relationship %s/%s: %w", rel.CharacterID, rel.PlayerID, err)
		}
		_, err = tx.Exec(`
			INSERT INTO relationships (session_id, character_id, player_id, rapport, stage, snapshot_json)
			VALUES (?, ?, ?, ?, ?, ?)
		`, rec.ID, rel.CharacterID, rel.PlayerID, rel.Snapshot.Rapport,
			relationship.StageFor(rel.Snapshot.Rapport).String(), string(snapshotJSON))
		if err != nil {
			return err
		}
	}

	return tx.Commit()
}

// LoadSession loads a stored session record
func (db *DB) LoadSession(sessionID string) (game.Record, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	rec := game.Record{ID: sessionID}
	var playersJSON, charactersJSON string
	err := db.conn.QueryRow(`
		SELECT tick, players_json, characters_json, created_at
		FROM sessions
		WHERE id = ?
	`, sessionID).Scan(&rec.Tick, &playersJSON, &charactersJSON, &rec.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return game.Record{}, ErrNotFound
	}
	if err != nil {
		return game.Record{}, err
	}

	if err := json.Unmarshal([]byte(playersJSON), &rec.Players); err != nil {
		return game.Record{}, fmt.Errorf("failed to unmarshal players: %w", err)
	}
	if err := json.Unmarshal([]byte(charactersJSON), &rec.Characters); err != nil {
		return game.Record{}, fmt.Errorf("failed to unmarshal characters: %w", err)
	}

	rows, err := db.conn.Query(`
		SELECT character_id, player_id, snapshot_json
		FROM relationships
		WHERE session_id = ?
		ORDER BY character_id, player_id
	`, sessionID)
	if err != nil {
		return game.Record{}, err
	}
	defer rows.Close()

	for rows.Next() {
		var rel game.RelationshipRecord
		var snapshotJSON string
		if err := rows.Scan(&rel.CharacterID, &rel.PlayerID, &snapshotJSON); err != nil {
			return game.Record{}, err
		}
		if err := json.Unmarshal([]byte(snapshotJSON), &rel.Snapshot); err != nil {
			return game.Record{}, fmt.Errorf("failed to unmarshal relationship %s/%s: %w", rel.CharacterID, rel.PlayerID, err)
		}
		rec.Relationships = append(rec.Relationships, rel)
	}

	return rec, rows.Err()
}

// DeleteSession deletes a session and all its data
func (db *DB) DeleteSession(sessionID string) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	tx, err := db.conn.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, stmt := range []string{
		"DELETE FROM relationships WHERE session_id = ?",
		"DELETE FROM utterances WHERE session_id = ?",
		"DELETE FROM session_ownership WHERE session_id = ?",
		"DELETE FROM sessions WHERE id = ?",
	} {
		if _, err := tx.Exec(stmt, sessionID); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// AppendUtterance records an emitted line
func (db *DB) AppendUtterance(sessionID string, u dialogue.Utterance) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	var urgencyName sql.NullString
	if u.Urgency != nil {
		urgencyName = sql.NullString{String: u.Urgency.String(), Valid: true}
	}

	_, err := db.conn.Exec(`
		INSERT INTO utterances (
			session_id, character_id, tick, category, template_id, text, event, stage, urgency, is_fallback
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, sessionID, u.CharacterID, u.Tick, string(u.Category), u.TemplateID, u.Text,
		string(u.Event), u.Stage.String(), urgencyName, boolToInt(u.Fallback))
	return err
}

// GetHistory returns a character's most recent lines, oldest first
func (db *DB) GetHistory(sessionID, characterID string, limit int) ([]dialogue.Utterance, error) {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}

	db.mu.RLock()
	defer db.mu.RUnlock()

	rows, err := db.conn.Query(`
		SELECT character_id, tick, category, template_id, text, event, stage, urgency, is_fallback
		FROM (
			SELECT * FROM utterances
			WHERE session_id = ? AND character_id = ?
			ORDER BY id DESC
			LIMIT ?
		)
		ORDER BY id ASC
	`, sessionID, characterID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	history := make([]dialogue.Utterance, 0)
	for rows.Next() {
		var (
			u                 dialogue.Utterance
			category, stage   string
			templateID, event sql.NullString
			urgencyName       sql.NullString
			isFallback        int
		)
		if err := rows.Scan(&u.CharacterID, &u.Tick, &category, &templateID, &u.Text,
			&event, &stage, &urgencyName, &isFallback); err != nil {
			return nil, err
		}

		u.Category = templates.Category(category)
		u.TemplateID = templateID.String
		u.Event = interest.EventType(event.String)
		u.Fallback = intToBool(isFallback)
		if u.Stage, err = relationship.ParseStage(stage); err != nil {
			return nil, err
		}
		if urgencyName.Valid {
			s, err := urgency.ParseStage(urgencyName.String)
			if err != nil {
				return nil, err
			}
			u.Urgency = &s
		}
		history = append(history, u)
	}

	return history, rows.Err()
}

// Helper functions
func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func intToBool(i int) bool {
	return i != 0
}
