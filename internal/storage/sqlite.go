package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"

	"github.com/hyperjump/tanya/internal/models"
)

// SQLiteStore implements Store using SQLite. Collections are a column, not separate tables.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens or creates a SQLite database at dbPath and initializes the schema.
// Parent directories are created if they do not exist.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL: %w", err)
	}

	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

func initSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS pairs (
		id TEXT PRIMARY KEY,
		collection TEXT NOT NULL,
		session_id TEXT NOT NULL,
		source_id TEXT,
		query TEXT NOT NULL,
		answer TEXT NOT NULL,
		prompt TEXT NOT NULL,
		created_at TIMESTAMP NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_pairs_collection_session ON pairs(collection, session_id, created_at);

	CREATE TABLE IF NOT EXISTS conversations (
		id TEXT PRIMARY KEY,
		collection TEXT NOT NULL,
		session_id TEXT NOT NULL,
		source_id TEXT,
		messages TEXT NOT NULL,
		created_at TIMESTAMP NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_conversations_collection_session ON conversations(collection, session_id, created_at);
	`
	_, err := db.Exec(schema)
	return err
}

// SavePair inserts a single-shot turn.
func (s *SQLiteStore) SavePair(ctx context.Context, collection string, rec *models.PairRecord) error {
	preparePair(rec)
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO pairs (id, collection, session_id, source_id, query, answer, prompt, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, collection, rec.SessionID, rec.SourceID, rec.Query, rec.Answer, rec.Prompt, rec.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save pair: %w", err)
	}
	return nil
}

// SaveConversation inserts a snapshot of a conversation.
func (s *SQLiteStore) SaveConversation(ctx context.Context, collection string, rec *models.ConversationRecord) error {
	prepareConversation(rec)
	messagesJSON, err := json.Marshal(rec.Conversation)
	if err != nil {
		return fmt.Errorf("failed to marshal conversation: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO conversations (id, collection, session_id, source_id, messages, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		rec.ID, collection, rec.SessionID, rec.SourceID, string(messagesJSON), rec.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save conversation: %w", err)
	}
	return nil
}

// ListPairs returns the saved pairs of a session, oldest first.
func (s *SQLiteStore) ListPairs(ctx context.Context, collection, sessionID string) ([]*models.PairRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, session_id, source_id, query, answer, prompt, created_at
		 FROM pairs WHERE collection = ? AND session_id = ?
		 ORDER BY created_at, rowid`, collection, sessionID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*models.PairRecord
	for rows.Next() {
		var rec models.PairRecord
		var sourceID sql.NullString
		if err := rows.Scan(&rec.ID, &rec.SessionID, &sourceID, &rec.Query, &rec.Answer, &rec.Prompt, &rec.CreatedAt); err != nil {
			return nil, err
		}
		rec.SourceID = sourceID.String
		out = append(out, &rec)
	}
	return out, rows.Err()
}

// LatestConversation returns the most recent conversation snapshot of a session.
func (s *SQLiteStore) LatestConversation(ctx context.Context, collection, sessionID string) (*models.ConversationRecord, error) {
	var rec models.ConversationRecord
	var sourceID sql.NullString
	var messagesJSON string
	err := s.db.QueryRowContext(ctx,
		`SELECT id, session_id, source_id, messages, created_at
		 FROM conversations WHERE collection = ? AND session_id = ?
		 ORDER BY created_at DESC, rowid DESC LIMIT 1`, collection, sessionID,
	).Scan(&rec.ID, &rec.SessionID, &sourceID, &messagesJSON, &rec.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: no conversation for session %s", models.ErrNotFound, sessionID)
	}
	if err != nil {
		return nil, err
	}
	rec.SourceID = sourceID.String
	if err := json.Unmarshal([]byte(messagesJSON), &rec.Conversation); err != nil {
		return nil, fmt.Errorf("failed to unmarshal conversation: %w", err)
	}
	return &rec, nil
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
