// Package chatstore persists chat messages in SQLite.
package chatstore

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	_ "modernc.org/sqlite"

	"legalrag/internal/domain"
)

const schema = `
CREATE TABLE IF NOT EXISTS chat_messages (
	id         TEXT PRIMARY KEY,
	user_id    TEXT NOT NULL,
	role       TEXT NOT NULL,
	body       TEXT NOT NULL,
	created_at TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_chat_messages_user ON chat_messages(user_id, created_at);
`

// Store is a SQLite-backed MessageStore.
type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the message database at path.
// Use ":memory:" for an ephemeral store.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, errors.Wrap(err, "open chat database")
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, errors.Wrap(err, "apply chat schema")
	}
	return &Store{db: db}, nil
}

// Close releases the database handle.
func (s *Store) Close() error { return s.db.Close() }

// Save inserts the message, assigning an id and timestamp when missing.
func (s *Store) Save(ctx context.Context, msg domain.ChatMessage) (domain.ChatMessage, error) {
	if msg.ID == "" {
		msg.ID = uuid.NewString()
	}
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO chat_messages (id, user_id, role, body, created_at) VALUES (?, ?, ?, ?, ?)`,
		msg.ID, msg.UserID, msg.Role, msg.Body, msg.CreatedAt)
	if err != nil {
		return domain.ChatMessage{}, errors.Wrap(err, "insert chat message")
	}
	return msg, nil
}

// History returns the user's most recent messages in chronological order.
func (s *Store) History(ctx context.Context, userID string, limit int) ([]domain.ChatMessage, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, user_id, role, body, created_at
		 FROM (
			SELECT id, user_id, role, body, created_at
			FROM chat_messages WHERE user_id = ?
			ORDER BY created_at DESC, id LIMIT ?
		 ) ORDER BY created_at ASC, id`,
		userID, limit)
	if err != nil {
		return nil, errors.Wrap(err, "query chat history")
	}
	defer rows.Close()

	var msgs []domain.ChatMessage
	for rows.Next() {
		var m domain.ChatMessage
		if err := rows.Scan(&m.ID, &m.UserID, &m.Role, &m.Body, &m.CreatedAt); err != nil {
			return nil, errors.Wrap(err, "scan chat message")
		}
		msgs = append(msgs, m)
	}
	return msgs, errors.Wrap(rows.Err(), "iterate chat history")
}
