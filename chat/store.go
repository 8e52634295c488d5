package chat

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"videoChat/core"
)

// Store persists chat sessions and messages per video in sqlite.
type Store struct {
	db *sql.DB
}

type Session struct {
	ID        string    `json:"session_id"`
	VideoID   string    `json:"video_id"`
	CreatedAt time.Time `json:"created_at"`
}

type Message struct {
	ID        int64               `json:"id"`
	SessionID string              `json:"session_id"`
	Role      string              `json:"role"` // "user" or "assistant"
	Content   string              `json:"content"`
	Sources   []core.AnswerSource `json:"sources,omitempty"`
	CreatedAt time.Time           `json:"created_at"`
}

func Open(path string) (*Store, error) {
	if path == "" {
		return nil, fmt.Errorf("sqlite path required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) migrate() error {
	schema := []string{
		`CREATE TABLE IF NOT EXISTS chat_sessions (
			session_id TEXT PRIMARY KEY,
			video_id TEXT NOT NULL,
			created_at TIMESTAMP NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS chat_messages (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			session_id TEXT NOT NULL,
			role TEXT NOT NULL,
			content TEXT NOT NULL,
			sources TEXT,
			created_at TIMESTAMP NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_chat_messages_session ON chat_messages(session_id);`,
		`CREATE INDEX IF NOT EXISTS idx_chat_sessions_video ON chat_sessions(video_id);`,
	}
	for _, stmt := range schema {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("migrate chat schema: %w", err)
		}
	}
	return nil
}

// EnsureSession returns the named session, creating it (with a fresh ID when
// none was supplied) if it does not exist.
func (s *Store) EnsureSession(ctx context.Context, videoID, sessionID string) (Session, error) {
	if sessionID != "" {
		var sess Session
		var created string
		err := s.db.QueryRowContext(ctx,
			"SELECT session_id, video_id, created_at FROM chat_sessions WHERE session_id = ?", sessionID).
			Scan(&sess.ID, &sess.VideoID, &created)
		if err == nil {
			sess.CreatedAt, _ = time.Parse(time.RFC3339, created)
			return sess, nil
		}
		if err != sql.ErrNoRows {
			return Session{}, err
		}
	} else {
		sessionID = newID()
	}

	sess := Session{ID: sessionID, VideoID: videoID, CreatedAt: time.Now().UTC().Truncate(time.Second)}
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO chat_sessions (session_id, video_id, created_at) VALUES (?, ?, ?)",
		sess.ID, sess.VideoID, sess.CreatedAt.Format(time.RFC3339))
	if err != nil {
		return Session{}, fmt.Errorf("create session: %w", err)
	}
	return sess, nil
}

func (s *Store) AppendMessage(ctx context.Context, sessionID, role, content string, sources []core.AnswerSource) error {
	var sourcesJSON []byte
	if len(sources) > 0 {
		var err error
		sourcesJSON, err = json.Marshal(sources)
		if err != nil {
			return fmt.Errorf("marshal sources: %w", err)
		}
	}
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO chat_messages (session_id, role, content, sources, created_at) VALUES (?, ?, ?, ?, ?)",
		sessionID, role, content, string(sourcesJSON), time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("append message: %w", err)
	}
	return nil
}

// History returns a session's messages, oldest first.
func (s *Store) History(ctx context.Context, sessionID string, limit int) ([]Message, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, session_id, role, content, sources, created_at
		FROM chat_messages WHERE session_id = ?
		ORDER BY id ASC LIMIT ?`, sessionID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var messages []Message
	for rows.Next() {
		var msg Message
		var sourcesJSON sql.NullString
		var created string
		if err := rows.Scan(&msg.ID, &msg.SessionID, &msg.Role, &msg.Content, &sourcesJSON, &created); err != nil {
			return nil, err
		}
		msg.CreatedAt, _ = time.Parse(time.RFC3339, created)
		if sourcesJSON.Valid && sourcesJSON.String != "" {
			if err := json.Unmarshal([]byte(sourcesJSON.String), &msg.Sources); err != nil {
				msg.Sources = nil
			}
		}
		messages = append(messages, msg)
	}
	return messages, rows.Err()
}

func (s *Store) Close() error { return s.db.Close() }

func newID() string {
	b := make([]byte, 16)
	_, _ = rand.Read(b)
	return fmt.Sprintf("%x", b)
}
