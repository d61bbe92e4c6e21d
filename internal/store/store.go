// Package store persists users, assignments, study sessions,
// exercises, and mastery progress in SQLite. Topic lists, exercise
// payloads, and the mastery map are stored as JSON text columns.
package store

import (
	"database/sql"
	"encoding/json"
	"fmt"

	_ "modernc.org/sqlite"
)

type Store struct {
	db *sql.DB
}

func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}
	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS users (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		username TEXT NOT NULL UNIQUE,
		display_name TEXT NOT NULL DEFAULT '',
		password_hash TEXT NOT NULL,
		role TEXT NOT NULL DEFAULT 'student',
		active BOOLEAN NOT NULL DEFAULT 1,
		created_at DATETIME NOT NULL
	);

	CREATE TABLE IF NOT EXISTS auth_sessions (
		id TEXT PRIMARY KEY,
		user_id INTEGER NOT NULL,
		created_at DATETIME NOT NULL,
		expires_at DATETIME NOT NULL,
		FOREIGN KEY (user_id) REFERENCES users(id)
	);

	CREATE TABLE IF NOT EXISTS assignments (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id INTEGER NOT NULL,
		title TEXT NOT NULL,
		kind TEXT NOT NULL,
		exam_subtype TEXT NOT NULL DEFAULT '',
		due_at DATETIME NOT NULL,
		topics TEXT NOT NULL DEFAULT '[]',
		status TEXT NOT NULL DEFAULT 'upcoming',
		material TEXT NOT NULL DEFAULT '',
		created_at DATETIME NOT NULL,
		FOREIGN KEY (user_id) REFERENCES users(id)
	);

	CREATE TABLE IF NOT EXISTS study_sessions (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		assignment_id INTEGER NOT NULL,
		user_id INTEGER NOT NULL,
		scheduled_at DATETIME NOT NULL,
		duration_min INTEGER NOT NULL DEFAULT 30,
		topics TEXT NOT NULL DEFAULT '[]',
		focus TEXT NOT NULL DEFAULT 'concepts',
		status TEXT NOT NULL DEFAULT 'scheduled',
		created_at DATETIME NOT NULL,
		FOREIGN KEY (assignment_id) REFERENCES assignments(id),
		FOREIGN KEY (user_id) REFERENCES users(id)
	);

	CREATE TABLE IF NOT EXISTS exercises (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		session_id INTEGER NOT NULL,
		assignment_id INTEGER NOT NULL,
		user_id INTEGER NOT NULL,
		type TEXT NOT NULL,
		topic TEXT NOT NULL DEFAULT '',
		difficulty INTEGER NOT NULL DEFAULT 3,
		payload TEXT NOT NULL,
		user_answer TEXT,
		is_correct BOOLEAN,
		score INTEGER,
		feedback TEXT,
		created_at DATETIME NOT NULL,
		FOREIGN KEY (session_id) REFERENCES study_sessions(id),
		FOREIGN KEY (assignment_id) REFERENCES assignments(id)
	);

	CREATE TABLE IF NOT EXISTS user_progress (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id INTEGER NOT NULL,
		assignment_id INTEGER NOT NULL,
		topic_mastery TEXT NOT NULL DEFAULT '{}',
		overall_readiness INTEGER NOT NULL DEFAULT 0,
		weak_topics TEXT NOT NULL DEFAULT '[]',
		strong_topics TEXT NOT NULL DEFAULT '[]',
		updated_at DATETIME NOT NULL,
		UNIQUE(user_id, assignment_id),
		FOREIGN KEY (user_id) REFERENCES users(id),
		FOREIGN KEY (assignment_id) REFERENCES assignments(id)
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

// toJSON marshals a value for a JSON text column. A nil slice or map
// still produces valid JSON.
func toJSON(v any) (string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func fromJSON(data string, v any) error {
	if data == "" {
		return nil
	}
	return json.Unmarshal([]byte(data), v)
}
