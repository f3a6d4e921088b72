package store

import (
	"database/sql"
	"errors"
	"time"
)

// Session sources.
const (
	SourceWebSocket = "websocket"
	SourceCamera    = "camera"
)

// Session is one run of the recognizer over a single frame stream.
type Session struct {
	ID        string
	Source    string
	Targets   string // practice letters, empty when not drilling
	CreatedAt time.Time
	EndedAt   *time.Time

	FramesProcessed int64
	FramesDropped   int64
	FramesMalformed int64
	FramesDuplicate int64
}

// Active reports whether the session has not been ended.
func (s *Session) Active() bool {
	return s.EndedAt == nil
}

// SessionStats carries the frame counters persisted when a session ends.
type SessionStats struct {
	Processed int64
	Dropped   int64
	Malformed int64
	Duplicate int64
}

// SessionRepository provides CRUD operations for sessions.
type SessionRepository struct {
	db *sql.DB
}

// Sessions returns the session repository for this store.
func (s *Store) Sessions() *SessionRepository {
	return &SessionRepository{db: s.db}
}

const sessionColumns = `id, source, targets, created_at, ended_at,
	frames_processed, frames_dropped, frames_malformed, frames_duplicate`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSession(row rowScanner) (*Session, error) {
	s := &Session{}
	var ended sql.NullTime
	err := row.Scan(&s.ID, &s.Source, &s.Targets, &s.CreatedAt, &ended,
		&s.FramesProcessed, &s.FramesDropped, &s.FramesMalformed, &s.FramesDuplicate)
	if err != nil {
		return nil, err
	}
	if ended.Valid {
		t := ended.Time
		s.EndedAt = &t
	}
	return s, nil
}

// Create inserts a new session into the database.
func (r *SessionRepository) Create(s *Session) error {
	s.CreatedAt = time.Now()
	s.EndedAt = nil

	_, err := r.db.Exec(
		`INSERT INTO sessions (id, source, targets, created_at) VALUES (?, ?, ?, ?)`,
		s.ID, s.Source, s.Targets, s.CreatedAt,
	)
	return err
}

// GetByID retrieves a session by its ID.
func (r *SessionRepository) GetByID(id string) (*Session, error) {
	s, err := scanSession(r.db.QueryRow(
		`SELECT `+sessionColumns+` FROM sessions WHERE id = ?`, id,
	))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return s, nil
}

// List retrieves all sessions, newest first.
func (r *SessionRepository) List() ([]*Session, error) {
	rows, err := r.db.Query(
		`SELECT ` + sessionColumns + ` FROM sessions ORDER BY created_at DESC`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sessions []*Session
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, s)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return sessions, nil
}

// End marks the session as finished and stores its final frame counters.
func (r *SessionRepository) End(id string, stats SessionStats) error {
	result, err := r.db.Exec(
		`UPDATE sessions SET ended_at = ?, frames_processed = ?, frames_dropped = ?,
		 frames_malformed = ?, frames_duplicate = ? WHERE id = ?`,
		time.Now(), stats.Processed, stats.Dropped, stats.Malformed, stats.Duplicate, id,
	)
	if err != nil {
		return err
	}
	return affected(result)
}

// Delete removes a session and its detections.
func (r *SessionRepository) Delete(id string) error {
	result, err := r.db.Exec(`DELETE FROM sessions WHERE id = ?`, id)
	if err != nil {
		return err
	}
	return affected(result)
}
