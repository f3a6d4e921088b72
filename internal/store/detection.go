package store

import (
	"database/sql"
	"time"
)

// Detection is a recorded change of the detected letter within a session.
// An empty Letter records the return to "no letter".
type Detection struct {
	ID         int64
	SessionID  string
	Letter     string
	Confidence float64
	SinceMs    int64
	CreatedAt  time.Time
}

// DetectionRepository stores detections.
type DetectionRepository struct {
	db *sql.DB
}

// Detections returns the detection repository for this store.
func (s *Store) Detections() *DetectionRepository {
	return &DetectionRepository{db: s.db}
}

// Create appends a detection to its session.
func (r *DetectionRepository) Create(d *Detection) error {
	d.CreatedAt = time.Now()

	result, err := r.db.Exec(
		`INSERT INTO detections (session_id, letter, confidence, since_ms, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		d.SessionID, d.Letter, d.Confidence, d.SinceMs, d.CreatedAt,
	)
	if err != nil {
		return err
	}

	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	d.ID = id
	return nil
}

// ListBySession returns the detections of a session in the order they were recorded.
func (r *DetectionRepository) ListBySession(sessionID string) ([]Detection, error) {
	rows, err := r.db.Query(
		`SELECT id, session_id, letter, confidence, since_ms, created_at
		 FROM detections WHERE session_id = ? ORDER BY id ASC`,
		sessionID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var detections []Detection
	for rows.Next() {
		var d Detection
		if err := rows.Scan(&d.ID, &d.SessionID, &d.Letter, &d.Confidence, &d.SinceMs, &d.CreatedAt); err != nil {
			return nil, err
		}
		detections = append(detections, d)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return detections, nil
}

// CountByLetter returns how often each letter was detected in a session.
func (r *DetectionRepository) CountByLetter(sessionID string) (map[string]int, error) {
	rows, err := r.db.Query(
		`SELECT letter, COUNT(*) FROM detections
		 WHERE session_id = ? AND letter != '' GROUP BY letter`,
		sessionID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var letter string
		var n int
		if err := rows.Scan(&letter, &n); err != nil {
			return nil, err
		}
		counts[letter] = n
	}
	return counts, rows.Err()
}
