package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"time"
)

// ErrNotFound is returned when a requested resource does not exist.
var ErrNotFound = errors.New("not found")

// Recording represents one finalized recording session in the archive.
type Recording struct {
	ID                string
	SessionID         string
	Sentence          string
	ComposedSentence  string
	Words             []string
	TotalSigns        int
	OverallConfidence float64
	CompletedAt       time.Time
	CreatedAt         time.Time
}

// RecordingRepository provides persistence for finalized sessions.
type RecordingRepository struct {
	db *sql.DB
}

// Recordings returns the recording repository for this store.
func (s *Store) Recordings() *RecordingRepository {
	return &RecordingRepository{db: s.db}
}

// Create inserts a new recording into the archive.
func (r *RecordingRepository) Create(rec *Recording) error {
	rec.CreatedAt = time.Now()

	words, err := json.Marshal(rec.Words)
	if err != nil {
		return err
	}

	_, err = r.db.Exec(
		`INSERT INTO recordings (id, session_id, sentence, composed_sentence, words, total_signs, overall_confidence, completed_at, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.SessionID, rec.Sentence, rec.ComposedSentence, string(words),
		rec.TotalSigns, rec.OverallConfidence, rec.CompletedAt, rec.CreatedAt,
	)
	return err
}

// GetByID retrieves a recording by its ID.
func (r *RecordingRepository) GetByID(id string) (*Recording, error) {
	row := r.db.QueryRow(
		`SELECT id, session_id, sentence, composed_sentence, words, total_signs, overall_confidence, completed_at, created_at
		 FROM recordings WHERE id = ?`,
		id,
	)

	rec, err := scanRecording(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return rec, nil
}

// List retrieves the most recent recordings, newest first.
func (r *RecordingRepository) List(limit int) ([]*Recording, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := r.db.Query(
		`SELECT id, session_id, sentence, composed_sentence, words, total_signs, overall_confidence, completed_at, created_at
		 FROM recordings ORDER BY completed_at DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var recordings []*Recording
	for rows.Next() {
		rec, err := scanRecording(rows)
		if err != nil {
			return nil, err
		}
		recordings = append(recordings, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return recordings, nil
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanRecording(row scanner) (*Recording, error) {
	rec := &Recording{}
	var words string

	err := row.Scan(&rec.ID, &rec.SessionID, &rec.Sentence, &rec.ComposedSentence,
		&words, &rec.TotalSigns, &rec.OverallConfidence, &rec.CompletedAt, &rec.CreatedAt)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal([]byte(words), &rec.Words); err != nil {
		return nil, err
	}

	return rec, nil
}
