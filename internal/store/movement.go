package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/ayusman/headpad/internal/tracking"
)

// MovementRepository stores smoothed movement samples.
type MovementRepository struct {
	db *sql.DB
}

// Movements returns the movement repository for this store.
func (s *Store) Movements() *MovementRepository {
	return &MovementRepository{db: s.db}
}

// Append inserts samples for a session in one transaction.
func (r *MovementRepository) Append(sessionID string, samples []tracking.MovementSample) error {
	if len(samples) == 0 {
		return nil
	}

	tx, err := r.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(
		`INSERT INTO movement_samples (session_id, timestamp_ns, dx, dy, speed) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, s := range samples {
		if _, err := stmt.Exec(sessionID, s.Timestamp.UnixNano(), s.DX, s.DY, s.Speed); err != nil {
			return fmt.Errorf("insert sample: %w", err)
		}
	}
	return tx.Commit()
}

// List returns the samples of a session in time order. A limit of 0
// returns all of them.
func (r *MovementRepository) List(sessionID string, limit int) ([]tracking.MovementSample, error) {
	query := `SELECT timestamp_ns, dx, dy, speed FROM movement_samples
		WHERE session_id = ? ORDER BY timestamp_ns, id`
	args := []any{sessionID}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	samples := []tracking.MovementSample{}
	for rows.Next() {
		var ns int64
		var s tracking.MovementSample
		if err := rows.Scan(&ns, &s.DX, &s.DY, &s.Speed); err != nil {
			return nil, err
		}
		s.Timestamp = time.Unix(0, ns)
		samples = append(samples, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return samples, nil
}

// Count returns the number of samples stored for a session.
func (r *MovementRepository) Count(sessionID string) (int, error) {
	var n int
	err := r.db.QueryRow(`SELECT COUNT(*) FROM movement_samples WHERE session_id = ?`, sessionID).Scan(&n)
	return n, err
}

// SessionWriter appends samples to one session. It satisfies the
// movement log Writer interface.
type SessionWriter struct {
	repo      *MovementRepository
	sessionID string
}

// ForSession binds the repository to a session.
func (r *MovementRepository) ForSession(sessionID string) *SessionWriter {
	return &SessionWriter{repo: r, sessionID: sessionID}
}

// Append implements movementlog.Writer.
func (w *SessionWriter) Append(samples []tracking.MovementSample) error {
	return w.repo.Append(w.sessionID, samples)
}

// SessionID returns the bound session.
func (w *SessionWriter) SessionID() string { return w.sessionID }
