package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// PathPoint is one point of a recorded head gesture, relative to the
// neutral position.
type PathPoint struct {
	X           float64 `json:"x"`
	Y           float64 `json:"y"`
	TimestampMS int64   `json:"t"`
}

// Gesture is a trained head gesture template.
type Gesture struct {
	ID        string      `json:"id"`
	Name      string      `json:"name"`
	Tolerance float64     `json:"tolerance"`
	Samples   int         `json:"samples"`
	Path      []PathPoint `json:"path"`
	CreatedAt time.Time   `json:"created_at"`
	UpdatedAt time.Time   `json:"updated_at"`
}

// GestureRepository provides CRUD operations for gestures.
type GestureRepository struct {
	db *sql.DB
}

// Gestures returns the gesture repository for this store.
func (s *Store) Gestures() *GestureRepository {
	return &GestureRepository{db: s.db}
}

func encodePath(p []PathPoint) (string, error) {
	if p == nil {
		p = []PathPoint{}
	}
	b, err := json.Marshal(p)
	if err != nil {
		return "", fmt.Errorf("encode path: %w", err)
	}
	return string(b), nil
}

// Create inserts a new gesture into the database.
func (r *GestureRepository) Create(g *Gesture) error {
	path, err := encodePath(g.Path)
	if err != nil {
		return err
	}

	now := time.Now()
	g.CreatedAt = now
	g.UpdatedAt = now

	_, err = r.db.Exec(
		`INSERT INTO gestures (id, name, tolerance, samples, path, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		g.ID, g.Name, g.Tolerance, g.Samples, path, g.CreatedAt, g.UpdatedAt,
	)
	return err
}

const gestureColumns = `id, name, tolerance, samples, path, created_at, updated_at`

func scanGesture(row rowScanner) (*Gesture, error) {
	g := &Gesture{}
	var path string
	if err := row.Scan(&g.ID, &g.Name, &g.Tolerance, &g.Samples, &path, &g.CreatedAt, &g.UpdatedAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(path), &g.Path); err != nil {
		return nil, fmt.Errorf("decode path of gesture %s: %w", g.ID, err)
	}
	return g, nil
}

func (r *GestureRepository) getOne(where string, arg string) (*Gesture, error) {
	g, err := scanGesture(r.db.QueryRow(`SELECT `+gestureColumns+` FROM gestures WHERE `+where+` = ?`, arg))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return g, nil
}

// GetByID retrieves a gesture by its ID.
func (r *GestureRepository) GetByID(id string) (*Gesture, error) {
	return r.getOne("id", id)
}

// GetByName retrieves a gesture by its name.
func (r *GestureRepository) GetByName(name string) (*Gesture, error) {
	return r.getOne("name", name)
}

// List retrieves all gestures, newest first.
func (r *GestureRepository) List() ([]*Gesture, error) {
	rows, err := r.db.Query(`SELECT ` + gestureColumns + ` FROM gestures ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var gestures []*Gesture
	for rows.Next() {
		g, err := scanGesture(rows)
		if err != nil {
			return nil, err
		}
		gestures = append(gestures, g)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return gestures, nil
}

// Update updates an existing gesture in the database.
func (r *GestureRepository) Update(g *Gesture) error {
	path, err := encodePath(g.Path)
	if err != nil {
		return err
	}
	g.UpdatedAt = time.Now()

	result, err := r.db.Exec(
		`UPDATE gestures SET name = ?, tolerance = ?, samples = ?, path = ?, updated_at = ?
		 WHERE id = ?`,
		g.Name, g.Tolerance, g.Samples, path, g.UpdatedAt, g.ID,
	)
	if err != nil {
		return err
	}
	return expectOne(result)
}

// Delete removes a gesture and its actions.
func (r *GestureRepository) Delete(id string) error {
	result, err := r.db.Exec(`DELETE FROM gestures WHERE id = ?`, id)
	if err != nil {
		return err
	}
	return expectOne(result)
}
