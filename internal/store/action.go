package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"time"
)

// Action binds a head gesture to a plugin action. A gesture has at most
// one action.
type Action struct {
	ID         string          `json:"id"`
	GestureID  string          `json:"gesture_id"`
	PluginName string          `json:"plugin_name"`
	ActionName string          `json:"action_name"`
	Config     json.RawMessage `json:"config"`
	Enabled    bool            `json:"enabled"`
	CreatedAt  time.Time       `json:"created_at"`
}

func (a *Action) configText() string {
	if len(a.Config) == 0 {
		return "{}"
	}
	return string(a.Config)
}

// ActionRepository stores gesture bindings.
type ActionRepository struct {
	db *sql.DB
}

// Actions returns the action repository for this store.
func (s *Store) Actions() *ActionRepository {
	return &ActionRepository{db: s.db}
}

const selectActions = `SELECT id, gesture_id, plugin_name, action_name, config, enabled, created_at FROM actions`

func scanAction(row rowScanner) (*Action, error) {
	var (
		a      Action
		config string
	)
	err := row.Scan(&a.ID, &a.GestureID, &a.PluginName, &a.ActionName, &config, &a.Enabled, &a.CreatedAt)
	if err != nil {
		return nil, err
	}
	a.Config = json.RawMessage(config)
	return &a, nil
}

// Create stores a new binding and stamps its creation time.
func (r *ActionRepository) Create(a *Action) error {
	a.CreatedAt = time.Now()
	_, err := r.db.Exec(
		`INSERT INTO actions (id, gesture_id, plugin_name, action_name, config, enabled, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		a.ID, a.GestureID, a.PluginName, a.ActionName, a.configText(), a.Enabled, a.CreatedAt,
	)
	return err
}

// GetByID returns ErrNotFound for an unknown id.
func (r *ActionRepository) GetByID(id string) (*Action, error) {
	a, err := scanAction(r.db.QueryRow(selectActions+` WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return a, err
}

// GetByGestureID returns the action bound to a gesture, or nil when the
// gesture is unbound.
func (r *ActionRepository) GetByGestureID(gestureID string) (*Action, error) {
	a, err := scanAction(r.db.QueryRow(selectActions+` WHERE gesture_id = ?`, gestureID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return a, err
}

// List returns every binding, newest first.
func (r *ActionRepository) List() ([]*Action, error) {
	rows, err := r.db.Query(selectActions + ` ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*Action
	for rows.Next() {
		a, err := scanAction(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// Update rewrites every field but the creation time.
func (r *ActionRepository) Update(a *Action) error {
	result, err := r.db.Exec(
		`UPDATE actions SET gesture_id = ?, plugin_name = ?, action_name = ?, config = ?, enabled = ? WHERE id = ?`,
		a.GestureID, a.PluginName, a.ActionName, a.configText(), a.Enabled, a.ID,
	)
	if err != nil {
		return err
	}
	return expectOne(result)
}

// Delete returns ErrNotFound for an unknown id.
func (r *ActionRepository) Delete(id string) error {
	result, err := r.db.Exec(`DELETE FROM actions WHERE id = ?`, id)
	if err != nil {
		return err
	}
	return expectOne(result)
}
