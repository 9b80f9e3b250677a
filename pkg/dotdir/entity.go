package dotdir

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

const (
	entityFile = "entity.json"
)

// EntityState represents the persisted entity selection.
// CLI commands that omit --entity fall back to the selected entity.
type EntityState struct {
	// Entity is the currently selected memory entity.
	Entity string `json:"entity"`

	// Speaker is the conversation partner label used when ingesting as
	// this entity.
	Speaker string `json:"speaker,omitempty"`
}

// LoadEntityState loads the entity state from a target .strata/entity.json.
// Returns nil, nil if no entity state exists.
// If overrideDir is non-empty, it is used instead of the default ~/.strata/ location.
func (m *Manager) LoadEntityState(overrideDir string) (*EntityState, error) {
	dir, err := m.Target(overrideDir)
	if err != nil {
		return nil, err
	}

	path := filepath.Join(dir, entityFile)
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading entity state: %w", err)
	}

	state := &EntityState{}
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("parsing entity state: %w", err)
	}

	return state, nil
}

// SaveEntityState persists the entity state to a target .strata/entity.json.
func (m *Manager) SaveEntityState(state *EntityState, overrideDir string) error {
	if state == nil {
		return errors.New("cannot save nil entity state")
	}

	dir, err := m.Target(overrideDir)
	if err != nil {
		return err
	}

	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling entity state: %w", err)
	}

	path := filepath.Join(dir, entityFile)
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("writing entity state: %w", err)
	}

	return nil
}

// ClearEntityState removes the entity state file.
// Returns nil if the file doesn't exist (already cleared).
func (m *Manager) ClearEntityState(overrideDir string) error {
	dir, err := m.Target(overrideDir)
	if err != nil {
		return err
	}

	path := filepath.Join(dir, entityFile)
	if err := os.Remove(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("removing entity state: %w", err)
	}

	return nil
}
