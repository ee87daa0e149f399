package dotdir

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/papercomputeco/rehearse/pkg/session"
)

const (
	draftFile = "draft.json"
)

// Draft is the last generated training dialog, persisted so it can be
// adjusted in a later invocation.
type Draft struct {
	// SessionID is the ID of the session that produced Content.
	SessionID string `json:"session_id"`

	// Scene holds the parameters the dialog was generated from.
	Scene session.SceneParameters `json:"scene"`

	Reasoning string    `json:"reasoning,omitempty"`
	Content   string    `json:"content"`
	SavedAt   time.Time `json:"saved_at"`
}

// LoadDraft loads the draft from a target .rehearse/draft.json.
// Returns nil, nil if no draft exists.
func (m *Manager) LoadDraft(overrideDir string) (*Draft, error) {
	dir, err := m.Target(overrideDir)
	if err != nil {
		return nil, err
	}
	if dir == "" {
		return nil, nil
	}

	data, err := os.ReadFile(filepath.Join(dir, draftFile))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading draft: %w", err)
	}

	draft := &Draft{}
	if err := json.Unmarshal(data, draft); err != nil {
		return nil, fmt.Errorf("parsing draft: %w", err)
	}

	return draft, nil
}

// SaveDraft persists the draft to a target .rehearse/draft.json, creating
// ~/.rehearse/ if needed.
func (m *Manager) SaveDraft(draft *Draft, overrideDir string) error {
	if draft == nil {
		return errors.New("cannot save nil draft")
	}

	dir, err := m.Create(overrideDir)
	if err != nil {
		return err
	}

	data, err := json.MarshalIndent(draft, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling draft: %w", err)
	}

	if err := os.WriteFile(filepath.Join(dir, draftFile), data, 0o600); err != nil {
		return fmt.Errorf("writing draft: %w", err)
	}

	return nil
}

// ClearDraft removes the draft file. Returns nil if it doesn't exist.
func (m *Manager) ClearDraft(overrideDir string) error {
	dir, err := m.Target(overrideDir)
	if err != nil || dir == "" {
		return err
	}

	if err := os.Remove(filepath.Join(dir, draftFile)); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("removing draft: %w", err)
	}

	return nil
}
