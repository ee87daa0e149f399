// Package dotdir manages the .rehearse/ and ~/.rehearse directories.
//
// The directory holds config.toml, the rotating log file, and the last
// generated draft so a later "rehearse adjust" can pick up where generation
// left off.
package dotdir

import (
	"fmt"
	"os"
	"path/filepath"
)

const (
	// dirName is the name of the rehearse directory.
	dirName = ".rehearse"
)

type Manager struct{}

func NewManager() *Manager {
	return &Manager{}
}

// Target returns the absolute path to an existing .rehearse/ directory.
// Order of precedence is as follows:
//  1. Provided override (created if missing)
//  2. Local ./.rehearse/ dir
//  3. Home ~/.rehearse/ dir
//
// If none is found, Target returns "" and no error.
func (m *Manager) Target(overrideDir string) (string, error) {
	if overrideDir != "" {
		if err := os.MkdirAll(overrideDir, 0o755); err != nil {
			return "", fmt.Errorf("creating rehearse directory %s: %w", overrideDir, err)
		}
		return filepath.Abs(overrideDir)
	}

	if m.localDirExists() {
		cwd, err := os.Getwd()
		if err != nil {
			return "", fmt.Errorf("getting current directory: %w", err)
		}
		return filepath.Join(cwd, dirName), nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("getting home directory: %w", err)
	}
	dir := filepath.Join(home, dirName)
	if info, err := os.Stat(dir); err == nil && info.IsDir() {
		return dir, nil
	}

	return "", nil
}

// Create is Target, except that it creates ~/.rehearse/ when no directory
// was found.
func (m *Manager) Create(overrideDir string) (string, error) {
	dir, err := m.Target(overrideDir)
	if err != nil || dir != "" {
		return dir, err
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("getting home directory: %w", err)
	}
	dir = filepath.Join(home, dirName)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("creating rehearse directory %s: %w", dir, err)
	}
	return dir, nil
}

// Path resolves name inside the .rehearse/ directory, creating the
// directory if needed. Absolute names are returned unchanged and an empty
// name resolves to "".
func (m *Manager) Path(overrideDir, name string) (string, error) {
	if name == "" || filepath.IsAbs(name) {
		return name, nil
	}

	dir, err := m.Create(overrideDir)
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, name), nil
}

// localDirExists checks whether a .rehearse/ directory exists in the current
// working directory.
func (m *Manager) localDirExists() bool {
	cwd, err := os.Getwd()
	if err != nil {
		return false
	}

	info, err := os.Stat(filepath.Join(cwd, dirName))
	return err == nil && info.IsDir()
}
