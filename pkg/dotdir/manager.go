// Package dotdir manages the .nook/ and ~/.nook directories.
//
// The resolved directory holds config.toml and is the default storage root:
// namespace vector files, the embedding cache and the SQLite system of
// record live beneath it.
package dotdir

import (
	"fmt"
	"os"
	"path/filepath"
)

const (
	// DirName is the name of the nook directory.
	DirName = ".nook"

	// HomeEnv names an explicit nook directory. It wins over discovery.
	HomeEnv = "NOOK_HOME"
)

// Manager resolves the nook directory.
type Manager struct{}

func NewManager() *Manager {
	return &Manager{}
}

// Target returns the absolute path of the nook directory, creating it when
// missing. The first match wins:
//  1. overrideDir
//  2. $NOOK_HOME
//  3. the nearest .nook/ in the working directory or one of its parents
//  4. ~/.nook/
func (m *Manager) Target(overrideDir string) (string, error) {
	dir, err := m.resolve(overrideDir)
	if err != nil {
		return "", err
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("creating nook directory %s: %w", dir, err)
	}

	return filepath.Abs(dir)
}

func (m *Manager) resolve(overrideDir string) (string, error) {
	if overrideDir != "" {
		return overrideDir, nil
	}
	if env := os.Getenv(HomeEnv); env != "" {
		return env, nil
	}

	if local, ok := findUp(); ok {
		return local, nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("getting home directory: %w", err)
	}
	return filepath.Join(home, DirName), nil
}

// findUp walks from the working directory towards the filesystem root and
// returns the first .nook/ directory it meets.
func findUp() (string, bool) {
	dir, err := os.Getwd()
	if err != nil {
		return "", false
	}

	for {
		candidate := filepath.Join(dir, DirName)
		if info, err := os.Stat(candidate); err == nil && info.IsDir() {
			return candidate, true
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return "", false
		}
		dir = parent
	}
}
