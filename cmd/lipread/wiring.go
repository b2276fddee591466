package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
	"github.com/spf13/afero"

	"github.com/ayusman/lipread/internal/config"
	"github.com/ayusman/lipread/internal/store"
)

// openStore opens the SQLite database holding action bindings and, for
// the sqlite backend, patterns.
func openStore(cfg *config.Config) (*store.Store, error) {
	if err := os.MkdirAll(filepath.Dir(cfg.Store.DBPath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}
	st, err := store.New(cfg.Store.DBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize store: %w", err)
	}
	return st, nil
}

// openPatterns builds the pattern store on the configured backend and loads it.
func openPatterns(cfg *config.Config, fsys afero.Fs, st *store.Store, logger zerolog.Logger) *store.PatternStore {
	var backend store.Backend
	switch cfg.Store.Backend {
	case config.BackendSQLite:
		backend = st.Patterns()
	default:
		backend = store.NewFileBackend(fsys, cfg.Store.PatternsPath)
	}

	patterns := store.NewPatternStore(store.NewVocabulary(cfg.Vocabulary...), backend, logger)
	patterns.Load()
	return patterns
}

// findWebDir searches for the web directory in common locations.
// It checks: "web", "../web", "../../web", and ~/.lipread/web.
// Returns the first existing directory or empty string if none found.
func findWebDir() string {
	// Check relative paths from current working directory
	relativePaths := []string{"web", "../web", "../../web"}
	for _, p := range relativePaths {
		if info, err := os.Stat(p); err == nil && info.IsDir() {
			absPath, err := filepath.Abs(p)
			if err == nil {
				return absPath
			}
			return p
		}
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return ""
	}

	homeWebDir := filepath.Join(homeDir, ".lipread", "web")
	if info, err := os.Stat(homeWebDir); err == nil && info.IsDir() {
		return homeWebDir
	}

	return ""
}
