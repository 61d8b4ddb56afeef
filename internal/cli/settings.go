package cli

import (
	"log/slog"

	"github.com/roach88/undoredo/internal/config"
)

// settings is the merged view of a CUE config file and command flags.
type settings struct {
	Database string
	Watch    []string
	Level    slog.Level
}

// resolveSettings loads configPath when set and lets explicit flags win.
// A database is required from one source or the other.
func resolveSettings(configPath, db string, dbSet bool, watch []string, watchSet bool) (*settings, error) {
	s := &settings{Level: slog.LevelInfo}

	if configPath != "" {
		cfg, err := config.Load(configPath)
		if err != nil {
			return nil, WrapExitError(ExitCommandError, "failed to load config", err)
		}
		s.Database = cfg.Database
		s.Watch = cfg.Watch
		s.Level = cfg.Level()
	}

	if dbSet || s.Database == "" {
		s.Database = db
	}
	if watchSet {
		s.Watch = watch
	}

	if s.Database == "" {
		return nil, NewExitError(ExitCommandError, "no database: pass --db or set database in --config")
	}
	return s, nil
}
