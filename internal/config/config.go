// Package config loads undoredo settings from a CUE file.
//
//	database: "app.db"
//	watch: ["tbl1", "tbl2"]
//	log_level: "info"
package config

import (
	"fmt"
	"log/slog"
	"os"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"
)

// Config is the resolved configuration.
type Config struct {
	Database string
	Watch    []string
	LogLevel string
}

var knownFields = map[string]bool{
	"database":  true,
	"watch":     true,
	"log_level": true,
}

var levels = map[string]slog.Level{
	"debug": slog.LevelDebug,
	"info":  slog.LevelInfo,
	"warn":  slog.LevelWarn,
	"error": slog.LevelError,
}

// FieldError reports a problem with one configuration field.
type FieldError struct {
	Field   string
	Message string
	Pos     token.Pos
}

func (e *FieldError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(),
			e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Load reads and validates the CUE file at path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(data, path)
}

// Parse validates CUE source. filename is used in error positions.
func Parse(data []byte, filename string) (*Config, error) {
	v := cuecontext.New().CompileBytes(data, cue.Filename(filename))
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	fields, err := v.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}
	for fields.Next() {
		name := fields.Selector().String()
		if !knownFields[name] {
			return nil, &FieldError{Field: name, Message: "unknown field", Pos: fields.Value().Pos()}
		}
	}

	cfg := &Config{LogLevel: "info"}

	dbVal := v.LookupPath(cue.ParsePath("database"))
	if !dbVal.Exists() {
		return nil, &FieldError{Field: "database", Message: "database is required", Pos: v.Pos()}
	}
	if cfg.Database, err = dbVal.String(); err != nil {
		return nil, formatCUEError(err)
	}
	if cfg.Database == "" {
		return nil, &FieldError{Field: "database", Message: "database must not be empty", Pos: dbVal.Pos()}
	}

	if watchVal := v.LookupPath(cue.ParsePath("watch")); watchVal.Exists() {
		iter, err := watchVal.List()
		if err != nil {
			return nil, formatCUEError(err)
		}
		for iter.Next() {
			table, err := iter.Value().String()
			if err != nil {
				return nil, formatCUEError(err)
			}
			cfg.Watch = append(cfg.Watch, table)
		}
	}

	if levelVal := v.LookupPath(cue.ParsePath("log_level")); levelVal.Exists() {
		level, err := levelVal.String()
		if err != nil {
			return nil, formatCUEError(err)
		}
		if _, ok := levels[level]; !ok {
			return nil, &FieldError{
				Field:   "log_level",
				Message: fmt.Sprintf("unknown level %q (want debug, info, warn or error)", level),
				Pos:     levelVal.Pos(),
			}
		}
		cfg.LogLevel = level
	}

	return cfg, nil
}

// Level returns the slog level for LogLevel.
func (c *Config) Level() slog.Level {
	return levels[c.LogLevel]
}

// ParseLevel maps a level name to its slog level.
func ParseLevel(name string) (slog.Level, bool) {
	l, ok := levels[name]
	return l, ok
}

// formatCUEError keeps the position of the first CUE error.
func formatCUEError(err error) error {
	errs := errors.Errors(err)
	if len(errs) == 0 {
		return err
	}

	first := errs[0]
	if positions := errors.Positions(first); len(positions) > 0 {
		return &FieldError{Field: "cue", Message: first.Error(), Pos: positions[0]}
	}
	return err
}
