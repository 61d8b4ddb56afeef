package trigger

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/roach88/undoredo/internal/store"
)

// Install recreates the change log and installs triggers for every table.
// Any existing change log is dropped first.
func Install(ctx context.Context, st *store.Store, tables []string) error {
	if err := st.ResetLog(ctx); err != nil {
		return err
	}

	for _, table := range tables {
		set, err := Build(ctx, st, table)
		if err != nil {
			return err
		}
		for _, stmt := range set.Statements() {
			if _, err := st.Exec(ctx, stmt); err != nil {
				return fmt.Errorf("install triggers for %s: %w", table, err)
			}
		}
		slog.Debug("triggers installed", "table", table)
	}

	return nil
}

// Build introspects a table's columns and generates its trigger set
// without installing it.
func Build(ctx context.Context, st *store.Store, table string) (Set, error) {
	if !ValidTable(table) {
		return Set{}, fmt.Errorf("invalid table name %q: must match pattern %s", table, validIdentifier.String())
	}
	cols, err := st.Columns(ctx, table)
	if err != nil {
		return Set{}, err
	}
	return Generate(table, cols)
}

// Drop removes every temp trigger that follows the engine naming convention
// and drops the change log.
func Drop(ctx context.Context, st *store.Store) error {
	names, err := st.TempTriggers(ctx)
	if err != nil {
		return err
	}

	for _, name := range names {
		if !IsEngineTrigger(name) {
			continue
		}
		if _, err := st.Exec(ctx, "DROP TRIGGER IF EXISTS temp."+quoteIdent(name)); err != nil {
			return fmt.Errorf("drop trigger %s: %w", name, err)
		}
	}

	return st.DropLog(ctx)
}
