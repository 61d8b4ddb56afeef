package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/undoredo/internal/store"
	"github.com/roach88/undoredo/internal/trigger"
)

// TriggersOptions holds flags for the triggers command.
type TriggersOptions struct {
	*RootOptions
	DB     string
	Config string
}

// TriggerSQL is the JSON form of one table's triggers.
type TriggerSQL struct {
	Table  string `json:"table"`
	Insert string `json:"insert"`
	Update string `json:"update"`
	Delete string `json:"delete"`
}

// NewTriggersCommand creates the triggers command.
func NewTriggersCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TriggersOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "triggers [table...]",
		Short: "Print the triggers generated for tables",
		Long: `Print the CREATE TEMP TRIGGER statements that activation would install
for each table, using the columns of the table in the database. Nothing is
installed.

With no table arguments the watch list from --config is used.

Examples:
  undoredo triggers --db app.db tbl1 tbl2
  undoredo triggers --config undoredo.cue --format json`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTriggers(cmd, opts, args)
		},
	}

	cmd.Flags().StringVar(&opts.DB, "db", "", "path to SQLite database")
	cmd.Flags().StringVar(&opts.Config, "config", "", "path to undoredo.cue")

	return cmd
}

func runTriggers(cmd *cobra.Command, opts *TriggersOptions, tables []string) error {
	f := newFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())

	s, err := resolveSettings(opts.Config, opts.DB, cmd.Flags().Changed("db"), tables, len(tables) > 0)
	if err != nil {
		return err
	}
	if len(s.Watch) == 0 {
		return NewExitError(ExitCommandError, "no tables: pass table names or set watch in --config")
	}

	st, err := store.Open(s.Database)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer st.Close()

	ctx := context.Background()
	sets := make([]TriggerSQL, 0, len(s.Watch))
	for _, table := range s.Watch {
		set, err := trigger.Build(ctx, st, table)
		if err != nil {
			return WrapExitError(ExitCommandError, fmt.Sprintf("table %s", table), err)
		}
		sets = append(sets, TriggerSQL{
			Table:  set.Table,
			Insert: set.Insert,
			Update: set.Update,
			Delete: set.Delete,
		})
	}

	if f.JSON() {
		return f.Success(sets)
	}

	w := cmd.OutOrStdout()
	for i, set := range sets {
		if i > 0 {
			fmt.Fprintln(w)
		}
		fmt.Fprintf(w, "-- %s\n", set.Table)
		for _, stmt := range []string{set.Insert, set.Update, set.Delete} {
			fmt.Fprintln(w, stmt)
		}
	}
	return nil
}
