package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/roach88/undoredo/internal/metrics"
	"github.com/roach88/undoredo/internal/store"
	"github.com/roach88/undoredo/internal/undo"
)

// ShellOptions holds flags for the shell command.
type ShellOptions struct {
	*RootOptions
	DB          string
	Watch       []string
	Config      string
	AutoBarrier bool
	MetricsAddr string
}

// NewShellCommand creates the shell command.
func NewShellCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ShellOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "shell",
		Short: "Run an undo/redo session over a database",
		Long: `Read lines from stdin and run them against the database. Lines starting
with a dot are engine commands; anything else is executed as SQL.

Commands:
  .activate [table...]  start recording (defaults to --watch)
  .deactivate           stop recording and discard history
  .freeze / .unfreeze   suspend recording; unfreeze discards frozen changes
  .barrier              close the current undoable unit
  .undo / .redo         step one unit
  .status               print engine state
  .log                  print the change log
  .quit                 end the session

Examples:
  undoredo shell --db app.db --watch tbl1,tbl2
  undoredo shell --config undoredo.cue --auto-barrier < script.sql`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runShell(cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.DB, "db", "", "path to SQLite database")
	cmd.Flags().StringSliceVar(&opts.Watch, "watch", nil, "tables to activate at start")
	cmd.Flags().StringVar(&opts.Config, "config", "", "path to undoredo.cue")
	cmd.Flags().BoolVar(&opts.AutoBarrier, "auto-barrier", false, "run a barrier after every SQL statement")
	cmd.Flags().StringVar(&opts.MetricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address (e.g. :9090)")

	return cmd
}

func runShell(cmd *cobra.Command, opts *ShellOptions) error {
	s, err := resolveSettings(opts.Config, opts.DB, cmd.Flags().Changed("db"), opts.Watch, cmd.Flags().Changed("watch"))
	if err != nil {
		return err
	}

	logger := newLogger(opts.RootOptions, cmd.ErrOrStderr(), s.Level)

	st, err := store.Open(s.Database)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer st.Close()

	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	eng := undo.New(st, undo.WithLogger(logger), undo.WithObserver(m))
	d := undo.NewDispatcher(eng, undo.WithTracker(m))

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	runErr := make(chan error, 1)
	go func() { runErr <- d.Run(ctx) }()
	defer func() {
		d.Stop()
		if err := <-runErr; err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("dispatcher exited", "error", err)
		}
	}()

	if opts.MetricsAddr != "" {
		srv := &http.Server{
			Addr:              opts.MetricsAddr,
			Handler:           promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("metrics server", "error", err)
			}
		}()
		defer srv.Close()
		logger.Info("serving metrics", "addr", opts.MetricsAddr)
	}

	sh := &shell{
		dispatcher:  d,
		out:         newFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr()),
		watch:       s.Watch,
		autoBarrier: opts.AutoBarrier,
	}

	if len(s.Watch) > 0 {
		sh.op(ctx, undo.Command{Kind: undo.CmdActivate, Tables: s.Watch})
	}

	return sh.run(ctx, cmd.InOrStdin())
}

// shell is one interactive session. Every command goes through the
// dispatcher.
type shell struct {
	dispatcher  *undo.Dispatcher
	out         *OutputFormatter
	watch       []string
	autoBarrier bool
}

var dotCommands = map[string]undo.CommandKind{
	".deactivate": undo.CmdDeactivate,
	".freeze":     undo.CmdFreeze,
	".unfreeze":   undo.CmdUnfreeze,
	".barrier":    undo.CmdBarrier,
	".undo":       undo.CmdUndo,
	".redo":       undo.CmdRedo,
	".status":     undo.CmdStatus,
}

func (sh *shell) run(ctx context.Context, in io.Reader) error {
	// Lines are read on their own goroutine so an interrupt ends the
	// session while stdin is blocked.
	lines := make(chan string)
	readErr := make(chan error, 1)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
		readErr <- scanner.Err()
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case line, ok := <-lines:
			if !ok {
				select {
				case err := <-readErr:
					if err != nil {
						return WrapExitError(ExitCommandError, "failed to read input", err)
					}
				default:
				}
				return nil
			}
			line = strings.TrimSpace(line)
			if line == "" || strings.HasPrefix(line, "--") {
				continue
			}
			if !sh.handle(ctx, line) {
				return nil
			}
		}
	}
}

// handle runs one line and reports whether the session continues.
func (sh *shell) handle(ctx context.Context, line string) bool {
	if !strings.HasPrefix(line, ".") {
		sh.sql(ctx, line)
		return true
	}

	fields := strings.Fields(line)
	switch name := fields[0]; name {
	case ".quit", ".exit":
		return false
	case ".activate":
		tables := fields[1:]
		if len(tables) == 0 {
			tables = sh.watch
		}
		sh.op(ctx, undo.Command{Kind: undo.CmdActivate, Tables: tables})
	case ".log":
		sh.log(ctx)
	default:
		kind, ok := dotCommands[name]
		if !ok {
			sh.fail(CodeInvalidArgs, fmt.Sprintf("unknown command %s", name))
			return true
		}
		sh.op(ctx, undo.Command{Kind: kind})
	}
	return true
}

// op runs an engine command and prints the resulting status.
func (sh *shell) op(ctx context.Context, cmd undo.Command) {
	res, err := sh.dispatcher.Do(ctx, cmd)
	if err != nil {
		sh.engineError(err)
		return
	}
	_ = sh.out.Success(statusView(res.Status))
}

func (sh *shell) sql(ctx context.Context, text string) {
	if isQuery(text) {
		res, err := sh.dispatcher.Do(ctx, undo.Command{Kind: undo.CmdQuery, SQL: text})
		if err != nil {
			sh.engineError(err)
			return
		}
		sh.rows(res.Columns, res.Rows)
		return
	}

	res, err := sh.dispatcher.Do(ctx, undo.Command{Kind: undo.CmdExec, SQL: text})
	if err != nil {
		sh.engineError(err)
		return
	}
	sh.out.VerboseLog("%d row(s) affected", res.RowsAffected)

	if sh.autoBarrier {
		if _, err := sh.dispatcher.Do(ctx, undo.Command{Kind: undo.CmdBarrier}); err != nil {
			sh.engineError(err)
		}
	}
}

func (sh *shell) log(ctx context.Context) {
	res, err := sh.dispatcher.Do(ctx, undo.Command{Kind: undo.CmdStatus})
	if err != nil {
		sh.engineError(err)
		return
	}
	if !res.Status.Active {
		sh.rows([]string{"seq", "sql"}, nil)
		return
	}

	res, err = sh.dispatcher.Do(ctx, undo.Command{
		Kind: undo.CmdQuery,
		SQL:  "SELECT seq, sql FROM " + store.LogTable + " ORDER BY seq",
	})
	if err != nil {
		sh.engineError(err)
		return
	}
	sh.rows(res.Columns, res.Rows)
}

// rows prints query output: tab-separated lines in text mode.
func (sh *shell) rows(columns []string, rows [][]any) {
	if sh.out.JSON() {
		if rows == nil {
			rows = [][]any{}
		}
		_ = sh.out.Success(queryView{Columns: columns, Rows: rows})
		return
	}

	w := sh.out.Writer
	for _, row := range rows {
		cells := make([]string, len(row))
		for i, v := range row {
			cells[i] = textValue(v)
		}
		fmt.Fprintln(w, strings.Join(cells, "\t"))
	}
}

func (sh *shell) engineError(err error) {
	code := CodeEngine
	if c := undo.CodeOf(err); c != "" {
		code = string(c)
	}
	sh.fail(code, err.Error())
}

func (sh *shell) fail(code, message string) {
	_ = sh.out.Error(code, message, nil)
}

// statusView is the printed form of engine state.
type statusView undo.Status

func (v statusView) String() string {
	if !v.Active {
		return "inactive"
	}
	s := fmt.Sprintf("active firstlog=%d undo=%d redo=%d", v.FirstLog, v.UndoDepth, v.RedoDepth)
	if v.Frozen {
		s += fmt.Sprintf(" frozen@%d", v.FreezeCutoff)
	}
	return s
}

type queryView struct {
	Columns []string `json:"columns"`
	Rows    [][]any  `json:"rows"`
}

// isQuery reports whether text returns rows rather than modifying data.
func isQuery(text string) bool {
	word, _, _ := strings.Cut(text, " ")
	switch strings.ToUpper(word) {
	case "SELECT", "PRAGMA", "WITH", "VALUES", "EXPLAIN":
		return true
	}
	return false
}

func textValue(v any) string {
	if v == nil {
		return "NULL"
	}
	return fmt.Sprint(v)
}
