package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

// QueryOptions holds flags for the query command.
type QueryOptions struct {
	*RootOptions
	Slots    string // slot inventory CSV
	Database string // SQLite path, in-memory when empty
}

// NewQueryCommand creates the query command.
func NewQueryCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &QueryOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "query [plan.cue] <sql>",
		Short: "Run a SQL query against the slot database",
		Long: `Run an arbitrary SQL statement against the slot database and print
the resulting rows.

With --slots the inventory is loaded into a fresh database first. With a
plan argument every pass of the plan runs before the query.

Examples:
  jwpure query --db pure.db "SELECT inst, COUNT(*) FROM slot GROUP BY inst"
  jwpure query --slots slots.csv plan.cue "SELECT * FROM slot WHERE pure_subset = 1"`,
		Args:          cobra.RangeArgs(1, 2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			var planPath string
			if len(args) == 2 {
				planPath = args[0]
			}
			return runQuery(opts, planPath, args[len(args)-1], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Slots, "slots", "", "slot inventory CSV to load first")
	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (default in-memory)")

	return cmd
}

func runQuery(opts *QueryOptions, planPath, query string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)
	logger := newLogger(opts.RootOptions, cmd.ErrOrStderr())

	if opts.Slots == "" && opts.Database == "" {
		_ = formatter.Error(ErrCodeGeneric, "one of --slots or --db is required", nil)
		return NewExitError(ExitCommandError, "one of --slots or --db is required")
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	sess, err := openSession(ctx, opts.Database, opts.Slots, logger)
	if err != nil {
		return outputLoadError(formatter, err)
	}
	defer sess.Close(logger)

	if planPath != "" {
		p, err := loadPlan(planPath)
		if err != nil {
			return outputLoadError(formatter, err)
		}
		for _, pass := range p.Passes {
			formatter.VerboseLog("Running %s", pass.Name)
			if _, err := sess.engine.Allocate(ctx, pass.Where, pass.Limits); err != nil {
				return outputPassError(formatter, pass, err)
			}
		}
	}

	formatter.VerboseLog("Query: %s", query)
	t, err := sess.engine.RawQuery(ctx, query)
	if err != nil {
		_ = formatter.Error(ErrCodeQueryFailed, err.Error(), nil)
		return WrapExitError(ExitCommandError, ErrCodeQueryFailed, err)
	}

	if formatter.Format == "json" {
		return formatter.Success(NewTableData(t))
	}
	if err := formatter.Table(t); err != nil {
		return err
	}
	fmt.Fprintf(formatter.Writer, "(%d row(s))\n", t.Len())
	return nil
}
