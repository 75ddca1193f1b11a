package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/jwpure/internal/engine"
	"github.com/roach88/jwpure/internal/plan"
	"github.com/roach88/jwpure/internal/slotdata"
	"github.com/roach88/jwpure/internal/store"
)

// AllocateOptions holds flags for the allocate command.
type AllocateOptions struct {
	*RootOptions
	Slots      string // slot inventory CSV (required)
	Database   string // SQLite path, in-memory when empty
	Out        string // claimed slots CSV
	GroupBy    string // extra summary grouping column
	Trace      string // visit id to trace
	SummaryOut string // summary CSV plus the last WHERE clause
}

// PassSummary describes one committed pass.
type PassSummary struct {
	Name               string       `json:"name"`
	Subset             int64        `json:"subset"`
	MaxSlotsPerConfig  int          `json:"max_slots_per_config"`
	MaxConfigsPerVisit int          `json:"max_configs_per_visit"`
	Where              string       `json:"where"`
	Matched            int          `json:"matched"`
	Claimed            int          `json:"claimed"`
	Truncated          int          `json:"truncated"`
	Configs            int          `json:"configs"`
	Visits             int          `json:"visits"`
	Trace              []TraceTable `json:"trace,omitempty"`
}

// TraceTable is the traced visit's rows in one intermediate table.
type TraceTable struct {
	Title string    `json:"title"`
	Rows  TableData `json:"rows"`
}

// AllocateResult is the allocate command's payload.
type AllocateResult struct {
	Passes     []PassSummary `json:"passes"`
	Claimed    int           `json:"claimed"`
	Summary    TableData     `json:"summary"`
	Out        string        `json:"out,omitempty"`
	SummaryOut string        `json:"summary_out,omitempty"`
}

// NewAllocateCommand creates the allocate command.
func NewAllocateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &AllocateOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "allocate <plan.cue>",
		Short: "Run every pass of a plan over a slot inventory",
		Long: `Load a slot inventory, run every pass of an allocation plan and
report how many slots each pass claimed.

Passes run in plan order. Each pass commits or rolls back as a whole;
the first failing pass stops the run. Slots claimed by earlier passes
are kept.

With --slots the inventory is loaded into a new slot table. Without it,
--db must name a database written by an earlier run; allocation continues
there and subset indices pick up after the last committed pass.

Exit codes:
  0 - All passes committed
  1 - A pass failed
  2 - Command error (bad plan, unreadable slots, etc.)

Examples:
  jwpure allocate --slots slots.csv plan.cue
  jwpure allocate --slots slots.csv --db pure.db --out claimed.csv plan.cue
  jwpure allocate --db pure.db followup.cue
  jwpure allocate --slots slots.csv --group-by cycle --summary-out summary.csv plan.cue
  jwpure allocate --slots slots.csv --trace 01234500001 -v plan.cue`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAllocate(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Slots, "slots", "", "slot inventory CSV (required unless --db names an existing database)")
	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (default in-memory)")
	cmd.Flags().StringVarP(&opts.Out, "out", "o", "", "write claimed slots to this CSV file")
	cmd.Flags().StringVar(&opts.GroupBy, "group-by", "", "additional summary grouping column (e.g. cycle)")
	cmd.Flags().StringVar(&opts.Trace, "trace", "", "visit id to follow through every pass")
	cmd.Flags().StringVar(&opts.SummaryOut, "summary-out", "", "write the summary and last WHERE clause to this file")

	return cmd
}

func runAllocate(opts *AllocateOptions, planPath string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)
	logger := newLogger(opts.RootOptions, cmd.ErrOrStderr())

	if opts.Slots == "" && opts.Database == "" {
		_ = formatter.Error(ErrCodeGeneric, "one of --slots or --db is required", nil)
		return NewExitError(ExitCommandError, "one of --slots or --db is required")
	}

	p, err := loadPlan(planPath)
	if err != nil {
		return outputLoadError(formatter, err)
	}
	logger.Info("plan compiled", "path", planPath, "passes", len(p.Passes))

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	var engineOpts []engine.Option
	if opts.Trace != "" {
		engineOpts = append(engineOpts, engine.WithTrace(opts.Trace))
	}
	sess, err := openSession(ctx, opts.Database, opts.Slots, logger, engineOpts...)
	if err != nil {
		return outputLoadError(formatter, err)
	}
	defer sess.Close(logger)

	result := AllocateResult{Passes: make([]PassSummary, 0, len(p.Passes))}
	for _, pass := range p.Passes {
		formatter.VerboseLog("Running %s", pass.Name)
		r, err := sess.engine.Allocate(ctx, pass.Where, pass.Limits)
		if err != nil {
			return outputPassError(formatter, pass, err)
		}
		summary := newPassSummary(pass, r)
		result.Passes = append(result.Passes, summary)
		result.Claimed += r.Claimed

		if formatter.Format != "json" {
			if err := printPass(formatter, summary, r.Trace); err != nil {
				return err
			}
		}
	}

	sum, err := sess.engine.Summarize(ctx, opts.GroupBy)
	if err != nil {
		_ = formatter.Error(ErrCodeQueryFailed, err.Error(), nil)
		return WrapExitError(ExitCommandError, "summary failed", err)
	}
	result.Summary = NewTableData(sum)

	if opts.Out != "" {
		claimed, err := sess.engine.Export(ctx)
		if err != nil {
			_ = formatter.Error(ErrCodeQueryFailed, err.Error(), nil)
			return WrapExitError(ExitCommandError, "export failed", err)
		}
		if err := writeFile(opts.Out, func(w io.Writer) error {
			return slotdata.WriteCSV(w, claimed)
		}); err != nil {
			return outputWriteError(formatter, opts.Out, err)
		}
		result.Out = opts.Out
		logger.Info("claimed slots written", "path", opts.Out, "slots", claimed.Len())
	}

	if opts.SummaryOut != "" {
		lastWhere := sess.engine.LastWhere()
		if err := writeFile(opts.SummaryOut, func(w io.Writer) error {
			return writeSummary(w, sum, lastWhere)
		}); err != nil {
			return outputWriteError(formatter, opts.SummaryOut, err)
		}
		result.SummaryOut = opts.SummaryOut
	}

	return outputAllocateSuccess(formatter, result, sum)
}

func newPassSummary(pass plan.Pass, r *engine.PassResult) PassSummary {
	s := PassSummary{
		Name:               pass.Name,
		Subset:             r.Subset,
		MaxSlotsPerConfig:  pass.Limits.MaxSlotsPerConfig,
		MaxConfigsPerVisit: pass.Limits.MaxConfigsPerVisit,
		Where:              r.Where.Joint,
		Matched:            r.Matched,
		Claimed:            r.Claimed,
		Truncated:          r.Truncated,
		Configs:            r.Configs,
		Visits:             r.Visits,
	}
	for _, step := range r.Trace {
		s.Trace = append(s.Trace, TraceTable{Title: step.Title, Rows: NewTableData(step.Rows)})
	}
	return s
}

// printPass writes one pass line and any traced tables.
func printPass(formatter *OutputFormatter, s PassSummary, trace []engine.TraceStep) error {
	fmt.Fprintf(formatter.Writer, "✓ %s [subset %d]: matched %d, claimed %d, truncated %d\n",
		s.Name, s.Subset, s.Matched, s.Claimed, s.Truncated)
	for _, step := range trace {
		fmt.Fprintf(formatter.Writer, "\n%s\n", step.Title)
		if err := formatter.Table(step.Rows); err != nil {
			return err
		}
	}
	return nil
}

// outputPassError reports a failed pass. Pass failures exit with code 1.
func outputPassError(formatter *OutputFormatter, pass plan.Pass, err error) error {
	code := ErrCodePassFailed
	if errors.Is(err, engine.ErrInvalidLimits) {
		code = ErrCodeInvalidLimit
	}

	details := map[string]interface{}{"pass": pass.Name}
	if stage, ok := engine.FailedStage(err); ok {
		details["stage"] = string(stage)
	}

	_ = formatter.Error(code, fmt.Sprintf("%s: %v", pass.Name, err), details)
	return WrapExitError(ExitFailure, fmt.Sprintf("%s failed", pass.Name), err)
}

func outputWriteError(formatter *OutputFormatter, path string, err error) error {
	_ = formatter.Error(ErrCodeWriteFailed, fmt.Sprintf("writing %s: %v", path, err), nil)
	return WrapExitError(ExitCommandError, "write failed", err)
}

// writeFile creates path and fills it with write.
func writeFile(path string, write func(io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := write(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// writeSummary writes the summary as CSV, preceded by the last joint WHERE
// clause as a comment line.
func writeSummary(w io.Writer, sum *store.Table, lastWhere string) error {
	if _, err := fmt.Fprintf(w, "# last where: %s\n", lastWhere); err != nil {
		return err
	}
	return slotdata.WriteCSV(w, sum)
}

// outputAllocateSuccess outputs the allocation summary.
func outputAllocateSuccess(formatter *OutputFormatter, result AllocateResult, sum *store.Table) error {
	if formatter.Format == "json" {
		return formatter.Success(result)
	}

	fmt.Fprintln(formatter.Writer)
	if err := formatter.Table(sum); err != nil {
		return err
	}
	fmt.Fprintf(formatter.Writer, "Claimed %d slot(s) in %d pass(es)\n", result.Claimed, len(result.Passes))
	if result.Out != "" {
		fmt.Fprintf(formatter.Writer, "Wrote claimed slots to %s\n", result.Out)
	}
	if result.SummaryOut != "" {
		fmt.Fprintf(formatter.Writer, "Wrote summary to %s\n", result.SummaryOut)
	}
	return nil
}
