package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/jwpure/internal/engine"
)

// CompileOptions holds flags for the compile command.
type CompileOptions struct {
	*RootOptions
	Output string // output file path
}

// CompiledPass is a plan pass with its three WHERE clauses.
type CompiledPass struct {
	Name               string `json:"name"`
	MaxSlotsPerConfig  int    `json:"max_slots_per_config"`
	MaxConfigsPerVisit int    `json:"max_configs_per_visit"`
	Slot               string `json:"slot"`
	Config             string `json:"config"`
	Joint              string `json:"joint"`
}

// CompilationResult holds every compiled pass of a plan.
type CompilationResult struct {
	Passes []CompiledPass `json:"passes"`
}

// NewCompileCommand creates the compile command.
func NewCompileCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CompileOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "compile <plan.cue>",
		Short: "Compile a plan to SQL WHERE clauses",
		Long: `Compile every pass of an allocation plan and print the three
WHERE clauses the engine would use:

  slot    filters slot rows before config aggregation
  config  filters config rows before visit aggregation
  joint   filters the slot/config/visit join

No database is touched.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true, // Don't print usage on errors - we handle our own error output
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCompile(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "output file path")

	return cmd
}

func runCompile(opts *CompileOptions, planPath string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	p, err := loadPlan(planPath)
	if err != nil {
		return outputLoadError(formatter, err)
	}
	formatter.VerboseLog("Compiled %d pass(es) from %s", len(p.Passes), planPath)

	result := &CompilationResult{Passes: make([]CompiledPass, 0, len(p.Passes))}
	for _, pass := range p.Passes {
		clauses, err := engine.CompileClauses(pass.Where)
		if err != nil {
			_ = formatter.Error(ErrCodePlanNode, fmt.Sprintf("%s: %v", pass.Name, err), nil)
			return WrapExitError(ExitCommandError, fmt.Sprintf("%s: %s", ErrCodePlanNode, pass.Name), err)
		}
		result.Passes = append(result.Passes, CompiledPass{
			Name:               pass.Name,
			MaxSlotsPerConfig:  pass.Limits.MaxSlotsPerConfig,
			MaxConfigsPerVisit: pass.Limits.MaxConfigsPerVisit,
			Slot:               clauses.Slot,
			Config:             clauses.Config,
			Joint:              clauses.Joint,
		})
	}

	// Write to file if --output specified
	if opts.Output != "" {
		if err := writeCompiledToFile(result, opts.Output); err != nil {
			_ = formatter.Error(ErrCodeWriteFailed, fmt.Sprintf("writing output file: %v", err), nil)
			return WrapExitError(ExitCommandError, ErrCodeWriteFailed, err)
		}
	}

	return outputCompileSuccess(formatter, result, opts.Output)
}

// outputCompileSuccess outputs successful compilation results.
func outputCompileSuccess(formatter *OutputFormatter, result *CompilationResult, outputFile string) error {
	if formatter.Format == "json" {
		return formatter.Success(result)
	}

	fmt.Fprintf(formatter.Writer, "✓ Compiled %d pass(es)\n\n", len(result.Passes))

	for _, pass := range result.Passes {
		fmt.Fprintf(formatter.Writer, "%s (max %d slot(s) per config, %d config(s) per visit):\n",
			pass.Name, pass.MaxSlotsPerConfig, pass.MaxConfigsPerVisit)
		fmt.Fprintf(formatter.Writer, "  slot:   %s\n", orNone(pass.Slot))
		fmt.Fprintf(formatter.Writer, "  config: %s\n", orNone(pass.Config))
		fmt.Fprintf(formatter.Writer, "  joint:  %s\n\n", orNone(pass.Joint))
	}

	if outputFile != "" {
		fmt.Fprintf(formatter.Writer, "Wrote compiled plan to %s\n", outputFile)
	}

	return nil
}

func orNone(clause string) string {
	if clause == "" {
		return "(none)"
	}
	return clause
}

// writeCompiledToFile writes the compilation result to a file as indented JSON.
func writeCompiledToFile(result *CompilationResult, filename string) error {
	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling passes: %w", err)
	}

	if err := os.WriteFile(filename, data, 0644); err != nil {
		return fmt.Errorf("writing file: %w", err)
	}

	return nil
}
