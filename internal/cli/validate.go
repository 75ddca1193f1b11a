package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/jwpure/internal/constraint"
	"github.com/roach88/jwpure/internal/plan"
)

// ValidateOptions holds flags for the validate command.
type ValidateOptions struct {
	*RootOptions
	Slots string // optional CSV whose header replaces the standard slot columns
}

// ValidationIssue is one problem found in a plan.
type ValidationIssue struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid  bool              `json:"valid"`
	Passes int               `json:"passes"`
	Errors []ValidationIssue `json:"errors,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ValidateOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "validate <plan.cue>",
		Short: "Check plan columns against the table descriptors",
		Long: `Compile a plan and check that every constraint references a known
column of the slot, config or visit table.

By default the slot table has the standard columns (slot_id, visit_id,
config_id, slotdur, inst, ra, dec, elat, glat, cycle, ...). With --slots
the slot columns are taken from the header of that CSV instead.

Exit codes:
  0 - Plan is valid
  1 - Plan references unknown columns
  2 - Command error (plan does not compile, etc.)`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true, // Don't print usage on errors
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Slots, "slots", "", "slot CSV whose columns define the slot table")

	return cmd
}

func runValidate(opts *ValidateOptions, planPath string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	p, err := loadPlan(planPath)
	if err != nil {
		return outputLoadError(formatter, err)
	}

	slot, config, visit := constraint.Parameters()
	if opts.Slots != "" {
		t, err := readSlots(opts.Slots)
		if err != nil {
			return outputLoadError(formatter, err)
		}
		slot = constraint.SlotTable(t.Columns...)
		formatter.VerboseLog("Slot columns from %s: %v", opts.Slots, slot.Columns())
	}

	for _, pass := range p.Passes {
		formatter.VerboseLog("Validating pass: %s", pass.Name)
	}

	issues := plan.Validate(p, slot, config, visit)
	if len(issues) > 0 {
		errs := make([]ValidationIssue, len(issues))
		for i, issue := range issues {
			errs[i] = ValidationIssue{Code: ErrCodePlanColumn, Message: issue}
		}
		return outputValidationErrors(formatter, len(p.Passes), errs)
	}

	return outputValidateSuccess(formatter, len(p.Passes))
}

// outputValidateSuccess outputs successful validation results.
func outputValidateSuccess(formatter *OutputFormatter, passes int) error {
	if formatter.Format == "json" {
		return formatter.Success(ValidationResult{Valid: true, Passes: passes})
	}

	fmt.Fprintf(formatter.Writer, "✓ Plan valid (%d pass(es))\n", passes)
	return nil
}

// outputValidationErrors outputs multiple validation errors.
func outputValidationErrors(formatter *OutputFormatter, passes int, errs []ValidationIssue) error {
	if formatter.Format == "json" {
		response := CLIResponse{
			Status: "error",
			Data: ValidationResult{
				Valid:  false,
				Passes: passes,
				Errors: errs,
			},
			Error: &CLIError{
				Code:    errs[0].Code,
				Message: errs[0].Message,
			},
			TraceID: formatter.TraceID,
		}

		if err := formatter.encode(response); err != nil {
			return err
		}

		// Validation failures = exit code 1
		return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(errs)))
	}

	// Text format
	fmt.Fprintln(formatter.Writer, "✗ Validation failed")
	fmt.Fprintln(formatter.Writer)

	for _, err := range errs {
		fmt.Fprintf(formatter.Writer, "  %s: %s\n", err.Code, err.Message)
	}

	// Validation failures = exit code 1
	return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(errs)))
}
