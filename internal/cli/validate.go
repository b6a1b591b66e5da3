package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/sollayout/internal/compiler"
	"github.com/roach88/sollayout/internal/ir"
	"github.com/roach88/sollayout/internal/layout"
)

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid   bool                       `json:"valid"`
	Structs int                        `json:"structs"`
	Errors  []compiler.ValidationError `json:"errors,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <file.sol | specs-dir>",
		Short: "Check every struct without printing layouts",
		Long: `Check every struct declaration and report all problems at once:
duplicate or invalid names, empty structs and enums, unknown types,
invalid widths and lengths, and structs that contain themselves by value.

Unlike layout, validate does not stop at the first error.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true, // Don't print usage on errors
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args[0], cmd)
		},
	}

	return cmd
}

func runValidate(opts *RootOptions, path string, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd)

	loaded, err := LoadUnit(path)
	if err != nil {
		return outputLoadError(formatter, err)
	}
	formatter.VerboseLog("Read %d file(s) from %s", loaded.FileCount, path)

	validationErrors := validateUnit(loaded.Unit, opts, formatter)
	if len(validationErrors) > 0 {
		return outputValidationErrors(formatter, validationErrors)
	}

	return outputValidateSuccess(formatter, len(loaded.Unit.StructNames()))
}

// validateUnit collects declaration errors. A unit without any is laid
// out in full and every layout is checked against the packing invariants.
func validateUnit(unit *ir.Unit, opts *RootOptions, formatter *OutputFormatter) []compiler.ValidationError {
	errs := compiler.Validate(unit)
	if len(errs) > 0 {
		return errs
	}

	r := layout.NewResolver(unit, layout.WithLogger(opts.logger()))
	for _, def := range unit.Structs {
		name := def.QualifiedName()
		formatter.VerboseLog("Checking struct: %s", name)
		l, err := r.Layout(name)
		if err != nil {
			errs = append(errs, compiler.ValidationError{
				Field:   "structs." + name,
				Message: err.Error(),
				Code:    ErrorCode(err),
			})
			continue
		}
		if err := layout.CheckInvariants(l); err != nil {
			errs = append(errs, compiler.ValidationError{
				Field:   "structs." + name,
				Message: err.Error(),
				Code:    ErrCodeGeneric,
			})
		}
	}
	return errs
}

// outputValidateSuccess outputs successful validation results.
func outputValidateSuccess(formatter *OutputFormatter, structs int) error {
	if formatter.Format == "json" {
		return formatter.Success(ValidationResult{Valid: true, Structs: structs})
	}

	fmt.Fprintf(formatter.Writer, "✓ All %d struct(s) valid\n", structs)
	return nil
}

// outputValidationErrors outputs multiple validation errors.
func outputValidationErrors(formatter *OutputFormatter, errs []compiler.ValidationError) error {
	if formatter.Format == "json" {
		result := ValidationResult{
			Valid:  false,
			Errors: errs,
		}

		response := CLIResponse{
			Status: "error",
			Data:   result,
			Error: &CLIError{
				Code:    errs[0].Code,
				Message: errs[0].Message,
			},
		}

		encoder := json.NewEncoder(formatter.Writer)
		encoder.SetIndent("", "  ")
		if err := encoder.Encode(response); err != nil {
			return err
		}

		// Validation failures = exit code 1 (test/validation failure)
		return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(errs)))
	}

	// Text format
	fmt.Fprintln(formatter.Writer, "✗ Validation failed")
	fmt.Fprintln(formatter.Writer)

	for _, err := range errs {
		if err.Line > 0 {
			fmt.Fprintf(formatter.Writer, "line %d\n", err.Line)
		}
		fmt.Fprintf(formatter.Writer, "  %s: %s\n\n", err.Code, err.Message)
	}

	// Validation failures = exit code 1 (test/validation failure)
	return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(errs)))
}
