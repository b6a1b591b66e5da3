package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/sollayout/internal/layout"
)

// CompileOptions holds flags for the compile command.
type CompileOptions struct {
	*RootOptions
	Output string // output file path
}

// CompilationResult holds the compiled layouts.
type CompilationResult struct {
	Files   int            `json:"files"`
	Structs []StructReport `json:"structs"`
}

// NewCompileCommand creates the compile command.
func NewCompileCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CompileOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "compile <specs-dir>",
		Short: "Compile CUE struct specs to layouts",
		Long: `Compile CUE struct specs to storage layouts.

The specs directory is loaded as one CUE package. Structs are declared as

  struct: Outer: fields: [{name: "m", type: "bool"}, {name: "n", type: "Inner"}]
  enum: Color: ["Red", "Green"]
  alias: Price: "uint128"

With --output the layouts are written as canonical JSON, the form their
fingerprints are computed over.`,
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

func runCompile(opts *CompileOptions, specsDir string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	loaded, err := LoadSpecs(specsDir)
	if err != nil {
		return outputLoadError(formatter, err)
	}

	formatter.VerboseLog("Found %d CUE file(s) in %s", loaded.FileCount, specsDir)
	for _, name := range loaded.Unit.StructNames() {
		formatter.VerboseLog("Compiling struct: %s", name)
	}

	layouts, failures, err := computeLayouts(cmd.Context(), loaded.Unit, nil, layout.WithLogger(opts.logger()))
	if err != nil {
		return outputCommandError(formatter, ErrCodeGeneric, err.Error())
	}
	if len(failures) > 0 {
		// Compilation errors are command-level errors (exit code 2)
		first := failures[0]
		_ = formatter.Error(first.Code, first.Message, nil)
		return NewExitError(ExitCommandError, fmt.Sprintf("compilation failed: %s", first.Message))
	}

	result := CompilationResult{
		Files:   loaded.FileCount,
		Structs: make([]StructReport, 0, len(layouts)),
	}
	for _, l := range layouts {
		result.Structs = append(result.Structs, structReport(l, nil))
	}

	// Write to file if --output specified
	if opts.Output != "" {
		if err := writeLayoutsToFile(layouts, opts.Output); err != nil {
			return outputCommandError(formatter, ErrCodeWriteFailed, fmt.Sprintf("writing output file: %v", err))
		}
	}

	return outputCompileSuccess(formatter, result, opts.Output)
}

// outputCompileSuccess outputs successful compilation results.
func outputCompileSuccess(formatter *OutputFormatter, result CompilationResult, outputFile string) error {
	if formatter.Format == "json" {
		return formatter.Success(result)
	}

	// Human-readable text output
	fmt.Fprintf(formatter.Writer, "✓ Compiled %d struct(s) from %d file(s)\n\n", len(result.Structs), result.Files)

	fmt.Fprintln(formatter.Writer, "Structs:")
	for _, s := range result.Structs {
		suffix := "slots"
		if s.TotalSlots == 1 {
			suffix = "slot"
		}
		fmt.Fprintf(formatter.Writer, "  %s: %d %s, %d field(s)\n", s.Name, s.TotalSlots, suffix, len(s.Entries))
	}
	fmt.Fprintln(formatter.Writer)

	if outputFile != "" {
		fmt.Fprintf(formatter.Writer, "Wrote canonical layouts to %s\n", outputFile)
	}

	return nil
}
