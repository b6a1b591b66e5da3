package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/sollayout/internal/extract"
	"github.com/roach88/sollayout/internal/ir"
	"github.com/roach88/sollayout/internal/layout"
	"github.com/roach88/sollayout/internal/locate"
	"github.com/roach88/sollayout/internal/store"
)

// LayoutOptions holds flags for the layout command.
type LayoutOptions struct {
	*RootOptions
	Structs  []string // structs to lay out, all when empty
	Base     string   // base location spec
	Hex      bool     // print relative slots in hex
	Database string   // audit database path
	Output   string   // canonical JSON output file
}

// EntryReport is one row of a printed layout.
type EntryReport struct {
	Name     string `json:"name"`
	Type     string `json:"type"`
	Kind     string `json:"kind"`
	Slot     int    `json:"slot"`
	Offset   int    `json:"offset"`
	Size     int    `json:"size"`
	Location string `json:"location,omitempty"`
}

// StructReport is one laid-out struct.
type StructReport struct {
	Name        string        `json:"name"`
	TotalSlots  int           `json:"total_slots"`
	Fingerprint string        `json:"fingerprint"`
	Entries     []EntryReport `json:"entries"`
}

// StructFailure is a struct that could not be laid out.
type StructFailure struct {
	Name    string `json:"name"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// LayoutResult is the data payload of the layout command.
type LayoutResult struct {
	Source     string          `json:"source"`
	SourceHash string          `json:"source_hash"`
	Base       string          `json:"base,omitempty"`
	RunID      string          `json:"run_id,omitempty"`
	Structs    []StructReport  `json:"structs"`
	Failures   []StructFailure `json:"failures,omitempty"`
}

// NewLayoutCommand creates the layout command.
func NewLayoutCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &LayoutOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "layout <file.sol | specs-dir>",
		Short: "Compute struct storage layouts",
		Long: `Compute the storage layout of every struct in a Solidity file or CUE
specs directory, or only of the structs named with --struct.

With --base the layout is placed at an absolute location:
  42, 0x2a                 a slot number
  erc7201:<namespace id>   ERC-7201 namespaced storage
  keccak:<string>          keccak256 of a string (diamond storage)

A struct that cannot be laid out is reported on its own; the others are
still printed and the command exits 1. Failed runs are neither recorded
nor written to --output.

Examples:
  sollayout layout Vault.sol
  sollayout layout Vault.sol --struct MainStorage --base erc7201:example.main
  sollayout layout Vault.sol --db audit.db --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLayout(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringArrayVar(&opts.Structs, "struct", nil, "struct to lay out (repeatable)")
	cmd.Flags().StringVar(&opts.Base, "base", "", "base location: slot number, erc7201:<id> or keccak:<string>")
	cmd.Flags().BoolVar(&opts.Hex, "hex", false, "print slots in hexadecimal")
	cmd.Flags().StringVar(&opts.Database, "db", "", "record the run in this SQLite database")
	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "write canonical layout JSON to file")

	return cmd
}

func runLayout(opts *LayoutOptions, path string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)
	logger := opts.logger()

	var base *big.Int
	if opts.Base != "" {
		var err error
		if base, err = locate.ParseBase(opts.Base); err != nil {
			return outputCommandError(formatter, ErrCodeGeneric, err.Error())
		}
	}

	loaded, err := LoadUnit(path)
	if err != nil {
		return outputLoadError(formatter, err)
	}
	formatter.VerboseLog("Read %d file(s) from %s", loaded.FileCount, path)

	layouts, failures, err := computeLayouts(cmd.Context(), loaded.Unit, opts.Structs, layout.WithLogger(logger))
	if err != nil {
		return outputCommandError(formatter, ErrCodeGeneric, err.Error())
	}

	result := LayoutResult{
		Source:     path,
		SourceHash: ir.SourceHash(loaded.Source),
		Base:       opts.Base,
		Structs:    make([]StructReport, 0, len(layouts)),
		Failures:   failures,
	}
	for _, l := range layouts {
		result.Structs = append(result.Structs, structReport(l, base))
	}
	if len(failures) > 0 {
		return outputLayoutFailures(formatter, result, opts.Hex)
	}

	if opts.Output != "" {
		if err := writeLayoutsToFile(layouts, opts.Output); err != nil {
			return outputCommandError(formatter, ErrCodeWriteFailed, fmt.Sprintf("writing output file: %v", err))
		}
		formatter.VerboseLog("Wrote canonical layouts to %s", opts.Output)
	}

	if opts.Database != "" {
		run, err := recordLayouts(cmd.Context(), opts.Database, result, layouts)
		if err != nil {
			return outputCommandError(formatter, ErrCodeWriteFailed, err.Error())
		}
		logger.Debug("recorded run", "id", run.ID, "seq", run.Seq, "layouts", len(run.Layouts))
		result.RunID = run.ID
		formatter.TraceID = run.ID
	}

	return outputLayoutSuccess(formatter, result, opts.Hex)
}

// computeLayouts lays out the named structs in order, or every struct when
// names is empty. A struct that fails is reported in failures and does not
// stop the others; err is set only when ctx is done.
func computeLayouts(ctx context.Context, unit *ir.Unit, names []string, opts ...layout.Option) ([]*ir.StructLayout, []StructFailure, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	r := layout.NewResolver(unit, opts...)

	var results []layout.Result
	if len(names) > 0 {
		for _, name := range names {
			if err := ctx.Err(); err != nil {
				return nil, nil, err
			}
			l, err := r.Layout(name)
			results = append(results, layout.Result{Name: name, Layout: l, Err: err})
		}
	} else {
		// Struct errors are carried in results.
		results, _ = r.LayoutAll(ctx)
		if err := ctx.Err(); err != nil {
			return nil, nil, err
		}
	}

	var (
		layouts  []*ir.StructLayout
		failures []StructFailure
	)
	for _, res := range results {
		if res.Err != nil {
			failures = append(failures, StructFailure{Name: res.Name, Code: ErrorCode(res.Err), Message: res.Err.Error()})
			continue
		}
		layouts = append(layouts, res.Layout)
	}
	return layouts, failures, nil
}

func structReport(l *ir.StructLayout, base *big.Int) StructReport {
	report := StructReport{
		Name:        l.Name,
		TotalSlots:  l.TotalSlots(),
		Fingerprint: ir.MustLayoutFingerprint(l),
		Entries:     make([]EntryReport, len(l.Entries)),
	}
	for i, e := range l.Entries {
		report.Entries[i] = EntryReport{
			Name:   e.Name(),
			Type:   e.TypeName(),
			Kind:   e.Field.Type.Kind.String(),
			Slot:   e.Slot,
			Offset: e.Offset,
			Size:   e.Size,
		}
	}
	if base != nil {
		for i, loc := range locate.Locate(base, l) {
			report.Entries[i].Location = loc.SlotHex
		}
	}
	return report
}

// recordLayouts stores the run in the audit database at path.
func recordLayouts(ctx context.Context, path string, result LayoutResult, layouts []*ir.StructLayout) (store.Run, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	st, err := store.Open(path)
	if err != nil {
		return store.Run{}, fmt.Errorf("opening database: %w", err)
	}
	defer st.Close()

	run := store.Run{
		Source:     result.Source,
		SourceHash: result.SourceHash,
		Base:       result.Base,
		Layouts:    make([]store.LayoutRecord, 0, len(layouts)),
	}
	for _, l := range layouts {
		rec, err := store.NewLayoutRecord(l)
		if err != nil {
			return store.Run{}, err
		}
		run.Layouts = append(run.Layouts, rec)
	}
	return st.RecordRun(ctx, run)
}

// writeLayoutsToFile writes the layouts as one canonical JSON array, the
// same bytes their fingerprints are computed from.
func writeLayoutsToFile(layouts []*ir.StructLayout, filename string) error {
	arr := make([]any, len(layouts))
	for i, l := range layouts {
		arr[i] = l.CanonicalMap()
	}
	data, err := ir.MarshalCanonical(arr)
	if err != nil {
		return fmt.Errorf("marshaling layouts: %w", err)
	}
	return os.WriteFile(filename, data, 0644)
}

func outputLayoutSuccess(formatter *OutputFormatter, result LayoutResult, hex bool) error {
	if formatter.Format == "json" {
		return formatter.Success(result)
	}

	w := formatter.Writer
	if result.Base != "" {
		fmt.Fprintf(w, "base %s\n\n", result.Base)
	}
	for _, s := range result.Structs {
		fmt.Fprintln(w, renderLayoutTable(s, hex))
		fmt.Fprintln(w)
	}
	if result.RunID != "" {
		fmt.Fprintf(w, "Recorded run %s\n", result.RunID)
	}
	return nil
}

// outputLayoutFailures prints the layouts that succeeded and one error per
// failed struct. The first failure's code is the response code.
func outputLayoutFailures(formatter *OutputFormatter, result LayoutResult, hex bool) error {
	first := result.Failures[0]
	message := first.Message
	if len(result.Failures) > 1 {
		message = fmt.Sprintf("%d of %d struct(s) failed to lay out", len(result.Failures), len(result.Failures)+len(result.Structs))
	}

	if formatter.Format == "json" {
		response := CLIResponse{
			Status: "error",
			Data:   result,
			Error:  &CLIError{Code: first.Code, Message: message},
		}
		if err := json.NewEncoder(formatter.Writer).Encode(response); err != nil {
			return err
		}
		return NewExitError(ExitFailure, message)
	}

	w := formatter.Writer
	for _, s := range result.Structs {
		fmt.Fprintln(w, renderLayoutTable(s, hex))
		fmt.Fprintln(w)
	}
	for _, f := range result.Failures {
		fmt.Fprintf(w, "Error [%s]: %s\n", f.Code, f.Message)
	}
	return NewExitError(ExitFailure, message)
}

// outputCommandError reports a command-level error (exit code 2).
func outputCommandError(formatter *OutputFormatter, code, message string) error {
	_ = formatter.Error(code, message, nil)
	return NewExitError(ExitCommandError, fmt.Sprintf("%s: %s", code, message))
}

// outputLoadError reports a failure to read the input. Scan errors are
// problems with the input itself and exit with ExitFailure.
func outputLoadError(formatter *OutputFormatter, err error) error {
	code := ErrorCode(err)
	msg := err.Error()
	var loadErr *LoadError
	if errors.As(err, &loadErr) {
		msg = loadErr.Message
		if loadErr.Pos.IsValid() {
			msg = fmt.Sprintf("%s:%d:%d: %s", loadErr.Pos.Filename(), loadErr.Pos.Line(), loadErr.Pos.Column(), msg)
		}
	}
	_ = formatter.Error(code, msg, nil)
	if code == extract.CodeScanError {
		return WrapExitError(ExitFailure, "scan failed", err)
	}
	return WrapExitError(ExitCommandError, "loading input", err)
}
