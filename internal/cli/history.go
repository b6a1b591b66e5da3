package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/sollayout/internal/store"
)

// HistoryOptions holds flags for the history command.
type HistoryOptions struct {
	*RootOptions
	Database string
	RunID    string // optional - show one run
	Struct   string // optional - show one struct's layouts over time
}

// HistoryResult holds the history output. Exactly one of the fields is set.
type HistoryResult struct {
	Runs    []store.Run          `json:"runs,omitempty"`
	Run     *store.Run           `json:"run,omitempty"`
	Struct  string               `json:"struct,omitempty"`
	Layouts []store.HistoryEntry `json:"layouts,omitempty"`
}

// NewHistoryCommand creates the history command.
func NewHistoryCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &HistoryOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recorded layout runs",
		Long: `Show the runs recorded by "layout --db".

Without options every run is listed in recording order. --run shows one
run with the layouts it produced; --struct shows each distinct layout a
struct has had and the first run that produced it.

Examples:
  sollayout history --db ./audit.db
  sollayout history --db ./audit.db --run 0190a5c4-...
  sollayout history --db ./audit.db --struct MainStorage --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHistory(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	_ = cmd.MarkFlagRequired("db")
	cmd.Flags().StringVar(&opts.RunID, "run", "", "show a single run")
	cmd.Flags().StringVar(&opts.Struct, "struct", "", "show the layout history of a struct")
	cmd.MarkFlagsMutuallyExclusive("run", "struct")

	return cmd
}

func runHistory(opts *HistoryOptions, cmd *cobra.Command) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	formatter := newFormatter(opts.RootOptions, cmd)

	// Opening would create a fresh database; an unknown path is an error.
	if _, err := os.Stat(opts.Database); err != nil {
		return outputCommandError(formatter, ErrCodeNotFound, fmt.Sprintf("database not found: %s", opts.Database))
	}

	st, err := store.Open(opts.Database)
	if err != nil {
		return outputCommandError(formatter, ErrCodeGeneric, fmt.Sprintf("failed to open database: %v", err))
	}
	defer st.Close()

	var result HistoryResult
	switch {
	case opts.RunID != "":
		run, err := st.ReadRun(ctx, opts.RunID)
		if errors.Is(err, store.ErrRunNotFound) {
			return outputCommandError(formatter, ErrCodeNotFound, err.Error())
		}
		if err != nil {
			return outputCommandError(formatter, ErrCodeGeneric, fmt.Sprintf("failed to read run: %v", err))
		}
		result.Run = &run

	case opts.Struct != "":
		layouts, err := st.StructHistory(ctx, opts.Struct)
		if err != nil {
			return outputCommandError(formatter, ErrCodeGeneric, fmt.Sprintf("failed to read struct history: %v", err))
		}
		result.Struct = opts.Struct
		result.Layouts = layouts

	default:
		runs, err := st.ListRuns(ctx)
		if err != nil {
			return outputCommandError(formatter, ErrCodeGeneric, fmt.Sprintf("failed to list runs: %v", err))
		}
		result.Runs = runs
	}

	if opts.Format == "json" {
		return outputHistoryJSON(cmd, result)
	}
	return outputHistoryText(cmd, result, opts.Verbose)
}

func outputHistoryJSON(cmd *cobra.Command, result HistoryResult) error {
	response := CLIResponse{
		Status: "ok",
		Data:   result,
	}
	if result.Run != nil {
		response.TraceID = result.Run.ID
	}

	encoder := json.NewEncoder(cmd.OutOrStdout())
	encoder.SetIndent("", "  ")
	return encoder.Encode(response)
}

func outputHistoryText(cmd *cobra.Command, result HistoryResult, verbose bool) error {
	w := cmd.OutOrStdout()

	switch {
	case result.Run != nil:
		run := result.Run
		fmt.Fprintf(w, "=== Run %s ===\n", run.ID)
		fmt.Fprintf(w, "  Seq:         %d\n", run.Seq)
		fmt.Fprintf(w, "  Source:      %s\n", run.Source)
		fmt.Fprintf(w, "  Source hash: %s\n", truncateID(run.SourceHash))
		if run.Base != "" {
			fmt.Fprintf(w, "  Base:        %s\n", run.Base)
		}
		fmt.Fprintf(w, "  Tool:        %s (schema %s)\n", run.ToolVersion, run.SchemaVersion)
		fmt.Fprintln(w)

		fmt.Fprintln(w, "=== Layouts ===")
		for _, l := range run.Layouts {
			fmt.Fprintf(w, "  %s: %d slot(s) %s\n", l.Struct, l.TotalSlots, truncateID(l.Fingerprint))
			if verbose {
				fmt.Fprintf(w, "       %s\n", l.Canonical)
			}
		}

	case result.Struct != "":
		fmt.Fprintf(w, "=== %s ===\n", result.Struct)
		if len(result.Layouts) == 0 {
			fmt.Fprintln(w, "  (no recorded layouts)")
		}
		for _, h := range result.Layouts {
			fmt.Fprintf(w, "  [%d] %d slot(s) %s\n", h.FirstSeq, h.TotalSlots, truncateID(h.Fingerprint))
		}

	default:
		if len(result.Runs) == 0 {
			fmt.Fprintln(w, "No runs recorded.")
			return nil
		}
		fmt.Fprintln(w, "=== Runs ===")
		for _, run := range result.Runs {
			fmt.Fprintf(w, "  [%d] %s %s\n", run.Seq, truncateID(run.ID), run.Source)
			if verbose {
				fmt.Fprintf(w, "       ID: %s\n", run.ID)
			}
		}
	}

	return nil
}

// truncateID truncates a long ID for display.
func truncateID(id string) string {
	if len(id) <= 16 {
		return id
	}
	return id[:8] + "..." + id[len(id)-8:]
}
