package harness

import (
	"fmt"
	"io"
	"log/slog"
	"math/big"
	"os"

	"github.com/roach88/sollayout/internal/extract"
	"github.com/roach88/sollayout/internal/ir"
	"github.com/roach88/sollayout/internal/layout"
	"github.com/roach88/sollayout/internal/locate"
)

// Option configures a scenario run.
type Option func(*runConfig)

type runConfig struct {
	logger *slog.Logger
}

// WithLogger routes resolver debug output to l.
func WithLogger(l *slog.Logger) Option {
	return func(c *runConfig) {
		c.logger = l
	}
}

// Run executes a scenario and returns the result.
//
// Execution flow:
//  1. Read and scan the source
//  2. Lay out the scenario's struct
//  3. Check the layout invariants
//  4. Place the layout at the base, if any
//  5. Compare against expect or expect_error
//
// Layout failures are results, not errors: the returned error is reserved
// for scenarios that cannot run at all (unreadable source, bad base).
func Run(scenario *Scenario, opts ...Option) (*Result, error) {
	cfg := runConfig{logger: slog.New(slog.NewTextHandler(io.Discard, nil))}
	for _, opt := range opts {
		opt(&cfg)
	}

	src, err := readSource(scenario)
	if err != nil {
		return nil, err
	}

	var base *big.Int
	if scenario.Base != "" {
		if base, err = locate.ParseBase(scenario.Base); err != nil {
			return nil, fmt.Errorf("scenario %s: %w", scenario.Name, err)
		}
	}

	result := NewResult()
	l, err := computeLayout(src, scenario.Struct, cfg.logger)
	if err != nil {
		result.ErrorCode = layout.CodeOf(err)
		result.ErrorMessage = err.Error()
		checkError(result, scenario, err)
		return result, nil
	}

	result.Layout = l
	if err := layout.CheckInvariants(l); err != nil {
		result.AddError(err.Error())
	}
	if base != nil {
		result.Locations = locate.Locate(base, l)
	}

	if scenario.ExpectError != "" {
		result.AddError(fmt.Sprintf("expected error %s, got a layout of %d slots",
			scenario.ExpectError, l.TotalSlots()))
		return result, nil
	}
	for _, msg := range EvaluateExpect(result, scenario.Expect) {
		result.AddError(msg)
	}
	return result, nil
}

func readSource(s *Scenario) ([]byte, error) {
	if s.SourceFile == "" {
		return []byte(s.Source), nil
	}
	src, err := os.ReadFile(s.SourceFile)
	if err != nil {
		return nil, fmt.Errorf("scenario %s: failed to read source: %w", s.Name, err)
	}
	return src, nil
}

func computeLayout(src []byte, structName string, logger *slog.Logger) (*ir.StructLayout, error) {
	unit, err := extract.Scan(src)
	if err != nil {
		return nil, err
	}
	return layout.NewResolver(unit, layout.WithLogger(logger)).Layout(structName)
}

// checkError compares a layout failure with expect_error.
func checkError(result *Result, s *Scenario, err error) {
	if s.ExpectError == "" {
		result.AddError(fmt.Sprintf("layout failed: %v", err))
		return
	}
	want := errorKinds[s.ExpectError]
	if result.ErrorCode != want {
		result.AddError(fmt.Sprintf("expected error %s (%s), got [%s] %v",
			s.ExpectError, want, result.ErrorCode, err))
	}
}
