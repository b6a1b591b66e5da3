package harness

import (
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/sollayout/internal/ir"
)

// Snapshot is the canonical JSON recorded in golden files: the scenario
// name plus either the layout (and its locations) or the error.
func Snapshot(scenario *Scenario, result *Result) ([]byte, error) {
	snapshot := map[string]any{
		"scenario": scenario.Name,
	}

	if result.Layout != nil {
		snapshot["layout"] = result.Layout.CanonicalMap()
	} else {
		snapshot["error"] = map[string]any{
			"code":    result.ErrorCode,
			"message": result.ErrorMessage,
		}
	}

	if len(result.Locations) > 0 {
		locs := make([]any, len(result.Locations))
		for i, loc := range result.Locations {
			locs[i] = map[string]any{
				"name":   loc.Name,
				"slot":   loc.SlotHex,
				"offset": loc.Offset,
			}
		}
		snapshot["locations"] = locs
	}

	return ir.MarshalCanonical(snapshot)
}

// RunWithGolden executes a scenario and compares its snapshot against a
// golden file stored in testdata/golden/{scenario.Name}.golden
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
//
// Returns error if scenario execution fails. Test failure (via goldie)
// occurs if the snapshot doesn't match the golden file.
func RunWithGolden(t *testing.T, scenario *Scenario) (*Result, error) {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return nil, err
	}
	if err := AssertGolden(t, scenario, result); err != nil {
		return nil, err
	}
	return result, nil
}

// AssertGolden compares an existing result against its golden file without
// re-running the scenario.
func AssertGolden(t *testing.T, scenario *Scenario, result *Result) error {
	t.Helper()

	data, err := Snapshot(scenario, result)
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenario.Name, data)
	return nil
}
