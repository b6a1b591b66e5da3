package cli

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const packingScenario = `name: packing
description: small values share a slot
source: |
  struct S {
      uint256 a;
      bytes4 b;
      bool c;
      int88 d;
      uint256 e;
  }
struct: S
expect:
  total_slots: 3
  entries:
    - {name: d, slot: 1, offset: 5, size: 11}
`

const cycleScenario = `name: cycle
description: mutual by-value references
source: |
  struct A { B b; }
  struct B { A a; }
struct: A
expect_error: cyclic_struct_reference
`

const wrongScenario = `name: wrong
description: expects the wrong slot count
source: "struct S { uint256 a; }"
struct: S
expect:
  total_slots: 2
`

func TestTestCommandMissingArgs(t *testing.T) {
	_, err := execute(NewTestCommand(&RootOptions{Format: "text"}))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "accepts 1 arg")
}

func TestTestCommandNonExistentScenariosDir(t *testing.T) {
	_, err := execute(NewTestCommand(&RootOptions{Format: "text"}), "/nonexistent/scenarios")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "scenarios directory not found")
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestTestCommandEmptyScenariosDir(t *testing.T) {
	out, err := execute(NewTestCommand(&RootOptions{Format: "text"}), t.TempDir())
	require.NoError(t, err)
	assert.Contains(t, out, "No scenarios found")
}

func TestTestCommandEmptyScenariosDirJSON(t *testing.T) {
	out, err := execute(NewTestCommand(&RootOptions{Format: "json"}), t.TempDir())
	require.NoError(t, err)

	var result TestResult
	resp := decodeResponse(t, out, &result)
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, 0, result.Total)
}

func TestTestCommandPassing(t *testing.T) {
	dir := writeFiles(t, map[string]string{
		"packing.yaml": packingScenario,
		"cycle.yml":    cycleScenario,
	})

	out, err := execute(NewTestCommand(&RootOptions{Format: "text"}), dir)
	require.NoError(t, err)
	assert.Contains(t, out, "✓ packing")
	assert.Contains(t, out, "✓ cycle")
	assert.Contains(t, out, "Test Summary: 2 passed, 0 failed, 2 total")
	assert.Contains(t, out, "✓ All scenarios passed")
}

func TestTestCommandFailing(t *testing.T) {
	dir := writeFiles(t, map[string]string{
		"packing.yaml": packingScenario,
		"wrong.yaml":   wrongScenario,
	})

	out, err := execute(NewTestCommand(&RootOptions{Format: "json"}), dir)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	var result TestResult
	resp := decodeResponse(t, out, &result)
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, ErrCodeTestFailed, resp.Error.Code)
	assert.Equal(t, 1, result.Passed)
	assert.Equal(t, 1, result.Failed)

	require.Len(t, result.Scenarios, 2)
	wrong := result.Scenarios[1]
	assert.Equal(t, "wrong", wrong.Name)
	assert.False(t, wrong.Pass)
	require.NotEmpty(t, wrong.Errors)
	assert.Contains(t, wrong.Errors[0], "total_slots: expected 2, got 1")
}

func TestTestCommandFilter(t *testing.T) {
	dir := writeFiles(t, map[string]string{
		"packing.yaml": packingScenario,
		"wrong.yaml":   wrongScenario,
	})

	out, err := execute(NewTestCommand(&RootOptions{Format: "json"}), dir, "--filter", "pack*")
	require.NoError(t, err)

	var result TestResult
	decodeResponse(t, out, &result)
	assert.Equal(t, 1, result.Total)
	assert.Equal(t, "packing", result.Scenarios[0].Name)
}

func TestTestCommandLoadError(t *testing.T) {
	dir := writeFiles(t, map[string]string{
		"bad.yaml": "name: bad\nunknown_key: 1\n",
	})

	out, err := execute(NewTestCommand(&RootOptions{Format: "text"}), dir)
	require.Error(t, err)
	assert.Contains(t, out, "✗ bad.yaml")
	assert.Contains(t, out, "failed to load scenario")
}

func TestTestCommandGolden(t *testing.T) {
	dir := writeFiles(t, map[string]string{
		"packing.yaml": packingScenario,
		"cycle.yaml":   cycleScenario,
	})

	// --update writes the golden files.
	out, err := execute(NewTestCommand(&RootOptions{Format: "text"}), dir, "--update")
	require.NoError(t, err)
	assert.Contains(t, out, "✓ packing (golden updated)")

	golden, err := os.ReadFile(filepath.Join(dir, "golden", "cycle.golden"))
	require.NoError(t, err)
	assert.Contains(t, string(golden), `"code":"E203"`)
	assert.Contains(t, string(golden), `"scenario":"cycle"`)

	// A matching run passes.
	_, err = execute(NewTestCommand(&RootOptions{Format: "text"}), dir)
	require.NoError(t, err)

	// A stale golden file fails even though the assertions pass.
	stale := filepath.Join(dir, "golden", "packing.golden")
	require.NoError(t, os.WriteFile(stale, []byte(`{"scenario":"packing"}`), 0644))

	out, err = execute(NewTestCommand(&RootOptions{Format: "text"}), dir)
	require.Error(t, err)
	assert.Contains(t, out, "✗ packing")
	assert.Contains(t, out, "does not match golden file")
}

func TestFindScenarioFiles(t *testing.T) {
	dir := writeFiles(t, map[string]string{
		"a.yaml":          "",
		"b.yml":           "",
		"c.txt":           "",
		"nested/d.yaml":   "",
		"golden/a.golden": "",
	})

	files, err := findScenarioFiles(dir, "")
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(dir, "a.yaml"),
		filepath.Join(dir, "b.yml"),
		filepath.Join(dir, "nested", "d.yaml"),
	}, files)

	_, err = findScenarioFiles(dir, "[")
	assert.Error(t, err)
}

func TestGoldenFilePath(t *testing.T) {
	assert.Equal(t,
		filepath.Join("scenarios", "golden", "packing.golden"),
		goldenFilePath(filepath.Join("scenarios", "packing.yaml")))
}
