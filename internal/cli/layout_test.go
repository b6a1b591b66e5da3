package cli

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/sollayout/internal/layout"
	"github.com/roach88/sollayout/internal/store"
)

func TestLayoutText(t *testing.T) {
	path := writeSource(t, packingSource)

	out, err := execute(NewLayoutCommand(&RootOptions{Format: "text"}), path)
	require.NoError(t, err)

	assert.Contains(t, out, "struct S (3 slots)")
	assert.Contains(t, out, "struct Inner (2 slots)")
	assert.Contains(t, out, "struct Outer (4 slots)")
	assert.Contains(t, out, "NAME")
	assert.Contains(t, out, "OFFSET")
	assert.Contains(t, out, "int88")
	assert.NotContains(t, out, "LOCATION")
}

func TestLayoutJSON(t *testing.T) {
	path := writeSource(t, packingSource)

	out, err := execute(NewLayoutCommand(&RootOptions{Format: "json"}), path)
	require.NoError(t, err)

	var result LayoutResult
	resp := decodeResponse(t, out, &result)
	assert.Equal(t, "ok", resp.Status)
	assert.Empty(t, resp.TraceID)

	require.Len(t, result.Structs, 3)
	assert.Equal(t, []string{"S", "Inner", "Outer"},
		[]string{result.Structs[0].Name, result.Structs[1].Name, result.Structs[2].Name})
	assert.Len(t, result.SourceHash, 64)

	s := result.Structs[0]
	assert.Equal(t, 3, s.TotalSlots)
	assert.NotEmpty(t, s.Fingerprint)
	assert.Equal(t, EntryReport{Name: "d", Type: "int88", Kind: "int", Slot: 1, Offset: 5, Size: 11}, s.Entries[3])

	outer := result.Structs[2]
	require.Len(t, outer.Entries, 3)
	assert.Equal(t, EntryReport{Name: "n", Type: "Inner", Kind: "struct", Slot: 1, Offset: 0, Size: 64}, outer.Entries[1])
	assert.Equal(t, 3, outer.Entries[2].Slot)
}

func TestLayoutSelectedStructAtBase(t *testing.T) {
	path := writeSource(t, packingSource)

	out, err := execute(NewLayoutCommand(&RootOptions{Format: "json"}), path,
		"--struct", "Outer", "--struct", "S", "--base", "erc7201:example.main")
	require.NoError(t, err)

	var result LayoutResult
	decodeResponse(t, out, &result)
	require.Len(t, result.Structs, 2)
	assert.Equal(t, "Outer", result.Structs[0].Name)
	assert.Equal(t, "S", result.Structs[1].Name)
	assert.Equal(t, "erc7201:example.main", result.Base)

	entries := result.Structs[0].Entries
	assert.Equal(t, "0x183a6125c38840424c4a85fa12bab2ab606c4b6d0e7cc73c0c06ba5300eab500", entries[0].Location)
	assert.Equal(t, "0x183a6125c38840424c4a85fa12bab2ab606c4b6d0e7cc73c0c06ba5300eab501", entries[1].Location)
	assert.Equal(t, "0x183a6125c38840424c4a85fa12bab2ab606c4b6d0e7cc73c0c06ba5300eab503", entries[2].Location)
}

func TestLayoutTextWithBaseAndHex(t *testing.T) {
	path := writeSource(t, packingSource)

	out, err := execute(NewLayoutCommand(&RootOptions{Format: "text"}), path,
		"--struct", "Outer", "--base", "0x10", "--hex")
	require.NoError(t, err)

	assert.Contains(t, out, "base 0x10")
	assert.Contains(t, out, "LOCATION")
	assert.Contains(t, out, "0x3")
	assert.Contains(t, out, "0x0000000000000000000000000000000000000000000000000000000000000013")
}

func TestLayoutErrors(t *testing.T) {
	tests := []struct {
		name     string
		src      string
		args     []string
		code     string
		exitCode int
	}{
		{
			name:     "cycle",
			src:      cycleSource,
			code:     layout.CodeCyclicReference,
			exitCode: ExitFailure,
		},
		{
			name:     "invalid width",
			src:      "struct S { uint7 x; }",
			code:     layout.CodeInvalidWidth,
			exitCode: ExitFailure,
		},
		{
			name:     "unknown type",
			src:      "struct S { Missing x; }",
			code:     layout.CodeUnknownType,
			exitCode: ExitFailure,
		},
		{
			name:     "struct not found",
			src:      packingSource,
			args:     []string{"--struct", "Nope"},
			code:     layout.CodeStructNotFound,
			exitCode: ExitFailure,
		},
		{
			name:     "scan error",
			src:      "struct S { uint256 a;",
			code:     "E206",
			exitCode: ExitFailure,
		},
		{
			name:     "bad base",
			src:      packingSource,
			args:     []string{"--base", "slot-7"},
			code:     ErrCodeGeneric,
			exitCode: ExitCommandError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeSource(t, tt.src)
			args := append([]string{path}, tt.args...)

			out, err := execute(NewLayoutCommand(&RootOptions{Format: "json"}), args...)
			require.Error(t, err)
			assert.Equal(t, tt.exitCode, GetExitCode(err))

			resp := decodeResponse(t, out, nil)
			assert.Equal(t, "error", resp.Status)
			require.NotNil(t, resp.Error)
			assert.Equal(t, tt.code, resp.Error.Code)
		})
	}
}

func TestLayoutCycleMessage(t *testing.T) {
	path := writeSource(t, cycleSource)

	out, err := execute(NewLayoutCommand(&RootOptions{Format: "text"}), path)
	require.Error(t, err)
	assert.Contains(t, out, "Error [E203]")
	assert.Contains(t, out, "A → B → A")
}

func TestLayoutReportsFailuresPerStruct(t *testing.T) {
	src := `
struct Good { uint256 a; bool b; }
struct Bad { IMissing token; }
struct Also { uint8 c; }
`
	path := writeSource(t, src)
	dbPath := filepath.Join(t.TempDir(), "audit.db")

	out, err := execute(NewLayoutCommand(&RootOptions{Format: "json"}), path, "--db", dbPath)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	var result LayoutResult
	resp := decodeResponse(t, out, &result)
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, layout.CodeUnknownType, resp.Error.Code)

	require.Len(t, result.Structs, 2)
	assert.Equal(t, "Good", result.Structs[0].Name)
	assert.Equal(t, 2, result.Structs[0].TotalSlots)
	assert.Equal(t, "Also", result.Structs[1].Name)
	require.Len(t, result.Failures, 1)
	assert.Equal(t, "Bad", result.Failures[0].Name)
	assert.Contains(t, result.Failures[0].Message, "IMissing")

	_, statErr := os.Stat(dbPath)
	assert.True(t, os.IsNotExist(statErr), "failed runs are not recorded")

	out, err = execute(NewLayoutCommand(&RootOptions{Format: "text"}), path)
	require.Error(t, err)
	assert.Contains(t, out, "struct Good (2 slots)")
	assert.Contains(t, out, "struct Also (1 slots)")
	assert.Contains(t, out, "Error [E201]: Bad.token")
}

func TestLayoutSameStructNameInTwoLibraries(t *testing.T) {
	src := `
library LibA { struct Layout { uint256 x; } }
library LibB { struct Layout { bool y; address z; } }
`
	path := writeSource(t, src)

	out, err := execute(NewLayoutCommand(&RootOptions{Format: "json"}), path)
	require.NoError(t, err)

	var result LayoutResult
	decodeResponse(t, out, &result)
	require.Len(t, result.Structs, 2)
	assert.Equal(t, "LibA.Layout", result.Structs[0].Name)
	assert.Equal(t, "LibB.Layout", result.Structs[1].Name)
	assert.Equal(t, 1, result.Structs[1].TotalSlots)

	out, err = execute(NewLayoutCommand(&RootOptions{Format: "json"}), path, "--struct", "LibB.Layout")
	require.NoError(t, err)
	decodeResponse(t, out, &result)
	require.Len(t, result.Structs, 1)
	assert.Equal(t, "LibB.Layout", result.Structs[0].Name)
}

func TestLayoutMissingFile(t *testing.T) {
	out, err := execute(NewLayoutCommand(&RootOptions{Format: "json"}), filepath.Join(t.TempDir(), "nope.sol"))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))

	resp := decodeResponse(t, out, nil)
	require.NotNil(t, resp.Error)
	assert.Equal(t, ErrCodeNotFound, resp.Error.Code)
}

func TestLayoutOutputFile(t *testing.T) {
	path := writeSource(t, packingSource)
	outFile := filepath.Join(t.TempDir(), "layouts.json")

	_, err := execute(NewLayoutCommand(&RootOptions{Format: "text"}), path, "-o", outFile, "--struct", "Inner")
	require.NoError(t, err)

	data, err := os.ReadFile(outFile)
	require.NoError(t, err)
	assert.Equal(t,
		`[{"entries":[{"kind":"uint","name":"p","offset":0,"size":32,"slot":0,"type":"uint256"},`+
			`{"kind":"bool","name":"q","offset":0,"size":1,"slot":1,"type":"bool"}],"struct":"Inner","total_slots":2}]`,
		string(data))
}

func TestLayoutRecordsRun(t *testing.T) {
	path := writeSource(t, packingSource)
	dbPath := filepath.Join(t.TempDir(), "audit.db")

	out, err := execute(NewLayoutCommand(&RootOptions{Format: "json"}), path, "--db", dbPath, "--base", "42")
	require.NoError(t, err)

	var result LayoutResult
	resp := decodeResponse(t, out, &result)
	require.NotEmpty(t, result.RunID)
	assert.Equal(t, result.RunID, resp.TraceID)

	// Same source again: a second run sharing the stored layouts.
	_, err = execute(NewLayoutCommand(&RootOptions{Format: "json"}), path, "--db", dbPath)
	require.NoError(t, err)

	st, err := store.Open(dbPath)
	require.NoError(t, err)
	defer st.Close()

	ctx := context.Background()
	run, err := st.ReadRun(ctx, result.RunID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), run.Seq)
	assert.Equal(t, "42", run.Base)
	assert.Equal(t, result.SourceHash, run.SourceHash)
	require.Len(t, run.Layouts, 3)
	assert.Equal(t, result.Structs[2].Fingerprint, run.Layouts[2].Fingerprint)
	assert.True(t, json.Valid([]byte(run.Layouts[0].Canonical)))

	runs, err := st.ListRuns(ctx)
	require.NoError(t, err)
	assert.Len(t, runs, 2)

	history, err := st.StructHistory(ctx, "S")
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, int64(1), history[0].FirstSeq)
}

func TestLayoutCUESpecs(t *testing.T) {
	dir := writeFiles(t, map[string]string{
		"structs.cue": `package specs

struct: Inner: fields: [{name: "p", type: "uint256"}, {name: "q", type: "bool"}]
struct: Outer: fields: {
	m: "bool"
	n: "Inner"
	o: "uint256"
}
`,
	})

	out, err := execute(NewLayoutCommand(&RootOptions{Format: "json"}), dir, "--struct", "Outer")
	require.NoError(t, err)

	var result LayoutResult
	decodeResponse(t, out, &result)
	require.Len(t, result.Structs, 1)
	assert.Equal(t, 4, result.Structs[0].TotalSlots)
	assert.Equal(t, 3, result.Structs[0].Entries[2].Slot)
}

func TestLayoutCUEFile(t *testing.T) {
	dir := writeFiles(t, map[string]string{
		"s.cue": `struct: S: fields: {a: "uint128", b: "uint128", c: "bool"}`,
	})

	out, err := execute(NewLayoutCommand(&RootOptions{Format: "json"}), filepath.Join(dir, "s.cue"))
	require.NoError(t, err)

	var result LayoutResult
	decodeResponse(t, out, &result)
	require.Len(t, result.Structs, 1)
	assert.Equal(t, 2, result.Structs[0].TotalSlots)
}
