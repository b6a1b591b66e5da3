package harness

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeScenario(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadScenario_ValidFile(t *testing.T) {
	scenario, err := LoadScenario("testdata/scenarios/packing.yaml")
	require.NoError(t, err)

	assert.Equal(t, "packing", scenario.Name)
	assert.Equal(t, "S", scenario.Struct)
	assert.Contains(t, scenario.Source, "int88 d;")
	require.NotNil(t, scenario.Expect)
	require.NotNil(t, scenario.Expect.TotalSlots)
	assert.Equal(t, 3, *scenario.Expect.TotalSlots)
	require.Len(t, scenario.Expect.Entries, 5)
	assert.Equal(t, "int88", scenario.Expect.Entries[3].Type)
}

func TestLoadScenario_ResolvesSourceFile(t *testing.T) {
	scenario, err := LoadScenario("testdata/scenarios/nested.yaml")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join("testdata", "scenarios", "nested.sol"), scenario.SourceFile)
}

func TestLoadScenario_MissingFile(t *testing.T) {
	_, err := LoadScenario(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read scenario file")
}

func TestLoadScenario_UnknownField(t *testing.T) {
	path := writeScenario(t, t.TempDir(), "typo.yaml", `
name: typo
description: misspelled key
source: "struct S { bool a; }"
struct: S
expects:
  total_slots: 1
`)
	_, err := LoadScenario(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse YAML")
	assert.Contains(t, err.Error(), "expects")
}

func TestLoadScenario_Validation(t *testing.T) {
	tests := []struct {
		name    string
		content string
		errMsg  string
	}{
		{
			name:    "missing name",
			content: "description: d\nsource: x\nstruct: S\nexpect: {}\n",
			errMsg:  "name is required",
		},
		{
			name:    "missing description",
			content: "name: n\nsource: x\nstruct: S\nexpect: {}\n",
			errMsg:  "description is required",
		},
		{
			name:    "missing struct",
			content: "name: n\ndescription: d\nsource: x\nexpect: {}\n",
			errMsg:  "struct is required",
		},
		{
			name:    "no source",
			content: "name: n\ndescription: d\nstruct: S\nexpect: {}\n",
			errMsg:  "one of source or source_file is required",
		},
		{
			name:    "both sources",
			content: "name: n\ndescription: d\nsource: x\nsource_file: y.sol\nstruct: S\nexpect: {}\n",
			errMsg:  "mutually exclusive",
		},
		{
			name:    "missing source file",
			content: "name: n\ndescription: d\nsource_file: nope.sol\nstruct: S\nexpect: {}\n",
			errMsg:  "source file not found",
		},
		{
			name:    "no expectation",
			content: "name: n\ndescription: d\nsource: x\nstruct: S\n",
			errMsg:  "one of expect or expect_error is required",
		},
		{
			name:    "both expectations",
			content: "name: n\ndescription: d\nsource: x\nstruct: S\nexpect: {}\nexpect_error: invalid_width\n",
			errMsg:  "expect and expect_error are mutually exclusive",
		},
		{
			name:    "unknown error kind",
			content: "name: n\ndescription: d\nsource: x\nstruct: S\nexpect_error: oops\n",
			errMsg:  `unknown expect_error "oops"`,
		},
		{
			name:    "bad base",
			content: "name: n\ndescription: d\nsource: x\nstruct: S\nbase: slot-7\nexpect: {}\n",
			errMsg:  "invalid base",
		},
		{
			name:    "locations without base",
			content: "name: n\ndescription: d\nsource: x\nstruct: S\nexpect:\n  locations: [{name: a, slot: '0x1'}]\n",
			errMsg:  "expect.locations requires base",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeScenario(t, t.TempDir(), "s.yaml", tt.content)
			_, err := LoadScenario(path)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

func TestErrorKinds(t *testing.T) {
	assert.Equal(t, []string{
		"cyclic_struct_reference",
		"empty_struct",
		"invalid_length",
		"invalid_width",
		"scan_error",
		"struct_not_found",
		"unknown_type",
	}, ErrorKinds())
}
