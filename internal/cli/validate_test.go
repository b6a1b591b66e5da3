package cli

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/sollayout/internal/compiler"
	"github.com/roach88/sollayout/internal/layout"
)

func TestValidateValidSource(t *testing.T) {
	path := writeSource(t, packingSource)

	out, err := execute(NewValidateCommand(&RootOptions{Format: "text"}), path)
	require.NoError(t, err)
	assert.Contains(t, out, "✓ All 3 struct(s) valid")
}

func TestValidateValidSourceJSON(t *testing.T) {
	path := writeSource(t, packingSource)

	out, err := execute(NewValidateCommand(&RootOptions{Format: "json"}), path)
	require.NoError(t, err)

	var result ValidationResult
	resp := decodeResponse(t, out, &result)
	assert.Equal(t, "ok", resp.Status)
	assert.True(t, result.Valid)
	assert.Equal(t, 3, result.Structs)
	assert.Empty(t, result.Errors)
}

func TestValidateCollectsAllErrors(t *testing.T) {
	path := writeSource(t, `
struct A { B b; }
struct B { A a; }
struct S {
    uint7 x;
    Missing y;
    uint256[0] z;
}
struct Empty {}
`)

	out, err := execute(NewValidateCommand(&RootOptions{Format: "json"}), path)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	var result ValidationResult
	resp := decodeResponse(t, out, &result)
	assert.Equal(t, "error", resp.Status)
	assert.False(t, result.Valid)

	codes := make([]string, len(result.Errors))
	for i, e := range result.Errors {
		codes[i] = e.Code
	}
	assert.Equal(t, []string{
		layout.CodeEmptyStruct,
		layout.CodeInvalidWidth,
		layout.CodeUnknownType,
		layout.CodeInvalidLength,
		layout.CodeCyclicReference,
	}, codes)
	require.NotNil(t, resp.Error)
	assert.Equal(t, result.Errors[0].Code, resp.Error.Code)
}

func TestValidateTextOutput(t *testing.T) {
	path := writeSource(t, "struct S {\n    uint7 x;\n}\n")

	out, err := execute(NewValidateCommand(&RootOptions{Format: "text"}), path)
	require.Error(t, err)
	assert.Contains(t, out, "✗ Validation failed")
	assert.Contains(t, out, "line 2")
	assert.Contains(t, out, "E202: S.x: ")
}

func TestValidateDuplicateNamesInCUE(t *testing.T) {
	dir := writeFiles(t, map[string]string{
		"specs.cue": `package specs

struct: S: fields: [{name: "a", type: "bool"}, {name: "a", type: "bool"}]
enum: E: []
`,
	})

	out, err := execute(NewValidateCommand(&RootOptions{Format: "json"}), dir)
	require.Error(t, err)

	var result ValidationResult
	decodeResponse(t, out, &result)
	require.Len(t, result.Errors, 2)
	assert.Equal(t, compiler.ErrDuplicateName, result.Errors[0].Code)
	assert.Equal(t, compiler.ErrEmptyEnum, result.Errors[1].Code)
}

func TestValidateMissingPath(t *testing.T) {
	out, err := execute(NewValidateCommand(&RootOptions{Format: "json"}), filepath.Join(t.TempDir(), "missing"))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))

	resp := decodeResponse(t, out, nil)
	require.NotNil(t, resp.Error)
	assert.Equal(t, ErrCodeNotFound, resp.Error.Code)
}

func TestValidateScanError(t *testing.T) {
	path := writeSource(t, "enum Color { Red, Green")

	out, err := execute(NewValidateCommand(&RootOptions{Format: "json"}), path)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	resp := decodeResponse(t, out, nil)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "E206", resp.Error.Code)
}
