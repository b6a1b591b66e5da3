package cli

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/load"
	"cuelang.org/go/cue/token"

	"github.com/roach88/sollayout/internal/compiler"
	"github.com/roach88/sollayout/internal/extract"
	"github.com/roach88/sollayout/internal/ir"
	"github.com/roach88/sollayout/internal/layout"
)

// LoadResult contains the unit read from a Solidity file or CUE specs.
type LoadResult struct {
	Unit      *ir.Unit
	Source    []byte    // bytes the source hash is computed over
	CUEValue  cue.Value // The raw CUE value, zero for Solidity input
	FileCount int       // Number of files read
}

// LoadError represents an error that occurred during loading.
type LoadError struct {
	Code    string
	Message string
	Pos     token.Pos // CUE position if available
}

func (e *LoadError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s", e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(), e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// LoadUnit reads declarations from path. A directory is loaded as a CUE
// package, a .cue file is compiled on its own, and anything else is
// scanned as Solidity source.
func LoadUnit(path string) (*LoadResult, error) {
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("path not found: %s", path)}
	}
	if err != nil {
		return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("error accessing %s: %v", path, err)}
	}
	if info.IsDir() {
		return LoadSpecs(path)
	}

	src, err := os.ReadFile(path)
	if err != nil {
		return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("reading %s: %v", path, err)}
	}

	if filepath.Ext(path) == ".cue" {
		value := cuecontext.New().CompileBytes(src, cue.Filename(path))
		unit, err := compiler.CompileUnit(value)
		if err != nil {
			return nil, convertCompileError(err, path)
		}
		return &LoadResult{Unit: unit, Source: src, CUEValue: value, FileCount: 1}, nil
	}

	unit, err := extract.Scan(src)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", path, err)
	}
	return &LoadResult{Unit: unit, Source: src, FileCount: 1}, nil
}

// LoadSpecs loads the CUE package in dir and compiles its struct specs.
func LoadSpecs(dir string) (*LoadResult, error) {
	// Verify directory exists
	info, err := os.Stat(dir)
	if os.IsNotExist(err) {
		return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("specs directory not found: %s", dir)}
	}
	if err != nil {
		return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("error accessing specs directory: %v", err)}
	}
	if !info.IsDir() {
		return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("not a directory: %s", dir)}
	}

	// Find CUE files
	cueFiles, err := FindCUEFiles(dir)
	if err != nil {
		return nil, &LoadError{Code: ErrCodeScanError, Message: fmt.Sprintf("error scanning directory: %v", err)}
	}
	if len(cueFiles) == 0 {
		return nil, &LoadError{Code: ErrCodeNoFiles, Message: fmt.Sprintf("no CUE files found in %s", dir)}
	}

	// Load CUE instances
	ctx := cuecontext.New()
	instances := load.Instances([]string{"."}, &load.Config{Dir: dir})
	if len(instances) == 0 {
		return nil, &LoadError{Code: ErrCodeLoadFailed, Message: "no CUE instances loaded"}
	}
	inst := instances[0]
	if inst.Err != nil {
		return nil, &LoadError{Code: ErrCodeLoadFailed, Message: fmt.Sprintf("loading CUE files: %v", inst.Err)}
	}

	// Build value from instance
	value := ctx.BuildInstance(inst)
	if err := value.Err(); err != nil {
		return nil, &LoadError{Code: ErrCodeBuildFailed, Message: fmt.Sprintf("building CUE value: %v", err)}
	}

	unit, err := compiler.CompileUnit(value)
	if err != nil {
		return nil, convertCompileError(err, dir)
	}
	if len(unit.Structs) == 0 {
		return nil, &LoadError{Code: ErrCodeGeneric, Message: "no structs found in specs"}
	}

	// The source hash covers every file in walk order.
	var src bytes.Buffer
	for _, f := range cueFiles {
		data, err := os.ReadFile(f)
		if err != nil {
			return nil, &LoadError{Code: ErrCodeLoadFailed, Message: fmt.Sprintf("reading %s: %v", f, err)}
		}
		src.Write(data)
	}

	return &LoadResult{
		Unit:      unit,
		Source:    src.Bytes(),
		CUEValue:  value,
		FileCount: len(cueFiles),
	}, nil
}

// FindCUEFiles walks the directory and returns all .cue file paths.
func FindCUEFiles(dir string) ([]string, error) {
	var files []string
	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() && filepath.Ext(path) == ".cue" {
			files = append(files, path)
		}
		return nil
	})
	return files, err
}

// convertCompileError converts a compiler error to a LoadError with position info.
func convertCompileError(err error, context string) *LoadError {
	var compileErr *compiler.CompileError
	if errors.As(err, &compileErr) {
		return &LoadError{
			Code:    ErrCodeBuildFailed,
			Message: fmt.Sprintf("%s: %s", compileErr.Field, compileErr.Message),
			Pos:     compileErr.Pos,
		}
	}
	return &LoadError{
		Code:    ErrCodeGeneric,
		Message: fmt.Sprintf("%s: %v", context, err),
	}
}

// Error code constants - unified across all CLI commands. Layout failures
// use the E2xx codes carried by the errors themselves.
const (
	ErrCodeGeneric     = "E001" // Generic/unknown error
	ErrCodeScanError   = "E002" // Directory scan error
	ErrCodeNoFiles     = "E003" // No CUE files found
	ErrCodeLoadFailed  = "E004" // CUE load failed
	ErrCodeNotFound    = "E005" // Path not found
	ErrCodeBuildFailed = "E006" // CUE build or compile failed
	ErrCodeWriteFailed = "E007" // File or database write error

	ErrCodeTestFailed = "E_TEST_FAILED" // One or more scenarios failed
)

// ErrorCode returns the code reported for err: a LoadError's own code,
// the E2xx code of a layout or scan failure, or ErrCodeGeneric.
func ErrorCode(err error) string {
	var loadErr *LoadError
	if errors.As(err, &loadErr) {
		return loadErr.Code
	}
	if code := layout.CodeOf(err); code != "" {
		return code
	}
	return ErrCodeGeneric
}
