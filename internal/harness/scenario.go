package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"slices"

	"gopkg.in/yaml.v3"

	"github.com/roach88/sollayout/internal/extract"
	"github.com/roach88/sollayout/internal/layout"
	"github.com/roach88/sollayout/internal/locate"
)

// Scenario defines one layout test.
type Scenario struct {
	// Name uniquely identifies this scenario.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Source is inline Solidity. Exactly one of Source and SourceFile is set.
	Source string `yaml:"source,omitempty"`

	// SourceFile is a path to a .sol file, relative to the scenario file.
	SourceFile string `yaml:"source_file,omitempty"`

	// Struct is the struct to lay out.
	Struct string `yaml:"struct"`

	// Base optionally places the layout at a base slot
	// (a number, erc7201:<id> or keccak:<string>).
	Base string `yaml:"base,omitempty"`

	// Expect holds the expected layout. Mutually exclusive with ExpectError.
	Expect *Expect `yaml:"expect,omitempty"`

	// ExpectError names the error kind the scenario must fail with.
	ExpectError string `yaml:"expect_error,omitempty"`
}

// Expect is a subset of the layout a scenario must produce.
type Expect struct {
	TotalSlots *int               `yaml:"total_slots,omitempty"`
	Entries    []ExpectedEntry    `yaml:"entries,omitempty"`
	Locations  []ExpectedLocation `yaml:"locations,omitempty"`
}

// ExpectedEntry matches the layout entry with the same field name. Unset
// attributes are not compared.
type ExpectedEntry struct {
	Name   string `yaml:"name"`
	Type   string `yaml:"type,omitempty"`
	Slot   *int   `yaml:"slot,omitempty"`
	Offset *int   `yaml:"offset,omitempty"`
	Size   *int   `yaml:"size,omitempty"`
}

// ExpectedLocation matches the absolute slot of a field when Base is set.
// Slot is compared after normalizing to 0x-prefixed 64-digit hex.
type ExpectedLocation struct {
	Name string `yaml:"name"`
	Slot string `yaml:"slot"`
}

// Error kinds accepted by expect_error, mapped to error codes.
var errorKinds = map[string]string{
	"unknown_type":            layout.CodeUnknownType,
	"invalid_width":           layout.CodeInvalidWidth,
	"cyclic_struct_reference": layout.CodeCyclicReference,
	"invalid_length":          layout.CodeInvalidLength,
	"empty_struct":            layout.CodeEmptyStruct,
	"struct_not_found":        layout.CodeStructNotFound,
	"scan_error":              extract.CodeScanError,
}

// ErrorKinds returns the names accepted by expect_error, sorted.
func ErrorKinds() []string {
	kinds := make([]string, 0, len(errorKinds))
	for k := range errorKinds {
		kinds = append(kinds, k)
	}
	slices.Sort(kinds)
	return kinds
}

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
// A relative source_file is resolved against the scenario's directory.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	// Parse YAML with strict field validation (catches typos like "expects:" vs "expect:")
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if scenario.SourceFile != "" && !filepath.IsAbs(scenario.SourceFile) {
		scenario.SourceFile = filepath.Join(filepath.Dir(path), scenario.SourceFile)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}

	return &scenario, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}

	if s.Description == "" {
		return fmt.Errorf("description is required")
	}

	if s.Struct == "" {
		return fmt.Errorf("struct is required")
	}

	switch {
	case s.Source == "" && s.SourceFile == "":
		return fmt.Errorf("one of source or source_file is required")
	case s.Source != "" && s.SourceFile != "":
		return fmt.Errorf("source and source_file are mutually exclusive")
	}

	if s.SourceFile != "" {
		if _, err := os.Stat(s.SourceFile); os.IsNotExist(err) {
			return fmt.Errorf("source file not found: %s", s.SourceFile)
		}
	}

	switch {
	case s.Expect == nil && s.ExpectError == "":
		return fmt.Errorf("one of expect or expect_error is required")
	case s.Expect != nil && s.ExpectError != "":
		return fmt.Errorf("expect and expect_error are mutually exclusive")
	}

	if s.ExpectError != "" {
		if _, ok := errorKinds[s.ExpectError]; !ok {
			return fmt.Errorf("unknown expect_error %q, must be one of %v", s.ExpectError, ErrorKinds())
		}
	}

	if s.Base != "" {
		if _, err := locate.ParseBase(s.Base); err != nil {
			return err
		}
	}
	if s.Expect != nil && len(s.Expect.Locations) > 0 && s.Base == "" {
		return fmt.Errorf("expect.locations requires base")
	}

	return nil
}
