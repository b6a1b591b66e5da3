package compiler

import (
	"errors"
	"fmt"
	"regexp"

	"github.com/roach88/sollayout/internal/ir"
	"github.com/roach88/sollayout/internal/layout"
)

// Validation error codes (E100-E199). Resolution failures keep the layout
// codes (E201-E207).
const (
	ErrDuplicateName     = "E101" // name declared twice in one namespace
	ErrInvalidIdentifier = "E102" // not a Solidity identifier
	ErrEmptyEnum         = "E103" // enum without variants
)

// ValidationError represents a schema validation error.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`
	Line    int    `json:"line,omitempty"`
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("[%s] line %d: %s: %s", e.Code, e.Line, e.Field, e.Message)
	}
	return fmt.Sprintf("[%s] %s: %s", e.Code, e.Field, e.Message)
}

// identPattern matches Solidity identifiers.
var identPattern = regexp.MustCompile(`^[A-Za-z_$][A-Za-z0-9_$]*$`)

// Validate checks a unit and returns all errors found (does not fail-fast).
//
// Every field type is resolved on its own, so one bad field does not hide
// the next. Errors that belong to another struct, such as a failure inside
// an embedded struct, are reported once at their origin, and each by-value
// cycle is reported once.
func Validate(unit *ir.Unit) []ValidationError {
	var errs []ValidationError
	errs = append(errs, validateNames(unit)...)
	errs = append(errs, validateTypes(unit)...)
	errs = append(errs, validateCycles(unit)...)
	return errs
}

func validateNames(unit *ir.Unit) []ValidationError {
	var errs []ValidationError

	// Structs, enums and aliases share one type namespace per scope.
	declared := make(map[string]string)
	declare := func(kind, name, scope, path string, line int) {
		if !identPattern.MatchString(name) {
			errs = append(errs, ValidationError{
				Field:   path,
				Message: fmt.Sprintf("invalid %s name %q", kind, name),
				Code:    ErrInvalidIdentifier,
				Line:    line,
			})
			return
		}
		canonical := ir.NormalizeIdentifier(name)
		if scope != "" {
			canonical = ir.NormalizeIdentifier(scope) + "." + canonical
		}
		if prev, dup := declared[canonical]; dup {
			errs = append(errs, ValidationError{
				Field:   path,
				Message: fmt.Sprintf("duplicate type name %q, already declared as %s", name, prev),
				Code:    ErrDuplicateName,
				Line:    line,
			})
			return
		}
		declared[canonical] = kind
	}

	for i, s := range unit.Structs {
		path := fmt.Sprintf("structs[%d]", i)
		declare("struct", s.Name, s.Scope, path, s.Line)

		if len(s.Fields) == 0 {
			errs = append(errs, ValidationError{
				Field:   path + ".fields",
				Message: fmt.Sprintf("struct %s has no fields", s.Name),
				Code:    layout.CodeEmptyStruct,
				Line:    s.Line,
			})
		}

		fieldNames := make(map[string]bool)
		for j, f := range s.Fields {
			fieldPath := fmt.Sprintf("%s.fields[%d]", path, j)
			if !identPattern.MatchString(f.Name) {
				errs = append(errs, ValidationError{
					Field:   fieldPath,
					Message: fmt.Sprintf("invalid field name %q in struct %s", f.Name, s.Name),
					Code:    ErrInvalidIdentifier,
					Line:    f.Line,
				})
				continue
			}
			if fieldNames[f.Name] {
				errs = append(errs, ValidationError{
					Field:   fieldPath,
					Message: fmt.Sprintf("duplicate field name %q in struct %s", f.Name, s.Name),
					Code:    ErrDuplicateName,
					Line:    f.Line,
				})
			}
			fieldNames[f.Name] = true
		}
	}

	for i, e := range unit.Enums {
		path := fmt.Sprintf("enums[%d]", i)
		declare("enum", e.Name, "", path, e.Line)

		if len(e.Variants) == 0 {
			errs = append(errs, ValidationError{
				Field:   path + ".variants",
				Message: fmt.Sprintf("enum %s has no variants", e.Name),
				Code:    ErrEmptyEnum,
				Line:    e.Line,
			})
		}
		variants := make(map[string]bool)
		for j, v := range e.Variants {
			if !identPattern.MatchString(v) {
				errs = append(errs, ValidationError{
					Field:   fmt.Sprintf("%s.variants[%d]", path, j),
					Message: fmt.Sprintf("invalid variant %q in enum %s", v, e.Name),
					Code:    ErrInvalidIdentifier,
					Line:    e.Line,
				})
				continue
			}
			if variants[v] {
				errs = append(errs, ValidationError{
					Field:   fmt.Sprintf("%s.variants[%d]", path, j),
					Message: fmt.Sprintf("duplicate variant %q in enum %s", v, e.Name),
					Code:    ErrDuplicateName,
					Line:    e.Line,
				})
			}
			variants[v] = true
		}
	}

	for i, a := range unit.Aliases {
		declare("type", a.Name, "", fmt.Sprintf("aliases[%d]", i), a.Line)
	}

	return errs
}

// validateTypes resolves every field and alias. A FieldError from a
// resolution means the failure happened inside another struct, which
// reports it itself.
func validateTypes(unit *ir.Unit) []ValidationError {
	var errs []ValidationError
	r := layout.NewResolver(unit)

	for i, s := range unit.Structs {
		for j, f := range s.Fields {
			_, err := r.ResolveIn(s.Scope, f.Type)
			if err == nil || !reportable(err) {
				continue
			}
			errs = append(errs, ValidationError{
				Field:   fmt.Sprintf("structs[%d].fields[%d].type", i, j),
				Message: fmt.Sprintf("%s.%s: %v", s.QualifiedName(), f.Name, err),
				Code:    layout.CodeOf(err),
				Line:    f.Line,
			})
		}
	}

	for i, a := range unit.Aliases {
		if !identPattern.MatchString(a.Name) {
			continue
		}
		desc, err := r.Resolve(a.Name)
		if err == nil && desc.Kind == ir.KindStructRef {
			// A struct of the same name shadows the alias; validateNames
			// reports the duplicate.
			continue
		}
		if err != nil {
			errs = append(errs, ValidationError{
				Field:   fmt.Sprintf("aliases[%d].underlying", i),
				Message: fmt.Sprintf("type %s is %s: %v", a.Name, a.Underlying, err),
				Code:    layout.CodeOf(err),
				Line:    a.Line,
			})
		}
	}

	return errs
}

func reportable(err error) bool {
	var fieldErr *layout.FieldError
	if errors.As(err, &fieldErr) {
		return false
	}
	var cycleErr *layout.CyclicStructReferenceError
	return !errors.As(err, &cycleErr)
}

func validateCycles(unit *ir.Unit) []ValidationError {
	var errs []ValidationError
	for _, c := range layout.AnalyzeCycles(unit) {
		line := 0
		if def, ok := unit.Struct(c.Path[0]); ok {
			line = def.Line
		}
		errs = append(errs, ValidationError{
			Field:   "structs." + c.Path[0],
			Message: c.Message,
			Code:    layout.CodeCyclicReference,
			Line:    line,
		})
	}
	return errs
}
