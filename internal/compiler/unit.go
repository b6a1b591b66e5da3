package compiler

import (
	"fmt"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"

	"github.com/roach88/sollayout/internal/ir"
)

// CompileUnit reads struct, enum, alias and contract declarations from a
// CUE value into a Unit. Uses CUE SDK's Go API directly.
//
// The expected shape is:
//
//	struct: Outer: fields: [{name: "m", type: "bool"}, {name: "n", type: "Inner"}]
//	struct: Inner: fields: {a: "uint256", b: "uint256"}
//	enum: Color: ["Red", "Green"]
//	alias: Price: "uint128"
//	contract: ["Vault"]
//
// Fields written as a CUE struct keep their declaration order.
func CompileUnit(v cue.Value) (*ir.Unit, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	unit := &ir.Unit{Structs: []ir.StructDef{}}

	var err error
	if unit.Structs, err = parseStructs(v); err != nil {
		return nil, err
	}
	if unit.Enums, err = parseEnums(v); err != nil {
		return nil, err
	}
	if unit.Aliases, err = parseAliases(v); err != nil {
		return nil, err
	}
	if unit.Contracts, err = parseContracts(v); err != nil {
		return nil, err
	}
	return unit, nil
}

func parseStructs(v cue.Value) ([]ir.StructDef, error) {
	structs := []ir.StructDef{}

	structsVal := v.LookupPath(cue.ParsePath("struct"))
	if !structsVal.Exists() {
		return structs, nil
	}
	iter, err := structsVal.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}

	for iter.Next() {
		name := iter.Selector().Unquoted()
		structVal := iter.Value()

		def := ir.StructDef{
			Name:   name,
			Line:   structVal.Pos().Line(),
			Fields: []ir.RawField{},
		}

		if scopeVal := structVal.LookupPath(cue.ParsePath("scope")); scopeVal.Exists() {
			scope, err := scopeVal.String()
			if err != nil {
				return nil, formatCUEError(err)
			}
			def.Scope = scope
		}

		fieldsVal := structVal.LookupPath(cue.ParsePath("fields"))
		if !fieldsVal.Exists() {
			return nil, &CompileError{
				Field:   fmt.Sprintf("struct.%s.fields", name),
				Message: "struct fields are required",
				Pos:     structVal.Pos(),
			}
		}

		switch fieldsVal.IncompleteKind() {
		case cue.ListKind:
			def.Fields, err = parseFieldList(name, fieldsVal)
		case cue.StructKind:
			def.Fields, err = parseFieldStruct(name, fieldsVal)
		default:
			err = &CompileError{
				Field:   fmt.Sprintf("struct.%s.fields", name),
				Message: fmt.Sprintf("fields must be a list or a struct, got %v", fieldsVal.IncompleteKind()),
				Pos:     fieldsVal.Pos(),
			}
		}
		if err != nil {
			return nil, err
		}

		structs = append(structs, def)
	}

	return structs, nil
}

// parseFieldList reads [{name: "a", type: "uint256"}, ...].
func parseFieldList(structName string, v cue.Value) ([]ir.RawField, error) {
	fields := []ir.RawField{}
	iter, err := v.List()
	if err != nil {
		return nil, formatCUEError(err)
	}

	for i := 0; iter.Next(); i++ {
		fieldVal := iter.Value()
		path := fmt.Sprintf("struct.%s.fields[%d]", structName, i)

		name, err := requiredString(fieldVal, "name", path)
		if err != nil {
			return nil, err
		}
		typ, err := requiredString(fieldVal, "type", path)
		if err != nil {
			return nil, err
		}
		fields = append(fields, ir.RawField{Name: name, Type: typ, Line: fieldVal.Pos().Line()})
	}
	return fields, nil
}

// parseFieldStruct reads {a: "uint256", b: "bool"} in declaration order.
func parseFieldStruct(structName string, v cue.Value) ([]ir.RawField, error) {
	fields := []ir.RawField{}
	iter, err := v.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}

	for iter.Next() {
		name := iter.Selector().Unquoted()
		typ, err := typeString(iter.Value(), fmt.Sprintf("struct.%s.fields.%s", structName, name))
		if err != nil {
			return nil, err
		}
		fields = append(fields, ir.RawField{Name: name, Type: typ, Line: iter.Value().Pos().Line()})
	}
	return fields, nil
}

func parseEnums(v cue.Value) ([]ir.EnumDef, error) {
	var enums []ir.EnumDef

	enumsVal := v.LookupPath(cue.ParsePath("enum"))
	if !enumsVal.Exists() {
		return enums, nil
	}
	iter, err := enumsVal.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}

	for iter.Next() {
		name := iter.Selector().Unquoted()
		variants, err := stringList(iter.Value(), "enum."+name)
		if err != nil {
			return nil, err
		}
		enums = append(enums, ir.EnumDef{Name: name, Variants: variants, Line: iter.Value().Pos().Line()})
	}
	return enums, nil
}

func parseAliases(v cue.Value) ([]ir.AliasDef, error) {
	var aliases []ir.AliasDef

	aliasesVal := v.LookupPath(cue.ParsePath("alias"))
	if !aliasesVal.Exists() {
		return aliases, nil
	}
	iter, err := aliasesVal.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}

	for iter.Next() {
		name := iter.Selector().Unquoted()
		underlying, err := typeString(iter.Value(), "alias."+name)
		if err != nil {
			return nil, err
		}
		aliases = append(aliases, ir.AliasDef{Name: name, Underlying: underlying, Line: iter.Value().Pos().Line()})
	}
	return aliases, nil
}

func parseContracts(v cue.Value) ([]string, error) {
	contractsVal := v.LookupPath(cue.ParsePath("contract"))
	if !contractsVal.Exists() {
		return nil, nil
	}
	return stringList(contractsVal, "contract")
}

func requiredString(v cue.Value, key, path string) (string, error) {
	val := v.LookupPath(cue.ParsePath(key))
	if !val.Exists() {
		return "", &CompileError{
			Field:   path + "." + key,
			Message: key + " is required",
			Pos:     v.Pos(),
		}
	}
	return typeString(val, path+"."+key)
}

// typeString reads a concrete string. Type tokens are Solidity source text,
// so anything else (a CUE type such as int, or a number) is rejected.
func typeString(v cue.Value, path string) (string, error) {
	if v.IncompleteKind() != cue.StringKind {
		return "", &CompileError{
			Field:   path,
			Message: fmt.Sprintf("expected a string, got %v", v.IncompleteKind()),
			Pos:     v.Pos(),
		}
	}
	s, err := v.String()
	if err != nil {
		return "", formatCUEError(err)
	}
	return s, nil
}

func stringList(v cue.Value, path string) ([]string, error) {
	out := []string{}
	iter, err := v.List()
	if err != nil {
		return nil, &CompileError{
			Field:   path,
			Message: fmt.Sprintf("expected a list of strings, got %v", v.IncompleteKind()),
			Pos:     v.Pos(),
		}
	}
	for i := 0; iter.Next(); i++ {
		s, err := typeString(iter.Value(), fmt.Sprintf("%s[%d]", path, i))
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}

// CompileError represents a compilation error with source position.
type CompileError struct {
	Field   string
	Message string
	Pos     token.Pos
}

func (e *CompileError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(),
			e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// formatCUEError extracts position info from CUE errors.
func formatCUEError(err error) error {
	if err == nil {
		return nil
	}

	errs := errors.Errors(err)
	if len(errs) == 0 {
		return err
	}

	// Return first error with position info
	firstErr := errs[0]
	positions := errors.Positions(firstErr)
	if len(positions) > 0 {
		return &CompileError{
			Field:   "cue",
			Message: firstErr.Error(),
			Pos:     positions[0],
		}
	}

	return err
}
