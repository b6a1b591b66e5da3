package layout

import (
	"errors"
	"fmt"
	"strings"
)

// Error codes for resolution failures. The CLI reports these verbatim.
const (
	CodeUnknownType     = "E201"
	CodeInvalidWidth    = "E202"
	CodeCyclicReference = "E203"
	CodeInvalidLength   = "E204"
	CodeEmptyStruct     = "E205"
	CodeStructNotFound  = "E207"
)

// Coder is implemented by errors that carry a stable error code.
type Coder interface {
	Code() string
}

// CodeOf returns the code of the first error in err's chain that has one,
// or "" if none does.
func CodeOf(err error) string {
	var c Coder
	if errors.As(err, &c) {
		return c.Code()
	}
	return ""
}

// UnknownTypeError is returned when a type token matches no elementary
// family and no declared name, or when a bare struct name is declared in
// more than one contract. Candidates lists those declarations.
type UnknownTypeError struct {
	Type       string
	Candidates []string
}

func (e *UnknownTypeError) Error() string {
	if len(e.Candidates) > 0 {
		return fmt.Sprintf("ambiguous type %q: declared as %s", e.Type, strings.Join(e.Candidates, ", "))
	}
	return fmt.Sprintf("unknown type %q", e.Type)
}

func (e *UnknownTypeError) Code() string { return CodeUnknownType }

// InvalidWidthError is returned for uintN/intN widths that are not a multiple
// of 8 in [8, 256], and for bytesN outside [1, 32].
type InvalidWidthError struct {
	Type   string
	Width  int
	Reason string
}

func (e *InvalidWidthError) Error() string {
	return fmt.Sprintf("invalid width in %q: %s", e.Type, e.Reason)
}

func (e *InvalidWidthError) Code() string { return CodeInvalidWidth }

// CyclicStructReferenceError is returned when a struct contains itself by
// value. Path starts and ends with the repeated struct.
type CyclicStructReferenceError struct {
	Path []string
}

func (e *CyclicStructReferenceError) Error() string {
	return "cyclic struct reference: " + strings.Join(e.Path, " → ")
}

func (e *CyclicStructReferenceError) Code() string { return CodeCyclicReference }

// InvalidLengthError is returned for fixed-array lengths that are zero or
// not a decimal or hex literal, and for arrays or structs too large to
// address. Type is the array type or the struct name.
type InvalidLengthError struct {
	Type   string
	Reason string
}

func (e *InvalidLengthError) Error() string {
	return fmt.Sprintf("invalid length of %q: %s", e.Type, e.Reason)
}

func (e *InvalidLengthError) Code() string { return CodeInvalidLength }

// EmptyStructError is returned when a struct with no fields is embedded by
// value.
type EmptyStructError struct {
	Struct string
}

func (e *EmptyStructError) Error() string {
	return fmt.Sprintf("struct %s has no fields and cannot be embedded", e.Struct)
}

func (e *EmptyStructError) Code() string { return CodeEmptyStruct }

// StructNotFoundError is returned by Layout for a name that is not a
// declared struct.
type StructNotFoundError struct {
	Name string
}

func (e *StructNotFoundError) Error() string {
	return fmt.Sprintf("struct %s not found", e.Name)
}

func (e *StructNotFoundError) Code() string { return CodeStructNotFound }

// FieldError locates a resolution failure at a struct field.
type FieldError struct {
	Struct string
	Field  string
	Err    error
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("%s.%s: %v", e.Struct, e.Field, e.Err)
}

func (e *FieldError) Unwrap() error {
	return e.Err
}
