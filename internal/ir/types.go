package ir

import (
	"encoding/json"
	"fmt"
)

// SlotSize is the width of one storage slot in bytes.
const SlotSize = 32

// Kind identifies the family a TypeDescriptor belongs to.
//
// The first seven kinds are the fixed-size core. The remaining kinds are
// container types that occupy whole slots and never take part in packing.
type Kind int

const (
	KindInvalid Kind = iota
	KindUnsignedInt
	KindSignedInt
	KindBool
	KindAddress
	KindFixedBytes
	KindEnum
	KindStructRef
	KindFixedArray
	KindMapping
	KindDynamicArray
	KindDynamicBytes
)

var kindNames = map[Kind]string{
	KindInvalid:      "invalid",
	KindUnsignedInt:  "uint",
	KindSignedInt:    "int",
	KindBool:         "bool",
	KindAddress:      "address",
	KindFixedBytes:   "fixed_bytes",
	KindEnum:         "enum",
	KindStructRef:    "struct",
	KindFixedArray:   "fixed_array",
	KindMapping:      "mapping",
	KindDynamicArray: "dynamic_array",
	KindDynamicBytes: "dynamic_bytes",
}

// String returns the snake_case name of the kind.
func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// MarshalJSON encodes the kind by name.
func (k Kind) MarshalJSON() ([]byte, error) {
	return json.Marshal(k.String())
}

// UnmarshalJSON decodes a kind name.
func (k *Kind) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err != nil {
		return err
	}
	for kind, n := range kindNames {
		if n == name {
			*k = kind
			return nil
		}
	}
	return fmt.Errorf("unknown kind %q", name)
}

// Elementary reports whether values of this kind are packable value types.
func (k Kind) Elementary() bool {
	switch k {
	case KindUnsignedInt, KindSignedInt, KindBool, KindAddress, KindFixedBytes, KindEnum:
		return true
	}
	return false
}

// Dynamic reports whether the kind uses hash-derived addressing for its data.
func (k Kind) Dynamic() bool {
	switch k {
	case KindMapping, KindDynamicArray, KindDynamicBytes:
		return true
	}
	return false
}

// TypeDescriptor is the resolved form of a type token.
//
// ByteSize is 1..32 for elementary kinds. For kinds that force a new slot it
// is always a whole number of slots (slots*32).
type TypeDescriptor struct {
	Kind          Kind            `json:"kind"`
	Name          string          `json:"name"`
	ByteSize      int             `json:"byte_size"`
	ForcesNewSlot bool            `json:"forces_new_slot"`
	VariantCount  int             `json:"variant_count,omitempty"` // enums only
	Length        int             `json:"length,omitempty"`        // fixed arrays only
	Key           *TypeDescriptor `json:"key,omitempty"`           // mappings only
	Elem          *TypeDescriptor `json:"elem,omitempty"`          // arrays and mapping values
}

// Slots returns the number of whole slots the type claims when it is laid
// out on its own. Packable types report 1.
func (t TypeDescriptor) Slots() int {
	if !t.ForcesNewSlot {
		return 1
	}
	return (t.ByteSize + SlotSize - 1) / SlotSize
}

// String returns the canonical type name.
func (t TypeDescriptor) String() string {
	return t.Name
}

// Field is one declared member of a struct.
type Field struct {
	Name    string         `json:"name"`
	RawType string         `json:"raw_type"`
	Type    TypeDescriptor `json:"type"`
	Index   int            `json:"index"`
}

// FieldTable is the ordered, immutable list of a struct's resolved fields.
// Construct with NewFieldTable; the zero value is an empty table.
type FieldTable struct {
	name   string
	fields []Field
}

// NewFieldTable copies fields into a new table and numbers them in order.
func NewFieldTable(name string, fields []Field) *FieldTable {
	copied := make([]Field, len(fields))
	for i, f := range fields {
		f.Index = i
		copied[i] = f
	}
	return &FieldTable{name: name, fields: copied}
}

// Name returns the struct name the table belongs to.
func (t *FieldTable) Name() string {
	return t.name
}

// Len returns the number of fields.
func (t *FieldTable) Len() int {
	return len(t.fields)
}

// Field returns the i-th field in declaration order.
func (t *FieldTable) Field(i int) Field {
	return t.fields[i]
}

// Fields returns a copy of all fields in declaration order.
func (t *FieldTable) Fields() []Field {
	out := make([]Field, len(t.fields))
	copy(out, t.fields)
	return out
}

// Prefix returns a table holding the first n fields.
func (t *FieldTable) Prefix(n int) *FieldTable {
	if n > len(t.fields) {
		n = len(t.fields)
	}
	return NewFieldTable(t.name, t.fields[:n])
}
