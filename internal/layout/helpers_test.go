package layout

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roach88/sollayout/internal/ir"
)

// field builds a raw struct member.
func field(name, typ string) ir.RawField {
	return ir.RawField{Name: name, Type: typ}
}

// structDef builds a struct declaration.
func structDef(name string, fields ...ir.RawField) ir.StructDef {
	return ir.StructDef{Name: name, Fields: fields}
}

// mustLayout lays out name from the given structs and fails the test on error.
func mustLayout(t *testing.T, name string, structs ...ir.StructDef) *ir.StructLayout {
	t.Helper()
	l, err := NewResolver(&ir.Unit{Structs: structs}).Layout(name)
	require.NoError(t, err)
	require.NoError(t, CheckInvariants(l))
	return l
}

// placement is the (slot, offset, size) triple of one entry.
type placement struct {
	Name   string
	Slot   int
	Offset int
	Size   int
}

func placements(l *ir.StructLayout) []placement {
	out := make([]placement, len(l.Entries))
	for i, e := range l.Entries {
		out[i] = placement{Name: e.Name(), Slot: e.Slot, Offset: e.Offset, Size: e.Size}
	}
	return out
}
