package layout

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/sollayout/internal/ir"
)

func packed(name string, index, slot, offset, size int) ir.LayoutEntry {
	return ir.LayoutEntry{
		Field: ir.Field{Name: name, Index: index, Type: ir.TypeDescriptor{Kind: ir.KindUnsignedInt, ByteSize: size}},
		Slot:  slot, Offset: offset, Size: size,
	}
}

func whole(name string, index, slot, slots int) ir.LayoutEntry {
	return ir.LayoutEntry{
		Field: ir.Field{Name: name, Index: index, Type: ir.TypeDescriptor{Kind: ir.KindStructRef, ByteSize: slots * 32, ForcesNewSlot: true}},
		Slot:  slot, Size: slots * 32,
	}
}

func TestCheckInvariants_Valid(t *testing.T) {
	l := &ir.StructLayout{Name: "S", Entries: []ir.LayoutEntry{
		packed("a", 0, 0, 0, 16),
		packed("b", 1, 0, 16, 16),
		whole("c", 2, 1, 2),
		packed("d", 3, 3, 0, 1),
	}}
	assert.NoError(t, CheckInvariants(l))
	assert.NoError(t, CheckInvariants(&ir.StructLayout{Name: "Empty"}))
}

func TestCheckInvariants_Violations(t *testing.T) {
	tests := []struct {
		name    string
		entries []ir.LayoutEntry
		message string
	}{
		{
			"crosses boundary",
			[]ir.LayoutEntry{packed("a", 0, 0, 20, 16)},
			"cross the slot boundary",
		},
		{
			"overlap",
			[]ir.LayoutEntry{packed("a", 0, 0, 0, 16), packed("b", 1, 0, 8, 8)},
			"overlaps",
		},
		{
			"slot goes backwards",
			[]ir.LayoutEntry{packed("a", 0, 2, 0, 1), packed("b", 1, 1, 0, 1)},
			"precedes",
		},
		{
			"whole-slot mid slot",
			[]ir.LayoutEntry{{Field: ir.Field{Name: "s", Type: ir.TypeDescriptor{Kind: ir.KindStructRef, ByteSize: 32, ForcesNewSlot: true}}, Slot: 0, Offset: 4, Size: 32}},
			"offset 4",
		},
		{
			"inside struct slots",
			[]ir.LayoutEntry{whole("s", 0, 0, 2), packed("x", 1, 1, 0, 1)},
			"overlaps",
		},
		{
			"out of declaration order",
			[]ir.LayoutEntry{packed("a", 1, 0, 0, 1)},
			"declaration index",
		},
		{
			"zero size",
			[]ir.LayoutEntry{packed("a", 0, 0, 0, 0)},
			"size 0",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := CheckInvariants(&ir.StructLayout{Name: "S", Entries: tt.entries})
			var invErr *InvariantError
			require.ErrorAs(t, err, &invErr)
			assert.Contains(t, err.Error(), tt.message)
			assert.Equal(t, "S", invErr.Struct)
		})
	}
}
