package layout

import (
	"fmt"

	"github.com/roach88/sollayout/internal/ir"
)

// Allocate lays out a field table in declaration order.
//
// Packable values fill the current slot from offset 0 upward and move to
// the next slot when they do not fit. Struct values and every container
// kind start at offset 0 of a fresh slot and own whole slots; the field
// after them starts a fresh slot as well.
//
// Allocate is pure. It panics if a field carries an unresolved kind or if
// the struct needs more slots than an int can count in bytes; Resolver
// rejects both before allocating.
func Allocate(table *ir.FieldTable) *ir.StructLayout {
	l, err := allocate(table)
	if err != nil {
		panic(fmt.Sprintf("layout: %v", err))
	}
	return l
}

// allocate is Allocate with the slot count checked: it fails with
// InvalidLengthError once the struct would end past maxSlots.
func allocate(table *ir.FieldTable) (*ir.StructLayout, error) {
	l := &ir.StructLayout{
		Name:    table.Name(),
		Entries: make([]ir.LayoutEntry, 0, table.Len()),
	}

	slot, offset := 0, 0
	for i := 0; i < table.Len(); i++ {
		f := table.Field(i)
		size := f.Type.ByteSize

		switch f.Type.Kind {
		case ir.KindStructRef, ir.KindFixedArray, ir.KindMapping, ir.KindDynamicArray, ir.KindDynamicBytes:
			if offset != 0 {
				slot++
				offset = 0
			}
			l.Entries = append(l.Entries, ir.LayoutEntry{Field: f, Slot: slot, Offset: 0, Size: size})
			if f.Type.Slots() > maxSlots-slot {
				return nil, tooLarge(table)
			}
			slot += f.Type.Slots()

		case ir.KindUnsignedInt, ir.KindSignedInt, ir.KindBool, ir.KindAddress, ir.KindFixedBytes, ir.KindEnum:
			if offset+size > ir.SlotSize {
				slot++
				offset = 0
			}
			l.Entries = append(l.Entries, ir.LayoutEntry{Field: f, Slot: slot, Offset: offset, Size: size})
			offset += size
			if offset == ir.SlotSize {
				slot++
				offset = 0
			}
			if end := slot + min(offset, 1); end > maxSlots {
				return nil, tooLarge(table)
			}

		default:
			panic(fmt.Sprintf("layout: field %s.%s has unresolved kind %s", table.Name(), f.Name, f.Type.Kind))
		}
	}
	return l, nil
}

func tooLarge(table *ir.FieldTable) error {
	return &InvalidLengthError{Type: table.Name(), Reason: "struct exceeds addressable storage"}
}
