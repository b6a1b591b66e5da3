package layout

import (
	"fmt"

	"github.com/roach88/sollayout/internal/ir"
)

// InvariantError reports a layout entry that breaks a packing rule.
type InvariantError struct {
	Struct  string
	Field   string
	Message string
}

func (e *InvariantError) Error() string {
	return fmt.Sprintf("%s.%s: %s", e.Struct, e.Field, e.Message)
}

// CheckInvariants verifies that a layout is well formed:
//   - packable entries fit inside one slot
//   - whole-slot entries start at offset 0 and own their slots
//   - entries never overlap and follow declaration order
func CheckInvariants(l *ir.StructLayout) error {
	end := 0 // first free byte, counted from the base slot
	prevSlot := 0
	for i, e := range l.Entries {
		fail := func(format string, args ...any) error {
			return &InvariantError{Struct: l.Name, Field: e.Name(), Message: fmt.Sprintf(format, args...)}
		}

		if e.Field.Index != i {
			return fail("declaration index %d at position %d", e.Field.Index, i)
		}
		if e.Slot < prevSlot {
			return fail("slot %d precedes slot %d of the previous field", e.Slot, prevSlot)
		}

		if e.Field.Type.ForcesNewSlot {
			if e.Offset != 0 {
				return fail("whole-slot field at offset %d", e.Offset)
			}
			if e.Size%ir.SlotSize != 0 {
				return fail("whole-slot field has size %d", e.Size)
			}
		} else {
			if e.Size < 1 || e.Size > ir.SlotSize {
				return fail("size %d outside 1..%d", e.Size, ir.SlotSize)
			}
			if e.Offset < 0 || e.Offset+e.Size > ir.SlotSize {
				return fail("bytes [%d,%d) cross the slot boundary", e.Offset, e.Offset+e.Size)
			}
		}

		start := e.Slot*ir.SlotSize + e.Offset
		if start < end {
			return fail("overlaps the previous field")
		}
		end = start + e.Size
		if e.Field.Type.ForcesNewSlot {
			end = (e.Slot + e.Field.Type.Slots()) * ir.SlotSize
		}
		prevSlot = e.Slot
	}
	return nil
}
