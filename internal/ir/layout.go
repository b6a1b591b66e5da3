package ir

// LayoutEntry places one field inside the struct's slot sequence.
//
// Slot is relative to the struct's base location. For packed fields
// Offset+Size never exceeds SlotSize; for fields that force a new slot Offset
// is 0 and Size is a whole number of slots.
type LayoutEntry struct {
	Field  Field `json:"-"`
	Slot   int   `json:"slot"`
	Offset int   `json:"offset"`
	Size   int   `json:"size"`
}

// Name returns the field name.
func (e LayoutEntry) Name() string {
	return e.Field.Name
}

// TypeName returns the raw type token as declared.
func (e LayoutEntry) TypeName() string {
	if e.Field.RawType != "" {
		return e.Field.RawType
	}
	return e.Field.Type.Name
}

// SlotSpan returns how many slots the entry touches.
func (e LayoutEntry) SlotSpan() int {
	return (e.Offset + e.Size + SlotSize - 1) / SlotSize
}

// StructLayout is the ordered layout table for one struct.
type StructLayout struct {
	Name    string        `json:"name"`
	Entries []LayoutEntry `json:"entries"`
}

// TotalSlots returns the number of slots the struct occupies.
func (l *StructLayout) TotalSlots() int {
	if l == nil || len(l.Entries) == 0 {
		return 0
	}
	last := l.Entries[len(l.Entries)-1]
	return last.Slot + last.SlotSpan()
}

// Entry looks up an entry by field name.
func (l *StructLayout) Entry(name string) (LayoutEntry, bool) {
	for _, e := range l.Entries {
		if e.Field.Name == name {
			return e, true
		}
	}
	return LayoutEntry{}, false
}

// Clone returns a deep copy so callers never alias cached layouts.
func (l *StructLayout) Clone() *StructLayout {
	if l == nil {
		return nil
	}
	entries := make([]LayoutEntry, len(l.Entries))
	copy(entries, l.Entries)
	return &StructLayout{Name: l.Name, Entries: entries}
}

// CanonicalMap converts the layout to the generic form accepted by
// MarshalCanonical. Key names are the ones used in every JSON output.
func (l *StructLayout) CanonicalMap() map[string]any {
	entries := make([]any, len(l.Entries))
	for i, e := range l.Entries {
		entries[i] = map[string]any{
			"name":   e.Field.Name,
			"type":   e.TypeName(),
			"kind":   e.Field.Type.Kind.String(),
			"slot":   e.Slot,
			"offset": e.Offset,
			"size":   e.Size,
		}
	}
	return map[string]any{
		"struct":      l.Name,
		"total_slots": l.TotalSlots(),
		"entries":     entries,
	}
}
