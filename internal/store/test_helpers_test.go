package store

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roach88/sollayout/internal/ir"
)

// createTestStore creates a new store in a temporary directory for testing.
func createTestStore(t *testing.T, ids ...string) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path, WithIDGenerator(NewFixedGenerator(ids...)))
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// createTestLayout builds a one-field layout of a uint256 at slot 0 followed
// by n bools packed into slot 1.
func createTestLayout(t *testing.T, name string, bools int) LayoutRecord {
	t.Helper()
	entries := []ir.LayoutEntry{{
		Field: ir.Field{Name: "total", RawType: "uint256", Type: ir.TypeDescriptor{Kind: ir.KindUnsignedInt, Name: "uint256", ByteSize: 32}},
		Slot:  0, Offset: 0, Size: 32,
	}}
	for i := range bools {
		entries = append(entries, ir.LayoutEntry{
			Field: ir.Field{Name: "flag" + string(rune('a'+i)), RawType: "bool", Index: i + 1, Type: ir.TypeDescriptor{Kind: ir.KindBool, Name: "bool", ByteSize: 1}},
			Slot:  1, Offset: i, Size: 1,
		})
	}
	rec, err := NewLayoutRecord(&ir.StructLayout{Name: name, Entries: entries})
	require.NoError(t, err)
	return rec
}
