// Package locate maps a struct layout onto absolute storage slots.
//
// A layout's slots are relative to the struct's base. Structs reached through
// computed locations (ERC-7201 namespaces, diamond storage, custom slots)
// have a keccak-derived base; Locate adds it to every entry modulo 2^256.
// The helpers MappingSlot and ArrayDataSlot derive the locations of
// container contents for callers that read raw storage.
package locate

import (
	"fmt"
	"math/big"
	"strings"

	"golang.org/x/crypto/sha3"

	"github.com/roach88/sollayout/internal/ir"
)

var (
	two256   = new(big.Int).Lsh(big.NewInt(1), 256)
	mask256  = new(big.Int).Sub(two256, big.NewInt(1))
	lowByte  = big.NewInt(0xff)
	lowClear = new(big.Int).Xor(mask256, lowByte)
)

// Keccak256 returns the legacy Keccak-256 digest used by the EVM.
func Keccak256(data ...[]byte) []byte {
	h := sha3.NewLegacyKeccak256()
	for _, d := range data {
		_, _ = h.Write(d)
	}
	return h.Sum(nil)
}

// Word encodes v as a 32-byte big-endian word, reduced modulo 2^256.
func Word(v *big.Int) []byte {
	out := make([]byte, 32)
	new(big.Int).And(v, mask256).FillBytes(out)
	return out
}

// Hex formats a slot as 0x-prefixed, zero-padded 64-digit hex.
func Hex(v *big.Int) string {
	return fmt.Sprintf("0x%064x", new(big.Int).And(v, mask256))
}

// ERC7201Slot computes the base slot of an ERC-7201 namespace:
// keccak256(abi.encode(uint256(keccak256(id)) - 1)) & ~0xff.
func ERC7201Slot(id string) *big.Int {
	inner := new(big.Int).SetBytes(Keccak256([]byte(id)))
	inner.Sub(inner, big.NewInt(1))
	inner.And(inner, mask256)
	slot := new(big.Int).SetBytes(Keccak256(Word(inner)))
	return slot.And(slot, lowClear)
}

// KeccakSlot computes keccak256(s), the diamond-storage convention.
func KeccakSlot(s string) *big.Int {
	return new(big.Int).SetBytes(Keccak256([]byte(s)))
}

// ParseBase reads a base location:
//
//	42, 0x2a             literal slot
//	erc7201:<id>         ERC-7201 namespace
//	keccak:<string>      keccak256 of the string
//
// An empty string is slot 0.
func ParseBase(s string) (*big.Int, error) {
	s = strings.TrimSpace(s)
	switch {
	case s == "":
		return new(big.Int), nil
	case strings.HasPrefix(s, "erc7201:"):
		id := strings.TrimPrefix(s, "erc7201:")
		if id == "" {
			return nil, fmt.Errorf("erc7201 namespace id is empty")
		}
		return ERC7201Slot(id), nil
	case strings.HasPrefix(s, "keccak:"):
		return KeccakSlot(strings.TrimPrefix(s, "keccak:")), nil
	}

	v, ok := new(big.Int).SetString(s, 0)
	if !ok {
		return nil, fmt.Errorf("invalid base %q: want a number, erc7201:<id> or keccak:<string>", s)
	}
	if v.Sign() < 0 || v.Cmp(two256) >= 0 {
		return nil, fmt.Errorf("invalid base %q: slot must be in [0, 2^256)", s)
	}
	return v, nil
}

// Location is one field of a layout placed at an absolute slot.
type Location struct {
	Name    string   `json:"name"`
	Type    string   `json:"type"`
	Slot    *big.Int `json:"-"`
	SlotHex string   `json:"slot"`
	Offset  int      `json:"offset"`
	Size    int      `json:"size"`
	Slots   int      `json:"slots"`
}

// Locate places every entry of layout at base + entry.Slot, modulo 2^256.
func Locate(base *big.Int, layout *ir.StructLayout) []Location {
	out := make([]Location, len(layout.Entries))
	for i, e := range layout.Entries {
		slot := new(big.Int).Add(base, big.NewInt(int64(e.Slot)))
		slot.And(slot, mask256)
		out[i] = Location{
			Name:    e.Name(),
			Type:    e.TypeName(),
			Slot:    slot,
			SlotHex: Hex(slot),
			Offset:  e.Offset,
			Size:    e.Size,
			Slots:   e.SlotSpan(),
		}
	}
	return out
}

// MappingSlot returns the slot of mapping[key] for a mapping stored at slot:
// keccak256(key . slot). key must already be the 32-byte padded encoding for
// value-type keys, or the raw bytes for bytes and string keys.
func MappingSlot(key []byte, slot *big.Int) *big.Int {
	return new(big.Int).SetBytes(Keccak256(key, Word(slot)))
}

// ArrayDataSlot returns the first data slot of a dynamic array, bytes or
// string whose length word is stored at slot: keccak256(slot).
func ArrayDataSlot(slot *big.Int) *big.Int {
	return new(big.Int).SetBytes(Keccak256(Word(slot)))
}
