// Package layout computes Solidity storage layouts for structs.
//
// Resolver maps type tokens to ir.TypeDescriptor values and builds field
// tables from an ir.Unit. Allocate turns a field table into slot, offset and
// size assignments:
//
//   - Slots are 32 bytes. Value types are packed greedily in declaration
//     order and never straddle a slot boundary.
//   - Structs, fixed-size arrays, mappings, dynamic arrays, bytes and string
//     start a fresh slot and own whole slots; the next field starts a fresh
//     slot too.
//   - Mappings, dynamic arrays, bytes and string occupy a single header slot.
//     Their contents live at keccak-derived locations (see package locate).
//
// Nested structs are laid out recursively with the in-progress path passed
// down the call, so a struct that contains itself by value fails with
// CyclicStructReferenceError instead of recursing forever.
//
// Struct names follow Solidity scoping. A struct declared in a contract or
// library is known as Lib.Name everywhere and by its bare name inside Lib;
// a bare name used elsewhere must match exactly one declaration.
package layout
