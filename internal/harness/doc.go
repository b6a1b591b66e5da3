// Package harness runs layout scenarios: small YAML files that pair a
// Solidity source with the layout (or the error) one struct must produce.
//
// A scenario either inlines its source or points at a .sol file next to
// it, names the struct to lay out and states its expectations:
//
//	name: packing
//	description: small values share a slot
//	source: |
//	  struct S { uint256 a; bytes4 b; bool c; int88 d; uint256 e; }
//	struct: S
//	expect:
//	  total_slots: 3
//	  entries:
//	    - {name: b, slot: 1, offset: 0, size: 4}
//
// Expectations are subset matches: only the entries and attributes listed
// are compared. Every produced layout is also checked against the layout
// invariants (no overlap, monotonic slots, values within their slot), so a
// scenario with an empty expect block still verifies something.
//
// Scenarios with expect_error name the error kind instead, e.g.
// cyclic_struct_reference or invalid_width.
//
// Golden files hold the canonical JSON snapshot of a run (see Snapshot)
// and are compared with goldie.
package harness
