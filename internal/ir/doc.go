// Package ir provides the shared data model for sollayout: scanned
// declarations (Unit), resolved types (TypeDescriptor, FieldTable) and the
// computed layout tables (StructLayout).
//
// This package contains type definitions and serialization only. All other
// internal packages import ir; ir imports nothing internal.
//
// Key design constraints:
//   - Slots are 32 bytes (SlotSize); slot numbers here are relative to the
//     struct's base location
//   - Canonical JSON (RFC 8785) is the only encoding used for fingerprints
//   - All JSON tags use snake_case
package ir
