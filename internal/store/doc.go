// Package store provides SQLite-backed storage for recorded layout runs.
//
// A run is one invocation of the layout command: the source it read, the
// base location it placed structs at and the layouts it produced.
//
//   - Runs: id (UUIDv7), source path and hash, base, tool version
//   - Layouts: content-addressed by fingerprint, stored as canonical JSON
//   - Run layouts: which layouts a run produced, in output order
//
// # Ordering
//
// Runs are stamped with seq, a logical clock that is one more than the
// largest recorded seq. All queries order by seq ASC, id ASC COLLATE BINARY
// so that history listings are identical across machines.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
//
// Fingerprints are computed by ir.LayoutFingerprint using RFC 8785
// canonical JSON and SHA-256 with domain separation.
package store
