package store

import (
	"context"
	"fmt"

	"github.com/roach88/sollayout/internal/ir"
)

// Run is one recorded layout invocation.
type Run struct {
	ID            string         `json:"id"`
	Seq           int64          `json:"seq"`
	Source        string         `json:"source"`
	SourceHash    string         `json:"source_hash"`
	Base          string         `json:"base,omitempty"`
	ToolVersion   string         `json:"tool_version"`
	SchemaVersion string         `json:"schema_version"`
	Layouts       []LayoutRecord `json:"layouts,omitempty"`
}

// RecordRun stores run and its layouts in one transaction. ID, Seq and the
// version fields are assigned by the store; the completed run is returned.
//
// Layouts are written with ON CONFLICT(fingerprint) DO NOTHING, so a layout
// that an earlier run already produced is stored once and shared.
func (s *Store) RecordRun(ctx context.Context, run Run) (Run, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Run{}, fmt.Errorf("record run: begin tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	var last int64
	if err := tx.QueryRowContext(ctx, `SELECT COALESCE(MAX(seq), 0) FROM runs`).Scan(&last); err != nil {
		return Run{}, fmt.Errorf("record run: read seq: %w", err)
	}

	run.ID = s.ids.Generate()
	run.Seq = last + 1
	run.ToolVersion = ir.ToolVersion
	run.SchemaVersion = ir.SchemaVersion
	if run.Layouts == nil {
		run.Layouts = []LayoutRecord{}
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO runs
		(id, seq, source, source_hash, base, tool_version, schema_version)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`,
		run.ID,
		run.Seq,
		run.Source,
		run.SourceHash,
		run.Base,
		run.ToolVersion,
		run.SchemaVersion,
	)
	if err != nil {
		return Run{}, fmt.Errorf("record run: insert run: %w", err)
	}

	for i, l := range run.Layouts {
		if l.Fingerprint == "" || l.Canonical == "" {
			return Run{}, fmt.Errorf("record run: layout %d (%s) has no fingerprint or canonical JSON", i, l.Struct)
		}
		_, err := tx.ExecContext(ctx, `
			INSERT INTO layouts (fingerprint, struct_name, total_slots, canonical_json)
			VALUES (?, ?, ?, ?)
			ON CONFLICT(fingerprint) DO NOTHING
		`, l.Fingerprint, l.Struct, l.TotalSlots, l.Canonical)
		if err != nil {
			return Run{}, fmt.Errorf("record run: insert layout %s: %w", l.Struct, err)
		}

		_, err = tx.ExecContext(ctx, `
			INSERT INTO run_layouts (run_id, position, fingerprint)
			VALUES (?, ?, ?)
		`, run.ID, i, l.Fingerprint)
		if err != nil {
			return Run{}, fmt.Errorf("record run: link layout %s: %w", l.Struct, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return Run{}, fmt.Errorf("record run: commit: %w", err)
	}
	return run, nil
}
