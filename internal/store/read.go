package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// ErrRunNotFound is returned by ReadRun for an unknown id.
var ErrRunNotFound = errors.New("run not found")

// ListRuns returns every recorded run without its layouts.
// Results are ordered deterministically: ORDER BY seq ASC, id ASC COLLATE BINARY.
//
// Returns an empty slice (not nil) if nothing has been recorded.
func (s *Store) ListRuns(ctx context.Context) ([]Run, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, seq, source, source_hash, base, tool_version, schema_version
		FROM runs
		ORDER BY seq ASC, id COLLATE BINARY ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	runs := []Run{}
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return runs, nil
}

// ReadRun retrieves a run with its layouts in output order.
// Returns ErrRunNotFound if no run has the id.
func (s *Store) ReadRun(ctx context.Context, id string) (Run, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, seq, source, source_hash, base, tool_version, schema_version
		FROM runs
		WHERE id = ?
	`, id)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	if err != nil {
		return Run{}, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT l.struct_name, l.fingerprint, l.total_slots, l.canonical_json
		FROM run_layouts rl
		JOIN layouts l ON l.fingerprint = rl.fingerprint
		WHERE rl.run_id = ?
		ORDER BY rl.position ASC
	`, id)
	if err != nil {
		return Run{}, fmt.Errorf("query run layouts: %w", err)
	}
	defer rows.Close()

	run.Layouts = []LayoutRecord{}
	for rows.Next() {
		var l LayoutRecord
		if err := rows.Scan(&l.Struct, &l.Fingerprint, &l.TotalSlots, &l.Canonical); err != nil {
			return Run{}, fmt.Errorf("scan run layout: %w", err)
		}
		run.Layouts = append(run.Layouts, l)
	}
	if err := rows.Err(); err != nil {
		return Run{}, fmt.Errorf("iterate run layouts: %w", err)
	}
	return run, nil
}

// StructHistory returns the distinct layouts recorded for a struct name,
// each with the seq of the first run that produced it, oldest first.
func (s *Store) StructHistory(ctx context.Context, structName string) ([]HistoryEntry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT l.fingerprint, l.total_slots, MIN(r.seq) AS first_seq
		FROM layouts l
		JOIN run_layouts rl ON rl.fingerprint = l.fingerprint
		JOIN runs r ON r.id = rl.run_id
		WHERE l.struct_name = ?
		GROUP BY l.fingerprint, l.total_slots
		ORDER BY first_seq ASC, l.fingerprint COLLATE BINARY ASC
	`, structName)
	if err != nil {
		return nil, fmt.Errorf("query struct history: %w", err)
	}
	defer rows.Close()

	history := []HistoryEntry{}
	for rows.Next() {
		var h HistoryEntry
		if err := rows.Scan(&h.Fingerprint, &h.TotalSlots, &h.FirstSeq); err != nil {
			return nil, fmt.Errorf("scan struct history: %w", err)
		}
		history = append(history, h)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate struct history: %w", err)
	}
	return history, nil
}

// HistoryEntry is one distinct layout of a struct over time.
type HistoryEntry struct {
	Fingerprint string `json:"fingerprint"`
	TotalSlots  int    `json:"total_slots"`
	FirstSeq    int64  `json:"first_seq"`
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (Run, error) {
	var run Run
	err := row.Scan(
		&run.ID,
		&run.Seq,
		&run.Source,
		&run.SourceHash,
		&run.Base,
		&run.ToolVersion,
		&run.SchemaVersion,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, err
	}
	if err != nil {
		return Run{}, fmt.Errorf("scan run: %w", err)
	}
	return run, nil
}
