package store

import (
	"fmt"

	"github.com/roach88/sollayout/internal/ir"
)

// LayoutRecord is one layout as stored: its identity plus the canonical
// JSON it was fingerprinted from.
type LayoutRecord struct {
	Struct      string `json:"struct"`
	Fingerprint string `json:"fingerprint"`
	TotalSlots  int    `json:"total_slots"`
	Canonical   string `json:"-"`
}

// NewLayoutRecord serializes a layout to canonical JSON and computes its
// fingerprint from the same bytes.
func NewLayoutRecord(l *ir.StructLayout) (LayoutRecord, error) {
	data, err := ir.MarshalCanonical(l.CanonicalMap())
	if err != nil {
		return LayoutRecord{}, fmt.Errorf("marshal layout %s: %w", l.Name, err)
	}
	fp, err := ir.LayoutFingerprint(l)
	if err != nil {
		return LayoutRecord{}, fmt.Errorf("marshal layout %s: %w", l.Name, err)
	}
	return LayoutRecord{
		Struct:      l.Name,
		Fingerprint: fp,
		TotalSlots:  l.TotalSlots(),
		Canonical:   string(data),
	}, nil
}
