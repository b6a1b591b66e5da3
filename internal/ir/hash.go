package ir

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Domain prefixes for content-addressed identity.
// Version suffix enables future algorithm migration.
const (
	DomainLayout = "sollayout/layout/v1"
	DomainSource = "sollayout/source/v1"
)

// hashWithDomain computes SHA256(domain + 0x00 + data).
// The null byte separator prevents domain/data boundary ambiguity.
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// LayoutFingerprint computes the content-addressed identity of a layout.
// Two layouts with the same struct name and entries share a fingerprint.
func LayoutFingerprint(l *StructLayout) (string, error) {
	canonical, err := MarshalCanonical(l.CanonicalMap())
	if err != nil {
		return "", fmt.Errorf("LayoutFingerprint: failed to marshal: %w", err)
	}
	return hashWithDomain(DomainLayout, canonical), nil
}

// SourceHash identifies the input a layout was computed from.
func SourceHash(src []byte) string {
	return hashWithDomain(DomainSource, src)
}

// MustLayoutFingerprint is like LayoutFingerprint but panics on error.
// Use only in tests or when inputs are known to be valid.
func MustLayoutFingerprint(l *StructLayout) string {
	fp, err := LayoutFingerprint(l)
	if err != nil {
		panic(err)
	}
	return fp
}
