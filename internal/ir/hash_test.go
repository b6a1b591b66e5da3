package ir

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fingerprintFixture(offset int) *StructLayout {
	return &StructLayout{
		Name: "Pair",
		Entries: []LayoutEntry{
			{Field: Field{Name: "x", RawType: "uint8", Type: TypeDescriptor{Kind: KindUnsignedInt, Name: "uint8", ByteSize: 1}}, Slot: 0, Offset: 0, Size: 1},
			{Field: Field{Name: "y", RawType: "uint8", Type: TypeDescriptor{Kind: KindUnsignedInt, Name: "uint8", ByteSize: 1}}, Slot: 0, Offset: offset, Size: 1},
		},
	}
}

func TestLayoutFingerprintDeterminism(t *testing.T) {
	fp1, err := LayoutFingerprint(fingerprintFixture(1))
	require.NoError(t, err)

	fp2, err := LayoutFingerprint(fingerprintFixture(1))
	require.NoError(t, err)

	assert.Equal(t, fp1, fp2, "LayoutFingerprint must be deterministic")
	assert.Len(t, fp1, 64, "SHA-256 hex is 64 characters")
}

func TestLayoutFingerprintChangesWithPlacement(t *testing.T) {
	a := MustLayoutFingerprint(fingerprintFixture(1))
	b := MustLayoutFingerprint(fingerprintFixture(2))
	assert.NotEqual(t, a, b, "different offsets should produce different fingerprints")

	renamed := fingerprintFixture(1)
	renamed.Name = "Other"
	assert.NotEqual(t, a, MustLayoutFingerprint(renamed), "struct name is part of identity")
}

func TestSourceHashDomainSeparation(t *testing.T) {
	src := []byte("struct S { uint256 a; }")
	assert.Equal(t, SourceHash(src), SourceHash(src))
	assert.NotEqual(t, SourceHash(src), hashWithDomain(DomainLayout, src))
}
