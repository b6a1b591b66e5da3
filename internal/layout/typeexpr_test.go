package layout

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTypeExpr_Canonical(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"uint256", "uint256"},
		{"  uint256  ", "uint256"},
		{"address payable", "address"},
		{"uint8[2][3]", "uint8[2][3]"},
		{"uint8 [ 2 ] [ ]", "uint8[2][]"},
		{"mapping(address=>uint256)", "mapping(address => uint256)"},
		{"mapping(address => mapping(bytes32 => Pos[]))", "mapping(address => mapping(bytes32 => Pos[]))"},
		{"mapping(address => uint256)[2]", "mapping(address => uint256)[2]"},
		{"Lib.Pos", "Lib.Pos"},
		{"bytes calldata", "bytes"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			e, err := parseTypeExpr(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, e.String())
		})
	}
}

func TestParseTypeExpr_Structure(t *testing.T) {
	e, err := parseTypeExpr("uint8[2][3]")
	require.NoError(t, err)

	// The rightmost dimension is outermost.
	assert.Equal(t, exprArray, e.kind)
	assert.Equal(t, "3", e.length)
	assert.Equal(t, exprArray, e.elem.kind)
	assert.Equal(t, "2", e.elem.length)
	assert.Equal(t, "uint8", e.elem.elem.name)

	m, err := parseTypeExpr("mapping(uint256 => bool)")
	require.NoError(t, err)
	assert.Equal(t, exprMapping, m.kind)
	assert.Equal(t, "uint256", m.key.name)
	assert.Equal(t, "bool", m.elem.name)
}

func TestParseTypeExpr_Malformed(t *testing.T) {
	for _, input := range []string{
		"",
		"mapping",
		"mapping(address)",
		"mapping(address => uint256",
		"uint256]",
		"uint256[2",
		"uint256 extra",
		"=> uint256",
		"uint256;",
	} {
		t.Run(input, func(t *testing.T) {
			_, err := parseTypeExpr(input)
			var unknown *UnknownTypeError
			require.ErrorAs(t, err, &unknown)
			assert.Equal(t, input, unknown.Type)
		})
	}
}

func TestTokenizeType(t *testing.T) {
	assert.Equal(t,
		[]string{"mapping", "(", "address", "=>", "uint256", "[", "]", ")"},
		tokenizeType("mapping(address=>uint256[])"))
	assert.Equal(t, []string{"Lib.S", "[", "0x1f", "]"}, tokenizeType("Lib.S[0x1f]"))
}
