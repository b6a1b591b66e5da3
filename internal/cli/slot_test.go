package cli

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSlotCommand(t *testing.T) {
	tests := []struct {
		spec string
		want string
	}{
		{"erc7201:example.main", "0x183a6125c38840424c4a85fa12bab2ab606c4b6d0e7cc73c0c06ba5300eab500"},
		{"keccak:diamond.standard.diamond.storage", "0xc8fcad8db84d3cc18b4c41d551ea0ee66dd599cde068d998e57d5e09332c131c"},
		{"42", "0x000000000000000000000000000000000000000000000000000000000000002a"},
	}

	for _, tt := range tests {
		t.Run(tt.spec, func(t *testing.T) {
			out, err := execute(NewSlotCommand(&RootOptions{Format: "text"}), tt.spec)
			require.NoError(t, err)
			assert.Equal(t, tt.want, strings.TrimSpace(out))
		})
	}
}

func TestSlotCommandJSON(t *testing.T) {
	out, err := execute(NewSlotCommand(&RootOptions{Format: "json"}), "0x2a")
	require.NoError(t, err)

	var result SlotResult
	resp := decodeResponse(t, out, &result)
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, "0x2a", result.Spec)
	assert.Equal(t, "42", result.Decimal)
	assert.Equal(t, "0x000000000000000000000000000000000000000000000000000000000000002a", result.Slot)
}

func TestSlotCommandInvalid(t *testing.T) {
	out, err := execute(NewSlotCommand(&RootOptions{Format: "json"}), "erc7201:")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))

	resp := decodeResponse(t, out, nil)
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, ErrCodeGeneric, resp.Error.Code)
}

func TestSlotThroughRoot(t *testing.T) {
	out, err := execute(NewRootCommand(), "slot", "erc7201:example.main")
	require.NoError(t, err)
	assert.Contains(t, out, "0x183a6125c38840424c4a85fa12bab2ab606c4b6d0e7cc73c0c06ba5300eab500")
}
