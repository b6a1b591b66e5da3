package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/sollayout/internal/locate"
)

// SlotResult is the data payload of the slot command.
type SlotResult struct {
	Spec    string `json:"spec"`
	Slot    string `json:"slot"`
	Decimal string `json:"decimal"`
}

// NewSlotCommand creates the slot command.
func NewSlotCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "slot <erc7201:id | keccak:string | number>",
		Short: "Compute a base storage slot",
		Long: `Compute the storage slot a base location spec refers to.

  erc7201:<id>     keccak256(abi.encode(uint256(keccak256(id)) - 1)) & ~0xff
  keccak:<string>  keccak256(string), the diamond storage convention
  42, 0x2a         the slot itself

Examples:
  sollayout slot erc7201:example.main
  sollayout slot keccak:diamond.standard.diamond.storage`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSlot(rootOpts, args[0], cmd)
		},
	}

	return cmd
}

func runSlot(opts *RootOptions, spec string, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd)

	slot, err := locate.ParseBase(spec)
	if err != nil {
		return outputCommandError(formatter, ErrCodeGeneric, err.Error())
	}

	result := SlotResult{Spec: spec, Slot: locate.Hex(slot), Decimal: slot.String()}
	if opts.Format == "json" {
		return formatter.Success(result)
	}

	fmt.Fprintln(formatter.Writer, result.Slot)
	formatter.VerboseLog("decimal: %s", result.Decimal)
	return nil
}
