package cmd

import (
	"fmt"
	"strings"

	"github.com/Mohsinsiddi/ronexport/internal/address"
	"github.com/Mohsinsiddi/ronexport/internal/ui"
	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"
)

func newChecksumCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "checksum <address>",
		Short: "Validate or convert an address to EIP-55 checksum format",
		Long: `Convert a Ronin address to its EIP-55 checksummed form, report whether
the input was already correctly checksummed, and print its ronin: form.

Examples:
  ronexport checksum 0xd8da6bf26964af9d7eed9e03e53415d37aa96045
  ronexport checksum ronin:d8da6bf26964af9d7eed9e03e53415d37aa96045`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			input := strings.TrimSpace(args[0])
			normalized := address.Normalize(input)
			if !strings.HasPrefix(normalized, "0x") || !common.IsHexAddress(normalized) {
				return fmt.Errorf("%w %q: expected 0x or ronin: followed by 40 hex chars", address.ErrInvalidAddress, input)
			}

			checksummed := address.Checksum(normalized)
			pairs := [][2]string{
				{"Input", input},
				{"Checksummed", ui.Addr(checksummed)},
				{"Ronin", ui.Addr(address.ToRonin(common.HexToAddress(normalized)))},
			}

			switch {
			case normalized == checksummed:
				pairs = append(pairs, [2]string{"Valid", ui.Success("address is correctly checksummed")})
			case address.Validate(normalized) == nil:
				pairs = append(pairs, [2]string{"Valid", ui.Warn("valid address but not checksummed")})
			default:
				pairs = append(pairs, [2]string{"Valid", ui.Err("checksum mismatch")})
			}

			fmt.Fprintln(cmd.OutOrStdout(), ui.KeyValueBlock("EIP-55 Checksum", pairs))
			return nil
		},
	}
}
