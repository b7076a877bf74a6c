package cmd

import (
	"fmt"
	"math/big"

	"github.com/ardanlabs/storagecost/business/core/gasfee"
	"github.com/spf13/cobra"
)

var (
	gasUsed  uint64
	gasPrice string
)

var feeCmd = &cobra.Command{
	Use:   "fee",
	Short: "Format gas metrics for a gas amount and price in wei",
	RunE:  feeRun,
}

func init() {
	rootCmd.AddCommand(feeCmd)
	feeCmd.Flags().Uint64VarP(&gasUsed, "gas-used", "g", 21000, "Gas units used.")
	feeCmd.Flags().StringVarP(&gasPrice, "gas-price", "w", "1000000000", "Gas price in wei.")
}

func feeRun(cmd *cobra.Command, args []string) error {
	price, ok := new(big.Int).SetString(gasPrice, 10)
	if !ok {
		return fmt.Errorf("gas price %q is not an integer", gasPrice)
	}

	m, err := gasfee.Compute(gasUsed, price)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Gas Price: %s GWEI\n", m.GasPrice)
	fmt.Fprintf(out, "Gas Units: %s\n", m.GasUsed)
	fmt.Fprintf(out, "Total Fee: %s ETH\n", m.TotalFee)
	return nil
}
