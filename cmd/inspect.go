package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mezonai/accounting/block"
	"github.com/mezonai/accounting/jsonx"
)

var (
	inspectFrom uint64
	inspectJSON bool
)

var inspectCmd = &cobra.Command{
	Use:   "inspect [flags]",
	Short: "Print the accounting chain",
	RunE: func(cmd *cobra.Command, args []string) error {
		stores, err := openStores(nodeConfig, nil)
		if err != nil {
			return err
		}
		defer stores.AccountingStore.Close()

		out := cmd.OutOrStdout()
		blocks := stores.AccountingStore.GetBlocksAtLeastWithHeight(inspectFrom)
		if inspectJSON {
			enc := jsonx.NewLineEncoder(out)
			for _, b := range blocks {
				if err := enc.Encode(b); err != nil {
					return err
				}
			}
			return nil
		}

		fmt.Fprintf(out, "%d blocks, chain height %d\n", stores.AccountingStore.Len(), stores.AccountingStore.ChainHeight())
		for _, b := range blocks {
			fmt.Fprintln(out, describeBlock(b))
		}
		return nil
	},
}

func describeBlock(b *block.AccountingBlock) string {
	var total int64
	for _, tx := range b.Txs {
		for _, o := range tx.Outputs {
			total += o.Value
		}
	}
	return fmt.Sprintf("%8d  %s  prev=%s  txs=%d  total=%d", b.Height, b.Hash, b.PrevHash, len(b.Txs), total)
}

func init() {
	rootCmd.AddCommand(inspectCmd)
	inspectCmd.Flags().Uint64Var(&inspectFrom, "from", 0, "first height to print")
	inspectCmd.Flags().BoolVar(&inspectJSON, "json", false, "print JSON lines, readable by import")
}
