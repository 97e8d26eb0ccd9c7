package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mezonai/accounting/logx"
)

var purgeCmd = &cobra.Command{
	Use:   "purge",
	Short: "Remove the last ten accounting blocks",
	Long: `Removes the last ten blocks, or all of them if the chain is shorter,
so they can be requested again.
`,
	RunE: func(cmd *cobra.Command, args []string) (err error) {
		stores, err := openStores(nodeConfig, nil)
		if err != nil {
			return err
		}
		defer func() {
			if closeErr := stores.AccountingStore.Close(); closeErr != nil && err == nil {
				err = closeErr
			}
		}()

		removed := stores.AccountingStore.PurgeLastTenBlocks()
		logx.Info("TRUNCATE", "Purged", removed, "blocks")
		fmt.Fprintf(cmd.OutOrStdout(), "purged %d blocks, chain height %d\n", removed, stores.AccountingStore.ChainHeight())
		return nil
	},
}

var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Remove all accounting blocks",
	Long: `Removes every block and waits until the empty chain is written. The
chain is rebuilt from scratch on the next run.
`,
	RunE: func(cmd *cobra.Command, args []string) error {
		stores, err := openStores(nodeConfig, nil)
		if err != nil {
			return err
		}
		defer stores.AccountingStore.Close()

		if err := stores.AccountingStore.RemoveAllBlocks(); err != nil {
			logx.Error("TRUNCATE", "Failed to remove all blocks:", err)
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "removed all accounting blocks")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(purgeCmd)
	rootCmd.AddCommand(resetCmd)
}
