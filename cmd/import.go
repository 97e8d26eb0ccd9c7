package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mezonai/accounting/events"
	"github.com/mezonai/accounting/logx"
)

var (
	importFile       string
	importVerifyHash bool
)

var importCmd = &cobra.Command{
	Use:   "import [flags]",
	Short: "Append accounting blocks from a JSON-lines file",
	Long: `Appends every block of the file to the accounting chain. The first block
that does not connect stops the import; blocks before it are kept.
Examples:
  import -f blocks.jsonl
`,
	RunE: func(cmd *cobra.Command, args []string) (err error) {
		bus := events.NewEventBus()
		stores, err := openStores(nodeConfig, bus)
		if err != nil {
			return err
		}
		defer func() {
			if closeErr := stores.AccountingStore.Close(); closeErr != nil && err == nil {
				err = closeErr
			}
		}()

		imported, err := importBlocks(cmd.Context(), stores.AccountingStore, bus, importFile, importVerifyHash)
		fmt.Fprintf(cmd.OutOrStdout(), "imported %d blocks, chain height %d\n", imported, stores.AccountingStore.ChainHeight())
		if err != nil {
			logx.Error("IMPORT", err)
			return err
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(importCmd)
	importCmd.Flags().StringVarP(&importFile, "file", "f", "", "JSON-lines block file")
	importCmd.Flags().BoolVar(&importVerifyHash, "verify-hash", true, "reject blocks whose hash does not match their content")
	_ = importCmd.MarkFlagRequired("file")
}
