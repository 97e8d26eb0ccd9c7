package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mezonai/accounting/tradelimits"
)

var (
	riskFactor int64
	paramsFile string
)

var tradeLimitCmd = &cobra.Command{
	Use:   "trade-limit [flags]",
	Short: "Print the risk based trade limits at the current chain height",
	Long: `Examples:
  # Trade limits of a high risk payment method
  trade-limit --risk-factor 8 --params config/params.yml
`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if riskFactor <= 0 {
			return fmt.Errorf("risk factor must be positive, got %d", riskFactor)
		}

		stores, err := openStores(nodeConfig, nil)
		if err != nil {
			return err
		}
		defer stores.AccountingStore.Close()

		file := paramsFile
		if file == "" {
			file = nodeConfig.TradeLimits.ParamsFile
		}
		params, err := openParamStore(stores.Provider, file)
		if err != nil {
			return err
		}

		limits := tradelimits.NewTradeLimits(params, stores.AccountingStore)
		maxLimit := limits.MaxTradeLimitFromDaoParam()
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "chain height:      %d\n", stores.AccountingStore.ChainHeight())
		fmt.Fprintf(out, "max trade limit:   %d\n", maxLimit)
		fmt.Fprintf(out, "first month limit: %d\n", tradelimits.FirstMonthRiskBasedTradeLimit(maxLimit, riskFactor))
		fmt.Fprintf(out, "trade limit:       %d\n", limits.RoundedRiskBasedTradeLimit(maxLimit, riskFactor))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(tradeLimitCmd)
	tradeLimitCmd.Flags().Int64VarP(&riskFactor, "risk-factor", "r", 1, "risk factor of the payment method")
	tradeLimitCmd.Flags().StringVarP(&paramsFile, "params", "p", "", "param changes yaml file, overrides the config")
}
