package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/mezonai/accounting/events"
	"github.com/mezonai/accounting/exception"
	"github.com/mezonai/accounting/logx"
	"github.com/mezonai/accounting/monitoring"
	"github.com/mezonai/accounting/tradelimits"
)

const shutdownTimeout = 5 * time.Second

var (
	runImportFile string
	runVerifyHash bool
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the accounting node",
	Long: `Opens the accounting store, schedules the legacy file cleanup, serves
metrics and keeps running until interrupted.
Examples:
  # Run and import blocks on start
  run -c config/config.ini -i blocks.jsonl
`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()
		return runNode(ctx)
	},
}

func init() {
	rootCmd.AddCommand(runCmd)
	runCmd.Flags().StringVarP(&runImportFile, "import", "i", "", "JSON-lines block file imported on start")
	runCmd.Flags().BoolVar(&runVerifyHash, "verify-hash", true, "reject imported blocks whose hash does not match their content")
}

func runNode(ctx context.Context) (err error) {
	bus := events.NewEventBus()
	stores, err := openStores(nodeConfig, bus)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := stores.AccountingStore.Close(); closeErr != nil {
			logx.Error("NODE", "Failed to close accounting store:", closeErr)
			if err == nil {
				err = closeErr
			}
		}
	}()
	svc := stores.AccountingStore
	svc.Start()

	params, err := openParamStore(stores.Provider, nodeConfig.TradeLimits.ParamsFile)
	if err != nil {
		return err
	}
	limits := tradelimits.NewTradeLimits(params, svc)
	stopLimits := limits.Listen(bus)
	defer stopLimits()

	monitoring.InitMetrics()
	mux := http.NewServeMux()
	monitoring.RegisterMetrics(mux)
	server := &http.Server{
		Addr:              nodeConfig.Metrics.ListenAddr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	exception.SafeGo("metrics server", func() {
		logx.Info("NODE", "Serving metrics on ", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logx.Error("NODE", "Metrics server stopped:", err)
		}
	})

	if runImportFile != "" {
		imported, importErr := importBlocks(ctx, svc, bus, runImportFile, runVerifyHash)
		logx.Info("NODE", fmt.Sprintf("Imported %d blocks from %s", imported, runImportFile))
		if importErr != nil {
			logx.Error("NODE", "Import stopped:", importErr)
		}
	}

	logx.Info("NODE", fmt.Sprintf("Accounting node running, chain height %d, max trade limit %d",
		svc.ChainHeight(), limits.MaxTradeLimitFromDaoParam()))

	<-ctx.Done()
	logx.Info("NODE", "Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logx.Error("NODE", "Failed to stop metrics server:", err)
	}
	return nil
}
