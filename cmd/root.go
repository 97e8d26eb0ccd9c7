package cmd

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/mezonai/accounting/config"
	"github.com/mezonai/accounting/logx"
)

const defaultConfigPath = "config/config.ini"

var (
	configPath string
	nodeConfig *config.NodeConfig
)

var rootCmd = &cobra.Command{
	Use:   "accounting",
	Short: "Burning man accounting store CLI",
	Long:  "Command line interface for running and maintaining the burning man accounting chain store.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadNodeConfig(configPath)
		if err != nil {
			return err
		}
		nodeConfig = cfg
		logx.Init(logx.Options{
			Dir:        cfg.Log.Dir,
			File:       cfg.Log.File,
			MaxSizeMB:  cfg.Log.MaxSizeMB,
			MaxAgeDays: cfg.Log.MaxAgeDays,
			MaxBackups: cfg.Log.MaxBackups,
			Stdout:     cfg.Log.Stdout,
		})
		return nil
	},
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", defaultConfigPath, "node config file (.ini or .yml)")
}

// loadNodeConfig falls back to the defaults when the default config file is absent
func loadNodeConfig(path string) (*config.NodeConfig, error) {
	if path == defaultConfigPath {
		if _, err := os.Stat(path); os.IsNotExist(err) {
			return config.DefaultNodeConfig(), nil
		}
	}
	return config.LoadNodeConfig(path)
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		logx.Error("CMD", "Command execution failed:", err)
		os.Exit(1)
	}
}
