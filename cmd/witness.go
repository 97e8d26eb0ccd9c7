package cmd

import (
	"encoding/hex"
	"fmt"
	"sort"
	"time"

	"github.com/spf13/cobra"

	"github.com/mezonai/accounting/store"
)

var (
	witnessInput string
	witnessDate  int64
)

var witnessCmd = &cobra.Command{
	Use:   "witness",
	Short: "Manage account age witnesses",
}

var witnessAddCmd = &cobra.Command{
	Use:   "add [flags]",
	Short: "Add the account age witness of an account input",
	RunE: func(cmd *cobra.Command, args []string) error {
		stores, err := openStores(nodeConfig, nil)
		if err != nil {
			return err
		}
		defer stores.AccountingStore.Close()

		date := witnessDate
		if date == 0 {
			date = time.Now().UnixMilli()
		}
		w := store.NewAccountAgeWitness([]byte(witnessInput), date)
		if !w.IsDateInTolerance(time.Now()) {
			return fmt.Errorf("witness date %d is not within one day of now", date)
		}
		added, err := stores.AccountAgeWitnesses.Put(w)
		if err != nil {
			return err
		}
		if !added {
			fmt.Fprintf(cmd.OutOrStdout(), "witness %s already exists\n", w.HashAsString())
			return nil
		}
		fmt.Fprintf(cmd.OutOrStdout(), "added witness %s\n", w.HashAsString())
		return nil
	},
}

var witnessListCmd = &cobra.Command{
	Use:   "list",
	Short: "List account age witnesses",
	RunE: func(cmd *cobra.Command, args []string) error {
		stores, err := openStores(nodeConfig, nil)
		if err != nil {
			return err
		}
		defer stores.AccountingStore.Close()

		witnesses, err := stores.AccountAgeWitnesses.Map()
		if err != nil {
			return err
		}
		hashes := make([]string, 0, len(witnesses))
		for h := range witnesses {
			hashes = append(hashes, h)
		}
		sort.Strings(hashes)
		for _, h := range hashes {
			fmt.Fprintf(cmd.OutOrStdout(), "%s  %s\n", h, time.UnixMilli(witnesses[h].Date).UTC().Format(time.RFC3339))
		}
		return nil
	},
}

var witnessGetCmd = &cobra.Command{
	Use:   "get <hash>...",
	Short: "Look up account age witnesses by hex hash",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		hashes := make([][]byte, len(args))
		for i, arg := range args {
			hash, err := hex.DecodeString(arg)
			if err != nil {
				return fmt.Errorf("invalid witness hash %q: %w", arg, err)
			}
			hashes[i] = hash
		}

		stores, err := openStores(nodeConfig, nil)
		if err != nil {
			return err
		}
		defer stores.AccountingStore.Close()

		witnesses, err := stores.AccountAgeWitnesses.GetMany(hashes)
		if err != nil {
			return err
		}
		for i, arg := range args {
			w, ok := witnesses[hex.EncodeToString(hashes[i])]
			if !ok {
				fmt.Fprintf(cmd.OutOrStdout(), "%s  not found\n", arg)
				continue
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s  %s\n", arg, time.UnixMilli(w.Date).UTC().Format(time.RFC3339))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(witnessCmd)
	witnessCmd.AddCommand(witnessAddCmd)
	witnessCmd.AddCommand(witnessListCmd)
	witnessCmd.AddCommand(witnessGetCmd)
	witnessAddCmd.Flags().StringVar(&witnessInput, "input", "", "account age input data")
	witnessAddCmd.Flags().Int64Var(&witnessDate, "date", 0, "witness date in unix millis, defaults to now")
	_ = witnessAddCmd.MarkFlagRequired("input")
}
