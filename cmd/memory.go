package main

import (
	"encoding/json"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
)

var memorySubmitter string

var memoryCmd = &cobra.Command{
	Use:   "memory",
	Short: "Inspect the submitter alias memory",
}

var memoryListCmd = &cobra.Command{
	Use:   "list",
	Short: "List remembered label aliases for a submitter bucket",
	RunE:  runMemoryList,
}

func init() {
	memoryListCmd.Flags().StringVar(&memorySubmitter, "submitter", "", "submitter id; empty lists the shared bucket")
	memoryCmd.AddCommand(memoryListCmd)
	rootCmd.AddCommand(memoryCmd)
}

func runMemoryList(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	store, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	entries, err := store.GetAliases(ctx, memorySubmitter)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(entries); err != nil {
		return eris.Wrap(err, "encode entries")
	}
	return nil
}
