package main

import (
	"os"

	"github.com/spf13/cobra"
)

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "data_ingestion",
		Short:        "Ingest spreadsheet folders into the record tables",
		SilenceUsage: true,
	}
	cmd.AddCommand(newIngestCmd())
	return cmd
}

func execute() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
