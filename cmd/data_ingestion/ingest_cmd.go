package main

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/ThiagoRGoveia/sheet-ingestion/internal/bootstrap"
	"github.com/ThiagoRGoveia/sheet-ingestion/internal/config"
	"github.com/ThiagoRGoveia/sheet-ingestion/internal/ingestion"
)

func newIngestCmd() *cobra.Command {
	var (
		kind   string
		asJSON bool
	)

	cmd := &cobra.Command{
		Use:   "ingest <folder>",
		Short: "Archive and load every file under a folder as one batch",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.New()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			log := logrus.NewEntry(cfg.Logger(os.Stderr)).WithField("app", "data_ingestion")
			startTime := time.Now()

			deps, err := bootstrap.New(cmd.Context(), cfg, log)
			if err != nil {
				return err
			}
			defer deps.Close()

			spec, err := deps.Specs.Get(kind)
			if err != nil {
				return err
			}

			files, err := ingestion.NewFileProcessor(cfg.MaxUploadSize, log).ScanForFiles(args[0])
			if err != nil {
				return err
			}

			service := ingestion.NewIngestionService(deps.DB, deps.Archive, ingestion.NewMetrics(prometheus.NewRegistry()), log)
			summary, err := service.Ingest(cmd.Context(), spec, files)
			if err != nil {
				return err
			}
			log.WithField("duration", time.Since(startTime).String()).Info("Extraction process finished.")

			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(summary)
			}
			fmt.Fprintln(out, summary.Message)
			for _, msg := range summary.Errors {
				fmt.Fprintf(out, "  error: %s\n", msg)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&kind, "kind", "", "Record kind to load (po or coal)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the batch summary as JSON")
	_ = cmd.MarkFlagRequired("kind")
	return cmd
}
