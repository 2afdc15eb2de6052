package main

import (
	"context"
	"net/http"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/ThiagoRGoveia/sheet-ingestion/internal/archive"
	"github.com/ThiagoRGoveia/sheet-ingestion/internal/bootstrap"
	"github.com/ThiagoRGoveia/sheet-ingestion/internal/config"
	"github.com/ThiagoRGoveia/sheet-ingestion/internal/ingestion"
	"github.com/ThiagoRGoveia/sheet-ingestion/internal/server"
)

func main() {
	cfg, err := config.New()
	if err != nil {
		logrus.Fatalf("Failed to load config: %v", err)
	}
	log := logrus.NewEntry(cfg.Logger(os.Stderr)).WithField("app", "api")

	ctx := context.Background()
	deps, err := bootstrap.New(ctx, cfg, log)
	if err != nil {
		log.Fatalf("Failed to start: %v", err)
	}
	defer deps.Close()

	opts := server.Options{
		Ingester:        ingestion.NewIngestionService(deps.DB, deps.Archive, ingestion.NewMetrics(prometheus.DefaultRegisterer), log),
		Specs:           deps.Specs,
		Health:          deps.DB,
		MediaURL:        cfg.MediaURL,
		MaxUploadSize:   cfg.MaxUploadSize,
		MaxUploadMemory: cfg.MaxUploadMemory,
		Log:             log,
	}
	if local, ok := deps.Archive.(*archive.LocalStore); ok {
		opts.MediaRoot = local.Root()
	}
	if cfg.MetricsEnabled {
		opts.Metrics = promhttp.Handler()
		opts.MetricsPath = cfg.MetricsPath
	}

	srv, err := server.New(opts)
	if err != nil {
		log.Fatalf("Failed to build server: %v", err)
	}

	log.WithField("address", cfg.Address()).Info("Server starting")
	if err := http.ListenAndServe(cfg.Address(), srv.Handler()); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
