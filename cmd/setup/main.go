package main

import (
	"context"
	"os"

	"github.com/sirupsen/logrus"

	"github.com/ThiagoRGoveia/sheet-ingestion/internal/config"
	"github.com/ThiagoRGoveia/sheet-ingestion/internal/database"
)

func main() {
	cfg, err := config.New()
	if err != nil {
		logrus.Fatalf("Failed to load config: %v", err)
	}
	log := logrus.NewEntry(cfg.Logger(os.Stderr)).WithField("app", "setup")
	log.Info("Starting database setup...")

	ctx := context.Background()
	dbpool, err := database.ConnectDB(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Unable to connect to database: %v", err)
	}
	defer dbpool.Close()

	dbManager := database.NewPostgresDBManager(dbpool, log)
	if err := dbManager.CreateTables(ctx); err != nil {
		log.Fatalf("Error creating tables: %v", err)
	}
	log.Info("Database setup finished successfully.")
}
