// Package bootstrap builds the dependencies shared by the api and the ingestion
// command from a parsed configuration.
package bootstrap

import (
	"context"
	"fmt"

	"cloud.google.com/go/storage"
	"github.com/sirupsen/logrus"

	"github.com/ThiagoRGoveia/sheet-ingestion/internal/archive"
	"github.com/ThiagoRGoveia/sheet-ingestion/internal/config"
	"github.com/ThiagoRGoveia/sheet-ingestion/internal/database"
	"github.com/ThiagoRGoveia/sheet-ingestion/internal/schema"
)

// Deps holds the long-lived resources of a process. Close releases them.
type Deps struct {
	Specs   schema.Specs
	DB      *database.PostgresDBManager
	Archive archive.FileStore

	closers []func()
}

func (d *Deps) Close() {
	for i := len(d.closers) - 1; i >= 0; i-- {
		d.closers[i]()
	}
}

func New(ctx context.Context, cfg *config.Config, log *logrus.Entry) (*Deps, error) {
	deps := &Deps{}

	specs, err := schema.Load(cfg.SchemaSpecsPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load record specs: %w", err)
	}
	deps.Specs = specs

	dbpool, err := database.ConnectDB(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("unable to connect to database: %w", err)
	}
	deps.closers = append(deps.closers, dbpool.Close)
	deps.DB = database.NewPostgresDBManager(dbpool, log)

	files, err := openArchive(ctx, cfg, specs, log)
	if err != nil {
		deps.Close()
		return nil, err
	}
	deps.Archive = files.store
	if files.close != nil {
		deps.closers = append(deps.closers, files.close)
	}
	return deps, nil
}

type openedArchive struct {
	store archive.FileStore
	close func()
}

func openArchive(ctx context.Context, cfg *config.Config, specs schema.Specs, log *logrus.Entry) (openedArchive, error) {
	switch cfg.ArchiveBackend {
	case config.BackendGCS:
		client, err := storage.NewClient(ctx)
		if err != nil {
			return openedArchive{}, fmt.Errorf("failed to create storage client: %w", err)
		}
		return openedArchive{
			store: archive.NewGCSStore(client, cfg.GCSBucket, log),
			close: func() {
				if err := client.Close(); err != nil {
					log.WithError(err).Warn("failed to close storage client")
				}
			},
		}, nil
	default:
		local := archive.NewLocalStore(cfg.MediaRoot, cfg.MediaURL, log)
		categories := make([]string, 0, len(specs))
		for _, name := range specs.Names() {
			categories = append(categories, specs[name].Category)
		}
		if err := local.Init(categories...); err != nil {
			return openedArchive{}, fmt.Errorf("failed to prepare media root: %w", err)
		}
		return openedArchive{store: local}, nil
	}
}
