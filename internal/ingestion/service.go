package ingestion

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/ThiagoRGoveia/sheet-ingestion/internal/archive"
	"github.com/ThiagoRGoveia/sheet-ingestion/internal/database"
	"github.com/ThiagoRGoveia/sheet-ingestion/internal/models"
	"github.com/ThiagoRGoveia/sheet-ingestion/internal/parser"
	"github.com/ThiagoRGoveia/sheet-ingestion/internal/schema"
	"github.com/ThiagoRGoveia/sheet-ingestion/internal/table"
)

var ErrNoFiles = errors.New("No files provided")

// ArchiveError is a request level failure: the original upload could not be saved.
type ArchiveError struct {
	Name string
	Err  error
}

func (e *ArchiveError) Error() string {
	return fmt.Sprintf("could not archive %s: %v", e.Name, e.Err)
}

func (e *ArchiveError) Unwrap() error {
	return e.Err
}

// Ingester runs an upload batch through the pipeline.
type Ingester interface {
	Ingest(ctx context.Context, spec *schema.RecordSpec, files []models.UploadedFile) (models.Summary, error)
}

type IngestionService struct {
	store    database.RecordStore
	archive  archive.FileStore
	validate *validator.Validate
	metrics  *Metrics
	log      *logrus.Entry
}

func NewIngestionService(store database.RecordStore, files archive.FileStore, metrics *Metrics, log *logrus.Entry) *IngestionService {
	return &IngestionService{
		store:    store,
		archive:  files,
		validate: newValidator(),
		metrics:  metrics,
		log:      log.WithField("component", "ingestion"),
	}
}

// fileResult holds the row counts of one file.
type fileResult struct {
	read     int
	kept     int
	inserted int
	stored   int64
}

// Ingest processes files one at a time: each is archived, then read, normalized,
// coerced and inserted in its own transaction. A failing file is reported in the
// summary's error list and does not affect the others. Only an archival failure
// aborts the batch.
func (s *IngestionService) Ingest(ctx context.Context, spec *schema.RecordSpec, files []models.UploadedFile) (models.Summary, error) {
	summary := models.Summary{
		BatchID: uuid.NewString(),
		Kind:    spec.Name,
		Files:   make([]models.FileOutcome, 0, len(files)),
		Errors:  []string{},
	}
	if len(files) == 0 {
		return summary, ErrNoFiles
	}

	log := s.log.WithFields(logrus.Fields{"batch": summary.BatchID, "kind": spec.Name})

	for _, f := range files {
		stored, err := s.archive.Save(ctx, spec.Category, f.Name, f.Data)
		if err != nil {
			log.WithError(err).WithField("file", f.Name).Error("archival failed")
			return summary, &ArchiveError{Name: f.Name, Err: err}
		}
		summary.FilesArchived++

		outcome := models.FileOutcome{
			Name:        f.Name,
			StoredPath:  stored.Path,
			Checksum:    stored.Checksum,
			ContentType: stored.ContentType,
		}

		start := time.Now()
		result, err := s.ingestFile(ctx, spec, f)
		s.metrics.observeFile(spec.Name, result, err, time.Since(start))

		outcome.RowsRead = result.read
		outcome.RowsKept = result.kept
		if err != nil {
			fileErr := &models.FileError{Name: f.Name, Err: err}
			outcome.Error = fileErr.Error()
			summary.Errors = append(summary.Errors, outcome.Error)
			log.WithError(err).WithField("file", f.Name).Warn("file not ingested")
		} else {
			outcome.RowsInserted = result.inserted
			outcome.RowsStored = result.stored
			summary.RowsInserted += result.inserted
			summary.RowsStored += result.stored
			log.WithFields(logrus.Fields{
				"file":     f.Name,
				"read":     result.read,
				"kept":     result.kept,
				"inserted": result.inserted,
				"stored":   result.stored,
			}).Info("file ingested")
		}
		summary.Files = append(summary.Files, outcome)
	}

	summary.Message = models.SummaryMessage(summary.FilesArchived, summary.RowsInserted, spec.Label)
	return summary, nil
}

// ingestFile runs one file from bytes to stored records. On error the returned
// counts cover the stages that completed and nothing was written.
func (s *IngestionService) ingestFile(ctx context.Context, spec *schema.RecordSpec, f models.UploadedFile) (fileResult, error) {
	var result fileResult

	tbl, err := parser.Read(f.Name, f.Data)
	if err != nil {
		return result, err
	}
	result.read = tbl.Len()

	clean := schema.Clean(tbl, spec)
	result.kept = clean.Len()
	if clean.Len() == 0 {
		return result, nil
	}

	stored, err := s.storeRecords(ctx, spec, clean)
	if err != nil {
		return fileResult{read: result.read, kept: result.kept}, err
	}
	result.inserted = clean.Len()
	result.stored = stored
	return result, nil
}

// storeRecords builds the records of spec from a clean table, validates them and
// inserts them.
func (s *IngestionService) storeRecords(ctx context.Context, spec *schema.RecordSpec, clean *table.Table) (int64, error) {
	switch spec.Name {
	case schema.PurchaseOrders:
		orders := buildPurchaseOrders(clean)
		if err := validateRecords(s.validate, orders); err != nil {
			return 0, err
		}
		n, err := s.store.InsertPurchaseOrders(ctx, orders)
		if err != nil {
			return 0, fmt.Errorf("failed to store purchase orders: %w", err)
		}
		return n, nil
	case schema.CoalRecords:
		records := buildCoalRecords(clean)
		if err := validateRecords(s.validate, records); err != nil {
			return 0, err
		}
		n, err := s.store.InsertCoalRecords(ctx, records)
		if err != nil {
			return 0, fmt.Errorf("failed to store coal records: %w", err)
		}
		return n, nil
	default:
		return 0, fmt.Errorf("no record store for record type %q", spec.Name)
	}
}
