package database

import (
	"context"

	"github.com/ThiagoRGoveia/sheet-ingestion/internal/models"
)

// RecordStore persists cleaned records. Each call runs in its own transaction
// and returns the number of rows actually inserted; rows colliding with an
// existing record on the table's unique key are skipped.
type RecordStore interface {
	InsertPurchaseOrders(ctx context.Context, orders []models.PurchaseOrder) (int64, error)
	InsertCoalRecords(ctx context.Context, records []models.CoalRecord) (int64, error)
}

type DBManager interface {
	RecordStore
	CreateTables(ctx context.Context) error
	Ping(ctx context.Context) error
}
