package models

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

type PurchaseOrder struct {
	OrderNumber string              `json:"order_number" validate:"required,max=64"`
	Vendor      string              `json:"vendor" validate:"max=128"`
	OrderDate   *time.Time          `json:"order_date,omitempty"`
	Amount      decimal.NullDecimal `json:"amount"`
	CreatedAt   time.Time           `json:"created_at,omitempty"`
}

type CoalRecord struct {
	RecordDate time.Time `json:"record_date" validate:"required"`
	Mine       string    `json:"mine" validate:"max=128"`
	QuantityT  *float64  `json:"quantity_t,omitempty"`
	Quality    string    `json:"quality" validate:"max=64"`
	CreatedAt  time.Time `json:"created_at,omitempty"`
}

// FileOutcome is the result of ingesting one uploaded file.
type FileOutcome struct {
	Name         string `json:"name"`
	StoredPath   string `json:"stored_path"`
	Checksum     string `json:"checksum,omitempty"`
	ContentType  string `json:"content_type,omitempty"`
	RowsRead     int    `json:"rows_read"`
	RowsKept     int    `json:"rows_kept"`
	RowsInserted int    `json:"rows_inserted"`
	RowsStored   int64  `json:"rows_stored"`
	Error        string `json:"error,omitempty"`
}

// Summary reports one upload request. RowsInserted counts the rows handed to the
// store; RowsStored counts the rows the store confirmed after skipping duplicates.
type Summary struct {
	BatchID       string        `json:"batch_id"`
	Kind          string        `json:"kind"`
	Files         []FileOutcome `json:"files"`
	FilesArchived int           `json:"files_archived"`
	RowsInserted  int           `json:"rows_inserted"`
	RowsStored    int64         `json:"rows_stored"`
	Errors        []string      `json:"errors"`
	Message       string        `json:"message"`
}

func SummaryMessage(files, rows int, label string) string {
	return fmt.Sprintf("Uploaded %d file(s), inserted %d %s rows.", files, rows, label)
}

// FileError ties a per-file failure to the uploaded file name.
type FileError struct {
	Name string
	Err  error
}

func (e *FileError) Error() string {
	return fmt.Sprintf("%s: %v", e.Name, e.Err)
}

func (e *FileError) Unwrap() error {
	return e.Err
}

// UploadedFile is one file of an upload request, read fully into memory.
type UploadedFile struct {
	Name string
	Data []byte
}
