package ingestion

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/ThiagoRGoveia/sheet-ingestion/internal/archive"
	"github.com/ThiagoRGoveia/sheet-ingestion/internal/models"
	"github.com/ThiagoRGoveia/sheet-ingestion/internal/schema"
)

// MockRecordStore is a mock implementation of the RecordStore interface for testing.
type MockRecordStore struct {
	mock.Mock
}

func (m *MockRecordStore) InsertPurchaseOrders(ctx context.Context, orders []models.PurchaseOrder) (int64, error) {
	args := m.Called(ctx, orders)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockRecordStore) InsertCoalRecords(ctx context.Context, records []models.CoalRecord) (int64, error) {
	args := m.Called(ctx, records)
	return args.Get(0).(int64), args.Error(1)
}

type MockFileStore struct {
	mock.Mock
}

func (m *MockFileStore) Save(ctx context.Context, category, name string, data []byte) (archive.Stored, error) {
	args := m.Called(ctx, category, name, data)
	if fn, ok := args.Get(0).(func(context.Context, string, string, []byte) archive.Stored); ok {
		return fn(ctx, category, name, data), args.Error(1)
	}
	return args.Get(0).(archive.Stored), args.Error(1)
}

// archivesAll makes the file store accept every file of a category.
func (m *MockFileStore) archivesAll(category string) {
	m.On("Save", mock.Anything, category, mock.Anything, mock.Anything).Return(
		func(_ context.Context, category, name string, data []byte) archive.Stored {
			return archive.Stored{Path: "/media/" + category + "/" + name, Name: name, Checksum: "abc", ContentType: "text/csv"}
		},
		nil,
	)
}

func BuildTestSetup() (*MockRecordStore, *MockFileStore, *Metrics, *IngestionService) {
	store := new(MockRecordStore)
	files := new(MockFileStore)
	metrics := NewMetrics(prometheus.NewRegistry())
	logger, _ := test.NewNullLogger()
	service := NewIngestionService(store, files, metrics, logrus.NewEntry(logger))
	return store, files, metrics, service
}

func specFor(t *testing.T, name string) *schema.RecordSpec {
	t.Helper()
	spec, err := schema.Default().Get(name)
	require.NoError(t, err)
	return spec
}

func csvFile(name string, lines ...string) models.UploadedFile {
	return models.UploadedFile{Name: name, Data: []byte(strings.Join(lines, "\n") + "\n")}
}

func ordersNamed(numbers ...string) interface{} {
	return mock.MatchedBy(func(orders []models.PurchaseOrder) bool {
		if len(orders) != len(numbers) {
			return false
		}
		for i, o := range orders {
			if o.OrderNumber != numbers[i] {
				return false
			}
		}
		return true
	})
}

func TestIngestionService_Ingest(t *testing.T) {
	ctx := context.Background()

	t.Run("Expect: scenario A to insert one normalized purchase order", func(t *testing.T) {
		store, files, metrics, service := BuildTestSetup()
		po := specFor(t, schema.PurchaseOrders)
		file := csvFile("orders.csv", "po_no,supplier,po_date,total", "PO-100,Acme,2024-01-05,250.50")

		files.On("Save", mock.Anything, "po", "orders.csv", file.Data).
			Return(archive.Stored{Path: "/media/po/orders.csv", Name: "orders.csv", Checksum: "c0ffee", ContentType: "text/csv"}, nil).Once()
		var got []models.PurchaseOrder
		store.On("InsertPurchaseOrders", mock.Anything, mock.Anything).
			Run(func(args mock.Arguments) { got = args.Get(1).([]models.PurchaseOrder) }).
			Return(int64(1), nil).Once()

		summary, err := service.Ingest(ctx, po, []models.UploadedFile{file})

		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, "PO-100", got[0].OrderNumber)
		assert.Equal(t, "Acme", got[0].Vendor)
		require.NotNil(t, got[0].OrderDate)
		assert.Equal(t, time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC), *got[0].OrderDate)
		require.True(t, got[0].Amount.Valid)
		assert.True(t, decimal.RequireFromString("250.50").Equal(got[0].Amount.Decimal))

		assert.Equal(t, "Uploaded 1 file(s), inserted 1 PO rows.", summary.Message)
		assert.Equal(t, 1, summary.FilesArchived)
		assert.Equal(t, 1, summary.RowsInserted)
		assert.Equal(t, int64(1), summary.RowsStored)
		assert.Empty(t, summary.Errors)
		assert.NotEmpty(t, summary.BatchID)
		require.Len(t, summary.Files, 1)
		assert.Equal(t, models.FileOutcome{
			Name: "orders.csv", StoredPath: "/media/po/orders.csv", Checksum: "c0ffee", ContentType: "text/csv",
			RowsRead: 1, RowsKept: 1, RowsInserted: 1, RowsStored: 1,
		}, summary.Files[0])

		assert.Equal(t, float64(1), testutil.ToFloat64(metrics.files.WithLabelValues("po", resultOK)))
		assert.Equal(t, float64(1), testutil.ToFloat64(metrics.rows.WithLabelValues("po", "stored")))
		store.AssertExpectations(t)
		files.AssertExpectations(t)
	})

	t.Run("Expect: scenario B to insert nothing and report no error", func(t *testing.T) {
		store, files, _, service := BuildTestSetup()
		files.archivesAll("coal")

		summary, err := service.Ingest(ctx, specFor(t, schema.CoalRecords), []models.UploadedFile{
			csvFile("coal.csv", "qty,mine", "10,North", "12,South"),
		})

		require.NoError(t, err)
		assert.Equal(t, 0, summary.RowsInserted)
		assert.Empty(t, summary.Errors)
		assert.Equal(t, "Uploaded 1 file(s), inserted 0 coal rows.", summary.Message)
		assert.Equal(t, 2, summary.Files[0].RowsRead)
		assert.Equal(t, 0, summary.Files[0].RowsKept)
		store.AssertNotCalled(t, "InsertCoalRecords", mock.Anything, mock.Anything)
	})

	t.Run("Expect: scenario C unsupported file to be reported while the others proceed", func(t *testing.T) {
		store, files, metrics, service := BuildTestSetup()
		files.archivesAll("po")
		store.On("InsertPurchaseOrders", mock.Anything, ordersNamed("PO-1")).Return(int64(1), nil).Once()

		summary, err := service.Ingest(ctx, specFor(t, schema.PurchaseOrders), []models.UploadedFile{
			{Name: "data.txt", Data: []byte("hello")},
			csvFile("orders.csv", "po number,vendor", "PO-1,Acme"),
		})

		require.NoError(t, err)
		assert.Equal(t, []string{"data.txt: Unsupported file type (use .xlsx, .xls, or .csv)"}, summary.Errors)
		assert.Equal(t, 2, summary.FilesArchived)
		assert.Equal(t, 1, summary.RowsInserted)
		assert.Equal(t, "Uploaded 2 file(s), inserted 1 PO rows.", summary.Message)
		assert.Equal(t, "/media/po/data.txt", summary.Files[0].StoredPath)
		assert.Equal(t, summary.Errors[0], summary.Files[0].Error)
		assert.Equal(t, float64(1), testutil.ToFloat64(metrics.files.WithLabelValues("po", resultFailed)))
		files.AssertNumberOfCalls(t, "Save", 2)
		store.AssertExpectations(t)
	})

	t.Run("Expect: scenario D to count attempted rows separately from stored rows", func(t *testing.T) {
		store, files, _, service := BuildTestSetup()
		files.archivesAll("po")
		store.On("InsertPurchaseOrders", mock.Anything, ordersNamed("PO-7")).Return(int64(1), nil).Once()
		store.On("InsertPurchaseOrders", mock.Anything, ordersNamed("PO-7")).Return(int64(0), nil).Once()

		summary, err := service.Ingest(ctx, specFor(t, schema.PurchaseOrders), []models.UploadedFile{
			csvFile("a.csv", "po,vendor", "PO-7,Acme"),
			csvFile("b.csv", "po,vendor", "PO-7,Other"),
		})

		require.NoError(t, err)
		assert.Equal(t, 2, summary.RowsInserted)
		assert.Equal(t, int64(1), summary.RowsStored)
		assert.Equal(t, "Uploaded 2 file(s), inserted 2 PO rows.", summary.Message)
		assert.Equal(t, int64(0), summary.Files[1].RowsStored)
		store.AssertExpectations(t)
	})

	t.Run("Expect: a store failure to affect only its own file", func(t *testing.T) {
		store, files, _, service := BuildTestSetup()
		files.archivesAll("po")
		store.On("InsertPurchaseOrders", mock.Anything, ordersNamed("PO-1", "PO-2")).Return(int64(0), errors.New("connection reset")).Once()
		store.On("InsertPurchaseOrders", mock.Anything, ordersNamed("PO-3")).Return(int64(1), nil).Once()

		summary, err := service.Ingest(ctx, specFor(t, schema.PurchaseOrders), []models.UploadedFile{
			csvFile("bad.csv", "po", "PO-1", "PO-2"),
			csvFile("good.csv", "po", "PO-3"),
		})

		require.NoError(t, err)
		require.Len(t, summary.Errors, 1)
		assert.Equal(t, "bad.csv: failed to store purchase orders: connection reset", summary.Errors[0])
		assert.Equal(t, 1, summary.RowsInserted)
		assert.Equal(t, 0, summary.Files[0].RowsInserted)
		assert.Equal(t, 2, summary.Files[0].RowsKept)
		store.AssertExpectations(t)
	})

	t.Run("Expect: an over-long field to reject the whole file before storing", func(t *testing.T) {
		store, files, _, service := BuildTestSetup()
		files.archivesAll("po")

		summary, err := service.Ingest(ctx, specFor(t, schema.PurchaseOrders), []models.UploadedFile{
			csvFile("long.csv", "po", "PO-1", strings.Repeat("X", 65)),
		})

		require.NoError(t, err)
		require.Len(t, summary.Errors, 1)
		assert.Contains(t, summary.Errors[0], "long.csv: invalid record: row 2: order_number is longer than 64 characters")
		assert.Equal(t, 0, summary.RowsInserted)
		store.AssertNotCalled(t, "InsertPurchaseOrders", mock.Anything, mock.Anything)
	})

	t.Run("Expect: a required-only row to become a record with defaults", func(t *testing.T) {
		store, files, _, service := BuildTestSetup()
		files.archivesAll("po")
		store.On("InsertPurchaseOrders", mock.Anything, []models.PurchaseOrder{{OrderNumber: "PO-9"}}).Return(int64(1), nil).Once()

		summary, err := service.Ingest(ctx, specFor(t, schema.PurchaseOrders), []models.UploadedFile{
			csvFile("min.csv", "order_number", "PO-9"),
		})

		require.NoError(t, err)
		assert.Equal(t, 1, summary.RowsInserted)
		store.AssertExpectations(t)
	})

	t.Run("Expect: coal rows to carry dates and quantities", func(t *testing.T) {
		store, files, _, service := BuildTestSetup()
		files.archivesAll("coal")
		var got []models.CoalRecord
		store.On("InsertCoalRecords", mock.Anything, mock.Anything).
			Run(func(args mock.Arguments) { got = args.Get(1).([]models.CoalRecord) }).
			Return(int64(2), nil).Once()

		summary, err := service.Ingest(ctx, specFor(t, schema.CoalRecords), []models.UploadedFile{
			csvFile("coal.csv", "Date;Site;Tons;Grade", "2024-03-01;North;1,250.5;A", "03/02/2024;South;;B", "soon;East;3;C"),
		})

		require.NoError(t, err)
		assert.Equal(t, 2, summary.RowsInserted)
		require.Len(t, got, 2)
		assert.Equal(t, time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), got[0].RecordDate)
		assert.Equal(t, "North", got[0].Mine)
		require.NotNil(t, got[0].QuantityT)
		assert.Equal(t, 1250.5, *got[0].QuantityT)
		assert.Equal(t, "A", got[0].Quality)
		assert.Equal(t, time.Date(2024, 3, 2, 0, 0, 0, 0, time.UTC), got[1].RecordDate)
		assert.Nil(t, got[1].QuantityT)
	})

	t.Run("Expect: ErrNoFiles when the batch is empty", func(t *testing.T) {
		store, files, _, service := BuildTestSetup()

		_, err := service.Ingest(ctx, specFor(t, schema.PurchaseOrders), nil)

		assert.ErrorIs(t, err, ErrNoFiles)
		files.AssertNotCalled(t, "Save", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
		store.AssertNotCalled(t, "InsertPurchaseOrders", mock.Anything, mock.Anything)
	})

	t.Run("Expect: an archival failure to abort the batch", func(t *testing.T) {
		store, files, _, service := BuildTestSetup()
		diskFull := errors.New("no space left on device")
		files.On("Save", mock.Anything, "po", "orders.csv", mock.Anything).Return(archive.Stored{}, diskFull).Once()

		_, err := service.Ingest(ctx, specFor(t, schema.PurchaseOrders), []models.UploadedFile{
			csvFile("orders.csv", "po", "PO-1"),
			csvFile("later.csv", "po", "PO-2"),
		})

		var archiveErr *ArchiveError
		require.ErrorAs(t, err, &archiveErr)
		assert.Equal(t, "orders.csv", archiveErr.Name)
		assert.ErrorIs(t, err, diskFull)
		files.AssertNumberOfCalls(t, "Save", 1)
		store.AssertNotCalled(t, "InsertPurchaseOrders", mock.Anything, mock.Anything)
	})
}
