package database

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/ThiagoRGoveia/sheet-ingestion/internal/models"
)

const (
	PurchaseOrdersTable = "purchase_orders"
	CoalRecordsTable    = "coal_records"
)

var (
	purchaseOrderColumns = []string{"order_number", "vendor", "order_date", "amount"}
	coalRecordColumns    = []string{"record_date", "mine", "quantity_t", "quality"}
)

func ConnectDB(ctx context.Context, connStr string) (*pgxpool.Pool, error) {
	dbpool, err := pgxpool.New(ctx, connStr)
	if err != nil {
		return nil, fmt.Errorf("unable to connect to database: %w", err)
	}
	if err := dbpool.Ping(ctx); err != nil {
		dbpool.Close()
		return nil, fmt.Errorf("unable to reach database: %w", err)
	}
	return dbpool, nil
}

// Pool is the part of *pgxpool.Pool the manager runs on.
type Pool interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Ping(ctx context.Context) error
}

type PostgresDBManager struct {
	dbpool Pool
	log    *logrus.Entry
}

func NewPostgresDBManager(pool Pool, log *logrus.Entry) *PostgresDBManager {
	return &PostgresDBManager{dbpool: pool, log: log.WithField("component", "store")}
}

func (m *PostgresDBManager) Ping(ctx context.Context) error {
	return m.dbpool.Ping(ctx)
}

// CreateTables creates the record tables with their declared unique keys.
func (m *PostgresDBManager) CreateTables(ctx context.Context) error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS purchase_orders (
			id BIGSERIAL PRIMARY KEY,
			order_number VARCHAR(64) NOT NULL,
			vendor VARCHAR(128) NOT NULL DEFAULT '',
			order_date DATE,
			amount NUMERIC(12, 2),
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			CONSTRAINT purchase_orders_order_number_key UNIQUE (order_number)
		);`,
		`CREATE TABLE IF NOT EXISTS coal_records (
			id BIGSERIAL PRIMARY KEY,
			record_date DATE NOT NULL,
			mine VARCHAR(128) NOT NULL DEFAULT '',
			quantity_t DOUBLE PRECISION,
			quality VARCHAR(64) NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			CONSTRAINT coal_records_record_date_mine_key UNIQUE (record_date, mine)
		);`,
	}

	for _, query := range queries {
		if _, err := m.dbpool.Exec(ctx, query); err != nil {
			return fmt.Errorf("error creating tables: %w", err)
		}
	}
	m.log.Info("record tables ready")
	return nil
}

func (m *PostgresDBManager) InsertPurchaseOrders(ctx context.Context, orders []models.PurchaseOrder) (int64, error) {
	rows := make([][]any, len(orders))
	for i, o := range orders {
		rows[i] = purchaseOrderRow(o)
	}
	return m.bulkInsert(ctx, PurchaseOrdersTable, purchaseOrderColumns, []string{"order_number"}, rows)
}

func (m *PostgresDBManager) InsertCoalRecords(ctx context.Context, records []models.CoalRecord) (int64, error) {
	rows := make([][]any, len(records))
	for i, r := range records {
		rows[i] = coalRecordRow(r)
	}
	return m.bulkInsert(ctx, CoalRecordsTable, coalRecordColumns, []string{"record_date", "mine"}, rows)
}

// bulkInsert copies rows into a transaction scoped staging table and moves them
// into the target table, skipping rows that collide on the conflict key.
func (m *PostgresDBManager) bulkInsert(ctx context.Context, table string, columns, conflict []string, rows [][]any) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}

	staging := table + "_staging"
	cols := sanitizeColumns(columns)
	var inserted int64

	err := m.inTx(ctx, func(tx pgx.Tx) error {
		createStaging := fmt.Sprintf(`CREATE TEMP TABLE %s ON COMMIT DROP AS SELECT %s FROM %s WITH NO DATA;`,
			pgx.Identifier{staging}.Sanitize(), cols, pgx.Identifier{table}.Sanitize())
		if _, err := tx.Exec(ctx, createStaging); err != nil {
			return fmt.Errorf("error creating staging table %s: %w", staging, err)
		}

		copied, err := tx.CopyFrom(ctx, pgx.Identifier{staging}, columns, pgx.CopyFromRows(rows))
		if err != nil {
			return fmt.Errorf("unable to copy rows to staging table %s: %w", staging, describePgError(err))
		}

		insertQuery := fmt.Sprintf(`
		INSERT INTO %s (%s)
		SELECT %s FROM %s
		ON CONFLICT (%s) DO NOTHING;`,
			pgx.Identifier{table}.Sanitize(), cols, cols, pgx.Identifier{staging}.Sanitize(), sanitizeColumns(conflict))
		tag, err := tx.Exec(ctx, insertQuery)
		if err != nil {
			return fmt.Errorf("error inserting from staging table %s: %w", staging, describePgError(err))
		}
		inserted = tag.RowsAffected()

		m.log.WithFields(logrus.Fields{
			"table":    table,
			"copied":   copied,
			"inserted": inserted,
		}).Debug("bulk insert")
		return nil
	})
	if err != nil {
		return 0, err
	}
	return inserted, nil
}

// inTx runs fn in a new transaction, rolling back when fn fails.
func (m *PostgresDBManager) inTx(ctx context.Context, fn func(pgx.Tx) error) error {
	tx, err := m.dbpool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("error beginning transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		if rErr := tx.Rollback(ctx); rErr != nil {
			return errors.Join(err, rErr)
		}
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("error committing transaction: %w", err)
	}
	return nil
}

func sanitizeColumns(columns []string) string {
	quoted := make([]string, len(columns))
	for i, c := range columns {
		quoted[i] = pgx.Identifier{c}.Sanitize()
	}
	return strings.Join(quoted, ", ")
}

// describePgError keeps the server message and code in the error text.
func describePgError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return fmt.Errorf("%s (SQLSTATE %s): %w", pgErr.Message, pgErr.Code, err)
	}
	return err
}

// The column order of these rows must match purchaseOrderColumns and coalRecordColumns.

func purchaseOrderRow(o models.PurchaseOrder) []any {
	return []any{o.OrderNumber, o.Vendor, pgDate(o.OrderDate), pgNumeric(o.Amount)}
}

func coalRecordRow(r models.CoalRecord) []any {
	quantity := pgtype.Float8{}
	if r.QuantityT != nil {
		quantity = pgtype.Float8{Float64: *r.QuantityT, Valid: true}
	}
	return []any{pgtype.Date{Time: r.RecordDate, Valid: true}, r.Mine, quantity, r.Quality}
}

func pgDate(t *time.Time) pgtype.Date {
	if t == nil {
		return pgtype.Date{}
	}
	return pgtype.Date{Time: *t, Valid: true}
}

func pgNumeric(d decimal.NullDecimal) pgtype.Numeric {
	if !d.Valid {
		return pgtype.Numeric{}
	}
	return pgtype.Numeric{Int: d.Decimal.Coefficient(), Exp: d.Decimal.Exponent(), Valid: true}
}
