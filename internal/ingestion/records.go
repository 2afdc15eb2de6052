package ingestion

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/ThiagoRGoveia/sheet-ingestion/internal/models"
	"github.com/ThiagoRGoveia/sheet-ingestion/internal/table"
)

var ErrRecordInvalid = errors.New("invalid record")

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// report json field names, which match the column names
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

func buildPurchaseOrders(tbl *table.Table) []models.PurchaseOrder {
	orders := make([]models.PurchaseOrder, 0, tbl.Len())
	for i := 0; i < tbl.Len(); i++ {
		row := tbl.Row(i)
		order := models.PurchaseOrder{
			OrderNumber: row["order_number"].Text,
			Vendor:      row["vendor"].Text,
		}
		if c := row["order_date"]; c.Kind == table.Date {
			d := c.Date
			order.OrderDate = &d
		}
		if c := row["amount"]; c.Kind == table.Number {
			order.Amount = decimal.NewNullDecimal(c.Number)
		}
		orders = append(orders, order)
	}
	return orders
}

func buildCoalRecords(tbl *table.Table) []models.CoalRecord {
	records := make([]models.CoalRecord, 0, tbl.Len())
	for i := 0; i < tbl.Len(); i++ {
		row := tbl.Row(i)
		record := models.CoalRecord{
			RecordDate: row["record_date"].Date,
			Mine:       row["mine"].Text,
			Quality:    row["quality"].Text,
		}
		if c := row["quantity_t"]; c.Kind == table.Number {
			q := c.Number.InexactFloat64()
			record.QuantityT = &q
		}
		records = append(records, record)
	}
	return records
}

// validateRecords checks every record against its struct tags. The first
// violation is reported with its 1-based position among the kept rows.
func validateRecords[T any](v *validator.Validate, records []T) error {
	for i := range records {
		if err := v.Struct(records[i]); err != nil {
			return fmt.Errorf("%w: row %d: %s", ErrRecordInvalid, i+1, describeValidation(err))
		}
	}
	return nil
}

func describeValidation(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return err.Error()
	}
	fe := verrs[0]
	switch fe.Tag() {
	case "max":
		return fmt.Sprintf("%s is longer than %s characters", fe.Field(), fe.Param())
	case "required":
		return fmt.Sprintf("%s is required", fe.Field())
	default:
		return fmt.Sprintf("%s fails %s", fe.Field(), fe.Tag())
	}
}
