package csv

import (
	"bytes"
	"encoding/csv"

	"github.com/shopspring/decimal"

	"github.com/yurifrl/ibcompare/pkg/models"
)

// Header is the first row of every export.
var Header = []string{"report_date", "date", "symbol", "type", "amount", "currency", "description"}

type Record interface {
	ReportDateString() string
	DateString() string
	Symbol() string
	Type() models.CashType
	Amount() decimal.Decimal
	Currency() string
	Description() string
}

type FilterFunc[T Record] func(T) bool

// Create renders records as CSV, keeping those accepted by filter. A nil
// filter keeps everything.
func Create[T Record](records []T, filter FilterFunc[T]) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(Header); err != nil {
		return nil, err
	}
	for _, r := range records {
		if filter != nil && !filter(r) {
			continue
		}
		if err := w.Write([]string{
			r.ReportDateString(),
			r.DateString(),
			r.Symbol(),
			string(r.Type()),
			r.Amount().StringFixedBank(2),
			r.Currency(),
			r.Description(),
		}); err != nil {
			return nil, err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
