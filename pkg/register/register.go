// Package register parses the text output of `ledger register` into
// models.Transaction values.
//
// The output is positional: every row is cut into fixed character columns.
// Rows with a date start a new transaction; indented rows are further
// postings of the same transaction and inherit its date and payee.
package register

import (
	"errors"

	"github.com/yurifrl/ibcompare/pkg/models"
)

var (
	// ErrMalformedAmountField is returned when the amount column does not
	// hold exactly two tokens.
	ErrMalformedAmountField = errors.New("malformed amount field")
	// ErrMalformedRegisterLine is returned when a row cannot be interpreted.
	ErrMalformedRegisterLine = errors.New("malformed register line")
)

// DefaultCurrency is assigned to every ledger row; the register output is
// not used to tell commodities apart.
const DefaultCurrency = "EUR"

// Column ranges, in characters, of a `--wide` register row.
const (
	dateStart, dateEnd       = 0, 10
	payeeStart, payeeEnd     = 11, 46
	accountStart, accountEnd = 46, 85
	amountStart, amountEnd   = 85, 107

	// headerMarker is the column that is non-blank on header rows.
	headerMarker = 1
	// postingMarker is the column that is blank on running-balance-only rows.
	// The offset comes from the register layout and has no other rationale.
	postingMarker = 50
)

// Decoder turns the output of a ledger query into transactions. Parser is
// the register implementation; another ledger export format can be plugged
// in without touching the matcher.
type Decoder interface {
	Parse(lines []string) ([]*models.Transaction, error)
}
