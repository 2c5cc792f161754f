package compare

import (
	"github.com/yurifrl/ibcompare/pkg/models"
)

// Equal reports whether a ledger transaction records the broker transaction.
// The ledger posting sits on the income side, so its amount carries the
// opposite sign. Amounts are compared exactly, without tolerance.
//
// The ledger date is compared with the broker effective date when
// useEffective is set, and with the broker report date otherwise.
func Equal(broker, ledger *models.Transaction, useEffective bool) bool {
	if broker == nil || ledger == nil {
		return false
	}
	if ledger.DateString() != broker.ComparisonDate(useEffective) {
		return false
	}
	if ledger.Symbol() != broker.Symbol() {
		return false
	}
	if !ledger.Amount().Equal(broker.Amount().Neg()) {
		return false
	}
	if ledger.Currency() != broker.Currency() {
		return false
	}
	return ledger.Type() == broker.Type()
}
