package flex

import (
	"errors"
	"fmt"

	"github.com/charmbracelet/log"

	"github.com/yurifrl/ibcompare/pkg/models"
	"github.com/yurifrl/ibcompare/pkg/symbols"
)

// ErrUnrecognizedTransactionType is returned for a broker type string with
// no canonical counterpart.
var ErrUnrecognizedTransactionType = errors.New("unrecognized transaction type")

var cashActions = map[string]models.CashType{
	"Deposits/Withdrawals":         models.DepositWithdraw,
	"Broker Interest Paid":         models.BrokerInterestPaid,
	"Broker Interest Received":     models.BrokerInterestReceived,
	"Withholding Tax":              models.WithholdingTax,
	"Bond Interest Received":       models.BondInterestReceived,
	"Bond Interest Paid":           models.BondInterestPaid,
	"Other Fees":                   models.Fees,
	"Dividends":                    models.Dividend,
	"Payment In Lieu Of Dividends": models.PaymentInLieu,
	"Commission Adjustments":       models.CommissionAdjustment,

	// short codes used by older exports
	"DIV":   models.Dividend,
	"WHTAX": models.WithholdingTax,
	"PIL":   models.PaymentInLieu,
	"LIEU":  models.PaymentInLieu,
}

// CashAction translates a broker type string into its canonical kind.
func CashAction(code string) (models.CashType, error) {
	kind, ok := cashActions[code]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnrecognizedTransactionType, code)
	}
	return kind, nil
}

// Normalizer turns raw broker transactions into common transactions.
type Normalizer struct {
	logger  *log.Logger
	symbols symbols.Table
}

func NewNormalizer(logger *log.Logger, table symbols.Table) *Normalizer {
	if table == nil {
		table = symbols.Table{}
	}
	return &Normalizer{logger: logger, symbols: table}
}

// Normalize converts raw transactions, keeping only reconcilable kinds and
// rewriting mapped symbols. Input order is preserved.
func (n *Normalizer) Normalize(raw []RawTransaction) []*models.Transaction {
	n.logger.Debug("normalizing broker transactions", "count", len(raw), "include", models.ReconcilableTypes)

	out := make([]*models.Transaction, 0, len(raw))
	for _, r := range raw {
		tx, err := n.Convert(r)
		if err != nil {
			n.logger.Warn("skipping broker transaction", "transaction", r.String(), "error", err)
			continue
		}
		if !tx.Type().Reconcilable() {
			n.logger.Info("skipped", "transaction", r.String(), "type", tx.Type())
			continue
		}

		if mapped, ok := n.symbols.Lookup(tx.Symbol()); ok {
			n.logger.Debug("adjusted symbol", "from", tx.Symbol(), "to", mapped)
			tx = tx.WithSymbol(mapped)
		}
		out = append(out, tx)
	}
	return out
}

// Convert translates one raw transaction without filtering or mapping.
func (n *Normalizer) Convert(r RawTransaction) (*models.Transaction, error) {
	kind, err := CashAction(r.Type)
	if err != nil {
		return nil, err
	}
	return models.NewTransaction().
		SetDate(r.DateTime).
		SetReportDate(r.ReportDate).
		SetSymbol(r.Symbol).
		SetType(kind).
		SetAmount(r.Amount).
		SetCurrency(r.Currency).
		SetDescription(r.Description).
		Build()
}
