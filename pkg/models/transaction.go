package models

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// DateFormat is the ISO calendar date layout shared by both sources.
const DateFormat = "2006-01-02"

// CashType is the canonical transaction kind used to match across sources.
type CashType string

const (
	Dividend               CashType = "Dividend"
	WithholdingTax         CashType = "WithholdingTax"
	PaymentInLieu          CashType = "PaymentInLieu"
	DepositWithdraw        CashType = "DepositWithdraw"
	BrokerInterestPaid     CashType = "BrokerInterestPaid"
	BrokerInterestReceived CashType = "BrokerInterestReceived"
	BondInterestReceived   CashType = "BondInterestReceived"
	BondInterestPaid       CashType = "BondInterestPaid"
	Fees                   CashType = "Fees"
	CommissionAdjustment   CashType = "CommissionAdjustment"
)

// ReconcilableTypes lists the kinds that take part in reconciliation.
var ReconcilableTypes = []CashType{Dividend, WithholdingTax, PaymentInLieu}

// Reconcilable reports whether transactions of this kind are compared.
func (c CashType) Reconcilable() bool {
	for _, t := range ReconcilableTypes {
		if c == t {
			return true
		}
	}
	return false
}

// Transaction is the common shape both the broker export and the ledger
// register are normalised into. Values are immutable; use the builder.
type Transaction struct {
	date        time.Time
	reportDate  time.Time
	symbol      string
	kind        CashType
	amount      decimal.Decimal
	currency    string
	description string
	payee       string
	account     string
}

// Date returns the effective date.
func (t *Transaction) Date() time.Time { return t.date }

// ReportDate returns the date the transaction was reported on.
func (t *Transaction) ReportDate() time.Time { return t.reportDate }

func (t *Transaction) DateString() string       { return t.date.Format(DateFormat) }
func (t *Transaction) ReportDateString() string { return t.reportDate.Format(DateFormat) }
func (t *Transaction) Symbol() string           { return t.symbol }
func (t *Transaction) Type() CashType           { return t.kind }
func (t *Transaction) Amount() decimal.Decimal  { return t.amount }
func (t *Transaction) Currency() string         { return t.currency }
func (t *Transaction) Description() string      { return t.description }

// Payee and Account are only set for ledger rows and serve as provenance.
func (t *Transaction) Payee() string   { return t.payee }
func (t *Transaction) Account() string { return t.account }

// ComparisonDate returns the date string used for matching: the effective
// date when useEffective is set, the report date otherwise.
func (t *Transaction) ComparisonDate(useEffective bool) string {
	if useEffective {
		return t.DateString()
	}
	return t.ReportDateString()
}

// WithSymbol returns a copy of the transaction carrying another symbol.
func (t *Transaction) WithSymbol(symbol string) *Transaction {
	c := *t
	c.symbol = symbol
	return &c
}

// String renders the transaction the way the report prints it.
func (t *Transaction) String() string {
	return fmt.Sprintf("%s/%s %-6s %-8s %10s %s, %s",
		t.ReportDateString(),
		t.DateString(),
		t.symbol,
		t.kind,
		t.amount.StringFixedBank(2),
		t.currency,
		t.description)
}

// Builder assembles a Transaction and validates it on Build. The first
// error encountered by a setter is kept and returned from Build.
type Builder struct {
	tx  Transaction
	err error
}

// NewTransaction starts a new builder.
func NewTransaction() *Builder {
	return &Builder{}
}

func (b *Builder) SetDate(d time.Time) *Builder {
	b.tx.date = truncateToDay(d)
	return b
}

// SetDateString parses an ISO date.
func (b *Builder) SetDateString(s string) *Builder {
	d, err := time.Parse(DateFormat, strings.TrimSpace(s))
	if err != nil {
		b.fail(fmt.Errorf("invalid date %q: %w", s, err))
		return b
	}
	b.tx.date = d
	return b
}

func (b *Builder) SetReportDate(d time.Time) *Builder {
	b.tx.reportDate = truncateToDay(d)
	return b
}

func (b *Builder) SetReportDateString(s string) *Builder {
	d, err := time.Parse(DateFormat, strings.TrimSpace(s))
	if err != nil {
		b.fail(fmt.Errorf("invalid report date %q: %w", s, err))
		return b
	}
	b.tx.reportDate = d
	return b
}

func (b *Builder) SetSymbol(symbol string) *Builder {
	b.tx.symbol = strings.TrimSpace(symbol)
	return b
}

func (b *Builder) SetType(kind CashType) *Builder {
	b.tx.kind = kind
	return b
}

func (b *Builder) SetAmount(amount decimal.Decimal) *Builder {
	b.tx.amount = amount
	return b
}

// SetAmountString parses an exact decimal amount.
func (b *Builder) SetAmountString(s string) *Builder {
	amount, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		b.fail(fmt.Errorf("invalid amount %q: %w", s, err))
		return b
	}
	b.tx.amount = amount
	return b
}

func (b *Builder) SetCurrency(currency string) *Builder {
	b.tx.currency = strings.ToUpper(strings.TrimSpace(currency))
	return b
}

func (b *Builder) SetDescription(description string) *Builder {
	b.tx.description = description
	return b
}

func (b *Builder) SetPayee(payee string) *Builder {
	b.tx.payee = payee
	return b
}

func (b *Builder) SetAccount(account string) *Builder {
	b.tx.account = account
	return b
}

// Build validates and returns the transaction. A missing report date
// defaults to the effective date.
func (b *Builder) Build() (*Transaction, error) {
	if b.err != nil {
		return nil, b.err
	}
	if b.tx.date.IsZero() {
		return nil, errors.New("transaction date is required")
	}
	if b.tx.currency == "" {
		return nil, errors.New("transaction currency is required")
	}
	tx := b.tx
	if tx.reportDate.IsZero() {
		tx.reportDate = tx.date
	}
	return &tx, nil
}

func (b *Builder) fail(err error) {
	if b.err == nil {
		b.err = err
	}
}

func truncateToDay(t time.Time) time.Time {
	if t.IsZero() {
		return t
	}
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
