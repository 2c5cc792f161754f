// Package symbols maps broker-native security identifiers to the symbols used
// in the ledger journal.
package symbols

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidMapping is returned for a row that cannot produce a broker key.
var ErrInvalidMapping = errors.New("invalid symbol mapping")

// Column names recognised in a symbol table.
const (
	ColNamespace     = "namespace"
	ColSymbol        = "symbol"
	ColCurrency      = "currency"
	ColUpdater       = "updater"
	ColUpdaterSymbol = "updater_symbol"
	ColLedgerSymbol  = "ledger_symbol"
	ColIBSymbol      = "ib_symbol"
	ColRemarks       = "remarks"
)

// Mapping is one row of the symbol table. Empty strings mean "absent".
type Mapping struct {
	// Namespace is the exchange qualifier, e.g. "ARCA".
	Namespace string
	// Symbol is the canonical symbol at the exchange.
	Symbol       string
	LedgerSymbol string
	IBSymbol     string

	// Metadata, not used for matching.
	Currency      string
	Updater       string
	UpdaterSymbol string
	Remarks       string
}

// NewMapping builds a Mapping from a row keyed by column name.
func NewMapping(row map[string]string) (Mapping, error) {
	get := func(key string) string {
		return strings.TrimSpace(row[key])
	}
	m := Mapping{
		Namespace:     get(ColNamespace),
		Symbol:        get(ColSymbol),
		LedgerSymbol:  get(ColLedgerSymbol),
		IBSymbol:      get(ColIBSymbol),
		Currency:      get(ColCurrency),
		Updater:       get(ColUpdater),
		UpdaterSymbol: get(ColUpdaterSymbol),
		Remarks:       get(ColRemarks),
	}
	if m.Symbol == "" {
		return Mapping{}, fmt.Errorf("%w: missing %s column value", ErrInvalidMapping, ColSymbol)
	}
	return m, nil
}

// Resolve returns the broker key and the ledger value for the mapping.
func (m Mapping) Resolve() (brokerKey, ledgerValue string, err error) {
	switch {
	case m.IBSymbol != "":
		brokerKey = m.IBSymbol
	case m.Namespace != "":
		brokerKey = m.Namespace + ":" + m.Symbol
	default:
		return "", "", fmt.Errorf("%w: %q has neither %s nor %s", ErrInvalidMapping, m.Symbol, ColIBSymbol, ColNamespace)
	}

	ledgerValue = m.Symbol
	if m.LedgerSymbol != "" {
		ledgerValue = m.LedgerSymbol
	}
	return brokerKey, ledgerValue, nil
}

// Table maps broker symbols to ledger symbols.
type Table map[string]string

// Lookup returns the ledger symbol for a broker symbol.
func (t Table) Lookup(brokerSymbol string) (string, bool) {
	s, ok := t[brokerSymbol]
	return s, ok
}
