// Package flex reads Interactive Brokers Flex Query exports and normalises
// their cash transactions into models.Transaction.
package flex

import (
	"encoding/xml"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/shopspring/decimal"
)

// FlexQueryResponse is the root element of a Flex Query export.
type FlexQueryResponse struct {
	XMLName        xml.Name        `xml:"FlexQueryResponse"`
	FlexStatements []FlexStatement `xml:"FlexStatements>FlexStatement"`
}

// FlexStatement holds the data for one account and period.
type FlexStatement struct {
	AccountID        string            `xml:"accountId,attr"`
	CashTransactions []CashTransaction `xml:"CashTransactions>CashTransaction"`
}

// CashTransaction is the raw XML element. Attributes are kept as strings so
// that a single bad value only drops its own record.
type CashTransaction struct {
	Symbol      string `xml:"symbol,attr"`
	Description string `xml:"description,attr"`
	DateTime    string `xml:"dateTime,attr"`
	ReportDate  string `xml:"reportDate,attr"`
	Amount      string `xml:"amount,attr"`
	Currency    string `xml:"currency,attr"`
	Type        string `xml:"type,attr"`
}

// RawTransaction is a parsed cash transaction as the broker reported it.
type RawTransaction struct {
	AccountID   string
	Symbol      string
	Description string
	ReportDate  time.Time
	DateTime    time.Time
	Amount      decimal.Decimal
	Currency    string
	Type        string
}

func (r RawTransaction) String() string {
	return fmt.Sprintf("%s %s %s %s %s", r.DateTime.Format("2006-01-02"), r.Symbol, r.Type, r.Amount.String(), r.Currency)
}

var dateTimeLayouts = []string{
	"2006-01-02;15:04:05",
	"2006-01-02",
	"20060102;150405",
	"20060102",
}

var dateLayouts = []string{
	"2006-01-02",
	"20060102",
}

type Reader struct {
	logger *log.Logger
}

func NewReader(logger *log.Logger) *Reader {
	return &Reader{logger: logger}
}

// Parse decodes a Flex export and returns its cash transactions sorted by
// timestamp, symbol and type. Malformed records are logged and skipped.
func (r *Reader) Parse(src io.Reader) ([]RawTransaction, error) {
	var response FlexQueryResponse
	if err := xml.NewDecoder(src).Decode(&response); err != nil {
		return nil, fmt.Errorf("failed to decode flex report: %w", err)
	}

	var txs []RawTransaction
	for _, stmt := range response.FlexStatements {
		for _, ct := range stmt.CashTransactions {
			tx, err := convert(stmt.AccountID, ct)
			if err != nil {
				r.logger.Warn("skipping cash transaction", "symbol", ct.Symbol, "type", ct.Type, "error", err)
				continue
			}
			txs = append(txs, tx)
		}
	}

	sort.SliceStable(txs, func(i, j int) bool {
		a, b := txs[i], txs[j]
		if !a.DateTime.Equal(b.DateTime) {
			return a.DateTime.Before(b.DateTime)
		}
		if a.Symbol != b.Symbol {
			return a.Symbol < b.Symbol
		}
		return a.Type < b.Type
	})

	r.logger.Debug("read flex report", "statements", len(response.FlexStatements), "cash_transactions", len(txs))
	return txs, nil
}

func convert(accountID string, ct CashTransaction) (RawTransaction, error) {
	if strings.TrimSpace(ct.DateTime) == "" {
		return RawTransaction{}, fmt.Errorf("dateTime attribute is missing")
	}
	dateTime, err := parseLayouts(ct.DateTime, dateTimeLayouts)
	if err != nil {
		return RawTransaction{}, fmt.Errorf("invalid dateTime: %w", err)
	}
	// a record without reportDate is reported on its effective day
	reportDate := time.Date(dateTime.Year(), dateTime.Month(), dateTime.Day(), 0, 0, 0, 0, time.UTC)
	if strings.TrimSpace(ct.ReportDate) != "" {
		if reportDate, err = parseLayouts(ct.ReportDate, dateLayouts); err != nil {
			return RawTransaction{}, fmt.Errorf("invalid reportDate: %w", err)
		}
	}
	amount, err := decimal.NewFromString(strings.TrimSpace(ct.Amount))
	if err != nil {
		return RawTransaction{}, fmt.Errorf("invalid amount %q: %w", ct.Amount, err)
	}

	return RawTransaction{
		AccountID:   accountID,
		Symbol:      strings.TrimSpace(ct.Symbol),
		Description: ct.Description,
		ReportDate:  reportDate,
		DateTime:    dateTime,
		Amount:      amount,
		Currency:    strings.TrimSpace(ct.Currency),
		Type:        strings.TrimSpace(ct.Type),
	}, nil
}

func parseLayouts(value string, layouts []string) (time.Time, error) {
	value = strings.TrimSpace(value)
	for _, layout := range layouts {
		if len(value) != len(layout) {
			continue
		}
		if t, err := time.Parse(layout, value); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unsupported date %q", value)
}
