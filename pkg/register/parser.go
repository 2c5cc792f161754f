package register

import (
	"fmt"
	"strings"
	"time"
	"unicode"

	"github.com/charmbracelet/log"
	"github.com/shopspring/decimal"

	"github.com/yurifrl/ibcompare/pkg/models"
)

type Parser struct {
	logger   *log.Logger
	currency string
}

// New returns a register parser. An empty currency selects DefaultCurrency.
func New(logger *log.Logger, currency string) *Parser {
	if currency == "" {
		currency = DefaultCurrency
	}
	return &Parser{logger: logger, currency: strings.ToUpper(currency)}
}

// Clean drops blank rows and rows whose posting column is blank. Rows are
// not trimmed since parsing is positional.
func Clean(lines []string) []string {
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		line = strings.TrimRight(line, "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		runes := []rune(line)
		if len(runes) <= postingMarker || unicode.IsSpace(runes[postingMarker]) {
			continue
		}
		out = append(out, line)
	}
	return out
}

// state carries the header context that posting rows inherit. The zero
// value is the no-open-transaction state.
type state struct {
	open  bool
	date  time.Time
	payee string
}

// Parse cleans and parses the register output. Any malformed row aborts
// the parse: the result is then nil, never a partial list.
func (p *Parser) Parse(lines []string) ([]*models.Transaction, error) {
	cleaned := Clean(lines)
	p.logger.Debug("parsing register output", "lines", len(lines), "kept", len(cleaned))

	txs := make([]*models.Transaction, 0, len(cleaned))
	var st state
	for i, line := range cleaned {
		tx, next, err := p.parseLine(line, st)
		if err != nil {
			p.logger.Error("error parsing ledger register output", "row", i+1, "line", line, "error", err)
			return nil, err
		}
		txs = append(txs, tx)
		st = next
	}
	return txs, nil
}

// ParseLine parses a single register row in the context of the header that
// precedes it. A nil header means no transaction is open.
func (p *Parser) ParseLine(line string, header *models.Transaction) (*models.Transaction, error) {
	var st state
	if header != nil {
		st = state{open: true, date: header.Date(), payee: header.Payee()}
	}
	tx, _, err := p.parseLine(line, st)
	return tx, err
}

func (p *Parser) parseLine(line string, st state) (*models.Transaction, state, error) {
	if strings.TrimSpace(line) == "" {
		return nil, st, fmt.Errorf("%w: empty line, clean the output first", ErrMalformedRegisterLine)
	}

	runes := []rune(line)
	hasSymbol := len(runes) > headerMarker && !unicode.IsSpace(runes[headerMarker])

	dateStr := column(runes, dateStart, dateEnd)
	payeeStr := column(runes, payeeStart, payeeEnd)
	accountStr := column(runes, accountStart, accountEnd)
	amountStr := column(runes, amountStart, amountEnd)

	parts := strings.Fields(amountStr)
	if len(parts) != 2 {
		return nil, st, fmt.Errorf("%w: cannot parse ledger amount %q", ErrMalformedAmountField, amountStr)
	}
	amount, err := decimal.NewFromString(strings.ReplaceAll(parts[0], ",", ""))
	if err != nil {
		return nil, st, fmt.Errorf("%w: invalid amount %q: %v", ErrMalformedRegisterLine, parts[0], err)
	}

	next := st
	if dateStr != "" {
		date, err := time.Parse(models.DateFormat, dateStr)
		if err != nil {
			return nil, st, fmt.Errorf("%w: invalid date %q: %v", ErrMalformedRegisterLine, dateStr, err)
		}
		next.open, next.date = true, date
	} else if !st.open {
		return nil, st, fmt.Errorf("%w: posting row without a preceding transaction", ErrMalformedRegisterLine)
	}
	if payeeStr != "" {
		next.payee = payeeStr
	}

	symbol := ""
	if hasSymbol {
		if fields := strings.Fields(next.payee); len(fields) > 0 {
			symbol = fields[0]
		}
	}

	tx, err := models.NewTransaction().
		SetDate(next.date).
		SetSymbol(symbol).
		SetType(classify(accountStr, next.payee)).
		SetAmount(amount).
		SetCurrency(p.currency).
		SetPayee(next.payee).
		SetAccount(accountStr).
		Build()
	if err != nil {
		return nil, st, fmt.Errorf("%w: %v", ErrMalformedRegisterLine, err)
	}
	return tx, next, nil
}

// classify derives the canonical kind from the posting account, mirroring
// the account filter of the ledger query.
func classify(account, payee string) models.CashType {
	account = strings.ToLower(account)
	switch {
	case strings.Contains(account, "withh"):
		return models.WithholdingTax
	case strings.Contains(account, "income"):
		if strings.Contains(strings.ToLower(payee), "lieu") {
			return models.PaymentInLieu
		}
		return models.Dividend
	default:
		return ""
	}
}

// column returns the trimmed runes in [start, end), tolerating short rows.
func column(runes []rune, start, end int) string {
	if start >= len(runes) {
		return ""
	}
	if end > len(runes) {
		end = len(runes)
	}
	return strings.TrimSpace(string(runes[start:end]))
}
