// Package ledger runs queries against the ledger command-line tool and
// decodes their output.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/charmbracelet/log"

	"github.com/yurifrl/ibcompare/pkg/models"
	"github.com/yurifrl/ibcompare/pkg/register"
)

// DisplayFilter restricts the register to IB income and IB withholding tax.
const DisplayFilter = "(account =~ /income/ and account =~ /ib/) or " +
	"(account =~ /expenses/ and account =~ /ib/ and account =~ /withh/)"

// DefaultLookback is how far back the query starts when there are no broker
// transactions to anchor it.
const DefaultLookback = 60 * 24 * time.Hour

// Query describes one register query.
type Query struct {
	StartDate   time.Time
	JournalFile string
	Effective   bool
}

// Args returns the argument vector for the ledger binary.
func (q Query) Args() []string {
	args := []string{"r", "-b", q.StartDate.Format(models.DateFormat), "-d", DisplayFilter}
	if q.Effective {
		args = append(args, "--effective")
	}
	return append(args, "-f", q.JournalFile, "--date-format", "%Y-%m-%d", "--wide")
}

// StartDate returns the oldest effective or report date among txs, or
// today minus DefaultLookback when txs is empty.
func StartDate(txs []*models.Transaction, today time.Time) time.Time {
	if len(txs) == 0 {
		y, m, d := today.Add(-DefaultLookback).Date()
		return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	}
	oldest := txs[0].Date()
	for _, tx := range txs {
		if tx.Date().Before(oldest) {
			oldest = tx.Date()
		}
		if tx.ReportDate().Before(oldest) {
			oldest = tx.ReportDate()
		}
	}
	return oldest
}

// Client runs register queries and decodes the result.
type Client struct {
	logger  *log.Logger
	runner  Runner
	decoder register.Decoder
}

func NewClient(logger *log.Logger, runner Runner, decoder register.Decoder) *Client {
	return &Client{logger: logger, runner: runner, decoder: decoder}
}

// Transactions runs q and returns the decoded ledger transactions.
func (c *Client) Transactions(ctx context.Context, q Query) ([]*models.Transaction, error) {
	if _, err := os.Stat(q.JournalFile); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: ledger journal %s", models.ErrSourceNotFound, q.JournalFile)
		}
		return nil, fmt.Errorf("ledger journal %s: %w", q.JournalFile, err)
	}

	args := q.Args()
	c.logger.Debug("running ledger", "args", args)

	lines, err := c.runner.Run(ctx, args)
	if err != nil {
		return nil, err
	}
	c.logger.Debug("ledger output", "lines", len(lines))

	txs, err := c.decoder.Parse(lines)
	if err != nil {
		return nil, fmt.Errorf("decoding ledger output: %w", err)
	}
	return txs, nil
}
