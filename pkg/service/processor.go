package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/charmbracelet/log"

	"github.com/yurifrl/ibcompare/pkg/flex"
	"github.com/yurifrl/ibcompare/pkg/ledger"
	"github.com/yurifrl/ibcompare/pkg/models"
	"github.com/yurifrl/ibcompare/pkg/reconcile"
	"github.com/yurifrl/ibcompare/pkg/register"
	"github.com/yurifrl/ibcompare/pkg/symbols"
)

// ErrNoLedgerData is returned when the ledger output cannot be decoded.
var ErrNoLedgerData = errors.New("no ledger data")

// Params describes one comparison run.
type Params struct {
	ReportPath  string
	ReportsDir  string
	Pattern     string
	SymbolsPath string
	Journal     string
	Effective   bool
}

type Processor struct {
	logger  *log.Logger
	reader  *flex.Reader
	symbols *symbols.Loader
	ledger  *ledger.Client
	now     func() time.Time
}

func NewProcessor(logger *log.Logger, client *ledger.Client) *Processor {
	return &Processor{
		logger:  logger,
		reader:  flex.NewReader(logger),
		symbols: symbols.NewLoader(logger),
		ledger:  client,
		now:     time.Now,
	}
}

// Compare resolves the broker report named by p and reconciles it against
// the ledger journal.
func (p *Processor) Compare(ctx context.Context, params Params) (*reconcile.Report, error) {
	path, err := flex.ResolveReport(params.ReportPath, params.ReportsDir, params.Pattern)
	if err != nil {
		return nil, err
	}
	p.logger.Info("reading broker report", "path", path)

	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", models.ErrSourceNotFound, path)
		}
		return nil, fmt.Errorf("error opening report: %w", err)
	}
	defer f.Close()

	return p.CompareReader(ctx, f, params)
}

// CompareReader reconciles an already opened broker export. The report
// location fields of params are ignored. The ledger is not queried when the
// export holds no reconcilable transactions.
func (p *Processor) CompareReader(ctx context.Context, r io.Reader, params Params) (*reconcile.Report, error) {
	brokerTxs, err := p.BrokerTransactions(r, params.SymbolsPath)
	if err != nil {
		return nil, err
	}

	if len(brokerTxs) == 0 {
		p.logger.Info("no broker transactions to compare")
		return reconcile.Build(nil, nil, params.Effective), nil
	}

	q := ledger.Query{
		StartDate:   ledger.StartDate(brokerTxs, p.now()),
		JournalFile: params.Journal,
		Effective:   params.Effective,
	}
	ledgerTxs, err := p.ledger.Transactions(ctx, q)
	if err != nil {
		if errors.Is(err, register.ErrMalformedAmountField) || errors.Is(err, register.ErrMalformedRegisterLine) {
			return nil, fmt.Errorf("%w: %w", ErrNoLedgerData, err)
		}
		return nil, err
	}
	p.logger.Debug("ledger transactions", "count", len(ledgerTxs), "since", q.StartDate.Format(models.DateFormat))

	report := reconcile.Build(brokerTxs, ledgerTxs, params.Effective)
	p.logger.Info("comparison complete", "broker", len(brokerTxs), "matched", report.MatchedCount(), "missing", report.MissingCount())
	return report, nil
}

// BrokerTransactions reads and normalizes a broker export using the symbol
// table at symbolsPath. An empty path applies no symbol mapping.
func (p *Processor) BrokerTransactions(r io.Reader, symbolsPath string) ([]*models.Transaction, error) {
	table := symbols.Table{}
	if symbolsPath != "" {
		var err error
		if table, err = p.symbols.Load(symbolsPath); err != nil {
			return nil, err
		}
	}

	raw, err := p.reader.Parse(r)
	if err != nil {
		return nil, err
	}
	return flex.NewNormalizer(p.logger, table).Normalize(raw), nil
}
