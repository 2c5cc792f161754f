package service

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/yurifrl/ibcompare/pkg/ledger"
	"github.com/yurifrl/ibcompare/pkg/ledger/mocks"
	"github.com/yurifrl/ibcompare/pkg/models"
	"github.com/yurifrl/ibcompare/pkg/register"
)

const report = `<FlexQueryResponse queryName="cash-tx" type="AF">
<FlexStatements count="1">
<FlexStatement accountId="U1234567">
<CashTransactions>
<CashTransaction symbol="ARCA:SDIV" description="SDIV CASH DIVIDEND USD 0.21 PER SHARE" dateTime="2023-09-14;20:20:00" reportDate="2023-09-15" amount="5.04" currency="USD" type="Dividends" />
<CashTransaction symbol="XYZ" description="XYZ tax" dateTime="2023-10-05" reportDate="2023-10-05" amount="-15.00" currency="USD" type="Withholding Tax" />
<CashTransaction symbol="" description="deposit" dateTime="2023-09-01" reportDate="2023-09-01" amount="1000" currency="USD" type="Deposits/Withdrawals" />
</CashTransactions>
</FlexStatement>
</FlexStatements>
</FlexQueryResponse>
`

const symbolTable = `namespace,symbol,currency,updater,updater_symbol,ledger_symbol,ib_symbol,remarks
ARCA,SDIV,USD,,,SDIV,,
`

func registerRow(date, payee, account, amount, total string) string {
	return fmt.Sprintf("%-10s %-35.35s%-39.39s%22s %s", date, payee, account, amount, total)
}

type fixture struct {
	dir       string
	params    Params
	runner    *mocks.MockRunner
	processor *Processor
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	dir := t.TempDir()
	write := func(name, content string) string {
		path := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
		return path
	}

	ctrl := gomock.NewController(t)
	runner := mocks.NewMockRunner(ctrl)
	logger := log.New(io.Discard)
	client := ledger.NewClient(logger, runner, register.New(logger, "USD"))

	p := NewProcessor(logger, client)
	p.now = func() time.Time { return time.Date(2023, 11, 30, 12, 0, 0, 0, time.UTC) }

	return &fixture{
		dir: dir,
		params: Params{
			ReportPath:  write("2023-10-31_cash-tx.xml", report),
			SymbolsPath: write("symbols.csv", symbolTable),
			Journal:     write("main.ledger", "; journal\n"),
		},
		runner:    runner,
		processor: p,
	}
}

func TestCompare(t *testing.T) {
	f := newFixture(t)

	q := ledger.Query{
		StartDate:   time.Date(2023, 9, 14, 0, 0, 0, 0, time.UTC),
		JournalFile: f.params.Journal,
	}
	f.runner.EXPECT().Run(gomock.Any(), q.Args()).Return([]string{
		registerRow("2023-09-15", "SDIV dividend", "Income:IB:Dividends:SDIV", "-5.04 USD", "-5.04 USD"),
		registerRow("", "", "Assets:IB:Cash", "5.04 USD", "0"),
	}, nil)

	rep, err := f.processor.Compare(context.Background(), f.params)
	require.NoError(t, err)

	assert.Equal(t, 1, rep.MatchedCount())
	assert.Equal(t, []string{
		"New: 2023-10-05/2023-10-05 XYZ    WithholdingTax     -15.00 USD, XYZ tax",
	}, rep.Lines())
}

func TestCompareEffectiveDates(t *testing.T) {
	f := newFixture(t)
	f.params.Effective = true

	f.runner.EXPECT().Run(gomock.Any(), gomock.Any()).DoAndReturn(func(_ context.Context, args []string) ([]string, error) {
		assert.Contains(t, args, "--effective")
		return []string{
			registerRow("2023-09-14", "SDIV dividend", "Income:IB:Dividends:SDIV", "-5.04 USD", "-5.04 USD"),
			registerRow("2023-10-05", "XYZ tax", "Expenses:IB:Withholding", "15.00 USD", "10.00 USD"),
		}, nil
	})

	rep, err := f.processor.Compare(context.Background(), f.params)
	require.NoError(t, err)
	assert.Equal(t, 2, rep.MatchedCount())
	assert.Empty(t, rep.Lines())
}

func TestCompareLatestReportFromDir(t *testing.T) {
	f := newFixture(t)
	f.params.ReportPath = ""
	f.params.ReportsDir = f.dir
	f.params.Pattern = "*_cash-tx.xml"

	f.runner.EXPECT().Run(gomock.Any(), gomock.Any()).Return(nil, nil)

	rep, err := f.processor.Compare(context.Background(), f.params)
	require.NoError(t, err)
	assert.Equal(t, 2, rep.MissingCount())
}

func TestCompareNoLedgerData(t *testing.T) {
	f := newFixture(t)
	f.runner.EXPECT().Run(gomock.Any(), gomock.Any()).Return([]string{
		registerRow("2023-09-15", "SDIV dividend", "Income:IB:Dividends", "-5.04 USD X", "-5.04 USD"),
	}, nil)

	rep, err := f.processor.Compare(context.Background(), f.params)
	assert.ErrorIs(t, err, ErrNoLedgerData)
	assert.ErrorIs(t, err, register.ErrMalformedAmountField)
	assert.Nil(t, rep)
}

func TestCompareMissingSources(t *testing.T) {
	f := newFixture(t)

	params := f.params
	params.ReportPath = filepath.Join(f.dir, "missing.xml")
	_, err := f.processor.Compare(context.Background(), params)
	assert.ErrorIs(t, err, models.ErrSourceNotFound)

	params = f.params
	params.Journal = filepath.Join(f.dir, "missing.ledger")
	_, err = f.processor.Compare(context.Background(), params)
	assert.ErrorIs(t, err, models.ErrSourceNotFound)
}

func TestCompareReaderWithoutBrokerTransactions(t *testing.T) {
	f := newFixture(t)
	f.runner.EXPECT().Run(gomock.Any(), gomock.Any()).Times(0)

	deposits := `<FlexQueryResponse><FlexStatements><FlexStatement accountId="U1"><CashTransactions>
<CashTransaction symbol="" description="deposit" dateTime="2023-09-01" reportDate="2023-09-01" amount="1000" currency="USD" type="Deposits/Withdrawals" />
</CashTransactions></FlexStatement></FlexStatements></FlexQueryResponse>`
	for _, doc := range []string{
		`<FlexQueryResponse><FlexStatements count="0"></FlexStatements></FlexQueryResponse>`,
		deposits,
	} {
		rep, err := f.processor.CompareReader(context.Background(), strings.NewReader(doc), f.params)
		require.NoError(t, err)
		assert.Empty(t, rep.Items)
		assert.Empty(t, rep.Lines())
	}
}

func TestBrokerTransactions(t *testing.T) {
	f := newFixture(t)

	txs, err := f.processor.BrokerTransactions(strings.NewReader(report), f.params.SymbolsPath)
	require.NoError(t, err)
	require.Len(t, txs, 2)
	assert.Equal(t, "SDIV", txs[0].Symbol())

	txs, err = f.processor.BrokerTransactions(strings.NewReader(report), "")
	require.NoError(t, err)
	assert.Equal(t, "ARCA:SDIV", txs[0].Symbol())
}
