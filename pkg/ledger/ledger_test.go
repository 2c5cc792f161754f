package ledger_test

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
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

func journal(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "main.ledger")
	require.NoError(t, os.WriteFile(path, []byte("; journal\n"), 0o644))
	return path
}

func registerRow(date, payee, account, amount, total string) string {
	return fmt.Sprintf("%-10s %-35.35s%-39.39s%22s %s", date, payee, account, amount, total)
}

func TestQueryArgs(t *testing.T) {
	q := ledger.Query{
		StartDate:   time.Date(2023, 9, 1, 0, 0, 0, 0, time.UTC),
		JournalFile: "/books/main.ledger",
	}
	assert.Equal(t, []string{
		"r", "-b", "2023-09-01", "-d", ledger.DisplayFilter,
		"-f", "/books/main.ledger", "--date-format", "%Y-%m-%d", "--wide",
	}, q.Args())

	q.Effective = true
	assert.Contains(t, q.Args(), "--effective")
	assert.Equal(t, "-d", q.Args()[3])
}

func TestStartDate(t *testing.T) {
	today := time.Date(2023, 11, 30, 15, 0, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2023, 10, 1, 0, 0, 0, 0, time.UTC), ledger.StartDate(nil, today))

	a, err := models.NewTransaction().SetDateString("2023-09-21").SetReportDateString("2023-09-22").SetCurrency("USD").Build()
	require.NoError(t, err)
	b, err := models.NewTransaction().SetDateString("2023-09-15").SetReportDateString("2023-09-14").SetCurrency("USD").Build()
	require.NoError(t, err)

	assert.Equal(t, "2023-09-14", ledger.StartDate([]*models.Transaction{a, b}, today).Format(models.DateFormat))
}

func TestClientTransactions(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	q := ledger.Query{StartDate: time.Date(2022, 12, 1, 0, 0, 0, 0, time.UTC), JournalFile: journal(t)}
	runner := mocks.NewMockRunner(ctrl)
	runner.EXPECT().Run(gomock.Any(), q.Args()).Return([]string{
		registerRow("2022-12-15", "TRET_AS Distribution", "Income:IB:Dividends:TRET_AS", "-38.40 EUR", "-38.40 EUR"),
		registerRow("", "", "Expenses:IB:Withholding Tax", "5.77 EUR", "-32.63 EUR"),
	}, nil)

	logger := log.New(io.Discard)
	client := ledger.NewClient(logger, runner, register.New(logger, ""))

	txs, err := client.Transactions(context.Background(), q)
	require.NoError(t, err)
	require.Len(t, txs, 2)
	assert.Equal(t, "TRET_AS", txs[0].Symbol())
	assert.Equal(t, "5.77", txs[1].Amount().String())
}

func TestClientTransactionsMissingJournal(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	logger := log.New(io.Discard)
	client := ledger.NewClient(logger, mocks.NewMockRunner(ctrl), register.New(logger, ""))

	_, err := client.Transactions(context.Background(), ledger.Query{JournalFile: filepath.Join(t.TempDir(), "none.ledger")})
	assert.ErrorIs(t, err, models.ErrSourceNotFound)
}

func TestClientTransactionsRunnerFailure(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	runner := mocks.NewMockRunner(ctrl)
	runner.EXPECT().Run(gomock.Any(), gomock.Any()).Return(nil, &ledger.ProcessError{
		Command:  "ledger r",
		ExitCode: 1,
		Stderr:   "Error: Unbalanced transaction",
	})

	logger := log.New(io.Discard)
	client := ledger.NewClient(logger, runner, register.New(logger, ""))

	_, err := client.Transactions(context.Background(), ledger.Query{JournalFile: journal(t)})
	require.ErrorIs(t, err, ledger.ErrExternalProcess)

	var perr *ledger.ProcessError
	require.True(t, errors.As(err, &perr))
	assert.Equal(t, 1, perr.ExitCode)
	assert.Contains(t, err.Error(), "Unbalanced transaction")
}

func TestClientTransactionsDecodeFailure(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	runner := mocks.NewMockRunner(ctrl)
	runner.EXPECT().Run(gomock.Any(), gomock.Any()).Return([]string{
		registerRow("2022-12-15", "XYZ", "Income:IB:Dividends", "1 2 EUR", "1 EUR"),
	}, nil)

	logger := log.New(io.Discard)
	client := ledger.NewClient(logger, runner, register.New(logger, ""))

	txs, err := client.Transactions(context.Background(), ledger.Query{JournalFile: journal(t)})
	assert.ErrorIs(t, err, register.ErrMalformedAmountField)
	assert.Nil(t, txs)
}
