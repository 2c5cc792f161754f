package symbols

import (
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleTable = `namespace,symbol,currency,updater,updater_symbol,ledger_symbol,ib_symbol,remarks
ARCA,SDIV,USD,,,,,
BVME.ETF,SDIV,EUR,,,SDIV_MI,SDIV_EUR,same symbol on another exchange
,TRET,EUR,,,TRET_AS,TRET,
,ORPHAN,EUR,,,,,no broker side
XETRA,EXS1,EUR,,,,,
`

func TestResolve(t *testing.T) {
	cases := []struct {
		name       string
		mapping    Mapping
		wantBroker string
		wantLedger string
		wantErr    bool
	}{
		{"ib symbol wins", Mapping{Namespace: "ARCA", Symbol: "SDIV", IBSymbol: "SDIV1"}, "SDIV1", "SDIV", false},
		{"namespace fallback", Mapping{Namespace: "ARCA", Symbol: "SDIV"}, "ARCA:SDIV", "SDIV", false},
		{"ledger symbol wins", Mapping{Namespace: "AEB", Symbol: "TRET", LedgerSymbol: "TRET_AS"}, "AEB:TRET", "TRET_AS", false},
		{"neither broker side", Mapping{Symbol: "ORPHAN", LedgerSymbol: "O"}, "", "", true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			broker, ledger, err := tc.mapping.Resolve()
			if tc.wantErr {
				assert.ErrorIs(t, err, ErrInvalidMapping)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.wantBroker, broker)
			assert.Equal(t, tc.wantLedger, ledger)
		})
	}
}

func TestNewMappingRequiresSymbol(t *testing.T) {
	_, err := NewMapping(map[string]string{ColNamespace: "ARCA"})
	assert.ErrorIs(t, err, ErrInvalidMapping)
}

func TestReadSkipsInvalidRows(t *testing.T) {
	loader := NewLoader(log.New(io.Discard))

	table, err := loader.Read(strings.NewReader(sampleTable))
	require.NoError(t, err)

	assert.Equal(t, Table{
		"ARCA:SDIV":  "SDIV",
		"SDIV_EUR":   "SDIV_MI",
		"TRET":       "TRET_AS",
		"XETRA:EXS1": "EXS1",
	}, table)
}

func TestReadLastWriteWins(t *testing.T) {
	loader := NewLoader(log.New(io.Discard))
	input := "symbol,ib_symbol,ledger_symbol\nA,X,FIRST\nB,X,SECOND\n"

	table, err := loader.Read(strings.NewReader(input))
	require.NoError(t, err)

	got, ok := table.Lookup("X")
	assert.True(t, ok)
	assert.Equal(t, "SECOND", got)
}

func TestLoadIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "symbols.csv")
	require.NoError(t, os.WriteFile(path, []byte(sampleTable), 0o644))

	loader := NewLoader(log.New(io.Discard))
	first, err := loader.Load(path)
	require.NoError(t, err)
	second, err := loader.Load(path)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Len(t, first, 4)
}

func TestLoadMissingFileIsEmpty(t *testing.T) {
	loader := NewLoader(log.New(io.Discard))

	table, err := loader.Load(filepath.Join(t.TempDir(), "missing.csv"))
	require.NoError(t, err)
	assert.Empty(t, table)
}

func TestLoadHeaderOnly(t *testing.T) {
	path := filepath.Join(t.TempDir(), "symbols.csv")
	require.NoError(t, os.WriteFile(path, []byte("symbol,ib_symbol\n"), 0o644))

	table, err := NewLoader(log.New(io.Discard)).Load(path)
	require.NoError(t, err)
	assert.Empty(t, table)
}

func TestFromRowsShortRecords(t *testing.T) {
	loader := NewLoader(log.New(io.Discard))
	header := []string{" Namespace ", "Symbol", "IB_Symbol"}

	table := loader.FromRows(header, [][]string{
		{"ARCA", "SDIV"},
		{"", "VHYL", "VHYL_L"},
	})

	assert.Equal(t, Table{"ARCA:SDIV": "SDIV", "VHYL_L": "VHYL"}, table)
}
