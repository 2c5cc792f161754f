package plan

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sample = `
defaults:
  ledger_file: /books/main.ledger
  symbols: /books/symbols.csv
  effective: true
comparisons:
  - name: main
    report: /reports/main_cash-tx.xml
  - reports_dir: /reports/joint
    pattern: "joint_*_cash-tx.xml"
    ledger_file: /books/joint.ledger
    effective: false
`

func TestParse(t *testing.T) {
	p, err := Parse([]byte(sample))
	require.NoError(t, err)
	require.Len(t, p.Comparisons, 2)

	primary := p.Params(p.Comparisons[0])
	assert.Equal(t, "/reports/main_cash-tx.xml", primary.ReportPath)
	assert.Equal(t, "/books/main.ledger", primary.Journal)
	assert.Equal(t, "/books/symbols.csv", primary.SymbolsPath)
	assert.True(t, primary.Effective)

	assert.Equal(t, "comparison-2", p.Comparisons[1].Name)
	joint := p.Params(p.Comparisons[1])
	assert.Equal(t, "/reports/joint", joint.ReportsDir)
	assert.Equal(t, "joint_*_cash-tx.xml", joint.Pattern)
	assert.Equal(t, "/books/joint.ledger", joint.Journal)
	assert.False(t, joint.Effective)
}

func TestParseErrors(t *testing.T) {
	cases := map[string]string{
		"empty":        "defaults: {}\n",
		"no source":    "comparisons:\n  - ledger_file: a.ledger\n",
		"two sources":  "comparisons:\n  - report: a.xml\n    reports_dir: /r\n    ledger_file: a.ledger\n",
		"no ledger":    "comparisons:\n  - report: a.xml\n",
		"invalid yaml": "comparisons: [",
	}
	for name, doc := range cases {
		_, err := Parse([]byte(doc))
		assert.Error(t, err, name)
	}
}

func TestParamsExpandsHome(t *testing.T) {
	t.Setenv("HOME", "/home/ib")
	p, err := Parse([]byte("comparisons:\n  - report: ~/flex/a.xml\n    ledger_file: ~/books/main.ledger\n"))
	require.NoError(t, err)

	params := p.Params(p.Comparisons[0])
	assert.Equal(t, "/home/ib/flex/a.xml", params.ReportPath)
	assert.Equal(t, "/home/ib/books/main.ledger", params.Journal)
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "plan.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sample), 0o644))

	p, err := Load(path)
	require.NoError(t, err)
	assert.Len(t, p.Comparisons, 2)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestPrint(t *testing.T) {
	p, err := Parse([]byte(sample))
	require.NoError(t, err)

	var buf bytes.Buffer
	p.Print(&buf)
	assert.Equal(t,
		"[1] main report=/reports/main_cash-tx.xml ledger=/books/main.ledger effective=true\n"+
			"[2] comparison-2 report=/reports/joint ledger=/books/joint.ledger effective=false\n",
		buf.String())
}
