package symbols

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/Rhymond/go-money"
	"github.com/charmbracelet/log"
	"github.com/extrame/xls"
)

// maxSheetRows caps how many rows are read from a spreadsheet table.
const maxSheetRows = 10000

type Loader struct {
	logger *log.Logger
}

func NewLoader(logger *log.Logger) *Loader {
	return &Loader{logger: logger}
}

// Load reads the symbol table at path and resolves it into a Table. A
// missing file yields an empty table; rejected rows are logged and skipped.
func (l *Loader) Load(path string) (Table, error) {
	l.logger.Debug("loading symbols", "path", path)

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			l.logger.Warn("symbols file not found, proceeding without symbol mapping", "path", path)
			return Table{}, nil
		}
		return nil, fmt.Errorf("failed to read symbols file %s: %w", path, err)
	}

	var rows [][]string
	if strings.EqualFold(filepath.Ext(path), ".xls") {
		rows, err = readSheet(data)
	} else {
		rows, err = readCSV(data)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse symbols file %s: %w", path, err)
	}
	if len(rows) == 0 {
		l.logger.Warn("symbols file is empty", "path", path)
		return Table{}, nil
	}

	return l.FromRows(rows[0], rows[1:]), nil
}

// Read resolves a CSV symbol table from r.
func (l *Loader) Read(r io.Reader) (Table, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	rows, err := readCSV(data)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return Table{}, nil
	}
	return l.FromRows(rows[0], rows[1:]), nil
}

// FromRows resolves rows against the given header. Each row is handled on
// its own: a failing row is skipped and the rest are kept.
func (l *Loader) FromRows(header []string, rows [][]string) Table {
	columns := make([]string, len(header))
	for i, h := range header {
		columns[i] = strings.ToLower(strings.TrimSpace(h))
	}
	l.logger.Debug("symbols table columns", "columns", columns)

	table := make(Table, len(rows))
	for i, rec := range rows {
		row := make(map[string]string, len(columns))
		for j, col := range columns {
			if j < len(rec) {
				row[col] = rec[j]
			}
		}

		mapping, err := NewMapping(row)
		if err != nil {
			l.logger.Warn("skipping symbols row", "line", i+2, "error", err)
			continue
		}
		brokerKey, ledgerValue, err := mapping.Resolve()
		if err != nil {
			l.logger.Warn("skipping symbols row", "line", i+2, "error", err)
			continue
		}
		if mapping.Currency != "" && money.GetCurrency(strings.ToUpper(mapping.Currency)) == nil {
			l.logger.Warn("unknown currency in symbols row", "line", i+2, "symbol", mapping.Symbol, "currency", mapping.Currency)
		}

		if prev, ok := table[brokerKey]; ok && prev != ledgerValue {
			l.logger.Debug("symbol mapping overridden", "broker", brokerKey, "was", prev, "now", ledgerValue)
		}
		table[brokerKey] = ledgerValue
	}

	l.logger.Debug("symbols loaded", "count", len(table))
	return table
}

func readCSV(data []byte) ([][]string, error) {
	r := csv.NewReader(bytes.NewReader(data))
	r.FieldsPerRecord = -1 // rows are validated by column name
	r.TrimLeadingSpace = true
	return r.ReadAll()
}

func readSheet(data []byte) ([][]string, error) {
	workbook, err := xls.OpenReader(bytes.NewReader(data), "utf-8")
	if err != nil {
		return nil, fmt.Errorf("error creating workbook: %w", err)
	}
	rows := workbook.ReadAllCells(maxSheetRows)

	out := make([][]string, 0, len(rows))
	for _, row := range rows {
		if isBlankRow(row) {
			continue
		}
		out = append(out, row)
	}
	return out, nil
}

func isBlankRow(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}
