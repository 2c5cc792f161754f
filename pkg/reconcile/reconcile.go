// Package reconcile matches broker transactions against ledger transactions
// and reports the ones the ledger is missing. It does no I/O besides
// writing a finished report.
package reconcile

import (
	"fmt"
	"io"

	"github.com/yurifrl/ibcompare/pkg/compare"
	"github.com/yurifrl/ibcompare/pkg/models"
)

// Completed is written after the last report line.
const Completed = "Complete."

// Status is the reconciliation result for one broker transaction.
type Status int

const (
	Matched Status = iota
	Missing
)

func (s Status) String() string {
	switch s {
	case Matched:
		return "matched"
	case Missing:
		return "missing"
	default:
		return fmt.Sprintf("Status(%d)", int(s))
	}
}

// Entry links a broker transaction with the ledger transaction that
// records it, if any.
type Entry struct {
	Broker *models.Transaction
	Ledger *models.Transaction // nil when Status == Missing
	Status Status
}

// Report holds one entry per broker transaction, in broker order.
type Report struct {
	Items   []Entry
	missing []*models.Transaction
}

// Build scans the ledger list for every broker transaction; the first
// ledger transaction that matches wins. A ledger transaction may satisfy
// more than one broker transaction.
func Build(broker, ledger []*models.Transaction, useEffective bool) *Report {
	items := make([]Entry, 0, len(broker))
	missing := make([]*models.Transaction, 0)

	for _, bt := range broker {
		var found *models.Transaction
		for _, lt := range ledger {
			if compare.Equal(bt, lt, useEffective) {
				found = lt
				break
			}
		}
		status := Missing
		if found != nil {
			status = Matched
		}
		items = append(items, Entry{Broker: bt, Ledger: found, Status: status})
		if status == Missing {
			missing = append(missing, bt)
		}
	}

	return &Report{Items: items, missing: missing}
}

// MatchedCount returns how many broker transactions the ledger records.
func (r *Report) MatchedCount() int {
	return len(r.Items) - len(r.missing)
}

// MissingCount returns how many broker transactions the ledger lacks.
func (r *Report) MissingCount() int {
	return len(r.missing)
}

// Missing returns the broker transactions the ledger lacks.
func (r *Report) Missing() []*models.Transaction {
	return r.missing
}

// Lines renders one "New:" line per missing transaction.
func (r *Report) Lines() []string {
	lines := make([]string, 0, len(r.missing))
	for _, tx := range r.missing {
		lines = append(lines, "New: "+tx.String())
	}
	return lines
}

// Print writes the report lines followed by the completion marker.
func (r *Report) Print(w io.Writer) error {
	for _, line := range r.Lines() {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintln(w, Completed)
	return err
}
