package executors

import (
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"
)

var (
	titleStyle   = lipgloss.NewStyle().Bold(true)
	syncedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))  // gray
	missingStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("11")) // yellow
	failedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))  // red
)

// Print writes every report in plan order followed by a summary.
func Print(w io.Writer, results []Result) error {
	for _, r := range results {
		fmt.Fprintln(w, titleStyle.Render("== "+r.Name))
		if r.Err != nil {
			fmt.Fprintln(w, failedStyle.Render("failed: "+r.Err.Error()))
			continue
		}
		if err := r.Report.Print(w); err != nil {
			return err
		}
	}

	fmt.Fprintln(w)
	fmt.Fprintln(w, titleStyle.Render("Summary"))
	for _, r := range results {
		fmt.Fprintln(w, summaryLine(r))
	}
	return nil
}

func summaryLine(r Result) string {
	switch {
	case r.Err != nil:
		return failedStyle.Render(fmt.Sprintf("x %-20s failed", r.Name))
	case r.Report.MissingCount() == 0:
		return syncedStyle.Render(fmt.Sprintf("= %-20s all %d transaction(s) recorded", r.Name, r.Report.MatchedCount()))
	default:
		return missingStyle.Render(fmt.Sprintf("+ %-20s %d missing, %d recorded", r.Name, r.Report.MissingCount(), r.Report.MatchedCount()))
	}
}
