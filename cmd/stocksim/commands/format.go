package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/shopspring/decimal"

	"github.com/wonny/stocksim/internal/contracts"
	"github.com/wonny/stocksim/internal/forecast"
)

// ═══════════════════════════════════════════════════════════
// Common Formatting Utilities
// Every command prints through these helpers so output stays uniform
// ═══════════════════════════════════════════════════════════

const (
	singleLine = "───────────────────────────────────────────────────────────"
	doubleLine = "═══════════════════════════════════════════════════════════"
)

// PrintHeader prints a titled block with key/value lines
func PrintHeader(w io.Writer, title string, lines ...string) {
	fmt.Fprintln(w)
	fmt.Fprintln(w, doubleLine)
	fmt.Fprintf(w, "  %s\n", title)
	fmt.Fprintln(w, singleLine)
	for _, l := range lines {
		fmt.Fprintf(w, "  %s\n", l)
	}
	if len(lines) > 0 {
		fmt.Fprintln(w, singleLine)
	}
}

// PrintSeparator prints a visual separator
func PrintSeparator(w io.Writer) {
	fmt.Fprintln(w, singleLine)
}

// PrintSuccess prints a success message
func PrintSuccess(w io.Writer, message string) {
	fmt.Fprintf(w, "✅ %s\n", message)
}

// PrintWarning prints a warning message
func PrintWarning(w io.Writer, message string) {
	fmt.Fprintf(w, "⚠️  %s\n", message)
}

// PrintError prints an error message
func PrintError(w io.Writer, message string) {
	fmt.Fprintf(w, "❌ %s\n", message)
}

// printJSON writes v as indented JSON
func printJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// percent renders a stored probability such as 0.667 as "66.7%"
func percent(p decimal.Decimal) string {
	return p.Shift(2).StringFixed(1) + "%"
}

func formatDate(t time.Time) string {
	return t.Format(forecast.DateLayout)
}

// printSummary prints the period result of one forecast
func printSummary(w io.Writer, s contracts.SimulationSummary, runs int) {
	firstLoss := "none"
	if s.FirstDateWithLosses != nil {
		firstLoss = formatDate(*s.FirstDateWithLosses)
	}

	lines := []string{
		fmt.Sprintf("Product   : %s", s.ProductID),
		fmt.Sprintf("Period    : %s ~ %s", formatDate(s.StartDate), formatDate(s.EndDate)),
	}
	if runs > 0 {
		lines = append(lines, fmt.Sprintf("Runs      : %d", runs))
	}
	if s.ID > 0 {
		lines = append(lines, fmt.Sprintf("Summary   : #%d", s.ID))
	}
	PrintHeader(w, "Loss forecast", lines...)

	fmt.Fprintf(w, "  Missing   : %s\n", percent(s.ProbabilityMissing))
	fmt.Fprintf(w, "  No space  : %s\n", percent(s.ProbabilityNoSpace))
	fmt.Fprintf(w, "  Expired   : %s\n", percent(s.ProbabilityExpired))
	fmt.Fprintf(w, "  First loss: %s\n", firstLoss)

	if len(s.Days) > 0 {
		fmt.Fprintln(w)
		printDays(w, s.Days)
	}
}

// printDays prints the daily breakdown as a table
func printDays(w io.Writer, days []contracts.SimulationSummaryDay) {
	fmt.Fprintf(w, "  %-10s  %8s  %8s  %8s\n", "Date", "Missing", "NoSpace", "Expired")
	PrintSeparator(w)
	for _, d := range days {
		fmt.Fprintf(w, "  %-10s  %8s  %8s  %8s\n",
			formatDate(d.Date),
			percent(d.ProbabilityMissing),
			percent(d.ProbabilityNoSpace),
			percent(d.ProbabilityExpired))
	}
}

// printSummaryList prints one line per stored summary
func printSummaryList(w io.Writer, summaries []contracts.SimulationSummary) {
	if len(summaries) == 0 {
		PrintWarning(w, "No summaries stored")
		return
	}

	fmt.Fprintf(w, "  %6s  %-36s  %-23s  %7s  %7s  %7s\n", "ID", "Product", "Period", "Missing", "NoSpace", "Expired")
	PrintSeparator(w)
	for _, s := range summaries {
		fmt.Fprintf(w, "  %6d  %-36s  %-23s  %7s  %7s  %7s\n",
			s.ID, s.ProductID,
			formatDate(s.StartDate)+" ~ "+formatDate(s.EndDate),
			percent(s.ProbabilityMissing),
			percent(s.ProbabilityNoSpace),
			percent(s.ProbabilityExpired))
	}
}
