package output

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/iwvelando/fi-dashboard/internal/dataset"
	"github.com/iwvelando/fi-dashboard/internal/summary"
)

// Theme colors
var (
	colorBorder = lipgloss.Color("#575653")
	colorText   = lipgloss.Color("#FFFCF0")
	colorAccent = lipgloss.Color("#3AA99F")
	colorGreen  = lipgloss.Color("#879A39")
	colorOrange = lipgloss.Color("#DA702C")
	colorRed    = lipgloss.Color("#D14D41")
)

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(colorAccent)
	valueStyle  = lipgloss.NewStyle().Foreground(colorText)
	borderStyle = lipgloss.NewStyle().Foreground(colorBorder)
	passStyle   = lipgloss.NewStyle().Foreground(colorGreen)
	warnStyle   = lipgloss.NewStyle().Foreground(colorOrange)
	failStyle   = lipgloss.NewStyle().Bold(true).Foreground(colorRed)
)

// Table is a bordered text table for terminal output.
type Table struct {
	Title   string
	Headers []string
	Rows    [][]string
}

// RenderTable renders t with rounded borders. The first column is left
// aligned and the rest right aligned.
func RenderTable(t Table) string {
	numCols := len(t.Headers)
	for _, row := range t.Rows {
		if len(row) > numCols {
			numCols = len(row)
		}
	}
	if numCols == 0 {
		return ""
	}

	widths := make([]int, numCols)
	measure := func(row []string) {
		for i, cell := range row {
			if w := lipgloss.Width(cell); w > widths[i] {
				widths[i] = w
			}
		}
	}
	measure(t.Headers)
	for _, row := range t.Rows {
		measure(row)
	}

	var b strings.Builder
	if t.Title != "" {
		b.WriteString(headerStyle.Render(t.Title))
		b.WriteString("\n")
	}

	rule := func(left, mid, right string) {
		b.WriteString(borderStyle.Render(left))
		for i, w := range widths {
			b.WriteString(borderStyle.Render(strings.Repeat("─", w+2)))
			if i < numCols-1 {
				b.WriteString(borderStyle.Render(mid))
			}
		}
		b.WriteString(borderStyle.Render(right))
		b.WriteString("\n")
	}
	line := func(cells []string, style lipgloss.Style) {
		b.WriteString(borderStyle.Render("│"))
		for i := 0; i < numCols; i++ {
			cell := ""
			if i < len(cells) {
				cell = cells[i]
			}
			pad := strings.Repeat(" ", widths[i]-lipgloss.Width(cell))
			if i == 0 {
				b.WriteString(style.Render(" " + cell + pad + " "))
			} else {
				b.WriteString(style.Render(" " + pad + cell + " "))
			}
			if i < numCols-1 {
				b.WriteString(borderStyle.Render("│"))
			}
		}
		b.WriteString(borderStyle.Render("│"))
		b.WriteString("\n")
	}

	rule("╭", "┬", "╮")
	if len(t.Headers) > 0 {
		line(t.Headers, headerStyle)
		rule("├", "┼", "┤")
	}
	for _, row := range t.Rows {
		line(row, valueStyle)
	}
	rule("╰", "┴", "╯")

	return b.String()
}

// PrettySummary writes the overview metrics as a table. Metrics taken from
// the configured benchmarks are marked.
func PrettySummary(w io.Writer, s summary.Summary) error {
	rows := make([][]string, 0, 4)
	for _, m := range s.Metrics() {
		source := "data"
		if m.FromBenchmark() {
			source = warnStyle.Render("benchmark")
		}
		rows = append(rows, []string{m.Label, m.Display, source})
	}
	_, err := io.WriteString(w, RenderTable(Table{
		Title:   "Overview Metrics",
		Headers: []string{"Metric", "Value", "Source"},
		Rows:    rows,
	}))
	return err
}

// PrettyReport writes one line per schema check followed by the failures.
func PrettyReport(w io.Writer, report dataset.Report) error {
	issues := report.ByCheck()
	rows := make([][]string, 0, len(report.Checks))
	for _, check := range report.Checks {
		status := passStyle.Render("PASS")
		if msgs := issues[check]; len(msgs) > 0 {
			status = failStyle.Render(fmt.Sprintf("FAIL (%d)", len(msgs)))
		}
		rows = append(rows, []string{check, status})
	}

	var b strings.Builder
	b.WriteString(RenderTable(Table{
		Title:   "Schema Validation",
		Headers: []string{"Check", "Result"},
		Rows:    rows,
	}))
	for _, issue := range report.Issues {
		b.WriteString(failStyle.Render("✗ "+issue.Check) + ": " + issue.Message + "\n")
	}
	if report.OK() {
		b.WriteString(passStyle.Render("All checks passed") + "\n")
	}
	_, err := io.WriteString(w, b.String())
	return err
}
