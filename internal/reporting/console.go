package reporting

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"smokectl/internal/components"
	"smokectl/internal/harness"
)

// maxErrorWidth bounds the error column so one long message does not wrap
// the whole table.
const maxErrorWidth = 72

// ConsoleReporter prints the end-of-run summary table.
type ConsoleReporter struct {
	out io.Writer

	passStyle   lipgloss.Style
	failStyle   lipgloss.Style
	subtleStyle lipgloss.Style
	titleStyle  lipgloss.Style
}

// NewConsoleReporter returns a reporter writing to out. Colours are only
// used when out is a terminal that supports them.
func NewConsoleReporter(out io.Writer) *ConsoleReporter {
	r := lipgloss.NewRenderer(out)
	return &ConsoleReporter{
		out:         out,
		passStyle:   r.NewStyle().Foreground(lipgloss.Color("42")).Bold(true),
		failStyle:   r.NewStyle().Foreground(lipgloss.Color("160")).Bold(true),
		subtleStyle: r.NewStyle().Foreground(lipgloss.Color("241")),
		titleStyle:  r.NewStyle().Bold(true),
	}
}

// Summary writes one row per component followed by the overall verdict.
func (c *ConsoleReporter) Summary(report harness.RunReport) error {
	rows := make([][]string, 0, len(report.Results))
	for _, res := range report.Results {
		rows = append(rows, []string{
			res.Component,
			res.Status(),
			targetCell(res),
			attemptsCell(res.Attempts),
			res.Duration.Round(100 * time.Millisecond).String(),
			errorCell(res),
		})
	}
	widths := columnWidths(rows)

	var b strings.Builder
	b.WriteString(c.titleStyle.Render("--- Results ---"))
	b.WriteString("\n")
	for _, row := range rows {
		b.WriteString("  ")
		for i, cell := range row {
			last := i == len(row)-1
			if !last {
				cell = runewidth.FillRight(cell, widths[i])
			}
			switch i {
			case 1:
				if row[1] == "PASS" {
					cell = c.passStyle.Render(cell)
				} else {
					cell = c.failStyle.Render(cell)
				}
			case len(row) - 1:
				cell = c.subtleStyle.Render(cell)
			}
			b.WriteString(cell)
			if !last {
				b.WriteString("  ")
			}
		}
		b.WriteString("\n")
	}

	if report.AllPassed {
		b.WriteString(c.passStyle.Render("All component checks passed."))
	} else {
		b.WriteString(c.failStyle.Render(fmt.Sprintf("One or more component checks failed: %s", strings.Join(report.Failed(), ", "))))
	}
	b.WriteString("\n")

	_, err := io.WriteString(c.out, trimRows(b.String()))
	return err
}

// Catalogue lists check definitions, one per line.
func (c *ConsoleReporter) Catalogue(specs []components.CheckSpec) error {
	rows := [][]string{{"NAME", "PROBE", "SELECTOR", "FALLBACK"}}
	for _, spec := range specs {
		probeCell := string(spec.Probe)
		if spec.HealthPath != "" {
			probeCell += " " + spec.HealthPath
		}
		selector := spec.LabelSelector
		if selector == "" {
			selector = "-"
		}
		rows = append(rows, []string{
			spec.Name,
			probeCell,
			selector,
			fmt.Sprintf("%s:%d", spec.Fallback.ServiceName, spec.Fallback.Port),
		})
	}
	widths := columnWidths(rows)

	var b strings.Builder
	for i, row := range rows {
		for j, cell := range row {
			if j < len(row)-1 {
				cell = runewidth.FillRight(cell, widths[j]) + "  "
			}
			if i == 0 {
				cell = c.titleStyle.Render(cell)
			}
			b.WriteString(cell)
		}
		b.WriteString("\n")
	}
	_, err := io.WriteString(c.out, trimRows(b.String()))
	return err
}

func targetCell(res harness.CheckResult) string {
	if res.Target.ServiceName == "" {
		return "-"
	}
	if !res.Discovered {
		return res.Target.String() + " (fallback)"
	}
	return res.Target.String()
}

func attemptsCell(n int) string {
	if n == 1 {
		return "1 attempt"
	}
	return fmt.Sprintf("%d attempts", n)
}

func errorCell(res harness.CheckResult) string {
	if res.Passed || res.Err == nil {
		return ""
	}
	msg := strings.Join(strings.Fields(res.Err.Error()), " ")
	return runewidth.Truncate(msg, maxErrorWidth, "...")
}

func columnWidths(rows [][]string) []int {
	var widths []int
	for _, row := range rows {
		for i, cell := range row {
			if i >= len(widths) {
				widths = append(widths, 0)
			}
			if w := runewidth.StringWidth(cell); w > widths[i] {
				widths[i] = w
			}
		}
	}
	return widths
}

// trimRows drops trailing blanks left by empty last cells.
func trimRows(s string) string {
	lines := strings.Split(s, "\n")
	for i, l := range lines {
		lines[i] = strings.TrimRight(l, " ")
	}
	return strings.Join(lines, "\n")
}
