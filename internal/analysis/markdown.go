package analysis

import (
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/KaramelBytes/datapilot-cli/internal/csvsample"
)

// TrendSymbol is the arrow shown next to a metric value.
func TrendSymbol(t Trend) string {
	switch t {
	case TrendUp:
		return "↑"
	case TrendDown:
		return "↓"
	default:
		return "–"
	}
}

// FormatValue prints chart values without trailing zeros.
func FormatValue(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// Markdown renders the result for terminals and files. sample may be nil.
func (r *Result) Markdown(sample *csvsample.Sample) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", safeName(r.InferredType))
	if r.Fallback {
		b.WriteString("> ⚠ The model response could not be parsed. These are placeholder values.\n\n")
	}

	if len(r.KeyMetrics) > 0 {
		b.WriteString("## Key Metrics\n\n")
		rows := make([][]string, 0, len(r.KeyMetrics))
		for _, m := range r.KeyMetrics {
			rows = append(rows, []string{m.Label, m.Value, TrendSymbol(m.Trend)})
		}
		writeTable(&b, []string{"Metric", "Value", "Trend"}, rows)
		b.WriteString("\n")
	}

	b.WriteString("## Executive Summary\n\n")
	b.WriteString(strings.TrimSpace(r.Summary))
	b.WriteString("\n\n")

	b.WriteString("## Strategic Goal\n\n")
	fmt.Fprintf(&b, "**Recommended Target (Next Quarter):** %s\n\n", r.Recommendation.GoalText())
	fmt.Fprintf(&b, "**Action Plan:** %s\n\n", r.Recommendation.StrategyText())

	for _, c := range r.Charts {
		fmt.Fprintf(&b, "## %s (%s)\n\n", safeName(c.Title), c.ChartType)
		if c.Description != "" {
			b.WriteString(c.Description)
			b.WriteString("\n\n")
		}
		rows := make([][]string, 0, len(c.Data))
		for _, d := range c.Data {
			rows = append(rows, []string{d.Name, FormatValue(d.Value)})
		}
		writeTable(&b, []string{orDefault(c.XAxisKey, "name"), orDefault(c.DataKey, "value")}, rows)
		b.WriteString("\n")
	}

	if sample != nil && len(sample.Rows) > 0 {
		fmt.Fprintf(&b, "## Raw Data Preview (first %d rows)\n\n", len(sample.Rows))
		rows := make([][]string, 0, len(sample.Rows))
		for _, row := range sample.Rows {
			vals := make([]string, len(sample.Headers))
			for i := range vals {
				vals[i] = row.At(i)
			}
			rows = append(rows, vals)
		}
		writeTable(&b, sample.Headers, rows)
		b.WriteString("\n")
	}

	if strings.TrimSpace(r.PythonCode) != "" && !r.Fallback {
		b.WriteString("## Python\n\n```python\n")
		b.WriteString(strings.TrimSpace(r.PythonCode))
		b.WriteString("\n```\n")
	}
	return strings.TrimRight(b.String(), "\n") + "\n"
}

func writeTable(b *strings.Builder, headers []string, rows [][]string) {
	b.WriteString("| ")
	for i, h := range headers {
		if i > 0 {
			b.WriteString(" | ")
		}
		b.WriteString(safeVal(safeName(h)))
	}
	b.WriteString(" |\n|")
	for range headers {
		b.WriteString(" --- |")
	}
	b.WriteString("\n")
	for _, row := range rows {
		b.WriteString("| ")
		for i := range headers {
			if i > 0 {
				b.WriteString(" | ")
			}
			val := ""
			if i < len(row) {
				val = row[i]
			}
			if utf8.RuneCountInString(val) > 80 {
				val = string([]rune(val)[:77]) + "..."
			}
			b.WriteString(safeVal(val))
		}
		b.WriteString(" |\n")
	}
}

func safeName(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return "(unnamed)"
	}
	return s
}

func safeVal(s string) string { return strings.ReplaceAll(strings.ReplaceAll(s, "\n", " "), "|", "/") }

func orDefault(s, def string) string {
	if strings.TrimSpace(s) == "" {
		return def
	}
	return s
}
