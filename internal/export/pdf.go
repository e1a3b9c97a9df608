// Package export renders an analysis result as a paginated A4 PDF report.
package export

import (
	"fmt"
	"io"
	"math"
	"strings"
	"unicode"

	"github.com/jung-kurt/gofpdf/v2"

	"github.com/KaramelBytes/datapilot-cli/internal/analysis"
	"github.com/KaramelBytes/datapilot-cli/internal/csvsample"
)

const (
	lineH        = 6.0
	labelW       = 50.0
	valueW       = 20.0
	minColW      = 25.0
	maxBarLabels = 40
)

// Filename derives the download name from the inferred data type.
func Filename(inferredType string) string {
	var b strings.Builder
	sep := false
	for _, r := range strings.TrimSpace(inferredType) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			if sep && b.Len() > 0 {
				b.WriteByte('_')
			}
			b.WriteRune(r)
			sep = false
			continue
		}
		sep = true
	}
	if b.Len() == 0 {
		return "Data_Analysis_Report.pdf"
	}
	return b.String() + "_Report.pdf"
}

// WritePDF renders r, followed by the preview rows of sample when present.
func WritePDF(w io.Writer, r *analysis.Result, sample *csvsample.Sample) error {
	if r == nil {
		return fmt.Errorf("export: no analysis result")
	}
	pdf := render(r, sample)
	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("export: %w", err)
	}
	return nil
}

type report struct {
	pdf    *gofpdf.Fpdf
	tr     func(string) string
	usable float64
}

func render(r *analysis.Result, sample *csvsample.Sample) *gofpdf.Fpdf {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetTitle(r.InferredType+" Report", true)
	pdf.SetCreator("DataPilot", true)
	pdf.SetAutoPageBreak(true, 15)
	pdf.AliasNbPages("")
	pdf.SetFooterFunc(func() {
		pdf.SetY(-12)
		pdf.SetFont("Helvetica", "I", 8)
		pdf.SetTextColor(120, 120, 120)
		pdf.CellFormat(0, 8, fmt.Sprintf("Page %d/{nb}", pdf.PageNo()), "", 0, "C", false, 0, "")
	})
	pdf.AddPage()

	pageW, _ := pdf.GetPageSize()
	left, _, right, _ := pdf.GetMargins()
	rep := &report{pdf: pdf, tr: pdf.UnicodeTranslatorFromDescriptor(""), usable: pageW - left - right}

	rep.header(r)
	rep.metrics(r.KeyMetrics)
	rep.section("Executive Summary")
	rep.paragraph(r.Summary)
	rep.section("Strategic Goal")
	rep.labelled("Recommended Target (Next Quarter): ", r.Recommendation.GoalText())
	rep.labelled("Action Plan: ", r.Recommendation.StrategyText())
	for _, c := range r.Charts {
		rep.chart(c)
	}
	if sample != nil && len(sample.Rows) > 0 {
		rep.preview(sample)
	}
	return pdf
}

func (rep *report) header(r *analysis.Result) {
	p := rep.pdf
	p.SetTextColor(30, 30, 30)
	p.SetFont("Helvetica", "B", 18)
	p.MultiCell(0, 9, rep.tr(r.InferredType+" Report"), "", "L", false)
	p.SetFont("Helvetica", "", 10)
	p.SetTextColor(100, 100, 100)
	p.CellFormat(0, lineH, rep.tr("Detected Context: "+r.InferredType), "", 1, "L", false, 0, "")
	if r.Fallback {
		p.SetTextColor(180, 90, 0)
		p.MultiCell(0, lineH, rep.tr("The model response could not be parsed. The values below are placeholders."), "", "L", false)
	}
	p.SetTextColor(30, 30, 30)
	p.Ln(3)
}

func (rep *report) section(title string) {
	p := rep.pdf
	p.Ln(2)
	p.SetFont("Helvetica", "B", 13)
	p.SetTextColor(55, 48, 163)
	p.CellFormat(0, 8, rep.tr(title), "B", 1, "L", false, 0, "")
	p.SetTextColor(30, 30, 30)
	p.Ln(1)
}

func (rep *report) paragraph(text string) {
	rep.pdf.SetFont("Helvetica", "", 10)
	rep.pdf.MultiCell(0, 5, rep.tr(strings.TrimSpace(text)), "", "L", false)
	rep.pdf.Ln(1)
}

func (rep *report) labelled(label, text string) {
	p := rep.pdf
	p.SetFont("Helvetica", "B", 10)
	p.CellFormat(p.GetStringWidth(rep.tr(label))+1, 5, rep.tr(label), "", 0, "L", false, 0, "")
	p.SetFont("Helvetica", "", 10)
	p.MultiCell(0, 5, rep.tr(text), "", "L", false)
	p.Ln(1)
}

func trendLabel(t analysis.Trend) (string, [3]int) {
	switch t {
	case analysis.TrendUp:
		return "up", [3]int{16, 150, 90}
	case analysis.TrendDown:
		return "down", [3]int{200, 40, 70}
	default:
		return "steady", [3]int{110, 110, 110}
	}
}

func (rep *report) metrics(ms []analysis.Metric) {
	if len(ms) == 0 {
		return
	}
	rep.section("Key Metrics")
	p := rep.pdf
	colLabel := rep.usable * 0.55
	colValue := rep.usable * 0.25
	colTrend := rep.usable - colLabel - colValue

	p.SetFont("Helvetica", "B", 10)
	p.SetFillColor(238, 240, 250)
	p.CellFormat(colLabel, 7, "Metric", "1", 0, "L", true, 0, "")
	p.CellFormat(colValue, 7, "Value", "1", 0, "L", true, 0, "")
	p.CellFormat(colTrend, 7, "Trend", "1", 1, "L", true, 0, "")
	p.SetFont("Helvetica", "", 10)
	for _, m := range ms {
		label, rgb := trendLabel(m.Trend)
		p.CellFormat(colLabel, 7, rep.fit(m.Label, colLabel), "1", 0, "L", false, 0, "")
		p.CellFormat(colValue, 7, rep.fit(m.Value, colValue), "1", 0, "L", false, 0, "")
		p.SetTextColor(rgb[0], rgb[1], rgb[2])
		p.CellFormat(colTrend, 7, label, "1", 1, "L", false, 0, "")
		p.SetTextColor(30, 30, 30)
	}
}

// chart draws data points as horizontal bars scaled to the largest magnitude.
func (rep *report) chart(c analysis.Chart) {
	rep.section(fmt.Sprintf("%s (%s)", c.Title, c.ChartType))
	p := rep.pdf
	if c.Description != "" {
		p.SetFont("Helvetica", "I", 9)
		p.MultiCell(0, 5, rep.tr(c.Description), "", "L", false)
		p.Ln(1)
	}
	if len(c.Data) == 0 {
		p.SetFont("Helvetica", "", 9)
		p.CellFormat(0, lineH, "No data points.", "", 1, "L", false, 0, "")
		return
	}
	data := c.Data
	if len(data) > maxBarLabels {
		data = data[:maxBarLabels]
	}
	maxAbs := 0.0
	for _, d := range data {
		maxAbs = math.Max(maxAbs, math.Abs(d.Value))
	}
	barSpace := rep.usable - labelW - valueW
	p.SetFont("Helvetica", "", 9)
	for _, d := range data {
		p.CellFormat(labelW, lineH, rep.fit(d.Name, labelW), "", 0, "L", false, 0, "")
		x, y := p.GetXY()
		w := 0.0
		if maxAbs > 0 {
			w = barSpace * math.Abs(d.Value) / maxAbs
		}
		if d.Value < 0 {
			p.SetFillColor(225, 90, 110)
		} else {
			p.SetFillColor(99, 102, 241)
		}
		if w > 0 {
			p.Rect(x, y+1, w, lineH-2, "F")
		}
		p.SetX(x + barSpace)
		p.CellFormat(valueW, lineH, analysis.FormatValue(d.Value), "", 1, "R", false, 0, "")
	}
	if len(c.Data) > len(data) {
		p.SetFont("Helvetica", "I", 8)
		p.CellFormat(0, lineH, fmt.Sprintf("%d more data points not shown.", len(c.Data)-len(data)), "", 1, "L", false, 0, "")
	}
}

// preview prints as many leading columns as fit the page width.
func (rep *report) preview(s *csvsample.Sample) {
	rep.section(fmt.Sprintf("Raw Data Preview (first %d rows)", len(s.Rows)))
	p := rep.pdf
	cols := s.Headers
	maxCols := int(rep.usable / minColW)
	if maxCols < 1 {
		maxCols = 1
	}
	if len(cols) > maxCols {
		cols = cols[:maxCols]
	}
	colW := rep.usable / float64(len(cols))

	p.SetFont("Helvetica", "B", 8)
	p.SetFillColor(238, 240, 250)
	for i, h := range cols {
		ln := 0
		if i == len(cols)-1 {
			ln = 1
		}
		p.CellFormat(colW, lineH, rep.fit(h, colW), "1", ln, "L", true, 0, "")
	}
	p.SetFont("Helvetica", "", 8)
	for _, row := range s.Rows {
		for i := range cols {
			ln := 0
			if i == len(cols)-1 {
				ln = 1
			}
			p.CellFormat(colW, lineH, rep.fit(row.At(i), colW), "1", ln, "L", false, 0, "")
		}
	}
	if len(s.Headers) > len(cols) {
		p.SetFont("Helvetica", "I", 8)
		p.CellFormat(0, lineH, fmt.Sprintf("%d more columns not shown.", len(s.Headers)-len(cols)), "", 1, "L", false, 0, "")
	}
}

// fit translates s to the font's code page and cuts it to width w.
func (rep *report) fit(s string, w float64) string {
	t := rep.tr(strings.ReplaceAll(s, "\n", " "))
	limit := w - 2
	if rep.pdf.GetStringWidth(t) <= limit {
		return t
	}
	for len(t) > 0 && rep.pdf.GetStringWidth(t+"...") > limit {
		t = t[:len(t)-1]
	}
	return t + "..."
}
