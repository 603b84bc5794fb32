package report

import (
	"fmt"
	"strings"

	"github.com/jung-kurt/gofpdf"

	"github.com/hyperifyio/goharvest/internal/aggregate"
)

// WritePDF renders a simple paginated PDF report: a title page with run
// statistics, one section per source, and a numbered reference list. The
// layout is intentionally plain; Markdown remains the canonical format.
func WritePDF(b aggregate.Bundle, path string) error {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetFont("Helvetica", "", 11)

	// Title page
	pdf.AddPage()
	pdf.SetFont("Helvetica", "B", 20)
	pdf.MultiCell(0, 10, "Research Report: "+sanitize(b.Topic), "", "C", false)
	pdf.Ln(8)
	pdf.SetFont("Helvetica", "", 11)
	pdf.MultiCell(0, 6, "Generated: "+b.Timestamp.Format("2006-01-02 15:04 MST"), "", "C", false)
	pdf.Ln(10)
	pdf.MultiCell(0, 6, sanitize(SummaryLine(b)), "", "C", false)
	pdf.MultiCell(0, 6, fmt.Sprintf("Total content: %d characters", b.TotalContentLength), "", "C", false)
	if methods := b.Methods(); len(methods) > 0 {
		pdf.MultiCell(0, 6, "Methods: "+strings.Join(methods, ", "), "", "C", false)
	}

	// One section per source
	for i, d := range b.Documents {
		pdf.AddPage()
		pdf.SetFont("Helvetica", "B", 14)
		pdf.MultiCell(0, 8, fmt.Sprintf("%d. %s", i+1, sanitize(d.Title)), "", "L", false)
		pdf.SetFont("Helvetica", "I", 9)
		pdf.MultiCell(0, 5, sanitize(d.URL), "", "L", false)
		pdf.MultiCell(0, 5, fmt.Sprintf("%s | attempt %d | %d characters", d.Method, d.Attempt, d.ContentLength), "", "L", false)
		pdf.Ln(4)
		pdf.SetFont("Helvetica", "", 10)
		if d.Summary != "" {
			pdf.SetFont("Helvetica", "I", 10)
			pdf.MultiCell(0, 5, sanitize(d.Summary), "", "L", false)
			pdf.Ln(3)
			pdf.SetFont("Helvetica", "", 10)
		}
		pdf.MultiCell(0, 5, sanitize(d.Content), "", "L", false)
	}

	// Numbered references
	if len(b.Documents) > 0 {
		pdf.AddPage()
		pdf.SetFont("Helvetica", "B", 14)
		pdf.MultiCell(0, 8, "References", "", "L", false)
		pdf.SetFont("Helvetica", "", 10)
		for i, d := range b.Documents {
			pdf.MultiCell(0, 5, fmt.Sprintf("%d. %s", i+1, sanitize(d.Title)), "", "L", false)
			pdf.SetTextColor(0, 0, 200)
			pdf.WriteLinkString(5, sanitize(d.URL), d.URL)
			pdf.SetTextColor(0, 0, 0)
			pdf.Ln(7)
		}
	}

	return pdf.OutputFileAndClose(path)
}

// sanitize maps text onto the cp1252 range gofpdf's core fonts support.
func sanitize(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if r < 0x2500 {
			b.WriteRune(r)
		} else {
			b.WriteByte('?')
		}
	}
	return b.String()
}
