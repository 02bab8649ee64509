package parser

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/ledongthuc/pdf"
)

// indentTolerance is how far apart, in points, two left edges may be and
// still count as the same outline level.
const indentTolerance = 4.0

// PDFParser reads an indented outline from a text PDF: every text row is one
// organization and its left edge sets the depth. Distinct left edges, from
// leftmost to rightmost, are levels 0, 1, 2 and so on across the document.
type PDFParser struct{}

func (p *PDFParser) SupportedFormats() []string { return []string{"pdf"} }

func (p *PDFParser) Parse(ctx context.Context, path string) (*ParseResult, error) {
	f, reader, err := pdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening PDF: %w", err)
	}
	defer f.Close()

	totalPages := reader.NumPage()
	var lines []pdfLine

	for i := 1; i <= totalPages; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}

		rows, err := page.GetTextByRow()
		if err != nil {
			return nil, fmt.Errorf("reading page %d: %w", i, err)
		}
		lines = append(lines, rowsToLines(rows)...)
	}

	roots, err := outlineToNodes(indentRows(lines))
	if err != nil {
		return nil, err
	}
	if len(roots) == 0 {
		return nil, fmt.Errorf("no organizations found in PDF")
	}

	return &ParseResult{
		Roots:  roots,
		Method: "native",
		Metadata: map[string]string{
			"page_count": fmt.Sprintf("%d", totalPages),
			"line_count": fmt.Sprintf("%d", len(lines)),
		},
	}, nil
}

// pdfLine is one text row: its left edge and its joined text.
type pdfLine struct {
	x    float64
	text string
}

// rowsToLines orders rows top to bottom and drops blank ones.
func rowsToLines(rows pdf.Rows) []pdfLine {
	sorted := make(pdf.Rows, 0, len(rows))
	for _, r := range rows {
		if r != nil && len(r.Content) > 0 {
			sorted = append(sorted, r)
		}
	}
	// PDF y grows upwards.
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Position > sorted[j].Position })

	lines := make([]pdfLine, 0, len(sorted))
	for _, r := range sorted {
		words := make([]pdf.Text, len(r.Content))
		copy(words, r.Content)
		sort.SliceStable(words, func(i, j int) bool { return words[i].X < words[j].X })

		var b strings.Builder
		for _, w := range words {
			b.WriteString(w.S)
		}
		text := strings.TrimSpace(b.String())
		if text == "" {
			continue
		}
		lines = append(lines, pdfLine{x: words[0].X, text: text})
	}
	return lines
}

// indentRows maps each line's left edge to a level and returns rows in the
// spreadsheet outline layout.
func indentRows(lines []pdfLine) [][]string {
	var edges []float64
	for _, l := range lines {
		edges = append(edges, l.x)
	}
	sort.Float64s(edges)

	var levels []float64
	for _, x := range edges {
		if len(levels) == 0 || x-levels[len(levels)-1] > indentTolerance {
			levels = append(levels, x)
		}
	}

	rows := make([][]string, len(lines))
	for i, l := range lines {
		depth := 0
		for k, lv := range levels {
			if math.Abs(l.x-lv) <= indentTolerance || l.x > lv {
				depth = k
			}
		}
		row := make([]string, depth+1)
		row[depth] = l.text
		rows[i] = row
	}
	return rows
}
