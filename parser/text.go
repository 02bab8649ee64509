package parser

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"os"
	"strings"
)

// TextParser handles indented outlines in plain text (.txt) files. Each
// non-blank line names one organization; its depth is the indentation, one
// level per tab or per two spaces. A leading "- " or "* " bullet is dropped.
//
//	Acme
//	  Widgets
//	    Sprockets
//	  Gadgets
type TextParser struct{}

func (p *TextParser) SupportedFormats() []string { return []string{"txt"} }

func (p *TextParser) Parse(ctx context.Context, path string) (*ParseResult, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading text file: %w", err)
	}

	rows, err := textToRows(data)
	if err != nil {
		return nil, err
	}

	// Rows share the spreadsheet outline layout: the cell index is the depth.
	roots, err := outlineToNodes(rows)
	if err != nil {
		return nil, err
	}
	if len(roots) == 0 {
		return nil, fmt.Errorf("no organizations found in text file")
	}

	return &ParseResult{
		Roots:  roots,
		Method: "native",
		Metadata: map[string]string{
			"line_count": fmt.Sprintf("%d", len(rows)),
		},
	}, nil
}

func textToRows(data []byte) ([][]string, error) {
	var rows [][]string
	sc := bufio.NewScanner(bytes.NewReader(data))
	line := 0
	for sc.Scan() {
		line++
		raw := strings.TrimRight(sc.Text(), " \t\r")
		if strings.TrimSpace(raw) == "" {
			// Blank lines still count so outline errors report file line numbers.
			rows = append(rows, nil)
			continue
		}

		depth, spaces := 0, 0
		i := 0
		for ; i < len(raw); i++ {
			switch raw[i] {
			case '\t':
				depth++
				continue
			case ' ':
				spaces++
				continue
			}
			break
		}
		if spaces%2 != 0 {
			return nil, fmt.Errorf("line %d: indentation must be a multiple of two spaces", line)
		}
		depth += spaces / 2

		name := raw[i:]
		for _, bullet := range []string{"- ", "* "} {
			name = strings.TrimPrefix(name, bullet)
		}

		row := make([]string, depth+1)
		row[depth] = strings.TrimSpace(name)
		rows = append(rows, row)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("scanning text file: %w", err)
	}
	return rows, nil
}
