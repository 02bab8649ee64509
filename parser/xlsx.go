package parser

import (
	"context"
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/brunobiangulo/orggraph/graph"
)

// XLSXParser reads an outline-style spreadsheet: every non-empty row holds
// one organization name, and the column it sits in is its depth. A name in
// column k is a daughter of the closest row above it whose name sits in
// column k-1. Cells to the right of the name are ignored.
//
//	| Acme     |          |
//	|          | Widgets  |
//	|          | Gadgets  |
//	| Globex   |          |
type XLSXParser struct{}

func (p *XLSXParser) SupportedFormats() []string { return []string{"xlsx"} }

func (p *XLSXParser) Parse(ctx context.Context, path string) (*ParseResult, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("opening XLSX: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("no sheets found in XLSX")
	}
	sheet := sheets[0]

	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("reading sheet %q: %w", sheet, err)
	}

	roots, err := outlineToNodes(rows)
	if err != nil {
		return nil, fmt.Errorf("sheet %q: %w", sheet, err)
	}
	if len(roots) == 0 {
		return nil, fmt.Errorf("no organizations found in XLSX")
	}

	return &ParseResult{
		Roots:  roots,
		Method: "native",
		Metadata: map[string]string{
			"sheet_name": sheet,
			"row_count":  fmt.Sprintf("%d", len(rows)),
		},
	}, nil
}

// outlineNode is a mutable tree used while reading rows; graph.Node values
// are produced once the outline is complete.
type outlineNode struct {
	name     string
	children []*outlineNode
}

func (n *outlineNode) toNode() graph.Node {
	out := graph.Node{OrgName: n.name}
	for _, c := range n.children {
		out.Daughters = append(out.Daughters, c.toNode())
	}
	return out
}

func outlineToNodes(rows [][]string) ([]graph.Node, error) {
	var (
		roots []*outlineNode
		stack []*outlineNode // stack[k] is the latest row seen at depth k
	)

	for i, row := range rows {
		depth, name := -1, ""
		for col, cell := range row {
			if v := strings.TrimSpace(cell); v != "" {
				depth, name = col, v
				break
			}
		}
		if depth < 0 {
			continue
		}
		if depth > len(stack) {
			return nil, fmt.Errorf("row %d: %q in column %d has no parent in column %d",
				i+1, name, depth+1, depth)
		}

		node := &outlineNode{name: name}
		stack = stack[:depth]
		if depth == 0 {
			roots = append(roots, node)
		} else {
			parent := stack[depth-1]
			parent.children = append(parent.children, node)
		}
		stack = append(stack, node)
	}

	out := make([]graph.Node, len(roots))
	for i, r := range roots {
		out[i] = r.toNode()
	}
	return out, nil
}

// WriteXLSX writes forest to path in the outline layout XLSXParser reads.
func WriteXLSX(path string, forest []graph.TreeNode) error {
	f := excelize.NewFile()
	defer f.Close()

	const sheet = "Organizations"
	if err := f.SetSheetName(f.GetSheetName(0), sheet); err != nil {
		return fmt.Errorf("naming sheet: %w", err)
	}

	row := 1
	var write func(n graph.TreeNode, depth int) error
	write = func(n graph.TreeNode, depth int) error {
		cell, err := excelize.CoordinatesToCellName(depth+1, row)
		if err != nil {
			return err
		}
		if err := f.SetCellStr(sheet, cell, n.OrgName); err != nil {
			return err
		}
		row++
		for _, d := range n.Daughters {
			if err := write(d, depth+1); err != nil {
				return err
			}
		}
		return nil
	}
	for _, tree := range forest {
		if err := write(tree, 0); err != nil {
			return fmt.Errorf("writing %q: %w", tree.OrgName, err)
		}
	}

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("saving XLSX: %w", err)
	}
	return nil
}
