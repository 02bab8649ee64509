package parser

import (
	"context"

	"github.com/brunobiangulo/orggraph/graph"
)

// ParseResult is what a parser produces from a hierarchy file.
type ParseResult struct {
	Roots    []graph.Node // Top-level organizations, each with its subtree
	Method   string       // "native"
	Metadata map[string]string
}

// Count returns the number of organization entries across all roots.
func (r *ParseResult) Count() int {
	n := 0
	for _, root := range r.Roots {
		n += root.Count()
	}
	return n
}

// Parser can parse a specific hierarchy file format.
type Parser interface {
	Parse(ctx context.Context, path string) (*ParseResult, error)
	SupportedFormats() []string
}

// validateRoots checks every parsed subtree before anything is ingested.
func validateRoots(roots []graph.Node) error {
	for _, r := range roots {
		if err := r.Validate(); err != nil {
			return err
		}
	}
	return nil
}
