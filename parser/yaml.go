package parser

import (
	"context"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/brunobiangulo/orggraph/graph"
)

// YAMLParser reads the nested document as YAML: a mapping with org_name and
// daughters, or a sequence of such mappings.
type YAMLParser struct{}

func (p *YAMLParser) SupportedFormats() []string { return []string{"yaml", "yml"} }

func (p *YAMLParser) Parse(ctx context.Context, path string) (*ParseResult, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading YAML file: %w", err)
	}

	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decoding YAML: %w", err)
	}
	if doc.Kind != yaml.DocumentNode || len(doc.Content) == 0 {
		return nil, fmt.Errorf("empty YAML document")
	}

	var roots []graph.Node
	switch top := doc.Content[0]; top.Kind {
	case yaml.SequenceNode:
		if err := top.Decode(&roots); err != nil {
			return nil, fmt.Errorf("decoding YAML sequence: %w", err)
		}
	case yaml.MappingNode:
		var n graph.Node
		if err := top.Decode(&n); err != nil {
			return nil, fmt.Errorf("decoding YAML mapping: %w", err)
		}
		roots = []graph.Node{n}
	default:
		return nil, fmt.Errorf("YAML document must be a mapping or a sequence (line %d)", top.Line)
	}

	if err := validateRoots(roots); err != nil {
		return nil, err
	}
	return &ParseResult{Roots: roots, Method: "native"}, nil
}
