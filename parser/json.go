package parser

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/brunobiangulo/orggraph/graph"
)

// JSONParser reads the same nested document the HTTP API accepts: a single
// {"org_name", "daughters"} object or an array of them.
type JSONParser struct{}

func (p *JSONParser) SupportedFormats() []string { return []string{"json"} }

func (p *JSONParser) Parse(ctx context.Context, path string) (*ParseResult, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading JSON file: %w", err)
	}

	roots, err := DecodeJSON(data)
	if err != nil {
		return nil, err
	}
	return &ParseResult{Roots: roots, Method: "native"}, nil
}

// DecodeJSON decodes one node or an array of nodes and validates them.
func DecodeJSON(data []byte) ([]graph.Node, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("empty JSON document")
	}

	var roots []graph.Node
	if trimmed[0] == '[' {
		if err := json.Unmarshal(trimmed, &roots); err != nil {
			return nil, fmt.Errorf("decoding JSON array: %w", err)
		}
	} else {
		var n graph.Node
		if err := json.Unmarshal(trimmed, &n); err != nil {
			return nil, fmt.Errorf("decoding JSON object: %w", err)
		}
		roots = []graph.Node{n}
	}

	if err := validateRoots(roots); err != nil {
		return nil, err
	}
	return roots, nil
}
