package parser

import (
	"errors"
	"fmt"
	"slices"
)

// ErrUnsupportedFormat is returned by Get for formats with no parser.
var ErrUnsupportedFormat = errors.New("orggraph: unsupported hierarchy format")

type Registry struct {
	parsers map[string]Parser
}

func NewRegistry() *Registry {
	r := &Registry{parsers: make(map[string]Parser)}
	// Register built-in parsers
	for _, p := range []Parser{&XLSXParser{}, &JSONParser{}, &YAMLParser{}, &TextParser{}, &PDFParser{}} {
		for _, f := range p.SupportedFormats() {
			r.parsers[f] = p
		}
	}
	return r
}

func (r *Registry) Get(format string) (Parser, error) {
	p, ok := r.parsers[format]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, format)
	}
	return p, nil
}

func (r *Registry) Register(format string, p Parser) {
	r.parsers[format] = p
}

// Formats lists registered formats in sorted order.
func (r *Registry) Formats() []string {
	out := make([]string, 0, len(r.parsers))
	for f := range r.parsers {
		out = append(out, f)
	}
	slices.Sort(out)
	return out
}
