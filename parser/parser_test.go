package parser

import (
	"errors"
	"fmt"
	"slices"
	"testing"
)

// ---------------------------------------------------------------------------
// Registry tests
// ---------------------------------------------------------------------------

func TestRegistryBuiltInParsers(t *testing.T) {
	reg := NewRegistry()

	formats := []struct {
		format     string
		wantParser string
	}{
		{"xlsx", "*parser.XLSXParser"},
		{"json", "*parser.JSONParser"},
		{"yaml", "*parser.YAMLParser"},
		{"yml", "*parser.YAMLParser"},
		{"txt", "*parser.TextParser"},
		{"pdf", "*parser.PDFParser"},
	}

	for _, tt := range formats {
		t.Run(tt.format, func(t *testing.T) {
			p, err := reg.Get(tt.format)
			if err != nil {
				t.Fatalf("Get(%q) returned error: %v", tt.format, err)
			}
			if p == nil {
				t.Fatalf("Get(%q) returned nil parser", tt.format)
			}
			if got := fmt.Sprintf("%T", p); got != tt.wantParser {
				t.Errorf("Get(%q) = %s, want %s", tt.format, got, tt.wantParser)
			}
			// Verify the parser supports the expected format.
			if supported := p.SupportedFormats(); !slices.Contains(supported, tt.format) {
				t.Errorf("parser for %q does not list %q in SupportedFormats(): %v",
					tt.format, tt.format, supported)
			}
		})
	}
}

func TestRegistryUnknown(t *testing.T) {
	reg := NewRegistry()

	unknownFormats := []string{"csv", "xls", "docx", "pptx", ""}
	for _, format := range unknownFormats {
		t.Run("format_"+format, func(t *testing.T) {
			p, err := reg.Get(format)
			if err == nil {
				t.Errorf("Get(%q) expected error for unknown format, got parser: %v", format, p)
			}
			if !errors.Is(err, ErrUnsupportedFormat) {
				t.Errorf("Get(%q) error should wrap ErrUnsupportedFormat, got %v", format, err)
			}
		})
	}
}

func TestRegistryRegisterOverrides(t *testing.T) {
	reg := NewRegistry()
	reg.Register("yaml", &JSONParser{})

	p, err := reg.Get("yaml")
	if err != nil {
		t.Fatalf("Get after Register: %v", err)
	}
	if _, ok := p.(*JSONParser); !ok {
		t.Errorf("expected *JSONParser, got %T", p)
	}
}

func TestRegistryFormats(t *testing.T) {
	got := NewRegistry().Formats()
	want := []string{"json", "pdf", "txt", "xlsx", "yaml", "yml"}
	if !slices.Equal(got, want) {
		t.Errorf("formats: got %v, want %v", got, want)
	}
}
