package orggraph

import (
	"errors"

	"github.com/brunobiangulo/orggraph/graph"
	"github.com/brunobiangulo/orggraph/parser"
)

var (
	// ErrOrganizationNotFound is returned when a named organization does not exist.
	ErrOrganizationNotFound = graph.ErrOrganizationNotFound

	// ErrCycle is returned when the stored hierarchy contains a cycle.
	ErrCycle = graph.ErrCycle

	// ErrInvalidNode is returned for malformed ingestion input.
	ErrInvalidNode = graph.ErrInvalidNode

	// ErrUnsupportedFormat is returned for unrecognized import formats.
	ErrUnsupportedFormat = parser.ErrUnsupportedFormat

	// ErrInvalidConfig is returned for invalid configuration values.
	ErrInvalidConfig = errors.New("orggraph: invalid configuration")

	// ErrStoreClosed is returned when operating on a closed engine.
	ErrStoreClosed = errors.New("orggraph: store is closed")
)
