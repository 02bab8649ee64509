package orggraph

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"sync/atomic"

	"github.com/brunobiangulo/orggraph/graph"
	"github.com/brunobiangulo/orggraph/parser"
	"github.com/brunobiangulo/orggraph/store"
)

// Engine is the main entry point for the organization graph.
type Engine interface {
	// Forest renders every root organization with its nested daughters.
	Forest(ctx context.Context) ([]graph.TreeNode, error)

	// Ingest upserts a nested organization description. Existing names are
	// reused and edges already present in either direction are skipped.
	Ingest(ctx context.Context, node graph.Node) (*IngestResult, error)

	// Relations lists the parents, sisters and daughters of name, sorted by
	// organization name.
	Relations(ctx context.Context, name string) ([]graph.Relation, error)

	// RelationsPage returns one page of Relations using Config.PageSize.
	RelationsPage(ctx context.Context, name string, page int) (graph.Paginated[graph.Relation], error)

	// ImportFile parses a hierarchy file (xlsx, json, yaml) and ingests
	// every top-level organization in it.
	ImportFile(ctx context.Context, path string) (*IngestResult, error)

	// Organization looks up a single organization with its direct links.
	Organization(ctx context.Context, name string) (*Organization, error)

	// Stats returns database counts.
	Stats(ctx context.Context) (*Stats, error)

	// Store returns the underlying store for diagnostic access.
	Store() *store.Store

	// Close cleanly shuts down the engine.
	Close() error
}

// IngestResult describes one ingestion or import.
type IngestResult struct {
	Roots  []string          `json:"roots"`
	Format string            `json:"format,omitempty"`
	Stats  graph.IngestStats `json:"stats"`
}

// Organization is a stored organization with its direct neighbours.
type Organization struct {
	ID        int64    `json:"id"`
	Name      string   `json:"org_name"`
	Parents   []string `json:"parents"`
	Daughters []string `json:"daughters"`
	CreatedAt string   `json:"created_at"`
	UpdatedAt string   `json:"updated_at"`
}

// Stats holds database counts.
type Stats struct {
	Organizations int    `json:"organizations"`
	Relationships int    `json:"relationships"`
	Roots         int    `json:"roots"`
	SchemaVersion int    `json:"schema_version"`
	Driver        string `json:"driver"`
}

type engine struct {
	cfg        Config
	store      *store.Store
	parsers    *parser.Registry
	classifier *graph.Classifier
	forest     *graph.ForestBuilder
	ingester   *graph.Ingester
	closed     atomic.Bool
}

// New creates a new Engine with the given configuration.
func New(cfg Config) (Engine, error) {
	// Apply defaults for zero values
	if cfg.PageSize == 0 {
		cfg.PageSize = DefaultConfig().PageSize
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	// Resolve database path from config (DBPath > DBName+StorageDir > default)
	dbPath := cfg.resolveDBPath()

	s, err := store.New(dbPath, cfg.Driver)
	if err != nil {
		return nil, fmt.Errorf("opening store: %w", err)
	}

	slog.Info("orggraph: engine ready", "db", dbPath, "driver", s.Driver(),
		"page_size", cfg.PageSize, "reject_cycles", cfg.RejectCycles)

	return &engine{
		cfg:        cfg,
		store:      s,
		parsers:    parser.NewRegistry(),
		classifier: graph.NewClassifier(s),
		forest:     graph.NewForestBuilder(s),
		ingester:   graph.NewIngester(s, cfg.RejectCycles),
	}, nil
}

func (e *engine) Forest(ctx context.Context) ([]graph.TreeNode, error) {
	if e.closed.Load() {
		return nil, ErrStoreClosed
	}
	return e.forest.Build(ctx)
}

func (e *engine) Ingest(ctx context.Context, node graph.Node) (*IngestResult, error) {
	if e.closed.Load() {
		return nil, ErrStoreClosed
	}
	org, stats, err := e.ingester.Ingest(ctx, node, nil)
	if err != nil {
		return nil, err
	}
	return &IngestResult{Roots: []string{org.Name}, Stats: stats}, nil
}

func (e *engine) Relations(ctx context.Context, name string) ([]graph.Relation, error) {
	if e.closed.Load() {
		return nil, ErrStoreClosed
	}
	return e.classifier.Relations(ctx, name)
}

func (e *engine) RelationsPage(ctx context.Context, name string, page int) (graph.Paginated[graph.Relation], error) {
	rels, err := e.Relations(ctx, name)
	if err != nil {
		return graph.Paginated[graph.Relation]{}, err
	}
	return graph.Paginate(rels, page, e.cfg.PageSize), nil
}

// ImportFile parses path by extension and ingests each root in file order.
// Nothing is ingested when the file fails to parse or validate. Roots
// ingested before a storage failure stay committed.
func (e *engine) ImportFile(ctx context.Context, path string) (*IngestResult, error) {
	if e.closed.Load() {
		return nil, ErrStoreClosed
	}

	format := strings.ToLower(strings.TrimPrefix(filepath.Ext(path), "."))
	p, err := e.parsers.Get(format)
	if err != nil {
		return nil, err
	}

	parsed, err := p.Parse(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", filepath.Base(path), err)
	}

	slog.Info("orggraph: importing file", "path", path, "format", format,
		"roots", len(parsed.Roots), "entries", parsed.Count())

	result := &IngestResult{Format: format, Roots: make([]string, 0, len(parsed.Roots))}
	for _, root := range parsed.Roots {
		org, stats, err := e.ingester.Ingest(ctx, root, nil)
		result.Stats.Add(stats)
		if err != nil {
			return result, fmt.Errorf("importing %q: %w", root.OrgName, err)
		}
		result.Roots = append(result.Roots, org.Name)
	}
	return result, nil
}

func (e *engine) Organization(ctx context.Context, name string) (*Organization, error) {
	if e.closed.Load() {
		return nil, ErrStoreClosed
	}

	org, err := e.store.GetOrganizationByName(ctx, name)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrOrganizationNotFound, name)
	}
	if err != nil {
		return nil, err
	}

	parents, err := e.store.Parents(ctx, org.ID)
	if err != nil {
		return nil, fmt.Errorf("loading parents: %w", err)
	}
	daughters, err := e.store.Daughters(ctx, org.ID)
	if err != nil {
		return nil, fmt.Errorf("loading daughters: %w", err)
	}

	return &Organization{
		ID:        org.ID,
		Name:      org.Name,
		Parents:   orgNames(parents),
		Daughters: orgNames(daughters),
		CreatedAt: org.CreatedAt,
		UpdatedAt: org.UpdatedAt,
	}, nil
}

func (e *engine) Stats(ctx context.Context) (*Stats, error) {
	if e.closed.Load() {
		return nil, ErrStoreClosed
	}

	db, err := e.store.DBStats(ctx)
	if err != nil {
		return nil, err
	}
	version, err := e.store.SchemaVersion(ctx)
	if err != nil {
		return nil, err
	}
	return &Stats{
		Organizations: db.Organizations,
		Relationships: db.Relationships,
		Roots:         db.Roots,
		SchemaVersion: version,
		Driver:        e.store.Driver(),
	}, nil
}

// Store returns the underlying store for diagnostic access.
func (e *engine) Store() *store.Store {
	return e.store
}

// Close shuts down the engine. Calling it twice is a no-op.
func (e *engine) Close() error {
	if e.closed.Swap(true) {
		return nil
	}
	return e.store.Close()
}

func orgNames(orgs []store.Organization) []string {
	out := make([]string, len(orgs))
	for i, o := range orgs {
		out[i] = o.Name
	}
	return out
}
