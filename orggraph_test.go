package orggraph

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/brunobiangulo/orggraph/graph"
	"github.com/brunobiangulo/orggraph/parser"
)

func newTestEngine(t *testing.T) Engine {
	t.Helper()
	cfg := DefaultConfig()
	cfg.DBPath = filepath.Join(t.TempDir(), "test.db")
	eng, err := New(cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { eng.Close() })
	return eng
}

func exampleNode() graph.Node {
	return graph.Node{OrgName: "A", Daughters: []graph.Node{{OrgName: "B"}, {OrgName: "C"}}}
}

func TestEngineIngestAndForest(t *testing.T) {
	eng := newTestEngine(t)
	ctx := context.Background()

	res, err := eng.Ingest(ctx, exampleNode())
	if err != nil {
		t.Fatalf("Ingest: %v", err)
	}
	if len(res.Roots) != 1 || res.Roots[0] != "A" {
		t.Errorf("roots: got %v", res.Roots)
	}
	if res.Stats.OrganizationsCreated != 3 || res.Stats.EdgesCreated != 2 {
		t.Errorf("stats: got %+v", res.Stats)
	}

	forest, err := eng.Forest(ctx)
	if err != nil {
		t.Fatalf("Forest: %v", err)
	}
	data, _ := json.Marshal(forest)
	want := `[{"org_name":"A","daughters":[{"org_name":"B"},{"org_name":"C"}]}]`
	if string(data) != want {
		t.Errorf("forest:\n got %s\nwant %s", data, want)
	}
}

func TestEngineIngestIdempotent(t *testing.T) {
	eng := newTestEngine(t)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if _, err := eng.Ingest(ctx, exampleNode()); err != nil {
			t.Fatalf("Ingest #%d: %v", i+1, err)
		}
	}

	stats, err := eng.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if stats.Organizations != 3 || stats.Relationships != 2 || stats.Roots != 1 {
		t.Errorf("got %+v, want 3 organizations, 2 relationships, 1 root", stats)
	}
	if stats.SchemaVersion < 1 {
		t.Errorf("schema version: got %d", stats.SchemaVersion)
	}
	if stats.Driver == "" {
		t.Error("driver not reported")
	}
}

func TestEngineIngestInvalid(t *testing.T) {
	eng := newTestEngine(t)
	_, err := eng.Ingest(context.Background(), graph.Node{OrgName: "A", Daughters: []graph.Node{{}}})
	if !errors.Is(err, ErrInvalidNode) {
		t.Fatalf("expected ErrInvalidNode, got %v", err)
	}
}

func TestEngineRelationsPage(t *testing.T) {
	eng := newTestEngine(t)
	ctx := context.Background()

	root := graph.Node{OrgName: "parent"}
	for i := 0; i < 250; i++ {
		root.Daughters = append(root.Daughters, graph.Node{OrgName: fmt.Sprintf("daughter-%03d", i)})
	}
	if _, err := eng.Ingest(ctx, root); err != nil {
		t.Fatalf("Ingest: %v", err)
	}

	// One parent and 249 sisters.
	for _, tt := range []struct {
		page, want int
	}{{1, 100}, {2, 100}, {3, 50}, {4, 0}} {
		p, err := eng.RelationsPage(ctx, "daughter-000", tt.page)
		if err != nil {
			t.Fatalf("page %d: %v", tt.page, err)
		}
		if len(p.Data) != tt.want {
			t.Errorf("page %d: got %d relations, want %d", tt.page, len(p.Data), tt.want)
		}
		if p.Total != 250 || p.PerPage != 100 || p.LastPage != 3 {
			t.Errorf("page %d metadata: got %+v", tt.page, p)
		}
	}
}

func TestEngineRelationsNotFound(t *testing.T) {
	eng := newTestEngine(t)
	_, err := eng.RelationsPage(context.Background(), "nobody", 1)
	if !errors.Is(err, ErrOrganizationNotFound) {
		t.Fatalf("expected ErrOrganizationNotFound, got %v", err)
	}
}

func TestEngineOrganization(t *testing.T) {
	eng := newTestEngine(t)
	ctx := context.Background()
	if _, err := eng.Ingest(ctx, exampleNode()); err != nil {
		t.Fatal(err)
	}

	org, err := eng.Organization(ctx, "B")
	if err != nil {
		t.Fatalf("Organization: %v", err)
	}
	if org.Name != "B" || len(org.Parents) != 1 || org.Parents[0] != "A" || len(org.Daughters) != 0 {
		t.Errorf("got %+v", org)
	}

	a, err := eng.Organization(ctx, "A")
	if err != nil {
		t.Fatal(err)
	}
	if len(a.Daughters) != 2 || a.Daughters[0] != "B" || a.Daughters[1] != "C" {
		t.Errorf("daughters of A: got %v", a.Daughters)
	}

	if _, err := eng.Organization(ctx, "Z"); !errors.Is(err, ErrOrganizationNotFound) {
		t.Errorf("expected ErrOrganizationNotFound, got %v", err)
	}
}

func TestEngineImportJSON(t *testing.T) {
	eng := newTestEngine(t)
	ctx := context.Background()

	path := filepath.Join(t.TempDir(), "orgs.json")
	body := `[{"org_name":"A","daughters":[{"org_name":"B"}]},{"org_name":"X"}]`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}

	res, err := eng.ImportFile(ctx, path)
	if err != nil {
		t.Fatalf("ImportFile: %v", err)
	}
	if res.Format != "json" || len(res.Roots) != 2 {
		t.Errorf("got %+v", res)
	}
	if res.Stats.OrganizationsCreated != 3 || res.Stats.EdgesCreated != 1 {
		t.Errorf("stats: got %+v", res.Stats)
	}
}

func TestEngineImportXLSXRoundTrip(t *testing.T) {
	src := newTestEngine(t)
	ctx := context.Background()
	if _, err := src.Ingest(ctx, graph.Node{OrgName: "Acme", Daughters: []graph.Node{
		{OrgName: "Widgets", Daughters: []graph.Node{{OrgName: "Sprockets"}}},
		{OrgName: "Gadgets"},
	}}); err != nil {
		t.Fatal(err)
	}
	forest, err := src.Forest(ctx)
	if err != nil {
		t.Fatal(err)
	}

	path := filepath.Join(t.TempDir(), "export.xlsx")
	if err := parser.WriteXLSX(path, forest); err != nil {
		t.Fatalf("WriteXLSX: %v", err)
	}

	dst := newTestEngine(t)
	if _, err := dst.ImportFile(ctx, path); err != nil {
		t.Fatalf("ImportFile: %v", err)
	}
	got, err := dst.Forest(ctx)
	if err != nil {
		t.Fatal(err)
	}

	a, _ := json.Marshal(forest)
	b, _ := json.Marshal(got)
	if string(a) != string(b) {
		t.Errorf("round trip mismatch:\n src %s\n dst %s", a, b)
	}
}

func TestEngineImportUnsupported(t *testing.T) {
	eng := newTestEngine(t)
	path := filepath.Join(t.TempDir(), "orgs.csv")
	if err := os.WriteFile(path, []byte("A"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := eng.ImportFile(context.Background(), path); !errors.Is(err, ErrUnsupportedFormat) {
		t.Fatalf("expected ErrUnsupportedFormat, got %v", err)
	}
}

func TestEngineImportInvalidIngestsNothing(t *testing.T) {
	eng := newTestEngine(t)
	ctx := context.Background()

	path := filepath.Join(t.TempDir(), "orgs.json")
	body := `[{"org_name":"A"},{"org_name":""}]`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := eng.ImportFile(ctx, path); !errors.Is(err, ErrInvalidNode) {
		t.Fatalf("expected ErrInvalidNode, got %v", err)
	}

	stats, err := eng.Stats(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if stats.Organizations != 0 {
		t.Errorf("expected nothing ingested, got %d organizations", stats.Organizations)
	}
}

func TestEngineClosed(t *testing.T) {
	eng := newTestEngine(t)
	if err := eng.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := eng.Close(); err != nil {
		t.Errorf("second Close: %v", err)
	}
	if _, err := eng.Forest(context.Background()); !errors.Is(err, ErrStoreClosed) {
		t.Errorf("expected ErrStoreClosed, got %v", err)
	}
}

func TestEngineConcurrentIngest(t *testing.T) {
	eng := newTestEngine(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	errs := make(chan error, 8)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			// Half the writers describe the hierarchy from the other side.
			node := exampleNode()
			if i%2 == 1 {
				node = graph.Node{OrgName: "A", Daughters: []graph.Node{{OrgName: "C"}, {OrgName: "B"}}}
			}
			if _, err := eng.Ingest(ctx, node); err != nil {
				errs <- err
			}
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Errorf("Ingest: %v", err)
	}

	stats, err := eng.Stats(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if stats.Organizations != 3 || stats.Relationships != 2 {
		t.Errorf("got %+v, want 3 organizations and 2 relationships", stats)
	}
}
