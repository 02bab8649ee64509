package main

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brunobiangulo/orggraph"
	"github.com/brunobiangulo/orggraph/graph"
)

func run(t *testing.T, stdin string, args ...string) string {
	t.Helper()
	cmd := newRootCmd()
	var out, errOut bytes.Buffer
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	require.NoError(t, cmd.Execute(), errOut.String())
	return out.String()
}

func TestIngestThenQuery(t *testing.T) {
	db := filepath.Join(t.TempDir(), "cli.db")

	out := run(t, `{"org_name":"A","daughters":[{"org_name":"B"},{"org_name":"C"}]}`, "ingest", "-", "--db", db)
	var res orggraph.IngestResult
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.Equal(t, []string{"A"}, res.Roots)
	assert.Equal(t, 2, res.Stats.EdgesCreated)

	var rels []graph.Relation
	require.NoError(t, json.Unmarshal([]byte(run(t, "", "relations", "B", "--db", db)), &rels))
	assert.Equal(t, []graph.Relation{
		{RelationshipType: graph.RelParent, OrgName: "A"},
		{RelationshipType: graph.RelSister, OrgName: "C"},
	}, rels)

	var page graph.Paginated[graph.Relation]
	require.NoError(t, json.Unmarshal([]byte(run(t, "", "relations", "A", "--page", "1", "--db", db)), &page))
	assert.Equal(t, 2, page.Total)

	var forest []graph.TreeNode
	require.NoError(t, json.Unmarshal([]byte(run(t, "", "tree", "--db", db)), &forest))
	require.Len(t, forest, 1)
	assert.Equal(t, "A", forest[0].OrgName)

	var stats orggraph.Stats
	require.NoError(t, json.Unmarshal([]byte(run(t, "", "stats", "--db", db)), &stats))
	assert.Equal(t, 3, stats.Organizations)
}

func TestExportImport(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src.db")
	dst := filepath.Join(dir, "dst.db")
	sheet := filepath.Join(dir, "orgs.xlsx")

	run(t, `[{"org_name":"Acme","daughters":[{"org_name":"Widgets"}]},{"org_name":"Globex"}]`, "ingest", "-", "--db", src)
	assert.Contains(t, run(t, "", "export", sheet, "--db", src), "wrote 2 root organizations")

	var res orggraph.IngestResult
	require.NoError(t, json.Unmarshal([]byte(run(t, "", "import", sheet, "--db", dst)), &res))
	assert.Equal(t, "xlsx", res.Format)
	assert.Equal(t, []string{"Acme", "Globex"}, res.Roots)
}

func TestRelationsUnknownFails(t *testing.T) {
	cmd := newRootCmd()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"relations", "nobody", "--db", filepath.Join(t.TempDir(), "x.db")})
	err := cmd.Execute()
	assert.ErrorIs(t, err, orggraph.ErrOrganizationNotFound)
}

func TestExportRejectsOtherExtensions(t *testing.T) {
	cmd := newRootCmd()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"export", "out.csv", "--db", filepath.Join(t.TempDir(), "x.db")})
	assert.Error(t, cmd.Execute())
}
