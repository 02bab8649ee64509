package graph

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/brunobiangulo/orggraph/store"
)

// ForestBuilder renders the stored hierarchy as nested trees.
type ForestBuilder struct {
	store *store.Store
}

// NewForestBuilder creates a forest builder reading from s.
func NewForestBuilder(s *store.Store) *ForestBuilder {
	return &ForestBuilder{store: s}
}

// Build returns one tree per organization without a parent, in creation
// order. Daughters keep the order their edges were created in. An
// organization with several parents appears under each of them.
//
// Returns ErrCycle if a root reaches an organization that is already on the
// current path. Organizations that sit only on a cycle are unreachable from
// any root and are not rendered.
func (f *ForestBuilder) Build(ctx context.Context) ([]TreeNode, error) {
	defer observe("forest", time.Now())

	// Load the full graph into memory and walk it from there.
	orgs, err := f.store.ListOrganizations(ctx)
	if err != nil {
		return nil, fmt.Errorf("graph.Forest: loading organizations: %w", err)
	}
	rels, err := f.store.AllRelationships(ctx)
	if err != nil {
		return nil, fmt.Errorf("graph.Forest: loading relationships: %w", err)
	}

	names := make(map[int64]string, len(orgs))
	for _, o := range orgs {
		names[o.ID] = o.Name
	}
	daughters := make(map[int64][]int64)
	hasParent := make(map[int64]bool)
	for _, r := range rels {
		daughters[r.OrganizationID] = append(daughters[r.OrganizationID], r.DaughterID)
		hasParent[r.DaughterID] = true
	}

	w := &forestWalker{names: names, daughters: daughters, onPath: make(map[int64]bool)}
	forest := make([]TreeNode, 0)
	for _, o := range orgs {
		if hasParent[o.ID] {
			continue
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		tree, err := w.expand(o.ID)
		if err != nil {
			return nil, err
		}
		forest = append(forest, tree)
	}

	slog.Debug("graph: forest built", "organizations", len(orgs),
		"relationships", len(rels), "roots", len(forest))
	return forest, nil
}

type forestWalker struct {
	names     map[int64]string
	daughters map[int64][]int64
	onPath    map[int64]bool
}

func (w *forestWalker) expand(id int64) (TreeNode, error) {
	node := TreeNode{OrgName: w.names[id]}

	w.onPath[id] = true
	defer delete(w.onPath, id)

	for _, d := range w.daughters[id] {
		if w.onPath[d] {
			return TreeNode{}, fmt.Errorf("%w: %q -> %q", ErrCycle, w.names[id], w.names[d])
		}
		child, err := w.expand(d)
		if err != nil {
			return TreeNode{}, err
		}
		node.Daughters = append(node.Daughters, child)
	}
	return node, nil
}
