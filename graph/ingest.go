package graph

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/brunobiangulo/orggraph/store"
)

// Edge decision outcomes, also used as metric labels.
const (
	edgeCreated   = "created"
	edgeDuplicate = "duplicate"
	edgeSelf      = "self"
	edgeCycle     = "cycle"
)

// IngestStats summarises what one ingestion call changed.
type IngestStats struct {
	OrganizationsCreated int `json:"organizations_created"`
	OrganizationsReused  int `json:"organizations_reused"`
	EdgesCreated         int `json:"edges_created"`
	EdgesDuplicate       int `json:"edges_duplicate"`
	EdgesSelf            int `json:"edges_self"`
	EdgesCycle           int `json:"edges_cycle"`
}

// EdgesSkipped is the number of edges ingestion declined to create.
func (s IngestStats) EdgesSkipped() int {
	return s.EdgesDuplicate + s.EdgesSelf + s.EdgesCycle
}

// Add accumulates o into s.
func (s *IngestStats) Add(o IngestStats) {
	s.OrganizationsCreated += o.OrganizationsCreated
	s.OrganizationsReused += o.OrganizationsReused
	s.EdgesCreated += o.EdgesCreated
	s.EdgesDuplicate += o.EdgesDuplicate
	s.EdgesSelf += o.EdgesSelf
	s.EdgesCycle += o.EdgesCycle
}

// Ingester upserts nested organization descriptions into the store.
type Ingester struct {
	store        *store.Store
	rejectCycles bool
}

// NewIngester creates an ingester writing to s. With rejectCycles set, an
// edge whose daughter already reaches its parent is skipped.
func NewIngester(s *store.Store, rejectCycles bool) *Ingester {
	return &Ingester{store: s, rejectCycles: rejectCycles}
}

// Ingest upserts node and its daughters by name. When parentID is non-nil
// the edge parent -> node is created unless the pair is already linked in
// either direction, the edge is a self-loop, or (with rejectCycles) it would
// close a cycle. Skipped edges are not errors.
//
// Each recursion frame (upsert organization, link to parent) commits as one
// transaction. A failure part-way leaves earlier frames in place; the
// returned stats cover what was committed.
func (in *Ingester) Ingest(ctx context.Context, node Node, parentID *int64) (*store.Organization, IngestStats, error) {
	defer observe("ingest", time.Now())

	var stats IngestStats
	if err := node.Validate(); err != nil {
		return nil, stats, err
	}

	org, err := in.ingest(ctx, node, parentID, &stats)
	if err != nil {
		return nil, stats, err
	}

	slog.Info("graph: ingestion complete", "root", org.Name,
		"orgs_created", stats.OrganizationsCreated, "orgs_reused", stats.OrganizationsReused,
		"edges_created", stats.EdgesCreated, "edges_skipped", stats.EdgesSkipped())
	return org, stats, nil
}

func (in *Ingester) ingest(ctx context.Context, node Node, parentID *int64, stats *IngestStats) (*store.Organization, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var (
		org     *store.Organization
		created bool
		outcome string
	)
	err := in.store.WithTx(ctx, func(tx *store.Store) error {
		var err error
		org, created, err = tx.GetOrCreateOrganization(ctx, node.OrgName)
		if err != nil {
			return fmt.Errorf("upserting organization: %w", err)
		}
		if parentID == nil {
			return nil
		}
		outcome, err = in.link(ctx, tx, *parentID, org.ID)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("graph.Ingest: %q: %w", node.OrgName, err)
	}

	in.record(stats, org, created, parentID, outcome)

	for _, d := range node.Daughters {
		if _, err := in.ingest(ctx, d, &org.ID, stats); err != nil {
			return nil, err
		}
	}
	return org, nil
}

// link decides and, if allowed, creates parentID -> daughterID inside tx.
func (in *Ingester) link(ctx context.Context, tx *store.Store, parentID, daughterID int64) (string, error) {
	if parentID == daughterID {
		return edgeSelf, nil
	}

	exists, err := tx.EdgeExists(ctx, parentID, daughterID)
	if err != nil {
		return "", fmt.Errorf("checking edge: %w", err)
	}
	if exists {
		return edgeDuplicate, nil
	}

	if in.rejectCycles {
		cyclic, err := tx.Reaches(ctx, daughterID, parentID)
		if err != nil {
			return "", fmt.Errorf("checking reachability: %w", err)
		}
		if cyclic {
			return edgeCycle, nil
		}
	}

	if _, err := tx.InsertRelationship(ctx, parentID, daughterID); err != nil {
		return "", fmt.Errorf("inserting edge: %w", err)
	}
	return edgeCreated, nil
}

func (in *Ingester) record(stats *IngestStats, org *store.Organization, created bool, parentID *int64, outcome string) {
	if created {
		stats.OrganizationsCreated++
		ingestOrganizations.WithLabelValues("created").Inc()
		slog.Debug("graph: organization created", "org", org.Name, "id", org.ID)
	} else {
		stats.OrganizationsReused++
		ingestOrganizations.WithLabelValues("reused").Inc()
	}

	if parentID == nil {
		return
	}
	ingestEdges.WithLabelValues(outcome).Inc()

	switch outcome {
	case edgeCreated:
		stats.EdgesCreated++
		slog.Debug("graph: edge created", "parent_id", *parentID, "daughter", org.Name)
	case edgeDuplicate:
		stats.EdgesDuplicate++
		slog.Debug("graph: edge already present", "parent_id", *parentID, "daughter", org.Name)
	case edgeSelf:
		stats.EdgesSelf++
		slog.Warn("graph: skipping self-referential edge", "org", org.Name)
	case edgeCycle:
		stats.EdgesCycle++
		slog.Warn("graph: skipping edge that would close a cycle",
			"parent_id", *parentID, "daughter", org.Name)
	}
}
