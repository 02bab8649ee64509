package graph

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/brunobiangulo/orggraph/store"
)

// Classifier lists the immediate relatives of an organization.
type Classifier struct {
	store *store.Store
}

// NewClassifier creates a classifier reading from s.
func NewClassifier(s *store.Store) *Classifier {
	return &Classifier{store: s}
}

// Relations returns the parents, sisters and daughters of the named
// organization, de-duplicated by (type, name) and stably sorted by name.
// Records are discovered parent by parent (each parent followed by the
// sisters reached through it), then daughters; that order breaks ties.
func (c *Classifier) Relations(ctx context.Context, name string) ([]Relation, error) {
	defer observe("relations", time.Now())

	org, err := c.store.GetOrganizationByName(ctx, name)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %q", ErrOrganizationNotFound, name)
	}
	if err != nil {
		return nil, fmt.Errorf("graph.Relations: looking up %q: %w", name, err)
	}

	parents, err := c.store.Parents(ctx, org.ID)
	if err != nil {
		return nil, fmt.Errorf("graph.Relations: loading parents: %w", err)
	}

	var rs relationSet
	for _, p := range parents {
		rs.add(RelParent, p.Name)

		siblings, err := c.store.Daughters(ctx, p.ID)
		if err != nil {
			return nil, fmt.Errorf("graph.Relations: loading daughters of %q: %w", p.Name, err)
		}
		for _, s := range siblings {
			if s.ID == org.ID {
				continue
			}
			rs.add(RelSister, s.Name)
		}
	}

	daughters, err := c.store.Daughters(ctx, org.ID)
	if err != nil {
		return nil, fmt.Errorf("graph.Relations: loading daughters: %w", err)
	}
	for _, d := range daughters {
		rs.add(RelDaughter, d.Name)
	}

	return SortByName(rs.list), nil
}

// relationSet keeps relations in discovery order without duplicates.
type relationSet struct {
	seen map[Relation]struct{}
	list []Relation
}

func (rs *relationSet) add(t RelationType, name string) {
	if rs.seen == nil {
		rs.seen = make(map[Relation]struct{})
	}
	r := Relation{RelationshipType: t, OrgName: name}
	if _, ok := rs.seen[r]; ok {
		return
	}
	rs.seen[r] = struct{}{}
	rs.list = append(rs.list, r)
}
