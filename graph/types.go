package graph

import (
	"errors"
	"fmt"
)

var (
	// ErrOrganizationNotFound is returned when a named organization does not exist.
	ErrOrganizationNotFound = errors.New("orggraph: organization not found")

	// ErrCycle is returned when the stored edges contain a cycle reachable
	// from a root.
	ErrCycle = errors.New("orggraph: cycle in organization hierarchy")

	// ErrInvalidNode is returned for ingestion input that fails validation.
	ErrInvalidNode = errors.New("orggraph: invalid organization node")
)

// RelationType classifies an organization relative to the one queried.
type RelationType string

// Relation type constants.
const (
	RelParent   RelationType = "parent"
	RelDaughter RelationType = "daughter"
	RelSister   RelationType = "sister"
)

// Relation is one immediate relative of a queried organization.
// Relations are compared as whole values: the same name may appear under two
// different types.
type Relation struct {
	RelationshipType RelationType `json:"relationship_type"`
	OrgName          string       `json:"org_name"`
}

// TreeNode is one organization in a rendered forest. Leaves carry no
// daughters key when serialised.
type TreeNode struct {
	OrgName   string     `json:"org_name" yaml:"org_name"`
	Daughters []TreeNode `json:"daughters,omitempty" yaml:"daughters,omitempty"`
}

// Node is the nested description accepted by ingestion.
type Node struct {
	OrgName   string `json:"org_name" yaml:"org_name" validate:"required,max=255"`
	Daughters []Node `json:"daughters,omitempty" yaml:"daughters,omitempty" validate:"omitempty,dive"`
}

// Validate checks that every node in the subtree has a non-empty name.
func (n Node) Validate() error {
	return n.validate("$")
}

func (n Node) validate(path string) error {
	if n.OrgName == "" {
		return fmt.Errorf("%w: %s: org_name is required", ErrInvalidNode, path)
	}
	for i, d := range n.Daughters {
		if err := d.validate(fmt.Sprintf("%s.daughters[%d]", path, i)); err != nil {
			return err
		}
	}
	return nil
}

// Count returns the number of nodes in the subtree, including n.
func (n Node) Count() int {
	total := 1
	for _, d := range n.Daughters {
		total += d.Count()
	}
	return total
}
