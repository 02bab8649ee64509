package graph

import (
	"context"
	"errors"
	"reflect"
	"testing"
)

func relations(t *testing.T, c *Classifier, name string) []Relation {
	t.Helper()
	got, err := c.Relations(context.Background(), name)
	if err != nil {
		t.Fatalf("relations of %q: %v", name, err)
	}
	return got
}

func TestRelationsExample(t *testing.T) {
	s := newTestStore(t)
	mustIngest(t, NewIngester(s, true), abc())
	c := NewClassifier(s)

	tests := []struct {
		name string
		org  string
		want []Relation
	}{
		{
			name: "daughter sees parent and sister",
			org:  "B",
			want: []Relation{{RelParent, "A"}, {RelSister, "C"}},
		},
		{
			name: "root sees daughters",
			org:  "A",
			want: []Relation{{RelDaughter, "B"}, {RelDaughter, "C"}},
		},
		{
			name: "other daughter",
			org:  "C",
			want: []Relation{{RelParent, "A"}, {RelSister, "B"}},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := relations(t, c, tt.org)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("got %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestRelationsNotFound(t *testing.T) {
	s := newTestStore(t)
	_, err := NewClassifier(s).Relations(context.Background(), "unknown-name")
	if !errors.Is(err, ErrOrganizationNotFound) {
		t.Fatalf("expected ErrOrganizationNotFound, got %v", err)
	}
}

func TestRelationsSisterThroughTwoParentsOnce(t *testing.T) {
	s := newTestStore(t)
	in := NewIngester(s, true)
	mustIngest(t, in, Node{OrgName: "P1", Daughters: []Node{{OrgName: "Me"}, {OrgName: "Sis"}}})
	mustIngest(t, in, Node{OrgName: "P2", Daughters: []Node{{OrgName: "Me"}, {OrgName: "Sis"}}})

	got := relations(t, NewClassifier(s), "Me")
	want := []Relation{{RelParent, "P1"}, {RelParent, "P2"}, {RelSister, "Sis"}}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %+v, want %+v", got, want)
	}
}

func TestRelationsSameNameUnderTwoTypes(t *testing.T) {
	s := newTestStore(t)
	in := NewIngester(s, true)
	// X is both a sister of Me (shared parent P) and a daughter of Me.
	mustIngest(t, in, Node{OrgName: "P", Daughters: []Node{
		{OrgName: "Me", Daughters: []Node{{OrgName: "X"}}},
		{OrgName: "X"},
	}})

	got := relations(t, NewClassifier(s), "Me")
	// Equal names keep discovery order: sisters are found before daughters.
	want := []Relation{{RelParent, "P"}, {RelSister, "X"}, {RelDaughter, "X"}}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %+v, want %+v", got, want)
	}
}

func TestRelationsSortedAndUnique(t *testing.T) {
	s := newTestStore(t)
	in := NewIngester(s, true)
	mustIngest(t, in, Node{OrgName: "mother", Daughters: []Node{
		{OrgName: "zed"}, {OrgName: "me", Daughters: []Node{{OrgName: "kid-b"}, {OrgName: "kid-a"}}}, {OrgName: "amy"},
	}})
	mustIngest(t, in, Node{OrgName: "father", Daughters: []Node{{OrgName: "me"}, {OrgName: "zed"}, {OrgName: "bob"}}})

	c := NewClassifier(s)
	got := relations(t, c, "me")

	seen := make(map[Relation]bool)
	for i, r := range got {
		if seen[r] {
			t.Errorf("duplicate relation %+v", r)
		}
		seen[r] = true
		if i > 0 && got[i-1].OrgName > r.OrgName {
			t.Errorf("not sorted at %d: %q > %q", i, got[i-1].OrgName, r.OrgName)
		}
	}
	if len(got) != 7 {
		t.Errorf("expected 7 relations, got %d: %+v", len(got), got)
	}

	// Re-running on an unchanged graph gives the same answer.
	if again := relations(t, c, "me"); !reflect.DeepEqual(got, again) {
		t.Errorf("not idempotent:\n first %+v\nsecond %+v", got, again)
	}
}

func TestRelationsIsolatedOrganization(t *testing.T) {
	s := newTestStore(t)
	mustIngest(t, NewIngester(s, true), Node{OrgName: "Alone"})

	got := relations(t, NewClassifier(s), "Alone")
	if len(got) != 0 {
		t.Errorf("expected no relations, got %+v", got)
	}
}
