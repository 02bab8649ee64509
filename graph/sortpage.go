package graph

import (
	"cmp"
	"slices"
)

// SortStableBy returns a copy of records sorted ascending by key. Records
// with equal keys keep their original relative order: the original index is
// carried through the comparison as the tie-breaker.
func SortStableBy[T any, K cmp.Ordered](records []T, key func(T) K) []T {
	type indexed struct {
		rec T
		key K
		pos int
	}
	tmp := make([]indexed, len(records))
	for i, r := range records {
		tmp[i] = indexed{rec: r, key: key(r), pos: i}
	}

	slices.SortFunc(tmp, func(a, b indexed) int {
		if c := cmp.Compare(a.key, b.key); c != 0 {
			return c
		}
		return cmp.Compare(a.pos, b.pos)
	})

	out := make([]T, len(tmp))
	for i, t := range tmp {
		out[i] = t.rec
	}
	return out
}

// SortByName sorts relations by organization name only.
func SortByName(records []Relation) []Relation {
	return SortStableBy(records, func(r Relation) string { return r.OrgName })
}

// Page returns the 1-indexed page [(page-1)*size, page*size) of records,
// clamped to the available length. Out-of-range pages, and non-positive page
// numbers or sizes, yield an empty slice.
func Page[T any](records []T, page, size int) []T {
	if page < 1 || size < 1 || len(records) == 0 {
		return []T{}
	}
	// Compare page numbers before multiplying so huge pages cannot overflow.
	if page-1 > (len(records)-1)/size {
		return []T{}
	}
	start := (page - 1) * size
	end := min(start+size, len(records))
	return records[start:end]
}

// Paginated is a page of records plus the paging metadata clients use to
// walk the rest.
type Paginated[T any] struct {
	CurrentPage int  `json:"current_page"`
	Data        []T  `json:"data"`
	PerPage     int  `json:"per_page"`
	Total       int  `json:"total"`
	LastPage    int  `json:"last_page"`
	From        *int `json:"from"`
	To          *int `json:"to"`
}

// Paginate wraps Page with totals. From and To are 1-based positions of the
// first and last record on the page and are nil when the page is empty.
func Paginate[T any](records []T, page, size int) Paginated[T] {
	data := Page(records, page, size)
	p := Paginated[T]{
		CurrentPage: page,
		Data:        data,
		PerPage:     size,
		Total:       len(records),
		LastPage:    1,
	}
	if size > 0 && len(records) > 0 {
		p.LastPage = (len(records)-1)/size + 1
	}
	if len(data) > 0 {
		from := (page-1)*size + 1
		to := from + len(data) - 1
		p.From, p.To = &from, &to
	}
	return p
}
