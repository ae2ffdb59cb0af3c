// Package classifier implements combinatorial subgoal generation: the
// Cartesian product of one or more named classifiers' item lists, walked
// one combination at a time in mixed-radix odometer order.
package classifier

import (
	"errors"
	"strings"
)

// Separator joins item values into a combined subgoal name. The literal
// " / " is a compatibility contract with persisted trees.
const Separator = " / "

var (
	// ErrNoItems means a classifier with an empty item list was supplied.
	ErrNoItems = errors.New("classifier has no items")
	// ErrTooFew means fewer classifiers than required were supplied.
	ErrTooFew = errors.New("at least one classifier required")
)

// Classifier is a named facet targeting one tree depth, with an ordered
// list of item values unique within the classifier (case-insensitive).
type Classifier struct {
	Name  string
	Level int
	Items []string
}

// Pair is one element of a two-classifier product.
type Pair struct {
	A string
	B string
}

// BuildPairs returns the full Cartesian product of two classifiers in
// row-major order: all of b's items for a's first item, then a's second,
// and so on.
func BuildPairs(a, b Classifier) []Pair {
	pairs := make([]Pair, 0, len(a.Items)*len(b.Items))
	for _, x := range a.Items {
		for _, y := range b.Items {
			pairs = append(pairs, Pair{A: x, B: y})
		}
	}
	return pairs
}

// CombinedName joins combination values with the fixed separator.
func CombinedName(values []string) string {
	return strings.Join(values, Separator)
}

// Cursor enumerates every combination of its classifiers' items exactly
// once, in odometer order: the last position increments first; on
// overflow it resets to zero and carries into the previous position.
type Cursor struct {
	clfs    []Classifier
	indices []int
}

// NewCursor creates a cursor positioned at the first combination.
func NewCursor(clfs []Classifier) (*Cursor, error) {
	if len(clfs) == 0 {
		return nil, ErrTooFew
	}
	for _, c := range clfs {
		if len(c.Items) == 0 {
			return nil, ErrNoItems
		}
	}
	return &Cursor{clfs: clfs, indices: make([]int, len(clfs))}, nil
}

// Current returns the current combination: one item value per classifier,
// in classifier order.
func (c *Cursor) Current() []string {
	out := make([]string, len(c.clfs))
	for i, clf := range c.clfs {
		out[i] = clf.Items[c.indices[i]]
	}
	return out
}

// Advance moves to the next combination. It returns false when the
// enumeration is exhausted, leaving the cursor back at all-zero.
func (c *Cursor) Advance() bool {
	for i := len(c.indices) - 1; i >= 0; i-- {
		c.indices[i]++
		if c.indices[i] < len(c.clfs[i].Items) {
			return true
		}
		c.indices[i] = 0
	}
	return false
}

// Combinations returns the total number of combinations, Π len(items).
func (c *Cursor) Combinations() int {
	r := 1
	for _, clf := range c.clfs {
		r *= len(clf.Items)
	}
	return r
}

// TotalCombinations is Combinations for a classifier list that may not
// yet be complete enough to build a cursor (empty lists count as 1, so a
// partial set still yields a meaningful running total).
func TotalCombinations(clfs []Classifier) int {
	r := 1
	for _, c := range clfs {
		if n := len(c.Items); n > 0 {
			r *= n
		}
	}
	return r
}

// MergeItems appends values to items, skipping blanks and entries already
// present case-insensitively. It returns the merged list and the values
// that were actually new.
func MergeItems(items, values []string) (merged, added []string) {
	merged = items
	seen := make(map[string]struct{}, len(items))
	for _, it := range items {
		seen[strings.ToLower(it)] = struct{}{}
	}
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		key := strings.ToLower(v)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		merged = append(merged, v)
		added = append(added, v)
	}
	return merged, added
}

// SplitItems parses a comma-separated item list, trimming whitespace and
// dropping empty entries.
func SplitItems(text string) []string {
	var out []string
	for _, part := range strings.Split(text, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
