// Package scoring implements the factor evaluation engine: per
// (goal, factor) score rows computed as H = -q·ln(1-p), plus derived
// per-goal and per-subtree ΣH summary rows recomputed from scratch after
// every mutation.
package scoring

import (
	"math"
	"strings"

	"github.com/planfactor/planfactor/internal/goaltree"
)

// SummaryPrefix marks derived summary rows. Factor names carrying this
// prefix are reserved and stripped before every recomputation.
const SummaryPrefix = "ΣH "

// Reserved factor names for the two summary kinds.
const (
	SummaryGoal    = SummaryPrefix + "(goal)"
	SummarySubtree = SummaryPrefix + "(subtree)"
)

// Row is one factor evaluation for one goal. P and Q are nil on derived
// summary rows, which carry only H.
type Row struct {
	Goal   string   `json:"goal"`
	Factor string   `json:"factor"`
	P      *float64 `json:"p"`
	Q      *float64 `json:"q"`
	H      float64  `json:"H"`
}

// IsSummary reports whether the row is a derived ΣH row.
func (r Row) IsSummary() bool {
	return strings.HasPrefix(r.Factor, SummaryPrefix)
}

// Score computes H = -q·ln(1-p), rounded to 4 decimal places.
//
// The engine is defensive: it returns 0 for p ≤ 0, q ≤ 0 and for p ≥ 1
// (where the logarithm is undefined). The dialog layer separately rejects
// p = 1 as invalid input before ever calling Score; the engine guard only
// exists so a bad persisted row can never produce ±Inf.
func Score(p, q float64) float64 {
	if p <= 0 || q <= 0 || p >= 1 {
		return 0
	}
	return round4(-q * math.Log(1-p))
}

// Table holds the full factor-score row list for one session: base rows
// keyed by (goal, factor), followed by derived summary rows.
type Table struct {
	rows []Row
}

// NewTable creates an empty table.
func NewTable() *Table {
	return &Table{}
}

// Rows returns the current row list, base rows first, then summaries.
// The returned slice is never nil.
func (t *Table) Rows() []Row {
	if t.rows == nil {
		return []Row{}
	}
	return t.rows
}

// Upsert records an evaluation, replacing any existing base row with the
// same (goal, factor) key. It returns the computed H. The caller must
// recompute summaries afterwards.
func (t *Table) Upsert(goal, factor string, p, q float64) float64 {
	h := Score(p, q)
	pr, qr := round4(p), round4(q)
	row := Row{Goal: goal, Factor: factor, P: &pr, Q: &qr, H: h}
	for i, r := range t.rows {
		if !r.IsSummary() && strings.EqualFold(r.Goal, goal) && strings.EqualFold(r.Factor, factor) {
			t.rows[i] = row
			return h
		}
	}
	t.rows = append(t.rows, row)
	return h
}

// PurgeGoal removes every row (base and summary) for the named goal.
func (t *Table) PurgeGoal(name string) {
	t.filter(func(r Row) bool { return !strings.EqualFold(r.Goal, name) })
}

// PurgeFactor removes every base row for the named factor.
func (t *Table) PurgeFactor(name string) {
	t.filter(func(r Row) bool { return r.IsSummary() || !strings.EqualFold(r.Factor, name) })
}

// RenameGoal cascades a goal rename into every row keyed by the old name.
func (t *Table) RenameGoal(oldName, newName string) {
	for i := range t.rows {
		if strings.EqualFold(t.rows[i].Goal, oldName) {
			t.rows[i].Goal = newName
		}
	}
}

// RenameFactor cascades a factor rename into every base row.
func (t *Table) RenameFactor(oldName, newName string) {
	for i := range t.rows {
		if !t.rows[i].IsSummary() && strings.EqualFold(t.rows[i].Factor, oldName) {
			t.rows[i].Factor = newName
		}
	}
}

// HasFactor reports whether any base row references the named factor.
func (t *Table) HasFactor(name string) bool {
	for _, r := range t.rows {
		if !r.IsSummary() && strings.EqualFold(r.Factor, name) {
			return true
		}
	}
	return false
}

// Recompute strips all summary rows and rebuilds them from the current
// base rows and tree: one ΣH (goal) row per goal that has base rows, and
// one ΣH (subtree) row per tree node, folded post-order over children.
// Being a pure strip-then-rebuild, repeated calls are idempotent.
func (t *Table) Recompute(tree *goaltree.Tree) {
	t.filter(func(r Row) bool { return !r.IsSummary() })

	// Per-goal base sums, in first-appearance order.
	baseSum := make(map[string]float64)
	var goalOrder []string
	for _, r := range t.rows {
		if _, seen := baseSum[r.Goal]; !seen {
			goalOrder = append(goalOrder, r.Goal)
		}
		baseSum[r.Goal] += r.H
	}

	for _, g := range goalOrder {
		t.rows = append(t.rows, Row{Goal: g, Factor: SummaryGoal, H: round4(baseSum[g])})
	}

	if tree == nil || tree.Empty() {
		return
	}

	// Post-order subtree fold, memoized per pass.
	subtree := make(map[string]float64)
	var fold func(n *goaltree.Node) float64
	fold = func(n *goaltree.Node) float64 {
		if s, ok := subtree[n.Name]; ok {
			return s
		}
		s := baseSum[n.Name]
		for _, ch := range n.Children {
			s += fold(ch)
		}
		subtree[n.Name] = s
		return s
	}
	for _, n := range tree.Goals() {
		h := fold(n)
		t.rows = append(t.rows, Row{Goal: n.Name, Factor: SummarySubtree, H: round4(h)})
	}
}

// Load replaces the table contents, e.g. when resuming a persisted scheme.
func (t *Table) Load(rows []Row) {
	t.rows = append([]Row(nil), rows...)
}

func (t *Table) filter(keep func(Row) bool) {
	out := t.rows[:0]
	for _, r := range t.rows {
		if keep(r) {
			out = append(out, r)
		}
	}
	t.rows = out
}

func round4(v float64) float64 {
	return math.Round(v*10000) / 10000
}
