// Package goaltree implements the hierarchical goal tree at the heart of
// the planfactor dialog: an ordered n-ary tree of uniquely named nodes
// with a configurable depth limit.
//
// Goal names share one case-insensitive namespace with factor names, so
// the tree validates new names against a Names registry owned by the
// dialog session rather than keeping a private set.
package goaltree

import (
	"errors"
	"fmt"
	"strings"
)

// ─── Errors ──────────────────────────────────────────────────────────────────

var (
	// ErrDuplicateName means the name is already taken by a goal or a factor.
	ErrDuplicateName = errors.New("name already in use")
	// ErrDepthExceeded means the operation would create a node beyond MaxLevel.
	ErrDepthExceeded = errors.New("maximum tree depth reached")
	// ErrInvalidMove means the re-parenting target is the node itself,
	// one of its descendants, or the node is the root.
	ErrInvalidMove = errors.New("invalid move")
	// ErrRootDeletion means Delete was called on the root node.
	ErrRootDeletion = errors.New("cannot delete the root goal")
	// ErrNotFound means no node matches the given name or id.
	ErrNotFound = errors.New("goal not found")
	// ErrEmptyName means a blank name was supplied.
	ErrEmptyName = errors.New("name must not be empty")
)

// ─── Names ───────────────────────────────────────────────────────────────────

// Names is a case-insensitive registry of names in use. Goals and factors
// share one registry: a name used by either can never be reused by the other
// while it exists.
type Names struct {
	used map[string]struct{}
}

// NewNames creates an empty registry.
func NewNames() *Names {
	return &Names{used: make(map[string]struct{})}
}

// Has reports whether name is already taken.
func (n *Names) Has(name string) bool {
	_, ok := n.used[strings.ToLower(name)]
	return ok
}

// Reserve claims name. It returns false if the name is already taken.
func (n *Names) Reserve(name string) bool {
	key := strings.ToLower(name)
	if _, ok := n.used[key]; ok {
		return false
	}
	n.used[key] = struct{}{}
	return true
}

// Release frees name so it can be reused.
func (n *Names) Release(name string) {
	delete(n.used, strings.ToLower(name))
}

// ─── Node ────────────────────────────────────────────────────────────────────

// Node is a single goal in the tree. The root has Level 1 and no parent;
// every child's Level is its parent's Level plus one. Children keep
// insertion order.
type Node struct {
	ID       int
	Name     string
	Level    int
	Parent   *Node
	Children []*Node
}

// FlatNode is the serialized form of a Node used by the dialog envelope
// and the persistence layer.
type FlatNode struct {
	ID       int    `json:"id"`
	Name     string `json:"name"`
	ParentID *int   `json:"parent"`
	Level    int    `json:"level"`
}

// ─── Tree ────────────────────────────────────────────────────────────────────

// Tree owns the root node, the id generator, and the name/id lookup
// indices. The indices are maintained incrementally on every structural
// mutation rather than rebuilt per turn.
type Tree struct {
	root     *Node
	maxLevel int
	names    *Names
	byName   map[string]*Node // lowercase name -> node
	byID     map[int]*Node
	nextID   int
}

// New creates an empty tree. maxLevel caps node levels (root = 1);
// names is the shared goal/factor namespace registry.
func New(maxLevel int, names *Names) *Tree {
	return &Tree{
		maxLevel: maxLevel,
		names:    names,
		byName:   make(map[string]*Node),
		byID:     make(map[int]*Node),
		nextID:   1,
	}
}

// Root returns the root node, or nil for an empty tree.
func (t *Tree) Root() *Node { return t.root }

// Empty reports whether the tree has no root yet.
func (t *Tree) Empty() bool { return t.root == nil }

// MaxLevel returns the configured depth cap.
func (t *Tree) MaxLevel() int { return t.maxLevel }

// SetRoot creates the root node. It fails if a root already exists or the
// name is blank or taken.
func (t *Tree) SetRoot(name string) (*Node, error) {
	if t.root != nil {
		return nil, fmt.Errorf("root already set: %w", ErrInvalidMove)
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrEmptyName
	}
	if !t.names.Reserve(name) {
		return nil, fmt.Errorf("%q: %w", name, ErrDuplicateName)
	}
	root := &Node{ID: t.genID(), Name: name, Level: 1}
	t.root = root
	t.index(root)
	return root, nil
}

// AddChild creates a new node under parent. It fails with ErrDuplicateName
// if the name is taken anywhere (goal or factor namespace) and with
// ErrDepthExceeded if the parent already sits at MaxLevel.
func (t *Tree) AddChild(parent *Node, name string) (*Node, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrEmptyName
	}
	if parent.Level >= t.maxLevel {
		return nil, fmt.Errorf("level %d: %w", t.maxLevel, ErrDepthExceeded)
	}
	if !t.names.Reserve(name) {
		return nil, fmt.Errorf("%q: %w", name, ErrDuplicateName)
	}
	child := &Node{ID: t.genID(), Name: name, Level: parent.Level + 1, Parent: parent}
	parent.Children = append(parent.Children, child)
	t.index(child)
	return child, nil
}

// Rename changes a node's name in place. The caller is responsible for
// cascading the rename into factor score rows keyed by the old name.
func (t *Tree) Rename(node *Node, newName string) error {
	newName = strings.TrimSpace(newName)
	if newName == "" {
		return ErrEmptyName
	}
	if strings.EqualFold(node.Name, newName) {
		node.Name = newName // case-only change
		return nil
	}
	if !t.names.Reserve(newName) {
		return fmt.Errorf("%q: %w", newName, ErrDuplicateName)
	}
	t.names.Release(node.Name)
	delete(t.byName, strings.ToLower(node.Name))
	node.Name = newName
	t.byName[strings.ToLower(newName)] = node
	return nil
}

// Move re-parents node under newParent. The move is rejected when node is
// the root, when newParent is node or one of its descendants, and when
// the moved subtree would sink below MaxLevel.
func (t *Tree) Move(node, newParent *Node) error {
	if node.Parent == nil {
		return fmt.Errorf("root cannot be moved: %w", ErrInvalidMove)
	}
	if node == newParent || isDescendant(newParent, node) {
		return fmt.Errorf("target is inside the moved subtree: %w", ErrInvalidMove)
	}
	if newParent.Level+depth(node) > t.maxLevel {
		return fmt.Errorf("subtree would exceed level %d: %w", t.maxLevel, ErrDepthExceeded)
	}
	detach(node)
	node.Parent = newParent
	newParent.Children = append(newParent.Children, node)
	relevel(node, newParent.Level+1)
	return nil
}

// Delete removes node and its whole subtree, freeing every contained name.
// It returns the freed names so the caller can purge factor score rows.
// Deleting the root is rejected with ErrRootDeletion; use Clear for an
// intentional full reset.
func (t *Tree) Delete(node *Node) ([]string, error) {
	if node.Parent == nil {
		return nil, ErrRootDeletion
	}
	detach(node)
	freed := t.unindexSubtree(node)
	return freed, nil
}

// Clear removes the entire tree, returning every freed name.
func (t *Tree) Clear() []string {
	if t.root == nil {
		return nil
	}
	freed := t.unindexSubtree(t.root)
	t.root = nil
	return freed
}

// FindByName looks a node up by exact case-insensitive name.
func (t *Tree) FindByName(name string) *Node {
	return t.byName[strings.ToLower(strings.TrimSpace(name))]
}

// FindByID looks a node up by id. The index is authoritative; if the
// index entry is stale (ids rewritten by the store) it falls back to a
// tree walk and repairs the index.
func (t *Tree) FindByID(id int) *Node {
	if n, ok := t.byID[id]; ok && n.ID == id {
		return n
	}
	found := findByIDWalk(t.root, id)
	if found != nil {
		t.byID[id] = found
	}
	return found
}

// Serialize returns the tree as a flat pre-order list of nodes.
func (t *Tree) Serialize() []FlatNode {
	var out []FlatNode
	var walk func(n *Node)
	walk = func(n *Node) {
		fn := FlatNode{ID: n.ID, Name: n.Name, Level: n.Level}
		if n.Parent != nil {
			pid := n.Parent.ID
			fn.ParentID = &pid
		}
		out = append(out, fn)
		for _, ch := range n.Children {
			walk(ch)
		}
	}
	if t.root != nil {
		walk(t.root)
	}
	if out == nil {
		out = []FlatNode{}
	}
	return out
}

// Goals returns every node in pre-order. Used by the scoring phase to
// iterate goals in a stable display order.
func (t *Tree) Goals() []*Node {
	var out []*Node
	var walk func(n *Node)
	walk = func(n *Node) {
		out = append(out, n)
		for _, ch := range n.Children {
			walk(ch)
		}
	}
	if t.root != nil {
		walk(t.root)
	}
	return out
}

// AdoptIDs rewrites node ids after the store has replaced the persisted
// tree and assigned fresh row ids. The mapping is keyed by the old id.
func (t *Tree) AdoptIDs(mapping map[int]int) {
	if t.root == nil {
		return
	}
	t.byID = make(map[int]*Node)
	maxID := 0
	for _, n := range t.Goals() {
		if newID, ok := mapping[n.ID]; ok {
			n.ID = newID
		}
		t.byID[n.ID] = n
		if n.ID > maxID {
			maxID = n.ID
		}
	}
	if maxID >= t.nextID {
		t.nextID = maxID + 1
	}
}

// Load rebuilds the tree from a flat node list, as produced by Serialize
// or loaded from the store. Parents must appear before their children.
func (t *Tree) Load(flat []FlatNode) error {
	if t.root != nil {
		return fmt.Errorf("load into non-empty tree: %w", ErrInvalidMove)
	}
	for _, fn := range flat {
		if fn.ParentID == nil {
			node := &Node{ID: fn.ID, Name: fn.Name, Level: 1}
			if !t.names.Reserve(fn.Name) {
				return fmt.Errorf("%q: %w", fn.Name, ErrDuplicateName)
			}
			t.root = node
			t.index(node)
			continue
		}
		parent := t.FindByID(*fn.ParentID)
		if parent == nil {
			return fmt.Errorf("parent id %d: %w", *fn.ParentID, ErrNotFound)
		}
		if !t.names.Reserve(fn.Name) {
			return fmt.Errorf("%q: %w", fn.Name, ErrDuplicateName)
		}
		node := &Node{ID: fn.ID, Name: fn.Name, Level: parent.Level + 1, Parent: parent}
		parent.Children = append(parent.Children, node)
		t.index(node)
	}
	for _, n := range t.Goals() {
		if n.ID >= t.nextID {
			t.nextID = n.ID + 1
		}
	}
	return nil
}

// ─── Internals ───────────────────────────────────────────────────────────────

func (t *Tree) genID() int {
	id := t.nextID
	t.nextID++
	return id
}

func (t *Tree) index(n *Node) {
	t.byName[strings.ToLower(n.Name)] = n
	t.byID[n.ID] = n
}

// unindexSubtree removes the subtree rooted at n from every index and
// frees its names, returning them in pre-order.
func (t *Tree) unindexSubtree(n *Node) []string {
	var freed []string
	var walk func(m *Node)
	walk = func(m *Node) {
		freed = append(freed, m.Name)
		t.names.Release(m.Name)
		delete(t.byName, strings.ToLower(m.Name))
		delete(t.byID, m.ID)
		for _, ch := range m.Children {
			walk(ch)
		}
	}
	walk(n)
	return freed
}

// detach unlinks n from its parent's child list.
func detach(n *Node) {
	p := n.Parent
	if p == nil {
		return
	}
	for i, ch := range p.Children {
		if ch == n {
			p.Children = append(p.Children[:i], p.Children[i+1:]...)
			break
		}
	}
	n.Parent = nil
}

// relevel sets n.Level and recursively re-levels its subtree.
func relevel(n *Node, level int) {
	n.Level = level
	for _, ch := range n.Children {
		relevel(ch, level+1)
	}
}

// isDescendant reports whether candidate sits somewhere under ancestor.
func isDescendant(candidate, ancestor *Node) bool {
	for p := candidate; p != nil; p = p.Parent {
		if p == ancestor {
			return true
		}
	}
	return false
}

// depth returns the height of the subtree rooted at n (a leaf has depth 1).
func depth(n *Node) int {
	max := 1
	for _, ch := range n.Children {
		if d := depth(ch) + 1; d > max {
			max = d
		}
	}
	return max
}

func findByIDWalk(n *Node, id int) *Node {
	if n == nil {
		return nil
	}
	if n.ID == id {
		return n
	}
	for _, ch := range n.Children {
		if got := findByIDWalk(ch, id); got != nil {
			return got
		}
	}
	return nil
}
