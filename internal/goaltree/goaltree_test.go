package goaltree

import (
	"errors"
	"testing"
)

// newTestTree builds a tree with its own namespace registry.
func newTestTree(t *testing.T, maxLevel int) *Tree {
	t.Helper()
	return New(maxLevel, NewNames())
}

// buildSmallTree returns a tree:
//
//	Increase profit
//	├── Grow sales
//	│   └── Enter new market
//	└── Cut costs
func buildSmallTree(t *testing.T) *Tree {
	t.Helper()
	tree := newTestTree(t, 15)
	root, err := tree.SetRoot("Increase profit")
	if err != nil {
		t.Fatalf("SetRoot: %v", err)
	}
	sales, err := tree.AddChild(root, "Grow sales")
	if err != nil {
		t.Fatalf("AddChild: %v", err)
	}
	if _, err := tree.AddChild(sales, "Enter new market"); err != nil {
		t.Fatalf("AddChild: %v", err)
	}
	if _, err := tree.AddChild(root, "Cut costs"); err != nil {
		t.Fatalf("AddChild: %v", err)
	}
	return tree
}

// --- SetRoot / AddChild ---

func TestSetRoot_CreatesLevelOne(t *testing.T) {
	tree := newTestTree(t, 3)
	root, err := tree.SetRoot("Main goal")
	if err != nil {
		t.Fatalf("SetRoot: %v", err)
	}
	if root.Level != 1 {
		t.Errorf("root level = %d, want 1", root.Level)
	}
	if root.ID != 1 {
		t.Errorf("root id = %d, want 1", root.ID)
	}
	if tree.Root() != root {
		t.Error("Root() does not return the created node")
	}
}

func TestSetRoot_RejectsEmptyAndDuplicate(t *testing.T) {
	tree := newTestTree(t, 3)
	if _, err := tree.SetRoot("  "); !errors.Is(err, ErrEmptyName) {
		t.Errorf("empty name error = %v, want ErrEmptyName", err)
	}
	if _, err := tree.SetRoot("Main"); err != nil {
		t.Fatalf("SetRoot: %v", err)
	}
	tree2 := newTestTree(t, 3)
	tree2.names.Reserve("main")
	if _, err := tree2.SetRoot("MAIN"); !errors.Is(err, ErrDuplicateName) {
		t.Errorf("duplicate error = %v, want ErrDuplicateName", err)
	}
}

func TestAddChild_LevelsFollowParent(t *testing.T) {
	tree := buildSmallTree(t)
	market := tree.FindByName("enter new market")
	if market == nil {
		t.Fatal("case-insensitive FindByName failed")
	}
	if market.Level != 3 {
		t.Errorf("level = %d, want 3", market.Level)
	}
	if market.Parent.Level != market.Level-1 {
		t.Error("level invariant broken")
	}
}

func TestAddChild_DuplicateAcrossNamespace(t *testing.T) {
	tree := newTestTree(t, 3)
	root, _ := tree.SetRoot("Root")
	// A factor name reserved in the shared registry blocks a goal name too.
	tree.names.Reserve("market risk")
	if _, err := tree.AddChild(root, "Market Risk"); !errors.Is(err, ErrDuplicateName) {
		t.Errorf("error = %v, want ErrDuplicateName", err)
	}
}

func TestAddChild_DepthExceeded(t *testing.T) {
	tree := newTestTree(t, 2)
	root, _ := tree.SetRoot("Root")
	child, err := tree.AddChild(root, "Child")
	if err != nil {
		t.Fatalf("AddChild: %v", err)
	}
	if _, err := tree.AddChild(child, "Grandchild"); !errors.Is(err, ErrDepthExceeded) {
		t.Errorf("error = %v, want ErrDepthExceeded", err)
	}
}

// --- Rename ---

func TestRename_FreesOldName(t *testing.T) {
	tree := buildSmallTree(t)
	sales := tree.FindByName("Grow sales")
	if err := tree.Rename(sales, "Boost revenue"); err != nil {
		t.Fatalf("Rename: %v", err)
	}
	if tree.FindByName("Grow sales") != nil {
		t.Error("old name still resolves")
	}
	if tree.FindByName("boost revenue") != sales {
		t.Error("new name does not resolve")
	}
	// Old name is reusable again.
	if _, err := tree.AddChild(tree.Root(), "Grow sales"); err != nil {
		t.Errorf("reuse of freed name: %v", err)
	}
}

func TestRename_DuplicateRejected(t *testing.T) {
	tree := buildSmallTree(t)
	sales := tree.FindByName("Grow sales")
	if err := tree.Rename(sales, "cut COSTS"); !errors.Is(err, ErrDuplicateName) {
		t.Errorf("error = %v, want ErrDuplicateName", err)
	}
	if sales.Name != "Grow sales" {
		t.Error("failed rename mutated the node")
	}
}

func TestRename_CaseOnlyChangeAllowed(t *testing.T) {
	tree := buildSmallTree(t)
	sales := tree.FindByName("Grow sales")
	if err := tree.Rename(sales, "GROW SALES"); err != nil {
		t.Fatalf("Rename: %v", err)
	}
	if sales.Name != "GROW SALES" {
		t.Errorf("name = %q, want GROW SALES", sales.Name)
	}
}

// --- Move ---

func TestMove_RelevelsSubtree(t *testing.T) {
	tree := buildSmallTree(t)
	sales := tree.FindByName("Grow sales")
	costs := tree.FindByName("Cut costs")
	if err := tree.Move(sales, costs); err != nil {
		t.Fatalf("Move: %v", err)
	}
	if sales.Level != 3 {
		t.Errorf("moved node level = %d, want 3", sales.Level)
	}
	market := tree.FindByName("Enter new market")
	if market.Level != 4 {
		t.Errorf("descendant level = %d, want 4", market.Level)
	}
	if sales.Parent != costs {
		t.Error("parent link not updated")
	}
	if len(tree.Root().Children) != 1 {
		t.Errorf("root children = %d, want 1", len(tree.Root().Children))
	}
}

func TestMove_IntoOwnSubtreeRejected(t *testing.T) {
	tree := buildSmallTree(t)
	sales := tree.FindByName("Grow sales")
	market := tree.FindByName("Enter new market")
	if err := tree.Move(sales, market); !errors.Is(err, ErrInvalidMove) {
		t.Errorf("error = %v, want ErrInvalidMove", err)
	}
	if err := tree.Move(sales, sales); !errors.Is(err, ErrInvalidMove) {
		t.Errorf("self move error = %v, want ErrInvalidMove", err)
	}
}

func TestMove_RootRejected(t *testing.T) {
	tree := buildSmallTree(t)
	costs := tree.FindByName("Cut costs")
	if err := tree.Move(tree.Root(), costs); !errors.Is(err, ErrInvalidMove) {
		t.Errorf("error = %v, want ErrInvalidMove", err)
	}
}

func TestMove_DepthExceededRejected(t *testing.T) {
	tree := newTestTree(t, 3)
	root, _ := tree.SetRoot("R")
	a, _ := tree.AddChild(root, "A")
	b, _ := tree.AddChild(a, "B") // level 3
	c, _ := tree.AddChild(root, "C")
	// Moving C (depth 1) under B (level 3) would need level 4.
	if err := tree.Move(c, b); !errors.Is(err, ErrDepthExceeded) {
		t.Errorf("error = %v, want ErrDepthExceeded", err)
	}
}

// --- Delete ---

func TestDelete_FreesSubtreeNames(t *testing.T) {
	tree := buildSmallTree(t)
	sales := tree.FindByName("Grow sales")
	freed, err := tree.Delete(sales)
	if err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if len(freed) != 2 {
		t.Fatalf("freed %d names, want 2", len(freed))
	}
	if freed[0] != "Grow sales" || freed[1] != "Enter new market" {
		t.Errorf("freed = %v, want pre-order subtree names", freed)
	}
	if tree.FindByName("Grow sales") != nil || tree.FindByName("Enter new market") != nil {
		t.Error("deleted names still resolve")
	}
	if !tree.names.Reserve("grow sales") {
		t.Error("deleted name not released from the namespace")
	}
}

func TestDelete_RootRejected(t *testing.T) {
	tree := buildSmallTree(t)
	if _, err := tree.Delete(tree.Root()); !errors.Is(err, ErrRootDeletion) {
		t.Errorf("error = %v, want ErrRootDeletion", err)
	}
}

func TestClear_RemovesEverything(t *testing.T) {
	tree := buildSmallTree(t)
	freed := tree.Clear()
	if len(freed) != 4 {
		t.Errorf("freed %d names, want 4", len(freed))
	}
	if !tree.Empty() {
		t.Error("tree not empty after Clear")
	}
	if len(tree.Serialize()) != 0 {
		t.Error("Serialize not empty after Clear")
	}
}

// --- Lookup / Serialize ---

func TestFindByID_WalkFallbackRepairsIndex(t *testing.T) {
	tree := buildSmallTree(t)
	sales := tree.FindByName("Grow sales")
	oldID := sales.ID
	// Simulate the store rewriting an id behind the index's back.
	sales.ID = 99
	if got := tree.FindByID(99); got != sales {
		t.Fatal("walk fallback did not find renumbered node")
	}
	if got := tree.FindByID(oldID); got == sales {
		t.Error("stale index entry returned the renumbered node")
	}
}

func TestSerialize_PreOrderFlatList(t *testing.T) {
	tree := buildSmallTree(t)
	flat := tree.Serialize()
	want := []string{"Increase profit", "Grow sales", "Enter new market", "Cut costs"}
	if len(flat) != len(want) {
		t.Fatalf("len = %d, want %d", len(flat), len(want))
	}
	for i, name := range want {
		if flat[i].Name != name {
			t.Errorf("flat[%d].Name = %q, want %q", i, flat[i].Name, name)
		}
	}
	if flat[0].ParentID != nil {
		t.Error("root ParentID should be nil")
	}
	if flat[1].ParentID == nil || *flat[1].ParentID != flat[0].ID {
		t.Error("child ParentID should reference root")
	}
}

func TestAdoptIDs_RewritesAndReindexes(t *testing.T) {
	tree := buildSmallTree(t)
	mapping := make(map[int]int)
	for _, n := range tree.Goals() {
		mapping[n.ID] = n.ID + 100
	}
	tree.AdoptIDs(mapping)
	for _, n := range tree.Goals() {
		if n.ID <= 100 {
			t.Errorf("node %q id %d not rewritten", n.Name, n.ID)
		}
		if tree.FindByID(n.ID) != n {
			t.Errorf("index lookup failed for %q after AdoptIDs", n.Name)
		}
	}
	// Fresh ids must not collide with adopted ones.
	child, err := tree.AddChild(tree.Root(), "New child")
	if err != nil {
		t.Fatalf("AddChild: %v", err)
	}
	if _, taken := mapping[child.ID]; child.ID <= 100 {
		_ = taken
		t.Errorf("fresh id %d collides with adopted range", child.ID)
	}
}

func TestLoad_RoundTrip(t *testing.T) {
	tree := buildSmallTree(t)
	flat := tree.Serialize()

	reloaded := newTestTree(t, 15)
	if err := reloaded.Load(flat); err != nil {
		t.Fatalf("Load: %v", err)
	}
	got := reloaded.Serialize()
	if len(got) != len(flat) {
		t.Fatalf("len = %d, want %d", len(got), len(flat))
	}
	for i := range flat {
		if got[i] != flat[i] && (got[i].ParentID == nil) != (flat[i].ParentID == nil) {
			t.Errorf("node %d mismatch after round trip", i)
		}
		if got[i].Name != flat[i].Name || got[i].Level != flat[i].Level || got[i].ID != flat[i].ID {
			t.Errorf("node %d = %+v, want %+v", i, got[i], flat[i])
		}
	}
}
