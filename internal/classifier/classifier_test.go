package classifier

import (
	"errors"
	"reflect"
	"strings"
	"testing"
)

func clf(name string, items ...string) Classifier {
	return Classifier{Name: name, Level: 1, Items: items}
}

// --- BuildPairs ---

func TestBuildPairs_RowMajorOrder(t *testing.T) {
	got := BuildPairs(clf("region", "A", "B"), clf("segment", "X", "Y"))
	want := []Pair{{"A", "X"}, {"A", "Y"}, {"B", "X"}, {"B", "Y"}}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("pairs = %v, want %v", got, want)
	}
}

func TestBuildPairs_EmptySide(t *testing.T) {
	if got := BuildPairs(clf("a"), clf("b", "X")); len(got) != 0 {
		t.Errorf("pairs = %v, want empty", got)
	}
}

// --- Cursor ---

func TestNewCursor_Validation(t *testing.T) {
	if _, err := NewCursor(nil); !errors.Is(err, ErrTooFew) {
		t.Errorf("error = %v, want ErrTooFew", err)
	}
	if _, err := NewCursor([]Classifier{clf("empty")}); !errors.Is(err, ErrNoItems) {
		t.Errorf("error = %v, want ErrNoItems", err)
	}
}

func TestCursor_OdometerOrder(t *testing.T) {
	cur, err := NewCursor([]Classifier{clf("c0", "A", "B"), clf("c1", "X", "Y")})
	if err != nil {
		t.Fatalf("NewCursor: %v", err)
	}
	var got []string
	for {
		got = append(got, strings.Join(cur.Current(), ","))
		if !cur.Advance() {
			break
		}
	}
	want := []string{"A,X", "A,Y", "B,X", "B,Y"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("order = %v, want %v", got, want)
	}
}

func TestCursor_EnumerationComplete(t *testing.T) {
	cur, err := NewCursor([]Classifier{
		clf("c0", "a", "b", "c"),
		clf("c1", "1", "2"),
		clf("c2", "x", "y", "z", "w"),
	})
	if err != nil {
		t.Fatalf("NewCursor: %v", err)
	}
	if cur.Combinations() != 24 {
		t.Fatalf("Combinations = %d, want 24", cur.Combinations())
	}
	seen := make(map[string]struct{})
	count := 0
	for {
		key := strings.Join(cur.Current(), "|")
		if _, dup := seen[key]; dup {
			t.Fatalf("duplicate combination %q", key)
		}
		seen[key] = struct{}{}
		count++
		if !cur.Advance() {
			break
		}
	}
	if count != 24 {
		t.Errorf("enumerated %d combinations, want 24", count)
	}
	// Exhaustion leaves the cursor back at all-zero.
	if got := strings.Join(cur.Current(), "|"); got != "a|1|x" {
		t.Errorf("cursor after exhaustion = %q, want first combination", got)
	}
}

func TestCursor_SingleClassifier(t *testing.T) {
	cur, err := NewCursor([]Classifier{clf("only", "p", "q")})
	if err != nil {
		t.Fatalf("NewCursor: %v", err)
	}
	if got := cur.Current()[0]; got != "p" {
		t.Errorf("first = %q, want p", got)
	}
	if !cur.Advance() {
		t.Fatal("Advance returned false with one combination left")
	}
	if cur.Advance() {
		t.Error("Advance returned true past the end")
	}
}

// --- CombinedName ---

func TestCombinedName_LiteralSeparator(t *testing.T) {
	got := CombinedName([]string{"North", "Retail", "Online"})
	if got != "North / Retail / Online" {
		t.Errorf("name = %q, want %q", got, "North / Retail / Online")
	}
}

// --- Item helpers ---

func TestSplitItems_TrimsAndDropsEmpty(t *testing.T) {
	got := SplitItems(" a, b ,, c ,")
	want := []string{"a", "b", "c"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("items = %v, want %v", got, want)
	}
	if SplitItems(" , ,") != nil {
		t.Error("blank input should yield nil")
	}
}

func TestMergeItems_CaseInsensitiveDedup(t *testing.T) {
	merged, added := MergeItems([]string{"North", "South"}, []string{"south", "East", "", "north", "East"})
	if !reflect.DeepEqual(merged, []string{"North", "South", "East"}) {
		t.Errorf("merged = %v", merged)
	}
	if !reflect.DeepEqual(added, []string{"East"}) {
		t.Errorf("added = %v", added)
	}
}

func TestTotalCombinations_IgnoresEmpty(t *testing.T) {
	clfs := []Classifier{clf("a", "1", "2"), clf("pending"), clf("b", "x", "y", "z")}
	if got := TotalCombinations(clfs); got != 6 {
		t.Errorf("R = %d, want 6", got)
	}
}
