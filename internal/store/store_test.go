package store_test

import (
	"testing"

	"github.com/planfactor/planfactor/internal/goaltree"
	"github.com/planfactor/planfactor/internal/scoring"
	"github.com/planfactor/planfactor/internal/store"
)

// newTestStore creates a Store backed by a temp directory for isolation.
func newTestStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.New(store.Config{DataDir: t.TempDir()})
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func newTestScheme(t *testing.T, s *store.Store) store.Scheme {
	t.Helper()
	sc, err := s.CreateScheme("Default")
	if err != nil {
		t.Fatalf("failed to create scheme: %v", err)
	}
	return sc
}

func intPtr(v int) *int { return &v }

// ─── Schemes ─────────────────────────────────────────────────────────────────

func TestCreateScheme_AndList(t *testing.T) {
	s := newTestStore(t)
	a, err := s.CreateScheme("First")
	if err != nil {
		t.Fatalf("CreateScheme: %v", err)
	}
	b, err := s.CreateScheme("Second")
	if err != nil {
		t.Fatalf("CreateScheme: %v", err)
	}

	schemes, err := s.ListSchemes()
	if err != nil {
		t.Fatalf("ListSchemes: %v", err)
	}
	if len(schemes) != 2 {
		t.Fatalf("schemes = %d, want 2", len(schemes))
	}
	// Newest first.
	if schemes[0].ID != b.ID || schemes[1].ID != a.ID {
		t.Errorf("order = [%d %d], want [%d %d]", schemes[0].ID, schemes[1].ID, b.ID, a.ID)
	}
	if schemes[0].CreatedAt == "" {
		t.Error("CreatedAt not set")
	}
}

func TestDeleteScheme_CascadesEverything(t *testing.T) {
	s := newTestStore(t)
	sc := newTestScheme(t, s)

	if _, err := s.ReplaceGoals(sc.ID, []goaltree.FlatNode{{ID: 1, Name: "Root", Level: 1}}); err != nil {
		t.Fatalf("ReplaceGoals: %v", err)
	}
	clf, err := s.CreateClassifier(sc.ID, "Region", 1)
	if err != nil {
		t.Fatalf("CreateClassifier: %v", err)
	}
	if err := s.AddClassifierItem(clf.ID, "North"); err != nil {
		t.Fatalf("AddClassifierItem: %v", err)
	}
	if err := s.ReplaceOseResults(sc.ID, []scoring.Row{{Goal: "Root", Factor: "F", H: 0.5}}); err != nil {
		t.Fatalf("ReplaceOseResults: %v", err)
	}

	if err := s.DeleteScheme(sc.ID); err != nil {
		t.Fatalf("DeleteScheme: %v", err)
	}
	goals, err := s.LoadGoals(sc.ID)
	if err != nil {
		t.Fatalf("LoadGoals: %v", err)
	}
	if len(goals) != 0 {
		t.Errorf("goals survived scheme deletion: %v", goals)
	}
	clfs, err := s.ListClassifiers(sc.ID)
	if err != nil {
		t.Fatalf("ListClassifiers: %v", err)
	}
	if len(clfs) != 0 {
		t.Errorf("classifiers survived scheme deletion: %v", clfs)
	}
	results, err := s.LoadOseResults(sc.ID)
	if err != nil {
		t.Fatalf("LoadOseResults: %v", err)
	}
	if len(results) != 0 {
		t.Errorf("results survived scheme deletion: %v", results)
	}
}

// ─── Goals ───────────────────────────────────────────────────────────────────

func TestReplaceGoals_AssignsRowIDs(t *testing.T) {
	s := newTestStore(t)
	sc := newTestScheme(t, s)

	nodes := []goaltree.FlatNode{
		{ID: 10, Name: "Root", Level: 1},
		{ID: 11, Name: "Child A", ParentID: intPtr(10), Level: 2},
		{ID: 12, Name: "Child B", ParentID: intPtr(10), Level: 2},
	}
	mapping, err := s.ReplaceGoals(sc.ID, nodes)
	if err != nil {
		t.Fatalf("ReplaceGoals: %v", err)
	}
	if len(mapping) != 3 {
		t.Fatalf("mapping size = %d, want 3", len(mapping))
	}

	loaded, err := s.LoadGoals(sc.ID)
	if err != nil {
		t.Fatalf("LoadGoals: %v", err)
	}
	if len(loaded) != 3 {
		t.Fatalf("loaded = %d, want 3", len(loaded))
	}
	if loaded[0].Name != "Root" || loaded[0].ParentID != nil {
		t.Errorf("first loaded node = %+v, want root", loaded[0])
	}
	if loaded[1].ParentID == nil || *loaded[1].ParentID != mapping[10] {
		t.Errorf("child parent id = %v, want %d", loaded[1].ParentID, mapping[10])
	}
}

func TestReplaceGoals_FullReplace(t *testing.T) {
	s := newTestStore(t)
	sc := newTestScheme(t, s)

	if _, err := s.ReplaceGoals(sc.ID, []goaltree.FlatNode{{ID: 1, Name: "Old root", Level: 1}}); err != nil {
		t.Fatalf("ReplaceGoals: %v", err)
	}
	if _, err := s.ReplaceGoals(sc.ID, []goaltree.FlatNode{{ID: 1, Name: "New root", Level: 1}}); err != nil {
		t.Fatalf("ReplaceGoals: %v", err)
	}
	loaded, err := s.LoadGoals(sc.ID)
	if err != nil {
		t.Fatalf("LoadGoals: %v", err)
	}
	if len(loaded) != 1 || loaded[0].Name != "New root" {
		t.Errorf("loaded = %+v, want only the new root", loaded)
	}
}

func TestReplaceGoals_UnknownParentRejected(t *testing.T) {
	s := newTestStore(t)
	sc := newTestScheme(t, s)
	_, err := s.ReplaceGoals(sc.ID, []goaltree.FlatNode{
		{ID: 2, Name: "Orphan", ParentID: intPtr(1), Level: 2},
	})
	if err == nil {
		t.Fatal("ReplaceGoals accepted a child before its parent")
	}
}

// ─── Classifiers ─────────────────────────────────────────────────────────────

func TestClassifiers_CreateGetDelete(t *testing.T) {
	s := newTestStore(t)
	sc := newTestScheme(t, s)

	clf, err := s.CreateClassifier(sc.ID, "Region", 2)
	if err != nil {
		t.Fatalf("CreateClassifier: %v", err)
	}
	for _, v := range []string{"North", "South", "North"} { // dup ignored
		if err := s.AddClassifierItem(clf.ID, v); err != nil {
			t.Fatalf("AddClassifierItem: %v", err)
		}
	}

	got, err := s.GetClassifierWithItems(sc.ID, "region", 2)
	if err != nil {
		t.Fatalf("GetClassifierWithItems: %v", err)
	}
	if got == nil {
		t.Fatal("classifier not found by case-insensitive name")
	}
	if len(got.Items) != 2 || got.Items[0] != "North" || got.Items[1] != "South" {
		t.Errorf("items = %v, want [North South]", got.Items)
	}

	// Any-level lookup.
	anyLevel, err := s.GetClassifierWithItems(sc.ID, "Region", 0)
	if err != nil {
		t.Fatalf("GetClassifierWithItems(level 0): %v", err)
	}
	if anyLevel == nil || anyLevel.ID != clf.ID {
		t.Error("any-level lookup failed")
	}

	if err := s.DeleteClassifier(sc.ID, "REGION"); err != nil {
		t.Fatalf("DeleteClassifier: %v", err)
	}
	gone, err := s.GetClassifierWithItems(sc.ID, "Region", 0)
	if err != nil {
		t.Fatalf("GetClassifierWithItems: %v", err)
	}
	if gone != nil {
		t.Error("classifier still present after delete")
	}
}

func TestGetClassifierWithItems_MissingIsNil(t *testing.T) {
	s := newTestStore(t)
	sc := newTestScheme(t, s)
	got, err := s.GetClassifierWithItems(sc.ID, "Nope", 1)
	if err != nil {
		t.Fatalf("GetClassifierWithItems: %v", err)
	}
	if got != nil {
		t.Errorf("got %+v, want nil", got)
	}
}

// ─── Evaluation results ──────────────────────────────────────────────────────

func TestReplaceOseResults_RoundTrip(t *testing.T) {
	s := newTestStore(t)
	sc := newTestScheme(t, s)

	p, q := 0.5, 0.8
	in := []scoring.Row{
		{Goal: "Grow sales", Factor: "Market risk", P: &p, Q: &q, H: 0.5545},
		{Goal: "Grow sales", Factor: scoring.SummaryGoal, H: 0.5545}, // p/q NULL
	}
	if err := s.ReplaceOseResults(sc.ID, in); err != nil {
		t.Fatalf("ReplaceOseResults: %v", err)
	}

	out, err := s.LoadOseResults(sc.ID)
	if err != nil {
		t.Fatalf("LoadOseResults: %v", err)
	}
	if len(out) != 2 {
		t.Fatalf("rows = %d, want 2", len(out))
	}
	if out[0].P == nil || *out[0].P != 0.5 || out[0].H != 0.5545 {
		t.Errorf("base row = %+v", out[0])
	}
	if out[1].P != nil || out[1].Q != nil {
		t.Errorf("summary row p/q should be NULL: %+v", out[1])
	}

	// Replace wipes prior rows.
	if err := s.ReplaceOseResults(sc.ID, nil); err != nil {
		t.Fatalf("ReplaceOseResults(nil): %v", err)
	}
	out, err = s.LoadOseResults(sc.ID)
	if err != nil {
		t.Fatalf("LoadOseResults: %v", err)
	}
	if len(out) != 0 {
		t.Errorf("rows after empty replace = %d, want 0", len(out))
	}
}
