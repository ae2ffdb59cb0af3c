package command

import (
	"reflect"
	"testing"
)

func TestParse_Patterns(t *testing.T) {
	tests := []struct {
		name string
		text string
		kind Kind
		args []string
	}{
		{"rename goal quoted", `rename goal "Grow sales" to "Boost revenue"`, RenameGoal, []string{"Grow sales", "Boost revenue"}},
		{"rename goal bare", `rename goal Grow sales to Boost revenue`, RenameGoal, []string{"Grow sales", "Boost revenue"}},
		{"rename goal one-arg starts wizard", `rename goal "Grow sales"`, RenameGoalWizard, []string{"Grow sales"}},
		{"rename factor", `rename factor "Market risk" to "Competition"`, RenameFactor, []string{"Market risk", "Competition"}},
		{"delete goal", `delete goal "Cut costs"`, DeleteGoal, []string{"Cut costs"}},
		{"delete factor", `DELETE FACTOR Inflation`, DeleteFactor, []string{"Inflation"}},
		{"generic delete", `delete "Something"`, DeleteAny, []string{"Something"}},
		{"move goal", `move goal "A" under "B"`, MoveGoal, []string{"A", "B"}},
		{"add goal under", `add goal "New" under "Root"`, AddGoalUnder, []string{"New", "Root"}},
		{"add goal wizard", `add goal "New"`, AddGoal, []string{"New"}},
		{"add factor", `add factor "Market risk"`, AddFactor, []string{"Market risk"}},
		{"show classifiers", `show classifiers`, ShowClassifiers, nil},
		{"list classifiers", `list classifiers`, ShowClassifiers, nil},
		{"add classifier", `add classifier "Region"`, AddClassifier, []string{"Region"}},
		{"add classifier item", `add item "North" to classifier "Region"`, AddClassifierItem, []string{"North", "Region"}},
		{"delete classifier", `delete classifier "Region"`, DeleteClassifier, []string{"Region"}},
		{"start classifiers", `start classifiers for goal "Grow sales"`, StartClassifiers, []string{"Grow sales"}},
		{"use classifiers", `use classifiers "Region" and "Segment"`, UseClassifiers, []string{"Region", "Segment"}},
		{"next combination", `next combination`, NextCombination, nil},
		{"next shorthand", `next`, NextCombination, nil},
		{"stop classifiers", `stop classifiers`, StopClassifiers, nil},
		{"help", `help`, Help, nil},
		{"skip", `skip`, Skip, nil},
		{"finish", `Finish`, Finish, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd, ok := Parse(tt.text)
			if !ok {
				t.Fatalf("Parse(%q) did not match", tt.text)
			}
			if cmd.Kind != tt.kind {
				t.Errorf("kind = %s, want %s", cmd.Kind, tt.kind)
			}
			if !reflect.DeepEqual(cmd.Args, tt.args) {
				t.Errorf("args = %v, want %v", cmd.Args, tt.args)
			}
		})
	}
}

func TestParse_FirstMatchWins(t *testing.T) {
	// "delete goal X" must hit the goal-specific pattern, not the
	// generic delete fallback.
	cmd, ok := Parse(`delete goal Risky bet`)
	if !ok || cmd.Kind != DeleteGoal {
		t.Errorf("kind = %v, want DeleteGoal", cmd.Kind)
	}
	// "add goal X under Y" must not be swallowed by the bare add-goal form.
	cmd, ok = Parse(`add goal X under Y`)
	if !ok || cmd.Kind != AddGoalUnder {
		t.Errorf("kind = %v, want AddGoalUnder", cmd.Kind)
	}
	if !reflect.DeepEqual(cmd.Args, []string{"X", "Y"}) {
		t.Errorf("args = %v, want [X Y]", cmd.Args)
	}
}

func TestParse_NonCommandsFallThrough(t *testing.T) {
	for _, text := range []string{
		"", "   ",
		"yes", "no",
		"Increase profit",
		"0.5",
		"rename", // incomplete
		"delete", // no argument
	} {
		if cmd, ok := Parse(text); ok {
			t.Errorf("Parse(%q) matched %s, want fall-through", text, cmd.Kind)
		}
	}
}

func TestParse_QuotedKeepsKeywords(t *testing.T) {
	// A quoted name containing " to " must not split the rename args.
	cmd, ok := Parse(`rename goal "Go to market" to "Launch"`)
	if !ok || cmd.Kind != RenameGoal {
		t.Fatalf("Parse failed: %v", cmd.Kind)
	}
	if !reflect.DeepEqual(cmd.Args, []string{"Go to market", "Launch"}) {
		t.Errorf("args = %v", cmd.Args)
	}
}
