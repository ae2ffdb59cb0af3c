package dialog

import (
	"fmt"
	"strings"

	"github.com/planfactor/planfactor/internal/classifier"
)

// treeHandlers routes tree-phase states. Handler tables keep the phase
// topology in one place instead of a switch per state.
var treeHandlers = map[State]func(*Engine, *Session, string) Envelope{
	StateAskRoot:        (*Engine).handleAskRoot,
	StateAskAddSubgoal:  (*Engine).handleAskAddSubgoal,
	StateAskSubgoalName: (*Engine).handleAskSubgoalName,
	StateClfName:        (*Engine).handleClfName,
	StateClfItems:       (*Engine).handleClfItems,
	StateClfMore:        (*Engine).handleClfMore,
	StateClfParentGoal:  (*Engine).handleClfParentGoal,
	StateClfComboDecide: (*Engine).handleClfComboDecide,
}

func (e *Engine) handleTreePhase(s *Session, text string) Envelope {
	h, ok := treeHandlers[s.State]
	if !ok {
		return e.unknownState(s)
	}
	return h(e, s, text)
}

// ─── Tree building ───────────────────────────────────────────────────────────

func (e *Engine) handleAskRoot(s *Session, text string) Envelope {
	if text == "" {
		return s.envelope("Enter the main goal:")
	}
	if s.Names.Has(text) {
		return s.envelope("That name is already taken. Enter a different main goal:")
	}
	root, err := s.Tree.SetRoot(text)
	if err != nil {
		return s.envelope("Enter the main goal:")
	}
	s.current = root
	s.State = StateAskAddSubgoal
	e.persistTree(s)
	return s.envelope(askSubgoalQuestion(root.Name) +
		"\nWhen the tree is detailed enough, answer 'no' to move on to classifiers.")
}

func (e *Engine) handleAskAddSubgoal(s *Session, text string) Envelope {
	if isYes(text) {
		if s.current.Level >= s.Tree.MaxLevel() {
			return s.envelope(fmt.Sprintf(
				"Maximum depth (%d) reached; '%s' cannot take a subgoal. Answer 'no' to go back up.",
				s.Tree.MaxLevel(), s.current.Name))
		}
		s.State = StateAskSubgoalName
		return s.envelope("Enter a subgoal name for '" + s.current.Name + "':")
	}

	// Any non-affirmative answer walks back towards the root.
	if s.current.Parent != nil {
		s.current = s.current.Parent
		return s.envelope(askSubgoalQuestion(s.current.Name))
	}

	// Back at the root: offer classifiers once, then move to scoring.
	if !s.clfDone {
		return e.initClassifiers(s)
	}
	return e.startScoring(s)
}

func (e *Engine) handleAskSubgoalName(s *Session, text string) Envelope {
	if text == "" {
		return s.envelope("The name must not be empty. Enter a subgoal name:")
	}
	if s.Names.Has(text) {
		return s.envelope("That name is already in use. Enter a different subgoal name:")
	}
	child, err := s.Tree.AddChild(s.current, text)
	if err != nil {
		// Depth race only possible via interleaved edit commands.
		s.State = StateAskAddSubgoal
		return s.envelope("Could not add the subgoal. " + askSubgoalQuestion(s.current.Name))
	}
	s.current = child
	s.State = StateAskAddSubgoal
	e.persistTree(s)
	return s.envelope(askSubgoalQuestion(child.Name))
}

// ─── Classifier sub-flow ─────────────────────────────────────────────────────

func (e *Engine) initClassifiers(s *Session) Envelope {
	s.State = StateClfName
	s.clfs = nil
	s.clfName = ""
	s.clfParent = nil
	s.cursor = nil
	s.clfLevel = 1
	return s.envelope("Enter a classifier name (a structuring facet), or 'skip' to go straight to factor scoring.")
}

func (e *Engine) handleClfName(s *Session, text string) Envelope {
	if text == "" {
		return s.envelope("Enter a classifier name:")
	}
	s.clfName = text
	s.State = StateClfItems
	return s.envelope(fmt.Sprintf("Classifier = '%s'.\nEnter its items, comma-separated:", s.clfName))
}

func (e *Engine) handleClfItems(s *Session, text string) Envelope {
	values := classifier.SplitItems(text)
	if len(values) == 0 {
		return s.envelope("Enter at least one item, comma-separated:")
	}

	items := e.storeClassifierItems(s, s.clfName, s.clfLevel, values)

	s.clfs = append(s.clfs, classifier.Classifier{
		Name:  s.clfName,
		Level: s.clfLevel,
		Items: items,
	})
	s.clfName = ""
	s.State = StateClfMore

	r := classifier.TotalCombinations(s.clfs)
	return s.envelope(fmt.Sprintf(
		"Classifier added. Current combination count R = %d.\nAdd another classifier? (yes/no)", r))
}

// storeClassifierItems persists new items for a (name, level) classifier
// and returns the merged item list. Without a store the merge is purely
// in-memory.
func (e *Engine) storeClassifierItems(s *Session, name string, level int, values []string) []string {
	if e.store == nil || s.SchemeID == 0 {
		merged, _ := classifier.MergeItems(nil, values)
		return merged
	}

	clf, err := e.store.GetClassifierWithItems(s.SchemeID, name, level)
	if err != nil {
		e.warn(s, "could not look up the classifier", err)
		merged, _ := classifier.MergeItems(nil, values)
		return merged
	}
	if clf == nil {
		created, err := e.store.CreateClassifier(s.SchemeID, name, level)
		if err != nil {
			e.warn(s, "could not create the classifier", err)
			merged, _ := classifier.MergeItems(nil, values)
			return merged
		}
		clf = &created
	}

	merged, added := classifier.MergeItems(clf.Items, values)
	for _, v := range added {
		if err := e.store.AddClassifierItem(clf.ID, v); err != nil {
			e.warn(s, "could not save a classifier item", err)
		}
	}
	return merged
}

func (e *Engine) handleClfMore(s *Session, text string) Envelope {
	if isYes(text) {
		if len(s.clfs) >= e.cfg.MaxClassifiers {
			return e.askStructuringParent(s, fmt.Sprintf("Limit of %d classifiers reached. ", e.cfg.MaxClassifiers))
		}
		s.clfLevel++
		s.State = StateClfName
		return s.envelope("Enter the next classifier name:")
	}

	if len(s.clfs) < 2 {
		s.State = StateClfName
		return s.envelope("At least 2 classifiers are needed. Enter the next classifier name:")
	}
	return e.askStructuringParent(s, "")
}

// askStructuringParent asks which goal the combinations should hang
// under, unless the parent was already chosen up front.
func (e *Engine) askStructuringParent(s *Session, prefix string) Envelope {
	if s.clfParent != nil {
		return e.handleClfParentGoal(s, s.clfParent.Name)
	}
	s.State = StateClfParentGoal
	return s.envelope(prefix + "Enter the parent goal for structuring (name or id):")
}

func (e *Engine) handleClfParentGoal(s *Session, text string) Envelope {
	parent := s.findGoal(text)
	if parent == nil {
		return s.envelope("Goal not found. Enter the goal name exactly as in the tree:")
	}
	cursor, err := classifier.NewCursor(s.clfs)
	if err != nil {
		s.State = StateClfName
		return s.envelope("The classifiers have no items to combine. Enter a classifier name:")
	}
	s.clfParent = parent
	s.cursor = cursor
	s.State = StateClfComboDecide
	return s.envelope(comboQuestion(cursor))
}

func (e *Engine) handleClfComboDecide(s *Session, text string) Envelope {
	if !isYes(text) && !isNo(text) {
		return s.envelope(comboQuestion(s.cursor))
	}

	if isYes(text) && s.clfParent != nil {
		name := classifier.CombinedName(s.cursor.Current())
		// Duplicate names and depth overflows during a bulk walk are
		// tolerated, not fatal: the combination is silently skipped.
		if s.clfParent.Level < s.Tree.MaxLevel() && !s.Names.Has(name) {
			if _, err := s.Tree.AddChild(s.clfParent, name); err == nil {
				e.persistTree(s)
			}
		}
	}

	if !s.cursor.Advance() {
		s.clfDone = true
		s.clfParent = nil
		s.cursor = nil
		return e.startScoring(s)
	}
	return s.envelope(comboQuestion(s.cursor))
}

func comboQuestion(c *classifier.Cursor) string {
	return fmt.Sprintf("Include combination ⟨%s⟩ as a subgoal? (yes/no)",
		strings.Join(c.Current(), classifier.Separator))
}
