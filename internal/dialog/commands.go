package dialog

import (
	"fmt"
	"strings"

	"github.com/planfactor/planfactor/internal/classifier"
	"github.com/planfactor/planfactor/internal/command"
	"github.com/planfactor/planfactor/internal/goaltree"
)

// execCommand applies a parsed free-text command against the session,
// then re-issues the prompt for whatever state the dialog is left in.
func (e *Engine) execCommand(s *Session, cmd command.Command) Envelope {
	switch cmd.Kind {
	case command.RenameGoal:
		return e.cmdRenameGoal(s, cmd.Args[0], cmd.Args[1])
	case command.RenameGoalWizard:
		return e.cmdRenameGoalWizard(s, cmd.Args[0])
	case command.RenameFactor:
		return e.cmdRenameFactor(s, cmd.Args[0], cmd.Args[1])
	case command.DeleteGoal:
		return e.cmdDeleteGoal(s, cmd.Args[0])
	case command.DeleteFactor:
		return e.cmdDeleteFactor(s, cmd.Args[0])
	case command.DeleteAny:
		if s.findGoal(cmd.Args[0]) != nil {
			return e.cmdDeleteGoal(s, cmd.Args[0])
		}
		if s.hasFactor(cmd.Args[0]) {
			return e.cmdDeleteFactor(s, cmd.Args[0])
		}
		return e.cmdResult(s, fmt.Sprintf("No goal or factor named '%s'.", cmd.Args[0]))
	case command.MoveGoal:
		return e.cmdMoveGoal(s, cmd.Args[0], cmd.Args[1])
	case command.AddGoalUnder:
		return e.cmdAddGoalUnder(s, cmd.Args[0], cmd.Args[1])
	case command.AddGoal:
		return e.cmdAddGoal(s, cmd.Args[0])
	case command.AddFactor:
		return e.cmdAddFactor(s, cmd.Args[0])
	case command.ShowClassifiers:
		return e.cmdShowClassifiers(s)
	case command.AddClassifier:
		return e.cmdAddClassifier(s, cmd.Args[0])
	case command.AddClassifierItem:
		return e.cmdAddClassifierItem(s, cmd.Args[0], cmd.Args[1])
	case command.DeleteClassifier:
		return e.cmdDeleteClassifier(s, cmd.Args[0])
	case command.StartClassifiers:
		return e.cmdStartClassifiers(s, cmd.Args[0])
	case command.UseClassifiers:
		return e.cmdUseClassifiers(s, cmd.Args[0], cmd.Args[1])
	case command.NextCombination, command.Skip:
		return e.cmdAdvanceCombination(s, cmd.Kind == command.Skip)
	case command.StopClassifiers:
		return e.cmdStopClassifiers(s)
	case command.Help:
		return s.envelope(helpText + "\n\n" + promptFor(s))
	case command.Finish:
		return e.finishScoring(s)
	}
	return s.envelope(promptFor(s))
}

// cmdResult wraps a command outcome together with the resumed prompt.
func (e *Engine) cmdResult(s *Session, result string) Envelope {
	return s.envelope(result + "\n\n" + promptFor(s))
}

// promptFor rebuilds the canonical question for the session's current
// state, so a command turn can hand control back to the interrupted flow.
func promptFor(s *Session) string {
	switch s.State {
	case StateAskRoot:
		return "Enter the main goal:"
	case StateAskAddSubgoal:
		if s.current != nil {
			return askSubgoalQuestion(s.current.Name)
		}
		return "Enter the main goal:"
	case StateAskSubgoalName:
		return "Enter a subgoal name for '" + s.current.Name + "':"
	case StateClfName:
		return "Enter a classifier name:"
	case StateClfItems:
		return fmt.Sprintf("Enter items for classifier '%s', comma-separated:", s.clfName)
	case StateClfMore:
		return "Add another classifier? (yes/no)"
	case StateClfParentGoal:
		return "Enter the parent goal for structuring (name or id):"
	case StateClfComboDecide:
		if s.cursor != nil {
			return comboQuestion(s.cursor)
		}
		return "Enter the parent goal for structuring (name or id):"
	case StateAskFactorName:
		return "Enter a factor name:"
	case StateAskGoal:
		return "Enter the goal to evaluate this factor against (name or id):"
	case StateAskP:
		return fmt.Sprintf("Enter p (0..1) for goal '%s':", s.oseGoal.Name)
	case StateAskQ:
		return fmt.Sprintf("Enter q (0..1) for goal '%s':", s.oseGoal.Name)
	case StateAskMoreGoal:
		return "Evaluate this factor for another goal? (yes/no)"
	case StateFinished:
		return "Factor evaluation complete."
	}
	return "Continue."
}

// ─── Goal commands ───────────────────────────────────────────────────────────

func (e *Engine) cmdRenameGoal(s *Session, oldName, newName string) Envelope {
	node := s.findGoal(oldName)
	if node == nil {
		return e.cmdResult(s, fmt.Sprintf("Goal '%s' not found.", oldName))
	}
	if err := s.Tree.Rename(node, newName); err != nil {
		return e.cmdResult(s, "Could not rename: "+renameFailure(err))
	}
	s.Scores.RenameGoal(oldName, newName)
	s.Scores.Recompute(s.Tree)
	e.persistTree(s)
	e.persistResults(s)
	return e.cmdResult(s, fmt.Sprintf("Renamed goal '%s' to '%s'.", oldName, newName))
}

func (e *Engine) cmdRenameGoalWizard(s *Session, name string) Envelope {
	node := s.findGoal(name)
	if node == nil {
		return e.cmdResult(s, fmt.Sprintf("Goal '%s' not found.", name))
	}
	s.saveWizardReturn()
	s.wizGoal = node
	s.State = StateEditRenameGoal
	return s.envelope(fmt.Sprintf("Enter the new name for goal '%s':", node.Name))
}

func (e *Engine) cmdRenameFactor(s *Session, oldName, newName string) Envelope {
	if !s.hasFactor(oldName) {
		return e.cmdResult(s, fmt.Sprintf("Factor '%s' not found.", oldName))
	}
	if !strings.EqualFold(oldName, newName) && s.Names.Has(newName) {
		return e.cmdResult(s, fmt.Sprintf("The name '%s' is already taken.", newName))
	}
	s.dropFactor(oldName)
	s.registerFactor(newName)
	s.Scores.RenameFactor(oldName, newName)
	if strings.EqualFold(s.factorName, oldName) {
		s.factorName = newName
	}
	e.persistResults(s)
	return e.cmdResult(s, fmt.Sprintf("Renamed factor '%s' to '%s'.", oldName, newName))
}

func (e *Engine) cmdDeleteGoal(s *Session, name string) Envelope {
	node := s.findGoal(name)
	if node == nil {
		return e.cmdResult(s, fmt.Sprintf("Goal '%s' not found.", name))
	}

	// Deleting the root is a full reset of the tree and its evaluations.
	if node.Parent == nil {
		for _, n := range s.Tree.Clear() {
			s.Scores.PurgeGoal(n)
		}
		s.Scores.Recompute(s.Tree)
		s.current = nil
		s.oseGoal = nil
		s.clfParent = nil
		s.cursor = nil
		if e.store != nil && s.SchemeID != 0 {
			if _, err := e.store.ReplaceGoals(s.SchemeID, nil); err != nil {
				e.warn(s, "could not save the goal tree", err)
			}
		}
		e.persistResults(s)
		s.Phase = PhaseTree
		s.State = StateAskRoot
		return e.cmdResult(s, "Deleted the root goal; the whole tree and its evaluations are gone.")
	}

	parent := node.Parent
	freed, err := s.Tree.Delete(node)
	if err != nil {
		return e.cmdResult(s, "Could not delete the goal.")
	}
	for _, n := range freed {
		s.Scores.PurgeGoal(n)
	}
	s.Scores.Recompute(s.Tree)

	// Repoint cursors that lived inside the deleted subtree.
	if s.current != nil && s.Tree.FindByID(s.current.ID) == nil {
		s.current = parent
	}
	if s.oseGoal != nil && s.Tree.FindByID(s.oseGoal.ID) == nil {
		s.oseGoal = nil
		if s.State == StateAskP || s.State == StateAskQ {
			s.State = StateAskGoal
		}
	}
	if s.clfParent != nil && s.Tree.FindByID(s.clfParent.ID) == nil {
		s.clfParent = parent
	}

	e.persistTree(s)
	e.persistResults(s)
	return e.cmdResult(s, fmt.Sprintf("Deleted goal '%s' and its subtree.", node.Name))
}

func (e *Engine) cmdDeleteFactor(s *Session, name string) Envelope {
	if !s.hasFactor(name) {
		return e.cmdResult(s, fmt.Sprintf("Factor '%s' not found.", name))
	}
	s.dropFactor(name)
	s.Scores.PurgeFactor(name)
	s.Scores.Recompute(s.Tree)
	if strings.EqualFold(s.factorName, name) {
		s.factorName = ""
		if s.Phase == PhaseScoring && s.State != StateFinished {
			s.State = StateAskFactorName
		}
	}
	e.persistResults(s)
	return e.cmdResult(s, fmt.Sprintf("Deleted factor '%s'.", name))
}

func (e *Engine) cmdMoveGoal(s *Session, name, destName string) Envelope {
	node := s.findGoal(name)
	if node == nil {
		return e.cmdResult(s, fmt.Sprintf("Goal '%s' not found.", name))
	}
	dest := s.findGoal(destName)
	if dest == nil {
		return e.cmdResult(s, fmt.Sprintf("Goal '%s' not found.", destName))
	}
	if err := s.Tree.Move(node, dest); err != nil {
		return e.cmdResult(s, "Could not move: "+moveFailure(err))
	}
	s.Scores.Recompute(s.Tree)
	e.persistTree(s)
	e.persistResults(s)
	return e.cmdResult(s, fmt.Sprintf("Moved goal '%s' under '%s'.", node.Name, dest.Name))
}

func (e *Engine) cmdAddGoalUnder(s *Session, name, parentName string) Envelope {
	parent := s.findGoal(parentName)
	if parent == nil {
		return e.cmdResult(s, fmt.Sprintf("Goal '%s' not found.", parentName))
	}
	child, err := s.Tree.AddChild(parent, name)
	if err != nil {
		return e.cmdResult(s, "Could not add the goal: "+addFailure(err))
	}
	e.persistTree(s)
	return e.startGoalEvaluation(s, child,
		fmt.Sprintf("Added goal '%s' under '%s'.", child.Name, parent.Name))
}

func (e *Engine) cmdAddGoal(s *Session, name string) Envelope {
	if s.Tree.Empty() {
		return e.cmdResult(s, "Build the main goal first.")
	}
	if s.Names.Has(name) {
		return e.cmdResult(s, fmt.Sprintf("The name '%s' is already taken.", name))
	}
	s.saveWizardReturn()
	s.wizGoalName = name
	s.State = StateEditAddGoalParent
	return s.envelope(fmt.Sprintf("Under which goal should '%s' be added? (name or id)", name))
}

// startGoalEvaluation walks every known factor over a freshly added goal.
// Without factors the command completes immediately.
func (e *Engine) startGoalEvaluation(s *Session, goal *goaltree.Node, added string) Envelope {
	if len(s.factorOrder) == 0 {
		return e.cmdResult(s, added)
	}
	if !isEditState(s.State) {
		s.saveWizardReturn()
	}
	s.wizGoal = goal
	s.wizFactors = append([]string(nil), s.factorOrder...)
	s.wizIdx = 0
	s.State = StateEditAddGoalP
	return s.envelope(added + "\n\n" + wizardPPrompt(s.wizFactors[0], goal.Name))
}

func (e *Engine) cmdAddFactor(s *Session, name string) Envelope {
	if s.Names.Has(name) {
		return e.cmdResult(s, fmt.Sprintf("The name '%s' is already taken.", name))
	}
	s.registerFactor(name)
	goals := s.Tree.Goals()
	if len(goals) == 0 {
		return e.cmdResult(s, fmt.Sprintf("Added factor '%s'. There are no goals to evaluate yet.", name))
	}
	s.saveWizardReturn()
	s.wizFactors = []string{name}
	s.wizGoals = goals
	s.wizIdx = 0
	s.State = StateEditFactorP
	return s.envelope(fmt.Sprintf("Added factor '%s'. It will now be evaluated for every goal.\n\n%s",
		name, wizardPPrompt(name, goals[0].Name)))
}

// ─── Classifier commands ─────────────────────────────────────────────────────

func (e *Engine) cmdShowClassifiers(s *Session) Envelope {
	if e.store == nil || s.SchemeID == 0 {
		return e.cmdResult(s, "No active scheme; classifiers are not stored.")
	}
	list, err := e.store.ListClassifiers(s.SchemeID)
	if err != nil {
		e.warn(s, "could not list classifiers", err)
		return e.cmdResult(s, "Could not read the stored classifiers.")
	}
	if len(list) == 0 {
		return e.cmdResult(s, "No classifiers stored for this scheme.")
	}
	var b strings.Builder
	b.WriteString("Classifiers:")
	for _, c := range list {
		full, err := e.store.GetClassifierWithItems(s.SchemeID, c.Name, c.Level)
		items := "(no items)"
		if err == nil && full != nil && len(full.Items) > 0 {
			items = strings.Join(full.Items, ", ")
		}
		fmt.Fprintf(&b, "\n- %s (level %d): %s", c.Name, c.Level, items)
	}
	return e.cmdResult(s, b.String())
}

func (e *Engine) cmdAddClassifier(s *Session, name string) Envelope {
	if e.store == nil || s.SchemeID == 0 {
		return e.cmdResult(s, "No active scheme; classifiers are not stored.")
	}
	if _, err := e.store.CreateClassifier(s.SchemeID, name, 0); err != nil {
		e.warn(s, "could not create the classifier", err)
		return e.cmdResult(s, "Could not create the classifier.")
	}
	return e.cmdResult(s, fmt.Sprintf("Added classifier '%s'.", name))
}

func (e *Engine) cmdAddClassifierItem(s *Session, item, clfName string) Envelope {
	if e.store == nil || s.SchemeID == 0 {
		return e.cmdResult(s, "No active scheme; classifiers are not stored.")
	}
	clf, err := e.store.GetClassifierWithItems(s.SchemeID, clfName, 0)
	if err != nil {
		e.warn(s, "could not look up the classifier", err)
		return e.cmdResult(s, "Could not look up the classifier.")
	}
	if clf == nil {
		created, err := e.store.CreateClassifier(s.SchemeID, clfName, 0)
		if err != nil {
			e.warn(s, "could not create the classifier", err)
			return e.cmdResult(s, "Could not create the classifier.")
		}
		clf = &created
	}
	if err := e.store.AddClassifierItem(clf.ID, item); err != nil {
		e.warn(s, "could not save a classifier item", err)
		return e.cmdResult(s, "Could not save the item.")
	}
	return e.cmdResult(s, fmt.Sprintf("Added item '%s' to classifier '%s'.", item, clf.Name))
}

func (e *Engine) cmdDeleteClassifier(s *Session, name string) Envelope {
	if e.store == nil || s.SchemeID == 0 {
		return e.cmdResult(s, "No active scheme; classifiers are not stored.")
	}
	if err := e.store.DeleteClassifier(s.SchemeID, name); err != nil {
		e.warn(s, "could not delete the classifier", err)
		return e.cmdResult(s, "Could not delete the classifier.")
	}
	return e.cmdResult(s, fmt.Sprintf("Deleted classifier '%s'.", name))
}

func (e *Engine) cmdStartClassifiers(s *Session, goalName string) Envelope {
	parent := s.findGoal(goalName)
	if parent == nil {
		return e.cmdResult(s, fmt.Sprintf("Goal '%s' not found.", goalName))
	}
	s.Phase = PhaseTree
	env := e.initClassifiers(s)
	s.clfParent = parent
	return env
}

func (e *Engine) cmdUseClassifiers(s *Session, nameA, nameB string) Envelope {
	if e.store == nil || s.SchemeID == 0 {
		return e.cmdResult(s, "No active scheme; classifiers are not stored.")
	}
	parent := s.clfParent
	if parent == nil {
		parent = s.current
	}
	if parent == nil {
		parent = s.Tree.Root()
	}
	if parent == nil {
		return e.cmdResult(s, "Build the goal tree first.")
	}

	var clfs []classifier.Classifier
	for _, name := range []string{nameA, nameB} {
		full, err := e.store.GetClassifierWithItems(s.SchemeID, name, 0)
		if err != nil {
			e.warn(s, "could not look up the classifier", err)
			return e.cmdResult(s, "Could not look up the classifiers.")
		}
		if full == nil {
			return e.cmdResult(s, fmt.Sprintf("Classifier '%s' not found.", name))
		}
		clfs = append(clfs, classifier.Classifier{Name: full.Name, Level: full.Level, Items: full.Items})
	}

	cursor, err := classifier.NewCursor(clfs)
	if err != nil {
		return e.cmdResult(s, "Those classifiers have no items to combine.")
	}
	s.Phase = PhaseTree
	s.clfs = clfs
	s.clfParent = parent
	s.cursor = cursor
	s.State = StateClfComboDecide
	return s.envelope(fmt.Sprintf("Structuring '%s' with classifiers '%s' and '%s'.\n%s",
		parent.Name, nameA, nameB, comboQuestion(cursor)))
}

// cmdAdvanceCombination serves both 'next' and 'skip'. Outside the
// combination walk, 'skip' leaves the classifier sub-flow entirely.
func (e *Engine) cmdAdvanceCombination(s *Session, isSkip bool) Envelope {
	if s.State == StateClfComboDecide && s.cursor != nil {
		if !s.cursor.Advance() {
			s.clfDone = true
			s.clfParent = nil
			s.cursor = nil
			return e.startScoring(s)
		}
		return s.envelope(comboQuestion(s.cursor))
	}
	if isSkip && isClassifierState(s.State) {
		s.clfDone = true
		s.clfs = nil
		s.clfParent = nil
		s.cursor = nil
		return e.startScoring(s)
	}
	return e.cmdResult(s, "Nothing to skip here.")
}

func (e *Engine) cmdStopClassifiers(s *Session) Envelope {
	inFlow := isClassifierState(s.State)
	s.clfs = nil
	s.clfName = ""
	s.clfParent = nil
	s.cursor = nil
	s.clfDone = true
	if inFlow {
		return e.startScoring(s)
	}
	return e.cmdResult(s, "Classifier flow stopped.")
}

func isClassifierState(st State) bool {
	switch st {
	case StateClfName, StateClfItems, StateClfMore, StateClfParentGoal, StateClfComboDecide:
		return true
	}
	return false
}

// ─── Edit wizard ─────────────────────────────────────────────────────────────

// handleEditFlow owns the turn while a multi-step edit command runs. The
// command parser is deliberately bypassed so prompts can accept any text.
func (e *Engine) handleEditFlow(s *Session, text string) Envelope {
	switch s.State {
	case StateEditRenameGoal:
		return e.editRenameGoal(s, text)
	case StateEditAddGoalParent:
		return e.editAddGoalParent(s, text)
	case StateEditAddGoalP:
		return e.editWizardP(s, text, s.wizGoal.Name, e.advanceGoalWizard)
	case StateEditAddGoalQ:
		return e.editWizardQ(s, text, StateEditAddGoalP,
			s.wizGoal.Name, s.wizFactors[s.wizIdx], e.advanceGoalWizard)
	case StateEditFactorP:
		return e.editWizardP(s, text, s.wizGoals[s.wizIdx].Name, e.advanceFactorWizard)
	case StateEditFactorQ:
		return e.editWizardQ(s, text, StateEditFactorP,
			s.wizGoals[s.wizIdx].Name, s.wizFactors[0], e.advanceFactorWizard)
	}
	return e.unknownState(s)
}

func (e *Engine) editRenameGoal(s *Session, text string) Envelope {
	if text == "" {
		return s.envelope("The name must not be empty. Enter the new name:")
	}
	oldName := s.wizGoal.Name
	if err := s.Tree.Rename(s.wizGoal, text); err != nil {
		return s.envelope("Could not rename: " + renameFailure(err) + " Enter a different name:")
	}
	s.Scores.RenameGoal(oldName, text)
	s.Scores.Recompute(s.Tree)
	e.persistTree(s)
	e.persistResults(s)
	s.restoreWizardReturn()
	return e.cmdResult(s, fmt.Sprintf("Renamed goal '%s' to '%s'.", oldName, text))
}

func (e *Engine) editAddGoalParent(s *Session, text string) Envelope {
	parent := s.findGoal(text)
	if parent == nil {
		return s.envelope("Goal not found. Under which goal should the new goal be added? (name or id)")
	}
	child, err := s.Tree.AddChild(parent, s.wizGoalName)
	if err != nil {
		s.restoreWizardReturn()
		return e.cmdResult(s, "Could not add the goal: "+addFailure(err))
	}
	e.persistTree(s)

	if len(s.factorOrder) == 0 {
		s.restoreWizardReturn()
		return e.cmdResult(s, fmt.Sprintf("Added goal '%s' under '%s'.", child.Name, parent.Name))
	}
	s.wizGoal = child
	s.wizFactors = append([]string(nil), s.factorOrder...)
	s.wizIdx = 0
	s.State = StateEditAddGoalP
	return s.envelope(fmt.Sprintf("Added goal '%s' under '%s'.\n\n%s",
		child.Name, parent.Name, wizardPPrompt(s.wizFactors[0], child.Name)))
}

// editWizardP reads a p value, or 'skip' to leave the current pair
// unevaluated and move on.
func (e *Engine) editWizardP(s *Session, text, goalName string, advance func(*Session) Envelope) Envelope {
	if strings.EqualFold(text, "skip") {
		return advance(s)
	}
	p, ok := parseProbability(text, true)
	if !ok {
		return s.envelope("Invalid input. Enter p as a number between 0 and 1 (exclusive of 1), or 'skip':")
	}
	s.wizP = p
	switch s.State {
	case StateEditAddGoalP:
		s.State = StateEditAddGoalQ
	case StateEditFactorP:
		s.State = StateEditFactorQ
	}
	return s.envelope(fmt.Sprintf("Enter q (0..1) for goal '%s':", goalName))
}

func (e *Engine) editWizardQ(s *Session, text string, back State, goalName, factorName string, advance func(*Session) Envelope) Envelope {
	q, ok := parseProbability(text, false)
	if !ok {
		return s.envelope("Invalid input. Enter q as a number between 0 and 1:")
	}
	s.Scores.Upsert(goalName, factorName, s.wizP, q)
	s.State = back
	return advance(s)
}

// advanceGoalWizard moves the add-goal wizard to the next factor, or
// finishes it.
func (e *Engine) advanceGoalWizard(s *Session) Envelope {
	s.wizIdx++
	if s.wizIdx < len(s.wizFactors) {
		s.State = StateEditAddGoalP
		return s.envelope(wizardPPrompt(s.wizFactors[s.wizIdx], s.wizGoal.Name))
	}
	goal := s.wizGoal.Name
	s.Scores.Recompute(s.Tree)
	e.persistResults(s)
	s.restoreWizardReturn()
	return e.cmdResult(s, fmt.Sprintf("Finished evaluating goal '%s'.", goal))
}

// advanceFactorWizard moves the add-factor wizard to the next goal, or
// finishes it.
func (e *Engine) advanceFactorWizard(s *Session) Envelope {
	s.wizIdx++
	if s.wizIdx < len(s.wizGoals) {
		s.State = StateEditFactorP
		return s.envelope(wizardPPrompt(s.wizFactors[0], s.wizGoals[s.wizIdx].Name))
	}
	factor := s.wizFactors[0]
	s.Scores.Recompute(s.Tree)
	e.persistResults(s)
	s.restoreWizardReturn()
	return e.cmdResult(s, fmt.Sprintf("Finished evaluating factor '%s'.", factor))
}

func wizardPPrompt(factor, goal string) string {
	return fmt.Sprintf("Factor '%s', goal '%s'. Enter p (0..1), or 'skip':", factor, goal)
}

// ─── Error wording ───────────────────────────────────────────────────────────

func renameFailure(err error) string {
	return failureText(err, "that name is already in use.")
}

func addFailure(err error) string {
	return failureText(err, "the name is taken or the tree is too deep.")
}

func moveFailure(err error) string {
	return failureText(err, "the move would break the tree.")
}

func failureText(err error, fallback string) string {
	if err == nil {
		return fallback
	}
	return err.Error() + "."
}
