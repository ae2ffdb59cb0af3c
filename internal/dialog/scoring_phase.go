package dialog

import "fmt"

// scoringHandlers routes scoring-phase states.
var scoringHandlers = map[State]func(*Engine, *Session, string) Envelope{
	StateAskFactorName: (*Engine).handleAskFactorName,
	StateAskGoal:       (*Engine).handleAskGoal,
	StateAskP:          (*Engine).handleAskP,
	StateAskQ:          (*Engine).handleAskQ,
	StateAskMoreGoal:   (*Engine).handleAskMoreGoal,
	StateFinished:      (*Engine).handleFinished,
}

// startScoring switches the dialog into the factor evaluation phase.
func (e *Engine) startScoring(s *Session) Envelope {
	s.Phase = PhaseScoring
	s.State = StateAskFactorName
	return s.envelope("Enter a factor name:")
}

func (e *Engine) handleScoringPhase(s *Session, text string) Envelope {
	// Termination keywords work from any scoring state.
	if isFinishWord(text) {
		return e.finishScoring(s)
	}
	h, ok := scoringHandlers[s.State]
	if !ok {
		return e.unknownState(s)
	}
	return h(e, s, text)
}

// finishScoring recomputes summaries one last time and parks the dialog
// in the terminal (but re-enterable) finished state.
func (e *Engine) finishScoring(s *Session) Envelope {
	s.Scores.Recompute(s.Tree)
	e.persistResults(s)
	s.Phase = PhaseScoring
	s.State = StateFinished
	return s.envelope("Factor evaluation complete.\n\n" + helpText)
}

func (e *Engine) handleAskFactorName(s *Session, text string) Envelope {
	if text == "" {
		return e.finishScoring(s)
	}
	if s.Names.Has(text) {
		return s.envelope("A goal or factor with that name already exists. Enter a different factor name:")
	}
	s.factorName = text
	s.registerFactor(text)
	s.State = StateAskGoal
	return s.envelope("Enter the goal to evaluate this factor against (name or id):")
}

func (e *Engine) handleAskGoal(s *Session, text string) Envelope {
	goal := s.findGoal(text)
	if goal == nil {
		return s.envelope("Goal not found. Enter the goal name exactly as in the tree:")
	}
	s.oseGoal = goal
	s.State = StateAskP
	return s.envelope(fmt.Sprintf("Enter p (0..1) for goal '%s':", goal.Name))
}

func (e *Engine) handleAskP(s *Session, text string) Envelope {
	p, ok := parseProbability(text, true)
	if !ok {
		if v, numeric := parseProbability(text, false); numeric && v == 1 {
			return s.envelope("p must be strictly below 1 (ln(0) is undefined). Enter p again:")
		}
		return s.envelope("Invalid input. Enter p as a number between 0 and 1 (exclusive of 1):")
	}
	s.pVal = p
	s.State = StateAskQ
	return s.envelope(fmt.Sprintf("Enter q (0..1) for goal '%s':", s.oseGoal.Name))
}

func (e *Engine) handleAskQ(s *Session, text string) Envelope {
	q, ok := parseProbability(text, false)
	if !ok {
		return s.envelope("Invalid input. Enter q as a number between 0 and 1:")
	}

	s.Scores.Upsert(s.oseGoal.Name, s.factorName, s.pVal, q)
	s.Scores.Recompute(s.Tree)
	e.persistResults(s)

	s.State = StateAskMoreGoal
	return s.envelope("Evaluate this factor for another goal? (yes/no)")
}

func (e *Engine) handleAskMoreGoal(s *Session, text string) Envelope {
	if isYes(text) {
		s.State = StateAskGoal
		return s.envelope("Enter the next goal for this factor (name or id):")
	}
	s.State = StateAskFactorName
	return s.envelope("Enter the next factor name (or an empty line / 'finish' to wrap up):")
}

func (e *Engine) handleFinished(s *Session, _ string) Envelope {
	return s.envelope("Factor evaluation complete.\n\n" + helpText)
}

// helpText lists the free-text commands available in every state.
const helpText = `Available commands:

Goal tree:
- rename goal "A" to "B"
- move goal "A" under "B"
- add goal "A" under "B"   (or just: add goal "A")
- delete goal "A"

Factors:
- add factor "F"           (evaluates it for every goal)
- rename factor "A" to "B"
- delete factor "A"

Classifiers:
- show classifiers
- add classifier "X"
- add item "A" to classifier "X"
- delete classifier "X"
- start classifiers for goal "Y"
- use classifiers "X" and "Y"
- next / skip / stop classifiers

Other:
- help
- finish`
