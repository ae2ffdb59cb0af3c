// Package dialog implements the planfactor conversation: a two-phase
// state machine that walks a user through building a goal tree (with
// optional classifier-driven subgoal generation) and then scoring
// factors against goals.
//
// Every turn is a single synchronous transform of (session, input) into
// (session', envelope). Free-text edit commands overlay every state:
// each turn first runs any in-flight edit wizard, then the command
// parser, and only then the regular handler for the current
// (phase, state) pair.
package dialog

import (
	"log/slog"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/planfactor/planfactor/internal/classifier"
	"github.com/planfactor/planfactor/internal/command"
	"github.com/planfactor/planfactor/internal/config"
	"github.com/planfactor/planfactor/internal/goaltree"
	"github.com/planfactor/planfactor/internal/scoring"
	"github.com/planfactor/planfactor/internal/store"
)

// Phase is the coarse dialog stage.
type Phase string

const (
	// PhaseTree is the tree-building stage, including the classifier
	// sub-flow.
	PhaseTree Phase = "tree"
	// PhaseScoring is the factor evaluation stage.
	PhaseScoring Phase = "scoring"
)

// State is the fine-grained dialog step within a phase.
type State string

// Tree-building phase states.
const (
	StateAskRoot        State = "ask_root"
	StateAskAddSubgoal  State = "ask_add_subgoal"
	StateAskSubgoalName State = "ask_subgoal_name"
	StateClfName        State = "clf_name"
	StateClfItems       State = "clf_items"
	StateClfMore        State = "clf_more"
	StateClfParentGoal  State = "clf_parent_goal"
	StateClfComboDecide State = "clf_combo_decide"
)

// Scoring phase states.
const (
	StateAskFactorName State = "ask_factor_name"
	StateAskGoal       State = "ask_goal"
	StateAskP          State = "ask_p"
	StateAskQ          State = "ask_q"
	StateAskMoreGoal   State = "ask_more_goal_for_factor"
	StateFinished      State = "finished"
)

// Edit wizard states. These temporarily override the regular state and
// restore it on completion.
const (
	StateEditRenameGoal    State = "edit_rename_goal"
	StateEditAddGoalParent State = "edit_add_goal_parent"
	StateEditAddGoalP      State = "edit_add_goal_p"
	StateEditAddGoalQ      State = "edit_add_goal_q"
	StateEditFactorP       State = "edit_factor_p"
	StateEditFactorQ       State = "edit_factor_q"
)

// StateError is the defensive terminal state for an unroutable
// (phase, state) pair; only a fresh Start escapes it.
const StateError State = "error"

// Envelope is the sole externally observable result of a dialog turn.
type Envelope struct {
	Phase      Phase               `json:"phase"`
	State      State               `json:"state"`
	Question   string              `json:"question"`
	Tree       []goaltree.FlatNode `json:"tree"`
	OseResults []scoring.Row       `json:"ose_results"`
	Message    string              `json:"message,omitempty"`
}

// Persistence is the store contract the dialog needs. All calls are
// synchronous; failures are surfaced as non-fatal warnings and the
// in-memory session stays authoritative.
type Persistence interface {
	ReplaceGoals(schemeID int64, nodes []goaltree.FlatNode) (map[int]int, error)
	LoadGoals(schemeID int64) ([]goaltree.FlatNode, error)
	ReplaceOseResults(schemeID int64, rows []scoring.Row) error
	LoadOseResults(schemeID int64) ([]scoring.Row, error)
	ListClassifiers(schemeID int64) ([]store.Classifier, error)
	CreateClassifier(schemeID int64, name string, level int) (store.Classifier, error)
	AddClassifierItem(classifierID int64, value string) error
	GetClassifierWithItems(schemeID int64, name string, level int) (*store.Classifier, error)
	DeleteClassifier(schemeID int64, name string) error
}

// Session is the full mutable state of one conversation. Sessions are
// plain values owned by the boundary layer; the engine never keeps
// process-wide state.
type Session struct {
	Token    string
	Phase    Phase
	State    State
	SchemeID int64

	Names  *goaltree.Names
	Tree   *goaltree.Tree
	Scores *scoring.Table

	// factors tracks live factor names (lowercase) and their entry order.
	factors     map[string]struct{}
	factorOrder []string

	current *goaltree.Node // tree-building cursor

	// Scoring scratch.
	factorName string
	oseGoal    *goaltree.Node
	pVal       float64

	// Classifier sub-flow scratch.
	clfs      []classifier.Classifier
	clfName   string
	clfLevel  int
	clfParent *goaltree.Node
	cursor    *classifier.Cursor
	clfDone   bool

	// Edit wizard scratch; prevPhase/prevState are restored when the
	// wizard completes.
	prevPhase   Phase
	prevState   State
	wizGoalName string
	wizGoal     *goaltree.Node
	wizFactors  []string
	wizGoals    []*goaltree.Node
	wizIdx      int
	wizP        float64

	// warning carries a pending persistence warning into the next
	// envelope, then clears.
	warning string
}

// envelope builds the turn response from the current session state.
func (s *Session) envelope(question string) Envelope {
	env := Envelope{
		Phase:      s.Phase,
		State:      s.State,
		Question:   question,
		Tree:       s.Tree.Serialize(),
		OseResults: s.Scores.Rows(),
	}
	if s.warning != "" {
		env.Message = s.warning
		s.warning = ""
	}
	return env
}

// registerFactor reserves a factor name in the shared namespace.
func (s *Session) registerFactor(name string) {
	s.Names.Reserve(name)
	s.factors[strings.ToLower(name)] = struct{}{}
	s.factorOrder = append(s.factorOrder, name)
}

// dropFactor releases a factor name.
func (s *Session) dropFactor(name string) {
	s.Names.Release(name)
	delete(s.factors, strings.ToLower(name))
	for i, f := range s.factorOrder {
		if strings.EqualFold(f, name) {
			s.factorOrder = append(s.factorOrder[:i], s.factorOrder[i+1:]...)
			break
		}
	}
}

func (s *Session) hasFactor(name string) bool {
	_, ok := s.factors[strings.ToLower(name)]
	return ok
}

// Engine runs dialog turns. It is stateless apart from its collaborators
// and can serve any number of sessions.
type Engine struct {
	store Persistence
	cfg   config.Config
	log   *slog.Logger
}

// NewEngine creates an engine. store may be nil, in which case the
// session is purely in-memory.
func NewEngine(st Persistence, cfg config.Config, log *slog.Logger) *Engine {
	return &Engine{store: st, cfg: cfg, log: log}
}

// Start creates a fresh session, optionally bound to a persisted scheme.
// With resume set, a previously persisted tree and result rows are
// loaded back; the dialog then continues at the subgoal prompt instead
// of asking for a new root.
func (e *Engine) Start(schemeID int64, resume bool) (*Session, Envelope) {
	names := goaltree.NewNames()
	s := &Session{
		Token:    uuid.NewString(),
		Phase:    PhaseTree,
		State:    StateAskRoot,
		SchemeID: schemeID,
		Names:    names,
		Tree:     goaltree.New(e.cfg.MaxLevel, names),
		Scores:   scoring.NewTable(),
		factors:  make(map[string]struct{}),
		clfLevel: 1,
	}

	if resume && e.store != nil && schemeID != 0 {
		e.resume(s)
	}

	if s.Tree.Empty() {
		return s, s.envelope("Enter the main goal:")
	}
	s.Phase = PhaseTree
	s.State = StateAskAddSubgoal
	s.current = s.Tree.Root()
	return s, s.envelope(askSubgoalQuestion(s.current.Name))
}

// resume loads a persisted tree and evaluation rows into the session.
func (e *Engine) resume(s *Session) {
	flat, err := e.store.LoadGoals(s.SchemeID)
	if err != nil {
		e.warn(s, "could not load saved goals", err)
		return
	}
	if len(flat) > 0 {
		if err := s.Tree.Load(flat); err != nil {
			e.warn(s, "could not rebuild saved tree", err)
			return
		}
	}
	rows, err := e.store.LoadOseResults(s.SchemeID)
	if err != nil {
		e.warn(s, "could not load saved results", err)
		return
	}
	s.Scores.Load(rows)
	for _, r := range rows {
		if !r.IsSummary() && !s.hasFactor(r.Factor) {
			s.registerFactor(r.Factor)
		}
	}
}

// Answer runs one dialog turn. It never returns an error: every failure
// mode maps to a well-formed envelope.
func (e *Engine) Answer(s *Session, raw string) Envelope {
	text := strings.TrimSpace(raw)

	// An in-flight edit wizard owns the turn outright, so its prompts
	// can accept answers that would otherwise parse as commands.
	if isEditState(s.State) {
		return e.handleEditFlow(s, text)
	}

	if cmd, ok := command.Parse(text); ok {
		return e.execCommand(s, cmd)
	}

	switch s.Phase {
	case PhaseTree:
		return e.handleTreePhase(s, text)
	case PhaseScoring:
		return e.handleScoringPhase(s, text)
	}
	return e.unknownState(s)
}

func isEditState(st State) bool {
	switch st {
	case StateEditRenameGoal, StateEditAddGoalParent,
		StateEditAddGoalP, StateEditAddGoalQ,
		StateEditFactorP, StateEditFactorQ:
		return true
	}
	return false
}

// unknownState is the defensive dead end: the session must be restarted.
func (e *Engine) unknownState(s *Session) Envelope {
	e.log.Error("unroutable dialog state", "phase", s.Phase, "state", s.State)
	s.State = StateError
	return s.envelope("Unknown dialog state. Start a new dialog to continue.")
}

// saveWizardReturn records where an edit wizard should return to.
func (s *Session) saveWizardReturn() {
	s.prevPhase = s.Phase
	s.prevState = s.State
}

// restoreWizardReturn puts the session back where the wizard interrupted it.
func (s *Session) restoreWizardReturn() {
	s.Phase = s.prevPhase
	s.State = s.prevState
	s.wizGoalName = ""
	s.wizGoal = nil
	s.wizFactors = nil
	s.wizGoals = nil
	s.wizIdx = 0
}

// ─── Shared helpers ──────────────────────────────────────────────────────────

// isYes reports whether text is an affirmative answer.
func isYes(text string) bool {
	switch strings.ToLower(text) {
	case "yes", "y":
		return true
	}
	return false
}

// isNo reports whether text is an explicit negative answer.
func isNo(text string) bool {
	switch strings.ToLower(text) {
	case "no", "n":
		return true
	}
	return false
}

// isFinishWord reports whether text is a scoring termination keyword.
func isFinishWord(text string) bool {
	switch strings.ToLower(text) {
	case "finish", "stop", "end":
		return true
	}
	return false
}

// findGoal resolves a goal by numeric id or exact case-insensitive name.
func (s *Session) findGoal(raw string) *goaltree.Node {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	if id, err := strconv.Atoi(raw); err == nil {
		return s.Tree.FindByID(id)
	}
	return s.Tree.FindByName(raw)
}

// parseProbability parses a decimal in [0, 1]. reject1 additionally
// refuses exactly 1 (ln(1-p) undefined).
func parseProbability(text string, reject1 bool) (float64, bool) {
	v, err := strconv.ParseFloat(text, 64)
	if err != nil {
		return 0, false
	}
	if v < 0 || v > 1 {
		return 0, false
	}
	if reject1 && v == 1 {
		return 0, false
	}
	return v, true
}

func askSubgoalQuestion(name string) string {
	return "Add a subgoal for '" + name + "'? (yes/no)"
}

// ─── Persistence checkpoints ─────────────────────────────────────────────────

// persistTree writes the current tree to the store, adopting the
// generated row ids. Failures become warnings, never errors.
func (e *Engine) persistTree(s *Session) {
	if e.store == nil || s.SchemeID == 0 || s.Tree.Empty() {
		return
	}
	mapping, err := e.store.ReplaceGoals(s.SchemeID, s.Tree.Serialize())
	if err != nil {
		e.warn(s, "could not save the goal tree", err)
		return
	}
	s.Tree.AdoptIDs(mapping)
}

// persistResults writes the current evaluation rows to the store.
func (e *Engine) persistResults(s *Session) {
	if e.store == nil || s.SchemeID == 0 {
		return
	}
	if err := e.store.ReplaceOseResults(s.SchemeID, s.Scores.Rows()); err != nil {
		e.warn(s, "could not save evaluation results", err)
	}
}

// warn logs a persistence failure and queues it for the next envelope.
func (e *Engine) warn(s *Session, msg string, err error) {
	e.log.Warn(msg, "error", err, "scheme_id", s.SchemeID)
	s.warning = "Warning: " + msg + "; continuing with in-memory state."
}
