// Package command pattern-matches free-text edit commands typed during
// any dialog state. Matching is stateless and first-match-wins over an
// ordered pattern table; text that matches nothing falls through to the
// regular phase/state handlers.
package command

import (
	"regexp"
	"strings"
)

// Kind identifies a recognized command.
type Kind string

const (
	RenameGoal        Kind = "rename_goal"
	RenameGoalWizard  Kind = "rename_goal_wizard"
	RenameFactor      Kind = "rename_factor"
	DeleteGoal        Kind = "delete_goal"
	DeleteFactor      Kind = "delete_factor"
	DeleteAny         Kind = "delete_any"
	MoveGoal          Kind = "move_goal"
	AddGoalUnder      Kind = "add_goal_under"
	AddGoal           Kind = "add_goal"
	AddFactor         Kind = "add_factor"
	ShowClassifiers   Kind = "show_classifiers"
	AddClassifier     Kind = "add_classifier"
	DeleteClassifier  Kind = "delete_classifier"
	AddClassifierItem Kind = "add_classifier_item"
	StartClassifiers  Kind = "start_classifiers"
	UseClassifiers    Kind = "use_classifiers"
	NextCombination   Kind = "next_combination"
	StopClassifiers   Kind = "stop_classifiers"
	Help              Kind = "help"
	Skip              Kind = "skip"
	Finish            Kind = "finish"
)

// Command is a parsed edit command with its extracted arguments.
type Command struct {
	Kind Kind
	Args []string
}

// arg is a regex fragment matching one name argument, quoted or bare.
// Quoted wins so names containing keywords stay intact.
const arg = `(?:"([^"]+)"|(\S.*?))`

type pattern struct {
	re   *regexp.Regexp
	kind Kind
}

// patterns is ordered: more specific commands sit above the generic
// delete fallback, and exact keyword commands above argument-taking ones.
var patterns = []pattern{
	{re: regexp.MustCompile(`(?i)^rename\s+goal\s+` + arg + `\s+to\s+` + arg + `$`), kind: RenameGoal},
	{re: regexp.MustCompile(`(?i)^rename\s+factor\s+` + arg + `\s+to\s+` + arg + `$`), kind: RenameFactor},
	{re: regexp.MustCompile(`(?i)^rename\s+goal\s+` + arg + `$`), kind: RenameGoalWizard},
	{re: regexp.MustCompile(`(?i)^delete\s+goal\s+` + arg + `$`), kind: DeleteGoal},
	{re: regexp.MustCompile(`(?i)^delete\s+factor\s+` + arg + `$`), kind: DeleteFactor},
	{re: regexp.MustCompile(`(?i)^delete\s+classifier\s+` + arg + `$`), kind: DeleteClassifier},
	{re: regexp.MustCompile(`(?i)^delete\s+` + arg + `$`), kind: DeleteAny},
	{re: regexp.MustCompile(`(?i)^move\s+goal\s+` + arg + `\s+under\s+` + arg + `$`), kind: MoveGoal},
	{re: regexp.MustCompile(`(?i)^add\s+goal\s+` + arg + `\s+under\s+` + arg + `$`), kind: AddGoalUnder},
	{re: regexp.MustCompile(`(?i)^add\s+goal\s+` + arg + `$`), kind: AddGoal},
	{re: regexp.MustCompile(`(?i)^add\s+factor\s+` + arg + `$`), kind: AddFactor},
	{re: regexp.MustCompile(`(?i)^(?:show|list)\s+classifiers$`), kind: ShowClassifiers},
	{re: regexp.MustCompile(`(?i)^add\s+classifier\s+` + arg + `$`), kind: AddClassifier},
	{re: regexp.MustCompile(`(?i)^add\s+item\s+` + arg + `\s+to\s+classifier\s+` + arg + `$`), kind: AddClassifierItem},
	{re: regexp.MustCompile(`(?i)^start\s+classifiers\s+for\s+goal\s+` + arg + `$`), kind: StartClassifiers},
	{re: regexp.MustCompile(`(?i)^use\s+classifiers\s+` + arg + `\s+and\s+` + arg + `$`), kind: UseClassifiers},
	{re: regexp.MustCompile(`(?i)^(?:next\s+combination|next)$`), kind: NextCombination},
	{re: regexp.MustCompile(`(?i)^stop\s+classifiers$`), kind: StopClassifiers},
	{re: regexp.MustCompile(`(?i)^help$`), kind: Help},
	{re: regexp.MustCompile(`(?i)^skip$`), kind: Skip},
	{re: regexp.MustCompile(`(?i)^finish$`), kind: Finish},
}

// Parse tries the pattern table in order against text. It returns the
// first match, or ok=false when the text is not a command.
func Parse(text string) (Command, bool) {
	s := strings.TrimSpace(text)
	if s == "" {
		return Command{}, false
	}
	for _, p := range patterns {
		m := p.re.FindStringSubmatch(s)
		if m == nil {
			continue
		}
		var args []string
		// Each arg fragment contributes two groups: quoted then bare.
		for i := 1; i < len(m); i += 2 {
			switch {
			case m[i] != "":
				args = append(args, strings.TrimSpace(m[i]))
			case i+1 < len(m) && m[i+1] != "":
				args = append(args, strings.TrimSpace(m[i+1]))
			}
		}
		return Command{Kind: p.kind, Args: args}, true
	}
	return Command{}, false
}
