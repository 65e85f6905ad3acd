package nlcmd

import (
	"regexp"
	"strings"
)

// Actions recognised by ExtractIntent.
const (
	ActionCreate   = "create"
	ActionDebug    = "debug"
	ActionOptimize = "optimize"
	ActionExplain  = "explain"
	ActionUnknown  = "unknown"
)

// TargetUnknown is the target reported when no vocabulary entry matches.
const TargetUnknown = "unknown"

// Modifiers recognised by ExtractIntent.
const (
	ModifierMultiplayer = "multiplayer"
	ModifierSimple      = "simple"
	ModifierAdvanced    = "advanced"
)

// Intent is the normalised (action, target, modifiers) triple derived from a
// request.
type Intent struct {
	Action    string   `json:"action"`
	Target    string   `json:"target"`
	Modifiers []string `json:"modifiers"`
}

// actionRule pairs a pattern with the action it selects. Rules are evaluated
// in slice order and the first match wins, so a request matching several
// categories is classified by the earliest one.
type actionRule struct {
	action  string
	pattern *regexp.Regexp
}

// modifierRule is tested independently of every other modifier rule.
type modifierRule struct {
	modifier string
	pattern  *regexp.Regexp
}

// lexicon is the full rule set for one language.
type lexicon struct {
	actions   []actionRule
	target    *regexp.Regexp
	lowerCase bool
	modifiers []modifierRule
}

var lexicons = map[Language]lexicon{
	Korean: {
		actions: []actionRule{
			{ActionCreate, regexp.MustCompile(`만들|생성|제작|구현`)},
			{ActionDebug, regexp.MustCompile(`디버그|오류|에러|버그|문제`)},
			{ActionOptimize, regexp.MustCompile(`최적화|성능|개선`)},
			{ActionExplain, regexp.MustCompile(`설명|알려|뭐야|무엇`)},
		},
		target: regexp.MustCompile(`(게임|스크립트|UI|시스템|플레이어|아이템)`),
		modifiers: []modifierRule{
			{ModifierMultiplayer, regexp.MustCompile(`멀티플레이어|다중`)},
			{ModifierSimple, regexp.MustCompile(`간단|쉬운`)},
			{ModifierAdvanced, regexp.MustCompile(`복잡|고급`)},
		},
	},
	English: {
		actions: []actionRule{
			{ActionCreate, regexp.MustCompile(`(?i)create|make|build|implement`)},
			{ActionDebug, regexp.MustCompile(`(?i)debug|error|bug|issue|problem`)},
			{ActionOptimize, regexp.MustCompile(`(?i)optimize|performance|improve`)},
			{ActionExplain, regexp.MustCompile(`(?i)explain|what is|tell me|describe`)},
		},
		target:    regexp.MustCompile(`(?i)(game|script|ui|system|player|item)`),
		lowerCase: true,
		modifiers: []modifierRule{
			{ModifierMultiplayer, regexp.MustCompile(`(?i)multiplayer|multi-player`)},
			{ModifierSimple, regexp.MustCompile(`(?i)simple|easy`)},
			{ModifierAdvanced, regexp.MustCompile(`(?i)complex|advanced`)},
		},
	},
}

// ExtractIntent derives an Intent from text using the rule tables of the
// detected language. It never fails: unmatched text yields action and target
// "unknown" and an empty modifier list.
func ExtractIntent(text string) Intent {
	lex := lexicons[Detect(text)]
	return Intent{
		Action:    matchAction(lex, text),
		Target:    matchTarget(lex, text),
		Modifiers: matchModifiers(lex, text),
	}
}

func matchAction(lex lexicon, text string) string {
	for _, rule := range lex.actions {
		if rule.pattern.MatchString(text) {
			return rule.action
		}
	}
	return ActionUnknown
}

// matchTarget returns the leftmost vocabulary token in text.
func matchTarget(lex lexicon, text string) string {
	m := lex.target.FindStringSubmatch(text)
	if m == nil {
		return TargetUnknown
	}
	if lex.lowerCase {
		return strings.ToLower(m[1])
	}
	return m[1]
}

func matchModifiers(lex lexicon, text string) []string {
	mods := make([]string, 0, len(lex.modifiers))
	for _, rule := range lex.modifiers {
		if rule.pattern.MatchString(text) {
			mods = append(mods, rule.modifier)
		}
	}
	return mods
}
