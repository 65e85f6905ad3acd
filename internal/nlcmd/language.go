// Package nlcmd interprets free-text Roblox Studio requests written in Korean
// or English.
//
// The pipeline is heuristic: language detection by script range,
// ordered regular-expression rule tables for the action, a vocabulary scan for
// the target, keyword groups for modifiers, and a fixed additive confidence
// score. Every function in this package is pure and safe for concurrent use.
package nlcmd

import "strings"

// Language is a two-letter localisation tag.
type Language string

const (
	// Korean is the primary supported language, detected by script range.
	Korean Language = "ko"
	// English is the secondary language and the default for any text that
	// carries no Hangul.
	English Language = "en"

	// DefaultLanguage is used whenever a caller omits the language tag.
	DefaultLanguage = English
)

// Hangul syllables block.
const (
	hangulFirst = '\uAC00'
	hangulLast  = '\uD7A3'
)

// Detect classifies text as Korean when it contains at least one Hangul
// syllable and as English otherwise. Detect("") is English.
func Detect(text string) Language {
	for _, r := range text {
		if r >= hangulFirst && r <= hangulLast {
			return Korean
		}
	}
	return English
}

// ParseLanguage normalises a caller-supplied tag. The empty string resolves to
// DefaultLanguage; any other unsupported tag reports false.
func ParseLanguage(s string) (Language, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "":
		return DefaultLanguage, true
	case string(Korean):
		return Korean, true
	case string(English):
		return English, true
	default:
		return "", false
	}
}

// String implements fmt.Stringer.
func (l Language) String() string { return string(l) }
