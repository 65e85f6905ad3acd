package nlcmd

import "unicode/utf8"

// Confidence weights, expressed in tenths so the score is always an exact
// one-decimal value. Changing any of them changes routing behaviour for
// callers that gate on a threshold.
const (
	baseTenths          = 5
	knownActionTenths   = 2
	knownTargetTenths   = 2
	modifiersTenths     = 1
	lengthPenaltyTenths = 1

	shortCommandRunes = 10
	longCommandRunes  = 200
)

// Score returns the heuristic confidence for an intent extracted from text,
// clamped to [0,1]. Length is measured in runes.
func Score(text string, intent Intent) float64 {
	tenths := baseTenths
	if intent.Action != ActionUnknown {
		tenths += knownActionTenths
	}
	if intent.Target != TargetUnknown {
		tenths += knownTargetTenths
	}
	if len(intent.Modifiers) > 0 {
		tenths += modifiersTenths
	}

	n := utf8.RuneCountInString(text)
	if n < shortCommandRunes {
		tenths -= lengthPenaltyTenths
	}
	if n > longCommandRunes {
		tenths -= lengthPenaltyTenths
	}

	tenths = max(0, min(10, tenths))
	return float64(tenths) / 10
}
