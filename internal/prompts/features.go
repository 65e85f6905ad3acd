package prompts

import (
	"strings"
	"unicode"

	"github.com/agnivade/levenshtein"

	"github.com/robloxmcp/studio-assist/internal/capability"
	"github.com/robloxmcp/studio-assist/internal/nlcmd"
)

// Feature identifiers produced by MatchFeature.
const (
	FeatureCreateGame     = "create-game"
	FeaturePlatformer     = "platformer-template"
	FeatureMultiplayer    = "multiplayer-setup"
	FeatureRPG            = "rpg-template"
	FeatureGenerateScript = "generate-script"
	FeaturePlayerMovement = "player-movement"
	FeatureItemCollection = "item-collection"
	FeatureCreateUI       = "create-ui"
	FeatureDebugScript    = "debug-script"
	FeatureFindErrors     = "find-errors"
	FeatureOptimize       = "optimize-performance"
	FeatureHealthBar      = "health-bar"
	FeatureInventory      = "inventory-system"
	FeatureShop           = "shop-interface"
	FeatureCombat         = "combat-system"
)

type featureRule struct {
	keyword string
	feature string
}

// featureRules are checked in order; the first keyword contained in the
// description wins.
var featureRules = map[nlcmd.Language][]featureRule{
	nlcmd.Korean: {
		{"게임 만들기", FeatureCreateGame},
		{"플랫포머", FeaturePlatformer},
		{"멀티플레이어", FeatureMultiplayer},
		{"RPG", FeatureRPG},
		{"스크립트 작성", FeatureGenerateScript},
		{"플레이어 이동", FeaturePlayerMovement},
		{"아이템 수집", FeatureItemCollection},
		{"UI 생성", FeatureCreateUI},
		{"디버그", FeatureDebugScript},
		{"오류 찾기", FeatureFindErrors},
		{"최적화", FeatureOptimize},
		{"체력바", FeatureHealthBar},
		{"인벤토리", FeatureInventory},
		{"상점", FeatureShop},
		{"전투 시스템", FeatureCombat},
	},
	nlcmd.English: {
		{"create game", FeatureCreateGame},
		{"platformer", FeaturePlatformer},
		{"multiplayer", FeatureMultiplayer},
		{"rpg", FeatureRPG},
		{"write script", FeatureGenerateScript},
		{"player movement", FeaturePlayerMovement},
		{"item collection", FeatureItemCollection},
		{"create ui", FeatureCreateUI},
		{"debug", FeatureDebugScript},
		{"find errors", FeatureFindErrors},
		{"optimize", FeatureOptimize},
		{"health bar", FeatureHealthBar},
		{"inventory", FeatureInventory},
		{"shop", FeatureShop},
		{"combat system", FeatureCombat},
	},
}

// minFuzzyLength keeps short keywords such as "rpg" and "shop" out of fuzzy
// matching, where a single edit turns them into common words.
const minFuzzyLength = 5

// MatchFeature maps a free-text description to a feature identifier. Keywords
// for lang are tried first as case-insensitive substrings, in table order.
// Failing that, each word of the description is compared with the
// single-word English keywords and the closest one within typo distance wins.
// It returns "" when nothing matches.
func MatchFeature(description string, lang nlcmd.Language) string {
	lower := strings.ToLower(description)
	rules, ok := featureRules[lang]
	if !ok {
		rules = featureRules[nlcmd.English]
	}
	for _, rule := range rules {
		if strings.Contains(lower, strings.ToLower(rule.keyword)) {
			return rule.feature
		}
	}
	return fuzzyFeature(lower)
}

func fuzzyFeature(lower string) string {
	words := strings.FieldsFunc(lower, func(r rune) bool {
		return !unicode.IsLetter(r) || r > unicode.MaxASCII
	})
	best, bestDist := "", -1
	for _, rule := range featureRules[nlcmd.English] {
		if strings.Contains(rule.keyword, " ") || len(rule.keyword) < minFuzzyLength {
			continue
		}
		limit := capability.TypoLimit(len(rule.keyword))
		for _, w := range words {
			d := levenshtein.ComputeDistance(w, rule.keyword)
			if d > limit {
				continue
			}
			if bestDist < 0 || d < bestDist {
				best, bestDist = rule.feature, d
			}
		}
	}
	return best
}
