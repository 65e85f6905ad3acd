package nlcmd

import (
	"regexp"
	"strconv"
)

var (
	digitRun   = regexp.MustCompile(`[0-9]+`)
	quotedSpan = regexp.MustCompile(`["']([^"']+)["']`)
)

// Parameters is the bag of literal values pulled out of a request.
type Parameters struct {
	Language        Language `json:"language"`
	OriginalCommand string   `json:"originalCommand"`
	// Numbers holds every digit run in order of appearance. Runs too large
	// for int64 saturate at math.MaxInt64.
	Numbers []int64 `json:"numbers,omitempty"`
	// QuotedStrings holds paired single- or double-quoted spans with the
	// quote characters removed.
	QuotedStrings []string `json:"quotedStrings,omitempty"`
}

// ExtractParameters builds the parameter bag for text. The intent is accepted
// so that intent-specific extraction can be added without changing callers.
func ExtractParameters(text string, _ Intent, lang Language) Parameters {
	p := Parameters{
		Language:        lang,
		OriginalCommand: text,
	}
	for _, run := range digitRun.FindAllString(text, -1) {
		// ParseInt returns the saturated value alongside ErrRange.
		n, _ := strconv.ParseInt(run, 10, 64)
		p.Numbers = append(p.Numbers, n)
	}
	for _, m := range quotedSpan.FindAllStringSubmatch(text, -1) {
		p.QuotedStrings = append(p.QuotedStrings, m[1])
	}
	return p
}

// Args renders the bag as a capability argument map using the same keys as
// its JSON form.
func (p Parameters) Args() map[string]any {
	args := map[string]any{
		"language":        string(p.Language),
		"originalCommand": p.OriginalCommand,
	}
	if len(p.Numbers) > 0 {
		nums := make([]any, len(p.Numbers))
		for i, n := range p.Numbers {
			nums[i] = n
		}
		args["numbers"] = nums
	}
	if len(p.QuotedStrings) > 0 {
		qs := make([]any, len(p.QuotedStrings))
		for i, s := range p.QuotedStrings {
			qs[i] = s
		}
		args["quotedStrings"] = qs
	}
	return args
}
