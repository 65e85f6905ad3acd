package nlcmd

// Capability names produced by SuggestTools.
const (
	ToolGenerateCode        = "generate-roblox-code"
	ToolCreateGameComponent = "create-game-component"
	ToolCreateUIElement     = "create-ui-element"
	ToolValidateCode        = "validate-luau-code"
	ToolFindScriptIssues    = "find-script-issues"
	ToolOptimizePerformance = "optimize-for-performance"
	ToolAnalyzeMemory       = "analyze-memory-usage"
	ToolExplainCode         = "roblox-code-explain"
)

// createRoute maps a create target (either language) to its tools.
func createRoute(target string) []string {
	switch target {
	case "game", "게임":
		return []string{ToolGenerateCode, ToolCreateGameComponent}
	case "script", "스크립트":
		return []string{ToolGenerateCode}
	case "ui", "UI":
		return []string{ToolCreateUIElement}
	}
	return nil
}

var actionRoutes = map[string][]string{
	ActionDebug:    {ToolValidateCode, ToolFindScriptIssues},
	ActionOptimize: {ToolOptimizePerformance, ToolAnalyzeMemory},
	ActionExplain:  {ToolExplainCode},
}

// SuggestTools returns the capabilities to invoke for intent, primary
// suggestion first. The result depends on the intent alone and is a fresh
// slice the caller may modify; it is empty, never nil, when nothing applies.
func SuggestTools(intent Intent) []string {
	var route []string
	if intent.Action == ActionCreate {
		route = createRoute(intent.Target)
	} else {
		route = actionRoutes[intent.Action]
	}
	return append(make([]string, 0, len(route)), route...)
}
