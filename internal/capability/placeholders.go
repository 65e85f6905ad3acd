package capability

import (
	"context"
	"fmt"

	"github.com/robloxmcp/studio-assist/internal/nlcmd"
)

// placeholder declares a capability that is routable and listed but has no
// implementation behind it yet.
type placeholder struct {
	name        string
	description string
}

// routedPlaceholders are the targets of nlcmd.SuggestTools that have no
// handler yet. They accept the argument bag built by the auto-dispatcher.
var routedPlaceholders = []placeholder{
	{nlcmd.ToolGenerateCode, "Generate Luau code for a described feature"},
	{nlcmd.ToolCreateGameComponent, "Create a reusable game component"},
	{nlcmd.ToolCreateUIElement, "Create a UI element"},
	{nlcmd.ToolValidateCode, "Validate Luau code"},
	{nlcmd.ToolFindScriptIssues, "Find issues in a script"},
	{nlcmd.ToolOptimizePerformance, "Suggest performance optimizations"},
	{nlcmd.ToolAnalyzeMemory, "Analyze memory usage"},
}

var extensionPlaceholders = []placeholder{
	{"code-generator", "AI-powered Roblox code generation"},
	{"asset-finder", "Search and recommend Roblox assets"},
	{"script-validator", "Validate and lint Luau scripts"},
	{"roblox-api-connector", "Connect to Roblox web APIs"},
	{"datastore-manager", "Manage DataStore schemas and migrations"},
	{"ui-builder", "Build UI layouts from descriptions"},
	{"physics-system", "Configure physics constraints and simulation"},
	{"open-cloud-connector", "Access Roblox Open Cloud APIs"},
	{"social-features", "Friends, groups and chat integration"},
	{"metaverse-integration", "Cross-experience teleport and avatar features"},
	{"educational-tools", "Tutorials and learning content"},
	{"localization-manager", "Manage translations for experiences"},
	{"ai-tester", "Generate and run automated gameplay tests"},
}

func registerPlaceholders(reg *Registry) {
	for _, group := range [][]placeholder{routedPlaceholders, extensionPlaceholders} {
		for _, p := range group {
			reg.Register(Capability{
				Name:        p.name,
				Description: p.description + " (not yet implemented)",
				InputSchema: ObjectSchema(),
				Handler:     notImplemented(p.name),
			})
		}
	}
}

func notImplemented(name string) Handler {
	return func(context.Context, map[string]any) (Result, error) {
		return Result{}, fmt.Errorf("%w: %s", ErrNotImplemented, name)
	}
}
