// Package assist turns a free-text request into capability results: it
// interprets the command and, when the interpretation is confident enough,
// runs every suggested capability through the gateway.
package assist

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/robloxmcp/studio-assist/internal/capability"
	"github.com/robloxmcp/studio-assist/internal/nlcmd"
	"github.com/robloxmcp/studio-assist/internal/observability"
)

// DefaultThreshold is the confidence a command must exceed before its
// suggested tools are run.
const DefaultThreshold = 0.7

// maxParallelTools bounds how many suggested tools run at once.
const maxParallelTools = 4

// ToolResult is the outcome of one suggested tool. Exactly one of Result and
// Error is set.
type ToolResult struct {
	Tool   string             `json:"tool"`
	Result *capability.Result `json:"result,omitempty"`
	Error  string             `json:"error,omitempty"`

	// Err is the underlying error, kept for callers that map it to a status.
	Err error `json:"-"`
}

// Outcome is the interpretation of a command plus any tool results.
type Outcome struct {
	Processed nlcmd.ProcessedCommand `json:"processed"`
	Language  nlcmd.Language         `json:"language"`
	// Executed reports whether the suggested tools were run.
	Executed    bool         `json:"executed"`
	ToolResults []ToolResult `json:"toolResults,omitempty"`
}

// Assistant couples the command processor with the capability gateway.
type Assistant struct {
	processor *nlcmd.Processor
	gateway   *capability.Gateway
	threshold float64
}

// New returns an Assistant. A threshold outside [0,1] falls back to
// DefaultThreshold; a nil processor uses the zero Processor.
func New(processor *nlcmd.Processor, gateway *capability.Gateway, threshold float64) *Assistant {
	if processor == nil {
		processor = &nlcmd.Processor{}
	}
	if threshold < 0 || threshold > 1 {
		threshold = DefaultThreshold
	}
	return &Assistant{processor: processor, gateway: gateway, threshold: threshold}
}

// Threshold returns the auto-execution threshold in use.
func (a *Assistant) Threshold() float64 { return a.threshold }

// Process interprets cmd without running anything.
func (a *Assistant) Process(cmd nlcmd.Command) nlcmd.ProcessedCommand {
	return a.processor.Process(cmd)
}

// ShouldExecute reports whether pc is confident enough, strictly above the
// threshold, and names at least one tool.
func (a *Assistant) ShouldExecute(pc nlcmd.ProcessedCommand) bool {
	return pc.Confidence > a.threshold && len(pc.SuggestedTools) > 0
}

// Handle processes cmd and runs its suggested tools when ShouldExecute holds.
// An empty lang means the detected language.
func (a *Assistant) Handle(ctx context.Context, cmd nlcmd.Command, lang nlcmd.Language) Outcome {
	return a.Complete(ctx, a.Process(cmd), lang)
}

// Complete finishes an already processed command.
func (a *Assistant) Complete(ctx context.Context, pc nlcmd.ProcessedCommand, lang nlcmd.Language) Outcome {
	if lang == "" {
		lang = pc.Parameters.Language
	}
	out := Outcome{Processed: pc, Language: lang}
	if !a.ShouldExecute(pc) {
		return out
	}
	out.Executed = true
	out.ToolResults = a.Execute(ctx, pc, lang)
	return out
}

// Execute runs every suggested tool of pc and returns one result per tool in
// suggestion order. A failing tool is recorded and never stops the others.
func (a *Assistant) Execute(ctx context.Context, pc nlcmd.ProcessedCommand, lang nlcmd.Language) []ToolResult {
	log := observability.WithTrace(ctx)
	results := make([]ToolResult, len(pc.SuggestedTools))

	var g errgroup.Group
	g.SetLimit(maxParallelTools)
	for i, tool := range pc.SuggestedTools {
		g.Go(func() error {
			res, err := a.gateway.Execute(ctx, tool, ToolArgs(tool, pc, lang))
			tr := ToolResult{Tool: tool}
			if err != nil {
				tr.Error = err.Error()
				tr.Err = err
			} else {
				tr.Result = &res
			}
			results[i] = tr
			return nil
		})
	}
	_ = g.Wait()

	failed := 0
	for _, r := range results {
		if r.Err != nil {
			failed++
		}
	}
	log.Info("suggested tools executed", "tools", len(results), "failed", failed, "confidence", pc.Confidence)
	return results
}

// ToolArgs builds the argument map passed to tool: the parameter bag plus the
// command text and language. The code explainer also receives the first
// quoted string, or the whole command, as its code.
func ToolArgs(tool string, pc nlcmd.ProcessedCommand, lang nlcmd.Language) map[string]any {
	args := pc.Parameters.Args()
	args["command"] = pc.Parameters.OriginalCommand
	if lang == "" {
		lang = pc.Parameters.Language
	}
	args["language"] = string(lang)
	if tool == capability.CodeExplain {
		code := pc.Parameters.OriginalCommand
		if len(pc.Parameters.QuotedStrings) > 0 {
			code = pc.Parameters.QuotedStrings[0]
		}
		args["code"] = code
	}
	return args
}
