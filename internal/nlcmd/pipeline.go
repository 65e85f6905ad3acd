package nlcmd

import "log/slog"

// User expertise levels accepted in CommandContext.UserLevel.
const (
	LevelBeginner     = "beginner"
	LevelIntermediate = "intermediate"
	LevelAdvanced     = "advanced"
)

// CommandContext is optional caller-owned conversation state. The engine never
// stores it; callers resubmit it on every turn.
type CommandContext struct {
	PreviousCommands []string `json:"previousCommands,omitempty"`
	ProjectType      string   `json:"projectType,omitempty"`
	UserLevel        string   `json:"userLevel,omitempty"`
}

// Command is a raw request plus its optional context.
type Command struct {
	Text    string          `json:"command"`
	Context *CommandContext `json:"context,omitempty"`
}

// ProcessedCommand is the full interpretation of a Command.
type ProcessedCommand struct {
	Intent         Intent     `json:"intent"`
	Parameters     Parameters `json:"parameters"`
	SuggestedTools []string   `json:"suggestedTools"`
	Confidence     float64    `json:"confidence"`
}

// Processor composes detection, extraction, routing and scoring. The zero
// value is ready to use; Logger, when set, receives one debug line per call.
type Processor struct {
	Logger *slog.Logger
}

// Process interprets cmd. It never fails and always returns the same result
// for the same text.
func (p *Processor) Process(cmd Command) ProcessedCommand {
	lang := Detect(cmd.Text)
	intent := ExtractIntent(cmd.Text)
	out := ProcessedCommand{
		Intent:         intent,
		Parameters:     ExtractParameters(cmd.Text, intent, lang),
		SuggestedTools: SuggestTools(intent),
		Confidence:     Score(cmd.Text, intent),
	}
	if p != nil && p.Logger != nil {
		p.Logger.Debug("command processed",
			"language", lang,
			"action", intent.Action,
			"target", intent.Target,
			"modifiers", intent.Modifiers,
			"confidence", out.Confidence,
			"tools", out.SuggestedTools,
		)
	}
	return out
}

// Process interprets text without context using a zero Processor.
func Process(text string) ProcessedCommand {
	var p Processor
	return p.Process(Command{Text: text})
}
