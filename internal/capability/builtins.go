package capability

import (
	"context"
	"fmt"
	"strings"

	"github.com/robloxmcp/studio-assist/internal/nlcmd"
	"github.com/robloxmcp/studio-assist/internal/templates"
	"github.com/robloxmcp/studio-assist/internal/wizard"
)

// Names of the built-in capabilities.
const (
	NaturalCommand  = "roblox-natural-command"
	CodeExplain     = nlcmd.ToolExplainCode
	ProjectAnalyzer = "roblox-project-analyzer"
	TemplateWizard  = "roblox-template-wizard"
	LearningPath    = "roblox-learning-path"
)

// Detail levels accepted by roblox-code-explain.
const (
	DetailSimple   = "simple"
	DetailDetailed = "detailed"
	DetailExpert   = "expert"
)

// Markers counted by the code explanation summary. Matching is a plain
// substring test per line, so counts are approximate.
const (
	functionMarker = "function"
	localMarker    = "local"
)

var languageProperty = Property{
	Type:        "string",
	Description: "Response language",
	Enum:        []string{string(nlcmd.Korean), string(nlcmd.English)},
	Default:     string(nlcmd.DefaultLanguage),
}

// Builtins carries the collaborators the built-in handlers need. Nil fields
// fall back to package defaults.
type Builtins struct {
	Processor *nlcmd.Processor
	Templates *templates.Store
	Wizard    *wizard.Machine
}

func (b Builtins) withDefaults() Builtins {
	if b.Processor == nil {
		b.Processor = &nlcmd.Processor{}
	}
	if b.Templates == nil {
		b.Templates = templates.Default()
	}
	if b.Wizard == nil {
		b.Wizard = wizard.New(b.Templates)
	}
	return b
}

// RegisterBuiltins registers the five implemented capabilities followed by
// every placeholder extension point.
func RegisterBuiltins(reg *Registry, b Builtins) {
	b = b.withDefaults()

	reg.Register(Capability{
		Name:        NaturalCommand,
		Description: "Process natural language commands for Roblox Studio operations",
		InputSchema: Schema{
			Type: "object",
			Properties: map[string]Property{
				"command": {Type: "string", Description: "Natural language command in Korean or English"},
				"context": {
					Type:        "object",
					Description: "Additional context for the command",
					Properties: map[string]Property{
						"previousCommands": {Type: "array", Items: &Property{Type: "string"}, Description: "Previous commands in the conversation"},
						"projectType":      {Type: "string", Description: "Type of Roblox project being worked on"},
						"userLevel": {
							Type:        "string",
							Enum:        []string{nlcmd.LevelBeginner, nlcmd.LevelIntermediate, nlcmd.LevelAdvanced},
							Description: "User expertise level",
						},
					},
				},
			},
			Required: []string{"command"},
		},
		Handler: b.naturalCommand,
	})

	reg.Register(Capability{
		Name:        CodeExplain,
		Description: "Explain Roblox Luau code in simple terms (Korean/English)",
		InputSchema: Schema{
			Type: "object",
			Properties: map[string]Property{
				"code":     {Type: "string", Description: "Luau code to explain"},
				"language": languageProperty,
				"detailLevel": {
					Type:        "string",
					Enum:        []string{DetailSimple, DetailDetailed, DetailExpert},
					Description: "Level of detail in explanation",
					Default:     DetailSimple,
				},
			},
			Required: []string{"code"},
		},
		Handler: b.explainCode,
	})

	reg.Register(Capability{
		Name:        ProjectAnalyzer,
		Description: "Analyze Roblox project and suggest improvements",
		InputSchema: Schema{
			Type: "object",
			Properties: map[string]Property{
				"projectStructure": {Type: "object", Description: "Current project structure"},
				"analysisType": {
					Type:        "string",
					Enum:        []string{"performance", "security", "architecture", "all"},
					Description: "Type of analysis to perform",
					Default:     "all",
				},
				"language": languageProperty,
			},
			Required: []string{"projectStructure"},
		},
		Handler: b.analyzeProject,
	})

	reg.Register(Capability{
		Name:        TemplateWizard,
		Description: "Interactive template creation wizard with step-by-step guidance",
		InputSchema: Schema{
			Type: "object",
			Properties: map[string]Property{
				"step": {
					Type:        "string",
					Description: "Current step in the wizard: start, genre, features, style or generate",
				},
				"previousChoices": {Type: "object", Description: "Choices made in previous steps"},
				"language":        languageProperty,
			},
			Required: []string{"step"},
		},
		Handler: b.runWizard,
	})

	reg.Register(Capability{
		Name:        LearningPath,
		Description: "Generate personalized learning path for Roblox development",
		InputSchema: Schema{
			Type: "object",
			Properties: map[string]Property{
				"currentSkills": {Type: "array", Items: &Property{Type: "string"}, Description: "Current Roblox development skills"},
				"goals":         {Type: "array", Items: &Property{Type: "string"}, MinItems: 1, Description: "Learning goals"},
				"timeCommitment": {
					Type:        "string",
					Description: "How much time to dedicate: casual, regular or intensive",
				},
				"language": languageProperty,
			},
			Required: []string{"goals"},
		},
		Handler: b.learningPath,
	})

	registerPlaceholders(reg)
}

func (b Builtins) naturalCommand(_ context.Context, args map[string]any) (Result, error) {
	text, _ := stringArg(args, "command")
	cmd := nlcmd.Command{Text: text}
	if _, ok := args["context"]; ok {
		var cc nlcmd.CommandContext
		if err := decodeArg(args, "context", &cc); err != nil {
			return Result{}, &ValidationError{Name: NaturalCommand, Problems: []string{"/context: " + err.Error()}}
		}
		cmd.Context = &cc
	}
	return DataResult(b.Processor.Process(cmd)), nil
}

func (b Builtins) explainCode(_ context.Context, args map[string]any) (Result, error) {
	code, _ := stringArg(args, "code")
	lang := languageArg(args)
	detail := stringArgOr(args, "detailLevel", DetailSimple)

	preamble, err := b.Templates.Text("explain-code", detail, lang)
	if err != nil {
		return Result{}, fmt.Errorf("%s: %w", CodeExplain, err)
	}
	summary, err := b.Templates.Render("explain-code", "summary", lang, SummarizeCode(code))
	if err != nil {
		return Result{}, fmt.Errorf("%s: %w", CodeExplain, err)
	}
	return TextResult(preamble + summary), nil
}

// CodeSummary is the lexical summary of a Luau snippet.
type CodeSummary struct {
	Functions int `json:"functions"`
	Variables int `json:"variables"`
	Lines     int `json:"lines"`
}

// SummarizeCode counts lines mentioning a function definition, lines
// mentioning a local declaration and the total line count. It does not parse.
func SummarizeCode(code string) CodeSummary {
	lines := strings.Split(code, "\n")
	s := CodeSummary{Lines: len(lines)}
	for _, line := range lines {
		if strings.Contains(line, functionMarker) {
			s.Functions++
		}
		if strings.Contains(line, localMarker) {
			s.Variables++
		}
	}
	return s
}

// ProjectAnalysis is the result of roblox-project-analyzer. Findings and
// recommendations are extension points and currently always empty.
type ProjectAnalysis struct {
	Language        nlcmd.Language `json:"language"`
	AnalysisType    string         `json:"analysisType"`
	Findings        []string       `json:"findings"`
	Recommendations []string       `json:"recommendations"`
}

func (b Builtins) analyzeProject(_ context.Context, args map[string]any) (Result, error) {
	return DataResult(ProjectAnalysis{
		Language:        languageArg(args),
		AnalysisType:    stringArgOr(args, "analysisType", "all"),
		Findings:        []string{},
		Recommendations: []string{},
	}), nil
}

func (b Builtins) runWizard(_ context.Context, args map[string]any) (Result, error) {
	step, _ := stringArg(args, "step")
	state, err := b.Wizard.Run(wizard.Step(step), mapArg(args, "previousChoices"), languageArg(args))
	if err != nil {
		return Result{}, err
	}
	return DataResult(state), nil
}

// Learning path time commitments with a dedicated duration bucket.
const (
	CommitmentIntensive = "intensive"
	CommitmentRegular   = "regular"
)

// LearningPathResult is the result of roblox-learning-path. Modules is an
// extension point and currently always empty.
type LearningPathResult struct {
	Title    string   `json:"title"`
	Duration string   `json:"duration"`
	Modules  []string `json:"modules"`
}

// durationBucket maps a time commitment to its template detail key. Anything
// other than intensive or regular, including no value, gets the default.
func durationBucket(commitment string) string {
	switch commitment {
	case CommitmentIntensive, CommitmentRegular:
		return commitment
	default:
		return "default"
	}
}

// learningPath assumes goals were validated at the boundary.
func (b Builtins) learningPath(_ context.Context, args map[string]any) (Result, error) {
	lang := languageArg(args)
	commitment, _ := stringArg(args, "timeCommitment")

	title, err := b.Templates.Text("learning-path", "title", lang)
	if err != nil {
		return Result{}, fmt.Errorf("%s: %w", LearningPath, err)
	}
	duration, err := b.Templates.Text("learning-path", durationBucket(commitment), lang)
	if err != nil {
		return Result{}, fmt.Errorf("%s: %w", LearningPath, err)
	}
	return DataResult(LearningPathResult{
		Title:    title,
		Duration: duration,
		Modules:  []string{},
	}), nil
}
