// Package prompts holds the catalog of conversational prompts offered to MCP
// clients alongside the capabilities: guided game creation, script drafting
// from a description, debugging help and the Korean-mode switch.
//
// A prompt renders to a single block of localised text. Rendering never calls
// a capability; clients decide what to do with the text.
package prompts

import (
	"context"
	"errors"
	"fmt"

	"github.com/robloxmcp/studio-assist/internal/capability"
	"github.com/robloxmcp/studio-assist/internal/nlcmd"
	"github.com/robloxmcp/studio-assist/internal/observability"
	"github.com/robloxmcp/studio-assist/internal/templates"
)

// Prompt names.
const (
	GameWizard      = "roblox-game-wizard"
	ScriptAssistant = "roblox-script-assistant"
	DebugHelper     = "roblox-debug-helper"
	KoreanMode      = "roblox-korean-mode"
)

// ErrUnknownPrompt is returned by Render for a name that is not in the
// catalog.
var ErrUnknownPrompt = errors.New("unknown prompt")

// Argument describes one named prompt argument.
type Argument struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Required    bool   `json:"required"`
}

// Prompt is a catalog entry.
type Prompt struct {
	Name        string     `json:"name"`
	Description string     `json:"description"`
	Arguments   []Argument `json:"arguments"`

	render renderFunc
}

type renderFunc func(r *Registry, args map[string]string) (string, error)

// Registry renders prompts from a template store. It is read-only after
// construction and safe for concurrent use.
type Registry struct {
	templates *templates.Store
	prompts   []Prompt
	byName    map[string]int
}

// NewRegistry returns the prompt catalog backed by store, or by the embedded
// templates when store is nil.
func NewRegistry(store *templates.Store) *Registry {
	if store == nil {
		store = templates.Default()
	}
	r := &Registry{templates: store, byName: make(map[string]int)}
	for _, p := range catalog() {
		r.byName[p.Name] = len(r.prompts)
		r.prompts = append(r.prompts, p)
	}
	return r
}

var languageArgument = Argument{Name: "language", Description: "Preferred language (ko/en)"}

func catalog() []Prompt {
	return []Prompt{
		{
			Name:        GameWizard,
			Description: "Interactive game creation wizard that guides through game setup in natural language",
			Arguments:   []Argument{languageArgument},
			render:      renderGameWizard,
		},
		{
			Name:        ScriptAssistant,
			Description: "Natural language script generator that turns descriptions into Luau code",
			Arguments: []Argument{
				{Name: "description", Description: "Natural language description of what the script should do", Required: true},
				{Name: "scriptType", Description: "Type of script (auto-detected if not specified)"},
				languageArgument,
			},
			render: renderScriptAssistant,
		},
		{
			Name:        DebugHelper,
			Description: "Debugging assistant that analyzes code and suggests fixes",
			Arguments: []Argument{
				{Name: "code", Description: "The problematic code", Required: true},
				{Name: "error", Description: "Error message or unexpected behavior"},
				languageArgument,
			},
			render: renderDebugHelper,
		},
		{
			Name:        KoreanMode,
			Description: "한국어 모드 - 모든 명령어와 응답을 한국어로 처리",
			Arguments:   []Argument{},
			render:      renderKoreanMode,
		},
	}
}

// List returns every prompt in catalog order.
func (r *Registry) List() []Prompt {
	return append([]Prompt(nil), r.prompts...)
}

// Get returns the prompt registered under name.
func (r *Registry) Get(name string) (Prompt, bool) {
	i, ok := r.byName[name]
	if !ok {
		return Prompt{}, false
	}
	return r.prompts[i], true
}

// Render validates args against the prompt's declared arguments and returns
// its text. A missing required argument or an unsupported language is a
// *capability.ValidationError.
func (r *Registry) Render(ctx context.Context, name string, args map[string]string) (string, error) {
	p, ok := r.Get(name)
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownPrompt, name)
	}
	if args == nil {
		args = map[string]string{}
	}
	if err := p.validate(args); err != nil {
		return "", err
	}
	text, err := p.render(r, args)
	if err != nil {
		return "", fmt.Errorf("prompt %s: %w", name, err)
	}
	observability.WithTrace(ctx).Debug("prompt rendered", "prompt", name, "bytes", len(text))
	return text, nil
}

func (p Prompt) validate(args map[string]string) error {
	var problems []string
	for _, a := range p.Arguments {
		if a.Required && args[a.Name] == "" {
			problems = append(problems, "/"+a.Name+": required argument missing")
		}
	}
	if tag, ok := args["language"]; ok {
		if _, ok := nlcmd.ParseLanguage(tag); !ok {
			problems = append(problems, fmt.Sprintf("/language: unsupported language %q", tag))
		}
	}
	if len(problems) > 0 {
		return &capability.ValidationError{Name: p.Name, Problems: problems}
	}
	return nil
}

// language resolves the explicit language argument, falling back to the
// language of sample text and then to the default.
func language(args map[string]string, sample string) nlcmd.Language {
	if tag := args["language"]; tag != "" {
		if lang, ok := nlcmd.ParseLanguage(tag); ok {
			return lang
		}
	}
	if sample != "" {
		return nlcmd.Detect(sample)
	}
	return nlcmd.DefaultLanguage
}

func renderGameWizard(r *Registry, args map[string]string) (string, error) {
	return r.templates.Text("prompt", "game-creation", language(args, ""))
}

func renderKoreanMode(r *Registry, _ map[string]string) (string, error) {
	return r.templates.Text("prompt", "korean-mode", nlcmd.Korean)
}

func renderDebugHelper(r *Registry, args map[string]string) (string, error) {
	lang := language(args, args["error"])
	return r.templates.Render("prompt", "debug", lang, struct{ Error string }{args["error"]})
}

func renderScriptAssistant(r *Registry, args map[string]string) (string, error) {
	desc := args["description"]
	lang := language(args, desc)
	if feature := MatchFeature(desc, lang); feature != "" {
		return r.templates.Render("prompt", "script-matched", lang, struct {
			Feature    string
			ScriptType string
		}{feature, args["scriptType"]})
	}
	return r.templates.Render("prompt", "script-unmatched", lang, struct{ Description string }{desc})
}
