// Package templates provides the localised canned text used by capability
// handlers, the wizard and the prompt catalog.
//
// Text is organised as scenario -> detail -> language. The default catalog is
// embedded in the binary (catalog.yaml); operators may overlay a YAML file with
// the same shape to reword or add entries without rebuilding.
//
// Every entry is a Go text/template. Templates are trusted operator content;
// user-submitted text must only ever be passed as render data, never parsed.
package templates

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"sync"
	"text/template"

	"gopkg.in/yaml.v3"

	"github.com/robloxmcp/studio-assist/internal/nlcmd"
)

//go:embed catalog.yaml
var defaultCatalog []byte

// ErrTemplateNotFound is returned when neither the requested language nor
// the English fallback exists for a scenario/detail pair.
var ErrTemplateNotFound = errors.New("template not found")

// catalogFile is the on-disk YAML shape.
type catalogFile map[string]map[string]map[string]string

type entry struct {
	raw  string
	tmpl *template.Template
}

// Store is an immutable, concurrency-safe set of parsed templates.
type Store struct {
	entries map[string]map[string]map[nlcmd.Language]entry
}

var (
	defaultOnce  sync.Once
	defaultStore *Store
)

// Default returns the embedded catalog. It panics if the embedded YAML is
// malformed, which is a build-time defect.
func Default() *Store {
	defaultOnce.Do(func() {
		s, err := Parse(defaultCatalog)
		if err != nil {
			panic("templates: embedded catalog: " + err.Error())
		}
		defaultStore = s
	})
	return defaultStore
}

// Parse decodes a YAML catalog and compiles every entry.
func Parse(data []byte) (*Store, error) {
	var raw catalogFile
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("templates: parse catalog: %w", err)
	}

	s := &Store{entries: make(map[string]map[string]map[nlcmd.Language]entry, len(raw))}
	for scenario, details := range raw {
		for detail, langs := range details {
			for tag, text := range langs {
				lang, ok := nlcmd.ParseLanguage(tag)
				if !ok || tag == "" {
					return nil, fmt.Errorf("templates: %s/%s: unsupported language %q", scenario, detail, tag)
				}
				name := scenario + "/" + detail + "/" + string(lang)
				tmpl, err := template.New(name).Option("missingkey=error").Parse(text)
				if err != nil {
					return nil, fmt.Errorf("templates: %s: %w", name, err)
				}
				s.put(scenario, detail, lang, entry{raw: text, tmpl: tmpl})
			}
		}
	}
	return s, nil
}

// Load reads and parses the catalog at path within fsys.
func Load(fsys fs.FS, path string) (*Store, error) {
	data, err := fs.ReadFile(fsys, path)
	if err != nil {
		return nil, fmt.Errorf("templates: read %s: %w", path, err)
	}
	return Parse(data)
}

// Overlay returns a new Store containing every entry of s, replaced or
// extended by the entries of over.
func (s *Store) Overlay(over *Store) *Store {
	merged := &Store{entries: make(map[string]map[string]map[nlcmd.Language]entry)}
	for _, src := range []*Store{s, over} {
		for scenario, details := range src.entries {
			for detail, langs := range details {
				for lang, e := range langs {
					merged.put(scenario, detail, lang, e)
				}
			}
		}
	}
	return merged
}

func (s *Store) put(scenario, detail string, lang nlcmd.Language, e entry) {
	details, ok := s.entries[scenario]
	if !ok {
		details = make(map[string]map[nlcmd.Language]entry)
		s.entries[scenario] = details
	}
	langs, ok := details[detail]
	if !ok {
		langs = make(map[nlcmd.Language]entry)
		details[detail] = langs
	}
	langs[lang] = e
}

func (s *Store) lookup(scenario, detail string, lang nlcmd.Language) (entry, error) {
	langs := s.entries[scenario][detail]
	if e, ok := langs[lang]; ok {
		return e, nil
	}
	if e, ok := langs[nlcmd.English]; ok {
		return e, nil
	}
	return entry{}, fmt.Errorf("%w: %s/%s (%s)", ErrTemplateNotFound, scenario, detail, lang)
}

// Text returns the unrendered text for scenario/detail in lang.
func (s *Store) Text(scenario, detail string, lang nlcmd.Language) (string, error) {
	e, err := s.lookup(scenario, detail, lang)
	if err != nil {
		return "", err
	}
	return e.raw, nil
}

// Render executes the template for scenario/detail in lang against data.
func (s *Store) Render(scenario, detail string, lang nlcmd.Language, data any) (string, error) {
	e, err := s.lookup(scenario, detail, lang)
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	if err := e.tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("templates: render %s: %w", e.tmpl.Name(), err)
	}
	return buf.String(), nil
}
