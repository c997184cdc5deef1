package prompts

import (
	"bytes"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"text/template"
)

// Name identifies a prompt template.
type Name string

// Registered templates.
const (
	Notes        Name = "notes"
	PracticeTest Name = "practice_test"
	Flashcards   Name = "flashcards"
	Chat         Name = "chat"
	Evaluate     Name = "evaluate"
	Diagram      Name = "diagram"
)

// Names lists every registered template in a stable order.
func Names() []Name {
	return []Name{Notes, PracticeTest, Flashcards, Chat, Evaluate, Diagram}
}

//go:embed templates/*.tmpl
var builtin embed.FS

var funcs = template.FuncMap{
	"join": strings.Join,
	"inc":  func(i int) int { return i + 1 },
}

// Set is an immutable collection of parsed templates. It is safe for
// concurrent use.
type Set struct {
	templates map[Name]*template.Template
	sources   map[Name]string
}

// Load parses the built-in templates and applies overrides from dir. An empty
// dir means built-ins only. A missing dir is an error; a dir that lacks some
// templates is not.
func Load(dir string) (*Set, error) {
	s := &Set{
		templates: make(map[Name]*template.Template, len(Names())),
		sources:   make(map[Name]string, len(Names())),
	}

	if dir != "" {
		info, err := os.Stat(dir)
		if err != nil {
			return nil, fmt.Errorf("%w: prompt dir %s: %v", ErrLoad, dir, err)
		}
		if !info.IsDir() {
			return nil, fmt.Errorf("%w: prompt dir %s is not a directory", ErrLoad, dir)
		}
	}

	for _, name := range Names() {
		text, source, err := readTemplate(dir, name)
		if err != nil {
			return nil, err
		}
		tmpl, err := template.New(string(name)).
			Funcs(funcs).
			Option("missingkey=error").
			Parse(text)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrLoad, source, err)
		}
		s.templates[name] = tmpl
		s.sources[name] = source
	}
	return s, nil
}

// MustLoad is Load for callers that only use the built-in templates.
func MustLoad(dir string) *Set {
	s, err := Load(dir)
	if err != nil {
		panic(err)
	}
	return s
}

func readTemplate(dir string, name Name) (string, string, error) {
	file := string(name) + ".tmpl"
	if dir != "" {
		path := filepath.Join(dir, file)
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			return string(data), path, nil
		case !errors.Is(err, fs.ErrNotExist):
			return "", "", fmt.Errorf("%w: %s: %v", ErrLoad, path, err)
		}
	}

	data, err := builtin.ReadFile("templates/" + file)
	if err != nil {
		return "", "", fmt.Errorf("%w: built-in %s: %v", ErrLoad, file, err)
	}
	return string(data), "builtin:" + file, nil
}

// Render executes the named template with data and returns the trimmed
// prompt text.
func (s *Set) Render(name Name, data any) (string, error) {
	tmpl, ok := s.templates[name]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownTemplate, name)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("%w: %s: %v", ErrRender, name, err)
	}
	return strings.TrimSpace(buf.String()), nil
}

// Source reports where the named template was loaded from: a file path for
// overrides or "builtin:<file>".
func (s *Set) Source(name Name) string {
	return s.sources[name]
}
