// File: internal/recipe/load.go
// Brief: jakefile.yaml loader producing the engine's recipe set.

package recipe

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// DefaultFileName is the recipe file jake looks for in the working directory.
const DefaultFileName = "jakefile.yaml"

// EnvVarPrefix marks environment entries that seed the variable bindings,
// e.g. JAKE_VAR_target=release becomes {{target}}.
const EnvVarPrefix = "JAKE_VAR_"

type fileDoc struct {
	Vars    map[string]string `yaml:"vars,omitempty"`
	Recipes []recipeDoc       `yaml:"recipes"`
}

type recipeDoc struct {
	Name     string   `yaml:"name"`
	Kind     string   `yaml:"kind,omitempty"`
	Deps     []string `yaml:"deps,omitempty"`
	Run      []string `yaml:"run,omitempty"`
	Params   []Param  `yaml:"params,omitempty"`
	Hooks    Hooks    `yaml:"hooks,omitempty"`
	Output   string   `yaml:"output,omitempty"`
	FileDeps []string `yaml:"file_deps,omitempty"`
	OnlyOS   []string `yaml:"only_os,omitempty"`
	Quiet    bool     `yaml:"quiet,omitempty"`
}

// Load reads and parses a recipe file. It returns the recipe set and the
// initial variable bindings (file vars layered over JAKE_VAR_* environment
// entries; the file wins on conflict).
func Load(path string) (*Set, map[string]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, err
	}
	set, vars, err := Parse(data)
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w", path, err)
	}
	return set, vars, nil
}

// Parse decodes recipe file contents.
func Parse(data []byte) (*Set, map[string]string, error) {
	var doc fileDoc
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, nil, err
	}
	recipes := make([]*Recipe, 0, len(doc.Recipes))
	for i := range doc.Recipes {
		r, err := buildRecipe(&doc.Recipes[i])
		if err != nil {
			return nil, nil, err
		}
		recipes = append(recipes, r)
	}
	set, err := NewSet(recipes)
	if err != nil {
		return nil, nil, err
	}

	vars := EnvBindings(os.Environ())
	for k, v := range doc.Vars {
		vars[k] = v
	}
	return set, vars, nil
}

// EnvBindings extracts JAKE_VAR_* entries from an environment list.
func EnvBindings(environ []string) map[string]string {
	out := map[string]string{}
	for _, kv := range environ {
		if !strings.HasPrefix(kv, EnvVarPrefix) {
			continue
		}
		rest := strings.TrimPrefix(kv, EnvVarPrefix)
		name, value, ok := strings.Cut(rest, "=")
		if !ok || name == "" {
			continue
		}
		out[name] = value
	}
	return out
}

func buildRecipe(doc *recipeDoc) (*Recipe, error) {
	name := strings.TrimSpace(doc.Name)
	if name == "" {
		return nil, fmt.Errorf("recipe with empty name")
	}
	kind, err := resolveKind(doc)
	if err != nil {
		return nil, fmt.Errorf("recipe %q: %w", name, err)
	}
	if kind == KindFile && strings.TrimSpace(doc.Output) == "" {
		return nil, fmt.Errorf("recipe %q: file recipe requires an output", name)
	}
	cmds := make([]Command, 0, len(doc.Run))
	for _, line := range doc.Run {
		cmd, err := tagCommand(line)
		if err != nil {
			return nil, fmt.Errorf("recipe %q: %w", name, err)
		}
		cmds = append(cmds, cmd)
	}
	return &Recipe{
		Name:     name,
		Kind:     kind,
		Deps:     doc.Deps,
		Commands: cmds,
		Params:   doc.Params,
		Hooks:    doc.Hooks,
		Output:   strings.TrimSpace(doc.Output),
		FileDeps: doc.FileDeps,
		OnlyOS:   doc.OnlyOS,
		Quiet:    doc.Quiet,
	}, nil
}

func resolveKind(doc *recipeDoc) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(doc.Kind)) {
	case "":
		if strings.TrimSpace(doc.Output) != "" {
			return KindFile, nil
		}
		return KindTask, nil
	case "task":
		return KindTask, nil
	case "file":
		return KindFile, nil
	case "simple":
		return KindSimple, nil
	default:
		return "", fmt.Errorf("unknown kind %q", doc.Kind)
	}
}

var knownDirectives = map[string]Directive{
	"if":      DirectiveIf,
	"elif":    DirectiveElif,
	"else":    DirectiveElse,
	"end":     DirectiveEnd,
	"each":    DirectiveEach,
	"ignore":  DirectiveIgnore,
	"needs":   DirectiveNeeds,
	"confirm": DirectiveConfirm,
	"cache":   DirectiveCache,
	"watch":   DirectiveWatch,
	"launch":  DirectiveLaunch,
}

func tagCommand(line string) (Command, error) {
	trimmed := strings.TrimSpace(line)
	if !strings.HasPrefix(trimmed, "@") {
		if trimmed == "" {
			return Command{}, fmt.Errorf("empty command line")
		}
		return Command{Line: line}, nil
	}
	word, rest, _ := strings.Cut(strings.TrimPrefix(trimmed, "@"), " ")
	d, ok := knownDirectives[strings.ToLower(word)]
	if !ok {
		return Command{}, fmt.Errorf("unknown directive @%s", word)
	}
	return Command{Line: strings.TrimSpace(rest), Directive: d}, nil
}
