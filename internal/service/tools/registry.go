package tools

import (
	"errors"
	"sort"
	"strings"
)

// ErrUsage marks malformed tool arguments. Callers answer with the tool's usage hint.
var ErrUsage = errors.New("invalid tool arguments")

// Tool is a deterministic command invoked with positional arguments.
type Tool struct {
	Name        string
	Usage       string
	Description string
	Run         func(args []string) (string, error)
}

// Registry looks tools up by name.
type Registry struct {
	tools map[string]Tool
}

// NewRegistry registers tools under their lowercased names. Later duplicates win.
func NewRegistry(tools ...Tool) *Registry {
	r := &Registry{tools: make(map[string]Tool, len(tools))}
	for _, t := range tools {
		r.tools[strings.ToLower(t.Name)] = t
	}
	return r
}

// Default returns the built-in tools.
func Default() *Registry {
	return NewRegistry(BMI(), Loan(), Convert(), QR())
}

// Lookup finds a tool by case-insensitive name.
func (r *Registry) Lookup(name string) (Tool, bool) {
	t, ok := r.tools[strings.ToLower(strings.TrimSpace(name))]
	return t, ok
}

// List returns tools sorted by name.
func (r *Registry) List() []Tool {
	out := make([]Tool, 0, len(r.tools))
	for _, t := range r.tools {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
