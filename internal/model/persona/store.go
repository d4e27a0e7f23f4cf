package persona

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Store exposes persona retrieval for the dispatcher and HTTP handlers.
type Store interface {
	List() []Persona
	FindByID(id string) (Persona, bool)
	// Resolve returns the persona for id, falling back to the default persona.
	Resolve(id string) Persona
}

// MemoryStore implements Store with an in-memory slice. It is read-only after construction.
type MemoryStore struct {
	items []Persona
}

// NewMemoryStore returns a MemoryStore preloaded with the supplied personas.
// Keys are matched case-insensitively.
func NewMemoryStore(items []Persona) *MemoryStore {
	copied := make([]Persona, 0, len(items))
	for _, item := range items {
		item.ID = strings.ToLower(strings.TrimSpace(item.ID))
		copied = append(copied, item)
	}
	return &MemoryStore{items: copied}
}

// List returns the persona catalog in declaration order.
func (s *MemoryStore) List() []Persona {
	return append([]Persona(nil), s.items...)
}

// FindByID looks up a persona by key.
func (s *MemoryStore) FindByID(id string) (Persona, bool) {
	id = strings.ToLower(strings.TrimSpace(id))
	for _, item := range s.items {
		if item.ID == id {
			return item, true
		}
	}
	return Persona{}, false
}

// Resolve looks up id and falls back to DefaultID, then to the first catalog entry.
func (s *MemoryStore) Resolve(id string) Persona {
	if p, ok := s.FindByID(id); ok {
		return p
	}
	if p, ok := s.FindByID(DefaultID); ok {
		return p
	}
	if len(s.items) > 0 {
		return s.items[0]
	}
	return Persona{ID: DefaultID, Name: DefaultID}
}

type catalogFile struct {
	Personas []Persona `yaml:"personas"`
}

// LoadFile reads a YAML persona catalog:
//
//	personas:
//	  - id: teacher
//	    name: ครูใจดี
//	    style: ...
//
// The catalog must contain the default persona.
func LoadFile(path string) ([]Persona, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read persona file: %w", err)
	}
	return Parse(raw)
}

// Parse decodes a YAML persona catalog.
func Parse(raw []byte) ([]Persona, error) {
	var file catalogFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("decode persona catalog: %w", err)
	}
	if len(file.Personas) == 0 {
		return nil, errors.New("persona catalog is empty")
	}

	seen := make(map[string]struct{}, len(file.Personas))
	hasDefault := false
	for i, p := range file.Personas {
		id := strings.ToLower(strings.TrimSpace(p.ID))
		if id == "" || strings.ContainsAny(id, " \t\n") {
			return nil, fmt.Errorf("persona #%d: invalid id %q", i+1, p.ID)
		}
		if strings.TrimSpace(p.Style) == "" {
			return nil, fmt.Errorf("persona %q: style is required", id)
		}
		if _, dup := seen[id]; dup {
			return nil, fmt.Errorf("persona %q: duplicate id", id)
		}
		seen[id] = struct{}{}
		if id == DefaultID {
			hasDefault = true
		}
		if p.Name == "" {
			file.Personas[i].Name = id
		}
		file.Personas[i].ID = id
	}
	if !hasDefault {
		return nil, fmt.Errorf("persona catalog must define %q", DefaultID)
	}
	return file.Personas, nil
}
