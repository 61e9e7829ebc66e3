// Package monster provides the monster catalog loaded from YAML.
package monster

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// Template defines a monster a character can battle.
type Template struct {
	ID          string `yaml:"id"`
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
	HP          int    `yaml:"hp"`
	BaseDamage  int    `yaml:"base_damage"`
	XPReward    int    `yaml:"xp_reward"`
	// ImagePath is carried for display clients; the engine ignores it.
	ImagePath string `yaml:"image_path"`
}

// Validate checks that the template satisfies basic invariants.
//
// Precondition: t must not be nil.
// Postcondition: Returns nil iff ID and Name are non-empty, HP >= 1,
// BaseDamage >= 0 and XPReward >= 0.
func (t *Template) Validate() error {
	if t.ID == "" {
		return fmt.Errorf("monster template: id must not be empty")
	}
	if t.Name == "" {
		return fmt.Errorf("monster template %q: name must not be empty", t.ID)
	}
	if t.HP < 1 {
		return fmt.Errorf("monster template %q: hp must be >= 1", t.ID)
	}
	if t.BaseDamage < 0 {
		return fmt.Errorf("monster template %q: base_damage must be >= 0", t.ID)
	}
	if t.XPReward < 0 {
		return fmt.Errorf("monster template %q: xp_reward must be >= 0", t.ID)
	}
	return nil
}

// LoadTemplateFromBytes parses a single monster template from raw YAML bytes.
//
// Postcondition: Returns a validated *Template, or an error.
func LoadTemplateFromBytes(data []byte) (*Template, error) {
	var tmpl Template
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&tmpl); err != nil {
		return nil, fmt.Errorf("parsing monster YAML: %w", err)
	}
	if err := tmpl.Validate(); err != nil {
		return nil, err
	}
	return &tmpl, nil
}

// LoadTemplates reads all *.yaml files in dir and returns the parsed templates.
//
// Precondition: dir must be a readable directory.
// Postcondition: Returns all templates or an error on the first parse or
// validate failure.
func LoadTemplates(dir string) ([]*Template, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading monster dir %q: %w", dir, err)
	}
	var templates []*Template
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".yaml") {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading %q: %w", path, err)
		}
		tmpl, err := LoadTemplateFromBytes(data)
		if err != nil {
			return nil, fmt.Errorf("loading %q: %w", path, err)
		}
		templates = append(templates, tmpl)
	}
	return templates, nil
}

// Catalog is an immutable lookup of templates by id.
type Catalog struct {
	byID map[string]*Template
}

// NewCatalog indexes templates by id.
//
// Postcondition: returns an error if two templates share an id.
func NewCatalog(templates []*Template) (*Catalog, error) {
	byID := make(map[string]*Template, len(templates))
	for _, t := range templates {
		if _, dup := byID[t.ID]; dup {
			return nil, fmt.Errorf("monster template %q: duplicate id", t.ID)
		}
		byID[t.ID] = t
	}
	return &Catalog{byID: byID}, nil
}

// LoadCatalog loads every template in dir into a Catalog.
func LoadCatalog(dir string) (*Catalog, error) {
	templates, err := LoadTemplates(dir)
	if err != nil {
		return nil, err
	}
	return NewCatalog(templates)
}

// Get returns a copy of the template with id.
func (c *Catalog) Get(id string) (*Template, bool) {
	t, ok := c.byID[id]
	if !ok {
		return nil, false
	}
	cp := *t
	return &cp, true
}

// All returns copies of every template sorted by id.
func (c *Catalog) All() []*Template {
	out := make([]*Template, 0, len(c.byID))
	for _, t := range c.byID {
		cp := *t
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
