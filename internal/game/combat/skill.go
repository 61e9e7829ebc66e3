package combat

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/cory-johannsen/quizbattle/internal/game/effect"
)

// SkillKind is what a skill does when it lands.
type SkillKind string

const (
	SkillDamage SkillKind = "damage"
	SkillHeal   SkillKind = "heal"
	SkillBuff   SkillKind = "buff"
)

// Skill is an energy-costing ability loaded from YAML.
type Skill struct {
	ID          string    `yaml:"id"`
	Name        string    `yaml:"name"`
	Description string    `yaml:"description"`
	Cost        int       `yaml:"cost"`
	Kind        SkillKind `yaml:"kind"`
	Power       int       `yaml:"power"`
	// Formula is an optional Lua expression replacing power + intelligence/2.
	Formula string      `yaml:"formula"`
	Effect  *effect.Def `yaml:"effect"`
}

// Validate checks the skill's invariants.
//
// Postcondition: Returns nil iff ID and Name are non-empty, Cost >= 0, Kind is
// known, a buff carries an effect, and any effect is valid.
func (s *Skill) Validate() error {
	if s.ID == "" {
		return fmt.Errorf("skill: id must not be empty")
	}
	if s.Name == "" {
		return fmt.Errorf("skill %q: name must not be empty", s.ID)
	}
	if s.Cost < 0 {
		return fmt.Errorf("skill %q: cost must be >= 0", s.ID)
	}
	switch s.Kind {
	case SkillDamage, SkillHeal:
	case SkillBuff:
		if s.Effect == nil {
			return fmt.Errorf("skill %q: buff requires an effect", s.ID)
		}
	default:
		return fmt.Errorf("skill %q: unknown kind %q", s.ID, s.Kind)
	}
	if s.Effect != nil {
		if err := s.Effect.Validate(); err != nil {
			return fmt.Errorf("skill %q: %w", s.ID, err)
		}
	}
	return nil
}

type skillFile struct {
	Skills []*Skill `yaml:"skills"`
}

// LoadSkills reads every *.yaml file in dir.
//
// Precondition: dir must be a readable directory.
// Postcondition: Returns all skills or an error on the first parse or validate failure.
func LoadSkills(dir string) ([]*Skill, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading skill dir %q: %w", dir, err)
	}
	var skills []*Skill
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".yaml") {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading %q: %w", path, err)
		}
		var f skillFile
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&f); err != nil {
			return nil, fmt.Errorf("parsing %q: %w", path, err)
		}
		for _, s := range f.Skills {
			if err := s.Validate(); err != nil {
				return nil, fmt.Errorf("loading %q: %w", path, err)
			}
		}
		skills = append(skills, f.Skills...)
	}
	return skills, nil
}

// SkillBook is an immutable lookup of skills by id.
type SkillBook struct {
	byID map[string]*Skill
}

// NewSkillBook indexes skills by id.
//
// Postcondition: returns an error if two skills share an id.
func NewSkillBook(skills []*Skill) (*SkillBook, error) {
	byID := make(map[string]*Skill, len(skills))
	for _, s := range skills {
		if _, dup := byID[s.ID]; dup {
			return nil, fmt.Errorf("skill %q: duplicate id", s.ID)
		}
		byID[s.ID] = s
	}
	return &SkillBook{byID: byID}, nil
}

// Get returns the skill with id.
func (b *SkillBook) Get(id string) (*Skill, bool) {
	s, ok := b.byID[id]
	return s, ok
}

// All returns every skill sorted by id.
func (b *SkillBook) All() []*Skill {
	out := make([]*Skill, 0, len(b.byID))
	for _, s := range b.byID {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
