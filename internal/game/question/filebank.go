package question

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/cory-johannsen/quizbattle/internal/game/dice"
)

// bankFile is the on-disk layout of one question YAML file.
type bankFile struct {
	Questions []Info `yaml:"questions"`
}

// FileBank is an in-memory Provider loaded from YAML files.
// It is read-only after construction and safe for concurrent use when src is.
type FileBank struct {
	questions []Info
	src       dice.Source
}

// NewFileBank creates a FileBank over questions, picking among eligible
// questions with src.
//
// Precondition: src must be non-nil.
// Postcondition: returns an error if any question is invalid or ids repeat.
func NewFileBank(questions []Info, src dice.Source) (*FileBank, error) {
	seen := make(map[string]bool, len(questions))
	qs := make([]Info, 0, len(questions))
	for _, q := range questions {
		if err := q.Validate(); err != nil {
			return nil, err
		}
		if seen[q.ID] {
			return nil, fmt.Errorf("question %q: duplicate id", q.ID)
		}
		seen[q.ID] = true
		qs = append(qs, q)
	}
	sort.Slice(qs, func(i, j int) bool { return qs[i].ID < qs[j].ID })
	return &FileBank{questions: qs, src: src}, nil
}

// LoadFileBank reads every *.yaml file in dir and builds a FileBank.
//
// Precondition: dir must be a readable directory.
func LoadFileBank(dir string, src dice.Source) (*FileBank, error) {
	all, err := LoadQuestions(dir)
	if err != nil {
		return nil, err
	}
	return NewFileBank(all, src)
}

// LoadQuestions reads the questions of every *.yaml file in dir, in file name order.
//
// Precondition: dir must be a readable directory.
// Postcondition: questions are returned as written; validation is left to the caller.
func LoadQuestions(dir string) ([]Info, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading question dir %q: %w", dir, err)
	}
	var all []Info
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".yaml") {
			continue
		}
		path := filepath.Join(dir, e.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading %q: %w", path, err)
		}
		qs, err := ParseQuestions(data)
		if err != nil {
			return nil, fmt.Errorf("parsing %q: %w", path, err)
		}
		all = append(all, qs...)
	}
	return all, nil
}

// ParseQuestions decodes one question YAML document.
func ParseQuestions(data []byte) ([]Info, error) {
	var f bankFile
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		return nil, err
	}
	return f.Questions, nil
}

// Len returns the number of questions in the bank.
func (b *FileBank) Len() int { return len(b.questions) }

// FetchQuestion picks uniformly among questions eligible for req.
func (b *FileBank) FetchQuestion(ctx context.Context, req Request) (Info, error) {
	if err := ctx.Err(); err != nil {
		return Info{}, err
	}
	var eligible []Info
	for _, q := range b.questions {
		if Eligible(q, req) {
			eligible = append(eligible, q)
		}
	}
	if len(eligible) == 0 {
		return Info{}, ErrNoQuestionAvailable
	}
	q := eligible[b.src.Intn(len(eligible))]
	q.Options = append([]string(nil), q.Options...)
	return q, nil
}
