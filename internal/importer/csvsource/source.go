// Package csvsource imports questions from spreadsheet exports.
package csvsource

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/cory-johannsen/quizbattle/internal/game/question"
	"github.com/cory-johannsen/quizbattle/internal/importer"
)

var _ importer.Source = (*CSVSource)(nil)

// OptionSeparator splits the options column into choices.
const OptionSeparator = "|"

var requiredColumns = []string{"text", "answer", "difficulty"}

// CSVSource implements importer.Source for a directory of *.csv files with a
// header row. Columns text, answer and difficulty are required; id, options,
// min_level and content_id are optional. A missing id is derived from the
// content id and question text.
type CSVSource struct{}

// NewSource constructs a CSVSource.
func NewSource() *CSVSource { return &CSVSource{} }

// Load reads every *.csv file in sourceDir in file name order.
//
// Precondition: sourceDir must be a readable directory.
// Postcondition: returns one question per data row, or a non-nil error
// naming the file and line of the first malformed row.
func (s *CSVSource) Load(sourceDir string) ([]question.Info, error) {
	paths, err := filepath.Glob(filepath.Join(sourceDir, "*.csv"))
	if err != nil {
		return nil, err
	}
	if _, err := os.Stat(sourceDir); err != nil {
		return nil, fmt.Errorf("source directory: %w", err)
	}
	sort.Strings(paths)

	var all []question.Info
	for _, path := range paths {
		qs, err := loadFile(path)
		if err != nil {
			return nil, err
		}
		all = append(all, qs...)
	}
	return all, nil
}

func loadFile(path string) ([]question.Info, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %q: %w", path, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.TrimLeadingSpace = true
	header, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("%s: reading header: %w", path, err)
	}
	cols := make(map[string]int, len(header))
	for i, h := range header {
		cols[strings.ToLower(strings.TrimSpace(h))] = i
	}
	for _, c := range requiredColumns {
		if _, ok := cols[c]; !ok {
			return nil, fmt.Errorf("%s: missing required column %q", path, c)
		}
	}

	var out []question.Info
	for {
		rec, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		line, _ := r.FieldPos(0)
		q, err := parseRow(cols, rec)
		if err != nil {
			return nil, fmt.Errorf("%s:%d: %w", path, line, err)
		}
		out = append(out, q)
	}
	return out, nil
}

func parseRow(cols map[string]int, rec []string) (question.Info, error) {
	field := func(name string) string {
		i, ok := cols[name]
		if !ok || i >= len(rec) {
			return ""
		}
		return strings.TrimSpace(rec[i])
	}

	q := question.Info{
		ID:            field("id"),
		Text:          field("text"),
		CorrectAnswer: field("answer"),
		Difficulty:    question.Difficulty(strings.ToLower(field("difficulty"))),
		ContentID:     field("content_id"),
	}
	if opts := field("options"); opts != "" {
		for _, o := range strings.Split(opts, OptionSeparator) {
			if o = strings.TrimSpace(o); o != "" {
				q.Options = append(q.Options, o)
			}
		}
	}
	if lvl := field("min_level"); lvl != "" {
		n, err := strconv.Atoi(lvl)
		if err != nil {
			return question.Info{}, fmt.Errorf("min_level %q: %w", lvl, err)
		}
		q.MinLevel = n
	}
	if q.ID == "" {
		q.ID = importer.NameToID(strings.TrimSpace(q.ContentID + " " + q.Text))
	}
	return q, nil
}
