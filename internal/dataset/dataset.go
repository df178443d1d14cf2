// Package dataset loads evaluation inputs: the test-case CSV and the novels directory.
package dataset

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"strings"

	"github.com/ppiankov/backcheck/internal/model"
)

// ErrMissingColumn is returned when the test CSV lacks a required column
var ErrMissingColumn = errors.New("missing required column")

var requiredColumns = []string{"story_id", "novel_id", "backstory"}

// characterColumns are accepted spellings of the optional character column
var characterColumns = []string{"character_name", "character", "char"}

// LoadCases reads test cases from a CSV with a header row containing
// story_id, novel_id, backstory and optionally character_name.
func LoadCases(path string) ([]model.Case, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open test file: %w", err)
	}
	defer func() { _ = f.Close() }()

	cases, err := ReadCases(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cases, nil
}

// ReadCases parses the test CSV format from r
func ReadCases(r io.Reader) ([]model.Case, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("%w: empty file", ErrMissingColumn)
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}

	cols := make(map[string]int, len(header))
	for i, h := range header {
		h = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\uFEFF")))
		cols[h] = i
	}
	for _, c := range requiredColumns {
		if _, ok := cols[c]; !ok {
			return nil, fmt.Errorf("%w: %s", ErrMissingColumn, c)
		}
	}
	charCol := -1
	for _, c := range characterColumns {
		if i, ok := cols[c]; ok {
			charCol = i
			break
		}
	}

	field := func(rec []string, i int) string {
		if i < 0 || i >= len(rec) {
			return ""
		}
		return strings.TrimSpace(rec[i])
	}

	var cases []model.Case
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read row: %w", err)
		}
		if strings.TrimSpace(strings.Join(rec, "")) == "" {
			continue
		}

		line, _ := cr.FieldPos(0)
		c := model.Case{
			StoryID:    field(rec, cols["story_id"]),
			DocumentID: field(rec, cols["novel_id"]),
			Backstory:  field(rec, cols["backstory"]),
			Character:  field(rec, charCol),
		}
		if c.StoryID == "" {
			return nil, fmt.Errorf("line %d: empty story_id", line)
		}
		if c.DocumentID == "" {
			return nil, fmt.Errorf("line %d: empty novel_id for story %s", line, c.StoryID)
		}
		cases = append(cases, c)
	}
	return cases, nil
}

// Novel is one novel file; its ID is the file name without extension
type Novel struct {
	ID   string
	Path string
}

// Load reads the novel's text
func (n Novel) Load() (string, error) {
	data, err := os.ReadFile(n.Path)
	if err != nil {
		return "", fmt.Errorf("read novel %s: %w", n.ID, err)
	}
	return string(data), nil
}

// LoadNovels lists the *.txt files of dir, sorted by ID
func LoadNovels(dir string) ([]Novel, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("novels directory: %w", err)
	}

	var novels []Novel
	for _, e := range entries {
		if e.IsDir() || !strings.EqualFold(filepath.Ext(e.Name()), ".txt") {
			continue
		}
		novels = append(novels, Novel{
			ID:   strings.TrimSuffix(e.Name(), filepath.Ext(e.Name())),
			Path: filepath.Join(dir, e.Name()),
		})
	}
	if len(novels) == 0 {
		return nil, fmt.Errorf("no .txt files found in %s", dir)
	}
	slices.SortFunc(novels, func(a, b Novel) int { return strings.Compare(a.ID, b.ID) })
	return novels, nil
}

// Referenced keeps only novels some case points at, and returns the IDs
// cases reference that have no file.
func Referenced(novels []Novel, cases []model.Case) (used []Novel, missing []string) {
	want := make(map[string]bool)
	for _, c := range cases {
		want[c.DocumentID] = true
	}
	have := make(map[string]bool)
	for _, n := range novels {
		if want[n.ID] {
			used = append(used, n)
			have[n.ID] = true
		}
	}
	for id := range want {
		if !have[id] {
			missing = append(missing, id)
		}
	}
	slices.Sort(missing)
	return used, missing
}

var nonSlug = regexp.MustCompile(`[^a-z0-9]+`)

// NovelFileName turns a title into a novels-directory file name
func NovelFileName(title string) string {
	slug := strings.Trim(nonSlug.ReplaceAllString(strings.ToLower(title), "_"), "_")
	if slug == "" {
		slug = "novel"
	}
	return slug + ".txt"
}

// ReadURLList reads URLs from a file (one per line), skipping blanks,
// comments and duplicates
func ReadURLList(path string) ([]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}
	defer func() { _ = file.Close() }()

	var urls []string
	seen := make(map[string]bool)

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") || seen[line] {
			continue
		}
		seen[line] = true
		urls = append(urls, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan file: %w", err)
	}
	return urls, nil
}
