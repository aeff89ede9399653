// Package faq holds the categorised FAQ dataset and its search filter.
package faq

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"strings"

	"golang.org/x/text/cases"
	"gopkg.in/yaml.v3"
)

// Entry is a single question and answer.
type Entry struct {
	Question string `yaml:"question" json:"question"`
	Answer   string `yaml:"answer" json:"answer"`
}

// Category groups entries under a stable id.
type Category struct {
	ID      string  `yaml:"id" json:"id"`
	Name    string  `yaml:"name" json:"name"`
	Entries []Entry `yaml:"entries" json:"entries"`
}

type document struct {
	Categories []Category `yaml:"categories"`
}

//go:embed faq.yaml
var defaultData []byte

var defaultCategories = mustParse(defaultData)

// Default returns a copy of the built-in dataset.
func Default() []Category {
	return clone(defaultCategories)
}

// Load reads a dataset from a YAML file, falling back to Default when the
// file does not exist.
func Load(path string) ([]Category, error) {
	if strings.TrimSpace(path) == "" {
		return Default(), nil
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return Default(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("faq: read %s: %w", path, err)
	}
	categories, err := parse(data)
	if err != nil {
		return nil, fmt.Errorf("faq: parse %s: %w", path, err)
	}
	return categories, nil
}

func parse(data []byte) ([]Category, error) {
	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	seen := make(map[string]bool, len(doc.Categories))
	for i, c := range doc.Categories {
		id := strings.TrimSpace(c.ID)
		if id == "" {
			return nil, fmt.Errorf("category %d has no id", i)
		}
		if seen[id] {
			return nil, fmt.Errorf("duplicate category id %q", id)
		}
		seen[id] = true
		doc.Categories[i].ID = id
	}
	return doc.Categories, nil
}

func mustParse(data []byte) []Category {
	categories, err := parse(data)
	if err != nil {
		panic(fmt.Sprintf("faq: embedded dataset: %v", err))
	}
	return categories
}

// Filter narrows categories to those matching category (exact id, "" for
// all) and then to entries whose question or answer contains query,
// ignoring case. Only an empty query matches everything; whitespace is
// matched like any other text. Categories left without entries are dropped. The input is
// not modified and the result keeps the input order.
func Filter(categories []Category, query, category string) []Category {
	folder := cases.Fold()
	needle := query
	if needle != "" {
		needle = folder.String(needle)
	}

	out := make([]Category, 0, len(categories))
	for _, c := range categories {
		if category != "" && c.ID != category {
			continue
		}
		entries := make([]Entry, 0, len(c.Entries))
		for _, e := range c.Entries {
			if needle == "" ||
				strings.Contains(folder.String(e.Question), needle) ||
				strings.Contains(folder.String(e.Answer), needle) {
				entries = append(entries, e)
			}
		}
		if len(entries) == 0 {
			continue
		}
		out = append(out, Category{ID: c.ID, Name: c.Name, Entries: entries})
	}
	return out
}

// Flatten lists every entry in category order.
func Flatten(categories []Category) []Entry {
	var out []Entry
	for _, c := range categories {
		out = append(out, c.Entries...)
	}
	return out
}

// Count returns the number of entries across categories.
func Count(categories []Category) int {
	n := 0
	for _, c := range categories {
		n += len(c.Entries)
	}
	return n
}

// Find returns the category with id.
func Find(categories []Category, id string) (Category, bool) {
	for _, c := range categories {
		if c.ID == id {
			return c, true
		}
	}
	return Category{}, false
}

func clone(categories []Category) []Category {
	out := make([]Category, len(categories))
	for i, c := range categories {
		out[i] = Category{ID: c.ID, Name: c.Name, Entries: append([]Entry(nil), c.Entries...)}
	}
	return out
}
