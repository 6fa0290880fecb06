// Package mob provides the difficulty and physical-defense ratings of
// non-player combat targets, loaded from YAML templates keyed by kind.
package mob

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// Template rates one kind of mob.
type Template struct {
	Kind            string `yaml:"kind"`
	Name            string `yaml:"name"`
	Difficulty      int    `yaml:"difficulty"`
	PhysicalDefense int    `yaml:"physical_defense"`
}

// Validate reports every violation of: kind and name set, ratings >= 0.
func (t *Template) Validate() error {
	var errs []error
	if t.Kind == "" {
		errs = append(errs, errors.New("kind must not be empty"))
	}
	if t.Name == "" {
		errs = append(errs, errors.New("name must not be empty"))
	}
	if t.Difficulty < 0 {
		errs = append(errs, fmt.Errorf("difficulty must be >= 0, got %d", t.Difficulty))
	}
	if t.PhysicalDefense < 0 {
		errs = append(errs, fmt.Errorf("physical_defense must be >= 0, got %d", t.PhysicalDefense))
	}
	if len(errs) > 0 {
		return fmt.Errorf("mob %q: %w", t.Kind, errors.Join(errs...))
	}
	return nil
}

// ParseTemplates decodes every YAML document in data. Unknown fields are
// rejected so a misspelt rating cannot silently default to zero.
//
// Postcondition: every returned template is validated and its Kind is
// lower-cased and trimmed.
func ParseTemplates(data []byte) ([]*Template, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var out []*Template
	for doc := 1; ; doc++ {
		var t Template
		err := dec.Decode(&t)
		if errors.Is(err, io.EOF) {
			return out, nil
		}
		if err != nil {
			return nil, fmt.Errorf("document %d: %w", doc, err)
		}
		t.Kind = strings.ToLower(strings.TrimSpace(t.Kind))
		if err := t.Validate(); err != nil {
			return nil, fmt.Errorf("document %d: %w", doc, err)
		}
		out = append(out, &t)
	}
}

// LoadTemplates parses every *.yaml and *.yml file in dir, in name order.
// A file may hold several templates separated by "---".
func LoadTemplates(dir string) ([]*Template, error) {
	if _, err := os.Stat(dir); err != nil {
		return nil, fmt.Errorf("mob dir: %w", err)
	}
	var files []string
	for _, pattern := range []string{"*.yaml", "*.yml"} {
		matches, err := filepath.Glob(filepath.Join(dir, pattern))
		if err != nil {
			return nil, err
		}
		files = append(files, matches...)
	}
	sort.Strings(files)

	var all []*Template
	for _, path := range files {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading %q: %w", path, err)
		}
		tmpls, err := ParseTemplates(data)
		if err != nil {
			return nil, fmt.Errorf("loading %q: %w", path, err)
		}
		all = append(all, tmpls...)
	}
	return all, nil
}
