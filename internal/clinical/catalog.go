// Package clinical holds the read-only table mapping classifier labels to
// clinician-facing display copy.
package clinical

import (
	_ "embed"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"sync"

	"gopkg.in/yaml.v3"
)

//go:embed catalog.yaml
var embeddedCatalog []byte

// Entry is the display copy for one label. Text fields may contain
// **bold** markup.
type Entry struct {
	Title          string `yaml:"title" json:"title"`
	Description    string `yaml:"description" json:"description"`
	Recommendation string `yaml:"recommendation" json:"recommendation"`
	Indicator      string `yaml:"indicator" json:"indicator"`
}

// Catalog resolves labels to entries, falling back to a default entry.
type Catalog struct {
	Entries  map[string]Entry `yaml:"entries"`
	Fallback Entry            `yaml:"default"`
}

var (
	builtinOnce sync.Once
	builtin     *Catalog
)

// Default returns the embedded catalog, parsed once.
func Default() *Catalog {
	builtinOnce.Do(func() {
		c, err := Parse(embeddedCatalog)
		if err != nil {
			// The embedded file is part of the build; this only trips on a bad edit
			panic(fmt.Sprintf("embedded clinical catalog: %v", err))
		}
		builtin = c
	})
	return builtin
}

// Parse decodes a YAML catalog.
func Parse(data []byte) (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("failed to parse clinical catalog: %w", err)
	}
	if c.Fallback.Title == "" {
		return nil, fmt.Errorf("clinical catalog has no default entry")
	}
	if c.Entries == nil {
		c.Entries = map[string]Entry{}
	}
	return &c, nil
}

// Load reads a catalog file, or returns the embedded one when path is empty.
func Load(path string) (*Catalog, error) {
	if path == "" {
		return Default(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read clinical catalog: %w", err)
	}
	c, err := Parse(data)
	if err != nil {
		return nil, err
	}
	slog.Debug("Loaded clinical catalog", "path", path, "entries", len(c.Entries))
	return c, nil
}

// Lookup never fails: unknown labels get the default entry and ok=false.
func (c *Catalog) Lookup(label string) (Entry, bool) {
	if e, ok := c.Entries[label]; ok {
		return e, true
	}
	return c.Fallback, false
}

// Labels lists the known labels in sorted order
func (c *Catalog) Labels() []string {
	labels := make([]string, 0, len(c.Entries))
	for l := range c.Entries {
		labels = append(labels, l)
	}
	sort.Strings(labels)
	return labels
}
