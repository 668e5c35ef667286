// Package samples is the read-only catalog of demo images: a folder tree
// loaded from a YAML manifest, a breadcrumb navigator over it and a fetcher
// that turns a file node into an ingestion candidate.
package samples

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"sync"

	"gopkg.in/yaml.v3"
)

//go:embed manifest.yaml
var defaultManifest []byte

var ErrNotFound = errors.New("sample not found")

type Kind string

const (
	Folder Kind = "folder"
	File   Kind = "file"
)

// Node is either a folder with children or a file with a path
type Node struct {
	Name     string  `yaml:"name" json:"name"`
	Type     Kind    `yaml:"type" json:"type"`
	Path     string  `yaml:"path,omitempty" json:"path,omitempty"`
	Children []*Node `yaml:"children,omitempty" json:"children,omitempty"`
}

func (n *Node) IsFolder() bool {
	return n.Type == Folder
}

// Child returns the direct child with the given name
func (n *Node) Child(name string) (*Node, bool) {
	for _, c := range n.Children {
		if c.Name == name {
			return c, true
		}
	}
	return nil, false
}

// Manifest is the sample tree plus the file used when no image was chosen
type Manifest struct {
	Default string `yaml:"default" json:"default"`
	Root    *Node  `yaml:"root" json:"root"`

	files map[string]*Node
}

var (
	embedded     *Manifest
	embeddedOnce sync.Once
)

// Default returns the embedded manifest.
func Default() *Manifest {
	embeddedOnce.Do(func() {
		m, err := Parse(defaultManifest)
		if err != nil {
			panic(fmt.Sprintf("embedded sample manifest is invalid: %v", err))
		}
		embedded = m
	})
	return embedded
}

// Load reads a manifest file; an empty path yields the embedded one.
func Load(path string) (*Manifest, error) {
	if path == "" {
		return Default(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read sample manifest: %w", err)
	}
	return Parse(data)
}

func Parse(data []byte) (*Manifest, error) {
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("failed to parse sample manifest: %w", err)
	}
	if m.Root == nil {
		return nil, errors.New("sample manifest has no root")
	}
	if m.Root.Type == "" {
		m.Root.Type = Folder
	}

	m.files = make(map[string]*Node)
	if err := m.index(m.Root, m.Root.Name); err != nil {
		return nil, err
	}
	if m.Default != "" {
		if _, ok := m.files[m.Default]; !ok {
			return nil, fmt.Errorf("default sample %q is not in the manifest", m.Default)
		}
	}
	return &m, nil
}

func (m *Manifest) index(n *Node, where string) error {
	switch n.Type {
	case Folder:
		if n.Path != "" {
			return fmt.Errorf("folder %q must not have a path", where)
		}
		for _, c := range n.Children {
			if err := m.index(c, where+"/"+c.Name); err != nil {
				return err
			}
		}
	case File:
		if n.Path == "" {
			return fmt.Errorf("file %q has no path", where)
		}
		if len(n.Children) > 0 {
			return fmt.Errorf("file %q must not have children", where)
		}
		m.files[n.Path] = n
	default:
		return fmt.Errorf("node %q has unknown type %q", where, n.Type)
	}
	return nil
}

// File returns the file node registered under a sample path. Only paths
// listed in the manifest can be fetched.
func (m *Manifest) File(path string) (*Node, error) {
	n, ok := m.files[path]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrNotFound, path)
	}
	return n, nil
}

// Files returns every file node in tree order
func (m *Manifest) Files() []*Node {
	var out []*Node
	var walk func(*Node)
	walk = func(n *Node) {
		if !n.IsFolder() {
			out = append(out, n)
			return
		}
		for _, c := range n.Children {
			walk(c)
		}
	}
	walk(m.Root)
	return out
}
