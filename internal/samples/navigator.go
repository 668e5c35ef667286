package samples

import (
	"fmt"
	"strings"
)

// Navigator tracks the open folder and the breadcrumb trail leading to it.
type Navigator struct {
	trail []*Node
}

func NewNavigator(root *Node) *Navigator {
	return &Navigator{trail: []*Node{root}}
}

// Reset goes back to the root, as when the explorer is reopened
func (n *Navigator) Reset() {
	n.trail = n.trail[:1]
}

func (n *Navigator) Current() *Node {
	return n.trail[len(n.trail)-1]
}

// Enter opens a child folder of the current folder.
func (n *Navigator) Enter(name string) error {
	child, ok := n.Current().Child(name)
	if !ok || !child.IsFolder() {
		return fmt.Errorf("%w: folder %q", ErrNotFound, name)
	}
	n.trail = append(n.trail, child)
	return nil
}

// Open resets to the root and enters each folder of a slash-separated
// path. An empty path is the root.
func (n *Navigator) Open(path string) error {
	n.Reset()
	for _, name := range strings.Split(strings.Trim(path, "/"), "/") {
		if name == "" {
			continue
		}
		if err := n.Enter(name); err != nil {
			n.Reset()
			return err
		}
	}
	return nil
}

// Back jumps to the breadcrumb at index; 0 is the root.
func (n *Navigator) Back(index int) error {
	if index < 0 || index >= len(n.trail) {
		return fmt.Errorf("breadcrumb %d out of range", index)
	}
	n.trail = n.trail[:index+1]
	return nil
}

// Breadcrumbs names the trail; the root is always "Home".
func (n *Navigator) Breadcrumbs() []string {
	out := make([]string, len(n.trail))
	for i, node := range n.trail {
		if i == 0 {
			out[i] = "Home"
			continue
		}
		out[i] = node.Name
	}
	return out
}

// Path is the trail below the root joined by "/", suitable for Manifest.Folder
func (n *Navigator) Path() string {
	path := ""
	for i, node := range n.trail[1:] {
		if i > 0 {
			path += "/"
		}
		path += node.Name
	}
	return path
}
