package catalog

import (
	"fmt"
	"strings"
)

// Tree owns every node of a catalog in a flat arena. Parent/child links are
// handles into that arena, and an id index gives constant-time lookup.
type Tree struct {
	// BaseURL is the list element's url attribute; components without an
	// explicit artifact reference resolve against it.
	BaseURL string

	nodes []Node
	roots []Handle
	index map[string]Handle
}

// NewTree returns an empty tree.
func NewTree() *Tree {
	return &Tree{index: make(map[string]Handle)}
}

// Add appends n as the last child of parent (NoHandle for a root node).
// Ids must be unique across the whole tree and only categories may have
// children.
func (t *Tree) Add(parent Handle, n Node) (Handle, error) {
	if n.ID == "" {
		return NoHandle, fmt.Errorf("node has no id")
	}
	if _, dup := t.index[n.ID]; dup {
		return NoHandle, fmt.Errorf("duplicate id %q", n.ID)
	}
	if n.Kind == KindComponent && n.Component == nil {
		return NoHandle, fmt.Errorf("component %q has no payload", n.ID)
	}
	if n.Kind == KindComponent && !validComponentID(n.ID) {
		return NoHandle, fmt.Errorf("component id %q cannot name a metadata record", n.ID)
	}
	if n.Kind == KindCategory {
		n.Component = nil
	}
	if n.Component != nil && n.Component.Size < 0 {
		return NoHandle, fmt.Errorf("component %q has negative size %d", n.ID, n.Component.Size)
	}
	if parent != NoHandle {
		if !t.valid(parent) {
			return NoHandle, fmt.Errorf("parent handle %d out of range", parent)
		}
		if t.nodes[parent].Kind != KindCategory {
			return NoHandle, fmt.Errorf("component %q cannot contain %q", t.nodes[parent].ID, n.ID)
		}
	}

	h := Handle(len(t.nodes))
	n.parent = parent
	n.children = nil
	t.nodes = append(t.nodes, n)
	t.index[n.ID] = h

	if parent == NoHandle {
		t.roots = append(t.roots, h)
	} else {
		t.nodes[parent].children = append(t.nodes[parent].children, h)
	}
	return h, nil
}

// validComponentID reports whether id is usable as a single file name under
// the metadata directory.
func validComponentID(id string) bool {
	return id != "." && !strings.Contains(id, "..") && !strings.ContainsAny(id, "/\\\x00")
}

func (t *Tree) valid(h Handle) bool {
	return h >= 0 && int(h) < len(t.nodes)
}

// Len returns the number of nodes.
func (t *Tree) Len() int { return len(t.nodes) }

// Lookup finds a node by id.
func (t *Tree) Lookup(id string) (Handle, bool) {
	h, ok := t.index[id]
	return h, ok
}

// Node returns the node behind h. The pointer is owned by the tree; callers
// must not change Kind, ID or the component payload.
func (t *Tree) Node(h Handle) *Node {
	if !t.valid(h) {
		return nil
	}
	return &t.nodes[h]
}

// Roots returns the top-level nodes in manifest order.
func (t *Tree) Roots() []Handle {
	out := make([]Handle, len(t.roots))
	copy(out, t.roots)
	return out
}

// Children returns h's children in manifest order.
func (t *Tree) Children(h Handle) []Handle {
	if !t.valid(h) {
		return nil
	}
	return t.nodes[h].Children()
}

// Parent returns h's parent, or NoHandle for roots.
func (t *Tree) Parent(h Handle) Handle {
	if !t.valid(h) {
		return NoHandle
	}
	return t.nodes[h].parent
}

// Depth returns 0 for roots, 1 for their children, and so on.
func (t *Tree) Depth(h Handle) int {
	d := 0
	for p := t.Parent(h); p != NoHandle; p = t.Parent(p) {
		d++
	}
	return d
}

// Walk visits every node in pre-order (manifest order). Returning false from fn
// stops the walk. Walk keeps no state between calls, so it can be restarted at
// any time.
func (t *Tree) Walk(fn func(h Handle, n *Node) bool) {
	for _, r := range t.roots {
		if !t.walkFrom(r, fn) {
			return
		}
	}
}

// WalkFrom visits h and its descendants in pre-order.
func (t *Tree) WalkFrom(h Handle, fn func(h Handle, n *Node) bool) {
	if t.valid(h) {
		t.walkFrom(h, fn)
	}
}

func (t *Tree) walkFrom(h Handle, fn func(h Handle, n *Node) bool) bool {
	if !fn(h, &t.nodes[h]) {
		return false
	}
	for _, c := range t.nodes[h].children {
		if !t.walkFrom(c, fn) {
			return false
		}
	}
	return true
}

// Components returns every component handle in pre-order.
func (t *Tree) Components() []Handle {
	var out []Handle
	t.Walk(func(h Handle, n *Node) bool {
		if n.IsComponent() {
			out = append(out, h)
		}
		return true
	})
	return out
}

// Artifact returns the artifact reference for component h: its explicit url,
// or BaseURL + id + ".zip".
func (t *Tree) Artifact(h Handle) string {
	n := t.Node(h)
	if n == nil || n.Component == nil {
		return ""
	}
	if n.Component.URL != "" {
		return n.Component.URL
	}
	return t.BaseURL + n.ID + ".zip"
}
