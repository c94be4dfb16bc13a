package catalog

import (
	"sort"

	"github.com/justyntemme/stockpile/internal/debug"
)

// InstalledState answers what is already on disk. fs.Tracker implements it.
type InstalledState interface {
	Exists(id string) bool
	// ActualSize returns the size recorded in the component's metadata record.
	ActualSize(id string) (int64, error)
}

// CheckState is the tri-state shown for a node.
type CheckState int

const (
	Unchecked CheckState = iota
	Partial
	Checked
)

func (s CheckState) String() string {
	switch s {
	case Checked:
		return "checked"
	case Partial:
		return "partial"
	}
	return "unchecked"
}

// Selection tracks which nodes are checked and the size they add up to.
// It is not safe for concurrent use: one owner mutates it, others read
// Snapshots.
type Selection struct {
	tree      *Tree
	installed InstalledState
	checked   []bool
	total     int64
}

// NewSelection checks exactly the required nodes of tree. installed may be nil
// when there is no installed baseline (fresh download).
func NewSelection(tree *Tree, installed InstalledState) *Selection {
	s := &Selection{
		tree:      tree,
		installed: installed,
		checked:   make([]bool, tree.Len()),
	}
	tree.Walk(func(h Handle, n *Node) bool {
		s.checked[h] = n.Required
		return true
	})
	s.refreshCategories()
	s.Recompute()
	return s
}

// Tree returns the tree this selection ranges over.
func (s *Selection) Tree() *Tree { return s.tree }

// Validate decides whether h may move to the proposed state. It never changes
// anything. A required node may never be unchecked; the flag is read from the
// node itself, not inherited from its category. A category with no components
// below it cannot be checked, since its flag follows its components.
func (s *Selection) Validate(h Handle, checked bool) error {
	n := s.tree.Node(h)
	if n == nil {
		return &RejectError{Reason: "unknown node"}
	}
	if n.Required && !checked {
		return &RejectError{ID: n.ID, Reason: "required " + n.Kind.String()}
	}
	if checked && !n.Required && !n.IsComponent() && !s.hasComponents(h) {
		return &RejectError{ID: n.ID, Reason: "empty category"}
	}
	return nil
}

func (s *Selection) hasComponents(h Handle) bool {
	found := false
	s.tree.WalkFrom(h, func(_ Handle, n *Node) bool {
		found = n.IsComponent()
		return !found
	})
	return found
}

// Commit applies a change that Validate accepted. Changing a category carries
// the change down to its descendants, each of which is validated on its own so
// required descendants stay checked. Category flags and the total are then
// refreshed.
func (s *Selection) Commit(h Handle, checked bool) {
	n := s.tree.Node(h)
	if n == nil {
		return
	}
	debug.Log(debug.SELECT, "commit %q -> %v", n.ID, checked)

	s.checked[h] = checked
	if n.Kind == KindCategory {
		s.tree.WalkFrom(h, func(d Handle, dn *Node) bool {
			if d == h {
				return true
			}
			if err := s.Validate(d, checked); err != nil {
				debug.Log(debug.SELECT, "cascade skips %q: %v", dn.ID, err)
				return true
			}
			s.checked[d] = checked
			return true
		})
	}
	s.refreshCategories()
	s.Recompute()
}

// Toggle validates and, on success, commits. A rejected change leaves the
// selection untouched.
func (s *Selection) Toggle(h Handle, checked bool) error {
	if err := s.Validate(h, checked); err != nil {
		debug.Log(debug.SELECT, "rejected: %v", err)
		return err
	}
	s.Commit(h, checked)
	return nil
}

// ToggleID is Toggle by node id.
func (s *Selection) ToggleID(id string, checked bool) error {
	h, ok := s.tree.Lookup(id)
	if !ok {
		return &RejectError{ID: id, Reason: "not in catalog"}
	}
	return s.Toggle(h, checked)
}

// refreshCategories recomputes category flags bottom-up: a category is checked
// when it is required or when any component below it is checked.
func (s *Selection) refreshCategories() {
	var visit func(h Handle) bool
	visit = func(h Handle) bool {
		n := s.tree.Node(h)
		if n.IsComponent() {
			return s.checked[h]
		}
		some := false
		for _, c := range n.children {
			if visit(c) {
				some = true
			}
		}
		s.checked[h] = n.Required || some
		return s.checked[h]
	}
	for _, r := range s.tree.roots {
		visit(r)
	}
}

// IsChecked reports h's flag.
func (s *Selection) IsChecked(h Handle) bool {
	if h < 0 || int(h) >= len(s.checked) {
		return false
	}
	return s.checked[h]
}

// State returns the tri-state of h. Components are checked or unchecked;
// categories are partial when only some of their components are checked.
func (s *Selection) State(h Handle) CheckState {
	n := s.tree.Node(h)
	if n == nil {
		return Unchecked
	}
	if n.IsComponent() {
		if s.checked[h] {
			return Checked
		}
		return Unchecked
	}

	total, on := 0, 0
	s.tree.WalkFrom(h, func(d Handle, dn *Node) bool {
		if dn.IsComponent() {
			total++
			if s.checked[d] {
				on++
			}
		}
		return true
	})
	switch {
	case total == 0 && s.checked[h]:
		return Checked
	case total > 0 && on == total:
		return Checked
	case on > 0 || s.checked[h]:
		return Partial
	}
	return Unchecked
}

// SetInstalled swaps the installed baseline (after a rescan) and recomputes
// the total.
func (s *Selection) SetInstalled(installed InstalledState) {
	s.installed = installed
	s.Recompute()
}

// Installed returns the baseline the selection was built with.
func (s *Selection) Installed() InstalledState { return s.installed }

// Recompute refreshes the cached total.
func (s *Selection) Recompute() {
	var total int64
	for _, h := range s.CheckedComponents() {
		total += effectiveSize(s.tree.Node(h), s.installed)
	}
	s.total = total
}

// Total is the sum over checked components of the installed size when the
// component is installed with a readable record, else the declared size.
func (s *Selection) Total() int64 { return s.total }

// CheckedComponents returns checked component handles in manifest order.
func (s *Selection) CheckedComponents() []Handle {
	var out []Handle
	s.tree.Walk(func(h Handle, n *Node) bool {
		if n.IsComponent() && s.checked[h] {
			out = append(out, h)
		}
		return true
	})
	return out
}

// CheckedIDs returns the ids of all checked nodes, sorted.
func (s *Selection) CheckedIDs() []string {
	var ids []string
	for h, on := range s.checked {
		if on {
			ids = append(ids, s.tree.nodes[h].ID)
		}
	}
	sort.Strings(ids)
	return ids
}

// Snapshot is an immutable copy of a selection for readers.
type Snapshot struct {
	Checked []bool
	Total   int64
}

// Snapshot copies the current flags and total.
func (s *Selection) Snapshot() Snapshot {
	c := make([]bool, len(s.checked))
	copy(c, s.checked)
	return Snapshot{Checked: c, Total: s.total}
}

func effectiveSize(n *Node, installed InstalledState) int64 {
	if installed != nil && installed.Exists(n.ID) {
		if size, err := installed.ActualSize(n.ID); err == nil {
			return size
		}
	}
	return n.Component.Size
}
