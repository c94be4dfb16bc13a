// Package catalog holds the component catalog: the category/component tree read
// from the manifest, the user's selection over it, the checks that gate that
// selection, and the size accounting derived from it.
package catalog

// Kind distinguishes the two node shapes in the tree.
type Kind int

const (
	KindCategory Kind = iota
	KindComponent
)

func (k Kind) String() string {
	switch k {
	case KindCategory:
		return "category"
	case KindComponent:
		return "component"
	}
	return "unknown"
}

// Handle addresses a node inside its Tree. Handles are only meaningful for the
// tree that issued them.
type Handle int

// NoHandle is the parent of every root node.
const NoHandle Handle = -1

// Node is a category or a component. The fields above Component are shared by
// both kinds; Component is non-nil exactly when Kind == KindComponent.
type Node struct {
	ID          string
	Title       string
	Description string
	Required    bool
	Kind        Kind

	Component *ComponentInfo

	parent   Handle
	children []Handle
}

// ComponentInfo is the payload only components carry.
type ComponentInfo struct {
	Size    int64    // Declared size in bytes, from the manifest
	URL     string   // Artifact reference
	Hash    string   // Optional artifact digest, passed through to the orchestrator
	Depends []string // Prerequisite component ids
}

// IsComponent reports whether n is a leaf component.
func (n *Node) IsComponent() bool { return n.Kind == KindComponent }

// Parent returns the handle of the enclosing category, or NoHandle.
func (n *Node) Parent() Handle { return n.parent }

// Children returns the node's children in manifest order.
func (n *Node) Children() []Handle {
	out := make([]Handle, len(n.children))
	copy(out, n.children)
	return out
}

// NewCategory builds a category node ready for Tree.Add.
func NewCategory(id, title, description string, required bool) Node {
	return Node{
		ID:          id,
		Title:       title,
		Description: description,
		Required:    required,
		Kind:        KindCategory,
	}
}

// NewComponent builds a component node ready for Tree.Add.
func NewComponent(id, title, description string, required bool, size int64, depends ...string) Node {
	return Node{
		ID:          id,
		Title:       title,
		Description: description,
		Required:    required,
		Kind:        KindComponent,
		Component: &ComponentInfo{
			Size:    size,
			Depends: depends,
		},
	}
}
