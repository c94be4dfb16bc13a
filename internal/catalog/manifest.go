package catalog

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/justyntemme/stockpile/internal/debug"
)

// Manifest element names
const (
	elemList      = "list"
	elemCategory  = "category"
	elemComponent = "component"
)

// Parse reads a manifest document and builds its tree. The first <list>
// element in the document is the root; its <category> and <component>
// descendants become nodes in document order. Unknown elements are skipped.
//
// Any structural problem yields a *ManifestError and a nil tree.
func Parse(r io.Reader) (*Tree, error) {
	p := &parser{dec: xml.NewDecoder(r), tree: NewTree()}

	if err := p.findRoot(); err != nil {
		return nil, err
	}
	if err := p.children(NoHandle); err != nil {
		return nil, err
	}
	// The rest of the document must still be well-formed.
	if err := p.drain(); err != nil {
		return nil, err
	}
	if err := p.checkDepends(); err != nil {
		return nil, err
	}

	debug.Log(debug.MANIFEST, "parsed manifest: %d nodes, %d roots, base=%q",
		p.tree.Len(), len(p.tree.roots), p.tree.BaseURL)
	return p.tree, nil
}

type parser struct {
	dec  *xml.Decoder
	tree *Tree
}

func (p *parser) line() int {
	line, _ := p.dec.InputPos()
	return line
}

func (p *parser) fail(reason string, err error) *ManifestError {
	return &ManifestError{Line: p.line(), Reason: reason, Err: err}
}

func (p *parser) token() (xml.Token, error) {
	tok, err := p.dec.Token()
	if err == io.EOF {
		return nil, err
	}
	if err != nil {
		return nil, p.fail("malformed document", err)
	}
	return tok, nil
}

func (p *parser) findRoot() error {
	for {
		tok, err := p.token()
		if err == io.EOF {
			return &ManifestError{Reason: "root element was not found"}
		}
		if err != nil {
			return err
		}
		if se, ok := tok.(xml.StartElement); ok && se.Name.Local == elemList {
			p.tree.BaseURL = attr(se, "url")
			return nil
		}
	}
}

// children consumes tokens up to the end element closing parent's element.
func (p *parser) children(parent Handle) error {
	for {
		tok, err := p.token()
		if err == io.EOF {
			return p.fail("unexpected end of document", io.ErrUnexpectedEOF)
		}
		if err != nil {
			return err
		}

		switch t := tok.(type) {
		case xml.EndElement:
			return nil
		case xml.StartElement:
			switch t.Name.Local {
			case elemCategory:
				n, err := p.category(t)
				if err != nil {
					return err
				}
				h, err := p.tree.Add(parent, n)
				if err != nil {
					return p.fail("invalid category", err)
				}
				if err := p.children(h); err != nil {
					return err
				}
			case elemComponent:
				n, err := p.component(t)
				if err != nil {
					return err
				}
				if _, err := p.tree.Add(parent, n); err != nil {
					return p.fail("invalid component", err)
				}
				if err := p.leaf(n.ID); err != nil {
					return err
				}
			default:
				debug.Log(debug.MANIFEST, "skipping unknown element <%s> at line %d", t.Name.Local, p.line())
				if err := p.dec.Skip(); err != nil {
					return p.fail("malformed document", err)
				}
			}
		}
	}
}

// leaf consumes a component's body, which may hold text but no elements.
func (p *parser) leaf(id string) error {
	for {
		tok, err := p.token()
		if err == io.EOF {
			return p.fail("unexpected end of document", io.ErrUnexpectedEOF)
		}
		if err != nil {
			return err
		}
		switch t := tok.(type) {
		case xml.EndElement:
			return nil
		case xml.StartElement:
			return p.fail(fmt.Sprintf("component %q contains element <%s>", id, t.Name.Local), nil)
		}
	}
}

func (p *parser) drain() error {
	for {
		_, err := p.token()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
	}
}

func (p *parser) category(se xml.StartElement) (Node, error) {
	required, err := p.boolAttr(se, "required")
	if err != nil {
		return Node{}, err
	}
	return NewCategory(attr(se, "id"), attr(se, "title"), attr(se, "description"), required), nil
}

func (p *parser) component(se xml.StartElement) (Node, error) {
	id := attr(se, "id")
	required, err := p.boolAttr(se, "required")
	if err != nil {
		return Node{}, err
	}

	var size int64
	if raw := attr(se, "size"); raw != "" {
		size, err = strconv.ParseInt(raw, 10, 64)
		if err != nil || size < 0 {
			return Node{}, p.fail(fmt.Sprintf("component %q has invalid size %q", id, raw), nil)
		}
	}

	n := NewComponent(id, attr(se, "title"), attr(se, "description"), required, size,
		strings.Fields(attr(se, "depends"))...)
	n.Component.URL = attr(se, "url")
	n.Component.Hash = attr(se, "hash")
	return n, nil
}

func (p *parser) boolAttr(se xml.StartElement, name string) (bool, error) {
	raw := attr(se, name)
	if raw == "" {
		return false, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, p.fail(fmt.Sprintf("<%s id=%q> has invalid %s=%q", se.Name.Local, attr(se, "id"), name, raw), nil)
	}
	return v, nil
}

func (p *parser) checkDepends() error {
	var errs []error
	p.tree.Walk(func(h Handle, n *Node) bool {
		if n.Component == nil {
			return true
		}
		for _, dep := range n.Component.Depends {
			dh, ok := p.tree.Lookup(dep)
			switch {
			case !ok:
				errs = append(errs, fmt.Errorf("%q depends on unknown id %q", n.ID, dep))
			case dh == h:
				errs = append(errs, fmt.Errorf("%q depends on itself", n.ID))
			case !p.tree.Node(dh).IsComponent():
				errs = append(errs, fmt.Errorf("%q depends on category %q", n.ID, dep))
			}
		}
		return true
	})
	if len(errs) > 0 {
		return &ManifestError{Reason: "invalid prerequisites", Err: errors.Join(errs...)}
	}
	return nil
}

func attr(se xml.StartElement, name string) string {
	for _, a := range se.Attr {
		if a.Name.Local == name {
			return strings.TrimSpace(a.Value)
		}
	}
	return ""
}
