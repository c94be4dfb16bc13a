package app

import (
	"github.com/justyntemme/stockpile/internal/catalog"
	"github.com/justyntemme/stockpile/internal/search"
)

// Filter returns the nodes matching query, in manifest order. An empty query
// matches everything.
func (s *Session) Filter(query string) []catalog.Handle {
	if s.tree == nil {
		return nil
	}
	m := search.NewMatcher(search.Parse(query))

	var out []catalog.Handle
	s.tree.Walk(func(h catalog.Handle, n *catalog.Node) bool {
		if m.Match(s.candidate(n)) {
			out = append(out, h)
		}
		return true
	})
	return out
}

func (s *Session) candidate(n *catalog.Node) search.Candidate {
	c := search.Candidate{
		ID:          n.ID,
		Title:       n.Title,
		Description: n.Description,
		Required:    n.Required,
		IsComponent: n.IsComponent(),
	}
	if n.IsComponent() {
		c.Size = n.Component.Size
		c.Installed = s.tracker != nil && s.tracker.Exists(n.ID)
		c.Update = s.updates[n.ID] || s.reinstall[n.ID]
	}
	return c
}
