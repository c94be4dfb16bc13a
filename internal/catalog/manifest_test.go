package catalog

import (
	"errors"
	"strings"
	"testing"
)

const scenarioManifest = `<?xml version="1.0" encoding="utf-8"?>
<list url="https://example.org/components/">
  <category id="Core" title="Core" description="Needed to run anything" required="true">
    <component id="Core-Engine" title="Engine" description="Runtime" required="true" size="500000000" hash="abc123"/>
  </category>
  <category id="Extras" title="Extras" description="Optional content">
    <component id="Extra-Pack" title="Extra Pack" size="200000000" depends="Core-Engine"/>
  </category>
</list>`

func mustParse(t *testing.T, doc string) *Tree {
	t.Helper()
	tree, err := Parse(strings.NewReader(doc))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	return tree
}

func TestParse_Scenario(t *testing.T) {
	tree := mustParse(t, scenarioManifest)

	if tree.Len() != 4 {
		t.Fatalf("expected 4 nodes, got %d", tree.Len())
	}
	if tree.BaseURL != "https://example.org/components/" {
		t.Errorf("expected base url from list element, got %q", tree.BaseURL)
	}

	var order []string
	tree.Walk(func(h Handle, n *Node) bool {
		order = append(order, n.ID)
		return true
	})
	expected := []string{"Core", "Core-Engine", "Extras", "Extra-Pack"}
	if strings.Join(order, ",") != strings.Join(expected, ",") {
		t.Errorf("expected pre-order %v, got %v", expected, order)
	}

	h, ok := tree.Lookup("Core-Engine")
	if !ok {
		t.Fatal("Core-Engine not indexed")
	}
	n := tree.Node(h)
	if !n.IsComponent() || !n.Required {
		t.Errorf("expected required component, got kind=%v required=%v", n.Kind, n.Required)
	}
	if n.Component.Size != 500000000 {
		t.Errorf("expected size 500000000, got %d", n.Component.Size)
	}
	if n.Component.Hash != "abc123" {
		t.Errorf("expected hash abc123, got %q", n.Component.Hash)
	}
	if parent := tree.Node(n.Parent()); parent == nil || parent.ID != "Core" {
		t.Errorf("expected parent Core, got %+v", parent)
	}
	if got := tree.Artifact(h); got != "https://example.org/components/Core-Engine.zip" {
		t.Errorf("unexpected artifact %q", got)
	}

	eh, _ := tree.Lookup("Extra-Pack")
	if deps := tree.Node(eh).Component.Depends; len(deps) != 1 || deps[0] != "Core-Engine" {
		t.Errorf("expected depends [Core-Engine], got %v", deps)
	}
}

func TestParse_NestedRootAndUnknownElements(t *testing.T) {
	doc := `<manifest>
  <meta><note>ignored</note></meta>
  <list>
    <banner text="skip me"><inner/></banner>
    <category id="a">
      <category id="a.b">
        <component id="leaf" size="1" url="https://mirror/leaf.7z">text body is fine</component>
      </category>
    </category>
  </list>
</manifest>`
	tree := mustParse(t, doc)

	if tree.Len() != 3 {
		t.Fatalf("expected 3 nodes, got %d", tree.Len())
	}
	h, _ := tree.Lookup("leaf")
	if tree.Depth(h) != 2 {
		t.Errorf("expected depth 2, got %d", tree.Depth(h))
	}
	if got := tree.Artifact(h); got != "https://mirror/leaf.7z" {
		t.Errorf("expected explicit url, got %q", got)
	}
}

func TestParse_Errors(t *testing.T) {
	testCases := []struct {
		name string
		doc  string
	}{
		{"no root", `<catalog><category id="a"/></catalog>`},
		{"empty document", ``},
		{"malformed", `<list><category id="a"></list>`},
		{"unterminated", `<list><category id="a">`},
		{"missing id", `<list><component size="1"/></list>`},
		{"duplicate id", `<list><component id="x"/><category id="x"/></list>`},
		{"bad required", `<list><component id="x" required="maybe"/></list>`},
		{"negative size", `<list><component id="x" size="-5"/></list>`},
		{"non-numeric size", `<list><component id="x" size="12MB"/></list>`},
		{"component with children", `<list><component id="x"><component id="y"/></component></list>`},
		{"unknown prerequisite", `<list><component id="x" depends="nope"/></list>`},
		{"self prerequisite", `<list><component id="x" depends="x"/></list>`},
		{"category prerequisite", `<list><category id="c"/><component id="x" depends="c"/></list>`},
		{"trailing garbage", `<list></list><oops>`},
		{"id with slash", `<list><component id="maps/de"/></list>`},
		{"id with backslash", `<list><component id="maps\\de"/></list>`},
		{"id climbing out", `<list><component id="../../x"/></list>`},
	}

	for _, tc := range testCases {
		tree, err := Parse(strings.NewReader(tc.doc))
		if err == nil {
			t.Errorf("%s: expected error, got none", tc.name)
			continue
		}
		if tree != nil {
			t.Errorf("%s: expected no tree alongside error", tc.name)
		}
		var me *ManifestError
		if !errors.As(err, &me) {
			t.Errorf("%s: expected *ManifestError, got %T", tc.name, err)
		}
	}
}

func TestParse_RootNotFoundMessage(t *testing.T) {
	_, err := Parse(strings.NewReader(`<other/>`))
	if err == nil || !strings.Contains(err.Error(), "root element was not found") {
		t.Errorf("expected root-not-found error, got %v", err)
	}
}

func TestParse_EmptyList(t *testing.T) {
	tree := mustParse(t, `<list/>`)
	if tree.Len() != 0 {
		t.Errorf("expected empty tree, got %d nodes", tree.Len())
	}
	if len(tree.Roots()) != 0 {
		t.Errorf("expected no roots, got %v", tree.Roots())
	}
}
