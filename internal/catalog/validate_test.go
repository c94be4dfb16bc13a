package catalog

import (
	"errors"
	"reflect"
	"testing"
)

var errBadPath = errors.New("bad path")

func TestCheckDependencies(t *testing.T) {
	tree := mustParse(t, scenarioManifest)

	testCases := []struct {
		name     string
		setup    func(sel *Selection)
		check    PathCheck
		expected []ViolationKind
	}{
		{
			name:  "defaults pass",
			setup: func(sel *Selection) {},
		},
		{
			name:  "prerequisite satisfied",
			setup: func(sel *Selection) { sel.ToggleID("Extra-Pack", true) },
		},
		{
			name: "required unchecked",
			setup: func(sel *Selection) {
				// Bypass Validate the way a restored or hand-built selection could.
				h, _ := tree.Lookup("Core-Engine")
				sel.checked[h] = false
			},
			expected: []ViolationKind{ViolationRequired},
		},
		{
			name: "prerequisite unchecked",
			setup: func(sel *Selection) {
				sel.ToggleID("Extra-Pack", true)
				h, _ := tree.Lookup("Core-Engine")
				sel.checked[h] = false
			},
			expected: []ViolationKind{ViolationRequired, ViolationPrerequisite},
		},
		{
			name:     "bad destination",
			setup:    func(sel *Selection) {},
			check:    func(string) error { return errBadPath },
			expected: []ViolationKind{ViolationPath},
		},
	}

	for _, tc := range testCases {
		sel := NewSelection(tree, nil)
		tc.setup(sel)
		before := sel.Snapshot()

		err := CheckDependencies(sel, "/dest", tc.check)

		if !reflect.DeepEqual(before, sel.Snapshot()) {
			t.Errorf("%s: selection changed", tc.name)
		}
		if len(tc.expected) == 0 {
			if err != nil {
				t.Errorf("%s: expected no error, got %v", tc.name, err)
			}
			continue
		}

		var de *DependencyError
		if !errors.As(err, &de) {
			t.Errorf("%s: expected *DependencyError, got %v", tc.name, err)
			continue
		}
		var kinds []ViolationKind
		for _, v := range de.Violations {
			kinds = append(kinds, v.Kind)
		}
		if !reflect.DeepEqual(kinds, tc.expected) {
			t.Errorf("%s: expected violations %v, got %v", tc.name, tc.expected, kinds)
		}
	}
}

func TestCheckDependencies_PathErrorUnwraps(t *testing.T) {
	tree := mustParse(t, scenarioManifest)
	sel := NewSelection(tree, nil)

	err := CheckDependencies(sel, "", func(string) error { return errBadPath })
	if !errors.Is(err, errBadPath) {
		t.Errorf("expected errors.Is to reach the path error, got %v", err)
	}
}

func TestCheckDependencies_PrerequisiteOutsideCatalog(t *testing.T) {
	tree := NewTree()
	n := NewComponent("orphan", "", "", false, 1, "ghost")
	tree.Add(NoHandle, n)
	sel := NewSelection(tree, nil)
	sel.ToggleID("orphan", true)

	var de *DependencyError
	if err := CheckDependencies(sel, "", nil); !errors.As(err, &de) {
		t.Fatalf("expected *DependencyError, got %v", err)
	}
	if de.Violations[0].Missing != "ghost" {
		t.Errorf("expected missing ghost, got %q", de.Violations[0].Missing)
	}
}
