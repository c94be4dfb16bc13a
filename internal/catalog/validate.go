package catalog

// PathCheck reports whether a destination is usable. fs.Verify, with warnings
// already confirmed by the caller, is the production implementation.
type PathCheck func(dest string) error

// CheckDependencies runs right before an operation starts. It reports every
// required node left unchecked, every checked component whose prerequisites
// are not all checked, and a destination that fails check. It never modifies
// sel. A nil check skips the destination test.
func CheckDependencies(sel *Selection, dest string, check PathCheck) error {
	var violations []Violation
	tree := sel.tree

	tree.Walk(func(h Handle, n *Node) bool {
		if n.Required && !sel.checked[h] {
			violations = append(violations, Violation{Kind: ViolationRequired, ID: n.ID})
		}
		if n.Component == nil || !sel.checked[h] {
			return true
		}
		for _, dep := range n.Component.Depends {
			dh, ok := tree.Lookup(dep)
			if !ok || !sel.checked[dh] {
				violations = append(violations, Violation{Kind: ViolationPrerequisite, ID: n.ID, Missing: dep})
			}
		}
		return true
	})

	if check != nil {
		if err := check(dest); err != nil {
			violations = append(violations, Violation{Kind: ViolationPath, Err: err})
		}
	}

	if len(violations) > 0 {
		return &DependencyError{Violations: violations}
	}
	return nil
}
