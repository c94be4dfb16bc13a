package catalog

import (
	"fmt"
	"strings"
)

// ManifestError means the manifest could not be turned into a tree. No partial
// tree is ever returned alongside it.
type ManifestError struct {
	Line   int // 0 when unknown
	Reason string
	Err    error
}

func (e *ManifestError) Error() string {
	msg := "manifest: " + e.Reason
	if e.Line > 0 {
		msg = fmt.Sprintf("manifest line %d: %s", e.Line, e.Reason)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ManifestError) Unwrap() error { return e.Err }

// RejectError is returned by Validate when a selection change is vetoed.
type RejectError struct {
	ID     string
	Reason string
}

func (e *RejectError) Error() string {
	return fmt.Sprintf("cannot change %q: %s", e.ID, e.Reason)
}

// ViolationKind classifies a pre-operation check failure.
type ViolationKind int

const (
	ViolationRequired ViolationKind = iota
	ViolationPrerequisite
	ViolationPath
)

func (k ViolationKind) String() string {
	switch k {
	case ViolationRequired:
		return "required"
	case ViolationPrerequisite:
		return "prerequisite"
	case ViolationPath:
		return "path"
	}
	return "unknown"
}

// Violation is one reason an operation may not start.
type Violation struct {
	Kind ViolationKind
	ID   string // offending node; empty for path violations
	// Missing is the unchecked prerequisite for ViolationPrerequisite
	Missing string
	Err     error // underlying path error for ViolationPath
}

func (v Violation) String() string {
	switch v.Kind {
	case ViolationRequired:
		return fmt.Sprintf("%q is required but not selected", v.ID)
	case ViolationPrerequisite:
		return fmt.Sprintf("%q needs %q, which is not selected", v.ID, v.Missing)
	case ViolationPath:
		return fmt.Sprintf("destination: %v", v.Err)
	}
	return "unknown violation"
}

// DependencyError collects every violation found by CheckDependencies.
type DependencyError struct {
	Violations []Violation
}

func (e *DependencyError) Error() string {
	parts := make([]string, len(e.Violations))
	for i, v := range e.Violations {
		parts[i] = v.String()
	}
	return "dependency check failed: " + strings.Join(parts, "; ")
}

// Unwrap exposes the path error, if any, to errors.As.
func (e *DependencyError) Unwrap() []error {
	var errs []error
	for _, v := range e.Violations {
		if v.Err != nil {
			errs = append(errs, v.Err)
		}
	}
	return errs
}
