package fs

import (
	"errors"
	"fmt"
	"io"
	iofs "io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/justyntemme/stockpile/internal/debug"
)

// DefaultMaxPathLength is the destination length at which tools with short
// path limits start to break.
const DefaultMaxPathLength = 192

// PathError means a destination cannot be used at all.
type PathError struct {
	Path   string
	Reason string
	Err    error
}

func (e *PathError) Error() string {
	msg := fmt.Sprintf("invalid destination %q: %s", e.Path, e.Reason)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *PathError) Unwrap() error { return e.Err }

// PathWarning is a non-fatal problem with a destination. Each one needs the
// user's explicit confirmation before an operation may proceed.
type PathWarning int

const (
	// WarnNonEmpty: the directory already holds files that a later uninstall
	// would delete along with the components.
	WarnNonEmpty PathWarning = iota
	// WarnTooLong: the path is at or beyond the length limit.
	WarnTooLong
)

func (w PathWarning) String() string {
	switch w {
	case WarnNonEmpty:
		return "There are already files in the specified path. If you uninstall, these files will be deleted as well."
	case WarnTooLong:
		return "The specified path is extremely long. This may cause certain functionality to break."
	}
	return "unknown warning"
}

func (w PathWarning) Error() string { return w.String() }

// VerifyResult is the outcome of a successful Verify.
type VerifyResult struct {
	Path     string // absolute, cleaned
	Exists   bool
	Warnings []PathWarning
}

// Verify checks a destination with the default length limit.
func Verify(path string, strict bool) (VerifyResult, error) {
	return VerifyWithLimit(path, strict, DefaultMaxPathLength)
}

// VerifyWithLimit checks that path can serve as a destination root. Relative
// paths are resolved against the working directory unless strict is set, in
// which case they are rejected. Strict mode also requires the nearest existing
// ancestor to be a directory. Verify never creates anything.
func VerifyWithLimit(path string, strict bool, maxLen int) (VerifyResult, error) {
	var res VerifyResult

	if strings.TrimSpace(path) == "" {
		return res, &PathError{Path: path, Reason: "path is empty"}
	}
	if strings.ContainsRune(path, 0) {
		return res, &PathError{Path: path, Reason: "path contains a NUL byte"}
	}
	if strict && !filepath.IsAbs(path) {
		return res, &PathError{Path: path, Reason: "path is not absolute"}
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return res, &PathError{Path: path, Reason: "cannot resolve to an absolute path", Err: err}
	}
	res.Path = abs

	info, err := os.Stat(abs)
	switch {
	case err == nil:
		if !info.IsDir() {
			return res, &PathError{Path: abs, Reason: "path exists and is not a directory"}
		}
		res.Exists = true
	case errors.Is(err, iofs.ErrNotExist):
		if strict {
			if err := checkAncestor(abs); err != nil {
				return res, err
			}
		}
	default:
		return res, &PathError{Path: abs, Reason: "cannot inspect path", Err: err}
	}

	if res.Exists {
		nonEmpty, err := hasEntries(abs)
		if err != nil {
			return res, &PathError{Path: abs, Reason: "cannot read directory", Err: err}
		}
		if nonEmpty {
			res.Warnings = append(res.Warnings, WarnNonEmpty)
		}
	}
	if maxLen > 0 && len(abs) >= maxLen {
		res.Warnings = append(res.Warnings, WarnTooLong)
	}

	debug.Log(debug.FS, "verify %q strict=%v: exists=%v warnings=%v", abs, strict, res.Exists, res.Warnings)
	return res, nil
}

// checkAncestor walks up from a missing path to the first existing ancestor,
// which must be a directory.
func checkAncestor(abs string) error {
	for dir := filepath.Dir(abs); ; dir = filepath.Dir(dir) {
		info, err := os.Stat(dir)
		if err == nil {
			if !info.IsDir() {
				return &PathError{Path: abs, Reason: fmt.Sprintf("ancestor %q is not a directory", dir)}
			}
			return nil
		}
		if !errors.Is(err, iofs.ErrNotExist) {
			return &PathError{Path: abs, Reason: "cannot inspect ancestor", Err: err}
		}
		if parent := filepath.Dir(dir); parent == dir {
			return &PathError{Path: abs, Reason: "volume does not exist"}
		}
	}
}

func hasEntries(dir string) (bool, error) {
	f, err := os.Open(dir)
	if err != nil {
		return false, err
	}
	defer f.Close()

	_, err = f.Readdirnames(1)
	if err == io.EOF {
		return false, nil
	}
	return err == nil, err
}
