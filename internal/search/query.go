package search

import (
	"strconv"
	"strings"

	"github.com/justyntemme/stockpile/internal/debug"
)

// Directive types
type DirectiveType int

const (
	DirName DirectiveType = iota
	DirDescription
	DirSize
	DirRequired
	DirInstalled
	DirUpdate
	DirKind
)

// Comparison operators for size
type Operator int

const (
	OpNone Operator = iota
	OpGreater
	OpLess
	OpGreaterEq
	OpLessEq
	OpEquals
)

// Directive represents a single filter directive
type Directive struct {
	Type     DirectiveType
	Value    string
	Operator Operator
	NumValue int64 // Parsed size in bytes
	Flag     bool  // Parsed yes/no value
}

// Query holds parsed filter directives
type Query struct {
	Directives []Directive
	Raw        string
}

// Parse parses a filter string into directives
// Examples:
//   - "engine" -> name:engine (id or title)
//   - "desc:soundtrack" -> description contains "soundtrack"
//   - "size:>100MB" -> components larger than 100MB
//   - "installed:yes" / "update:yes" / "required:no"
//   - "kind:category"
func Parse(input string) *Query {
	q := &Query{Raw: input}
	input = strings.TrimSpace(input)
	if input == "" {
		return q
	}

	// Split by spaces, but respect quotes
	for _, part := range splitRespectingQuotes(input) {
		q.Directives = append(q.Directives, parseDirective(part))
	}
	return q
}

func splitRespectingQuotes(s string) []string {
	var parts []string
	var current strings.Builder
	inQuotes := false
	quoteChar := rune(0)

	for _, r := range s {
		switch {
		case (r == '"' || r == '\'') && !inQuotes:
			inQuotes = true
			quoteChar = r
		case r == quoteChar && inQuotes:
			inQuotes = false
			quoteChar = 0
		case r == ' ' && !inQuotes:
			if current.Len() > 0 {
				parts = append(parts, current.String())
				current.Reset()
			}
		default:
			current.WriteRune(r)
		}
	}

	if current.Len() > 0 {
		parts = append(parts, current.String())
	}
	return parts
}

func parseDirective(s string) Directive {
	// Check for directive:value pattern
	if idx := strings.Index(s, ":"); idx > 0 {
		directive := strings.ToLower(s[:idx])
		value := strings.Trim(s[idx+1:], "\"'")

		switch directive {
		case "name", "id", "title":
			return Directive{Type: DirName, Value: value}

		case "desc", "description", "text":
			return Directive{Type: DirDescription, Value: value}

		case "size":
			op, numStr := parseOperator(value)
			if n, ok := parseSize(numStr); ok {
				return Directive{Type: DirSize, Value: value, Operator: op, NumValue: n}
			}
			// Not a size; search for the text instead
			debug.Log(debug.SEARCH, "size %q not understood, matching %q by name", value, s)

		case "required", "req":
			return Directive{Type: DirRequired, Value: value, Flag: parseFlag(value)}

		case "installed":
			return Directive{Type: DirInstalled, Value: value, Flag: parseFlag(value)}

		case "update", "updates":
			return Directive{Type: DirUpdate, Value: value, Flag: parseFlag(value)}

		case "kind", "type", "is":
			return Directive{Type: DirKind, Value: strings.ToLower(value)}
		}
	}

	// Default to name search
	return Directive{Type: DirName, Value: s}
}

func parseOperator(s string) (Operator, string) {
	s = strings.TrimSpace(s)
	switch {
	case strings.HasPrefix(s, ">="):
		return OpGreaterEq, strings.TrimSpace(s[2:])
	case strings.HasPrefix(s, "<="):
		return OpLessEq, strings.TrimSpace(s[2:])
	case strings.HasPrefix(s, ">"):
		return OpGreater, strings.TrimSpace(s[1:])
	case strings.HasPrefix(s, "<"):
		return OpLess, strings.TrimSpace(s[1:])
	case strings.HasPrefix(s, "="):
		return OpEquals, strings.TrimSpace(s[1:])
	default:
		return OpEquals, s
	}
}

// parseSize converts size strings like "1KB", "10MB", "1.5GB" to bytes (1KB = 1024).
// It reports false for anything that is not a non-negative size.
func parseSize(s string) (int64, bool) {
	s = strings.ToUpper(strings.TrimSpace(s))

	multiplier := int64(1)
	numStr := s

	switch {
	case strings.HasSuffix(s, "TB"):
		multiplier = 1 << 40
		numStr = s[:len(s)-2]
	case strings.HasSuffix(s, "GB"):
		multiplier = 1 << 30
		numStr = s[:len(s)-2]
	case strings.HasSuffix(s, "MB"):
		multiplier = 1 << 20
		numStr = s[:len(s)-2]
	case strings.HasSuffix(s, "KB"):
		multiplier = 1 << 10
		numStr = s[:len(s)-2]
	case strings.HasSuffix(s, "B"):
		numStr = s[:len(s)-1]
	}

	n, err := strconv.ParseFloat(strings.TrimSpace(numStr), 64)
	if err != nil || n < 0 {
		return 0, false
	}
	return int64(n * float64(multiplier)), true
}

// parseFlag accepts yes/no style values; anything unrecognized means yes
func parseFlag(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "no", "n", "false", "0", "off":
		return false
	}
	return true
}

// Candidate is one catalog entry as seen by the filter
type Candidate struct {
	ID          string
	Title       string
	Description string
	Size        int64
	Required    bool
	Installed   bool
	Update      bool
	IsComponent bool
}

// Matcher evaluates catalog entries against a query
type Matcher struct {
	query *Query
}

// NewMatcher creates a new Matcher for the given query
func NewMatcher(q *Query) *Matcher {
	return &Matcher{query: q}
}

// Match checks if an entry matches all directives in the query (AND logic)
func (m *Matcher) Match(c Candidate) bool {
	for _, d := range m.query.Directives {
		if !matchDirective(d, c) {
			return false
		}
	}
	return true
}

func matchDirective(d Directive, c Candidate) bool {
	switch d.Type {
	case DirName:
		pattern := strings.ToLower(d.Value)
		return matchGlob(strings.ToLower(c.ID), pattern) || matchGlob(strings.ToLower(c.Title), pattern)

	case DirDescription:
		return strings.Contains(strings.ToLower(c.Description), strings.ToLower(d.Value))

	case DirSize:
		// Categories have no size of their own
		if !c.IsComponent {
			return false
		}
		return compareInt(c.Size, d.NumValue, d.Operator)

	case DirRequired:
		return c.Required == d.Flag

	case DirInstalled:
		return c.IsComponent && c.Installed == d.Flag

	case DirUpdate:
		return c.IsComponent && c.Update == d.Flag

	case DirKind:
		switch d.Value {
		case "category", "cat", "folder":
			return !c.IsComponent
		case "component", "comp":
			return c.IsComponent
		}
		return false
	}

	return true
}

// matchGlob does simple glob matching with * wildcards
func matchGlob(name, pattern string) bool {
	// If pattern has no wildcards, do substring match
	if !strings.Contains(pattern, "*") {
		return strings.Contains(name, pattern)
	}

	parts := strings.Split(pattern, "*")

	// Check prefix
	if parts[0] != "" && !strings.HasPrefix(name, parts[0]) {
		return false
	}

	// Check suffix
	last := parts[len(parts)-1]
	if last != "" && !strings.HasSuffix(name, last) {
		return false
	}
	if len(parts[0])+len(last) > len(name) {
		return false
	}

	// Check middle parts exist in order
	pos := len(parts[0])
	end := len(name) - len(last)
	for _, part := range parts[1 : len(parts)-1] {
		if part == "" {
			continue
		}
		idx := strings.Index(name[pos:end], part)
		if idx < 0 {
			return false
		}
		pos += idx + len(part)
	}
	return true
}

func compareInt(val, target int64, op Operator) bool {
	switch op {
	case OpGreater:
		return val > target
	case OpLess:
		return val < target
	case OpGreaterEq:
		return val >= target
	case OpLessEq:
		return val <= target
	default:
		return val == target
	}
}

// IsEmpty returns true if query has no directives
func (q *Query) IsEmpty() bool {
	return len(q.Directives) == 0
}
