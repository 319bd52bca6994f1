// Package resolver implements the two XPath-to-document operations that
// sit between the client API and the codec's tree value: Build
// synthesizes an edit-config target from an XPath (optionally
// schema-guided), and Prune trims a get response down to the node the
// caller actually asked for (spec.md §4.5). Neither operation has a
// direct analog in the teacher library, which addresses configuration
// with typed Go structs rather than a runtime XPath grammar; this
// package is written in the teacher's plain, stdlib-parsing style (the
// same small hand-rolled recursive-descent/regexp approach the teacher
// uses for the codec's XML walk) rather than a full XPath engine, which
// spec.md §1 explicitly excludes.
package resolver

import (
	"regexp"
	"strings"
)

// StrictSegment is one `name(predicate)?` step of the restricted XPath
// grammar accepted without a schema (spec.md §6).
type StrictSegment struct {
	Name           string
	HasPredicate   bool
	PredicateKey   string
	PredicateValue string
}

var strictSegmentPattern = regexp.MustCompile(
	`^([A-Za-z_][\w\-.]*)(?:\[([A-Za-z_][\w\-.]*)=(?:'([^']*)'|"([^"]*)")\])?$`,
)

// ParseStrict splits xpath on `/` and matches every non-empty segment
// against the strict grammar. It returns (nil, false) if xpath contains
// `//` or `*` (forcing the schema path) or if any segment fails to
// match the grammar (spec.md §4.5.1 step 1).
func ParseStrict(xpath string) ([]StrictSegment, bool) {
	if strings.Contains(xpath, "//") || strings.Contains(xpath, "*") {
		return nil, false
	}

	var segments []StrictSegment
	for _, raw := range strings.Split(xpath, "/") {
		if raw == "" {
			continue
		}
		m := strictSegmentPattern.FindStringSubmatch(raw)
		if m == nil {
			return nil, false
		}
		seg := StrictSegment{Name: m[1]}
		if m[2] != "" {
			seg.HasPredicate = true
			seg.PredicateKey = m[2]
			if m[3] != "" || strings.Contains(raw, "='") {
				seg.PredicateValue = m[3]
			} else {
				seg.PredicateValue = m[4]
			}
		}
		segments = append(segments, seg)
	}
	return segments, true
}

// Canonicalize applies spec.md §4.5.1 step 2 / §4.5.2's shared
// normalization: `//` becomes `/*/`, repeated `*/*` collapses to `*`,
// the leading `/` is stripped, and bracket predicates are erased
// (repeatedly, shortest-innermost-first, since the grammar never nests
// brackets).
func Canonicalize(xpath string) string {
	s := strings.ReplaceAll(xpath, "//", "/*/")
	for strings.Contains(s, "*/*") {
		s = strings.ReplaceAll(s, "*/*", "*")
	}
	s = strings.TrimPrefix(s, "/")
	return stripPredicates(s)
}

var innermostPredicatePattern = regexp.MustCompile(`\[[^\[\]]*\]`)

func stripPredicates(s string) string {
	for {
		next := innermostPredicatePattern.ReplaceAllString(s, "")
		if next == s {
			return s
		}
		s = next
	}
}

// Segments splits a canonicalized path on `/`, discarding empty pieces
// (a leading/trailing slash or a canonical form that collapsed to
// nothing).
func Segments(canonical string) []string {
	if canonical == "" {
		return nil
	}
	var out []string
	for _, s := range strings.Split(canonical, "/") {
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}
