package resolver

import (
	"strings"

	"github.com/kolotsey/netconf-client/codec"
)

// Prune trims tree down to the node addressed by xpath, the original
// filter the caller used to request it (spec.md §4.5.2). A server
// always returns the full ancestor chain down to the requested node;
// Prune returns just that node wrapped under its own key, following the
// literal boundary cases in spec.md §8.
func Prune(tree codec.Value, xpath string) codec.Value {
	if strings.Contains(xpath, "|") {
		return tree
	}

	canonical := Canonicalize(xpath)
	segs := Segments(canonical)
	if len(segs) == 0 {
		return tree
	}

	var (
		current  = tree
		lastKey  string
		lastVal  codec.Value
		haveLast bool
	)

	i := 0
	for i < len(segs) {
		seg := segs[i]

		if seg == "*" {
			if i == len(segs)-1 {
				// Trailing wildcard: the current node, mapping or
				// list, is returned as-is (spec.md §8 scenario 5).
				return current
			}

			nextLit := segs[i+1]
			matches := deepSearch(current, nextLit)
			if len(matches) != 1 {
				// Ambiguous (zero or multiple) deep match: spec.md §8
				// scenarios 4 and 6 both resolve this to the original,
				// unpruned tree.
				return tree
			}

			lastKey, lastVal = nextLit, matches[0].value
			haveLast = true
			current = matches[0].value
			i += 2
			continue
		}

		m, ok := current.(*codec.Mapping)
		if !ok {
			return wrap(haveLast, lastKey, lastVal, tree)
		}
		child, ok := m.Get(seg)
		if !ok {
			return wrap(haveLast, lastKey, lastVal, tree)
		}

		lastKey, lastVal = seg, child
		haveLast = true
		current = child
		i++
	}

	return wrap(haveLast, lastKey, lastVal, tree)
}

func wrap(haveLast bool, key string, val codec.Value, original codec.Value) codec.Value {
	if !haveLast {
		return original
	}
	m := codec.NewMapping()
	m.Set(key, val)
	return m
}

type deepMatch struct {
	key   string
	value codec.Value
}

// deepSearch looks for every occurrence of a child named target
// reachable from node, jumping through intermediate mappings. A list
// encountered along the way that is not itself the target is a dead
// end: it counts as a match bound to its own key, and its elements are
// not searched (spec.md §4.5.2, "if a list is encountered along the
// way, bind to that list's parent key and stop descending").
func deepSearch(node codec.Value, target string) []deepMatch {
	m, ok := node.(*codec.Mapping)
	if !ok {
		return nil
	}

	var out []deepMatch
	for _, k := range m.ChildNames() {
		v, _ := m.Get(k)
		switch vv := v.(type) {
		case codec.List:
			// Whether or not k is the target, a list is a dead end:
			// its elements are never searched.
			out = append(out, deepMatch{key: k, value: vv})
		case *codec.Mapping:
			if k == target {
				out = append(out, deepMatch{key: k, value: vv})
			} else {
				out = append(out, deepSearch(vv, target)...)
			}
		default:
			if k == target {
				out = append(out, deepMatch{key: k, value: vv})
			}
		}
	}
	return out
}
