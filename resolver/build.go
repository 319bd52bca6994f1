package resolver

import (
	"context"

	"github.com/kolotsey/netconf-client/async"
	"github.com/kolotsey/netconf-client/codec"
	"github.com/kolotsey/netconf-client/ncerrors"
)

// BuildOptions carries Build's optional inputs (spec.md §4.5.1).
type BuildOptions struct {
	// Namespace is injected as $.xmlns on the first segment's mapping
	// when set.
	Namespace string

	// NamespaceAliases is injected as $["xmlns:"+alias] pairs on the
	// first segment's mapping when set.
	NamespaceAliases map[string]string

	// GuessedNamespace is awaited for a single value (a namespace URI
	// string, or nothing) when neither Namespace nor NamespaceAliases is
	// set and this is set
	// (spec.md §4.5.1 step 1).
	GuessedNamespace *async.Sequence

	// Schema, if set, is awaited once for a schema tree to guide
	// resolution of an XPath containing `//` or `*` (spec.md §4.5.1
	// step 2).
	Schema *async.Sequence

	// AllowMultipleEdit suppresses MultipleEditError when Build matches
	// more than one target.
	AllowMultipleEdit bool
}

// Build synthesizes the edit-config target mapping(s) addressed by
// xpath, mutating target in place (strict path) or a deep copy of the
// awaited schema (schema path), per spec.md §4.5.1.
func Build(ctx context.Context, target *codec.Mapping, xpath string, opts BuildOptions) ([]*codec.Mapping, error) {
	if xpath == "" || xpath == "/" || xpath == "//" {
		return nil, ncerrors.NewInvalidArgument("xpath must not be empty, \"/\" or \"//\"")
	}
	if containsUnion(xpath) {
		return nil, ncerrors.NewInvalidArgument("xpath must not contain the union operator '|'")
	}

	var (
		results []*codec.Mapping
		err     error
	)

	if segments, ok := ParseStrict(xpath); ok {
		results, err = buildStrict(ctx, target, segments, opts)
	} else {
		results, err = buildSchema(ctx, xpath, opts)
	}
	if err != nil {
		return nil, err
	}

	if len(results) == 0 {
		return nil, ncerrors.NewSemantic("Failed to build the edit config message matching the XPath/Schema")
	}
	if len(results) > 1 && !opts.AllowMultipleEdit {
		return nil, ncerrors.NewMultipleEdit(len(results))
	}
	return results, nil
}

func containsUnion(xpath string) bool {
	for _, r := range xpath {
		if r == '|' {
			return true
		}
	}
	return false
}

func buildStrict(ctx context.Context, target *codec.Mapping, segments []StrictSegment, opts BuildOptions) ([]*codec.Mapping, error) {
	cur := target
	for i, seg := range segments {
		child := codec.NewMapping()
		cur.Set(seg.Name, child)
		if seg.HasPredicate {
			child.Set(seg.PredicateKey, seg.PredicateValue)
		}
		if i == 0 {
			injectNamespace(ctx, child, opts)
		}
		cur = child
	}
	return []*codec.Mapping{cur}, nil
}

func injectNamespace(ctx context.Context, m *codec.Mapping, opts BuildOptions) {
	if opts.Namespace != "" || len(opts.NamespaceAliases) > 0 {
		if opts.Namespace != "" {
			m.SetAttr("xmlns", opts.Namespace)
		}
		for alias, uri := range opts.NamespaceAliases {
			m.SetAttr("xmlns:"+alias, uri)
		}
		return
	}
	if opts.GuessedNamespace == nil {
		return
	}
	v, err := opts.GuessedNamespace.First(ctx)
	if err != nil || v == nil {
		return
	}
	if uri, ok := v.(string); ok && uri != "" {
		m.SetAttr("xmlns", uri)
	}
}

func buildSchema(ctx context.Context, xpath string, opts BuildOptions) ([]*codec.Mapping, error) {
	if opts.Schema == nil {
		return nil, ncerrors.NewSemantic("xpath %q requires a schema to resolve its wildcards", xpath)
	}
	v, err := opts.Schema.First(ctx)
	if err != nil {
		return nil, err
	}
	schema, ok := v.(*codec.Mapping)
	if !ok {
		return nil, ncerrors.NewSemantic("schema producer did not yield a mapping")
	}

	root := schema.Clone()
	segs := Segments(Canonicalize(xpath))

	w := &schemaWalk{opts: opts}
	return w.walk(ctx, root, segs, true), nil
}

type schemaWalk struct {
	opts BuildOptions
}

func (w *schemaWalk) walk(ctx context.Context, node *codec.Mapping, segs []string, first bool) []*codec.Mapping {
	if len(segs) == 0 {
		return []*codec.Mapping{finalize(node)}
	}

	seg := segs[0]
	rest := segs[1:]

	if seg == "*" {
		if first {
			injectNamespace(ctx, node, w.opts)
		}
		if len(rest) == 0 {
			return []*codec.Mapping{finalize(node)}
		}
		nextName := rest[0]
		var out []*codec.Mapping
		for _, parent := range findParentsWithChild(node, nextName) {
			out = append(out, w.walk(ctx, parent, rest, false)...)
		}
		return out
	}

	childVal, ok := node.Get(seg)
	if !ok {
		return nil
	}
	if _, isList := childVal.(codec.List); isList {
		fresh := codec.NewMapping()
		node.Set(seg, fresh)
		childVal = fresh
	}
	child, ok := childVal.(*codec.Mapping)
	if !ok {
		return nil
	}

	if first {
		injectNamespace(ctx, child, w.opts)
	}

	results := w.walk(ctx, child, rest, false)
	if len(results) == 0 {
		node.Delete(seg)
	}
	return results
}

// finalize strips a matched mapping's nested mapping/list sub-keys,
// leaving only primitives and its $ attributes (spec.md §4.5.1 step 2,
// "on reaching a matched terminal").
func finalize(m *codec.Mapping) *codec.Mapping {
	for _, k := range m.ChildNames() {
		v, _ := m.Get(k)
		switch v.(type) {
		case *codec.Mapping, codec.List:
			m.Delete(k)
		}
	}
	return m
}

// findParentsWithChild returns every mapping reachable from node
// (including node itself) that directly owns a child named name,
// jumping through intermediate mapping levels (spec.md §4.5.1 step 2,
// "* followed by name").
func findParentsWithChild(node *codec.Mapping, name string) []*codec.Mapping {
	var out []*codec.Mapping
	if _, ok := node.Get(name); ok {
		out = append(out, node)
	}
	for _, k := range node.ChildNames() {
		v, _ := node.Get(k)
		switch vv := v.(type) {
		case *codec.Mapping:
			out = append(out, findParentsWithChild(vv, name)...)
		case codec.List:
			for _, item := range vv {
				if m, ok := item.(*codec.Mapping); ok {
					out = append(out, findParentsWithChild(m, name)...)
				}
			}
		}
	}
	return out
}
