package resolver

import "github.com/kolotsey/netconf-client/codec"

// MergeInto deep-merges values into target, in place, following spec.md
// §4.6's editConfigMerge ("deep-merge values into every matched
// mapping"). Where both target and values hold a *codec.Mapping under
// the same key, the merge recurses; otherwise values's entry overrides
// target's (or is appended, if target had no entry for that key).
//
// This walks codec.Mapping directly rather than going through
// github.com/imdario/mergo (the library SPEC_FULL.md originally
// proposed for this site): mergo merges map[string]interface{} values,
// and a round trip through plain maps has no way to carry a Mapping's
// child-insertion order, which spec.md §3 requires ("ordering matters
// for XML re-encoding"). mergo stays wired for session.Config, a plain
// struct, where no such ordering exists to lose.
func MergeInto(target *codec.Mapping, values *codec.Mapping) {
	if target == nil || values == nil {
		return
	}
	for _, k := range values.Keys() {
		srcVal, _ := values.Get(k)
		if dstVal, ok := target.Get(k); ok {
			if dstMapping, ok := dstVal.(*codec.Mapping); ok {
				if srcMapping, ok := srcVal.(*codec.Mapping); ok {
					MergeInto(dstMapping, srcMapping)
					continue
				}
			}
		}
		target.Set(k, cloneForMerge(srcVal))
	}
}

// cloneForMerge deep-copies a value being grafted into target, so the
// caller's values tree and the merged target share no mutable state
// afterwards (spec.md §5, "tree values handed to the caller are
// caller-owned thereafter").
func cloneForMerge(v codec.Value) codec.Value {
	switch vv := v.(type) {
	case *codec.Mapping:
		return vv.Clone()
	case codec.List:
		out := make(codec.List, len(vv))
		for i, item := range vv {
			out[i] = cloneForMerge(item)
		}
		return out
	default:
		return v
	}
}
