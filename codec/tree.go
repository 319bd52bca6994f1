// Package codec implements the universal document representation (spec.md
// §3, "Tree value") and its XML encoding/decoding (spec.md §4.3). Adapted
// from the teacher library's common/codec package
// (github.com/damianoneill/net/v2/netconf/common/codec), generalized from
// its typed-struct-plus-xml-tag approach to a dynamic tree so the resolver
// can synthesize documents whose shape is only known at request time.
package codec

// AttrKey and TextKey are the two reserved keys a Mapping may carry: the
// sub-mapping of XML attributes for that element, and the element's text
// when it also has attributes or children (spec.md §3).
const (
	AttrKey = "$"
	TextKey = "_"
)

// Value is one of Primitive, Mapping or List (spec.md §3's tagged union).
// It carries no behaviour of its own; codec, resolver and the client API
// all operate on the concrete types directly.
type Value interface{}

// Mapping is an ordered mapping from name to Value. Ordering matters for
// XML re-encoding (child element order is significant to most NETCONF
// servers), so Mapping tracks insertion order itself rather than relying
// on Go's unordered map iteration.
type Mapping struct {
	keys   []string
	values map[string]Value
}

// NewMapping returns an empty, ready-to-use Mapping.
func NewMapping() *Mapping {
	return &Mapping{values: make(map[string]Value)}
}

// Get returns the value stored under key, and whether it was present.
func (m *Mapping) Get(key string) (Value, bool) {
	v, ok := m.values[key]
	return v, ok
}

// Set stores value under key, preserving the position of an existing key
// or appending a new one at the end.
func (m *Mapping) Set(key string, value Value) {
	if _, exists := m.values[key]; !exists {
		m.keys = append(m.keys, key)
	}
	m.values[key] = value
}

// Delete removes key, if present.
func (m *Mapping) Delete(key string) {
	if _, exists := m.values[key]; !exists {
		return
	}
	delete(m.values, key)
	for i, k := range m.keys {
		if k == key {
			m.keys = append(m.keys[:i], m.keys[i+1:]...)
			break
		}
	}
}

// Keys returns the mapping's keys in insertion order.
func (m *Mapping) Keys() []string {
	out := make([]string, len(m.keys))
	copy(out, m.keys)
	return out
}

// Len reports the number of entries, excluding neither $ nor _.
func (m *Mapping) Len() int { return len(m.keys) }

// Attrs returns the attribute sub-mapping ($), creating it if absent.
func (m *Mapping) Attrs() *Mapping {
	v, ok := m.Get(AttrKey)
	if !ok {
		attrs := NewMapping()
		m.Set(AttrKey, attrs)
		return attrs
	}
	attrs, ok := v.(*Mapping)
	if !ok {
		attrs = NewMapping()
		m.Set(AttrKey, attrs)
	}
	return attrs
}

// SetAttr is shorthand for m.Attrs().Set(name, value).
func (m *Mapping) SetAttr(name string, value Value) {
	m.Attrs().Set(name, value)
}

// Text returns the element text (_), if set.
func (m *Mapping) Text() (string, bool) {
	v, ok := m.Get(TextKey)
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

// SetText sets the element text (_).
func (m *Mapping) SetText(text string) {
	m.Set(TextKey, text)
}

// Clone deep-copies m, including nested Mapping/List values.
func (m *Mapping) Clone() *Mapping {
	out := NewMapping()
	for _, k := range m.keys {
		out.Set(k, cloneValue(m.values[k]))
	}
	return out
}

func cloneValue(v Value) Value {
	switch vv := v.(type) {
	case *Mapping:
		return vv.Clone()
	case List:
		cp := make(List, len(vv))
		for i, item := range vv {
			cp[i] = cloneValue(item)
		}
		return cp
	default:
		return v
	}
}

// List is an ordered list of values, produced when an element repeats
// under the same parent (spec.md §3, §4.3).
type List []Value

// ChildNames returns the non-reserved keys of m, in order, excluding $/_
func (m *Mapping) ChildNames() []string {
	var out []string
	for _, k := range m.keys {
		if k == AttrKey || k == TextKey {
			continue
		}
		out = append(out, k)
	}
	return out
}
