package codec

import (
	"bytes"
	"encoding/xml"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// Encode renders v (a *Mapping, List or primitive) as an XML document
// rooted at an element named rootName, with an XML declaration header
// (spec.md §4.3). A Mapping's $ sub-mapping becomes attributes of its
// element; its _ sub-key becomes element text; other keys become child
// elements, repeated as siblings when the value is a List.
func Encode(rootName string, v Value) (string, error) {
	var b strings.Builder
	b.WriteString(xml.Header)
	if err := encodeElement(&b, rootName, v); err != nil {
		return "", err
	}
	return b.String(), nil
}

func encodeElement(b *strings.Builder, name string, v Value) error {
	switch vv := v.(type) {
	case *Mapping:
		return encodeMapping(b, name, vv)
	case List:
		return errors.Errorf("codec: cannot encode a bare list as element %q; it must be a mapping's child value", name)
	default:
		b.WriteString("<" + name + ">")
		writeEscaped(b, formatPrimitive(vv))
		b.WriteString("</" + name + ">")
		return nil
	}
}

func encodeMapping(b *strings.Builder, name string, m *Mapping) error {
	b.WriteString("<" + name)

	if attrsVal, ok := m.Get(AttrKey); ok {
		if attrs, ok := attrsVal.(*Mapping); ok {
			for _, k := range attrs.Keys() {
				val, _ := attrs.Get(k)
				b.WriteString(" " + k + `="`)
				writeEscaped(b, formatPrimitive(val))
				b.WriteString(`"`)
			}
		}
	}

	text, hasText := m.Text()
	children := m.ChildNames()

	if len(children) == 0 && !hasText {
		b.WriteString("/>")
		return nil
	}

	b.WriteString(">")
	if hasText {
		writeEscaped(b, text)
	}
	for _, k := range children {
		child, _ := m.Get(k)
		if err := encodeChild(b, k, child); err != nil {
			return err
		}
	}
	b.WriteString("</" + name + ">")
	return nil
}

func encodeChild(b *strings.Builder, name string, v Value) error {
	if list, ok := v.(List); ok {
		for _, item := range list {
			if err := encodeElement(b, name, item); err != nil {
				return err
			}
		}
		return nil
	}
	return encodeElement(b, name, v)
}

func writeEscaped(b *strings.Builder, s string) {
	var buf bytes.Buffer
	_ = xml.EscapeText(&buf, []byte(s))
	b.Write(buf.Bytes())
}

func formatPrimitive(v Value) string {
	switch vv := v.(type) {
	case nil:
		return ""
	case string:
		return vv
	case bool:
		if vv {
			return "true"
		}
		return "false"
	case int:
		return strconv.Itoa(vv)
	case int64:
		return strconv.FormatInt(vv, 10)
	case float64:
		return strconv.FormatFloat(vv, 'f', -1, 64)
	default:
		return ""
	}
}

// Decode parses raw as XML and returns its root element name and tree
// value. Attributes become a $ sub-mapping, suppressed when
// ignoreAttributes is set; repeated same-named children become a List;
// whitespace-only text is discarded; numeric-looking text is coerced to
// a number (spec.md §4.3).
func Decode(raw string, ignoreAttributes bool) (xml.Name, Value, error) {
	dec := xml.NewDecoder(strings.NewReader(raw))

	for {
		tok, err := dec.Token()
		if err != nil {
			return xml.Name{}, nil, errors.Wrap(err, "codec: decode root element")
		}
		if start, ok := tok.(xml.StartElement); ok {
			v, err := decodeElement(dec, start, ignoreAttributes)
			if err != nil {
				return xml.Name{}, nil, err
			}
			return start.Name, v, nil
		}
	}
}

func decodeElement(dec *xml.Decoder, start xml.StartElement, ignoreAttributes bool) (Value, error) {
	m := NewMapping()

	if !ignoreAttributes && len(start.Attr) > 0 {
		attrs := NewMapping()
		for _, a := range start.Attr {
			attrs.Set(a.Name.Local, coercePrimitive(a.Value))
		}
		m.Set(AttrKey, attrs)
	}

	var text strings.Builder
	var childOrder []string
	childValues := map[string]Value{}

	for {
		tok, err := dec.Token()
		if err != nil {
			return nil, errors.Wrapf(err, "codec: decode element %q", start.Name.Local)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			child, err := decodeElement(dec, t, ignoreAttributes)
			if err != nil {
				return nil, err
			}
			name := t.Name.Local
			if existing, ok := childValues[name]; ok {
				if list, ok := existing.(List); ok {
					childValues[name] = append(list, child)
				} else {
					childValues[name] = List{existing, child}
				}
			} else {
				childValues[name] = child
				childOrder = append(childOrder, name)
			}

		case xml.CharData:
			text.Write(t)

		case xml.EndElement:
			trimmed := strings.TrimSpace(text.String())
			hasChildren := len(childOrder) > 0
			hasAttrs := m.Len() > 0

			if !hasChildren && !hasAttrs {
				return coercePrimitive(trimmed), nil
			}
			if trimmed != "" {
				m.SetText(trimmed)
			}
			for _, name := range childOrder {
				m.Set(name, childValues[name])
			}
			return m, nil
		}
	}
}

func coercePrimitive(s string) Value {
	if s == "" {
		return nil
	}
	if i, err := strconv.ParseInt(s, 10, 64); err == nil && isCleanNumber(s) {
		return i
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil && isCleanNumber(s) {
		return f
	}
	switch s {
	case "true":
		return true
	case "false":
		return false
	}
	return s
}

// isCleanNumber rejects numeric-looking strings with leading zeros or
// other formatting a round-trip would not reproduce (e.g. "00"), so that
// identifiers that merely look numeric are not silently reinterpreted.
func isCleanNumber(s string) bool {
	t := s
	if strings.HasPrefix(t, "-") {
		t = t[1:]
	}
	if len(t) > 1 && t[0] == '0' && t[1] != '.' {
		return false
	}
	return true
}
