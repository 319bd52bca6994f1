package codec

import "fmt"

// RPCError is the decoded form of an <rpc-error> element (spec.md §3).
type RPCError struct {
	Type     string
	Tag      string
	Severity string
	Message  string
	BadElement   string
	BadNamespace string
	BadContent   string
}

func (e *RPCError) Error() string {
	return fmt.Sprintf("netconf rpc-error [%s/%s] %s", e.Severity, e.Tag, e.Message)
}

// ReplyKind classifies a decoded rpc-reply body.
type ReplyKind int

const (
	// ReplyOK is an <rpc-reply> carrying neither <data> nor <rpc-error>
	// (normally a bare <ok/>; the <ok/> element itself is not checked).
	ReplyOK ReplyKind = iota
	// ReplyData is an <rpc-reply> carrying a <data> payload.
	ReplyData
	// ReplyError is an <rpc-reply> carrying one or more <rpc-error>.
	ReplyError
)

// Reply is the decoded, classified form of an rpc-reply (spec.md §3:
// "result wraps the rpc-reply decoded tree, which is either {ok: ...},
// {data: ...}, or {rpc-error: ...}").
type Reply struct {
	Kind   ReplyKind
	Data   Value
	Errors []*RPCError
}

// messageErrorText infers a human-readable message for an rpc-error that
// did not carry an explicit error-message, following spec.md §4.3's
// precedence: explicit error-message._ or error-message text; else an
// inferred text by error-tag (incorporating error-info.bad-element /
// bad-namespace when present); else the raw tag.
func messageErrorText(tag, badElement, badNamespace string) string {
	switch tag {
	case "unknown-element":
		if badElement != "" {
			return fmt.Sprintf("an unexpected element %q is present", badElement)
		}
		return "an unexpected element is present"
	case "unknown-namespace":
		if badElement != "" && badNamespace != "" {
			return fmt.Sprintf("an unexpected namespace %q is present on element %q", badNamespace, badElement)
		}
		return "an unexpected namespace is present"
	case "data-exists":
		return "data already exists"
	default:
		return tag
	}
}

// ClassifyReply walks a decoded <rpc-reply> tree (as produced by Decode)
// and returns its classified Reply.
func ClassifyReply(body Value) *Reply {
	m, ok := body.(*Mapping)
	if !ok {
		return &Reply{Kind: ReplyOK}
	}

	if errsVal, ok := m.Get("rpc-error"); ok {
		var errs []*RPCError
		switch e := errsVal.(type) {
		case List:
			for _, item := range e {
				errs = append(errs, decodeRPCError(item))
			}
		case *Mapping:
			errs = append(errs, decodeRPCError(e))
		}
		return &Reply{Kind: ReplyError, Errors: errs}
	}

	if data, ok := m.Get("data"); ok {
		return &Reply{Kind: ReplyData, Data: data}
	}

	return &Reply{Kind: ReplyOK}
}

func decodeRPCError(v Value) *RPCError {
	m, ok := v.(*Mapping)
	if !ok {
		return &RPCError{Tag: "unknown", Message: "malformed rpc-error"}
	}

	re := &RPCError{}
	if val, ok := m.Get("error-type"); ok {
		re.Type = asString(val)
	}
	if val, ok := m.Get("error-tag"); ok {
		re.Tag = asString(val)
	}
	if val, ok := m.Get("error-severity"); ok {
		re.Severity = asString(val)
	}

	if infoVal, ok := m.Get("error-info"); ok {
		if info, ok := infoVal.(*Mapping); ok {
			if v, ok := info.Get("bad-element"); ok {
				re.BadElement = asString(v)
			}
			if v, ok := info.Get("bad-namespace"); ok {
				re.BadNamespace = asString(v)
			}
			if v, ok := info.Get("bad-content"); ok {
				re.BadContent = asString(v)
			}
		}
	}

	re.Message = messageText(m, re.Tag, re.BadElement, re.BadNamespace)
	return re
}

func messageText(m *Mapping, tag, badElement, badNamespace string) string {
	if val, ok := m.Get("error-message"); ok {
		switch v := val.(type) {
		case string:
			return v
		case *Mapping:
			if text, ok := v.Text(); ok {
				return text
			}
		}
	}
	if tag != "" {
		return messageErrorText(tag, badElement, badNamespace)
	}
	return "unknown rpc error"
}

func asString(v Value) string {
	s, _ := v.(string)
	return s
}
