package netconf

import (
	"context"
	"fmt"
	"strings"

	"github.com/kolotsey/netconf-client/async"
	"github.com/kolotsey/netconf-client/codec"
	"github.com/kolotsey/netconf-client/ncerrors"
	"github.com/kolotsey/netconf-client/resolver"
	"github.com/kolotsey/netconf-client/session"
)

// Wire namespaces spec.md §6 names for the operations this client
// builds requests for.
const (
	nmdaNamespace         = "urn:ietf:params:xml:ns:yang:ietf-netconf-nmda"
	datastoreNamespace    = "urn:ietf:params:xml:ns:yang:ietf-datastores"
	ncOperationNamespace  = "urn:ietf:params:xml:ns:netconf:base:1.0"
	yangNamespace         = "urn:ietf:params:xml:ns:yang:1"
	notificationNamespace = "urn:ietf:params:xml:ns:netconf:notification:1.0"
)

func (c *Client) buildOptions() resolver.BuildOptions {
	return resolver.BuildOptions{
		Namespace:         c.params.Namespace,
		NamespaceAliases:  c.params.NamespaceAliases,
		GuessedNamespace:  c.guessedNamespaceSequence(),
		Schema:            c.schemaSequence(),
		AllowMultipleEdit: c.params.AllowMultipleEdit,
	}
}

func firstRPCError(errs []*codec.RPCError) error {
	if len(errs) == 0 {
		return ncerrors.NewSemantic("server returned rpc-error with no detail")
	}
	return errs[0]
}

// Hello returns the server-hello envelope captured during Dial's
// handshake (spec.md §4.6: "hello() → server-hello envelope. Causes
// session to enter ready on first call" — Dial already performs that
// transition, so Hello only replays what was captured).
func (c *Client) Hello() *async.Sequence {
	return async.Single(func(ctx context.Context) (interface{}, error) {
		env := c.sess.HelloEnvelope()
		if env == nil {
			return nil, ncerrors.NewSemantic("hello handshake has not completed")
		}
		return env, nil
	})
}

// GetData retrieves the subtree addressed by xpath (spec.md §4.6).
func (c *Client) GetData(xpath string, resultType ResultType) *async.Sequence {
	return async.Single(func(ctx context.Context) (interface{}, error) {
		return c.getData(ctx, xpath, resultType)
	})
}

func (c *Client) getData(ctx context.Context, xpath string, resultType ResultType) (*session.Envelope, error) {
	root := codec.NewMapping()
	if resultType == ResultUndefined {
		root.Set("get", buildGetBody(xpath))
	} else {
		root.Set("get-data", buildGetDataBody(xpath, resultType))
	}

	env, err := c.sess.Execute(ctx, "rpc", root)
	if err != nil {
		return nil, err
	}

	reply := codec.ClassifyReply(env.Result)
	if reply.Kind == codec.ReplyError {
		return nil, firstRPCError(reply.Errors)
	}

	data := reply.Data
	if resultType == ResultSchema {
		if m, ok := data.(*codec.Mapping); ok {
			m.Delete(codec.AttrKey)
		}
	}
	return &session.Envelope{XML: env.XML, Result: data}, nil
}

func buildGetBody(xpath string) *codec.Mapping {
	filter := codec.NewMapping()
	filter.SetAttr("type", "xpath")
	filter.SetAttr("select", xpath)
	get := codec.NewMapping()
	get.Set("filter", filter)
	return get
}

func buildGetDataBody(xpath string, resultType ResultType) *codec.Mapping {
	getData := codec.NewMapping()
	getData.SetAttr("xmlns", nmdaNamespace)
	getData.SetAttr("xmlns:ds", datastoreNamespace)
	getData.Set("datastore", "ds:operational")
	getData.Set("xpath-filter", xpath)

	switch resultType {
	case ResultSchema:
		getData.Set("max-depth", "1")
	case ResultConfig:
		getData.Set("config-filter", "true")
		getData.Set("with-defaults", "report-all")
	case ResultState:
		getData.Set("config-filter", "false")
		getData.Set("with-defaults", "report-all")
	}
	return getData
}

// EditConfigMerge resolves xpath (strict or schema-guided) and
// deep-merges values into every matched mapping, wrapped in an
// edit-config targeting running (spec.md §4.6).
func (c *Client) EditConfigMerge(xpath string, values *codec.Mapping) *async.Sequence {
	return async.Single(func(ctx context.Context) (interface{}, error) {
		return c.editConfig(ctx, xpath, values, nil)
	})
}

// editOperation marks how matched mappings are tagged before the
// resolved config subtree is sent.
type editOperation struct {
	operation string // "" (merge, no marker), "create" or "delete"
	beforeKey string // yang:insert=before ordering key, editConfigCreate only
	hasBefore bool
}

func (c *Client) editConfig(ctx context.Context, xpath string, values *codec.Mapping, op *editOperation) (*session.Envelope, error) {
	if c.params.ReadOnly {
		return nil, ncerrors.ErrReadOnly
	}

	configRoot := codec.NewMapping()
	matches, err := resolver.Build(ctx, configRoot, xpath, c.buildOptions())
	if err != nil {
		return nil, err
	}

	for _, m := range matches {
		if values != nil {
			resolver.MergeInto(m, values)
		}
		if op != nil {
			m.SetAttr("xmlns:nc", ncOperationNamespace)
			m.SetAttr("nc:operation", op.operation)
			if op.hasBefore {
				m.SetAttr("xmlns:yang", yangNamespace)
				m.SetAttr("yang:insert", "before")
				m.SetAttr("yang:key", op.beforeKey)
			}
		}
	}

	return c.sendEditConfig(ctx, configRoot)
}

func (c *Client) sendEditConfig(ctx context.Context, configRoot *codec.Mapping) (*session.Envelope, error) {
	target := codec.NewMapping()
	target.Set("running", codec.NewMapping())

	editConfig := codec.NewMapping()
	editConfig.Set("target", target)
	editConfig.Set("config", configRoot)

	root := codec.NewMapping()
	root.Set("edit-config", editConfig)

	env, err := c.sess.Execute(ctx, "rpc", root)
	if err != nil {
		return nil, err
	}

	reply := codec.ClassifyReply(env.Result)
	if reply.Kind == codec.ReplyError {
		return nil, firstRPCError(reply.Errors)
	}
	var hasOK bool
	if body, isMapping := env.Result.(*codec.Mapping); isMapping {
		_, hasOK = body.Get("ok")
	}
	if !hasOK {
		return nil, ncerrors.NewSemantic("server response did not include OK")
	}

	okResult := codec.NewMapping()
	okResult.Set("ok", "operation successful")
	return &session.Envelope{XML: env.XML, Result: okResult}, nil
}

// EditConfigCreate is EditConfigMerge plus the create operation marker
// on every matched mapping; when beforeKey is non-empty it additionally
// requests ordered insertion before that key (spec.md §4.6).
func (c *Client) EditConfigCreate(xpath string, values *codec.Mapping, beforeKey string) *async.Sequence {
	return async.Single(func(ctx context.Context) (interface{}, error) {
		op := &editOperation{operation: "create"}
		if beforeKey != "" {
			op.hasBefore = true
			op.beforeKey = beforeKey
		}
		return c.editConfig(ctx, xpath, values, op)
	})
}

// EditConfigDelete is EditConfigMerge plus the delete operation marker
// on every matched mapping (spec.md §4.6).
func (c *Client) EditConfigDelete(xpath string, values *codec.Mapping) *async.Sequence {
	return async.Single(func(ctx context.Context) (interface{}, error) {
		return c.editConfig(ctx, xpath, values, &editOperation{operation: "delete"})
	})
}

// EditConfigCreateListItems finds the list parent addressed by xpath
// and replaces its named child with a list of create-tagged entries,
// one per item (spec.md §4.6).
func (c *Client) EditConfigCreateListItems(xpath string, items []codec.Value) *async.Sequence {
	return async.Single(func(ctx context.Context) (interface{}, error) {
		return c.editConfigListItems(ctx, xpath, items, "create")
	})
}

// EditConfigDeleteListItems is EditConfigCreateListItems with the
// delete operation marker.
func (c *Client) EditConfigDeleteListItems(xpath string, items []codec.Value) *async.Sequence {
	return async.Single(func(ctx context.Context) (interface{}, error) {
		return c.editConfigListItems(ctx, xpath, items, "delete")
	})
}

// editConfigListItems resolves xpath down to its second-to-last
// segment (the list's parent) and sets the last segment's name to a
// List of { $: {nc:operation, xmlns:nc}, _: item } entries (spec.md
// §4.6: "find the list parent via the resolver, then replace the
// target child with a list of entries"). The exact mechanics of
// "finding the list parent" are left unspecified by spec.md; this
// splits the xpath's trailing strict segment off and resolves the
// remainder as the parent, falling back to the bare config root when
// the xpath names only one segment.
func (c *Client) editConfigListItems(ctx context.Context, xpath string, items []codec.Value, operation string) (*session.Envelope, error) {
	if c.params.ReadOnly {
		return nil, ncerrors.ErrReadOnly
	}

	parentXPath, lastName, ok := splitLastSegment(xpath)
	if !ok {
		return nil, ncerrors.NewInvalidArgument("xpath %q is not a strict list-item path", xpath)
	}

	configRoot := codec.NewMapping()
	var parent *codec.Mapping
	if parentXPath == "" {
		parent = configRoot
	} else {
		matches, err := resolver.Build(ctx, configRoot, parentXPath, c.buildOptions())
		if err != nil {
			return nil, err
		}
		parent = matches[0]
	}

	entries := make(codec.List, 0, len(items))
	for _, item := range items {
		entry := codec.NewMapping()
		entry.SetAttr("xmlns:nc", ncOperationNamespace)
		entry.SetAttr("nc:operation", operation)
		entry.Set(codec.TextKey, item)
		entries = append(entries, entry)
	}
	parent.Set(lastName, entries)

	return c.sendEditConfig(ctx, configRoot)
}

// splitLastSegment parses xpath as a strict path and returns the
// re-stringified xpath of every segment but the last, and the last
// segment's bare name.
func splitLastSegment(xpath string) (parentXPath string, lastName string, ok bool) {
	segs, ok := resolver.ParseStrict(xpath)
	if !ok || len(segs) == 0 {
		return "", "", false
	}
	last := segs[len(segs)-1]
	if len(segs) == 1 {
		return "", last.Name, true
	}
	var b strings.Builder
	for _, s := range segs[:len(segs)-1] {
		b.WriteString("/" + s.Name)
		if s.HasPredicate {
			fmt.Fprintf(&b, "[%s=%q]", s.PredicateKey, s.PredicateValue)
		}
	}
	return b.String(), last.Name, true
}

// RPC builds an arbitrary request from xpath (strict form only; no
// schema-guided resolution) with values deep-merged into its terminal,
// and submits it as a bare <rpc> (spec.md §4.6).
func (c *Client) RPC(xpath string, values *codec.Mapping) *async.Sequence {
	return async.Single(func(ctx context.Context) (interface{}, error) {
		if c.params.ReadOnly {
			return nil, ncerrors.ErrReadOnly
		}
		if xpath == "" || xpath == "/" || xpath == "//" {
			return nil, ncerrors.NewInvalidArgument("rpc xpath must not be empty, \"/\" or \"//\"")
		}

		root := codec.NewMapping()
		matches, err := resolver.Build(ctx, root, xpath, resolver.BuildOptions{AllowMultipleEdit: true})
		if err != nil {
			return nil, err
		}
		for _, m := range matches {
			if values != nil {
				resolver.MergeInto(m, values)
			}
		}

		env, err := c.sess.Execute(ctx, "rpc", root)
		if err != nil {
			return nil, err
		}
		reply := codec.ClassifyReply(env.Result)
		if reply.Kind == codec.ReplyError {
			return nil, firstRPCError(reply.Errors)
		}
		return env, nil
	})
}

// SubscriptionOption selects how Subscription filters the event stream:
// exactly one of XPath or Stream should be set (spec.md §4.6).
type SubscriptionOption struct {
	XPath  string
	Stream string
}

// Subscription issues create-subscription and returns a sequence that
// yields the OK rpc-reply, then each notification, then completes; stop
// cancels the stream early and the sequence completes after emitting one
// terminal empty value (spec.md §4.6).
func (c *Client) Subscription(opt SubscriptionOption, stop <-chan struct{}) *async.Sequence {
	return async.New(func(ctx context.Context, values chan<- interface{}, cancel <-chan struct{}) error {
		body := codec.NewMapping()
		create := codec.NewMapping()
		create.SetAttr("xmlns", notificationNamespace)
		if opt.XPath != "" {
			filter := codec.NewMapping()
			filter.SetAttr("type", "xpath")
			filter.SetAttr("select", opt.XPath)
			create.Set("filter", filter)
		}
		if opt.Stream != "" {
			create.Set("stream", opt.Stream)
		}
		body.Set("create-subscription", create)

		env, notifyCh, unsubscribe, err := c.sess.Subscribe(ctx, "rpc", body)
		if err != nil {
			return err
		}
		defer unsubscribe()

		reply := codec.ClassifyReply(env.Result)
		if reply.Kind == codec.ReplyError {
			return firstRPCError(reply.Errors)
		}

		select {
		case values <- env:
		case <-cancel:
			return nil
		}

		for {
			select {
			case n, ok := <-notifyCh:
				if !ok {
					return nil
				}
				select {
				case values <- n:
				case <-cancel:
					return nil
				}
			case <-stop:
				select {
				case values <- struct{}{}:
				case <-cancel:
				}
				return nil
			case <-cancel:
				return nil
			}
		}
	})
}

// Close performs an orderly teardown of the underlying session (spec.md
// §4.4).
func (c *Client) Close(ctx context.Context) error {
	return c.sess.Close(ctx)
}
