// Package session runs the hello handshake and the request/reply
// multiplexer on top of one SSH/netconf transport (spec.md §4.4). It
// owns a Transport and a Framer the way the teacher library's
// client.sesImpl owns a Transport and a codec.Decoder/Encoder pair
// (github.com/damianoneill/net/v2/netconf/client/message.go), but keyed
// on message-id against a single shared demultiplexer goroutine instead
// of a FIFO response-channel queue, since notifications and concurrent
// requests need id-based routing rather than arrival order.
package session

import (
	"context"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/ssh"

	"github.com/kolotsey/netconf-client/codec"
	"github.com/kolotsey/netconf-client/framer"
	"github.com/kolotsey/netconf-client/ncerrors"
	"github.com/kolotsey/netconf-client/transport"
)

// State is the session lifecycle state (spec.md §3).
type State int32

// Session lifecycle states, in the order a healthy session visits them.
const (
	StateUninitialized State = iota
	StateConnecting
	StateReady
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateConnecting:
		return "connecting"
	case StateReady:
		return "ready"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// NamespaceBase is the NETCONF 1.0 base namespace carried on every
// <rpc>/<hello> element (spec.md §6).
const NamespaceBase = "urn:ietf:params:xml:ns:netconf:base:1.0"

// CapabilityBase10 and CapabilityBase11 are the two capabilities the
// client hello advertises (spec.md §6). The client never advertises
// chunked framing (NETCONF 1.1), an explicit Non-goal.
const (
	CapabilityBase10 = "urn:ietf:params:xml:ns:netconf:base:1.0"
	CapabilityBase11 = "urn:ietf:params:netconf:base:1.0"
)

// Hello is the server-hello value, captured once at handshake and never
// mutated afterwards (spec.md §3).
type Hello struct {
	SessionID    int64
	Capabilities []string
}

// Envelope is a request/reply pair (spec.md §3): XML is the raw message
// text as it arrived off the wire; Result is its decoded tree, rooted at
// the message's own element (rpc-reply or hello).
type Envelope struct {
	XML    string
	Result codec.Value
}

// Notification is a decoded <notification> message (spec.md §3).
type Notification struct {
	EventTime string
	Payload   codec.Value
}

// waiter is the routing-table entry for one in-flight request. A
// streaming waiter (installed by Subscribe) stays registered after its
// first reply and continues to receive broadcast notifications until it
// is cancelled.
type waiter struct {
	streaming bool
	replied   bool
	reply     chan *Envelope
	notify    chan *Notification
	err       chan error

	once sync.Once
}

func (w *waiter) fail(err error) {
	w.once.Do(func() {
		w.err <- err
		close(w.err)
		if w.notify != nil {
			close(w.notify)
		}
	})
}

// Session multiplexes one ready SSH/netconf Transport across any number
// of concurrent requests, keyed by message-id (spec.md §4.4's "single
// shared demultiplexer" alternative).
type Session struct {
	target string
	corrID string
	cfg    *Config
	debug  DebugSink

	transport transport.Transport
	framer    *framer.Framer

	nextID int64

	mu            sync.Mutex
	state         State
	hello         *Hello
	helloEnvelope *Envelope
	waiters       map[string]*waiter

	helloCh  chan error
	closedCh chan struct{}
	closeErr error
}

// Open dials target over SSH, opens the netconf subsystem, runs the
// hello handshake and returns a ready Session. cfg may be nil, in which
// case DefaultConfig applies; debug may be nil, in which case nothing is
// logged.
func Open(ctx context.Context, target string, sshConfig *ssh.ClientConfig, cfg *Config, debug DebugSink) (*Session, error) {
	if debug == nil {
		debug = NoOpDebugSink
	}
	resolvedCfg := resolved(cfg)

	s := &Session{
		target:   target,
		corrID:   uuid.New().String(),
		cfg:      resolvedCfg,
		debug:    debug,
		framer:   framer.New(),
		state:    StateConnecting,
		waiters:  make(map[string]*waiter),
		helloCh:  make(chan error, 1),
		closedCh: make(chan struct{}),
	}

	tr, err := transport.Dial(ctx, target, sshConfig, "netconf", transport.Events{
		Error: func(err error) { s.fail(ncerrors.NewTransport(target, err)) },
		Close: func() { s.fail(ncerrors.NewTransport(target, errTransportClosed)) },
	})
	if err != nil {
		s.mu.Lock()
		s.state = StateClosed
		s.mu.Unlock()
		return nil, err
	}
	s.transport = tr

	go s.readLoop()

	if err := s.sendHello(); err != nil {
		s.fail(err)
		_ = tr.Close()
		return nil, err
	}

	select {
	case err := <-s.helloCh:
		if err != nil {
			s.fail(err)
			_ = tr.Close()
			return nil, err
		}
	case <-time.After(resolvedCfg.SetupTimeout):
		timeoutErr := ncerrors.NewTimeout("hello handshake")
		s.fail(timeoutErr)
		_ = tr.Close()
		return nil, timeoutErr
	case <-ctx.Done():
		s.fail(ctx.Err())
		_ = tr.Close()
		return nil, ctx.Err()
	}

	return s, nil
}

var errTransportClosed = ncerrors.NewSemantic("SSH session closed")

// log writes message to the debug sink prefixed with this session's
// correlation id, so concurrent sessions are distinguishable in a
// shared log stream without overloading the wire message-id for that
// purpose (SPEC_FULL.md §3's google/uuid wiring).
func (s *Session) log(message string, level Level) {
	s.debug("["+s.corrID+"] "+message, level)
}

func (s *Session) sendHello() error {
	caps := codec.List{CapabilityBase10, CapabilityBase11}
	capsMapping := codec.NewMapping()
	capsMapping.Set("capability", caps)

	hello := codec.NewMapping()
	hello.SetAttr("xmlns", NamespaceBase)
	hello.Set("capabilities", capsMapping)

	raw, err := codec.Encode("hello", hello)
	if err != nil {
		return ncerrors.NewProtocol("encode client hello", err)
	}
	return s.write(raw)
}

func (s *Session) write(raw string) error {
	_, err := s.transport.Write([]byte(raw + framer.Delimiter))
	if err != nil {
		return ncerrors.NewTransport(s.target, err)
	}
	return nil
}

func (s *Session) readLoop() {
	buf := make([]byte, 4096)
	for {
		n, err := s.transport.Read(buf)
		if err != nil {
			s.fail(ncerrors.NewTransport(s.target, err))
			return
		}
		if appendErr := s.framer.Append(buf[:n]); appendErr != nil {
			s.fail(appendErr)
			return
		}
		for {
			msg, ok := s.framer.Extract()
			if !ok {
				break
			}
			s.handleMessage(msg)
		}
	}
}

func (s *Session) handleMessage(raw string) {
	name, val, err := codec.Decode(raw, s.cfg.IgnoreAttributes)
	if err != nil {
		s.mu.Lock()
		connecting := s.state == StateConnecting
		s.mu.Unlock()
		if connecting {
			s.fail(ncerrors.NewProtocol("malformed hello", err))
		} else {
			s.log(ncerrors.NewProtocol("discarding malformed message", err).Error(), LevelWarn)
		}
		return
	}

	switch name.Local {
	case "hello":
		s.handleHello(raw, val)
	case "rpc-reply":
		s.handleReply(raw, val)
	case "notification":
		s.handleNotification(val)
	default:
		s.log("session: discarding message with unexpected root element "+name.Local, LevelDebug)
	}
}

func (s *Session) handleHello(raw string, val codec.Value) {
	m, ok := val.(*codec.Mapping)
	if !ok {
		s.helloFailed(ncerrors.NewProtocol("hello did not decode to a mapping", nil))
		return
	}

	sessionIDVal, ok := m.Get("session-id")
	if !ok {
		s.helloFailed(ncerrors.NewProtocol("hello missing session-id", nil))
		return
	}
	sessionID, ok := asInt64(sessionIDVal)
	if !ok {
		s.helloFailed(ncerrors.NewProtocol("hello session-id is not numeric", nil))
		return
	}

	var caps []string
	if capsVal, ok := m.Get("capabilities"); ok {
		if capsMapping, ok := capsVal.(*codec.Mapping); ok {
			if capVal, ok := capsMapping.Get("capability"); ok {
				caps = asStringList(capVal)
			}
		}
	}

	s.mu.Lock()
	s.hello = &Hello{SessionID: sessionID, Capabilities: caps}
	s.helloEnvelope = &Envelope{XML: raw, Result: val}
	s.state = StateReady
	s.mu.Unlock()

	s.helloCh <- nil
}

func (s *Session) helloFailed(err error) {
	select {
	case s.helloCh <- err:
	default:
	}
}

func (s *Session) handleReply(raw string, val codec.Value) {
	id, _ := replyMessageID(val)

	s.mu.Lock()
	w := s.waiters[id]
	if w != nil && !w.streaming {
		delete(s.waiters, id)
	}
	s.mu.Unlock()

	if w == nil {
		s.log("session: discarding rpc-reply with unmatched message-id "+id, LevelDebug)
		return
	}

	w.replied = true
	w.reply <- &Envelope{XML: raw, Result: val}
}

func replyMessageID(val codec.Value) (string, bool) {
	m, ok := val.(*codec.Mapping)
	if !ok {
		return "", false
	}
	attrs, ok := m.Get(codec.AttrKey)
	if !ok {
		return "", false
	}
	attrMapping, ok := attrs.(*codec.Mapping)
	if !ok {
		return "", false
	}
	idVal, ok := attrMapping.Get("message-id")
	if !ok {
		return "", false
	}
	return asString(idVal), true
}

func (s *Session) handleNotification(val codec.Value) {
	m, ok := val.(*codec.Mapping)
	if !ok {
		return
	}
	n := &Notification{}
	if t, ok := m.Get("eventTime"); ok {
		n.EventTime = asString(t)
	}
	n.Payload = val

	s.mu.Lock()
	var targets []*waiter
	for _, w := range s.waiters {
		if w.streaming {
			targets = append(targets, w)
		}
	}
	s.mu.Unlock()

	for _, w := range targets {
		select {
		case w.notify <- n:
		default:
			s.log("session: dropping notification, subscriber channel full", LevelWarn)
		}
	}
}

// Execute assigns the next message-id, injects xmlns/message-id
// attributes into body's $ sub-mapping, encodes it as rootName and
// writes it, then waits for the matching rpc-reply (spec.md §4.4,
// "sendRequest"). It does not inspect the reply for an rpc-error; the
// caller classifies it with codec.ClassifyReply.
func (s *Session) Execute(ctx context.Context, rootName string, body *codec.Mapping) (*Envelope, error) {
	if !s.ready() {
		return nil, ncerrors.NewSemantic("session is not ready")
	}

	id := s.nextMessageID()
	s.prepareRequest(body, id)

	raw, err := codec.Encode(rootName, body)
	if err != nil {
		return nil, ncerrors.NewProtocol("encode request", err)
	}

	w := &waiter{reply: make(chan *Envelope, 1), err: make(chan error, 1)}
	s.registerWaiter(id, w)
	defer s.unregisterWaiter(id)

	if err := s.write(raw); err != nil {
		return nil, err
	}

	return s.awaitReply(ctx, w, s.cfg.FirstReplyTimeout)
}

// Subscribe is Execute's streaming counterpart (spec.md §4.4 item 5): the
// waiter stays registered after its first reply and receives every
// notification the session subsequently decodes, until the returned
// cancel function is called or the session closes.
func (s *Session) Subscribe(ctx context.Context, rootName string, body *codec.Mapping) (*Envelope, <-chan *Notification, func(), error) {
	if !s.ready() {
		return nil, nil, nil, ncerrors.NewSemantic("session is not ready")
	}

	id := s.nextMessageID()
	s.prepareRequest(body, id)

	raw, err := codec.Encode(rootName, body)
	if err != nil {
		return nil, nil, nil, ncerrors.NewProtocol("encode request", err)
	}

	w := &waiter{
		streaming: true,
		reply:     make(chan *Envelope, 1),
		err:       make(chan error, 1),
		notify:    make(chan *Notification, 16),
	}
	s.registerWaiter(id, w)

	cancel := func() { s.unregisterWaiter(id) }

	if err := s.write(raw); err != nil {
		cancel()
		return nil, nil, nil, err
	}

	env, err := s.awaitReply(ctx, w, s.cfg.FirstReplyTimeout)
	if err != nil {
		cancel()
		return nil, nil, nil, err
	}
	return env, w.notify, cancel, nil
}

func (s *Session) prepareRequest(body *codec.Mapping, id int64) {
	body.SetAttr("xmlns", NamespaceBase)
	body.SetAttr("message-id", strconv.FormatInt(id, 10))
}

func (s *Session) nextMessageID() int64 {
	return atomic.AddInt64(&s.nextID, 1)
}

func (s *Session) registerWaiter(id int64, w *waiter) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.waiters[strconv.FormatInt(id, 10)] = w
}

func (s *Session) unregisterWaiter(id int64) {
	s.mu.Lock()
	w := s.waiters[strconv.FormatInt(id, 10)]
	delete(s.waiters, strconv.FormatInt(id, 10))
	s.mu.Unlock()
	if w != nil && w.notify != nil {
		w.once.Do(func() { close(w.notify) })
	}
}

func (s *Session) awaitReply(ctx context.Context, w *waiter, timeout time.Duration) (*Envelope, error) {
	select {
	case env := <-w.reply:
		return env, nil
	case err := <-w.err:
		return nil, err
	case <-time.After(timeout):
		return nil, ncerrors.NewTimeout("first reply")
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-s.closedCh:
		return nil, s.closeErrOrDefault()
	}
}

func (s *Session) closeErrOrDefault() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closeErr != nil {
		return s.closeErr
	}
	return ncerrors.NewSemantic("SSH session closed")
}

func (s *Session) ready() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state == StateReady
}

// fail transitions the session to closed and resolves every pending
// waiter with err, matching spec.md §4.4's close-on-fatal-error rule. It
// is idempotent.
func (s *Session) fail(err error) {
	s.mu.Lock()
	if s.state == StateClosed {
		s.mu.Unlock()
		return
	}
	s.state = StateClosed
	s.closeErr = err
	waiters := s.waiters
	s.waiters = make(map[string]*waiter)
	s.mu.Unlock()

	for _, w := range waiters {
		w.fail(err)
	}
	s.helloFailed(err)
	close(s.closedCh)
}

// Close sends close-session (best-effort, errors ignored, bounded by
// CloseTimeout), then tears the session down (spec.md §4.4). Close is
// idempotent against an already-closed session; calling it on a session
// that was never opened is a caller bug and is not handled here (the
// zero value of Session is not a usable session).
func (s *Session) Close(ctx context.Context) error {
	s.mu.Lock()
	already := s.state == StateClosed
	s.mu.Unlock()
	if already {
		return nil
	}

	closeCtx, cancel := context.WithTimeout(ctx, s.cfg.CloseTimeout)
	defer cancel()
	closeBody := codec.NewMapping()
	closeBody.Set("close-session", codec.NewMapping())
	_, _ = s.Execute(closeCtx, "rpc", closeBody)

	s.fail(ncerrors.NewSemantic("session closed"))
	return s.transport.Close()
}

// ID returns the server-assigned session-id from the captured hello.
func (s *Session) ID() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.hello == nil {
		return 0
	}
	return s.hello.SessionID
}

// HelloEnvelope returns the envelope captured from the server hello
// (spec.md §4.6, "hello() → server-hello envelope"), or nil if the
// session has not completed its handshake.
func (s *Session) HelloEnvelope() *Envelope {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.helloEnvelope
}

// ServerCapabilities returns the capabilities advertised in the server
// hello.
func (s *Session) ServerCapabilities() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.hello == nil {
		return nil
	}
	return s.hello.Capabilities
}

// State reports the session's current lifecycle state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func asString(v codec.Value) string {
	switch vv := v.(type) {
	case string:
		return vv
	case int64:
		return strconv.FormatInt(vv, 10)
	default:
		return ""
	}
}

func asInt64(v codec.Value) (int64, bool) {
	switch vv := v.(type) {
	case int64:
		return vv, true
	case string:
		n, err := strconv.ParseInt(vv, 10, 64)
		return n, err == nil
	default:
		return 0, false
	}
}

func asStringList(v codec.Value) []string {
	switch vv := v.(type) {
	case codec.List:
		out := make([]string, 0, len(vv))
		for _, item := range vv {
			out = append(out, asString(item))
		}
		return out
	default:
		return []string{asString(v)}
	}
}
