// Package framer implements the NETCONF end-of-message delimiter framing
// (RFC 6242 §4.3). It is a purely synchronous byte buffer: callers append
// bytes as they arrive off the wire and extract complete messages one at a
// time. It holds no reference to a transport and does no I/O itself,
// mirroring the teacher library's rfc6242 decoder's separation of framing
// from transport (github.com/damianoneill/net/netconf/rfc6242).
package framer

import (
	"bytes"

	"github.com/kolotsey/netconf-client/ncerrors"
)

// Delimiter is the literal seven-byte end-of-message marker that
// terminates every NETCONF 1.0 message (RFC 6242 §4.3).
const Delimiter = "]]>]]>"

// MaxBuffered is the ceiling on the number of unextracted bytes a Framer
// will hold. The delimiter's own bytes count toward this ceiling like any
// other bytes (spec design note, §9).
const MaxBuffered = 50 * 1024 * 1024 // 50 MiB

// Framer splits an incoming byte stream on Delimiter.
//
// Framer is not safe for concurrent use; the session package gives each
// in-flight request (or the shared demultiplexer) its own Framer.
type Framer struct {
	buf bytes.Buffer
}

// New returns an empty Framer.
func New() *Framer {
	return &Framer{}
}

// Append adds b to the buffer. It returns an error (and leaves the buffer
// unchanged) if doing so would grow the buffer past MaxBuffered; the
// caller must treat that as fatal for the owning session.
func (f *Framer) Append(b []byte) error {
	if f.buf.Len()+len(b) > MaxBuffered {
		return ncerrors.NewFraming("framer: buffered input exceeds 50MiB limit")
	}
	f.buf.Write(b)
	return nil
}

// Extract removes and returns the next complete message (the bytes before
// the first Delimiter), or ("", false) if no complete message is currently
// buffered. Extraction removes the prefix up to and including the
// delimiter; any bytes after it remain buffered for the next call.
func (f *Framer) Extract() (string, bool) {
	b := f.buf.Bytes()
	idx := bytes.Index(b, []byte(Delimiter))
	if idx < 0 {
		return "", false
	}

	msg := make([]byte, idx)
	copy(msg, b[:idx])

	rest := make([]byte, len(b)-idx-len(Delimiter))
	copy(rest, b[idx+len(Delimiter):])

	f.buf.Reset()
	f.buf.Write(rest)

	return string(msg), true
}

// Clear discards all buffered bytes.
func (f *Framer) Clear() {
	f.buf.Reset()
}

// Len reports the number of bytes currently buffered (exported for tests
// and debug tracing; not part of the core extraction contract).
func (f *Framer) Len() int {
	return f.buf.Len()
}
