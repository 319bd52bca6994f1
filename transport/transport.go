// Package transport establishes the SSH connection that carries NETCONF
// traffic: it dials, opens the `netconf` subsystem and exposes a duplex
// byte channel. It neither frames nor parses payload bytes; that is the
// framer and codec packages' job. Adapted from the teacher library's
// netconf.Transport (github.com/damianoneill/net/netconf/transport.go),
// generalized to the ready/error/timeout/close event model of spec.md §4.2.
package transport

import (
	"context"
	"io"
	"time"

	"golang.org/x/crypto/ssh"

	"github.com/kolotsey/netconf-client/ncerrors"
)

// ReadyTimeout is the single SSH ready-timeout that applies to connect +
// subsystem-open (spec.md §4.2, §5).
const ReadyTimeout = 20 * time.Second

// Events groups the four observable transport events. Any may be left
// nil; the transport only calls the ones that are set.
type Events struct {
	Ready func()
	Error func(err error)
	Timeout func()
	Close func()
}

// Transport is a pure byte pipe over an SSH `netconf` subsystem channel.
type Transport interface {
	io.ReadWriteCloser

	// WriteAsync is a fire-and-forget write with an optional completion
	// callback (spec.md §4.2: "writes are fire-and-forget with an
	// optional completion callback").
	WriteAsync(b []byte, done func(n int, err error))
}

type sshTransport struct {
	target string
	reader io.Reader
	writer io.WriteCloser
	sess   *ssh.Session
	client *ssh.Client

	events Events
}

// Dial connects to target over SSH using clientConfig, requests the named
// subsystem (normally "netconf") and returns the resulting duplex
// channel. The whole operation (dial + subsystem open) is bounded by
// ReadyTimeout; ctx cancellation is also honoured.
func Dial(ctx context.Context, target string, clientConfig *ssh.ClientConfig, subsystem string, events Events) (Transport, error) {
	t := &sshTransport{target: target, events: events}

	type result struct {
		t   *sshTransport
		err error
	}
	done := make(chan result, 1)

	go func() {
		err := t.open(clientConfig, subsystem)
		done <- result{t, err}
	}()

	select {
	case r := <-done:
		if r.err != nil {
			t.fireError(r.err)
			return nil, ncerrors.NewTransport(target, r.err)
		}
		t.fireReady()
		return t, nil
	case <-time.After(ReadyTimeout):
		t.fireTimeout()
		return nil, ncerrors.NewTimeout("ssh connect/subsystem-open")
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (t *sshTransport) open(clientConfig *ssh.ClientConfig, subsystem string) (err error) {
	defer func() {
		if err != nil {
			t.closeOnFailure()
		}
	}()

	t.client, err = ssh.Dial("tcp", t.target, clientConfig)
	if err != nil {
		return err
	}

	t.sess, err = t.client.NewSession()
	if err != nil {
		return err
	}

	if err = t.sess.RequestSubsystem(subsystem); err != nil {
		return err
	}

	if t.reader, err = t.sess.StdoutPipe(); err != nil {
		return err
	}

	if t.writer, err = t.sess.StdinPipe(); err != nil {
		return err
	}

	return nil
}

func (t *sshTransport) closeOnFailure() {
	if t.sess != nil {
		_ = t.sess.Close()
	}
	if t.client != nil {
		_ = t.client.Close()
	}
}

func (t *sshTransport) Read(p []byte) (int, error) {
	n, err := t.reader.Read(p)
	if err != nil && err != io.EOF {
		t.fireError(err)
	}
	return n, err
}

func (t *sshTransport) Write(p []byte) (int, error) {
	n, err := t.writer.Write(p)
	if err != nil {
		t.fireError(err)
	}
	return n, err
}

// WriteAsync writes p without blocking the caller on completion; done, if
// non-nil, is invoked with the result once the write finishes.
func (t *sshTransport) WriteAsync(p []byte, done func(n int, err error)) {
	go func() {
		n, err := t.Write(p)
		if done != nil {
			done(n, err)
		}
	}()
}

// Close tears down the channel in order: stdin pipe, SSH session, SSH
// client. Errors are returned with priority matching that order.
func (t *sshTransport) Close() error {
	var writeErr, sessErr, clientErr error

	if t.writer != nil {
		writeErr = t.writer.Close()
	}
	if t.sess != nil {
		sessErr = t.sess.Close()
	}
	if t.client != nil {
		clientErr = t.client.Close()
	}

	t.fireClose()

	switch {
	case writeErr != nil:
		return writeErr
	case sessErr != nil:
		return sessErr
	default:
		return clientErr
	}
}

func (t *sshTransport) fireReady() {
	if t.events.Ready != nil {
		t.events.Ready()
	}
}

func (t *sshTransport) fireError(err error) {
	if t.events.Error != nil {
		t.events.Error(err)
	}
}

func (t *sshTransport) fireTimeout() {
	if t.events.Timeout != nil {
		t.events.Timeout()
	}
}

func (t *sshTransport) fireClose() {
	if t.events.Close != nil {
		t.events.Close()
	}
}
