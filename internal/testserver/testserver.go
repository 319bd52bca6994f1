// Package testserver provides an in-process SSH server for exercising the
// transport, session and client packages without a real NETCONF device.
// Adapted from the teacher library's testutil.SSHServer
// (github.com/damianoneill/net/testutil/test_server.go): the generic SSH
// plumbing (host key generation, password auth, subsystem acceptance) is
// kept; the teacher's "GOT:%s\n" line-echo handler is replaced with one
// that speaks real end-of-message-framed NETCONF hello/rpc-reply traffic
// so session- and client-level tests can run against it.
package testserver

import (
	"bufio"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"fmt"
	"net"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/ssh"
)

// TestUserName and TestPassword are the credentials every Server accepts
// by default.
const (
	TestUserName = "testUser"
	TestPassword = "testPassword"
)

const delimiter = "]]>]]>"

// Server is an in-process SSH server exposing a "netconf" subsystem.
type Server struct {
	listener net.Listener

	mu      sync.Mutex
	replies map[string]string // message-id -> raw rpc-reply body, installed by tests
	hello   string

	t *testing.T
}

// New starts a Server on an ephemeral localhost port, accepting the given
// credentials.
func New(t *testing.T, uname, password string) *Server {
	listener, err := net.Listen("tcp", "localhost:0")
	require.NoError(t, err, "listen failed")

	s := &Server{
		listener: listener,
		replies:  make(map[string]string),
		t:        t,
		hello: `<hello xmlns="urn:ietf:params:xml:ns:netconf:base:1.0">` +
			`<capabilities><capability>urn:ietf:params:xml:ns:netconf:base:1.0</capability></capabilities>` +
			`<session-id>4</session-id></hello>`,
	}

	go s.acceptConnections(newServerConfig(t, uname, password))
	return s
}

// Port returns the listening TCP port.
func (s *Server) Port() int {
	return s.listener.Addr().(*net.TCPAddr).Port
}

// Close shuts the server down.
func (s *Server) Close() {
	_ = s.listener.Close()
}

// SetHello overrides the server hello sent on connect.
func (s *Server) SetHello(raw string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hello = raw
}

// SetReply installs the raw rpc-reply body (without message-id handling;
// {{id}} is substituted with the request's message-id) returned for every
// request the server receives with the given message-id, or for any
// request without a reply of its own if id is "*". Installed replies are
// not consumed; requests with no matching reply get a default <ok/>.
func (s *Server) SetReply(id, raw string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.replies[id] = raw
}

func (s *Server) acceptConnections(config *ssh.ServerConfig) {
	for {
		nConn, err := s.listener.Accept()
		if err != nil {
			return
		}

		_, chch, reqch, err := ssh.NewServerConn(nConn, config)
		if err != nil {
			continue
		}

		go ssh.DiscardRequests(reqch)

		for newChannel := range chch {
			dataChan, requests, err := newChannel.Accept()
			if err != nil {
				continue
			}

			go func(in <-chan *ssh.Request) {
				for req := range in {
					_ = req.Reply(req.Type == "subsystem", nil)
				}
			}(requests)

			go s.serveNetconf(dataChan)
		}
	}
}

func (s *Server) serveNetconf(rw interface {
	Read([]byte) (int, error)
	Write([]byte) (int, error)
	Close() error
}) {
	defer rw.Close()

	writer := bufio.NewWriter(rw)
	s.mu.Lock()
	hello := s.hello
	s.mu.Unlock()
	_, _ = writer.WriteString(hello + delimiter)
	_ = writer.Flush()

	var pending strings.Builder
	buf := make([]byte, 4096)
	for {
		n, err := rw.Read(buf)
		if err != nil {
			return
		}
		pending.Write(buf[:n])

		for {
			content := pending.String()
			idx := strings.Index(content, delimiter)
			if idx < 0 {
				break
			}
			msg := content[:idx]
			pending.Reset()
			pending.WriteString(content[idx+len(delimiter):])

			s.respond(writer, msg)
		}
	}
}

func (s *Server) respond(w *bufio.Writer, msg string) {
	id := extractMessageID(msg)
	if id == "" {
		return
	}

	s.mu.Lock()
	raw, ok := s.replies[id]
	if !ok {
		raw, ok = s.replies["*"]
	}
	s.mu.Unlock()

	if !ok {
		raw = fmt.Sprintf(`<rpc-reply message-id="%s" xmlns="urn:ietf:params:xml:ns:netconf:base:1.0"><ok/></rpc-reply>`, id)
	} else {
		raw = strings.ReplaceAll(raw, "{{id}}", id)
	}

	_, _ = w.WriteString(raw + delimiter)
	_ = w.Flush()
}

func extractMessageID(msg string) string {
	const marker = `message-id="`
	i := strings.Index(msg, marker)
	if i < 0 {
		return ""
	}
	rest := msg[i+len(marker):]
	j := strings.Index(rest, `"`)
	if j < 0 {
		return ""
	}
	return rest[:j]
}

func newServerConfig(t *testing.T, uname, password string) *ssh.ServerConfig {
	config := &ssh.ServerConfig{
		PasswordCallback: func(c ssh.ConnMetadata, pass []byte) (*ssh.Permissions, error) {
			if c.User() == uname && string(pass) == password {
				return nil, nil
			}
			return nil, fmt.Errorf("password rejected for %q", c.User())
		},
	}
	config.AddHostKey(generateHostKey(t))
	return config
}

func generateHostKey(t *testing.T) ssh.Signer {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err, "generate host key")

	block := &pem.Block{Type: "RSA PRIVATE KEY", Bytes: x509.MarshalPKCS1PrivateKey(key)}
	signer, err := ssh.ParsePrivateKey(pem.EncodeToMemory(block))
	require.NoError(t, err, "parse host key")
	return signer
}
