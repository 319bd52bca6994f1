package session_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/kolotsey/netconf-client/codec"
	"github.com/kolotsey/netconf-client/internal/testserver"
	"github.com/kolotsey/netconf-client/session"
	assert "github.com/stretchr/testify/require"
	"golang.org/x/crypto/ssh"
)

func dialConfig(pass string) *ssh.ClientConfig {
	return &ssh.ClientConfig{
		User:            testserver.TestUserName,
		Auth:            []ssh.AuthMethod{ssh.Password(pass)},
		HostKeyCallback: ssh.InsecureIgnoreHostKey(), //nolint: gosec
	}
}

func openSession(t *testing.T, ts *testserver.Server) *session.Session {
	t.Helper()
	s, err := session.Open(context.Background(), fmt.Sprintf("localhost:%d", ts.Port()),
		dialConfig(testserver.TestPassword), nil, nil)
	assert.NoError(t, err)
	return s
}

func TestOpenDecodesHelloAndTransitionsReady(t *testing.T) {
	ts := testserver.New(t, testserver.TestUserName, testserver.TestPassword)
	defer ts.Close()
	ts.SetHello(`<hello xmlns="urn:ietf:params:xml:ns:netconf:base:1.0">` +
		`<capabilities>` +
		`<capability>urn:ietf:params:xml:ns:netconf:base:1.0</capability>` +
		`<capability>urn:ietf:params:netconf:base:1.0</capability>` +
		`</capabilities><session-id>4</session-id></hello>`)

	s := openSession(t, ts)
	defer s.Close(context.Background())

	assert.Equal(t, session.StateReady, s.State())
	assert.Equal(t, int64(4), s.ID())
	assert.Equal(t, []string{
		"urn:ietf:params:xml:ns:netconf:base:1.0",
		"urn:ietf:params:netconf:base:1.0",
	}, s.ServerCapabilities())
}

func TestExecuteYieldsDataReply(t *testing.T) {
	ts := testserver.New(t, testserver.TestUserName, testserver.TestPassword)
	defer ts.Close()
	ts.SetReply("1", `<rpc-reply message-id="{{id}}" xmlns="urn:ietf:params:xml:ns:netconf:base:1.0">`+
		`<data><config>test</config></data></rpc-reply>`)

	s := openSession(t, ts)
	defer s.Close(context.Background())

	body := codec.NewMapping()
	body.Set("get", codec.NewMapping())

	env, err := s.Execute(context.Background(), "rpc", body)
	assert.NoError(t, err)

	reply := codec.ClassifyReply(env.Result)
	assert.Equal(t, codec.ReplyData, reply.Kind)

	data := reply.Data.(*codec.Mapping)
	config, ok := data.Get("config")
	assert.True(t, ok)
	assert.Equal(t, "test", config)
}

func TestExecuteSurfacesRPCError(t *testing.T) {
	ts := testserver.New(t, testserver.TestUserName, testserver.TestPassword)
	defer ts.Close()
	ts.SetReply("1", `<rpc-reply message-id="{{id}}" xmlns="urn:ietf:params:xml:ns:netconf:base:1.0">`+
		`<rpc-error><error-type>application</error-type><error-tag>operation-failed</error-tag>`+
		`<error-severity>error</error-severity><error-message>Invalid operation</error-message>`+
		`</rpc-error></rpc-reply>`)

	s := openSession(t, ts)
	defer s.Close(context.Background())

	body := codec.NewMapping()
	body.Set("get", codec.NewMapping())

	env, err := s.Execute(context.Background(), "rpc", body)
	assert.NoError(t, err, "Execute itself only fails on transport/timeout, not rpc-error")

	reply := codec.ClassifyReply(env.Result)
	assert.Equal(t, codec.ReplyError, reply.Kind)
	assert.Contains(t, reply.Errors[0].Message, "Invalid operation")
}

func TestOpenFailsWhenAuthFails(t *testing.T) {
	ts := testserver.New(t, testserver.TestUserName, testserver.TestPassword)
	defer ts.Close()

	_, err := session.Open(context.Background(), fmt.Sprintf("localhost:%d", ts.Port()),
		dialConfig("wrong-password"), nil, nil)
	assert.Error(t, err)
}

func TestConcurrentRequestsBothComplete(t *testing.T) {
	ts := testserver.New(t, testserver.TestUserName, testserver.TestPassword)
	defer ts.Close()

	s := openSession(t, ts)
	defer s.Close(context.Background())

	errs := make(chan error, 2)
	for i := 0; i < 2; i++ {
		go func() {
			body := codec.NewMapping()
			body.Set("get", codec.NewMapping())
			_, err := s.Execute(context.Background(), "rpc", body)
			errs <- err
		}()
	}

	for i := 0; i < 2; i++ {
		select {
		case err := <-errs:
			assert.NoError(t, err)
		case <-time.After(5 * time.Second):
			t.Fatal("timed out waiting for concurrent replies")
		}
	}
}

func TestCloseIsIdempotent(t *testing.T) {
	ts := testserver.New(t, testserver.TestUserName, testserver.TestPassword)
	defer ts.Close()

	s := openSession(t, ts)
	assert.NoError(t, s.Close(context.Background()))
	assert.NoError(t, s.Close(context.Background()))
}
