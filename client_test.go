package netconf_test

import (
	"context"
	"fmt"
	"testing"

	nc "github.com/kolotsey/netconf-client"
	"github.com/kolotsey/netconf-client/codec"
	"github.com/kolotsey/netconf-client/internal/testserver"
	"github.com/kolotsey/netconf-client/ncerrors"
	"github.com/kolotsey/netconf-client/session"
	assert "github.com/stretchr/testify/require"
)

func dial(t *testing.T, ts *testserver.Server, params nc.ConnectParams) *nc.Client {
	t.Helper()
	c, err := nc.DialPassword(context.Background(), "localhost", ts.Port(),
		testserver.TestUserName, testserver.TestPassword, params)
	assert.NoError(t, err)
	return c
}

const baseHello = `<hello xmlns="urn:ietf:params:xml:ns:netconf:base:1.0">` +
	`<capabilities>` +
	`<capability>urn:ietf:params:xml:ns:netconf:base:1.0</capability>` +
	`<capability>urn:ietf:params:netconf:base:1.0</capability>` +
	`<capability>urn:example:vendor:acme</capability>` +
	`</capabilities><session-id>4</session-id></hello>`

func TestHelloReplaysCapturedHandshake(t *testing.T) {
	ts := testserver.New(t, testserver.TestUserName, testserver.TestPassword)
	defer ts.Close()
	ts.SetHello(baseHello)

	c := dial(t, ts, nc.ConnectParams{})
	defer c.Close(context.Background())

	v, err := c.Hello().First(context.Background())
	assert.NoError(t, err)

	env, ok := v.(*session.Envelope)
	assert.True(t, ok)
	assert.Contains(t, env.XML, "session-id")
}

func TestGetDataUndefinedUsesXPathFilterGet(t *testing.T) {
	ts := testserver.New(t, testserver.TestUserName, testserver.TestPassword)
	defer ts.Close()
	ts.SetReply("*", `<rpc-reply message-id="{{id}}" xmlns="urn:ietf:params:xml:ns:netconf:base:1.0">`+
		`<data><interfaces><interface><name>eth0</name></interface></interfaces></data></rpc-reply>`)

	c := dial(t, ts, nc.ConnectParams{})
	defer c.Close(context.Background())

	v, err := c.GetData("/interfaces/interface[name='eth0']", nc.ResultUndefined).First(context.Background())
	assert.NoError(t, err)

	env := v.(*session.Envelope)
	data, ok := env.Result.(*codec.Mapping)
	assert.True(t, ok)
	_, ok = data.Get("interfaces")
	assert.True(t, ok)
}

func TestGetDataConfigAndStateSelectDatastoreFilter(t *testing.T) {
	ts := testserver.New(t, testserver.TestUserName, testserver.TestPassword)
	defer ts.Close()
	ts.SetReply("*", `<rpc-reply message-id="{{id}}" xmlns="urn:ietf:params:xml:ns:netconf:base:1.0">`+
		`<data><config>running</config></data></rpc-reply>`)

	c := dial(t, ts, nc.ConnectParams{})
	defer c.Close(context.Background())

	for _, rt := range []nc.ResultType{nc.ResultConfig, nc.ResultState} {
		v, err := c.GetData("/system", rt).First(context.Background())
		assert.NoError(t, err)
		env := v.(*session.Envelope)
		data := env.Result.(*codec.Mapping)
		val, ok := data.Get("config")
		assert.True(t, ok)
		assert.Equal(t, "running", val)
	}
}

func TestGetDataSurfacesRPCError(t *testing.T) {
	ts := testserver.New(t, testserver.TestUserName, testserver.TestPassword)
	defer ts.Close()
	ts.SetReply("*", `<rpc-reply message-id="{{id}}" xmlns="urn:ietf:params:xml:ns:netconf:base:1.0">`+
		`<rpc-error><error-type>application</error-type><error-tag>invalid-value</error-tag>`+
		`<error-severity>error</error-severity><error-message>no such path</error-message>`+
		`</rpc-error></rpc-reply>`)

	c := dial(t, ts, nc.ConnectParams{})
	defer c.Close(context.Background())

	_, err := c.GetData("/bogus", nc.ResultUndefined).First(context.Background())
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "no such path")
}

func TestEditConfigMergeRewritesResultToOK(t *testing.T) {
	ts := testserver.New(t, testserver.TestUserName, testserver.TestPassword)
	defer ts.Close()
	ts.SetReply("*", `<rpc-reply message-id="{{id}}" xmlns="urn:ietf:params:xml:ns:netconf:base:1.0"><ok/></rpc-reply>`)

	c := dial(t, ts, nc.ConnectParams{})
	defer c.Close(context.Background())

	values := codec.NewMapping()
	values.Set("mtu", "1500")

	v, err := c.EditConfigMerge("/interfaces/interface[name='eth0']", values).First(context.Background())
	assert.NoError(t, err)

	env := v.(*session.Envelope)
	result := env.Result.(*codec.Mapping)
	ok, found := result.Get("ok")
	assert.True(t, found)
	assert.Equal(t, "operation successful", ok)
}

func TestEditConfigMergeFailsWhenServerLacksOK(t *testing.T) {
	ts := testserver.New(t, testserver.TestUserName, testserver.TestPassword)
	defer ts.Close()
	ts.SetReply("*", `<rpc-reply message-id="{{id}}" xmlns="urn:ietf:params:xml:ns:netconf:base:1.0"><data/></rpc-reply>`)

	c := dial(t, ts, nc.ConnectParams{})
	defer c.Close(context.Background())

	_, err := c.EditConfigMerge("/system", codec.NewMapping()).First(context.Background())
	assert.Error(t, err)
}

func TestReadOnlyRejectsEditConfigAndRPCWithoutContactingServer(t *testing.T) {
	ts := testserver.New(t, testserver.TestUserName, testserver.TestPassword)
	defer ts.Close()
	// No reply is installed, so a request that reached the server would get
	// the server's default <ok/> and succeed; only a rejection before any
	// request is sent makes the ErrReadOnly assertions below hold.

	c := dial(t, ts, nc.ConnectParams{ReadOnly: true})
	defer c.Close(context.Background())

	_, err := c.EditConfigMerge("/system", codec.NewMapping()).First(context.Background())
	assert.ErrorIs(t, err, ncerrors.ErrReadOnly)

	_, err = c.RPC("/reboot", nil).First(context.Background())
	assert.ErrorIs(t, err, ncerrors.ErrReadOnly)
}

func TestRPCBuildsRequestFromStrictXPath(t *testing.T) {
	ts := testserver.New(t, testserver.TestUserName, testserver.TestPassword)
	defer ts.Close()
	ts.SetReply("*", `<rpc-reply message-id="{{id}}" xmlns="urn:ietf:params:xml:ns:netconf:base:1.0"><ok/></rpc-reply>`)

	c := dial(t, ts, nc.ConnectParams{})
	defer c.Close(context.Background())

	values := codec.NewMapping()
	values.Set("message", "system going down")

	v, err := c.RPC("/reboot-info", values).First(context.Background())
	assert.NoError(t, err)
	env := v.(*session.Envelope)
	reply := codec.ClassifyReply(env.Result)
	assert.Equal(t, codec.ReplyOK, reply.Kind)
}

func TestRPCRejectsEmptyOrRootXPath(t *testing.T) {
	ts := testserver.New(t, testserver.TestUserName, testserver.TestPassword)
	defer ts.Close()

	c := dial(t, ts, nc.ConnectParams{})
	defer c.Close(context.Background())

	for _, xpath := range []string{"", "/", "//"} {
		_, err := c.RPC(xpath, nil).First(context.Background())
		assert.Error(t, err, fmt.Sprintf("xpath %q should be rejected", xpath))
	}
}

func TestCloseIsIdempotentThroughClient(t *testing.T) {
	ts := testserver.New(t, testserver.TestUserName, testserver.TestPassword)
	defer ts.Close()

	c := dial(t, ts, nc.ConnectParams{})
	assert.NoError(t, c.Close(context.Background()))
	assert.NoError(t, c.Close(context.Background()))
}
