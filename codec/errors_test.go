package codec_test

import (
	"testing"

	"github.com/kolotsey/netconf-client/codec"
	assert "github.com/stretchr/testify/require"
)

func TestClassifyReplyOK(t *testing.T) {
	_, v, err := codec.Decode(`<rpc-reply message-id="1"><ok/></rpc-reply>`, false)
	assert.NoError(t, err)

	reply := codec.ClassifyReply(v)
	assert.Equal(t, codec.ReplyOK, reply.Kind)
}

func TestClassifyReplyData(t *testing.T) {
	_, v, err := codec.Decode(`<rpc-reply message-id="1"><data><config>test</config></data></rpc-reply>`, false)
	assert.NoError(t, err)

	reply := codec.ClassifyReply(v)
	assert.Equal(t, codec.ReplyData, reply.Kind)

	data := reply.Data.(*codec.Mapping)
	config, ok := data.Get("config")
	assert.True(t, ok)
	assert.Equal(t, "test", config)
}

func TestClassifyReplyErrorWithExplicitMessage(t *testing.T) {
	raw := `<rpc-reply message-id="1"><rpc-error>` +
		`<error-type>application</error-type><error-tag>operation-failed</error-tag>` +
		`<error-severity>error</error-severity><error-message>Invalid operation</error-message>` +
		`</rpc-error></rpc-reply>`
	_, v, err := codec.Decode(raw, false)
	assert.NoError(t, err)

	reply := codec.ClassifyReply(v)
	assert.Equal(t, codec.ReplyError, reply.Kind)
	assert.Len(t, reply.Errors, 1)
	assert.Contains(t, reply.Errors[0].Message, "Invalid operation")
}

func TestClassifyReplyErrorInferredFromTagAndInfo(t *testing.T) {
	raw := `<rpc-reply message-id="1"><rpc-error>` +
		`<error-tag>unknown-element</error-tag><error-severity>error</error-severity>` +
		`<error-info><bad-element>foo</bad-element></error-info>` +
		`</rpc-error></rpc-reply>`
	_, v, err := codec.Decode(raw, false)
	assert.NoError(t, err)

	reply := codec.ClassifyReply(v)
	assert.Len(t, reply.Errors, 1)
	assert.Contains(t, reply.Errors[0].Message, "foo")
	assert.Equal(t, "foo", reply.Errors[0].BadElement)
}

func TestClassifyReplyMultipleErrors(t *testing.T) {
	raw := `<rpc-reply message-id="1">` +
		`<rpc-error><error-tag>data-exists</error-tag><error-severity>error</error-severity></rpc-error>` +
		`<rpc-error><error-tag>too-many-elements</error-tag><error-severity>warning</error-severity></rpc-error>` +
		`</rpc-reply>`
	_, v, err := codec.Decode(raw, false)
	assert.NoError(t, err)

	reply := codec.ClassifyReply(v)
	assert.Len(t, reply.Errors, 2)
}
