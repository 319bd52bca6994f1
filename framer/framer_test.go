package framer_test

import (
	"strings"
	"testing"

	"github.com/kolotsey/netconf-client/framer"
	assert "github.com/stretchr/testify/require"
)

func TestAppendExtract(t *testing.T) {
	f := framer.New()

	assert.NoError(t, f.Append([]byte("foo]]>]]>bar]]>]]>")))

	msg, ok := f.Extract()
	assert.True(t, ok)
	assert.Equal(t, "foo", msg)

	msg, ok = f.Extract()
	assert.True(t, ok)
	assert.Equal(t, "bar", msg)

	_, ok = f.Extract()
	assert.False(t, ok, "no further complete message should be available")
}

func TestExtractAcrossChunkBoundaries(t *testing.T) {
	f := framer.New()

	whole := "hello-world" + framer.Delimiter
	for _, chunk := range splitEvery(whole, 3) {
		assert.NoError(t, f.Append([]byte(chunk)))
	}

	msg, ok := f.Extract()
	assert.True(t, ok)
	assert.Equal(t, "hello-world", msg)
}

func TestExtractNoneWhenIncomplete(t *testing.T) {
	f := framer.New()
	assert.NoError(t, f.Append([]byte("partial without delimiter")))

	_, ok := f.Extract()
	assert.False(t, ok)
}

func TestOverflowLeavesBufferUnchanged(t *testing.T) {
	f := framer.New()
	assert.NoError(t, f.Append([]byte("first]]>]]>")))

	huge := make([]byte, framer.MaxBuffered)
	err := f.Append(huge)
	assert.Error(t, err)

	// Prior messages remain extractable after an overflow.
	msg, ok := f.Extract()
	assert.True(t, ok)
	assert.Equal(t, "first", msg)
}

func TestClear(t *testing.T) {
	f := framer.New()
	assert.NoError(t, f.Append([]byte("pending")))
	f.Clear()
	assert.Equal(t, 0, f.Len())

	_, ok := f.Extract()
	assert.False(t, ok)
}

func splitEvery(s string, n int) []string {
	var out []string
	for len(s) > 0 {
		if len(s) < n {
			out = append(out, s)
			break
		}
		out = append(out, s[:n])
		s = s[n:]
	}
	return out
}

func TestDelimiterBytesCountTowardCeiling(t *testing.T) {
	f := framer.New()
	body := strings.Repeat("x", framer.MaxBuffered-len(framer.Delimiter))
	assert.NoError(t, f.Append([]byte(body)))

	// Appending the delimiter now would exceed the ceiling only if its
	// bytes are counted; confirm they are.
	err := f.Append([]byte(framer.Delimiter + "xx"))
	assert.Error(t, err)
}
