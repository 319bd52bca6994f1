package resolver_test

import (
	"testing"

	"github.com/kolotsey/netconf-client/codec"
	"github.com/kolotsey/netconf-client/resolver"
	assert "github.com/stretchr/testify/require"
)

func TestMergeIntoAddsNewKeysInInsertionOrder(t *testing.T) {
	target := codec.NewMapping()
	target.Set("name", "eth0")

	values := codec.NewMapping()
	values.Set("mtu", "1500")
	values.Set("enabled", "true")

	resolver.MergeInto(target, values)

	assert.Equal(t, []string{"name", "mtu", "enabled"}, target.Keys())
	v, ok := target.Get("mtu")
	assert.True(t, ok)
	assert.Equal(t, "1500", v)
}

func TestMergeIntoRecursesIntoNestedMappings(t *testing.T) {
	target := codec.NewMapping()
	inner := codec.NewMapping()
	inner.Set("mtu", "1500")
	target.Set("interface", inner)

	values := codec.NewMapping()
	valuesInner := codec.NewMapping()
	valuesInner.Set("enabled", "true")
	values.Set("interface", valuesInner)

	resolver.MergeInto(target, values)

	got, ok := target.Get("interface")
	assert.True(t, ok)
	mapping := got.(*codec.Mapping)
	assert.Equal(t, []string{"mtu", "enabled"}, mapping.Keys())
}

func TestMergeIntoOverwritesScalarWithMapping(t *testing.T) {
	target := codec.NewMapping()
	target.Set("state", "up")

	values := codec.NewMapping()
	replacement := codec.NewMapping()
	replacement.Set("admin", "up")
	values.Set("state", replacement)

	resolver.MergeInto(target, values)

	got, ok := target.Get("state")
	assert.True(t, ok)
	mapping, ok := got.(*codec.Mapping)
	assert.True(t, ok)
	admin, _ := mapping.Get("admin")
	assert.Equal(t, "up", admin)
}

func TestMergeIntoClonesListsRatherThanAliasing(t *testing.T) {
	target := codec.NewMapping()

	values := codec.NewMapping()
	entry := codec.NewMapping()
	entry.Set("name", "eth1")
	values.Set("interface", codec.List{entry})

	resolver.MergeInto(target, values)

	entry.Set("name", "mutated")

	got, ok := target.Get("interface")
	assert.True(t, ok)
	list := got.(codec.List)
	assert.Len(t, list, 1)
	first := list[0].(*codec.Mapping)
	name, _ := first.Get("name")
	assert.Equal(t, "eth1", name, "MergeInto must deep-clone list entries, not alias the caller's mapping")
}

func TestMergeIntoNilArgumentsAreNoOps(t *testing.T) {
	target := codec.NewMapping()
	target.Set("name", "eth0")

	resolver.MergeInto(nil, target)
	resolver.MergeInto(target, nil)

	assert.Equal(t, []string{"name"}, target.Keys())
}
