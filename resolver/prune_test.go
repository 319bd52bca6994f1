package resolver_test

import (
	"testing"

	"github.com/kolotsey/netconf-client/codec"
	"github.com/kolotsey/netconf-client/resolver"
	assert "github.com/stretchr/testify/require"
)

func mapOf(pairs ...interface{}) *codec.Mapping {
	m := codec.NewMapping()
	for i := 0; i < len(pairs); i += 2 {
		m.Set(pairs[i].(string), pairs[i+1])
	}
	return m
}

// {a:{b:{c:3}}}
func sampleTree() *codec.Mapping {
	return mapOf("a", mapOf("b", mapOf("c", int64(3))))
}

func TestPruneFullPathResolved(t *testing.T) {
	tree := sampleTree()
	got := resolver.Prune(tree, "/a/b/c")
	assert.Equal(t, mapOf("c", int64(3)), got)
}

func TestPruneMissingTailLevel(t *testing.T) {
	tree := sampleTree()
	got := resolver.Prune(tree, "/a/b/x")
	assert.Equal(t, mapOf("b", mapOf("c", int64(3))), got)
}

func TestPruneDeepSearchUniqueMatch(t *testing.T) {
	tree := sampleTree()
	got := resolver.Prune(tree, "//b")
	assert.Equal(t, mapOf("b", mapOf("c", int64(3))), got)
}

func TestPruneDeepSearchCrossesListUnderTwoSiblings(t *testing.T) {
	tree := mapOf("root", mapOf(
		"a", mapOf(
			"b1", mapOf("c", codec.List{mapOf("d", mapOf("e", int64(1)))}),
			"b2", mapOf("c", codec.List{mapOf("d", mapOf("e", int64(2)))}),
		),
	))
	got := resolver.Prune(tree, "//a//d")
	assert.Equal(t, tree, got)
}

func TestPruneTrailingWildcardOnListTarget(t *testing.T) {
	tree := mapOf("a", mapOf("b", mapOf("c", codec.List{mapOf("d", mapOf("e", int64(1)))})))
	got := resolver.Prune(tree, "//c/*")
	assert.Equal(t, codec.List{mapOf("d", mapOf("e", int64(1)))}, got)
}

func TestPruneAmbiguousDeepMatchReturnsInputUnchanged(t *testing.T) {
	tree := mapOf("root", mapOf(
		"a", mapOf(
			"b1", mapOf("d", mapOf("e", int64(1))),
			"b2", mapOf("d", mapOf("e", int64(2))),
		),
	))
	got := resolver.Prune(tree, "//d")
	assert.Equal(t, tree, got)
}

func TestPruneEmptyXPathReturnsTreeUnchanged(t *testing.T) {
	tree := sampleTree()
	assert.Equal(t, tree, resolver.Prune(tree, ""))
}

func TestPruneSingleLevelAbsolutePathUnchanged(t *testing.T) {
	tree := sampleTree()
	got := resolver.Prune(tree, "/a")
	assert.Equal(t, tree, got)
}

func TestPruneUnionOperatorIsNoOp(t *testing.T) {
	tree := sampleTree()
	got := resolver.Prune(tree, "/a/b|/a/c")
	assert.Equal(t, tree, got)
}

func TestPruneIsReferentiallyDeterministic(t *testing.T) {
	tree := sampleTree()
	first := resolver.Prune(tree, "/a/b/c")
	second := resolver.Prune(sampleTree(), "/a/b/c")
	assert.Equal(t, first, second)
}
