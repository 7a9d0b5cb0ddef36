package search

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenize(t *testing.T) {
	assert.Equal(t, []string{"draft", "foo", "bar"}, Tokenize("Draft:Foo Bar"))
	assert.Equal(t, []string{"user", "example", "sandbox"}, Tokenize("User:Example/sandbox (2)"))
	assert.Empty(t, Tokenize("a + b"))
}

func newTitleIndex() *Index {
	idx := NewIndex()
	idx.Rebuild([]Document{
		{Key: "Draft:Foo", Text: "Draft:Foo"},
		{Key: "Draft:Foo-Fighters", Text: "Draft:Foo Fighters"},
		{Key: "Draft:Bar", Text: "Draft:Bar"},
	})
	return idx
}

func TestSearchRanksAndPrefixes(t *testing.T) {
	idx := newTitleIndex()

	res := idx.Search("foo")
	require.Len(t, res, 2)
	assert.Equal(t, "Draft:Foo", res[0].Key, "shorter title scores higher for the same term")

	assert.Len(t, idx.Search("fi"), 1)
	assert.Empty(t, idx.Search("zebra"))
	assert.Empty(t, idx.Search(""))
}

func TestSearchRequiresEveryTerm(t *testing.T) {
	idx := newTitleIndex()

	assert.Len(t, idx.Search("draft"), 3)

	res := idx.Search("draft foo")
	require.Len(t, res, 2, "a term every title shares does not widen the match")
	assert.Equal(t, "Draft:Foo", res[0].Key)

	res = idx.Search("draft foo fighters")
	require.Len(t, res, 1)
	assert.Equal(t, "Draft:Foo-Fighters", res[0].Key)

	assert.Empty(t, idx.Search("foo bar"))
	assert.Len(t, idx.Search("foo foo"), 2, "repeated terms count once")
}

func TestRebuildClears(t *testing.T) {
	idx := NewIndex()
	idx.Rebuild([]Document{{Key: "old", Text: "Draft:Old"}})
	idx.Rebuild([]Document{{Key: "new", Text: "Draft:New"}})

	assert.Empty(t, idx.Search("old"))
	assert.Len(t, idx.Search("new"), 1)
}
