package bm25

import (
	"context"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/simidx/simidx/rank"
)

func seedIndex(t *testing.T, texts []string) *Client {
	t.Helper()
	ctx := context.Background()

	c := New()
	require.NoError(t, c.CreateIndex(ctx, "test"))

	docs := make([]rank.Document, len(texts))
	for i, text := range texts {
		docs[i] = rank.Document{ID: strconv.Itoa(i), Text: text}
	}
	res, err := c.BulkIngest(ctx, "test", docs)
	require.NoError(t, err)
	require.Equal(t, len(texts), res.Indexed)
	require.Zero(t, res.Failed)
	return c
}

func TestSearch(t *testing.T) {
	ctx := context.Background()

	t.Run("MatchesTokens", func(t *testing.T) {
		c := seedIndex(t, []string{"foo", "bar", "foobar"})

		hits, err := c.Search(ctx, "test", "foo", 10)
		require.NoError(t, err)
		require.Len(t, hits, 1)
		assert.Equal(t, "0", hits[0].ID)
		assert.Positive(t, hits[0].Score)

		// "foobar" is a single token, so it matches neither "foo" nor "bar".
		hits, err = c.Search(ctx, "test", "foobar", 10)
		require.NoError(t, err)
		require.Len(t, hits, 1)
		assert.Equal(t, "2", hits[0].ID)
	})

	t.Run("RanksByRelevance", func(t *testing.T) {
		c := seedIndex(t, []string{
			"the quick brown fox",
			"the lazy dog",
			"fox fox fox",
		})

		hits, err := c.Search(ctx, "test", "fox", 10)
		require.NoError(t, err)
		require.Len(t, hits, 2)
		// Higher term frequency ranks first.
		assert.Equal(t, "2", hits[0].ID)
		assert.Equal(t, "0", hits[1].ID)
		assert.Greater(t, hits[0].Score, hits[1].Score)
	})

	t.Run("RespectsK", func(t *testing.T) {
		c := seedIndex(t, []string{"fox a", "fox b", "fox c"})

		hits, err := c.Search(ctx, "test", "fox", 2)
		require.NoError(t, err)
		assert.Len(t, hits, 2)
	})

	t.Run("NoMatch", func(t *testing.T) {
		c := seedIndex(t, []string{"foo", "bar"})

		hits, err := c.Search(ctx, "test", "baz", 10)
		require.NoError(t, err)
		assert.Empty(t, hits)
	})

	t.Run("UnknownIndex", func(t *testing.T) {
		c := New()
		_, err := c.Search(ctx, "nope", "foo", 10)
		assert.Error(t, err)
	})
}

func TestIndexLifecycle(t *testing.T) {
	ctx := context.Background()
	c := New()

	require.NoError(t, c.CreateIndex(ctx, "idx"))
	// Creating an existing index is acknowledged without change.
	require.NoError(t, c.CreateIndex(ctx, "idx"))

	_, err := c.BulkIngest(ctx, "idx", []rank.Document{{ID: "0", Text: "foo"}})
	require.NoError(t, err)

	require.NoError(t, c.DeleteIndex(ctx, "idx"))
	_, err = c.Search(ctx, "idx", "foo", 1)
	assert.Error(t, err)

	t.Run("IngestUnknownIndex", func(t *testing.T) {
		res, err := c.BulkIngest(ctx, "gone", []rank.Document{{ID: "0", Text: "x"}})
		assert.Error(t, err)
		assert.Equal(t, 1, res.Failed)
	})
}

func TestTokenize(t *testing.T) {
	assert.Equal(t, []string{"hello", "world", "42"}, tokenize("Hello, WORLD! 42"))
	assert.Empty(t, tokenize("!!!"))
}
