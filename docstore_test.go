package simidx_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/simidx/simidx"
	"github.com/simidx/simidx/rank"
	"github.com/simidx/simidx/rank/bm25"
)

func TestNewDocumentStore(t *testing.T) {
	ctx := context.Background()

	t.Run("GeneratesIndexName", func(t *testing.T) {
		a, err := simidx.NewDocumentStore(ctx, bm25.New())
		require.NoError(t, err)
		b, err := simidx.NewDocumentStore(ctx, bm25.New())
		require.NoError(t, err)

		assert.NotEmpty(t, a.IndexName())
		assert.NotEqual(t, a.IndexName(), b.IndexName())
	})

	t.Run("ExplicitIndexName", func(t *testing.T) {
		s, err := simidx.NewDocumentStore(ctx, bm25.New(), simidx.WithIndexName("docs"))
		require.NoError(t, err)
		assert.Equal(t, "docs", s.IndexName())
	})

	t.Run("NilClient", func(t *testing.T) {
		_, err := simidx.NewDocumentStore(ctx, nil)
		assert.ErrorIs(t, err, simidx.ErrInvalidConfig)
	})

	t.Run("UnreachableService", func(t *testing.T) {
		_, err := simidx.NewDocumentStore(ctx, &failingClient{})
		assert.ErrorIs(t, err, simidx.ErrConnection)
	})
}

func TestAddDocuments(t *testing.T) {
	ctx := context.Background()

	t.Run("AssignsPositions", func(t *testing.T) {
		s, err := simidx.NewDocumentStore(ctx, bm25.New())
		require.NoError(t, err)

		require.NoError(t, s.AddDocuments(ctx, []string{"foo", "bar"}))
		require.NoError(t, s.AddDocuments(ctx, []string{"foobar"}))
		assert.Equal(t, 3, s.Size())

		// The second batch continues the position sequence.
		_, positions, err := s.Search(ctx, "foobar", 1)
		require.NoError(t, err)
		assert.Equal(t, int64(2), positions[0])
	})

	t.Run("PartialFailureRejectsBatch", func(t *testing.T) {
		client := &flakyClient{failAfter: 1}
		s, err := simidx.NewDocumentStore(ctx, client)
		require.NoError(t, err)

		err = s.AddDocuments(ctx, []string{"a", "b", "c"})
		var bulkErr *simidx.ErrBulkIngest
		require.ErrorAs(t, err, &bulkErr)
		assert.Equal(t, 2, bulkErr.Failed)
		assert.Equal(t, 0, s.Size())
	})

	t.Run("EmptyBatch", func(t *testing.T) {
		s, err := simidx.NewDocumentStore(ctx, bm25.New())
		require.NoError(t, err)
		assert.NoError(t, s.AddDocuments(ctx, nil))
	})
}

func TestDocumentSearch(t *testing.T) {
	ctx := context.Background()

	seed := func(t *testing.T) *simidx.DocumentStore {
		t.Helper()
		s, err := simidx.NewDocumentStore(ctx, bm25.New())
		require.NoError(t, err)
		require.NoError(t, s.AddDocuments(ctx, []string{"foo", "bar", "foobar"}))
		return s
	}

	t.Run("PadsToK", func(t *testing.T) {
		s := seed(t)

		scores, positions, err := s.Search(ctx, "foo", 3)
		require.NoError(t, err)
		require.Len(t, scores, 3)
		require.Len(t, positions, 3)
		assert.Equal(t, int64(0), positions[0])
		assert.Positive(t, scores[0])
		for i := 1; i < 3; i++ {
			assert.Equal(t, float32(simidx.NoMatch), scores[i])
			assert.Equal(t, int64(simidx.NoMatch), positions[i])
		}
	})

	t.Run("BatchPreservesOrder", func(t *testing.T) {
		s := seed(t)

		scores, positions, err := s.SearchBatch(ctx, []string{"foo", "bar", "foobar"}, 1)
		require.NoError(t, err)
		require.Len(t, positions, 3)
		for i, want := range []int64{0, 1, 2} {
			require.Len(t, positions[i], 1)
			assert.Equal(t, want, positions[i][0], "query %d", i)
			assert.Positive(t, scores[i][0])
		}
	})

	t.Run("Timeout", func(t *testing.T) {
		s, err := simidx.NewDocumentStore(ctx, &slowClient{}, simidx.WithTimeout(20*time.Millisecond))
		require.NoError(t, err)

		_, _, err = s.Search(ctx, "foo", 1)
		assert.ErrorIs(t, err, simidx.ErrTimeout)
	})
}

func TestDrop(t *testing.T) {
	ctx := context.Background()
	client := bm25.New()

	s, err := simidx.NewDocumentStore(ctx, client, simidx.WithIndexName("docs"))
	require.NoError(t, err)
	require.NoError(t, s.AddDocuments(ctx, []string{"foo"}))

	require.NoError(t, s.Drop(ctx))

	// The collaborator-side index is gone.
	_, err = client.Search(ctx, "docs", "foo", 1)
	assert.Error(t, err)
}

// failingClient refuses every call.
type failingClient struct{}

func (c *failingClient) CreateIndex(context.Context, string) error {
	return errors.New("connection refused")
}

func (c *failingClient) DeleteIndex(context.Context, string) error {
	return errors.New("connection refused")
}

func (c *failingClient) BulkIngest(context.Context, string, []rank.Document) (rank.BulkResult, error) {
	return rank.BulkResult{}, errors.New("connection refused")
}

func (c *failingClient) Search(context.Context, string, string, int) ([]rank.Hit, error) {
	return nil, errors.New("connection refused")
}

// flakyClient indexes the first failAfter documents of a batch and fails
// the rest.
type flakyClient struct {
	failAfter int
}

func (c *flakyClient) CreateIndex(context.Context, string) error { return nil }
func (c *flakyClient) DeleteIndex(context.Context, string) error { return nil }

func (c *flakyClient) BulkIngest(_ context.Context, _ string, docs []rank.Document) (rank.BulkResult, error) {
	indexed := min(c.failAfter, len(docs))
	return rank.BulkResult{Indexed: indexed, Failed: len(docs) - indexed}, nil
}

func (c *flakyClient) Search(context.Context, string, string, int) ([]rank.Hit, error) {
	return nil, nil
}

// slowClient blocks searches until the context expires.
type slowClient struct{}

func (c *slowClient) CreateIndex(context.Context, string) error { return nil }
func (c *slowClient) DeleteIndex(context.Context, string) error { return nil }

func (c *slowClient) BulkIngest(_ context.Context, _ string, docs []rank.Document) (rank.BulkResult, error) {
	return rank.BulkResult{Indexed: len(docs)}, nil
}

func (c *slowClient) Search(ctx context.Context, _, _ string, _ int) ([]rank.Hit, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}
