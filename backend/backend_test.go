package backend

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/simidx/simidx/metric"
)

func TestBuild(t *testing.T) {
	RegisterFactory("TESTKIND", func(arg string, m metric.Metric, dim int) (Backend, error) {
		return nil, nil
	})
	RegisterFactory("TESTKINDX", func(arg string, m metric.Metric, dim int) (Backend, error) {
		return nil, assert.AnError
	})

	t.Run("CaseInsensitive", func(t *testing.T) {
		_, err := Build("testkind", metric.L2, 3)
		assert.NoError(t, err)
	})

	t.Run("LongestPrefixWins", func(t *testing.T) {
		_, err := Build("TESTKINDX", metric.L2, 3)
		assert.ErrorIs(t, err, assert.AnError)
	})

	t.Run("Unknown", func(t *testing.T) {
		_, err := Build("NOPE42", metric.L2, 3)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "unknown factory spec")
	})

	t.Run("Empty", func(t *testing.T) {
		_, err := Build("  ", metric.L2, 3)
		assert.Error(t, err)
	})
}

func TestLoad(t *testing.T) {
	t.Run("UnknownKind", func(t *testing.T) {
		_, err := Load(0xFF, bytes.NewReader(nil))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "no loader registered")
	})
}
