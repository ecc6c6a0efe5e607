package embedding

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmbeddingCache_GetSet(t *testing.T) {
	c := NewEmbeddingCache(2)
	v, ok := c.Get("a")
	require.False(t, ok)
	require.Nil(t, v)

	c.Set("a", []float32{1, 2, 3})
	v, ok = c.Get("a")
	require.True(t, ok)
	assert.Equal(t, []float32{1, 2, 3}, v)

	c.Set("b", []float32{4, 5})
	c.Set("c", []float32{6}) // evicts a
	_, ok = c.Get("a")
	assert.False(t, ok, "a should be evicted")
	_, ok = c.Get("b")
	assert.True(t, ok, "b should remain")
	assert.Equal(t, 2, c.Len())
}

func TestEmbeddingCache_recencyOnGet(t *testing.T) {
	c := NewEmbeddingCache(2)
	c.Set("a", []float32{1})
	c.Set("b", []float32{2})
	c.Get("a")
	c.Set("c", []float32{3}) // evicts b, a was used more recently
	_, ok := c.Get("a")
	assert.True(t, ok)
	_, ok = c.Get("b")
	assert.False(t, ok)
}

func TestEmbeddingCache_disabled(t *testing.T) {
	for _, capacity := range []int{0, -1} {
		c := NewEmbeddingCache(capacity)
		c.Set("a", []float32{1})
		_, ok := c.Get("a")
		assert.False(t, ok, "capacity %d must not store", capacity)
		assert.Equal(t, 0, c.Len())
	}
}
