package embedding

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestONNXConfig_applyDefaults(t *testing.T) {
	c := ONNXConfig{}
	c.applyDefaults()
	assert.Equal(t, 384, c.Dimensions)
	assert.Equal(t, 256, c.MaxTokens)
}

func TestONNXConfig_applyDefaultsKeepsCacheDisabled(t *testing.T) {
	for _, size := range []int{0, -1} {
		c := ONNXConfig{CacheSize: size}
		c.applyDefaults()
		assert.Equal(t, size, c.CacheSize)

		cache := NewEmbeddingCache(c.CacheSize)
		cache.Set("q", []float32{1})
		_, ok := cache.Get("q")
		assert.False(t, ok, "cache size %d should disable caching", size)
	}
}
