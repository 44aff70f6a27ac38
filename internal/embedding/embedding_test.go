package embedding

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCacheKey_IsDeterministic(t *testing.T) {
	p := &CachedProvider{modelName: "paraphrase-multilingual-MiniLM-L12-v2", cachePrefix: "embed:text"}

	a := p.cacheKey("likes jazz and museums")
	b := p.cacheKey("likes jazz and museums")
	assert.Equal(t, a, b)
}

func TestCacheKey_DiffersByText(t *testing.T) {
	p := &CachedProvider{modelName: "paraphrase-multilingual-MiniLM-L12-v2", cachePrefix: "embed:text"}

	a := p.cacheKey("likes jazz")
	b := p.cacheKey("likes rock")
	assert.NotEqual(t, a, b)
}

func TestCacheKey_DiffersByModel(t *testing.T) {
	same := "likes jazz"
	a := (&CachedProvider{modelName: "model-a", cachePrefix: "embed:text"}).cacheKey(same)
	b := (&CachedProvider{modelName: "model-b", cachePrefix: "embed:text"}).cacheKey(same)
	assert.NotEqual(t, a, b)
}
