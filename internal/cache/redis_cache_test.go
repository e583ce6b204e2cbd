package cache

import (
	"context"
	"path"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestKeys(t *testing.T) {
	assert.Equal(t, "grading:unit:7:closure:v3", ClosureStatsKey(7, 3))
	assert.Equal(t, "grading:unit:7:*", UnitPattern(7))
	assert.Equal(t, "grading:version:unit:7", UnitVersionKey(7))

	matched, err := path.Match(UnitPattern(7), ClosureStatsKey(7, 3))
	assert.NoError(t, err)
	assert.True(t, matched)
	matched, _ = path.Match(UnitPattern(7), UnitVersionKey(7))
	assert.False(t, matched, "version counter must survive pattern deletes")
}

func TestNoopCache(t *testing.T) {
	c := NewNoopCache()
	ctx := context.Background()

	assert.NoError(t, c.Set(ctx, "k", map[string]int{"a": 1}, time.Minute))

	var dest map[string]int
	assert.ErrorIs(t, c.Get(ctx, "k", &dest), ErrCacheMiss)
	assert.Nil(t, dest)
	assert.NoError(t, c.Delete(ctx, "k"))
	assert.NoError(t, c.DeletePattern(ctx, "grading:*"))

	n, err := c.Incr(ctx, UnitVersionKey(1))
	assert.NoError(t, err)
	assert.Zero(t, n)
}
