package cache

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCache_ReadThrough(t *testing.T) {
	var c Cache[*int]
	calls := 0
	load := func() (*int, error) {
		calls++
		v := 42
		return &v, nil
	}

	first, err := c.Get("k", load)
	require.NoError(t, err)
	second, err := c.Get("k", load)
	require.NoError(t, err)

	assert.Same(t, first, second)
	assert.Equal(t, 1, calls)
	assert.Equal(t, 1, c.Len())
}

func TestCache_ErrorsAreNotStored(t *testing.T) {
	var c Cache[string]
	boom := errors.New("boom")

	_, err := c.Get("k", func() (string, error) { return "", boom })
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 0, c.Len())

	v, err := c.Get("k", func() (string, error) { return "ok", nil })
	require.NoError(t, err)
	assert.Equal(t, "ok", v)
}

func TestCache_ConcurrentGetReturnsOneValue(t *testing.T) {
	var c Cache[*int]
	var loads atomic.Int32

	var wg sync.WaitGroup
	results := make([]*int, 32)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			v, err := c.Get("k", func() (*int, error) {
				loads.Add(1)
				n := i
				return &n, nil
			})
			if err == nil {
				results[i] = v
			}
		}(i)
	}
	wg.Wait()

	for _, r := range results {
		assert.Same(t, results[0], r)
	}
	assert.GreaterOrEqual(t, loads.Load(), int32(1))
}

func TestCache_Reset(t *testing.T) {
	var c Cache[int]
	_, _ = c.Get("a", func() (int, error) { return 1, nil })
	c.Reset()
	assert.Equal(t, 0, c.Len())
}
