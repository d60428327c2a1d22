package cache

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLRUEviction(t *testing.T) {
	c := New[string, int](2)
	c.Add("a", 1)
	c.Add("b", 2)
	_, _ = c.Get("a") // a is now MRU
	c.Add("c", 3)     // evicts b

	_, ok := c.Get("b")
	assert.False(t, ok)
	v, ok := c.Get("a")
	assert.True(t, ok)
	assert.Equal(t, 1, v)
	assert.Equal(t, 2, c.Len())

	c.Add("a", 10)
	v, _ = c.Get("a")
	assert.Equal(t, 10, v)

	c.Purge()
	assert.Equal(t, 0, c.Len())
}

func TestLRUConcurrent(t *testing.T) {
	c := New[int, int](16)
	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < 500; i++ {
				c.Add(i%32, g)
				c.Get(i % 7)
			}
		}(g)
	}
	wg.Wait()
	assert.LessOrEqual(t, c.Len(), 16)
}

func TestLRUPanicsOnZeroCapacity(t *testing.T) {
	assert.Panics(t, func() { New[string, int](0) })
}
