package memkv_test

import (
	"fmt"
	"sync"
	"testing"

	"github.com/MikhailWahib/zynk/internal/memkv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore_BasicOperations(t *testing.T) {
	s := memkv.New()

	require.NoError(t, s.Put([]byte("k"), []byte("v1")))
	require.NoError(t, s.Put([]byte("k"), []byte("v2")))

	v, ok, err := s.Get([]byte("k"))
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []byte("v2"), v)

	assert.True(t, s.Remove([]byte("k")))
	assert.False(t, s.Remove([]byte("k")))
	require.NoError(t, s.Delete([]byte("missing")))

	_, ok, err = s.Get([]byte("k"))
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, 0, s.Len())
}

func TestStore_Copies(t *testing.T) {
	s := memkv.New()
	val := []byte("value")
	require.NoError(t, s.Put([]byte("k"), val))
	val[0] = 'X'

	got, _, _ := s.Get([]byte("k"))
	assert.Equal(t, []byte("value"), got)

	got[0] = 'Y'
	again, _, _ := s.Get([]byte("k"))
	assert.Equal(t, []byte("value"), again)
}

func TestStore_Concurrent(t *testing.T) {
	s := memkv.New()
	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				k := []byte(fmt.Sprintf("g%d-%d", g, i))
				_ = s.Put(k, k)
				_, _, _ = s.Get(k)
			}
		}(g)
	}
	wg.Wait()
	assert.Equal(t, 800, s.Len())
}
