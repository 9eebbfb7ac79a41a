package scratch

import (
	"sync"
	"testing"

	domainerrors "github.com/modanna/ShaderConductor/domain/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestArena_HandlesAreIndependent(t *testing.T) {
	heap := NewTableHeap()
	a := NewArena(heap)

	h1 := a.Open()
	h2 := a.Open()
	require.NotEqual(t, h1, h2)
	assert.NotZero(t, h1)

	b1, err := a.Put(h1, KindPayload, []byte("one"))
	require.NoError(t, err)
	b2, err := a.Put(h2, KindPayload, []byte("two"))
	require.NoError(t, err)

	require.NoError(t, a.Destroy(h1))

	_, ok := heap.Read(b1.Ptr)
	assert.False(t, ok)
	got, ok := heap.Read(b2.Ptr)
	require.True(t, ok)
	assert.Equal(t, []byte("two"), got)

	assert.Equal(t, 1, a.Len())
}

func TestArena_DestroyTwiceIsMisuse(t *testing.T) {
	a := NewArena(NewTableHeap())
	h := a.Open()

	require.NoError(t, a.Destroy(h))

	err := a.Destroy(h)
	require.Error(t, err)
	assert.True(t, domainerrors.IsMisuse(err))

	err = a.Destroy(Handle(999))
	assert.True(t, domainerrors.IsMisuse(err))
}

func TestArena_PutUnknownHandle(t *testing.T) {
	a := NewArena(NewTableHeap())
	_, err := a.PutText(Handle(3), "warn")
	assert.True(t, domainerrors.IsMisuse(err))
}

func TestArena_PutReplacesBuffer(t *testing.T) {
	heap := NewTableHeap()
	a := NewArena(heap)
	h := a.Open()

	first, err := a.PutText(h, "first")
	require.NoError(t, err)
	second, err := a.PutText(h, "second")
	require.NoError(t, err)

	_, ok := heap.Read(first.Ptr)
	assert.False(t, ok)

	got, ok := a.Get(h, KindDiagnostic)
	require.True(t, ok)
	assert.Equal(t, second, got)

	_, ok = a.Get(h, Kind(5))
	assert.False(t, ok)
}

func TestArena_Close(t *testing.T) {
	heap := NewTableHeap()
	a := NewArena(heap)

	for i := 0; i < 5; i++ {
		h := a.Open()
		_, err := a.Put(h, KindPayload, []byte{byte(i), 0})
		require.NoError(t, err)
	}

	a.Close()

	assert.Zero(t, a.Len())
	allocs, _ := heap.Stats()
	assert.Zero(t, allocs)
}

func TestArena_Concurrency(t *testing.T) {
	heap := NewTableHeap()
	a := NewArena(heap)

	var wg sync.WaitGroup
	iterations := 100

	wg.Add(iterations)
	for i := 0; i < iterations; i++ {
		go func() {
			defer wg.Done()
			h := a.Open()
			_, _ = a.Put(h, KindPayload, []byte("payload"))
			_, _ = a.PutText(h, "diag")
			_ = a.Destroy(h)
		}()
	}
	wg.Wait()

	assert.Zero(t, a.Len())
	allocs, _ := heap.Stats()
	assert.Zero(t, allocs)
}
