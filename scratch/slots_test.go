package scratch

import (
	"testing"

	domainerrors "github.com/modanna/ShaderConductor/domain/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSlots_Lifecycle(t *testing.T) {
	heap := NewTableHeap()
	s := NewSlots(heap)

	assert.Equal(t, Unallocated, s.State(KindDiagnostic))
	assert.Equal(t, Unallocated, s.State(KindPayload))
	require.NoError(t, s.Begin())

	diag, err := s.PutText("warning: implicit truncation")
	require.NoError(t, err)
	payload, err := s.Put(KindPayload, []byte{1, 0, 2, 0})
	require.NoError(t, err)

	assert.Equal(t, Allocated, s.State(KindDiagnostic))
	assert.Equal(t, Allocated, s.State(KindPayload))
	assert.True(t, s.Outstanding())
	assert.Equal(t, uint32(4), payload.Size)
	assert.Equal(t, uint32(len("warning: implicit truncation")+1), diag.Size)
	assert.Equal(t, payload, s.Current(KindPayload))

	s.Release()

	assert.Equal(t, Unallocated, s.State(KindDiagnostic))
	assert.Equal(t, Unallocated, s.State(KindPayload))
	assert.False(t, s.Outstanding())
	allocs, total := heap.Stats()
	assert.Zero(t, allocs)
	assert.Zero(t, total)
}

func TestSlots_ReleaseIsIdempotent(t *testing.T) {
	s := NewSlots(NewTableHeap())

	// Fresh allocator, nothing to free.
	assert.NotPanics(t, s.Release)

	_, err := s.Put(KindPayload, []byte("x"))
	require.NoError(t, err)

	assert.NotPanics(t, s.Release)
	assert.NotPanics(t, s.Release)
	assert.False(t, s.Outstanding())
}

func TestSlots_EmptyDataStaysUnallocated(t *testing.T) {
	s := NewSlots(NewTableHeap())

	buf, err := s.PutText("")
	require.NoError(t, err)
	assert.True(t, buf.IsZero())

	buf, err = s.Put(KindPayload, nil)
	require.NoError(t, err)
	assert.True(t, buf.IsZero())

	assert.False(t, s.Outstanding())
	require.NoError(t, s.Begin(), "nothing outstanding, next call may start")
}

func TestSlots_RejectPolicy(t *testing.T) {
	heap := NewTableHeap()
	s := NewSlots(heap)
	assert.Equal(t, PolicyReject, s.Policy())

	first, err := s.Put(KindPayload, []byte("first"))
	require.NoError(t, err)

	err = s.Begin()
	require.Error(t, err)
	assert.True(t, domainerrors.IsMisuse(err))

	_, err = s.Put(KindPayload, []byte("second"))
	require.Error(t, err)
	assert.True(t, domainerrors.IsMisuse(err))

	// The outstanding buffer is untouched.
	got, ok := heap.Read(first.Ptr)
	require.True(t, ok)
	assert.Equal(t, []byte("first"), got)

	s.Release()
	require.NoError(t, s.Begin())
}

func TestSlots_FreeBeforeReplacePolicy(t *testing.T) {
	heap := NewTableHeap()
	s := NewSlots(heap, WithPolicy(PolicyFreeBeforeReplace))

	first, err := s.Put(KindPayload, []byte("first"))
	require.NoError(t, err)
	_, err = s.PutText("warn")
	require.NoError(t, err)

	require.NoError(t, s.Begin())
	assert.False(t, s.Outstanding())

	_, ok := heap.Read(first.Ptr)
	assert.False(t, ok, "stale buffer must be freed, not leaked")

	second, err := s.Put(KindPayload, []byte("second"))
	require.NoError(t, err)
	third, err := s.Put(KindPayload, []byte("third"))
	require.NoError(t, err)

	_, ok = heap.Read(second.Ptr)
	assert.False(t, ok)
	allocs, _ := heap.Stats()
	assert.Equal(t, 1, allocs)
	assert.Equal(t, third, s.Current(KindPayload))
}

func TestSlots_InvalidKind(t *testing.T) {
	s := NewSlots(NewTableHeap())

	_, err := s.Put(Kind(9), []byte("x"))
	assert.Error(t, err)
	assert.Equal(t, Unallocated, s.State(Kind(9)))
	assert.True(t, s.Current(Kind(9)).IsZero())
}

func TestSlots_MemoryLimitLeavesSlotEmpty(t *testing.T) {
	s := NewSlots(NewTableHeap(WithMaxTotalAllocations(4)))

	_, err := s.Put(KindPayload, []byte("too large"))
	require.Error(t, err)
	assert.Equal(t, Unallocated, s.State(KindPayload))
}

func TestPolicy_String(t *testing.T) {
	assert.Equal(t, "reject", PolicyReject.String())
	assert.Equal(t, "free-before-replace", PolicyFreeBeforeReplace.String())
	assert.Equal(t, "Policy(7)", Policy(7).String())
}
