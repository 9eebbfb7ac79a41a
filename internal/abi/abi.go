//go:build wasip1

package abi

import (
	"fmt"
	"sync"
	"unsafe"

	domainerrors "github.com/modanna/ShaderConductor/domain/errors"
)

// DefaultMaxTotalAllocations is the default cap on guest memory held by the allocator.
// This prevents unbounded memory growth in WASM linear memory.
const DefaultMaxTotalAllocations = 100 * 1024 * 1024 // 100 MB

// memoryManager tracks all allocations made in WASM linear memory.
// It keeps a reference to allocated slices to prevent the Go GC from collecting them,
// effectively "pinning" the memory until explicitly freed.
var memoryManager = struct {
	ptrs           map[uint32][]byte // ptr -> slice reference
	totalAllocated int
	limit          int
	sync.Mutex
}{
	ptrs:  make(map[uint32][]byte),
	limit: DefaultMaxTotalAllocations,
}

// Option configures the allocator.
type Option func()

// WithMaxTotalAllocations sets the allocation cap. Non-positive values are ignored.
func WithMaxTotalAllocations(limit int) Option {
	return func() {
		if limit > 0 {
			memoryManager.limit = limit
		}
	}
}

// Configure applies allocator options.
func Configure(opts ...Option) {
	memoryManager.Lock()
	defer memoryManager.Unlock()
	for _, opt := range opts {
		opt()
	}
}

// tryAllocate reserves size bytes and returns the pinned slice and its address.
func tryAllocate(size uint32) (uint32, []byte, error) {
	if size == 0 {
		return 0, nil, nil
	}

	memoryManager.Lock()
	defer memoryManager.Unlock()

	if memoryManager.totalAllocated+int(size) > memoryManager.limit {
		return 0, nil, &domainerrors.MemoryError{
			Requested: int(size),
			Current:   memoryManager.totalAllocated,
			Limit:     memoryManager.limit,
		}
	}

	buf := make([]byte, size)
	//nolint:gosec // G103: Valid unsafe.Pointer use for WASM linear memory access
	ptr := uint32(uintptr(unsafe.Pointer(&buf[0])))

	memoryManager.ptrs[ptr] = buf // PIN THE MEMORY: Store the slice to prevent GC
	memoryManager.totalAllocated += int(size)

	return ptr, buf, nil
}

// allocate reserves memory in the WASM linear memory and returns a pointer.
// The host writes request payloads into this memory before calling an export.
// Panics if allocation would exceed the configured limit; the trap surfaces
// to the host as a failed call.
//
//go:wasmexport allocate
func allocate(size uint32) uint32 {
	ptr, _, err := tryAllocate(size)
	if err != nil {
		panic(fmt.Sprintf("abi: %v", err))
	}
	return ptr
}

// deallocate frees memory by removing the reference from the memory manager,
// allowing the Go GC to collect it. Decrements totalAllocated by the actual
// stored slice length (not the passed size) to prevent counter corruption.
//
//go:wasmexport deallocate
func deallocate(ptr uint32, size uint32) {
	free(ptr)
}

func free(ptr uint32) {
	memoryManager.Lock()
	defer memoryManager.Unlock()

	storedSlice, exists := memoryManager.ptrs[ptr]
	if !exists {
		return // Ignore untracked pointers (idempotent)
	}

	delete(memoryManager.ptrs, ptr)
	memoryManager.totalAllocated -= len(storedSlice)
	if memoryManager.totalAllocated < 0 {
		memoryManager.totalAllocated = 0
	}
}

// FreeAllTracked frees all memory currently tracked by the allocator.
func FreeAllTracked() {
	memoryManager.Lock()
	defer memoryManager.Unlock()

	clear(memoryManager.ptrs)
	memoryManager.totalAllocated = 0
}

// Stats returns the number of live allocations and their total size.
func Stats() (allocations int, totalBytes int) {
	memoryManager.Lock()
	defer memoryManager.Unlock()
	return len(memoryManager.ptrs), memoryManager.totalAllocated
}

// PtrFromBytes allocates WASM memory, copies the given data into it,
// and returns the packed pointer and length (uint64).
func PtrFromBytes(data []byte) uint64 {
	if len(data) == 0 {
		return 0
	}
	ptr, buf, err := tryAllocate(uint32(len(data)))
	if err != nil {
		panic(fmt.Sprintf("abi: %v", err))
	}
	copy(buf, data)
	return PackPtrLen(ptr, uint32(len(data)))
}

// BytesFromPtr copies the memory referenced by a packed pointer and length.
// This is used when the guest receives a request the host wrote into memory
// obtained from allocate.
func BytesFromPtr(packed uint64) []byte {
	ptr, length := UnpackPtrLen(packed)
	if ptr == 0 || length == 0 {
		return nil
	}
	return readFromMemory(ptr, length)
}

// DeallocatePacked unpacks a uint64 pointer/length and deallocates the memory.
func DeallocatePacked(packed uint64) {
	ptr, length := UnpackPtrLen(packed)
	if ptr != 0 && length > 0 {
		free(ptr)
	}
}

// readFromMemory copies data out of WASM linear memory.
func readFromMemory(ptr uint32, length uint32) []byte {
	//nolint:gosec // G103: Valid unsafe.Pointer use for WASM linear memory access
	src := unsafe.Slice((*byte)(unsafe.Pointer(uintptr(ptr))), length)
	data := make([]byte, length)
	copy(data, src)
	return data
}

// LinearHeap allocates result buffers directly in linear memory, so the
// pointers it returns are addresses the host can read without a copy
// through the guest.
type LinearHeap struct{}

// Alloc implements scratch.Heap.
func (LinearHeap) Alloc(data []byte) (uint32, error) {
	ptr, buf, err := tryAllocate(uint32(len(data)))
	if err != nil || ptr == 0 {
		return 0, err
	}
	copy(buf, data)
	return ptr, nil
}

// Read implements scratch.Heap.
func (LinearHeap) Read(ptr uint32) ([]byte, bool) {
	memoryManager.Lock()
	defer memoryManager.Unlock()
	buf, ok := memoryManager.ptrs[ptr]
	return buf, ok
}

// Free implements scratch.Heap.
func (LinearHeap) Free(ptr uint32) {
	free(ptr)
}

// Stats implements scratch.Heap.
func (LinearHeap) Stats() (allocations int, totalBytes int) {
	return Stats()
}
