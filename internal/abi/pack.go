// Package abi provides the pointer/length packing shared by the WASM host
// and guest, and (under GOOS=wasip1) the guest's linear-memory allocator.
package abi

import "fmt"

// PtrHighBits is the shift of the pointer half in a packed value.
const PtrHighBits = 32

// PackPtrLen packs a pointer and length into a single uint64.
// Pointer is stored in the high 32 bits, length in the low 32 bits.
// Panics if ptr is 0 and length > 0, indicating an invalid state.
func PackPtrLen(ptr, length uint32) uint64 {
	if ptr == 0 && length > 0 {
		panic(fmt.Sprintf("abi: invalid pack - null pointer (0x0) with non-zero length (%d)", length))
	}
	return (uint64(ptr) << PtrHighBits) | uint64(length)
}

// UnpackPtrLen unpacks a uint64 into its original pointer and length.
// Panics if ptr is 0 and length > 0, indicating an invalid packed value.
func UnpackPtrLen(packed uint64) (ptr, length uint32) {
	ptr = uint32(packed >> PtrHighBits)
	length = uint32(packed)
	if ptr == 0 && length > 0 {
		panic(fmt.Sprintf("abi: invalid unpack - null pointer (0x0) with non-zero length (%d)", length))
	}
	return ptr, length
}

// SplitPacked is UnpackPtrLen without the validity check, for values that
// arrive from an untrusted peer and are validated by the caller.
func SplitPacked(packed uint64) (ptr, length uint32) {
	return uint32(packed >> PtrHighBits), uint32(packed)
}
