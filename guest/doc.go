// Package guest turns a Go program into a compiler module for the host
// engine. A guest built with GOOS=wasip1 calls Register with its compiler
// and exports:
//
//	allocate(size u32) u32               from internal/abi
//	deallocate(ptr u32, size u32)        from internal/abi
//	sc_compile(ptr u32, len u32) u64     request: wireformat.CompileRequestWire
//	sc_disassemble(ptr u32, len u32) u64 request: wireformat.DisassembleRequestWire
//	sc_release()
//
// The host writes the JSON request into memory obtained from allocate and
// frees it after the call. A call returns the packed pointer and length of a
// 16 byte wireformat.ResultRecord whose diagnostic and payload pointers are
// guest addresses. Everything the call produced stays valid until
// sc_release. A packed 0 means the call was refused because the previous
// result was not released.
package guest
