// Package scratch owns the buffers a boundary call hands back to its caller.
//
// A compile or disassemble call produces up to two variable sized results: a
// diagnostic text (errors or warnings) and a payload (compiled binary or
// text). The caller and the boundary do not share a memory manager, so the
// buffers are allocated from a Heap, referenced by opaque 32-bit pointers,
// and freed only when the caller says so.
//
// Two ownership models are provided:
//
//   - Slots keeps exactly one diagnostic and one payload buffer alive at a
//     time. The caller must call Release after every call and before the
//     next one. Issuing a call while buffers are outstanding is a misuse that
//     is either rejected (PolicyReject, the default) or repaired by freeing
//     the stale buffers first (PolicyFreeBeforeReplace).
//   - Arena gives every call its own Handle that owns its buffers until the
//     caller destroys it. Handles are independent, so concurrent callers do
//     not race on shared slots.
//
// Reading a pointer after it was released is a caller error. The table heap
// reports such pointers as missing rather than returning stale bytes.
package scratch
