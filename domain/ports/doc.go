// Package ports defines interfaces for infrastructure operations.
// These ports enable dependency inversion - the marshalling boundary depends on
// the Compiler abstraction, and backends (an external executable, a WASM guest)
// implement it.
package ports
