// Package host runs compiler guests under wazero.
//
// An Executor owns one wazero runtime with WASI and the sc_host module
// guests import for logging. LoadCompiler instantiates a guest built with
// the guest package and returns a Compiler that implements ports.Compiler
// by writing JSON requests into guest memory, calling the sc_compile or
// sc_disassemble export, copying the diagnostic and payload out of the
// result record and then calling sc_release.
package host
