// Package entities defines the core domain types of the shader bridge:
// shader stages, shading languages, compile and disassemble requests, and
// the translations the wrapped compiler produces.
//
// These types serve dual purpose: domain entities AND JSON wire format DTOs
// for requests that cross into a WASM compiler guest.
package entities
