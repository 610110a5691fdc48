// Package cudasys locates an NVIDIA CUDA toolkit installation and generates
// cgo bindings for the driver, runtime and compute-sanitizer interfaces.
//
// Bindings are written to ./sys by default. Regenerate them with
//
//	go generate .
//
// or run the cudasys command directly; see cmd/cudasys.
package cudasys

//go:generate go run ./cmd/cudasys generate
