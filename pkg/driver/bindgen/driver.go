package bindgen

import (
	"context"
	"errors"

	"cudasys/pkg/driver"
	"cudasys/pkg/target"
)

var (
	// ErrGeneration is returned when the generator cannot produce bindings.
	ErrGeneration = errors.New("unable to generate bindings")
	// ErrWrite is returned when generated output cannot be persisted.
	ErrWrite = errors.New("could not write bindings")
)

// Options tune the generated bindings.
type Options struct {
	// WrapStaticFns exposes static inline functions through C wrappers.
	WrapStaticFns bool `toml:"wrap_static_fns"`
	// MacroFallback evaluates macros the generator cannot translate directly.
	MacroFallback bool `toml:"macro_fallback"`
	// DeriveDefault gives generated structs a zero-value constructor.
	DeriveDefault bool `toml:"derive_default"`
}

// DefaultOptions returns the options every target is generated with.
func DefaultOptions() Options {
	return Options{WrapStaticFns: true, MacroFallback: true, DeriveDefault: true}
}

// Request describes one generation call.
type Request struct {
	Target target.Target
	// Header is the absolute path of the wrapper header.
	Header string
	// Package is the Go package name of the output.
	Package string
	// IncludeDirs are passed to the C preprocessor in order.
	IncludeDirs []string
	// LibDirs and LinkLibs end up in the linker flags of the output.
	LibDirs  []string
	LinkLibs []string
	// OutDir receives the generated package directory.
	OutDir  string
	Options Options
}

// Result lists the files written by a generation call.
type Result struct {
	Dir   string
	Files []string
}

// Driver turns a C header into Go bindings.
type Driver interface {
	// ID returns the provider ID, recorded in stamps.
	ID() string
	Generate(ctx context.Context, req Request) (*Result, error)
}

// Get returns the best available generator.
func Get(ctx context.Context) (Driver, error) {
	return driver.Get[Driver](ctx)
}

// Select returns the generator with the given provider ID, or the best
// available one when id is empty.
func Select(ctx context.Context, id string) (Driver, error) {
	if id == "" {
		return Get(ctx)
	}
	return driver.GetByID[Driver](ctx, id)
}

// Generate runs req through the best available generator.
func Generate(ctx context.Context, req Request) (*Result, error) {
	d, err := Get(ctx)
	if err != nil {
		return nil, err
	}
	return d.Generate(ctx, req)
}
