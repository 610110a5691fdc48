package target

import (
	"embed"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
)

//go:embed csrc/*.h
var headers embed.FS

// Target is one native interface to generate bindings for.
type Target struct {
	// Name identifies the target and names its output directory.
	Name string
	// Header is the wrapper header under csrc/.
	Header string
	// Package is the Go package name of the generated bindings.
	Package string
	// Prefixes select the C symbols that belong to this interface.
	Prefixes []string
	// IncludeDirs and LibDirs are relative to the toolkit root.
	IncludeDirs []string
	LibDirs     []string
	// LinkLibs are linked in addition to the driver library.
	LinkLibs []string
	// Marker is the interface header relative to the toolkit root, when it
	// is not cuda.h.
	Marker string
	// Default targets are generated when no explicit selection is made.
	Default bool
}

var all = []Target{
	{
		Name:        "driver",
		Header:      "cuda-driver.h",
		Package:     "driver",
		Prefixes:    []string{"cu", "CU"},
		IncludeDirs: []string{"include"},
		Default:     true,
	},
	{
		Name:        "runtime",
		Header:      "cuda-runtime.h",
		Package:     "runtime",
		Prefixes:    []string{"cuda"},
		IncludeDirs: []string{"include"},
		LinkLibs:    []string{"cudart"},
		Default:     true,
	},
	{
		Name:        "sanitizer",
		Header:      "compute-sanitizer.h",
		Package:     "sanitizer",
		Prefixes:    []string{"sanitizer", "Sanitizer", "SANITIZER"},
		IncludeDirs: []string{"include", "compute-sanitizer/include"},
		LibDirs:     []string{"compute-sanitizer"},
		LinkLibs:    []string{"sanitizer-public"},
		Marker:      "compute-sanitizer/include/sanitizer.h",
		Default:     true,
	},
	{
		Name:        "hostruntime",
		Header:      "internal-hostruntime.h",
		Package:     "hostruntime",
		Prefixes:    []string{"__cuda"},
		IncludeDirs: []string{"include"},
		LinkLibs:    []string{"cudart"},
	},
	{
		Name:        "fatbinary",
		Header:      "internal-fatbinary.h",
		Package:     "fatbinary",
		Prefixes:    []string{"fatBinary"},
		IncludeDirs: []string{"include"},
	},
}

// All returns every known target in generation order.
func All() []Target {
	return slices.Clone(all)
}

// Names returns the names of every known target.
func Names() []string {
	names := make([]string, len(all))
	for i, t := range all {
		names[i] = t.Name
	}
	return names
}

// Lookup returns the target with the given name.
func Lookup(name string) (Target, error) {
	for _, t := range all {
		if t.Name == name {
			return t, nil
		}
	}
	return Target{}, fmt.Errorf("unknown target %q (known: %s)", name, strings.Join(Names(), ", "))
}

// Select returns the named targets in generation order, or the default
// targets when names is empty.
func Select(names []string) ([]Target, error) {
	if len(names) == 0 {
		var out []Target
		for _, t := range all {
			if t.Default {
				out = append(out, t)
			}
		}
		return out, nil
	}
	for _, name := range names {
		if _, err := Lookup(name); err != nil {
			return nil, err
		}
	}
	var out []Target
	for _, t := range all {
		if slices.Contains(names, t.Name) {
			out = append(out, t)
		}
	}
	return out, nil
}

// Includes returns the absolute include directories of t under root.
func (t Target) Includes(root string) []string {
	return under(root, t.IncludeDirs)
}

// Libraries returns the absolute library directories of t under root.
func (t Target) Libraries(root string) []string {
	return under(root, t.LibDirs)
}

// MarkerPath returns the absolute marker header of t under root, or "".
func (t Target) MarkerPath(root string) string {
	if t.Marker == "" {
		return ""
	}
	return filepath.Join(root, t.Marker)
}

// HeaderSource returns the embedded wrapper header.
func (t Target) HeaderSource() ([]byte, error) {
	return headers.ReadFile("csrc/" + t.Header)
}

// WriteHeader copies the wrapper header into dir and returns its path.
func (t Target) WriteHeader(dir string) (string, error) {
	data, err := t.HeaderSource()
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create %s: %w", dir, err)
	}
	path := filepath.Join(dir, t.Header)
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write %s: %w", path, err)
	}
	return path, nil
}

func under(root string, rel []string) []string {
	out := make([]string, len(rel))
	for i, r := range rel {
		out[i] = filepath.Join(root, r)
	}
	return out
}
