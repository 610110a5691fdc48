// Package locate finds a CUDA toolkit installation on the host.
//
// Two questions are answered independently, each by re-probing the
// filesystem: where the toolkit root is (the directory holding
// include/cuda.h), and which directories the linker should search for the
// driver library. Root resolution stops at the first acceptable candidate.
// Library resolution visits every candidate and accumulates what it finds,
// so the order of the result is the linker search order.
package locate

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"cudasys/pkg/constants"
)

// ErrNotFound is returned when no candidate yields a usable installation.
var ErrNotFound = errors.New("could not find a cuda installation")

// Locator probes environment variables and conventional locations.
// The zero value probes nothing; use New for the standard layout.
type Locator struct {
	// LookupEnv reads the environment. Defaults to os.LookupEnv.
	LookupEnv func(string) (string, bool)

	RootEnv      []string
	RootDefaults []string

	LibraryEnv  string
	LibDefaults []string
	LibGlob     string
	LibTrailing []string

	// OnInclude receives the include directory of every targets/x86_64-linux
	// layout found while resolving library directories.
	OnInclude func(dir string)
}

// New returns a Locator for the conventional CUDA locations.
func New() *Locator {
	return &Locator{
		LookupEnv:    os.LookupEnv,
		RootEnv:      constants.CudaRootEnvVars,
		RootDefaults: constants.CudaRootCandidates,
		LibraryEnv:   constants.CudaLibraryPathEnv,
		LibDefaults:  constants.CudaLibCandidates,
		LibGlob:      constants.CudaVersionedGlob,
		LibTrailing:  constants.CudaLibTrailingCandidates,
	}
}

// IsRoot reports whether path contains include/cuda.h as a regular file.
func IsRoot(path string) bool {
	return isFile(filepath.Join(path, "include", constants.CudaMarkerHeader))
}

// Root returns the first env var value, then the first default directory,
// that is a valid toolkit root.
func (l *Locator) Root(ctx context.Context) (string, error) {
	for _, name := range l.RootEnv {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		path, ok := l.lookupEnv(name)
		if !ok {
			continue
		}
		if IsRoot(path) {
			slog.Debug("cuda root from env", "var", name, "path", path)
			return path, nil
		}
		slog.Debug("ignoring env root without include/cuda.h", "var", name, "path", path)
	}

	for _, path := range l.RootDefaults {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		if IsRoot(path) {
			slog.Debug("cuda root from defaults", "path", path)
			return path, nil
		}
	}

	return "", fmt.Errorf("%w: no root with include/%s (checked %s and %s)",
		ErrNotFound, constants.CudaMarkerHeader,
		strings.Join(l.RootEnv, ", "), strings.Join(l.RootDefaults, ", "))
}

// Roots returns every distinct valid root reachable from the env vars,
// the default roots and the versioned glob, in probing order.
func (l *Locator) Roots(ctx context.Context) []string {
	var candidates []string
	for _, name := range l.RootEnv {
		if path, ok := l.lookupEnv(name); ok {
			candidates = append(candidates, path)
		}
	}
	candidates = append(candidates, l.RootDefaults...)
	candidates = append(candidates, l.globMatches()...)

	seen := map[string]bool{}
	var roots []string
	for _, path := range candidates {
		if ctx.Err() != nil {
			break
		}
		clean := filepath.Clean(path)
		if seen[clean] || !IsRoot(path) {
			continue
		}
		seen[clean] = true
		roots = append(roots, path)
	}
	return roots
}

// Candidate is a library search candidate. Explicit candidates come from
// the library env var and are probed without further validation.
type Candidate struct {
	Path     string
	Explicit bool
}

// Candidates returns the ordered library search candidates: every segment
// of the library env var verbatim, the defaults, the versioned glob
// matches, then the trailing defaults.
func (l *Locator) Candidates() []Candidate {
	var out []Candidate
	if l.LibraryEnv != "" {
		if value, ok := l.lookupEnv(l.LibraryEnv); ok {
			for _, segment := range strings.Split(value, ":") {
				out = append(out, Candidate{Path: segment, Explicit: true})
			}
		}
	}
	for _, path := range l.LibDefaults {
		out = append(out, Candidate{Path: path})
	}
	for _, path := range l.globMatches() {
		out = append(out, Candidate{Path: path})
	}
	for _, path := range l.LibTrailing {
		out = append(out, Candidate{Path: path})
	}
	return out
}

// LibraryDirs returns the directories the linker should search, in order.
// Duplicates are kept. Stubs directories are added without checking that
// they exist.
func (l *Locator) LibraryDirs(ctx context.Context) ([]string, error) {
	var dirs []string
	for _, c := range l.Candidates() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		lib := filepath.Join(c.Path, "lib64")
		if isDir(lib) {
			dirs = append(dirs, lib, filepath.Join(lib, "stubs"))
		}

		targets := filepath.Join(c.Path, constants.CudaTargetsLayout)
		if isFile(filepath.Join(targets, "include", constants.CudaMarkerHeader)) {
			dirs = append(dirs,
				filepath.Join(targets, "lib"),
				filepath.Join(targets, "lib", "stubs"),
			)
			include := filepath.Join(targets, "include")
			slog.Debug("found targets layout", "candidate", c.Path, "include", include)
			if l.OnInclude != nil {
				l.OnInclude(include)
			}
		}
	}

	if len(dirs) == 0 {
		return nil, fmt.Errorf("%w: no library directory under any candidate", ErrNotFound)
	}
	return dirs, nil
}

func (l *Locator) lookupEnv(name string) (string, bool) {
	if l.LookupEnv == nil {
		return os.LookupEnv(name)
	}
	return l.LookupEnv(name)
}

func (l *Locator) globMatches() []string {
	if l.LibGlob == "" {
		return nil
	}
	matches, err := filepath.Glob(l.LibGlob)
	if err != nil {
		slog.Warn("bad versioned install pattern", "pattern", l.LibGlob, "err", err)
		return nil
	}
	return matches
}

func isFile(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
