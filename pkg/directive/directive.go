// Package directive collects what the build has to tell the cgo toolchain:
// library search directories, libraries to link, include directories, and
// the inputs whose change should trigger regeneration.
package directive

import (
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"text/template"

	"github.com/BurntSushi/toml"
)

// Lib is a library to link, e.g. {Kind: "dylib", Name: "cuda"}.
type Lib struct {
	Kind string `toml:"kind"`
	Name string `toml:"name"`
}

// Set is an ordered collection of build directives.
type Set struct {
	LinkSearch []string `toml:"link_search"`
	LinkLibs   []Lib    `toml:"link_libs"`
	Includes   []string `toml:"includes"`
	TrackEnv   []string `toml:"rerun_if_env_changed"`
	TrackFiles []string `toml:"rerun_if_changed"`
}

// New returns an empty Set.
func New() *Set {
	return &Set{}
}

// LinkSearchNative adds a native library search directory.
func (s *Set) LinkSearchNative(dir string) {
	slog.Debug("directive", "link-search", "native="+dir)
	s.LinkSearch = append(s.LinkSearch, dir)
}

// LinkLib adds a library to link.
func (s *Set) LinkLib(kind, name string) {
	slog.Debug("directive", "link-lib", kind+"="+name)
	s.LinkLibs = append(s.LinkLibs, Lib{Kind: kind, Name: name})
}

// Include announces an include directory. Repeated directories are kept once.
func (s *Set) Include(dir string) {
	for _, existing := range s.Includes {
		if existing == dir {
			return
		}
	}
	slog.Debug("directive", "include", dir)
	s.Includes = append(s.Includes, dir)
}

// RerunIfEnvChanged declares an environment variable as a build input.
func (s *Set) RerunIfEnvChanged(name string) {
	slog.Debug("directive", "rerun-if-env-changed", name)
	s.TrackEnv = append(s.TrackEnv, name)
}

// RerunIfChanged declares a file as a build input.
func (s *Set) RerunIfChanged(path string) {
	slog.Debug("directive", "rerun-if-changed", path)
	s.TrackFiles = append(s.TrackFiles, path)
}

// CFlags returns the compiler flags for the announced include directories.
func (s *Set) CFlags() []string {
	flags := make([]string, 0, len(s.Includes))
	for _, dir := range s.Includes {
		flags = append(flags, "-I"+dir)
	}
	return flags
}

// LDFlags returns the linker flags: every search directory, then every library.
func (s *Set) LDFlags() []string {
	flags := make([]string, 0, len(s.LinkSearch)+len(s.LinkLibs))
	for _, dir := range s.LinkSearch {
		flags = append(flags, "-L"+dir)
	}
	for _, lib := range s.LinkLibs {
		flags = append(flags, "-l"+lib.Name)
	}
	return flags
}

var cgoTemplate = template.Must(template.New("cgo").Parse(`// Code generated by cudasys. DO NOT EDIT.

package {{ .Package }}

/*
{{- if .CFlags }}
#cgo CFLAGS: {{ .CFlags }}
{{- end }}
{{- if .LDFlags }}
#cgo LDFLAGS: {{ .LDFlags }}
{{- end }}
*/
import "C"
`))

// WriteCgo writes a Go file carrying the directives as #cgo lines.
func (s *Set) WriteCgo(w io.Writer, pkg string) error {
	return cgoTemplate.Execute(w, map[string]string{
		"Package": pkg,
		"CFlags":  JoinCgo(s.CFlags()),
		"LDFlags": JoinCgo(s.LDFlags()),
	})
}

// WriteEnv writes shell exports of CGO_CFLAGS and CGO_LDFLAGS.
func (s *Set) WriteEnv(w io.Writer) error {
	if _, err := fmt.Fprintf(w, "export CGO_CFLAGS=%s\n", QuoteShell(strings.Join(s.CFlags(), " "))); err != nil {
		return err
	}
	_, err := fmt.Fprintf(w, "export CGO_LDFLAGS=%s\n", QuoteShell(strings.Join(s.LDFlags(), " ")))
	return err
}

// WriteTOML writes the directives as build metadata.
func (s *Set) WriteTOML(w io.Writer) error {
	return toml.NewEncoder(w).Encode(s)
}

// JoinCgo joins flags for a #cgo line, quoting the ones containing blanks.
func JoinCgo(flags []string) string {
	out := make([]string, len(flags))
	for i, f := range flags {
		if strings.ContainsAny(f, " \t\"'") {
			out[i] = strconv.Quote(f)
		} else {
			out[i] = f
		}
	}
	return strings.Join(out, " ")
}

// QuoteShell quotes s for a POSIX shell when it contains special characters.
func QuoteShell(s string) string {
	if s == "" {
		return "''"
	}
	if strings.ContainsAny(s, " \t\n\"'$`\\|&;<>()[]{}*?!") {
		return "'" + strings.ReplaceAll(s, "'", `'"'"'`) + "'"
	}
	return s
}
