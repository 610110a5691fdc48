// Package cgo generates bindings by handing the header to cgo itself: the
// output is a package whose preamble includes the wrapper header with the
// discovered flags, so every declaration is reachable as C.<name>.
package cgo

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"text/template"

	"cudasys/pkg/directive"
	"cudasys/pkg/driver"
	"cudasys/pkg/driver/bindgen"
)

const providerID = "bindgen_cgo"

type Provider struct{}

func (p *Provider) ID() string         { return providerID }
func (p *Provider) Name() string       { return "cgo preamble" }
func (p *Provider) DefaultWeight() int { return driver.DefaultWeight }

func (p *Provider) CheckCompatibility(ctx context.Context) error {
	return nil
}

func (p *Provider) New(ctx context.Context) (bindgen.Driver, error) {
	return &Driver{}, nil
}

type Driver struct{}

func (d *Driver) ID() string { return providerID }

var packageTemplate = template.Must(template.New("package").Parse(`// Code generated by cudasys. DO NOT EDIT.

// Package {{ .Package }} exposes {{ .Header }} through cgo.
package {{ .Package }}

/*
#cgo CFLAGS: -I${SRCDIR}{{ if .CFlags }} {{ .CFlags }}{{ end }}
{{- if .LDFlags }}
#cgo LDFLAGS: {{ .LDFlags }}
{{- end }}
#include "{{ .Header }}"
*/
import "C"
`))

func (d *Driver) Generate(ctx context.Context, req bindgen.Request) (*bindgen.Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	pkg := req.Package
	if pkg == "" {
		pkg = req.Target.Package
	}
	dir := filepath.Join(req.OutDir, req.Target.Name)

	flags := directive.New()
	for _, inc := range req.IncludeDirs {
		flags.Include(inc)
	}
	for _, lib := range req.LibDirs {
		flags.LinkSearchNative(lib)
	}
	for _, lib := range req.LinkLibs {
		flags.LinkLib("dylib", lib)
	}

	var buf bytes.Buffer
	err := packageTemplate.Execute(&buf, map[string]string{
		"Package": pkg,
		"Header":  req.Target.Header,
		"CFlags":  directive.JoinCgo(flags.CFlags()),
		"LDFlags": directive.JoinCgo(flags.LDFlags()),
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", bindgen.ErrGeneration, req.Target.Name, err)
	}

	header, err := os.ReadFile(req.Header)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", bindgen.ErrGeneration, req.Target.Name, err)
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("%w: %w", bindgen.ErrWrite, err)
	}
	headerOut := filepath.Join(dir, req.Target.Header)
	goOut := filepath.Join(dir, req.Target.Name+".go")
	if err := writeAtomic(headerOut, header); err != nil {
		return nil, fmt.Errorf("%w: %w", bindgen.ErrWrite, err)
	}
	if err := writeAtomic(goOut, buf.Bytes()); err != nil {
		return nil, fmt.Errorf("%w: %w", bindgen.ErrWrite, err)
	}

	slog.Debug("cgo bindings written", "target", req.Target.Name, "dir", dir,
		"wrap_static_fns", req.Options.WrapStaticFns, "macro_fallback", req.Options.MacroFallback)
	return &bindgen.Result{Dir: dir, Files: []string{headerOut, goOut}}, nil
}

func writeAtomic(path string, data []byte) error {
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	return nil
}

func init() {
	driver.Register[bindgen.Driver](&Provider{})
}
