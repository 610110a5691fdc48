// Package build runs the binding generation: locate the toolkit, collect
// the link and include directives, then hand each target header to the
// selected generator.
package build

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
	"unicode"

	"cudasys/pkg/config"
	"cudasys/pkg/constants"
	"cudasys/pkg/directive"
	"cudasys/pkg/driver/bindgen"
	"cudasys/pkg/env"
	"cudasys/pkg/locate"
	"cudasys/pkg/stamp"
	"cudasys/pkg/target"
	"cudasys/pkg/version"

	"github.com/schollz/progressbar/v3"
)

const (
	// MetadataFile holds the directives of the last run.
	MetadataFile = "cudasys.build.toml"
	// FlagsFile carries the directives as #cgo lines in the output root package.
	FlagsFile = "zcgo_flags.go"
	// WorkDir under the output directory receives the wrapper headers.
	WorkDir = ".cudasys"
)

type Options struct {
	// OutDir overrides the configured output directory.
	OutDir string
	// Force regenerates targets whose stamp is fresh.
	Force bool
	// Targets overrides the configured target selection.
	Targets []string
	// Progress receives the progress bar. Nil disables it.
	Progress io.Writer
}

// TargetReport describes what happened to one target.
type TargetReport struct {
	Name      string
	Generator string
	Dir       string
	Files     []string
	Skipped   bool
}

// Report is the outcome of a pipeline run.
type Report struct {
	Root       string
	LibDirs    []string
	OutDir     string
	Directives *directive.Set
	Targets    []TargetReport
}

// Generated returns how many targets were regenerated.
func (r *Report) Generated() int {
	n := 0
	for _, t := range r.Targets {
		if !t.Skipped {
			n++
		}
	}
	return n
}

type Pipeline struct {
	Locator *locate.Locator
	Config  *config.Config
}

// New returns a pipeline over the conventional locations, reading the
// environment carried by ctx.
func New(ctx context.Context, cfg *config.Config) *Pipeline {
	l := locate.New()
	l.LookupEnv = env.LookupFunc(ctx)
	if cfg == nil {
		cfg = config.Default()
	}
	return &Pipeline{Locator: l, Config: cfg}
}

// Directives resolves the toolkit and returns its directives together with
// the root. Library resolution runs first; both failures are fatal.
func (p *Pipeline) Directives(ctx context.Context) (*directive.Set, string, []string, error) {
	set := directive.New()

	l := *p.Locator
	l.OnInclude = set.Include
	libDirs, err := l.LibraryDirs(ctx)
	if err != nil {
		return nil, "", nil, err
	}
	for _, dir := range libDirs {
		set.LinkSearchNative(dir)
	}
	set.LinkLib("dylib", constants.CudaDriverLibrary)

	for _, name := range constants.CudaTrackedEnvVars {
		set.RerunIfEnvChanged(name)
	}
	if p.Config.Path != "" {
		set.RerunIfChanged(p.Config.Path)
	}

	root, err := l.Root(ctx)
	if err != nil {
		return nil, "", nil, err
	}
	set.Include(filepath.Join(root, "include"))
	return set, root, libDirs, nil
}

// Run resolves the toolkit, generates every selected target and writes the
// build metadata and stamp.
func (p *Pipeline) Run(ctx context.Context, opts Options) (*Report, error) {
	set, root, libDirs, err := p.Directives(ctx)
	if err != nil {
		return nil, err
	}

	selection := opts.Targets
	if len(selection) == 0 {
		selection = p.Config.Targets
	}
	targets, err := target.Select(selection)
	if err != nil {
		return nil, err
	}

	gen, err := bindgen.Select(ctx, p.Config.Generator)
	if err != nil {
		return nil, fmt.Errorf("failed to select binding generator: %w", err)
	}

	outDir := opts.OutDir
	if outDir == "" {
		outDir = p.Config.ResolveOutDir()
	}
	if outDir, err = filepath.Abs(outDir); err != nil {
		return nil, err
	}
	workDir := filepath.Join(outDir, WorkDir)

	headers := make(map[string]string, len(targets))
	for _, t := range targets {
		header, err := t.WriteHeader(workDir)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", bindgen.ErrWrite, err)
		}
		headers[t.Name] = header
		set.RerunIfChanged(header)
	}

	stampPath := filepath.Join(outDir, stamp.FileName)
	stamps, err := stamp.Load(stampPath)
	if err != nil {
		return nil, err
	}

	report := &Report{Root: root, LibDirs: libDirs, OutDir: outDir, Directives: set}

	progress := opts.Progress
	if progress == nil {
		progress = io.Discard
	}
	bar := progressbar.NewOptions(
		len(targets),
		progressbar.OptionSetWriter(progress),
		progressbar.OptionSetWidth(30),
		progressbar.OptionShowCount(),
		progressbar.OptionSetDescription("bindings("+gen.ID()+")"),
		progressbar.OptionThrottle(80*time.Millisecond),
		progressbar.OptionOnCompletion(func() {
			fmt.Fprintln(progress)
		}),
	)

	for _, t := range targets {
		req := p.request(t, set, root, headers[t.Name], outDir)
		fingerprint, err := Fingerprint(ctx, gen.ID(), req, set, t.MarkerPath(root))
		if err != nil {
			return nil, err
		}

		if !opts.Force && stamps.Fresh(t.Name, fingerprint) {
			entry := stamps.Targets[t.Name]
			slog.Info("bindings up to date", "target", t.Name)
			report.Targets = append(report.Targets, TargetReport{
				Name: t.Name, Generator: entry.Generator, Files: entry.Files, Skipped: true,
			})
			_ = bar.Add(1)
			continue
		}

		slog.Info("generating bindings", "target", t.Name, "generator", gen.ID())
		res, err := gen.Generate(ctx, req)
		if err != nil {
			return nil, err
		}
		stamps.Set(t.Name, stamp.Entry{Fingerprint: fingerprint, Generator: gen.ID(), Files: res.Files})
		report.Targets = append(report.Targets, TargetReport{
			Name: t.Name, Generator: gen.ID(), Dir: res.Dir, Files: res.Files,
		})
		_ = bar.Add(1)
	}
	_ = bar.Finish()

	if err := WriteMetadata(outDir, set); err != nil {
		return nil, err
	}
	if err := stamp.Write(stampPath, stamps); err != nil {
		return nil, fmt.Errorf("%w: %w", bindgen.ErrWrite, err)
	}
	return report, nil
}

func (p *Pipeline) request(t target.Target, set *directive.Set, root, header, outDir string) bindgen.Request {
	includes := directive.New()
	for _, dir := range set.Includes {
		includes.Include(dir)
	}
	for _, dir := range t.Includes(root) {
		includes.Include(dir)
	}

	libDirs := append([]string{}, set.LinkSearch...)
	libDirs = append(libDirs, t.Libraries(root)...)

	libs := make([]string, 0, len(set.LinkLibs)+len(t.LinkLibs))
	for _, lib := range set.LinkLibs {
		libs = append(libs, lib.Name)
	}
	libs = append(libs, t.LinkLibs...)

	return bindgen.Request{
		Target:      t,
		Header:      header,
		Package:     p.Config.PackageName(t),
		IncludeDirs: includes.Includes,
		LibDirs:     libDirs,
		LinkLibs:    libs,
		OutDir:      outDir,
		Options:     p.Config.Options,
	}
}

// Fingerprint hashes every input of one generation call: the tool version,
// the generator, the request, the tracked env vars and the tracked files.
// markers are extra interface headers the bindings are generated from.
func Fingerprint(ctx context.Context, generator string, req bindgen.Request, set *directive.Set, markers ...string) (string, error) {
	h := stamp.NewHasher()
	h.String("cudasys", version.Version())
	h.String("generator", generator)
	h.String("target", req.Target.Name)
	h.String("package", req.Package)
	h.Strings("includes", req.IncludeDirs)
	h.Strings("libdirs", req.LibDirs)
	h.Strings("libs", req.LinkLibs)
	h.String("wrap_static_fns", strconv.FormatBool(req.Options.WrapStaticFns))
	h.String("macro_fallback", strconv.FormatBool(req.Options.MacroFallback))
	h.String("derive_default", strconv.FormatBool(req.Options.DeriveDefault))

	for _, name := range set.TrackEnv {
		value, ok := env.Lookup(ctx, name)
		if !ok {
			value = "<unset>"
		}
		h.String("env:"+name, value)
	}
	for _, path := range set.TrackFiles {
		if err := h.File(path); err != nil {
			return "", err
		}
	}
	for _, dir := range req.IncludeDirs {
		if err := h.File(filepath.Join(dir, constants.CudaMarkerHeader)); err != nil {
			return "", err
		}
	}
	for _, path := range markers {
		if path == "" {
			continue
		}
		if err := h.File(path); err != nil {
			return "", err
		}
	}
	return h.Sum(), nil
}

// WriteMetadata writes the directives as cudasys.build.toml and as a
// zcgo_flags.go file in the output root package.
func WriteMetadata(outDir string, set *directive.Set) error {
	if err := os.MkdirAll(outDir, 0755); err != nil {
		return fmt.Errorf("%w: %w", bindgen.ErrWrite, err)
	}
	writers := map[string]func(io.Writer) error{
		MetadataFile: set.WriteTOML,
		FlagsFile: func(w io.Writer) error {
			return set.WriteCgo(w, PackageName(outDir))
		},
	}
	for name, write := range writers {
		if err := writeAtomic(filepath.Join(outDir, name), write); err != nil {
			return fmt.Errorf("%w: %s: %w", bindgen.ErrWrite, name, err)
		}
	}
	return nil
}

// PackageName derives a Go package name from the output directory.
func PackageName(outDir string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(filepath.Base(outDir)) {
		if r == '_' || (r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r))) {
			b.WriteRune(r)
		}
	}
	name := b.String()
	if name == "" || unicode.IsDigit(rune(name[0])) {
		return "cudasys"
	}
	return name
}

func writeAtomic(path string, write func(io.Writer) error) error {
	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return err
	}
	if err := write(f); err != nil {
		_ = f.Close()
		_ = os.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, path)
}
