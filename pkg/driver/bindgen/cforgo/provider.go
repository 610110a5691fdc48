// Package cforgo generates bindings with c-for-go
// (https://github.com/xlab/c-for-go), driven by a YAML manifest written
// per target.
package cforgo

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"strings"

	"cudasys/pkg/directive"
	"cudasys/pkg/driver"
	"cudasys/pkg/driver/bindgen"
	execdriver "cudasys/pkg/driver/exec"

	"gopkg.in/yaml.v3"
)

const (
	providerID = "bindgen_cforgo"
	binary     = "c-for-go"
)

type Provider struct{}

func (p *Provider) ID() string   { return providerID }
func (p *Provider) Name() string { return "c-for-go" }

func (p *Provider) DefaultWeight() int {
	// Preferred over the cgo preamble when installed: it emits Go types and wrappers.
	return 60
}

func (p *Provider) CheckCompatibility(ctx context.Context) error {
	if _, err := execdriver.Which(ctx, binary); err != nil {
		return fmt.Errorf("%w: %w", driver.ErrIncompatible, err)
	}
	return nil
}

func (p *Provider) New(ctx context.Context) (bindgen.Driver, error) {
	return &Driver{}, nil
}

type Driver struct{}

func (d *Driver) ID() string { return providerID }

// Manifest is the c-for-go configuration file.
type Manifest struct {
	Generator  Generator  `yaml:"GENERATOR"`
	Parser     Parser     `yaml:"PARSER"`
	Translator Translator `yaml:"TRANSLATOR"`
}

type Generator struct {
	PackageName        string      `yaml:"PackageName"`
	PackageDescription string      `yaml:"PackageDescription"`
	Includes           []string    `yaml:"Includes"`
	FlagGroups         []FlagGroup `yaml:"FlagGroups,omitempty"`
	Options            GenOptions  `yaml:"Options"`
}

type GenOptions struct {
	SafeStrings     bool `yaml:"SafeStrings"`
	StructAccessors bool `yaml:"StructAccessors"`
}

type FlagGroup struct {
	Name  string   `yaml:"name"`
	Flags []string `yaml:"flags"`
}

type Parser struct {
	IncludePaths []string `yaml:"IncludePaths"`
	SourcesPaths []string `yaml:"SourcesPaths"`
}

type Translator struct {
	ConstRules map[string]string `yaml:"ConstRules"`
	Rules      map[string][]Rule `yaml:"Rules"`
}

type Rule struct {
	Action    string `yaml:"action"`
	From      string `yaml:"from,omitempty"`
	To        string `yaml:"to,omitempty"`
	Transform string `yaml:"transform,omitempty"`
}

// BuildManifest returns the manifest for req.
func BuildManifest(req bindgen.Request) Manifest {
	pkg := req.Package
	if pkg == "" {
		pkg = req.Target.Package
	}

	flags := directive.New()
	for _, inc := range req.IncludeDirs {
		flags.Include(inc)
	}
	for _, dir := range req.LibDirs {
		flags.LinkSearchNative(dir)
	}
	for _, lib := range req.LinkLibs {
		flags.LinkLib("dylib", lib)
	}

	var groups []FlagGroup
	if cflags := flags.CFlags(); len(cflags) > 0 {
		groups = append(groups, FlagGroup{Name: "CFLAGS", Flags: cflags})
	}
	if ldflags := flags.LDFlags(); len(ldflags) > 0 {
		groups = append(groups, FlagGroup{Name: "LDFLAGS", Flags: ldflags})
	}

	defines := "expand"
	if req.Options.MacroFallback {
		defines = "eval"
	}

	var rules []Rule
	for _, prefix := range req.Target.Prefixes {
		rules = append(rules, Rule{Action: "accept", From: "^" + regexp.QuoteMeta(prefix)})
	}
	rules = append(rules, Rule{Action: "replace", From: "_$"})

	return Manifest{
		Generator: Generator{
			PackageName:        pkg,
			PackageDescription: fmt.Sprintf("Package %s provides Go bindings for %s.", pkg, req.Target.Header),
			Includes:           []string{req.Target.Header},
			FlagGroups:         groups,
			Options: GenOptions{
				SafeStrings:     true,
				StructAccessors: req.Options.DeriveDefault,
			},
		},
		Parser: Parser{
			IncludePaths: append([]string{filepath.Dir(req.Header)}, req.IncludeDirs...),
			SourcesPaths: []string{req.Header},
		},
		Translator: Translator{
			ConstRules: map[string]string{
				"defines": defines,
				"enum":    "cgo",
			},
			Rules: map[string][]Rule{
				"global": rules,
			},
		},
	}
}

func (d *Driver) Generate(ctx context.Context, req bindgen.Request) (*bindgen.Result, error) {
	manifest := BuildManifest(req)
	data, err := yaml.Marshal(manifest)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", bindgen.ErrGeneration, req.Target.Name, err)
	}

	workDir := filepath.Dir(req.Header)
	manifestPath := filepath.Join(workDir, req.Target.Name+".yml")
	if err := os.WriteFile(manifestPath, data, 0644); err != nil {
		return nil, fmt.Errorf("%w: %w", bindgen.ErrWrite, err)
	}
	if err := os.MkdirAll(req.OutDir, 0755); err != nil {
		return nil, fmt.Errorf("%w: %w", bindgen.ErrWrite, err)
	}

	cmd, err := execdriver.Run(ctx, binary, "-out", req.OutDir, manifestPath)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", bindgen.ErrGeneration, err)
	}
	var output bytes.Buffer
	cmd.Stdout = &output
	cmd.Stderr = &output

	slog.Info("running c-for-go", "target", req.Target.Name, "manifest", manifestPath)
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("%w: %s: %w: %s", bindgen.ErrGeneration, req.Target.Name, err, strings.TrimSpace(output.String()))
	}

	dir := filepath.Join(req.OutDir, manifest.Generator.PackageName)
	files, err := filepath.Glob(filepath.Join(dir, "*"))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", bindgen.ErrGeneration, err)
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("%w: %s: c-for-go wrote nothing to %s", bindgen.ErrGeneration, req.Target.Name, dir)
	}

	// The generated sources include the wrapper header by its bare name.
	header, err := os.ReadFile(req.Header)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", bindgen.ErrGeneration, err)
	}
	headerOut := filepath.Join(dir, req.Target.Header)
	if err := os.WriteFile(headerOut, header, 0644); err != nil {
		return nil, fmt.Errorf("%w: %w", bindgen.ErrWrite, err)
	}
	if !slices.Contains(files, headerOut) {
		files = append(files, headerOut)
	}
	return &bindgen.Result{Dir: dir, Files: files}, nil
}

func init() {
	driver.Register[bindgen.Driver](&Provider{})
}
