package cforgo

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"cudasys/pkg/driver"
	"cudasys/pkg/driver/bindgen"
	_ "cudasys/pkg/driver/exec/native"
	"cudasys/pkg/target"
	"cudasys/pkg/types"

	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

const fakeCForGo = `#!/bin/sh
# usage: c-for-go -out DIR MANIFEST
out="$2"
mkdir -p "$out/driver"
echo "package driver" > "$out/driver/driver.go"
cp "$3" "$out/driver/manifest.yml"
`

const failingCForGo = `#!/bin/sh
echo "parse error: cuda.h: no such file" >&2
exit 3
`

func withFakeTool(t *testing.T, script string) context.Context {
	t.Helper()
	bin := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(bin, "c-for-go"), []byte(script), 0755))
	return context.WithValue(context.Background(), types.EnvKey, []string{
		"PATH=" + bin + ":/usr/bin:/bin",
	})
}

func driverRequest(t *testing.T) bindgen.Request {
	t.Helper()
	tgt, err := target.Lookup("driver")
	require.NoError(t, err)
	header, err := tgt.WriteHeader(t.TempDir())
	require.NoError(t, err)
	return bindgen.Request{
		Target:      tgt,
		Header:      header,
		IncludeDirs: []string{"/usr/local/cuda/include"},
		LibDirs:     []string{"/usr/local/cuda/lib64", "/usr/local/cuda/lib64/stubs"},
		LinkLibs:    []string{"cuda"},
		OutDir:      t.TempDir(),
		Options:     bindgen.DefaultOptions(),
	}
}

func TestBuildManifest(t *testing.T) {
	req := driverRequest(t)
	m := BuildManifest(req)

	require.Equal(t, "driver", m.Generator.PackageName)
	require.Equal(t, []string{"cuda-driver.h"}, m.Generator.Includes)
	require.Equal(t, []FlagGroup{
		{Name: "CFLAGS", Flags: []string{"-I/usr/local/cuda/include"}},
		{Name: "LDFLAGS", Flags: []string{"-L/usr/local/cuda/lib64", "-L/usr/local/cuda/lib64/stubs", "-lcuda"}},
	}, m.Generator.FlagGroups)
	require.Equal(t, []string{filepath.Dir(req.Header), "/usr/local/cuda/include"}, m.Parser.IncludePaths)
	require.Equal(t, []string{req.Header}, m.Parser.SourcesPaths)
	require.Equal(t, "eval", m.Translator.ConstRules["defines"])
	require.Equal(t, []Rule{
		{Action: "accept", From: "^cu"},
		{Action: "accept", From: "^CU"},
		{Action: "replace", From: "_$"},
	}, m.Translator.Rules["global"])

	req.Options.MacroFallback = false
	require.Equal(t, "expand", BuildManifest(req).Translator.ConstRules["defines"])
}

func TestManifestYAMLKeys(t *testing.T) {
	data, err := yaml.Marshal(BuildManifest(driverRequest(t)))
	require.NoError(t, err)

	var raw map[string]any
	require.NoError(t, yaml.Unmarshal(data, &raw))
	require.Contains(t, raw, "GENERATOR")
	require.Contains(t, raw, "PARSER")
	require.Contains(t, raw, "TRANSLATOR")
}

func TestGenerateRunsTool(t *testing.T) {
	ctx := withFakeTool(t, fakeCForGo)
	req := driverRequest(t)

	res, err := (&Driver{}).Generate(ctx, req)
	require.NoError(t, err)
	require.Equal(t, filepath.Join(req.OutDir, "driver"), res.Dir)
	require.Contains(t, res.Files, filepath.Join(res.Dir, "driver.go"))
	require.Contains(t, res.Files, filepath.Join(res.Dir, "cuda-driver.h"))

	data, err := os.ReadFile(filepath.Join(res.Dir, "manifest.yml"))
	require.NoError(t, err)
	var m Manifest
	require.NoError(t, yaml.Unmarshal(data, &m))
	require.Equal(t, "driver", m.Generator.PackageName)
}

func TestGenerateFailureIsFatal(t *testing.T) {
	ctx := withFakeTool(t, failingCForGo)

	_, err := (&Driver{}).Generate(ctx, driverRequest(t))
	require.ErrorIs(t, err, bindgen.ErrGeneration)
	require.Contains(t, err.Error(), "parse error")
}

func TestCompatibilityNeedsBinary(t *testing.T) {
	p := &Provider{}
	ctx := context.WithValue(context.Background(), types.EnvKey, []string{"PATH=" + t.TempDir()})
	require.ErrorIs(t, p.CheckCompatibility(ctx), driver.ErrIncompatible)

	require.NoError(t, p.CheckCompatibility(withFakeTool(t, fakeCForGo)))
}
