package config

import (
	"context"
	_ "embed"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"cudasys/pkg/constants"
	"cudasys/pkg/driver"
	"cudasys/pkg/driver/bindgen"
	"cudasys/pkg/env"
	"cudasys/pkg/target"
	"cudasys/pkg/types"

	"github.com/BurntSushi/toml"
	"github.com/xeipuuv/gojsonschema"
)

//go:embed schema.json
var schema []byte

// Config is the optional cudasys.toml.
type Config struct {
	OutDir        string          `toml:"out_dir"`
	Generator     string          `toml:"generator"`
	PackagePrefix string          `toml:"package_prefix"`
	Targets       []string        `toml:"targets"`
	Weights       map[string]int  `toml:"weights"`
	Options       bindgen.Options `toml:"options"`

	// Path is the file the config was read from, empty for built-in defaults.
	Path string `toml:"-"`
}

// Default returns the configuration used when no file exists.
func Default() *Config {
	return &Config{
		Weights: map[string]int{},
		Options: bindgen.DefaultOptions(),
	}
}

// Load reads the config at path. An empty path falls back to $CUDASYS_CONFIG
// and then to ./cudasys.toml; only an explicitly named file must exist.
func Load(path string) (*Config, error) {
	explicit := true
	if path == "" {
		path = os.Getenv(constants.ConfigPathEnv)
	}
	if path == "" {
		path = constants.DefaultConfigFile
		explicit = false
	}
	path = env.ExpandPath(path)

	if _, err := os.Stat(path); os.IsNotExist(err) {
		if explicit {
			return nil, fmt.Errorf("config file %s does not exist", path)
		}
		slog.Debug("no config file, using defaults", "path", path)
		return Default(), nil
	}
	return LoadFile(path)
}

// LoadFile reads and validates the config at path.
func LoadFile(path string) (*Config, error) {
	var raw map[string]any
	if _, err := toml.DecodeFile(path, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	if err := Validate(raw); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	cfg := Default()
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	if cfg.Weights == nil {
		cfg.Weights = map[string]int{}
	}
	cfg.Path = path
	slog.Debug("loaded config", "path", path)
	return cfg, nil
}

// Validate checks a decoded config document against the embedded schema.
func Validate(doc map[string]any) error {
	if doc == nil {
		doc = map[string]any{}
	}
	result, err := gojsonschema.Validate(
		gojsonschema.NewBytesLoader(schema),
		gojsonschema.NewGoLoader(doc),
	)
	if err != nil {
		return fmt.Errorf("failed to validate config: %w", err)
	}
	if !result.Valid() {
		var errs strings.Builder
		for _, desc := range result.Errors() {
			fmt.Fprintf(&errs, "- %s\n", desc)
		}
		return fmt.Errorf("config validation failed:\n%s", errs.String())
	}
	return nil
}

// Apply pushes driver weight overrides into the driver registry.
func (c *Config) Apply() {
	for id, w := range c.Weights {
		driver.SetWeight(id, w)
	}
}

// ResolveOutDir returns the output directory: the configured one, then
// $CUDASYS_OUT_DIR, then ./sys.
func (c *Config) ResolveOutDir() string {
	if c.OutDir != "" {
		return env.ExpandPath(c.OutDir)
	}
	if dir := os.Getenv(constants.OutDirEnv); dir != "" {
		return env.ExpandPath(dir)
	}
	return constants.DefaultOutDir
}

// PackageName returns the Go package name for t.
func (c *Config) PackageName(t target.Target) string {
	return c.PackagePrefix + t.Package
}

// WithContext stores cfg in ctx.
func WithContext(ctx context.Context, cfg *Config) context.Context {
	return context.WithValue(ctx, types.ConfigKey, cfg)
}

// FromContext returns the config stored in ctx, or the defaults.
func FromContext(ctx context.Context) *Config {
	if cfg, ok := ctx.Value(types.ConfigKey).(*Config); ok && cfg != nil {
		return cfg
	}
	return Default()
}
