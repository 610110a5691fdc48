package native

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"

	"cudasys/pkg/driver"
	execdriver "cudasys/pkg/driver/exec"
	"cudasys/pkg/env"
	"cudasys/pkg/types"
)

type Provider struct{}

func (p *Provider) ID() string         { return "exec_native" }
func (p *Provider) Name() string       { return "Native Exec" }
func (p *Provider) DefaultWeight() int { return driver.DefaultWeight }

func (p *Provider) CheckCompatibility(ctx context.Context) error {
	return nil
}

func (p *Provider) New(ctx context.Context) (execdriver.Driver, error) {
	return &Driver{}, nil
}

type Driver struct{}

func (d *Driver) Run(ctx context.Context, name string, args ...string) *exec.Cmd {
	fullPath, err := d.Which(ctx, name)
	if err != nil {
		fullPath = name
	}
	cmd := exec.CommandContext(ctx, fullPath, args...)
	if environ, ok := ctx.Value(types.EnvKey).([]string); ok {
		cmd.Env = environ
	}
	slog.Debug("exec", "command", fullPath, "args", args)
	return cmd
}

func (d *Driver) Which(ctx context.Context, name string) (string, error) {
	if filepath.IsAbs(name) {
		if info, err := os.Stat(name); err == nil && !info.IsDir() {
			return name, nil
		}
		return "", fmt.Errorf("%w: %s", execdriver.ErrBinaryNotFound, name)
	}

	path, _ := env.Lookup(ctx, "PATH")

	for _, dir := range filepath.SplitList(path) {
		if dir == "" {
			continue
		}
		fullPath := filepath.Join(dir, name)
		if info, err := os.Stat(fullPath); err == nil && !info.IsDir() && info.Mode()&0111 != 0 {
			slog.Debug("which", "binary", name, "result", fullPath)
			return fullPath, nil
		}
	}
	slog.Debug("which", "binary", name, "result", execdriver.ErrBinaryNotFound)
	return "", fmt.Errorf("%w: %s", execdriver.ErrBinaryNotFound, name)
}

func init() {
	driver.Register[execdriver.Driver](&Provider{})
}
