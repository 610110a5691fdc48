package exec

import (
	"context"
	"errors"
	"os/exec"

	"cudasys/pkg/driver"
)

// ErrBinaryNotFound is returned when an executable is not on the search path.
var ErrBinaryNotFound = errors.New("binary not found")

// Driver runs external programs.
type Driver interface {
	// Run prepares a command. The binary is resolved through Which when possible.
	Run(ctx context.Context, name string, args ...string) *exec.Cmd

	// Which resolves an executable name to a full path.
	Which(ctx context.Context, name string) (string, error)
}

// Get returns the active exec driver
func Get(ctx context.Context) (Driver, error) {
	return driver.Get[Driver](ctx)
}

// Run prepares a command with the active driver
func Run(ctx context.Context, name string, args ...string) (*exec.Cmd, error) {
	d, err := Get(ctx)
	if err != nil {
		return nil, err
	}
	return d.Run(ctx, name, args...), nil
}

// Which resolves name with the active driver
func Which(ctx context.Context, name string) (string, error) {
	d, err := Get(ctx)
	if err != nil {
		return "", err
	}
	return d.Which(ctx, name)
}
