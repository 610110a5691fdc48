package env

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"cudasys/pkg/types"
)

// ExpandPath expands the tilde (~) to the user's home directory
// and expands environment variables (e.g. $HOME, ${VAR}) in the path.
func ExpandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		home, _ := os.UserHomeDir()
		return filepath.Join(home, path[2:])
	}
	return os.ExpandEnv(path)
}

// Lookup reads name from the environment carried by ctx, falling back to
// the process environment when ctx carries none.
func Lookup(ctx context.Context, name string) (string, bool) {
	environ, ok := ctx.Value(types.EnvKey).([]string)
	if !ok {
		return os.LookupEnv(name)
	}
	prefix := name + "="
	for i := len(environ) - 1; i >= 0; i-- {
		if value, found := strings.CutPrefix(environ[i], prefix); found {
			return value, true
		}
	}
	return "", false
}

// LookupFunc binds Lookup to ctx, for APIs that take an os.LookupEnv.
func LookupFunc(ctx context.Context) func(string) (string, bool) {
	return func(name string) (string, bool) {
		return Lookup(ctx, name)
	}
}

// WithEnv returns a context whose environment is environ.
func WithEnv(ctx context.Context, environ []string) context.Context {
	return context.WithValue(ctx, types.EnvKey, environ)
}
