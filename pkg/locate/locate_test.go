package locate

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func touch(t *testing.T, path string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte("/* test */\n"), 0644))
}

func mkdir(t *testing.T, path string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(path, 0755))
}

func mkRoot(t *testing.T, path string) string {
	t.Helper()
	touch(t, filepath.Join(path, "include", "cuda.h"))
	return path
}

func envOf(vars map[string]string) func(string) (string, bool) {
	return func(name string) (string, bool) {
		v, ok := vars[name]
		return v, ok
	}
}

// testLocator mirrors New() with every path rebased under base.
func testLocator(base string, vars map[string]string) *Locator {
	return &Locator{
		LookupEnv:    envOf(vars),
		RootEnv:      []string{"CUDA_PATH", "CUDA_ROOT", "CUDA_TOOLKIT_ROOT_DIR"},
		RootDefaults: []string{filepath.Join(base, "usr/lib/cuda"), filepath.Join(base, "usr/local/cuda"), filepath.Join(base, "opt/cuda")},
		LibraryEnv:   "CUDA_LIBRARY_PATH",
		LibDefaults:  []string{filepath.Join(base, "opt/cuda"), filepath.Join(base, "usr/local/cuda")},
		LibGlob:      filepath.Join(base, "usr/local/cuda-*"),
		LibTrailing:  []string{filepath.Join(base, "usr/lib/cuda")},
	}
}

func TestRootEnvPriority(t *testing.T) {
	base := t.TempDir()
	a := mkRoot(t, filepath.Join(base, "a"))
	b := mkRoot(t, filepath.Join(base, "b"))
	c := mkRoot(t, filepath.Join(base, "c"))
	invalid := filepath.Join(base, "invalid")
	mkdir(t, invalid)
	mkRoot(t, filepath.Join(base, "usr/local/cuda"))

	tests := []struct {
		name string
		vars map[string]string
		want string
	}{
		{"all set picks CUDA_PATH", map[string]string{"CUDA_PATH": a, "CUDA_ROOT": b, "CUDA_TOOLKIT_ROOT_DIR": c}, a},
		{"invalid CUDA_PATH falls to CUDA_ROOT", map[string]string{"CUDA_PATH": invalid, "CUDA_ROOT": b, "CUDA_TOOLKIT_ROOT_DIR": c}, b},
		{"only toolkit root dir", map[string]string{"CUDA_TOOLKIT_ROOT_DIR": c}, c},
		{"invalid env falls to defaults", map[string]string{"CUDA_PATH": invalid}, filepath.Join(base, "usr/local/cuda")},
		{"nothing set uses defaults", nil, filepath.Join(base, "usr/local/cuda")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := testLocator(base, tt.vars).Root(context.Background())
			require.NoError(t, err)
			require.Equal(t, tt.want, got)
		})
	}
}

func TestRootDefaultOrder(t *testing.T) {
	base := t.TempDir()
	mkRoot(t, filepath.Join(base, "opt/cuda"))
	mkRoot(t, filepath.Join(base, "usr/lib/cuda"))

	got, err := testLocator(base, nil).Root(context.Background())
	require.NoError(t, err)
	require.Equal(t, filepath.Join(base, "usr/lib/cuda"), got)
}

func TestRootRequiresRegularFile(t *testing.T) {
	base := t.TempDir()
	mkdir(t, filepath.Join(base, "usr/local/cuda/include/cuda.h"))

	_, err := testLocator(base, nil).Root(context.Background())
	require.True(t, errors.Is(err, ErrNotFound), "got %v", err)
}

func TestEnvOverridesValidDefault(t *testing.T) {
	base := t.TempDir()
	myinstall := mkRoot(t, filepath.Join(base, "opt/myinstall"))
	mkRoot(t, filepath.Join(base, "usr/local/cuda"))

	got, err := testLocator(base, map[string]string{"CUDA_PATH": myinstall}).Root(context.Background())
	require.NoError(t, err)
	require.Equal(t, myinstall, got)
}

func TestNothingFound(t *testing.T) {
	base := t.TempDir()
	mkdir(t, filepath.Join(base, "usr/local/cuda-12.4"))

	l := testLocator(base, nil)
	_, err := l.Root(context.Background())
	require.ErrorIs(t, err, ErrNotFound)

	_, err = l.LibraryDirs(context.Background())
	require.ErrorIs(t, err, ErrNotFound)
}

func TestRootOnlyContributesNoLibraries(t *testing.T) {
	base := t.TempDir()
	root := mkRoot(t, filepath.Join(base, "usr/local/cuda"))

	l := testLocator(base, nil)
	got, err := l.Root(context.Background())
	require.NoError(t, err)
	require.Equal(t, root, got)

	_, err = l.LibraryDirs(context.Background())
	require.ErrorIs(t, err, ErrNotFound)
}

func TestLib64AddsUncheckedStubs(t *testing.T) {
	base := t.TempDir()
	mkdir(t, filepath.Join(base, "opt/cuda/lib64"))

	dirs, err := testLocator(base, nil).LibraryDirs(context.Background())
	require.NoError(t, err)
	require.Equal(t, []string{
		filepath.Join(base, "opt/cuda/lib64"),
		filepath.Join(base, "opt/cuda/lib64/stubs"),
	}, dirs)
	_, statErr := os.Stat(dirs[1])
	require.True(t, os.IsNotExist(statErr))
}

func TestLib64MustBeDirectory(t *testing.T) {
	base := t.TempDir()
	touch(t, filepath.Join(base, "opt/cuda/lib64"))

	_, err := testLocator(base, nil).LibraryDirs(context.Background())
	require.ErrorIs(t, err, ErrNotFound)
}

func TestTargetsLayoutReportsInclude(t *testing.T) {
	base := t.TempDir()
	targets := filepath.Join(base, "usr/lib/cuda/targets/x86_64-linux")
	touch(t, filepath.Join(targets, "include/cuda.h"))

	var includes []string
	l := testLocator(base, nil)
	l.OnInclude = func(dir string) { includes = append(includes, dir) }

	dirs, err := l.LibraryDirs(context.Background())
	require.NoError(t, err)
	require.Equal(t, []string{
		filepath.Join(targets, "lib"),
		filepath.Join(targets, "lib/stubs"),
	}, dirs)
	require.Equal(t, []string{filepath.Join(targets, "include")}, includes)
}

func TestBothLayoutsAccumulate(t *testing.T) {
	base := t.TempDir()
	root := filepath.Join(base, "usr/local/cuda")
	mkdir(t, filepath.Join(root, "lib64"))
	touch(t, filepath.Join(root, "targets/x86_64-linux/include/cuda.h"))

	dirs, err := testLocator(base, nil).LibraryDirs(context.Background())
	require.NoError(t, err)
	require.Equal(t, []string{
		filepath.Join(root, "lib64"),
		filepath.Join(root, "lib64/stubs"),
		filepath.Join(root, "targets/x86_64-linux/lib"),
		filepath.Join(root, "targets/x86_64-linux/lib/stubs"),
	}, dirs)
}

func TestLibraryEnvSegmentsVerbatim(t *testing.T) {
	base := t.TempDir()
	explicit := filepath.Join(base, "explicit")
	mkdir(t, filepath.Join(explicit, "lib64"))
	missing := filepath.Join(base, "does/not/exist")
	mkdir(t, filepath.Join(base, "opt/cuda/lib64"))

	l := testLocator(base, map[string]string{"CUDA_LIBRARY_PATH": explicit + ":" + missing})

	var paths []string
	for _, c := range l.Candidates() {
		paths = append(paths, c.Path)
	}
	require.Equal(t, []string{
		explicit,
		missing,
		filepath.Join(base, "opt/cuda"),
		filepath.Join(base, "usr/local/cuda"),
		filepath.Join(base, "usr/lib/cuda"),
	}, paths)

	dirs, err := l.LibraryDirs(context.Background())
	require.NoError(t, err)
	require.Equal(t, []string{
		filepath.Join(explicit, "lib64"),
		filepath.Join(explicit, "lib64/stubs"),
		filepath.Join(base, "opt/cuda/lib64"),
		filepath.Join(base, "opt/cuda/lib64/stubs"),
	}, dirs)
}

func TestLibraryEnvWithoutInstallIsNotFound(t *testing.T) {
	base := t.TempDir()
	l := testLocator(base, map[string]string{"CUDA_LIBRARY_PATH": "/nowhere/a:/nowhere/b"})

	_, err := l.LibraryDirs(context.Background())
	require.ErrorIs(t, err, ErrNotFound)
}

func TestLibraryEnvSegmentOnlyContributesLayouts(t *testing.T) {
	base := t.TempDir()
	x := filepath.Join(base, "x")
	mkdir(t, filepath.Join(x, "lib64"))

	dirs, err := testLocator(base, map[string]string{"CUDA_LIBRARY_PATH": x}).LibraryDirs(context.Background())
	require.NoError(t, err)
	require.Equal(t, []string{filepath.Join(x, "lib64"), filepath.Join(x, "lib64/stubs")}, dirs)
}

func TestVersionedGlobProbedLikeDefaults(t *testing.T) {
	base := t.TempDir()
	mkdir(t, filepath.Join(base, "usr/local/cuda-11.8/lib64"))
	touch(t, filepath.Join(base, "usr/local/cuda-12.4/targets/x86_64-linux/include/cuda.h"))
	mkdir(t, filepath.Join(base, "usr/lib/cuda/lib64"))

	dirs, err := testLocator(base, nil).LibraryDirs(context.Background())
	require.NoError(t, err)
	require.Equal(t, []string{
		filepath.Join(base, "usr/local/cuda-11.8/lib64"),
		filepath.Join(base, "usr/local/cuda-11.8/lib64/stubs"),
		filepath.Join(base, "usr/local/cuda-12.4/targets/x86_64-linux/lib"),
		filepath.Join(base, "usr/local/cuda-12.4/targets/x86_64-linux/lib/stubs"),
		filepath.Join(base, "usr/lib/cuda/lib64"),
		filepath.Join(base, "usr/lib/cuda/lib64/stubs"),
	}, dirs)
}

func TestDuplicatesKept(t *testing.T) {
	base := t.TempDir()
	mkdir(t, filepath.Join(base, "opt/cuda/lib64"))
	l := testLocator(base, nil)
	l.LibDefaults = append(l.LibDefaults, filepath.Join(base, "opt/cuda"))

	dirs, err := l.LibraryDirs(context.Background())
	require.NoError(t, err)
	require.Len(t, dirs, 4)
	require.Equal(t, dirs[:2], dirs[2:])
}

func TestConventionalInstall(t *testing.T) {
	base := t.TempDir()
	root := mkRoot(t, filepath.Join(base, "usr/local/cuda"))
	mkdir(t, filepath.Join(root, "lib64"))

	l := testLocator(base, nil)
	got, err := l.Root(context.Background())
	require.NoError(t, err)
	require.Equal(t, root, got)

	dirs, err := l.LibraryDirs(context.Background())
	require.NoError(t, err)
	require.Contains(t, dirs, filepath.Join(root, "lib64"))
	require.Contains(t, dirs, filepath.Join(root, "lib64/stubs"))
}

func TestRootsListsEveryInstall(t *testing.T) {
	base := t.TempDir()
	envRoot := mkRoot(t, filepath.Join(base, "custom"))
	mkRoot(t, filepath.Join(base, "usr/local/cuda"))
	mkRoot(t, filepath.Join(base, "usr/local/cuda-12.4"))
	mkdir(t, filepath.Join(base, "usr/local/cuda-11.0"))

	l := testLocator(base, map[string]string{"CUDA_PATH": envRoot, "CUDA_ROOT": envRoot + "/"})
	l.LibGlob = filepath.Join(base, "usr/local/cuda*")

	roots := l.Roots(context.Background())
	require.Equal(t, []string{
		envRoot,
		filepath.Join(base, "usr/local/cuda"),
		filepath.Join(base, "usr/local/cuda-12.4"),
	}, roots)
}

func TestCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := New().Root(ctx)
	require.ErrorIs(t, err, context.Canceled)
	_, err = New().LibraryDirs(ctx)
	require.ErrorIs(t, err, context.Canceled)
}

func TestNewUsesConventionalLocations(t *testing.T) {
	l := New()
	require.Equal(t, []string{"CUDA_PATH", "CUDA_ROOT", "CUDA_TOOLKIT_ROOT_DIR"}, l.RootEnv)
	require.Equal(t, []string{"/usr/lib/cuda", "/usr/local/cuda", "/opt/cuda"}, l.RootDefaults)
	require.Equal(t, "CUDA_LIBRARY_PATH", l.LibraryEnv)
	require.True(t, strings.HasSuffix(l.LibGlob, "cuda-*"))
}
