package stamp

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestHasherOrderAndInputs(t *testing.T) {
	a := NewHasher()
	a.String("target", "driver")
	a.Strings("includes", []string{"/a", "/b"})

	b := NewHasher()
	b.String("target", "driver")
	b.Strings("includes", []string{"/b", "/a"})

	if a.Sum() == b.Sum() {
		t.Fatal("include order must change the fingerprint")
	}

	c := NewHasher()
	c.String("target", "driver")
	c.Strings("includes", []string{"/a", "/b"})
	if a.Sum() != c.Sum() {
		t.Fatal("identical inputs must give identical fingerprints")
	}
}

func TestHasherFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "cuda.h")

	missing := NewHasher()
	if err := missing.File(path); err != nil {
		t.Fatalf("missing file: %v", err)
	}

	if err := os.WriteFile(path, []byte("#define CUDA_VERSION 12040\n"), 0644); err != nil {
		t.Fatal(err)
	}
	v1 := NewHasher()
	if err := v1.File(path); err != nil {
		t.Fatal(err)
	}

	if err := os.WriteFile(path, []byte("#define CUDA_VERSION 12050\n"), 0644); err != nil {
		t.Fatal(err)
	}
	v2 := NewHasher()
	if err := v2.File(path); err != nil {
		t.Fatal(err)
	}

	if missing.Sum() == v1.Sum() || v1.Sum() == v2.Sum() {
		t.Fatal("file contents must change the fingerprint")
	}
}

func TestWriteLoadFresh(t *testing.T) {
	dir := t.TempDir()
	generated := filepath.Join(dir, "driver", "driver.go")
	if err := os.MkdirAll(filepath.Dir(generated), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(generated, []byte("package driver\n"), 0644); err != nil {
		t.Fatal(err)
	}

	path := filepath.Join(dir, FileName)
	f := &File{}
	f.Set("driver", Entry{Fingerprint: "abc", Generator: "bindgen_cgo", Files: []string{generated}})
	if err := Write(path, f); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if _, err := os.Stat(path + ".tmp"); !os.IsNotExist(err) {
		t.Fatal("temporary file left behind")
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got := loaded.Targets["driver"].Generator; got != "bindgen_cgo" {
		t.Fatalf("generator = %q", got)
	}
	if !loaded.Fresh("driver", "abc") {
		t.Fatal("expected fresh")
	}
	if loaded.Fresh("driver", "def") {
		t.Fatal("different fingerprint must be stale")
	}
	if loaded.Fresh("runtime", "abc") {
		t.Fatal("unknown target must be stale")
	}

	if err := os.Remove(generated); err != nil {
		t.Fatal(err)
	}
	if loaded.Fresh("driver", "abc") {
		t.Fatal("missing output must be stale")
	}
}

func TestLoadMissing(t *testing.T) {
	f, err := Load(filepath.Join(t.TempDir(), FileName))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(f.Targets) != 0 {
		t.Fatalf("expected empty stamp, got %v", f.Targets)
	}
}

func TestLoadRejectsEmptyFingerprint(t *testing.T) {
	path := filepath.Join(t.TempDir(), FileName)
	if err := os.WriteFile(path, []byte("[targets.driver]\ngenerator = \"bindgen_cgo\"\n"), 0644); err != nil {
		t.Fatal(err)
	}
	_, err := Load(path)
	if err == nil || !strings.Contains(err.Error(), "fingerprint is required") {
		t.Fatalf("expected fingerprint error, got %v", err)
	}
}

func TestWriteRejectsEmptyFingerprint(t *testing.T) {
	f := &File{}
	f.Set("driver", Entry{Generator: "bindgen_cgo"})
	if err := Write(filepath.Join(t.TempDir(), FileName), f); err == nil {
		t.Fatal("expected error")
	}
}
