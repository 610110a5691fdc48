// Package stamp records what each generated target was built from, so an
// unchanged target is not generated twice.
package stamp

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"hash"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
)

// FileName is the stamp file written into the output directory.
const FileName = "cudasys.sum.toml"

// Hasher accumulates build inputs into a fingerprint. Inputs are order
// sensitive.
type Hasher struct {
	h hash.Hash
}

func NewHasher() *Hasher {
	return &Hasher{h: sha256.New()}
}

// String mixes a named value into the fingerprint.
func (h *Hasher) String(key, value string) {
	fmt.Fprintf(h.h, "%s=%s\x00", key, value)
}

// Strings mixes an ordered list into the fingerprint.
func (h *Hasher) Strings(key string, values []string) {
	h.String(key, strconv.Itoa(len(values)))
	for i, v := range values {
		h.String(key+"["+strconv.Itoa(i)+"]", v)
	}
}

// File mixes the contents of path into the fingerprint. A missing file is
// an input too.
func (h *Hasher) File(path string) error {
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		h.String("file:"+path, "<missing>")
		return nil
	}
	if err != nil {
		return err
	}
	defer f.Close()

	sum := sha256.New()
	if _, err := io.Copy(sum, f); err != nil {
		return fmt.Errorf("failed to hash %s: %w", path, err)
	}
	h.String("file:"+path, hex.EncodeToString(sum.Sum(nil)))
	return nil
}

// Sum returns the hex fingerprint.
func (h *Hasher) Sum() string {
	return hex.EncodeToString(h.h.Sum(nil))
}

// Entry is the stamp of one target.
type Entry struct {
	Fingerprint string   `toml:"fingerprint"`
	Generator   string   `toml:"generator"`
	Files       []string `toml:"files"`
}

type File struct {
	Targets map[string]Entry `toml:"targets"`
}

// Load reads the stamp file at path. A missing file is an empty stamp.
func Load(path string) (*File, error) {
	out := &File{Targets: map[string]Entry{}}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return out, nil
	}
	if _, err := toml.DecodeFile(path, out); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	if out.Targets == nil {
		out.Targets = map[string]Entry{}
	}
	for name, entry := range out.Targets {
		entry.Fingerprint = strings.TrimSpace(entry.Fingerprint)
		if entry.Fingerprint == "" {
			return nil, fmt.Errorf("invalid stamp for target %q: fingerprint is required", name)
		}
		out.Targets[name] = entry
	}
	return out, nil
}

// Fresh reports whether target name was generated from fingerprint and all
// of its files are still present.
func (f *File) Fresh(name, fingerprint string) bool {
	entry, ok := f.Targets[name]
	if !ok || entry.Fingerprint != fingerprint || len(entry.Files) == 0 {
		return false
	}
	for _, file := range entry.Files {
		if _, err := os.Stat(file); err != nil {
			return false
		}
	}
	return true
}

// Set records the stamp of target name.
func (f *File) Set(name string, entry Entry) {
	if f.Targets == nil {
		f.Targets = map[string]Entry{}
	}
	f.Targets[name] = entry
}

// Write stores the stamp file at path, replacing it atomically.
func Write(path string, f *File) error {
	if f == nil {
		f = &File{}
	}
	if f.Targets == nil {
		f.Targets = map[string]Entry{}
	}

	for name, entry := range f.Targets {
		if strings.TrimSpace(entry.Fingerprint) == "" {
			return fmt.Errorf("invalid stamp for target %q: fingerprint is required", name)
		}
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	tmpPath := path + ".tmp"
	out, err := os.Create(tmpPath)
	if err != nil {
		return err
	}
	enc := toml.NewEncoder(out)
	if err := enc.Encode(f); err != nil {
		_ = out.Close()
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to encode %s: %w", path, err)
	}
	if err := out.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return err
	}
	return os.Rename(tmpPath, path)
}
