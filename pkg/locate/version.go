package locate

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"cudasys/pkg/semver"
)

// Version reports the toolkit version installed at root. It reads
// version.json (CUDA 11.1+), then version.txt, then falls back to the
// directory name of versioned installs such as /usr/local/cuda-12.4.
func Version(root string) semver.SemVer {
	if data, err := os.ReadFile(filepath.Join(root, "version.json")); err == nil {
		var manifest struct {
			Cuda struct {
				Version string `json:"version"`
			} `json:"cuda"`
		}
		if json.Unmarshal(data, &manifest) == nil && manifest.Cuda.Version != "" {
			return semver.Parse(manifest.Cuda.Version)
		}
	}

	if data, err := os.ReadFile(filepath.Join(root, "version.txt")); err == nil {
		// "CUDA Version 11.0.228"
		fields := strings.Fields(string(data))
		if len(fields) > 0 {
			if v := semver.Parse(fields[len(fields)-1]); !v.IsUnknown() {
				return v
			}
		}
	}

	if resolved, err := filepath.EvalSymlinks(root); err == nil {
		if v := semver.FromInstallDir(resolved); !v.IsUnknown() {
			return v
		}
	}
	return semver.FromInstallDir(root)
}
