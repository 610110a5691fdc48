package constants

// CudaRootEnvVars are the environment variables naming a toolkit root.
// Checked in order, first one that is set and valid wins.
var CudaRootEnvVars = []string{
	"CUDA_PATH",
	"CUDA_ROOT",
	"CUDA_TOOLKIT_ROOT_DIR",
}

// CudaLibraryPathEnv holds a colon separated list of explicit library
// directories. Its entries are trusted and come before every default.
const CudaLibraryPathEnv = "CUDA_LIBRARY_PATH"

// CudaTrackedEnvVars are declared as build inputs, in declaration order.
var CudaTrackedEnvVars = []string{
	CudaLibraryPathEnv,
	"CUDA_ROOT",
	"CUDA_PATH",
	"CUDA_TOOLKIT_ROOT_DIR",
}

// CudaRootCandidates is the list of default toolkit roots.
// Paths are checked in order, first match wins.
var CudaRootCandidates = []string{
	"/usr/lib/cuda",   // Debian/Ubuntu nvidia-cuda-toolkit
	"/usr/local/cuda", // NVIDIA installer
	"/opt/cuda",       // Arch
}

// CudaLibCandidates are probed for library directories before the
// versioned glob. Every candidate contributes, nothing short-circuits.
var CudaLibCandidates = []string{
	"/opt/cuda",
	"/usr/local/cuda",
}

// CudaVersionedGlob matches side-by-side installs like /usr/local/cuda-12.4.
const CudaVersionedGlob = "/usr/local/cuda-*"

// CudaLibTrailingCandidates are probed after the versioned glob matches.
var CudaLibTrailingCandidates = []string{
	"/usr/lib/cuda",
}

// CudaTargetsLayout is the cross-compilation layout some distributions
// ship instead of a top-level lib64.
const CudaTargetsLayout = "targets/x86_64-linux"

// CudaMarkerHeader is the file that identifies a toolkit include directory.
const CudaMarkerHeader = "cuda.h"

// CudaDriverLibrary is the dynamic library every binding links against.
const CudaDriverLibrary = "cuda"

// Tool environment.
const (
	ConfigPathEnv = "CUDASYS_CONFIG"
	OutDirEnv     = "CUDASYS_OUT_DIR"
)

// DefaultConfigFile is looked up in the working directory when no path is given.
const DefaultConfigFile = "cudasys.toml"

// DefaultOutDir is where generated bindings go when nothing else is configured.
const DefaultOutDir = "sys"
