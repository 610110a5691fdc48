// Package doctor inspects a CUDA installation and reports what the build
// would find, without failing on anything.
package doctor

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"

	"cudasys/pkg/constants"
	execdriver "cudasys/pkg/driver/exec"
	"cudasys/pkg/locate"

	"github.com/owenrumney/go-sarif/v2/sarif"
)

const toolName = "cudasys-doctor"

// Rule IDs.
const (
	RuleRoot              = "root"
	RuleRootMissing       = "root-missing"
	RuleVersion           = "toolkit-version"
	RuleLibDir            = "library-dir"
	RuleInclude           = "include-dir"
	RuleLibDirsMissing    = "library-dirs-missing"
	RuleStubsMissing      = "stubs-missing"
	RuleDriverLibMissing  = "libcuda-missing"
	RuleSegmentMissing    = "library-path-segment-missing"
	RuleSanitizerMissing  = "sanitizer-missing"
	RuleGeneratorFallback = "generator-fallback"
)

const (
	levelNote    = "note"
	levelWarning = "warning"
	levelError   = "error"
)

type Doctor struct {
	Locator *locate.Locator
	// Which resolves executables. Defaults to the exec driver.
	Which func(ctx context.Context, name string) (string, error)
}

func New() *Doctor {
	return &Doctor{Locator: locate.New(), Which: execdriver.Which}
}

// Run inspects the installation and returns the findings.
func (d *Doctor) Run(ctx context.Context) *sarif.Run {
	run := &sarif.Run{
		Tool: sarif.Tool{
			Driver: &sarif.ToolComponent{Name: toolName},
		},
		Results: []*sarif.Result{},
	}
	add := func(rule, level, path, msg string) {
		run.Results = append(run.Results, result(rule, level, path, msg))
	}

	var includes []string
	l := *d.Locator
	l.OnInclude = func(dir string) { includes = append(includes, dir) }

	root, err := l.Root(ctx)
	if err != nil {
		add(RuleRootMissing, levelError, "", err.Error())
	} else {
		add(RuleRoot, levelNote, root, "toolkit root")
		if v := locate.Version(root); !v.IsUnknown() {
			add(RuleVersion, levelNote, root, "toolkit version "+v.Normalized())
		}
		sanitizer := filepath.Join(root, "compute-sanitizer", "include", "sanitizer.h")
		if _, err := os.Stat(sanitizer); err != nil {
			add(RuleSanitizerMissing, levelWarning, sanitizer,
				"compute-sanitizer headers not found, the sanitizer target will not compile")
		}
	}

	for _, c := range l.Candidates() {
		if !c.Explicit || c.Path == "" {
			continue
		}
		if _, err := os.Stat(c.Path); err != nil {
			add(RuleSegmentMissing, levelWarning, c.Path,
				fmt.Sprintf("%s entry does not exist and contributes no library directory", l.LibraryEnv))
		}
	}

	libDirs, err := l.LibraryDirs(ctx)
	if err != nil {
		add(RuleLibDirsMissing, levelError, "", err.Error())
	}
	driverLib := false
	for _, dir := range libDirs {
		if filepath.Base(dir) == "stubs" {
			if _, err := os.Stat(dir); err != nil {
				add(RuleStubsMissing, levelWarning, dir, "stubs directory does not exist")
				continue
			}
		}
		add(RuleLibDir, levelNote, dir, "library search directory")
		if hasDriverLibrary(dir) {
			driverLib = true
		}
	}
	for _, dir := range includes {
		add(RuleInclude, levelNote, dir, "include directory from "+constants.CudaTargetsLayout)
	}
	if len(libDirs) > 0 && !driverLib {
		add(RuleDriverLibMissing, levelWarning, "",
			"no lib"+constants.CudaDriverLibrary+".so in any library directory, linking will fail")
	}

	which := d.Which
	if which == nil {
		which = execdriver.Which
	}
	if _, err := which(ctx, "c-for-go"); err != nil {
		add(RuleGeneratorFallback, levelNote, "",
			"c-for-go not found, bindings will be generated as cgo preamble packages")
	}
	return run
}

// Report wraps run into a SARIF 2.1.0 report.
func Report(run *sarif.Run) (*sarif.Report, error) {
	report, err := sarif.New(sarif.Version210)
	if err != nil {
		return nil, err
	}
	report.AddRun(run)
	return report, nil
}

// Errors counts the error level findings of run.
func Errors(run *sarif.Run) int {
	n := 0
	for _, res := range run.Results {
		if res.Level != nil && *res.Level == levelError {
			n++
		}
	}
	return n
}

// Print writes report in the given format (table, sarif).
func Print(w io.Writer, report *sarif.Report, format string) error {
	switch format {
	case "sarif":
		encoder := json.NewEncoder(w)
		encoder.SetIndent("", "  ")
		return encoder.Encode(report)
	case "table":
		return printTable(w, report)
	default:
		return fmt.Errorf("unknown format: %s (supported: table, sarif)", format)
	}
}

func printTable(w io.Writer, report *sarif.Report) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "LEVEL\tRULE\tPATH\tMESSAGE")

	for _, run := range report.Runs {
		for _, res := range run.Results {
			level := "unknown"
			if res.Level != nil {
				level = *res.Level
			}
			rule := ""
			if res.RuleID != nil {
				rule = *res.RuleID
			}
			msg := ""
			if res.Message.Text != nil {
				msg = *res.Message.Text
			}
			path := "-"
			if len(res.Locations) > 0 {
				loc := res.Locations[0].PhysicalLocation
				if loc != nil && loc.ArtifactLocation != nil && loc.ArtifactLocation.URI != nil {
					path = *loc.ArtifactLocation.URI
				}
			}
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", level, rule, path, msg)
		}
	}
	return tw.Flush()
}

func result(rule, level, path, msg string) *sarif.Result {
	res := &sarif.Result{
		RuleID:  &rule,
		Level:   &level,
		Message: sarif.Message{Text: &msg},
	}
	if path != "" {
		res.Locations = []*sarif.Location{
			{
				PhysicalLocation: &sarif.PhysicalLocation{
					ArtifactLocation: &sarif.ArtifactLocation{URI: &path},
				},
			},
		}
	}
	return res
}

func hasDriverLibrary(dir string) bool {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return false
	}
	prefix := "lib" + constants.CudaDriverLibrary + ".so"
	for _, e := range entries {
		if strings.HasPrefix(e.Name(), prefix) {
			return true
		}
	}
	return false
}
