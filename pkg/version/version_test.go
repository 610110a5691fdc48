package version

import (
	"testing"

	"cudasys/pkg/semver"
)

func TestVersionIsParsable(t *testing.T) {
	v := Version()
	if v == "" {
		t.Fatal("empty version")
	}
	if semver.Parse(v).IsUnknown() {
		t.Fatalf("version %q has no numeric components", v)
	}
}
