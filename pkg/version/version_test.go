package version

import (
	"strconv"
	"strings"
	"testing"
)

func TestVersion_IsSemver(t *testing.T) {
	if !strings.HasPrefix(Version, "v") {
		t.Fatalf("Version %q must start with v", Version)
	}
	core, _, _ := strings.Cut(strings.TrimPrefix(Version, "v"), "-")
	parts := strings.Split(core, ".")
	if len(parts) != 3 {
		t.Fatalf("Version %q must have major.minor.patch", Version)
	}
	for _, p := range parts {
		if _, err := strconv.Atoi(p); err != nil {
			t.Errorf("Version %q: %q is not a number", Version, p)
		}
	}
}
