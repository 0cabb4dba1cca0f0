package buildinfo

import (
	"runtime/debug"
	"strings"
	"testing"
)

func TestResolved(t *testing.T) {
	origVersion, origRead := Version, readBuildInfo
	t.Cleanup(func() { Version, readBuildInfo = origVersion, origRead })

	tests := []struct {
		name    string
		version string
		module  string
		want    string
	}{
		{"ldflags win", "v1.2.3", "v0.9.0", "v1.2.3"},
		{"module fallback", "dev", "v0.9.0", "v0.9.0"},
		{"devel module", "dev", "(devel)", "dev"},
		{"no module version", "dev", "", "dev"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			Version = tt.version
			readBuildInfo = func() (*debug.BuildInfo, bool) {
				return &debug.BuildInfo{Main: debug.Module{Version: tt.module}}, true
			}
			if got := Resolved(); got != tt.want {
				t.Errorf("Resolved() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestTemplate(t *testing.T) {
	tmpl := Template()
	if !strings.HasPrefix(tmpl, "{{.Name}} version ") {
		t.Errorf("Template() = %q, want cobra name placeholder", tmpl)
	}
	if !strings.Contains(String(), "commit: ") {
		t.Errorf("String() = %q, want commit line", String())
	}
}
