package version

import (
	"runtime/debug"
	"strings"
	"testing"
)

func stubBuildInfo(t *testing.T, info *debug.BuildInfo, ok bool) {
	t.Helper()
	original := readBuildInfo
	t.Cleanup(func() { readBuildInfo = original })
	readBuildInfo = func() (*debug.BuildInfo, bool) { return info, ok }
}

func TestBuildVersion(t *testing.T) {
	tests := []struct {
		name string
		info *debug.BuildInfo
		ok   bool
		want string
	}{
		{"release tag", &debug.BuildInfo{Main: debug.Module{Version: "v0.3.1"}}, true, "v0.3.1"},
		{"unavailable", nil, false, "dev"},
		{"devel", &debug.BuildInfo{Main: debug.Module{Version: "(devel)"}}, true, "dev"},
		{"empty", &debug.BuildInfo{Main: debug.Module{Version: ""}}, true, "dev"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stubBuildInfo(t, tt.info, tt.ok)
			if got := BuildVersion(); got != tt.want {
				t.Errorf("BuildVersion() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestBuildVersion_StampedWins(t *testing.T) {
	stubBuildInfo(t, &debug.BuildInfo{Main: debug.Module{Version: "v0.1.0"}}, true)
	original := Version
	t.Cleanup(func() { Version = original })
	Version = "v9.9.9"

	if got := BuildVersion(); got != "v9.9.9" {
		t.Errorf("BuildVersion() = %q, want stamped version", got)
	}
}

func TestGet_VCSSettings(t *testing.T) {
	stubBuildInfo(t, &debug.BuildInfo{
		Main: debug.Module{Version: "v1.0.0"},
		Settings: []debug.BuildSetting{
			{Key: "vcs.revision", Value: "0123456789abcdef0123"},
			{Key: "vcs.modified", Value: "true"},
		},
	}, true)

	info := Get()
	if info.Commit != "0123456789ab" {
		t.Errorf("Commit = %q, want 12 chars", info.Commit)
	}
	if !info.Modified {
		t.Error("Modified = false, want true")
	}
	s := info.String()
	if !strings.HasPrefix(s, "ndacheck v1.0.0 (0123456789ab, modified)") {
		t.Errorf("String() = %q", s)
	}
}

func TestGet_NoBuildInfo(t *testing.T) {
	stubBuildInfo(t, nil, false)
	info := Get()
	if info.Version != "dev" || info.Commit != "" {
		t.Errorf("Get() = %+v", info)
	}
}
