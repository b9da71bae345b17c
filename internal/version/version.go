// Package version reports the ndacheck build.
package version

import (
	"fmt"
	"runtime"
	"runtime/debug"
)

// Version is stamped by release builds:
//
//	go build -ldflags "-X github.com/ndacheck/ndacheck/internal/version.Version=v1.2.0"
var Version = ""

// Swappable for testing
var readBuildInfo = debug.ReadBuildInfo

// Info describes the running binary
type Info struct {
	Version   string `json:"version"`
	Commit    string `json:"commit,omitempty"`
	Modified  bool   `json:"modified,omitempty"`
	GoVersion string `json:"goVersion"`
}

// BuildVersion returns the stamped version, then the module version, or "dev".
func BuildVersion() string {
	if Version != "" {
		return Version
	}
	info, ok := readBuildInfo()
	if !ok {
		return "dev"
	}
	if info.Main.Version == "" || info.Main.Version == "(devel)" {
		return "dev"
	}
	return info.Main.Version
}

// Get collects version and VCS details
func Get() Info {
	out := Info{
		Version:   BuildVersion(),
		GoVersion: runtime.Version(),
	}
	info, ok := readBuildInfo()
	if !ok {
		return out
	}
	for _, s := range info.Settings {
		switch s.Key {
		case "vcs.revision":
			out.Commit = s.Value
			if len(out.Commit) > 12 {
				out.Commit = out.Commit[:12]
			}
		case "vcs.modified":
			out.Modified = s.Value == "true"
		}
	}
	return out
}

func (i Info) String() string {
	s := "ndacheck " + i.Version
	if i.Commit != "" {
		s += fmt.Sprintf(" (%s", i.Commit)
		if i.Modified {
			s += ", modified"
		}
		s += ")"
	}
	return s + " " + i.GoVersion
}
