// Package version reports build information. The variables are set at link time with
// -ldflags "-X github.com/mattsolo1/grove-convo/internal/version.Version=...".
package version

import (
	"fmt"
	"runtime/debug"
)

var (
	Version   = "dev"
	Commit    = "unknown"
	Branch    = "unknown"
	BuildDate = "unknown"
)

// Info is the build information of the running binary.
type Info struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	Branch    string `json:"branch"`
	BuildDate string `json:"buildDate"`
	GoVersion string `json:"goVersion"`
}

// GetInfo returns the build information, falling back to the module build info for
// binaries installed with go install.
func GetInfo() Info {
	info := Info{
		Version:   Version,
		Commit:    Commit,
		Branch:    Branch,
		BuildDate: BuildDate,
	}
	if bi, ok := debug.ReadBuildInfo(); ok {
		info.GoVersion = bi.GoVersion
		if info.Version == "dev" && bi.Main.Version != "" && bi.Main.Version != "(devel)" {
			info.Version = bi.Main.Version
		}
		for _, s := range bi.Settings {
			if s.Key == "vcs.revision" && info.Commit == "unknown" {
				info.Commit = s.Value
			}
		}
	}
	return info
}

func (i Info) String() string {
	return fmt.Sprintf("Version: %s\nCommit: %s\nBranch: %s\nBuild Date: %s\nGo: %s",
		i.Version, i.Commit, i.Branch, i.BuildDate, i.GoVersion)
}
