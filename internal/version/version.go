// Package version exposes build metadata injected through -ldflags.
package version

import (
	"fmt"
	"runtime"
	"strings"
)

var (
	// Version is the application version, set via ldflags during build.
	Version = "dev"
	// GitCommit is the git commit hash, set via ldflags during build.
	GitCommit = "unknown"
	// BuildDate is the build timestamp, set via ldflags during build.
	BuildDate = "unknown"
	// BuildID is the build identifier, set via ldflags during build.
	BuildID = "unknown"
)

// Info contains version and build metadata.
type Info struct {
	Version   string `json:"version"`
	GitCommit string `json:"git_commit"`
	BuildDate string `json:"build_date"`
	BuildID   string `json:"build_id"`
	GoVersion string `json:"go_version"`
	Compiler  string `json:"compiler"`
	Platform  string `json:"platform"`
}

// Get returns version and build information.
func Get() Info {
	return Info{
		Version:   Version,
		GitCommit: GitCommit,
		BuildDate: BuildDate,
		BuildID:   BuildID,
		GoVersion: runtime.Version(),
		Compiler:  runtime.Compiler,
		Platform:  fmt.Sprintf("%s/%s", runtime.GOOS, runtime.GOARCH),
	}
}

// String formats i for --version output, omitting unknown build fields.
func (i Info) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "screenrec %s", i.Version)
	if i.GitCommit != "" && i.GitCommit != "unknown" {
		commit := i.GitCommit
		if len(commit) > 7 {
			commit = commit[:7]
		}
		fmt.Fprintf(&b, " (%s)", commit)
	}
	if i.BuildDate != "" && i.BuildDate != "unknown" {
		fmt.Fprintf(&b, " built %s", i.BuildDate)
	}
	fmt.Fprintf(&b, " %s %s", i.GoVersion, i.Platform)
	return b.String()
}

// String returns the application version string.
func String() string {
	return Version
}
