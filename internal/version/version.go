// Package version carries build metadata injected with -ldflags.
package version

import (
	"fmt"
	"runtime"
)

// Set at build time:
//
//	-X github.com/mscrnt/memprobe/internal/version.Version=v0.3.0
var (
	Version   = ""
	Commit    = ""
	BuildTime = ""
)

// Info is the build metadata of the running binary
type Info struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuildTime string `json:"buildTime"`
	GoVersion string `json:"goVersion"`
	Platform  string `json:"platform"`
}

// Get returns the build metadata with unset fields filled in
func Get() Info {
	info := Info{
		Version:   Version,
		Commit:    Commit,
		BuildTime: BuildTime,
		GoVersion: runtime.Version(),
		Platform:  runtime.GOOS + "/" + runtime.GOARCH,
	}
	if info.Version == "" {
		info.Version = "dev"
	}
	if info.Commit == "" {
		info.Commit = "unknown"
	}
	if info.BuildTime == "" {
		info.BuildTime = "unknown"
	}
	return info
}

// Short returns "version-commit7", or just the version without a commit
func (i Info) Short() string {
	commit := i.Commit
	if commit == "" || commit == "unknown" {
		return i.Version
	}
	if len(commit) > 7 {
		commit = commit[:7]
	}
	return fmt.Sprintf("%s-%s", i.Version, commit)
}

// String returns detailed version information
func (i Info) String() string {
	return fmt.Sprintf(`memprobe (SPD and memory timing probe)
Version:    %s
Commit:     %s
Built:      %s
Go version: %s
OS/Arch:    %s`,
		i.Version, i.Commit, i.BuildTime, i.GoVersion, i.Platform)
}
