// Package version reports build information stamped in at link time.
package version

import (
	"fmt"
	"runtime"
)

// Set with -ldflags "-X github.com/teranos/rfbridge/version.Version=..."
var (
	CommitHash = "dev"
	BuildTime  = "unknown"
	Version    = "dev"
)

// Info contains version and build information
type Info struct {
	Version    string `json:"version"`
	CommitHash string `json:"commit_hash"`
	BuildTime  string `json:"build_time"`
	GoVersion  string `json:"go_version"`
	Platform   string `json:"platform"`
}

// Get returns the current version information
func Get() Info {
	return Info{
		Version:    Version,
		CommitHash: CommitHash,
		BuildTime:  BuildTime,
		GoVersion:  runtime.Version(),
		Platform:   runtime.GOOS + "/" + runtime.GOARCH,
	}
}

// Tag is the version when tagged, otherwise the short commit.
func (i Info) Tag() string {
	if i.Version != "dev" {
		return i.Version
	}
	return "dev-" + i.Short()
}

func (i Info) String() string {
	return fmt.Sprintf("rfbridge %s (commit %s, built %s)", i.Version, i.Short(), i.BuildTime)
}

// Short returns the commit hash cut to seven characters.
func (i Info) Short() string {
	if len(i.CommitHash) >= 7 {
		return i.CommitHash[:7]
	}
	return i.CommitHash
}
