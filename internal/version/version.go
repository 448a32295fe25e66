// Package version reports build information for the sri-gateway binaries.
//
// The values are set at build time, e.g.
//
//	go build -ldflags "-X github.com/information-sharing-networks/sri-gateway/internal/version.version=v1.2.0"
//
// When they are not set the module version from the embedded build info is used.
package version

import (
	"runtime/debug"
)

var (
	version   = ""
	buildDate = "unknown"
	gitCommit = "unknown"
)

// Info describes the running build.
type Info struct {
	Version   string
	BuildDate string
	GitCommit string
}

// Get returns the build information for the running binary.
func Get() Info {
	info := Info{
		Version:   version,
		BuildDate: buildDate,
		GitCommit: gitCommit,
	}

	if info.Version != "" {
		return info
	}

	info.Version = "dev"
	bi, ok := debug.ReadBuildInfo()
	if !ok {
		return info
	}
	if bi.Main.Version != "" && bi.Main.Version != "(devel)" {
		info.Version = bi.Main.Version
	}
	for _, s := range bi.Settings {
		switch s.Key {
		case "vcs.revision":
			if info.GitCommit == "unknown" {
				info.GitCommit = s.Value
			}
		case "vcs.time":
			if info.BuildDate == "unknown" {
				info.BuildDate = s.Value
			}
		}
	}
	return info
}
