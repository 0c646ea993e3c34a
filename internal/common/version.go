package common

import (
	"fmt"
	"runtime/debug"
)

// Set with -ldflags "-X github.com/ternarybob/concierge/internal/common.Version=..."
var (
	Version   = "dev"
	Build     = "unknown"
	GitCommit = "unknown"
)

// GetVersion returns the release version
func GetVersion() string {
	return Version
}

// GetFullVersion adds build and commit. When the binary was built without
// ldflags the VCS stamp from the Go toolchain is used for the commit.
func GetFullVersion() string {
	commit := GitCommit
	if commit == "unknown" {
		if rev := vcsRevision(); rev != "" {
			commit = rev
		}
	}
	return fmt.Sprintf("%s (build: %s, commit: %s)", Version, Build, commit)
}

func vcsRevision() string {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return ""
	}
	revision, modified := "", false
	for _, setting := range info.Settings {
		switch setting.Key {
		case "vcs.revision":
			revision = setting.Value
		case "vcs.modified":
			modified = setting.Value == "true"
		}
	}
	if len(revision) > 12 {
		revision = revision[:12]
	}
	if revision != "" && modified {
		revision += "-dirty"
	}
	return revision
}
