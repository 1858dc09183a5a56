package node

import (
	"fmt"
	"runtime"
)

const emptyValue = "unknown"

// set via ldflags
var (
	buildTime       string
	lastCommit      string
	semanticVersion string

	systemVersion = fmt.Sprintf("%s/%s", runtime.GOARCH, runtime.GOOS)
	golangVersion = runtime.Version()
)

// BuildInfo stores all necessary information for the current build.
type BuildInfo struct {
	BuildTime       string
	LastCommit      string
	SemanticVersion string
	SystemVersion   string
	GolangVersion   string
}

// GetBuildInfo returns information about the current build.
func GetBuildInfo() *BuildInfo {
	return &BuildInfo{
		BuildTime:       buildTime,
		LastCommit:      lastCommit,
		SemanticVersion: semanticVersion,
		SystemVersion:   systemVersion,
		GolangVersion:   golangVersion,
	}
}

// GetSemanticVersion returns the semantic version prefixed with 'v'.
func (b *BuildInfo) GetSemanticVersion() string {
	if b.SemanticVersion == "" {
		return emptyValue
	}
	return "v" + b.SemanticVersion
}

// CommitShortSha returns the first 7 characters of the last commit.
func (b *BuildInfo) CommitShortSha() string {
	if b.LastCommit == "" {
		return emptyValue
	}
	if len(b.LastCommit) < 7 {
		return b.LastCommit
	}
	return b.LastCommit[:7]
}
