package version

import (
	"fmt"
	"runtime"
	"strings"
)

// Build-time variables injected via ldflags:
//
//	go build -ldflags "-X docconv/internal/version.Version=1.2.0 -X docconv/internal/version.GitCommit=$(git rev-parse HEAD)"
var (
	Version   = "dev"
	GitCommit = "unknown"
	GitTag    = ""
	BuildDate = "unknown"
	GoVersion = runtime.Version()
	GitDirty  = ""
)

// Info returns the version, preferring the git tag
func Info() string {
	version := Version
	if GitTag != "" && GitTag != "unknown" {
		version = GitTag
	}
	if GitDirty == "true" && !strings.HasSuffix(version, "-dirty") {
		version += "-dirty"
	}
	return version
}

// Full returns the version with the short commit hash
func Full() string {
	info := Info()
	if short := shortCommit(); short != "" && !strings.Contains(info, short) {
		info += fmt.Sprintf(" (%s)", short)
	}
	return info
}

func shortCommit() string {
	if GitCommit == "" || GitCommit == "unknown" {
		return ""
	}
	if len(GitCommit) > 7 {
		return GitCommit[:7]
	}
	return GitCommit
}

// BuildInfo returns detailed build information
type BuildInfo struct {
	Version   string `json:"version"`
	GitCommit string `json:"git_commit"`
	GitTag    string `json:"git_tag"`
	GitDirty  bool   `json:"git_dirty"`
	BuildDate string `json:"build_date"`
	GoVersion string `json:"go_version"`
	Platform  string `json:"platform"`
}

// GetBuildInfo returns structured build information
func GetBuildInfo() BuildInfo {
	return BuildInfo{
		Version:   Info(),
		GitCommit: GitCommit,
		GitTag:    GitTag,
		GitDirty:  GitDirty == "true",
		BuildDate: BuildDate,
		GoVersion: GoVersion,
		Platform:  runtime.GOOS + "/" + runtime.GOARCH,
	}
}

// UserAgent returns the User-Agent sent to the conversion service
func UserAgent() string {
	return fmt.Sprintf("docconv/%s", Info())
}
