package health

import (
	"fmt"
	"os"
	"runtime"
	"runtime/debug"
	"strings"
	"time"
)

const shortCommit = 7

var buildInfoPaths = []string{"build.info", "/app/build.info"}

// BuildInfo describes the running binary. The toolchain's VCS stamp is
// the base; a build.info file written by the image build overrides it.
type BuildInfo struct {
	Version   string
	Commit    string
	BuildTime time.Time
	Modified  bool
}

func (b *BuildInfo) String() string {
	commit := b.Commit
	if len(commit) > shortCommit {
		commit = commit[:shortCommit]
	}
	if b.Modified {
		commit += "-dirty"
	}

	s := fmt.Sprintf("%s-%s %s", b.Version, commit, runtime.Version())
	if !b.BuildTime.IsZero() {
		s += " (" + b.BuildTime.Format("2006-01-02") + ")"
	}
	return s
}

func getBuildInfo(version string) string {
	info := &BuildInfo{Version: version, Commit: "unknown"}

	if bi, ok := debug.ReadBuildInfo(); ok {
		applyVCSSettings(info, bi.Settings)
	}

	for _, path := range buildInfoPaths {
		data, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		info.merge(parseBuildInfoFile(string(data)))
		break
	}

	return info.String()
}

func applyVCSSettings(info *BuildInfo, settings []debug.BuildSetting) {
	for _, s := range settings {
		switch s.Key {
		case "vcs.revision":
			info.Commit = s.Value
		case "vcs.time":
			if t, err := time.Parse(time.RFC3339, s.Value); err == nil {
				info.BuildTime = t
			}
		case "vcs.modified":
			info.Modified = s.Value == "true"
		}
	}
}

func (b *BuildInfo) merge(other *BuildInfo) {
	if other.Version != "" {
		b.Version = other.Version
	}
	if other.Commit != "" {
		b.Commit = other.Commit
		b.Modified = false
	}
	if !other.BuildTime.IsZero() {
		b.BuildTime = other.BuildTime
	}
}

// parseBuildInfoFile reads KEY=VALUE lines; '#' starts a comment.
func parseBuildInfoFile(content string) *BuildInfo {
	info := &BuildInfo{}

	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}

		value = strings.TrimSpace(value)
		switch strings.TrimSpace(key) {
		case "VERSION":
			info.Version = value
		case "GIT_COMMIT":
			info.Commit = value
		case "BUILD_TIME":
			if t, err := time.Parse(time.RFC3339, value); err == nil {
				info.BuildTime = t
			}
		}
	}

	return info
}
