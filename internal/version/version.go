package version

import (
	"runtime/debug"
)

// Overridden at build time with -ldflags "-X authsession/internal/version.Version=...".
var (
	Version   string = "dev"
	GitCommit string = ""
	BuildTime string = ""
)

type Info struct {
	Version   string `json:"version"`
	GitCommit string `json:"git_commit,omitempty"`
	BuildTime string `json:"build_time,omitempty"`
}

// Get returns the linker-provided version, filling gaps from the VCS stamp
// the go tool embeds in the binary.
func Get() Info {
	info := Info{
		Version:   Version,
		GitCommit: GitCommit,
		BuildTime: BuildTime,
	}

	build, ok := debug.ReadBuildInfo()
	if !ok {
		return info
	}

	for _, setting := range build.Settings {
		switch setting.Key {
		case "vcs.revision":
			if info.GitCommit == "" {
				info.GitCommit = setting.Value
			}
		case "vcs.time":
			if info.BuildTime == "" {
				info.BuildTime = setting.Value
			}
		}
	}

	return info
}

func (i Info) String() string {
	s := i.Version
	if i.GitCommit != "" {
		s += " (commit: " + i.GitCommit
		if i.BuildTime != "" {
			s += ", built: " + i.BuildTime
		}
		s += ")"
	}
	return s
}
