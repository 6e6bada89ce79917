package contracts

import (
	"fmt"
	"runtime"
	"runtime/debug"
	"strings"
)

const (
	Version = "1.2.0"

	// DataFormatVersion covers the license file and record ledger layouts.
	DataFormatVersion = "v1"

	APIVersion = "v1"
)

// Set with -ldflags "-X .../pkg/contracts.BuildTime=... -X ...GitCommit=...".
var (
	BuildTime = "unknown"
	GitCommit = "unknown"
)

// VersionInfo describes the running binary.
type VersionInfo struct {
	Version      string `json:"version"`
	BuildTime    string `json:"build_time"`
	GitCommit    string `json:"git_commit"`
	GoVersion    string `json:"go_version"`
	OS           string `json:"os"`
	Architecture string `json:"architecture"`
	DataFormat   string `json:"data_format"`
	APIVersion   string `json:"api_version"`
}

// GetVersionInfo reports build metadata. Without ldflags the commit and
// time fall back to the VCS stamp the go tool embeds, when present.
func GetVersionInfo() VersionInfo {
	info := VersionInfo{
		Version:      Version,
		BuildTime:    BuildTime,
		GitCommit:    GitCommit,
		GoVersion:    runtime.Version(),
		OS:           runtime.GOOS,
		Architecture: runtime.GOARCH,
		DataFormat:   DataFormatVersion,
		APIVersion:   APIVersion,
	}

	if bi, ok := debug.ReadBuildInfo(); ok {
		for _, s := range bi.Settings {
			switch {
			case s.Key == "vcs.revision" && info.GitCommit == "unknown":
				info.GitCommit = shortCommit(s.Value)
			case s.Key == "vcs.time" && info.BuildTime == "unknown":
				info.BuildTime = s.Value
			}
		}
	}
	return info
}

func shortCommit(rev string) string {
	if len(rev) > 7 {
		return rev[:7]
	}
	return rev
}

// GetVersionString is the one-line product name and version.
func GetVersionString() string {
	return "E-Defter Otomasyon v" + Version
}

// GetFullVersionString is GetVersionString plus build details, as printed
// by -version.
func GetFullVersionString() string {
	info := GetVersionInfo()
	details := []string{
		"built: " + info.BuildTime,
		"commit: " + info.GitCommit,
		"go: " + info.GoVersion,
		fmt.Sprintf("os: %s/%s", info.OS, info.Architecture),
	}
	return fmt.Sprintf("%s (%s)", GetVersionString(), strings.Join(details, ", "))
}
