package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"runtime"
)

// Version information for all CLI tools
const (
	Version   = "0.1.0"
	BuildDate = "2026-10-15"
	CommitSHA = "unknown" // set with -ldflags at release
)

// VersionInfo contains version and build information
type VersionInfo struct {
	Version   string `json:"version"`
	BuildDate string `json:"build_date"`
	CommitSHA string `json:"commit_sha,omitempty"`
	GoVersion string `json:"go_version"`
	Platform  string `json:"platform"`
	Arch      string `json:"arch"`
}

// GetVersionInfo returns structured version information
func GetVersionInfo() *VersionInfo {
	info := &VersionInfo{
		Version:   Version,
		BuildDate: BuildDate,
		GoVersion: runtime.Version(),
		Platform:  runtime.GOOS,
		Arch:      runtime.GOARCH,
	}
	if CommitSHA != "unknown" {
		info.CommitSHA = CommitSHA
	}
	return info
}

// PrintVersion writes the version of tool to w, as an indented JSON object
// when asJSON is set.
func PrintVersion(w io.Writer, tool string, asJSON bool) error {
	info := GetVersionInfo()
	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(struct {
			Tool string `json:"tool"`
			*VersionInfo
		}{tool, info})
	}
	_, err := fmt.Fprintf(w, "%s v%s (built %s, %s %s/%s)\n",
		tool, info.Version, info.BuildDate, info.GoVersion, info.Platform, info.Arch)
	if err == nil && info.CommitSHA != "" {
		_, err = fmt.Fprintf(w, "commit %s\n", info.CommitSHA)
	}
	return err
}
