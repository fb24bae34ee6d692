package main

import (
	"encoding/json"
	"fmt"
	"runtime"
	"runtime/debug"
	"strings"

	"github.com/nvandessel/simsweep/internal/simulation"
	"github.com/spf13/cobra"
)

type versionInfo struct {
	Version   string   `json:"version"`
	Commit    string   `json:"commit"`
	Date      string   `json:"date"`
	GoVersion string   `json:"go_version"`
	Kinds     []string `json:"kinds"`
}

// buildVersion fills commit and date from the embedded VCS stamp when the
// binary was built without -ldflags.
func buildVersion() versionInfo {
	info := versionInfo{Version: version, Commit: commit, Date: date, GoVersion: runtime.Version()}
	if bi, ok := debug.ReadBuildInfo(); ok {
		for _, s := range bi.Settings {
			switch {
			case s.Key == "vcs.revision" && info.Commit == "none":
				info.Commit = s.Value
			case s.Key == "vcs.time" && info.Date == "unknown":
				info.Date = s.Value
			}
		}
	}
	for _, k := range simulation.Default().Kinds() {
		info.Kinds = append(info.Kinds, k.Name)
	}
	return info
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		RunE: func(cmd *cobra.Command, args []string) error {
			info := buildVersion()
			if jsonOut, _ := cmd.Flags().GetBool("json"); jsonOut {
				return json.NewEncoder(cmd.OutOrStdout()).Encode(info)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "simsweep %s (commit %s, built %s, %s)\nkinds: %s\n",
				info.Version, info.Commit, info.Date, info.GoVersion, strings.Join(info.Kinds, ", "))
			return nil
		},
	}
}
