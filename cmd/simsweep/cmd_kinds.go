package main

import (
	"encoding/json"
	"fmt"

	"github.com/nvandessel/simsweep/internal/param"
	"github.com/nvandessel/simsweep/internal/simulation"
	"github.com/spf13/cobra"
)

func newKindsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "kinds",
		Short: "List simulation kinds and their automatable fields",
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonOut, _ := cmd.Flags().GetBool("json")
			fields, _ := cmd.Flags().GetBool("fields")

			type kindInfo struct {
				Name        string   `json:"name"`
				Description string   `json:"description"`
				ConfigFile  string   `json:"config_file"`
				Locators    []string `json:"locators,omitempty"`
			}

			var infos []kindInfo
			for _, k := range simulation.Default().Kinds() {
				info := kindInfo{Name: k.Name, Description: k.Description, ConfigFile: k.ConfigFile}
				if fields || jsonOut {
					for loc, f := range param.Leaves(k.DefaultConfig()) {
						if f.Automatable {
							info.Locators = append(info.Locators, loc.String())
						}
					}
				}
				infos = append(infos, info)
			}

			out := cmd.OutOrStdout()
			if jsonOut {
				return json.NewEncoder(out).Encode(map[string]any{"kinds": infos, "count": len(infos)})
			}
			for _, info := range infos {
				fmt.Fprintf(out, "%-10s %s (config: %s)\n", info.Name, info.Description, info.ConfigFile)
				for _, loc := range info.Locators {
					fmt.Fprintf(out, "  %s\n", loc)
				}
			}
			return nil
		},
	}
	cmd.Flags().Bool("fields", false, "List the locator of every automatable field")
	return cmd
}
