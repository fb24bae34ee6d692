package main

import (
	"encoding/json"
	"fmt"

	"github.com/nvandessel/simsweep/internal/automation"
	"github.com/nvandessel/simsweep/internal/param"
	"github.com/nvandessel/simsweep/internal/simulation"
	"github.com/spf13/cobra"
)

func newCompileCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "compile",
		Short: "Print the parameter combinations an automation file compiles to",
		Long: `Compile an automation file against a kind's default configuration and
print the combinations in the order a batch would run them. Nothing is run.

Examples:
  simsweep compile --kind wator --automation automation.yaml
  simsweep compile --kind wator --automation automation.yaml --json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonOut, _ := cmd.Flags().GetBool("json")
			kindName, _ := cmd.Flags().GetString("kind")
			automationPath, _ := cmd.Flags().GetString("automation")
			configPath, _ := cmd.Flags().GetString("config")

			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			root, err := projectRoot(cmd)
			if err != nil {
				return err
			}

			kind, err := simulation.Default().Lookup(kindName)
			if err != nil {
				return err
			}
			defaults, _, err := kind.Defaults(root, configPath)
			if err != nil {
				return err
			}
			defs, err := automation.LoadDefinitions(resolvePath(root, automationPath))
			if err != nil {
				return err
			}
			if total := automation.Count(defs); cfg.Run.MaxCombinations > 0 && total > cfg.Run.MaxCombinations {
				return fmt.Errorf("%d combinations exceed run.max_combinations (%d)", total, cfg.Run.MaxCombinations)
			}

			compiler := automation.NewCompiler(defaults)
			compiler.SetLogger(newLogger(cmd, cfg), nil)
			combos, err := compiler.Compile(defs)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if jsonOut {
				type combination struct {
					Index  int               `json:"index"`
					ID     string            `json:"id"`
					Values map[string]string `json:"values"`
				}
				list := make([]combination, 0, len(combos))
				for i, c := range combos {
					values := make(map[string]string, c.Len())
					for loc, v := range c.All() {
						values[loc.String()] = param.Format(v)
					}
					list = append(list, combination{Index: i, ID: c.ID(), Values: values})
				}
				return json.NewEncoder(out).Encode(map[string]any{
					"kind":         kind.Name,
					"total":        len(combos),
					"combinations": list,
				})
			}

			if len(combos) == 0 {
				fmt.Fprintln(out, "No automation definitions: a run uses the default configuration.")
				return nil
			}
			fmt.Fprintf(out, "%d combinations:\n", len(combos))
			for i, c := range combos {
				fmt.Fprintf(out, "  %5d  %s\n", i, c.ID())
			}
			return nil
		},
	}

	cmd.Flags().String("kind", "", "Simulation kind (required)")
	cmd.Flags().String("automation", "", "Automation definitions file (required)")
	cmd.Flags().String("config", "", "Default configuration file (default: the kind's file in the project root)")
	cmd.MarkFlagRequired("kind")
	cmd.MarkFlagRequired("automation")

	return cmd
}
