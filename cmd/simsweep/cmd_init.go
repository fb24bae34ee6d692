package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/nvandessel/simsweep/internal/automation"
	"github.com/nvandessel/simsweep/internal/constants"
	"github.com/nvandessel/simsweep/internal/provenance"
	"github.com/nvandessel/simsweep/internal/simulation"
	"github.com/spf13/cobra"
)

func newInitCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a kind's default configuration and a sample automation file",
		Long: `Write the default configuration file of a simulation kind and a sample
automation file into a directory, ready to edit.

Existing files are left untouched unless --force is given.

Examples:
  simsweep init --kind wator
  simsweep init --kind wator --dir sweeps/wator`,
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonOut, _ := cmd.Flags().GetBool("json")
			kindName, _ := cmd.Flags().GetString("kind")
			force, _ := cmd.Flags().GetBool("force")
			root, err := projectRoot(cmd)
			if err != nil {
				return err
			}
			dir, _ := cmd.Flags().GetString("dir")
			dir = resolvePath(root, dir)
			if dir == "" {
				dir = root
			}

			kind, err := simulation.Default().Lookup(kindName)
			if err != nil {
				return err
			}

			configData, err := provenance.MarshalConfig(kind.DefaultConfig())
			if err != nil {
				return fmt.Errorf("encoding default configuration: %w", err)
			}
			var automationData []byte
			if kind.SampleAutomation != nil {
				if automationData, err = automation.MarshalDefinitions(kind.SampleAutomation()); err != nil {
					return fmt.Errorf("encoding sample automation: %w", err)
				}
			}

			if err := os.MkdirAll(dir, 0755); err != nil {
				return fmt.Errorf("creating %s: %w", dir, err)
			}

			written := []string{}
			skipped := []string{}
			files := []struct {
				name string
				data []byte
			}{
				{kind.ConfigFile, configData},
				{constants.AutomationFileName, automationData},
			}
			for _, f := range files {
				if f.data == nil {
					continue
				}
				path := filepath.Join(dir, f.name)
				if _, err := os.Stat(path); err == nil && !force {
					skipped = append(skipped, path)
					continue
				}
				if err := os.WriteFile(path, f.data, 0644); err != nil {
					return fmt.Errorf("writing %s: %w", path, err)
				}
				written = append(written, path)
			}

			out := cmd.OutOrStdout()
			if jsonOut {
				return json.NewEncoder(out).Encode(map[string]any{
					"kind":    kind.Name,
					"written": written,
					"skipped": skipped,
				})
			}
			for _, path := range written {
				fmt.Fprintf(out, "Wrote %s\n", path)
			}
			for _, path := range skipped {
				fmt.Fprintf(out, "Skipped %s (exists, use --force to overwrite)\n", path)
			}
			return nil
		},
	}

	cmd.Flags().String("kind", "", "Simulation kind (required)")
	cmd.Flags().String("dir", "", "Directory to write into (default: project root)")
	cmd.Flags().Bool("force", false, "Overwrite existing files")
	cmd.MarkFlagRequired("kind")

	return cmd
}
