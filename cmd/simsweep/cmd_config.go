package main

import (
	"cmp"
	"encoding/json"
	"fmt"
	"os"
	"strconv"

	"github.com/nvandessel/simsweep/internal/config"
	"github.com/spf13/cobra"
)

// configKey is one dot-notation setting exposed by `simsweep config`.
type configKey struct {
	name  string
	get   func(*config.SweepConfig) any
	set   func(*config.SweepConfig, string) error
	label func(*config.SweepConfig) string
}

var configKeys = []configKey{
	{
		name: "run.max_concurrency",
		get:  func(c *config.SweepConfig) any { return c.Run.MaxConcurrency },
		set:  intSetter("max_concurrency", func(c *config.SweepConfig) *int { return &c.Run.MaxConcurrency }),
		label: func(c *config.SweepConfig) string {
			return zeroLabel(c.Run.MaxConcurrency, "one per CPU")
		},
	},
	{
		name: "run.target_time",
		get:  func(c *config.SweepConfig) any { return c.Run.TargetTime },
		set: func(c *config.SweepConfig, v string) error {
			f, err := strconv.ParseFloat(v, 64)
			if err != nil {
				return fmt.Errorf("invalid target_time: %s (must be a number)", v)
			}
			c.Run.TargetTime = f
			return nil
		},
	},
	{
		name: "run.output_dir",
		get:  func(c *config.SweepConfig) any { return c.Run.OutputDir },
		set:  func(c *config.SweepConfig, v string) error { c.Run.OutputDir = v; return nil },
	},
	{
		name: "run.max_combinations",
		get:  func(c *config.SweepConfig) any { return c.Run.MaxCombinations },
		set:  intSetter("max_combinations", func(c *config.SweepConfig) *int { return &c.Run.MaxCombinations }),
		label: func(c *config.SweepConfig) string {
			return zeroLabel(c.Run.MaxCombinations, "unlimited")
		},
	},
	{
		name: "logging.level",
		get:  func(c *config.SweepConfig) any { return c.Logging.Level },
		set:  func(c *config.SweepConfig, v string) error { c.Logging.Level = v; return nil },
		label: func(c *config.SweepConfig) string {
			return cmp.Or(c.Logging.Level, "info")
		},
	},
	{
		name: "logging.format",
		get:  func(c *config.SweepConfig) any { return c.Logging.Format },
		set:  func(c *config.SweepConfig, v string) error { c.Logging.Format = v; return nil },
		label: func(c *config.SweepConfig) string {
			return cmp.Or(c.Logging.Format, "text")
		},
	},
}

func lookupConfigKey(name string) (configKey, error) {
	for _, k := range configKeys {
		if k.name == name {
			return k, nil
		}
	}
	return configKey{}, fmt.Errorf("unknown configuration key: %s", name)
}

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage simsweep configuration",
		Long: `View and modify simsweep configuration settings.

Settings live in ~/.simsweep/config.yaml. SIMSWEEP_* environment variables
override the file, and run flags override both.

Examples:
  simsweep config list
  simsweep config get run.max_concurrency
  simsweep config set run.max_concurrency 8
  simsweep config set run.output_dir '${HOME}/sweeps'`,
	}
	cmd.AddCommand(newConfigListCmd(), newConfigGetCmd(), newConfigSetCmd())
	return cmd
}

func newConfigListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "Show the effective settings",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}

			out := cmd.OutOrStdout()
			if jsonOut, _ := cmd.Flags().GetBool("json"); jsonOut {
				return json.NewEncoder(out).Encode(cfg)
			}
			fmt.Fprintln(out, "Effective configuration (~/.simsweep/config.yaml + environment):")
			for _, k := range configKeys {
				value := fmt.Sprint(k.get(cfg))
				if k.label != nil {
					value = k.label(cfg)
				}
				fmt.Fprintf(out, "  %-22s %s\n", k.name, value)
			}
			return nil
		},
	}
}

func newConfigGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <key>",
		Short: "Print one effective setting",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			key, err := lookupConfigKey(args[0])
			if err != nil {
				return err
			}
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}

			value := key.get(cfg)
			if jsonOut, _ := cmd.Flags().GetBool("json"); jsonOut {
				return json.NewEncoder(cmd.OutOrStdout()).Encode(map[string]any{"key": key.name, "value": value})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s = %v\n", key.name, value)
			return nil
		},
	}
}

func newConfigSetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set <key> <value>",
		Short: "Save a setting to ~/.simsweep/config.yaml",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			key, err := lookupConfigKey(args[0])
			if err != nil {
				return err
			}
			value := args[1]

			path, err := config.Path()
			if err != nil {
				return err
			}
			// Only the file is edited; environment overrides are not persisted.
			cfg := config.Default()
			if _, statErr := os.Stat(path); statErr == nil {
				if cfg, err = config.LoadFromFile(path); err != nil {
					return fmt.Errorf("failed to load config: %w", err)
				}
			}

			if err := key.set(cfg, value); err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("invalid value for %s: %w", key.name, err)
			}
			if err := config.Save(cfg, path); err != nil {
				return fmt.Errorf("failed to save config: %w", err)
			}

			if jsonOut, _ := cmd.Flags().GetBool("json"); jsonOut {
				return json.NewEncoder(cmd.OutOrStdout()).Encode(map[string]any{
					"status": "updated",
					"key":    key.name,
					"value":  value,
				})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Set %s = %s\n", key.name, value)
			return nil
		},
	}
}

func intSetter(field string, target func(*config.SweepConfig) *int) func(*config.SweepConfig, string) error {
	return func(c *config.SweepConfig, v string) error {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid %s: %s (must be an integer)", field, v)
		}
		*target(c) = n
		return nil
	}
}

func zeroLabel(n int, meaning string) string {
	if n == 0 {
		return "0 (" + meaning + ")"
	}
	return strconv.Itoa(n)
}
