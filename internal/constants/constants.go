// Package constants provides named constants used throughout the simsweep codebase.
// Centralizing these values makes the on-disk layout easy to find and change.
package constants

// Output layout constants. A run directory is
// <parent>/<kind>_output_<mode>[_NNNNN]/run_MMMMM.
const (
	// OutputInfix separates the simulation kind from the mode in the outer
	// directory name.
	OutputInfix = "_output_"

	// RunPrefix starts every run directory name.
	RunPrefix = "run_"

	// IndexWidth is the zero-padded width of batch and run indices.
	IndexWidth = 5
)

// Per-run and per-batch file names.
const (
	// CombinationFile records the assignments applied to a run.
	CombinationFile = "combination.xml"

	// LedgerFile is the SQLite run ledger kept in each batch directory.
	LedgerFile = "runs.db"
)

// Application directories and files.
const (
	// ConfigDirName is the per-user configuration directory under $HOME.
	ConfigDirName = ".simsweep"

	// ConfigFileName is the application config file inside ConfigDirName.
	ConfigFileName = "config.yaml"

	// AutomationFileName is the conventional automation definitions file.
	AutomationFileName = "automation.yaml"
)

// Run defaults.
const (
	// DefaultTargetTime is the simulated time at which a run stops.
	DefaultTargetTime = 100.0

	// DefaultMaxCombinations refuses batches larger than this; 0 disables the limit.
	DefaultMaxCombinations = 10000
)
