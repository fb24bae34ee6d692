package mcp

// SweepKindsInput defines the input for the sweep_kinds tool.
type SweepKindsInput struct{}

// SweepKindsOutput defines the output for the sweep_kinds tool.
type SweepKindsOutput struct {
	Kinds []KindSummary `json:"kinds" jsonschema:"Registered simulation kinds"`
	Count int           `json:"count" jsonschema:"Number of registered kinds"`
}

// KindSummary describes one simulation kind and its automatable fields.
type KindSummary struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	ConfigFile  string   `json:"config_file"`
	Locators    []string `json:"locators" jsonschema:"Locators of every automatable field in the default configuration"`
}

// SweepCompileInput defines the input for the sweep_compile tool.
type SweepCompileInput struct {
	Kind       string `json:"kind" jsonschema:"Simulation kind, e.g. wator"`
	Automation string `json:"automation" jsonschema:"Path to the automation YAML file (relative to the project root)"`
	Config     string `json:"config,omitempty" jsonschema:"Path to the default configuration file; the kind's conventional file or built-in default when empty"`
	Limit      int    `json:"limit,omitempty" jsonschema:"Maximum number of combinations to return (default 100)"`
}

// SweepCompileOutput defines the output for the sweep_compile tool.
type SweepCompileOutput struct {
	Total        int                  `json:"total" jsonschema:"Number of combinations the definitions compile to"`
	Combinations []CombinationSummary `json:"combinations" jsonschema:"Combinations in run order, truncated to limit"`
	Truncated    bool                 `json:"truncated,omitempty"`
	Message      string               `json:"message"`
}

// CombinationSummary is one compiled combination.
type CombinationSummary struct {
	Index  int               `json:"index"`
	ID     string            `json:"id"`
	Values map[string]string `json:"values"`
}

// SweepStatusInput defines the input for the sweep_status tool.
type SweepStatusInput struct {
	BatchDir string `json:"batch_dir" jsonschema:"Batch directory containing runs.db"`
	Failed   bool   `json:"failed,omitempty" jsonschema:"Only list failed runs"`
}

// SweepStatusOutput defines the output for the sweep_status tool.
type SweepStatusOutput struct {
	BatchDir string         `json:"batch_dir"`
	Counts   map[string]int `json:"counts" jsonschema:"Number of runs per status"`
	Runs     []RunSummary   `json:"runs"`
	Message  string         `json:"message"`
}

// RunSummary is one ledger row.
type RunSummary struct {
	Run         int     `json:"run"`
	Path        string  `json:"path"`
	Combination string  `json:"combination"`
	Status      string  `json:"status"`
	Error       string  `json:"error,omitempty"`
	SimTime     float64 `json:"sim_time"`
	Steps       int     `json:"steps"`
	StartedAt   string  `json:"started_at" jsonschema:"RFC 3339 time the run was submitted"`
	FinishedAt  string  `json:"finished_at,omitempty" jsonschema:"RFC 3339 time the run finished; empty while running"`
}
