package mcp

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	sdk "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/nvandessel/simsweep/internal/automation"
	"github.com/nvandessel/simsweep/internal/ledger"
	"github.com/nvandessel/simsweep/internal/param"
)

// defaultCompileLimit bounds the combinations sweep_compile returns.
const defaultCompileLimit = 100

// registerTools registers all simsweep MCP tools with the server.
func (s *Server) registerTools() {
	sdk.AddTool(s.server, &sdk.Tool{
		Name:        "sweep_kinds",
		Description: "List simulation kinds and the locators of their automatable configuration fields",
	}, s.handleSweepKinds)

	sdk.AddTool(s.server, &sdk.Tool{
		Name:        "sweep_compile",
		Description: "Compile an automation file into the ordered list of parameter combinations a batch would run, without running anything",
	}, s.handleSweepCompile)

	sdk.AddTool(s.server, &sdk.Tool{
		Name:        "sweep_status",
		Description: "Read the run ledger of a batch directory: per-status counts and every run's outcome",
	}, s.handleSweepStatus)
}

// handleSweepKinds implements the sweep_kinds tool.
func (s *Server) handleSweepKinds(ctx context.Context, req *sdk.CallToolRequest, args SweepKindsInput) (_ *sdk.CallToolResult, _ SweepKindsOutput, retErr error) {
	start := time.Now()
	defer func() {
		s.auditTool("sweep_kinds", start, retErr, nil)
	}()

	kinds := s.registry.Kinds()
	out := SweepKindsOutput{Kinds: make([]KindSummary, 0, len(kinds)), Count: len(kinds)}
	for _, k := range kinds {
		summary := KindSummary{
			Name:        k.Name,
			Description: k.Description,
			ConfigFile:  k.ConfigFile,
			Locators:    []string{},
		}
		for loc, f := range param.Leaves(k.DefaultConfig()) {
			if f.Automatable {
				summary.Locators = append(summary.Locators, loc.String())
			}
		}
		out.Kinds = append(out.Kinds, summary)
	}
	return nil, out, nil
}

// handleSweepCompile implements the sweep_compile tool.
func (s *Server) handleSweepCompile(ctx context.Context, req *sdk.CallToolRequest, args SweepCompileInput) (_ *sdk.CallToolResult, _ SweepCompileOutput, retErr error) {
	start := time.Now()
	defer func() {
		s.auditTool("sweep_compile", start, retErr, sanitizeToolParams(map[string]any{
			"kind":       args.Kind,
			"automation": args.Automation,
			"config":     args.Config,
			"limit":      args.Limit,
		}))
	}()

	kind, err := s.registry.Lookup(args.Kind)
	if err != nil {
		return nil, SweepCompileOutput{}, err
	}
	if args.Automation == "" {
		return nil, SweepCompileOutput{}, fmt.Errorf("automation path is required")
	}
	if args.Limit < 0 {
		return nil, SweepCompileOutput{}, fmt.Errorf("limit must be non-negative, got %d", args.Limit)
	}

	automationPath, err := s.sandbox.Resolve(args.Automation)
	if err != nil {
		return nil, SweepCompileOutput{}, fmt.Errorf("automation path rejected: %w", err)
	}
	defs, err := automation.LoadDefinitions(automationPath)
	if err != nil {
		return nil, SweepCompileOutput{}, err
	}

	configPath := filepath.Join(s.root, kind.ConfigFile)
	if args.Config != "" {
		if configPath, err = s.sandbox.Resolve(args.Config); err != nil {
			return nil, SweepCompileOutput{}, fmt.Errorf("config path rejected: %w", err)
		}
	}
	defaults, err := kind.LoadConfig(configPath)
	if err != nil {
		return nil, SweepCompileOutput{}, fmt.Errorf("loading default configuration: %w", err)
	}

	total := automation.Count(defs)
	if s.maxCombinations > 0 && total > s.maxCombinations {
		return nil, SweepCompileOutput{}, fmt.Errorf("%d combinations exceed the limit of %d", total, s.maxCombinations)
	}

	compiler := automation.NewCompiler(defaults)
	compiler.SetLogger(s.logger, nil)
	combos, err := compiler.Compile(defs)
	if err != nil {
		return nil, SweepCompileOutput{}, err
	}

	limit := args.Limit
	if limit == 0 {
		limit = defaultCompileLimit
	}
	out := SweepCompileOutput{
		Total:        len(combos),
		Combinations: make([]CombinationSummary, 0, min(limit, len(combos))),
	}
	for i, c := range combos {
		if i == limit {
			out.Truncated = true
			break
		}
		values := make(map[string]string, c.Len())
		for loc, v := range c.All() {
			values[loc.String()] = param.Format(v)
		}
		out.Combinations = append(out.Combinations, CombinationSummary{Index: i, ID: c.ID(), Values: values})
	}

	switch {
	case len(combos) == 0:
		out.Message = "No automation definitions: a run uses the default configuration"
	case out.Truncated:
		out.Message = fmt.Sprintf("%d combinations, showing the first %d", len(combos), limit)
	default:
		out.Message = fmt.Sprintf("%d combinations", len(combos))
	}
	return nil, out, nil
}

// handleSweepStatus implements the sweep_status tool.
func (s *Server) handleSweepStatus(ctx context.Context, req *sdk.CallToolRequest, args SweepStatusInput) (_ *sdk.CallToolResult, _ SweepStatusOutput, retErr error) {
	start := time.Now()
	defer func() {
		s.auditTool("sweep_status", start, retErr, sanitizeToolParams(map[string]any{
			"batch_dir": args.BatchDir,
			"failed":    args.Failed,
		}))
	}()

	if args.BatchDir == "" {
		return nil, SweepStatusOutput{}, fmt.Errorf("batch_dir is required")
	}
	dir, err := s.sandbox.Resolve(args.BatchDir)
	if err != nil {
		return nil, SweepStatusOutput{}, fmt.Errorf("batch directory rejected: %w", err)
	}

	l, err := ledger.OpenExisting(dir)
	if err != nil {
		return nil, SweepStatusOutput{}, err
	}
	defer l.Close()

	runs, err := l.Runs(ctx)
	if err != nil {
		return nil, SweepStatusOutput{}, err
	}
	counts, err := l.Counts(ctx)
	if err != nil {
		return nil, SweepStatusOutput{}, err
	}

	out := SweepStatusOutput{
		BatchDir: dir,
		Counts:   make(map[string]int, len(counts)),
		Runs:     make([]RunSummary, 0, len(runs)),
	}
	for status, n := range counts {
		out.Counts[string(status)] = n
	}
	for _, r := range runs {
		if args.Failed && r.Status != ledger.StatusFailed {
			continue
		}
		out.Runs = append(out.Runs, runSummary(r))
	}
	out.Message = fmt.Sprintf("%d runs: %d ok, %d failed, %d running",
		len(runs), counts[ledger.StatusOK], counts[ledger.StatusFailed], counts[ledger.StatusRunning])
	return nil, out, nil
}

func runSummary(r ledger.Run) RunSummary {
	rs := RunSummary{
		Run:         r.Number,
		Path:        r.Path,
		Combination: r.Combination,
		Status:      string(r.Status),
		Error:       r.Error,
		SimTime:     r.SimTime,
		Steps:       r.Steps,
		StartedAt:   r.StartedAt.Format(time.RFC3339Nano),
	}
	if !r.FinishedAt.IsZero() {
		rs.FinishedAt = r.FinishedAt.Format(time.RFC3339Nano)
	}
	return rs
}
