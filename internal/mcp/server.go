// Package mcp provides an MCP (Model Context Protocol) server for simsweep.
// It lets an agent inspect simulation kinds, preview the combinations an
// automation file compiles to and read the run ledger of a batch.
package mcp

import (
	"context"
	"errors"
	"log/slog"

	sdk "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/nvandessel/simsweep/internal/logging"
	"github.com/nvandessel/simsweep/internal/pathutil"
	"github.com/nvandessel/simsweep/internal/simulation"
)

// Server wraps the MCP SDK server and provides simsweep-specific tools.
type Server struct {
	server          *sdk.Server
	registry        *simulation.Registry
	root            string
	sandbox         *pathutil.Sandbox
	maxCombinations int
	auditLogger     *AuditLogger
	logger          *slog.Logger
}

// Config holds server configuration.
type Config struct {
	Name    string // Server name (e.g., "simsweep")
	Version string // Server version
	Root    string // Project root directory

	// OutputDir is where batch directories live. sweep_status only reads
	// ledgers under Root, OutputDir and ~/.simsweep.
	OutputDir string

	// MaxCombinations caps sweep_compile; 0 disables the cap.
	MaxCombinations int

	// Registry defaults to simulation.Default().
	Registry *simulation.Registry

	// Logger defaults to a discard logger.
	Logger *slog.Logger
}

// NewServer creates a new MCP server with simsweep tools.
func NewServer(cfg *Config) (*Server, error) {
	registry := cfg.Registry
	if registry == nil {
		registry = simulation.Default()
	}
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Discard()
	}

	sandbox, err := pathutil.NewSandbox(cfg.Root, cfg.OutputDir)
	if err != nil {
		return nil, err
	}

	// Create MCP server
	mcpServer := sdk.NewServer(&sdk.Implementation{
		Name:    cfg.Name,
		Version: cfg.Version,
	}, &sdk.ServerOptions{
		InitializedHandler: func(ctx context.Context, req *sdk.InitializedRequest) {
			logger.Debug("mcp client initialized")
		},
	})

	s := &Server{
		server:          mcpServer,
		registry:        registry,
		root:            sandbox.Root(),
		sandbox:         sandbox,
		maxCombinations: cfg.MaxCombinations,
		auditLogger:     NewAuditLogger(sandbox.Root()),
		logger:          logger,
	}

	s.registerTools()
	return s, nil
}

// Run starts the MCP server over stdio transport.
// This blocks until the client disconnects or the context is cancelled.
func (s *Server) Run(ctx context.Context) error {
	s.logger.Info("mcp server starting", "root", s.root, "tools", 3)
	err := s.server.Run(ctx, &sdk.StdioTransport{})
	if errors.Is(err, context.Canceled) {
		err = nil
	}
	s.auditLogger.Close()
	return err
}

// Close releases the server's resources.
func (s *Server) Close() error {
	return s.auditLogger.Close()
}
