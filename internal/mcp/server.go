package mcp

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"sync"

	"github.com/mark3labs/mcp-go/server"

	"github.com/dshills/srcgroup/internal/config"
	"github.com/dshills/srcgroup/internal/project"
)

const (
	// ServerName is the MCP server name
	ServerName = "srcgroup"
	// ServerVersion is the current server version
	ServerVersion = "1.0.0"
)

// Options configure the server. Project is the template for every project
// the server opens.
type Options struct {
	Logger  *log.Logger
	Project project.Options
}

// Server wraps the MCP server with the projects it opened
type Server struct {
	mcp    *server.MCPServer
	app    *config.AppSettings
	logger *log.Logger
	opts   project.Options

	mu       sync.Mutex
	projects map[string]*project.Project
}

// NewServer creates a new MCP server instance
func NewServer(app *config.AppSettings, opts Options) (*Server, error) {
	if app == nil {
		d := config.Default()
		app = &d
	}
	if err := app.Validate(); err != nil {
		return nil, fmt.Errorf("invalid application settings: %w", err)
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	if opts.Project.Logger == nil {
		opts.Project.Logger = logger
	}

	s := &Server{
		mcp:      server.NewMCPServer(ServerName, ServerVersion),
		app:      app,
		logger:   logger,
		opts:     opts.Project,
		projects: make(map[string]*project.Project),
	}

	// Register tools
	if err := s.registerTools(); err != nil {
		return nil, fmt.Errorf("failed to register tools: %w", err)
	}

	return s, nil
}

// Serve starts the MCP server on stdio and blocks until shutdown
func (s *Server) Serve(ctx context.Context) error {
	defer func() { _ = s.Close() }()
	return server.ServeStdio(s.mcp)
}

// Close closes every project the server opened.
func (s *Server) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	var errs []error
	for path, p := range s.projects {
		if err := p.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close %s: %w", path, err))
		}
		delete(s.projects, path)
	}
	return errors.Join(errs...)
}

// registerTools registers all MCP tools
func (s *Server) registerTools() error {
	s.mcp.AddTool(refreshProjectTool(), s.handleRefreshProject)
	s.mcp.AddTool(getProjectStatusTool(), s.handleGetProjectStatus)
	s.mcp.AddTool(listSourceGroupsTool(), s.handleListSourceGroups)
	s.mcp.AddTool(listIndexerCommandsTool(), s.handleListIndexerCommands)
	s.mcp.AddTool(migrateProjectTool(), s.handleMigrateProject)
	return nil
}

// project returns the open project for path, loading it on first use.
func (s *Server) project(ctx context.Context, path string) (*project.Project, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p, ok := s.projects[path]; ok {
		return p, nil
	}
	p := project.New(path, s.app, s.opts)
	if err := p.Load(ctx); err != nil {
		_ = p.Close()
		return nil, err
	}
	s.logger.Printf("opened project %s (%s)", path, p.State())
	s.projects[path] = p
	return p, nil
}
