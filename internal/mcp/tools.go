package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/dshills/srcgroup/internal/project"
	"github.com/dshills/srcgroup/internal/settings"
	"github.com/dshills/srcgroup/pkg/types"
)

// MCP error codes
const (
	ErrorCodeInvalidParams     = -32602 // Invalid method parameters
	ErrorCodeInternalError     = -32603 // Internal JSON-RPC error
	ErrorCodeProjectNotFound   = -32001 // Settings file missing or unreadable
	ErrorCodeRefreshInProgress = -32002 // Another refresh of the project is running
	ErrorCodeNotIndexed        = -32003 // Project has no index yet
	ErrorCodeNeedsMigration    = -32004 // Settings were written by an older version
)

const (
	maxReportedErrors   = 5
	defaultCommandLimit = 100
	maxCommandLimit     = 1000
	maxListedFiles      = 200
)

// handleRefreshProject handles the refresh_project tool invocation
func (s *Server) handleRefreshProject(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, path, err := projectArgs(request)
	if err != nil {
		return nil, err
	}

	mode := project.RefreshUpdatedFiles
	if name := getStringDefault(args, "mode", ""); name != "" {
		m, ok := project.ParseRefreshMode(name)
		if !ok {
			return nil, newMCPError(ErrorCodeInvalidParams, "invalid mode", map[string]interface{}{
				"param":   "mode",
				"value":   name,
				"allowed": []string{"updated", "incomplete", "all"},
			})
		}
		mode = m
	}
	opts := project.RefreshOptions{
		Mode:   mode,
		Force:  getBoolDefault(args, "force", false),
		DryRun: getBoolDefault(args, "dry_run", false),
	}

	p, err := s.project(ctx, path)
	if err != nil {
		return nil, projectError(path, err)
	}

	res, err := p.Refresh(ctx, opts)
	if err != nil && res == nil {
		return nil, projectError(path, err)
	}

	info := res.Info
	response := map[string]interface{}{
		"state":                      res.State.String(),
		"mode":                       info.Mode.String(),
		"dry_run":                    opts.DryRun,
		"files_to_index":             len(info.FilesToIndex),
		"files_to_clear":             len(info.FilesToClear),
		"non_indexed_files_to_clear": len(info.NonIndexedFilesToClear),
	}
	if opts.DryRun {
		response["files"] = map[string]interface{}{
			"index":             truncate(info.FilesToIndex, maxListedFiles),
			"clear":             truncate(info.FilesToClear, maxListedFiles),
			"clear_non_indexed": truncate(info.NonIndexedFilesToClear, maxListedFiles),
		}
	}
	if len(info.Failures) > 0 {
		failures := make([]map[string]interface{}, 0, len(info.Failures))
		for _, f := range info.Failures {
			failures = append(failures, map[string]interface{}{
				"group_id": f.GroupID,
				"kind":     string(f.Kind),
				"error":    f.Error(),
			})
		}
		response["group_failures"] = failures
	}
	if stats := res.Stats; stats != nil {
		statistics := map[string]interface{}{
			"files_cleared":    stats.FilesCleared,
			"files_indexed":    stats.FilesIndexed,
			"files_incomplete": stats.FilesIncomplete,
			"files_failed":     stats.FilesFailed,
			"duration_ms":      stats.Duration.Milliseconds(),
		}
		if n := len(stats.ErrorMessages); n > 0 {
			statistics["errors"] = truncate(stats.ErrorMessages, maxReportedErrors)
			statistics["error_count"] = n
		}
		response["statistics"] = statistics
	}
	if err != nil {
		response["error"] = err.Error()
	}

	return mcp.NewToolResultText(formatJSON(response)), nil
}

// handleGetProjectStatus handles the get_project_status tool invocation
func (s *Server) handleGetProjectStatus(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	_, path, err := projectArgs(request)
	if err != nil {
		return nil, err
	}

	p, err := s.project(ctx, path)
	if err != nil {
		return nil, projectError(path, err)
	}

	state := p.State()
	response := map[string]interface{}{
		"path":  path,
		"state": state.String(),
	}
	if diff := p.SettingsDiff(); diff != "" {
		response["settings_diff"] = diff
	}

	status, err := p.IndexStatus(ctx)
	if errors.Is(err, types.ErrProjectNotLoaded) {
		response["indexed"] = false
		response["message"] = "Project has no usable index. Use refresh_project to build it."
		return mcp.NewToolResultText(formatJSON(response)), nil
	}
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "failed to get index status", map[string]interface{}{
			"error": err.Error(),
		})
	}

	response["indexed"] = status.IndexedCount > 0
	statistics := map[string]interface{}{
		"files_count":      status.FilesCount,
		"indexed_count":    status.IndexedCount,
		"incomplete_count": status.IncompleteCount,
		"references_count": status.ReferencesCount,
		"errors_count":     status.ErrorsCount,
		"schema_version":   status.SchemaVersion,
	}
	if !status.LastIndexedAt.IsZero() {
		statistics["last_indexed_at"] = status.LastIndexedAt.Format("2006-01-02T15:04:05Z07:00")
	}
	response["statistics"] = statistics

	if status.ErrorsCount > 0 {
		indexErrors, err := p.IndexErrors(ctx)
		if err != nil {
			return nil, newMCPError(ErrorCodeInternalError, "failed to list index errors", map[string]interface{}{
				"error": err.Error(),
			})
		}
		var listed []map[string]interface{}
		for _, e := range indexErrors {
			if len(listed) == maxReportedErrors {
				break
			}
			listed = append(listed, map[string]interface{}{
				"path":    e.Path,
				"message": e.Message,
				"fatal":   e.Fatal,
			})
		}
		response["errors"] = listed
	}

	return mcp.NewToolResultText(formatJSON(response)), nil
}

// handleListSourceGroups handles the list_source_groups tool invocation
func (s *Server) handleListSourceGroups(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	_, path, err := projectArgs(request)
	if err != nil {
		return nil, err
	}

	p, err := s.project(ctx, path)
	if err != nil {
		return nil, projectError(path, err)
	}
	groups, err := p.Groups()
	if err != nil {
		return nil, projectError(path, err)
	}

	listed := make([]interface{}, 0, len(groups))
	for _, g := range groups {
		listed = append(listed, g)
	}
	response := map[string]interface{}{
		"state":  p.State().String(),
		"groups": listed,
	}
	return mcp.NewToolResultText(formatJSON(response)), nil
}

// handleListIndexerCommands handles the list_indexer_commands tool invocation
func (s *Server) handleListIndexerCommands(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, path, err := projectArgs(request)
	if err != nil {
		return nil, err
	}

	limit := getIntDefault(args, "limit", defaultCommandLimit)
	if limit < 1 || limit > maxCommandLimit {
		return nil, newMCPError(ErrorCodeInvalidParams, fmt.Sprintf("limit must be between 1 and %d", maxCommandLimit), map[string]interface{}{
			"param": "limit",
			"value": limit,
		})
	}
	sourceFile := getStringDefault(args, "source_file", "")

	p, err := s.project(ctx, path)
	if err != nil {
		return nil, projectError(path, err)
	}
	cmds, failures, err := p.Commands(ctx)
	if err != nil {
		return nil, projectError(path, err)
	}

	var listed []interface{}
	total := 0
	for _, c := range cmds {
		if sourceFile != "" && c.SourceFilePath != sourceFile {
			continue
		}
		total++
		if len(listed) < limit {
			listed = append(listed, c)
		}
	}
	response := map[string]interface{}{
		"total":    total,
		"commands": listed,
	}
	if len(failures) > 0 {
		msgs := make([]string, 0, len(failures))
		for _, f := range failures {
			msgs = append(msgs, f.Error())
		}
		response["group_failures"] = msgs
	}
	return mcp.NewToolResultText(formatJSON(response)), nil
}

// handleMigrateProject handles the migrate_project tool invocation
func (s *Server) handleMigrateProject(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	_, path, err := projectArgs(request)
	if err != nil {
		return nil, err
	}

	p, err := s.project(ctx, path)
	if err != nil {
		return nil, projectError(path, err)
	}
	migrated, err := p.Migrate(ctx)
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "migration failed", map[string]interface{}{
			"error": err.Error(),
		})
	}

	response := map[string]interface{}{
		"migrated": migrated,
		"version":  settings.ProjectVersion,
		"state":    p.State().String(),
	}
	return mcp.NewToolResultText(formatJSON(response)), nil
}

// Helper functions

// projectArgs extracts the arguments and the validated project path.
func projectArgs(request mcp.CallToolRequest) (map[string]interface{}, string, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, "", newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	path, ok := args["path"].(string)
	if !ok || path == "" {
		return nil, "", newMCPError(ErrorCodeInvalidParams, "path parameter is required", map[string]interface{}{
			"param":  "path",
			"reason": "missing or empty",
		})
	}

	if err := validatePath(path); err != nil {
		return nil, "", newMCPError(ErrorCodeInvalidParams, "invalid path", map[string]interface{}{
			"param":  "path",
			"reason": err.Error(),
		})
	}
	return args, filepath.Clean(path), nil
}

// projectError maps project failures to MCP error codes.
func projectError(path string, err error) error {
	data := map[string]interface{}{
		"path":  path,
		"error": err.Error(),
	}
	switch {
	case errors.Is(err, types.ErrRefreshInProgress):
		return newMCPError(ErrorCodeRefreshInProgress, "a refresh of this project is already running", data)
	case errors.Is(err, types.ErrNeedsMigration):
		return newMCPError(ErrorCodeNeedsMigration, "project settings need migration; use migrate_project first", data)
	case errors.Is(err, types.ErrProjectNotLoaded):
		return newMCPError(ErrorCodeNotIndexed, "project is not indexed", data)
	case errors.Is(err, types.ErrSettingsCorrupt), errors.Is(err, os.ErrNotExist):
		return newMCPError(ErrorCodeProjectNotFound, "project could not be loaded", data)
	default:
		return newMCPError(ErrorCodeInternalError, "project operation failed", data)
	}
}

// newMCPError creates a properly formatted MCP error
func newMCPError(code int, message string, data interface{}) error {
	// MCP errors are returned as regular errors, the framework handles encoding
	return &MCPError{
		Code:    code,
		Message: message,
		Data:    data,
	}
}

// MCPError represents an MCP protocol error
type MCPError struct {
	Code    int
	Message string
	Data    interface{}
}

func (e *MCPError) Error() string {
	return fmt.Sprintf("MCP error %d: %s", e.Code, e.Message)
}

// validatePath checks that path names a readable project settings file
func validatePath(path string) error {
	if path == "" {
		return ErrPathRequired
	}

	if !filepath.IsAbs(path) {
		return ErrPathNotAbsolute
	}

	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return ErrPathNotFound
	}
	if err != nil {
		return ErrPathNotReadable
	}
	if info.IsDir() {
		return ErrIsDirectory
	}
	if !strings.EqualFold(filepath.Ext(path), settings.ProjectFileExtension) {
		return ErrNotProjectFile
	}

	f, err := os.Open(path)
	if err != nil {
		return ErrPathNotReadable
	}
	_ = f.Close()
	return nil
}

// formatJSON formats a map as indented JSON
func formatJSON(data map[string]interface{}) string {
	bytes, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Sprintf("%v", data)
	}
	return string(bytes)
}

func truncate(list []string, n int) []string {
	if len(list) <= n {
		return list
	}
	return list[:n]
}

// getBoolDefault extracts a boolean parameter with a default value
func getBoolDefault(args map[string]interface{}, key string, defaultValue bool) bool {
	if val, ok := args[key].(bool); ok {
		return val
	}
	return defaultValue
}

// getIntDefault extracts an integer parameter with a default value
func getIntDefault(args map[string]interface{}, key string, defaultValue int) int {
	if val, ok := args[key].(float64); ok {
		return int(val)
	}
	if val, ok := args[key].(int); ok {
		return val
	}
	return defaultValue
}

// getStringDefault extracts a string parameter with a default value
func getStringDefault(args map[string]interface{}, key string, defaultValue string) string {
	if val, ok := args[key].(string); ok {
		return val
	}
	return defaultValue
}

// Validation helpers

var (
	ErrPathRequired    = errors.New("path is required")
	ErrPathNotAbsolute = errors.New("path must be absolute")
	ErrPathNotFound    = errors.New("path does not exist")
	ErrPathNotReadable = errors.New("path is not readable")
	ErrIsDirectory     = errors.New("path is a directory, expected a project file")
	ErrNotProjectFile  = errors.New("path is not a " + settings.ProjectFileExtension + " project file")
)
