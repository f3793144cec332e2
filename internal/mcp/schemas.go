package mcp

import (
	"github.com/mark3labs/mcp-go/mcp"
)

func pathProperty() map[string]interface{} {
	return map[string]interface{}{
		"type":        "string",
		"description": "Absolute path to the project settings file (*.srctrlprj)",
	}
}

// refreshProjectTool returns the tool definition for refresh_project
func refreshProjectTool() mcp.Tool {
	return mcp.Tool{
		Name:        "refresh_project",
		Description: "Bring the index of a project up to date with its source groups and the files on disk",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"path": pathProperty(),
				"mode": map[string]interface{}{
					"type":        "string",
					"description": "updated: changed files only; incomplete: changed and incompletely indexed files; all: everything from scratch",
					"enum":        []string{"updated", "incomplete", "all"},
					"default":     "updated",
				},
				"force": map[string]interface{}{
					"type":        "boolean",
					"description": "If true, refresh even when the project is up to date",
					"default":     false,
				},
				"dry_run": map[string]interface{}{
					"type":        "boolean",
					"description": "If true, only report which files would be indexed and cleared",
					"default":     false,
				},
			},
			Required: []string{"path"},
		},
	}
}

// getProjectStatusTool returns the tool definition for get_project_status
func getProjectStatusTool() mcp.Tool {
	return mcp.Tool{
		Name:        "get_project_status",
		Description: "Query the state of a project and statistics of its index",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"path": pathProperty(),
			},
			Required: []string{"path"},
		},
	}
}

// listSourceGroupsTool returns the tool definition for list_source_groups
func listSourceGroupsTool() mcp.Tool {
	return mcp.Tool{
		Name:        "list_source_groups",
		Description: "List the source groups of a project with their type, status and number of source files",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"path": pathProperty(),
			},
			Required: []string{"path"},
		},
	}
}

// listIndexerCommandsTool returns the tool definition for list_indexer_commands
func listIndexerCommandsTool() mcp.Tool {
	return mcp.Tool{
		Name:        "list_indexer_commands",
		Description: "Show the indexer command every source file of a project would be indexed with",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"path": pathProperty(),
				"source_file": map[string]interface{}{
					"type":        "string",
					"description": "Only return the command for this absolute source file path",
				},
				"limit": map[string]interface{}{
					"type":        "integer",
					"description": "Maximum number of commands to return (1-1000)",
					"default":     100,
					"minimum":     1,
					"maximum":     1000,
				},
			},
			Required: []string{"path"},
		},
	}
}

// migrateProjectTool returns the tool definition for migrate_project
func migrateProjectTool() mcp.Tool {
	return mcp.Tool{
		Name:        "migrate_project",
		Description: "Upgrade the settings file of a project written by an older version",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"path": pathProperty(),
			},
			Required: []string{"path"},
		},
	}
}
