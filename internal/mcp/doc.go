// Package mcp implements the Model Context Protocol (MCP) server for srcgroup.
//
// The MCP server exposes five tools to coding assistants:
//   - refresh_project: Bring the index of a project up to date
//   - get_project_status: Report the project state and index statistics
//   - list_source_groups: List the configured source groups
//   - list_indexer_commands: Show the command each source file is indexed with
//   - migrate_project: Upgrade settings written by an older version
//
// Every tool takes the absolute path of a *.srctrlprj settings file. The
// server opens each project once and keeps it open until Close.
//
// # Protocol Overview
//
// MCP is a JSON-RPC 2.0 protocol over stdio transport:
//
//	Client → Server: {"method": "tools/call", "params": {...}}
//	Server → Client: {"result": {...}}
//
// The server is started via the serve command:
//
//	srcgroup serve
//
// # Tool: refresh_project
//
//	Request:
//	{
//	  "name": "refresh_project",
//	  "arguments": {
//	    "path": "/work/demo/demo.srctrlprj",
//	    "mode": "incomplete",
//	    "dry_run": false
//	  }
//	}
//
//	Response:
//	{
//	  "state": "loaded",
//	  "mode": "incomplete",
//	  "files_to_index": 12,
//	  "files_to_clear": 1,
//	  "non_indexed_files_to_clear": 3,
//	  "statistics": {
//	    "files_indexed": 12,
//	    "files_incomplete": 1,
//	    "duration_ms": 5230
//	  }
//	}
//
// A source group that fails to prepare is listed under group_failures; the
// other groups are refreshed regardless.
//
// # Error Handling
//
// Failures are returned as MCPError values:
//   - -32602: Invalid params (missing/invalid arguments)
//   - -32603: Internal error (database, filesystem, etc.)
//   - -32001: Project settings missing or unreadable
//   - -32002: A refresh of the project is already running
//   - -32003: Project has no index
//   - -32004: Project settings need migration
//
// # Logging
//
// The MCP server logs to stderr (stdout is reserved for MCP protocol).
package mcp
