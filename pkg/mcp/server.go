package mcp

import (
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// NewServer creates a new MCP server with shtrace tools registered.
func NewServer(version string) *server.MCPServer {
	s := server.NewMCPServer(
		"shtrace",
		version,
		server.WithToolCapabilities(true),
	)

	s.AddTool(
		mcp.NewTool("shtrace/trace",
			mcp.WithDescription("Run a bash script under the statement tracer, capturing every executed statement together with the script's output and exit status"),
			mcp.WithString("script", mcp.Required(), mcp.Description("Path to the bash script")),
			mcp.WithString("args", mcp.Description("Arguments passed to the script, space separated")),
			mcp.WithNumber("timeout_secs", mcp.Description("Abort the run after this many seconds (default 60)")),
		),
		HandleTrace,
	)

	s.AddTool(
		mcp.NewTool("shtrace/schema",
			mcp.WithDescription("Export the JSON Schema for session transcript records"),
		),
		HandleSchema,
	)

	return s
}
