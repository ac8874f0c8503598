package main

import (
	"github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"

	smcp "github.com/ormasoftchile/shtrace/pkg/mcp"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Serve MCP tools over stdio",
	Long: `Start an MCP server speaking JSON-RPC over stdin/stdout.
Exposes shtrace/trace (run a script under the tracer and report its
statements, output and exit status) and shtrace/schema (the transcript
JSON Schema) to MCP clients.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return server.ServeStdio(smcp.NewServer(version))
	},
}
