package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/lexrag/internal/adapters/driving/mcp"
	"github.com/custodia-labs/lexrag/internal/core/domain"
)

var mcpCmd = &cobra.Command{
	Use:         "mcp",
	Short:       "MCP server commands",
	Long:        `Commands for the Model Context Protocol (MCP) server integration.`,
	Annotations: servicesAnnotation(),
}

var mcpServeCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the MCP server",
	Long: `Start the Model Context Protocol server so AI assistants can query the
legal corpus, upload and amend documents and read the audit trail.

By default, the server communicates over stdio using JSON-RPC. Use --port
to start a streamable HTTP server instead.

Examples:
  # Stdio mode (default, for desktop assistants)
  lexrag mcp serve

  # HTTP mode (for MCP Inspector, remote access)
  lexrag mcp serve --port 8080

Assistant configuration:
  {
    "mcpServers": {
      "lexrag": {
        "command": "/path/to/lexrag",
        "args": ["mcp", "serve"]
      }
    }
  }`,
	RunE: runMCPServe,
}

func init() {
	mcpServeCmd.Flags().IntP("port", "p", 0, "HTTP port (0 = use stdio)")
	mcpCmd.AddCommand(mcpServeCmd)
	rootCmd.AddCommand(mcpCmd)
}

func runMCPServe(cmd *cobra.Command, _ []string) error {
	port, err := cmd.Flags().GetInt("port")
	if err != nil {
		return fmt.Errorf("getting port flag: %w", err)
	}

	ports := &mcp.Ports{
		Retrieval: retrievalService,
		Document:  documentService,
	}
	if auditService != nil {
		ports.Audit = auditService
	}

	opts := []mcp.Option{}
	if cmd.Flags().Changed("actor") {
		opts = append(opts, mcp.WithActor(domain.Actor{ID: actorID, UserAgent: mcp.DefaultActor.UserAgent}))
	}

	server, err := mcp.NewServer(ports, opts...)
	if err != nil {
		return err
	}

	if port > 0 {
		addr := fmt.Sprintf(":%d", port)
		fmt.Fprintf(cmd.OutOrStdout(), "MCP server listening on http://localhost%s\n", addr)
		return server.RunHTTP(cmd.Context(), addr)
	}

	return server.Run(cmd.Context())
}
