package main

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/larder/internal/services/tools"
)

// handleTool runs one registry tool and renders the result as markdown
func handleTool(registry *tools.Registry, name string, logger arbor.ILogger) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		result, err := registry.Execute(ctx, name, request.GetArguments())
		if err != nil {
			logger.Error().Err(err).Str("tool", name).Msg("Tool execution failed")
			return &mcp.CallToolResult{
				Content: []mcp.Content{
					mcp.NewTextContent(fmt.Sprintf("Error: %v", err)),
				},
				IsError: true,
			}, nil
		}

		return &mcp.CallToolResult{
			Content: []mcp.Content{
				mcp.NewTextContent(formatResult(name, result)),
			},
			IsError: !result.Success,
		}, nil
	}
}
