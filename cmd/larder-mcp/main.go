package main

import (
	"fmt"
	"os"

	"github.com/mark3labs/mcp-go/server"

	"github.com/ternarybob/larder/internal/app"
	"github.com/ternarybob/larder/internal/common"
)

func main() {
	var configFiles []string
	if configPath := os.Getenv("LARDER_CONFIG"); configPath != "" {
		configFiles = append(configFiles, configPath)
	}

	config, err := common.LoadFromFiles(configFiles...)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// stdio carries the protocol, keep logging to warnings and above
	logger := common.NewQuietLogger("warn")

	host, err := app.NewToolHost(config, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to initialize services")
		os.Exit(1)
	}
	defer host.Close()

	mcpServer := server.NewMCPServer(
		"larder",
		common.GetVersion(),
		server.WithToolCapabilities(true),
	)

	for _, tool := range createTools(host.ToolRegistry) {
		mcpServer.AddTool(tool, handleTool(host.ToolRegistry, tool.Name, logger))
	}

	// Blocks on stdio
	if err := server.ServeStdio(mcpServer); err != nil {
		logger.Fatal().Err(err).Msg("MCP server failed")
	}
}
