package main

import (
	"encoding/json"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/ternarybob/larder/internal/services/tools"
)

// createTools converts every registry definition into an MCP tool.
// The raw schema is used so item_name keeps its string-or-array type.
func createTools(registry *tools.Registry) []mcp.Tool {
	defs := registry.List(tools.Filter{})
	out := make([]mcp.Tool, 0, len(defs))
	for _, def := range defs {
		schema, err := json.Marshal(def.Parameters)
		if err != nil {
			continue
		}
		out = append(out, mcp.NewToolWithRawSchema(def.Name, def.Description, schema))
	}
	return out
}
