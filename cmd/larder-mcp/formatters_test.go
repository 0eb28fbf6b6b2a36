package main

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ternarybob/larder/internal/models"
	"github.com/ternarybob/larder/internal/services/tools"
)

func TestFormatResult(t *testing.T) {
	out := formatResult(tools.ToolGetAll, &tools.Result{
		Success: true,
		Output: []models.ListItem{
			{Value: "milk"},
			{Value: "eggs", Completed: true},
		},
	})
	assert.Contains(t, out, "all shopping items (2)")
	assert.Contains(t, out, "- [ ] milk")
	assert.Contains(t, out, "- [x] eggs")

	out = formatResult(tools.ToolDeleteItem, &tools.Result{
		Success: false,
		Output: map[string]interface{}{"results": []tools.ItemResult{
			{Item: "tea", Success: false, Message: "item not found: 'tea'"},
		}},
		Error: "Some items failed to delete",
	})
	assert.Contains(t, out, "- failed: item not found")
	assert.Contains(t, out, "**Error:** Some items failed to delete")

	out = formatResult(tools.ToolCheckAuthStatus, &tools.Result{
		Success: true,
		Output:  map[string]interface{}{"authenticated": true, "status": "valid"},
	})
	assert.Contains(t, out, `"status": "valid"`)
}
