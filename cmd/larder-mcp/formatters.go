package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/ternarybob/larder/internal/models"
	"github.com/ternarybob/larder/internal/services/tools"
)

// formatResult renders a tool result as markdown
func formatResult(name string, result *tools.Result) string {
	var sb strings.Builder

	switch output := result.Output.(type) {
	case []models.ListItem:
		formatItems(&sb, name, output)
	case []models.ListSummary:
		formatLists(&sb, output)
	case map[string]interface{}:
		if results, ok := output["results"].([]tools.ItemResult); ok {
			formatItemResults(&sb, results)
		} else {
			formatFields(&sb, output)
		}
	}

	if !result.Success && result.Error != "" {
		sb.WriteString(fmt.Sprintf("\n**Error:** %s\n", result.Error))
	}
	return sb.String()
}

func formatItems(sb *strings.Builder, name string, items []models.ListItem) {
	title := strings.ReplaceAll(strings.TrimPrefix(name, "get_"), "_", " ")
	sb.WriteString(fmt.Sprintf("## %s (%d)\n\n", title, len(items)))

	if len(items) == 0 {
		sb.WriteString("The list is empty.\n")
		return
	}
	for _, item := range items {
		mark := " "
		if item.Completed {
			mark = "x"
		}
		sb.WriteString(fmt.Sprintf("- [%s] %s\n", mark, item.Value))
	}
}

func formatLists(sb *strings.Builder, lists []models.ListSummary) {
	sb.WriteString(fmt.Sprintf("## Shopping lists (%d)\n\n", len(lists)))
	for _, list := range lists {
		primary := ""
		if list.IsPrimary {
			primary = " (primary)"
		}
		sb.WriteString(fmt.Sprintf("- **%s**%s: %d items, %d to buy, %d done\n",
			list.Name, primary, list.ItemCount, list.IncompleteCount, list.CompletedCount))
	}
}

func formatItemResults(sb *strings.Builder, results []tools.ItemResult) {
	for _, r := range results {
		status := "ok"
		if !r.Success {
			status = "failed"
		}
		sb.WriteString(fmt.Sprintf("- %s: %s\n", status, r.Message))
	}
}

func formatFields(sb *strings.Builder, fields map[string]interface{}) {
	data, err := json.MarshalIndent(fields, "", "  ")
	if err != nil {
		sb.WriteString(fmt.Sprintf("%v\n", fields))
		return
	}
	sb.WriteString("```json\n")
	sb.Write(data)
	sb.WriteString("\n```\n")
}
