package tools

// Tool names exposed over HTTP and MCP
const (
	ToolGetAll           = "get_all_shopping_items"
	ToolGetIncomplete    = "get_incomplete_shopping_items"
	ToolGetCompleted     = "get_completed_shopping_items"
	ToolAddItem          = "add_shopping_item"
	ToolDeleteItem       = "delete_shopping_item"
	ToolMarkCompleted    = "mark_shopping_item_completed"
	ToolMarkIncomplete   = "mark_shopping_item_incomplete"
	ToolCheckAuthStatus  = "check_alexa_auth_status"
	ToolListLists        = "list_shopping_lists"
	CategoryShopping     = "shopping"
	paramItemName        = "item_name"
	itemNameDescription  = "Single item name (string) or list of item names (array of strings)"
	defaultToolListLimit = 100
)

// Definition describes one tool. Parameters is a JSON schema object.
type Definition struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	Category    string                 `json:"category"`
	Parameters  map[string]interface{} `json:"parameters"`
}

func noParameters() map[string]interface{} {
	return map[string]interface{}{
		"type":       "object",
		"properties": map[string]interface{}{},
		"required":   []string{},
	}
}

func itemNameParameters() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			paramItemName: map[string]interface{}{
				"type":        []string{"string", "array"},
				"description": itemNameDescription,
				"items":       map[string]interface{}{"type": "string"},
			},
		},
		"required": []string{paramItemName},
	}
}

func definitions() []Definition {
	return []Definition{
		{
			Name:        ToolGetAll,
			Description: "Retrieves all items currently on the Alexa shopping list, including both active (incomplete) and completed items.",
			Category:    CategoryShopping,
			Parameters:  noParameters(),
		},
		{
			Name:        ToolGetIncomplete,
			Description: "Retrieves only the active (incomplete) items currently on the Alexa shopping list. Useful for seeing what still needs to be purchased.",
			Category:    CategoryShopping,
			Parameters:  noParameters(),
		},
		{
			Name:        ToolGetCompleted,
			Description: "Retrieves only the completed items currently on the Alexa shopping list.",
			Category:    CategoryShopping,
			Parameters:  noParameters(),
		},
		{
			Name:        ToolAddItem,
			Description: "Adds one or more new items to the Alexa shopping list. Input can be a single item name or a list of item names.",
			Category:    CategoryShopping,
			Parameters:  itemNameParameters(),
		},
		{
			Name:        ToolDeleteItem,
			Description: "Deletes one or more items from the Alexa shopping list by their exact name (case-insensitive).",
			Category:    CategoryShopping,
			Parameters:  itemNameParameters(),
		},
		{
			Name:        ToolMarkCompleted,
			Description: "Marks one or more items on the Alexa shopping list as completed by their exact name (case-insensitive).",
			Category:    CategoryShopping,
			Parameters:  itemNameParameters(),
		},
		{
			Name:        ToolMarkIncomplete,
			Description: "Marks one or more previously completed items on the Alexa shopping list as incomplete (active). Use this if an item was marked completed by mistake.",
			Category:    CategoryShopping,
			Parameters:  itemNameParameters(),
		},
		{
			Name:        ToolListLists,
			Description: "Lists the shopping lists found on the account with item counts. The primary list comes first.",
			Category:    CategoryShopping,
			Parameters:  noParameters(),
		},
		{
			Name:        ToolCheckAuthStatus,
			Description: "Checks if Alexa Shopping List authentication is valid. Returns authentication status and instructions if re-authentication is needed.",
			Category:    CategoryShopping,
			Parameters:  noParameters(),
		},
	}
}
