package tools

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/larder/internal/models"
	"github.com/ternarybob/larder/internal/services/status"
)

// ErrUnknownTool is returned by Execute for a name not in the registry
var ErrUnknownTool = errors.New("unknown tool")

// ListOperations is the slice of the list service the tools drive
type ListOperations interface {
	GetItems(ctx context.Context, listID string) ([]models.ListItem, error)
	GetIncomplete(ctx context.Context) ([]models.ListItem, error)
	GetCompleted(ctx context.Context) ([]models.ListItem, error)
	ListAllLists(ctx context.Context) ([]models.ListSummary, error)
	AddByName(ctx context.Context, name string) error
	DeleteByName(ctx context.Context, name string) (*models.ListItem, error)
	MarkCompletedByName(ctx context.Context, name string) (*models.ListItem, error)
	MarkIncompleteByName(ctx context.Context, name string) (*models.ListItem, error)
}

// SessionProber runs an on-demand liveness check
type SessionProber interface {
	RunNow(ctx context.Context) *models.SessionCheck
}

// Result is the outcome of one tool execution
type Result struct {
	Success       bool        `json:"success"`
	Output        interface{} `json:"output"`
	Error         string      `json:"error,omitempty"`
	ExecutionTime float64     `json:"execution_time"`
}

// ItemResult reports one item of a multi-item tool call
type ItemResult struct {
	Item    string `json:"item"`
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// Filter narrows List. Search matches name or description, case-insensitive.
type Filter struct {
	Category string
	Search   string
	Limit    int
}

// Registry executes the shopping tools shared by the HTTP and MCP surfaces
type Registry struct {
	lists  ListOperations
	prober SessionProber
	defs   []Definition
	logger arbor.ILogger
}

// NewRegistry creates a registry over the list service and the liveness prober
func NewRegistry(lists ListOperations, prober SessionProber, logger arbor.ILogger) *Registry {
	return &Registry{
		lists:  lists,
		prober: prober,
		defs:   definitions(),
		logger: logger,
	}
}

// List returns matching definitions in registration order
func (r *Registry) List(filter Filter) []Definition {
	limit := filter.Limit
	if limit <= 0 {
		limit = defaultToolListLimit
	}
	search := strings.ToLower(strings.TrimSpace(filter.Search))

	out := make([]Definition, 0, len(r.defs))
	for _, def := range r.defs {
		if filter.Category != "" && def.Category != filter.Category {
			continue
		}
		if search != "" &&
			!strings.Contains(strings.ToLower(def.Name), search) &&
			!strings.Contains(strings.ToLower(def.Description), search) {
			continue
		}
		out = append(out, def)
	}

	if len(out) > limit {
		out = out[:limit]
	}
	return out
}

// Lookup returns the definition for name
func (r *Registry) Lookup(name string) (Definition, bool) {
	for _, def := range r.defs {
		if def.Name == name {
			return def, true
		}
	}
	return Definition{}, false
}

// Categories returns the distinct categories, sorted
func (r *Registry) Categories() []string {
	seen := make(map[string]bool)
	var out []string
	for _, def := range r.defs {
		if !seen[def.Category] {
			seen[def.Category] = true
			out = append(out, def.Category)
		}
	}
	sort.Strings(out)
	return out
}

// Execute runs the named tool. Tool failures are reported in the Result;
// the error is reserved for an unknown tool.
func (r *Registry) Execute(ctx context.Context, name string, params map[string]interface{}) (*Result, error) {
	if _, ok := r.Lookup(name); !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownTool, name)
	}

	start := time.Now()
	r.logger.Info().Str("tool", name).Msg("Executing tool")

	result := r.dispatch(ctx, name, params)
	result.ExecutionTime = time.Since(start).Seconds()

	event := r.logger.Info()
	if !result.Success {
		event = r.logger.Warn().Str("error", result.Error)
	}
	event.
		Str("tool", name).
		Bool("success", result.Success).
		Dur("duration", time.Since(start)).
		Msg("Tool execution finished")

	return result, nil
}

func (r *Registry) dispatch(ctx context.Context, name string, params map[string]interface{}) *Result {
	switch name {
	case ToolGetAll:
		return itemsResult(r.lists.GetItems(ctx, ""))
	case ToolGetIncomplete:
		return itemsResult(r.lists.GetIncomplete(ctx))
	case ToolGetCompleted:
		return itemsResult(r.lists.GetCompleted(ctx))
	case ToolListLists:
		lists, err := r.lists.ListAllLists(ctx)
		if err != nil {
			return failure(err)
		}
		return &Result{Success: true, Output: lists}
	case ToolCheckAuthStatus:
		return r.checkAuthStatus(ctx)
	case ToolAddItem:
		return r.eachItem(ctx, params, "add", func(ctx context.Context, name string) (string, error) {
			if err := r.lists.AddByName(ctx, name); err != nil {
				return "", err
			}
			return fmt.Sprintf("Item '%s' added successfully.", name), nil
		})
	case ToolDeleteItem:
		return r.eachItem(ctx, params, "delete", func(ctx context.Context, name string) (string, error) {
			if _, err := r.lists.DeleteByName(ctx, name); err != nil {
				return "", err
			}
			return fmt.Sprintf("Item '%s' deleted successfully.", name), nil
		})
	case ToolMarkCompleted:
		return r.eachItem(ctx, params, "mark as completed", func(ctx context.Context, name string) (string, error) {
			if _, err := r.lists.MarkCompletedByName(ctx, name); err != nil {
				return "", err
			}
			return fmt.Sprintf("Item '%s' marked as completed.", name), nil
		})
	case ToolMarkIncomplete:
		return r.eachItem(ctx, params, "mark as incomplete", func(ctx context.Context, name string) (string, error) {
			if _, err := r.lists.MarkIncompleteByName(ctx, name); err != nil {
				return "", err
			}
			return fmt.Sprintf("Item '%s' marked as incomplete.", name), nil
		})
	}
	return failure(fmt.Errorf("%w: %s", ErrUnknownTool, name))
}

// eachItem applies op to every requested name in order. An authentication
// failure stops the batch since every remaining call would fail the same way.
func (r *Registry) eachItem(ctx context.Context, params map[string]interface{}, verb string, op func(context.Context, string) (string, error)) *Result {
	names, err := ItemNames(params)
	if err != nil {
		return failure(err)
	}

	results := make([]ItemResult, 0, len(names))
	allOK := true
	var authErr error
	for _, name := range names {
		if authErr != nil {
			results = append(results, ItemResult{Item: name, Message: authErr.Error()})
			continue
		}
		trimmed := strings.TrimSpace(name)
		if trimmed == "" {
			allOK = false
			results = append(results, ItemResult{Item: name, Message: "Invalid item name"})
			continue
		}

		message, err := op(ctx, trimmed)
		if err != nil {
			allOK = false
			if models.IsAuthFailure(err) {
				authErr = err
			}
			results = append(results, ItemResult{Item: trimmed, Message: err.Error()})
			continue
		}
		results = append(results, ItemResult{Item: trimmed, Success: true, Message: message})
	}

	result := &Result{
		Success: allOK,
		Output:  map[string]interface{}{"results": results},
	}
	if !allOK {
		result.Error = fmt.Sprintf("Some items failed to %s", verb)
		if authErr != nil {
			result.Error = authErr.Error() + ". " + status.ReauthHint
		}
	}
	return result
}

func (r *Registry) checkAuthStatus(ctx context.Context) *Result {
	check := r.prober.RunNow(ctx)

	switch check.Outcome {
	case models.CheckValid:
		return &Result{Success: true, Output: map[string]interface{}{
			"authenticated": true,
			"status":        "valid",
			"message":       "Amazon authentication is valid.",
			"items_count":   check.ItemCount,
		}}
	case models.CheckAuthInvalid:
		return &Result{Success: true, Output: map[string]interface{}{
			"authenticated": false,
			"status":        "expired",
			"message":       "Amazon authentication has expired. Re-authentication required.",
			"instructions":  status.ReauthHint,
		}}
	case models.CheckSkipped:
		return &Result{Success: true, Output: map[string]interface{}{
			"authenticated": false,
			"status":        "absent",
			"message":       "No Amazon session has been captured.",
			"instructions":  status.ReauthHint,
		}}
	default:
		return &Result{
			Success: false,
			Output: map[string]interface{}{
				"authenticated": "unknown",
				"status":        "error",
				"message":       check.Detail,
			},
			Error: fmt.Sprintf("Failed to check authentication status: %s", check.Detail),
		}
	}
}

// ItemNames reads item_name as a single string or an array of strings
func ItemNames(params map[string]interface{}) ([]string, error) {
	raw, ok := params[paramItemName]
	if !ok || raw == nil {
		return nil, fmt.Errorf("%w: Missing required parameter: %s", models.ErrInvalidInput, paramItemName)
	}

	switch v := raw.(type) {
	case string:
		return []string{v}, nil
	case []string:
		if len(v) == 0 {
			return nil, fmt.Errorf("%w: %s must not be empty", models.ErrInvalidInput, paramItemName)
		}
		return v, nil
	case []interface{}:
		if len(v) == 0 {
			return nil, fmt.Errorf("%w: %s must not be empty", models.ErrInvalidInput, paramItemName)
		}
		names := make([]string, len(v))
		for i, elem := range v {
			// Non-string elements become blank names and are reported per item
			if s, ok := elem.(string); ok {
				names[i] = s
			}
		}
		return names, nil
	default:
		return nil, fmt.Errorf("%w: %s must be a string or an array of strings", models.ErrInvalidInput, paramItemName)
	}
}

func itemsResult(items []models.ListItem, err error) *Result {
	if err != nil {
		return failure(err)
	}
	if items == nil {
		items = []models.ListItem{}
	}
	return &Result{Success: true, Output: items}
}

func failure(err error) *Result {
	message := err.Error()
	if models.IsAuthFailure(err) {
		message += ". " + status.ReauthHint
	}
	return &Result{Success: false, Error: message}
}
