package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/larder/internal/models"
)

type fakeLists struct {
	items   []models.ListItem
	added   []string
	err     error
	lists   []models.ListSummary
	missing map[string]bool
}

func (f *fakeLists) GetItems(ctx context.Context, listID string) ([]models.ListItem, error) {
	return f.items, f.err
}

func (f *fakeLists) GetIncomplete(ctx context.Context) ([]models.ListItem, error) {
	if f.err != nil {
		return nil, f.err
	}
	var out []models.ListItem
	for _, it := range f.items {
		if !it.Completed {
			out = append(out, it)
		}
	}
	return out, nil
}

func (f *fakeLists) GetCompleted(ctx context.Context) ([]models.ListItem, error) {
	return nil, f.err
}

func (f *fakeLists) ListAllLists(ctx context.Context) ([]models.ListSummary, error) {
	return f.lists, f.err
}

func (f *fakeLists) AddByName(ctx context.Context, name string) error {
	if f.err != nil {
		return f.err
	}
	f.added = append(f.added, name)
	return nil
}

func (f *fakeLists) byName(name string) (*models.ListItem, error) {
	if f.err != nil {
		return nil, f.err
	}
	if f.missing[strings.ToLower(name)] {
		return nil, fmt.Errorf("%w: Item '%s' not found.", models.ErrItemNotFound, name)
	}
	return &models.ListItem{ID: "1", Value: name}, nil
}

func (f *fakeLists) DeleteByName(ctx context.Context, name string) (*models.ListItem, error) {
	return f.byName(name)
}

func (f *fakeLists) MarkCompletedByName(ctx context.Context, name string) (*models.ListItem, error) {
	return f.byName(name)
}

func (f *fakeLists) MarkIncompleteByName(ctx context.Context, name string) (*models.ListItem, error) {
	return f.byName(name)
}

type fakeProber struct {
	check *models.SessionCheck
}

func (f *fakeProber) RunNow(ctx context.Context) *models.SessionCheck {
	return f.check
}

func newRegistry(lists *fakeLists, check *models.SessionCheck) *Registry {
	return NewRegistry(lists, &fakeProber{check: check}, arbor.NewLogger())
}

func itemResults(t *testing.T, result *Result) []ItemResult {
	t.Helper()
	output, ok := result.Output.(map[string]interface{})
	require.True(t, ok)
	results, ok := output["results"].([]ItemResult)
	require.True(t, ok)
	return results
}

func TestList_FiltersAndLimits(t *testing.T) {
	r := newRegistry(&fakeLists{}, nil)

	all := r.List(Filter{})
	assert.Len(t, all, 9)
	assert.Equal(t, ToolGetAll, all[0].Name)

	assert.Len(t, r.List(Filter{Category: CategoryShopping}), 9)
	assert.Empty(t, r.List(Filter{Category: "weather"}))

	byName := r.List(Filter{Search: "COMPLETED"})
	names := make([]string, 0, len(byName))
	for _, def := range byName {
		names = append(names, def.Name)
	}
	assert.Contains(t, names, ToolGetCompleted)
	assert.Contains(t, names, ToolMarkCompleted)
	assert.NotContains(t, names, ToolListLists)

	// Description matches count too
	assert.NotEmpty(t, r.List(Filter{Search: "re-authentication"}))

	assert.Len(t, r.List(Filter{Limit: 2}), 2)
	assert.Equal(t, []string{CategoryShopping}, r.Categories())
}

func TestDefinitions_ItemNameSchema(t *testing.T) {
	r := newRegistry(&fakeLists{}, nil)

	def, ok := r.Lookup(ToolAddItem)
	require.True(t, ok)

	data, err := json.Marshal(def.Parameters)
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"type": "object",
		"properties": {
			"item_name": {
				"type": ["string", "array"],
				"description": "Single item name (string) or list of item names (array of strings)",
				"items": {"type": "string"}
			}
		},
		"required": ["item_name"]
	}`, string(data))

	_, ok = r.Lookup("nope")
	assert.False(t, ok)
}

func TestExecute_UnknownTool(t *testing.T) {
	r := newRegistry(&fakeLists{}, nil)

	_, err := r.Execute(context.Background(), "make_coffee", nil)
	assert.ErrorIs(t, err, ErrUnknownTool)
}

func TestExecute_GetIncomplete(t *testing.T) {
	lists := &fakeLists{items: []models.ListItem{
		{ID: "1", Value: "milk"},
		{ID: "2", Value: "eggs", Completed: true},
	}}
	r := newRegistry(lists, nil)

	result, err := r.Execute(context.Background(), ToolGetIncomplete, nil)
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.GreaterOrEqual(t, result.ExecutionTime, 0.0)

	items, ok := result.Output.([]models.ListItem)
	require.True(t, ok)
	require.Len(t, items, 1)
	assert.Equal(t, "milk", items[0].Value)
}

func TestExecute_EmptyListIsEmptyArray(t *testing.T) {
	r := newRegistry(&fakeLists{}, nil)

	result, err := r.Execute(context.Background(), ToolGetCompleted, nil)
	require.NoError(t, err)

	data, err := json.Marshal(result.Output)
	require.NoError(t, err)
	assert.Equal(t, "[]", string(data))
}

func TestExecute_AddAcceptsStringOrArray(t *testing.T) {
	lists := &fakeLists{}
	r := newRegistry(lists, nil)

	result, err := r.Execute(context.Background(), ToolAddItem, map[string]interface{}{"item_name": " bread "})
	require.NoError(t, err)
	assert.True(t, result.Success)

	result, err = r.Execute(context.Background(), ToolAddItem, map[string]interface{}{
		"item_name": []interface{}{"milk", "eggs"},
	})
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, []string{"bread", "milk", "eggs"}, lists.added)

	results := itemResults(t, result)
	require.Len(t, results, 2)
	assert.Equal(t, "Item 'eggs' added successfully.", results[1].Message)
}

func TestExecute_PartialFailure(t *testing.T) {
	lists := &fakeLists{missing: map[string]bool{"ghost": true}}
	r := newRegistry(lists, nil)

	result, err := r.Execute(context.Background(), ToolDeleteItem, map[string]interface{}{
		"item_name": []interface{}{"milk", "Ghost", "  ", 42},
	})
	require.NoError(t, err)
	assert.False(t, result.Success)
	assert.Equal(t, "Some items failed to delete", result.Error)

	results := itemResults(t, result)
	require.Len(t, results, 4)
	assert.True(t, results[0].Success)
	assert.False(t, results[1].Success)
	assert.Contains(t, results[1].Message, "not found")
	assert.Equal(t, "Invalid item name", results[2].Message)
	assert.Equal(t, "Invalid item name", results[3].Message)
}

func TestExecute_MissingItemName(t *testing.T) {
	r := newRegistry(&fakeLists{}, nil)

	for _, params := range []map[string]interface{}{
		nil,
		{"item_name": nil},
		{"item_name": []interface{}{}},
		{"item_name": 12},
	} {
		result, err := r.Execute(context.Background(), ToolMarkCompleted, params)
		require.NoError(t, err)
		assert.False(t, result.Success)
		assert.Contains(t, result.Error, "item_name")
	}
}

func TestExecute_AuthFailureStopsBatch(t *testing.T) {
	lists := &fakeLists{err: models.ErrUnauthenticated}
	r := newRegistry(lists, nil)

	result, err := r.Execute(context.Background(), ToolAddItem, map[string]interface{}{
		"item_name": []string{"milk", "eggs"},
	})
	require.NoError(t, err)
	assert.False(t, result.Success)
	assert.Contains(t, result.Error, "larder-login")

	results := itemResults(t, result)
	require.Len(t, results, 2)
	assert.False(t, results[1].Success)
}

func TestExecute_ReadFailureCarriesHint(t *testing.T) {
	r := newRegistry(&fakeLists{err: models.ErrAuthInvalid}, nil)

	result, err := r.Execute(context.Background(), ToolGetAll, nil)
	require.NoError(t, err)
	assert.False(t, result.Success)
	assert.Contains(t, result.Error, "larder-login")

	r = newRegistry(&fakeLists{err: models.ErrTransient}, nil)
	result, err = r.Execute(context.Background(), ToolListLists, nil)
	require.NoError(t, err)
	assert.False(t, result.Success)
	assert.NotContains(t, result.Error, "larder-login")
}

func TestExecute_CheckAuthStatus(t *testing.T) {
	tests := []struct {
		name          string
		check         *models.SessionCheck
		success       bool
		authenticated interface{}
		status        string
	}{
		{"valid", &models.SessionCheck{Outcome: models.CheckValid, ItemCount: 3}, true, true, "valid"},
		{"expired", &models.SessionCheck{Outcome: models.CheckAuthInvalid}, true, false, "expired"},
		{"absent", &models.SessionCheck{Outcome: models.CheckSkipped}, true, false, "absent"},
		{"transient", &models.SessionCheck{Outcome: models.CheckTransient, Detail: "timed out"}, false, "unknown", "error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newRegistry(&fakeLists{}, tt.check)

			result, err := r.Execute(context.Background(), ToolCheckAuthStatus, nil)
			require.NoError(t, err)
			assert.Equal(t, tt.success, result.Success)

			output, ok := result.Output.(map[string]interface{})
			require.True(t, ok)
			assert.Equal(t, tt.authenticated, output["authenticated"])
			assert.Equal(t, tt.status, output["status"])
			if tt.authenticated == false {
				assert.NotEmpty(t, output["instructions"])
			}
		})
	}
}

func TestItemNames(t *testing.T) {
	names, err := ItemNames(map[string]interface{}{"item_name": []string{"a", "b"}})
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, names)

	_, err = ItemNames(map[string]interface{}{})
	assert.ErrorIs(t, err, models.ErrInvalidInput)
}
