package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// ListItem is one row on the upstream shopping list.
// The full upstream record is kept so updates can echo it back unchanged.
type ListItem struct {
	ID        string `json:"id"`
	Value     string `json:"value"`
	Completed bool   `json:"completed"`
	ListID    string `json:"listId"`

	raw map[string]json.RawMessage
}

// UnmarshalJSON keeps every upstream field and lifts the known ones.
// The id may arrive as a string or a number.
func (i *ListItem) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	item := ListItem{raw: raw}

	if v, ok := raw["id"]; ok {
		id, err := scalarString(v)
		if err != nil {
			return fmt.Errorf("item id: %w", err)
		}
		item.ID = id
	}
	if v, ok := raw["value"]; ok {
		if err := json.Unmarshal(v, &item.Value); err != nil {
			return fmt.Errorf("item value: %w", err)
		}
	}
	if v, ok := raw["completed"]; ok && !isNull(v) {
		if err := json.Unmarshal(v, &item.Completed); err != nil {
			return fmt.Errorf("item completed: %w", err)
		}
	}
	if v, ok := raw["listId"]; ok {
		listID, err := scalarString(v)
		if err != nil {
			return fmt.Errorf("item listId: %w", err)
		}
		item.ListID = listID
	}

	*i = item
	return nil
}

// MarshalJSON emits the upstream record as received, or the known fields for a locally built item
func (i ListItem) MarshalJSON() ([]byte, error) {
	if len(i.raw) > 0 {
		return json.Marshal(i.raw)
	}
	type plain ListItem
	return json.Marshal(plain(i))
}

// Raw returns the upstream field value, if present
func (i *ListItem) Raw(field string) (json.RawMessage, bool) {
	v, ok := i.raw[field]
	return v, ok
}

// UpstreamPayload returns the upstream record with completed overwritten.
// Every other field value is passed through as received.
func (i *ListItem) UpstreamPayload(completed bool) map[string]json.RawMessage {
	out := make(map[string]json.RawMessage, len(i.raw)+4)
	for k, v := range i.raw {
		out[k] = v
	}
	if len(i.raw) == 0 {
		// Item was built locally rather than decoded from a response
		out["id"] = mustMarshal(i.ID)
		out["value"] = mustMarshal(i.Value)
		out["listId"] = mustMarshal(i.ListID)
	}
	out["completed"] = mustMarshal(completed)
	return out
}

// RawString returns a string-or-number upstream field as text
func (i *ListItem) RawString(field string) string {
	v, ok := i.Raw(field)
	if !ok {
		return ""
	}
	s, err := scalarString(v)
	if err != nil {
		return ""
	}
	return s
}

// ListSummary is a list derived by grouping items on listId
type ListSummary struct {
	ListID          string `json:"listId"`
	Name            string `json:"name"`
	CustomerID      string `json:"customerId,omitempty"`
	ItemCount       int    `json:"itemCount"`
	IncompleteCount int    `json:"incompleteCount"`
	CompletedCount  int    `json:"completedCount"`
	IsPrimary       bool   `json:"isPrimary"`
}

func scalarString(v json.RawMessage) (string, error) {
	v = bytes.TrimSpace(v)
	if isNull(v) {
		return "", nil
	}
	if len(v) > 0 && v[0] == '"' {
		var s string
		if err := json.Unmarshal(v, &s); err != nil {
			return "", err
		}
		return s, nil
	}
	var n json.Number
	if err := json.Unmarshal(v, &n); err != nil {
		return "", err
	}
	if _, err := strconv.ParseFloat(n.String(), 64); err != nil {
		return "", err
	}
	return n.String(), nil
}

func isNull(v json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(v), []byte("null"))
}

func mustMarshal(v interface{}) json.RawMessage {
	b, err := EncodeJSON(v)
	if err != nil {
		panic(err)
	}
	return b
}

// EncodeJSON marshals v without HTML escaping, so characters such as & < >
// in upstream values are sent as they were received.
func EncodeJSON(v interface{}) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}
