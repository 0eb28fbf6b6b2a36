package shoplist

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"

	"github.com/ternarybob/larder/internal/models"
)

// listMetadata is the list descriptor the upstream sometimes returns beside the items
type listMetadata struct {
	ListID string
	Name   string
}

// listResponse is the decoded getlistitems reply
type listResponse struct {
	Items    []models.ListItem
	Metadata *listMetadata
}

// parseListResponse walks the top-level object in document order.
// Items come from the first nested object holding a listItems array
// (a null listItems is an empty list); metadata from the first nested
// object carrying a listId or name.
func parseListResponse(body []byte) (*listResponse, error) {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrShape, err)
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil, fmt.Errorf("%w: top level is not an object", models.ErrShape)
	}

	result := &listResponse{}
	found := false

	for dec.More() {
		if _, err := dec.Token(); err != nil {
			return nil, fmt.Errorf("%w: %v", models.ErrShape, err)
		}

		var value json.RawMessage
		if err := dec.Decode(&value); err != nil {
			return nil, fmt.Errorf("%w: %v", models.ErrShape, err)
		}

		var nested map[string]json.RawMessage
		if err := json.Unmarshal(value, &nested); err != nil || nested == nil {
			continue
		}

		if result.Metadata == nil {
			result.Metadata = metadataFrom(nested)
		}

		if found {
			continue
		}
		raw, ok := nested["listItems"]
		if !ok || !(isArray(raw) || isNull(raw)) {
			continue
		}
		var items []models.ListItem
		if isArray(raw) {
			if err := json.Unmarshal(raw, &items); err != nil {
				return nil, fmt.Errorf("%w: listItems: %v", models.ErrShape, err)
			}
		}
		if items == nil {
			items = []models.ListItem{}
		}
		result.Items = items
		found = true
	}

	if _, err := dec.Token(); err != nil && err != io.EOF {
		return nil, fmt.Errorf("%w: %v", models.ErrShape, err)
	}

	if !found {
		return nil, fmt.Errorf("%w: no listItems collection in response", models.ErrShape)
	}
	return result, nil
}

func metadataFrom(nested map[string]json.RawMessage) *listMetadata {
	var meta listMetadata
	have := false
	if v, ok := nested["listId"]; ok {
		var s string
		if json.Unmarshal(v, &s) == nil {
			meta.ListID = s
			have = true
		}
	}
	if v, ok := nested["name"]; ok {
		var s string
		if json.Unmarshal(v, &s) == nil {
			meta.Name = s
			have = true
		}
	}
	if _, ok := nested["nbestItems"]; ok {
		have = true
	}
	if !have {
		return nil
	}
	return &meta
}

func isArray(v json.RawMessage) bool {
	v = bytes.TrimSpace(v)
	return len(v) > 0 && v[0] == '['
}

func isNull(v json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(v), []byte("null"))
}
