package session

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/go-playground/validator/v10"

	"github.com/ternarybob/larder/internal/models"
)

var validate = validator.New()

// Record is one cookie as it appears on the wire.
// Pointer fields distinguish an absent key from an empty value.
type Record struct {
	Name     *string     `json:"name" validate:"required"`
	Value    *string     `json:"value" validate:"required"`
	Domain   string      `json:"domain,omitempty"`
	Path     string      `json:"path,omitempty"`
	Expires  interface{} `json:"expires,omitempty"`
	Secure   bool        `json:"secure,omitempty"`
	HTTPOnly bool        `json:"httpOnly,omitempty"`
	SameSite string      `json:"sameSite,omitempty"`
}

// Encode writes cookies in the transport format: an indented JSON array.
// Optional fields are omitted when empty.
func Encode(cookies []models.Cookie) ([]byte, error) {
	if cookies == nil {
		cookies = []models.Cookie{}
	}
	data, err := json.MarshalIndent(cookies, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode cookies: %w", err)
	}
	return append(data, '\n'), nil
}

// Decode reads a transport payload into raw records.
// Only the JSON array form is accepted; anything else is models.ErrFormat.
// Unknown fields are ignored.
func Decode(data []byte) ([]Record, error) {
	data = bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))
	trimmed := bytes.TrimSpace(data)

	if len(trimmed) == 0 {
		return nil, fmt.Errorf("%w: empty payload", models.ErrFormat)
	}
	if trimmed[0] == pickleProto {
		return nil, fmt.Errorf("%w: legacy pickle payload, run 'larder-login migrate' to convert it", models.ErrFormat)
	}
	if trimmed[0] != '[' {
		return nil, fmt.Errorf("%w: expected a JSON array of cookie records", models.ErrFormat)
	}

	var records []Record
	if err := json.Unmarshal(trimmed, &records); err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrFormat, err)
	}
	return records, nil
}

// Parse decodes a transport payload and normalizes it.
// Warnings describe records that were dropped.
func Parse(data []byte) ([]models.Cookie, []string, error) {
	records, err := Decode(data)
	if err != nil {
		return nil, nil, err
	}
	cookies, warnings := FromRecords(records)
	return cookies, warnings, nil
}

// FromRecords validates wire records and converts them.
// Records missing name or value are dropped with a warning, duplicates collapse (see Normalize).
func FromRecords(records []Record) ([]models.Cookie, []string) {
	var warnings []string
	cookies := make([]models.Cookie, 0, len(records))

	for i, r := range records {
		if err := validate.Struct(r); err != nil {
			warnings = append(warnings, fmt.Sprintf("record %d dropped: missing name or value", i))
			continue
		}

		cookies = append(cookies, models.Cookie{
			Name:     *r.Name,
			Value:    *r.Value,
			Domain:   r.Domain,
			Path:     r.Path,
			Expires:  expiresSeconds(r.Expires),
			Secure:   r.Secure,
			HTTPOnly: r.HTTPOnly,
			SameSite: r.SameSite,
		})
	}

	normalized, more := Normalize(cookies)
	return normalized, append(warnings, more...)
}

// Normalize drops nameless cookies and collapses duplicate names.
// The last record for a name wins but keeps the position of the first, so output order is deterministic.
func Normalize(cookies []models.Cookie) ([]models.Cookie, []string) {
	var warnings []string
	out := make([]models.Cookie, 0, len(cookies))
	position := make(map[string]int, len(cookies))

	for i, c := range cookies {
		if c.Name == "" {
			warnings = append(warnings, fmt.Sprintf("record %d dropped: empty name", i))
			continue
		}
		if c.Expires < 0 {
			// Browsers report session cookies as -1
			c.Expires = 0
		}
		if pos, ok := position[c.Name]; ok {
			warnings = append(warnings, fmt.Sprintf("duplicate cookie %q: later record wins", c.Name))
			out[pos] = c
			continue
		}
		position[c.Name] = len(out)
		out = append(out, c)
	}

	return out, warnings
}

// expiresSeconds accepts a number or a numeric string. Anything else means no expiry.
func expiresSeconds(v interface{}) float64 {
	switch e := v.(type) {
	case float64:
		if e > 0 {
			return e
		}
	case string:
		if f, err := strconv.ParseFloat(e, 64); err == nil && f > 0 {
			return f
		}
	}
	return 0
}
