package session

import (
	"encoding/hex"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ternarybob/larder/internal/models"
)

func TestEncodeParse_RoundTrip(t *testing.T) {
	cookies := []models.Cookie{
		{Name: "session-id", Value: "131-0000000-1111111", Domain: ".amazon.com", Path: "/", Expires: 1767225600, Secure: true},
		{Name: "ubid-main", Value: "132-2222222", Domain: ".amazon.com", Path: "/"},
		{Name: "csrf", Value: ""},
		{Name: "at-main", Value: "Atza|token", Domain: "www.amazon.com", Path: "/", HTTPOnly: true, SameSite: "Lax"},
	}

	data, err := Encode(cookies)
	require.NoError(t, err)

	got, warnings, err := Parse(data)
	require.NoError(t, err)
	assert.Empty(t, warnings)
	assert.Equal(t, cookies, got)
}

func TestEncode_OmitsEmptyOptionalFields(t *testing.T) {
	data, err := Encode([]models.Cookie{{Name: "a", Value: "1"}})
	require.NoError(t, err)

	var raw []map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &raw))
	require.Len(t, raw, 1)
	assert.Equal(t, map[string]interface{}{"name": "a", "value": "1"}, raw[0])
}

func TestEncode_NilIsEmptyArray(t *testing.T) {
	data, err := Encode(nil)
	require.NoError(t, err)
	assert.JSONEq(t, `[]`, string(data))
}

func TestParse_IgnoresUnknownFields(t *testing.T) {
	payload := `[{"name":"a","value":"1","priority":"High","sourcePort":443,"partitionKey":null}]`

	got, warnings, err := Parse([]byte(payload))
	require.NoError(t, err)
	assert.Empty(t, warnings)
	assert.Equal(t, []models.Cookie{{Name: "a", Value: "1"}}, got)
}

func TestParse_DropsIncompleteRecords(t *testing.T) {
	payload := `[
		{"name":"keep","value":"1"},
		{"name":"no-value"},
		{"value":"no-name"},
		{"name":"","value":"empty-name"},
		{"name":"empty-value","value":""}
	]`

	got, warnings, err := Parse([]byte(payload))
	require.NoError(t, err)
	assert.Len(t, warnings, 3)
	assert.Equal(t, []models.Cookie{
		{Name: "keep", Value: "1"},
		{Name: "empty-value", Value: ""},
	}, got)
}

func TestParse_DuplicateNamesLastWriteWins(t *testing.T) {
	payload := `[
		{"name":"a","value":"first"},
		{"name":"b","value":"2"},
		{"name":"a","value":"second","domain":".amazon.com"}
	]`

	got, warnings, err := Parse([]byte(payload))
	require.NoError(t, err)
	assert.Len(t, warnings, 1)
	assert.Equal(t, []models.Cookie{
		{Name: "a", Value: "second", Domain: ".amazon.com"},
		{Name: "b", Value: "2"},
	}, got)
}

func TestParse_Expires(t *testing.T) {
	payload := `[
		{"name":"num","value":"1","expires":1767225600.5},
		{"name":"str","value":"1","expires":"1767225600"},
		{"name":"session","value":"1","expires":-1},
		{"name":"junk","value":"1","expires":{"at":"never"}}
	]`

	got, _, err := Parse([]byte(payload))
	require.NoError(t, err)
	require.Len(t, got, 4)
	assert.Equal(t, 1767225600.5, got[0].Expires)
	assert.Equal(t, 1767225600.0, got[1].Expires)
	assert.Zero(t, got[2].Expires)
	assert.Zero(t, got[3].Expires)
}

func TestDecode_RejectsUnknownEncodings(t *testing.T) {
	legacy, _ := hex.DecodeString("80049512000000000000007d94288c0161944e8c0162948c017894752e")

	tests := []struct {
		name string
		data []byte
	}{
		{"empty", []byte("")},
		{"whitespace", []byte("  \n\t")},
		{"object", []byte(`{"cookies":[]}`)},
		{"netscape text", []byte("# Netscape HTTP Cookie File\n.amazon.com\tTRUE\t/\tFALSE\t0\ta\t1")},
		{"truncated array", []byte(`[{"name":"a","value":"1"}`)},
		{"legacy pickle", legacy},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode(tt.data)
			assert.ErrorIs(t, err, models.ErrFormat)
		})
	}
}

func TestDecode_AcceptsLeadingWhitespaceAndBOM(t *testing.T) {
	records, err := Decode([]byte("\xef\xbb\xbf\n  [{\"name\":\"a\",\"value\":\"1\"}]"))
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "a", *records[0].Name)
}

func TestNormalize(t *testing.T) {
	in := []models.Cookie{
		{Name: "a", Value: "1", Expires: -1},
		{Name: "", Value: "dropped"},
		{Name: "b", Value: "2"},
		{Name: "a", Value: "3"},
	}

	out, warnings := Normalize(in)
	assert.Len(t, warnings, 2)
	assert.Equal(t, []models.Cookie{{Name: "a", Value: "3"}, {Name: "b", Value: "2"}}, out)

	again, more := Normalize(out)
	assert.Empty(t, more)
	assert.Equal(t, out, again)
}
