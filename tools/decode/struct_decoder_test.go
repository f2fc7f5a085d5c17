package decode

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

type samplePayload struct {
	ChatID string `json:"chatId"`
	Text   string `json:"text"`
	Limit  int64  `json:"limit"`
}

func TestMapDecodesByJSONTag(t *testing.T) {
	got, err := Map[samplePayload](map[string]any{
		"chatId": "abc",
		"text":   "hello",
	})
	require.NoError(t, err)
	require.Equal(t, "abc", got.ChatID)
	require.Equal(t, "hello", got.Text)
}

func TestMapCoercesJSONNumbers(t *testing.T) {
	// json.Unmarshal into map[string]any yields float64 for numbers.
	got, err := Map[samplePayload](map[string]any{"limit": float64(50)})
	require.NoError(t, err)
	require.EqualValues(t, 50, got.Limit)
}

func TestMapIgnoresUnknownFields(t *testing.T) {
	got, err := Map[samplePayload](map[string]any{
		"chatId":  "abc",
		"unknown": true,
	})
	require.NoError(t, err)
	require.Equal(t, "abc", got.ChatID)
}

func TestMapRejectsNilPayload(t *testing.T) {
	_, err := Map[samplePayload](nil)
	require.Error(t, err)
}

func TestRawDecodes(t *testing.T) {
	got, err := Raw[samplePayload](json.RawMessage(`{"chatId":"abc","limit":7}`))
	require.NoError(t, err)
	require.Equal(t, "abc", got.ChatID)
	require.EqualValues(t, 7, got.Limit)
}
