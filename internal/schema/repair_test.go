package schema

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRepairJSONPayload_StripsSurroundingProse(t *testing.T) {
	payload := "Here is the answer:\n{\"mode\": \"faq\"}\nHope that helps."
	repaired := RepairJSONPayload(payload)
	require.Equal(t, `{"mode": "faq"}`, repaired)
}

func TestRepairJSONPayload_EscapesNewlinesInsideStrings(t *testing.T) {
	payload := "{\"assistant_message\": \"line one\nline two\"}"
	repaired := RepairJSONPayload(payload)

	var decoded map[string]string
	require.NoError(t, json.Unmarshal([]byte(repaired), &decoded))
	require.Equal(t, "line one\nline two", decoded["assistant_message"])
}

func TestRepairJSONPayload_CollapsesCRLF(t *testing.T) {
	payload := "{\"text\": \"a\r\nb\"}"
	repaired := RepairJSONPayload(payload)
	require.Equal(t, `{"text": "a\nb"}`, repaired)
}

func TestRepairJSONPayload_PreservesExistingEscapes(t *testing.T) {
	payload := `{"text": "quote \" and slash \\"}`
	repaired := RepairJSONPayload(payload)
	require.Equal(t, payload, repaired)
}

func TestRepairJSONPayload_NewlinesOutsideStringsUntouched(t *testing.T) {
	payload := "{\n\"a\": 1\n}"
	require.Equal(t, payload, RepairJSONPayload(payload))
}

func TestRepairJSONPayload_NoCandidate(t *testing.T) {
	require.Empty(t, RepairJSONPayload(""))
	require.Empty(t, RepairJSONPayload("no braces here"))
	require.Empty(t, RepairJSONPayload("} reversed {"))
}
