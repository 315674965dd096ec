package schema

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCardMarshal_FlattensToSupersetShape(t *testing.T) {
	card := Card{
		Type:  CardCostNavigation,
		Title: "Cost and scheduling",
		Content: CostNavigationContent{
			Summary:  "Practical tips",
			CostTips: []string{"Ask about pre-authorization"},
		},
	}
	data, err := json.Marshal(card)
	require.NoError(t, err)

	var wire map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &wire))
	content, ok := wire["content"].(map[string]interface{})
	require.True(t, ok)

	// Every superset field is present even when the variant never
	// sets it, and empty slices stay arrays.
	for _, field := range []string{"summary", "bullets", "steps", "checklist", "questions", "tests", "cost_tips", "symptoms", "handoff"} {
		require.Contains(t, content, field)
	}
	require.Equal(t, []interface{}{}, content["bullets"])
	require.Equal(t, []interface{}{"Ask about pre-authorization"}, content["cost_tips"])
	handoff, ok := content["handoff"].(map[string]interface{})
	require.True(t, ok)
	require.Equal(t, []interface{}{}, handoff["contacts"])
}

func TestCardRoundTrip_RestoresTypedContent(t *testing.T) {
	original := Card{
		Type:  CardHandoff,
		Title: "When to seek care",
		Content: HandoffContent{
			Handoff:   Handoff{Message: "Seek urgent care", Contacts: []string{"Emergency services"}},
			Questions: []string{"Who do I call after hours?"},
		},
	}
	data, err := json.Marshal(original)
	require.NoError(t, err)

	var decoded Card
	require.NoError(t, json.Unmarshal(data, &decoded))
	require.Equal(t, CardHandoff, decoded.Type)
	content, ok := decoded.Content.(HandoffContent)
	require.True(t, ok)
	require.Equal(t, "Seek urgent care", content.Handoff.Message)
	require.Equal(t, []string{"Who do I call after hours?"}, content.Questions)
}

func TestParseRouteDecision_ValidPayload(t *testing.T) {
	payload := `{"mode": "faq", "triage_level": "none", "cards": ["roadmap", "cost_navigation"]}`
	decision := ParseRouteDecision(context.Background(), payload)
	require.NotNil(t, decision)
	require.Equal(t, ModeFAQ, decision.Mode)
	require.Equal(t, TriageNone, decision.TriageLevel)
	require.Equal(t, []CardType{CardRoadmap, CardCostNavigation}, decision.Cards)
}

func TestParseRouteDecision_RejectsUnknownMode(t *testing.T) {
	payload := `{"mode": "chitchat", "triage_level": "none", "cards": []}`
	require.Nil(t, ParseRouteDecision(context.Background(), payload))
}

func TestParseRouteDecision_RepairsProseWrappedPayload(t *testing.T) {
	payload := "Sure! Here you go: {\"mode\": \"triage\", \"triage_level\": \"emergency\", \"cards\": [\"symptom_check\"]}"
	decision := ParseRouteDecision(context.Background(), payload)
	require.NotNil(t, decision)
	require.Equal(t, ModeTriage, decision.Mode)
}

func TestParseAssistantTurn_RejectsMissingFields(t *testing.T) {
	payload := `{"mode": "faq", "assistant_message": "hello"}`
	require.Nil(t, ParseAssistantTurn(context.Background(), payload))
}

func TestParseAssistantTurn_ValidPayload(t *testing.T) {
	payload := `{
		"mode": "faq",
		"assistant_message": "General next steps include hormone testing.",
		"disclaimer": "This is general education.",
		"citations": [{"citation_key": "DOC:guide.pdf|CHUNK:abc|P:1-2", "quote": null}],
		"ui_cards": [],
		"suggested_actions": [],
		"triage_level": "none"
	}`
	turn := ParseAssistantTurn(context.Background(), payload)
	require.NotNil(t, turn)
	require.Equal(t, "General next steps include hormone testing.", turn.AssistantMessage)
	require.Len(t, turn.Citations, 1)
	require.Nil(t, turn.Citations[0].Quote)
}
