package service

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/careflow/adrenav/internal/safety"
	"github.com/careflow/adrenav/internal/schema"
)

func TestDecideRoute_RedFlagOverridesEverything(t *testing.T) {
	decision := DecideRoute("I want a checklist but I have chest pain")
	require.Equal(t, schema.ModeTriage, decision.Mode)
	require.Equal(t, schema.TriageEmergency, decision.TriageLevel)
	require.Equal(t, []schema.CardType{schema.CardSymptomCheck, schema.CardHandoff}, decision.Cards)
}

func TestDecideRoute_PlanSummaryKeywords(t *testing.T) {
	for _, message := range []string{"show me my checklist", "what is the plan", "give me a summary"} {
		decision := DecideRoute(message)
		require.Equal(t, schema.ModePlanSummary, decision.Mode, message)
		require.Equal(t, schema.TriageNone, decision.TriageLevel)
		require.Equal(t, []schema.CardType{schema.CardChecklist, schema.CardQuestionsToAsk, schema.CardRoadmap}, decision.Cards)
	}
}

func TestDecideRoute_IntakeKeywords(t *testing.T) {
	decision := DecideRoute("help me schedule my visit")
	require.Equal(t, schema.ModeGuidedIntake, decision.Mode)
	require.Equal(t, []schema.CardType{schema.CardSymptomCheck, schema.CardChecklist, schema.CardQuestionsToAsk}, decision.Cards)
}

func TestDecideRoute_TestTopics(t *testing.T) {
	for _, message := range []string{"how do I prep for the dexamethasone dose", "what is an ARR", "cortisol labs"} {
		decision := DecideRoute(message)
		require.Equal(t, schema.ModeFAQ, decision.Mode, message)
		require.Equal(t, []schema.CardType{schema.CardTestInstructions, schema.CardRoadmap, schema.CardCostNavigation}, decision.Cards, message)
	}
}

func TestDecideRoute_Default(t *testing.T) {
	decision := DecideRoute("what happens next with my nodule referral")
	require.Equal(t, schema.ModeFAQ, decision.Mode)
	require.Equal(t, []schema.CardType{schema.CardRoadmap, schema.CardCostNavigation}, decision.Cards)
}

func TestDecideRoute_RuleOrderIsFirstMatch(t *testing.T) {
	// Mentions both plan and schedule; the plan rule comes first.
	decision := DecideRoute("plan my schedule")
	require.Equal(t, schema.ModePlanSummary, decision.Mode)
}

func TestSanitizeUserMessage_TrimsAndCaps(t *testing.T) {
	require.Equal(t, "hello", SanitizeUserMessage("  hello  "))
	long := strings.Repeat("x", 2000)
	require.Len(t, SanitizeUserMessage(long), maxUserMessageChars)
}

func newFallbackDialogue() *DialogueService {
	knowledge := NewKnowledgeService(nil, nil, nil)
	appConfig := NewAppConfigService(nil)
	return NewDialogueService(knowledge, appConfig, nil, 6)
}

func TestRunTurn_EmptyMessageRejected(t *testing.T) {
	svc := newFallbackDialogue()
	_, err := svc.RunTurn(context.Background(), TurnRequest{UserMessage: "   "})
	require.Error(t, err)
}

func TestRunTurn_FallbackProducesCompleteTurn(t *testing.T) {
	svc := newFallbackDialogue()
	turn, err := svc.RunTurn(context.Background(), TurnRequest{SessionID: "s1", UserMessage: "what happens next?"})
	require.NoError(t, err)
	require.Equal(t, schema.ModeFAQ, turn.Mode)
	require.Equal(t, schema.TriageNone, turn.TriageLevel)
	require.NotEmpty(t, turn.AssistantMessage)
	require.Equal(t, safety.BaseDisclaimers[0]+" "+safety.BaseDisclaimers[1], turn.Disclaimer)
	require.Len(t, turn.SuggestedActions, 3)
	require.Len(t, turn.UICards, 2)
	require.Equal(t, schema.CardRoadmap, turn.UICards[0].Type)
	require.Equal(t, "Typical care roadmap", turn.UICards[0].Title)
	require.LessOrEqual(t, len(turn.Citations), 3)
	require.NotEmpty(t, turn.Citations)
	for _, citation := range turn.Citations {
		require.Nil(t, citation.Quote)
	}
}

func TestRunTurn_RedFlagForcesTriage(t *testing.T) {
	svc := newFallbackDialogue()
	turn, err := svc.RunTurn(context.Background(), TurnRequest{UserMessage: "severe headache and I passed out"})
	require.NoError(t, err)
	require.Equal(t, schema.ModeTriage, turn.Mode)
	require.Equal(t, schema.TriageEmergency, turn.TriageLevel)
	require.Len(t, turn.UICards, 2)
	require.Equal(t, schema.CardSymptomCheck, turn.UICards[0].Type)
	require.Equal(t, schema.CardHandoff, turn.UICards[1].Type)
	require.Contains(t, turn.AssistantMessage, "urgent")
}

func TestRunTurn_BiopsyGuardrail(t *testing.T) {
	svc := newFallbackDialogue()
	turn, err := svc.RunTurn(context.Background(), TurnRequest{UserMessage: "do I need a biopsy?"})
	require.NoError(t, err)
	require.Contains(t, turn.AssistantMessage, "not usually the first step")
	require.NotContains(t, strings.ToLower(turn.AssistantMessage), "you need a biopsy")
}

func TestRunTurn_SurgeryAnswerStaysGeneral(t *testing.T) {
	svc := newFallbackDialogue()
	turn, err := svc.RunTurn(context.Background(), TurnRequest{UserMessage: "will I need surgery"})
	require.NoError(t, err)
	require.Contains(t, turn.AssistantMessage, "depends on imaging features and hormone results")
}

func TestRunTurn_DSTAnswer(t *testing.T) {
	svc := newFallbackDialogue()
	turn, err := svc.RunTurn(context.Background(), TurnRequest{UserMessage: "how does the DST work"})
	require.NoError(t, err)
	require.Contains(t, turn.AssistantMessage, "DST prep")
	require.Equal(t, schema.CardTestInstructions, turn.UICards[0].Type)
}

func TestFallbackCardContent_ChecklistItems(t *testing.T) {
	content, ok := fallbackCardContent(schema.CardChecklist, "", "").(schema.ChecklistContent)
	require.True(t, ok)
	require.Len(t, content.Items, 3)
	for _, item := range content.Items {
		require.Equal(t, "todo", item.Status)
		require.Nil(t, item.DueDate)
	}
}

func TestFallbackCardContent_HandoffUsesClinicGuidance(t *testing.T) {
	content, ok := fallbackCardContent(schema.CardHandoff, "Call our triage line at 555-0100.", "").(schema.HandoffContent)
	require.True(t, ok)
	require.Equal(t, "Call our triage line at 555-0100.", content.Handoff.Message)
	require.Len(t, content.Handoff.Contacts, 2)
}

func TestFallbackCardContent_RoadmapIncludesWhatToBring(t *testing.T) {
	content, ok := fallbackCardContent(schema.CardRoadmap, "", "insurance card and prior imaging").(schema.RoadmapContent)
	require.True(t, ok)
	require.Equal(t, []string{"What to bring: insurance card and prior imaging"}, content.Bullets)
	require.Len(t, content.Steps, 3)
}

func TestGuardTurn_FiltersAndFallsBack(t *testing.T) {
	chunks := []RetrievalChunk{
		{ChunkID: "c1", CitationKey: "DOC:guide.pdf|CHUNK:c1|P:1-1"},
		{ChunkID: "c2", CitationKey: "DOC:guide.pdf|CHUNK:c2|P:2-2"},
	}
	turn := &schema.AssistantTurn{
		Mode:             schema.ModeFAQ,
		AssistantMessage: "Testing is common.",
		Citations: []schema.Citation{
			{CitationKey: "DOC:fabricated.pdf|CHUNK:zz|P:9-9"},
		},
		TriageLevel: schema.TriageNone,
	}
	guarded := guardTurn(turn, chunks)
	// The made-up citation is dropped and the turn falls back to the
	// top retrieved chunks.
	require.Len(t, guarded.Citations, 2)
	require.Equal(t, "DOC:guide.pdf|CHUNK:c1|P:1-1", guarded.Citations[0].CitationKey)
	require.NotEmpty(t, guarded.Disclaimer)
}

func TestGuardTurn_RecoversInlineCitations(t *testing.T) {
	chunks := []RetrievalChunk{
		{ChunkID: "c1", CitationKey: "DOC:guide.pdf|CHUNK:c1|P:1-1"},
	}
	turn := &schema.AssistantTurn{
		Mode:             schema.ModeFAQ,
		AssistantMessage: "Hormone labs are typical [DOC:guide.pdf|CHUNK:c1|P:1-1] in a workup.",
		TriageLevel:      schema.TriageNone,
	}
	guarded := guardTurn(turn, chunks)
	require.Equal(t, "Hormone labs are typical in a workup.", guarded.AssistantMessage)
	require.Len(t, guarded.Citations, 1)
	require.Equal(t, "DOC:guide.pdf|CHUNK:c1|P:1-1", guarded.Citations[0].CitationKey)
}

func TestGuardTurn_ExtractsLeakedDisclaimer(t *testing.T) {
	turn := &schema.AssistantTurn{
		Mode:             schema.ModeFAQ,
		AssistantMessage: "Follow-up is common. Disclaimer: General education only.",
		TriageLevel:      schema.TriageNone,
	}
	guarded := guardTurn(turn, nil)
	require.Equal(t, "Follow-up is common.", guarded.AssistantMessage)
	require.Equal(t, "General education only.", guarded.Disclaimer)
}
