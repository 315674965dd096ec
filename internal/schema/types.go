package schema

import (
	"encoding/json"
	"fmt"
)

type Mode string

const (
	ModeFAQ          Mode = "faq"
	ModeGuidedIntake Mode = "guided_intake"
	ModePlanSummary  Mode = "plan_summary"
	ModeTriage       Mode = "triage"
)

type TriageLevel string

const (
	TriageNone          TriageLevel = "none"
	TriageContactClinic TriageLevel = "contact_clinic"
	TriageUrgent        TriageLevel = "urgent"
	TriageEmergency     TriageLevel = "emergency"
)

type CardType string

const (
	CardRoadmap          CardType = "roadmap"
	CardTestInstructions CardType = "test_instructions"
	CardCostNavigation   CardType = "cost_navigation"
	CardSymptomCheck     CardType = "symptom_check"
	CardChecklist        CardType = "checklist"
	CardQuestionsToAsk   CardType = "questions_to_ask"
	CardHandoff          CardType = "handoff"
)

type ActionType string

const (
	ActionQuickReply   ActionType = "quick_reply"
	ActionNavigate     ActionType = "navigate"
	ActionShareSummary ActionType = "share_summary"
)

// RouteDecision is the (mode, triage level, cards) triple computed for
// each turn before the full answer is generated.
type RouteDecision struct {
	Mode        Mode        `json:"mode"`
	TriageLevel TriageLevel `json:"triage_level"`
	Cards       []CardType  `json:"cards"`
}

type Step struct {
	Label  string `json:"label"`
	Detail string `json:"detail"`
}

type ChecklistEntry struct {
	ID      string  `json:"id"`
	Label   string  `json:"label"`
	Status  string  `json:"status"`
	DueDate *string `json:"due_date"`
}

type TestPrep struct {
	Name         string   `json:"name"`
	Instructions []string `json:"instructions"`
}

type Handoff struct {
	Message  string   `json:"message"`
	Contacts []string `json:"contacts"`
}

// CardContent is the tagged union behind a card. Each card type has
// its own variant; the uniform superset shape exists only on the wire.
type CardContent interface {
	cardType() CardType
}

type RoadmapContent struct {
	Summary string
	Bullets []string
	Steps   []Step
}

type TestInstructionsContent struct {
	Summary string
	Bullets []string
	Tests   []TestPrep
}

type CostNavigationContent struct {
	Summary  string
	CostTips []string
}

type SymptomCheckContent struct {
	Summary  string
	Symptoms []string
}

type ChecklistContent struct {
	Items []ChecklistEntry
}

type QuestionsContent struct {
	Questions []string
}

type HandoffContent struct {
	Handoff   Handoff
	Questions []string
}

func (RoadmapContent) cardType() CardType          { return CardRoadmap }
func (TestInstructionsContent) cardType() CardType { return CardTestInstructions }
func (CostNavigationContent) cardType() CardType   { return CardCostNavigation }
func (SymptomCheckContent) cardType() CardType     { return CardSymptomCheck }
func (ChecklistContent) cardType() CardType        { return CardChecklist }
func (QuestionsContent) cardType() CardType        { return CardQuestionsToAsk }
func (HandoffContent) cardType() CardType          { return CardHandoff }

type Card struct {
	Type    CardType
	Title   string
	Content CardContent
}

type Citation struct {
	CitationKey string  `json:"citation_key"`
	Quote       *string `json:"quote"`
}

type ActionPayload struct {
	Href  *string `json:"href"`
	Value *string `json:"value"`
}

type SuggestedAction struct {
	Label      string        `json:"label"`
	ActionType ActionType    `json:"action_type"`
	Payload    ActionPayload `json:"payload"`
}

// AssistantTurn is the full response contract of one turn.
type AssistantTurn struct {
	Mode             Mode              `json:"mode"`
	AssistantMessage string            `json:"assistant_message"`
	Disclaimer       string            `json:"disclaimer"`
	Citations        []Citation        `json:"citations"`
	UICards          []Card            `json:"ui_cards"`
	SuggestedActions []SuggestedAction `json:"suggested_actions"`
	TriageLevel      TriageLevel       `json:"triage_level"`
}

// wireCardContent is the flattened superset shape shared by all card
// types on the wire: every field always present, unused ones empty.
type wireCardContent struct {
	Summary   string           `json:"summary"`
	Bullets   []string         `json:"bullets"`
	Steps     []Step           `json:"steps"`
	Checklist []ChecklistEntry `json:"checklist"`
	Questions []string         `json:"questions"`
	Tests     []TestPrep       `json:"tests"`
	CostTips  []string         `json:"cost_tips"`
	Symptoms  []string         `json:"symptoms"`
	Handoff   Handoff          `json:"handoff"`
}

type wireCard struct {
	Type    CardType        `json:"type"`
	Title   string          `json:"title"`
	Content wireCardContent `json:"content"`
}

func emptyWireContent() wireCardContent {
	return wireCardContent{
		Bullets:   []string{},
		Steps:     []Step{},
		Checklist: []ChecklistEntry{},
		Questions: []string{},
		Tests:     []TestPrep{},
		CostTips:  []string{},
		Symptoms:  []string{},
		Handoff:   Handoff{Contacts: []string{}},
	}
}

func orEmpty(items []string) []string {
	if items == nil {
		return []string{}
	}
	return items
}

func (c Card) MarshalJSON() ([]byte, error) {
	content := emptyWireContent()
	switch v := c.Content.(type) {
	case RoadmapContent:
		content.Summary = v.Summary
		content.Bullets = orEmpty(v.Bullets)
		if v.Steps != nil {
			content.Steps = v.Steps
		}
	case TestInstructionsContent:
		content.Summary = v.Summary
		content.Bullets = orEmpty(v.Bullets)
		if v.Tests != nil {
			content.Tests = v.Tests
		}
	case CostNavigationContent:
		content.Summary = v.Summary
		content.CostTips = orEmpty(v.CostTips)
	case SymptomCheckContent:
		content.Summary = v.Summary
		content.Symptoms = orEmpty(v.Symptoms)
	case ChecklistContent:
		if v.Items != nil {
			content.Checklist = v.Items
		}
	case QuestionsContent:
		content.Questions = orEmpty(v.Questions)
	case HandoffContent:
		content.Handoff = v.Handoff
		if content.Handoff.Contacts == nil {
			content.Handoff.Contacts = []string{}
		}
		content.Questions = orEmpty(v.Questions)
	case nil:
	default:
		return nil, fmt.Errorf("unknown card content %T", c.Content)
	}
	return json.Marshal(wireCard{Type: c.Type, Title: c.Title, Content: content})
}

func (c *Card) UnmarshalJSON(data []byte) error {
	var wire wireCard
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}
	c.Type = wire.Type
	c.Title = wire.Title
	c.Content = contentFromWire(wire.Type, wire.Content)
	return nil
}

func contentFromWire(cardType CardType, content wireCardContent) CardContent {
	switch cardType {
	case CardRoadmap:
		return RoadmapContent{Summary: content.Summary, Bullets: content.Bullets, Steps: content.Steps}
	case CardTestInstructions:
		return TestInstructionsContent{Summary: content.Summary, Bullets: content.Bullets, Tests: content.Tests}
	case CardCostNavigation:
		return CostNavigationContent{Summary: content.Summary, CostTips: content.CostTips}
	case CardSymptomCheck:
		return SymptomCheckContent{Summary: content.Summary, Symptoms: content.Symptoms}
	case CardChecklist:
		return ChecklistContent{Items: content.Checklist}
	case CardQuestionsToAsk:
		return QuestionsContent{Questions: content.Questions}
	case CardHandoff:
		return HandoffContent{Handoff: content.Handoff, Questions: content.Questions}
	default:
		return nil
	}
}
