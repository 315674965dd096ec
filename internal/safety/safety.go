package safety

import "regexp"

var BaseDisclaimers = []string{
	"This information is general education and not a diagnosis.",
	"Do not change medications or stop prescribed treatment without your clinician.",
	"This tool does not recommend biopsy or individual treatment decisions.",
}

const EscalationAdvice = "These symptoms can be urgent. Please seek immediate medical care or call emergency services in your area."

type redFlagPattern struct {
	pattern *regexp.Regexp
	label   string
}

var redFlagPatterns = []redFlagPattern{
	{regexp.MustCompile(`(?i)chest pain|pressure|tightness`), "Chest pain or pressure"},
	{regexp.MustCompile(`(?i)shortness of breath|trouble breathing|can't breathe`), "Difficulty breathing"},
	{regexp.MustCompile(`(?i)fainting|passed out|syncope`), "Fainting or loss of consciousness"},
	{regexp.MustCompile(`(?i)severe headache|worst headache|sudden headache`), "Severe or sudden headache"},
	{regexp.MustCompile(`(?i)palpitations|racing heart|heart pounding`), "Palpitations or racing heart"},
	{regexp.MustCompile(`(?i)profuse sweating|sweating a lot|drenching sweats`), "Profuse sweating"},
	{regexp.MustCompile(`(?i)confusion|can't think straight|disoriented`), "Sudden confusion"},
	{regexp.MustCompile(`(?i)vision loss|double vision|blurry vision`), "Sudden vision changes"},
	{regexp.MustCompile(`(?i)vomiting blood|black stools|blood in stool`), "Possible internal bleeding"},
	{regexp.MustCompile(`(?i)suicid(al|e)|self-harm|hurt myself`), "Self-harm thoughts"},
}

type RedFlagResult struct {
	HasRedFlags      bool     `json:"has_red_flags"`
	RedFlags         []string `json:"red_flags"`
	EscalationAdvice string   `json:"escalation_advice,omitempty"`
}

// Detect matches the message against the fixed red-flag pattern list.
// Every matching label is collected; a single hit is enough to set the
// escalation advice. Always returns a result.
func Detect(message string) RedFlagResult {
	var hits []string
	for _, item := range redFlagPatterns {
		if item.pattern.MatchString(message) {
			hits = append(hits, item.label)
		}
	}
	if len(hits) == 0 {
		return RedFlagResult{HasRedFlags: false, RedFlags: []string{}}
	}
	return RedFlagResult{
		HasRedFlags:      true,
		RedFlags:         hits,
		EscalationAdvice: EscalationAdvice,
	}
}
