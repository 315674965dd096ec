package schema

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v6"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"
)

const routeDecisionSchemaJSON = `{
  "type": "object",
  "additionalProperties": false,
  "properties": {
    "mode": {"type": "string", "enum": ["faq", "guided_intake", "plan_summary", "triage"]},
    "triage_level": {"type": "string", "enum": ["none", "contact_clinic", "urgent", "emergency"]},
    "cards": {
      "type": "array",
      "items": {
        "type": "string",
        "enum": ["roadmap", "test_instructions", "cost_navigation", "symptom_check", "checklist", "questions_to_ask", "handoff"]
      }
    }
  },
  "required": ["mode", "triage_level", "cards"]
}`

const assistantTurnSchemaJSON = `{
  "type": "object",
  "additionalProperties": false,
  "properties": {
    "mode": {"type": "string", "enum": ["faq", "guided_intake", "plan_summary", "triage"]},
    "assistant_message": {"type": "string"},
    "disclaimer": {"type": "string"},
    "citations": {
      "type": "array",
      "items": {
        "type": "object",
        "additionalProperties": false,
        "properties": {
          "citation_key": {"type": "string"},
          "quote": {"type": ["string", "null"]}
        },
        "required": ["citation_key", "quote"]
      }
    },
    "ui_cards": {
      "type": "array",
      "items": {
        "type": "object",
        "additionalProperties": false,
        "properties": {
          "type": {"type": "string", "enum": ["roadmap", "test_instructions", "cost_navigation", "symptom_check", "checklist", "questions_to_ask", "handoff"]},
          "title": {"type": "string"},
          "content": {
            "type": "object",
            "additionalProperties": false,
            "properties": {
              "summary": {"type": "string"},
              "bullets": {"type": "array", "items": {"type": "string"}},
              "steps": {
                "type": "array",
                "items": {
                  "type": "object",
                  "additionalProperties": false,
                  "properties": {
                    "label": {"type": "string"},
                    "detail": {"type": "string"}
                  },
                  "required": ["label", "detail"]
                }
              },
              "checklist": {
                "type": "array",
                "items": {
                  "type": "object",
                  "additionalProperties": false,
                  "properties": {
                    "id": {"type": "string"},
                    "label": {"type": "string"},
                    "status": {"type": "string", "enum": ["todo", "in_progress", "done"]},
                    "due_date": {"type": ["string", "null"]}
                  },
                  "required": ["id", "label", "status", "due_date"]
                }
              },
              "questions": {"type": "array", "items": {"type": "string"}},
              "tests": {
                "type": "array",
                "items": {
                  "type": "object",
                  "additionalProperties": false,
                  "properties": {
                    "name": {"type": "string"},
                    "instructions": {"type": "array", "items": {"type": "string"}}
                  },
                  "required": ["name", "instructions"]
                }
              },
              "cost_tips": {"type": "array", "items": {"type": "string"}},
              "symptoms": {"type": "array", "items": {"type": "string"}},
              "handoff": {
                "type": "object",
                "additionalProperties": false,
                "properties": {
                  "message": {"type": "string"},
                  "contacts": {"type": "array", "items": {"type": "string"}}
                },
                "required": ["message", "contacts"]
              }
            },
            "required": ["summary", "bullets", "steps", "checklist", "questions", "tests", "cost_tips", "symptoms", "handoff"]
          }
        },
        "required": ["type", "title", "content"]
      }
    },
    "suggested_actions": {
      "type": "array",
      "items": {
        "type": "object",
        "additionalProperties": false,
        "properties": {
          "label": {"type": "string"},
          "action_type": {"type": "string", "enum": ["quick_reply", "navigate", "share_summary"]},
          "payload": {
            "type": "object",
            "additionalProperties": false,
            "properties": {
              "href": {"type": ["string", "null"]},
              "value": {"type": ["string", "null"]}
            },
            "required": ["href", "value"]
          }
        },
        "required": ["label", "action_type", "payload"]
      }
    },
    "triage_level": {"type": "string", "enum": ["none", "contact_clinic", "urgent", "emergency"]}
  },
  "required": ["mode", "assistant_message", "disclaimer", "citations", "ui_cards", "suggested_actions", "triage_level"]
}`

// ResponseSchema names a raw JSON schema for schema-constrained
// completions.
type ResponseSchema struct {
	Name   string
	Schema json.RawMessage
}

func RouteDecisionResponseSchema() ResponseSchema {
	return ResponseSchema{Name: "route_decision", Schema: json.RawMessage(routeDecisionSchemaJSON)}
}

func AssistantTurnResponseSchema() ResponseSchema {
	return ResponseSchema{Name: "assistant_turn", Schema: json.RawMessage(assistantTurnSchemaJSON)}
}

var (
	routeDecisionSchema = mustCompile("route_decision.json", routeDecisionSchemaJSON)
	assistantTurnSchema = mustCompile("assistant_turn.json", assistantTurnSchemaJSON)
)

func mustCompile(name, raw string) *jsonschema.Schema {
	doc, err := jsonschema.UnmarshalJSON(strings.NewReader(raw))
	if err != nil {
		panic(err)
	}
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(name, doc); err != nil {
		panic(err)
	}
	compiled, err := compiler.Compile(name)
	if err != nil {
		panic(err)
	}
	return compiled
}

// parseStructured parses raw model output and validates it against the
// compiled schema. A parse failure triggers one repair pass before
// giving up. Returns false on any remaining failure; callers degrade
// to the deterministic fallback, never surface the error.
func parseStructured(ctx context.Context, payload string, compiled *jsonschema.Schema, name string, dst interface{}) bool {
	logger := logutil.GetLogger(ctx).With(zap.String("schema", name))
	if tryParse(payload, compiled, dst, logger) {
		return true
	}
	repaired := RepairJSONPayload(payload)
	if repaired == "" {
		logger.Warn("structured output unparseable, no repair candidate")
		return false
	}
	if tryParse(repaired, compiled, dst, logger) {
		logger.Info("structured output recovered by repair")
		return true
	}
	return false
}

func tryParse(payload string, compiled *jsonschema.Schema, dst interface{}, logger *zap.Logger) bool {
	doc, err := jsonschema.UnmarshalJSON(strings.NewReader(payload))
	if err != nil {
		logger.Warn("structured output parse failed", zap.Error(err))
		return false
	}
	if err := compiled.Validate(doc); err != nil {
		logger.Warn("structured output validation failed", zap.Error(err))
		return false
	}
	if err := json.Unmarshal([]byte(payload), dst); err != nil {
		logger.Warn("structured output decode failed", zap.Error(err))
		return false
	}
	return true
}

// ParseRouteDecision validates and decodes router output. Nil means
// fall back to the rule-based route.
func ParseRouteDecision(ctx context.Context, payload string) *RouteDecision {
	var decision RouteDecision
	if !parseStructured(ctx, payload, routeDecisionSchema, "route_decision", &decision) {
		return nil
	}
	return &decision
}

// ParseAssistantTurn validates and decodes generator output. Nil means
// fall back to the deterministic turn.
func ParseAssistantTurn(ctx context.Context, payload string) *AssistantTurn {
	var turn AssistantTurn
	if !parseStructured(ctx, payload, assistantTurnSchema, "assistant_turn", &turn) {
		return nil
	}
	return &turn
}
