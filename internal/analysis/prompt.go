package analysis

import (
	"encoding/json"
	"fmt"
	"strings"
)

// DefaultPersona frames the analysis when the caller names none.
const DefaultPersona = "General Data Analyst"

// Personas are the viewpoints offered in pickers. Any other non-empty label
// is passed through unchanged.
var Personas = []string{
	DefaultPersona,
	"Business Strategist",
	"Financial Analyst",
	"Marketing Analyst",
	"Operations Manager",
	"School Administrator",
}

const systemTemplate = `You are an expert %[1]s. Your goal is to analyze the provided dataset description (or raw data samples) and provide immediate, actionable business intelligence from the point of view of a %[1]s.

YOUR TASKS:
1.  **Infer Context**: Instantly identify if this is 'Student Attendance', 'Sales Leads', 'Inventory', etc.
2.  **Calculate Metrics**: unique counts, percentages of status (e.g., "80%% Present"), or top performers.
3.  **Visualize**: propose up to three charts whose data points are the figures you calculated.
4.  **Strategic Goal**: Based on current performance, recommend a specific, numerical data-driven goal for the next quarter (e.g., "Target 95%% Attendance").
5.  **Strategy**: Provide a one-sentence strategy to achieve that goal.

You must return the response in strict JSON format matching the schema provided.`

// SystemInstruction returns the analyst instruction framed for persona.
func SystemInstruction(persona string) string {
	p := strings.TrimSpace(persona)
	if p == "" {
		p = DefaultPersona
	}
	return fmt.Sprintf(systemTemplate, p)
}

const schemaDoc = `{
  "type": "object",
  "properties": {
    "inferredType": {"type": "string", "description": "The specific type of data, e.g., 'Student Attendance', 'Sales Inventory', 'Web Traffic'"},
    "summary": {"type": "string", "description": "A concise, executive summary of what this data represents and key insights."},
    "keyMetrics": {
      "type": "array",
      "description": "3-4 key numbers or percentages derived from the data context.",
      "items": {
        "type": "object",
        "properties": {
          "label": {"type": "string", "description": "Label for the metric, e.g. 'Attendance Rate'"},
          "value": {"type": "string", "description": "Value, e.g. '85%'"},
          "trend": {"type": "string", "enum": ["up", "down", "neutral"], "description": "Visual trend indicator"}
        },
        "required": ["label", "value", "trend"]
      }
    },
    "charts": {
      "type": "array",
      "description": "Up to three charts built from the calculated figures.",
      "items": {
        "type": "object",
        "properties": {
          "title": {"type": "string"},
          "chartType": {"type": "string", "enum": ["bar", "line", "pie", "area"]},
          "xAxisKey": {"type": "string", "description": "Key of the category field in data, normally 'name'"},
          "dataKey": {"type": "string", "description": "Key of the numeric field in data, normally 'value'"},
          "description": {"type": "string"},
          "data": {
            "type": "array",
            "items": {
              "type": "object",
              "properties": {
                "name": {"type": "string"},
                "value": {"type": "number"}
              },
              "required": ["name", "value"]
            }
          }
        },
        "required": ["title", "chartType", "xAxisKey", "dataKey", "data"]
      }
    },
    "recommendation": {
      "type": "object",
      "description": "A strategic recommendation for the future.",
      "properties": {
        "goal": {"type": "string", "description": "A specific numerical goal for the next quarter, e.g., 'Target 95% Attendance Rate'"},
        "strategy": {"type": "string", "description": "A brief strategic action to achieve this goal."}
      },
      "required": ["goal", "strategy"]
    },
    "pythonCode": {"type": "string", "description": "Python pandas code to analyze this data."}
  },
  "required": ["inferredType", "summary", "keyMetrics", "recommendation"]
}`

// Schema returns the JSON schema every analysis response must satisfy.
func Schema() json.RawMessage {
	return json.RawMessage(schemaDoc)
}

// ContextString flattens a result into the context handed to follow-up chat.
func ContextString(r *Result) string {
	if r == nil {
		return ""
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Type: %s. Summary: %s", r.InferredType, r.Summary)
	if len(r.KeyMetrics) > 0 {
		b.WriteString(" Metrics: ")
		for i, m := range r.KeyMetrics {
			if i > 0 {
				b.WriteString("; ")
			}
			fmt.Fprintf(&b, "%s: %s (%s)", m.Label, m.Value, m.Trend)
		}
		b.WriteString(".")
	}
	fmt.Fprintf(&b, " Recommendation: %s. Strategy: %s", r.Recommendation.GoalText(), r.Recommendation.StrategyText())
	return b.String()
}

const chatTemplate = `Context: You are a data assistant helping a user analyze a CSV file.
Here is the summary of the data: %s

User Question: %s

Answer concisely and helpfully based on the data context provided.`

// ChatPrompt builds the single self-contained follow-up prompt.
func ChatPrompt(contextData, question string) string {
	return fmt.Sprintf(chatTemplate, contextData, question)
}
