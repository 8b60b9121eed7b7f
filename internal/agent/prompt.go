package agent

import (
	"fmt"
	"strings"
)

// SystemPrompt is the fixed instruction given to the model.
const SystemPrompt = "You are an AI assistant specialized in analyzing telecom data. " +
	"Use the available tools to process queries and provide accurate insights."

const (
	observationMarker = "\nObservation:"
	finalAnswerAction = "Final Answer"
	assistantPreamble = "I'll help analyze that. Let me think step by step:"
)

// step is one completed tool round: what the model said and what the tool returned.
type step struct {
	output      string
	observation string
}

func buildPrompt(system string, tools []Tool, query string, steps []step) string {
	var b strings.Builder

	b.WriteString("System: ")
	b.WriteString(system)
	b.WriteString("\n\nYou have access to the following tools:\n\n")

	names := make([]string, len(tools))
	for i, t := range tools {
		names[i] = t.Name()
		fmt.Fprintf(&b, "%s: %s\n", t.Name(), t.Description())
	}

	b.WriteString("\nUse a json blob to specify a tool by providing an \"action\" key (tool name) and an \"action_input\" key (tool input).\n")
	fmt.Fprintf(&b, "Valid \"action\" values: %q or %s\n", finalAnswerAction, strings.Join(names, ", "))
	b.WriteString("Provide only ONE action per blob, as shown:\n\n")
	b.WriteString("```json\n{\n  \"action\": $TOOL_NAME,\n  \"action_input\": $INPUT\n}\n```\n\n")
	b.WriteString("When you have the answer, respond with the action \"Final Answer\" and put the answer in action_input.\n\n")

	b.WriteString("Human: ")
	b.WriteString(query)
	b.WriteString("\n\nAssistant: ")
	b.WriteString(assistantPreamble)
	b.WriteString("\n")

	for _, s := range steps {
		b.WriteString(strings.TrimSpace(s.output))
		b.WriteString(observationMarker + " ")
		b.WriteString(s.observation)
		b.WriteString("\nThought:")
	}
	return b.String()
}

// cutObservation drops anything the model wrote from its first
// observation line on. Observations come from tools only.
func cutObservation(out string) string {
	if i := strings.Index(out, observationMarker); i >= 0 {
		return out[:i]
	}
	return out
}
