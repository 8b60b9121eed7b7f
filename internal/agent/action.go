package agent

import (
	"strings"

	"github.com/tidwall/gjson"
)

// action is a tool call requested by the model.
type action struct {
	Name  string
	Input string
}

func (a action) isFinal() bool {
	return strings.EqualFold(a.Name, finalAnswerAction)
}

// parseAction looks for a JSON blob with an "action" key in model output,
// preferring fenced code blocks. ok is false when the text carries no action.
func parseAction(text string) (action, bool) {
	for _, candidate := range jsonCandidates(text) {
		if !gjson.Valid(candidate) {
			continue
		}
		res := gjson.Parse(candidate)
		if !res.IsObject() {
			continue
		}
		name := res.Get("action")
		if name.Type != gjson.String || strings.TrimSpace(name.String()) == "" {
			continue
		}

		input := res.Get("action_input")
		act := action{Name: strings.TrimSpace(name.String())}
		switch {
		case !input.Exists():
		case input.Type == gjson.String:
			act.Input = input.String()
		default:
			act.Input = input.Raw
		}
		return act, true
	}
	return action{}, false
}

// jsonCandidates returns fenced block bodies followed by every balanced
// top-level {...} span in text.
func jsonCandidates(text string) []string {
	var out []string

	rest := text
	for {
		start := strings.Index(rest, "```")
		if start < 0 {
			break
		}
		body := rest[start+3:]
		end := strings.Index(body, "```")
		if end < 0 {
			break
		}
		block := body[:end]
		if nl := strings.IndexByte(block, '\n'); nl >= 0 && !strings.Contains(block[:nl], "{") {
			block = block[nl+1:] // drop the language tag
		}
		out = append(out, strings.TrimSpace(block))
		rest = body[end+3:]
	}

	return append(out, balancedObjects(text)...)
}

func balancedObjects(text string) []string {
	var (
		out      []string
		depth    int
		start    = -1
		inString bool
		escaped  bool
	)
	for i := 0; i < len(text); i++ {
		c := text[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			if depth > 0 {
				inString = true
			}
		case '{':
			if depth == 0 {
				start = i
			}
			depth++
		case '}':
			if depth == 0 {
				continue
			}
			depth--
			if depth == 0 && start >= 0 {
				out = append(out, text[start:i+1])
				start = -1
			}
		}
	}
	return out
}
