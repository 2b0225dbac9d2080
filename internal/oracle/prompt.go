package oracle

import (
	"encoding/json"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/autoapply/internal/model"
)

const baseInstruction = `You fill job application forms on behalf of a candidate.
You receive the candidate's profile data and a list of form fields. Each field
has a "key", a "question", a "control_kind" and, for pickers, the "options"
rendered on the page.

Reply with one JSON object and nothing else. Its keys are the field keys
exactly as given, and each value is the answer for that field:
- a string for text, textarea, spinbutton, combobox, radio and radio_group fields;
- for fields with options, copy one option verbatim;
- an array of strings for multi_value fields;
- "Yes" or "No" for checkbox fields;
- a file path from the profile for file fields.
Dates use MM/DD/YYYY unless the question says otherwise.`

const exhaustiveRule = `Answer every field. Never answer "SKIP". When the profile is silent,
give the most reasonable answer a typical candidate with this profile would give.`

const bestEffortRule = `Answer "SKIP" for a field when the profile holds nothing relevant to it.`

const personalInfoRule = `These are personal, demographic and compliance questions. Answer every
field and never answer "SKIP". Unless the profile says otherwise:
- previously employed by this company: "No";
- requires visa sponsorship now or in the future: "No";
- subject to a non-compete or other restriction: "No";
- criminal convictions: "No";
- for voluntary self-identification questions, choose the option that
  declines to answer when the profile has no data.`

// Instruction returns the system prompt for mode.
func Instruction(mode Mode) string {
	var rule string
	switch mode {
	case BestEffort:
		rule = bestEffortRule
	case PersonalInfo:
		rule = personalInfoRule
	default:
		rule = exhaustiveRule
	}
	return baseInstruction + "\n\n" + rule
}

type promptField struct {
	Key      RequestKey        `json:"key"`
	Question string            `json:"question"`
	Kind     model.ControlKind `json:"control_kind"`
	Options  []string          `json:"options,omitempty"`
	Required bool              `json:"required,omitempty"`
}

// UserPrompt renders the profile slice and the batch as the user message.
func UserPrompt(profileSlice any, batch []model.FieldDescriptor) (string, error) {
	profile, err := json.MarshalIndent(profileSlice, "", "  ")
	if err != nil {
		return "", eris.Wrap(err, "oracle: marshal profile")
	}

	fields := make([]promptField, 0, len(batch))
	for _, d := range batch {
		fields = append(fields, promptField{
			Key:      KeyOf(d),
			Question: d.Question,
			Kind:     d.Kind,
			Options:  d.Options,
			Required: d.Required,
		})
	}
	list, err := json.MarshalIndent(fields, "", "  ")
	if err != nil {
		return "", eris.Wrap(err, "oracle: marshal fields")
	}

	var b strings.Builder
	b.WriteString("Profile:\n")
	b.Write(profile)
	b.WriteString("\n\nFields:\n")
	b.Write(list)
	return b.String(), nil
}

// cleanJSON strips code fences and surrounding prose from a model reply.
func cleanJSON(text string) string {
	text = strings.TrimSpace(text)
	for _, fence := range []string{"```json", "```"} {
		if strings.HasPrefix(text, fence) {
			text = strings.TrimPrefix(text, fence)
			if idx := strings.LastIndex(text, "```"); idx >= 0 {
				text = text[:idx]
			}
			break
		}
	}

	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start >= 0 && end > start {
		text = text[start : end+1]
	}
	return strings.TrimSpace(text)
}

// ParseAnswer decodes a model reply into values keyed by RequestKey.
func ParseAnswer(text string) (map[RequestKey]model.Value, error) {
	var raw map[string]any
	if err := json.Unmarshal([]byte(cleanJSON(text)), &raw); err != nil {
		return nil, eris.Wrap(err, "oracle: parse answer")
	}
	out := make(map[RequestKey]model.Value, len(raw))
	for k, v := range raw {
		val, err := model.ValueOf(v)
		if err != nil {
			return nil, eris.Wrapf(err, "oracle: field %q", k)
		}
		out[RequestKey(k)] = val
	}
	return out, nil
}
