package extract

import (
	"context"
	"strings"

	"github.com/sells-group/autoapply/internal/dom"
	"github.com/sells-group/autoapply/internal/model"
)

// UnknownOption labels a radio whose option text cannot be found.
const UnknownOption = "Unknown Option"

// RadioMember is one radio control with the data needed to group it.
type RadioMember struct {
	Handle       dom.Element
	GroupKey     string
	OptionLabel  string
	Question     string
	GroupContext string
	StructuralID string
	Name         string
	Required     bool
}

// Descriptor returns the legacy single-radio descriptor for m.
func (m RadioMember) Descriptor() model.FieldDescriptor {
	q := m.Question
	if q == "" {
		q = model.Unlabeled
	}
	return model.FieldDescriptor{
		Question:     q,
		Kind:         model.KindRadio,
		StructuralID: m.StructuralID,
		GroupContext: m.GroupContext,
		Required:     m.Required,
		Tag:          "input",
		InputType:    "radio",
	}
}

// IsRadio reports whether el is an input of type radio.
func (e *Extractor) IsRadio(ctx context.Context, el dom.Element) bool {
	return strings.EqualFold(dom.AttrOr(ctx, e.doc, el, "type"), "radio")
}

// DescribeRadio returns the membership record for a radio control, or nil
// when it is not fillable.
func (e *Extractor) DescribeRadio(ctx context.Context, el dom.Element) *RadioMember {
	if e.Skippable(ctx, el) {
		return nil
	}
	m := &RadioMember{
		Handle:       el,
		Name:         dom.AttrOr(ctx, e.doc, el, "name"),
		GroupContext: e.GroupContext(ctx, el),
		StructuralID: e.StructuralID(ctx, el),
	}
	_, m.Required, _ = e.doc.Attr(ctx, el, "required")
	m.GroupKey = e.groupKey(ctx, el, m.Name, m.GroupContext)
	m.OptionLabel = e.optionLabel(ctx, el)
	m.Question = e.groupQuestion(ctx, el, m.GroupContext)
	return m
}

func (e *Extractor) groupKey(ctx context.Context, el dom.Element, name, ref string) string {
	if name != "" {
		return name
	}
	if ref != "" {
		return ref
	}
	identity := ""
	if fs, err := e.doc.Closest(ctx, el, "fieldset"); err == nil && fs != nil {
		identity = e.StructuralID(ctx, fs)
	}
	return "no_group:" + identity
}

func (e *Extractor) optionLabel(ctx context.Context, el dom.Element) string {
	if s := Normalize(e.labelFor(ctx, el)); s != "" {
		return s
	}
	if s := Normalize(e.wrappingLabel(ctx, el)); s != "" {
		return s
	}
	if s, err := e.doc.Evaluate(ctx, el, dom.ScriptSiblingText); err == nil {
		if s = Normalize(s); s != "" {
			return s
		}
	}
	switch v := strings.TrimSpace(dom.AttrOr(ctx, e.doc, el, "value")); strings.ToLower(v) {
	case "true":
		return "Yes"
	case "false":
		return "No"
	case "":
	default:
		return v
	}
	return UnknownOption
}

// groupQuestion resolves the question shared by every radio of a group.
func (e *Extractor) groupQuestion(ctx context.Context, el dom.Element, ref string) string {
	container, _ := e.doc.Closest(ctx, el, `fieldset, [role="group"], [role="radiogroup"]`)
	if container != nil {
		if lg, err := e.doc.Query(ctx, container, "legend"); err == nil {
			if s := Normalize(e.text(ctx, lg)); s != "" {
				return s
			}
		}
	}
	if s := Normalize(e.ResolveRef(ctx, ref)); s != "" {
		return s
	}
	if container != nil {
		if s := e.firstQuestionLabel(ctx, container); s != "" {
			return s
		}
	}
	return e.Label(ctx, el)
}

// firstQuestionLabel returns the first label in container that does not name
// a radio option.
func (e *Extractor) firstQuestionLabel(ctx context.Context, container dom.Element) string {
	labels, err := e.doc.QueryAll(ctx, container, "label")
	if err != nil {
		return ""
	}
	for _, lbl := range labels {
		if inner, _ := e.doc.Query(ctx, lbl, `input[type="radio"]`); inner != nil {
			continue
		}
		if target := dom.AttrOr(ctx, e.doc, lbl, "for"); target != "" {
			if input, _ := e.doc.Query(ctx, nil, `[id="`+cssEscape(target)+`"]`); input != nil && e.IsRadio(ctx, input) {
				continue
			}
		}
		if s := Normalize(e.text(ctx, lbl)); s != "" {
			return s
		}
	}
	return ""
}
