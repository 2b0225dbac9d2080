package model

import "strings"

// Unlabeled is the question text used when no label source yields text.
const Unlabeled = "UNLABELED"

// ControlKind classifies a form control by how it must be written.
type ControlKind string

const (
	KindText       ControlKind = "text"
	KindTextarea   ControlKind = "textarea"
	KindCheckbox   ControlKind = "checkbox"
	KindRadio      ControlKind = "radio"
	KindRadioGroup ControlKind = "radio_group"
	KindSpinbutton ControlKind = "spinbutton"
	KindCombobox   ControlKind = "combobox"
	KindMultiValue ControlKind = "multi_value"
	KindFile       ControlKind = "file"
	KindUnknown    ControlKind = "unknown"
)

// HasOptions reports whether descriptors of this kind carry an option list.
func (k ControlKind) HasOptions() bool {
	switch k {
	case KindCombobox, KindRadioGroup, KindMultiValue:
		return true
	default:
		return false
	}
}

// MultiValueMode selects how a tag picker resolves its suggestion list.
type MultiValueMode string

const (
	MultiValueFlat   MultiValueMode = "flat"
	MultiValueNested MultiValueMode = "nested"
)

// FieldDescriptor is the semantic description of one fillable field.
type FieldDescriptor struct {
	Question     string         `json:"question"`
	Kind         ControlKind    `json:"control_kind"`
	StructuralID string         `json:"structural_id"`
	GroupContext string         `json:"group_context,omitempty"`
	Options      []string       `json:"options"`
	Required     bool           `json:"required,omitempty"`
	Placeholder  string         `json:"placeholder,omitempty"`
	Tag          string         `json:"tag,omitempty"`
	InputType    string         `json:"input_type,omitempty"`
	Role         string         `json:"role,omitempty"`
	MultiValue   MultiValueMode `json:"multi_value_mode,omitempty"`
}

// ButtonLike reports whether the control opens something when clicked
// rather than accepting typed input.
func (d FieldDescriptor) ButtonLike() bool {
	return d.Tag == "button" || d.InputType == "button" || d.Kind == KindCombobox
}

// Labeled reports whether the descriptor carries a real question.
func (d FieldDescriptor) Labeled() bool {
	return d.Question != "" && d.Question != Unlabeled
}

// SameQuestion compares two descriptors by case-folded question and kind.
func (d FieldDescriptor) SameQuestion(o FieldDescriptor) bool {
	if !d.Labeled() || !o.Labeled() {
		return false
	}
	return d.Kind == o.Kind &&
		strings.EqualFold(strings.TrimSpace(d.Question), strings.TrimSpace(o.Question))
}
