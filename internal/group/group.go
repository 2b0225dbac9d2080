// Package group removes spurious repeated fields and merges radio sets into
// single radio_group fields.
package group

import (
	"context"
	"strings"

	"github.com/sells-group/autoapply/internal/dom"
	"github.com/sells-group/autoapply/internal/extract"
	"github.com/sells-group/autoapply/internal/model"
)

// Mode selects the duplicate suppression rule.
type Mode int

const (
	// PageMode drops a field repeating the last emitted combobox.
	PageMode Mode = iota
	// PanelMode drops a field repeating the last described button-like
	// control.
	PanelMode
)

func (m Mode) String() string {
	if m == PanelMode {
		return "panel"
	}
	return "page"
}

// Merge folds radio members sharing a group key into one field. A single
// member yields a legacy radio field.
func Merge(members []*extract.RadioMember) *extract.Field {
	if len(members) == 0 {
		return nil
	}
	first := members[0]
	if len(members) == 1 {
		return &extract.Field{Descriptor: first.Descriptor(), Handle: first.Handle}
	}

	d := model.FieldDescriptor{
		Question:     first.Question,
		Kind:         model.KindRadioGroup,
		StructuralID: "radio_group_" + first.GroupKey,
		GroupContext: first.GroupContext,
		Options:      make([]string, 0, len(members)),
		Tag:          "input",
		InputType:    "radio",
		Role:         "radiogroup",
	}
	if d.Question == "" {
		d.Question = model.Unlabeled
	}
	f := &extract.Field{Descriptor: d, Handle: first.Handle}
	for _, m := range members {
		f.Descriptor.Options = append(f.Descriptor.Options, m.OptionLabel)
		f.Descriptor.Required = f.Descriptor.Required || m.Required
		f.Handles = append(f.Handles, m.Handle)
	}
	return f
}

// entry is one slot of the output: either a described field or the
// position of a radio group.
type entry struct {
	field *extract.Field
	key   string
}

// Build describes controls in order and returns the fillable fields.
func Build(ctx context.Context, ex *extract.Extractor, controls []dom.Element, mode Mode) []*extract.Field {
	var (
		entries []entry
		radios  = make(map[string][]*extract.RadioMember)
	)

	for _, el := range controls {
		if ex.IsRadio(ctx, el) {
			m := ex.DescribeRadio(ctx, el)
			if m == nil {
				continue
			}
			if _, seen := radios[m.GroupKey]; !seen {
				entries = append(entries, entry{key: m.GroupKey})
			}
			radios[m.GroupKey] = append(radios[m.GroupKey], m)
			continue
		}
		if f := ex.Describe(ctx, el); f != nil {
			entries = append(entries, entry{field: f})
		}
	}

	var (
		out     []*extract.Field
		tracker dedup
	)
	for _, e := range entries {
		f := e.field
		if f == nil {
			f = Merge(radios[e.key])
		}
		if f == nil {
			continue
		}
		if tracker.drop(f.Descriptor, mode) {
			continue
		}
		if f.Descriptor.Kind == model.KindUnknown {
			continue
		}
		out = append(out, f)
		tracker.emitted(f.Descriptor)
	}
	return out
}

// dedup tracks the fields that duplicate suppression compares against.
type dedup struct {
	described    model.FieldDescriptor
	hasDescribed bool
	emit         model.FieldDescriptor
	hasEmit      bool
}

// drop reports whether d repeats its predecessor, then records d as the
// last described control.
func (t *dedup) drop(d model.FieldDescriptor, mode Mode) bool {
	defer func() {
		t.described = d
		t.hasDescribed = true
	}()

	if d.StructuralID == extract.FileUploadID {
		return false
	}
	switch mode {
	case PanelMode:
		return t.hasDescribed && t.described.ButtonLike() &&
			t.described.Question == d.Question && t.described.Kind == d.Kind
	default:
		return t.hasEmit && t.emit.Kind == model.KindCombobox &&
			strings.ToLower(t.emit.Question) == strings.ToLower(d.Question) && t.emit.Kind == d.Kind
	}
}

func (t *dedup) emitted(d model.FieldDescriptor) {
	t.emit = d
	t.hasEmit = true
}
