// Package extract classifies raw form controls into field descriptors.
package extract

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/sells-group/autoapply/internal/dom"
	"github.com/sells-group/autoapply/internal/model"
)

// Automation ids with fixed meaning in the form flow.
const (
	PaginationID  = "pageFooterNextButton"
	FileUploadID  = "file-upload-input-ref"
	maxGroupDepth = 15
)

var navigationIDs = map[string]bool{
	"pageFooterBackButton": true,
	"backToJobPosting":     true,
}

// IsNavigation reports whether id belongs to a navigation control that is
// never filled.
func IsNavigation(id string) bool {
	return navigationIDs[id]
}

// Field is a descriptor plus the live handles needed to write it.
type Field struct {
	Descriptor model.FieldDescriptor
	Handle     dom.Element
	// Handles holds one handle per option of a radio_group, aligned with
	// Descriptor.Options.
	Handles []dom.Element
}

// Option configures an Extractor.
type Option func(*Extractor)

// WithSettle sets the wait after opening or closing a picker.
func WithSettle(d time.Duration) Option {
	return func(e *Extractor) { e.settle = d }
}

// WithLogger sets the logger used for extraction diagnostics.
func WithLogger(l *zap.Logger) Option {
	return func(e *Extractor) { e.log = l }
}

// Extractor turns control handles into field descriptors.
type Extractor struct {
	doc    dom.Document
	settle time.Duration
	log    *zap.Logger
}

// New creates an Extractor over doc.
func New(doc dom.Document, opts ...Option) *Extractor {
	e := &Extractor{doc: doc, settle: 500 * time.Millisecond, log: zap.L()}
	for _, o := range opts {
		o(e)
	}
	return e
}

// Doc returns the document the extractor reads.
func (e *Extractor) Doc() dom.Document {
	return e.doc
}

// StructuralID returns the automation id, else the id, else aria-haspopup,
// else "unknown".
func (e *Extractor) StructuralID(ctx context.Context, el dom.Element) string {
	for _, name := range []string{"data-automation-id", "id", "aria-haspopup"} {
		if v := dom.AttrOr(ctx, e.doc, el, name); v != "" {
			return v
		}
	}
	return "unknown"
}

// GroupContext returns the label reference of the nearest enclosing group.
// Ancestor handles taken on the way are released before returning.
func (e *Extractor) GroupContext(ctx context.Context, el dom.Element) string {
	group, err := e.doc.Closest(ctx, el, `fieldset, [role="group"]`)
	if err == nil && group != nil {
		ref := dom.AttrOr(ctx, e.doc, group, "aria-labelledby")
		dom.Release(e.doc, group)
		if ref != "" {
			return ref
		}
	}
	var walked []dom.Element
	defer func() { dom.Release(e.doc, walked...) }()

	cur := el
	for i := 0; i < maxGroupDepth; i++ {
		parent, err := e.doc.Parent(ctx, cur)
		if err != nil || parent == nil {
			return ""
		}
		walked = append(walked, parent)
		if ref := dom.AttrOr(ctx, e.doc, parent, "aria-labelledby"); ref != "" {
			return ref
		}
		cur = parent
	}
	return ""
}

// Describe classifies el. It returns nil when the control is not fillable
// or can no longer be read.
func (e *Extractor) Describe(ctx context.Context, el dom.Element) *Field {
	f, err := e.describe(ctx, el)
	if err != nil {
		if !errors.Is(err, dom.ErrDetached) {
			e.log.Debug("extract: describe failed", zap.Error(err))
		}
		return nil
	}
	return f
}

func (e *Extractor) connected(ctx context.Context, el dom.Element) bool {
	v, err := e.doc.Evaluate(ctx, el, dom.ScriptConnected)
	return err == nil && v == "true"
}

// Skippable reports whether el is a control the engine never fills.
func (e *Extractor) Skippable(ctx context.Context, el dom.Element) bool {
	if !e.connected(ctx, el) {
		return true
	}
	id := dom.AttrOr(ctx, e.doc, el, "data-automation-id")
	if IsNavigation(id) || id == PaginationID {
		return true
	}
	if dir, ok, _ := e.doc.Attr(ctx, el, "dir"); ok && dir != "ltr" {
		return true
	}
	return strings.EqualFold(dom.AttrOr(ctx, e.doc, el, "type"), "hidden")
}

func (e *Extractor) describe(ctx context.Context, el dom.Element) (*Field, error) {
	if e.Skippable(ctx, el) {
		return nil, nil
	}

	tag, err := e.doc.Evaluate(ctx, el, dom.ScriptTagName)
	if err != nil {
		return nil, err
	}
	inputType := strings.ToLower(dom.AttrOr(ctx, e.doc, el, "type"))
	role := dom.AttrOr(ctx, e.doc, el, "role")
	_, required, _ := e.doc.Attr(ctx, el, "required")
	if dom.AttrOr(ctx, e.doc, el, "aria-required") == "true" {
		required = true
	}

	d := model.FieldDescriptor{
		Question:     e.Label(ctx, el),
		StructuralID: e.StructuralID(ctx, el),
		GroupContext: e.GroupContext(ctx, el),
		Required:     required,
		Placeholder:  dom.AttrOr(ctx, e.doc, el, "placeholder"),
		Tag:          tag,
		InputType:    inputType,
		Role:         role,
	}
	if d.Question == "" {
		d.Question = model.Unlabeled
	}
	d.Kind = e.kind(ctx, el, tag, inputType, role)

	switch d.Kind {
	case model.KindCombobox:
		d.Options = e.enumerateOptions(ctx, el)
	case model.KindMultiValue:
		d.Options = []string{}
		d.MultiValue = MultiValueMode(d.Question)
	}

	return &Field{Descriptor: d, Handle: el}, nil
}

func (e *Extractor) kind(ctx context.Context, el dom.Element, tag, inputType, role string) model.ControlKind {
	if tag == "input" && e.MultiSelectContainer(ctx, el) != nil {
		return model.KindMultiValue
	}
	if role == "spinbutton" {
		return model.KindSpinbutton
	}
	switch tag {
	case "textarea":
		return model.KindTextarea
	case "select":
		return model.KindUnknown
	}
	if tag == "button" || role == "combobox" || role == "button" {
		if dom.AttrOr(ctx, e.doc, el, "aria-haspopup") == "listbox" {
			return model.KindCombobox
		}
		// Typeahead inputs without a listbox popup take plain text.
		if tag != "input" || role == "button" {
			return model.KindUnknown
		}
	}
	switch inputType {
	case "checkbox":
		return model.KindCheckbox
	case "radio":
		return model.KindRadio
	case "file":
		return model.KindFile
	case "button", "submit", "reset", "image":
		return model.KindUnknown
	}
	return model.KindText
}

// MultiSelectSelector matches the container of a tag picker.
const MultiSelectSelector = `[data-automation-id*="multiSelectContainer"]`

// MultiSelectContainer returns the tag-picker container enclosing el, or nil.
func (e *Extractor) MultiSelectContainer(ctx context.Context, el dom.Element) dom.Element {
	c, err := e.doc.Closest(ctx, el, MultiSelectSelector)
	if err != nil {
		return nil
	}
	return c
}

// MultiValueMode picks nested resolution for source-style pickers.
func MultiValueMode(question string) model.MultiValueMode {
	q := strings.ToLower(question)
	for _, kw := range []string{"hear", "source", "referral"} {
		if strings.Contains(q, kw) {
			return model.MultiValueNested
		}
	}
	return model.MultiValueFlat
}

// OpenedListSelector locates the options of an open picker.
const OpenedListSelector = `div[visibility="opened"]`

// enumerateOptions opens the picker, reads its options and closes it again.
func (e *Extractor) enumerateOptions(ctx context.Context, el dom.Element) []string {
	options := []string{}
	if err := e.doc.Click(ctx, el); err != nil {
		e.log.Debug("extract: open picker", zap.Error(err))
		return options
	}
	_ = e.doc.Settle(ctx, e.settle)

	list, err := e.doc.Query(ctx, nil, OpenedListSelector)
	if err == nil && list != nil {
		items, _ := e.doc.QueryAll(ctx, list, `li[role="option"]`)
		for _, li := range items {
			if s := e.optionText(ctx, li); s != "" {
				options = append(options, s)
			}
		}
	}

	if err := e.doc.Click(ctx, el); err != nil {
		e.log.Debug("extract: close picker", zap.Error(err))
	}
	_ = e.doc.Settle(ctx, e.settle)
	return options
}

// optionText reads an option's own text, falling back to its nested div.
func (e *Extractor) optionText(ctx context.Context, li dom.Element) string {
	if s := strings.TrimSpace(e.text(ctx, li)); s != "" {
		return s
	}
	div, err := e.doc.Query(ctx, li, "div")
	if err != nil || div == nil {
		return ""
	}
	return strings.TrimSpace(e.text(ctx, div))
}
