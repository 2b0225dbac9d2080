// Package fill writes resolved values into form controls.
package fill

import (
	"context"
	"os"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/autoapply/internal/dom"
	"github.com/sells-group/autoapply/internal/extract"
	"github.com/sells-group/autoapply/internal/model"
)

// Policy decides what a radio group does when no option matches.
type Policy string

const (
	// PolicyFirst checks the first option so the form can progress.
	PolicyFirst Policy = "first"
	// PolicySkip leaves the group untouched.
	PolicySkip Policy = "skip"
)

// Selectors of the picker overlays the filler drives.
const (
	SuggestionSelector = `div[data-automation-id="promptLeafNode"]`
	openedOptions      = extract.OpenedListSelector + ` li`
)

// Notes attached to outcomes.
const (
	NoteUnmatchedFallback = "unmatched fallback: first option"
	NoteAlreadySet        = "already in requested state"
	NoteNoValue           = "no value resolved"
)

// Option configures a Filler.
type Option func(*Filler)

// WithPolicy sets the radio group fallback policy.
func WithPolicy(p Policy) Option {
	return func(f *Filler) { f.policy = p }
}

// WithSettle sets the wait after opening pickers and submitting tags.
func WithSettle(d time.Duration) Option {
	return func(f *Filler) { f.settle = d }
}

// WithLogger sets the filler's logger.
func WithLogger(l *zap.Logger) Option {
	return func(f *Filler) { f.log = l }
}

// WithFileCheck replaces the filesystem existence check for uploads.
func WithFileCheck(exists func(path string) bool) Option {
	return func(f *Filler) { f.exists = exists }
}

// Filler applies values to fields of one document.
type Filler struct {
	doc    dom.Document
	policy Policy
	settle time.Duration
	log    *zap.Logger
	exists func(string) bool
}

// New creates a Filler over doc.
func New(doc dom.Document, opts ...Option) *Filler {
	f := &Filler{
		doc:    doc,
		policy: PolicyFirst,
		settle: 500 * time.Millisecond,
		log:    zap.L(),
		exists: fileExists,
	}
	for _, o := range opts {
		o(f)
	}
	return f
}

func fileExists(path string) bool {
	st, err := os.Stat(path)
	return err == nil && !st.IsDir()
}

// Fill writes v into field and reports what happened. It never returns an
// error; write failures become outcomes with reason error.
func (f *Filler) Fill(ctx context.Context, field *extract.Field, v model.Value) model.FillOutcome {
	d := field.Descriptor
	if v.IsSkip() {
		return model.SkippedOutcome(d, v, model.ReasonSkippedExplicit, "")
	}
	if v.IsEmpty() {
		return model.SkippedOutcome(d, v, model.ReasonSkippedUnmatched, NoteNoValue)
	}

	var (
		out model.FillOutcome
		err error
	)
	switch d.Kind {
	case model.KindText, model.KindTextarea, model.KindSpinbutton:
		out, err = f.text(ctx, field, v)
	case model.KindCheckbox:
		out, err = f.checkbox(ctx, field, v)
	case model.KindRadio:
		out, err = f.radio(ctx, field, v)
	case model.KindRadioGroup:
		out, err = f.radioGroup(ctx, field, v)
	case model.KindCombobox:
		out, err = f.combobox(ctx, field, v)
	case model.KindMultiValue:
		out, err = f.multiValue(ctx, field, v)
	case model.KindFile:
		out, err = f.file(ctx, field, v)
	default:
		out = model.SkippedOutcome(d, v, model.ReasonSkippedUnmatched, "unsupported control")
	}
	if err != nil {
		f.log.Debug("fill: write failed",
			zap.String("question", d.Question),
			zap.String("kind", string(d.Kind)),
			zap.Error(err),
		)
		return model.ErrorOutcome(d, v, err)
	}
	return out
}

func (f *Filler) text(ctx context.Context, field *extract.Field, v model.Value) (model.FillOutcome, error) {
	if err := f.doc.SetText(ctx, field.Handle, v.String()); err != nil {
		return model.FillOutcome{}, eris.Wrap(err, "fill: set text")
	}
	return model.AppliedOutcome(field.Descriptor, v, ""), nil
}

func (f *Filler) checkbox(ctx context.Context, field *extract.Field, v model.Value) (model.FillOutcome, error) {
	want := v.Truthy()
	cur, err := f.doc.IsChecked(ctx, field.Handle)
	if err != nil {
		return model.FillOutcome{}, eris.Wrap(err, "fill: read checkbox")
	}
	if cur == want {
		return model.AppliedOutcome(field.Descriptor, v, NoteAlreadySet), nil
	}
	if want {
		err = f.doc.Check(ctx, field.Handle)
	} else {
		err = f.doc.Uncheck(ctx, field.Handle)
	}
	if err != nil {
		return model.FillOutcome{}, eris.Wrap(err, "fill: toggle checkbox")
	}
	return model.AppliedOutcome(field.Descriptor, v, ""), nil
}

func (f *Filler) radio(ctx context.Context, field *extract.Field, v model.Value) (model.FillOutcome, error) {
	if !v.Truthy() {
		return model.SkippedOutcome(field.Descriptor, v, model.ReasonSkippedUnmatched, "value is not affirmative"), nil
	}
	if err := f.doc.Check(ctx, field.Handle); err != nil {
		return model.FillOutcome{}, eris.Wrap(err, "fill: check radio")
	}
	return model.AppliedOutcome(field.Descriptor, v, ""), nil
}

func (f *Filler) radioGroup(ctx context.Context, field *extract.Field, v model.Value) (model.FillOutcome, error) {
	d := field.Descriptor
	if len(field.Handles) == 0 || len(field.Handles) != len(d.Options) {
		return model.FillOutcome{}, eris.Errorf("fill: radio group %q has %d handles for %d options",
			d.Question, len(field.Handles), len(d.Options))
	}

	note := ""
	idx := Best(v.First(), d.Options)
	if idx < 0 {
		if f.policy == PolicySkip {
			return model.SkippedOutcome(d, v, model.ReasonSkippedUnmatched, "no option matches"), nil
		}
		idx, note = 0, NoteUnmatchedFallback
		f.log.Info("fill: radio group fallback to first option",
			zap.String("question", d.Question),
			zap.String("value", v.String()),
		)
	}
	if err := f.doc.Check(ctx, field.Handles[idx]); err != nil {
		return model.FillOutcome{}, eris.Wrapf(err, "fill: check option %q", d.Options[idx])
	}
	return model.AppliedOutcome(d, v, note), nil
}

func (f *Filler) combobox(ctx context.Context, field *extract.Field, v model.Value) (model.FillOutcome, error) {
	d := field.Descriptor
	if err := f.doc.Click(ctx, field.Handle); err != nil {
		return model.FillOutcome{}, eris.Wrap(err, "fill: open picker")
	}
	_ = f.doc.Settle(ctx, f.settle)

	items, err := f.doc.QueryAll(ctx, nil, openedOptions)
	if err != nil {
		return model.FillOutcome{}, eris.Wrap(err, "fill: read options")
	}

	want := v.First()
	best, bestScore := -1, 0.0
	for i, li := range items {
		for _, text := range f.optionTexts(ctx, li) {
			if s := Score(want, text); s > bestScore {
				best, bestScore = i, s
			}
		}
	}

	if best < 0 {
		if err := f.doc.Click(ctx, field.Handle); err != nil {
			f.log.Debug("fill: close picker", zap.Error(err))
		}
		return model.SkippedOutcome(d, v, model.ReasonSkippedUnmatched, "no option matches"), nil
	}
	if err := f.doc.Click(ctx, items[best]); err != nil {
		return model.FillOutcome{}, eris.Wrap(err, "fill: pick option")
	}
	_ = f.doc.Settle(ctx, f.settle)
	return model.AppliedOutcome(d, v, ""), nil
}

// optionTexts returns the direct text of an option and the text of its
// nested div, when either is present.
func (f *Filler) optionTexts(ctx context.Context, li dom.Element) []string {
	var out []string
	if s, err := f.doc.Text(ctx, li); err == nil && strings.TrimSpace(s) != "" {
		out = append(out, s)
	}
	if div, err := f.doc.Query(ctx, li, "div"); err == nil && div != nil {
		if s, err := f.doc.Text(ctx, div); err == nil && strings.TrimSpace(s) != "" {
			out = append(out, s)
		}
	}
	return out
}

func (f *Filler) file(ctx context.Context, field *extract.Field, v model.Value) (model.FillOutcome, error) {
	path := strings.TrimSpace(v.First())
	if !f.exists(path) {
		return model.SkippedOutcome(field.Descriptor, v, model.ReasonSkippedUnmatched, "file not found"), nil
	}
	if err := f.doc.Upload(ctx, field.Handle, path); err != nil {
		return model.FillOutcome{}, eris.Wrap(err, "fill: upload")
	}
	return model.AppliedOutcome(field.Descriptor, v, ""), nil
}
