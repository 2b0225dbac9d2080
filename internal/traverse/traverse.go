// Package traverse walks a multi-page application form, filling every field
// it finds until the form is submitted or no further page exists.
package traverse

import (
	"context"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/autoapply/internal/dom"
	"github.com/sells-group/autoapply/internal/extract"
	"github.com/sells-group/autoapply/internal/fill"
	"github.com/sells-group/autoapply/internal/group"
	"github.com/sells-group/autoapply/internal/model"
	"github.com/sells-group/autoapply/internal/oracle"
	"github.com/sells-group/autoapply/internal/section"
)

// Selectors the orchestrator scans.
const (
	RootSelector       = `div[data-automation-id="applyFlowPage"]`
	ControlSelector    = section.ControlSelector
	PaginationSelector = `[data-automation-id="` + extract.PaginationID + `"]`

	maxSectionDepth = 8
)

// Sections fills labelled sections as units. It reports false for sections
// the orchestrator must walk field by field.
type Sections interface {
	Handle(ctx context.Context, ref string) ([]model.FillOutcome, bool)
}

// Orchestrator drives one session's traversal. It is not safe for
// concurrent use.
type Orchestrator struct {
	doc      dom.Document
	ex       *extract.Extractor
	resolver *oracle.Resolver
	filler   *fill.Filler
	sections Sections
	opts     Options
	log      *zap.Logger

	// radio group keys already filled on the current page
	groups map[string]bool
}

// New creates an orchestrator over the extractor's document. sections may
// be nil, in which case every section is walked field by field.
func New(ex *extract.Extractor, resolver *oracle.Resolver, filler *fill.Filler, sections Sections, opts Options, log *zap.Logger) *Orchestrator {
	if log == nil {
		log = zap.L()
	}
	return &Orchestrator{
		doc:      ex.Doc(),
		ex:       ex,
		resolver: resolver,
		filler:   filler,
		sections: sections,
		opts:     opts.withDefaults(),
		log:      log,
		groups:   make(map[string]bool),
	}
}

// Run walks the form until a terminal state. The returned state is valid
// even when an error is returned; an error means ctx ended the session.
func (o *Orchestrator) Run(ctx context.Context) (*model.SessionState, error) {
	st := model.NewSessionState()
	rescanned := false

	for !st.Terminal {
		if err := ctx.Err(); err != nil {
			return st, eris.Wrap(err, "traverse: session cancelled")
		}
		st.State = model.StateScanning

		root, err := o.doc.Query(ctx, nil, RootSelector)
		if err != nil || root == nil {
			o.log.Debug("traverse: form root gone", zap.Int("page", st.PageIndex), zap.Error(err))
			st.Finish(false)
			break
		}
		controls, err := o.doc.QueryAll(ctx, root, ControlSelector)
		if err != nil {
			st.Finish(false)
			break
		}

		// Handles from this scan are not reused by the next one.
		scanned := append(controls, root)

		if st.Cursor >= len(controls) {
			if next, _ := o.doc.Query(ctx, nil, PaginationSelector); next != nil {
				o.advance(ctx, st, next)
				dom.Release(o.doc, append(scanned, next)...)
				rescanned = false
				continue
			}
			dom.Release(o.doc, scanned...)
			if !rescanned {
				rescanned = true
				_ = o.doc.Settle(ctx, o.opts.Settle)
				continue
			}
			st.Finish(false)
			break
		}
		rescanned = false

		st.Cursor += o.step(ctx, st, controls)
		dom.Release(o.doc, scanned...)
	}

	o.log.Info("traverse: finished",
		zap.Int("pages", st.PageIndex+1),
		zap.Int("fields", len(st.Outcomes)),
		zap.Bool("submitted", st.Submitted),
	)
	return st, nil
}

// step processes the control at the cursor and returns how far to move.
func (o *Orchestrator) step(ctx context.Context, st *model.SessionState, controls []dom.Element) int {
	el := controls[st.Cursor]
	id := dom.AttrOr(ctx, o.doc, el, "data-automation-id")

	switch {
	case extract.IsNavigation(id):
		return 1
	case id == extract.PaginationID:
		o.advance(ctx, st, el)
		return 0
	}

	if ref := o.sectionOf(ctx, el); ref != "" {
		handled, seen := st.Sections[ref]
		if !seen && o.sections != nil {
			st.State = model.StateProcessingSection
			outs, ok := o.sections.Handle(ctx, ref)
			st.Record(outs...)
			st.Sections[ref] = ok
			handled = ok
			if ok {
				o.log.Debug("traverse: section handled", zap.String("section", ref), zap.Int("fields", len(outs)))
				_ = o.doc.Settle(ctx, o.opts.Settle)
			}
		}
		if handled {
			return 1
		}
	}

	if o.ex.IsRadio(ctx, el) {
		return o.radioGroup(ctx, st, controls, el)
	}
	o.field(ctx, st, el)
	return 1
}

// sectionOf returns the reference of the outermost labelled group holding
// el. Repeatable panels are labelled groups nested inside their section and
// belong to it.
func (o *Orchestrator) sectionOf(ctx context.Context, el dom.Element) string {
	var (
		ref    string
		walked []dom.Element
	)
	defer func() { dom.Release(o.doc, walked...) }()

	cur := el
	for i := 0; i < maxSectionDepth; i++ {
		sec, err := o.doc.Closest(ctx, cur, section.Selector)
		if err != nil || sec == nil {
			break
		}
		walked = append(walked, sec)
		if r := dom.AttrOr(ctx, o.doc, sec, "aria-labelledby"); r != "" {
			ref = r
		}
		cur = sec
	}
	return ref
}

// field processes one non-radio control.
func (o *Orchestrator) field(ctx context.Context, st *model.SessionState, el dom.Element) {
	st.State = model.StateProcessingField
	start := time.Now()

	f := o.ex.Describe(ctx, el)
	if f == nil {
		return
	}
	d := f.Descriptor
	if d.Kind == model.KindUnknown {
		st.Track(d)
		return
	}
	if st.IsDuplicate(d) {
		o.log.Debug("traverse: duplicate field dropped", zap.String("question", d.Question))
		st.Track(d)
		return
	}

	var v model.Value
	if isSignatureDate(d.StructuralID, d.GroupContext) {
		part, ok := datePart(d.StructuralID, o.opts.Now())
		if !ok {
			st.Track(d)
			return
		}
		v = model.Text(part)
	} else {
		plan := o.opts.Plan(st.PageIndex)
		res := o.resolver.Resolve(ctx, plan.Slice, []model.FieldDescriptor{d}, plan.Mode)
		v, _ = res.Lookup(d)
		if v.IsEmpty() {
			if fb, ok := dateFallback(d, o.opts.Now()); ok {
				v = fb
			}
		}
	}

	o.record(ctx, st, o.filler.Fill(ctx, f, v), start)
	st.Track(d)
}

// radioGroup fills every radio sharing the key of the radio at the cursor.
func (o *Orchestrator) radioGroup(ctx context.Context, st *model.SessionState, controls []dom.Element, el dom.Element) int {
	st.State = model.StateProcessingGroup
	start := time.Now()

	first := o.ex.DescribeRadio(ctx, el)
	if first == nil {
		return 1
	}
	if o.groups[first.GroupKey] {
		return 1
	}
	o.groups[first.GroupKey] = true

	members := []*extract.RadioMember{first}
	for _, c := range controls[st.Cursor+1:] {
		if !o.ex.IsRadio(ctx, c) {
			continue
		}
		if m := o.ex.DescribeRadio(ctx, c); m != nil && m.GroupKey == first.GroupKey {
			members = append(members, m)
		}
	}

	f := group.Merge(members)
	d := f.Descriptor
	if st.IsDuplicate(d) {
		st.Track(d)
		return len(members)
	}

	plan := o.opts.Plan(st.PageIndex)
	res := o.resolver.Resolve(ctx, plan.Slice, []model.FieldDescriptor{d}, plan.Mode)
	v, _ := res.Lookup(d)

	o.record(ctx, st, o.filler.Fill(ctx, f, v), start)
	st.Track(d)
	return len(members)
}

func (o *Orchestrator) record(ctx context.Context, st *model.SessionState, out model.FillOutcome, start time.Time) {
	out.DurationMS = time.Since(start).Milliseconds()
	st.Record(out)
	o.log.Debug("traverse: field processed",
		zap.String("question", out.Descriptor.Question),
		zap.String("kind", string(out.Descriptor.Kind)),
		zap.String("reason", string(out.Reason)),
		zap.Int64("duration_ms", out.DurationMS),
	)
	_ = o.doc.Settle(ctx, o.opts.Settle)
}

// advance clicks the pagination control. A submit control ends the session.
func (o *Orchestrator) advance(ctx context.Context, st *model.SessionState, next dom.Element) {
	text, _ := o.doc.Text(ctx, next)
	if strings.Contains(strings.ToLower(text), "submit") {
		if !o.opts.Submit {
			o.log.Info("traverse: submission disabled, stopping at submit")
			st.Finish(false)
			return
		}
		if err := o.doc.Click(ctx, next); err != nil {
			o.log.Warn("traverse: submit click failed", zap.Error(err))
			st.Finish(false)
			return
		}
		_ = o.doc.Settle(ctx, o.opts.Settle)
		st.Finish(true)
		return
	}

	if st.PageIndex+1 >= o.opts.MaxPages {
		o.log.Warn("traverse: page limit reached", zap.Int("max_pages", o.opts.MaxPages))
		st.Finish(false)
		return
	}

	st.State = model.StateAdvancingPage
	if err := o.doc.Click(ctx, next); err != nil {
		o.log.Debug("traverse: next click failed", zap.Error(err))
		st.Finish(false)
		return
	}
	_ = o.doc.Settle(ctx, o.opts.Settle)
	st.NextPage()
	o.groups = make(map[string]bool)
}
