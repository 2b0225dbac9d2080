// Package section fills labelled form sections as whole units: repeatable
// panels such as work experience, and batch sections such as skills.
package section

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/sells-group/autoapply/internal/dom"
	"github.com/sells-group/autoapply/internal/extract"
	"github.com/sells-group/autoapply/internal/fill"
	"github.com/sells-group/autoapply/internal/group"
	"github.com/sells-group/autoapply/internal/model"
	"github.com/sells-group/autoapply/internal/oracle"
	"github.com/sells-group/autoapply/internal/profile"
)

// Selectors used to locate sections and their controls.
const (
	Selector        = `div[role="group"][aria-labelledby]`
	ControlSelector = `button, input, select, textarea, [role="button"]`
	AddButton       = `button[data-automation-id="add-button"]`
)

// Handler fills sections of one document.
type Handler struct {
	doc      dom.Document
	ex       *extract.Extractor
	resolver *oracle.Resolver
	filler   *fill.Filler
	profile  *profile.Profile
	settle   time.Duration
	log      *zap.Logger
}

// New creates a Handler. The extractor must read the same document as the
// filler.
func New(ex *extract.Extractor, resolver *oracle.Resolver, filler *fill.Filler, p *profile.Profile, settle time.Duration, log *zap.Logger) *Handler {
	if log == nil {
		log = zap.L()
	}
	if p == nil {
		p = &profile.Profile{}
	}
	return &Handler{
		doc:      ex.Doc(),
		ex:       ex,
		resolver: resolver,
		filler:   filler,
		profile:  p,
		settle:   settle,
		log:      log,
	}
}

// Handle fills the section labelled by ref according to its route. It
// reports false for generic sections, which the caller walks itself.
func (h *Handler) Handle(ctx context.Context, ref string) ([]model.FillOutcome, bool) {
	route := RouteOf(ref)
	log := h.log.With(zap.String("section", ref), zap.String("route", string(route)))

	switch route {
	case RouteGeneric:
		return nil, false
	case RouteSkip:
		log.Debug("section: skipped")
		return nil, true
	case RouteExperience:
		return h.HandleRepeatable(ctx, ref, h.profile.WorkExperience), true
	case RouteEducation:
		return h.HandleRepeatable(ctx, ref, h.profile.Education), true
	case RouteLanguage:
		return h.HandleRepeatable(ctx, ref, h.profile.FluentLanguages), true
	case RouteSkills:
		return h.HandleBatch(ctx, ref, h.profile.Skills()), true
	case RouteResume:
		return h.HandleBatch(ctx, ref, h.profile.Resume()), true
	}
	return nil, false
}

// HandleRepeatable fills one panel per item, adding panels as needed.
func (h *Handler) HandleRepeatable(ctx context.Context, ref string, items []any) []model.FillOutcome {
	var out []model.FillOutcome
	for i, item := range items {
		if ctx.Err() != nil {
			break
		}
		n := i + 1
		fields := h.panelFields(ctx, ref, n)
		if len(fields) == 0 && h.clickAdd(ctx, ref) {
			fields = h.panelFields(ctx, ref, n)
		}
		if len(fields) == 0 {
			h.log.Debug("section: no fields for panel", zap.String("section", ref), zap.Int("panel", n))
			continue
		}
		out = append(out, h.FillBatch(ctx, fields, item, oracle.BestEffort)...)
	}
	return out
}

// HandleBatch resolves every field of the section as one batch.
func (h *Handler) HandleBatch(ctx context.Context, ref string, slice any) []model.FillOutcome {
	fields := h.fields(ctx, ref)
	if len(fields) == 0 {
		return nil
	}
	return h.FillBatch(ctx, fields, slice, oracle.BestEffort)
}

// FillBatch resolves fields in one oracle call and fills them in order.
// Each outcome carries its fill time plus an even share of the call.
func (h *Handler) FillBatch(ctx context.Context, fields []*extract.Field, slice any, mode oracle.Mode) []model.FillOutcome {
	descriptors := make([]model.FieldDescriptor, len(fields))
	for i, f := range fields {
		descriptors[i] = f.Descriptor
	}

	start := time.Now()
	res := h.resolver.Resolve(ctx, slice, descriptors, mode)
	share := time.Since(start) / time.Duration(len(fields))

	out := make([]model.FillOutcome, 0, len(fields))
	for _, f := range fields {
		began := time.Now()
		v, _ := res.Lookup(f.Descriptor)
		o := h.filler.Fill(ctx, f, v)
		o.DurationMS = (time.Since(began) + share).Milliseconds()
		out = append(out, o)
		_ = h.doc.Settle(ctx, h.settle)
	}
	return out
}

// find re-queries the section by its reference.
func (h *Handler) find(ctx context.Context, ref string) dom.Element {
	el, err := h.doc.Query(ctx, nil, fmt.Sprintf(`div[role="group"][aria-labelledby="%s"]`, strings.ReplaceAll(ref, `"`, `\"`)))
	if err != nil {
		return nil
	}
	return el
}

func (h *Handler) fields(ctx context.Context, ref string) []*extract.Field {
	sec := h.find(ctx, ref)
	if sec == nil {
		return nil
	}
	controls, err := h.doc.QueryAll(ctx, sec, ControlSelector)
	if err != nil {
		return nil
	}
	return group.Build(ctx, h.ex, controls, group.PanelMode)
}

// panelFields returns the fields of panel n.
func (h *Handler) panelFields(ctx context.Context, ref string, n int) []*extract.Field {
	var out []*extract.Field
	for _, f := range h.fields(ctx, ref) {
		if InPanel(f.Descriptor.GroupContext, n) {
			out = append(out, f)
		}
	}
	return out
}

func (h *Handler) clickAdd(ctx context.Context, ref string) bool {
	sec := h.find(ctx, ref)
	if sec == nil {
		return false
	}
	btn, err := h.doc.Query(ctx, sec, AddButton)
	if err != nil || btn == nil {
		return false
	}
	if err := h.doc.Click(ctx, btn); err != nil {
		h.log.Debug("section: click add", zap.String("section", ref), zap.Error(err))
		return false
	}
	_ = h.doc.Settle(ctx, h.settle)
	return true
}

// InPanel reports whether groupContext carries the "{n}-panel" marker, not
// preceded by another digit.
func InPanel(groupContext string, n int) bool {
	marker := fmt.Sprintf("%d-panel", n)
	for off := 0; off < len(groupContext); {
		idx := strings.Index(groupContext[off:], marker)
		if idx < 0 {
			return false
		}
		pos := off + idx
		if pos == 0 || groupContext[pos-1] < '0' || groupContext[pos-1] > '9' {
			return true
		}
		off = pos + 1
	}
	return false
}
