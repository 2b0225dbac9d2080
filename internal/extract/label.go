package extract

import (
	"context"
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/sells-group/autoapply/internal/dom"
)

// Normalize strips required-field asterisks, applies NFKC and collapses
// whitespace.
func Normalize(s string) string {
	s = strings.ReplaceAll(s, "*", "")
	s = norm.NFKC.String(s)
	return strings.Join(strings.Fields(s), " ")
}

// Label runs the label priority chain for el and returns the first non-empty
// candidate, or "" when every source is empty.
func (e *Extractor) Label(ctx context.Context, el dom.Element) string {
	sources := []func(context.Context, dom.Element) string{
		e.labelFor,
		e.formFieldLabel,
		e.wrappingLabel,
		e.labelledBy,
		e.legend,
		func(ctx context.Context, el dom.Element) string { return dom.AttrOr(ctx, e.doc, el, "aria-label") },
		func(ctx context.Context, el dom.Element) string { return dom.AttrOr(ctx, e.doc, el, "placeholder") },
	}
	for _, src := range sources {
		if s := Normalize(src(ctx, el)); s != "" {
			return s
		}
	}
	return ""
}

func (e *Extractor) text(ctx context.Context, el dom.Element) string {
	if el == nil {
		return ""
	}
	s, err := e.doc.Text(ctx, el)
	if err != nil {
		return ""
	}
	return s
}

func (e *Extractor) labelFor(ctx context.Context, el dom.Element) string {
	id := dom.AttrOr(ctx, e.doc, el, "id")
	if id == "" {
		return ""
	}
	lbl, err := e.doc.Query(ctx, nil, `label[for="`+cssEscape(id)+`"]`)
	if err != nil {
		return ""
	}
	return e.text(ctx, lbl)
}

func (e *Extractor) formFieldLabel(ctx context.Context, el dom.Element) string {
	field, err := e.doc.Closest(ctx, el, `div[data-automation-id^="formField-"]`)
	if err != nil || field == nil {
		return ""
	}
	lbl, err := e.doc.Query(ctx, field, "label span, label")
	if err != nil {
		return ""
	}
	return e.text(ctx, lbl)
}

func (e *Extractor) wrappingLabel(ctx context.Context, el dom.Element) string {
	lbl, err := e.doc.Closest(ctx, el, "label")
	if err != nil {
		return ""
	}
	return e.text(ctx, lbl)
}

func (e *Extractor) labelledBy(ctx context.Context, el dom.Element) string {
	if ref := dom.AttrOr(ctx, e.doc, el, "aria-labelledby"); ref != "" {
		return e.ResolveRef(ctx, ref)
	}
	return e.ResolveRef(ctx, e.GroupContext(ctx, el))
}

func (e *Extractor) legend(ctx context.Context, el dom.Element) string {
	fs, err := e.doc.Closest(ctx, el, "fieldset")
	if err != nil || fs == nil {
		return ""
	}
	lg, err := e.doc.Query(ctx, fs, "legend")
	if err != nil {
		return ""
	}
	return e.text(ctx, lg)
}

// ResolveRef returns the joined text of the elements named by a
// space-separated id reference list.
func (e *Extractor) ResolveRef(ctx context.Context, ref string) string {
	var parts []string
	for _, id := range strings.Fields(ref) {
		node, err := e.doc.Query(ctx, nil, `[id="`+cssEscape(id)+`"]`)
		if err != nil || node == nil {
			continue
		}
		if s := e.text(ctx, node); s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, " ")
}

func cssEscape(s string) string {
	return strings.NewReplacer(`\`, `\\`, `"`, `\"`).Replace(s)
}
