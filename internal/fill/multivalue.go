package fill

import (
	"context"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/autoapply/internal/dom"
	"github.com/sells-group/autoapply/internal/extract"
	"github.com/sells-group/autoapply/internal/model"
)

// multiValue types each item into a tag picker and selects a suggestion.
func (f *Filler) multiValue(ctx context.Context, field *extract.Field, v model.Value) (model.FillOutcome, error) {
	d := field.Descriptor
	container, err := f.doc.Closest(ctx, field.Handle, extract.MultiSelectSelector)
	if err != nil {
		return model.FillOutcome{}, eris.Wrap(err, "fill: find picker container")
	}
	if container == nil {
		container = field.Handle
	}
	nested := d.MultiValue == model.MultiValueNested

	picked := 0
	for _, item := range v.Items {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		ok, err := f.addItem(ctx, container, field.Handle, item, nested)
		if err != nil {
			return model.FillOutcome{}, eris.Wrapf(err, "fill: add %q", item)
		}
		if ok {
			picked++
		}
	}

	if picked == 0 {
		return model.SkippedOutcome(d, v, model.ReasonSkippedUnmatched, "no suggestions"), nil
	}
	return model.AppliedOutcome(d, v, ""), nil
}

func (f *Filler) addItem(ctx context.Context, container, input dom.Element, item string, nested bool) (bool, error) {
	if err := f.doc.Click(ctx, container); err != nil {
		return false, err
	}
	if err := f.doc.SetText(ctx, input, ""); err != nil {
		return false, err
	}
	if err := f.doc.SetText(ctx, input, item); err != nil {
		return false, err
	}
	if err := f.doc.Press(ctx, input, "Enter"); err != nil {
		return false, err
	}
	_ = f.doc.Settle(ctx, f.settle)

	ok, err := f.chooseSuggestion(ctx, item, nested)
	if err != nil || !ok || !nested {
		return ok, err
	}
	// The first pick revealed a category; choose within it.
	_ = f.doc.Settle(ctx, f.settle)
	return f.chooseSuggestion(ctx, item, false)
}

// chooseSuggestion selects the best visible suggestion for item. It reports
// false when no suggestions are shown.
func (f *Filler) chooseSuggestion(ctx context.Context, item string, boost bool) (bool, error) {
	nodes, err := f.doc.QueryAll(ctx, nil, SuggestionSelector)
	if err != nil {
		return false, err
	}
	texts := make([]string, len(nodes))
	for i, n := range nodes {
		texts[i], _ = f.doc.Text(ctx, n)
	}
	idx := pickSuggestion(item, texts, boost)
	if idx < 0 {
		return false, nil
	}

	target := nodes[idx]
	if box, _ := f.doc.Query(ctx, target, `input[type="checkbox"]`); box != nil {
		if on, err := f.doc.IsChecked(ctx, box); err == nil && on {
			f.log.Debug("fill: suggestion already selected", zap.String("item", item), zap.String("option", texts[idx]))
			return true, nil
		}
	}
	if err := f.doc.Click(ctx, target); err != nil {
		return false, err
	}
	_ = f.doc.Settle(ctx, f.settle)
	return true, nil
}
