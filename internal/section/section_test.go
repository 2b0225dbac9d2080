package section

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/html"

	"github.com/sells-group/autoapply/internal/dom/htmldoc"
	"github.com/sells-group/autoapply/internal/extract"
	"github.com/sells-group/autoapply/internal/fill"
	"github.com/sells-group/autoapply/internal/model"
	"github.com/sells-group/autoapply/internal/oracle"
	"github.com/sells-group/autoapply/internal/profile"
)

type mockOracle struct {
	mock.Mock
}

func (m *mockOracle) Resolve(ctx context.Context, slice any, batch []model.FieldDescriptor, mode oracle.Mode) map[oracle.RequestKey]model.Value {
	args := m.Called(ctx, slice, batch, mode)
	return args.Get(0).(map[oracle.RequestKey]model.Value)
}

// echoOracle answers every field with the "title" of the item it was
// given and remembers each batch.
type echoOracle struct {
	batches [][]model.FieldDescriptor
}

func (e *echoOracle) Resolve(_ context.Context, slice any, batch []model.FieldDescriptor, _ oracle.Mode) map[oracle.RequestKey]model.Value {
	e.batches = append(e.batches, batch)
	item, _ := slice.(map[string]any)
	out := map[oracle.RequestKey]model.Value{}
	for _, d := range batch {
		out[oracle.KeyOf(d)] = model.Text(fmt.Sprint(item["title"]))
	}
	return out
}

func newHandler(t *testing.T, body string, o oracle.Oracle, p *profile.Profile) (*htmldoc.Doc, *Handler) {
	t.Helper()
	doc, err := htmldoc.ParseString("<html><body>" + body + "</body></html>")
	require.NoError(t, err)
	ex := extract.New(doc, extract.WithSettle(0))
	h := New(ex, oracle.NewResolver(o, nil), fill.New(doc, fill.WithSettle(0)), p, 0, nil)
	return doc, h
}

const experienceSection = `
<div role="group" aria-labelledby="Work-Experience-section" id="sec">
  <button data-automation-id="add-button">Add</button>
</div>`

// addPanel appends a new numbered panel to the section on each click.
func addPanel(d *htmldoc.Doc, _ *html.Node) error {
	sec := d.First("#sec")
	n := len(d.Find("#sec fieldset")) + 1
	return d.AppendHTML(sec, fmt.Sprintf(`
<fieldset aria-labelledby="Work-Experience-%d-panel">
  <label for="title-%d">Job Title</label><input id="title-%d" data-automation-id="jobTitle">
</fieldset>`, n, n, n))
}

func TestRouteOf(t *testing.T) {
	t.Parallel()

	tests := map[string]Route{
		"Work-Experience-section": RouteExperience,
		"employmentHistory":       RouteExperience,
		"Education-section":       RouteEducation,
		"Languages-section":       RouteLanguage,
		"Skills-section":          RouteSkills,
		"Resume-section":          RouteResume,
		"documentUpload":          RouteResume,
		"Websites-section":        RouteSkip,
		"Portfolio":               RouteSkip,
		"Address-section":         RouteGeneric,
	}
	for ref, want := range tests {
		assert.Equal(t, want, RouteOf(ref), ref)
	}
	assert.True(t, RouteLanguage.Repeatable())
	assert.False(t, RouteSkills.Repeatable())
}

func TestInPanel(t *testing.T) {
	t.Parallel()

	assert.True(t, InPanel("Work-Experience-1-panel", 1))
	assert.False(t, InPanel("Work-Experience-11-panel", 1))
	assert.True(t, InPanel("Work-Experience-11-panel", 11))
	assert.True(t, InPanel("1-panel", 1))
	assert.True(t, InPanel("x-21-panel y-1-panel", 1))
	assert.False(t, InPanel("Work-Experience-2-panel", 1))
	assert.False(t, InPanel("", 1))
}

func TestHandleRepeatable_AddsAndFillsEachPanel(t *testing.T) {
	t.Parallel()

	o := &echoOracle{}
	doc, h := newHandler(t, experienceSection, o, nil)
	doc.OnClick(`button[data-automation-id="add-button"]`, addPanel)

	items := []any{
		map[string]any{"title": "Engineer"},
		map[string]any{"title": "Analyst"},
	}
	outs := h.HandleRepeatable(context.Background(), "Work-Experience-section", items)

	require.Len(t, outs, 2)
	assert.Equal(t, "Engineer", htmldoc.Value(doc.First("#title-1")))
	assert.Equal(t, "Analyst", htmldoc.Value(doc.First("#title-2")))
	assert.Len(t, doc.MutationsOf(htmldoc.OpClick), 2)

	// One oracle batch per item, each holding only that item's panel.
	require.Len(t, o.batches, 2)
	for i, batch := range o.batches {
		require.Len(t, batch, 1)
		assert.Equal(t, fmt.Sprintf("Work-Experience-%d-panel", i+1), batch[0].GroupContext)
	}
}

func TestHandleRepeatable_ExistingPanelNotReAdded(t *testing.T) {
	t.Parallel()

	o := &mockOracle{}
	o.On("Resolve", mock.Anything, mock.Anything, mock.Anything, oracle.BestEffort).
		Return(map[oracle.RequestKey]model.Value{})

	doc, h := newHandler(t, `
<div role="group" aria-labelledby="Education-section" id="sec">
  <fieldset aria-labelledby="Education-1-panel"><label for="s">School</label><input id="s"></fieldset>
</div>`, o, nil)

	outs := h.HandleRepeatable(context.Background(), "Education-section", []any{map[string]any{}, map[string]any{}})
	require.Len(t, outs, 1)
	assert.Equal(t, model.ReasonSkippedUnmatched, outs[0].Reason)
	assert.Empty(t, doc.MutationsOf(htmldoc.OpClick))
}

func TestHandleBatch(t *testing.T) {
	t.Parallel()

	o := &mockOracle{}
	doc, h := newHandler(t, `
<div role="group" aria-labelledby="Skills-section" id="sec">
  <label for="a">Skill summary</label><input id="a" data-automation-id="skillSummary">
</div>`, o, nil)

	slice := map[string]any{"technical_skills": []any{"Go"}}
	key := oracle.KeyOf(model.FieldDescriptor{Question: "Skill summary", StructuralID: "skillSummary", Kind: model.KindText, GroupContext: "Skills-section"})
	o.On("Resolve", mock.Anything, slice, mock.Anything, oracle.BestEffort).
		Return(map[oracle.RequestKey]model.Value{key: model.Text("Go")}).Once()

	outs := h.HandleBatch(context.Background(), "Skills-section", slice)
	require.Len(t, outs, 1)
	assert.True(t, outs[0].Applied)
	assert.Equal(t, "Go", htmldoc.Value(doc.First("#a")))
	o.AssertExpectations(t)

	assert.Nil(t, h.HandleBatch(context.Background(), "Missing-section", slice))
}

func TestHandle_Routes(t *testing.T) {
	t.Parallel()

	o := &mockOracle{}
	p := &profile.Profile{Documents: profile.Documents{ResumePath: "/nope.pdf"}}
	_, h := newHandler(t, `
<div role="group" aria-labelledby="Address-section"><input aria-label="City"></div>
<div role="group" aria-labelledby="Websites-section"><input aria-label="URL"></div>
<div role="group" aria-labelledby="Resume-section">
  <input type="file" aria-label="Resume" data-automation-id="file-upload-input-ref">
</div>`, o, p)

	o.On("Resolve", mock.Anything, p.Resume(), mock.Anything, oracle.BestEffort).
		Return(map[oracle.RequestKey]model.Value{
			oracle.KeyOf(model.FieldDescriptor{Question: "Resume", StructuralID: extract.FileUploadID, Kind: model.KindFile, GroupContext: "Resume-section"}): model.Text("/nope.pdf"),
		}).Once()

	ctx := context.Background()
	outs, handled := h.Handle(ctx, "Address-section")
	assert.False(t, handled)
	assert.Nil(t, outs)

	outs, handled = h.Handle(ctx, "Websites-section")
	assert.True(t, handled)
	assert.Empty(t, outs)

	outs, handled = h.Handle(ctx, "Resume-section")
	assert.True(t, handled)
	require.Len(t, outs, 1)
	assert.Equal(t, model.ReasonSkippedUnmatched, outs[0].Reason)
	o.AssertExpectations(t)
}
