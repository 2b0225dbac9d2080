package traverse

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/html"

	"github.com/sells-group/autoapply/internal/dom"
	"github.com/sells-group/autoapply/internal/dom/htmldoc"
	"github.com/sells-group/autoapply/internal/extract"
	"github.com/sells-group/autoapply/internal/fill"
	"github.com/sells-group/autoapply/internal/model"
	"github.com/sells-group/autoapply/internal/oracle"
	"github.com/sells-group/autoapply/internal/profile"
	"github.com/sells-group/autoapply/internal/section"
)

// questionOracle answers by question text and records what it was asked.
type questionOracle struct {
	answers map[string]model.Value
	asked   []string
	modes   []oracle.Mode
}

func (q *questionOracle) Resolve(_ context.Context, _ any, batch []model.FieldDescriptor, mode oracle.Mode) map[oracle.RequestKey]model.Value {
	out := map[oracle.RequestKey]model.Value{}
	for _, d := range batch {
		q.asked = append(q.asked, d.Question)
		q.modes = append(q.modes, mode)
		if v, ok := q.answers[d.Question]; ok {
			out[oracle.KeyOf(d)] = v
		}
	}
	return out
}

type fakeSections struct {
	refs []string
}

func (f *fakeSections) Handle(_ context.Context, ref string) ([]model.FillOutcome, bool) {
	f.refs = append(f.refs, ref)
	if ref != "Work-Experience-section" {
		return nil, false
	}
	d := model.FieldDescriptor{Question: "Job Title", Kind: model.KindText}
	return []model.FillOutcome{model.AppliedOutcome(d, model.Text("Engineer"), "")}, true
}

var fixedNow = func() time.Time { return time.Date(2024, time.March, 5, 10, 0, 0, 0, time.UTC) }

func newOrchestrator(t *testing.T, body string, q oracle.Oracle, sections Sections, opts Options) (*htmldoc.Doc, *Orchestrator) {
	t.Helper()
	doc, err := htmldoc.ParseString("<html><body>" + body + "</body></html>")
	require.NoError(t, err)
	ex := extract.New(doc, extract.WithSettle(0))
	if opts.Now == nil {
		opts.Now = fixedNow
	}
	o := New(ex, oracle.NewResolver(q, nil), fill.New(doc, fill.WithSettle(0)), sections, opts, nil)
	return doc, o
}

const firstPage = `
<div data-automation-id="applyFlowPage" id="root">
  <button data-automation-id="backToJobPosting">Back to Job</button>
  <label for="fn">First Name*</label><input id="fn" data-automation-id="legalName--firstName">
  <button aria-haspopup="listbox" aria-label="Country" data-automation-id="countryDropdown">Select</button>
  <button aria-haspopup="listbox" aria-label="Country" data-automation-id="countryMirror">Select</button>
  <fieldset><legend>Are you authorized to work?</legend>
    <input type="radio" id="y" name="auth" value="true"><label for="y">Yes</label>
    <input type="radio" id="n" name="auth" value="false"><label for="n">No</label>
  </fieldset>
  <div role="group" aria-labelledby="selfIdentifiedDisabilityData-section">
    <input role="spinbutton" id="m" data-automation-id="dateSectionMonth-input" aria-label="Month">
    <input role="spinbutton" id="d" data-automation-id="dateSectionDay-input" aria-label="Day">
    <input role="spinbutton" id="yr" data-automation-id="dateSectionYear-input" aria-label="Year">
  </div>
</div>`

const secondPage = `<textarea id="cover" aria-label="Cover Letter"></textarea>`

func nextButton(label string) string {
	return `<button data-automation-id="pageFooterNextButton" id="next">` + label + `</button>`
}

// turnPage swaps in the second page on the first click of the next button
// and relabels it as the submit control.
func turnPage() htmldoc.Hook {
	turned := false
	return func(d *htmldoc.Doc, n *html.Node) error {
		if turned {
			return nil
		}
		turned = true
		root := d.First("#root")
		for c := root.FirstChild; c != nil; c = root.FirstChild {
			root.RemoveChild(c)
		}
		for c := n.FirstChild; c != nil; c = n.FirstChild {
			n.RemoveChild(c)
		}
		n.AppendChild(&html.Node{Type: html.TextNode, Data: "Submit"})
		return d.AppendHTML(root, secondPage)
	}
}

func TestRun_MultiPageSubmission(t *testing.T) {
	t.Parallel()

	q := &questionOracle{answers: map[string]model.Value{
		"First Name":                  model.Text("Ada"),
		"Country":                     model.Text("United States"),
		"Are you authorized to work?": model.Text("Yes"),
		"Cover Letter":                model.Text("Hello"),
	}}
	var pages []int
	opts := Options{
		Submit: true,
		Plan: func(page int) Plan {
			pages = append(pages, page)
			if page == 0 {
				return Plan{Mode: oracle.PersonalInfo}
			}
			return Plan{Mode: oracle.Exhaustive}
		},
	}
	doc, o := newOrchestrator(t, firstPage+nextButton("Save and Continue"), q, &fakeSections{}, opts)
	doc.OnClick("#next", turnPage())

	st, err := o.Run(context.Background())
	require.NoError(t, err)

	assert.True(t, st.Submitted)
	assert.True(t, st.Terminal)
	assert.Equal(t, 1, st.PageIndex)
	assert.Equal(t, model.StateTerminal, st.State)

	var questions []string
	for _, out := range st.Outcomes {
		questions = append(questions, out.Descriptor.Question)
	}
	assert.Equal(t, []string{"First Name", "Country", "Are you authorized to work?", "Month", "Day", "Year", "Cover Letter"}, questions)

	// Date parts bypass the oracle.
	assert.Equal(t, []string{"First Name", "Country", "Are you authorized to work?", "Cover Letter"}, q.asked)
	assert.Equal(t, []oracle.Mode{oracle.PersonalInfo, oracle.PersonalInfo, oracle.PersonalInfo, oracle.Exhaustive}, q.modes)

	assert.Equal(t, "Ada", htmldoc.Value(doc.First("#fn")))
	assert.Equal(t, "03", htmldoc.Value(doc.First("#m")))
	assert.Equal(t, "05", htmldoc.Value(doc.First("#d")))
	assert.Equal(t, "2024", htmldoc.Value(doc.First("#yr")))
	assert.Equal(t, "Hello", htmldoc.Value(doc.First("#cover")))

	radio := st.Outcomes[2]
	assert.Equal(t, model.KindRadioGroup, radio.Descriptor.Kind)
	assert.True(t, radio.Applied)
	_, yes := attrOf(doc.First("#y"), "checked")
	assert.True(t, yes)

	// The country picker has no rendered options. Clicks: enumerate and
	// fill the picker, enumerate its mirror, next, submit.
	assert.Equal(t, model.ReasonSkippedUnmatched, st.Outcomes[1].Reason)
	assert.Len(t, doc.MutationsOf(htmldoc.OpClick), 2+2+2+1+1)

	art := model.NewRunArtifact("run-1", "https://example.test/apply", st, fixedNow())
	assert.Equal(t, 7, art.TotalQuestions)
	assert.Equal(t, 2, art.Pages)
	assert.True(t, art.Submitted)
	assert.Len(t, art.Timing.PerQuestion, 7)
	assert.NotEmpty(t, pages)
}

func TestRun_RoundTripAudit(t *testing.T) {
	t.Parallel()

	q := &questionOracle{answers: map[string]model.Value{
		"First Name": model.Text("Ada"),
		"Country":    model.SkipValue(),
	}}
	_, o := newOrchestrator(t, firstPage, q, nil, Options{})
	st, err := o.Run(context.Background())
	require.NoError(t, err)

	art := model.NewRunArtifact("r", "u", st, fixedNow())
	var applied []model.FillOutcome
	for _, out := range st.Outcomes {
		if out.Applied && !out.RequestedValue.IsSkip() {
			applied = append(applied, out)
		}
	}
	require.NotEmpty(t, applied)

	// Applied outcomes appear in the artifact in traversal order.
	i := 0
	for _, rec := range art.ApplicationData {
		if i < len(applied) && rec.Question == applied[i].Descriptor.Question {
			assert.Equal(t, applied[i].RequestedValue, rec.ResolvedValue)
			assert.True(t, rec.Applied)
			i++
		}
	}
	assert.Equal(t, len(applied), i)

	for _, rec := range art.ApplicationData {
		assert.NotEqual(t, model.ReasonSkippedExplicit, rec.Reason)
	}
}

func TestRun_SubmitDisabled(t *testing.T) {
	t.Parallel()

	q := &questionOracle{}
	doc, o := newOrchestrator(t, `<div data-automation-id="applyFlowPage" id="root">`+secondPage+`</div>`+nextButton("Submit"), q, nil, Options{Submit: false})

	st, err := o.Run(context.Background())
	require.NoError(t, err)
	assert.False(t, st.Submitted)
	assert.True(t, st.Terminal)
	for _, m := range doc.MutationsOf(htmldoc.OpClick) {
		assert.NotEqual(t, doc.First("#next"), m.Node)
	}
}

func TestRun_MaxPages(t *testing.T) {
	t.Parallel()

	doc, o := newOrchestrator(t, `<div data-automation-id="applyFlowPage" id="root"></div>`+nextButton("Next"),
		&questionOracle{}, nil, Options{MaxPages: 1})
	st, err := o.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, st.PageIndex)
	assert.True(t, st.Terminal)
	assert.Empty(t, doc.MutationsOf(htmldoc.OpClick))
}

func TestRun_NoPaginationTerminates(t *testing.T) {
	t.Parallel()

	_, o := newOrchestrator(t, `<div data-automation-id="applyFlowPage"><input aria-label="City"></div>`,
		&questionOracle{answers: map[string]model.Value{"City": model.Text("Austin")}}, nil, Options{})
	st, err := o.Run(context.Background())
	require.NoError(t, err)
	assert.False(t, st.Submitted)
	require.Len(t, st.Outcomes, 1)
	assert.True(t, st.Outcomes[0].Applied)
}

func TestRun_NoFormRoot(t *testing.T) {
	t.Parallel()

	_, o := newOrchestrator(t, `<input aria-label="Search">`, &questionOracle{}, nil, Options{})
	st, err := o.Run(context.Background())
	require.NoError(t, err)
	assert.True(t, st.Terminal)
	assert.Empty(t, st.Outcomes)
}

func TestRun_CancelledContext(t *testing.T) {
	t.Parallel()

	_, o := newOrchestrator(t, firstPage, &questionOracle{}, nil, Options{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	st, err := o.Run(ctx)
	require.Error(t, err)
	assert.NotNil(t, st)
}

func TestRun_SectionsHandledOnce(t *testing.T) {
	t.Parallel()

	q := &questionOracle{answers: map[string]model.Value{"City": model.Text("Austin")}}
	sections := &fakeSections{}
	_, o := newOrchestrator(t, `
<div data-automation-id="applyFlowPage">
  <div role="group" aria-labelledby="Work-Experience-section">
    <button data-automation-id="add-button">Add</button>
    <input aria-label="Job Title">
  </div>
  <div role="group" aria-labelledby="Address-section">
    <input aria-label="City">
  </div>
</div>`, q, sections, Options{})

	st, err := o.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{"Work-Experience-section", "Address-section"}, sections.refs)
	assert.Equal(t, []string{"City"}, q.asked)
	require.Len(t, st.Outcomes, 2)
	assert.Equal(t, "Job Title", st.Outcomes[0].Descriptor.Question)
	assert.Equal(t, "City", st.Outcomes[1].Descriptor.Question)
	assert.True(t, st.Sections["Work-Experience-section"])
	assert.False(t, st.Sections["Address-section"])
}

func TestRun_DateFallbacks(t *testing.T) {
	t.Parallel()

	doc, o := newOrchestrator(t, `
<div data-automation-id="applyFlowPage">
  <input id="b" data-automation-id="birthdate" aria-label="Date of Birth">
  <input id="a" data-automation-id="availabilityDate" aria-label="Available From">
</div>`, &questionOracle{}, nil, Options{})

	_, err := o.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "01/01/1990", htmldoc.Value(doc.First("#b")))
	assert.Equal(t, "03/05/2024", htmldoc.Value(doc.First("#a")))
}

func TestDateHelpers(t *testing.T) {
	t.Parallel()

	assert.True(t, isSignatureDate("dateSectionMonth-input", "selfIdentifiedDisabilityData-section"))
	assert.False(t, isSignatureDate("dateSectionMonth-input", "other"))

	now := fixedNow()
	for id, want := range map[string]string{"dateSectionMonth": "03", "dateSectionDay": "05", "dateSectionYear": "2024"} {
		got, ok := datePart(id, now)
		require.True(t, ok)
		assert.Equal(t, want, got)
	}
	_, ok := datePart("dateSection", now)
	assert.False(t, ok)

	_, ok = dateFallback(model.FieldDescriptor{StructuralID: "firstName"}, now)
	assert.False(t, ok)
}

func TestProfilePlanAndDefaults(t *testing.T) {
	t.Parallel()

	opts := Options{}.withDefaults()
	assert.Equal(t, 20, opts.MaxPages)
	assert.Equal(t, oracle.Exhaustive, opts.Plan(3).Mode)
	assert.NotNil(t, opts.Now)
}

func attrOf(n *html.Node, key string) (string, bool) {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val, true
		}
	}
	return "", false
}

const nestedExperience = `
<div data-automation-id="applyFlowPage">
  <div role="group" aria-labelledby="Work-Experience-section" id="sec">
    <div role="group" aria-labelledby="Work-Experience-1-panel">
      <label for="title-1">Job Title</label><input id="title-1">
    </div>
    <button data-automation-id="add-button">Add</button>
  </div>
</div>`

// addGroupPanel appends the next numbered panel as a labelled group.
func addGroupPanel(d *htmldoc.Doc, _ *html.Node) error {
	n := len(d.Find(`#sec div[role="group"]`)) + 1
	return d.AppendHTML(d.First("#sec"), fmt.Sprintf(`
<div role="group" aria-labelledby="Work-Experience-%d-panel">
  <label for="title-%d">Job Title</label><input id="title-%d">
</div>`, n, n, n))
}

func TestRun_NestedPanelsBelongToTheirSection(t *testing.T) {
	t.Parallel()

	doc, err := htmldoc.ParseString("<html><body>" + nestedExperience + "</body></html>")
	require.NoError(t, err)
	doc.OnClick(`button[data-automation-id="add-button"]`, addGroupPanel)

	q := &questionOracle{answers: map[string]model.Value{"Job Title": model.Text("Engineer")}}
	ex := extract.New(doc, extract.WithSettle(0))
	resolver := oracle.NewResolver(q, nil)
	filler := fill.New(doc, fill.WithSettle(0))
	p := &profile.Profile{WorkExperience: []any{
		map[string]any{"title": "Engineer"},
		map[string]any{"title": "Analyst"},
	}}
	o := New(ex, resolver, filler, section.New(ex, resolver, filler, p, 0, nil), Options{Now: fixedNow}, nil)

	st, err := o.Run(context.Background())
	require.NoError(t, err)

	// One batch per item, and each panel filled exactly once.
	assert.Equal(t, []string{"Job Title", "Job Title"}, q.asked)
	require.Len(t, st.Outcomes, 2)
	assert.Equal(t, "Work-Experience-1-panel", st.Outcomes[0].Descriptor.GroupContext)
	assert.Equal(t, "Work-Experience-2-panel", st.Outcomes[1].Descriptor.GroupContext)
	assert.Len(t, doc.MutationsOf(htmldoc.OpClick), 1)
	assert.Equal(t, map[string]bool{"Work-Experience-section": true}, st.Sections)
	assert.Equal(t, "Engineer", htmldoc.Value(doc.First("#title-2")))
}

func TestRun_TypeaheadInputIsFilled(t *testing.T) {
	t.Parallel()

	q := &questionOracle{answers: map[string]model.Value{"City": model.Text("Austin")}}
	doc, o := newOrchestrator(t, `
<div data-automation-id="applyFlowPage">
  <label for="city">City</label><input id="city" type="text" role="combobox" aria-autocomplete="list">
</div>`, q, nil, Options{})

	st, err := o.Run(context.Background())
	require.NoError(t, err)
	require.Len(t, st.Outcomes, 1)
	assert.True(t, st.Outcomes[0].Applied)
	assert.Equal(t, model.KindText, st.Outcomes[0].Descriptor.Kind)
	assert.Equal(t, "Austin", htmldoc.Value(doc.First("#city")))
}

// releasingDoc records the handles the orchestrator hands back.
type releasingDoc struct {
	*htmldoc.Doc
	released map[dom.Element]int
}

func (r *releasingDoc) Release(els ...dom.Element) {
	for _, el := range els {
		r.released[el]++
	}
}

func TestRun_ReleasesScannedHandles(t *testing.T) {
	t.Parallel()

	base, err := htmldoc.ParseString("<html><body>" + nestedExperience + "</body></html>")
	require.NoError(t, err)
	doc := &releasingDoc{Doc: base, released: map[dom.Element]int{}}

	q := &questionOracle{answers: map[string]model.Value{"Job Title": model.Text("Engineer")}}
	o := New(extract.New(doc, extract.WithSettle(0)), oracle.NewResolver(q, nil), fill.New(doc, fill.WithSettle(0)), nil, Options{Now: fixedNow}, nil)

	_, err = o.Run(context.Background())
	require.NoError(t, err)

	assert.Positive(t, doc.released[base.First("#title-1")])
	assert.Positive(t, doc.released[base.First("#sec")])
	assert.Positive(t, doc.released[base.First(`[data-automation-id="applyFlowPage"]`)])
}
