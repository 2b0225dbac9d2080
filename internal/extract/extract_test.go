package extract

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/html"

	"github.com/sells-group/autoapply/internal/dom/htmldoc"
	"github.com/sells-group/autoapply/internal/model"
)

func newDoc(t *testing.T, body string) (*htmldoc.Doc, *Extractor) {
	t.Helper()
	doc, err := htmldoc.ParseString("<html><body>" + body + "</body></html>")
	require.NoError(t, err)
	return doc, New(doc, WithSettle(0))
}

func TestNormalize(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want string
	}{
		{"First Name*", "First Name"},
		{"  Email \n Address  ", "Email Address"},
		{"ﬁle Upload", "file Upload"},
		{"*", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Normalize(tt.in), tt.in)
	}
}

func TestLabelPriority(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		body string
		want string
	}{
		{
			name: "label for beats aria-label",
			body: `<label for="a">Legal Name*</label><input id="a" aria-label="Name" placeholder="Type">`,
			want: "Legal Name",
		},
		{
			name: "form field label",
			body: `<div data-automation-id="formField-city"><label><span>City</span></label><div><input id="a"></div></div>`,
			want: "City",
		},
		{
			name: "wrapping label",
			body: `<label>Nickname <input id="a"></label>`,
			want: "Nickname",
		},
		{
			name: "own aria-labelledby",
			body: `<span id="h1">Phone</span><span id="h2">Number</span><input id="a" aria-labelledby="h1 h2">`,
			want: "Phone Number",
		},
		{
			name: "group labelledby",
			body: `<h3 id="g">Preferred Shift</h3><div role="group" aria-labelledby="g"><input id="a"></div>`,
			want: "Preferred Shift",
		},
		{
			name: "legend",
			body: `<fieldset><legend>Address Line</legend><input id="a"></fieldset>`,
			want: "Address Line",
		},
		{
			name: "aria-label beats placeholder",
			body: `<input id="a" aria-label="Zip" placeholder="12345">`,
			want: "Zip",
		},
		{
			name: "placeholder",
			body: `<input id="a" placeholder="Search skills">`,
			want: "Search skills",
		},
		{
			name: "unlabeled",
			body: `<input id="a">`,
			want: model.Unlabeled,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			doc, ex := newDoc(t, tt.body)
			f := ex.Describe(context.Background(), doc.First("#a"))
			require.NotNil(t, f)
			assert.Equal(t, tt.want, f.Descriptor.Question)
		})
	}
}

func TestDescribe_NotFillable(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		body string
	}{
		{"back button", `<button id="a" data-automation-id="pageFooterBackButton">Back</button>`},
		{"job posting", `<button id="a" data-automation-id="backToJobPosting">Job</button>`},
		{"pagination", `<button id="a" data-automation-id="pageFooterNextButton">Next</button>`},
		{"rtl", `<input id="a" dir="rtl">`},
		{"hidden", `<input id="a" type="hidden">`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			doc, ex := newDoc(t, tt.body)
			assert.Nil(t, ex.Describe(context.Background(), doc.First("#a")))
		})
	}

	doc, ex := newDoc(t, `<input id="a">`)
	n := doc.First("#a")
	doc.Remove(n)
	assert.Nil(t, ex.Describe(context.Background(), n))
}

func TestDescribe_Kinds(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		body string
		want model.ControlKind
	}{
		{"text default", `<input id="a">`, model.KindText},
		{"email", `<input id="a" type="email">`, model.KindText},
		{"textarea", `<textarea id="a"></textarea>`, model.KindTextarea},
		{"spinbutton", `<input id="a" type="text" role="spinbutton">`, model.KindSpinbutton},
		{"checkbox", `<input id="a" type="checkbox">`, model.KindCheckbox},
		{"radio", `<input id="a" type="radio">`, model.KindRadio},
		{"file", `<input id="a" type="file">`, model.KindFile},
		{"plain button", `<button id="a">Add</button>`, model.KindUnknown},
		{"submit input", `<input id="a" type="submit">`, model.KindUnknown},
		{"multi value", `<div data-automation-id="multiSelectContainer"><input id="a"></div>`, model.KindMultiValue},
		{"typeahead input", `<input id="a" type="text" role="combobox" aria-autocomplete="list">`, model.KindText},
		{"combobox input without type", `<input id="a" role="combobox">`, model.KindText},
		{"listbox input", `<input id="a" role="combobox" aria-haspopup="listbox">`, model.KindCombobox},
		{"role button input", `<input id="a" role="button">`, model.KindUnknown},
		{"role combobox div", `<div id="a" role="combobox">x</div>`, model.KindUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			doc, ex := newDoc(t, tt.body)
			f := ex.Describe(context.Background(), doc.First("#a"))
			require.NotNil(t, f)
			assert.Equal(t, tt.want, f.Descriptor.Kind)
		})
	}
}

func TestDescribe_ComboboxEnumeratesOptions(t *testing.T) {
	t.Parallel()

	doc, ex := newDoc(t, `
<label for="a">Country</label>
<button id="a" aria-haspopup="listbox">Select One</button>
<div id="list" visibility="closed"><ul>
  <li role="option">United States</li>
  <li role="option"><div>Canada</div></li>
  <li role="option"> </li>
</ul></div>`)

	doc.OnClick(`button[aria-haspopup="listbox"]`, func(d *htmldoc.Doc, _ *html.Node) error {
		list := d.First("#list")
		if v, _ := attr(list, "visibility"); v == "opened" {
			htmldoc.SetAttr(list, "visibility", "closed")
		} else {
			htmldoc.SetAttr(list, "visibility", "opened")
		}
		return nil
	})

	f := ex.Describe(context.Background(), doc.First("#a"))
	require.NotNil(t, f)
	assert.Equal(t, model.KindCombobox, f.Descriptor.Kind)
	assert.Equal(t, []string{"United States", "Canada"}, f.Descriptor.Options)
	// Picker is closed again after enumeration.
	v, _ := attr(doc.First("#list"), "visibility")
	assert.Equal(t, "closed", v)
	assert.Len(t, doc.MutationsOf(htmldoc.OpClick), 2)
}

func TestDescribe_MultiValueMode(t *testing.T) {
	t.Parallel()

	doc, ex := newDoc(t, `
<div data-automation-id="formField-source"><label>How Did You Hear About Us?</label>
<div data-automation-id="multiSelectContainer"><input id="a"></div></div>
<div data-automation-id="formField-skills"><label>Skills</label>
<div data-automation-id="multiSelectContainer"><input id="b"></div></div>`)

	ctx := context.Background()
	a := ex.Describe(ctx, doc.First("#a"))
	require.NotNil(t, a)
	assert.Equal(t, model.MultiValueNested, a.Descriptor.MultiValue)

	b := ex.Describe(ctx, doc.First("#b"))
	require.NotNil(t, b)
	assert.Equal(t, model.MultiValueFlat, b.Descriptor.MultiValue)
	assert.NotNil(t, b.Descriptor.Options)
}

func TestStructuralIDFallbacks(t *testing.T) {
	t.Parallel()

	doc, ex := newDoc(t, `
<input id="a" data-automation-id="legalName">
<input id="b">
<button class="c" aria-haspopup="listbox">x</button>
<input class="d">`)
	ctx := context.Background()

	assert.Equal(t, "legalName", ex.StructuralID(ctx, doc.First("#a")))
	assert.Equal(t, "b", ex.StructuralID(ctx, doc.First("#b")))
	assert.Equal(t, "listbox", ex.StructuralID(ctx, doc.First(".c")))
	assert.Equal(t, "unknown", ex.StructuralID(ctx, doc.First(".d")))
}

func TestGroupContext(t *testing.T) {
	t.Parallel()

	doc, ex := newDoc(t, `
<fieldset aria-labelledby="Work-Experience-1-panel"><input id="a"></fieldset>
<section aria-labelledby="outer"><div><div><input id="b"></div></div></section>
<input id="c">`)
	ctx := context.Background()

	assert.Equal(t, "Work-Experience-1-panel", ex.GroupContext(ctx, doc.First("#a")))
	assert.Equal(t, "outer", ex.GroupContext(ctx, doc.First("#b")))
	assert.Equal(t, "", ex.GroupContext(ctx, doc.First("#c")))
}

func TestDescribeRadio(t *testing.T) {
	t.Parallel()

	doc, ex := newDoc(t, `
<fieldset id="fs1">
  <legend>Are you legally authorized to work?*</legend>
  <input type="radio" id="r1" name="auth" value="true"><label for="r1">Yes</label>
  <input type="radio" id="r2" name="auth" value="false"><span>No</span>
</fieldset>
<fieldset id="fs2">
  <label>Relocate?</label>
  <input type="radio" id="r3" value="true">
  <input type="radio" id="r4">
</fieldset>`)
	ctx := context.Background()

	r1 := ex.DescribeRadio(ctx, doc.First("#r1"))
	require.NotNil(t, r1)
	assert.Equal(t, "auth", r1.GroupKey)
	assert.Equal(t, "Yes", r1.OptionLabel)
	assert.Equal(t, "Are you legally authorized to work?", r1.Question)

	r2 := ex.DescribeRadio(ctx, doc.First("#r2"))
	require.NotNil(t, r2)
	assert.Equal(t, "No", r2.OptionLabel)
	assert.Equal(t, r1.GroupKey, r2.GroupKey)

	r3 := ex.DescribeRadio(ctx, doc.First("#r3"))
	require.NotNil(t, r3)
	assert.Equal(t, "no_group:fs2", r3.GroupKey)
	assert.Equal(t, "Yes", r3.OptionLabel)
	assert.Equal(t, "Relocate?", r3.Question)

	r4 := ex.DescribeRadio(ctx, doc.First("#r4"))
	require.NotNil(t, r4)
	assert.Equal(t, UnknownOption, r4.OptionLabel)

	d := r1.Descriptor()
	assert.Equal(t, model.KindRadio, d.Kind)
	assert.Equal(t, "r1", d.StructuralID)
}

func attr(n *html.Node, key string) (string, bool) {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val, true
		}
	}
	return "", false
}
