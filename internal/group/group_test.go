package group

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/autoapply/internal/dom"
	"github.com/sells-group/autoapply/internal/dom/htmldoc"
	"github.com/sells-group/autoapply/internal/extract"
	"github.com/sells-group/autoapply/internal/model"
)

const controlSelector = `button, input, select, textarea, [role="button"]`

func build(t *testing.T, body string, mode Mode) []*extract.Field {
	t.Helper()
	doc, err := htmldoc.ParseString("<html><body>" + body + "</body></html>")
	require.NoError(t, err)
	ctx := context.Background()
	controls, err := doc.QueryAll(ctx, nil, controlSelector)
	require.NoError(t, err)
	return Build(ctx, extract.New(doc, extract.WithSettle(0)), controls, mode)
}

func questions(fields []*extract.Field) []string {
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		out = append(out, f.Descriptor.Question)
	}
	return out
}

func TestBuild_RadioGroupInvariant(t *testing.T) {
	t.Parallel()

	fields := build(t, `
<label for="first">First Name</label><input id="first">
<fieldset>
  <legend>Preferred contact</legend>
  <input type="radio" id="r1" name="contact"><label for="r1">Email</label>
  <input type="radio" id="r2" name="contact"><label for="r2">Phone</label>
</fieldset>
<label for="last">Last Name</label><input id="last">
<fieldset>
  <legend>Preferred contact</legend>
  <input type="radio" id="r3" name="contact"><label for="r3">Text</label>
</fieldset>`, PageMode)

	require.Len(t, fields, 3)
	assert.Equal(t, []string{"First Name", "Preferred contact", "Last Name"}, questions(fields))

	g := fields[1]
	assert.Equal(t, model.KindRadioGroup, g.Descriptor.Kind)
	assert.Equal(t, []string{"Email", "Phone", "Text"}, g.Descriptor.Options)
	require.Len(t, g.Handles, len(g.Descriptor.Options))
	assert.Equal(t, "radio_group_contact", g.Descriptor.StructuralID)
}

func TestBuild_SingleRadioStaysLegacy(t *testing.T) {
	t.Parallel()

	fields := build(t, `<label for="r1">I agree</label><input type="radio" id="r1" name="agree">`, PageMode)
	require.Len(t, fields, 1)
	assert.Equal(t, model.KindRadio, fields[0].Descriptor.Kind)
	assert.Nil(t, fields[0].Handles)
}

func TestBuild_PageModeDropsRepeatedCombobox(t *testing.T) {
	t.Parallel()

	fields := build(t, `
<button aria-haspopup="listbox" aria-label="Country">Select</button>
<button aria-haspopup="listbox" aria-label="country">Select</button>
<input aria-label="Country">`, PageMode)

	require.Len(t, fields, 2)
	assert.Equal(t, model.KindCombobox, fields[0].Descriptor.Kind)
	assert.Equal(t, model.KindText, fields[1].Descriptor.Kind)
}

func TestBuild_PanelModeDropsAfterButtonLike(t *testing.T) {
	t.Parallel()

	fields := build(t, `
<button aria-haspopup="listbox" aria-label="Degree">Select</button>
<button aria-haspopup="listbox" aria-label="Degree">Select</button>
<button aria-haspopup="listbox" aria-label="Resume">Select</button>
<button aria-haspopup="listbox" aria-label="Resume" data-automation-id="file-upload-input-ref">Select</button>`, PanelMode)

	assert.Equal(t, []string{"Degree", "Resume", "Resume"}, questions(fields))
	assert.Equal(t, extract.FileUploadID, fields[2].Descriptor.StructuralID)
}

func TestBuild_UnknownTrackedNotEmitted(t *testing.T) {
	t.Parallel()

	fields := build(t, `
<button aria-label="Add">Add</button>
<button aria-label="Add">Add</button>
<input aria-label="Add">`, PanelMode)

	require.Len(t, fields, 1)
	assert.Equal(t, model.KindText, fields[0].Descriptor.Kind)
}

func TestMerge(t *testing.T) {
	t.Parallel()

	assert.Nil(t, Merge(nil))

	var a, b dom.Element = "a", "b"
	f := Merge([]*extract.RadioMember{
		{Handle: a, GroupKey: "k", OptionLabel: "Yes", Question: "Q", Required: true},
		{Handle: b, GroupKey: "k", OptionLabel: "No", Question: "Q"},
	})
	require.NotNil(t, f)
	assert.Equal(t, []string{"Yes", "No"}, f.Descriptor.Options)
	assert.Equal(t, []dom.Element{a, b}, f.Handles)
	assert.True(t, f.Descriptor.Required)
	assert.Equal(t, "page", PageMode.String())
	assert.Equal(t, "panel", PanelMode.String())
}
