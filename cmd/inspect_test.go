package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/autoapply/internal/group"
	"github.com/sells-group/autoapply/internal/model"
)

const snapshot = `<html><body>
<nav><input aria-label="Search jobs"></nav>
<div data-automation-id="applyFlowPage">
  <label for="fn">First Name*</label><input id="fn" data-automation-id="legalName--firstName" required>
  <fieldset><legend>Are you authorized to work?</legend>
    <input type="radio" id="y" name="auth"><label for="y">Yes</label>
    <input type="radio" id="n" name="auth"><label for="n">No</label>
  </fieldset>
  <button data-automation-id="pageFooterNextButton">Save and Continue</button>
</div>
</body></html>`

func writeSnapshot(t *testing.T, html string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "page.html")
	require.NoError(t, os.WriteFile(path, []byte(html), 0o644))
	return path
}

func TestInspectSnapshot(t *testing.T) {
	descs, err := inspectSnapshot(context.Background(), writeSnapshot(t, snapshot), group.PageMode)
	require.NoError(t, err)
	require.Len(t, descs, 2)

	assert.Equal(t, "First Name", descs[0].Question)
	assert.Equal(t, model.KindText, descs[0].Kind)
	assert.True(t, descs[0].Required)

	assert.Equal(t, "Are you authorized to work?", descs[1].Question)
	assert.Equal(t, model.KindRadioGroup, descs[1].Kind)
	assert.Equal(t, []string{"Yes", "No"}, descs[1].Options)

	var buf bytes.Buffer
	formatDescriptors(&buf, descs)
	assert.Contains(t, buf.String(), "QUESTION")
	assert.Contains(t, buf.String(), "Yes | No")
	assert.NotContains(t, buf.String(), "Search jobs")
}

func TestInspectSnapshot_NoFormRoot(t *testing.T) {
	descs, err := inspectSnapshot(context.Background(), writeSnapshot(t, `<html><body><input aria-label="Email"></body></html>`), group.PageMode)
	require.NoError(t, err)
	require.Len(t, descs, 1)
	assert.Equal(t, "Email", descs[0].Question)
}

func TestInspectSnapshot_MissingFile(t *testing.T) {
	_, err := inspectSnapshot(context.Background(), filepath.Join(t.TempDir(), "none.html"), group.PageMode)
	assert.Error(t, err)
}
