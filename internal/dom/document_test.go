package dom_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/autoapply/internal/dom"
	"github.com/sells-group/autoapply/internal/dom/htmldoc"
)

func TestAttrOr(t *testing.T) {
	t.Parallel()

	doc, err := htmldoc.ParseString(`<input id="a" placeholder="Email">`)
	require.NoError(t, err)
	el := doc.First("#a")

	ctx := context.Background()
	assert.Equal(t, "Email", dom.AttrOr(ctx, doc, el, "placeholder"))
	assert.Equal(t, "", dom.AttrOr(ctx, doc, el, "aria-label"))

	doc.Remove(el)
	assert.Equal(t, "", dom.AttrOr(ctx, doc, el, "placeholder"))
}

func TestSleep(t *testing.T) {
	t.Parallel()

	require.NoError(t, dom.Sleep(context.Background(), time.Millisecond))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, dom.Sleep(ctx, time.Hour), context.Canceled)
	assert.ErrorIs(t, dom.Sleep(ctx, 0), context.Canceled)
}

type recordingDoc struct {
	*htmldoc.Doc
	released []dom.Element
}

func (r *recordingDoc) Release(els ...dom.Element) {
	r.released = append(r.released, els...)
}

func TestRelease(t *testing.T) {
	t.Parallel()

	base, err := htmldoc.ParseString(`<input id="a"><input id="b">`)
	require.NoError(t, err)
	a, b := base.First("#a"), base.First("#b")

	doc := &recordingDoc{Doc: base}
	dom.Release(doc, a, nil, b)
	assert.Equal(t, []dom.Element{a, b}, doc.released)

	dom.Release(doc)
	dom.Release(doc, nil)
	assert.Len(t, doc.released, 2)

	// Documents without handle lifetimes are left alone.
	assert.NotPanics(t, func() { dom.Release(base, a) })
}
