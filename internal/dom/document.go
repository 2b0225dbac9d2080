// Package dom defines the document accessor the form engine drives and its
// browser-backed implementation.
package dom

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
)

// ErrDetached is returned when a handle no longer belongs to the document.
// Callers re-query by selector instead of retrying the stale handle.
var ErrDetached = eris.New("dom: element is detached")

// Element is an opaque handle to a node of a Document. Handles are only
// meaningful to the Document that produced them.
type Element any

// Script names a read-only probe evaluated against an element. Each backend
// implements every probe natively.
type Script string

const (
	// ScriptTagName yields the lowercase tag name.
	ScriptTagName Script = "tag_name"
	// ScriptSiblingText yields the trimmed text of the next element sibling.
	ScriptSiblingText Script = "sibling_text"
	// ScriptConnected yields "true" while the element is attached.
	ScriptConnected Script = "connected"
)

// Document is the primitive query and mutate surface of a rendered page.
// A nil root in Query and QueryAll means the whole document.
type Document interface {
	Query(ctx context.Context, root Element, selector string) (Element, error)
	QueryAll(ctx context.Context, root Element, selector string) ([]Element, error)
	Attr(ctx context.Context, el Element, name string) (string, bool, error)
	IsChecked(ctx context.Context, el Element) (bool, error)
	SetText(ctx context.Context, el Element, text string) error
	Check(ctx context.Context, el Element) error
	Uncheck(ctx context.Context, el Element) error
	Click(ctx context.Context, el Element) error
	Press(ctx context.Context, el Element, key string) error
	Upload(ctx context.Context, el Element, path string) error
	Text(ctx context.Context, el Element) (string, error)
	Parent(ctx context.Context, el Element) (Element, error)
	// Closest returns the nearest strict ancestor matching selector, or nil.
	Closest(ctx context.Context, el Element, selector string) (Element, error)
	Evaluate(ctx context.Context, el Element, script Script) (string, error)
	// Settle waits for the page to react to a mutation.
	Settle(ctx context.Context, d time.Duration) error
}

// AttrOr returns the attribute value or "" when it is absent or unreadable.
func AttrOr(ctx context.Context, doc Document, el Element, name string) string {
	v, ok, err := doc.Attr(ctx, el, name)
	if err != nil || !ok {
		return ""
	}
	return v
}

// Sleep blocks for d or until ctx is done.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return eris.Wrap(ctx.Err(), "dom: settle")
	case <-t.C:
		return nil
	}
}

// Releaser is implemented by documents whose handles pin remote objects
// until released.
type Releaser interface {
	Release(els ...Element)
}

// Release frees handles the caller no longer uses. Nil handles are ignored,
// and documents that are not a Releaser are left alone.
func Release(doc Document, els ...Element) {
	r, ok := doc.(Releaser)
	if !ok {
		return
	}
	live := els[:0:0]
	for _, el := range els {
		if el != nil {
			live = append(live, el)
		}
	}
	if len(live) > 0 {
		r.Release(live...)
	}
}
