// Package htmldoc implements dom.Document over a parsed HTML snapshot.
//
// Mutations change the node tree in place and are appended to a log, so the
// form engine can run against saved pages and test fixtures without a browser.
// Click hooks stand in for the page scripts that open pickers or add panels.
package htmldoc

import (
	"context"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/rotisserie/eris"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/sells-group/autoapply/internal/dom"
)

// Op names a recorded mutation.
type Op string

const (
	OpSetText Op = "set_text"
	OpCheck   Op = "check"
	OpUncheck Op = "uncheck"
	OpClick   Op = "click"
	OpPress   Op = "press"
	OpUpload  Op = "upload"
)

// Mutation is one recorded write against the document.
type Mutation struct {
	Op    Op
	Node  *html.Node
	Value string
}

// Hook runs after a click on a node matching its selector.
type Hook func(d *Doc, n *html.Node) error

type clickHook struct {
	selector string
	fn       Hook
}

// Doc is a dom.Document over an in-memory node tree. It is safe for use by
// one session at a time; the mutex only guards the mutation log.
type Doc struct {
	root  *html.Node
	hooks []clickHook

	mu  sync.Mutex
	log []Mutation
}

var _ dom.Document = (*Doc)(nil)

// Parse reads an HTML document.
func Parse(r io.Reader) (*Doc, error) {
	root, err := html.Parse(r)
	if err != nil {
		return nil, eris.Wrap(err, "htmldoc: parse")
	}
	return &Doc{root: root}, nil
}

// ParseString parses an HTML string.
func ParseString(s string) (*Doc, error) {
	return Parse(strings.NewReader(s))
}

// Open parses the HTML file at path.
func Open(path string) (*Doc, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "htmldoc: open %s", path)
	}
	defer f.Close() //nolint:errcheck
	return Parse(f)
}

// OnClick registers fn to run after clicks on nodes matching selector.
func (d *Doc) OnClick(selector string, fn Hook) {
	d.hooks = append(d.hooks, clickHook{selector: selector, fn: fn})
}

// Mutations returns a copy of the mutation log.
func (d *Doc) Mutations() []Mutation {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]Mutation, len(d.log))
	copy(out, d.log)
	return out
}

// MutationsOf returns the logged mutations with the given op.
func (d *Doc) MutationsOf(op Op) []Mutation {
	var out []Mutation
	for _, m := range d.Mutations() {
		if m.Op == op {
			out = append(out, m)
		}
	}
	return out
}

func (d *Doc) record(op Op, n *html.Node, value string) {
	d.mu.Lock()
	d.log = append(d.log, Mutation{Op: op, Node: n, Value: value})
	d.mu.Unlock()
}

// Find returns every node under the document matching selector.
func (d *Doc) Find(selector string) []*html.Node {
	return goquery.NewDocumentFromNode(d.root).Find(selector).Nodes
}

// First returns the first node matching selector, or nil.
func (d *Doc) First(selector string) *html.Node {
	nodes := d.Find(selector)
	if len(nodes) == 0 {
		return nil
	}
	return nodes[0]
}

// AppendHTML parses fragment in the context of parent and appends the
// resulting nodes to it.
func (d *Doc) AppendHTML(parent *html.Node, fragment string) error {
	ctxNode := &html.Node{Type: html.ElementNode, Data: "div", DataAtom: atom.Div}
	nodes, err := html.ParseFragment(strings.NewReader(fragment), ctxNode)
	if err != nil {
		return eris.Wrap(err, "htmldoc: parse fragment")
	}
	for _, n := range nodes {
		parent.AppendChild(n)
	}
	return nil
}

// Remove detaches n from the tree.
func (d *Doc) Remove(n *html.Node) {
	if n.Parent != nil {
		n.Parent.RemoveChild(n)
	}
}

// Value returns the current value attribute of n.
func Value(n *html.Node) string {
	v, _ := getAttr(n, "value")
	return v
}

// SetAttr sets attribute key on n.
func SetAttr(n *html.Node, key, val string) {
	for i := range n.Attr {
		if n.Attr[i].Key == key {
			n.Attr[i].Val = val
			return
		}
	}
	n.Attr = append(n.Attr, html.Attribute{Key: key, Val: val})
}

// RemoveAttr deletes attribute key from n.
func RemoveAttr(n *html.Node, key string) {
	attrs := n.Attr[:0]
	for _, a := range n.Attr {
		if a.Key != key {
			attrs = append(attrs, a)
		}
	}
	n.Attr = attrs
}

func getAttr(n *html.Node, key string) (string, bool) {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val, true
		}
	}
	return "", false
}

// node resolves a handle and verifies it is still attached under the root.
func (d *Doc) node(el dom.Element) (*html.Node, error) {
	n, ok := el.(*html.Node)
	if !ok || n == nil {
		return nil, dom.ErrDetached
	}
	for p := n; p != nil; p = p.Parent {
		if p == d.root {
			return n, nil
		}
	}
	return nil, dom.ErrDetached
}

func (d *Doc) selection(root dom.Element) (*goquery.Selection, error) {
	if root == nil {
		return goquery.NewDocumentFromNode(d.root).Selection, nil
	}
	n, err := d.node(root)
	if err != nil {
		return nil, err
	}
	return goquery.NewDocumentFromNode(n).Selection, nil
}

func (d *Doc) Query(ctx context.Context, root dom.Element, selector string) (dom.Element, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	sel, err := d.selection(root)
	if err != nil {
		return nil, err
	}
	found := sel.Find(selector)
	if found.Length() == 0 {
		return nil, nil
	}
	return found.Nodes[0], nil
}

func (d *Doc) QueryAll(ctx context.Context, root dom.Element, selector string) ([]dom.Element, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	sel, err := d.selection(root)
	if err != nil {
		return nil, err
	}
	nodes := sel.Find(selector).Nodes
	out := make([]dom.Element, 0, len(nodes))
	for _, n := range nodes {
		out = append(out, n)
	}
	return out, nil
}

func (d *Doc) Attr(ctx context.Context, el dom.Element, name string) (string, bool, error) {
	if err := ctx.Err(); err != nil {
		return "", false, err
	}
	n, err := d.node(el)
	if err != nil {
		return "", false, err
	}
	v, ok := getAttr(n, name)
	return v, ok, nil
}

func (d *Doc) IsChecked(ctx context.Context, el dom.Element) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	n, err := d.node(el)
	if err != nil {
		return false, err
	}
	return isChecked(n), nil
}

func isChecked(n *html.Node) bool {
	if _, ok := getAttr(n, "checked"); ok {
		return true
	}
	v, _ := getAttr(n, "aria-checked")
	return v == "true"
}

func (d *Doc) SetText(ctx context.Context, el dom.Element, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	n, err := d.node(el)
	if err != nil {
		return err
	}
	if n.DataAtom == atom.Textarea {
		for c := n.FirstChild; c != nil; c = n.FirstChild {
			n.RemoveChild(c)
		}
		n.AppendChild(&html.Node{Type: html.TextNode, Data: text})
	}
	SetAttr(n, "value", text)
	d.record(OpSetText, n, text)
	return nil
}

func (d *Doc) setChecked(n *html.Node, on bool) {
	if !on {
		RemoveAttr(n, "checked")
		if _, ok := getAttr(n, "aria-checked"); ok {
			SetAttr(n, "aria-checked", "false")
		}
		return
	}
	if t, _ := getAttr(n, "type"); t == "radio" {
		if name, ok := getAttr(n, "name"); ok && name != "" {
			for _, other := range d.Find(`input[type="radio"]`) {
				if v, _ := getAttr(other, "name"); v == name && other != n {
					RemoveAttr(other, "checked")
				}
			}
		}
	}
	SetAttr(n, "checked", "")
	if _, ok := getAttr(n, "aria-checked"); ok {
		SetAttr(n, "aria-checked", "true")
	}
}

func (d *Doc) Check(ctx context.Context, el dom.Element) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	n, err := d.node(el)
	if err != nil {
		return err
	}
	d.setChecked(n, true)
	d.record(OpCheck, n, "")
	return nil
}

func (d *Doc) Uncheck(ctx context.Context, el dom.Element) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	n, err := d.node(el)
	if err != nil {
		return err
	}
	d.setChecked(n, false)
	d.record(OpUncheck, n, "")
	return nil
}

// Click records the click, toggles native checkable inputs and runs the
// matching hooks in registration order.
func (d *Doc) Click(ctx context.Context, el dom.Element) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	n, err := d.node(el)
	if err != nil {
		return err
	}
	d.record(OpClick, n, "")

	if n.DataAtom == atom.Input {
		switch t, _ := getAttr(n, "type"); t {
		case "checkbox":
			d.setChecked(n, !isChecked(n))
		case "radio":
			d.setChecked(n, true)
		}
	}

	sel := goquery.NewDocumentFromNode(n).Selection
	for _, h := range d.hooks {
		if !sel.Is(h.selector) {
			continue
		}
		if err := h.fn(d, n); err != nil {
			return eris.Wrapf(err, "htmldoc: click hook %s", h.selector)
		}
	}
	return nil
}

func (d *Doc) Press(ctx context.Context, el dom.Element, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	n, err := d.node(el)
	if err != nil {
		return err
	}
	d.record(OpPress, n, key)
	return nil
}

func (d *Doc) Upload(ctx context.Context, el dom.Element, path string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	n, err := d.node(el)
	if err != nil {
		return err
	}
	SetAttr(n, "data-uploaded", path)
	d.record(OpUpload, n, path)
	return nil
}

func (d *Doc) Text(ctx context.Context, el dom.Element) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	n, err := d.node(el)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(goquery.NewDocumentFromNode(n).Text()), nil
}

func (d *Doc) Parent(ctx context.Context, el dom.Element) (dom.Element, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	n, err := d.node(el)
	if err != nil {
		return nil, err
	}
	if n.Parent == nil || n.Parent.Type != html.ElementNode {
		return nil, nil
	}
	return n.Parent, nil
}

func (d *Doc) Closest(ctx context.Context, el dom.Element, selector string) (dom.Element, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	n, err := d.node(el)
	if err != nil {
		return nil, err
	}
	if n.Parent == nil || n.Parent.Type != html.ElementNode {
		return nil, nil
	}
	found := goquery.NewDocumentFromNode(n.Parent).Closest(selector)
	if found.Length() == 0 {
		return nil, nil
	}
	return found.Nodes[0], nil
}

func (d *Doc) Evaluate(ctx context.Context, el dom.Element, script dom.Script) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if script == dom.ScriptConnected {
		if _, err := d.node(el); err != nil {
			return "false", nil
		}
		return "true", nil
	}
	n, err := d.node(el)
	if err != nil {
		return "", err
	}
	switch script {
	case dom.ScriptTagName:
		return strings.ToLower(n.Data), nil
	case dom.ScriptSiblingText:
		for s := n.NextSibling; s != nil; s = s.NextSibling {
			if s.Type == html.ElementNode {
				return strings.TrimSpace(goquery.NewDocumentFromNode(s).Text()), nil
			}
		}
		return "", nil
	default:
		return "", eris.Errorf("htmldoc: unknown script %q", script)
	}
}

// Settle only honours cancellation; a snapshot has nothing to wait for.
func (d *Doc) Settle(ctx context.Context, _ time.Duration) error {
	return ctx.Err()
}
