package dom

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/playwright-community/playwright-go"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/autoapply/internal/config"
)

// Browser is a launched Chromium instance shared by many sessions. Each
// session gets its own isolated context from NewPage.
type Browser struct {
	pw      *playwright.Playwright
	browser playwright.Browser
	cfg     config.BrowserConfig
}

// Launch starts the playwright driver and a Chromium browser.
func Launch(cfg config.BrowserConfig) (*Browser, error) {
	pw, err := playwright.Run()
	if err != nil {
		return nil, eris.Wrap(err, "dom: start playwright")
	}

	opts := playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(cfg.Headless),
	}
	if cfg.SlowMoMS > 0 {
		opts.SlowMo = playwright.Float(cfg.SlowMoMS)
	}
	browser, err := pw.Chromium.Launch(opts)
	if err != nil {
		_ = pw.Stop()
		return nil, eris.Wrap(err, "dom: launch chromium")
	}

	return &Browser{pw: pw, browser: browser, cfg: cfg}, nil
}

// NewPage opens an isolated browser context with a single page.
func (b *Browser) NewPage(ctx context.Context) (*Page, error) {
	if err := ctx.Err(); err != nil {
		return nil, eris.Wrap(err, "dom: new page")
	}
	bctx, err := b.browser.NewContext()
	if err != nil {
		return nil, eris.Wrap(err, "dom: new browser context")
	}
	page, err := bctx.NewPage()
	if err != nil {
		_ = bctx.Close()
		return nil, eris.Wrap(err, "dom: new page")
	}
	return &Page{bctx: bctx, page: page, navTimeout: b.cfg.NavigationTimeMS}, nil
}

// Close shuts down the browser and the playwright driver.
func (b *Browser) Close() error {
	var errs []string
	if err := b.browser.Close(); err != nil {
		errs = append(errs, err.Error())
	}
	if err := b.pw.Stop(); err != nil {
		errs = append(errs, err.Error())
	}
	if len(errs) > 0 {
		return eris.Errorf("dom: close browser: %s", strings.Join(errs, "; "))
	}
	return nil
}

// Page is a Document backed by a live playwright page.
type Page struct {
	bctx       playwright.BrowserContext
	page       playwright.Page
	navTimeout float64
}

var (
	_ Document = (*Page)(nil)
	_ Releaser = (*Page)(nil)
)

// Goto navigates to url and waits for the network to go idle.
func (p *Page) Goto(ctx context.Context, url string) error {
	if err := ctx.Err(); err != nil {
		return eris.Wrap(err, "dom: goto")
	}
	timeout := p.navTimeout
	if timeout <= 0 {
		timeout = 30000
	}
	_, err := p.page.Goto(url, playwright.PageGotoOptions{
		WaitUntil: playwright.WaitUntilStateNetworkidle,
		Timeout:   playwright.Float(timeout),
	})
	if err != nil {
		return eris.Wrapf(err, "dom: goto %s", url)
	}
	return nil
}

// Close releases the page and its browser context.
func (p *Page) Close() error {
	if err := p.bctx.Close(); err != nil {
		return eris.Wrap(err, "dom: close context")
	}
	return nil
}

func handleOf(el Element) (playwright.ElementHandle, error) {
	h, ok := el.(playwright.ElementHandle)
	if !ok || h == nil {
		return nil, ErrDetached
	}
	return h, nil
}

// wrap maps playwright failures on stale nodes to ErrDetached.
func wrap(err error, op string) error {
	if err == nil {
		return nil
	}
	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "not attached") || strings.Contains(msg, "detached") ||
		strings.Contains(msg, "has been disposed") {
		return eris.Wrap(ErrDetached, op)
	}
	return eris.Wrap(err, op)
}

func (p *Page) Query(ctx context.Context, root Element, selector string) (Element, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var (
		h   playwright.ElementHandle
		err error
	)
	if root == nil {
		h, err = p.page.QuerySelector(selector)
	} else {
		r, herr := handleOf(root)
		if herr != nil {
			return nil, herr
		}
		h, err = r.QuerySelector(selector)
	}
	if err != nil {
		return nil, wrap(err, "dom: query "+selector)
	}
	if h == nil {
		return nil, nil
	}
	return h, nil
}

func (p *Page) QueryAll(ctx context.Context, root Element, selector string) ([]Element, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var (
		hs  []playwright.ElementHandle
		err error
	)
	if root == nil {
		hs, err = p.page.QuerySelectorAll(selector)
	} else {
		r, herr := handleOf(root)
		if herr != nil {
			return nil, herr
		}
		hs, err = r.QuerySelectorAll(selector)
	}
	if err != nil {
		return nil, wrap(err, "dom: query all "+selector)
	}
	out := make([]Element, 0, len(hs))
	for _, h := range hs {
		out = append(out, h)
	}
	return out, nil
}

func (p *Page) Attr(ctx context.Context, el Element, name string) (string, bool, error) {
	if err := ctx.Err(); err != nil {
		return "", false, err
	}
	h, err := handleOf(el)
	if err != nil {
		return "", false, err
	}
	v, err := h.Evaluate(`(el, name) => el.getAttribute(name)`, name)
	if err != nil {
		return "", false, wrap(err, "dom: attr "+name)
	}
	if v == nil {
		return "", false, nil
	}
	return fmt.Sprint(v), true, nil
}

func (p *Page) IsChecked(ctx context.Context, el Element) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	h, err := handleOf(el)
	if err != nil {
		return false, err
	}
	checked, err := h.IsChecked()
	return checked, wrap(err, "dom: is checked")
}

func (p *Page) SetText(ctx context.Context, el Element, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	h, err := handleOf(el)
	if err != nil {
		return err
	}
	return wrap(h.Fill(text), "dom: fill")
}

func (p *Page) Check(ctx context.Context, el Element) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	h, err := handleOf(el)
	if err != nil {
		return err
	}
	return wrap(h.Check(), "dom: check")
}

func (p *Page) Uncheck(ctx context.Context, el Element) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	h, err := handleOf(el)
	if err != nil {
		return err
	}
	return wrap(h.Uncheck(), "dom: uncheck")
}

func (p *Page) Click(ctx context.Context, el Element) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	h, err := handleOf(el)
	if err != nil {
		return err
	}
	return wrap(h.Click(), "dom: click")
}

func (p *Page) Press(ctx context.Context, el Element, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	h, err := handleOf(el)
	if err != nil {
		return err
	}
	return wrap(h.Press(key), "dom: press "+key)
}

func (p *Page) Upload(ctx context.Context, el Element, path string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	h, err := handleOf(el)
	if err != nil {
		return err
	}
	return wrap(h.SetInputFiles(path), "dom: upload")
}

func (p *Page) Text(ctx context.Context, el Element) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	h, err := handleOf(el)
	if err != nil {
		return "", err
	}
	s, err := h.TextContent()
	if err != nil {
		return "", wrap(err, "dom: text")
	}
	return strings.TrimSpace(s), nil
}

func (p *Page) Parent(ctx context.Context, el Element) (Element, error) {
	return p.elementFrom(ctx, el, `el => el.parentElement`, nil)
}

func (p *Page) Closest(ctx context.Context, el Element, selector string) (Element, error) {
	return p.elementFrom(ctx, el, `(el, sel) => el.parentElement ? el.parentElement.closest(sel) : null`, selector)
}

func (p *Page) elementFrom(ctx context.Context, el Element, js string, arg any) (Element, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	h, err := handleOf(el)
	if err != nil {
		return nil, err
	}
	var jh playwright.JSHandle
	if arg == nil {
		jh, err = h.EvaluateHandle(js)
	} else {
		jh, err = h.EvaluateHandle(js, arg)
	}
	if err != nil {
		return nil, wrap(err, "dom: evaluate handle")
	}
	found := jh.AsElement()
	if found == nil {
		_ = jh.Dispose()
		return nil, nil
	}
	return found, nil
}

// Release disposes element handles. Handles of other types are skipped.
func (p *Page) Release(els ...Element) {
	for _, el := range els {
		h, ok := el.(playwright.ElementHandle)
		if !ok || h == nil {
			continue
		}
		if err := h.Dispose(); err != nil {
			zap.L().Debug("dom: dispose handle", zap.Error(err))
		}
	}
}

var probes = map[Script]string{
	ScriptTagName: `el => el.tagName.toLowerCase()`,
	ScriptSiblingText: `el => {
		const s = el.nextElementSibling;
		return s ? (s.textContent || "").trim() : "";
	}`,
	ScriptConnected: `el => String(el.isConnected)`,
}

func (p *Page) Evaluate(ctx context.Context, el Element, script Script) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	js, ok := probes[script]
	if !ok {
		return "", eris.Errorf("dom: unknown script %q", script)
	}
	h, err := handleOf(el)
	if err != nil {
		return "", err
	}
	v, err := h.Evaluate(js)
	if err != nil {
		return "", wrap(err, "dom: evaluate "+string(script))
	}
	if v == nil {
		return "", nil
	}
	return fmt.Sprint(v), nil
}

func (p *Page) Settle(ctx context.Context, d time.Duration) error {
	if err := Sleep(ctx, d); err != nil {
		return err
	}
	err := p.page.WaitForLoadState(playwright.PageWaitForLoadStateOptions{
		State:   playwright.LoadStateDomcontentloaded,
		Timeout: playwright.Float(3000),
	})
	if err != nil {
		zap.L().Debug("dom: settle load state", zap.Error(err))
	}
	return nil
}
