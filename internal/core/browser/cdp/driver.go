// Package cdp adapts a Chrome DevTools session (via chromedp) to the
// browser.Driver capability.
package cdp

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/cdproto/target"
	"github.com/chromedp/chromedp"
	"github.com/chromedp/chromedp/kb"

	"github.com/marklens/marklens/internal/core/browser"
)

// Options configures the Chrome session.
type Options struct {
	Headless bool
}

type tab struct {
	ctx    context.Context
	cancel context.CancelFunc
}

// Driver drives a single Chrome instance. Not safe for concurrent use.
type Driver struct {
	allocCancel context.CancelFunc

	mu     sync.Mutex
	tabs   map[string]*tab
	curID  string
	alerts chan string
}

var _ browser.Driver = (*Driver)(nil)

// New launches Chrome with the anti-automation flags the registry tolerates
// and attaches to a fresh tab.
func New(ctx context.Context, opts Options) (*Driver, error) {
	allocOpts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", opts.Headless),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.Flag("start-maximized", true),
	)
	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, allocOpts...)

	d := &Driver{
		allocCancel: allocCancel,
		tabs:        make(map[string]*tab),
		alerts:      make(chan string, 4),
	}

	tabCtx, tabCancel := chromedp.NewContext(allocCtx)
	if err := chromedp.Run(tabCtx); err != nil {
		tabCancel()
		allocCancel()
		return nil, fmt.Errorf("start chrome: %w", err)
	}
	d.watchDialogs(tabCtx)

	id := mainTargetID(tabCtx)
	d.tabs[id] = &tab{ctx: tabCtx, cancel: tabCancel}
	d.curID = id
	return d, nil
}

func mainTargetID(ctx context.Context) string {
	if c := chromedp.FromContext(ctx); c != nil && c.Target != nil {
		return string(c.Target.TargetID)
	}
	return "main"
}

// watchDialogs auto-accepts javascript dialogs and buffers their messages
// for AcceptAlert.
func (d *Driver) watchDialogs(ctx context.Context) {
	chromedp.ListenTarget(ctx, func(ev interface{}) {
		if e, ok := ev.(*page.EventJavascriptDialogOpening); ok {
			msg := e.Message
			go func() {
				_ = chromedp.Run(ctx, page.HandleJavaScriptDialog(true))
				select {
				case d.alerts <- msg:
				default:
				}
			}()
		}
	})
}

func (d *Driver) cur() context.Context {
	d.mu.Lock()
	defer d.mu.Unlock()
	if t, ok := d.tabs[d.curID]; ok {
		return t.ctx
	}
	return context.Background()
}

func (d *Driver) Navigate(ctx context.Context, url string) error {
	return d.run(ctx, chromedp.Navigate(url))
}

func (d *Driver) Refresh(ctx context.Context) error {
	return d.run(ctx, chromedp.Reload())
}

func (d *Driver) Find(ctx context.Context, selector string) (browser.Element, error) {
	els, err := d.FindAll(ctx, selector)
	if err != nil {
		return nil, err
	}
	if len(els) == 0 {
		return nil, fmt.Errorf("no element matches %q", selector)
	}
	return els[0], nil
}

func (d *Driver) FindAll(ctx context.Context, selector string) ([]browser.Element, error) {
	var count int
	if err := d.run(ctx, chromedp.Evaluate(countExpr(selector), &count)); err != nil {
		return nil, err
	}
	els := make([]browser.Element, count)
	for i := range els {
		els[i] = &element{d: d, query: selector, index: i}
	}
	return els, nil
}

func (d *Driver) WaitVisible(ctx context.Context, selector string, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return d.run(ctx, chromedp.WaitVisible(selector, selOpt(selector)))
}

func (d *Driver) AcceptAlert(ctx context.Context, timeout time.Duration) (string, error) {
	select {
	case msg := <-d.alerts:
		return msg, nil
	case <-time.After(timeout):
		return "", browser.ErrNoAlert
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

func (d *Driver) Windows(ctx context.Context) ([]string, error) {
	infos, err := chromedp.Targets(d.cur())
	if err != nil {
		return nil, err
	}
	handles := make([]string, 0, len(infos))
	for _, info := range infos {
		if info.Type == "page" {
			handles = append(handles, string(info.TargetID))
		}
	}
	return handles, nil
}

func (d *Driver) CurrentWindow(ctx context.Context) (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.curID, nil
}

func (d *Driver) SwitchWindow(ctx context.Context, handle string) error {
	d.mu.Lock()
	if _, ok := d.tabs[handle]; ok {
		d.curID = handle
		d.mu.Unlock()
		return nil
	}
	root, ok := d.tabs[d.curID]
	d.mu.Unlock()
	if !ok {
		return fmt.Errorf("no live tab to attach from")
	}

	tabCtx, cancel := chromedp.NewContext(root.ctx, chromedp.WithTargetID(target.ID(handle)))
	if err := chromedp.Run(tabCtx); err != nil {
		cancel()
		return fmt.Errorf("attach window %s: %w", handle, err)
	}
	d.watchDialogs(tabCtx)

	d.mu.Lock()
	d.tabs[handle] = &tab{ctx: tabCtx, cancel: cancel}
	d.curID = handle
	d.mu.Unlock()
	return nil
}

func (d *Driver) CloseWindow(ctx context.Context) error {
	d.mu.Lock()
	t, ok := d.tabs[d.curID]
	id := d.curID
	d.mu.Unlock()
	if !ok {
		return nil
	}
	err := chromedp.Run(t.ctx, page.Close())
	t.cancel()
	d.mu.Lock()
	delete(d.tabs, id)
	d.mu.Unlock()
	return err
}

func (d *Driver) OuterHTML(ctx context.Context, selector string) (string, error) {
	var html string
	err := d.run(ctx, chromedp.OuterHTML(selector, &html, selOpt(selector)))
	return html, err
}

func (d *Driver) SendEscape(ctx context.Context) error {
	return d.run(ctx, chromedp.KeyEvent(kb.Escape))
}

func (d *Driver) Close(ctx context.Context) error {
	d.mu.Lock()
	for _, t := range d.tabs {
		t.cancel()
	}
	d.tabs = make(map[string]*tab)
	d.mu.Unlock()
	d.allocCancel()
	return nil
}

// run executes actions against the current tab, honoring the caller's
// context deadline.
func (d *Driver) run(ctx context.Context, actions ...chromedp.Action) error {
	tabCtx := d.cur()
	done := make(chan error, 1)
	go func() { done <- chromedp.Run(tabCtx, actions...) }()
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// element addresses a match by (query, position) and re-evaluates it on
// every interaction, so handles survive DOM mutation as long as the position
// still exists.
type element struct {
	d     *Driver
	query string
	index int
}

var _ browser.Element = (*element)(nil)

func (e *element) expr() string {
	q, _ := json.Marshal(e.query)
	if isXPath(e.query) {
		return fmt.Sprintf(
			"document.evaluate(%s, document, null, XPathResult.ORDERED_NODE_SNAPSHOT_TYPE, null).snapshotItem(%d)",
			q, e.index)
	}
	return fmt.Sprintf("document.querySelectorAll(%s)[%d]", q, e.index)
}

func (e *element) eval(ctx context.Context, body string, res interface{}) error {
	script := fmt.Sprintf("(() => { const el = %s; if (!el) throw new Error('stale element'); %s })()", e.expr(), body)
	return e.d.run(ctx, chromedp.Evaluate(script, res))
}

func (e *element) Click(ctx context.Context) error {
	return e.eval(ctx, "el.scrollIntoView({block: 'center'}); el.click();", nil)
}

func (e *element) ScriptClick(ctx context.Context) error {
	return e.eval(ctx, "el.click();", nil)
}

func (e *element) Clear(ctx context.Context) error {
	return e.eval(ctx, "el.value = ''; el.dispatchEvent(new Event('input', {bubbles: true}));", nil)
}

func (e *element) SendKeys(ctx context.Context, text string) error {
	t, _ := json.Marshal(text)
	body := fmt.Sprintf(
		"el.value += %s; el.dispatchEvent(new Event('input', {bubbles: true})); el.dispatchEvent(new Event('change', {bubbles: true}));", t)
	return e.eval(ctx, body, nil)
}

func (e *element) Value(ctx context.Context) (string, error) {
	var v string
	err := e.eval(ctx, "return el.value || '';", &v)
	return v, err
}

func (e *element) Text(ctx context.Context) (string, error) {
	var v string
	err := e.eval(ctx, "return el.innerText || '';", &v)
	return strings.TrimSpace(v), err
}

func (e *element) ChildText(ctx context.Context, selector string) (string, error) {
	s, _ := json.Marshal(selector)
	var v string
	err := e.eval(ctx, fmt.Sprintf("const c = el.querySelector(%s); return c ? c.innerText : '';", s), &v)
	return strings.TrimSpace(v), err
}

func (e *element) Visible(ctx context.Context) (bool, error) {
	var v bool
	err := e.eval(ctx, "return el.offsetParent !== null;", &v)
	return v, err
}

func (e *element) ScrollIntoView(ctx context.Context) error {
	return e.eval(ctx, "el.scrollIntoView({block: 'center'});", nil)
}

func (e *element) Screenshot(ctx context.Context) ([]byte, error) {
	var buf []byte
	err := e.d.run(ctx, chromedp.Screenshot(e.query, &buf, selOpt(e.query)))
	return buf, err
}

func isXPath(q string) bool {
	return strings.HasPrefix(q, "//") || strings.HasPrefix(q, "(//")
}

func selOpt(q string) chromedp.QueryOption {
	if isXPath(q) {
		return chromedp.BySearch
	}
	return chromedp.ByQuery
}

func countExpr(q string) string {
	enc, _ := json.Marshal(q)
	if isXPath(q) {
		return fmt.Sprintf(
			"document.evaluate(%s, document, null, XPathResult.ORDERED_NODE_SNAPSHOT_TYPE, null).snapshotLength", enc)
	}
	return fmt.Sprintf("document.querySelectorAll(%s).length", enc)
}
