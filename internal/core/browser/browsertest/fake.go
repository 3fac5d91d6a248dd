// Package browsertest provides a scripted in-memory browser.Driver for
// exercising the search engine and scraper without a real browser.
package browsertest

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/marklens/marklens/internal/core/browser"
)

// FakeDriver is a scripted browser session. Tests populate Elements, HTML
// and AlertQueue up front and mutate them from OnClick hooks to simulate
// page transitions.
type FakeDriver struct {
	mu sync.Mutex

	Elements   map[string][]*FakeElement
	HTML       map[string]string
	VisibleSel map[string]bool
	AlertQueue []string

	WindowList []string
	current    string

	NavigatedTo []string
	Refreshes   int
	Escapes     int
	Closed      bool

	// OnClick runs after any element click, letting a test advance the
	// scripted page state.
	OnClick func(el *FakeElement)
	// FailFind makes every Find/FindAll for the named selector fail once,
	// simulating a transient DOM error.
	FailFind map[string]int
}

// FakeElement is a scripted element handle.
type FakeElement struct {
	drv *FakeDriver

	ID         string
	TextVal    string
	ValueVal   string
	Children   map[string]string
	VisibleVal bool

	ScreenshotData []byte
	ScreenshotErr  error

	Clicks int
	Typed  []string
}

// NewFakeDriver returns an empty scripted driver with a single main window.
func NewFakeDriver() *FakeDriver {
	return &FakeDriver{
		Elements:   make(map[string][]*FakeElement),
		HTML:       make(map[string]string),
		VisibleSel: make(map[string]bool),
		FailFind:   make(map[string]int),
		WindowList: []string{"main"},
		current:    "main",
	}
}

// AddElement registers an element under a selector and returns it.
func (d *FakeDriver) AddElement(selector string, el *FakeElement) *FakeElement {
	d.mu.Lock()
	defer d.mu.Unlock()
	el.drv = d
	if el.Children == nil {
		el.Children = make(map[string]string)
	}
	el.VisibleVal = true
	d.Elements[selector] = append(d.Elements[selector], el)
	return el
}

// SetElements replaces the elements under a selector.
func (d *FakeDriver) SetElements(selector string, els []*FakeElement) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, el := range els {
		el.drv = d
		if el.Children == nil {
			el.Children = make(map[string]string)
		}
	}
	d.Elements[selector] = els
}

func (d *FakeDriver) Navigate(ctx context.Context, url string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.NavigatedTo = append(d.NavigatedTo, url)
	return nil
}

func (d *FakeDriver) Refresh(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.Refreshes++
	return nil
}

func (d *FakeDriver) Find(ctx context.Context, selector string) (browser.Element, error) {
	els, err := d.FindAll(ctx, selector)
	if err != nil {
		return nil, err
	}
	if len(els) == 0 {
		return nil, fmt.Errorf("no element matches %q", selector)
	}
	return els[0], nil
}

func (d *FakeDriver) FindAll(ctx context.Context, selector string) ([]browser.Element, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if n := d.FailFind[selector]; n > 0 {
		d.FailFind[selector] = n - 1
		return nil, fmt.Errorf("scripted failure for %q", selector)
	}
	els := d.Elements[selector]
	out := make([]browser.Element, len(els))
	for i, el := range els {
		out[i] = el
	}
	return out, nil
}

func (d *FakeDriver) WaitVisible(ctx context.Context, selector string, timeout time.Duration) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.VisibleSel[selector] {
		return nil
	}
	return fmt.Errorf("element %q never became visible", selector)
}

func (d *FakeDriver) AcceptAlert(ctx context.Context, timeout time.Duration) (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.AlertQueue) == 0 {
		return "", browser.ErrNoAlert
	}
	msg := d.AlertQueue[0]
	d.AlertQueue = d.AlertQueue[1:]
	return msg, nil
}

func (d *FakeDriver) Windows(ctx context.Context) ([]string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.WindowList...), nil
}

func (d *FakeDriver) CurrentWindow(ctx context.Context) (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.current, nil
}

func (d *FakeDriver) SwitchWindow(ctx context.Context, handle string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, w := range d.WindowList {
		if w == handle {
			d.current = handle
			return nil
		}
	}
	return fmt.Errorf("unknown window %q", handle)
}

func (d *FakeDriver) CloseWindow(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	kept := d.WindowList[:0]
	for _, w := range d.WindowList {
		if w != d.current {
			kept = append(kept, w)
		}
	}
	d.WindowList = kept
	return nil
}

func (d *FakeDriver) OuterHTML(ctx context.Context, selector string) (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	html, ok := d.HTML[selector]
	if !ok {
		return "", fmt.Errorf("no markup scripted for %q", selector)
	}
	return html, nil
}

func (d *FakeDriver) SendEscape(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.Escapes++
	return nil
}

func (d *FakeDriver) Close(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.Closed = true
	return nil
}

func (e *FakeElement) Click(ctx context.Context) error {
	return e.ScriptClick(ctx)
}

func (e *FakeElement) ScriptClick(ctx context.Context) error {
	e.drv.mu.Lock()
	e.Clicks++
	hook := e.drv.OnClick
	e.drv.mu.Unlock()
	if hook != nil {
		hook(e)
	}
	return nil
}

func (e *FakeElement) Clear(ctx context.Context) error {
	e.drv.mu.Lock()
	defer e.drv.mu.Unlock()
	e.ValueVal = ""
	return nil
}

func (e *FakeElement) SendKeys(ctx context.Context, text string) error {
	e.drv.mu.Lock()
	defer e.drv.mu.Unlock()
	e.ValueVal += text
	e.Typed = append(e.Typed, text)
	return nil
}

func (e *FakeElement) Value(ctx context.Context) (string, error) {
	e.drv.mu.Lock()
	defer e.drv.mu.Unlock()
	return e.ValueVal, nil
}

func (e *FakeElement) Text(ctx context.Context) (string, error) {
	e.drv.mu.Lock()
	defer e.drv.mu.Unlock()
	return e.TextVal, nil
}

func (e *FakeElement) ChildText(ctx context.Context, selector string) (string, error) {
	e.drv.mu.Lock()
	defer e.drv.mu.Unlock()
	if text, ok := e.Children[selector]; ok {
		return text, nil
	}
	return "", fmt.Errorf("no child %q", selector)
}

func (e *FakeElement) Visible(ctx context.Context) (bool, error) {
	e.drv.mu.Lock()
	defer e.drv.mu.Unlock()
	return e.VisibleVal, nil
}

func (e *FakeElement) ScrollIntoView(ctx context.Context) error {
	return nil
}

func (e *FakeElement) Screenshot(ctx context.Context) ([]byte, error) {
	e.drv.mu.Lock()
	defer e.drv.mu.Unlock()
	if e.ScreenshotErr != nil {
		return nil, e.ScreenshotErr
	}
	return e.ScreenshotData, nil
}
