// Package browser defines the automation capability the search engine
// drives. The interface is deliberately small: navigate, locate, interact,
// capture. Selectors are CSS by default; a query starting with "//" is
// interpreted as XPath by implementations that support it.
package browser

import (
	"context"
	"errors"
	"time"
)

// ErrNoAlert is returned by AcceptAlert when no dialog appeared within the
// wait window.
var ErrNoAlert = errors.New("browser: no alert present")

// Driver is a single browser session. Implementations are not safe for
// concurrent use; exactly one worker goroutine owns a driver at a time.
type Driver interface {
	Navigate(ctx context.Context, url string) error
	Refresh(ctx context.Context) error

	// Find returns the first element matching the selector.
	Find(ctx context.Context, selector string) (Element, error)
	// FindAll returns every element matching the selector, in document
	// order. Handles go stale on DOM mutation; callers re-resolve by
	// position.
	FindAll(ctx context.Context, selector string) ([]Element, error)
	// WaitVisible blocks until an element matching the selector is visible
	// or the timeout elapses.
	WaitVisible(ctx context.Context, selector string, timeout time.Duration) error

	// AcceptAlert waits up to timeout for a modal dialog, dismisses it, and
	// returns its message. ErrNoAlert when none appeared.
	AcceptAlert(ctx context.Context, timeout time.Duration) (string, error)

	Windows(ctx context.Context) ([]string, error)
	CurrentWindow(ctx context.Context) (string, error)
	SwitchWindow(ctx context.Context, handle string) error
	// CloseWindow closes the current window; the caller switches back to a
	// surviving handle afterwards.
	CloseWindow(ctx context.Context) error

	// OuterHTML returns the serialized markup of the first element matching
	// the selector.
	OuterHTML(ctx context.Context, selector string) (string, error)
	// SendEscape delivers an Escape keypress to the page.
	SendEscape(ctx context.Context) error

	Close(ctx context.Context) error
}

// Element is a handle to a located page element.
type Element interface {
	Click(ctx context.Context) error
	// ScriptClick activates the element via injected script, bypassing
	// overlap and scroll constraints.
	ScriptClick(ctx context.Context) error
	Clear(ctx context.Context) error
	SendKeys(ctx context.Context, text string) error
	Value(ctx context.Context) (string, error)
	Text(ctx context.Context) (string, error)
	// ChildText returns the text of the first descendant matching the CSS
	// selector.
	ChildText(ctx context.Context, selector string) (string, error)
	Visible(ctx context.Context) (bool, error)
	ScrollIntoView(ctx context.Context) error
	Screenshot(ctx context.Context) ([]byte, error)
}
