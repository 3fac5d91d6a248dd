// Package captcha implements the human-in-the-loop rendezvous: the worker
// publishes a challenge image and blocks until the operator supplies a code
// or cancels the run. The controller side never blocks.
package captcha

import (
	"context"
	"time"

	"github.com/marklens/marklens/internal/core"
	"github.com/marklens/marklens/internal/core/browser"
	apperrors "github.com/marklens/marklens/internal/errors"
)

// PlaceholderToken is returned when the challenge image cannot be captured.
// The following search attempt fails validation and loops back here, so the
// run survives a broken screenshot.
const PlaceholderToken = "00000"

// DefaultPollInterval is the worker-side spin interval.
const DefaultPollInterval = 500 * time.Millisecond

// Rendezvous hands captcha images to the operator and collects solved codes.
type Rendezvous struct {
	State *core.RunState

	// ImageSelector locates the challenge widget on the page.
	ImageSelector string

	// PublishImage delivers the (downscaled) challenge PNG to the operator.
	PublishImage func(png []byte)

	// PollInterval overrides DefaultPollInterval when positive.
	PollInterval time.Duration
}

// Acquire captures the challenge widget, publishes it, and blocks polling
// until a code arrives or the run is cancelled. A failed capture returns
// PlaceholderToken instead of an error.
func (r *Rendezvous) Acquire(ctx context.Context, drv browser.Driver) (string, error) {
	el, err := drv.Find(ctx, r.ImageSelector)
	if err != nil {
		return PlaceholderToken, nil
	}
	_ = el.ScrollIntoView(ctx)
	time.Sleep(r.interval())

	png, err := el.Screenshot(ctx)
	if err != nil {
		return PlaceholderToken, nil
	}
	// The flag goes up before the image so a submitter reacting to the
	// publication never observes a not-yet-pending acquisition.
	r.State.SetAwaitingCaptcha(true)
	defer r.State.SetAwaitingCaptcha(false)
	if r.PublishImage != nil {
		r.PublishImage(Downscale(png, DisplayWidth))
	}
	for r.State.AwaitingCaptcha() {
		if !r.State.Running() {
			return "", apperrors.ErrCancelled
		}
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(r.interval()):
		}
	}
	return r.State.PendingCaptcha(), nil
}

// Submit passes a solved code to a pending acquisition. It is safe to call
// at any time; without a pending acquisition it reports false and changes
// nothing.
func (r *Rendezvous) Submit(code string) bool {
	return r.State.SubmitCaptcha(code)
}

func (r *Rendezvous) interval() time.Duration {
	if r.PollInterval > 0 {
		return r.PollInterval
	}
	return DefaultPollInterval
}
