package engine

import (
	"fmt"

	"github.com/marklens/marklens/internal/core"
)

// Events is the message-passing boundary between the worker and the
// controlling side. The worker sends, the controller receives; payloads are
// immutable. Log, status, progress and captcha channels are lossy (latest
// value wins when the controller lags); records and the final summary are
// never dropped.
type Events struct {
	Log      chan string
	Status   chan string
	Progress chan core.Progress
	Captcha  chan []byte
	Records  chan core.ConflictRecord
	Done     chan core.RunSummary
}

// NewEvents returns a bus with sensible buffer sizes for a single run.
func NewEvents() *Events {
	return &Events{
		Log:      make(chan string, 256),
		Status:   make(chan string, 8),
		Progress: make(chan core.Progress, 8),
		Captcha:  make(chan []byte, 1),
		Records:  make(chan core.ConflictRecord, 64),
		Done:     make(chan core.RunSummary, 1),
	}
}

// Logf emits a formatted log line, dropping it if the controller is not
// keeping up.
func (e *Events) Logf(format string, args ...any) {
	select {
	case e.Log <- fmt.Sprintf(format, args...):
	default:
	}
}

// SetStatus publishes operator-facing status text.
func (e *Events) SetStatus(text string) {
	for {
		select {
		case e.Status <- text:
			return
		default:
			select {
			case <-e.Status:
			default:
			}
		}
	}
}

// PublishProgress reports position in the input list.
func (e *Events) PublishProgress(current, total int) {
	for {
		select {
		case e.Progress <- core.Progress{Current: current, Total: total}:
			return
		default:
			select {
			case <-e.Progress:
			default:
			}
		}
	}
}

// PublishCaptcha hands a challenge image to the operator. The channel is a
// single slot; an unconsumed older image is replaced.
func (e *Events) PublishCaptcha(img []byte) {
	for {
		select {
		case e.Captcha <- img:
			return
		default:
			select {
			case <-e.Captcha:
			default:
			}
		}
	}
}

// EmitRecord delivers a conflict record. This blocks rather than drop
// output; the controller must drain the records channel for the lifetime of
// a run.
func (e *Events) EmitRecord(r core.ConflictRecord) {
	e.Records <- r
}

// Finish signals run completion with the final summary.
func (e *Events) Finish(s core.RunSummary) {
	e.Done <- s
}
