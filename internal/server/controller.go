package server

import (
	"sync"

	"github.com/marklens/marklens/internal/core"
	"github.com/marklens/marklens/internal/core/engine"
)

// maxLogLines bounds the in-memory operator log.
const maxLogLines = 500

// Controller is the operator-facing view of a run. It drains the worker's
// event bus into snapshots the HTTP handlers read; the worker never sees the
// HTTP layer.
type Controller struct {
	State *core.RunState

	done chan struct{}

	mu         sync.RWMutex
	status     string
	progress   core.Progress
	captchaPNG []byte
	records    []core.ConflictRecord
	logLines   []string
	summary    *core.RunSummary
}

// NewController returns a controller around the shared run state.
func NewController(state *core.RunState) *Controller {
	return &Controller{State: state, status: "starting", done: make(chan struct{})}
}

// Watch drains the event bus until the run signals completion. Run it in its
// own goroutine; the records channel must keep draining or the worker blocks.
func (c *Controller) Watch(events *engine.Events) {
	for {
		select {
		case line := <-events.Log:
			c.appendLog(line)
		case status := <-events.Status:
			c.mu.Lock()
			c.status = status
			c.mu.Unlock()
		case p := <-events.Progress:
			c.mu.Lock()
			c.progress = p
			c.mu.Unlock()
		case img := <-events.Captcha:
			c.mu.Lock()
			c.captchaPNG = img
			c.mu.Unlock()
		case r := <-events.Records:
			c.mu.Lock()
			c.records = append(c.records, r)
			c.mu.Unlock()
		case s := <-events.Done:
			// Records emitted before Finish may still sit in the buffer.
			c.drainRemaining(events)
			c.mu.Lock()
			c.summary = &s
			c.status = "finished"
			c.mu.Unlock()
			close(c.done)
			return
		}
	}
}

// Done is closed once Watch has consumed the completion signal and every
// record still buffered on the bus. Readers that need the complete record
// list must wait on it before calling Records.
func (c *Controller) Done() <-chan struct{} {
	return c.done
}

func (c *Controller) drainRemaining(events *engine.Events) {
	for {
		select {
		case r := <-events.Records:
			c.mu.Lock()
			c.records = append(c.records, r)
			c.mu.Unlock()
		case line := <-events.Log:
			c.appendLog(line)
		default:
			return
		}
	}
}

func (c *Controller) appendLog(line string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.logLines = append(c.logLines, line)
	if len(c.logLines) > maxLogLines {
		c.logLines = c.logLines[len(c.logLines)-maxLogLines:]
	}
}

// StatusSnapshot is the operator-facing run status.
type StatusSnapshot struct {
	Status          string           `json:"status"`
	Running         bool             `json:"running"`
	Paused          bool             `json:"paused"`
	AwaitingCaptcha bool             `json:"awaiting_captcha"`
	Progress        core.Progress    `json:"progress"`
	Records         int              `json:"records"`
	Summary         *core.RunSummary `json:"summary,omitempty"`
}

// Snapshot returns the current run status.
func (c *Controller) Snapshot() StatusSnapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return StatusSnapshot{
		Status:          c.status,
		Running:         c.State.Running(),
		Paused:          c.State.Paused(),
		AwaitingCaptcha: c.State.AwaitingCaptcha(),
		Progress:        c.progress,
		Records:         len(c.records),
		Summary:         c.summary,
	}
}

// CaptchaImage returns the latest challenge image, or nil when none has been
// published yet.
func (c *Controller) CaptchaImage() []byte {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.captchaPNG
}

// Records returns a copy of everything emitted so far.
func (c *Controller) Records() []core.ConflictRecord {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]core.ConflictRecord(nil), c.records...)
}

// LogLines returns a copy of the retained operator log.
func (c *Controller) LogLines() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]string(nil), c.logLines...)
}
