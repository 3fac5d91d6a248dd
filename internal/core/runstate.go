package core

import "sync/atomic"

// RunState is the only mutable state shared between the worker task and the
// operator-facing side. Single assignments on one side, polling reads on the
// other; every field is an atomic register so no lock is needed.
type RunState struct {
	running         atomic.Bool
	paused          atomic.Bool
	awaitingCaptcha atomic.Bool
	pendingCode     atomic.Value // string
}

// NewRunState returns a state with the run marked live.
func NewRunState() *RunState {
	s := &RunState{}
	s.running.Store(true)
	s.pendingCode.Store("")
	return s
}

// Running reports whether the run is still live.
func (s *RunState) Running() bool { return s.running.Load() }

// Stop requests cancellation. Loops observe it at their checkpoints.
func (s *RunState) Stop() { s.running.Store(false) }

// Paused reports whether the operator suspended the run.
func (s *RunState) Paused() bool { return s.paused.Load() }

// SetPaused suspends or resumes the worker's cooperative spin-wait.
func (s *RunState) SetPaused(v bool) { s.paused.Store(v) }

// AwaitingCaptcha reports whether the worker is blocked on a captcha solve.
func (s *RunState) AwaitingCaptcha() bool { return s.awaitingCaptcha.Load() }

// SetAwaitingCaptcha is set by the worker around the rendezvous window.
func (s *RunState) SetAwaitingCaptcha(v bool) { s.awaitingCaptcha.Store(v) }

// SubmitCaptcha hands a solved code to the worker. It is a no-op unless an
// acquisition is pending; it reports whether the code was accepted.
func (s *RunState) SubmitCaptcha(code string) bool {
	if !s.awaitingCaptcha.Load() {
		return false
	}
	s.pendingCode.Store(code)
	s.awaitingCaptcha.Store(false)
	return true
}

// PendingCaptcha returns the most recently submitted code.
func (s *RunState) PendingCaptcha() string {
	v, _ := s.pendingCode.Load().(string)
	return v
}
