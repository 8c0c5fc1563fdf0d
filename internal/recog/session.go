package recog

import (
	"fmt"
	"sync"

	"github.com/perceptlabs/percept-core/internal/capture"
)

// DoneFunc receives the outcome of a recognition session: a built Result
// or an error, never both.
type DoneFunc func(res *Result, err error)

// Session coordinates at most one in-flight recognition. Starting a new
// recognition cancels any prior one first; a generation token identifies
// each started operation so that completions from a superseded or
// cancelled operation are dropped instead of reaching the caller.
//
// Start and Cancel are expected from a single consumer goroutine; backend
// completions arrive from arbitrary goroutines, so all state transitions
// go through the mutex.
type Session struct {
	mu     sync.Mutex
	gen    uint64
	active Recognizer
}

// NewSession returns an idle session.
func NewSession() *Session {
	return &Session{}
}

// Start begins a recognition of img on r, delivering the outcome to
// onDone exactly once. If a recognition is already active its recognizer
// is cancelled best-effort and its eventual completion discarded. A nil
// recognizer fails immediately with ErrNoRecognizer without touching
// session state.
func (s *Session) Start(r Recognizer, img capture.Image, onDone DoneFunc) error {
	if r == nil {
		return ErrNoRecognizer
	}

	s.mu.Lock()
	if s.active != nil {
		s.active.Cancel()
	}
	s.gen++
	gen := s.gen
	s.active = r
	s.mu.Unlock()

	r.Recognize(img, func(lines [][]Word, err error) {
		s.mu.Lock()
		if s.gen != gen {
			// Stale completion from a superseded or cancelled operation.
			s.mu.Unlock()
			return
		}
		s.active = nil
		s.mu.Unlock()

		if err != nil {
			onDone(nil, fmt.Errorf("%w: %v", ErrRecognitionFailed, err))
			return
		}
		onDone(BuildResult(lines, img.Left, img.Top), nil)
	})
	return nil
}

// Cancel aborts any active recognition and returns the session to idle.
// Calling it with nothing in flight is a no-op.
func (s *Session) Cancel() {
	s.mu.Lock()
	active := s.active
	if active != nil {
		s.gen++
		s.active = nil
	}
	s.mu.Unlock()

	if active != nil {
		active.Cancel()
	}
}

// Active reports whether a recognition is currently in flight.
func (s *Session) Active() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active != nil
}
