package recog

import (
	"fmt"
	"sync/atomic"

	"github.com/perceptlabs/percept-core/internal/capture"
)

// mockRecognizer produces a synthetic one-line result describing the
// capture. Like a real backend it completes asynchronously and honors
// cancellation, which makes it usable both in development mode and in
// coordinator tests.
type mockRecognizer struct {
	gen atomic.Uint64
}

func NewMockRecognizer() Recognizer {
	return &mockRecognizer{}
}

func (m *mockRecognizer) Recognize(img capture.Image, onResult ResultFunc) {
	gen := m.gen.Add(1)
	go func() {
		if m.gen.Load() != gen {
			return
		}
		if err := img.Validate(); err != nil {
			onResult(nil, err)
			return
		}
		lines := [][]Word{{
			{X: 0, Y: 0, Width: img.Width, Height: img.Height,
				Text: fmt.Sprintf("[mock capture %dx%d]", img.Width, img.Height)},
		}}
		onResult(lines, nil)
	}()
}

func (m *mockRecognizer) Cancel() {
	m.gen.Add(1)
}
