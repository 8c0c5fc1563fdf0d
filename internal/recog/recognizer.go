package recog

import (
	"errors"

	"github.com/perceptlabs/percept-core/internal/capture"
)

var (
	// ErrNoRecognizer is returned synchronously when a recognition is
	// started without a backend selected.
	ErrNoRecognizer = errors.New("no recognizer available")

	// ErrRecognitionFailed wraps backend failures delivered through the
	// completion path.
	ErrRecognitionFailed = errors.New("recognition failed")

	// ErrEmptyResult is returned by point queries against a result that
	// contains no words.
	ErrEmptyResult = errors.New("result contains no words")
)

// Word is a single recognized word as reported by a backend: a bounding
// box in capture-local pixel coordinates plus its text.
type Word struct {
	X      int
	Y      int
	Width  int
	Height int
	Text   string
}

// ResultFunc receives a backend's raw output: the recognized words grouped
// into lines in reading order, or an error. It is invoked exactly once per
// accepted recognition, from an arbitrary goroutine, unless the operation
// was cancelled first.
type ResultFunc func(lines [][]Word, err error)

// Recognizer abstracts content recognition backends.
//
// Recognize must not block; it begins an asynchronous operation on the
// capture and later invokes onResult. At most one operation may be active
// per instance without an intervening Cancel or completion. Cancel
// requests termination of any in-flight operation and is idempotent; after
// Cancel returns the pending onResult may be suppressed or may already
// have fired, so callers that care must guard against late delivery (the
// Session does, via generation tokens).
type Recognizer interface {
	Recognize(img capture.Image, onResult ResultFunc)
	Cancel()
}
