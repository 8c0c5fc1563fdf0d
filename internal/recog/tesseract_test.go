package recog

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/perceptlabs/percept-core/internal/capture"
	"github.com/perceptlabs/percept-core/internal/config"
)

// slowTesseract builds a tesseract recognizer whose engine run is replaced
// by a stub, so the surrounding timeout and cancellation plumbing can be
// exercised without the engine.
func slowTesseract(timeoutMS int, delay time.Duration) *tesseractRecognizer {
	r := &tesseractRecognizer{cfg: config.RecognitionConfig{TimeoutMS: timeoutMS}}
	r.run = func(capture.Image) ([][]Word, error) {
		time.Sleep(delay)
		return [][]Word{{{Text: "late"}}}, nil
	}
	return r
}

func TestTesseractTimeoutDeliversFailure(t *testing.T) {
	r := slowTesseract(20, 200*time.Millisecond)

	done := make(chan error, 2)
	r.Recognize(testImage(), func(lines [][]Word, err error) {
		done <- err
	})

	select {
	case err := <-done:
		if err == nil {
			t.Fatal("expected a timeout failure, got success")
		}
		if !errors.Is(err, context.DeadlineExceeded) {
			t.Fatalf("expected deadline error, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timeout failure never delivered")
	}

	// The engine run finishing later must not produce a second delivery.
	select {
	case <-done:
		t.Fatal("late engine completion delivered after the timeout failure")
	case <-time.After(400 * time.Millisecond):
	}
}

func TestTesseractCancelSuppressesCompletion(t *testing.T) {
	r := slowTesseract(5000, 50*time.Millisecond)

	done := make(chan error, 1)
	r.Recognize(testImage(), func(lines [][]Word, err error) {
		done <- err
	})
	r.Cancel()

	select {
	case err := <-done:
		t.Fatalf("cancelled recognition delivered a completion: %v", err)
	case <-time.After(300 * time.Millisecond):
	}
}
