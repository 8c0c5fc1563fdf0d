package recog

import (
	"strings"
	"testing"
	"time"

	"github.com/perceptlabs/percept-core/internal/capture"
	"github.com/perceptlabs/percept-core/internal/config"
)

func TestMockRecognizerDeliversAsync(t *testing.T) {
	session := NewSession()
	backend := NewMockRecognizer()

	pix := make([]byte, 4*4*2)
	img := capture.Image{Pix: pix, Left: 0, Top: 0, Width: 4, Height: 2}

	done := make(chan *Result, 1)
	if err := session.Start(backend, img, func(res *Result, err error) {
		if err != nil {
			t.Errorf("unexpected error: %v", err)
		}
		done <- res
	}); err != nil {
		t.Fatalf("start failed: %v", err)
	}

	select {
	case res := <-done:
		if !strings.Contains(res.Text, "4x2") {
			t.Fatalf("unexpected mock text %q", res.Text)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("mock recognizer never completed")
	}
}

func TestNewFromConfig(t *testing.T) {
	if _, err := NewFromConfig(config.RecognitionConfig{Mode: "mock"}); err != nil {
		t.Fatalf("mock backend: %v", err)
	}
	if _, err := NewFromConfig(config.RecognitionConfig{Mode: "carrier-pigeon"}); err == nil {
		t.Fatal("expected error for unknown mode")
	}
	if _, err := NewFromConfig(config.RecognitionConfig{Mode: "exec", Command: ""}); err == nil {
		t.Fatal("expected error for empty exec command")
	}
	if _, err := NewFromConfig(config.RecognitionConfig{Mode: "exec", Command: "ocr --fast 'unterminated"}); err == nil {
		t.Fatal("expected error for unparsable exec command")
	}
}
