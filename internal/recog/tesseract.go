package recog

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/otiai10/gosseract/v2"
	"github.com/perceptlabs/percept-core/internal/capture"
	"github.com/perceptlabs/percept-core/internal/config"
)

// tesseractRecognizer runs word-level OCR through the Tesseract C API.
// Tesseract itself cannot be interrupted mid-page, so Cancel works by
// suppressing delivery of the completion rather than stopping the engine,
// and a timeout abandons the engine run and reports a failure.
type tesseractRecognizer struct {
	cfg    config.RecognitionConfig
	run    func(img capture.Image) ([][]Word, error)
	mu     sync.Mutex
	cancel context.CancelFunc
}

func NewTesseractRecognizer(cfg config.RecognitionConfig) Recognizer {
	r := &tesseractRecognizer{cfg: cfg}
	r.run = r.ocr
	return r
}

func (r *tesseractRecognizer) Recognize(img capture.Image, onResult ResultFunc) {
	timeout := time.Duration(r.cfg.TimeoutMS) * time.Millisecond
	ctx, cancel := context.WithTimeout(context.Background(), timeout)

	r.mu.Lock()
	if r.cancel != nil {
		r.cancel()
	}
	r.cancel = cancel
	r.mu.Unlock()

	type outcome struct {
		lines [][]Word
		err   error
	}
	done := make(chan outcome, 1)
	go func() {
		lines, err := r.run(img)
		done <- outcome{lines: lines, err: err}
	}()

	go func() {
		select {
		case <-ctx.Done():
			if ctx.Err() == context.Canceled {
				// The caller moved on; suppress the completion.
				return
			}
			onResult(nil, fmt.Errorf("recognition timed out after %s: %w", timeout, ctx.Err()))
		case out := <-done:
			if ctx.Err() == context.Canceled {
				return
			}
			cancel()
			onResult(out.lines, out.err)
		}
	}()
}

func (r *tesseractRecognizer) Cancel() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.cancel != nil {
		r.cancel()
		r.cancel = nil
	}
}

func (r *tesseractRecognizer) ocr(img capture.Image) ([][]Word, error) {
	encoded, scale, err := capture.EncodePNG(img, r.cfg.MinWidth)
	if err != nil {
		return nil, err
	}

	client := gosseract.NewClient()
	defer client.Close()

	if len(r.cfg.Languages) > 0 {
		if err := client.SetLanguage(r.cfg.Languages...); err != nil {
			return nil, fmt.Errorf("set languages: %w", err)
		}
	}
	if err := client.SetImageFromBytes(encoded); err != nil {
		return nil, fmt.Errorf("set image: %w", err)
	}

	boxes, err := client.GetBoundingBoxesVerbose()
	if err != nil {
		return nil, fmt.Errorf("bounding boxes: %w", err)
	}
	return r.groupLines(boxes, scale), nil
}

type lineKey struct {
	block, par, line int
}

// groupLines converts Tesseract's flat word list into lines of words,
// dividing the upscale factor back out of every coordinate. Words below
// the configured confidence floor are dropped.
func (r *tesseractRecognizer) groupLines(boxes []gosseract.BoundingBox, scale int) [][]Word {
	var lines [][]Word
	var current lineKey
	for _, box := range boxes {
		if box.Word == "" || box.Confidence < r.cfg.MinConfidence {
			continue
		}
		key := lineKey{box.BlockNum, box.ParNum, box.LineNum}
		if len(lines) == 0 || key != current {
			lines = append(lines, nil)
			current = key
		}
		word := Word{
			X:      box.Box.Min.X / scale,
			Y:      box.Box.Min.Y / scale,
			Width:  box.Box.Dx() / scale,
			Height: box.Box.Dy() / scale,
			Text:   box.Word,
		}
		lines[len(lines)-1] = append(lines[len(lines)-1], word)
	}
	return lines
}
