package recog

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"sync"
	"time"

	shellwords "github.com/mattn/go-shellwords"
	"github.com/perceptlabs/percept-core/internal/capture"
	"github.com/perceptlabs/percept-core/internal/config"
)

// execRecognizer shells out to an external OCR command. The command is
// invoked with --image <path> pointing at a temporary PNG and must print a
// JSON array of lines, each line an array of word objects:
//
//	[[{"x":106,"y":91,"width":11,"height":9,"text":"Word1"}, ...], ...]
//
// Coordinates are capture-local pixels; percept adds the screen origin.
type execRecognizer struct {
	cmd    []string
	cfg    config.RecognitionConfig
	mu     sync.Mutex
	cancel context.CancelFunc
}

type execWord struct {
	X      int    `json:"x"`
	Y      int    `json:"y"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
	Text   string `json:"text"`
}

func NewExecRecognizer(cfg config.RecognitionConfig) (Recognizer, error) {
	parser := shellwords.NewParser()
	args, err := parser.Parse(cfg.Command)
	if err != nil {
		return nil, fmt.Errorf("parse recognition command: %w", err)
	}
	if len(args) == 0 {
		return nil, fmt.Errorf("recognition command is empty")
	}
	return &execRecognizer{cmd: args, cfg: cfg}, nil
}

func (r *execRecognizer) Recognize(img capture.Image, onResult ResultFunc) {
	timeout := time.Duration(r.cfg.TimeoutMS) * time.Millisecond
	ctx, cancel := context.WithTimeout(context.Background(), timeout)

	r.mu.Lock()
	if r.cancel != nil {
		r.cancel()
	}
	r.cancel = cancel
	r.mu.Unlock()

	go func() {
		lines, err := r.run(ctx, img)
		if ctx.Err() == context.Canceled {
			return
		}
		cancel()
		onResult(lines, err)
	}()
}

func (r *execRecognizer) Cancel() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.cancel != nil {
		r.cancel()
		r.cancel = nil
	}
}

func (r *execRecognizer) run(ctx context.Context, img capture.Image) ([][]Word, error) {
	encoded, scale, err := capture.EncodePNG(img, r.cfg.MinWidth)
	if err != nil {
		return nil, err
	}

	file, err := os.CreateTemp("", "percept_recog_*.png")
	if err != nil {
		return nil, fmt.Errorf("temp file: %w", err)
	}
	defer os.Remove(file.Name())
	defer file.Close()
	if _, err := file.Write(encoded); err != nil {
		return nil, fmt.Errorf("write capture: %w", err)
	}

	args := append([]string{}, r.cmd[1:]...)
	args = append(args, "--image", file.Name())
	for _, lang := range r.cfg.Languages {
		args = append(args, "--language", lang)
	}

	command := exec.CommandContext(ctx, r.cmd[0], args...)
	var stdout bytes.Buffer
	var stderr bytes.Buffer
	command.Stdout = &stdout
	command.Stderr = &stderr

	if err := command.Run(); err != nil {
		return nil, fmt.Errorf("recognition command failed: %w: %s", err, stderr.String())
	}

	var raw [][]execWord
	if err := json.Unmarshal(stdout.Bytes(), &raw); err != nil {
		return nil, fmt.Errorf("decode recognition output: %w", err)
	}

	lines := make([][]Word, len(raw))
	for i, line := range raw {
		words := make([]Word, len(line))
		for j, w := range line {
			words[j] = Word{
				X:      w.X / scale,
				Y:      w.Y / scale,
				Width:  w.Width / scale,
				Height: w.Height / scale,
				Text:   w.Text,
			}
		}
		lines[i] = words
	}
	return lines, nil
}
