package recog

import (
	"fmt"

	"github.com/perceptlabs/percept-core/internal/config"
)

// NewFromConfig builds the backend named by cfg.Mode.
func NewFromConfig(cfg config.RecognitionConfig) (Recognizer, error) {
	switch cfg.Mode {
	case "mock":
		return NewMockRecognizer(), nil
	case "tesseract":
		return NewTesseractRecognizer(cfg), nil
	case "exec":
		return NewExecRecognizer(cfg)
	default:
		return nil, fmt.Errorf("unknown recognition mode %q", cfg.Mode)
	}
}
