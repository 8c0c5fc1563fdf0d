package main

import (
	"flag"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/perceptlabs/percept-core/internal/capture"
	"github.com/perceptlabs/percept-core/internal/config"
	"github.com/perceptlabs/percept-core/internal/recog"
)

// percept-ocr recognizes a single image file and prints the flattened
// text, one recognized line per output line. With -words it also prints
// the word offset table.
func main() {
	var (
		imagePath string
		mode      string
		command   string
		languages string
		timeoutMS int
		showWords bool
	)

	flag.StringVar(&imagePath, "image", "", "Path to the image file (PNG or JPEG)")
	flag.StringVar(&mode, "mode", "tesseract", "Recognition backend: mock, tesseract or exec")
	flag.StringVar(&command, "command", "", "External OCR command (mode=exec)")
	flag.StringVar(&languages, "languages", "eng", "Comma-separated recognition languages")
	flag.IntVar(&timeoutMS, "timeout-ms", 30000, "Recognition timeout in milliseconds")
	flag.BoolVar(&showWords, "words", false, "Print the word offset table")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	if imagePath == "" {
		logger.Error("missing required -image flag")
		os.Exit(2)
	}

	file, err := os.Open(imagePath)
	if err != nil {
		logger.Error("failed to open image", slog.String("error", err.Error()))
		os.Exit(1)
	}
	decoded, _, err := image.Decode(file)
	file.Close()
	if err != nil {
		logger.Error("failed to decode image", slog.String("error", err.Error()))
		os.Exit(1)
	}

	cfg := config.Default().Recognition
	cfg.Mode = mode
	cfg.Command = command
	cfg.TimeoutMS = timeoutMS
	cfg.Languages = splitLanguages(languages)

	backend, err := recog.NewFromConfig(cfg)
	if err != nil {
		logger.Error("failed to build recognizer", slog.String("error", err.Error()))
		os.Exit(1)
	}

	img := capture.FromRGBA(decoded, 0, 0)

	type outcome struct {
		res *recog.Result
		err error
	}
	done := make(chan outcome, 1)

	session := recog.NewSession()
	if err := session.Start(backend, img, func(res *recog.Result, err error) {
		done <- outcome{res: res, err: err}
	}); err != nil {
		logger.Error("failed to start recognition", slog.String("error", err.Error()))
		os.Exit(1)
	}

	var result outcome
	select {
	case result = <-done:
	case <-time.After(time.Duration(timeoutMS+1000) * time.Millisecond):
		session.Cancel()
		logger.Error("recognition timed out")
		os.Exit(1)
	}
	if result.err != nil {
		logger.Error("recognition failed", slog.String("error", result.err.Error()))
		os.Exit(1)
	}

	view := recog.NewTextView(result.res)
	start := 0
	for _, end := range result.res.LineEndOffsets {
		fmt.Println(view.TextSlice(start, end))
		start = end
	}

	if showWords {
		for _, w := range result.res.Words {
			wordStart, wordEnd := view.WordRange(w.TextOffset)
			fmt.Fprintf(os.Stderr, "%6d  (%d,%d)  %q\n", w.TextOffset, w.ScreenX, w.ScreenY,
				strings.TrimRight(view.TextSlice(wordStart, wordEnd), " "))
		}
	}
}

func splitLanguages(value string) []string {
	var langs []string
	for _, part := range strings.Split(value, ",") {
		if s := strings.TrimSpace(part); s != "" {
			langs = append(langs, s)
		}
	}
	return langs
}
