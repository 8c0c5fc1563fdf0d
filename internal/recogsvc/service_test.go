package recogsvc

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/nats-io/nats.go"
	"github.com/perceptlabs/percept-core/internal/capture"
	"github.com/perceptlabs/percept-core/internal/config"
	"github.com/perceptlabs/percept-core/internal/protocol"
	"github.com/perceptlabs/percept-core/internal/recog"
)

type recordingRecognizer struct {
	mu    sync.Mutex
	calls int
}

func (r *recordingRecognizer) Recognize(_ capture.Image, _ recog.ResultFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls++
}

func (r *recordingRecognizer) Cancel() {}

func (r *recordingRecognizer) callCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls
}

func newTestService(backend recog.Recognizer) *Service {
	ctx, cancel := context.WithCancel(context.Background())
	registry := recog.NewRegistry()
	registry.Register("recording", backend)
	return &Service{
		cfg:      config.RecognitionConfig{Enabled: true},
		log:      slog.New(slog.NewTextHandler(io.Discard, nil)),
		registry: registry,
		session:  recog.NewSession(),
		ctx:      ctx,
		cancel:   cancel,
	}
}

func requestPayload(t *testing.T) []byte {
	t.Helper()
	req := protocol.RecognitionRequest{
		SessionID: "shutdown-test",
		Left:      1, Top: 2, Width: 1, Height: 1,
		Pixels: make([]byte, 4),
	}
	data, err := json.Marshal(req)
	if err != nil {
		t.Fatalf("marshal request: %v", err)
	}
	return data
}

func TestHandleRequestAfterCloseIsDropped(t *testing.T) {
	backend := &recordingRecognizer{}
	s := newTestService(backend)
	s.Close()

	s.handleRequest(&nats.Msg{Data: requestPayload(t)})

	if backend.callCount() != 0 {
		t.Fatalf("request after close started a recognition (%d calls)", backend.callCount())
	}
	if s.session.Active() {
		t.Fatal("session must stay idle after close")
	}
}

func TestHandleRequestStartsRecognition(t *testing.T) {
	backend := &recordingRecognizer{}
	s := newTestService(backend)
	t.Cleanup(s.Close)

	s.handleRequest(&nats.Msg{Data: requestPayload(t)})

	if backend.callCount() != 1 {
		t.Fatalf("expected one recognition, got %d", backend.callCount())
	}
	if !s.session.Active() {
		t.Fatal("session should be active while the backend runs")
	}
}
