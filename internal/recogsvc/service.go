package recogsvc

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/perceptlabs/percept-core/internal/bus"
	"github.com/perceptlabs/percept-core/internal/capture"
	"github.com/perceptlabs/percept-core/internal/config"
	"github.com/perceptlabs/percept-core/internal/protocol"
	"github.com/perceptlabs/percept-core/internal/recog"
	"github.com/perceptlabs/percept-core/internal/resultstore"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

// Service receives capture requests from the bus, runs them through the
// session coordinator with the registry's current backend, and publishes
// the flattened result (or a failure) back. Completed results are also
// persisted to the result store.
type Service struct {
	cfg       config.RecognitionConfig
	bus       *bus.Client
	log       *slog.Logger
	registry  *recog.Registry
	session   *recog.Session
	store     *resultstore.Store
	ctx       context.Context
	cancel    context.CancelFunc
	sub       *nats.Subscription
	ready     bool
	started   metric.Int64Counter
	completed metric.Int64Counter
	failed    metric.Int64Counter
}

func NewService(parent context.Context, cfg config.RecognitionConfig, busClient *bus.Client, registry *recog.Registry, store *resultstore.Store) *Service {
	ctx, cancel := context.WithCancel(parent)
	s := &Service{
		cfg:      cfg,
		bus:      busClient,
		log:      busClient.Logger(),
		registry: registry,
		session:  recog.NewSession(),
		store:    store,
		ctx:      ctx,
		cancel:   cancel,
	}
	s.initMetrics()
	return s
}

func (s *Service) initMetrics() {
	meter := otel.Meter("github.com/perceptlabs/percept-core/recogsvc")
	var err error
	if s.started, err = meter.Int64Counter("percept.recognitions.started", metric.WithDescription("Recognition sessions started")); err != nil {
		s.log.Warn("failed to create counter", slogError(err))
	}
	if s.completed, err = meter.Int64Counter("percept.recognitions.completed", metric.WithDescription("Recognition sessions completed")); err != nil {
		s.log.Warn("failed to create counter", slogError(err))
	}
	if s.failed, err = meter.Int64Counter("percept.recognitions.failed", metric.WithDescription("Recognition sessions failed")); err != nil {
		s.log.Warn("failed to create counter", slogError(err))
	}
}

func (s *Service) Start() error {
	if !s.cfg.Enabled {
		return nil
	}
	sub, err := s.bus.Conn().Subscribe(protocol.SubjectRecogRequest, s.handleRequest)
	if err != nil {
		return err
	}
	s.sub = sub
	s.ready = true
	return nil
}

// Close stops accepting requests before tearing anything down: the
// subscription drains first so a request handled during shutdown cannot
// start a recognition after the session has been cancelled.
func (s *Service) Close() {
	if s.sub != nil {
		_ = s.sub.Drain()
	}
	s.cancel()
	s.session.Cancel()
}

func (s *Service) Healthy() bool {
	return !s.cfg.Enabled || s.ready
}

func (s *Service) handleRequest(msg *nats.Msg) {
	if s.ctx.Err() != nil {
		// Shutting down; requests still in the delivery queue are dropped.
		return
	}

	var req protocol.RecognitionRequest
	if err := json.Unmarshal(msg.Data, &req); err != nil {
		s.log.Warn("failed to decode recognition request", slogError(err))
		return
	}
	if req.SessionID == "" {
		req.SessionID = uuid.NewString()
	}

	img := capture.Image{
		Pix:    req.Pixels,
		Left:   req.Left,
		Top:    req.Top,
		Width:  req.Width,
		Height: req.Height,
	}
	if err := img.Validate(); err != nil {
		s.log.Warn("rejecting malformed capture", slog.String("session_id", req.SessionID), slogError(err))
		s.publishFailure(req.SessionID, err)
		return
	}

	// A nil backend is rejected synchronously by Session.Start.
	backend, _ := s.registry.Current()
	sessionID := req.SessionID
	err := s.session.Start(backend, img, func(res *recog.Result, err error) {
		if err != nil {
			s.count(s.failed)
			s.log.Warn("recognition failed", slog.String("session_id", sessionID), slogError(err))
			s.publishFailure(sessionID, err)
			return
		}
		s.count(s.completed)
		s.publishResult(sessionID, res)
		s.persist(sessionID, res)
	})
	if err != nil {
		s.count(s.failed)
		s.log.Warn("recognition rejected", slog.String("session_id", sessionID), slogError(err))
		s.publishFailure(sessionID, err)
		return
	}
	s.count(s.started)
	s.log.Info("recognizing", slog.String("session_id", sessionID),
		slog.Int("width", img.Width), slog.Int("height", img.Height))
}

func (s *Service) publishResult(sessionID string, res *recog.Result) {
	words := make([]protocol.RecognizedWord, len(res.Words))
	for i, w := range res.Words {
		words[i] = protocol.RecognizedWord{Offset: w.TextOffset, X: w.ScreenX, Y: w.ScreenY}
	}
	msg := protocol.RecognitionText{
		SessionID:      sessionID,
		Text:           res.Text,
		LineEndOffsets: res.LineEndOffsets,
		Words:          words,
		OriginX:        res.OriginX,
		OriginY:        res.OriginY,
		Timestamp:      time.Now().UTC(),
	}
	data, err := json.Marshal(msg)
	if err != nil {
		s.log.Warn("failed to marshal recognition result", slogError(err))
		return
	}
	if err := s.bus.Conn().Publish(protocol.SubjectRecogResult, data); err != nil {
		s.log.Warn("failed to publish recognition result", slogError(err))
	}
}

func (s *Service) publishFailure(sessionID string, cause error) {
	msg := protocol.RecognitionFailure{
		SessionID: sessionID,
		Reason:    cause.Error(),
		Timestamp: time.Now().UTC(),
	}
	data, err := json.Marshal(msg)
	if err != nil {
		s.log.Warn("failed to marshal recognition failure", slogError(err))
		return
	}
	if err := s.bus.Conn().Publish(protocol.SubjectRecogFailed, data); err != nil {
		s.log.Warn("failed to publish recognition failure", slogError(err))
	}
}

func (s *Service) persist(sessionID string, res *recog.Result) {
	if s.store == nil {
		return
	}
	ctx, cancel := context.WithTimeout(s.ctx, 5*time.Second)
	defer cancel()
	if err := s.store.AppendSession(ctx, sessionID); err != nil {
		s.log.Warn("failed to record session", slogError(err))
		return
	}
	if err := s.store.SaveResult(ctx, sessionID, res); err != nil {
		s.log.Warn("failed to persist result", slogError(err))
	}
}

func (s *Service) count(counter metric.Int64Counter) {
	if counter != nil {
		counter.Add(s.ctx, 1)
	}
}

func slogError(err error) slog.Attr {
	return slog.String("error", err.Error())
}
