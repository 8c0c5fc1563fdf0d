package capability

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/perceptlabs/percept-core/internal/bus"
	"github.com/perceptlabs/percept-core/internal/config"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

// NodeInfo describes a runtime node and the recognition backends it
// advertises.
type NodeInfo struct {
	ID          string    `json:"id"`
	Role        string    `json:"role"`
	Recognizers []string  `json:"recognizers"`
	LastSeen    time.Time `json:"last_seen"`
	Healthy     bool      `json:"healthy"`
}

type announceMessage struct {
	NodeID      string    `json:"node_id"`
	Role        string    `json:"role"`
	Recognizers []string  `json:"recognizers"`
	Timestamp   time.Time `json:"timestamp"`
}

type heartbeatMessage struct {
	NodeID    string    `json:"node_id"`
	Timestamp time.Time `json:"timestamp"`
}

// Announcer advertises this node's recognizer backends on the bus and
// tracks the backends other nodes advertise, so a consumer can discover
// where recognition is available.
type Announcer struct {
	cfg         config.NodeConfig
	log         *slog.Logger
	bus         *bus.Client
	recognizers func() []string
	mu          sync.RWMutex
	nodes       map[string]*NodeInfo
	heartbeat   *time.Ticker
	cancel      context.CancelFunc
	subs        []*nats.Subscription
	meter       metric.Meter
}

// NewAnnouncer starts announcing. recognizers supplies the current backend
// names; it is re-evaluated on every announce so late registrations are
// picked up.
func NewAnnouncer(ctx context.Context, cfg config.NodeConfig, busClient *bus.Client, recognizers func() []string, log *slog.Logger) (*Announcer, error) {
	ctx, cancel := context.WithCancel(ctx)
	a := &Announcer{
		cfg:         cfg,
		log:         log.With(slog.String("component", "capability-announcer")),
		bus:         busClient,
		recognizers: recognizers,
		nodes:       make(map[string]*NodeInfo),
		meter:       otel.Meter("github.com/perceptlabs/percept-core/runtime"),
		cancel:      cancel,
	}

	if err := a.initMetrics(); err != nil {
		a.log.Warn("failed to initialize metrics", slog.String("error", err.Error()))
	}

	if err := a.subscribe(); err != nil {
		a.cancel()
		return nil, err
	}

	a.heartbeat = time.NewTicker(time.Duration(cfg.HeartbeatInterval) * time.Millisecond)
	go a.runHeartbeat(ctx)
	go a.monitorHealth(ctx)

	if err := a.announce(); err != nil {
		a.log.Warn("failed to announce node", slog.String("error", err.Error()))
	}

	return a, nil
}

func (a *Announcer) Close() {
	if a.cancel != nil {
		a.cancel()
	}
	if a.heartbeat != nil {
		a.heartbeat.Stop()
	}
	for _, sub := range a.subs {
		_ = sub.Drain()
	}
}

func (a *Announcer) subscribe() error {
	conn := a.bus.Conn()
	announceSub, err := conn.Subscribe("ctrl.node.announce", a.handleAnnounce)
	if err != nil {
		return fmt.Errorf("subscribe announce: %w", err)
	}
	a.subs = append(a.subs, announceSub)

	heartbeatSub, err := conn.Subscribe("ctrl.node.heartbeat.*", a.handleHeartbeat)
	if err != nil {
		return fmt.Errorf("subscribe heartbeat: %w", err)
	}
	a.subs = append(a.subs, heartbeatSub)

	return nil
}

func (a *Announcer) runHeartbeat(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-a.heartbeat.C:
			if err := a.publishHeartbeat(); err != nil {
				a.log.Warn("failed to publish heartbeat", slog.String("error", err.Error()))
			}
		}
	}
}

func (a *Announcer) monitorHealth(ctx context.Context) {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			a.evaluateHealth()
		}
	}
}

func (a *Announcer) announce() error {
	msg := announceMessage{
		NodeID:      a.cfg.ID,
		Role:        a.cfg.Role,
		Recognizers: a.recognizers(),
		Timestamp:   time.Now().UTC(),
	}
	payload, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	if err := a.bus.Conn().Publish("ctrl.node.announce", payload); err != nil {
		return err
	}
	a.updateNode(msg.NodeID, msg.Role, msg.Recognizers, msg.Timestamp)
	return nil
}

func (a *Announcer) publishHeartbeat() error {
	msg := heartbeatMessage{
		NodeID:    a.cfg.ID,
		Timestamp: time.Now().UTC(),
	}
	payload, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	subject := fmt.Sprintf("ctrl.node.heartbeat.%s", a.cfg.ID)
	return a.bus.Conn().Publish(subject, payload)
}

func (a *Announcer) handleAnnounce(msg *nats.Msg) {
	var announcement announceMessage
	if err := json.Unmarshal(msg.Data, &announcement); err != nil {
		a.log.Warn("invalid announce message", slog.String("error", err.Error()))
		return
	}
	if announcement.Timestamp.IsZero() {
		announcement.Timestamp = time.Now().UTC()
	}
	a.updateNode(announcement.NodeID, announcement.Role, announcement.Recognizers, announcement.Timestamp)
}

func (a *Announcer) handleHeartbeat(msg *nats.Msg) {
	var hb heartbeatMessage
	if err := json.Unmarshal(msg.Data, &hb); err != nil {
		a.log.Warn("invalid heartbeat message", slog.String("error", err.Error()))
		return
	}
	if hb.Timestamp.IsZero() {
		hb.Timestamp = time.Now().UTC()
	}
	a.updateNode(hb.NodeID, "", nil, hb.Timestamp)
}

func (a *Announcer) updateNode(nodeID, role string, recognizers []string, timestamp time.Time) {
	a.mu.Lock()
	defer a.mu.Unlock()

	node, ok := a.nodes[nodeID]
	if !ok {
		node = &NodeInfo{ID: nodeID}
		a.nodes[nodeID] = node
	}
	if role != "" {
		node.Role = role
	}
	if len(recognizers) > 0 {
		node.Recognizers = recognizers
	}
	node.LastSeen = timestamp
	node.Healthy = true
}

func (a *Announcer) evaluateHealth() {
	a.mu.Lock()
	defer a.mu.Unlock()

	timeout := time.Duration(a.cfg.HeartbeatTimeout) * time.Millisecond
	now := time.Now()
	for _, node := range a.nodes {
		if now.Sub(node.LastSeen) > timeout {
			node.Healthy = false
		}
	}
}

func (a *Announcer) Healthy() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()

	node, ok := a.nodes[a.cfg.ID]
	if !ok {
		return false
	}
	return node.Healthy
}

// Query returns the known nodes matching filter (all nodes when nil).
func (a *Announcer) Query(filter func(NodeInfo) bool) []NodeInfo {
	a.mu.RLock()
	defer a.mu.RUnlock()

	var results []NodeInfo
	for _, node := range a.nodes {
		copy := *node
		if filter == nil || filter(copy) {
			results = append(results, copy)
		}
	}
	return results
}

// WithRecognizer filters nodes advertising the named backend.
func WithRecognizer(name string) func(NodeInfo) bool {
	return func(node NodeInfo) bool {
		for _, r := range node.Recognizers {
			if r == name {
				return true
			}
		}
		return false
	}
}

func (a *Announcer) initMetrics() error {
	if a.meter == nil {
		return nil
	}
	nodeGauge, err := a.meter.Int64ObservableGauge("percept.capabilities.nodes", metric.WithDescription("Number of known nodes"))
	if err != nil {
		return err
	}
	recogGauge, err := a.meter.Int64ObservableGauge("percept.capabilities.recognizers", metric.WithDescription("Total advertised recognizer backends"))
	if err != nil {
		return err
	}
	_, err = a.meter.RegisterCallback(func(ctx context.Context, obs metric.Observer) error {
		nodes, recognizers := a.snapshotCounts()
		obs.ObserveInt64(nodeGauge, nodes)
		obs.ObserveInt64(recogGauge, recognizers)
		return nil
	}, nodeGauge, recogGauge)
	return err
}

func (a *Announcer) snapshotCounts() (int64, int64) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	var nodes int64
	var recognizers int64
	for _, node := range a.nodes {
		nodes++
		recognizers += int64(len(node.Recognizers))
	}
	return nodes, recognizers
}
