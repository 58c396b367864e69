// Package session implements the coordinator side of the protocol: the
// explicit Session value of §9's design note (replacing the source's
// implicit mutable singleton), owned by the listener and shared by
// reference with per-connection handler goroutines under a single
// session-wide mutex, per §5's preemptive-runtime guidance.
package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/sage-x-project/secagg/config"
	"github.com/sage-x-project/secagg/internal/logger"
	"github.com/sage-x-project/secagg/internal/metrics"
	"github.com/sage-x-project/secagg/mask"
	"github.com/sage-x-project/secagg/protocol"
	"github.com/sage-x-project/secagg/transport"
)

// Coordinator holds one session's state (§3) and drives the per-connection
// dispatch of §4.4. A fresh logical session begins the moment the first
// client is admitted and ends when Reset runs after a successful
// broadcast; the Coordinator value itself persists across sessions so the
// listener can keep accepting connections indefinitely.
type Coordinator struct {
	threshold    int
	base         int64
	vectorLength int
	maskMode     mask.Mode
	log          logger.Logger

	mu                        sync.Mutex
	connections               map[string]transport.Conn
	publicKeys                map[string][]byte
	perturbations             map[string]map[string]protocol.EncryptedBundle
	receivedPerturbationCount int
	agg                       []int64
	receivedValueCount        int
	phase                     Phase
	roundStart                time.Time
}

// NewCoordinator creates a Coordinator from process configuration. log may
// be nil, in which case the package default logger is used.
func NewCoordinator(cfg *config.CoordinatorConfig, log logger.Logger) *Coordinator {
	if log == nil {
		log = logger.NewDefaultLogger()
	}
	maskMode := mask.ScalarMode
	if cfg.MaskMode == "vector" {
		maskMode = mask.VectorMode
	}
	return &Coordinator{
		threshold:     cfg.Threshold,
		base:          cfg.Base,
		vectorLength:  cfg.VectorLength,
		maskMode:      maskMode,
		log:           log,
		connections:   make(map[string]transport.Conn),
		publicKeys:    make(map[string][]byte),
		perturbations: make(map[string]map[string]protocol.EncryptedBundle),
		agg:           make([]int64, cfg.VectorLength),
		phase:         AwaitingConnections,
	}
}

// Phase returns the coordinator's current round, for tests and metrics.
func (c *Coordinator) Phase() Phase {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.phase
}

// ConnectionCount returns the number of currently admitted connections.
func (c *Coordinator) ConnectionCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.connections)
}

// Aggregate returns a copy of the current aggregate vector, for tests.
func (c *Coordinator) Aggregate() []int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]int64(nil), c.agg...)
}

// BroadcastText sends an operator-initiated free-text `message` frame
// (§4.5 TypeText) to every currently connected client, the same
// best-effort informational channel used for admission-cap rejection.
func (c *Coordinator) BroadcastText(ctx context.Context, text string) {
	c.mu.Lock()
	snapshot := c.snapshotConnectionsLocked()
	c.mu.Unlock()
	c.broadcast(ctx, snapshot, &protocol.Message{Type: protocol.TypeText, Text: text})
}

// HandleConnection runs the per-connection handler of §4.4 for one
// accepted transport.Conn; call it in its own goroutine per connection
// (§5: "many concurrent logical tasks, one per client connection").
func (c *Coordinator) HandleConnection(ctx context.Context, conn transport.Conn) {
	id, base, admitted := c.admit(conn)
	if !admitted {
		_ = conn.Send(ctx, &protocol.Message{Type: protocol.TypeText, Text: "Enough clients have already connected."})
		_ = conn.Close()
		metrics.ConnectionsRejected.Inc()
		c.log.Info("rejected connection: threshold already reached")
		return
	}
	defer c.removeConnection(id, conn)

	c.log.Info("admitted client connection", logger.String("client", id))
	if err := conn.Send(ctx, &protocol.Message{Type: protocol.TypeInitBase, Base: base}); err != nil {
		c.log.Warn("failed to send init_base_param", logger.String("client", id), logger.Error(err))
		return
	}

	for {
		msg, err := conn.Receive(ctx)
		if err != nil {
			c.log.Info("connection closed", logger.String("client", id), logger.Error(err))
			return
		}
		c.dispatch(ctx, id, msg)
	}
}

// admit applies the admission rule of §4.4: reject once the threshold is
// reached, otherwise record the connection and, if this is the Nth, move
// the phase to AwaitingKeys (the invariant of §3: "once phase =
// AwaitingKeys, |connections| = N").
func (c *Coordinator) admit(conn transport.Conn) (id string, base int64, ok bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.connections) >= c.threshold {
		return "", 0, false
	}

	id = conn.RemoteID()
	if id == "" {
		id = uuid.NewString()
	}

	if len(c.connections) == 0 {
		metrics.SessionsStarted.Inc()
		c.log.Info("session starting", logger.Int("threshold", c.threshold), logger.String("mask_mode", c.maskMode.String()))
	}
	c.connections[id] = conn
	metrics.ConnectionsAdmitted.Inc()

	if len(c.connections) == c.threshold {
		c.phase = AwaitingKeys
		c.roundStart = time.Now()
		metrics.PhaseTransitions.WithLabelValues(string(AwaitingKeys)).Inc()
	}

	return id, c.base, true
}

// removeConnection deletes id's entry only if it still points at conn,
// guarding against a stale close racing a Reset that already started a
// fresh session under the same id (the mock transport in particular can
// reuse small ids like "client-1" across sessions in tests).
func (c *Coordinator) removeConnection(id string, conn transport.Conn) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.connections[id] == conn {
		delete(c.connections, id)
	}
}

// dispatch routes one inbound frame by type (§4.4). Message types are
// mutually exclusive; an unrecognized or out-of-phase type is logged and
// dropped without closing the connection (§7 DecodeError/ProtocolError).
func (c *Coordinator) dispatch(ctx context.Context, id string, msg *protocol.Message) {
	switch msg.Type {
	case protocol.TypePublicKey:
		c.handlePublicKey(ctx, id, msg)
	case protocol.TypePerturbations:
		c.handlePerturbations(ctx, id, msg)
	case protocol.TypeValue:
		c.handleValue(ctx, id, msg)
	case protocol.TypeText:
		// informational; never advances state.
	default:
		c.decodeError(id, fmt.Sprintf("unexpected message type %q", msg.Type))
	}
}

func (c *Coordinator) handlePublicKey(ctx context.Context, id string, msg *protocol.Message) {
	c.mu.Lock()
	if c.phase != AwaitingConnections && c.phase != AwaitingKeys {
		c.mu.Unlock()
		c.protocolError(id, "public_key received outside key-exchange phase")
		return
	}
	if _, exists := c.publicKeys[id]; exists {
		c.mu.Unlock()
		c.protocolError(id, "duplicate public_key from client")
		return
	}

	c.publicKeys[id] = msg.PublicKey

	var broadcastMsg *protocol.Message
	var snapshot map[string]transport.Conn
	if len(c.publicKeys) == c.threshold {
		for peerID := range c.publicKeys {
			c.perturbations[peerID] = make(map[string]protocol.EncryptedBundle)
		}
		metrics.RoundDuration.WithLabelValues("key_exchange").Observe(time.Since(c.roundStart).Seconds())
		c.phase = AwaitingPerturbations
		c.roundStart = time.Now()
		metrics.PhaseTransitions.WithLabelValues(string(AwaitingPerturbations)).Inc()

		pkMap := make(map[string][]byte, len(c.publicKeys))
		for k, v := range c.publicKeys {
			pkMap[k] = v
		}
		broadcastMsg = &protocol.Message{Type: protocol.TypePublicKeyBroadcast, PublicKeys: pkMap}
		snapshot = c.snapshotConnectionsLocked()
	}
	c.mu.Unlock()

	if broadcastMsg != nil {
		c.log.Info("all public keys received, broadcasting", logger.Int("count", len(snapshot)))
		c.broadcast(ctx, snapshot, broadcastMsg)
	}
}

func (c *Coordinator) handlePerturbations(ctx context.Context, id string, msg *protocol.Message) {
	c.mu.Lock()
	if c.phase != AwaitingPerturbations {
		c.mu.Unlock()
		c.protocolError(id, "perturbations received outside seed-exchange phase")
		return
	}

	for recipient, bundle := range msg.Perturbations {
		if _, ok := c.perturbations[recipient]; !ok {
			c.perturbations[recipient] = make(map[string]protocol.EncryptedBundle)
		}
		c.perturbations[recipient][id] = bundle
	}
	c.receivedPerturbationCount++

	var toSend map[string]*protocol.Message
	var snapshot map[string]transport.Conn
	if c.receivedPerturbationCount == c.threshold {
		metrics.RoundDuration.WithLabelValues("seed_exchange").Observe(time.Since(c.roundStart).Seconds())
		c.phase = AwaitingValues
		c.roundStart = time.Now()
		metrics.PhaseTransitions.WithLabelValues(string(AwaitingValues)).Inc()

		toSend = make(map[string]*protocol.Message, len(c.perturbations))
		for recipient, bundles := range c.perturbations {
			perPeer := make(map[string]protocol.EncryptedBundle, len(bundles))
			for sender, bundle := range bundles {
				perPeer[sender] = bundle
			}
			toSend[recipient] = &protocol.Message{Type: protocol.TypePerturbations, Perturbations: perPeer}
		}
		snapshot = c.snapshotConnectionsLocked()
	}
	c.mu.Unlock()

	if toSend != nil {
		c.log.Info("all perturbations received, relaying")
		c.sendToEach(ctx, snapshot, toSend)
	}
}

func (c *Coordinator) handleValue(ctx context.Context, id string, msg *protocol.Message) {
	c.mu.Lock()
	if c.phase != AwaitingValues {
		c.mu.Unlock()
		c.protocolError(id, "value received outside value-submission phase")
		return
	}
	if len(msg.Value) != c.vectorLength {
		c.mu.Unlock()
		c.protocolError(id, fmt.Sprintf("value length %d does not match vector_length %d", len(msg.Value), c.vectorLength))
		return
	}

	for i, x := range msg.Value {
		c.agg[i] += x
	}
	c.receivedValueCount++

	var broadcastMsg *protocol.Message
	var snapshot map[string]transport.Conn
	done := false
	if c.receivedValueCount == c.threshold {
		c.agg = mask.Sum(c.agg, c.base)
		result := append([]int64(nil), c.agg...)
		broadcastMsg = &protocol.Message{Type: protocol.TypeAggregationResult, AggregationResult: result}
		snapshot = c.snapshotConnectionsLocked()
		metrics.RoundDuration.WithLabelValues("value_submission").Observe(time.Since(c.roundStart).Seconds())
		c.phase = Terminal
		metrics.PhaseTransitions.WithLabelValues(string(Terminal)).Inc()
		done = true
	}
	c.mu.Unlock()

	if done {
		c.log.Info("aggregation complete, broadcasting result")
		c.broadcast(ctx, snapshot, broadcastMsg)
		metrics.SessionsCompleted.Inc()
		c.reset()
	}
}

// reset restores session state to its initial empty form (§4.4 Reset) and
// closes every still-open connection, snapshotting the connection set
// before closing it — the Go analog of the source's `copy.copy(list(...))`
// idiom for safely iterating while the underlying map is concurrently
// drained by each connection's own finalizer (§9).
func (c *Coordinator) reset() {
	c.mu.Lock()
	snapshot := c.snapshotConnectionsLocked()
	c.connections = make(map[string]transport.Conn)
	c.publicKeys = make(map[string][]byte)
	c.perturbations = make(map[string]map[string]protocol.EncryptedBundle)
	c.receivedPerturbationCount = 0
	c.agg = make([]int64, c.vectorLength)
	c.receivedValueCount = 0
	c.phase = AwaitingConnections
	c.mu.Unlock()

	for _, conn := range snapshot {
		_ = conn.Close()
	}
}

func (c *Coordinator) snapshotConnectionsLocked() map[string]transport.Conn {
	out := make(map[string]transport.Conn, len(c.connections))
	for k, v := range c.connections {
		out[k] = v
	}
	return out
}

// broadcast delivers msg to every connection in conns, independently and
// concurrently; delivery order across connections is unspecified (§5), and
// a failed send to one peer never blocks or fails delivery to the others.
func (c *Coordinator) broadcast(ctx context.Context, conns map[string]transport.Conn, msg *protocol.Message) {
	var g errgroup.Group
	for id, conn := range conns {
		id, conn := id, conn
		g.Go(func() error {
			if err := conn.Send(ctx, msg); err != nil {
				c.log.Warn("broadcast send failed", logger.String("client", id), logger.Error(err))
			}
			return nil
		})
	}
	_ = g.Wait()
}

// sendToEach delivers a distinct, recipient-specific message to each
// connection named in messages, concurrently. A recipient who has already
// disconnected is silently skipped (§4.4/§5: the coordinator never rolls
// back counters for a mid-round dropout).
func (c *Coordinator) sendToEach(ctx context.Context, conns map[string]transport.Conn, messages map[string]*protocol.Message) {
	var g errgroup.Group
	for recipient, msg := range messages {
		conn, ok := conns[recipient]
		if !ok {
			continue
		}
		recipient, msg, conn := recipient, msg, conn
		g.Go(func() error {
			if err := conn.Send(ctx, msg); err != nil {
				c.log.Warn("send failed", logger.String("client", recipient), logger.Error(err))
			}
			return nil
		})
	}
	_ = g.Wait()
}

// protocolError reports a frame that decoded cleanly but violates the
// protocol's phase or shape invariants (§7 ProtocolError): wrong phase, a
// vector length mismatch, a duplicate public_key. Dropped with a log; the
// connection stays open and the session continues.
func (c *Coordinator) protocolError(id, reason string) {
	err := fmt.Errorf("%w: %s", protocol.ErrProtocol, reason)
	c.log.Warn("protocol error", logger.String("client", id), logger.Error(err))
	metrics.ProtocolErrors.WithLabelValues("protocol").Inc()
}

// decodeError reports a frame naming an unrecognized type (§7
// DecodeError). Dropped with a log; the connection stays open.
func (c *Coordinator) decodeError(id, reason string) {
	err := fmt.Errorf("%w: %s", protocol.ErrDecode, reason)
	c.log.Warn("decode error", logger.String("client", id), logger.Error(err))
	metrics.ProtocolErrors.WithLabelValues("decode").Inc()
}
