// Package mock provides an in-memory transport.Listener/Conn pair for
// tests that drive the coordinator and client state machines end to end
// without a real network, following the teacher's pattern of a hand-rolled
// test double that captures traffic directly rather than round-tripping
// through serialization.
package mock

import (
	"context"
	"fmt"
	"sync"

	"github.com/sage-x-project/secagg/protocol"
	"github.com/sage-x-project/secagg/transport"
)

// frameBuf is large enough that a client's handler and the coordinator's
// handler never deadlock waiting on each other mid-round in tests that
// don't read every message immediately.
const frameBuf = 64

// Conn is one half of an in-memory duplex pair. Two Conns created by
// Pair are cross-wired: sends on one arrive as receives on the other.
type Conn struct {
	remoteID string
	out      chan *protocol.Message
	in       chan *protocol.Message

	closeOnce  sync.Once
	closed     chan struct{}
	peerClosed chan struct{}
}

// Pair creates two connected mock Conns, clientID naming the client side's
// RemoteID as the coordinator would observe it from a transport endpoint.
func Pair(clientID string) (client *Conn, coordinatorSide *Conn) {
	a := make(chan *protocol.Message, frameBuf)
	b := make(chan *protocol.Message, frameBuf)

	client = &Conn{remoteID: "coordinator", out: a, in: b, closed: make(chan struct{})}
	coordinatorSide = &Conn{remoteID: clientID, out: b, in: a, closed: make(chan struct{})}
	client.peerClosed = coordinatorSide.closed
	coordinatorSide.peerClosed = client.closed
	return client, coordinatorSide
}

// Send implements transport.Conn.
func (c *Conn) Send(ctx context.Context, msg *protocol.Message) error {
	select {
	case <-c.closed:
		return fmt.Errorf("mock: %w", transport.ErrTransportClosed)
	default:
	}
	select {
	case c.out <- msg:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-c.closed:
		return fmt.Errorf("mock: %w", transport.ErrTransportClosed)
	}
}

// Receive implements transport.Conn. Once the peer has closed its side,
// frames it sent before closing are still delivered, then Receive fails.
func (c *Conn) Receive(ctx context.Context) (*protocol.Message, error) {
	select {
	case msg, ok := <-c.in:
		if !ok {
			return nil, fmt.Errorf("mock: %w", transport.ErrTransportClosed)
		}
		return msg, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-c.closed:
		return nil, fmt.Errorf("mock: %w", transport.ErrTransportClosed)
	case <-c.peerClosed:
		select {
		case msg := <-c.in:
			return msg, nil
		default:
		}
		return nil, fmt.Errorf("mock: %w", transport.ErrTransportClosed)
	}
}

// RemoteID implements transport.Conn.
func (c *Conn) RemoteID() string {
	return c.remoteID
}

// Close implements transport.Conn.
func (c *Conn) Close() error {
	c.closeOnce.Do(func() { close(c.closed) })
	return nil
}

var _ transport.Conn = (*Conn)(nil)

// Listener hands out the coordinator-side half of a Pair for each Dial
// call made against it, mimicking a real listener's Accept loop.
type Listener struct {
	incoming chan *Conn
	closed   chan struct{}
	once     sync.Once
}

// NewListener creates a Listener with no pending connections.
func NewListener() *Listener {
	return &Listener{
		incoming: make(chan *Conn, frameBuf),
		closed:   make(chan struct{}),
	}
}

// Dial creates a new client/coordinator Conn pair and enqueues the
// coordinator side for the next Accept, returning the client side to the
// caller — the mock equivalent of a client connecting to the listener.
func (l *Listener) Dial(clientID string) (*Conn, error) {
	client, coordinatorSide := Pair(clientID)
	select {
	case l.incoming <- coordinatorSide:
		return client, nil
	case <-l.closed:
		return nil, fmt.Errorf("mock: %w", transport.ErrTransportClosed)
	}
}

// Accept implements transport.Listener.
func (l *Listener) Accept(ctx context.Context) (transport.Conn, error) {
	select {
	case conn := <-l.incoming:
		return conn, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-l.closed:
		return nil, fmt.Errorf("mock: %w", transport.ErrTransportClosed)
	}
}

// Close implements transport.Listener.
func (l *Listener) Close() error {
	l.once.Do(func() { close(l.closed) })
	return nil
}

var _ transport.Listener = (*Listener)(nil)
