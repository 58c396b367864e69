// Package transport abstracts the connection-oriented, ordered, framed,
// reliable duplex channel §6 specifies: the coordinator listens and
// accepts connections, each bound to exactly one client, and frames are
// delivered in order per connection with no ordering guarantee across
// connections (§5).
package transport

import (
	"context"

	"github.com/sage-x-project/secagg/protocol"
)

// Conn is one bidirectional, framed, ordered, reliable message channel
// bound to a single client.
type Conn interface {
	// Send delivers one frame; frames on a single Conn are FIFO.
	Send(ctx context.Context, msg *protocol.Message) error
	// Receive blocks until the next inbound frame, or returns an error on
	// a closed/broken connection (surfaced as TransportClosed, §7).
	Receive(ctx context.Context) (*protocol.Message, error)
	// RemoteID is a stable, connection-scoped identifier for the far end,
	// the raw material the coordinator assigns ClientId from (§3).
	RemoteID() string
	// Close tears down the connection from this side. Safe to call more
	// than once.
	Close() error
}

// Listener accepts incoming Conns, one per connecting client, on a
// host:port pair (§6 configuration).
type Listener interface {
	Accept(ctx context.Context) (Conn, error)
	Close() error
}
