// Package client implements one participant's side of the protocol: the
// linear state machine of §4.3, driven entirely by the messages it
// receives from the coordinator over a transport.Conn.
package client

import (
	"bytes"
	"context"
	"encoding/binary"
	"fmt"

	"github.com/sage-x-project/secagg/crypto"
	"github.com/sage-x-project/secagg/internal/logger"
	"github.com/sage-x-project/secagg/mask"
	"github.com/sage-x-project/secagg/protocol"
	"github.com/sage-x-project/secagg/transport"
)

// State names this participant's position in the §4.3 linear state
// machine: Connecting → KeyExchange → SeedExchange → Submitting → Done.
type State string

const (
	Connecting   State = "Connecting"
	KeyExchange  State = "KeyExchange"
	SeedExchange State = "SeedExchange"
	Submitting   State = "Submitting"
	Done         State = "Done"
)

// Client runs one participant's session against a single coordinator
// connection. A Client value is single-use: once Run returns, create a
// new one (with a new transport.Conn) to participate in another session.
type Client struct {
	conn          transport.Conn
	privateVector []int64
	maskMode      mask.Mode
	log           logger.Logger

	state      State
	keyPair    *crypto.KeyPair
	base       int64
	peerKeys   map[string][]byte
	scalarMask int64
	mask       []int64
}

// New creates a Client that will submit privateVector once the round
// completes key and seed exchange. maskMode selects ScalarMask (the
// default the spec requires) or the VectorMask alternative §9 permits.
func New(conn transport.Conn, privateVector []int64, maskMode mask.Mode, log logger.Logger) *Client {
	if log == nil {
		log = logger.NewDefaultLogger()
	}
	return &Client{
		conn:          conn,
		privateVector: privateVector,
		maskMode:      maskMode,
		log:           log,
		state:         Connecting,
	}
}

// State returns the client's current position in the linear state machine.
func (c *Client) State() State {
	return c.state
}

// Run drives the client through every phase of one session and returns
// the final aggregation result, or an error if any step fails (§7).
func (c *Client) Run(ctx context.Context) ([]int64, error) {
	if err := c.awaitInitBase(ctx); err != nil {
		return nil, err
	}
	if err := c.exchangeKeys(ctx); err != nil {
		return nil, err
	}
	if err := c.exchangeSeeds(ctx); err != nil {
		return nil, err
	}
	result, err := c.submitValue(ctx)
	if err != nil {
		return nil, err
	}
	c.state = Done
	return result, nil
}

// awaitInitBase waits for the coordinator's init_base_param frame, the
// only message a client receives before it has sent anything (§4.5).
func (c *Client) awaitInitBase(ctx context.Context) error {
	msg, err := c.receive(ctx)
	if err != nil {
		return fmt.Errorf("client: await init_base_param: %w", err)
	}
	if msg.Type != protocol.TypeInitBase {
		return fmt.Errorf("client: expected init_base_param, got %q: %w", msg.Type, protocol.ErrProtocol)
	}
	c.base = msg.Base
	c.log.Info("connected", logger.Int("base", int(c.base)))
	return nil
}

// exchangeKeys implements KeyExchange (§4.3): generate a key pair, send
// the public half, then wait for the coordinator's public_key_broadcast
// naming every participant.
func (c *Client) exchangeKeys(ctx context.Context) error {
	c.state = KeyExchange

	kp, err := crypto.GenerateKeyPair()
	if err != nil {
		return fmt.Errorf("client: generate key pair: %w", err)
	}
	c.keyPair = kp

	if err := c.conn.Send(ctx, &protocol.Message{Type: protocol.TypePublicKey, PublicKey: kp.PublicKeyBytes()}); err != nil {
		return fmt.Errorf("client: send public_key: %w", err)
	}

	msg, err := c.receive(ctx)
	if err != nil {
		return fmt.Errorf("client: await public_key_broadcast: %w", err)
	}
	if msg.Type != protocol.TypePublicKeyBroadcast {
		return fmt.Errorf("client: expected public_key_broadcast, got %q: %w", msg.Type, protocol.ErrProtocol)
	}

	c.peerKeys = msg.PublicKeys
	return nil
}

// exchangeSeeds implements SeedExchange (§4.3/§4.2): draw a seed for every
// peer, hybrid-encrypt it under that peer's public key, send the whole
// batch, then wait for the coordinator's relay of every peer's seed to
// this client.
func (c *Client) exchangeSeeds(ctx context.Context) error {
	c.state = SeedExchange

	selfPub := c.keyPair.PublicKeyBytes()
	outgoingSeeds := make(map[string]int64, len(c.peerKeys))
	outgoingVectors := make(map[string][]int64, len(c.peerKeys))
	bundles := make(map[string]protocol.EncryptedBundle, len(c.peerKeys))

	for peerID, rawPub := range c.peerKeys {
		if bytes.Equal(rawPub, selfPub) {
			continue
		}
		peerPub, err := crypto.ParsePublicKey(rawPub)
		if err != nil {
			return fmt.Errorf("client: parse peer %s public key: %w", peerID, err)
		}

		var payload []byte
		if c.maskMode == mask.VectorMode {
			seedVec, err := mask.SeedVector(c.base, len(c.privateVector))
			if err != nil {
				return fmt.Errorf("client: draw seed vector for %s: %w", peerID, err)
			}
			outgoingVectors[peerID] = seedVec
			payload = encodeInt64s(seedVec)
		} else {
			seed, err := mask.Seed(c.base)
			if err != nil {
				return fmt.Errorf("client: draw seed for %s: %w", peerID, err)
			}
			outgoingSeeds[peerID] = seed
			payload = encodeInt64s([]int64{seed})
		}

		bundle, err := peerPub.Encrypt(payload)
		if err != nil {
			return fmt.Errorf("client: encrypt seed for %s: %w", peerID, err)
		}
		bundles[peerID] = protocol.EncryptedBundle{
			WrappedKey: bundle.WrappedKey,
			Nonce:      bundle.Nonce,
			Tag:        bundle.Tag,
			Ciphertext: bundle.Ciphertext,
		}
	}

	if err := c.conn.Send(ctx, &protocol.Message{Type: protocol.TypePerturbations, Perturbations: bundles}); err != nil {
		return fmt.Errorf("client: send perturbations: %w", err)
	}

	msg, err := c.receive(ctx)
	if err != nil {
		return fmt.Errorf("client: await perturbations relay: %w", err)
	}
	if msg.Type != protocol.TypePerturbations {
		return fmt.Errorf("client: expected perturbations, got %q: %w", msg.Type, protocol.ErrProtocol)
	}

	incomingSeeds := make(map[string]int64, len(msg.Perturbations))
	incomingVectors := make(map[string][]int64, len(msg.Perturbations))
	for peerID, wireBundle := range msg.Perturbations {
		bundle := &crypto.Bundle{
			WrappedKey: wireBundle.WrappedKey,
			Nonce:      wireBundle.Nonce,
			Tag:        wireBundle.Tag,
			Ciphertext: wireBundle.Ciphertext,
		}
		plaintext, err := c.keyPair.Decrypt(bundle)
		if err != nil {
			return fmt.Errorf("client: decrypt seed from %s: %w", peerID, err)
		}
		values := decodeInt64s(plaintext)
		if c.maskMode == mask.VectorMode {
			incomingVectors[peerID] = values
		} else {
			incomingSeeds[peerID] = values[0]
		}
	}

	if c.maskMode == mask.VectorMode {
		c.mask = mask.VectorMask(outgoingVectors, incomingVectors, c.base, len(c.privateVector))
	} else {
		c.scalarMask = mask.ScalarMask(outgoingSeeds, incomingSeeds, c.base)
	}
	return nil
}

// submitValue implements Submitting (§4.3): apply this client's mask to
// its private vector and send it, then wait for the final result.
func (c *Client) submitValue(ctx context.Context) ([]int64, error) {
	c.state = Submitting

	var masked []int64
	if c.maskMode == mask.VectorMode {
		masked = mask.ApplyVector(c.privateVector, c.mask, c.base)
	} else {
		masked = mask.ApplyScalar(c.privateVector, c.scalarMask, c.base)
	}

	if err := c.conn.Send(ctx, &protocol.Message{Type: protocol.TypeValue, Value: masked}); err != nil {
		return nil, fmt.Errorf("client: send value: %w", err)
	}

	msg, err := c.receive(ctx)
	if err != nil {
		return nil, fmt.Errorf("client: await aggregation_result: %w", err)
	}
	if msg.Type != protocol.TypeAggregationResult {
		return nil, fmt.Errorf("client: expected aggregation_result, got %q: %w", msg.Type, protocol.ErrProtocol)
	}
	return msg.AggregationResult, nil
}

// receive returns the next protocol frame, logging and skipping any
// informational `message` frames, which may arrive in any phase.
func (c *Client) receive(ctx context.Context) (*protocol.Message, error) {
	for {
		msg, err := c.conn.Receive(ctx)
		if err != nil || msg.Type != protocol.TypeText {
			return msg, err
		}
		c.log.Info("coordinator message", logger.String("text", msg.Text))
	}
}

func encodeInt64s(values []int64) []byte {
	out := make([]byte, 8*len(values))
	for i, v := range values {
		binary.BigEndian.PutUint64(out[i*8:], uint64(v))
	}
	return out
}

func decodeInt64s(data []byte) []int64 {
	out := make([]int64, len(data)/8)
	for i := range out {
		out[i] = int64(binary.BigEndian.Uint64(data[i*8:]))
	}
	return out
}
