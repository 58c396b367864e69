package mock

import (
	"context"
	"testing"
	"time"

	"github.com/sage-x-project/secagg/protocol"
	"github.com/sage-x-project/secagg/transport"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDialAndAcceptConnectPair(t *testing.T) {
	l := NewListener()
	defer l.Close()

	client, err := l.Dial("client-1")
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	coordinatorSide, err := l.Accept(ctx)
	require.NoError(t, err)
	assert.Equal(t, "client-1", coordinatorSide.RemoteID())
	assert.Equal(t, "coordinator", client.RemoteID())
}

func TestSendReceiveRoundTrip(t *testing.T) {
	l := NewListener()
	defer l.Close()

	client, err := l.Dial("client-1")
	require.NoError(t, err)
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	coordinatorSide, err := l.Accept(ctx)
	require.NoError(t, err)

	msg := &protocol.Message{Type: protocol.TypeInitBase, Base: 100}
	require.NoError(t, coordinatorSide.Send(ctx, msg))

	got, err := client.Receive(ctx)
	require.NoError(t, err)
	assert.Equal(t, msg.Type, got.Type)
	assert.Equal(t, msg.Base, got.Base)
}

func TestReceiveAfterCloseFails(t *testing.T) {
	client, coordinatorSide := Pair("client-1")
	require.NoError(t, client.Close())

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	_, err := client.Receive(ctx)
	assert.ErrorIs(t, err, transport.ErrTransportClosed)

	err = coordinatorSide.Send(ctx, &protocol.Message{Type: protocol.TypeText})
	assert.NoError(t, err) // send on peer is only blocked by closing that side
}

func TestAcceptBlocksUntilDial(t *testing.T) {
	l := NewListener()
	defer l.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err := l.Accept(ctx)
	assert.Error(t, err, "Accept should time out with nothing dialed")
}
