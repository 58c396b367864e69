package ws

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/sage-x-project/secagg/protocol"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestListenDialSendReceive(t *testing.T) {
	l, err := Listen("127.0.0.1:0", "/ws")
	require.NoError(t, err)
	defer l.Close()

	url := fmt.Sprintf("ws://%s/ws", l.Addr().String())

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	clientConn, err := Dial(ctx, url)
	require.NoError(t, err)
	defer clientConn.Close()

	serverConn, err := l.Accept(ctx)
	require.NoError(t, err)
	defer serverConn.Close()

	msg := &protocol.Message{Type: protocol.TypeInitBase, Base: 42}
	require.NoError(t, serverConn.Send(ctx, msg))

	got, err := clientConn.Receive(ctx)
	require.NoError(t, err)
	assert.Equal(t, msg.Type, got.Type)
	assert.Equal(t, msg.Base, got.Base)
}

func TestRemoteIDPopulated(t *testing.T) {
	l, err := Listen("127.0.0.1:0", "/ws")
	require.NoError(t, err)
	defer l.Close()

	url := fmt.Sprintf("ws://%s/ws", l.Addr().String())
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	clientConn, err := Dial(ctx, url)
	require.NoError(t, err)
	defer clientConn.Close()

	serverConn, err := l.Accept(ctx)
	require.NoError(t, err)
	defer serverConn.Close()

	assert.NotEmpty(t, serverConn.RemoteID())
	assert.Equal(t, "coordinator", clientConn.RemoteID())
}

func TestAcceptContextCancelled(t *testing.T) {
	l, err := Listen("127.0.0.1:0", "/ws")
	require.NoError(t, err)
	defer l.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err = l.Accept(ctx)
	assert.Error(t, err)
}
