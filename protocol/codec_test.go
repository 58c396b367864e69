package protocol

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	msg := &Message{
		Type:  TypeValue,
		Value: []int64{1, 2, 3},
	}

	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, msg))

	got, err := Decode(&buf)
	require.NoError(t, err)
	assert.Equal(t, msg.Type, got.Type)
	assert.Equal(t, msg.Value, got.Value)
}

func TestDecodeMultipleFramesInOrder(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, &Message{Type: TypeInitBase, Base: 100}))
	require.NoError(t, Encode(&buf, &Message{Type: TypeText, Text: "hello"}))

	first, err := Decode(&buf)
	require.NoError(t, err)
	assert.Equal(t, TypeInitBase, first.Type)
	assert.Equal(t, int64(100), first.Base)

	second, err := Decode(&buf)
	require.NoError(t, err)
	assert.Equal(t, TypeText, second.Type)
	assert.Equal(t, "hello", second.Text)
}

func TestDecodeTruncatedStreamFails(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, &Message{Type: TypeValue, Value: []int64{1}}))
	truncated := bytes.NewReader(buf.Bytes()[:buf.Len()-2])

	_, err := Decode(truncated)
	assert.Error(t, err)
}

func TestDecodeOversizedLengthPrefixRejected(t *testing.T) {
	var buf bytes.Buffer
	lenPrefix := []byte{0x7F, 0xFF, 0xFF, 0xFF}
	buf.Write(lenPrefix)

	_, err := Decode(&buf)
	assert.ErrorIs(t, err, ErrDecode)
}

func TestDecodeMalformedJSONRejected(t *testing.T) {
	var buf bytes.Buffer
	body := []byte("not json")
	lenPrefix := make([]byte, 4)
	binary.BigEndian.PutUint32(lenPrefix, uint32(len(body)))
	buf.Write(lenPrefix)
	buf.Write(body)

	_, err := Decode(&buf)
	assert.ErrorIs(t, err, ErrDecode)
}

func TestEncryptedBundleRoundTripsThroughJSON(t *testing.T) {
	msg := &Message{
		Type: TypePerturbations,
		Perturbations: map[string]EncryptedBundle{
			"peer-a": {
				WrappedKey: []byte{1, 2, 3},
				Nonce:      []byte{4, 5, 6},
				Tag:        []byte{7, 8, 9},
				Ciphertext: []byte{10, 11},
			},
		},
	}

	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, msg))
	got, err := Decode(&buf)
	require.NoError(t, err)

	assert.Equal(t, msg.Perturbations["peer-a"], got.Perturbations["peer-a"])
}
