package crypto

import (
	"crypto/ecdh"
	"crypto/rand"
	"fmt"

	"github.com/cloudflare/circl/hpke"
	"golang.org/x/crypto/chacha20poly1305"

	"github.com/sage-x-project/secagg/internal/metrics"
)

// suite fixes the HPKE ciphersuite used to wrap the per-message session
// key: X25519 for the KEM, HKDF-SHA256 to derive the exporter secret, and
// ChaCha20-Poly1305 as the AEAD circl itself uses internally. The payload
// AEAD below is a second, independent ChaCha20-Poly1305 instance keyed from
// the HPKE exporter secret, so the wire bundle can carry its own explicit
// nonce/tag/ciphertext fields instead of circl's internal sequence-numbered
// nonces.
var suite = hpke.NewSuite(hpke.KEM_X25519_HKDF_SHA256, hpke.KDF_HKDF_SHA256, hpke.AEAD_ChaCha20Poly1305)

var kemScheme = hpke.KEM_X25519_HKDF_SHA256.Scheme()

const (
	hpkeInfo      = "secagg/hpke/v1"
	hpkeExportCtx = "secagg/session-key/v1"
)

// Bundle is the four-field hybrid-encryption record carried in the
// `perturbations` wire frames: an asymmetrically wrapped session key plus
// an AEAD-sealed payload under that key. The coordinator relays it without
// ever being able to open it.
type Bundle struct {
	WrappedKey []byte
	Nonce      []byte
	Tag        []byte
	Ciphertext []byte
}

// encrypt implements the hybrid-encryption operation of §4.1: a fresh
// session key is wrapped for peerPub via HPKE, then used to AEAD-seal
// plaintext under an independently generated nonce.
func encrypt(peerPub *ecdh.PublicKey, plaintext []byte) (*Bundle, error) {
	bundle, err := encryptInner(peerPub, plaintext)
	if err != nil {
		metrics.CryptoOperations.WithLabelValues("encrypt", "failure").Inc()
		return nil, err
	}
	metrics.CryptoOperations.WithLabelValues("encrypt", "success").Inc()
	return bundle, nil
}

func encryptInner(peerPub *ecdh.PublicKey, plaintext []byte) (*Bundle, error) {
	kemPub, err := kemScheme.UnmarshalBinaryPublicKey(peerPub.Bytes())
	if err != nil {
		return nil, fmt.Errorf("%w: %w: %v", ErrCrypto, ErrMalformedKey, err)
	}

	sender, err := suite.NewSender(kemPub, []byte(hpkeInfo))
	if err != nil {
		return nil, fmt.Errorf("crypto: setup sender: %w", err)
	}
	wrappedKey, sealer, err := sender.Setup(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("crypto: hpke setup: %w", err)
	}

	sessionKey := sealer.Export([]byte(hpkeExportCtx), chacha20poly1305.KeySize)

	aead, err := chacha20poly1305.New(sessionKey)
	if err != nil {
		return nil, fmt.Errorf("crypto: new aead: %w", err)
	}

	nonce := make([]byte, chacha20poly1305.NonceSize)
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("crypto: generate nonce: %w", err)
	}

	sealed := aead.Seal(nil, nonce, plaintext, nil)
	ciphertext := sealed[:len(sealed)-aead.Overhead()]
	tag := sealed[len(sealed)-aead.Overhead():]

	return &Bundle{
		WrappedKey: wrappedKey,
		Nonce:      nonce,
		Tag:        tag,
		Ciphertext: ciphertext,
	}, nil
}

// decrypt implements the inverse of encrypt: it re-derives the session key
// from the wrapped key via HPKE, then verifies and opens the AEAD payload.
func decrypt(priv *ecdh.PrivateKey, bundle *Bundle) ([]byte, error) {
	plaintext, err := decryptInner(priv, bundle)
	if err != nil {
		metrics.CryptoOperations.WithLabelValues("decrypt", "failure").Inc()
		return nil, err
	}
	metrics.CryptoOperations.WithLabelValues("decrypt", "success").Inc()
	return plaintext, nil
}

func decryptInner(priv *ecdh.PrivateKey, bundle *Bundle) ([]byte, error) {
	if bundle == nil || len(bundle.Nonce) != chacha20poly1305.NonceSize || len(bundle.Tag) != chacha20poly1305.Overhead {
		return nil, fmt.Errorf("%w: %w", ErrCrypto, ErrMalformedBundle)
	}

	kemPriv, err := kemScheme.UnmarshalBinaryPrivateKey(priv.Bytes())
	if err != nil {
		return nil, fmt.Errorf("%w: %w: %v", ErrCrypto, ErrMalformedKey, err)
	}

	receiver, err := suite.NewReceiver(kemPriv, []byte(hpkeInfo))
	if err != nil {
		return nil, fmt.Errorf("crypto: setup receiver: %w", err)
	}
	opener, err := receiver.Setup(bundle.WrappedKey)
	if err != nil {
		return nil, fmt.Errorf("%w: %w: %v", ErrCrypto, ErrAuthFailed, err)
	}

	sessionKey := opener.Export([]byte(hpkeExportCtx), chacha20poly1305.KeySize)

	aead, err := chacha20poly1305.New(sessionKey)
	if err != nil {
		return nil, fmt.Errorf("crypto: new aead: %w", err)
	}

	sealed := append(append([]byte{}, bundle.Ciphertext...), bundle.Tag...)
	plaintext, err := aead.Open(nil, bundle.Nonce, sealed, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %w: %v", ErrCrypto, ErrAuthFailed, err)
	}
	return plaintext, nil
}
