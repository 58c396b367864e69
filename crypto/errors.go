package crypto

import "errors"

// ErrCrypto classifies this package's malformed-input and authentication
// failures (§7 CryptoError): on a client, it aborts that client's session
// since it cannot produce a correct masked value. Callers distinguish the
// specific cause with errors.Is against ErrMalformedKey, ErrMalformedBundle,
// or ErrAuthFailed, all of which also satisfy errors.Is(err, ErrCrypto).
// Failures of key generation, randomness, or HPKE/AEAD setup are returned
// without ErrCrypto.
var ErrCrypto = errors.New("crypto: operation failed")

// ErrMalformedKey is returned when a serialized key cannot be parsed back
// into a key pair of the expected size.
var ErrMalformedKey = errors.New("crypto: malformed key bytes")

// ErrMalformedBundle is returned when a hybrid-encrypted bundle is missing
// a required field or carries a field of the wrong size.
var ErrMalformedBundle = errors.New("crypto: malformed bundle")

// ErrAuthFailed is returned when AEAD tag verification fails during
// decryption, or when the asymmetric unwrap of the session key fails.
var ErrAuthFailed = errors.New("crypto: authentication failed")
