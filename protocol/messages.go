// Package protocol defines the wire message types exchanged between a
// client and the coordinator, and the length-prefixed JSON framing used to
// carry them over a transport.Conn.
package protocol

// Type tags the kind of frame a Message carries. Message types are
// mutually exclusive on the wire; a decoder never needs to try more than
// one dispatch branch per frame (§9 open question: the source's chained
// non-exclusive conditionals are not replicated here).
type Type string

const (
	// TypeInitBase is sent S→C once a client is admitted: the session's
	// modular base.
	TypeInitBase Type = "init_base_param"
	// TypeText is an informational, any-phase frame carrying free text —
	// used for admission-cap rejection and operator announcements.
	TypeText Type = "message"
	// TypePublicKey is sent C→S with the client's public key bytes.
	TypePublicKey Type = "public_key"
	// TypePublicKeyBroadcast is sent S→C once all N public keys are in.
	TypePublicKeyBroadcast Type = "public_key_broadcast"
	// TypePerturbations carries a recipient→bundle (C→S) or
	// sender→bundle (S→C) mapping of encrypted pairwise seeds.
	TypePerturbations Type = "perturbations"
	// TypeValue is sent C→S with a client's masked vector.
	TypeValue Type = "value"
	// TypeAggregationResult is sent S→C with the final summed vector.
	TypeAggregationResult Type = "aggregation_result"
)

// EncryptedBundle is the wire form of crypto.Bundle: the four opaque byte
// fields of a hybrid-encrypted pairwise seed (§4.5).
type EncryptedBundle struct {
	WrappedKey []byte `json:"wrapped_key"`
	Nonce      []byte `json:"nonce"`
	Tag        []byte `json:"tag"`
	Ciphertext []byte `json:"ciphertext"`
}

// Message is the single self-describing record every frame carries. Only
// the fields relevant to Type are populated; the rest are left zero.
type Message struct {
	Type Type `json:"type"`

	// TypeInitBase
	Base int64 `json:"base,omitempty"`

	// TypeText
	Text string `json:"message,omitempty"`

	// TypePublicKey
	PublicKey []byte `json:"public_key,omitempty"`

	// TypePublicKeyBroadcast
	PublicKeys map[string][]byte `json:"public_keys,omitempty"`

	// TypePerturbations (both directions)
	Perturbations map[string]EncryptedBundle `json:"perturbations,omitempty"`

	// TypeValue
	Value []int64 `json:"value,omitempty"`

	// TypeAggregationResult
	AggregationResult []int64 `json:"aggregation_result,omitempty"`
}
