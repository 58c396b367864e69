package protocol

import "errors"

// ErrDecode is wrapped into errors returned for a malformed frame or a
// frame naming an unrecognized Type (§7 DecodeError): logged and dropped,
// the connection itself stays open.
var ErrDecode = errors.New("protocol: malformed frame or unexpected type")

// ErrProtocol is wrapped into errors describing a frame that decoded
// cleanly but violates the protocol's ordering or shape invariants — wrong
// phase, a vector length mismatch, a duplicate public_key (§7
// ProtocolError). Also dropped with a log; the session continues.
var ErrProtocol = errors.New("protocol: message violates phase or shape invariant")
