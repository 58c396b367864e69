package config

import "errors"

// ErrConfig classifies every validation failure this package returns
// (§7 ConfigError): invalid N, B, L, host, or port at startup. Fatal —
// the cmd/ entry point aborts the process rather than starting a session
// on invalid configuration.
var ErrConfig = errors.New("config: invalid configuration")
