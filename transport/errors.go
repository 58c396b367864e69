package transport

import "errors"

// ErrTransportClosed is wrapped into the error a Conn or Listener returns
// once the underlying connection (or listener) has been closed by either
// side (§7 TransportClosed): the handler exits via its finalizer and
// session state is left in place.
var ErrTransportClosed = errors.New("transport: connection closed")
