package channel

import (
	"errors"
	"fmt"

	"github.com/gorilla/websocket"
)

// ErrNotReceiving is returned by Send outside the Receiving state.
var ErrNotReceiving = errors.New("channel is not receiving")

// TransportError wraps a failure of the underlying connection. It is terminal for the handle.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("transport %s failed: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// isRemoteClose reports whether err is an orderly close initiated by the peer.
func isRemoteClose(err error) bool {
	return websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway)
}
