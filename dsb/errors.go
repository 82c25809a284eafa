package dsb

import (
	"errors"
	"fmt"
)

var (
	// ErrTransport covers network failures, timeouts and non-2xx responses.
	ErrTransport = errors.New("dsb: transport error")
	// ErrProtocol covers malformed envelopes and nonzero result codes.
	ErrProtocol = errors.New("dsb: protocol error")
	// ErrNodeNotFound is returned when a required menu node is missing. It wraps ErrProtocol.
	ErrNodeNotFound = fmt.Errorf("%w: menu node not found", ErrProtocol)
)
