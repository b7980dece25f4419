// Package transport defines the publish/subscribe link to the peer.
package transport

import (
	"errors"
	"fmt"
	"io"
	"time"
)

// ConnState is the state of the link.
type ConnState int

// Link states.
const (
	Disconnected ConnState = iota
	Connecting
	Connected
)

// String implements fmt.Stringer.
func (s ConnState) String() string {
	switch s {
	case Disconnected:
		return "disconnected"
	case Connecting:
		return "connecting"
	case Connected:
		return "connected"
	}
	return fmt.Sprintf("ConnState(%d)", int(s))
}

// DefaultRetryDelay is the fixed delay between connect attempts.
const DefaultRetryDelay = time.Second

// ErrUnavailable is returned by Publish when the link is not connected.
// The message is dropped, nothing is queued.
var ErrUnavailable = errors.New("transport unavailable")

// ConnectError is a failed connect attempt.
type ConnectError struct {
	Attempt int
	Err     error
}

// Error implements error.
func (e *ConnectError) Error() string {
	return fmt.Sprintf("connect attempt %d failed: %v", e.Attempt, e.Err)
}

// Unwrap returns the underlying error.
func (e *ConnectError) Unwrap() error {
	return e.Err
}

// Handler is the callback when a message is received. It's invoked on
// the transport's goroutine.
type Handler func(topic string, payload []byte)

// Session is a publish/subscribe link with its own reconnect policy.
// Publish and Service must be called from the same goroutine.
type Session interface {
	// State returns the current link state.
	State() ConnState
	// Service advances the connect state machine by at most one step
	// and never blocks.
	Service(now time.Time) ConnState
	// Publish sends a message at most once. ErrUnavailable is returned
	// when not connected.
	Publish(topic string, payload []byte) error
	// PublishRetained publishes a retained message with QoS 1.
	PublishRetained(topic string, payload []byte) error
	// Subscribe registers a handler, kept across reconnects.
	Subscribe(topic string, h Handler) io.Closer
}
