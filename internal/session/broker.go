// Package session tracks live transport sessions and routes messages posted
// for a session to the stream that owns it, possibly on another process.
package session

import (
	"context"

	"github.com/cockroachdb/errors"
)

// ErrNotFound is returned when a message targets a session nobody holds
var ErrNotFound = errors.New("session not found")

// ErrClosed is returned by operations on a closed broker
var ErrClosed = errors.New("session broker closed")

// Broker registers sessions and delivers messages to their owners
type Broker interface {
	// Open registers id and subscribes to messages published for it.
	// The session stays registered until the Subscription is closed.
	Open(ctx context.Context, id string) (Subscription, error)

	// Publish delivers msg to the owner of id, or fails with ErrNotFound.
	Publish(ctx context.Context, id string, msg []byte) error

	// Close releases resources held by the broker
	Close() error
}

// Subscription receives messages for one session
type Subscription interface {
	// Messages delivers payloads published for the session
	Messages() <-chan []byte

	// Done is closed when the subscription ends
	Done() <-chan struct{}

	// Close unregisters the session
	Close() error
}
