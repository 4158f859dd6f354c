package session

import (
	"context"
	"sync"

	"github.com/cockroachdb/errors"
)

// memoryQueueSize is the number of undelivered messages a session buffers
const memoryQueueSize = 16

// MemoryBroker is a Broker confined to one process
type MemoryBroker struct {
	mu       sync.Mutex
	sessions map[string]*memorySubscription
	closed   bool
}

var _ Broker = (*MemoryBroker)(nil)

// NewMemoryBroker creates an empty in-process broker
func NewMemoryBroker() *MemoryBroker {
	return &MemoryBroker{
		sessions: make(map[string]*memorySubscription),
	}
}

func (b *MemoryBroker) Open(_ context.Context, id string) (Subscription, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil, ErrClosed
	}
	if _, ok := b.sessions[id]; ok {
		return nil, errors.Newf("session %s already open", id)
	}

	sub := &memorySubscription{
		broker:   b,
		id:       id,
		messages: make(chan []byte, memoryQueueSize),
		done:     make(chan struct{}),
	}
	b.sessions[id] = sub
	return sub, nil
}

func (b *MemoryBroker) Publish(ctx context.Context, id string, msg []byte) error {
	b.mu.Lock()
	sub, ok := b.sessions[id]
	b.mu.Unlock()
	if !ok {
		return errors.Wrapf(ErrNotFound, "%s", id)
	}

	select {
	case sub.messages <- msg:
		return nil
	case <-sub.done:
		return errors.Wrapf(ErrNotFound, "%s", id)
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (b *MemoryBroker) Close() error {
	b.mu.Lock()
	sessions := b.sessions
	b.sessions = make(map[string]*memorySubscription)
	b.closed = true
	b.mu.Unlock()

	for _, sub := range sessions {
		sub.stop()
	}
	return nil
}

type memorySubscription struct {
	broker   *MemoryBroker
	id       string
	messages chan []byte
	done     chan struct{}
	once     sync.Once
}

func (s *memorySubscription) Messages() <-chan []byte {
	return s.messages
}

func (s *memorySubscription) Done() <-chan struct{} {
	return s.done
}

func (s *memorySubscription) Close() error {
	s.broker.mu.Lock()
	if s.broker.sessions[s.id] == s {
		delete(s.broker.sessions, s.id)
	}
	s.broker.mu.Unlock()

	s.stop()
	return nil
}

// stop ends delivery. Messages is left open since a publisher may still
// hold a reference to it.
func (s *memorySubscription) stop() {
	s.once.Do(func() {
		close(s.done)
	})
}
