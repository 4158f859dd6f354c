package session

import (
	"context"
	"path"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/redis/go-redis/v9"
)

// DefaultTTL is how long a session key outlives its last refresh
const DefaultTTL = time.Hour

// The Redis broker keeps one key per live session and one pub/sub channel per
// session, so a message POSTed to any instance reaches the instance holding
// the event stream. Keys are laid out as:
// - `/<prefix>/sessions/<id>` present while the session is open
// - `/<prefix>/requests/<id>` channel carrying messages for the session

// RedisBroker is a Broker backed by Redis
type RedisBroker struct {
	client redis.UniversalClient
	prefix string
	ttl    time.Duration
}

var _ Broker = (*RedisBroker)(nil)

// NewRedisBroker creates a broker on client. A zero ttl selects DefaultTTL.
func NewRedisBroker(client redis.UniversalClient, prefix string, ttl time.Duration) *RedisBroker {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &RedisBroker{
		client: client,
		prefix: prefix,
		ttl:    ttl,
	}
}

// Dial connects to the Redis server at url and verifies the connection
func Dial(ctx context.Context, url string) (*redis.Client, error) {
	options, err := redis.ParseURL(url)
	if err != nil {
		return nil, errors.Wrap(err, "invalid Redis URL")
	}

	client := redis.NewClient(options)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, errors.Wrap(err, "failed to connect to Redis")
	}
	return client, nil
}

func (b *RedisBroker) sessionKey(id string) string {
	return path.Join("/", b.prefix, "sessions", id)
}

func (b *RedisBroker) requestChannel(id string) string {
	return path.Join("/", b.prefix, "requests", id)
}

func (b *RedisBroker) Open(ctx context.Context, id string) (Subscription, error) {
	ok, err := b.client.SetNX(ctx, b.sessionKey(id), time.Now().UTC().Format(time.RFC3339), b.ttl).Result()
	if err != nil {
		return nil, errors.Wrap(err, "failed to register session in Redis")
	}
	if !ok {
		return nil, errors.Newf("session %s already open", id)
	}

	pubsub := b.client.Subscribe(ctx, b.requestChannel(id))
	// Wait for the subscription to be confirmed so that a message published
	// right after Open returns is not lost.
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		_ = b.client.Del(context.WithoutCancel(ctx), b.sessionKey(id)).Err()
		return nil, errors.Wrap(err, "failed to subscribe to session channel")
	}

	sub := &redisSubscription{
		broker:   b,
		id:       id,
		pubsub:   pubsub,
		messages: make(chan []byte),
		done:     make(chan struct{}),
	}
	go sub.run()
	return sub, nil
}

func (b *RedisBroker) Publish(ctx context.Context, id string, msg []byte) error {
	exists, err := b.client.Exists(ctx, b.sessionKey(id)).Result()
	if err != nil {
		return errors.Wrap(err, "failed to look up session in Redis")
	}
	if exists == 0 {
		return errors.Wrapf(ErrNotFound, "%s", id)
	}

	receivers, err := b.client.Publish(ctx, b.requestChannel(id), msg).Result()
	if err != nil {
		return errors.Wrap(err, "failed to publish message to Redis")
	}
	if receivers == 0 {
		return errors.Wrapf(ErrNotFound, "%s", id)
	}
	return nil
}

// Close is a no-op; the Redis client is owned by the caller
func (b *RedisBroker) Close() error {
	return nil
}

type redisSubscription struct {
	broker   *RedisBroker
	id       string
	pubsub   *redis.PubSub
	messages chan []byte
	done     chan struct{}
	once     sync.Once
	closeErr error
}

func (s *redisSubscription) Messages() <-chan []byte {
	return s.messages
}

func (s *redisSubscription) Done() <-chan struct{} {
	return s.done
}

// run forwards published messages and keeps the session key alive
func (s *redisSubscription) run() {
	refresh := time.NewTicker(s.broker.ttl / 2)
	defer refresh.Stop()

	in := s.pubsub.Channel()
	for {
		select {
		case <-s.done:
			return
		case <-refresh.C:
			_ = s.broker.client.Expire(context.Background(), s.broker.sessionKey(s.id), s.broker.ttl).Err()
		case msg, ok := <-in:
			if !ok {
				return
			}
			select {
			case s.messages <- []byte(msg.Payload):
			case <-s.done:
				return
			}
		}
	}
}

func (s *redisSubscription) Close() error {
	s.once.Do(func() {
		close(s.done)
		ctx := context.Background()
		s.closeErr = errors.CombineErrors(
			s.pubsub.Close(),
			s.broker.client.Del(ctx, s.broker.sessionKey(s.id)).Err(),
		)
	})
	return s.closeErr
}
