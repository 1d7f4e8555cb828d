package broadcast

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// channelPrefix matches the channels the engine's notifier publishes on.
const channelPrefix = "auction/"

// Subscriber listens on Redis Pub/Sub for auction events.
type Subscriber struct {
	client *redis.Client
	pubsub *redis.PubSub
}

// NewSubscriber connects to Redis and verifies the connection.
func NewSubscriber(addr, password string, db int) (*Subscriber, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &Subscriber{client: rdb}, nil
}

// Subscribe starts a pattern subscription covering every auction channel.
func (s *Subscriber) Subscribe(ctx context.Context) error {
	s.pubsub = s.client.PSubscribe(ctx, channelPrefix+"*")
	return nil
}

// Listen forwards each event to the manager until ctx is cancelled.
// This blocks; run it in a goroutine.
func (s *Subscriber) Listen(ctx context.Context, manager *Manager) error {
	if s.pubsub == nil {
		return fmt.Errorf("not subscribed")
	}

	ch := s.pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			auctionID := strings.TrimPrefix(msg.Channel, channelPrefix)
			if auctionID == "" || auctionID == msg.Channel {
				continue
			}
			manager.Broadcast(auctionID, []byte(msg.Payload))
		}
	}
}

// Close closes the subscription and the Redis connection.
func (s *Subscriber) Close() error {
	if s.pubsub != nil {
		s.pubsub.Close()
	}
	return s.client.Close()
}
