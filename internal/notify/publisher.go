package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/redis/go-redis/v9"

	"github.com/Indu2002-se/AuctionWeb/internal/clock"
	"github.com/Indu2002-se/AuctionWeb/internal/models"
)

// StreamName is the JetStream stream holding auction events for archival.
const StreamName = "AUCTION_EVENTS"

// Publisher delivers each event twice: to the Redis Pub/Sub channel
// "auction/{id}" for real-time WebSocket fanout, and to the JetStream
// subject "auction.events.{id}" for archival (at-least-once).
type Publisher struct {
	redis *redis.Client
	js    jetstream.JetStream
	clk   clock.Clock
	log   *slog.Logger
}

// NewPublisher creates the publisher and ensures the archival stream exists.
func NewPublisher(redisClient *redis.Client, natsConn *nats.Conn, clk clock.Clock, log *slog.Logger) (*Publisher, error) {
	js, err := jetstream.New(natsConn)
	if err != nil {
		return nil, fmt.Errorf("failed to create JetStream context: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_, err = js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
		Name:        StreamName,
		Description: "Stream for auction events archival",
		Subjects:    []string{"auction.events.*"},
		Storage:     jetstream.FileStorage,
		Retention:   jetstream.WorkQueuePolicy,
		MaxAge:      24 * time.Hour,
		Replicas:    1,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create/update stream: %w", err)
	}

	return &Publisher{redis: redisClient, js: js, clk: clk, log: log}, nil
}

func (p *Publisher) BidAccepted(ctx context.Context, bid models.Bid) {
	p.publish(ctx, newBidEvent(bid))
}

func (p *Publisher) AuctionStarted(ctx context.Context, auctionID string) {
	p.publish(ctx, startEvent(auctionID, p.clk.Now()))
}

func (p *Publisher) AuctionClosed(ctx context.Context, auctionID, winnerID string) {
	p.publish(ctx, endEvent(auctionID, winnerID, p.clk.Now()))
}

func (p *Publisher) publish(ctx context.Context, event models.Event) {
	data, err := json.Marshal(event)
	if err != nil {
		p.log.Error("failed to marshal event", "type", event.Type, "auction", event.ItemID, "err", err)
		return
	}

	if err := p.redis.Publish(ctx, Channel(event.ItemID), data).Err(); err != nil {
		p.log.Warn("failed to publish event to Redis", "type", event.Type, "auction", event.ItemID, "err", err)
	}

	// JetStream publish waits for the server ack so archival is
	// at-least-once; run it off the caller's path.
	go func() {
		jsCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if _, err := p.js.Publish(jsCtx, Subject(event.ItemID), data); err != nil {
			p.log.Warn("failed to publish event to JetStream", "type", event.Type, "auction", event.ItemID, "err", err)
		}
	}()
}
