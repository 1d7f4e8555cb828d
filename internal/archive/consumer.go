package archive

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/Indu2002-se/AuctionWeb/internal/models"
	"github.com/Indu2002-se/AuctionWeb/internal/notify"
)

// Consumer pulls auction events from the JetStream work queue and
// persists them. Messages are acked only after the database write so
// delivery is at-least-once; the idempotent inserts absorb redelivery.
type Consumer struct {
	conn *nats.Conn
	js   jetstream.JetStream
	db   *PostgresClient
	log  *slog.Logger
}

func NewConsumer(natsURL string, db *PostgresClient, log *slog.Logger) (*Consumer, error) {
	conn, err := nats.Connect(natsURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	js, err := jetstream.New(conn)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to create JetStream context: %w", err)
	}

	return &Consumer{conn: conn, js: js, db: db, log: log}, nil
}

// Start consumes events until ctx is cancelled.
func (c *Consumer) Start(ctx context.Context) error {
	consumer, err := c.js.CreateOrUpdateConsumer(ctx, notify.StreamName, jetstream.ConsumerConfig{
		Durable:       "archiver",
		FilterSubject: "auction.events.*",
		AckPolicy:     jetstream.AckExplicitPolicy,
	})
	if err != nil {
		return fmt.Errorf("failed to create consumer: %w", err)
	}

	cc, err := consumer.Consume(func(msg jetstream.Msg) {
		c.handleMessage(ctx, msg)
	})
	if err != nil {
		return fmt.Errorf("failed to start consuming: %w", err)
	}
	defer cc.Stop()

	c.log.Info("consuming auction events", "stream", notify.StreamName)
	<-ctx.Done()
	return nil
}

func (c *Consumer) handleMessage(ctx context.Context, msg jetstream.Msg) {
	var event models.Event
	if err := json.Unmarshal(msg.Data(), &event); err != nil {
		c.log.Error("failed to unmarshal event", "subject", msg.Subject(), "err", err)
		// Poison message: ack it away rather than redeliver forever.
		msg.Ack()
		return
	}

	dbCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	var err error
	switch event.Type {
	case models.EventNewBid:
		err = c.db.InsertBid(dbCtx, event)
	case models.EventAuctionEnd:
		err = c.db.InsertResult(dbCtx, event)
	case models.EventAuctionStart:
		// Nothing durable to record; the result row captures the close.
	default:
		c.log.Warn("unknown event type", "type", event.Type, "auction", event.ItemID)
	}

	if err != nil {
		c.log.Error("failed to persist event", "type", event.Type, "auction", event.ItemID, "err", err)
		// Leave unacked so the stream redelivers.
		return
	}

	c.log.Debug("persisted event", "type", event.Type, "auction", event.ItemID)
	msg.Ack()
}

// Close closes the NATS connection.
func (c *Consumer) Close() {
	c.conn.Close()
}
