// Package notify publishes auction events to the per-auction channel.
// Delivery is advisory: events feed real-time clients and the archival
// pipeline, never the system of record, so failures are logged and
// dropped rather than retried or allowed to block the caller.
package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/Indu2002-se/AuctionWeb/internal/models"
)

// Notifier broadcasts lifecycle and bid events for an auction.
type Notifier interface {
	BidAccepted(ctx context.Context, bid models.Bid)
	AuctionStarted(ctx context.Context, auctionID string)
	AuctionClosed(ctx context.Context, auctionID, winnerID string)
}

// Channel returns the pub/sub channel for one auction's events.
func Channel(auctionID string) string {
	return fmt.Sprintf("auction/%s", auctionID)
}

// Subject returns the NATS subject for one auction's events. NATS
// subjects use dot separators, so this differs from Channel.
func Subject(auctionID string) string {
	return fmt.Sprintf("auction.events.%s", auctionID)
}

func newBidEvent(bid models.Bid) models.Event {
	return models.Event{
		Type:      models.EventNewBid,
		EventID:   uuid.New().String(),
		ItemID:    bid.AuctionID,
		BidID:     bid.ID,
		Username:  bid.BidderID,
		Amount:    bid.Amount,
		Timestamp: bid.Timestamp,
		Message:   "New bid placed",
	}
}

func startEvent(auctionID string, now time.Time) models.Event {
	return models.Event{
		Type:      models.EventAuctionStart,
		EventID:   uuid.New().String(),
		ItemID:    auctionID,
		Timestamp: now,
		Message:   "Auction has started",
	}
}

func endEvent(auctionID, winnerID string, now time.Time) models.Event {
	return models.Event{
		Type:      models.EventAuctionEnd,
		EventID:   uuid.New().String(),
		ItemID:    auctionID,
		Username:  winnerID,
		Timestamp: now,
		Message:   "Auction has ended",
	}
}
