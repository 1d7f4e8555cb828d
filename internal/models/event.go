package models

import "time"

// Event types published to the per-auction channel.
const (
	EventNewBid       = "NEW_BID"
	EventAuctionStart = "AUCTION_START"
	EventAuctionEnd   = "AUCTION_END"
)

// Event is the payload published for every auction-level occurrence.
// This is sent to:
//  1. Redis Pub/Sub channel "auction/{itemId}" (real-time WebSocket broadcast)
//  2. NATS JetStream subject "auction.events.{itemId}" (archival to PostgreSQL)
//
// For NEW_BID the bid fields are populated; for AUCTION_END Username is the
// winner's identifier and is empty when the auction closed without bids.
type Event struct {
	Type      string    `json:"type"`
	EventID   string    `json:"event_id"`
	ItemID    string    `json:"itemId"`
	BidID     string    `json:"bidId,omitempty"`
	Username  string    `json:"username,omitempty"`
	Amount    float64   `json:"amount,omitempty"`
	Timestamp time.Time `json:"timestamp"`
	Message   string    `json:"message"`
}
