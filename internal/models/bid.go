package models

import "time"

// Bid is an accepted offer on an auction. Bids are immutable once
// persisted; the amount is strictly above the auction's price at the
// moment of acceptance.
type Bid struct {
	ID        string    `json:"id"`
	AuctionID string    `json:"auction_id"`
	BidderID  string    `json:"bidder_id"`
	Amount    float64   `json:"amount"`
	Timestamp time.Time `json:"timestamp"`
}

// BidRequest is the incoming bid request from the API.
type BidRequest struct {
	Amount float64 `json:"amount"`
}

// BidResponse is the API response after placing a bid.
type BidResponse struct {
	Success    bool    `json:"success"`
	Message    string  `json:"message"`
	Bid        *Bid    `json:"bid,omitempty"`
	CurrentBid float64 `json:"current_bid"`
	YourBid    float64 `json:"your_bid"`
	IsHighest  bool    `json:"is_highest"`
}
