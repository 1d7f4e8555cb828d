package models

import "time"

// AuctionStatus is the lifecycle state of an auction.
// Transitions are monotonic: pending -> active -> closed.
type AuctionStatus string

const (
	StatusPending AuctionStatus = "pending"
	StatusActive  AuctionStatus = "active"
	StatusClosed  AuctionStatus = "closed"
)

// Auction represents one timed sale of an item.
type Auction struct {
	ID            string        `json:"id"`
	SellerID      string        `json:"seller_id"`
	Name          string        `json:"name"`
	Description   string        `json:"description,omitempty"`
	StartingPrice float64       `json:"starting_price"`
	CurrentPrice  float64       `json:"current_price"`
	Status        AuctionStatus `json:"status"`
	WinnerID      string        `json:"winner_id,omitempty"`
	StartTime     time.Time     `json:"start_time"`
	EndTime       time.Time     `json:"end_time"`
	CreatedAt     time.Time     `json:"created_at"`
	UpdatedAt     time.Time     `json:"updated_at"`
}

// Role identifiers supplied by the identity provider. The engine trusts
// them as given.
const (
	RoleBidder = "bidder"
	RoleSeller = "seller"
)
