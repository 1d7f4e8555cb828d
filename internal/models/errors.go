package models

import "errors"

// Bid placement failure taxonomy. Every failure surfaces as one of these
// at the ledger boundary; callers match with errors.Is.
var (
	ErrNotFound     = errors.New("auction not found")
	ErrUnauthorized = errors.New("only bidders can place bids")
	ErrSelfBid      = errors.New("sellers cannot bid on their own auctions")
	ErrInvalidState = errors.New("auction is not active")
	ErrOutOfWindow  = errors.New("auction is not within the bidding period")
	ErrBidTooLow    = errors.New("bid amount must be higher than current price")
	ErrConflict     = errors.New("bid rejected by concurrent update")

	ErrAuctionExists  = errors.New("auction already exists")
	ErrInvalidAuction = errors.New("invalid auction definition")
)
