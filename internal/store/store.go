// Package store defines the AuctionStore contract: the single source of
// truth for auction and bid state, and the boundary at which per-auction
// atomicity is enforced. Only TryAcceptBid may raise the current price and
// only TransitionStatus may advance the lifecycle.
package store

import (
	"context"
	"time"

	"github.com/Indu2002-se/AuctionWeb/internal/models"
)

// AuctionStore holds auctions and their bids. Implementations must
// serialize TryAcceptBid and TransitionStatus per auction id; operations
// on different auctions must not block each other. Reads may return
// slightly stale snapshots — any decision based on them is re-validated
// inside the atomic write.
type AuctionStore interface {
	// CreateAuction persists a new auction in pending state with
	// CurrentPrice = StartingPrice. Called by the catalog collaborator.
	CreateAuction(ctx context.Context, a models.Auction) (models.Auction, error)

	// GetAuction returns a snapshot of the auction, or ErrNotFound.
	GetAuction(ctx context.Context, id string) (models.Auction, error)

	// TryAcceptBid atomically re-reads the auction, re-validates
	// (status active, now within [start, end], amount > current price,
	// bidder != seller) and, if valid, appends the bid and raises the
	// current price to amount in one step. It returns the committed bid,
	// or one of ErrNotFound, ErrInvalidState, ErrOutOfWindow,
	// ErrBidTooLow, ErrSelfBid.
	TryAcceptBid(ctx context.Context, auctionID, bidderID string, amount float64, now time.Time) (models.Bid, error)

	// TransitionStatus sets the status to `to` only if it currently
	// equals `from`. A stale `from` is a no-op returning false, never an
	// error. When to == StatusClosed, the winner (bidder of the highest
	// accepted bid, empty if none) is resolved and persisted in the same
	// atomic step so a bid racing the close can never be orphaned.
	TransitionStatus(ctx context.Context, auctionID string, from, to models.AuctionStatus, now time.Time) (bool, error)

	// Sweep queries. Each returns a finite snapshot taken at call time.
	ListActive(ctx context.Context) ([]models.Auction, error)
	ListPendingReady(ctx context.Context, now time.Time) ([]models.Auction, error)
	ListExpiredActive(ctx context.Context, now time.Time) ([]models.Auction, error)

	// HighestBid returns the highest accepted bid, or ok=false if the
	// auction has no bids.
	HighestBid(ctx context.Context, auctionID string) (models.Bid, bool, error)

	// BidsForAuction returns accepted bids ordered newest-first.
	BidsForAuction(ctx context.Context, auctionID string) ([]models.Bid, error)

	// BidsForBidder returns the bidder's accepted bids across all
	// auctions, ordered newest-first.
	BidsForBidder(ctx context.Context, bidderID string) ([]models.Bid, error)

	BidCount(ctx context.Context, auctionID string) (int, error)
}
