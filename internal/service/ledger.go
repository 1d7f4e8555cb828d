// Package service holds the BidLedger: business-rule validation in front
// of the store's atomic accept, plus the read operations behind the API.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Indu2002-se/AuctionWeb/internal/clock"
	"github.com/Indu2002-se/AuctionWeb/internal/models"
	"github.com/Indu2002-se/AuctionWeb/internal/notify"
	"github.com/Indu2002-se/AuctionWeb/internal/store"
)

// BidLedger validates and accepts bids. The pre-checks here run against
// a possibly stale snapshot; the store re-validates everything inside
// its atomic step, so the only job of the pre-checks is to reject the
// obvious cases without taking the per-auction critical section.
type BidLedger struct {
	store    store.AuctionStore
	notifier notify.Notifier
	clk      clock.Clock
	log      *slog.Logger
}

func NewBidLedger(st store.AuctionStore, notifier notify.Notifier, clk clock.Clock, log *slog.Logger) *BidLedger {
	return &BidLedger{store: st, notifier: notifier, clk: clk, log: log}
}

// PlaceBid runs the full placement workflow:
//  1. role gate
//  2. optimistic validation against an auction snapshot
//  3. atomic accept in the store
//  4. exactly one broadcast per accepted bid, never on failure
//
// A bid that passes the snapshot checks but loses the race at the store
// (auction closed, or outbid in between) fails with ErrConflict.
func (l *BidLedger) PlaceBid(ctx context.Context, auctionID, bidderID string, amount float64, role string) (models.Bid, error) {
	if role != models.RoleBidder {
		return models.Bid{}, models.ErrUnauthorized
	}

	a, err := l.store.GetAuction(ctx, auctionID)
	if err != nil {
		return models.Bid{}, err
	}
	if bidderID == a.SellerID {
		return models.Bid{}, models.ErrSelfBid
	}
	if a.Status != models.StatusActive {
		return models.Bid{}, models.ErrInvalidState
	}
	now := l.clk.Now()
	if now.Before(a.StartTime) || now.After(a.EndTime) {
		return models.Bid{}, models.ErrOutOfWindow
	}
	if amount <= a.CurrentPrice {
		return models.Bid{}, models.ErrBidTooLow
	}

	bid, err := l.store.TryAcceptBid(ctx, auctionID, bidderID, amount, now)
	if err != nil {
		// The snapshot said this bid was fine, so the state moved
		// underneath us between the pre-check and the atomic step.
		if errors.Is(err, models.ErrInvalidState) ||
			errors.Is(err, models.ErrOutOfWindow) ||
			errors.Is(err, models.ErrBidTooLow) {
			return models.Bid{}, fmt.Errorf("%w: %w", models.ErrConflict, err)
		}
		return models.Bid{}, err
	}

	l.log.Info("bid accepted",
		"auction", auctionID, "bidder", bidderID, "amount", amount, "bid", bid.ID)
	l.notifier.BidAccepted(ctx, bid)
	return bid, nil
}

func (l *BidLedger) GetAuction(ctx context.Context, auctionID string) (models.Auction, error) {
	return l.store.GetAuction(ctx, auctionID)
}

// HighestBid returns the highest accepted bid; ok is false when the
// auction exists but has no bids.
func (l *BidLedger) HighestBid(ctx context.Context, auctionID string) (models.Bid, bool, error) {
	return l.store.HighestBid(ctx, auctionID)
}

func (l *BidLedger) BidCount(ctx context.Context, auctionID string) (int, error) {
	return l.store.BidCount(ctx, auctionID)
}

// BidsForAuction lists accepted bids newest-first.
func (l *BidLedger) BidsForAuction(ctx context.Context, auctionID string) ([]models.Bid, error) {
	return l.store.BidsForAuction(ctx, auctionID)
}

// BidsForBidder lists one bidder's accepted bids newest-first.
func (l *BidLedger) BidsForBidder(ctx context.Context, bidderID string) ([]models.Bid, error) {
	return l.store.BidsForBidder(ctx, bidderID)
}

// ActiveAuctions lists auctions currently open for bidding.
func (l *BidLedger) ActiveAuctions(ctx context.Context) ([]models.Auction, error) {
	return l.store.ListActive(ctx)
}

// CreateAuction is the catalog collaborator contract: auctions enter in
// pending state at their starting price. Window sanity is enforced here
// so a misconfigured end-before-start listing never reaches the sweeper.
func (l *BidLedger) CreateAuction(ctx context.Context, a models.Auction) (models.Auction, error) {
	if !a.EndTime.After(a.StartTime) {
		return models.Auction{}, models.ErrInvalidAuction
	}
	created, err := l.store.CreateAuction(ctx, a)
	if err != nil {
		return models.Auction{}, err
	}
	l.log.Info("auction created",
		"auction", created.ID, "seller", created.SellerID,
		"starts", created.StartTime.Format(time.RFC3339), "ends", created.EndTime.Format(time.RFC3339))
	return created, nil
}
