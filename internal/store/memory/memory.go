// Package memory implements store.AuctionStore with per-auction mutexes.
// It backs tests and single-node dev mode.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Indu2002-se/AuctionWeb/internal/clock"
	"github.com/Indu2002-se/AuctionWeb/internal/models"
)

// Store keeps all state in process memory. The top-level mutex only
// guards the maps; auction state is mutated under its own per-auction
// lock so contention on one auction never blocks another.
type Store struct {
	clk clock.Clock

	mu       sync.RWMutex
	auctions map[string]*auctionState

	bidderMu   sync.RWMutex
	bidderBids map[string][]models.Bid // newest first
}

type auctionState struct {
	mu      sync.Mutex
	auction models.Auction
	bids    []models.Bid // newest first; amounts strictly increase toward index 0
}

func New(clk clock.Clock) *Store {
	return &Store{
		clk:        clk,
		auctions:   make(map[string]*auctionState),
		bidderBids: make(map[string][]models.Bid),
	}
}

func (s *Store) CreateAuction(ctx context.Context, a models.Auction) (models.Auction, error) {
	if a.SellerID == "" || a.StartingPrice < 0 || !a.EndTime.After(a.StartTime) {
		return models.Auction{}, models.ErrInvalidAuction
	}
	if a.ID == "" {
		a.ID = uuid.New().String()
	}

	now := s.clk.Now()
	a.Status = models.StatusPending
	a.CurrentPrice = a.StartingPrice
	a.WinnerID = ""
	a.CreatedAt = now
	a.UpdatedAt = now

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.auctions[a.ID]; exists {
		return models.Auction{}, models.ErrAuctionExists
	}
	s.auctions[a.ID] = &auctionState{auction: a}
	return a, nil
}

func (s *Store) get(id string) (*auctionState, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st, ok := s.auctions[id]
	return st, ok
}

func (s *Store) GetAuction(ctx context.Context, id string) (models.Auction, error) {
	st, ok := s.get(id)
	if !ok {
		return models.Auction{}, models.ErrNotFound
	}
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.auction, nil
}

func (s *Store) TryAcceptBid(ctx context.Context, auctionID, bidderID string, amount float64, now time.Time) (models.Bid, error) {
	st, ok := s.get(auctionID)
	if !ok {
		return models.Bid{}, models.ErrNotFound
	}

	st.mu.Lock()
	defer st.mu.Unlock()

	a := &st.auction
	switch {
	case bidderID == a.SellerID:
		return models.Bid{}, models.ErrSelfBid
	case a.Status != models.StatusActive:
		return models.Bid{}, models.ErrInvalidState
	case now.Before(a.StartTime) || now.After(a.EndTime):
		return models.Bid{}, models.ErrOutOfWindow
	case amount <= a.CurrentPrice:
		return models.Bid{}, models.ErrBidTooLow
	}

	// Acceptance timestamps never regress within one auction even if the
	// wall clock does.
	ts := now
	if len(st.bids) > 0 && ts.Before(st.bids[0].Timestamp) {
		ts = st.bids[0].Timestamp
	}

	bid := models.Bid{
		ID:        uuid.New().String(),
		AuctionID: auctionID,
		BidderID:  bidderID,
		Amount:    amount,
		Timestamp: ts,
	}

	st.bids = append([]models.Bid{bid}, st.bids...)
	a.CurrentPrice = amount
	a.UpdatedAt = ts

	s.bidderMu.Lock()
	s.bidderBids[bidderID] = append([]models.Bid{bid}, s.bidderBids[bidderID]...)
	s.bidderMu.Unlock()

	return bid, nil
}

func (s *Store) TransitionStatus(ctx context.Context, auctionID string, from, to models.AuctionStatus, now time.Time) (bool, error) {
	st, ok := s.get(auctionID)
	if !ok {
		return false, models.ErrNotFound
	}

	st.mu.Lock()
	defer st.mu.Unlock()

	if st.auction.Status != from {
		return false, nil
	}
	st.auction.Status = to
	st.auction.UpdatedAt = now
	if to == models.StatusClosed && len(st.bids) > 0 {
		st.auction.WinnerID = st.bids[0].BidderID
	}
	return true, nil
}

func (s *Store) snapshot(filter func(models.Auction) bool) []models.Auction {
	s.mu.RLock()
	states := make([]*auctionState, 0, len(s.auctions))
	for _, st := range s.auctions {
		states = append(states, st)
	}
	s.mu.RUnlock()

	var out []models.Auction
	for _, st := range states {
		st.mu.Lock()
		a := st.auction
		st.mu.Unlock()
		if filter(a) {
			out = append(out, a)
		}
	}
	return out
}

func (s *Store) ListActive(ctx context.Context) ([]models.Auction, error) {
	return s.snapshot(func(a models.Auction) bool {
		return a.Status == models.StatusActive
	}), nil
}

func (s *Store) ListPendingReady(ctx context.Context, now time.Time) ([]models.Auction, error) {
	return s.snapshot(func(a models.Auction) bool {
		return a.Status == models.StatusPending && !now.Before(a.StartTime)
	}), nil
}

func (s *Store) ListExpiredActive(ctx context.Context, now time.Time) ([]models.Auction, error) {
	return s.snapshot(func(a models.Auction) bool {
		return a.Status == models.StatusActive && !now.Before(a.EndTime)
	}), nil
}

func (s *Store) HighestBid(ctx context.Context, auctionID string) (models.Bid, bool, error) {
	st, ok := s.get(auctionID)
	if !ok {
		return models.Bid{}, false, models.ErrNotFound
	}
	st.mu.Lock()
	defer st.mu.Unlock()
	if len(st.bids) == 0 {
		return models.Bid{}, false, nil
	}
	// Newest bid is highest: amounts strictly increase in acceptance order.
	return st.bids[0], true, nil
}

func (s *Store) BidsForAuction(ctx context.Context, auctionID string) ([]models.Bid, error) {
	st, ok := s.get(auctionID)
	if !ok {
		return nil, models.ErrNotFound
	}
	st.mu.Lock()
	defer st.mu.Unlock()
	out := make([]models.Bid, len(st.bids))
	copy(out, st.bids)
	return out, nil
}

func (s *Store) BidsForBidder(ctx context.Context, bidderID string) ([]models.Bid, error) {
	s.bidderMu.RLock()
	defer s.bidderMu.RUnlock()
	bids := s.bidderBids[bidderID]
	out := make([]models.Bid, len(bids))
	copy(out, bids)
	return out, nil
}

func (s *Store) BidCount(ctx context.Context, auctionID string) (int, error) {
	st, ok := s.get(auctionID)
	if !ok {
		return 0, models.ErrNotFound
	}
	st.mu.Lock()
	defer st.mu.Unlock()
	return len(st.bids), nil
}
