package memory

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/Indu2002-se/AuctionWeb/internal/clock"
	"github.com/Indu2002-se/AuctionWeb/internal/models"
)

var t0 = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func newTestStore(t *testing.T) (*Store, models.Auction) {
	t.Helper()
	s := New(clock.NewFixed(t0))
	a, err := s.CreateAuction(context.Background(), models.Auction{
		ID:            "a1",
		SellerID:      "seller",
		Name:          "Painting",
		StartingPrice: 100,
		StartTime:     t0,
		EndTime:       t0.Add(72 * time.Hour),
	})
	require.NoError(t, err)
	return s, a
}

func activate(t *testing.T, s *Store, id string) {
	t.Helper()
	ok, err := s.TransitionStatus(context.Background(), id, models.StatusPending, models.StatusActive, t0)
	require.NoError(t, err)
	require.True(t, ok)
}

func TestCreateAuction(t *testing.T) {
	s, a := newTestStore(t)

	require.Equal(t, models.StatusPending, a.Status)
	require.Equal(t, a.StartingPrice, a.CurrentPrice)
	require.Empty(t, a.WinnerID)

	_, err := s.CreateAuction(context.Background(), models.Auction{
		ID: "a1", SellerID: "seller", StartingPrice: 1, StartTime: t0, EndTime: t0.Add(time.Hour),
	})
	require.ErrorIs(t, err, models.ErrAuctionExists)

	_, err = s.CreateAuction(context.Background(), models.Auction{
		SellerID: "seller", StartingPrice: 1, StartTime: t0.Add(time.Hour), EndTime: t0,
	})
	require.ErrorIs(t, err, models.ErrInvalidAuction)
}

func TestGetAuctionNotFound(t *testing.T) {
	s, _ := newTestStore(t)
	_, err := s.GetAuction(context.Background(), "missing")
	require.ErrorIs(t, err, models.ErrNotFound)
}

func TestTryAcceptBidValidation(t *testing.T) {
	ctx := context.Background()
	s, a := newTestStore(t)

	// Pending auction rejects bids regardless of amount.
	_, err := s.TryAcceptBid(ctx, a.ID, "b1", 150, t0)
	require.ErrorIs(t, err, models.ErrInvalidState)

	activate(t, s, a.ID)

	_, err = s.TryAcceptBid(ctx, "missing", "b1", 150, t0)
	require.ErrorIs(t, err, models.ErrNotFound)

	_, err = s.TryAcceptBid(ctx, a.ID, "seller", 150, t0)
	require.ErrorIs(t, err, models.ErrSelfBid)

	_, err = s.TryAcceptBid(ctx, a.ID, "b1", 150, t0.Add(-time.Minute))
	require.ErrorIs(t, err, models.ErrOutOfWindow)

	_, err = s.TryAcceptBid(ctx, a.ID, "b1", 150, a.EndTime.Add(time.Minute))
	require.ErrorIs(t, err, models.ErrOutOfWindow)

	// Equal to starting price is not strictly greater.
	_, err = s.TryAcceptBid(ctx, a.ID, "b1", 100, t0)
	require.ErrorIs(t, err, models.ErrBidTooLow)

	_, err = s.TryAcceptBid(ctx, a.ID, "b1", 80, t0)
	require.ErrorIs(t, err, models.ErrBidTooLow)
}

// Scenario: 80 rejected, 150 accepted, repeat of 150 rejected.
func TestBidAcceptanceSequence(t *testing.T) {
	ctx := context.Background()
	s, a := newTestStore(t)
	activate(t, s, a.ID)

	_, err := s.TryAcceptBid(ctx, a.ID, "b1", 80, t0)
	require.ErrorIs(t, err, models.ErrBidTooLow)

	bid, err := s.TryAcceptBid(ctx, a.ID, "b1", 150, t0)
	require.NoError(t, err)
	require.Equal(t, 150.0, bid.Amount)

	got, err := s.GetAuction(ctx, a.ID)
	require.NoError(t, err)
	require.Equal(t, 150.0, got.CurrentPrice)

	_, err = s.TryAcceptBid(ctx, a.ID, "b2", 150, t0)
	require.ErrorIs(t, err, models.ErrBidTooLow)
}

// Current price always equals the amount of the latest accepted bid and
// amounts strictly increase in acceptance order.
func TestMonotonicPrice(t *testing.T) {
	ctx := context.Background()
	s, a := newTestStore(t)
	activate(t, s, a.ID)

	amounts := []float64{110, 120, 135.5, 200}
	for _, amount := range amounts {
		bid, err := s.TryAcceptBid(ctx, a.ID, "b1", amount, t0)
		require.NoError(t, err)
		require.Equal(t, amount, bid.Amount)

		got, err := s.GetAuction(ctx, a.ID)
		require.NoError(t, err)
		require.Equal(t, amount, got.CurrentPrice)
	}

	bids, err := s.BidsForAuction(ctx, a.ID)
	require.NoError(t, err)
	require.Len(t, bids, len(amounts))
	// Newest first: strictly decreasing when walking the list.
	for i := 1; i < len(bids); i++ {
		require.Greater(t, bids[i-1].Amount, bids[i].Amount)
		require.False(t, bids[i-1].Timestamp.Before(bids[i].Timestamp))
	}
}

// N concurrent bidders with distinct amounts: the final price is the
// maximum amount and each accepted bid strictly raised the price.
func TestConcurrentBidsNoLostUpdate(t *testing.T) {
	ctx := context.Background()
	s, a := newTestStore(t)
	activate(t, s, a.ID)

	const n = 64
	var wg sync.WaitGroup
	accepted := make(chan models.Bid, n)
	rejected := make(chan error, n)
	for i := 0; i < n; i++ {
		amount := 101 + float64(i)
		wg.Add(1)
		go func() {
			defer wg.Done()
			bid, err := s.TryAcceptBid(ctx, a.ID, "bidder", amount, t0)
			if err != nil {
				rejected <- err
				return
			}
			accepted <- bid
		}()
	}
	wg.Wait()
	close(accepted)
	close(rejected)

	for err := range rejected {
		require.ErrorIs(t, err, models.ErrBidTooLow)
	}

	got, err := s.GetAuction(ctx, a.ID)
	require.NoError(t, err)
	require.Equal(t, 101+float64(n-1), got.CurrentPrice)

	// The highest submitted amount always wins; every accepted amount is
	// distinct and the count matches the bid list.
	seen := map[float64]bool{}
	for bid := range accepted {
		require.False(t, seen[bid.Amount])
		seen[bid.Amount] = true
	}
	require.True(t, seen[got.CurrentPrice])

	count, err := s.BidCount(ctx, a.ID)
	require.NoError(t, err)
	require.Equal(t, len(seen), count)
}

// TransitionStatus with the same stale `from` succeeds at most once,
// even under concurrency.
func TestTransitionStatusCompareAndSet(t *testing.T) {
	ctx := context.Background()
	s, a := newTestStore(t)

	const n = 16
	var wg sync.WaitGroup
	results := make(chan bool, n)
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := s.TransitionStatus(ctx, a.ID, models.StatusPending, models.StatusActive, t0)
			results <- ok
			errs <- err
		}()
	}
	wg.Wait()
	close(results)
	close(errs)

	for err := range errs {
		require.NoError(t, err)
	}
	succeeded := 0
	for ok := range results {
		if ok {
			succeeded++
		}
	}
	require.Equal(t, 1, succeeded)

	// Status never regresses: a stale transition back is a no-op.
	ok, err := s.TransitionStatus(ctx, a.ID, models.StatusPending, models.StatusClosed, t0)
	require.NoError(t, err)
	require.False(t, ok)

	got, err := s.GetAuction(ctx, a.ID)
	require.NoError(t, err)
	require.Equal(t, models.StatusActive, got.Status)
}

func TestTransitionStatusNotFound(t *testing.T) {
	s, _ := newTestStore(t)
	_, err := s.TransitionStatus(context.Background(), "missing", models.StatusPending, models.StatusActive, t0)
	require.ErrorIs(t, err, models.ErrNotFound)
}

func TestCloseResolvesWinner(t *testing.T) {
	ctx := context.Background()
	s, a := newTestStore(t)
	activate(t, s, a.ID)

	_, err := s.TryAcceptBid(ctx, a.ID, "b1", 150, t0)
	require.NoError(t, err)
	_, err = s.TryAcceptBid(ctx, a.ID, "b2", 200, t0)
	require.NoError(t, err)

	ok, err := s.TransitionStatus(ctx, a.ID, models.StatusActive, models.StatusClosed, a.EndTime)
	require.NoError(t, err)
	require.True(t, ok)

	got, err := s.GetAuction(ctx, a.ID)
	require.NoError(t, err)
	require.Equal(t, models.StatusClosed, got.Status)
	require.Equal(t, "b2", got.WinnerID)
}

func TestCloseWithoutBidsHasNoWinner(t *testing.T) {
	ctx := context.Background()
	s, a := newTestStore(t)
	activate(t, s, a.ID)

	ok, err := s.TransitionStatus(ctx, a.ID, models.StatusActive, models.StatusClosed, a.EndTime)
	require.NoError(t, err)
	require.True(t, ok)

	got, err := s.GetAuction(ctx, a.ID)
	require.NoError(t, err)
	require.Empty(t, got.WinnerID)
}

func TestHighestBid(t *testing.T) {
	ctx := context.Background()
	s, a := newTestStore(t)
	activate(t, s, a.ID)

	_, ok, err := s.HighestBid(ctx, a.ID)
	require.NoError(t, err)
	require.False(t, ok)

	_, err = s.TryAcceptBid(ctx, a.ID, "b1", 150, t0)
	require.NoError(t, err)
	_, err = s.TryAcceptBid(ctx, a.ID, "b2", 175, t0)
	require.NoError(t, err)

	bid, ok, err := s.HighestBid(ctx, a.ID)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "b2", bid.BidderID)
	require.Equal(t, 175.0, bid.Amount)
}

func TestBidsForBidder(t *testing.T) {
	ctx := context.Background()
	s, a := newTestStore(t)
	activate(t, s, a.ID)

	b, err := s.CreateAuction(ctx, models.Auction{
		ID: "a2", SellerID: "seller2", StartingPrice: 10,
		StartTime: t0, EndTime: t0.Add(time.Hour),
	})
	require.NoError(t, err)
	activate(t, s, b.ID)

	_, err = s.TryAcceptBid(ctx, a.ID, "b1", 150, t0)
	require.NoError(t, err)
	_, err = s.TryAcceptBid(ctx, b.ID, "b1", 20, t0)
	require.NoError(t, err)
	_, err = s.TryAcceptBid(ctx, a.ID, "b2", 300, t0)
	require.NoError(t, err)

	bids, err := s.BidsForBidder(ctx, "b1")
	require.NoError(t, err)
	require.Len(t, bids, 2)
	require.Equal(t, "a2", bids[0].AuctionID)
	require.Equal(t, "a1", bids[1].AuctionID)

	bids, err = s.BidsForBidder(ctx, "nobody")
	require.NoError(t, err)
	require.Empty(t, bids)
}

func TestSweepQueries(t *testing.T) {
	ctx := context.Background()
	s, a := newTestStore(t)

	ready, err := s.ListPendingReady(ctx, t0.Add(-time.Minute))
	require.NoError(t, err)
	require.Empty(t, ready)

	ready, err = s.ListPendingReady(ctx, t0)
	require.NoError(t, err)
	require.Len(t, ready, 1)

	activate(t, s, a.ID)

	active, err := s.ListActive(ctx)
	require.NoError(t, err)
	require.Len(t, active, 1)

	expired, err := s.ListExpiredActive(ctx, t0.Add(time.Hour))
	require.NoError(t, err)
	require.Empty(t, expired)

	expired, err = s.ListExpiredActive(ctx, a.EndTime)
	require.NoError(t, err)
	require.Len(t, expired, 1)

	// Snapshots, not live views.
	expired[0].Status = models.StatusClosed
	got, err := s.GetAuction(ctx, a.ID)
	require.NoError(t, err)
	require.Equal(t, models.StatusActive, got.Status)
}

func TestBidTimestampsNeverRegress(t *testing.T) {
	ctx := context.Background()
	s, a := newTestStore(t)
	activate(t, s, a.ID)

	first, err := s.TryAcceptBid(ctx, a.ID, "b1", 110, t0.Add(time.Minute))
	require.NoError(t, err)

	// Wall clock moved backwards between accepts.
	second, err := s.TryAcceptBid(ctx, a.ID, "b2", 120, t0.Add(30*time.Second))
	require.NoError(t, err)
	require.False(t, second.Timestamp.Before(first.Timestamp))
}
