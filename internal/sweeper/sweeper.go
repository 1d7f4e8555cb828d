// Package sweeper advances auction lifecycles on a fixed-interval tick.
// Transitions are compare-and-set in the store, so overlapping or
// repeated ticks are harmless: the second attempt finds a stale `from`
// and no-ops.
package sweeper

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/Indu2002-se/AuctionWeb/internal/clock"
	"github.com/Indu2002-se/AuctionWeb/internal/models"
	"github.com/Indu2002-se/AuctionWeb/internal/notify"
	"github.com/Indu2002-se/AuctionWeb/internal/store"
)

const defaultInterval = 60 * time.Second

// Sweeper runs the periodic lifecycle check across all auctions.
type Sweeper struct {
	store    store.AuctionStore
	notifier notify.Notifier
	clk      clock.Clock
	log      *slog.Logger
	interval time.Duration
}

type Option func(*Sweeper)

// WithInterval overrides the default 60s tick interval.
func WithInterval(d time.Duration) Option {
	return func(s *Sweeper) {
		if d > 0 {
			s.interval = d
		}
	}
}

func New(st store.AuctionStore, notifier notify.Notifier, clk clock.Clock, log *slog.Logger, opts ...Option) *Sweeper {
	s := &Sweeper{
		store:    st,
		notifier: notifier,
		clk:      clk,
		log:      log,
		interval: defaultInterval,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Run ticks until ctx is cancelled. Store errors never stop the loop;
// the failed work is simply retried on the next tick.
func (s *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.log.Info("lifecycle sweeper started", "interval", s.interval)
	for {
		select {
		case <-ctx.Done():
			s.log.Info("lifecycle sweeper stopped")
			return
		case <-ticker.C:
			s.Tick(ctx)
		}
	}
}

// Tick performs one sweep: activate pending auctions whose start time
// has passed, then close active auctions whose end time has passed. An
// auction created with its whole window already in the past is handled
// in a single tick: activation first, then the close pass picks it up.
// Closing always requires the auction to have been active; a pending
// auction whose end has passed but whose start has not stays pending.
func (s *Sweeper) Tick(ctx context.Context) {
	now := s.clk.Now()

	pending, err := s.store.ListPendingReady(ctx, now)
	if err != nil {
		s.log.Error("failed to list pending auctions", "err", err)
	} else {
		for _, a := range pending {
			s.activate(ctx, a, now)
		}
	}

	expired, err := s.store.ListExpiredActive(ctx, now)
	if err != nil {
		s.log.Error("failed to list expired auctions", "err", err)
		return
	}
	for _, a := range expired {
		s.close(ctx, a, now)
	}
}

func (s *Sweeper) activate(ctx context.Context, a models.Auction, now time.Time) {
	ok, err := s.store.TransitionStatus(ctx, a.ID, models.StatusPending, models.StatusActive, now)
	if err != nil {
		// Isolated per auction: one failure must not abort the sweep.
		if !errors.Is(err, models.ErrNotFound) {
			s.log.Error("failed to activate auction", "auction", a.ID, "err", err)
		}
		return
	}
	if !ok {
		return
	}
	s.log.Info("auction activated", "auction", a.ID)
	s.notifier.AuctionStarted(ctx, a.ID)
}

func (s *Sweeper) close(ctx context.Context, a models.Auction, now time.Time) {
	ok, err := s.store.TransitionStatus(ctx, a.ID, models.StatusActive, models.StatusClosed, now)
	if err != nil {
		if !errors.Is(err, models.ErrNotFound) {
			s.log.Error("failed to close auction", "auction", a.ID, "err", err)
		}
		return
	}
	if !ok {
		return
	}

	closed, err := s.store.GetAuction(ctx, a.ID)
	if err != nil {
		s.log.Error("failed to read closed auction", "auction", a.ID, "err", err)
		return
	}
	if closed.WinnerID != "" {
		s.log.Info("auction closed", "auction", a.ID, "winner", closed.WinnerID, "price", closed.CurrentPrice)
	} else {
		s.log.Info("auction closed with no bids", "auction", a.ID)
	}
	s.notifier.AuctionClosed(ctx, a.ID, closed.WinnerID)
}
