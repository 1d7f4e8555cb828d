package notify

import (
	"context"
	"sync"
	"time"

	"github.com/Indu2002-se/AuctionWeb/internal/models"
)

// Recorder is a Notifier that captures events for tests.
type Recorder struct {
	mu     sync.Mutex
	events []models.Event
}

func NewRecorder() *Recorder {
	return &Recorder{}
}

func (r *Recorder) BidAccepted(ctx context.Context, bid models.Bid) {
	r.append(newBidEvent(bid))
}

func (r *Recorder) AuctionStarted(ctx context.Context, auctionID string) {
	r.append(startEvent(auctionID, time.Now().UTC()))
}

func (r *Recorder) AuctionClosed(ctx context.Context, auctionID, winnerID string) {
	r.append(endEvent(auctionID, winnerID, time.Now().UTC()))
}

func (r *Recorder) append(e models.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

// Events returns a copy of everything recorded so far.
func (r *Recorder) Events() []models.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]models.Event, len(r.events))
	copy(out, r.events)
	return out
}

// ByType returns recorded events of one type, in order.
func (r *Recorder) ByType(eventType string) []models.Event {
	var out []models.Event
	for _, e := range r.Events() {
		if e.Type == eventType {
			out = append(out, e)
		}
	}
	return out
}
