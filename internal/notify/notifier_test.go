package notify

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/Indu2002-se/AuctionWeb/internal/models"
)

func TestChannelAndSubject(t *testing.T) {
	require.Equal(t, "auction/a1", Channel("a1"))
	require.Equal(t, "auction.events.a1", Subject("a1"))
}

// The published wire format carries the discriminator and the camelCase
// keys the downstream consumers expect.
func TestNewBidEventSchema(t *testing.T) {
	ts := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	event := newBidEvent(models.Bid{
		ID:        "bid-1",
		AuctionID: "a1",
		BidderID:  "b1",
		Amount:    150,
		Timestamp: ts,
	})

	require.Equal(t, models.EventNewBid, event.Type)
	require.NotEmpty(t, event.EventID)

	data, err := json.Marshal(event)
	require.NoError(t, err)

	var wire map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &wire))
	require.Equal(t, "NEW_BID", wire["type"])
	require.Equal(t, "a1", wire["itemId"])
	require.Equal(t, "bid-1", wire["bidId"])
	require.Equal(t, "b1", wire["username"])
	require.Equal(t, 150.0, wire["amount"])
	require.Contains(t, wire, "timestamp")
	require.Contains(t, wire, "message")
}

func TestEndEventOmitsWinnerWhenAbsent(t *testing.T) {
	now := time.Now().UTC()

	withWinner := endEvent("a1", "b2", now)
	data, err := json.Marshal(withWinner)
	require.NoError(t, err)
	var wire map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &wire))
	require.Equal(t, "AUCTION_END", wire["type"])
	require.Equal(t, "b2", wire["username"])

	noWinner := endEvent("a1", "", now)
	data, err = json.Marshal(noWinner)
	require.NoError(t, err)
	wire = nil
	require.NoError(t, json.Unmarshal(data, &wire))
	require.NotContains(t, wire, "username")
	require.NotContains(t, wire, "bidId")
}

func TestRecorder(t *testing.T) {
	rec := NewRecorder()
	ctx := context.Background()

	rec.AuctionStarted(ctx, "a1")
	rec.BidAccepted(ctx, models.Bid{ID: "bid-1", AuctionID: "a1", BidderID: "b1", Amount: 150})
	rec.AuctionClosed(ctx, "a1", "b1")

	events := rec.Events()
	require.Len(t, events, 3)
	require.Equal(t, models.EventAuctionStart, events[0].Type)
	require.Equal(t, models.EventNewBid, events[1].Type)
	require.Equal(t, models.EventAuctionEnd, events[2].Type)

	require.Len(t, rec.ByType(models.EventNewBid), 1)
	require.Empty(t, rec.ByType("UNKNOWN"))
}
