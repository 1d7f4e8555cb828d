// Package redisstore implements store.AuctionStore on Redis. Auction
// state lives in a hash per auction and bids in per-auction and
// per-bidder lists; the accept and transition paths are Lua scripts so
// validation and mutation execute as a single atomic server-side step.
package redisstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/Indu2002-se/AuctionWeb/internal/models"
)

// Timestamps cross the Lua boundary as unix milliseconds: Lua numbers
// are doubles, and milliseconds stay well inside their exact integer
// range.

// acceptScript re-validates and commits a bid atomically.
//
//	KEYS[1] auction hash, KEYS[2] auction bid list, KEYS[3] bidder bid list
//	ARGV[1] bidder id, ARGV[2] amount, ARGV[3] now (ms), ARGV[4] bid id, ARGV[5] auction id
//
// Returns {1, accepted_ts_ms} on success, {0, reason} on rejection.
var acceptScript = redis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 0 then
	return {0, 'not_found'}
end
if redis.call('HGET', KEYS[1], 'seller_id') == ARGV[1] then
	return {0, 'self_bid'}
end
if redis.call('HGET', KEYS[1], 'status') ~= 'active' then
	return {0, 'invalid_state'}
end
local now = tonumber(ARGV[3])
local start_ms = tonumber(redis.call('HGET', KEYS[1], 'start_ms'))
local end_ms = tonumber(redis.call('HGET', KEYS[1], 'end_ms'))
if now < start_ms or now > end_ms then
	return {0, 'out_of_window'}
end
local amount = tonumber(ARGV[2])
local current = tonumber(redis.call('HGET', KEYS[1], 'current_price'))
if amount <= current then
	return {0, 'bid_too_low'}
end
local ts = now
local last = tonumber(redis.call('HGET', KEYS[1], 'last_bid_ms'))
if last and last > ts then
	ts = last
end
local bid = cjson.encode({
	id = ARGV[4],
	auction_id = ARGV[5],
	bidder_id = ARGV[1],
	amount = amount,
	ts_ms = ts,
})
redis.call('LPUSH', KEYS[2], bid)
redis.call('LPUSH', KEYS[3], bid)
redis.call('HSET', KEYS[1], 'current_price', ARGV[2], 'last_bid_ms', ts, 'updated_ms', ts)
return {1, ts}
`)

// transitionScript performs the compare-and-set lifecycle step. On a
// close it resolves the winner from the newest bid in the same step.
//
//	KEYS[1] auction hash, KEYS[2] auction bid list
//	ARGV[1] from, ARGV[2] to, ARGV[3] now (ms)
//
// Returns 1 on transition, 0 on stale from, -1 when the auction is missing.
var transitionScript = redis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 0 then
	return -1
end
if redis.call('HGET', KEYS[1], 'status') ~= ARGV[1] then
	return 0
end
redis.call('HSET', KEYS[1], 'status', ARGV[2], 'updated_ms', ARGV[3])
if ARGV[2] == 'closed' then
	local head = redis.call('LINDEX', KEYS[2], 0)
	if head then
		local bid = cjson.decode(head)
		redis.call('HSET', KEYS[1], 'winner_id', bid.bidder_id)
	end
end
return 1
`)

// Store is a Redis-backed AuctionStore.
type Store struct {
	client *redis.Client
}

// New connects to Redis and verifies the connection.
func New(addr, password string, db int) (*Store, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &Store{client: rdb}, nil
}

// NewFromClient wraps an existing client (used by tests).
func NewFromClient(client *redis.Client) *Store {
	return &Store{client: client}
}

func auctionKey(id string) string     { return fmt.Sprintf("auction:%s", id) }
func auctionBidsKey(id string) string { return fmt.Sprintf("auction:%s:bids", id) }
func bidderBidsKey(id string) string  { return fmt.Sprintf("bidder:%s:bids", id) }

const indexKey = "auctions"

// wireBid is the bid representation stored in Redis lists.
type wireBid struct {
	ID        string  `json:"id"`
	AuctionID string  `json:"auction_id"`
	BidderID  string  `json:"bidder_id"`
	Amount    float64 `json:"amount"`
	TsMs      int64   `json:"ts_ms"`
}

func (w wireBid) toBid() models.Bid {
	return models.Bid{
		ID:        w.ID,
		AuctionID: w.AuctionID,
		BidderID:  w.BidderID,
		Amount:    w.Amount,
		Timestamp: time.UnixMilli(w.TsMs).UTC(),
	}
}

func (s *Store) CreateAuction(ctx context.Context, a models.Auction) (models.Auction, error) {
	if a.SellerID == "" || a.StartingPrice < 0 || !a.EndTime.After(a.StartTime) {
		return models.Auction{}, models.ErrInvalidAuction
	}
	if a.ID == "" {
		a.ID = uuid.New().String()
	}

	now := time.Now().UTC()
	a.Status = models.StatusPending
	a.CurrentPrice = a.StartingPrice
	a.WinnerID = ""
	a.CreatedAt = now
	a.UpdatedAt = now

	ok, err := s.client.HSetNX(ctx, auctionKey(a.ID), "seller_id", a.SellerID).Result()
	if err != nil {
		return models.Auction{}, fmt.Errorf("failed to create auction: %w", err)
	}
	if !ok {
		return models.Auction{}, models.ErrAuctionExists
	}

	pipe := s.client.Pipeline()
	pipe.HSet(ctx, auctionKey(a.ID), map[string]interface{}{
		"name":           a.Name,
		"description":    a.Description,
		"starting_price": a.StartingPrice,
		"current_price":  a.CurrentPrice,
		"status":         string(a.Status),
		"winner_id":      "",
		"start_ms":       a.StartTime.UnixMilli(),
		"end_ms":         a.EndTime.UnixMilli(),
		"created_ms":     now.UnixMilli(),
		"updated_ms":     now.UnixMilli(),
	})
	pipe.SAdd(ctx, indexKey, a.ID)
	if _, err := pipe.Exec(ctx); err != nil {
		return models.Auction{}, fmt.Errorf("failed to create auction: %w", err)
	}
	return a, nil
}

func (s *Store) GetAuction(ctx context.Context, id string) (models.Auction, error) {
	fields, err := s.client.HGetAll(ctx, auctionKey(id)).Result()
	if err != nil {
		return models.Auction{}, fmt.Errorf("failed to get auction: %w", err)
	}
	if len(fields) == 0 {
		return models.Auction{}, models.ErrNotFound
	}
	return auctionFromHash(id, fields)
}

func auctionFromHash(id string, fields map[string]string) (models.Auction, error) {
	var (
		a        models.Auction
		parseErr error
	)
	parseFloat := func(s string) float64 {
		f, err := strconv.ParseFloat(s, 64)
		if err != nil && parseErr == nil {
			parseErr = err
		}
		return f
	}
	parseMs := func(s string) time.Time {
		ms, err := strconv.ParseInt(s, 10, 64)
		if err != nil && parseErr == nil {
			parseErr = err
		}
		return time.UnixMilli(ms).UTC()
	}

	a.ID = id
	a.SellerID = fields["seller_id"]
	a.Name = fields["name"]
	a.Description = fields["description"]
	a.Status = models.AuctionStatus(fields["status"])
	a.WinnerID = fields["winner_id"]
	a.StartingPrice = parseFloat(fields["starting_price"])
	a.CurrentPrice = parseFloat(fields["current_price"])
	a.StartTime = parseMs(fields["start_ms"])
	a.EndTime = parseMs(fields["end_ms"])
	a.CreatedAt = parseMs(fields["created_ms"])
	a.UpdatedAt = parseMs(fields["updated_ms"])

	if parseErr != nil {
		return models.Auction{}, fmt.Errorf("corrupt auction hash %s: %w", id, parseErr)
	}
	return a, nil
}

var rejectReasons = map[string]error{
	"not_found":     models.ErrNotFound,
	"self_bid":      models.ErrSelfBid,
	"invalid_state": models.ErrInvalidState,
	"out_of_window": models.ErrOutOfWindow,
	"bid_too_low":   models.ErrBidTooLow,
}

func (s *Store) TryAcceptBid(ctx context.Context, auctionID, bidderID string, amount float64, now time.Time) (models.Bid, error) {
	bidID := uuid.New().String()
	keys := []string{auctionKey(auctionID), auctionBidsKey(auctionID), bidderBidsKey(bidderID)}

	result, err := acceptScript.Run(ctx, s.client, keys,
		bidderID, amount, now.UnixMilli(), bidID, auctionID).Result()
	if err != nil {
		return models.Bid{}, fmt.Errorf("failed to execute accept script: %w", err)
	}

	arr, ok := result.([]interface{})
	if !ok || len(arr) != 2 {
		return models.Bid{}, fmt.Errorf("unexpected accept script result %v", result)
	}

	if arr[0].(int64) != 1 {
		reason, _ := arr[1].(string)
		if err, ok := rejectReasons[reason]; ok {
			return models.Bid{}, err
		}
		return models.Bid{}, fmt.Errorf("accept rejected with unknown reason %q", reason)
	}

	return models.Bid{
		ID:        bidID,
		AuctionID: auctionID,
		BidderID:  bidderID,
		Amount:    amount,
		Timestamp: time.UnixMilli(arr[1].(int64)).UTC(),
	}, nil
}

func (s *Store) TransitionStatus(ctx context.Context, auctionID string, from, to models.AuctionStatus, now time.Time) (bool, error) {
	keys := []string{auctionKey(auctionID), auctionBidsKey(auctionID)}
	result, err := transitionScript.Run(ctx, s.client, keys,
		string(from), string(to), now.UnixMilli()).Int64()
	if err != nil {
		return false, fmt.Errorf("failed to execute transition script: %w", err)
	}
	switch result {
	case -1:
		return false, models.ErrNotFound
	case 1:
		return true, nil
	default:
		return false, nil
	}
}

func (s *Store) list(ctx context.Context, filter func(models.Auction) bool) ([]models.Auction, error) {
	ids, err := s.client.SMembers(ctx, indexKey).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list auctions: %w", err)
	}

	var out []models.Auction
	for _, id := range ids {
		a, err := s.GetAuction(ctx, id)
		if errors.Is(err, models.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		if filter(a) {
			out = append(out, a)
		}
	}
	return out, nil
}

func (s *Store) ListActive(ctx context.Context) ([]models.Auction, error) {
	return s.list(ctx, func(a models.Auction) bool {
		return a.Status == models.StatusActive
	})
}

func (s *Store) ListPendingReady(ctx context.Context, now time.Time) ([]models.Auction, error) {
	return s.list(ctx, func(a models.Auction) bool {
		return a.Status == models.StatusPending && !now.Before(a.StartTime)
	})
}

func (s *Store) ListExpiredActive(ctx context.Context, now time.Time) ([]models.Auction, error) {
	return s.list(ctx, func(a models.Auction) bool {
		return a.Status == models.StatusActive && !now.Before(a.EndTime)
	})
}

func (s *Store) HighestBid(ctx context.Context, auctionID string) (models.Bid, bool, error) {
	if err := s.exists(ctx, auctionID); err != nil {
		return models.Bid{}, false, err
	}
	raw, err := s.client.LIndex(ctx, auctionBidsKey(auctionID), 0).Result()
	if err == redis.Nil {
		return models.Bid{}, false, nil
	}
	if err != nil {
		return models.Bid{}, false, fmt.Errorf("failed to get highest bid: %w", err)
	}
	var w wireBid
	if err := json.Unmarshal([]byte(raw), &w); err != nil {
		return models.Bid{}, false, fmt.Errorf("corrupt bid entry: %w", err)
	}
	return w.toBid(), true, nil
}

func (s *Store) BidsForAuction(ctx context.Context, auctionID string) ([]models.Bid, error) {
	if err := s.exists(ctx, auctionID); err != nil {
		return nil, err
	}
	return s.readBidList(ctx, auctionBidsKey(auctionID))
}

func (s *Store) BidsForBidder(ctx context.Context, bidderID string) ([]models.Bid, error) {
	return s.readBidList(ctx, bidderBidsKey(bidderID))
}

func (s *Store) readBidList(ctx context.Context, key string) ([]models.Bid, error) {
	raws, err := s.client.LRange(ctx, key, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read bid list: %w", err)
	}
	bids := make([]models.Bid, 0, len(raws))
	for _, raw := range raws {
		var w wireBid
		if err := json.Unmarshal([]byte(raw), &w); err != nil {
			return nil, fmt.Errorf("corrupt bid entry: %w", err)
		}
		bids = append(bids, w.toBid())
	}
	return bids, nil
}

func (s *Store) BidCount(ctx context.Context, auctionID string) (int, error) {
	if err := s.exists(ctx, auctionID); err != nil {
		return 0, err
	}
	n, err := s.client.LLen(ctx, auctionBidsKey(auctionID)).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to count bids: %w", err)
	}
	return int(n), nil
}

func (s *Store) exists(ctx context.Context, auctionID string) error {
	n, err := s.client.Exists(ctx, auctionKey(auctionID)).Result()
	if err != nil {
		return fmt.Errorf("failed to check auction: %w", err)
	}
	if n == 0 {
		return models.ErrNotFound
	}
	return nil
}

// Close closes the Redis connection.
func (s *Store) Close() error {
	return s.client.Close()
}
