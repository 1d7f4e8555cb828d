// Package archive persists the advisory event stream into PostgreSQL as
// durable history. It is downstream of the engine: the write path never
// depends on it.
package archive

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"

	"github.com/Indu2002-se/AuctionWeb/internal/models"
)

// PostgresClient wraps the history database connection.
type PostgresClient struct {
	db *sql.DB
}

// NewPostgresClient opens and verifies the connection.
func NewPostgresClient(connStr string) (*PostgresClient, error) {
	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	return &PostgresClient{db: db}, nil
}

// InitSchema creates the history tables.
func (c *PostgresClient) InitSchema(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS bid_history (
		id VARCHAR(255) PRIMARY KEY,
		auction_id VARCHAR(255) NOT NULL,
		bidder_id VARCHAR(255) NOT NULL,
		amount DECIMAL(12, 2) NOT NULL,
		accepted_at TIMESTAMP NOT NULL,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS auction_results (
		auction_id VARCHAR(255) PRIMARY KEY,
		winner_id VARCHAR(255),
		closed_at TIMESTAMP NOT NULL,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_bid_history_auction ON bid_history(auction_id);
	CREATE INDEX IF NOT EXISTS idx_bid_history_bidder ON bid_history(bidder_id);
	CREATE INDEX IF NOT EXISTS idx_bid_history_accepted ON bid_history(accepted_at);
	`

	if _, err := c.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

// InsertBid records an accepted bid. Inserts are idempotent on bid id so
// at-least-once delivery from the stream is safe.
func (c *PostgresClient) InsertBid(ctx context.Context, event models.Event) error {
	query := `
		INSERT INTO bid_history (id, auction_id, bidder_id, amount, accepted_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO NOTHING
	`
	_, err := c.db.ExecContext(ctx, query,
		event.BidID, event.ItemID, event.Username, event.Amount, event.Timestamp)
	if err != nil {
		return fmt.Errorf("failed to insert bid: %w", err)
	}
	return nil
}

// InsertResult records an auction close. WinnerID is NULL for auctions
// closed without bids.
func (c *PostgresClient) InsertResult(ctx context.Context, event models.Event) error {
	query := `
		INSERT INTO auction_results (auction_id, winner_id, closed_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (auction_id) DO NOTHING
	`
	winner := sql.NullString{String: event.Username, Valid: event.Username != ""}
	if _, err := c.db.ExecContext(ctx, query, event.ItemID, winner, event.Timestamp); err != nil {
		return fmt.Errorf("failed to insert result: %w", err)
	}
	return nil
}

// BidHistory returns an auction's archived bids, newest first.
func (c *PostgresClient) BidHistory(ctx context.Context, auctionID string, limit int) ([]models.Bid, error) {
	query := `
		SELECT id, auction_id, bidder_id, amount, accepted_at
		FROM bid_history
		WHERE auction_id = $1
		ORDER BY accepted_at DESC
		LIMIT $2
	`
	return c.queryBids(ctx, query, auctionID, limit)
}

// BidderHistory returns a bidder's archived bids, newest first.
func (c *PostgresClient) BidderHistory(ctx context.Context, bidderID string, limit int) ([]models.Bid, error) {
	query := `
		SELECT id, auction_id, bidder_id, amount, accepted_at
		FROM bid_history
		WHERE bidder_id = $1
		ORDER BY accepted_at DESC
		LIMIT $2
	`
	return c.queryBids(ctx, query, bidderID, limit)
}

func (c *PostgresClient) queryBids(ctx context.Context, query string, args ...interface{}) ([]models.Bid, error) {
	rows, err := c.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query bids: %w", err)
	}
	defer rows.Close()

	var bids []models.Bid
	for rows.Next() {
		var b models.Bid
		if err := rows.Scan(&b.ID, &b.AuctionID, &b.BidderID, &b.Amount, &b.Timestamp); err != nil {
			return nil, fmt.Errorf("failed to scan bid: %w", err)
		}
		bids = append(bids, b)
	}
	return bids, rows.Err()
}

// Close closes the database connection.
func (c *PostgresClient) Close() error {
	return c.db.Close()
}
