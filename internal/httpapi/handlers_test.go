package httpapi

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/Indu2002-se/AuctionWeb/internal/clock"
	"github.com/Indu2002-se/AuctionWeb/internal/models"
	"github.com/Indu2002-se/AuctionWeb/internal/notify"
	"github.com/Indu2002-se/AuctionWeb/internal/service"
	"github.com/Indu2002-se/AuctionWeb/internal/store/memory"
)

var t0 = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func setupTestAPI(t *testing.T) (http.Handler, *memory.Store) {
	t.Helper()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	st := memory.New(clock.NewFixed(t0))
	ledger := service.NewBidLedger(st, notify.NewRecorder(), clock.NewFixed(t0), log)
	return NewHandler(ledger, log).SetupRoutes(), st
}

func createActiveAuction(t *testing.T, st *memory.Store) models.Auction {
	t.Helper()
	a, err := st.CreateAuction(context.Background(), models.Auction{
		ID: "a1", SellerID: "seller", Name: "Painting", StartingPrice: 100,
		StartTime: t0, EndTime: t0.Add(72 * time.Hour),
	})
	require.NoError(t, err)
	ok, err := st.TransitionStatus(context.Background(), a.ID, models.StatusPending, models.StatusActive, t0)
	require.NoError(t, err)
	require.True(t, ok)
	return a
}

func doRequest(router http.Handler, method, path, userID, role, body string) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if userID != "" {
		req.Header.Set("X-User-ID", userID)
	}
	if role != "" {
		req.Header.Set("X-User-Role", role)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestHealthCheck(t *testing.T) {
	router, _ := setupTestAPI(t)
	w := doRequest(router, "GET", "/health", "", "", "")
	require.Equal(t, http.StatusOK, w.Code)
}

func TestCreateAuction(t *testing.T) {
	router, _ := setupTestAPI(t)

	body := `{"name":"Vase","starting_price":50,"start_time":"2025-06-02T12:00:00Z","end_time":"2025-06-05T12:00:00Z"}`
	w := doRequest(router, "POST", "/api/v1/auctions", "seller-1", models.RoleSeller, body)
	require.Equal(t, http.StatusCreated, w.Code)

	var created models.Auction
	require.NoError(t, json.NewDecoder(w.Body).Decode(&created))
	require.Equal(t, "seller-1", created.SellerID)
	require.Equal(t, models.StatusPending, created.Status)
	require.Equal(t, 50.0, created.CurrentPrice)

	// Without identity the request is rejected.
	w = doRequest(router, "POST", "/api/v1/auctions", "", "", body)
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetAuction(t *testing.T) {
	router, st := setupTestAPI(t)
	a := createActiveAuction(t, st)

	w := doRequest(router, "GET", "/api/v1/auctions/"+a.ID, "", "", "")
	require.Equal(t, http.StatusOK, w.Code)

	var got models.Auction
	require.NoError(t, json.NewDecoder(w.Body).Decode(&got))
	require.Equal(t, a.ID, got.ID)

	w = doRequest(router, "GET", "/api/v1/auctions/missing", "", "", "")
	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestListActiveAuctions(t *testing.T) {
	router, st := setupTestAPI(t)

	w := doRequest(router, "GET", "/api/v1/auctions", "", "", "")
	require.Equal(t, http.StatusOK, w.Code)
	var auctions []models.Auction
	require.NoError(t, json.NewDecoder(w.Body).Decode(&auctions))
	require.Empty(t, auctions)

	a := createActiveAuction(t, st)
	// A pending listing must not show up alongside the active one.
	_, err := st.CreateAuction(context.Background(), models.Auction{
		ID: "a2", SellerID: "seller", Name: "Clock", StartingPrice: 10,
		StartTime: t0.Add(time.Hour), EndTime: t0.Add(72 * time.Hour),
	})
	require.NoError(t, err)

	w = doRequest(router, "GET", "/api/v1/auctions", "", "", "")
	require.Equal(t, http.StatusOK, w.Code)
	auctions = nil
	require.NoError(t, json.NewDecoder(w.Body).Decode(&auctions))
	require.Len(t, auctions, 1)
	require.Equal(t, a.ID, auctions[0].ID)
}

func TestPlaceBid(t *testing.T) {
	router, st := setupTestAPI(t)
	a := createActiveAuction(t, st)

	w := doRequest(router, "POST", "/api/v1/auctions/"+a.ID+"/bids", "b1", models.RoleBidder, `{"amount":150}`)
	require.Equal(t, http.StatusCreated, w.Code)

	var resp models.BidResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	require.True(t, resp.Success)
	require.NotNil(t, resp.Bid)
	require.Equal(t, 150.0, resp.Bid.Amount)
	require.True(t, resp.IsHighest)
}

func TestPlaceBidFailures(t *testing.T) {
	router, st := setupTestAPI(t)
	a := createActiveAuction(t, st)
	bidPath := "/api/v1/auctions/" + a.ID + "/bids"

	tests := []struct {
		name   string
		userID string
		role   string
		body   string
		status int
	}{
		{"missing identity", "", "", `{"amount":150}`, http.StatusBadRequest},
		{"wrong role", "b1", models.RoleSeller, `{"amount":150}`, http.StatusForbidden},
		{"non-positive amount", "b1", models.RoleBidder, `{"amount":-5}`, http.StatusBadRequest},
		{"bad body", "b1", models.RoleBidder, `{`, http.StatusBadRequest},
		{"self bid", "seller", models.RoleBidder, `{"amount":150}`, http.StatusUnprocessableEntity},
		{"too low", "b1", models.RoleBidder, `{"amount":100}`, http.StatusUnprocessableEntity},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			w := doRequest(router, "POST", bidPath, tc.userID, tc.role, tc.body)
			require.Equal(t, tc.status, w.Code)
		})
	}

	w := doRequest(router, "POST", "/api/v1/auctions/missing/bids", "b1", models.RoleBidder, `{"amount":150}`)
	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestHighestBidAndCount(t *testing.T) {
	router, st := setupTestAPI(t)
	a := createActiveAuction(t, st)
	base := "/api/v1/auctions/" + a.ID

	// No bids yet: empty highest, zero count.
	w := doRequest(router, "GET", base+"/bids/highest", "", "", "")
	require.Equal(t, http.StatusNoContent, w.Code)

	w = doRequest(router, "GET", base+"/bids/count", "", "", "")
	require.Equal(t, http.StatusOK, w.Code)
	require.JSONEq(t, `{"count":0}`, w.Body.String())

	doRequest(router, "POST", base+"/bids", "b1", models.RoleBidder, `{"amount":150}`)
	doRequest(router, "POST", base+"/bids", "b2", models.RoleBidder, `{"amount":200}`)

	w = doRequest(router, "GET", base+"/bids/highest", "", "", "")
	require.Equal(t, http.StatusOK, w.Code)
	var highest models.Bid
	require.NoError(t, json.NewDecoder(w.Body).Decode(&highest))
	require.Equal(t, "b2", highest.BidderID)
	require.Equal(t, 200.0, highest.Amount)

	w = doRequest(router, "GET", base+"/bids/count", "", "", "")
	require.JSONEq(t, `{"count":2}`, w.Body.String())
}

func TestListBids(t *testing.T) {
	router, st := setupTestAPI(t)
	a := createActiveAuction(t, st)
	base := "/api/v1/auctions/" + a.ID

	doRequest(router, "POST", base+"/bids", "b1", models.RoleBidder, `{"amount":150}`)
	doRequest(router, "POST", base+"/bids", "b2", models.RoleBidder, `{"amount":200}`)
	doRequest(router, "POST", base+"/bids", "b1", models.RoleBidder, `{"amount":250}`)

	w := doRequest(router, "GET", base+"/bids", "", "", "")
	require.Equal(t, http.StatusOK, w.Code)
	var bids []models.Bid
	require.NoError(t, json.NewDecoder(w.Body).Decode(&bids))
	require.Len(t, bids, 3)
	require.Equal(t, 250.0, bids[0].Amount)

	w = doRequest(router, "GET", "/api/v1/bidders/b1/bids", "", "", "")
	require.Equal(t, http.StatusOK, w.Code)
	bids = nil
	require.NoError(t, json.NewDecoder(w.Body).Decode(&bids))
	require.Len(t, bids, 2)
}
