// Package httpapi is the thin HTTP surface over the bid ledger. Identity
// arrives as X-User-ID / X-User-Role headers from the upstream identity
// provider and is trusted as given.
package httpapi

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/Indu2002-se/AuctionWeb/internal/models"
	"github.com/Indu2002-se/AuctionWeb/internal/service"
)

const (
	headerUserID   = "X-User-ID"
	headerUserRole = "X-User-Role"
)

// Handler contains the HTTP request handlers.
type Handler struct {
	ledger *service.BidLedger
	log    *slog.Logger
}

func NewHandler(ledger *service.BidLedger, log *slog.Logger) *Handler {
	return &Handler{ledger: ledger, log: log}
}

// SetupRoutes configures all HTTP routes.
func (h *Handler) SetupRoutes() *mux.Router {
	router := mux.NewRouter()

	router.HandleFunc("/health", h.HealthCheck).Methods("GET")

	api := router.PathPrefix("/api/v1").Subrouter()
	api.HandleFunc("/auctions", h.CreateAuction).Methods("POST")
	api.HandleFunc("/auctions", h.ListActiveAuctions).Methods("GET")
	api.HandleFunc("/auctions/{id}", h.GetAuction).Methods("GET")
	api.HandleFunc("/auctions/{id}/bids", h.PlaceBid).Methods("POST")
	api.HandleFunc("/auctions/{id}/bids", h.ListBids).Methods("GET")
	api.HandleFunc("/auctions/{id}/bids/highest", h.GetHighestBid).Methods("GET")
	api.HandleFunc("/auctions/{id}/bids/count", h.GetBidCount).Methods("GET")
	api.HandleFunc("/bidders/{id}/bids", h.ListBidderBids).Methods("GET")

	router.Use(h.loggingMiddleware)

	return router
}

// HealthCheck returns service health status.
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status":  "healthy",
		"service": "auction-engine",
		"time":    time.Now().UTC().Format(time.RFC3339),
	})
}

// CreateAuction is the catalog contract: listings enter pending at their
// starting price.
func (h *Handler) CreateAuction(w http.ResponseWriter, r *http.Request) {
	sellerID := r.Header.Get(headerUserID)
	if sellerID == "" {
		respondError(w, http.StatusBadRequest, "User identity is required")
		return
	}

	var a models.Auction
	if err := json.NewDecoder(r.Body).Decode(&a); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	a.SellerID = sellerID

	created, err := h.ledger.CreateAuction(r.Context(), a)
	if err != nil {
		h.respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, created)
}

// ListActiveAuctions returns the auctions currently open for bidding.
func (h *Handler) ListActiveAuctions(w http.ResponseWriter, r *http.Request) {
	auctions, err := h.ledger.ActiveAuctions(r.Context())
	if err != nil {
		h.respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, auctions)
}

// GetAuction returns a snapshot of one auction.
func (h *Handler) GetAuction(w http.ResponseWriter, r *http.Request) {
	auctionID := mux.Vars(r)["id"]
	a, err := h.ledger.GetAuction(r.Context(), auctionID)
	if err != nil {
		h.respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, a)
}

// PlaceBid handles bid placement requests.
func (h *Handler) PlaceBid(w http.ResponseWriter, r *http.Request) {
	auctionID := mux.Vars(r)["id"]
	bidderID := r.Header.Get(headerUserID)
	role := r.Header.Get(headerUserRole)

	if bidderID == "" {
		respondError(w, http.StatusBadRequest, "User identity is required")
		return
	}

	var req models.BidRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Amount <= 0 {
		respondError(w, http.StatusBadRequest, "Bid amount must be positive")
		return
	}

	bid, err := h.ledger.PlaceBid(r.Context(), auctionID, bidderID, req.Amount, role)
	if err != nil {
		a, gerr := h.ledger.GetAuction(r.Context(), auctionID)
		resp := models.BidResponse{
			Success: false,
			Message: err.Error(),
			YourBid: req.Amount,
		}
		if gerr == nil {
			resp.CurrentBid = a.CurrentPrice
		}
		respondJSON(w, statusForError(err), resp)
		return
	}

	respondJSON(w, http.StatusCreated, models.BidResponse{
		Success:    true,
		Message:    "Bid placed successfully!",
		Bid:        &bid,
		CurrentBid: bid.Amount,
		YourBid:    bid.Amount,
		IsHighest:  true,
	})
}

// GetHighestBid returns the highest bid, or an empty body when the
// auction has no bids yet.
func (h *Handler) GetHighestBid(w http.ResponseWriter, r *http.Request) {
	auctionID := mux.Vars(r)["id"]
	bid, ok, err := h.ledger.HighestBid(r.Context(), auctionID)
	if err != nil {
		h.respondDomainError(w, err)
		return
	}
	if !ok {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	respondJSON(w, http.StatusOK, bid)
}

// GetBidCount returns the number of accepted bids on an auction.
func (h *Handler) GetBidCount(w http.ResponseWriter, r *http.Request) {
	auctionID := mux.Vars(r)["id"]
	count, err := h.ledger.BidCount(r.Context(), auctionID)
	if err != nil {
		h.respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]int{"count": count})
}

// ListBids returns an auction's accepted bids, newest first.
func (h *Handler) ListBids(w http.ResponseWriter, r *http.Request) {
	auctionID := mux.Vars(r)["id"]
	bids, err := h.ledger.BidsForAuction(r.Context(), auctionID)
	if err != nil {
		h.respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, bids)
}

// ListBidderBids returns a bidder's accepted bids across all auctions,
// newest first.
func (h *Handler) ListBidderBids(w http.ResponseWriter, r *http.Request) {
	bidderID := mux.Vars(r)["id"]
	bids, err := h.ledger.BidsForBidder(r.Context(), bidderID)
	if err != nil {
		h.respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, bids)
}

// statusForError maps the domain taxonomy onto HTTP status codes.
// ErrConflict is checked first: a conflict may wrap the re-validation
// failure it lost to.
func statusForError(err error) int {
	switch {
	case errors.Is(err, models.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, models.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, models.ErrUnauthorized):
		return http.StatusForbidden
	case errors.Is(err, models.ErrSelfBid),
		errors.Is(err, models.ErrInvalidState),
		errors.Is(err, models.ErrOutOfWindow),
		errors.Is(err, models.ErrBidTooLow):
		return http.StatusUnprocessableEntity
	case errors.Is(err, models.ErrInvalidAuction), errors.Is(err, models.ErrAuctionExists):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func (h *Handler) respondDomainError(w http.ResponseWriter, err error) {
	status := statusForError(err)
	if status == http.StatusInternalServerError {
		h.log.Error("request failed", "err", err)
		respondError(w, status, "Internal error")
		return
	}
	respondError(w, status, err.Error())
}

// respondJSON sends a JSON response.
func respondJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(data)
}

// respondError sends an error response.
func respondError(w http.ResponseWriter, statusCode int, message string) {
	respondJSON(w, statusCode, map[string]string{
		"error": message,
	})
}

// loggingMiddleware logs all HTTP requests.
func (h *Handler) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		h.log.Info("request",
			"method", r.Method,
			"path", r.RequestURI,
			"duration", time.Since(start).String())
	})
}
