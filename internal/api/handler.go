// Package api exposes the allocation service as JSON over HTTP.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/safar/fish-segments/internal/allocation"
	"github.com/safar/fish-segments/internal/models"
)

const maxBodyBytes = 1 << 20

type Options struct {
	Logger zerolog.Logger
	// Gatherer backs /metrics. Nil leaves the route unregistered.
	Gatherer prometheus.Gatherer
	// Ping backs /healthz. Nil always reports healthy.
	Ping func(ctx context.Context) error
	// AdminToken guards the order status endpoint. Empty disables it.
	AdminToken string
}

type Handler struct {
	svc  *allocation.Service
	log  zerolog.Logger
	ping func(ctx context.Context) error
}

func NewHandler(svc *allocation.Service, opts Options) http.Handler {
	h := &Handler{svc: svc, log: opts.Logger, ping: opts.Ping}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", h.handleHealth)
	if opts.Gatherer != nil {
		mux.Handle("GET /metrics", promhttp.HandlerFor(opts.Gatherer, promhttp.HandlerOpts{}))
	}

	mux.HandleFunc("GET /api/fish", h.handleListFish)
	mux.HandleFunc("GET /api/fish/{id}", h.handleFishDetail)
	mux.HandleFunc("POST /api/fish/{id}/quote", h.handleQuote)
	mux.Handle("POST /api/segments/reserve", RequireUser(http.HandlerFunc(h.handleReserve)))
	mux.Handle("POST /api/orders", RequireUser(http.HandlerFunc(h.handleCreateOrder)))
	mux.Handle("GET /api/orders", RequireUser(http.HandlerFunc(h.handleListOrders)))
	mux.Handle("GET /api/orders/{id}", RequireUser(http.HandlerFunc(h.handleGetOrder)))
	if opts.AdminToken != "" {
		mux.Handle("POST /admin/orders/{id}/status",
			RequireAdmin(opts.AdminToken, http.HandlerFunc(h.handleAdvanceStatus)))
	}

	return RequestLogger(h.log, mux)
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	if h.ping != nil {
		if err := h.ping(r.Context()); err != nil {
			h.log.Error().Err(err).Msg("health check failed")
			respondError(w, http.StatusServiceUnavailable, "database unreachable")
			return
		}
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) handleListFish(w http.ResponseWriter, r *http.Request) {
	fish, err := h.svc.ListFish(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, fish)
}

func (h *Handler) handleFishDetail(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid fish ID")
		return
	}

	detail, err := h.svc.GetFishDetail(r.Context(), id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, detail)
}

func (h *Handler) handleQuote(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid fish ID")
		return
	}

	var req struct {
		SegmentIDs []int64 `json:"segmentIds"`
	}
	if err := decodeBody(w, r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	quote, err := h.svc.QuoteSegments(r.Context(), id, req.SegmentIDs)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, quote)
}

func (h *Handler) handleReserve(w http.ResponseWriter, r *http.Request) {
	var req struct {
		SegmentIDs []int64 `json:"segmentIds"`
	}
	if err := decodeBody(w, r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	hold, err := h.svc.Reserve(r.Context(), UserID(r.Context()), req.SegmentIDs)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"success":      true,
		"reserveUntil": hold.ReservedUntil,
		"granted":      hold.Granted,
		"rejected":     hold.Rejected,
	})
}

type createOrderRequest struct {
	FishID          int64   `json:"fishId"`
	SegmentIDs      []int64 `json:"segmentIds"`
	CustomerName    string  `json:"customerName"`
	CustomerEmail   string  `json:"customerEmail"`
	CustomerPhone   string  `json:"customerPhone"`
	DeliveryAddress string  `json:"deliveryAddress"`
	DeliveryDate    string  `json:"deliveryDate"`
}

func (h *Handler) handleCreateOrder(w http.ResponseWriter, r *http.Request) {
	var req createOrderRequest
	if err := decodeBody(w, r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	customer := models.Customer{
		Name:            req.CustomerName,
		Email:           req.CustomerEmail,
		Phone:           req.CustomerPhone,
		DeliveryAddress: req.DeliveryAddress,
	}
	if req.DeliveryDate != "" {
		d, err := time.Parse(time.DateOnly, req.DeliveryDate)
		if err != nil {
			respondError(w, http.StatusBadRequest, "Invalid delivery date")
			return
		}
		customer.DeliveryDate = &d
	}

	order, err := h.svc.Commit(r.Context(), allocation.CommitRequest{
		UserID:     UserID(r.Context()),
		FishID:     req.FishID,
		SegmentIDs: req.SegmentIDs,
		Customer:   customer,
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}

	respondJSON(w, http.StatusCreated, map[string]any{
		"success":     true,
		"orderId":     order.ID,
		"orderNumber": order.OrderNumber,
		"totalWeight": order.TotalWeightKg,
		"totalPrice":  order.TotalPrice,
	})
}

// handleListOrders returns the full history, or one page when cursor or
// limit is given.
func (h *Handler) handleListOrders(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	q := r.URL.Query()

	if !q.Has("cursor") && !q.Has("limit") {
		orders, err := h.svc.ListOrdersForUser(ctx, UserID(ctx))
		if err != nil {
			h.fail(w, r, err)
			return
		}
		respondJSON(w, http.StatusOK, orders)
		return
	}

	limit, _ := strconv.Atoi(q.Get("limit"))
	page, err := h.svc.ListOrdersPage(ctx, UserID(ctx), q.Get("cursor"), limit)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, page)
}

func (h *Handler) handleGetOrder(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid order ID")
		return
	}

	order, err := h.svc.GetOrder(r.Context(), UserID(r.Context()), id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, order)
}

func (h *Handler) handleAdvanceStatus(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid order ID")
		return
	}

	var req struct {
		Status string `json:"status"`
	}
	if err := decodeBody(w, r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	to := models.ParseOrderStatus(req.Status)
	if to == models.OrderStatusUnknown {
		respondError(w, http.StatusBadRequest, "Invalid order status")
		return
	}

	order, err := h.svc.AdvanceOrderStatus(r.Context(), id, to)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, order)
}

// fail maps a service error onto a status code. Anything that is not a
// domain error is logged and reported without detail.
func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		h.log.Error().
			Err(err).
			Str("request_id", RequestID(r.Context())).
			Str("path", r.URL.Path).
			Msg("request failed")
		respondError(w, status, "Internal server error")
		return
	}
	respondError(w, status, err.Error())
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, allocation.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, allocation.ErrFishNotFound), errors.Is(err, allocation.ErrOrderNotFound):
		return http.StatusNotFound
	case errors.Is(err, allocation.ErrSegmentUnavailable),
		errors.Is(err, allocation.ErrInvalidStatusTransition),
		errors.Is(err, allocation.ErrOptimisticLockFailed):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}
