package payments

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/infotechopyra0-del/occult369-sub000/internal/httpx"
	"github.com/infotechopyra0-del/occult369-sub000/internal/middleware"
	"github.com/infotechopyra0-del/occult369-sub000/internal/orders"
	"github.com/infotechopyra0-del/occult369-sub000/internal/transport"
	"github.com/infotechopyra0-del/occult369-sub000/internal/validation"
)

type Handler struct {
	service  *Service
	orderSvc *orders.Service
	val      *validation.Validator
	log      *slog.Logger
}

func NewHandler(service *Service, orderSvc *orders.Service, val *validation.Validator, log *slog.Logger) *Handler {
	return &Handler{
		service:  service,
		orderSvc: orderSvc,
		val:      val,
		log:      log,
	}
}

// CreateOrder starts a checkout: it validates the buyer's details,
// creates the gateway order and a local pending order, and returns the
// widget configuration.
func (h *Handler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	log := h.logWithRequest(r)

	var req CheckoutRequest
	if err := httpx.DecodeJSON(r.Body, &req); err != nil {
		log.Warn("checkout: invalid json")
		transport.WriteError(w, http.StatusBadRequest, "invalid json", nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		log.Warn("checkout: validation error")
		transport.WriteError(w, http.StatusBadRequest, "validation error", httpx.ValidationDetails(h.val.ValidationErrors(err)))
		return
	}

	userID := ""
	if claims, ok := middleware.ClaimsFromContext(r.Context()); ok {
		userID = claims.UserID()
	}

	ctx, cancel := context.WithTimeout(r.Context(), 15*time.Second)
	defer cancel()

	config, err := h.service.Checkout(ctx, userID, req)
	if err != nil {
		switch {
		case errors.Is(err, ErrServiceNotFound):
			log.Warn("checkout: service not found", slog.String("service_id", req.ServiceID))
			transport.WriteError(w, http.StatusNotFound, "service not found", nil)
		case errors.Is(err, ErrServiceInactive):
			log.Warn("checkout: service inactive", slog.String("service_id", req.ServiceID))
			transport.WriteError(w, http.StatusBadRequest, "service not available", nil)
		case errors.Is(err, ErrPreferredDatePast):
			transport.WriteError(w, http.StatusBadRequest, "validation error", map[string]string{"preferredDate": "past"})
		case errors.Is(err, ErrPreferredSlotPast):
			transport.WriteError(w, http.StatusBadRequest, "validation error", map[string]string{"preferredTime": "past"})
		case errors.Is(err, ErrNotConfigured):
			log.Error("checkout: gateway not configured")
			transport.WriteError(w, http.StatusServiceUnavailable, "payments not configured", nil)
		case errors.Is(err, ErrGatewayUnavailable):
			log.Error("checkout: gateway unavailable", slog.String("error", err.Error()))
			transport.WriteError(w, http.StatusBadGateway, "payment gateway unavailable, please retry", nil)
		default:
			log.Error("checkout: database error", slog.String("error", err.Error()))
			transport.WriteError(w, http.StatusInternalServerError, "database error", nil)
		}
		return
	}

	log.Info("checkout: ok",
		slog.String("order_id", config.OrderID),
		slog.String("razorpay_order_id", config.GatewayOrderID),
		slog.Int("amount", config.Amount),
	)
	transport.WriteJSON(w, http.StatusCreated, config)
}

// Verify is the browser-callback landing: the order state is re-derived
// server-side from the signature, never from what the client claims.
func (h *Handler) Verify(w http.ResponseWriter, r *http.Request) {
	log := h.logWithRequest(r)

	var req VerifyRequest
	if err := httpx.DecodeJSON(r.Body, &req); err != nil {
		log.Warn("payment verify: invalid json")
		transport.WriteError(w, http.StatusBadRequest, "invalid json", nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		log.Warn("payment verify: validation error")
		transport.WriteError(w, http.StatusBadRequest, "validation error", httpx.ValidationDetails(h.val.ValidationErrors(err)))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 8*time.Second)
	defer cancel()

	order, err := h.service.VerifyAndComplete(ctx, req)
	if err != nil {
		switch {
		case errors.Is(err, ErrInvalidSignature):
			transport.WriteError(w, http.StatusBadRequest, "signature verification failed", nil)
		case errors.Is(err, orders.ErrNotFound):
			log.Warn("payment verify: unknown gateway order", slog.String("razorpay_order_id", req.RazorpayOrderID))
			transport.WriteError(w, http.StatusNotFound, "order not found", nil)
		case errors.Is(err, orders.ErrConflict):
			log.Warn("payment verify: conflicting callback",
				slog.String("razorpay_order_id", req.RazorpayOrderID),
				slog.String("stored_status", order.Status),
			)
			transport.WriteError(w, http.StatusConflict, "conflicting payment outcome", nil)
		default:
			log.Error("payment verify: database error", slog.String("error", err.Error()))
			transport.WriteError(w, http.StatusInternalServerError, "database error", nil)
		}
		return
	}

	log.Info("payment verify: completed",
		slog.String("order_id", order.ID),
		slog.String("razorpay_payment_id", order.RazorpayPaymentID),
	)
	transport.WriteJSON(w, http.StatusOK, h.orderSvc.Project(order))
}

// Failure records a gateway-reported payment failure.
func (h *Handler) Failure(w http.ResponseWriter, r *http.Request) {
	log := h.logWithRequest(r)

	var req FailureRequest
	if err := httpx.DecodeJSON(r.Body, &req); err != nil {
		log.Warn("payment failure: invalid json")
		transport.WriteError(w, http.StatusBadRequest, "invalid json", nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		log.Warn("payment failure: validation error")
		transport.WriteError(w, http.StatusBadRequest, "validation error", httpx.ValidationDetails(h.val.ValidationErrors(err)))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 8*time.Second)
	defer cancel()

	order, err := h.service.RecordFailure(ctx, req)
	if err != nil {
		switch {
		case errors.Is(err, orders.ErrNotFound):
			transport.WriteError(w, http.StatusNotFound, "order not found", nil)
		case errors.Is(err, orders.ErrConflict):
			log.Warn("payment failure: conflicting callback",
				slog.String("razorpay_order_id", req.RazorpayOrderID),
				slog.String("stored_status", order.Status),
			)
			transport.WriteError(w, http.StatusConflict, "conflicting payment outcome", nil)
		default:
			log.Error("payment failure: database error", slog.String("error", err.Error()))
			transport.WriteError(w, http.StatusInternalServerError, "database error", nil)
		}
		return
	}

	log.Info("payment failure: recorded",
		slog.String("order_id", order.ID),
		slog.String("reason", order.FailureReason),
	)
	transport.WriteJSON(w, http.StatusOK, h.orderSvc.Project(order))
}

// Webhook consumes gateway deliveries. It always answers 200 for
// well-formed, verified events so the gateway stops retrying.
func (h *Handler) Webhook(w http.ResponseWriter, r *http.Request) {
	log := h.logWithRequest(r)

	body, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	if err != nil {
		transport.WriteError(w, http.StatusBadRequest, "invalid body", nil)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 8*time.Second)
	defer cancel()

	order, err := h.service.HandleWebhook(ctx, body, r.Header.Get("X-Razorpay-Signature"))
	if err != nil {
		switch {
		case errors.Is(err, ErrInvalidSignature):
			transport.WriteError(w, http.StatusBadRequest, "signature verification failed", nil)
		case errors.Is(err, orders.ErrNotFound):
			log.Warn("webhook: unknown gateway order")
			transport.WriteError(w, http.StatusNotFound, "order not found", nil)
		case errors.Is(err, orders.ErrConflict):
			// Logged for manual review; the stored state is kept.
			log.Warn("webhook: conflicting delivery", slog.String("stored_status", order.Status))
			transport.WriteJSON(w, http.StatusOK, map[string]string{"status": "ignored"})
		default:
			log.Error("webhook: database error", slog.String("error", err.Error()))
			transport.WriteError(w, http.StatusInternalServerError, "database error", nil)
		}
		return
	}

	log.Info("webhook: processed", slog.String("order_id", order.ID), slog.String("status", order.Status))
	transport.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) logWithRequest(r *http.Request) *slog.Logger {
	if r == nil {
		return h.log
	}
	if id := middleware.RequestIDFromContext(r.Context()); id != "" {
		return h.log.With(slog.String("request_id", id))
	}
	return h.log
}
