package orders

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/infotechopyra0-del/occult369-sub000/internal/httpx"
	"github.com/infotechopyra0-del/occult369-sub000/internal/middleware"
	"github.com/infotechopyra0-del/occult369-sub000/internal/models"
	"github.com/infotechopyra0-del/occult369-sub000/internal/transport"
	"github.com/infotechopyra0-del/occult369-sub000/internal/validation"
)

type Handler struct {
	service *Service
	val     *validation.Validator
	log     *slog.Logger
}

func NewHandler(service *Service, val *validation.Validator, log *slog.Logger) *Handler {
	return &Handler{
		service: service,
		val:     val,
		log:     log,
	}
}

// ListMine returns the authenticated user's own orders.
func (h *Handler) ListMine(w http.ResponseWriter, r *http.Request) {
	log := h.logWithRequest(r)
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		transport.WriteError(w, http.StatusUnauthorized, "unauthorized", nil)
		return
	}

	limit, offset, err := httpx.ParseLimitOffset(r.URL.Query(), 20, 100)
	if err != nil {
		transport.WriteError(w, http.StatusBadRequest, err.Error(), nil)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 8*time.Second)
	defer cancel()

	items, total, err := h.service.ListByUser(ctx, claims.UserID(), limit, offset)
	if err != nil {
		log.Error("orders list mine: database error", slog.String("error", err.Error()))
		transport.WriteError(w, http.StatusInternalServerError, "database error", nil)
		return
	}

	log.Info("orders list mine: ok", slog.Int("count", len(items)))
	transport.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"items":  h.service.ProjectAll(items),
		"limit":  limit,
		"offset": offset,
		"total":  total,
	})
}

// Get returns a single order to its owner or to an admin.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	log := h.logWithRequest(r)
	id := strings.TrimSpace(chi.URLParam(r, "id"))
	if id == "" {
		transport.WriteError(w, http.StatusBadRequest, "missing id", nil)
		return
	}

	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		transport.WriteError(w, http.StatusUnauthorized, "unauthorized", nil)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	order, err := h.service.Get(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			log.Warn("orders get: not found", slog.String("order_id", id))
			transport.WriteError(w, http.StatusNotFound, "order not found", nil)
			return
		}
		log.Error("orders get: database error", slog.String("error", err.Error()))
		transport.WriteError(w, http.StatusInternalServerError, "database error", nil)
		return
	}

	if claims.Role != models.UserRoleAdmin && order.UserID != claims.UserID() {
		log.Warn("orders get: forbidden", slog.String("order_id", id))
		transport.WriteError(w, http.StatusNotFound, "order not found", nil)
		return
	}

	log.Info("orders get: ok", slog.String("order_id", id))
	transport.WriteJSON(w, http.StatusOK, h.service.Project(order))
}

func (h *Handler) AdminList(w http.ResponseWriter, r *http.Request) {
	log := h.logWithRequest(r)
	limit, offset, err := httpx.ParseLimitOffset(r.URL.Query(), 20, 100)
	if err != nil {
		transport.WriteError(w, http.StatusBadRequest, err.Error(), nil)
		return
	}

	filter := ListFilter{
		Status:      r.URL.Query().Get("status"),
		ServiceType: r.URL.Query().Get("serviceType"),
		Search:      r.URL.Query().Get("q"),
	}

	ctx, cancel := context.WithTimeout(r.Context(), 8*time.Second)
	defer cancel()

	items, total, err := h.service.List(ctx, filter, limit, offset)
	if err != nil {
		if errors.Is(err, ErrInvalidStatus) {
			transport.WriteError(w, http.StatusBadRequest, "invalid query", map[string]string{"status": "oneof"})
			return
		}
		log.Error("admin orders list: database error", slog.String("error", err.Error()))
		transport.WriteError(w, http.StatusInternalServerError, "database error", nil)
		return
	}

	log.Info("admin orders list: ok", slog.Int("count", len(items)))
	transport.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"items":  h.service.ProjectAll(items),
		"limit":  limit,
		"offset": offset,
		"total":  total,
	})
}

func (h *Handler) AdminGet(w http.ResponseWriter, r *http.Request) {
	log := h.logWithRequest(r)
	id := strings.TrimSpace(chi.URLParam(r, "id"))
	if id == "" {
		transport.WriteError(w, http.StatusBadRequest, "missing id", nil)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	order, err := h.service.Get(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			log.Warn("admin orders get: not found", slog.String("order_id", id))
			transport.WriteError(w, http.StatusNotFound, "order not found", nil)
			return
		}
		log.Error("admin orders get: database error", slog.String("error", err.Error()))
		transport.WriteError(w, http.StatusInternalServerError, "database error", nil)
		return
	}

	log.Info("admin orders get: ok", slog.String("order_id", id))
	transport.WriteJSON(w, http.StatusOK, h.service.Project(order))
}

func (h *Handler) AdminUpdate(w http.ResponseWriter, r *http.Request) {
	log := h.logWithRequest(r)
	id := strings.TrimSpace(chi.URLParam(r, "id"))
	if id == "" {
		transport.WriteError(w, http.StatusBadRequest, "missing id", nil)
		return
	}

	var req AdminUpdateRequest
	if err := httpx.DecodeJSON(r.Body, &req); err != nil {
		log.Warn("admin orders update: invalid json")
		transport.WriteError(w, http.StatusBadRequest, "invalid json", nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		log.Warn("admin orders update: validation error")
		transport.WriteError(w, http.StatusBadRequest, "validation error", httpx.ValidationDetails(h.val.ValidationErrors(err)))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	order, err := h.service.AdminUpdate(ctx, id, req)
	if err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			log.Warn("admin orders update: not found", slog.String("order_id", id))
			transport.WriteError(w, http.StatusNotFound, "order not found", nil)
		case errors.Is(err, ErrInvalidStatus):
			transport.WriteError(w, http.StatusBadRequest, "validation error", map[string]string{"status": "oneof"})
		case errors.Is(err, ErrTerminal):
			log.Warn("admin orders update: terminal status", slog.String("order_id", id))
			transport.WriteError(w, http.StatusConflict, "order already in a terminal state", nil)
		case errors.Is(err, ErrConflict):
			log.Warn("admin orders update: concurrent transition", slog.String("order_id", id))
			transport.WriteError(w, http.StatusConflict, "order changed, reload and retry", nil)
		default:
			log.Error("admin orders update: database error", slog.String("error", err.Error()))
			transport.WriteError(w, http.StatusInternalServerError, "database error", nil)
		}
		return
	}

	log.Info("admin orders update: ok", slog.String("order_id", id), slog.String("status", order.Status))
	transport.WriteJSON(w, http.StatusOK, h.service.Project(order))
}

func (h *Handler) AdminDelete(w http.ResponseWriter, r *http.Request) {
	log := h.logWithRequest(r)
	id := strings.TrimSpace(chi.URLParam(r, "id"))
	if id == "" {
		transport.WriteError(w, http.StatusBadRequest, "missing id", nil)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	if err := h.service.Delete(ctx, id); err != nil {
		if errors.Is(err, ErrNotFound) {
			log.Warn("admin orders delete: not found", slog.String("order_id", id))
			transport.WriteError(w, http.StatusNotFound, "order not found", nil)
			return
		}
		log.Error("admin orders delete: database error", slog.String("error", err.Error()))
		transport.WriteError(w, http.StatusInternalServerError, "database error", nil)
		return
	}

	log.Info("admin orders delete: ok", slog.String("order_id", id))
	transport.WriteJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
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
