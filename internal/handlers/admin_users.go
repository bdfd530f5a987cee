package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/infotechopyra0-del/occult369-sub000/internal/httpx"
	"github.com/infotechopyra0-del/occult369-sub000/internal/middleware"
	"github.com/infotechopyra0-del/occult369-sub000/internal/models"
	"github.com/infotechopyra0-del/occult369-sub000/internal/transport"
)

type AdminUserRoleRequest struct {
	Role string `json:"role" validate:"required,oneof=user admin"`
}

func (s *Server) AdminListUsers(w http.ResponseWriter, r *http.Request) {
	log := s.logWithRequest(r)

	limit, offset, err := httpx.ParseLimitOffset(r.URL.Query(), 20, 100)
	if err != nil {
		transport.WriteError(w, http.StatusBadRequest, err.Error(), nil)
		return
	}

	query := bson.M{}
	if role := strings.TrimSpace(r.URL.Query().Get("role")); role != "" {
		query["role"] = role
	}
	if q := strings.TrimSpace(r.URL.Query().Get("q")); q != "" {
		pattern := bson.M{"$regex": regexp.QuoteMeta(q), "$options": "i"}
		query["$or"] = []bson.M{{"name": pattern}, {"email": pattern}}
	}

	ctx, cancel := context.WithTimeout(r.Context(), 8*time.Second)
	defer cancel()

	opts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}}).
		SetLimit(limit).
		SetSkip(offset)

	cursor, err := s.Cols.Users.Find(ctx, query, opts)
	if err != nil {
		log.Error("admin users list: database error", slog.String("error", err.Error()))
		transport.WriteError(w, http.StatusInternalServerError, "database error", nil)
		return
	}
	defer cursor.Close(ctx)

	items := make([]models.User, 0)
	for cursor.Next(ctx) {
		var u models.User
		if err := cursor.Decode(&u); err != nil {
			log.Error("admin users list: decode error", slog.String("error", err.Error()))
			transport.WriteError(w, http.StatusInternalServerError, "decode error", nil)
			return
		}
		items = append(items, u)
	}
	if err := cursor.Err(); err != nil {
		log.Error("admin users list: cursor error", slog.String("error", err.Error()))
		transport.WriteError(w, http.StatusInternalServerError, "cursor error", nil)
		return
	}

	total, err := s.Cols.Users.CountDocuments(ctx, query)
	if err != nil {
		log.Error("admin users list: database error", slog.String("error", err.Error()))
		transport.WriteError(w, http.StatusInternalServerError, "database error", nil)
		return
	}

	log.Info("admin users list: ok", slog.Int("count", len(items)))
	transport.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"items":  items,
		"limit":  limit,
		"offset": offset,
		"total":  total,
	})
}

func (s *Server) AdminUpdateUserRole(w http.ResponseWriter, r *http.Request) {
	log := s.logWithRequest(r)
	id := strings.TrimSpace(chi.URLParam(r, "id"))
	if id == "" {
		transport.WriteError(w, http.StatusBadRequest, "missing id", nil)
		return
	}

	var req AdminUserRoleRequest
	if err := decodeJSON(r, &req); err != nil {
		log.Warn("admin users role: invalid json")
		transport.WriteError(w, http.StatusBadRequest, "invalid json", nil)
		return
	}
	if err := s.Val.Struct(req); err != nil {
		log.Warn("admin users role: validation error")
		transport.WriteError(w, http.StatusBadRequest, "validation error", validationDetails(s.Val.ValidationErrors(err)))
		return
	}

	// An admin demoting themselves locks the console with no way back
	// from the API, so reject it.
	if claims, ok := middleware.ClaimsFromContext(r.Context()); ok && claims.UserID() == id && req.Role != models.UserRoleAdmin {
		log.Warn("admin users role: self demotion rejected", slog.String("user_id", id))
		transport.WriteError(w, http.StatusConflict, "cannot change own role", nil)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	update := bson.M{"$set": bson.M{
		"role":      req.Role,
		"updatedAt": time.Now().In(s.Cfg.Timezone),
	}}
	res, err := s.Cols.Users.UpdateOne(ctx, bson.M{"_id": id}, update)
	if err != nil {
		log.Error("admin users role: database error", slog.String("error", err.Error()))
		transport.WriteError(w, http.StatusInternalServerError, "database error", nil)
		return
	}
	if res.MatchedCount == 0 {
		log.Warn("admin users role: not found", slog.String("user_id", id))
		transport.WriteError(w, http.StatusNotFound, "user not found", nil)
		return
	}

	log.Info("admin users role: ok", slog.String("user_id", id), slog.String("role", req.Role))
	transport.WriteJSON(w, http.StatusOK, map[string]string{"status": "updated"})
}
