package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/infotechopyra0-del/occult369-sub000/internal/models"
	"github.com/infotechopyra0-del/occult369-sub000/internal/transport"
)

// GetServices lists the active catalog for the storefront. Responses are
// cached whole; admin writes invalidate the key.
func (s *Server) GetServices(w http.ResponseWriter, r *http.Request) {
	log := s.logWithRequest(r)

	category := strings.TrimSpace(r.URL.Query().Get("category"))
	featured := r.URL.Query().Get("featured") == "true"

	// Only the unfiltered list is cached; filtered reads are rare enough
	// to hit the database.
	cacheKey := "services:active"
	cacheable := category == "" && !featured

	if s.Cache != nil && cacheable {
		if cached, ok, err := s.Cache.Get(r.Context(), cacheKey); err == nil && ok {
			log.Info("services: cache hit")
			writeCachedJSON(w, http.StatusOK, cached)
			return
		}
	}

	query := bson.M{"active": true}
	if category != "" {
		query["category"] = category
	}
	if featured {
		query["featured"] = true
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	cursor, err := s.Cols.Services.Find(ctx, query, options.Find().SetSort(bson.D{{Key: "name", Value: 1}}))
	if err != nil {
		log.Error("services: database error", slog.String("error", err.Error()))
		transport.WriteError(w, http.StatusInternalServerError, "database error", nil)
		return
	}
	defer cursor.Close(ctx)

	items := make([]models.Service, 0)
	for cursor.Next(ctx) {
		var svc models.Service
		if err := cursor.Decode(&svc); err != nil {
			log.Error("services: decode error", slog.String("error", err.Error()))
			transport.WriteError(w, http.StatusInternalServerError, "decode error", nil)
			return
		}
		items = append(items, svc)
	}
	if err := cursor.Err(); err != nil {
		log.Error("services: cursor error", slog.String("error", err.Error()))
		transport.WriteError(w, http.StatusInternalServerError, "cursor error", nil)
		return
	}

	response := map[string]interface{}{
		"services": items,
	}

	if payload, err := encodeJSON(response); err == nil && s.Cache != nil && cacheable {
		_ = s.Cache.Set(r.Context(), cacheKey, payload, time.Duration(s.Cfg.CacheTTLSeconds)*time.Second)
	}

	log.Info("services: ok", slog.Int("count", len(items)))
	transport.WriteJSON(w, http.StatusOK, response)
}

// GetService returns a single active service by id or slug.
func (s *Server) GetService(w http.ResponseWriter, r *http.Request) {
	log := s.logWithRequest(r)
	id := strings.TrimSpace(chi.URLParam(r, "id"))
	if id == "" {
		transport.WriteError(w, http.StatusBadRequest, "missing id", nil)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	query := bson.M{"active": true, "$or": []bson.M{{"_id": id}, {"slug": id}}}

	var svc models.Service
	if err := s.Cols.Services.FindOne(ctx, query).Decode(&svc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			log.Warn("service get: not found", slog.String("service_id", id))
			transport.WriteError(w, http.StatusNotFound, "service not found", nil)
			return
		}
		log.Error("service get: database error", slog.String("error", err.Error()))
		transport.WriteError(w, http.StatusInternalServerError, "database error", nil)
		return
	}

	log.Info("service get: ok", slog.String("service_id", svc.ID))
	transport.WriteJSON(w, http.StatusOK, svc)
}

func (s *Server) invalidateServiceCache(ctx context.Context) {
	if s.Cache == nil {
		return
	}
	_ = s.Cache.Delete(ctx, "services:active")
}
