package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/infotechopyra0-del/occult369-sub000/internal/httpx"
	"github.com/infotechopyra0-del/occult369-sub000/internal/models"
	"github.com/infotechopyra0-del/occult369-sub000/internal/transport"
	"github.com/infotechopyra0-del/occult369-sub000/internal/utils"
)

type AdminServiceRequest struct {
	Name             string `json:"name" validate:"required"`
	ShortDescription string `json:"shortDescription"`
	Description      string `json:"description" validate:"required"`
	Price            int    `json:"price" validate:"required,gt=0"`
	Image            string `json:"image" validate:"omitempty,url"`
	Category         string `json:"category" validate:"required"`
	DurationMinutes  int    `json:"durationMinutes" validate:"omitempty,gt=0"`
	Active           *bool  `json:"active"`
	Featured         bool   `json:"featured"`
	Slug             string `json:"slug"`
}

// AdminListServices returns the full catalog, inactive entries included.
func (s *Server) AdminListServices(w http.ResponseWriter, r *http.Request) {
	log := s.logWithRequest(r)

	limit, offset, err := httpx.ParseLimitOffset(r.URL.Query(), 50, 200)
	if err != nil {
		transport.WriteError(w, http.StatusBadRequest, err.Error(), nil)
		return
	}

	query := bson.M{}
	if category := strings.TrimSpace(r.URL.Query().Get("category")); category != "" {
		query["category"] = category
	}
	if search := strings.TrimSpace(r.URL.Query().Get("q")); search != "" {
		query["name"] = bson.M{"$regex": regexp.QuoteMeta(search), "$options": "i"}
	}

	ctx, cancel := context.WithTimeout(r.Context(), 8*time.Second)
	defer cancel()

	opts := options.Find().
		SetSort(bson.D{{Key: "name", Value: 1}}).
		SetLimit(limit).
		SetSkip(offset)

	cursor, err := s.Cols.Services.Find(ctx, query, opts)
	if err != nil {
		log.Error("admin services list: database error", slog.String("error", err.Error()))
		transport.WriteError(w, http.StatusInternalServerError, "database error", nil)
		return
	}
	defer cursor.Close(ctx)

	items := make([]models.Service, 0)
	for cursor.Next(ctx) {
		var svc models.Service
		if err := cursor.Decode(&svc); err != nil {
			log.Error("admin services list: decode error", slog.String("error", err.Error()))
			transport.WriteError(w, http.StatusInternalServerError, "decode error", nil)
			return
		}
		items = append(items, svc)
	}
	if err := cursor.Err(); err != nil {
		log.Error("admin services list: cursor error", slog.String("error", err.Error()))
		transport.WriteError(w, http.StatusInternalServerError, "cursor error", nil)
		return
	}

	total, err := s.Cols.Services.CountDocuments(ctx, query)
	if err != nil {
		log.Error("admin services list: database error", slog.String("error", err.Error()))
		transport.WriteError(w, http.StatusInternalServerError, "database error", nil)
		return
	}

	log.Info("admin services list: ok", slog.Int("count", len(items)))
	transport.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"items":  items,
		"limit":  limit,
		"offset": offset,
		"total":  total,
	})
}

func (s *Server) AdminCreateService(w http.ResponseWriter, r *http.Request) {
	log := s.logWithRequest(r)
	var req AdminServiceRequest
	if err := decodeJSON(r, &req); err != nil {
		log.Warn("admin services create: invalid json")
		transport.WriteError(w, http.StatusBadRequest, "invalid json", nil)
		return
	}
	if err := s.Val.Struct(req); err != nil {
		log.Warn("admin services create: validation error")
		transport.WriteError(w, http.StatusBadRequest, "validation error", validationDetails(s.Val.ValidationErrors(err)))
		return
	}

	slug := req.Slug
	if slug == "" {
		slug = utils.Slugify(req.Name)
	}

	active := true
	if req.Active != nil {
		active = *req.Active
	}

	now := time.Now().In(s.Cfg.Timezone)
	service := models.Service{
		ID:               primitive.NewObjectID().Hex(),
		Name:             req.Name,
		ShortDescription: req.ShortDescription,
		Description:      req.Description,
		Price:            req.Price,
		Image:            req.Image,
		Category:         req.Category,
		DurationMinutes:  req.DurationMinutes,
		Active:           active,
		Featured:         req.Featured,
		Slug:             slug,
		CreatedAt:        now,
		UpdatedAt:        now,
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	if _, err := s.Cols.Services.InsertOne(ctx, service); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			log.Warn("admin services create: slug exists", slog.String("slug", slug))
			transport.WriteError(w, http.StatusConflict, "slug already exists", nil)
			return
		}
		log.Error("admin services create: database error", slog.String("error", err.Error()))
		transport.WriteError(w, http.StatusInternalServerError, "database error", nil)
		return
	}

	s.invalidateServiceCache(r.Context())

	log.Info("admin services create: ok", slog.String("service_id", service.ID), slog.String("slug", slug))
	transport.WriteJSON(w, http.StatusCreated, service)
}

func (s *Server) AdminUpdateService(w http.ResponseWriter, r *http.Request) {
	log := s.logWithRequest(r)
	id := chi.URLParam(r, "id")
	if id == "" {
		transport.WriteError(w, http.StatusBadRequest, "missing id", nil)
		return
	}

	var req AdminServiceRequest
	if err := decodeJSON(r, &req); err != nil {
		log.Warn("admin services update: invalid json")
		transport.WriteError(w, http.StatusBadRequest, "invalid json", nil)
		return
	}
	if err := s.Val.Struct(req); err != nil {
		log.Warn("admin services update: validation error")
		transport.WriteError(w, http.StatusBadRequest, "validation error", validationDetails(s.Val.ValidationErrors(err)))
		return
	}

	slug := req.Slug
	if slug == "" {
		slug = utils.Slugify(req.Name)
	}

	active := true
	if req.Active != nil {
		active = *req.Active
	}

	update := bson.M{
		"$set": bson.M{
			"name":             req.Name,
			"shortDescription": req.ShortDescription,
			"description":      req.Description,
			"price":            req.Price,
			"image":            req.Image,
			"category":         req.Category,
			"durationMinutes":  req.DurationMinutes,
			"active":           active,
			"featured":         req.Featured,
			"slug":             slug,
			"updatedAt":        time.Now().In(s.Cfg.Timezone),
		},
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var updated models.Service
	if err := s.Cols.Services.FindOneAndUpdate(ctx, bson.M{"_id": id}, update, opts).Decode(&updated); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			log.Warn("admin services update: not found", slog.String("service_id", id))
			transport.WriteError(w, http.StatusNotFound, "service not found", nil)
			return
		}
		if mongo.IsDuplicateKeyError(err) {
			log.Warn("admin services update: slug exists", slog.String("slug", slug))
			transport.WriteError(w, http.StatusConflict, "slug already exists", nil)
			return
		}
		log.Error("admin services update: database error", slog.String("error", err.Error()))
		transport.WriteError(w, http.StatusInternalServerError, "database error", nil)
		return
	}

	s.invalidateServiceCache(r.Context())

	log.Info("admin services update: ok", slog.String("service_id", id))
	transport.WriteJSON(w, http.StatusOK, updated)
}

func (s *Server) AdminDeleteService(w http.ResponseWriter, r *http.Request) {
	log := s.logWithRequest(r)
	id := chi.URLParam(r, "id")
	if id == "" {
		transport.WriteError(w, http.StatusBadRequest, "missing id", nil)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	res, err := s.Cols.Services.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		log.Error("admin services delete: database error", slog.String("error", err.Error()))
		transport.WriteError(w, http.StatusInternalServerError, "database error", nil)
		return
	}
	if res.DeletedCount == 0 {
		log.Warn("admin services delete: not found", slog.String("service_id", id))
		transport.WriteError(w, http.StatusNotFound, "service not found", nil)
		return
	}

	s.invalidateServiceCache(r.Context())

	log.Info("admin services delete: ok", slog.String("service_id", id))
	transport.WriteJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}
