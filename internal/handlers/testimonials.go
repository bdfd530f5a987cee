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
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/infotechopyra0-del/occult369-sub000/internal/httpx"
	"github.com/infotechopyra0-del/occult369-sub000/internal/models"
	"github.com/infotechopyra0-del/occult369-sub000/internal/transport"
)

const testimonialsCacheKey = "testimonials:approved"

type TestimonialRequest struct {
	Name      string `json:"name" validate:"required,min=2"`
	Rating    int    `json:"rating" validate:"required,min=1,max=5"`
	Message   string `json:"message" validate:"required,max=2000"`
	ServiceID string `json:"serviceId"`
}

// GetTestimonials returns approved testimonials only, newest first.
func (s *Server) GetTestimonials(w http.ResponseWriter, r *http.Request) {
	log := s.logWithRequest(r)

	ctx, cancel := context.WithTimeout(r.Context(), 8*time.Second)
	defer cancel()

	if s.Cache != nil {
		if payload, ok, err := s.Cache.Get(ctx, testimonialsCacheKey); err == nil && ok {
			writeCachedJSON(w, http.StatusOK, payload)
			return
		}
	}

	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	cursor, err := s.Cols.Testimonials.Find(ctx, bson.M{"approved": true}, opts)
	if err != nil {
		log.Error("testimonials list: database error", slog.String("error", err.Error()))
		transport.WriteError(w, http.StatusInternalServerError, "database error", nil)
		return
	}
	defer cursor.Close(ctx)

	items := make([]models.Testimonial, 0)
	for cursor.Next(ctx) {
		var t models.Testimonial
		if err := cursor.Decode(&t); err != nil {
			log.Error("testimonials list: decode error", slog.String("error", err.Error()))
			transport.WriteError(w, http.StatusInternalServerError, "decode error", nil)
			return
		}
		items = append(items, t)
	}
	if err := cursor.Err(); err != nil {
		log.Error("testimonials list: cursor error", slog.String("error", err.Error()))
		transport.WriteError(w, http.StatusInternalServerError, "cursor error", nil)
		return
	}

	payload, err := encodeJSON(items)
	if err != nil {
		log.Error("testimonials list: encode error", slog.String("error", err.Error()))
		transport.WriteError(w, http.StatusInternalServerError, "encode error", nil)
		return
	}
	if s.Cache != nil {
		_ = s.Cache.Set(ctx, testimonialsCacheKey, payload, time.Duration(s.Cfg.CacheTTLSeconds)*time.Second)
	}
	writeCachedJSON(w, http.StatusOK, payload)
}

// CreateTestimonial stores a visitor testimonial. New entries are held
// for moderation and stay out of the public list until approved.
func (s *Server) CreateTestimonial(w http.ResponseWriter, r *http.Request) {
	log := s.logWithRequest(r)
	var req TestimonialRequest
	if err := decodeJSON(r, &req); err != nil {
		log.Warn("testimonial create: invalid json")
		transport.WriteError(w, http.StatusBadRequest, "invalid json", nil)
		return
	}
	if err := s.Val.Struct(req); err != nil {
		log.Warn("testimonial create: validation error")
		transport.WriteError(w, http.StatusBadRequest, "validation error", validationDetails(s.Val.ValidationErrors(err)))
		return
	}

	testimonial := models.Testimonial{
		ID:        primitive.NewObjectID().Hex(),
		Name:      strings.TrimSpace(req.Name),
		Rating:    req.Rating,
		Message:   strings.TrimSpace(req.Message),
		ServiceID: strings.TrimSpace(req.ServiceID),
		Approved:  false,
		CreatedAt: time.Now().In(s.Cfg.Timezone),
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	if _, err := s.Cols.Testimonials.InsertOne(ctx, testimonial); err != nil {
		log.Error("testimonial create: database error", slog.String("error", err.Error()))
		transport.WriteError(w, http.StatusInternalServerError, "database error", nil)
		return
	}

	log.Info("testimonial create: stored", slog.String("testimonial_id", testimonial.ID))
	transport.WriteJSON(w, http.StatusCreated, testimonial)
}

func (s *Server) AdminListTestimonials(w http.ResponseWriter, r *http.Request) {
	log := s.logWithRequest(r)

	limit, offset, err := httpx.ParseLimitOffset(r.URL.Query(), 20, 100)
	if err != nil {
		transport.WriteError(w, http.StatusBadRequest, err.Error(), nil)
		return
	}

	query := bson.M{}
	switch strings.TrimSpace(r.URL.Query().Get("approved")) {
	case "true":
		query["approved"] = true
	case "false":
		query["approved"] = false
	}

	ctx, cancel := context.WithTimeout(r.Context(), 8*time.Second)
	defer cancel()

	opts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}}).
		SetLimit(limit).
		SetSkip(offset)

	cursor, err := s.Cols.Testimonials.Find(ctx, query, opts)
	if err != nil {
		log.Error("admin testimonials list: database error", slog.String("error", err.Error()))
		transport.WriteError(w, http.StatusInternalServerError, "database error", nil)
		return
	}
	defer cursor.Close(ctx)

	items := make([]models.Testimonial, 0)
	for cursor.Next(ctx) {
		var t models.Testimonial
		if err := cursor.Decode(&t); err != nil {
			log.Error("admin testimonials list: decode error", slog.String("error", err.Error()))
			transport.WriteError(w, http.StatusInternalServerError, "decode error", nil)
			return
		}
		items = append(items, t)
	}
	if err := cursor.Err(); err != nil {
		log.Error("admin testimonials list: cursor error", slog.String("error", err.Error()))
		transport.WriteError(w, http.StatusInternalServerError, "cursor error", nil)
		return
	}

	total, err := s.Cols.Testimonials.CountDocuments(ctx, query)
	if err != nil {
		log.Error("admin testimonials list: database error", slog.String("error", err.Error()))
		transport.WriteError(w, http.StatusInternalServerError, "database error", nil)
		return
	}

	log.Info("admin testimonials list: ok", slog.Int("count", len(items)))
	transport.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"items":  items,
		"limit":  limit,
		"offset": offset,
		"total":  total,
	})
}

func (s *Server) AdminApproveTestimonial(w http.ResponseWriter, r *http.Request) {
	log := s.logWithRequest(r)
	id := strings.TrimSpace(chi.URLParam(r, "id"))
	if id == "" {
		transport.WriteError(w, http.StatusBadRequest, "missing id", nil)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var updated models.Testimonial
	err := s.Cols.Testimonials.FindOneAndUpdate(ctx,
		bson.M{"_id": id},
		bson.M{"$set": bson.M{"approved": true}},
		opts,
	).Decode(&updated)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			log.Warn("admin testimonial approve: not found", slog.String("testimonial_id", id))
			transport.WriteError(w, http.StatusNotFound, "testimonial not found", nil)
			return
		}
		log.Error("admin testimonial approve: database error", slog.String("error", err.Error()))
		transport.WriteError(w, http.StatusInternalServerError, "database error", nil)
		return
	}

	s.invalidateTestimonialCache(ctx, log)
	log.Info("admin testimonial approve: ok", slog.String("testimonial_id", id))
	transport.WriteJSON(w, http.StatusOK, updated)
}

func (s *Server) AdminDeleteTestimonial(w http.ResponseWriter, r *http.Request) {
	log := s.logWithRequest(r)
	id := strings.TrimSpace(chi.URLParam(r, "id"))
	if id == "" {
		transport.WriteError(w, http.StatusBadRequest, "missing id", nil)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	res, err := s.Cols.Testimonials.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		log.Error("admin testimonial delete: database error", slog.String("error", err.Error()))
		transport.WriteError(w, http.StatusInternalServerError, "database error", nil)
		return
	}
	if res.DeletedCount == 0 {
		log.Warn("admin testimonial delete: not found", slog.String("testimonial_id", id))
		transport.WriteError(w, http.StatusNotFound, "testimonial not found", nil)
		return
	}

	s.invalidateTestimonialCache(ctx, log)
	log.Info("admin testimonial delete: ok", slog.String("testimonial_id", id))
	transport.WriteJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func (s *Server) invalidateTestimonialCache(ctx context.Context, log *slog.Logger) {
	if s.Cache == nil {
		return
	}
	if err := s.Cache.Delete(ctx, testimonialsCacheKey); err != nil {
		log.Warn("testimonials: cache invalidate failed", slog.String("error", err.Error()))
	}
}
