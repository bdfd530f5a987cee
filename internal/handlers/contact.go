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
)

type ContactRequest struct {
	Name      string `json:"name" validate:"required,min=2"`
	Email     string `json:"email" validate:"required,email"`
	Phone     string `json:"phone" validate:"required,phone"`
	ServiceID string `json:"serviceId"`
	Message   string `json:"message" validate:"required,max=4000"`
}

type ContactStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=new contacted resolved"`
}

func (s *Server) CreateContact(w http.ResponseWriter, r *http.Request) {
	log := s.logWithRequest(r)
	var req ContactRequest
	if err := decodeJSON(r, &req); err != nil {
		log.Warn("contact create: invalid json")
		transport.WriteError(w, http.StatusBadRequest, "invalid json", nil)
		return
	}
	if err := s.Val.Struct(req); err != nil {
		log.Warn("contact create: validation error")
		transport.WriteError(w, http.StatusBadRequest, "validation error", validationDetails(s.Val.ValidationErrors(err)))
		return
	}

	now := time.Now().In(s.Cfg.Timezone)
	contact := models.Contact{
		ID:        primitive.NewObjectID().Hex(),
		Name:      strings.TrimSpace(req.Name),
		Email:     strings.TrimSpace(req.Email),
		Phone:     strings.TrimSpace(req.Phone),
		ServiceID: strings.TrimSpace(req.ServiceID),
		Message:   strings.TrimSpace(req.Message),
		Status:    models.ContactStatusNew,
		CreatedAt: now,
		UpdatedAt: now,
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	if _, err := s.Cols.Contacts.InsertOne(ctx, contact); err != nil {
		log.Error("contact create: database error", slog.String("error", err.Error()))
		transport.WriteError(w, http.StatusInternalServerError, "database error", nil)
		return
	}

	if s.Mailer != nil {
		go func(c models.Contact) {
			notifyCtx, notifyCancel := context.WithTimeout(context.Background(), 8*time.Second)
			defer notifyCancel()
			if _, err := s.Mailer.SendContactNotification(notifyCtx, c); err != nil {
				s.Log.Warn("contact create: notification failed",
					slog.String("contact_id", c.ID),
					slog.String("error", err.Error()),
				)
			}
		}(contact)
	}

	log.Info("contact create: stored", slog.String("contact_id", contact.ID))
	transport.WriteJSON(w, http.StatusCreated, contact)
}

func (s *Server) AdminListContacts(w http.ResponseWriter, r *http.Request) {
	log := s.logWithRequest(r)

	limit, offset, err := httpx.ParseLimitOffset(r.URL.Query(), 20, 100)
	if err != nil {
		transport.WriteError(w, http.StatusBadRequest, err.Error(), nil)
		return
	}

	query := bson.M{}
	if status := strings.TrimSpace(r.URL.Query().Get("status")); status != "" {
		query["status"] = status
	}
	if search := strings.TrimSpace(r.URL.Query().Get("q")); search != "" {
		pattern := bson.M{"$regex": regexp.QuoteMeta(search), "$options": "i"}
		query["$or"] = []bson.M{{"name": pattern}, {"email": pattern}, {"phone": pattern}}
	}

	ctx, cancel := context.WithTimeout(r.Context(), 8*time.Second)
	defer cancel()

	opts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}}).
		SetLimit(limit).
		SetSkip(offset)

	cursor, err := s.Cols.Contacts.Find(ctx, query, opts)
	if err != nil {
		log.Error("admin contacts list: database error", slog.String("error", err.Error()))
		transport.WriteError(w, http.StatusInternalServerError, "database error", nil)
		return
	}
	defer cursor.Close(ctx)

	items := make([]models.Contact, 0)
	for cursor.Next(ctx) {
		var contact models.Contact
		if err := cursor.Decode(&contact); err != nil {
			log.Error("admin contacts list: decode error", slog.String("error", err.Error()))
			transport.WriteError(w, http.StatusInternalServerError, "decode error", nil)
			return
		}
		items = append(items, contact)
	}
	if err := cursor.Err(); err != nil {
		log.Error("admin contacts list: cursor error", slog.String("error", err.Error()))
		transport.WriteError(w, http.StatusInternalServerError, "cursor error", nil)
		return
	}

	total, err := s.Cols.Contacts.CountDocuments(ctx, query)
	if err != nil {
		log.Error("admin contacts list: database error", slog.String("error", err.Error()))
		transport.WriteError(w, http.StatusInternalServerError, "database error", nil)
		return
	}

	log.Info("admin contacts list: ok", slog.Int("count", len(items)))
	transport.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"items":  items,
		"limit":  limit,
		"offset": offset,
		"total":  total,
	})
}

func (s *Server) AdminUpdateContactStatus(w http.ResponseWriter, r *http.Request) {
	log := s.logWithRequest(r)
	id := strings.TrimSpace(chi.URLParam(r, "id"))
	if id == "" {
		transport.WriteError(w, http.StatusBadRequest, "missing id", nil)
		return
	}

	var req ContactStatusRequest
	if err := decodeJSON(r, &req); err != nil {
		log.Warn("admin contact status: invalid json")
		transport.WriteError(w, http.StatusBadRequest, "invalid json", nil)
		return
	}
	if err := s.Val.Struct(req); err != nil {
		log.Warn("admin contact status: validation error")
		transport.WriteError(w, http.StatusBadRequest, "validation error", validationDetails(s.Val.ValidationErrors(err)))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	update := bson.M{"$set": bson.M{
		"status":    req.Status,
		"updatedAt": time.Now().In(s.Cfg.Timezone),
	}}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var updated models.Contact
	if err := s.Cols.Contacts.FindOneAndUpdate(ctx, bson.M{"_id": id}, update, opts).Decode(&updated); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			log.Warn("admin contact status: not found", slog.String("contact_id", id))
			transport.WriteError(w, http.StatusNotFound, "contact not found", nil)
			return
		}
		log.Error("admin contact status: database error", slog.String("error", err.Error()))
		transport.WriteError(w, http.StatusInternalServerError, "database error", nil)
		return
	}

	log.Info("admin contact status: ok", slog.String("contact_id", id), slog.String("status", updated.Status))
	transport.WriteJSON(w, http.StatusOK, updated)
}

func (s *Server) AdminDeleteContact(w http.ResponseWriter, r *http.Request) {
	log := s.logWithRequest(r)
	id := strings.TrimSpace(chi.URLParam(r, "id"))
	if id == "" {
		transport.WriteError(w, http.StatusBadRequest, "missing id", nil)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	res, err := s.Cols.Contacts.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		log.Error("admin contact delete: database error", slog.String("error", err.Error()))
		transport.WriteError(w, http.StatusInternalServerError, "database error", nil)
		return
	}
	if res.DeletedCount == 0 {
		log.Warn("admin contact delete: not found", slog.String("contact_id", id))
		transport.WriteError(w, http.StatusNotFound, "contact not found", nil)
		return
	}

	log.Info("admin contact delete: ok", slog.String("contact_id", id))
	transport.WriteJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}
