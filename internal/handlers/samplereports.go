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

type SampleReportRequestBody struct {
	Name       string `json:"name" validate:"required,min=2"`
	Email      string `json:"email" validate:"required,email"`
	Phone      string `json:"phone" validate:"required,phone"`
	BirthDate  string `json:"birthDate" validate:"required,date"`
	BirthTime  string `json:"birthTime" validate:"omitempty,clock"`
	BirthPlace string `json:"birthPlace" validate:"omitempty,max=200"`
}

type SampleReportStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=new sent"`
}

func (s *Server) CreateSampleReportRequest(w http.ResponseWriter, r *http.Request) {
	log := s.logWithRequest(r)
	var req SampleReportRequestBody
	if err := decodeJSON(r, &req); err != nil {
		log.Warn("sample report create: invalid json")
		transport.WriteError(w, http.StatusBadRequest, "invalid json", nil)
		return
	}
	if err := s.Val.Struct(req); err != nil {
		log.Warn("sample report create: validation error")
		transport.WriteError(w, http.StatusBadRequest, "validation error", validationDetails(s.Val.ValidationErrors(err)))
		return
	}

	now := time.Now().In(s.Cfg.Timezone)
	request := models.SampleReportRequest{
		ID:         primitive.NewObjectID().Hex(),
		Name:       strings.TrimSpace(req.Name),
		Email:      strings.TrimSpace(req.Email),
		Phone:      strings.TrimSpace(req.Phone),
		BirthDate:  req.BirthDate,
		BirthTime:  req.BirthTime,
		BirthPlace: strings.TrimSpace(req.BirthPlace),
		Status:     models.SampleReportStatusNew,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	if _, err := s.Cols.SampleReports.InsertOne(ctx, request); err != nil {
		log.Error("sample report create: database error", slog.String("error", err.Error()))
		transport.WriteError(w, http.StatusInternalServerError, "database error", nil)
		return
	}

	if s.Mailer != nil {
		go func(sr models.SampleReportRequest) {
			notifyCtx, notifyCancel := context.WithTimeout(context.Background(), 8*time.Second)
			defer notifyCancel()
			if _, err := s.Mailer.SendSampleReportNotification(notifyCtx, sr); err != nil {
				s.Log.Warn("sample report create: notification failed",
					slog.String("request_id", sr.ID),
					slog.String("error", err.Error()),
				)
			}
		}(request)
	}

	log.Info("sample report create: stored", slog.String("sample_report_id", request.ID))
	transport.WriteJSON(w, http.StatusCreated, request)
}

func (s *Server) AdminListSampleReports(w http.ResponseWriter, r *http.Request) {
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

	ctx, cancel := context.WithTimeout(r.Context(), 8*time.Second)
	defer cancel()

	opts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}}).
		SetLimit(limit).
		SetSkip(offset)

	cursor, err := s.Cols.SampleReports.Find(ctx, query, opts)
	if err != nil {
		log.Error("admin sample reports list: database error", slog.String("error", err.Error()))
		transport.WriteError(w, http.StatusInternalServerError, "database error", nil)
		return
	}
	defer cursor.Close(ctx)

	items := make([]models.SampleReportRequest, 0)
	for cursor.Next(ctx) {
		var sr models.SampleReportRequest
		if err := cursor.Decode(&sr); err != nil {
			log.Error("admin sample reports list: decode error", slog.String("error", err.Error()))
			transport.WriteError(w, http.StatusInternalServerError, "decode error", nil)
			return
		}
		items = append(items, sr)
	}
	if err := cursor.Err(); err != nil {
		log.Error("admin sample reports list: cursor error", slog.String("error", err.Error()))
		transport.WriteError(w, http.StatusInternalServerError, "cursor error", nil)
		return
	}

	total, err := s.Cols.SampleReports.CountDocuments(ctx, query)
	if err != nil {
		log.Error("admin sample reports list: database error", slog.String("error", err.Error()))
		transport.WriteError(w, http.StatusInternalServerError, "database error", nil)
		return
	}

	log.Info("admin sample reports list: ok", slog.Int("count", len(items)))
	transport.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"items":  items,
		"limit":  limit,
		"offset": offset,
		"total":  total,
	})
}

func (s *Server) AdminUpdateSampleReportStatus(w http.ResponseWriter, r *http.Request) {
	log := s.logWithRequest(r)
	id := strings.TrimSpace(chi.URLParam(r, "id"))
	if id == "" {
		transport.WriteError(w, http.StatusBadRequest, "missing id", nil)
		return
	}

	var req SampleReportStatusRequest
	if err := decodeJSON(r, &req); err != nil {
		log.Warn("admin sample report status: invalid json")
		transport.WriteError(w, http.StatusBadRequest, "invalid json", nil)
		return
	}
	if err := s.Val.Struct(req); err != nil {
		log.Warn("admin sample report status: validation error")
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

	var updated models.SampleReportRequest
	if err := s.Cols.SampleReports.FindOneAndUpdate(ctx, bson.M{"_id": id}, update, opts).Decode(&updated); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			log.Warn("admin sample report status: not found", slog.String("sample_report_id", id))
			transport.WriteError(w, http.StatusNotFound, "sample report request not found", nil)
			return
		}
		log.Error("admin sample report status: database error", slog.String("error", err.Error()))
		transport.WriteError(w, http.StatusInternalServerError, "database error", nil)
		return
	}

	log.Info("admin sample report status: ok", slog.String("sample_report_id", id), slog.String("status", updated.Status))
	transport.WriteJSON(w, http.StatusOK, updated)
}

func (s *Server) AdminDeleteSampleReport(w http.ResponseWriter, r *http.Request) {
	log := s.logWithRequest(r)
	id := strings.TrimSpace(chi.URLParam(r, "id"))
	if id == "" {
		transport.WriteError(w, http.StatusBadRequest, "missing id", nil)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	res, err := s.Cols.SampleReports.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		log.Error("admin sample report delete: database error", slog.String("error", err.Error()))
		transport.WriteError(w, http.StatusInternalServerError, "database error", nil)
		return
	}
	if res.DeletedCount == 0 {
		log.Warn("admin sample report delete: not found", slog.String("sample_report_id", id))
		transport.WriteError(w, http.StatusNotFound, "sample report request not found", nil)
		return
	}

	log.Info("admin sample report delete: ok", slog.String("sample_report_id", id))
	transport.WriteJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}
