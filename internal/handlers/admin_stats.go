package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/infotechopyra0-del/occult369-sub000/internal/models"
	"github.com/infotechopyra0-del/occult369-sub000/internal/orders"
	"github.com/infotechopyra0-del/occult369-sub000/internal/transport"
)

type AdminStatsResponse struct {
	Orders        map[string]int64 `json:"orders"`
	Revenue       int64            `json:"revenue"`
	NewContacts   int64            `json:"newContacts"`
	NewSampleReqs int64            `json:"newSampleReports"`
	PendingReview int64            `json:"pendingTestimonials"`
	Users         int64            `json:"users"`
	RecentOrders  []orders.View    `json:"recentOrders"`
}

// AdminStats summarizes the dashboard numbers in one round trip per
// collection: order counts and revenue grouped by status, fresh lead
// counts, and the latest orders.
func (s *Server) AdminStats(w http.ResponseWriter, r *http.Request) {
	log := s.logWithRequest(r)

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	pipeline := []bson.M{
		{"$group": bson.M{
			"_id":   "$status",
			"count": bson.M{"$sum": 1},
			"total": bson.M{"$sum": "$price"},
		}},
	}
	cursor, err := s.Cols.Orders.Aggregate(ctx, pipeline)
	if err != nil {
		log.Error("admin stats: aggregate error", slog.String("error", err.Error()))
		transport.WriteError(w, http.StatusInternalServerError, "database error", nil)
		return
	}
	defer cursor.Close(ctx)

	stats := AdminStatsResponse{Orders: map[string]int64{
		orders.StatusPending:   0,
		orders.StatusCompleted: 0,
		orders.StatusFailed:    0,
		orders.StatusCancelled: 0,
	}}
	for cursor.Next(ctx) {
		var row struct {
			Status string `bson:"_id"`
			Count  int64  `bson:"count"`
			Total  int64  `bson:"total"`
		}
		if err := cursor.Decode(&row); err != nil {
			log.Error("admin stats: decode error", slog.String("error", err.Error()))
			transport.WriteError(w, http.StatusInternalServerError, "decode error", nil)
			return
		}
		stats.Orders[row.Status] = row.Count
		if row.Status == orders.StatusCompleted {
			stats.Revenue = row.Total
		}
	}
	if err := cursor.Err(); err != nil {
		log.Error("admin stats: cursor error", slog.String("error", err.Error()))
		transport.WriteError(w, http.StatusInternalServerError, "cursor error", nil)
		return
	}

	if stats.NewContacts, err = s.Cols.Contacts.CountDocuments(ctx, bson.M{"status": models.ContactStatusNew}); err != nil {
		log.Error("admin stats: database error", slog.String("error", err.Error()))
		transport.WriteError(w, http.StatusInternalServerError, "database error", nil)
		return
	}
	if stats.NewSampleReqs, err = s.Cols.SampleReports.CountDocuments(ctx, bson.M{"status": models.SampleReportStatusNew}); err != nil {
		log.Error("admin stats: database error", slog.String("error", err.Error()))
		transport.WriteError(w, http.StatusInternalServerError, "database error", nil)
		return
	}
	if stats.PendingReview, err = s.Cols.Testimonials.CountDocuments(ctx, bson.M{"approved": false}); err != nil {
		log.Error("admin stats: database error", slog.String("error", err.Error()))
		transport.WriteError(w, http.StatusInternalServerError, "database error", nil)
		return
	}
	if stats.Users, err = s.Cols.Users.CountDocuments(ctx, bson.M{}); err != nil {
		log.Error("admin stats: database error", slog.String("error", err.Error()))
		transport.WriteError(w, http.StatusInternalServerError, "database error", nil)
		return
	}

	recentOpts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}}).
		SetLimit(5)
	recentCursor, err := s.Cols.Orders.Find(ctx, bson.M{}, recentOpts)
	if err != nil {
		log.Error("admin stats: database error", slog.String("error", err.Error()))
		transport.WriteError(w, http.StatusInternalServerError, "database error", nil)
		return
	}
	defer recentCursor.Close(ctx)

	recent := make([]orders.Order, 0, 5)
	for recentCursor.Next(ctx) {
		var o orders.Order
		if err := recentCursor.Decode(&o); err != nil {
			log.Error("admin stats: decode error", slog.String("error", err.Error()))
			transport.WriteError(w, http.StatusInternalServerError, "decode error", nil)
			return
		}
		recent = append(recent, o)
	}
	if err := recentCursor.Err(); err != nil {
		log.Error("admin stats: cursor error", slog.String("error", err.Error()))
		transport.WriteError(w, http.StatusInternalServerError, "cursor error", nil)
		return
	}
	stats.RecentOrders = orders.ProjectAll(recent, s.Cfg.Timezone)

	log.Info("admin stats: ok")
	transport.WriteJSON(w, http.StatusOK, stats)
}
