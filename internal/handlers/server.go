package handlers

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/infotechopyra0-del/occult369-sub000/internal/auth"
	"github.com/infotechopyra0-del/occult369-sub000/internal/cache"
	"github.com/infotechopyra0-del/occult369-sub000/internal/config"
	"github.com/infotechopyra0-del/occult369-sub000/internal/db"
	"github.com/infotechopyra0-del/occult369-sub000/internal/middleware"
	"github.com/infotechopyra0-del/occult369-sub000/internal/models"
	"github.com/infotechopyra0-del/occult369-sub000/internal/validation"
)

// LeadMailer notifies staff about new inbound leads. Sends happen off
// the request path; a nil mailer disables them.
type LeadMailer interface {
	SendContactNotification(ctx context.Context, contact models.Contact) (string, error)
	SendSampleReportNotification(ctx context.Context, req models.SampleReportRequest) (string, error)
}

type Server struct {
	Cfg    *config.Config
	Cols   *db.Collections
	Val    *validation.Validator
	Log    *slog.Logger
	Cache  cache.Cache
	JWT    *auth.Manager
	Mailer LeadMailer
}

func (s *Server) logWithRequest(r *http.Request) *slog.Logger {
	if r == nil {
		return s.Log
	}
	if id := middleware.RequestIDFromContext(r.Context()); id != "" {
		return s.Log.With(slog.String("request_id", id))
	}
	return s.Log
}
