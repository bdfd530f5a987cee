package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/infotechopyra0-del/occult369-sub000/internal/auth"
	"github.com/infotechopyra0-del/occult369-sub000/internal/middleware"
	"github.com/infotechopyra0-del/occult369-sub000/internal/models"
	"github.com/infotechopyra0-del/occult369-sub000/internal/transport"
)

const refreshCookieName = "occ_refresh"

type SignupRequest struct {
	Name     string `json:"name" validate:"required,min=2"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8,max=72"`
	Phone    string `json:"phone" validate:"omitempty,phone"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type AuthResponse struct {
	Status string      `json:"status"`
	User   models.User `json:"user"`
}

func (s *Server) Signup(w http.ResponseWriter, r *http.Request) {
	log := s.logWithRequest(r)
	var req SignupRequest
	if err := decodeJSON(r, &req); err != nil {
		log.Warn("signup: invalid json")
		transport.WriteError(w, http.StatusBadRequest, "invalid json", nil)
		return
	}
	if err := s.Val.Struct(req); err != nil {
		log.Warn("signup: validation error")
		transport.WriteError(w, http.StatusBadRequest, "validation error", validationDetails(s.Val.ValidationErrors(err)))
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		log.Error("signup: hash error", slog.String("error", err.Error()))
		transport.WriteError(w, http.StatusInternalServerError, "internal error", nil)
		return
	}

	now := time.Now().In(s.Cfg.Timezone)
	user := models.User{
		ID:           primitive.NewObjectID().Hex(),
		Name:         strings.TrimSpace(req.Name),
		Email:        strings.ToLower(strings.TrimSpace(req.Email)),
		PasswordHash: hash,
		Phone:        strings.TrimSpace(req.Phone),
		Role:         models.UserRoleUser,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	if _, err := s.Cols.Users.InsertOne(ctx, user); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			log.Warn("signup: email already registered", slog.String("email", user.Email))
			transport.WriteError(w, http.StatusConflict, "email already registered", nil)
			return
		}
		log.Error("signup: database error", slog.String("error", err.Error()))
		transport.WriteError(w, http.StatusInternalServerError, "database error", nil)
		return
	}

	if err := s.issueSession(w, user); err != nil {
		log.Error("signup: token error", slog.String("error", err.Error()))
		transport.WriteError(w, http.StatusInternalServerError, "token error", nil)
		return
	}

	log.Info("signup: ok", slog.String("user_id", user.ID))
	transport.WriteJSON(w, http.StatusCreated, AuthResponse{Status: "ok", User: user})
}

func (s *Server) Login(w http.ResponseWriter, r *http.Request) {
	log := s.logWithRequest(r)
	var req LoginRequest
	if err := decodeJSON(r, &req); err != nil {
		log.Warn("login: invalid json")
		transport.WriteError(w, http.StatusBadRequest, "invalid json", nil)
		return
	}
	if err := s.Val.Struct(req); err != nil {
		log.Warn("login: validation error")
		transport.WriteError(w, http.StatusBadRequest, "validation error", validationDetails(s.Val.ValidationErrors(err)))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	email := strings.ToLower(strings.TrimSpace(req.Email))
	var user models.User
	if err := s.Cols.Users.FindOne(ctx, bson.M{"email": email}).Decode(&user); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			log.Warn("login: invalid credentials", slog.String("email", email))
			transport.WriteError(w, http.StatusUnauthorized, "invalid credentials", nil)
			return
		}
		log.Error("login: database error", slog.String("error", err.Error()))
		transport.WriteError(w, http.StatusInternalServerError, "database error", nil)
		return
	}

	if err := auth.ComparePassword(user.PasswordHash, req.Password); err != nil {
		log.Warn("login: invalid credentials", slog.String("email", email))
		transport.WriteError(w, http.StatusUnauthorized, "invalid credentials", nil)
		return
	}

	if err := s.issueSession(w, user); err != nil {
		log.Error("login: token error", slog.String("error", err.Error()))
		transport.WriteError(w, http.StatusInternalServerError, "token error", nil)
		return
	}

	log.Info("login: ok", slog.String("user_id", user.ID))
	transport.WriteJSON(w, http.StatusOK, AuthResponse{Status: "ok", User: user})
}

func (s *Server) Refresh(w http.ResponseWriter, r *http.Request) {
	log := s.logWithRequest(r)

	refreshCookie, err := r.Cookie(refreshCookieName)
	if err != nil || refreshCookie.Value == "" {
		log.Warn("refresh: missing refresh token")
		transport.WriteError(w, http.StatusUnauthorized, "missing refresh token", nil)
		return
	}

	claims, err := s.JWT.Parse(refreshCookie.Value)
	if err != nil || claims.TokenType != auth.TokenTypeRefresh {
		log.Warn("refresh: invalid refresh token")
		transport.WriteError(w, http.StatusUnauthorized, "invalid refresh token", nil)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	// Re-read the user so a role change or deletion takes effect on
	// the next refresh rather than living until the token expires.
	var user models.User
	if err := s.Cols.Users.FindOne(ctx, bson.M{"_id": claims.UserID()}).Decode(&user); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			log.Warn("refresh: user no longer exists", slog.String("user_id", claims.UserID()))
			transport.WriteError(w, http.StatusUnauthorized, "invalid refresh token", nil)
			return
		}
		log.Error("refresh: database error", slog.String("error", err.Error()))
		transport.WriteError(w, http.StatusInternalServerError, "database error", nil)
		return
	}

	if err := s.issueSession(w, user); err != nil {
		log.Error("refresh: token error", slog.String("error", err.Error()))
		transport.WriteError(w, http.StatusInternalServerError, "token error", nil)
		return
	}

	log.Info("refresh: ok", slog.String("user_id", user.ID))
	transport.WriteJSON(w, http.StatusOK, AuthResponse{Status: "ok", User: user})
}

func (s *Server) Logout(w http.ResponseWriter, r *http.Request) {
	log := s.logWithRequest(r)
	s.clearSession(w)
	log.Info("logout: ok")
	transport.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) Me(w http.ResponseWriter, r *http.Request) {
	log := s.logWithRequest(r)

	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		transport.WriteError(w, http.StatusUnauthorized, "authentication required", nil)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	var user models.User
	if err := s.Cols.Users.FindOne(ctx, bson.M{"_id": claims.UserID()}).Decode(&user); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			log.Warn("me: user no longer exists", slog.String("user_id", claims.UserID()))
			transport.WriteError(w, http.StatusUnauthorized, "authentication required", nil)
			return
		}
		log.Error("me: database error", slog.String("error", err.Error()))
		transport.WriteError(w, http.StatusInternalServerError, "database error", nil)
		return
	}

	transport.WriteJSON(w, http.StatusOK, user)
}

func (s *Server) issueSession(w http.ResponseWriter, user models.User) error {
	accessToken, err := s.JWT.NewAccessToken(user.ID, user.Role)
	if err != nil {
		return err
	}
	refreshToken, err := s.JWT.NewRefreshToken(user.ID, user.Role)
	if err != nil {
		return err
	}
	setAuthCookies(w, accessToken, refreshToken, s.JWT.AccessTTL, s.JWT.RefreshTTL, s.Cfg.CookieSecure)
	return nil
}

func (s *Server) clearSession(w http.ResponseWriter) {
	clearAuthCookies(w, s.Cfg.CookieSecure)
}

func setAuthCookies(w http.ResponseWriter, access, refresh string, accessTTL, refreshTTL time.Duration, secure bool) {
	accessCookie := &http.Cookie{
		Name:     middleware.AccessCookieName,
		Value:    access,
		Path:     "/",
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(accessTTL.Seconds()),
	}
	refreshCookie := &http.Cookie{
		Name:     refreshCookieName,
		Value:    refresh,
		Path:     "/api/auth",
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(refreshTTL.Seconds()),
	}
	http.SetCookie(w, accessCookie)
	http.SetCookie(w, refreshCookie)
}

func clearAuthCookies(w http.ResponseWriter, secure bool) {
	expire := time.Now().Add(-1 * time.Hour)
	accessCookie := &http.Cookie{
		Name:     middleware.AccessCookieName,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
		Expires:  expire,
		MaxAge:   -1,
	}
	refreshCookie := &http.Cookie{
		Name:     refreshCookieName,
		Value:    "",
		Path:     "/api/auth",
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
		Expires:  expire,
		MaxAge:   -1,
	}
	http.SetCookie(w, accessCookie)
	http.SetCookie(w, refreshCookie)
}
