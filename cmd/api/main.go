package main

import (
	"context"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/infotechopyra0-del/occult369-sub000/internal/auth"
	"github.com/infotechopyra0-del/occult369-sub000/internal/cache"
	"github.com/infotechopyra0-del/occult369-sub000/internal/config"
	"github.com/infotechopyra0-del/occult369-sub000/internal/db"
	"github.com/infotechopyra0-del/occult369-sub000/internal/handlers"
	"github.com/infotechopyra0-del/occult369-sub000/internal/middleware"
	"github.com/infotechopyra0-del/occult369-sub000/internal/notifications"
	"github.com/infotechopyra0-del/occult369-sub000/internal/orders"
	"github.com/infotechopyra0-del/occult369-sub000/internal/payments"
	"github.com/infotechopyra0-del/occult369-sub000/internal/validation"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, cols, err := db.Connect(ctx, cfg.MongoURI, cfg.MongoDB)
	if err != nil {
		logger.Error("mongo connection failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
	logger.Info("mongo connected")
	defer client.Disconnect(context.Background())

	if err := db.EnsureIndexes(ctx, cols); err != nil {
		logger.Error("index creation failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	var cacheStore cache.Cache = cache.NewNoop()
	if cfg.RedisURL != "" || cfg.RedisAddr != "" {
		var redisCache *cache.RedisCache
		var err error
		if cfg.RedisURL != "" {
			redisCache, err = cache.NewRedisFromURL(cfg.RedisURL)
		} else {
			redisCache = cache.NewRedis(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		}
		if err != nil {
			logger.Error("redis connection failed", slog.String("error", err.Error()))
			os.Exit(1)
		}
		if err := redisCache.Ping(ctx); err != nil {
			logger.Error("redis connection failed", slog.String("error", err.Error()))
			os.Exit(1)
		}
		logger.Info("redis connected")
		cacheStore = redisCache
	}

	if cfg.JWTSecret == "" {
		logger.Error("JWT_SECRET is required")
		os.Exit(1)
	}
	jwtManager := &auth.Manager{
		Secret:     []byte(cfg.JWTSecret),
		AccessTTL:  time.Duration(cfg.AccessTTLMinutes) * time.Minute,
		RefreshTTL: time.Duration(cfg.RefreshTTLMinutes) * time.Minute,
		Issuer:     "occult369",
	}

	mailer := notifications.NewBrevoClient(cfg.BrevoAPIKey, cfg.BrevoSenderEmail, cfg.BrevoSenderName, cfg.BrevoNotifyEmail, cfg.BrevoSandbox)
	if mailer == nil {
		logger.Info("brevo mailer disabled")
	} else {
		logger.Info("brevo mailer enabled", slog.String("sender", cfg.BrevoSenderEmail), slog.Bool("sandbox", cfg.BrevoSandbox))
	}

	val := validation.New()

	server := &handlers.Server{
		Cfg:   cfg,
		Cols:  cols,
		Val:   val,
		Log:   logger,
		Cache: cacheStore,
		JWT:   jwtManager,
	}
	if mailer != nil {
		server.Mailer = mailer
	}

	ordersRepo := orders.NewRepository(cols.Orders)
	ordersService := orders.NewService(ordersRepo, cfg.Timezone)
	ordersHandler := orders.NewHandler(ordersService, val, logger)

	var gateway payments.Gateway
	if rz := payments.NewRazorpayGateway(cfg.RazorpayKeyID, cfg.RazorpayKeySecret, cfg.RazorpayWebhookSecret); rz != nil {
		gateway = rz
		logger.Info("razorpay gateway enabled", slog.String("key_id", cfg.RazorpayKeyID))
	} else {
		logger.Warn("razorpay gateway disabled, checkout will be rejected")
	}
	finder := payments.NewMongoServiceFinder(cols.Services)
	paymentsService := payments.NewService(gateway, ordersService, finder, cfg.Currency, cfg.WhatsAppNumber, cfg.Timezone, logger)
	if mailer != nil {
		paymentsService.SetMailer(mailer)
	}
	paymentsHandler := payments.NewHandler(paymentsService, ordersService, val, logger)

	checkoutLimiter := middleware.NewRateLimiter(cfg.RateLimitCheckout, time.Duration(cfg.RateLimitWindowSec)*time.Second)
	contactLimiter := middleware.NewRateLimiter(cfg.RateLimitContact, time.Duration(cfg.RateLimitWindowSec)*time.Second)

	r := chi.NewRouter()
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Recoverer)
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(logger))
	r.Use(middleware.CORS(cfg.FrontendOrigins))
	r.Use(chiMiddleware.Timeout(30 * time.Second))
	r.Use(middleware.Authenticate(jwtManager))

	r.Route("/api", func(api chi.Router) {
		api.Get("/health", server.Health)

		api.Get("/services", server.GetServices)
		api.Get("/services/{id}", server.GetService)
		api.Get("/testimonials", server.GetTestimonials)
		api.With(contactLimiter.Middleware).Post("/testimonials", server.CreateTestimonial)
		api.With(contactLimiter.Middleware).Post("/contact", server.CreateContact)
		api.With(contactLimiter.Middleware).Post("/sample-report", server.CreateSampleReportRequest)

		api.Route("/auth", func(a chi.Router) {
			a.Post("/signup", server.Signup)
			a.Post("/login", server.Login)
			a.Post("/refresh", server.Refresh)
			a.Post("/logout", server.Logout)
			a.With(middleware.RequireAuth).Get("/me", server.Me)
		})

		api.Route("/razorpay", func(rz chi.Router) {
			rz.With(checkoutLimiter.Middleware).Post("/order", paymentsHandler.CreateOrder)
			rz.Post("/verify", paymentsHandler.Verify)
			rz.Post("/failed", paymentsHandler.Failure)
			rz.Post("/webhook", paymentsHandler.Webhook)
		})

		api.Group(func(protected chi.Router) {
			protected.Use(middleware.RequireAuth)
			protected.Get("/orders/user", ordersHandler.ListMine)
			protected.Get("/orders/{id}", ordersHandler.Get)
		})

		api.Route("/admin", func(admin chi.Router) {
			admin.Use(middleware.RequireAdmin)

			admin.Get("/stats", server.AdminStats)

			admin.Get("/orders", ordersHandler.AdminList)
			admin.Get("/orders/{id}", ordersHandler.AdminGet)
			admin.Patch("/orders/{id}", ordersHandler.AdminUpdate)
			admin.Delete("/orders/{id}", ordersHandler.AdminDelete)

			admin.Get("/services", server.AdminListServices)
			admin.Post("/services", server.AdminCreateService)
			admin.Put("/services/{id}", server.AdminUpdateService)
			admin.Delete("/services/{id}", server.AdminDeleteService)

			admin.Get("/contacts", server.AdminListContacts)
			admin.Patch("/contacts/{id}/status", server.AdminUpdateContactStatus)
			admin.Delete("/contacts/{id}", server.AdminDeleteContact)

			admin.Get("/sample-reports", server.AdminListSampleReports)
			admin.Patch("/sample-reports/{id}/status", server.AdminUpdateSampleReportStatus)
			admin.Delete("/sample-reports/{id}", server.AdminDeleteSampleReport)

			admin.Get("/testimonials", server.AdminListTestimonials)
			admin.Patch("/testimonials/{id}/approve", server.AdminApproveTestimonial)
			admin.Delete("/testimonials/{id}", server.AdminDeleteTestimonial)

			admin.Get("/users", server.AdminListUsers)
			admin.Patch("/users/{id}/role", server.AdminUpdateUserRole)
		})
	})

	srv := &http.Server{
		Addr:    cfg.ServerAddr,
		Handler: r,
	}

	go func() {
		logger.Info("server started", slog.String("addr", cfg.ServerAddr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", slog.String("error", err.Error()))
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", slog.String("error", err.Error()))
	}
}
