package config

import (
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Env        string
	MongoURI   string
	MongoDB    string
	ServerAddr string

	FrontendOrigins []string

	RateLimitCheckout  int
	RateLimitContact   int
	RateLimitWindowSec int

	RedisURL        string
	RedisAddr       string
	RedisPassword   string
	RedisDB         int
	CacheTTLSeconds int

	JWTSecret         string
	AccessTTLMinutes  int
	RefreshTTLMinutes int
	CookieSecure      bool

	RazorpayKeyID         string
	RazorpayKeySecret     string
	RazorpayWebhookSecret string

	BrevoAPIKey      string
	BrevoSenderEmail string
	BrevoSenderName  string
	BrevoNotifyEmail string
	BrevoSandbox     bool

	WhatsAppNumber string
	Currency       string
	Timezone       *time.Location
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	loc, err := time.LoadLocation(getEnv("TZ", "Asia/Kolkata"))
	if err != nil {
		return nil, err
	}

	mongoURI := getEnv("MONGO_URI", "mongodb://localhost:27017/occult369")
	mongoDB := getEnv("MONGO_DB", "")
	if mongoDB == "" {
		mongoDB = mongoDBFromURI(mongoURI)
	}
	if mongoDB == "" {
		mongoDB = "occult369"
	}

	cfg := &Config{
		Env:                getEnv("APP_ENV", "development"),
		MongoURI:           mongoURI,
		MongoDB:            mongoDB,
		ServerAddr:         getEnv("SERVER_ADDR", ":8080"),
		FrontendOrigins:    splitOrigins(getEnv("FRONTEND_ORIGINS", "http://localhost:3000")),
		RateLimitCheckout:  getEnvInt("RATE_LIMIT_CHECKOUT", 10),
		RateLimitContact:   getEnvInt("RATE_LIMIT_CONTACT", 5),
		RateLimitWindowSec: getEnvInt("RATE_LIMIT_WINDOW_SEC", 60),
		RedisURL:           getEnv("REDIS_URL", ""),
		RedisAddr:          getEnv("REDIS_ADDR", ""),
		RedisPassword:      getEnv("REDIS_PASSWORD", ""),
		RedisDB:            getEnvInt("REDIS_DB", 0),
		CacheTTLSeconds:    getEnvInt("CACHE_TTL_SECONDS", 60),
		JWTSecret:          getEnv("JWT_SECRET", ""),
		AccessTTLMinutes:   getEnvInt("ACCESS_TTL_MINUTES", 15),
		RefreshTTLMinutes:  getEnvInt("REFRESH_TTL_MINUTES", 43200),
		CookieSecure:       getEnv("COOKIE_SECURE", "false") == "true",

		RazorpayKeyID:         getEnv("RAZORPAY_KEY_ID", ""),
		RazorpayKeySecret:     getEnv("RAZORPAY_KEY_SECRET", ""),
		RazorpayWebhookSecret: getEnv("RAZORPAY_WEBHOOK_SECRET", ""),

		BrevoAPIKey:      getEnv("BREVO_API_KEY", ""),
		BrevoSenderEmail: getEnv("BREVO_SENDER_EMAIL", ""),
		BrevoSenderName:  getEnv("BREVO_SENDER_NAME", "Occult369"),
		BrevoNotifyEmail: getEnv("BREVO_NOTIFY_EMAIL", ""),
		BrevoSandbox:     getEnv("BREVO_SANDBOX", "false") == "true",

		WhatsAppNumber: getEnv("WHATSAPP_NUMBER", ""),
		Currency:       getEnv("CURRENCY", "INR"),
		Timezone:       loc,
	}

	return cfg, nil
}

func splitOrigins(raw string) []string {
	parts := strings.Split(raw, ",")
	origins := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			origins = append(origins, p)
		}
	}
	return origins
}

func mongoDBFromURI(uri string) string {
	u, err := url.Parse(uri)
	if err != nil {
		return ""
	}
	db := strings.Trim(u.Path, "/")
	if db == "" {
		return ""
	}
	// mongodb URIs sometimes include extra path segments; only the first one is the db name.
	if idx := strings.Index(db, "/"); idx >= 0 {
		db = db[:idx]
	}
	return db
}
