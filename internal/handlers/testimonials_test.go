package handlers

import (
	"bytes"
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

type stubCache struct {
	data    map[string][]byte
	deletes []string
}

func (c *stubCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	payload, ok := c.data[key]
	return payload, ok, nil
}

func (c *stubCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	c.data[key] = value
	return nil
}

func (c *stubCache) Delete(ctx context.Context, key string) error {
	c.deletes = append(c.deletes, key)
	delete(c.data, key)
	return nil
}

func TestGetTestimonialsServedFromCache(t *testing.T) {
	payload := []byte(`[{"name":"Asha Rao","rating":5}]`)
	s := &Server{
		Log:   slog.New(slog.NewTextHandler(bytes.NewBuffer(nil), nil)),
		Cache: &stubCache{data: map[string][]byte{testimonialsCacheKey: payload}},
	}

	req := httptest.NewRequest(http.MethodGet, "/api/testimonials", nil)
	rec := httptest.NewRecorder()
	s.GetTestimonials(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !bytes.Equal(rec.Body.Bytes(), payload) {
		t.Fatalf("expected cached payload, got %s", rec.Body.String())
	}
}

func TestTestimonialCacheIsOptional(t *testing.T) {
	s := &Server{Log: slog.New(slog.NewTextHandler(bytes.NewBuffer(nil), nil))}

	// No cache configured; invalidation must be a no-op, not a panic.
	s.invalidateTestimonialCache(context.Background(), s.Log)
}
