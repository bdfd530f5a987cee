package payments

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/infotechopyra0-del/occult369-sub000/internal/models"
	"github.com/infotechopyra0-del/occult369-sub000/internal/orders"
	"github.com/infotechopyra0-del/occult369-sub000/internal/validation"
)

type fakeOrderRepo struct {
	byID map[string]*orders.Order
}

func newFakeOrderRepo() *fakeOrderRepo {
	return &fakeOrderRepo{byID: make(map[string]*orders.Order)}
}

func (f *fakeOrderRepo) Create(ctx context.Context, order orders.Order) error {
	f.byID[order.ID] = &order
	return nil
}

func (f *fakeOrderRepo) GetByID(ctx context.Context, id string) (orders.Order, error) {
	if o, ok := f.byID[id]; ok {
		return *o, nil
	}
	return orders.Order{}, mongo.ErrNoDocuments
}

func (f *fakeOrderRepo) GetByGatewayOrderID(ctx context.Context, gatewayOrderID string) (orders.Order, error) {
	for _, o := range f.byID {
		if o.RazorpayOrderID == gatewayOrderID {
			return *o, nil
		}
	}
	return orders.Order{}, mongo.ErrNoDocuments
}

func (f *fakeOrderRepo) List(ctx context.Context, filter orders.ListFilter, limit, offset int64) ([]orders.Order, error) {
	items := make([]orders.Order, 0, len(f.byID))
	for _, o := range f.byID {
		items = append(items, *o)
	}
	return items, nil
}

func (f *fakeOrderRepo) Count(ctx context.Context, filter orders.ListFilter) (int64, error) {
	return int64(len(f.byID)), nil
}

func (f *fakeOrderRepo) TransitionFromPending(ctx context.Context, gatewayOrderID string, fields bson.M, now time.Time) (orders.Order, error) {
	for _, o := range f.byID {
		if o.RazorpayOrderID == gatewayOrderID && o.Status == orders.StatusPending {
			applyFields(o, fields, now)
			return *o, nil
		}
	}
	return orders.Order{}, mongo.ErrNoDocuments
}

func (f *fakeOrderRepo) UpdateAdmin(ctx context.Context, id, expectStatus string, fields bson.M, now time.Time) (orders.Order, error) {
	o, ok := f.byID[id]
	if !ok || o.Status != expectStatus {
		return orders.Order{}, mongo.ErrNoDocuments
	}
	applyFields(o, fields, now)
	return *o, nil
}

func (f *fakeOrderRepo) Delete(ctx context.Context, id string) error {
	if _, ok := f.byID[id]; !ok {
		return mongo.ErrNoDocuments
	}
	delete(f.byID, id)
	return nil
}

func applyFields(o *orders.Order, fields bson.M, now time.Time) {
	for k, v := range fields {
		switch k {
		case "status":
			o.Status = v.(string)
		case "razorpayPaymentId":
			o.RazorpayPaymentID = v.(string)
		case "razorpaySignature":
			o.RazorpaySignature = v.(string)
		case "failureReason":
			o.FailureReason = v.(string)
		case "needsReview":
			o.NeedsReview = v.(bool)
		case "adminNotes":
			o.AdminNotes = v.(string)
		}
	}
	o.UpdatedAt = now
}

type fakeGateway struct {
	secret        string
	webhookSecret string
	createCalls   int
	lastAmount    int
	failCreate    bool
}

func (g *fakeGateway) CreateOrder(amount int, currency, receipt string, notes map[string]interface{}) (string, error) {
	g.createCalls++
	g.lastAmount = amount
	if g.failCreate {
		return "", errors.New("connection refused")
	}
	return "order_rzp_test", nil
}

func (g *fakeGateway) sign(gatewayOrderID, paymentID string) string {
	mac := hmac.New(sha256.New, []byte(g.secret))
	mac.Write([]byte(gatewayOrderID + "|" + paymentID))
	return hex.EncodeToString(mac.Sum(nil))
}

func (g *fakeGateway) VerifyPayment(gatewayOrderID, paymentID, signature string) bool {
	return hmac.Equal([]byte(g.sign(gatewayOrderID, paymentID)), []byte(signature))
}

func (g *fakeGateway) signWebhook(body []byte) string {
	mac := hmac.New(sha256.New, []byte(g.webhookSecret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

func (g *fakeGateway) VerifyWebhook(body []byte, signature string) bool {
	return hmac.Equal([]byte(g.signWebhook(body)), []byte(signature))
}

func (g *fakeGateway) KeyID() string {
	return "rzp_test_key"
}

type fakeFinder struct {
	services map[string]models.Service
}

func (f *fakeFinder) FindByID(ctx context.Context, id string) (models.Service, error) {
	if svc, ok := f.services[id]; ok {
		return svc, nil
	}
	return models.Service{}, ErrServiceNotFound
}

func newTestBridge(t *testing.T) (*Service, *fakeGateway, *fakeOrderRepo) {
	t.Helper()
	loc, err := time.LoadLocation("Asia/Kolkata")
	if err != nil {
		t.Fatalf("load location: %v", err)
	}

	repo := newFakeOrderRepo()
	orderSvc := orders.NewService(repo, loc)
	gateway := &fakeGateway{secret: "key-secret", webhookSecret: "wh-secret"}
	finder := &fakeFinder{services: map[string]models.Service{
		"svc-1": {ID: "svc-1", Name: "Numerology Reading", Category: "numerology", Price: 999, Active: true},
		"svc-2": {ID: "svc-2", Name: "Retired Offering", Category: "numerology", Price: 499, Active: false},
	}}

	log := slog.New(slog.NewTextHandler(bytes.NewBuffer(nil), nil))
	return NewService(gateway, orderSvc, finder, "INR", "919876543210", loc, log), gateway, repo
}

func validCheckout() CheckoutRequest {
	return CheckoutRequest{
		ServiceID: "svc-1",
		Name:      "Asha Rao",
		Email:     "asha@example.com",
		Phone:     "9876543210",
	}
}

func TestCheckoutUsesServerSidePrice(t *testing.T) {
	bridge, gateway, repo := newTestBridge(t)

	req := validCheckout()
	req.Amount = 1 // client lies about the price

	config, err := bridge.Checkout(context.Background(), "", req)
	if err != nil {
		t.Fatalf("Checkout error: %v", err)
	}
	if gateway.lastAmount != 99900 {
		t.Fatalf("gateway charged %d paise, want 99900", gateway.lastAmount)
	}
	if config.Amount != 99900 || config.Currency != "INR" {
		t.Fatalf("unexpected config %+v", config)
	}
	if config.KeyID != "rzp_test_key" || config.GatewayOrderID != "order_rzp_test" {
		t.Fatalf("unexpected config %+v", config)
	}

	order, err := repo.GetByGatewayOrderID(context.Background(), "order_rzp_test")
	if err != nil {
		t.Fatalf("pending order not persisted: %v", err)
	}
	if order.Status != orders.StatusPending || order.Price != 999 {
		t.Fatalf("unexpected order %+v", order)
	}
}

func TestCheckoutRejectsInactiveService(t *testing.T) {
	bridge, gateway, _ := newTestBridge(t)

	req := validCheckout()
	req.ServiceID = "svc-2"

	if _, err := bridge.Checkout(context.Background(), "", req); !errors.Is(err, ErrServiceInactive) {
		t.Fatalf("expected inactive error, got %v", err)
	}
	if gateway.createCalls != 0 {
		t.Fatalf("gateway should not be called for inactive service")
	}
}

func TestCheckoutRejectsUnknownService(t *testing.T) {
	bridge, gateway, _ := newTestBridge(t)

	req := validCheckout()
	req.ServiceID = "svc-missing"

	if _, err := bridge.Checkout(context.Background(), "", req); !errors.Is(err, ErrServiceNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if gateway.createCalls != 0 {
		t.Fatalf("gateway should not be called for unknown service")
	}
}

func TestCheckoutGatewayUnavailable(t *testing.T) {
	bridge, gateway, repo := newTestBridge(t)
	gateway.failCreate = true

	if _, err := bridge.Checkout(context.Background(), "", validCheckout()); !errors.Is(err, ErrGatewayUnavailable) {
		t.Fatalf("expected gateway unavailable, got %v", err)
	}
	if n, _ := repo.Count(context.Background(), orders.ListFilter{}); n != 0 {
		t.Fatalf("no local order should exist after gateway failure, got %d", n)
	}
}

func TestCheckoutRejectsPastPreferredDate(t *testing.T) {
	bridge, gateway, _ := newTestBridge(t)

	req := validCheckout()
	req.Booking = &orders.BookingDetails{PreferredDate: "2020-01-01"}

	if _, err := bridge.Checkout(context.Background(), "", req); !errors.Is(err, ErrPreferredDatePast) {
		t.Fatalf("expected past date error, got %v", err)
	}
	if gateway.createCalls != 0 {
		t.Fatalf("gateway should not be called for a past preferred date")
	}
}

func TestCheckoutRejectsPastSlotToday(t *testing.T) {
	bridge, gateway, _ := newTestBridge(t)
	loc, err := time.LoadLocation("Asia/Kolkata")
	if err != nil {
		t.Fatalf("load location: %v", err)
	}

	now := time.Now().In(loc)
	earlier := now.Add(-time.Minute)
	if earlier.Format("2006-01-02") != now.Format("2006-01-02") {
		t.Skip("no earlier slot exists right after midnight")
	}

	req := validCheckout()
	req.Booking = &orders.BookingDetails{
		PreferredDate: now.Format("2006-01-02"),
		PreferredTime: earlier.Format("15:04"),
	}

	if _, err := bridge.Checkout(context.Background(), "", req); !errors.Is(err, ErrPreferredSlotPast) {
		t.Fatalf("expected past slot error, got %v", err)
	}
	if gateway.createCalls != 0 {
		t.Fatalf("gateway should not be called for a past slot")
	}
}

func TestCheckoutAcceptsFutureSlot(t *testing.T) {
	bridge, _, repo := newTestBridge(t)
	loc, err := time.LoadLocation("Asia/Kolkata")
	if err != nil {
		t.Fatalf("load location: %v", err)
	}

	tomorrow := time.Now().In(loc).AddDate(0, 0, 1)
	req := validCheckout()
	req.Booking = &orders.BookingDetails{
		PreferredDate: tomorrow.Format("2006-01-02"),
		PreferredTime: "10:00",
	}

	config, err := bridge.Checkout(context.Background(), "", req)
	if err != nil {
		t.Fatalf("Checkout error: %v", err)
	}
	stored, err := repo.GetByID(context.Background(), config.OrderID)
	if err != nil {
		t.Fatalf("GetByID error: %v", err)
	}
	if stored.Booking == nil || stored.Booking.PreferredTime != "10:00" {
		t.Fatalf("expected preferred time stored, got %+v", stored.Booking)
	}
}

func TestVerifyAndCompleteValidSignature(t *testing.T) {
	bridge, gateway, _ := newTestBridge(t)

	config, err := bridge.Checkout(context.Background(), "", validCheckout())
	if err != nil {
		t.Fatalf("Checkout error: %v", err)
	}

	req := VerifyRequest{
		RazorpayOrderID:   config.GatewayOrderID,
		RazorpayPaymentID: "pay_123",
		RazorpaySignature: gateway.sign(config.GatewayOrderID, "pay_123"),
	}

	order, err := bridge.VerifyAndComplete(context.Background(), req)
	if err != nil {
		t.Fatalf("VerifyAndComplete error: %v", err)
	}
	if order.Status != orders.StatusCompleted {
		t.Fatalf("expected completed, got %q", order.Status)
	}
	if order.RazorpayPaymentID != "pay_123" {
		t.Fatalf("expected pay_123, got %q", order.RazorpayPaymentID)
	}
	if order.Price != 999 {
		t.Fatalf("price changed: %d", order.Price)
	}

	// Redelivery of the same success is a no-op.
	again, err := bridge.VerifyAndComplete(context.Background(), req)
	if err != nil {
		t.Fatalf("redelivered verify should be a no-op, got %v", err)
	}
	if again.RazorpayPaymentID != "pay_123" {
		t.Fatalf("payment id changed on redelivery")
	}
}

func TestVerifyAndCompleteInvalidSignature(t *testing.T) {
	bridge, _, repo := newTestBridge(t)

	config, err := bridge.Checkout(context.Background(), "", validCheckout())
	if err != nil {
		t.Fatalf("Checkout error: %v", err)
	}

	req := VerifyRequest{
		RazorpayOrderID:   config.GatewayOrderID,
		RazorpayPaymentID: "pay_123",
		RazorpaySignature: "forged",
	}

	if _, err := bridge.VerifyAndComplete(context.Background(), req); !errors.Is(err, ErrInvalidSignature) {
		t.Fatalf("expected invalid signature, got %v", err)
	}

	order, err := repo.GetByGatewayOrderID(context.Background(), config.GatewayOrderID)
	if err != nil {
		t.Fatalf("order lookup: %v", err)
	}
	if order.Status != orders.StatusFailed {
		t.Fatalf("expected failed, got %q", order.Status)
	}
	if !order.NeedsReview {
		t.Fatalf("expected needs-review flag")
	}
	if order.RazorpayPaymentID != "" {
		t.Fatalf("payment id must not be stored on forged callback")
	}
}

func TestWebhookCapturedCompletesOrder(t *testing.T) {
	bridge, gateway, _ := newTestBridge(t)

	config, err := bridge.Checkout(context.Background(), "", validCheckout())
	if err != nil {
		t.Fatalf("Checkout error: %v", err)
	}

	body, _ := json.Marshal(map[string]interface{}{
		"event": "payment.captured",
		"payload": map[string]interface{}{
			"payment": map[string]interface{}{
				"entity": map[string]interface{}{
					"id":       "pay_wh",
					"order_id": config.GatewayOrderID,
				},
			},
		},
	})

	order, err := bridge.HandleWebhook(context.Background(), body, gateway.signWebhook(body))
	if err != nil {
		t.Fatalf("HandleWebhook error: %v", err)
	}
	if order.Status != orders.StatusCompleted || order.RazorpayPaymentID != "pay_wh" {
		t.Fatalf("unexpected order %+v", order)
	}
}

func TestWebhookRejectsBadSignature(t *testing.T) {
	bridge, _, _ := newTestBridge(t)

	body := []byte(`{"event":"payment.captured"}`)
	if _, err := bridge.HandleWebhook(context.Background(), body, "forged"); !errors.Is(err, ErrInvalidSignature) {
		t.Fatalf("expected invalid signature, got %v", err)
	}
}

func TestWebhookFailedStoresReason(t *testing.T) {
	bridge, gateway, _ := newTestBridge(t)

	config, err := bridge.Checkout(context.Background(), "", validCheckout())
	if err != nil {
		t.Fatalf("Checkout error: %v", err)
	}

	body, _ := json.Marshal(map[string]interface{}{
		"event": "payment.failed",
		"payload": map[string]interface{}{
			"payment": map[string]interface{}{
				"entity": map[string]interface{}{
					"id":                "pay_wh",
					"order_id":          config.GatewayOrderID,
					"error_description": "insufficient funds",
				},
			},
		},
	})

	order, err := bridge.HandleWebhook(context.Background(), body, gateway.signWebhook(body))
	if err != nil {
		t.Fatalf("HandleWebhook error: %v", err)
	}
	if order.Status != orders.StatusFailed || order.FailureReason != "insufficient funds" {
		t.Fatalf("unexpected order %+v", order)
	}
}

type fakeMailer struct {
	sent chan string
}

func (m *fakeMailer) SendOrderConfirmation(ctx context.Context, toEmail, toName, orderCode, serviceName, formattedPrice string) (string, error) {
	m.sent <- toEmail
	return "msg-1", nil
}

func TestConfirmationMailSentOncePerPayment(t *testing.T) {
	bridge, gateway, _ := newTestBridge(t)
	mailer := &fakeMailer{sent: make(chan string, 4)}
	bridge.SetMailer(mailer)

	config, err := bridge.Checkout(context.Background(), "", validCheckout())
	if err != nil {
		t.Fatalf("Checkout error: %v", err)
	}

	req := VerifyRequest{
		RazorpayOrderID:   config.GatewayOrderID,
		RazorpayPaymentID: "pay_123",
		RazorpaySignature: gateway.sign(config.GatewayOrderID, "pay_123"),
	}

	if _, err := bridge.VerifyAndComplete(context.Background(), req); err != nil {
		t.Fatalf("VerifyAndComplete error: %v", err)
	}

	select {
	case to := <-mailer.sent:
		if to != "asha@example.com" {
			t.Fatalf("confirmation sent to %q", to)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("confirmation email never sent")
	}

	// Redelivery via the browser callback and the webhook must not
	// trigger a second mail.
	if _, err := bridge.VerifyAndComplete(context.Background(), req); err != nil {
		t.Fatalf("redelivered verify error: %v", err)
	}
	body, _ := json.Marshal(map[string]interface{}{
		"event": "payment.captured",
		"payload": map[string]interface{}{
			"payment": map[string]interface{}{
				"entity": map[string]interface{}{
					"id":       "pay_123",
					"order_id": config.GatewayOrderID,
				},
			},
		},
	})
	if _, err := bridge.HandleWebhook(context.Background(), body, gateway.signWebhook(body)); err != nil {
		t.Fatalf("HandleWebhook error: %v", err)
	}

	select {
	case <-mailer.sent:
		t.Fatalf("duplicate confirmation email")
	case <-time.After(100 * time.Millisecond):
	}
}

func TestCreateOrderHandlerRejectsBadInputBeforeGateway(t *testing.T) {
	bridge, gateway, _ := newTestBridge(t)
	handler := NewHandler(bridge, bridge.orders, validation.New(), slog.New(slog.NewTextHandler(bytes.NewBuffer(nil), nil)))

	cases := []CheckoutRequest{
		{ServiceID: "svc-1", Name: "Asha Rao", Email: "not-an-email", Phone: "9876543210"},
		{ServiceID: "svc-1", Name: "Asha Rao", Email: "asha@example.com", Phone: "123456789"},
		{ServiceID: "svc-1", Name: "A", Email: "asha@example.com", Phone: "9876543210"},
	}

	for _, payload := range cases {
		body, _ := json.Marshal(payload)
		req := httptest.NewRequest(http.MethodPost, "/api/razorpay/order", bytes.NewReader(body))
		rec := httptest.NewRecorder()
		handler.CreateOrder(rec, req)

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400 for %+v, got %d", payload, rec.Code)
		}
	}

	if gateway.createCalls != 0 {
		t.Fatalf("gateway must not be called for invalid input, got %d calls", gateway.createCalls)
	}
}
