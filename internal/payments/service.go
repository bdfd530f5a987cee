package payments

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/infotechopyra0-del/occult369-sub000/internal/models"
	"github.com/infotechopyra0-del/occult369-sub000/internal/orders"
	"github.com/infotechopyra0-del/occult369-sub000/internal/schedule"
	"github.com/infotechopyra0-del/occult369-sub000/internal/utils"
)

var (
	ErrServiceNotFound   = errors.New("service not found")
	ErrServiceInactive   = errors.New("service not available")
	ErrInvalidSignature  = errors.New("signature verification failed")
	ErrPreferredDatePast = errors.New("preferred date in the past")
	ErrPreferredSlotPast = errors.New("preferred slot in the past")
	ErrNotConfigured     = errors.New("payment gateway not configured")
)

// ServiceFinder resolves the purchasable service for a checkout. The
// price it returns is the only amount the bridge will ever charge.
type ServiceFinder interface {
	FindByID(ctx context.Context, id string) (models.Service, error)
}

type MongoServiceFinder struct {
	col *mongo.Collection
}

func NewMongoServiceFinder(col *mongo.Collection) *MongoServiceFinder {
	return &MongoServiceFinder{col: col}
}

func (f *MongoServiceFinder) FindByID(ctx context.Context, id string) (models.Service, error) {
	var svc models.Service
	if err := f.col.FindOne(ctx, bson.M{"_id": id}).Decode(&svc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return models.Service{}, ErrServiceNotFound
		}
		return models.Service{}, err
	}
	return svc, nil
}

// OrderMailer sends the customer-facing confirmation once a payment
// settles. A nil mailer disables confirmations.
type OrderMailer interface {
	SendOrderConfirmation(ctx context.Context, toEmail, toName, orderCode, serviceName, formattedPrice string) (string, error)
}

// Service is the checkout/payment bridge: it turns an intent-to-buy into
// a gateway-tracked payment session and reconciles the outcome into an
// order record.
type Service struct {
	gateway        Gateway
	orders         *orders.Service
	finder         ServiceFinder
	mailer         OrderMailer
	currency       string
	whatsappNumber string
	location       *time.Location
	log            *slog.Logger
}

func NewService(gateway Gateway, orderSvc *orders.Service, finder ServiceFinder, currency, whatsappNumber string, location *time.Location, log *slog.Logger) *Service {
	return &Service{
		gateway:        gateway,
		orders:         orderSvc,
		finder:         finder,
		currency:       currency,
		whatsappNumber: whatsappNumber,
		location:       location,
		log:            log,
	}
}

// SetMailer enables post-payment confirmation emails.
func (s *Service) SetMailer(m OrderMailer) {
	s.mailer = m
}

type CheckoutRequest struct {
	ServiceID string `json:"serviceId" validate:"required"`
	Name      string `json:"name" validate:"required,min=2"`
	Email     string `json:"email" validate:"required,email"`
	Phone     string `json:"phone" validate:"required,phone"`
	// Amount is accepted for frontend compatibility and ignored; the
	// charge is always the server-side service price.
	Amount  int                    `json:"amount"`
	Booking *orders.BookingDetails `json:"booking"`
}

// CheckoutConfig is what the browser needs to open the hosted widget.
type CheckoutConfig struct {
	KeyID          string `json:"keyId"`
	GatewayOrderID string `json:"razorpayOrderId"`
	Amount         int    `json:"amount"` // smallest currency unit
	Currency       string `json:"currency"`
	OrderID        string `json:"orderId"`
	OrderCode      string `json:"orderCode"`
	ServiceName    string `json:"serviceName"`
	PrefillName    string `json:"prefillName"`
	PrefillEmail   string `json:"prefillEmail"`
	PrefillPhone   string `json:"prefillPhone"`
	WhatsAppLink   string `json:"whatsappLink,omitempty"`
}

type VerifyRequest struct {
	RazorpayOrderID   string `json:"razorpay_order_id" validate:"required"`
	RazorpayPaymentID string `json:"razorpay_payment_id" validate:"required"`
	RazorpaySignature string `json:"razorpay_signature" validate:"required"`
}

type FailureRequest struct {
	RazorpayOrderID string `json:"razorpay_order_id" validate:"required"`
	Reason          string `json:"reason"`
}

// Checkout validates the intent, creates the gateway order and records
// the local pending order. No money has moved when it returns.
func (s *Service) Checkout(ctx context.Context, userID string, req CheckoutRequest) (CheckoutConfig, error) {
	if s.gateway == nil {
		return CheckoutConfig{}, ErrNotConfigured
	}

	svc, err := s.finder.FindByID(ctx, strings.TrimSpace(req.ServiceID))
	if err != nil {
		return CheckoutConfig{}, err
	}
	if !svc.Active {
		return CheckoutConfig{}, ErrServiceInactive
	}

	if req.Booking != nil && req.Booking.PreferredDate != "" {
		past, err := schedule.IsDatePast(req.Booking.PreferredDate, s.location, time.Now())
		if err != nil || past {
			return CheckoutConfig{}, ErrPreferredDatePast
		}
		if req.Booking.PreferredTime != "" {
			past, err := schedule.IsSlotPast(req.Booking.PreferredDate, req.Booking.PreferredTime, s.location, time.Now())
			if err != nil || past {
				return CheckoutConfig{}, ErrPreferredSlotPast
			}
		}
	}

	// The authoritative price: whatever the client sent in req.Amount is
	// never consulted.
	amountPaise := svc.Price * 100

	orderCode := orders.NewOrderCode(time.Now().In(s.location))
	gatewayOrderID, err := s.gateway.CreateOrder(amountPaise, s.currency, orderCode, map[string]interface{}{
		"serviceId":   svc.ID,
		"serviceName": svc.Name,
	})
	if err != nil {
		return CheckoutConfig{}, fmt.Errorf("%w: %v", ErrGatewayUnavailable, err)
	}

	order, err := s.orders.CreatePending(ctx, orders.CreateParams{
		OrderCode:      orderCode,
		UserID:         userID,
		ServiceID:      svc.ID,
		ServiceName:    svc.Name,
		ServiceType:    svc.Category,
		Price:          svc.Price,
		GatewayOrderID: gatewayOrderID,
		Name:           req.Name,
		Email:          req.Email,
		Phone:          req.Phone,
		Booking:        req.Booking,
	})
	if err != nil {
		// The remote order exists without a local record; leave a trail
		// for manual reconciliation.
		s.log.Error("checkout: orphaned gateway order",
			slog.String("razorpay_order_id", gatewayOrderID),
			slog.String("service_id", svc.ID),
			slog.String("error", err.Error()),
		)
		return CheckoutConfig{}, err
	}

	return CheckoutConfig{
		KeyID:          s.gateway.KeyID(),
		GatewayOrderID: gatewayOrderID,
		Amount:         amountPaise,
		Currency:       s.currency,
		OrderID:        order.ID,
		OrderCode:      order.OrderCode,
		ServiceName:    svc.Name,
		PrefillName:    order.Name,
		PrefillEmail:   order.Email,
		PrefillPhone:   order.Phone,
		WhatsAppLink:   utils.WhatsAppLink(s.whatsappNumber, "Hi, I just booked "+svc.Name+" (ref "+order.OrderCode+")."),
	}, nil
}

// VerifyAndComplete is phase two of the protocol: only a valid signature
// commits the order as completed. An invalid one marks the order failed
// and flags it for manual review.
func (s *Service) VerifyAndComplete(ctx context.Context, req VerifyRequest) (orders.Order, error) {
	if s.gateway == nil {
		return orders.Order{}, ErrNotConfigured
	}

	if !s.gateway.VerifyPayment(req.RazorpayOrderID, req.RazorpayPaymentID, req.RazorpaySignature) {
		order, err := s.orders.Fail(ctx, req.RazorpayOrderID, "signature verification failed", true)
		if err != nil && !errors.Is(err, orders.ErrConflict) {
			return orders.Order{}, err
		}
		s.log.Warn("payment verify: invalid signature",
			slog.String("razorpay_order_id", req.RazorpayOrderID),
			slog.String("razorpay_payment_id", req.RazorpayPaymentID),
		)
		return order, ErrInvalidSignature
	}

	order, transitioned, err := s.orders.Complete(ctx, req.RazorpayOrderID, req.RazorpayPaymentID, req.RazorpaySignature)
	if err != nil {
		return order, err
	}
	if transitioned {
		s.sendConfirmation(order)
	}
	return order, nil
}

// RecordFailure reconciles a gateway-reported failure (declined card,
// insufficient funds). A dismissed widget is not a failure: the client
// reports nothing and the order stays pending.
func (s *Service) RecordFailure(ctx context.Context, req FailureRequest) (orders.Order, error) {
	reason := strings.TrimSpace(req.Reason)
	if reason == "" {
		reason = "payment failed"
	}
	return s.orders.Fail(ctx, req.RazorpayOrderID, reason, false)
}

// webhookEvent is the subset of the gateway webhook payload the bridge
// consumes.
type webhookEvent struct {
	Event   string `json:"event"`
	Payload struct {
		Payment struct {
			Entity struct {
				ID               string `json:"id"`
				OrderID          string `json:"order_id"`
				ErrorDescription string `json:"error_description"`
			} `json:"entity"`
		} `json:"payment"`
	} `json:"payload"`
}

// HandleWebhook is the server-to-server backstop for outcomes the
// browser never reported. It shares idempotency with the callback path
// through the orders service. Unhandled event types return a zero order
// and no error.
func (s *Service) HandleWebhook(ctx context.Context, body []byte, signature string) (orders.Order, error) {
	if s.gateway == nil {
		return orders.Order{}, ErrNotConfigured
	}
	if !s.gateway.VerifyWebhook(body, signature) {
		s.log.Warn("webhook: invalid signature")
		return orders.Order{}, ErrInvalidSignature
	}

	var event webhookEvent
	if err := json.Unmarshal(body, &event); err != nil {
		return orders.Order{}, err
	}

	payment := event.Payload.Payment.Entity
	switch event.Event {
	case "payment.captured":
		order, transitioned, err := s.orders.Complete(ctx, payment.OrderID, payment.ID, "")
		if err != nil {
			return order, err
		}
		if transitioned {
			s.sendConfirmation(order)
		}
		return order, nil
	case "payment.failed":
		reason := payment.ErrorDescription
		if reason == "" {
			reason = "payment failed"
		}
		return s.orders.Fail(ctx, payment.OrderID, reason, false)
	default:
		return orders.Order{}, nil
	}
}

// sendConfirmation emails the customer off the request path. It is only
// called on a fresh pending to completed transition so redeliveries of
// the same payment never duplicate the mail.
func (s *Service) sendConfirmation(order orders.Order) {
	if s.mailer == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if _, err := s.mailer.SendOrderConfirmation(ctx, order.Email, order.Name, order.OrderCode, order.ServiceName, orders.FormatINR(order.Price)); err != nil {
			s.log.Warn("payment confirmation email failed",
				slog.String("order_id", order.ID),
				slog.String("error", err.Error()),
			)
		}
	}()
}
