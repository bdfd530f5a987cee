package orders

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"strconv"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

var (
	ErrNotFound      = errors.New("order not found")
	ErrInvalidStatus = errors.New("invalid status")
	// ErrConflict means a callback reported an outcome for an order that
	// already reached a different terminal state. The stored state wins.
	ErrConflict = errors.New("conflicting terminal status")
	// ErrTerminal means an admin tried to move an order out of a terminal
	// state.
	ErrTerminal = errors.New("order already in a terminal state")
)

type Service struct {
	repo     Repository
	location *time.Location
}

func NewService(repo Repository, location *time.Location) *Service {
	return &Service{repo: repo, location: location}
}

type CreateParams struct {
	// OrderCode is taken as given when set (the checkout bridge reserves
	// it up front as the gateway receipt); otherwise one is generated.
	OrderCode string

	UserID      string
	ServiceID   string
	ServiceName string
	ServiceType string
	Price       int

	GatewayOrderID string

	Name  string
	Email string
	Phone string

	Booking *BookingDetails
}

// CreatePending records a purchase attempt before any money moves. The
// price and service snapshot written here never change again.
func (s *Service) CreatePending(ctx context.Context, params CreateParams) (Order, error) {
	now := time.Now().In(s.location)
	code := params.OrderCode
	if code == "" {
		code = NewOrderCode(now)
	}
	order := Order{
		ID:              primitive.NewObjectID().Hex(),
		OrderCode:       code,
		UserID:          params.UserID,
		ServiceID:       params.ServiceID,
		ServiceName:     params.ServiceName,
		ServiceType:     params.ServiceType,
		Price:           params.Price,
		Status:          StatusPending,
		RazorpayOrderID: params.GatewayOrderID,
		Name:            strings.TrimSpace(params.Name),
		Email:           strings.TrimSpace(params.Email),
		Phone:           strings.TrimSpace(params.Phone),
		Booking:         params.Booking,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	if err := s.repo.Create(ctx, order); err != nil {
		return Order{}, err
	}
	return order, nil
}

// Complete reconciles a successful gateway callback into the pending
// order carrying gatewayOrderID. Re-delivery of the same success is a
// no-op; a success for an order that already failed is a conflict. The
// bool reports whether this call performed the transition, so callers
// can fire one-shot side effects like the confirmation email.
func (s *Service) Complete(ctx context.Context, gatewayOrderID, paymentID, signature string) (Order, bool, error) {
	fields := bson.M{
		"status":            StatusCompleted,
		"razorpayPaymentId": paymentID,
		"razorpaySignature": signature,
		"failureReason":     "",
	}

	updated, err := s.repo.TransitionFromPending(ctx, gatewayOrderID, fields, time.Now().In(s.location))
	if err == nil {
		return updated, true, nil
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return Order{}, false, err
	}

	existing, err := s.repo.GetByGatewayOrderID(ctx, gatewayOrderID)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return Order{}, false, ErrNotFound
		}
		return Order{}, false, err
	}

	if existing.Status == StatusCompleted && existing.RazorpayPaymentID == paymentID {
		return existing, false, nil
	}
	return existing, false, ErrConflict
}

// Fail reconciles a failed or abandoned payment. Like Complete it is
// idempotent on the gateway order id.
func (s *Service) Fail(ctx context.Context, gatewayOrderID, reason string, needsReview bool) (Order, error) {
	fields := bson.M{
		"status":        StatusFailed,
		"failureReason": reason,
		"needsReview":   needsReview,
	}

	updated, err := s.repo.TransitionFromPending(ctx, gatewayOrderID, fields, time.Now().In(s.location))
	if err == nil {
		return updated, nil
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return Order{}, err
	}

	existing, err := s.repo.GetByGatewayOrderID(ctx, gatewayOrderID)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return Order{}, ErrNotFound
		}
		return Order{}, err
	}

	if existing.Status == StatusFailed {
		return existing, nil
	}
	return existing, ErrConflict
}

func (s *Service) Get(ctx context.Context, id string) (Order, error) {
	order, err := s.repo.GetByID(ctx, strings.TrimSpace(id))
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return Order{}, ErrNotFound
		}
		return Order{}, err
	}
	return order, nil
}

func (s *Service) List(ctx context.Context, filter ListFilter, limit, offset int64) ([]Order, int64, error) {
	filter.Status = strings.ToLower(strings.TrimSpace(filter.Status))
	filter.ServiceType = strings.TrimSpace(filter.ServiceType)
	filter.Search = strings.TrimSpace(filter.Search)

	if filter.Status != "" && !IsValidStatus(filter.Status) {
		return nil, 0, ErrInvalidStatus
	}

	items, err := s.repo.List(ctx, filter, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	total, err := s.repo.Count(ctx, filter)
	if err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

func (s *Service) ListByUser(ctx context.Context, userID string, limit, offset int64) ([]Order, int64, error) {
	return s.List(ctx, ListFilter{UserID: userID}, limit, offset)
}

// AdminUpdate patches admin notes and, while the order is still pending,
// its status. Terminal orders only accept note edits.
func (s *Service) AdminUpdate(ctx context.Context, id string, req AdminUpdateRequest) (Order, error) {
	existing, err := s.Get(ctx, id)
	if err != nil {
		return Order{}, err
	}

	fields := bson.M{}
	if req.AdminNotes != nil {
		fields["adminNotes"] = strings.TrimSpace(*req.AdminNotes)
	}
	if req.Status != nil {
		status := strings.ToLower(strings.TrimSpace(*req.Status))
		if !IsValidStatus(status) {
			return Order{}, ErrInvalidStatus
		}
		if status != existing.Status {
			if IsTerminal(existing.Status) {
				return Order{}, ErrTerminal
			}
			fields["status"] = status
		}
	}

	if len(fields) == 0 {
		return existing, nil
	}

	// The write is conditional on the status read above; a gateway
	// callback landing in between makes it a no-match instead of an
	// overwrite.
	updated, err := s.repo.UpdateAdmin(ctx, existing.ID, existing.Status, fields, time.Now().In(s.location))
	if err == nil {
		return updated, nil
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return Order{}, err
	}

	if _, err := s.repo.GetByID(ctx, existing.ID); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return Order{}, ErrNotFound
		}
		return Order{}, err
	}
	return Order{}, ErrConflict
}

func (s *Service) Delete(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, strings.TrimSpace(id)); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return ErrNotFound
		}
		return err
	}
	return nil
}

// Project computes the display-ready view of an order at read time.
func (s *Service) Project(order Order) View {
	return ProjectOrder(order, s.location)
}

func (s *Service) ProjectAll(items []Order) []View {
	return ProjectAll(items, s.location)
}

func ProjectOrder(order Order, loc *time.Location) View {
	return View{
		Order:          order,
		FormattedPrice: FormatINR(order.Price),
		FormattedDate:  order.CreatedAt.In(loc).Format("02 Jan 2006, 03:04 PM"),
		StatusLabel:    StatusLabel(order.Status),
	}
}

func ProjectAll(items []Order, loc *time.Location) []View {
	views := make([]View, 0, len(items))
	for _, order := range items {
		views = append(views, ProjectOrder(order, loc))
	}
	return views
}

// NewOrderCode builds the human-facing order reference, e.g.
// OCC-20260301-9F2C4A.
func NewOrderCode(now time.Time) string {
	buf := make([]byte, 3)
	if _, err := rand.Read(buf); err != nil {
		buf = []byte{byte(now.Nanosecond()), byte(now.Second()), byte(now.Minute())}
	}
	return "OCC-" + now.Format("20060102") + "-" + strings.ToUpper(hex.EncodeToString(buf))
}

// FormatINR renders whole rupees with Indian digit grouping, e.g.
// ₹999, ₹1,999, ₹12,34,567.
func FormatINR(amount int) string {
	sign := ""
	if amount < 0 {
		sign = "-"
		amount = -amount
	}

	digits := []byte(strconv.Itoa(amount))
	if len(digits) <= 3 {
		return sign + "₹" + string(digits)
	}

	head := digits[:len(digits)-3]
	tail := string(digits[len(digits)-3:])

	var groups []string
	for len(head) > 2 {
		groups = append([]string{string(head[len(head)-2:])}, groups...)
		head = head[:len(head)-2]
	}
	if len(head) > 0 {
		groups = append([]string{string(head)}, groups...)
	}

	return sign + "₹" + strings.Join(groups, ",") + "," + tail
}
