package orders

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

type fakeRepo struct {
	orders map[string]*Order
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{orders: make(map[string]*Order)}
}

func (f *fakeRepo) Create(ctx context.Context, order Order) error {
	f.orders[order.ID] = &order
	return nil
}

func (f *fakeRepo) GetByID(ctx context.Context, id string) (Order, error) {
	if o, ok := f.orders[id]; ok {
		return *o, nil
	}
	return Order{}, mongo.ErrNoDocuments
}

func (f *fakeRepo) GetByGatewayOrderID(ctx context.Context, gatewayOrderID string) (Order, error) {
	for _, o := range f.orders {
		if o.RazorpayOrderID == gatewayOrderID {
			return *o, nil
		}
	}
	return Order{}, mongo.ErrNoDocuments
}

func (f *fakeRepo) List(ctx context.Context, filter ListFilter, limit, offset int64) ([]Order, error) {
	items := make([]Order, 0)
	for _, o := range f.orders {
		if f.matches(*o, filter) {
			items = append(items, *o)
		}
	}
	return items, nil
}

func (f *fakeRepo) Count(ctx context.Context, filter ListFilter) (int64, error) {
	var n int64
	for _, o := range f.orders {
		if f.matches(*o, filter) {
			n++
		}
	}
	return n, nil
}

func (f *fakeRepo) matches(o Order, filter ListFilter) bool {
	if filter.Status != "" && o.Status != filter.Status {
		return false
	}
	if filter.ServiceType != "" && o.ServiceType != filter.ServiceType {
		return false
	}
	if filter.UserID != "" && o.UserID != filter.UserID {
		return false
	}
	if filter.Search != "" {
		q := strings.ToLower(filter.Search)
		if !strings.Contains(strings.ToLower(o.OrderCode), q) &&
			!strings.Contains(strings.ToLower(o.Name), q) &&
			!strings.Contains(strings.ToLower(o.Email), q) {
			return false
		}
	}
	return true
}

func (f *fakeRepo) TransitionFromPending(ctx context.Context, gatewayOrderID string, fields bson.M, now time.Time) (Order, error) {
	for _, o := range f.orders {
		if o.RazorpayOrderID == gatewayOrderID && o.Status == StatusPending {
			f.apply(o, fields, now)
			return *o, nil
		}
	}
	return Order{}, mongo.ErrNoDocuments
}

func (f *fakeRepo) UpdateAdmin(ctx context.Context, id, expectStatus string, fields bson.M, now time.Time) (Order, error) {
	o, ok := f.orders[id]
	if !ok || o.Status != expectStatus {
		return Order{}, mongo.ErrNoDocuments
	}
	f.apply(o, fields, now)
	return *o, nil
}

func (f *fakeRepo) Delete(ctx context.Context, id string) error {
	if _, ok := f.orders[id]; !ok {
		return mongo.ErrNoDocuments
	}
	delete(f.orders, id)
	return nil
}

func (f *fakeRepo) apply(o *Order, fields bson.M, now time.Time) {
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

func newTestService(t *testing.T) (*Service, *fakeRepo) {
	t.Helper()
	loc, err := time.LoadLocation("Asia/Kolkata")
	if err != nil {
		t.Fatalf("load location: %v", err)
	}
	repo := newFakeRepo()
	return NewService(repo, loc), repo
}

func createPending(t *testing.T, svc *Service, gatewayOrderID string) Order {
	t.Helper()
	order, err := svc.CreatePending(context.Background(), CreateParams{
		ServiceID:      "svc-1",
		ServiceName:    "Numerology Reading",
		ServiceType:    "numerology",
		Price:          999,
		GatewayOrderID: gatewayOrderID,
		Name:           "Asha Rao",
		Email:          "asha@example.com",
		Phone:          "9876543210",
	})
	if err != nil {
		t.Fatalf("CreatePending error: %v", err)
	}
	return order
}

func TestCreatePendingDefaults(t *testing.T) {
	svc, _ := newTestService(t)
	order := createPending(t, svc, "order_rzp1")

	if order.Status != StatusPending {
		t.Fatalf("expected pending, got %q", order.Status)
	}
	if order.Price != 999 {
		t.Fatalf("expected price 999, got %d", order.Price)
	}
	if !strings.HasPrefix(order.OrderCode, "OCC-") {
		t.Fatalf("unexpected order code %q", order.OrderCode)
	}
}

func TestCompleteHappyPath(t *testing.T) {
	svc, _ := newTestService(t)
	createPending(t, svc, "order_rzp1")

	order, transitioned, err := svc.Complete(context.Background(), "order_rzp1", "pay_123", "sig")
	if err != nil {
		t.Fatalf("Complete error: %v", err)
	}
	if !transitioned {
		t.Fatalf("expected first completion to transition")
	}
	if order.Status != StatusCompleted {
		t.Fatalf("expected completed, got %q", order.Status)
	}
	if order.RazorpayPaymentID != "pay_123" {
		t.Fatalf("expected pay_123, got %q", order.RazorpayPaymentID)
	}
	if order.Price != 999 {
		t.Fatalf("price changed on completion: %d", order.Price)
	}
}

func TestCompleteIsIdempotent(t *testing.T) {
	svc, repo := newTestService(t)
	createPending(t, svc, "order_rzp1")

	first, transitioned, err := svc.Complete(context.Background(), "order_rzp1", "pay_123", "sig")
	if err != nil {
		t.Fatalf("Complete error: %v", err)
	}
	if !transitioned {
		t.Fatalf("expected first completion to transition")
	}

	second, transitioned, err := svc.Complete(context.Background(), "order_rzp1", "pay_123", "sig")
	if err != nil {
		t.Fatalf("second Complete should be a no-op, got %v", err)
	}
	if transitioned {
		t.Fatalf("redelivery must not report a fresh transition")
	}
	if second.RazorpayPaymentID != first.RazorpayPaymentID {
		t.Fatalf("payment id changed on redelivery")
	}

	completed, _ := repo.Count(context.Background(), ListFilter{Status: StatusCompleted})
	if completed != 1 {
		t.Fatalf("expected exactly one completed order, got %d", completed)
	}
}

func TestCompleteConflictsAfterFailure(t *testing.T) {
	svc, _ := newTestService(t)
	createPending(t, svc, "order_rzp1")

	if _, err := svc.Fail(context.Background(), "order_rzp1", "insufficient funds", false); err != nil {
		t.Fatalf("Fail error: %v", err)
	}

	existing, _, err := svc.Complete(context.Background(), "order_rzp1", "pay_123", "sig")
	if !errors.Is(err, ErrConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}
	if existing.Status != StatusFailed {
		t.Fatalf("terminal status was overwritten: %q", existing.Status)
	}
}

func TestCompleteUnknownGatewayOrder(t *testing.T) {
	svc, _ := newTestService(t)
	if _, _, err := svc.Complete(context.Background(), "order_unknown", "pay_1", "sig"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestFailStoresReason(t *testing.T) {
	svc, _ := newTestService(t)
	createPending(t, svc, "order_rzp1")

	order, err := svc.Fail(context.Background(), "order_rzp1", "insufficient funds", false)
	if err != nil {
		t.Fatalf("Fail error: %v", err)
	}
	if order.Status != StatusFailed {
		t.Fatalf("expected failed, got %q", order.Status)
	}
	if order.FailureReason != "insufficient funds" {
		t.Fatalf("unexpected reason %q", order.FailureReason)
	}

	again, err := svc.Fail(context.Background(), "order_rzp1", "insufficient funds", false)
	if err != nil {
		t.Fatalf("redelivered failure should be a no-op, got %v", err)
	}
	if again.Status != StatusFailed {
		t.Fatalf("unexpected status %q", again.Status)
	}
}

func TestFailDoesNotRevertCompleted(t *testing.T) {
	svc, _ := newTestService(t)
	createPending(t, svc, "order_rzp1")

	if _, _, err := svc.Complete(context.Background(), "order_rzp1", "pay_123", "sig"); err != nil {
		t.Fatalf("Complete error: %v", err)
	}

	existing, err := svc.Fail(context.Background(), "order_rzp1", "late failure", false)
	if !errors.Is(err, ErrConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}
	if existing.Status != StatusCompleted || existing.RazorpayPaymentID != "pay_123" {
		t.Fatalf("completed order mutated: %+v", existing)
	}
}

func TestListRejectsInvalidStatus(t *testing.T) {
	svc, _ := newTestService(t)
	if _, _, err := svc.List(context.Background(), ListFilter{Status: "refunded"}, 20, 0); !errors.Is(err, ErrInvalidStatus) {
		t.Fatalf("expected invalid status, got %v", err)
	}
}

func TestAdminUpdateNotesOnTerminalOrder(t *testing.T) {
	svc, _ := newTestService(t)
	order := createPending(t, svc, "order_rzp1")
	if _, _, err := svc.Complete(context.Background(), "order_rzp1", "pay_123", "sig"); err != nil {
		t.Fatalf("Complete error: %v", err)
	}

	notes := "customer asked to reschedule"
	updated, err := svc.AdminUpdate(context.Background(), order.ID, AdminUpdateRequest{AdminNotes: &notes})
	if err != nil {
		t.Fatalf("AdminUpdate error: %v", err)
	}
	if updated.AdminNotes != notes {
		t.Fatalf("notes not stored: %q", updated.AdminNotes)
	}
	if updated.Status != StatusCompleted {
		t.Fatalf("status changed by notes edit: %q", updated.Status)
	}
}

func TestAdminUpdateCannotLeaveTerminal(t *testing.T) {
	svc, _ := newTestService(t)
	order := createPending(t, svc, "order_rzp1")
	if _, _, err := svc.Complete(context.Background(), "order_rzp1", "pay_123", "sig"); err != nil {
		t.Fatalf("Complete error: %v", err)
	}

	status := StatusCancelled
	if _, err := svc.AdminUpdate(context.Background(), order.ID, AdminUpdateRequest{Status: &status}); !errors.Is(err, ErrTerminal) {
		t.Fatalf("expected terminal error, got %v", err)
	}
}

func TestAdminUpdateCancelsPending(t *testing.T) {
	svc, _ := newTestService(t)
	order := createPending(t, svc, "order_rzp1")

	status := StatusCancelled
	updated, err := svc.AdminUpdate(context.Background(), order.ID, AdminUpdateRequest{Status: &status})
	if err != nil {
		t.Fatalf("AdminUpdate error: %v", err)
	}
	if updated.Status != StatusCancelled {
		t.Fatalf("expected cancelled, got %q", updated.Status)
	}
}

// completingRepo flips a pending order to completed right after the
// first read, like a gateway callback landing mid-request.
type completingRepo struct {
	*fakeRepo
	flipped bool
}

func (r *completingRepo) GetByID(ctx context.Context, id string) (Order, error) {
	order, err := r.fakeRepo.GetByID(ctx, id)
	if err != nil {
		return Order{}, err
	}
	if !r.flipped && order.Status == StatusPending {
		r.flipped = true
		stored := r.fakeRepo.orders[order.ID]
		stored.Status = StatusCompleted
		stored.RazorpayPaymentID = "pay_123"
	}
	return order, nil
}

func TestAdminUpdateLosesRaceToCallback(t *testing.T) {
	loc, err := time.LoadLocation("Asia/Kolkata")
	if err != nil {
		t.Fatalf("load location: %v", err)
	}
	repo := &completingRepo{fakeRepo: newFakeRepo()}
	svc := NewService(repo, loc)
	order := createPending(t, svc, "order_rzp1")

	status := StatusCancelled
	if _, err := svc.AdminUpdate(context.Background(), order.ID, AdminUpdateRequest{Status: &status}); !errors.Is(err, ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}
	stored := repo.fakeRepo.orders[order.ID]
	if stored.Status != StatusCompleted {
		t.Fatalf("completed order was overwritten to %q", stored.Status)
	}
	if stored.RazorpayPaymentID != "pay_123" {
		t.Fatalf("payment id lost, got %q", stored.RazorpayPaymentID)
	}
}

func TestProjectFormatsForDisplay(t *testing.T) {
	svc, _ := newTestService(t)
	order := createPending(t, svc, "order_rzp1")

	view := svc.Project(order)
	if view.FormattedPrice != "₹999" {
		t.Fatalf("unexpected formatted price %q", view.FormattedPrice)
	}
	if view.StatusLabel != "Payment Pending" {
		t.Fatalf("unexpected status label %q", view.StatusLabel)
	}
	if view.FormattedDate == "" {
		t.Fatalf("expected formatted date")
	}
}

func TestFormatINR(t *testing.T) {
	cases := map[int]string{
		0:        "₹0",
		999:      "₹999",
		1999:     "₹1,999",
		54999:    "₹54,999",
		123456:   "₹1,23,456",
		1234567:  "₹12,34,567",
		12345678: "₹1,23,45,678",
	}
	for amount, want := range cases {
		if got := FormatINR(amount); got != want {
			t.Fatalf("FormatINR(%d) = %q, want %q", amount, got, want)
		}
	}
}
