package orders

import "time"

const (
	StatusPending   = "pending"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
	StatusCancelled = "cancelled"
)

var validStatuses = map[string]struct{}{
	StatusPending:   {},
	StatusCompleted: {},
	StatusFailed:    {},
	StatusCancelled: {},
}

func IsValidStatus(value string) bool {
	_, ok := validStatuses[value]
	return ok
}

// IsTerminal reports whether no further transition may leave the status.
func IsTerminal(status string) bool {
	return status == StatusCompleted || status == StatusFailed || status == StatusCancelled
}

var statusLabels = map[string]string{
	StatusPending:   "Payment Pending",
	StatusCompleted: "Completed",
	StatusFailed:    "Failed",
	StatusCancelled: "Cancelled",
}

func StatusLabel(status string) string {
	if label, ok := statusLabels[status]; ok {
		return label
	}
	return status
}

// BookingDetails carries the consultation slot and birth data given at
// checkout. Dates and clocks are validated on the way in; the rest is
// stored as given.
type BookingDetails struct {
	PreferredDate string `bson:"preferredDate,omitempty" json:"preferredDate,omitempty" validate:"omitempty,date"`
	PreferredTime string `bson:"preferredTime,omitempty" json:"preferredTime,omitempty" validate:"omitempty,clock"`
	BirthDate     string `bson:"birthDate,omitempty" json:"birthDate,omitempty" validate:"omitempty,date"`
	BirthTime     string `bson:"birthTime,omitempty" json:"birthTime,omitempty" validate:"omitempty,clock"`
	BirthPlace    string `bson:"birthPlace,omitempty" json:"birthPlace,omitempty"`
	Notes         string `bson:"notes,omitempty" json:"notes,omitempty"`
}

// Order records one purchase attempt and its payment outcome. Price and
// the service snapshot are fixed at creation; only status, gateway
// identifiers and admin notes change afterwards.
type Order struct {
	ID        string `bson:"_id,omitempty" json:"id"`
	OrderCode string `bson:"orderCode" json:"orderCode"`
	UserID    string `bson:"userId,omitempty" json:"userId,omitempty"`

	ServiceID   string `bson:"serviceId" json:"serviceId"`
	ServiceName string `bson:"serviceName" json:"serviceName"`
	ServiceType string `bson:"serviceType" json:"serviceType"`
	Price       int    `bson:"price" json:"price"`

	Status        string `bson:"status" json:"status"`
	FailureReason string `bson:"failureReason,omitempty" json:"failureReason,omitempty"`
	NeedsReview   bool   `bson:"needsReview,omitempty" json:"needsReview,omitempty"`

	RazorpayOrderID   string `bson:"razorpayOrderId,omitempty" json:"razorpayOrderId,omitempty"`
	RazorpayPaymentID string `bson:"razorpayPaymentId,omitempty" json:"razorpayPaymentId,omitempty"`
	RazorpaySignature string `bson:"razorpaySignature,omitempty" json:"-"`

	Name  string `bson:"name" json:"name"`
	Email string `bson:"email" json:"email"`
	Phone string `bson:"phone" json:"phone"`

	Booking    *BookingDetails `bson:"booking,omitempty" json:"booking,omitempty"`
	AdminNotes string          `bson:"adminNotes,omitempty" json:"adminNotes,omitempty"`

	CreatedAt time.Time `bson:"createdAt" json:"createdAt"`
	UpdatedAt time.Time `bson:"updatedAt" json:"updatedAt"`
}

// View is the display-ready projection of an order, computed at read
// time and never stored.
type View struct {
	Order
	FormattedPrice string `json:"formattedPrice"`
	FormattedDate  string `json:"formattedDate"`
	StatusLabel    string `json:"statusLabel"`
}

type ListFilter struct {
	Status      string
	ServiceType string
	Search      string
	UserID      string
}

type AdminUpdateRequest struct {
	Status     *string `json:"status" validate:"omitempty,oneof=pending completed failed cancelled"`
	AdminNotes *string `json:"adminNotes"`
}
