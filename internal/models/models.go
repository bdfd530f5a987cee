package models

import "time"

const (
	UserRoleUser  = "user"
	UserRoleAdmin = "admin"

	ContactStatusNew       = "new"
	ContactStatusContacted = "contacted"
	ContactStatusResolved  = "resolved"

	SampleReportStatusNew  = "new"
	SampleReportStatusSent = "sent"
)

type Service struct {
	ID               string    `bson:"_id,omitempty" json:"id"`
	Name             string    `bson:"name" json:"name"`
	ShortDescription string    `bson:"shortDescription" json:"shortDescription"`
	Description      string    `bson:"description" json:"description"`
	Price            int       `bson:"price" json:"price"`
	Image            string    `bson:"image,omitempty" json:"image,omitempty"`
	Category         string    `bson:"category" json:"category"`
	DurationMinutes  int       `bson:"durationMinutes,omitempty" json:"durationMinutes,omitempty"`
	Active           bool      `bson:"active" json:"active"`
	Featured         bool      `bson:"featured" json:"featured"`
	Slug             string    `bson:"slug" json:"slug"`
	CreatedAt        time.Time `bson:"createdAt" json:"createdAt"`
	UpdatedAt        time.Time `bson:"updatedAt" json:"updatedAt"`
}

type User struct {
	ID           string    `bson:"_id,omitempty" json:"id"`
	Name         string    `bson:"name" json:"name"`
	Email        string    `bson:"email" json:"email"`
	PasswordHash string    `bson:"passwordHash" json:"-"`
	Phone        string    `bson:"phone,omitempty" json:"phone,omitempty"`
	ProfileImage string    `bson:"profileImage,omitempty" json:"profileImage,omitempty"`
	Role         string    `bson:"role" json:"role"`
	CreatedAt    time.Time `bson:"createdAt" json:"createdAt"`
	UpdatedAt    time.Time `bson:"updatedAt" json:"updatedAt"`
}

type Contact struct {
	ID        string    `bson:"_id,omitempty" json:"id"`
	Name      string    `bson:"name" json:"name"`
	Email     string    `bson:"email" json:"email"`
	Phone     string    `bson:"phone" json:"phone"`
	ServiceID string    `bson:"serviceId,omitempty" json:"serviceId,omitempty"`
	Message   string    `bson:"message" json:"message"`
	Status    string    `bson:"status" json:"status"`
	CreatedAt time.Time `bson:"createdAt" json:"createdAt"`
	UpdatedAt time.Time `bson:"updatedAt" json:"updatedAt"`
}

type SampleReportRequest struct {
	ID         string    `bson:"_id,omitempty" json:"id"`
	Name       string    `bson:"name" json:"name"`
	Email      string    `bson:"email" json:"email"`
	Phone      string    `bson:"phone" json:"phone"`
	BirthDate  string    `bson:"birthDate" json:"birthDate"`
	BirthTime  string    `bson:"birthTime,omitempty" json:"birthTime,omitempty"`
	BirthPlace string    `bson:"birthPlace,omitempty" json:"birthPlace,omitempty"`
	Status     string    `bson:"status" json:"status"`
	CreatedAt  time.Time `bson:"createdAt" json:"createdAt"`
	UpdatedAt  time.Time `bson:"updatedAt" json:"updatedAt"`
}

type Testimonial struct {
	ID        string    `bson:"_id,omitempty" json:"id"`
	Name      string    `bson:"name" json:"name"`
	Rating    int       `bson:"rating" json:"rating"`
	Message   string    `bson:"message" json:"message"`
	ServiceID string    `bson:"serviceId,omitempty" json:"serviceId,omitempty"`
	Approved  bool      `bson:"approved" json:"approved"`
	CreatedAt time.Time `bson:"createdAt" json:"createdAt"`
}
