package models

import (
	"encoding/json"
	"time"
)

type Booking struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Price     float64   `gorm:"not null" json:"price" validate:"required,gt=0"`
	Paid      *bool     `gorm:"not null" json:"paid"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"-"`

	TourID uint  `gorm:"not null;index" json:"-" validate:"required"`
	Tour   *Tour `gorm:"constraint:OnDelete:CASCADE" json:"-" validate:"-"`
	UserID uint  `gorm:"not null;index" json:"-" validate:"required"`
	User   *User `gorm:"constraint:OnDelete:CASCADE" json:"-" validate:"-"`
}

var bookingMessages = messages{
	"price.required":  "Booking must have a price.",
	"price.gt":        "Booking price must be positive.",
	"TourID.required": "Booking must belong to a Tour!",
	"UserID.required": "Booking must belong to a User!",
}

// TourName is the tour projection embedded in booking responses.
type TourName struct {
	ID   uint   `json:"id"`
	Name string `json:"name"`
}

func (b *Booking) ApplyDefaults() {
	if b.Paid == nil {
		paid := true
		b.Paid = &paid
	}
}

func (b *Booking) Validate() error {
	return validateStruct(b, bookingMessages).Err()
}

func (b Booking) MarshalJSON() ([]byte, error) {
	type alias Booking
	var tour, user interface{} = b.TourID, b.UserID
	if b.Tour != nil {
		tour = TourName{ID: b.Tour.ID, Name: b.Tour.Name}
	}
	if b.User != nil {
		user = b.User
	}
	return json.Marshal(struct {
		alias
		Tour interface{} `json:"tour"`
		User interface{} `json:"user"`
	}{alias(b), tour, user})
}

func (b *Booking) UnmarshalJSON(data []byte) error {
	type alias Booking
	aux := struct {
		*alias
		Tour *uint `json:"tour"`
		User *uint `json:"user"`
	}{alias: (*alias)(b)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	if aux.Tour != nil {
		b.TourID = *aux.Tour
	}
	if aux.User != nil {
		b.UserID = *aux.User
	}
	return nil
}

// BookingFields are the query parameters usable for filtering and sorting bookings.
var BookingFields = map[string]string{
	"id":        "bookings.id",
	"price":     "bookings.price",
	"paid":      "bookings.paid",
	"tour":      "bookings.tour_id",
	"user":      "bookings.user_id",
	"createdAt": "bookings.created_at",
}
