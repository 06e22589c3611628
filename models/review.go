package models

import (
	"encoding/json"
	"strings"
	"time"
)

type Review struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Review    string    `gorm:"type:text;not null" json:"review" validate:"required"`
	Rating    float64   `gorm:"not null" json:"rating" validate:"gte=1,lte=5"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"-"`

	TourID uint  `gorm:"not null;uniqueIndex:idx_reviews_tour_user" json:"-" validate:"required"`
	Tour   *Tour `gorm:"constraint:OnDelete:CASCADE" json:"-" validate:"-"`
	UserID uint  `gorm:"not null;uniqueIndex:idx_reviews_tour_user" json:"-" validate:"required"`
	User   *User `gorm:"constraint:OnDelete:CASCADE" json:"-" validate:"-"`
}

var reviewMessages = messages{
	"review.required": "Review can not be empty!",
	"rating.gte":      "Rating must be above 1.0",
	"rating.lte":      "Rating must be below 5.0",
	"TourID.required": "Review must belong to a tour.",
	"UserID.required": "Review must belong to a user",
}

// Author is the public projection of a user shown next to reviews.
type Author struct {
	ID    uint   `json:"id"`
	Name  string `json:"name"`
	Photo string `json:"photo"`
}

// MarshalJSON renders tour and user as ids, or as the loaded documents when
// they were preloaded.
func (r Review) MarshalJSON() ([]byte, error) {
	type alias Review
	var tour, user interface{} = r.TourID, r.UserID
	if r.Tour != nil {
		tour = r.Tour
	}
	if r.User != nil {
		user = Author{ID: r.User.ID, Name: r.User.Name, Photo: r.User.Photo}
	}
	return json.Marshal(struct {
		alias
		Tour interface{} `json:"tour"`
		User interface{} `json:"user"`
	}{alias(r), tour, user})
}

// UnmarshalJSON reads tour and user as ids.
func (r *Review) UnmarshalJSON(b []byte) error {
	type alias Review
	aux := struct {
		*alias
		Tour *uint `json:"tour"`
		User *uint `json:"user"`
	}{alias: (*alias)(r)}
	if err := json.Unmarshal(b, &aux); err != nil {
		return err
	}
	if aux.Tour != nil {
		r.TourID = *aux.Tour
	}
	if aux.User != nil {
		r.UserID = *aux.User
	}
	return nil
}

func (r *Review) Validate() error {
	r.Review = strings.TrimSpace(r.Review)
	return validateStruct(r, reviewMessages).Err()
}

// ReviewFields are the query parameters usable for filtering and sorting reviews.
var ReviewFields = map[string]string{
	"id":        "reviews.id",
	"rating":    "reviews.rating",
	"tour":      "reviews.tour_id",
	"user":      "reviews.user_id",
	"createdAt": "reviews.created_at",
}
